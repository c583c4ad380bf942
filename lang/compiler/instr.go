package compiler

import "fmt"

// Instruction is one bytecode triple (op, offset, ptr).
// Offset carries a jump target, frame size, result count, or slot index;
// Ptr carries a literal payload or a name, depending on Op.
type Instruction struct {
	Op     Opcode
	Offset int
	Ptr    interface{}
}

func (i Instruction) String() string {
	switch {
	case i.Ptr != nil && i.Offset != 0:
		return fmt.Sprintf("%s %v %d", i.Op, i.Ptr, i.Offset)
	case i.Ptr != nil:
		return fmt.Sprintf("%s %v", i.Op, i.Ptr)
	case i.Offset != 0:
		return fmt.Sprintf("%s %d", i.Op, i.Offset)
	default:
		return i.Op.String()
	}
}

// Program is the flat, growable vector of instructions produced by the
// compiler and consumed by the VM's dispatch loop.
type Program struct {
	Code []Instruction
}

// Pos returns the index the next emitted instruction will occupy.
func (p *Program) Pos() int { return len(p.Code) }

// Emit appends an instruction and runs the peephole fusion pass
// against the newly-extended tail, returning the index of the emitted (or
// fused) instruction.
func (p *Program) Emit(op Opcode, offset int, ptr interface{}) int {
	p.Code = append(p.Code, Instruction{Op: op, Offset: offset, Ptr: ptr})
	p.fuse()
	return len(p.Code) - 1
}

// Patch overwrites the Offset field of a previously emitted instruction,
// used to back-patch forward jump targets once the target address is known.
func (p *Program) Patch(at int, offset int) {
	p.Code[at].Offset = offset
}

// fuse inspects the last one or two emitted instructions and collapses
// known-redundant pairs per the peephole table below. Each rule only looks
// at the instruction(s) immediately preceding the one just emitted, so
// fusion is a pure function of the trailing window -- safe to run after
// every single Emit call.
func (p *Program) fuse() {
	n := len(p.Code)
	if n < 2 {
		return
	}
	prev := p.Code[n-2]
	last := p.Code[n-1]

	fuseTwo := func(op Opcode, ptr interface{}, offset int) {
		p.Code[n-2] = Instruction{Op: op, Offset: offset, Ptr: ptr}
		p.Code = p.Code[:n-1]
	}

	switch {
	case prev.Op == LIT && last.Op == FIND:
		fuseTwo(FIND_LIT, prev.Ptr, 0)
	case prev.Op == LIT && last.Op == GET:
		fuseTwo(GET_LIT, prev.Ptr, 0)
	case prev.Op == FIND_LIT && last.Op == CALL:
		fuseTwo(CALL_LIT, prev.Ptr, 0)
	case prev.Op == LIT && last.Op == ADD:
		fuseTwo(ADD_LIT, prev.Ptr, 0)
	case prev.Op == LIT && last.Op == LT:
		fuseTwo(LT_LIT, prev.Ptr, 0)
	case last.Op == LIMIT && last.Offset == 1:
		// The LIT-fusion cases above never leave LIMIT as the newly
		// emitted instruction, so the MARK; LIT(k); LIMIT(1) collapse
		// only has a chance to fire here, on the LIMIT(1) emit itself.
		p.collapseMarkLitLimit()
	}
}

// collapseMarkLitLimit removes a MARK immediately preceding a LIT/FIND_LIT/
// GET_LIT/ADD_LIT/LT_LIT when the following instruction is a LIMIT(1): the
// frame contributes nothing observable around a single already-reduced
// value, so the redundant no-op frame is dropped.
func (p *Program) collapseMarkLitLimit() {
	n := len(p.Code)
	if n < 3 {
		return
	}
	mark := p.Code[n-3]
	mid := p.Code[n-2]
	limit := p.Code[n-1]
	if mark.Op != MARK || limit.Op != LIMIT || limit.Offset != 1 {
		return
	}
	switch mid.Op {
	case LIT, FIND_LIT, GET_LIT, ADD_LIT, LT_LIT:
	default:
		return
	}
	p.Code[n-3] = mid
	p.Code = p.Code[:n-2]
}
