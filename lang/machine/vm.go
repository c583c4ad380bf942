package machine

import (
	"strings"

	"github.com/corvid-lang/corvid/lang/compiler"
)

// exec dispatches a single instruction against cur, the coroutine currently
// at the top of the scheduler. Every case is grounded on the stack picture
// documented next to the Opcode's definition in lang/compiler/opcode.go.
func (in *Interpreter) exec(cur *Coroutine, instr compiler.Instruction) {
	switch instr.Op {

	// stack frame
	case compiler.MARK:
		cur.Marks = append(cur.Marks, cur.depth())
	case compiler.LIMIT:
		in.doLimit(cur, instr)
	case compiler.LOOP:
		lt := instr.Ptr.(*compiler.LoopTargets)
		cur.Loops = append(cur.Loops, loopFrame{continueIP: lt.Continue, breakIP: lt.Break, marksLen: len(cur.Marks), ownedMarks: lt.OwnedMarks})
	case compiler.UNLOOP:
		cur.Loops = cur.Loops[:len(cur.Loops)-1]
	case compiler.DROP:
		discard(in, cur.pop())
	case compiler.DROP_ALL:
		base := cur.Marks[len(cur.Marks)-1]
		in.trimStackTo(cur, base)

	// data
	case compiler.LIT:
		cur.push(in.literalValue(cur, instr))
	case compiler.NIL:
		cur.push(Nil)
	case compiler.TRUE:
		cur.push(Bool(true))
	case compiler.FALSE:
		cur.push(Bool(false))
	case compiler.STRING:
		in.doString(cur, instr)
	case compiler.ARRAY:
		in.doArray(cur, instr)
	case compiler.TABLE:
		in.doTable(cur, instr)
	case compiler.GLOBAL:
		in.Global.Incref()
		cur.push(in.Global)
	case compiler.LOCAL:
		rs := cur.readingScope()
		if rs == nil {
			rs = in.Global
		}
		rs.Incref()
		cur.push(rs)
	case compiler.LITSTACK:
		vals := make([]Value, len(cur.Stack))
		for i, v := range cur.Stack {
			vals[i] = copyValue(v)
		}
		cur.push(NewVec(in, vals))
	case compiler.LITSCOPE:
		s := cur.writingScope()
		s.Incref()
		cur.push(s)
	case compiler.SCOPE:
		cur.pushScope(in)
	case compiler.SMUDGE:
		cur.writingScope().SetSmudged()
	case compiler.UNSCOPE:
		cur.popScope(in)
	case compiler.SELF:
		// Pushes a fresh reference to the receiver: the Selves slot keeps
		// its own (dropped by SELF_DROP), this one is consumed by the
		// GET that follows in methodCallSeq.
		cur.push(copyValue(cur.Selves[len(cur.Selves)-1]))
	case compiler.SELF_PUSH:
		cur.Selves = append(cur.Selves, cur.pop())
	case compiler.SELF_DROP:
		n := len(cur.Selves) - 1
		discard(in, cur.Selves[n])
		cur.Selves = cur.Selves[:n]
	case compiler.SHUNT:
		cur.Other = append(cur.Other, cur.pop())
	case compiler.SHIFT:
		n := len(cur.Other) - 1
		cur.push(cur.Other[n])
		cur.Other = cur.Other[:n]

	// names
	case compiler.ASSIGN:
		in.fatalf(cur, instr, "assign opcode is unsupported; use assign_lit")
	case compiler.ASSIGN_LIT:
		in.doAssignLit(cur, instr)
	case compiler.FIND:
		in.doFind(cur, instr)
	case compiler.FIND_LIT:
		in.doFindLit(cur, instr)
	case compiler.GET:
		in.doGet(cur, instr)
	case compiler.GET_LIT:
		in.doGetLit(cur, instr)
	case compiler.SET:
		in.doSet(cur, instr)
	case compiler.INHERIT:
		in.doInherit(cur, instr)

	// control
	case compiler.TEST:
		cur.push(Bool(Truthy(cur.top())))
	case compiler.JMP:
		cur.IP = instr.Offset
	case compiler.JFALSE:
		if !Truthy(cur.top()) {
			cur.IP = instr.Offset
		}
	case compiler.JTRUE:
		if Truthy(cur.top()) {
			cur.IP = instr.Offset
		}
	case compiler.FOR:
		in.doFor(cur, instr)
	case compiler.KEYS:
		in.doKeysOp(cur, instr)
	case compiler.VALUES:
		in.doValuesOp(cur, instr)

	// calls
	case compiler.CALL:
		in.doCall(cur, cur.pop(), instr)
	case compiler.CALL_LIT:
		name := instr.Ptr.(string)
		callee, ok := in.findName(cur, name)
		if !ok {
			in.fatalf(cur, instr, "unknown name %q", name)
		}
		in.doCall(cur, callee, instr)
	case compiler.RETURN:
		in.doReturn(cur)
	case compiler.REPLY:
		in.doReply(cur, instr)
	case compiler.BREAK:
		in.doBreak(cur)
	case compiler.CONTINUE:
		in.doContinue(cur)
	case compiler.COROUTINE:
		in.doCoroutine(cur, instr)
	case compiler.RESUME:
		in.doResume(cur, instr)
	case compiler.YIELD:
		in.doYield(cur)

	// arithmetic / comparison / misc
	case compiler.ADD:
		in.binArith(cur, instr, Add)
	case compiler.ADD_LIT:
		x := cur.pop()
		r, err := Add(x, in.literalValue(cur, instr))
		if err != nil {
			in.fatalf(cur, instr, "%s", err)
		}
		discard(in, x)
		cur.push(r)
	case compiler.NEG:
		x := cur.pop()
		r, err := Neg(x)
		if err != nil {
			in.fatalf(cur, instr, "%s", err)
		}
		discard(in, x)
		cur.push(r)
	case compiler.SUB:
		in.binArith(cur, instr, Sub)
	case compiler.MUL:
		in.binArith(cur, instr, Mul)
	case compiler.DIV:
		in.binArith(cur, instr, Div)
	case compiler.MOD:
		in.binArith(cur, instr, Mod)
	case compiler.EQ:
		y, x := cur.pop(), cur.pop()
		r := Equal(x, y)
		discard(in, x)
		discard(in, y)
		cur.push(Bool(r))
	case compiler.NE:
		y, x := cur.pop(), cur.pop()
		r := Equal(x, y)
		discard(in, x)
		discard(in, y)
		cur.push(Bool(!r))
	case compiler.LT:
		in.binCompare(cur, instr, func(c int) bool { return c < 0 })
	case compiler.LT_LIT:
		x := cur.pop()
		c, err := Compare(x, in.literalValue(cur, instr))
		if err != nil {
			in.fatalf(cur, instr, "%s", err)
		}
		discard(in, x)
		cur.push(Bool(c < 0))
	case compiler.LTE:
		in.binCompare(cur, instr, func(c int) bool { return c <= 0 })
	case compiler.GT:
		in.binCompare(cur, instr, func(c int) bool { return c > 0 })
	case compiler.GTE:
		in.binCompare(cur, instr, func(c int) bool { return c >= 0 })
	case compiler.NOT:
		x := cur.pop()
		r := !Truthy(x)
		discard(in, x)
		cur.push(Bool(r))
	case compiler.CONCAT:
		y, x := cur.pop(), cur.pop()
		s := Str(ToString(x) + ToString(y))
		discard(in, x)
		discard(in, y)
		cur.push(s)
	case compiler.COUNT:
		x := cur.pop()
		n, err := countValue(x)
		if err != nil {
			in.fatalf(cur, instr, "%s", err)
		}
		discard(in, x)
		cur.push(n)
	case compiler.MATCH:
		in.doMatch(cur, instr)
	case compiler.STATUS:
		cur.push(doStatus(in))
	case compiler.PRINT:
		in.doPrintOp(cur, instr)

	default:
		in.fatalf(cur, instr, "unimplemented opcode %s", instr.Op)
	}
}

func (in *Interpreter) trimStackTo(cur *Coroutine, base int) {
	for len(cur.Stack) > base {
		discard(in, cur.pop())
	}
}

func (in *Interpreter) doLimit(cur *Coroutine, instr compiler.Instruction) {
	n := len(cur.Marks) - 1
	old := cur.Marks[n]
	cur.Marks = cur.Marks[:n]
	want := len(cur.Stack)
	if instr.Offset >= 0 {
		want = old + instr.Offset
	}
	for len(cur.Stack) > want {
		discard(in, cur.pop())
	}
	for len(cur.Stack) < want {
		cur.push(Nil)
	}
}

func (in *Interpreter) literalValue(cur *Coroutine, instr compiler.Instruction) Value {
	switch p := instr.Ptr.(type) {
	case int64:
		return Int(p)
	case float64:
		return Float(p)
	case string:
		return Str(p)
	case compiler.FuncRef:
		return FuncVal{Entry: int(p)}
	case nil:
		return Nil
	default:
		in.fatalf(cur, instr, "unsupported literal payload %T", instr.Ptr)
		return Nil
	}
}

func (in *Interpreter) doString(cur *Coroutine, instr compiler.Instruction) {
	n := instr.Offset
	base := len(cur.Stack) - n
	var b strings.Builder
	for i := base; i < len(cur.Stack); i++ {
		b.WriteString(ToString(cur.Stack[i]))
		discard(in, cur.Stack[i])
	}
	cur.Stack = cur.Stack[:base]
	cur.push(Str(b.String()))
}

func (in *Interpreter) doArray(cur *Coroutine, instr compiler.Instruction) {
	n := instr.Offset
	base := len(cur.Stack) - n
	elems := make([]Value, n)
	copy(elems, cur.Stack[base:])
	cur.Stack = cur.Stack[:base]
	cur.push(NewVec(in, elems))
}

func (in *Interpreter) doTable(cur *Coroutine, instr compiler.Instruction) {
	n := instr.Offset
	base := len(cur.Stack) - 2*n
	m := NewMap(in, n)
	for i := 0; i < n; i++ {
		k := cur.Stack[base+2*i]
		v := cur.Stack[base+2*i+1]
		m.SetKey(k, v)
	}
	cur.Stack = cur.Stack[:base]
	cur.push(m)
}

func (in *Interpreter) doAssignLit(cur *Coroutine, instr compiler.Instruction) {
	base := cur.Marks[len(cur.Marks)-1]
	idx := base + instr.Offset
	var x Value = Nil
	if idx < len(cur.Stack) {
		x = cur.Stack[idx]
	}
	name := instr.Ptr.(string)
	cur.writingScope().SetKey(Str(name), copyValue(x))
}

func (in *Interpreter) doFind(cur *Coroutine, instr compiler.Instruction) {
	nameV := cur.pop()
	name, ok := nameV.(Str)
	discard(in, nameV)
	if !ok {
		in.fatalf(cur, instr, "find requires a string name")
	}
	v, found := in.findName(cur, string(name))
	if !found {
		in.fatalf(cur, instr, "unknown name %q", string(name))
	}
	cur.push(v)
}

func (in *Interpreter) doFindLit(cur *Coroutine, instr compiler.Instruction) {
	name := instr.Ptr.(string)
	v, found := in.findName(cur, name)
	if !found {
		in.fatalf(cur, instr, "unknown name %q", name)
	}
	cur.push(v)
}

func (in *Interpreter) doGet(cur *Coroutine, instr compiler.Instruction) {
	k, m := cur.pop(), cur.pop()
	x := in.lookupMember(m, k)
	discard(in, k)
	discard(in, m)
	cur.push(copyValue(x))
}

func (in *Interpreter) doGetLit(cur *Coroutine, instr compiler.Instruction) {
	key := instr.Ptr.(string)
	m := cur.pop()
	x := in.lookupMember(m, Str(key))
	discard(in, m)
	cur.push(copyValue(x))
}

func (in *Interpreter) doSet(cur *Coroutine, instr compiler.Instruction) {
	v, k, m := cur.pop(), cur.pop(), cur.pop()
	switch c := m.(type) {
	case *Map:
		c.SetKey(k, v)
		discard(in, k)
	case *Vec:
		idx, ok := k.(Int)
		if !ok {
			in.fatalf(cur, instr, "cannot index a vec with a %s", k.Type())
		}
		c.Set(int64(idx), v)
		discard(in, k)
	default:
		in.fatalf(cur, instr, "cannot set a field on a %s", m.Type())
	}
	discard(in, m)
}

func (in *Interpreter) doInherit(cur *Coroutine, instr compiler.Instruction) {
	parent, child := cur.pop(), cur.pop()
	cm, ok1 := child.(*Map)
	pm, ok2 := parent.(*Map)
	if !ok1 || !ok2 {
		in.fatalf(cur, instr, "inherit requires two maps, got %s and %s", child.Type(), parent.Type())
	}
	cm.SetMeta(pm)
	discard(in, parent)
	discard(in, child)
}

func (in *Interpreter) doFor(cur *Coroutine, instr compiler.Instruction) {
	names := instr.Ptr.(*compiler.ForNames)
	n := len(cur.Stack)
	iterV := cur.Stack[n-2]
	counter := int64(cur.Stack[n-1].(Int))
	key, val, ok := iterateAt(iterV, counter)
	if !ok {
		cur.IP = names.End
		return
	}
	if !names.HasVal {
		if _, isVec := iterV.(*Vec); isVec {
			// single-variable `for i in vec` binds the element, not the
			// index (Lua ipairs-style index/value split only applies to
			// the two-variable form).
			key = val
		}
	}
	cur.writingScope().SetKey(Str(names.Key), copyValue(key))
	if names.HasVal {
		cur.writingScope().SetKey(Str(names.Val), copyValue(val))
	}
	cur.Stack[n-1] = Int(counter + 1)
}

func iterateAt(iterV Value, idx int64) (key, val Value, ok bool) {
	switch x := iterV.(type) {
	case *Vec:
		if idx < 0 || idx >= int64(x.Len()) {
			return Nil, Nil, false
		}
		return Int(idx), x.Get(idx), true
	case *Map:
		keys := x.Keys()
		if idx < 0 || idx >= int64(len(keys)) {
			return Nil, Nil, false
		}
		k := keys[idx]
		v, _ := x.GetLocal(k)
		return k, v, true
	default:
		return Nil, Nil, false
	}
}

func (in *Interpreter) doKeysOp(cur *Coroutine, instr compiler.Instruction) {
	m := cur.pop()
	mm, ok := m.(*Map)
	if !ok {
		in.fatalf(cur, instr, "keys requires a map, got %s", m.Type())
	}
	v := doKeys(in, mm)
	discard(in, m)
	cur.push(v)
}

func (in *Interpreter) doValuesOp(cur *Coroutine, instr compiler.Instruction) {
	m := cur.pop()
	mm, ok := m.(*Map)
	if !ok {
		in.fatalf(cur, instr, "values requires a map, got %s", m.Type())
	}
	v := doValues(in, mm)
	discard(in, m)
	cur.push(v)
}

// doCall implements CALL/CALL_LIT's shared dispatch: callee is either a
// *Wrapper (a Go-native builtin, invoked immediately against the args
// sitting above the current mark) or a FuncVal (a bytecode entry point,
// entered by pushing a call frame and jumping).
func (in *Interpreter) doCall(cur *Coroutine, callee Value, instr compiler.Instruction) {
	switch fn := callee.(type) {
	case *Wrapper:
		base := cur.Marks[len(cur.Marks)-1]
		args := append([]Value(nil), cur.Stack[base:]...)
		cur.Stack = cur.Stack[:base]
		results := fn.Fn(in, args)
		for _, a := range args {
			discard(in, a)
		}
		for _, r := range results {
			cur.push(r)
		}
	case FuncVal:
		cur.Calls = append(cur.Calls, callFrame{loopsLen: len(cur.Loops), marksLen: len(cur.Marks), ip: cur.IP})
		cur.pushScope(in)
		cur.IP = fn.Entry
	default:
		in.fatalf(cur, instr, "cannot call a %s", callee.Type())
	}
}

// doReply implements REPLY: the function's formal parameters sit at
// [mark:mark+nparams) (they were bound in place by ASSIGN_LIT, never
// popped); anything from mark+nparams onward is the pushed return value(s).
// REPLY discards the parameter slots so only the return values remain,
// positioned right at mark for the caller's own LIMIT to trim/pad.
func (in *Interpreter) doReply(cur *Coroutine, instr compiler.Instruction) {
	nparams := instr.Offset
	mark := cur.Marks[len(cur.Marks)-1]
	end := mark + nparams
	if end > len(cur.Stack) {
		end = len(cur.Stack)
	}
	for i := mark; i < end; i++ {
		discard(in, cur.Stack[i])
	}
	cur.Stack = append(cur.Stack[:mark], cur.Stack[end:]...)
}

// doReturn implements RETURN. An empty call stack means cur is executing at
// bottom level -- either the body of a coroutine entered directly via
// RESUME/COROUTINE ("a bottom-level RETURN... sets the
// coroutine's state to DEAD and yields") -- handled by doDeath. Otherwise
// it is an ordinary function return: pop the call frame, close the scope,
// verify the marks/loops invariant, and resume at the saved ip.
func (in *Interpreter) doReturn(cur *Coroutine) {
	if len(cur.Calls) == 0 {
		in.doDeath(cur)
		return
	}
	n := len(cur.Calls) - 1
	cf := cur.Calls[n]
	cur.Calls = cur.Calls[:n]
	cur.popScope(in)
	if len(cur.Marks) != cf.marksLen || len(cur.Loops) != cf.loopsLen {
		in.fatalf(cur, compiler.Instruction{Op: compiler.RETURN}, "call-frame corruption: marks/loops invariant violated on return")
	}
	cur.IP = cf.ip
}

// doBreak unwinds to exactly where the loop's own UNLOOP/LIMIT(0)-pair
// normal-exit path would land: it pops this loop's ownedMarks (the marks
// the loop itself opened -- 0 for while, the outer+inner pair for for) in
// addition to anything left open by a partially-executed statement, then
// trims the stack to whatever mark is left exposed below them.
func (in *Interpreter) doBreak(cur *Coroutine) {
	n := len(cur.Loops) - 1
	lf := cur.Loops[n]
	cur.Loops = cur.Loops[:n]
	popTo := lf.marksLen - lf.ownedMarks
	if popTo < 0 {
		popTo = 0
	}
	cur.Marks = cur.Marks[:popTo]
	base := 0
	if len(cur.Marks) > 0 {
		base = cur.Marks[len(cur.Marks)-1]
	}
	in.trimStackTo(cur, base)
	cur.IP = lf.breakIP
}

func (in *Interpreter) doContinue(cur *Coroutine) {
	lf := cur.Loops[len(cur.Loops)-1]
	cur.Marks = cur.Marks[:lf.marksLen]
	base := 0
	if len(cur.Marks) > 0 {
		base = cur.Marks[len(cur.Marks)-1]
	}
	in.trimStackTo(cur, base)
	cur.IP = lf.continueIP
}

// doCoroutine implements COROUTINE: pops a function value (pushed by the
// sole argument to coroutine(...), a function literal or any other
// function value) and
// allocates a new suspended Coroutine pointing at its entry.
func (in *Interpreter) doCoroutine(cur *Coroutine, instr compiler.Instruction) {
	entryV := cur.pop()
	fn, ok := entryV.(FuncVal)
	if !ok {
		in.fatalf(cur, instr, "coroutine() requires a function argument, got %s", entryV.Type())
	}
	cor := NewCoroutine(in, fn.Entry)
	cor.Marks = []int{0}
	cor.pushScope(in)
	cur.push(cor)
}

// doResume implements RESUME: the arguments above the current
// mark are (coroutine, args...). Resuming a dead coroutine pushes
// (false, "cannot resume dead coroutine") immediately; otherwise the
// arguments move onto the callee's own stack and it becomes the scheduler's
// new top, so the results this RESUME "returns" only actually land once the
// callee yields or dies -- handled by doYield/doDeath appending onto
// whichever coroutine is parent at that time.
func (in *Interpreter) doResume(cur *Coroutine, instr compiler.Instruction) {
	base := cur.Marks[len(cur.Marks)-1]
	items := append([]Value(nil), cur.Stack[base:]...)
	cur.Stack = cur.Stack[:base]
	if len(items) == 0 {
		in.fatalf(cur, instr, "resume() requires a coroutine argument")
	}
	corV, args := items[0], items[1:]
	cor, ok := corV.(*Coroutine)
	if !ok {
		in.fatalf(cur, instr, "resume() requires a coroutine argument, got %s", corV.Type())
	}
	if cor.State == Dead {
		discard(in, corV)
		for _, a := range args {
			discard(in, a)
		}
		cur.push(Bool(false))
		cur.push(Str("cannot resume dead coroutine"))
		return
	}
	if cor.State == Running {
		in.fatalf(cur, instr, "cannot resume a running coroutine")
	}
	discard(in, corV)
	cor.Stack = append(cor.Stack, args...)
	cor.State = Running
	in.coroutines = append(in.coroutines, cor)
}

// doYield implements YIELD: the values above the current mark move onto
// the parent's stack (the coroutine now below cur on the scheduler), cur is
// marked Suspended and popped off the scheduler, and execution continues
// with the parent. If cur has no parent (the root coroutine called yield
// directly), the scheduler empties and the program ends Open
// Question on a root yield.
func (in *Interpreter) doYield(cur *Coroutine) {
	base := cur.Marks[len(cur.Marks)-1]
	vals := append([]Value(nil), cur.Stack[base:]...)
	cur.Stack = cur.Stack[:base]
	cur.State = Suspended
	in.coroutines = in.coroutines[:len(in.coroutines)-1]
	if len(in.coroutines) == 0 {
		for _, v := range vals {
			discard(in, v)
		}
		return
	}
	parent := in.coroutines[len(in.coroutines)-1]
	parent.Stack = append(parent.Stack, vals...)
}

// doDeath is the bottom-level RETURN path: cur's remaining stack (its
// explicit return values, if any) moves onto its parent's stack and cur is
// marked Dead and dropped from the scheduler.
func (in *Interpreter) doDeath(cur *Coroutine) {
	mark := 0
	if len(cur.Marks) > 0 {
		mark = cur.Marks[len(cur.Marks)-1]
	}
	vals := append([]Value(nil), cur.Stack[mark:]...)
	cur.Stack = cur.Stack[:mark]
	cur.State = Dead
	in.coroutines = in.coroutines[:len(in.coroutines)-1]
	if len(in.coroutines) == 0 {
		for _, v := range vals {
			discard(in, v)
		}
		return
	}
	parent := in.coroutines[len(in.coroutines)-1]
	parent.Stack = append(parent.Stack, vals...)
}

func (in *Interpreter) binArith(cur *Coroutine, instr compiler.Instruction, fn func(x, y Value) (Value, error)) {
	y, x := cur.pop(), cur.pop()
	r, err := fn(x, y)
	if err != nil {
		in.fatalf(cur, instr, "%s", err)
	}
	discard(in, x)
	discard(in, y)
	cur.push(r)
}

func (in *Interpreter) binCompare(cur *Coroutine, instr compiler.Instruction, pass func(c int) bool) {
	y, x := cur.pop(), cur.pop()
	c, err := Compare(x, y)
	if err != nil {
		in.fatalf(cur, instr, "%s", err)
	}
	discard(in, x)
	discard(in, y)
	cur.push(Bool(pass(c)))
}

func (in *Interpreter) doMatch(cur *Coroutine, instr compiler.Instruction) {
	patV, subjV := cur.pop(), cur.pop()
	pat, ok1 := patV.(Str)
	subj, ok2 := subjV.(Str)
	if !ok1 || !ok2 {
		in.fatalf(cur, instr, "match requires two strings")
	}
	results := matchResults(string(subj), string(pat))
	discard(in, patV)
	discard(in, subjV)
	for _, r := range results {
		cur.push(r)
	}
}

func (in *Interpreter) doPrintOp(cur *Coroutine, instr compiler.Instruction) {
	base := cur.Marks[len(cur.Marks)-1]
	vals := cur.Stack[base:]
	doPrint(in, vals)
	for _, v := range vals {
		discard(in, v)
	}
	cur.Stack = cur.Stack[:base]
}
