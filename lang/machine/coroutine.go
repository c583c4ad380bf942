package machine

import (
	"fmt"

	"github.com/google/uuid"
)

// CorState is the state a Coroutine is in/4.5.
type CorState int

const (
	Suspended CorState = iota
	Running
	Dead
)

func (s CorState) String() string {
	switch s {
	case Suspended:
		return "suspended"
	case Running:
		return "running"
	case Dead:
		return "dead"
	default:
		return "?"
	}
}

// Coroutine owns its own stacks and scope stack and its own instruction
// pointer: the stack/other/selves/scopes vectors plus the calls/loops/marks
// integer stacks, alongside the COROUTINE/RESUME/YIELD opcode handlers in
// vm.go.
type Coroutine struct {
	ID uuid.UUID // identity shown by String()

	Stack  []Value // operand stack
	Other  []Value // SHUNT/SHIFT side stack
	Selves []Value // method-call receiver stack
	Scopes []*Map  // lexical scope stack

	Calls []callFrame // (loops.len, marks.len, ip) per active call
	Loops []loopFrame // active loop anchors
	Marks []int       // active MARK depths

	IP    int
	State CorState

	refs int32
}

// callFrame is what CALL pushes and RETURN pops.
type callFrame struct {
	loopsLen int
	marksLen int
	ip       int
}

// loopFrame is a LOOP anchor: both jump targets, the marks depth at the
// time the loop was entered, and how many marks the loop itself owns, so
// BREAK/CONTINUE can unwind cleanly.
type loopFrame struct {
	continueIP int
	breakIP    int
	marksLen   int
	ownedMarks int
}

func (c *Coroutine) String() string { return fmt.Sprintf("cor(%s)", c.ID) }
func (c *Coroutine) Type() string   { return "cor" }

// NewCoroutine allocates a new suspended coroutine whose instruction
// pointer starts at entry (COROUTINE opcode).
func NewCoroutine(in *Interpreter, entry int) *Coroutine {
	if in != nil {
		in.mustAlloc(KindCor, 1)
	}
	return &Coroutine{ID: uuid.New(), IP: entry, State: Suspended, refs: 1}
}

// Incref bumps the reference count.
func (c *Coroutine) Incref() { c.refs++ }

// Decref drops one reference, releasing every value still owned by the
// coroutine's stacks and scopes when it reaches zero.
func (c *Coroutine) Decref(in *Interpreter) {
	c.refs--
	if c.refs > 0 {
		return
	}
	for _, v := range c.Stack {
		discard(in, v)
	}
	for _, v := range c.Other {
		discard(in, v)
	}
	for _, v := range c.Selves {
		discard(in, v)
	}
	for _, s := range c.Scopes {
		s.Decref(in)
	}
	if in != nil {
		in.budget.Free(KindCor, 1)
	}
}

// pushScope opens a fresh lexical scope (writing scope).
func (c *Coroutine) pushScope(in *Interpreter) {
	c.Scopes = append(c.Scopes, NewMap(in, 8))
}

// popScope closes the topmost scope.
func (c *Coroutine) popScope(in *Interpreter) {
	n := len(c.Scopes) - 1
	s := c.Scopes[n]
	c.Scopes = c.Scopes[:n]
	s.Decref(in)
}

// writingScope is always the topmost scope.
func (c *Coroutine) writingScope() *Map { return c.Scopes[len(c.Scopes)-1] }

// readingScope is the nearest non-smudged scope from the top.
func (c *Coroutine) readingScope() *Map {
	for i := len(c.Scopes) - 1; i >= 0; i-- {
		if !c.Scopes[i].Smudged() {
			return c.Scopes[i]
		}
	}
	return nil
}

func (c *Coroutine) push(v Value)  { c.Stack = append(c.Stack, v) }
func (c *Coroutine) pop() Value {
	n := len(c.Stack) - 1
	v := c.Stack[n]
	c.Stack = c.Stack[:n]
	return v
}
func (c *Coroutine) top() Value { return c.Stack[len(c.Stack)-1] }
func (c *Coroutine) depth() int { return len(c.Stack) }
