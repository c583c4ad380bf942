package machine

import "fmt"

// FuncVal is the runtime value a LIT instruction carrying a
// compiler.FuncRef produces: a callable bytecode entry point. Kept
// distinct from Int so CALL can tell a function value from an ordinary
// integer someone tries to call.
type FuncVal struct {
	Entry int
}

func (f FuncVal) String() string { return fmt.Sprintf("function(%d)", f.Entry) }
func (FuncVal) Type() string     { return "function" }

// Wrapper is a builtin implemented in Go rather than bytecode (print,
// count, concat, keys, values, inherit, status, match; reachable as
// ordinary core-scope names). CALL/CALL_LIT dispatch to it the same way
// they dispatch to a FuncVal, just without pushing a call frame or
// jumping.
type Wrapper struct {
	Name string
	Fn   func(in *Interpreter, args []Value) []Value
}

func (w *Wrapper) String() string { return "builtin(" + w.Name + ")" }
func (*Wrapper) Type() string     { return "builtin" }
