package machine

import (
	"fmt"
	"strings"

	"github.com/corvid-lang/corvid/lang/compiler"
)

// FatalError is every VM protocol violation treated as fatal: unknown
// name, type error in an arithmetic/compare opcode, arena exhaustion,
// invalid opcode operand, or call-frame (marks/loops) corruption on
// RETURN. It carries a trace of the last executed instruction plus the
// saved call chain; internal/maincmd renders this and maps it to a
// non-zero exit code. There is no user-visible exception mechanism.
type FatalError struct {
	Msg   string
	Instr compiler.Instruction
	IP    int
	Calls []int // saved ip of each active call frame, outermost first
}

func (e *FatalError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "fatal: %s (at ip=%d: %s)", e.Msg, e.IP, e.Instr)
	if len(e.Calls) > 0 {
		b.WriteString("\ncall chain:")
		for _, ip := range e.Calls {
			fmt.Fprintf(&b, "\n  ip=%d", ip)
		}
	}
	return b.String()
}

func (in *Interpreter) fatalf(cur *Coroutine, instr compiler.Instruction, format string, args ...interface{}) {
	calls := make([]int, len(cur.Calls))
	for i, cf := range cur.Calls {
		calls[i] = cf.ip
	}
	panic(&FatalError{
		Msg:   fmt.Sprintf(format, args...),
		Instr: instr,
		IP:    cur.IP,
		Calls: calls,
	})
}

// fatalSimple is used by builtins (builtins.go) that have no Coroutine/
// Instruction context handy: still a *FatalError, just without the trace
// detail fatalf attaches.
func (in *Interpreter) fatalSimple(msg string) {
	panic(&FatalError{Msg: msg})
}

// mustAlloc records the creation of one value of kind k, panicking with a
// FatalError (arena exhaustion is fatal) if doing so would exceed the
// configured Budget.
func (in *Interpreter) mustAlloc(k Kind, n int64) {
	if in == nil || in.budget == nil {
		return
	}
	if err := in.budget.Alloc(k, n); err != nil {
		panic(&FatalError{Msg: err.Error()})
	}
}
