// Package compiler lowers an expression tree (package ast) into a flat
// Program of Instructions, applying the peephole fusion rules at emission
// time. It has no dependency on package machine: literal payloads and name
// operands travel as interface{} (nil, bool, int64, float64, string, or the
// package-local FuncRef marker), and it is package machine's job to
// interpret them when it runs the Program.
package compiler

import (
	"fmt"

	"github.com/corvid-lang/corvid/lang/ast"
)

// FuncRef is the Ptr payload of a LIT instruction that pushes a function
// value, distinguishing a callable entry address from a plain integer.
type FuncRef int

// LoopTargets is the Ptr payload of a LOOP instruction: both jump targets
// are known once the loop body has been compiled, so the compiler patches
// them into the struct in place rather than threading a second Instruction
// operand through Patch.
type LoopTargets struct {
	Continue int
	Break    int

	// OwnedMarks is how many MARKs were already open when LOOP executed
	// that belong to the loop itself (not an enclosing frame) and must be
	// popped by BREAK in addition to whatever CONTINUE/fallthrough already
	// trims: 0 for while (no marks precede its LOOP), 2 for for (the outer
	// iter/counter mark plus the inner per-iteration mark).
	OwnedMarks int
}

// ForNames is the Ptr payload of a FOR instruction.
type ForNames struct {
	Key    string
	Val    string
	HasVal bool
	End    int
}

// CompileError reports a problem found while lowering the tree (a
// construct the parser accepted but the compiler cannot place, such as an
// assignment target that is not a name or chained access).
type CompileError struct {
	Msg string
}

func (e *CompileError) Error() string { return e.Msg }

// Compile lowers a parsed block into a Program.
func Compile(block ast.Block) (prog *Program, err error) {
	c := &compiler{prog: &Program{}}
	defer func() {
		if r := recover(); r != nil {
			if ce, ok := r.(*CompileError); ok {
				err = ce
				return
			}
			panic(r)
		}
	}()
	c.block(block)
	return c.prog, nil
}

type funcCtx struct {
	returnJumps []int
}

type compiler struct {
	prog      *Program
	funcs     []*funcCtx
	loopDepth int
}

func (c *compiler) fail(format string, args ...interface{}) {
	panic(&CompileError{Msg: fmt.Sprintf(format, args...)})
}

func (c *compiler) curFunc() *funcCtx {
	if len(c.funcs) == 0 {
		c.fail("return outside of a function")
	}
	return c.funcs[len(c.funcs)-1]
}
