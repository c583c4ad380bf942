package machine

import (
	"context"
	"io"

	"github.com/corvid-lang/corvid/lang/ast"
	"github.com/corvid-lang/corvid/lang/compiler"
	"github.com/corvid-lang/corvid/lang/parser"
)

// Interpreter is the machine's shared state: the global scope, the core
// (builtin) scope, the per-kind prototype maps member lookup falls back to
// ("super_map"), the memory Budget, where PRINT writes, and the scheduler
// (LIFO coroutine stack). One struct threads this global state through the
// whole run instead of package-level globals (DESIGN.md Open Question 2).
type Interpreter struct {
	Global *Map
	Core   *Map

	protoStr   *Map
	protoInt   *Map
	protoFloat *Map
	protoBool  *Map
	protoVec   *Map
	protoMap   *Map
	protoCor   *Map

	budget *Budget
	Stdout io.Writer

	prog       *compiler.Program
	coroutines []*Coroutine
}

// New allocates an Interpreter with a memory budget of limitBytes (the
// CLI's -m/--memory flag) and output directed at stdout.
func New(limitBytes int64, stdout io.Writer) *Interpreter {
	in := &Interpreter{budget: NewBudget(limitBytes), Stdout: stdout}
	in.Global = NewMap(in, 32)
	in.Core = newCoreScope(in)
	in.protoStr = NewMap(in, 4)
	in.protoInt = NewMap(in, 4)
	in.protoFloat = NewMap(in, 4)
	in.protoBool = NewMap(in, 4)
	in.protoVec = NewMap(in, 4)
	in.protoMap = NewMap(in, 4)
	in.protoCor = NewMap(in, 4)
	return in
}

// Compile parses src and lowers it to a Program/4.3.
func Compile(filename string, src []byte) (*compiler.Program, error) {
	block, err := parser.Parse(filename, src)
	if err != nil {
		return nil, err
	}
	return compiler.Compile(block)
}

// ParseBlock exposes the parser to callers (tests, tooling) that want the
// tree without compiling it.
func ParseBlock(filename string, src []byte) (ast.Block, error) {
	return parser.Parse(filename, src)
}

// Run executes prog to completion: it creates the root coroutine, pushes
// its initial mark, drives the scheduler until it empties, and then
// releases the root coroutine along with its scope.
// Returns the *FatalError recovered from a VM protocol violation, or the
// context's error if ctx is canceled mid-run, or nil.
func (in *Interpreter) Run(ctx context.Context, prog *compiler.Program) (err error) {
	in.prog = prog
	root := NewCoroutine(in, 0)
	root.Marks = []int{0}
	root.pushScope(in)
	in.coroutines = []*Coroutine{root}

	defer func() {
		if r := recover(); r != nil {
			if fe, ok := r.(*FatalError); ok {
				err = fe
				return
			}
			panic(r)
		}
	}()

	if err := in.loop(ctx); err != nil {
		return err
	}
	root.Decref(in)
	return nil
}

// loop is the single flat dispatch loop every coroutine shares: only the
// top of the scheduler stack ever executes, and switching which coroutine
// is "current" is nothing more than a slice index.
func (in *Interpreter) loop(ctx context.Context) error {
	steps := 0
	for len(in.coroutines) > 0 {
		steps++
		if steps%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		cur := in.coroutines[len(in.coroutines)-1]
		if cur.IP >= len(in.prog.Code) {
			in.finishRoot(cur)
			continue
		}
		instr := in.prog.Code[cur.IP]
		cur.IP++
		in.exec(cur, instr)
	}
	return nil
}

// finishRoot handles the root coroutine running off the end of the
// top-level block (it never executes an explicit RETURN, since the
// top-level block is not wrapped in a function).
func (in *Interpreter) finishRoot(cur *Coroutine) {
	cur.State = Dead
	in.coroutines = in.coroutines[:len(in.coroutines)-1]
}

// findName implements lookup order: reading scope, then global,
// then core. Returns (Nil, false) when nothing binds name.
func (in *Interpreter) findName(cur *Coroutine, name string) (Value, bool) {
	if rs := cur.readingScope(); rs != nil {
		if v, ok := rs.Get(Str(name)); ok {
			return copyValue(v), true
		}
	}
	if v, ok := in.Global.Get(Str(name)); ok {
		return copyValue(v), true
	}
	if v, ok := in.Core.Get(Str(name)); ok {
		return copyValue(v), true
	}
	return Nil, false
}

// Budget exposes the interpreter's memory accounting (status()'s backing
// store, and the hook property-test #1 uses to confirm refcount balance:
// every Kind's Live count should return to zero once a run completes).
func (in *Interpreter) Budget() *Budget { return in.budget }

// protoFor returns the per-kind super-map GET/GET_LIT fall back to once a
// map's own meta chain is exhausted.
func (in *Interpreter) protoFor(v Value) *Map {
	switch v.(type) {
	case Str:
		return in.protoStr
	case Int:
		return in.protoInt
	case Float:
		return in.protoFloat
	case Bool:
		return in.protoBool
	case *Vec:
		return in.protoVec
	case *Map:
		return in.protoMap
	case *Coroutine:
		return in.protoCor
	default:
		return nil
	}
}

// lookupMember resolves m[k]: the container's own entries (and
// for maps, its meta chain), then the per-kind super-map.
func (in *Interpreter) lookupMember(m, k Value) Value {
	switch x := m.(type) {
	case *Map:
		if v, ok := x.Get(k); ok {
			return v
		}
	case *Vec:
		if idx, ok := k.(Int); ok {
			if v := x.Get(int64(idx)); v != Nil {
				return v
			}
		}
	}
	if proto := in.protoFor(m); proto != nil {
		if v, ok := proto.Get(k); ok {
			return v
		}
	}
	return Nil
}
