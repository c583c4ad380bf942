package compiler

import (
	"testing"

	"github.com/corvid-lang/corvid/lang/parser"
	"github.com/stretchr/testify/require"
)

func mustCompile(t *testing.T, src string) *Program {
	t.Helper()
	block, err := parser.Parse("t", []byte(src))
	require.NoError(t, err)
	prog, err := Compile(block)
	require.NoError(t, err)
	return prog
}

func ops(prog *Program) []Opcode {
	out := make([]Opcode, len(prog.Code))
	for i, instr := range prog.Code {
		out[i] = instr.Op
	}
	return out
}

func TestPeepholeFindLit(t *testing.T) {
	prog := mustCompile(t, "x")
	require.Contains(t, ops(prog), FIND_LIT)
	for _, op := range ops(prog) {
		require.NotEqual(t, LIT, op, "LIT should have fused into FIND_LIT")
	}
}

func TestPeepholeCallLit(t *testing.T) {
	prog := mustCompile(t, "f()")
	require.Contains(t, ops(prog), CALL_LIT)
}

func TestPeepholeGetLit(t *testing.T) {
	prog := mustCompile(t, "a.b")
	require.Contains(t, ops(prog), GET_LIT)
}

func TestPeepholeAddLit(t *testing.T) {
	prog := mustCompile(t, "x + 1")
	require.Contains(t, ops(prog), ADD_LIT)
}

func TestPeepholeLtLit(t *testing.T) {
	prog := mustCompile(t, "x < 1")
	require.Contains(t, ops(prog), LT_LIT)
}

func TestMarkLimitBalance(t *testing.T) {
	prog := mustCompile(t, "x = 1 + 2")
	marks, limits := 0, 0
	for _, instr := range prog.Code {
		switch instr.Op {
		case MARK:
			marks++
		case LIMIT:
			limits++
		}
	}
	require.Equal(t, marks, limits)
}

func TestAssignmentEmitsAssignLit(t *testing.T) {
	prog := mustCompile(t, "x = 1")
	require.Contains(t, ops(prog), ASSIGN_LIT)
}

func TestIfLowering(t *testing.T) {
	prog := mustCompile(t, "if x then y = 1 else y = 2 end")
	want := []Opcode{JFALSE, DROP}
	seq := ops(prog)
	found := false
	for i := 0; i+1 < len(seq); i++ {
		if seq[i] == want[0] && seq[i+1] == want[1] {
			found = true
			break
		}
	}
	require.True(t, found)
}

func TestWhileLoweringEmitsLoopUnloop(t *testing.T) {
	prog := mustCompile(t, "while x do y = 1 end")
	seq := ops(prog)
	require.Contains(t, seq, LOOP)
	require.Contains(t, seq, UNLOOP)
}

func TestForLoweringEmitsForOpcode(t *testing.T) {
	prog := mustCompile(t, "for k, v in t do end")
	require.Contains(t, ops(prog), FOR)
}

func TestFunctionLoweringEmitsReplyReturn(t *testing.T) {
	prog := mustCompile(t, "function f(x) return x end")
	seq := ops(prog)
	require.Contains(t, seq, REPLY)
	require.Contains(t, seq, RETURN)
}

func TestBreakOutsideLoopIsCompileError(t *testing.T) {
	block, err := parser.Parse("t", []byte("break"))
	require.NoError(t, err)
	_, err = Compile(block)
	require.Error(t, err)
}

func TestStringInterpolationUsesStringOpcodeForLongChains(t *testing.T) {
	prog := mustCompile(t, `"a$b$c"`)
	require.Contains(t, ops(prog), STRING)
}

func TestCoroutineBuiltinEmitsDedicatedOpcode(t *testing.T) {
	prog := mustCompile(t, "coroutine(f)")
	require.Contains(t, ops(prog), COROUTINE)
}

func TestMethodCallEmitsSelfPushDrop(t *testing.T) {
	prog := mustCompile(t, "obj:run()")
	seq := ops(prog)
	require.Contains(t, seq, SELF_PUSH)
	require.Contains(t, seq, SELF_DROP)
}

func TestVecLiteralEmitsArray(t *testing.T) {
	prog := mustCompile(t, "[1,2,3]")
	require.Contains(t, ops(prog), ARRAY)
}

func TestBareKeyMapLiteralUsesLitscope(t *testing.T) {
	prog := mustCompile(t, "{a=1, b=2}")
	seq := ops(prog)
	require.Contains(t, seq, LITSCOPE)
	require.NotContains(t, seq, TABLE)
}

func TestDynamicKeyMapLiteralUsesTable(t *testing.T) {
	prog := mustCompile(t, "{[k]=1}")
	require.Contains(t, ops(prog), TABLE)
}
