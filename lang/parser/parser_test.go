package parser

import (
	"testing"

	"github.com/corvid-lang/corvid/lang/ast"
	"github.com/corvid-lang/corvid/lang/token"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, src string) ast.Block {
	t.Helper()
	block, err := Parse("test.src", []byte(src))
	require.NoError(t, err)
	return block
}

func exprOf(t *testing.T, block ast.Block) ast.Node {
	t.Helper()
	require.Len(t, block, 1)
	m, ok := block[0].(*ast.Multi)
	require.True(t, ok)
	require.Nil(t, m.Targets)
	require.Len(t, m.Values, 1)
	return m.Values[0]
}

func TestPrecedenceClimbing(t *testing.T) {
	expr := exprOf(t, mustParse(t, "1 + 2 * 3"))
	op, ok := expr.(*ast.OpExpr)
	require.True(t, ok)
	require.Equal(t, token.PLUS, op.Op)
	right, ok := op.Y.(*ast.OpExpr)
	require.True(t, ok)
	require.Equal(t, token.STAR, right.Op)
}

func TestConcatLowerThanAdditive(t *testing.T) {
	expr := exprOf(t, mustParse(t, `"a" .. 1 + 2`))
	op := expr.(*ast.OpExpr)
	require.Equal(t, token.CONCAT, op.Op)
	_, ok := op.Y.(*ast.OpExpr)
	require.True(t, ok)
}

func TestLogicalOpsLowestPrecedence(t *testing.T) {
	expr := exprOf(t, mustParse(t, "a == b and c or d"))
	top, ok := expr.(*ast.LogicalExpr)
	require.True(t, ok)
	require.Equal(t, token.OR, top.Op)
	left, ok := top.X.(*ast.LogicalExpr)
	require.True(t, ok)
	require.Equal(t, token.AND, left.Op)
}

func TestUnaryMinusFoldsIntoLiteral(t *testing.T) {
	expr := exprOf(t, mustParse(t, "-5"))
	lit, ok := expr.(*ast.Literal)
	require.True(t, ok)
	require.Equal(t, ast.LitInt, lit.Kind)
	require.Equal(t, int64(-5), lit.Int)
}

func TestUnaryMinusOnExprNotFolded(t *testing.T) {
	expr := exprOf(t, mustParse(t, "-x"))
	op, ok := expr.(*ast.OpExpr)
	require.True(t, ok)
	require.Equal(t, token.MINUS, op.Op)
	require.Nil(t, op.Y)
}

func TestChainedAccess(t *testing.T) {
	expr := exprOf(t, mustParse(t, "a.b[0].c"))
	v, ok := expr.(*ast.Variable)
	require.True(t, ok)
	require.Equal(t, "a", v.Name)
	require.Len(t, v.Chain, 3)
	require.Equal(t, "b", v.Chain[0].Field)
	require.NotNil(t, v.Chain[1].Index)
	require.Equal(t, "c", v.Chain[2].Field)
}

func TestCallExpr(t *testing.T) {
	expr := exprOf(t, mustParse(t, "f(1, 2)"))
	call, ok := expr.(*ast.Call)
	require.True(t, ok)
	callee, ok := call.Callee.(*ast.Variable)
	require.True(t, ok)
	require.Equal(t, "f", callee.Name)
	require.Len(t, call.Args.Values, 2)
}

func TestMethodCallExpr(t *testing.T) {
	expr := exprOf(t, mustParse(t, "obj:run(1)"))
	mc, ok := expr.(*ast.MethodCall)
	require.True(t, ok)
	require.Equal(t, "run", mc.Method)
	require.Len(t, mc.Args.Values, 1)
	recv, ok := mc.Receiver.(*ast.Variable)
	require.True(t, ok)
	require.Equal(t, "obj", recv.Name)
}

func TestCallThenFieldAccess(t *testing.T) {
	expr := exprOf(t, mustParse(t, "f().x"))
	v, ok := expr.(*ast.Variable)
	require.True(t, ok)
	require.NotNil(t, v.Root)
	require.Len(t, v.Chain, 1)
	require.Equal(t, "x", v.Chain[0].Field)
	_, ok = v.Root.(*ast.Call)
	require.True(t, ok)
}

func TestAssignmentStatement(t *testing.T) {
	block := mustParse(t, "x = 1")
	require.Len(t, block, 1)
	m, ok := block[0].(*ast.Multi)
	require.True(t, ok)
	require.Len(t, m.Targets, 1)
	require.Len(t, m.Values, 1)
}

func TestMultiAssignment(t *testing.T) {
	block := mustParse(t, "a, b = 1, 2")
	m := block[0].(*ast.Multi)
	require.Len(t, m.Targets, 2)
	require.Len(t, m.Values, 2)
}

func TestIfExpr(t *testing.T) {
	block := mustParse(t, "if x then y = 1 else y = 2 end")
	require.Len(t, block, 1)
	ifExpr, ok := block[0].(*ast.IfExpr)
	require.True(t, ok)
	require.Len(t, ifExpr.Then, 1)
	require.Len(t, ifExpr.Else, 1)
}

func TestWhileExpr(t *testing.T) {
	block := mustParse(t, "while x do y = 1 end")
	w, ok := block[0].(*ast.WhileExpr)
	require.True(t, ok)
	require.Len(t, w.Body, 1)
}

func TestForExprSingleVar(t *testing.T) {
	block := mustParse(t, "for k in t do print(k) end")
	f, ok := block[0].(*ast.ForExpr)
	require.True(t, ok)
	require.Equal(t, "k", f.Key)
	require.False(t, f.HasVal)
}

func TestForExprKeyVal(t *testing.T) {
	block := mustParse(t, "for k, v in t do print(k, v) end")
	f, ok := block[0].(*ast.ForExpr)
	require.True(t, ok)
	require.Equal(t, "k", f.Key)
	require.Equal(t, "v", f.Val)
	require.True(t, f.HasVal)
}

func TestFunctionStatement(t *testing.T) {
	block := mustParse(t, "function add(a, b) return a + b end")
	fn, ok := block[0].(*ast.FunctionExpr)
	require.True(t, ok)
	require.Equal(t, "add", fn.Name)
	require.Equal(t, []string{"a", "b"}, fn.Params)
	require.Len(t, fn.Body, 1)
}

func TestAnonymousFunctionExpr(t *testing.T) {
	expr := exprOf(t, mustParse(t, "function(x) return x end"))
	fn, ok := expr.(*ast.FunctionExpr)
	require.True(t, ok)
	require.Empty(t, fn.Name)
}

func TestBreakContinue(t *testing.T) {
	block := mustParse(t, "while true do break end")
	w := block[0].(*ast.WhileExpr)
	_, ok := w.Body[0].(*ast.BreakExpr)
	require.True(t, ok)

	block = mustParse(t, "while true do continue end")
	w = block[0].(*ast.WhileExpr)
	_, ok = w.Body[0].(*ast.ContinueExpr)
	require.True(t, ok)
}

func TestVecLiteral(t *testing.T) {
	expr := exprOf(t, mustParse(t, "[1, 2, 3,]"))
	v, ok := expr.(*ast.VecExpr)
	require.True(t, ok)
	require.Len(t, v.Elems, 3)
}

func TestMapLiteralBareAndBracketedKeys(t *testing.T) {
	expr := exprOf(t, mustParse(t, `{x = 1, [y] = 2,}`))
	m, ok := expr.(*ast.MapExpr)
	require.True(t, ok)
	require.Len(t, m.Keys, 2)
	lit, ok := m.Keys[0].(*ast.Literal)
	require.True(t, ok)
	require.Equal(t, "x", lit.Str)
	_, ok = m.Keys[1].(*ast.Variable)
	require.True(t, ok)
}

func TestGroupSingleIsPlain(t *testing.T) {
	expr := exprOf(t, mustParse(t, "(1 + 2) * 3"))
	op, ok := expr.(*ast.OpExpr)
	require.True(t, ok)
	require.Equal(t, token.STAR, op.Op)
	_, ok = op.X.(*ast.OpExpr)
	require.True(t, ok)
}

func TestGroupMultiIsMulti(t *testing.T) {
	expr := exprOf(t, mustParse(t, "(1, 2)"))
	m, ok := expr.(*ast.Multi)
	require.True(t, ok)
	require.Len(t, m.Values, 2)
}

func TestScopeRefs(t *testing.T) {
	expr := exprOf(t, mustParse(t, "global"))
	ref, ok := expr.(*ast.ScopeRef)
	require.True(t, ok)
	require.True(t, ref.Global)

	expr = exprOf(t, mustParse(t, "local"))
	ref, ok = expr.(*ast.ScopeRef)
	require.True(t, ok)
	require.False(t, ref.Global)
}

func TestBuiltinKeywordForms(t *testing.T) {
	expr := exprOf(t, mustParse(t, "coroutine(f)"))
	b, ok := expr.(*ast.BuiltinExpr)
	require.True(t, ok)
	require.Equal(t, ast.BuiltinCoroutine, b.Kind)

	expr = exprOf(t, mustParse(t, "resume(c)"))
	b = expr.(*ast.BuiltinExpr)
	require.Equal(t, ast.BuiltinResume, b.Kind)

	expr = exprOf(t, mustParse(t, "yield(1)"))
	b = expr.(*ast.BuiltinExpr)
	require.Equal(t, ast.BuiltinYield, b.Kind)
}

func TestStringInterpolationBuildsConcatChain(t *testing.T) {
	expr := exprOf(t, mustParse(t, `"hello $name!"`))
	op, ok := expr.(*ast.OpExpr)
	require.True(t, ok)
	require.Equal(t, token.CONCAT, op.Op)
	inner, ok := op.X.(*ast.OpExpr)
	require.True(t, ok)
	require.Equal(t, token.CONCAT, inner.Op)
	left, ok := inner.X.(*ast.Literal)
	require.True(t, ok)
	require.Equal(t, "hello ", left.Str)
	mid, ok := inner.Y.(*ast.Variable)
	require.True(t, ok)
	require.Equal(t, "name", mid.Name)
}

func TestStringInterpolationBraceExpr(t *testing.T) {
	expr := exprOf(t, mustParse(t, `"sum=${1+2}"`))
	op, ok := expr.(*ast.OpExpr)
	require.True(t, ok)
	_, ok = op.Y.(*ast.OpExpr)
	require.True(t, ok)
}

func TestPlainStringNoInterpolation(t *testing.T) {
	expr := exprOf(t, mustParse(t, `"plain"`))
	lit, ok := expr.(*ast.Literal)
	require.True(t, ok)
	require.Equal(t, "plain", lit.Str)
}

func TestReturnNoValues(t *testing.T) {
	block := mustParse(t, "function f() return end")
	fn := block[0].(*ast.FunctionExpr)
	ret, ok := fn.Body[0].(*ast.ReturnExpr)
	require.True(t, ok)
	require.Empty(t, ret.Values.Values)
}

func TestSyntaxErrorAborts(t *testing.T) {
	_, err := Parse("t", []byte("if x then"))
	require.Error(t, err)
	var synErr *SyntaxError
	require.ErrorAs(t, err, &synErr)
}
