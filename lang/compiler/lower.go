package compiler

import (
	"github.com/corvid-lang/corvid/lang/ast"
	"github.com/corvid-lang/corvid/lang/token"
)

// block lowers a sequence of statements. Each statement's results are
// discarded at this level ("the compiler uses RESULTS_DISCARD").
func (c *compiler) block(b ast.Block) {
	for _, n := range b {
		c.statement(n)
	}
}

func (c *compiler) statement(n ast.Node) {
	switch v := n.(type) {
	case *ast.Multi:
		c.statementMulti(v)
	case *ast.IfExpr:
		c.ifExpr(v)
	case *ast.WhileExpr:
		c.whileExpr(v)
	case *ast.ForExpr:
		c.forExpr(v)
	case *ast.FunctionExpr:
		c.functionExpr(v)
		c.prog.Emit(DROP, 0, nil)
	case *ast.ReturnExpr:
		c.returnExpr(v)
	case *ast.BreakExpr:
		if c.loopDepth == 0 {
			c.fail("break outside of a loop")
		}
		c.prog.Emit(BREAK, 0, nil)
	case *ast.ContinueExpr:
		if c.loopDepth == 0 {
			c.fail("continue outside of a loop")
		}
		c.prog.Emit(CONTINUE, 0, nil)
	default:
		c.fail("unsupported statement node %T", n)
	}
}

// statementMulti lowers a bare expression-list statement or an assignment.
func (c *compiler) statementMulti(m *ast.Multi) {
	if m.Targets != nil {
		c.assignMulti(m)
		return
	}
	c.prog.Emit(MARK, 0, nil)
	for _, v := range m.Values {
		c.value(v)
	}
	c.prog.Emit(LIMIT, 0, nil)
}

// assignMulti lowers `t1, t2, ... = v1, v2, ...`. When every target is a
// bare name, it follows literal example (MARK, values,
// ASSIGN_LIT*, LIMIT) since ASSIGN_LIT reads its value from the frame by
// position rather than popping, so target order doesn't matter. A target
// with chained/indexed access instead resolves its container and key and
// performs a SET, one target at a time.
func (c *compiler) assignMulti(m *ast.Multi) {
	allBare := true
	for _, t := range m.Targets {
		v, ok := t.(*ast.Variable)
		if !ok || v.Root != nil || len(v.Chain) != 0 {
			allBare = false
			break
		}
	}
	if allBare {
		c.prog.Emit(MARK, 0, nil)
		for _, val := range m.Values {
			c.value(val)
		}
		for i, t := range m.Targets {
			c.prog.Emit(ASSIGN_LIT, i, t.(*ast.Variable).Name)
		}
		c.prog.Emit(LIMIT, 0, nil)
		return
	}
	for i, t := range m.Targets {
		c.assignSingle(t, i, m.Values)
	}
}

// assignSingle lowers one assignment target, evaluating its RHS value (the
// i-th entry of values, or nil when values is shorter than targets) inside
// the same frame as the target's container/key navigation so that SET sees
// (container, key, value) with value on top, per its stack picture.
func (c *compiler) assignSingle(target ast.Node, i int, values []ast.Node) {
	v, ok := target.(*ast.Variable)
	if !ok {
		c.fail("invalid assignment target %T", target)
	}
	if v.Root == nil && len(v.Chain) == 0 {
		// ASSIGN_LIT reads its operand by position relative to the still-open
		// mark (the same positional-read convention functionExpr's parameter
		// binding relies on), so the bind must happen before LIMIT pops that
		// mark, not after.
		c.prog.Emit(MARK, 0, nil)
		if i < len(values) {
			c.value(values[i])
		} else {
			c.prog.Emit(NIL, 0, nil)
		}
		c.prog.Emit(ASSIGN_LIT, 0, v.Name)
		c.prog.Emit(LIMIT, 0, nil)
		return
	}
	c.prog.Emit(MARK, 0, nil)
	c.pushContainer(v)
	c.pushLastKey(v)
	if i < len(values) {
		c.value(values[i])
	} else {
		c.prog.Emit(NIL, 0, nil)
	}
	c.prog.Emit(SET, 0, nil)
	c.prog.Emit(LIMIT, 0, nil)
}

func (c *compiler) pushContainer(v *ast.Variable) {
	if v.Root != nil {
		c.value(v.Root)
	} else {
		c.findName(v.Name)
	}
	for _, acc := range v.Chain[:len(v.Chain)-1] {
		c.pushAccessorGet(acc)
	}
}

func (c *compiler) pushLastKey(v *ast.Variable) {
	acc := v.Chain[len(v.Chain)-1]
	if acc.Field != "" {
		c.prog.Emit(LIT, 0, acc.Field)
	} else {
		c.value(acc.Index)
	}
}

func (c *compiler) pushAccessorGet(acc ast.Accessor) {
	if acc.Field != "" {
		c.prog.Emit(LIT, 0, acc.Field)
	} else {
		c.value(acc.Index)
	}
	c.prog.Emit(GET, 0, nil)
}

// findName emits a name lookup; LIT(name); FIND fuses to FIND_LIT(name) via
// the peephole pass.
func (c *compiler) findName(name string) {
	c.prog.Emit(LIT, 0, name)
	c.prog.Emit(FIND, 0, nil)
}

// value lowers n so that exactly one result sits on the stack afterward.
func (c *compiler) value(n ast.Node) {
	switch v := n.(type) {
	case *ast.Literal:
		c.literal(v)
	case *ast.Variable:
		c.readVariable(v)
	case *ast.Call:
		c.prog.Emit(MARK, 0, nil)
		c.callSeq(v)
		c.prog.Emit(LIMIT, 1, nil)
	case *ast.MethodCall:
		c.prog.Emit(MARK, 0, nil)
		c.methodCallSeq(v)
		c.prog.Emit(LIMIT, 1, nil)
	case *ast.OpExpr:
		c.opExpr(v)
	case *ast.LogicalExpr:
		c.logicalExpr(v)
	case *ast.VecExpr:
		c.vecExpr(v)
	case *ast.MapExpr:
		c.mapExpr(v)
	case *ast.FunctionExpr:
		c.functionExpr(v)
	case *ast.ScopeRef:
		if v.Global {
			c.prog.Emit(GLOBAL, 0, nil)
		} else {
			c.prog.Emit(LOCAL, 0, nil)
		}
	case *ast.BuiltinExpr:
		c.prog.Emit(MARK, 0, nil)
		c.builtinSeq(v)
		c.prog.Emit(LIMIT, 1, nil)
	case *ast.Multi:
		c.prog.Emit(MARK, 0, nil)
		for _, e := range v.Values {
			c.value(e)
		}
		c.prog.Emit(LIMIT, 1, nil)
	default:
		c.fail("unsupported expression node %T", n)
	}
}

// valueExpand lowers n in a tail-argument position, keeping every result a
// multi-valued node produces (`print(resume(c))` must print both the
// boolean and the failure message). Nodes that always yield exactly one
// result behave the same as value.
func (c *compiler) valueExpand(n ast.Node) {
	switch v := n.(type) {
	case *ast.Call:
		c.prog.Emit(MARK, 0, nil)
		c.callSeq(v)
		c.prog.Emit(LIMIT, -1, nil)
	case *ast.MethodCall:
		c.prog.Emit(MARK, 0, nil)
		c.methodCallSeq(v)
		c.prog.Emit(LIMIT, -1, nil)
	case *ast.BuiltinExpr:
		c.prog.Emit(MARK, 0, nil)
		c.builtinSeq(v)
		c.prog.Emit(LIMIT, -1, nil)
	case *ast.Multi:
		c.prog.Emit(MARK, 0, nil)
		for _, e := range v.Values {
			c.value(e)
		}
		c.prog.Emit(LIMIT, -1, nil)
	case *ast.OpExpr:
		// `~` can capture more than one sub-group; in a tail
		// position let every capture through instead of opExpr's usual
		// single-value MATCH/LIMIT(1) wrapping.
		if v.Op == token.TILDE && v.Y != nil {
			c.prog.Emit(MARK, 0, nil)
			c.value(v.X)
			c.value(v.Y)
			c.prog.Emit(MATCH, 0, nil)
			c.prog.Emit(LIMIT, -1, nil)
			return
		}
		c.value(n)
	default:
		c.value(n)
	}
}

// argValues lowers a comma-separated list where every element but the last
// is forced to exactly one result and the last is expanded
// ("in argument lists, a single parse yields exactly one value") combined
// with the last-call-expands convention the end-to-end scenarios require.
func (c *compiler) argValues(values []ast.Node) {
	for i, a := range values {
		if i == len(values)-1 {
			c.valueExpand(a)
		} else {
			c.value(a)
		}
	}
}

func (c *compiler) literal(l *ast.Literal) {
	switch l.Kind {
	case ast.LitNil:
		c.prog.Emit(NIL, 0, nil)
	case ast.LitBool:
		if l.Bool {
			c.prog.Emit(TRUE, 0, nil)
		} else {
			c.prog.Emit(FALSE, 0, nil)
		}
	case ast.LitInt:
		c.prog.Emit(LIT, 0, l.Int)
	case ast.LitFloat:
		c.prog.Emit(LIT, 0, l.Flt)
	case ast.LitString:
		c.prog.Emit(LIT, 0, l.Str)
	}
}

func (c *compiler) readVariable(v *ast.Variable) {
	if v.Root != nil {
		c.value(v.Root)
	} else {
		c.findName(v.Name)
	}
	for _, acc := range v.Chain {
		c.pushAccessorGet(acc)
	}
}

func (c *compiler) pushCallee(callee ast.Node) {
	if v, ok := callee.(*ast.Variable); ok && v.Root == nil && len(v.Chain) == 0 {
		c.findName(v.Name)
		return
	}
	c.value(callee)
}

func (c *compiler) callSeq(call *ast.Call) {
	c.argValues(call.Args.Values)
	c.pushCallee(call.Callee)
	c.prog.Emit(CALL, 0, nil)
}

func (c *compiler) methodCallSeq(mc *ast.MethodCall) {
	c.value(mc.Receiver)
	c.prog.Emit(SELF_PUSH, 0, nil)
	c.argValues(mc.Args.Values)
	c.prog.Emit(SELF, 0, nil)
	c.prog.Emit(LIT, 0, mc.Method)
	c.prog.Emit(GET, 0, nil)
	c.prog.Emit(CALL, 0, nil)
	c.prog.Emit(SELF_DROP, 0, nil)
}

func (c *compiler) builtinSeq(b *ast.BuiltinExpr) {
	c.argValues(b.Args.Values)
	switch b.Kind {
	case ast.BuiltinCoroutine:
		c.prog.Emit(COROUTINE, 0, nil)
	case ast.BuiltinResume:
		c.prog.Emit(RESUME, 0, nil)
	case ast.BuiltinYield:
		c.prog.Emit(YIELD, 0, nil)
	}
}

// opExpr lowers unary/binary operators, folding a run of `..` into a single
// STRING(n) when more than two operands chain together; a two-operand `..`
// is emitted directly as CONCAT, so STRING only appears for the longer
// chains such as those produced by interpolated string literals.
func (c *compiler) opExpr(v *ast.OpExpr) {
	if v.Y == nil {
		c.value(v.X)
		switch v.Op {
		case token.MINUS:
			c.prog.Emit(NEG, 0, nil)
		case token.NOT:
			c.prog.Emit(NOT, 0, nil)
		case token.POUND:
			c.prog.Emit(COUNT, 0, nil)
		default:
			c.fail("unsupported unary operator %s", v.Op)
		}
		return
	}
	if v.Op == token.CONCAT {
		parts := flattenConcat(v)
		if len(parts) > 2 {
			c.prog.Emit(MARK, 0, nil)
			for _, p := range parts {
				c.value(p)
			}
			c.prog.Emit(STRING, len(parts), nil)
			c.prog.Emit(LIMIT, 1, nil)
			return
		}
	}
	if v.Op == token.TILDE {
		c.prog.Emit(MARK, 0, nil)
		c.value(v.X)
		c.value(v.Y)
		c.prog.Emit(MATCH, 0, nil)
		c.prog.Emit(LIMIT, 1, nil)
		return
	}
	c.value(v.X)
	c.value(v.Y)
	switch v.Op {
	case token.PLUS:
		c.prog.Emit(ADD, 0, nil)
	case token.MINUS:
		c.prog.Emit(SUB, 0, nil)
	case token.STAR:
		c.prog.Emit(MUL, 0, nil)
	case token.SLASH:
		c.prog.Emit(DIV, 0, nil)
	case token.PERCENT:
		c.prog.Emit(MOD, 0, nil)
	case token.CONCAT:
		c.prog.Emit(CONCAT, 0, nil)
	case token.EQEQ:
		c.prog.Emit(EQ, 0, nil)
	case token.NEQ:
		c.prog.Emit(NE, 0, nil)
	case token.LT:
		c.prog.Emit(LT, 0, nil)
	case token.LE:
		c.prog.Emit(LTE, 0, nil)
	case token.GT:
		c.prog.Emit(GT, 0, nil)
	case token.GE:
		c.prog.Emit(GTE, 0, nil)
	default:
		c.fail("unsupported binary operator %s", v.Op)
	}
}

func flattenConcat(n ast.Node) []ast.Node {
	op, ok := n.(*ast.OpExpr)
	if !ok || op.Op != token.CONCAT || op.Y == nil {
		return []ast.Node{n}
	}
	return append(flattenConcat(op.X), op.Y)
}

// logicalExpr lowers short-circuiting and/or. JFALSE/JTRUE leave the tested
// value on the stack without consuming it (see opcode.go), so both the
// short-circuit path and the fallthrough path explicitly DROP it before
// pushing the path's own result.
func (c *compiler) logicalExpr(v *ast.LogicalExpr) {
	c.value(v.X)
	var skip int
	if v.Op == token.AND {
		skip = c.prog.Emit(JFALSE, 0, nil)
	} else {
		skip = c.prog.Emit(JTRUE, 0, nil)
	}
	c.prog.Emit(DROP, 0, nil)
	c.value(v.Y)
	end := c.prog.Emit(JMP, 0, nil)
	c.prog.Patch(skip, c.prog.Pos())
	c.prog.Patch(end, c.prog.Pos())
}

func (c *compiler) vecExpr(v *ast.VecExpr) {
	c.prog.Emit(MARK, 0, nil)
	for _, e := range v.Elems {
		c.value(e)
	}
	c.prog.Emit(ARRAY, len(v.Elems), nil)
	c.prog.Emit(LIMIT, 1, nil)
}

// mapExpr builds a map literal. When every key is a literal string (the
// bare-identifier-key case), it follows the smudged-scope construction
// verbatim: SCOPE, SMUDGE, one ASSIGN_LIT per pair, LITSCOPE, UNSCOPE. A
// literal containing any bracketed/dynamic key falls back to pushing
// (key, value) pairs directly and building the map with TABLE(n), since a
// dynamic key cannot bind as a scope variable name.
func (c *compiler) mapExpr(v *ast.MapExpr) {
	allBare := true
	for _, k := range v.Keys {
		if lit, ok := k.(*ast.Literal); !ok || lit.Kind != ast.LitString {
			allBare = false
			break
		}
	}
	if allBare {
		c.prog.Emit(SCOPE, 0, nil)
		c.prog.Emit(SMUDGE, 0, nil)
		for i, k := range v.Keys {
			name := k.(*ast.Literal).Str
			c.prog.Emit(MARK, 0, nil)
			c.value(v.Vals[i])
			c.prog.Emit(ASSIGN_LIT, 0, name)
			c.prog.Emit(LIMIT, 0, nil)
		}
		c.prog.Emit(LITSCOPE, 0, nil)
		c.prog.Emit(UNSCOPE, 0, nil)
		return
	}
	c.prog.Emit(MARK, 0, nil)
	for i, k := range v.Keys {
		c.value(k)
		c.value(v.Vals[i])
	}
	c.prog.Emit(TABLE, len(v.Keys), nil)
	c.prog.Emit(LIMIT, 1, nil)
}

// functionExpr lowers a function literal, named (a function statement) or
// anonymous (a function expression) exact sequence: LIT of
// the entry address, an optional bind of that address to the function's
// name, a jump over the body, the body itself, and the REPLY/RETURN exit
// pair. LIT's operand is patched with the entry address once known, since
// the jump-over makes that address a forward reference.
func (c *compiler) functionExpr(fn *ast.FunctionExpr) {
	c.prog.Emit(MARK, 0, nil)
	litIdx := c.prog.Emit(LIT, 0, nil)
	if fn.Name != "" {
		c.prog.Emit(ASSIGN_LIT, 0, fn.Name)
	}
	overJmp := c.prog.Emit(JMP, 0, nil)
	entry := c.prog.Pos()
	c.prog.Code[litIdx].Ptr = FuncRef(entry)

	for i, p := range fn.Params {
		c.prog.Emit(ASSIGN_LIT, i, p)
	}
	c.funcs = append(c.funcs, &funcCtx{})
	c.block(fn.Body)
	fc := c.funcs[len(c.funcs)-1]
	c.funcs = c.funcs[:len(c.funcs)-1]
	epilogue := c.prog.Pos()
	for _, at := range fc.returnJumps {
		c.prog.Patch(at, epilogue)
	}
	c.prog.Emit(REPLY, len(fn.Params), nil)
	c.prog.Emit(RETURN, 0, nil)
	c.prog.Patch(overJmp, c.prog.Pos())
	c.prog.Emit(LIMIT, 1, nil)
}

func (c *compiler) returnExpr(ret *ast.ReturnExpr) {
	if ret.Values != nil && len(ret.Values.Values) > 0 {
		c.argValues(ret.Values.Values)
	}
	jmp := c.prog.Emit(JMP, 0, nil)
	c.curFunc().returnJumps = append(c.curFunc().returnJumps, jmp)
}

// ifExpr lowers `if cond then A else B end` exactly.
func (c *compiler) ifExpr(v *ast.IfExpr) {
	c.value(v.Cond)
	jf := c.prog.Emit(JFALSE, 0, nil)
	c.prog.Emit(DROP, 0, nil)
	c.block(v.Then)
	jmpEnd := c.prog.Emit(JMP, 0, nil)
	c.prog.Patch(jf, c.prog.Pos())
	c.prog.Emit(DROP, 0, nil)
	c.block(v.Else)
	c.prog.Patch(jmpEnd, c.prog.Pos())
}

// whileExpr lowers `while cond do body end`. LOOP is entered once and
// records both jump targets (computed after the body is known) so that
// bare BREAK/CONTINUE inside the body need no compile-time operand at all
// -- they consult the VM's runtime loop-anchor stack.
func (c *compiler) whileExpr(v *ast.WhileExpr) {
	lt := &LoopTargets{}
	c.prog.Emit(LOOP, 0, lt)
	testPos := c.prog.Pos()
	c.value(v.Cond)
	jf := c.prog.Emit(JFALSE, 0, nil)
	c.prog.Emit(DROP, 0, nil)

	c.loopDepth++
	c.block(v.Body)
	c.loopDepth--

	back := c.prog.Emit(JMP, 0, nil)
	c.prog.Patch(back, testPos)
	c.prog.Patch(jf, c.prog.Pos())
	c.prog.Emit(DROP, 0, nil)
	c.prog.Emit(UNLOOP, 0, nil)

	lt.Continue = testPos
	lt.Break = c.prog.Pos()
}

// forExpr lowers `for k[, v] in iter do body end`: iter, an
// initial counter, a MARK, then a LOOP/FOR pair that binds k (and v) each
// pass and jumps to end when the iterable is exhausted.
func (c *compiler) forExpr(v *ast.ForExpr) {
	// Outer mark captures the depth below the pushed (iter, counter) pair,
	// so the second trailing LIMIT(0) can drop them once the loop exits;
	// the inner MARK below bounds the (always-empty) per-iteration frame.
	c.prog.Emit(MARK, 0, nil)
	c.value(v.Iter)
	c.prog.Emit(LIT, 0, int64(0))
	c.prog.Emit(MARK, 0, nil)

	lt := &LoopTargets{OwnedMarks: 2}
	c.prog.Emit(LOOP, 0, lt)
	forPos := c.prog.Pos()
	names := &ForNames{Key: v.Key, Val: v.Val, HasVal: v.HasVal}
	c.prog.Emit(FOR, 0, names)

	c.loopDepth++
	c.block(v.Body)
	c.loopDepth--

	back := c.prog.Emit(JMP, 0, nil)
	c.prog.Patch(back, forPos)
	names.End = c.prog.Pos()
	c.prog.Emit(UNLOOP, 0, nil)
	c.prog.Emit(LIMIT, 0, nil)
	c.prog.Emit(LIMIT, 0, nil)

	lt.Continue = forPos
	lt.Break = c.prog.Pos()
}
