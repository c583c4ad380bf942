package parser

import (
	"github.com/corvid-lang/corvid/lang/ast"
	"github.com/corvid-lang/corvid/lang/token"
)

func (p *parser) parseStatement() ast.Node {
	switch p.tok {
	case token.IF:
		return p.parseIf()
	case token.WHILE:
		return p.parseWhile()
	case token.FOR:
		return p.parseFor()
	case token.FUNCTION:
		return p.parseFunctionStatement()
	case token.RETURN:
		return p.parseReturn()
	case token.BREAK:
		pos := p.pos
		p.next()
		return &ast.BreakExpr{Base: ast.At(pos)}
	case token.CONTINUE:
		pos := p.pos
		p.next()
		return &ast.ContinueExpr{Base: ast.At(pos)}
	default:
		return p.parseExprStatement()
	}
}

func (p *parser) parseIf() ast.Node {
	pos := p.expect(token.IF)
	cond := p.parseExpr()
	p.expect(token.THEN)
	then := p.parseBlock(token.END)
	var els ast.Block
	if p.accept(token.ELSE) {
		els = p.parseBlock(token.END)
	}
	p.expect(token.END)
	return &ast.IfExpr{Cond: cond, Then: then, Else: els, Base: ast.At(pos)}
}

func (p *parser) parseWhile() ast.Node {
	pos := p.expect(token.WHILE)
	cond := p.parseExpr()
	p.expect(token.DO)
	body := p.parseBlock(token.END)
	p.expect(token.END)
	return &ast.WhileExpr{Cond: cond, Body: body, Base: ast.At(pos)}
}

func (p *parser) parseFor() ast.Node {
	pos := p.expect(token.FOR)
	key, _ := p.expectIdent()
	var val string
	hasVal := false
	if p.accept(token.COMMA) {
		val, _ = p.expectIdent()
		hasVal = true
	}
	p.expect(token.IN)
	iter := p.parseExpr()
	p.expect(token.DO)
	body := p.parseBlock(token.END)
	p.expect(token.END)
	return &ast.ForExpr{Key: key, Val: val, HasVal: hasVal, Iter: iter, Body: body, Base: ast.At(pos)}
}

func (p *parser) parseFunctionStatement() ast.Node {
	pos := p.expect(token.FUNCTION)
	var name string
	if p.at(token.IDENT) {
		name, _ = p.expectIdent()
	}
	params := p.parseParams()
	body := p.parseBlock(token.END)
	p.expect(token.END)
	fn := &ast.FunctionExpr{Name: name, Params: params, Body: body, Base: ast.At(pos)}
	if name == "" {
		// an anonymous function at statement level is a bare expression
		// statement whose value is discarded.
		return &ast.Multi{Values: []ast.Node{fn}, Results: 0, Base: fn.Base}
	}
	return fn
}

func (p *parser) parseParams() []string {
	p.expect(token.LPAREN)
	var params []string
	for !p.at(token.RPAREN) {
		name, _ := p.expectIdent()
		params = append(params, name)
		if !p.accept(token.COMMA) {
			break
		}
	}
	p.expect(token.RPAREN)
	return params
}

func (p *parser) parseReturn() ast.Node {
	pos := p.expect(token.RETURN)
	var values *ast.Multi
	if !p.isBlockEnd(token.END) {
		values = p.parseMulti(nil)
	} else {
		values = &ast.Multi{Results: -1}
	}
	return &ast.ReturnExpr{Values: values, Base: ast.At(pos)}
}

// parseExprStatement parses a comma-separated list of expressions; if it is
// followed by '=' it is an assignment (the parsed expressions become
// targets), otherwise it is a bare expression whose results are discarded
// ("at the top level of a block, parsing is greedy").
func (p *parser) parseExprStatement() ast.Node {
	pos := p.pos
	first := p.parseExpr()
	exprs := []ast.Node{first}
	for p.accept(token.COMMA) {
		exprs = append(exprs, p.parseExpr())
	}
	if p.accept(token.EQ) {
		values := p.parseMulti(nil)
		return &ast.Multi{Targets: exprs, Values: values.Values, Results: -1, Base: ast.At(pos)}
	}
	return &ast.Multi{Values: exprs, Results: 0, Base: ast.At(pos)}
}

// parseMulti parses a comma-separated expression list. If targets is
// non-nil the resulting Multi carries it through unchanged; the current
// callers (return values, assignment right-hand sides) all pass nil.
func (p *parser) parseMulti(targets []ast.Node) *ast.Multi {
	pos := p.pos
	var values []ast.Node
	values = append(values, p.parseExpr())
	for p.accept(token.COMMA) {
		values = append(values, p.parseExpr())
	}
	return &ast.Multi{Values: values, Targets: targets, Results: -1, Base: ast.At(pos)}
}
