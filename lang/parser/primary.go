package parser

import (
	"github.com/corvid-lang/corvid/lang/ast"
	"github.com/corvid-lang/corvid/lang/token"
)

func (p *parser) parsePrimary() ast.Node {
	pos := p.pos
	switch p.tok {
	case token.NIL:
		p.next()
		return &ast.Literal{Kind: ast.LitNil, Base: ast.At(pos)}
	case token.TRUE:
		p.next()
		return &ast.Literal{Kind: ast.LitBool, Bool: true, Base: ast.At(pos)}
	case token.FALSE:
		p.next()
		return &ast.Literal{Kind: ast.LitBool, Bool: false, Base: ast.At(pos)}
	case token.INT:
		v := p.val.Int
		p.next()
		return &ast.Literal{Kind: ast.LitInt, Int: v, Base: ast.At(pos)}
	case token.FLOAT:
		v := p.val.Float
		p.next()
		return &ast.Literal{Kind: ast.LitFloat, Flt: v, Base: ast.At(pos)}
	case token.STRING:
		s := p.val.String
		p.next()
		return parseInterpolated(s, pos)
	case token.IDENT:
		name := p.val.String
		p.next()
		return &ast.Variable{Name: name, Base: ast.At(pos)}
	case token.GLOBAL:
		p.next()
		return &ast.ScopeRef{Global: true, Base: ast.At(pos)}
	case token.LOCAL:
		p.next()
		return &ast.ScopeRef{Global: false, Base: ast.At(pos)}
	case token.COROUTINE:
		p.next()
		args := p.parseArgs()
		return &ast.BuiltinExpr{Kind: ast.BuiltinCoroutine, Args: args, Base: ast.At(pos)}
	case token.RESUME:
		p.next()
		args := p.parseArgs()
		return &ast.BuiltinExpr{Kind: ast.BuiltinResume, Args: args, Base: ast.At(pos)}
	case token.YIELD:
		p.next()
		args := p.parseArgs()
		return &ast.BuiltinExpr{Kind: ast.BuiltinYield, Args: args, Base: ast.At(pos)}
	case token.FUNCTION:
		return p.parseFunctionExpr()
	case token.LPAREN:
		return p.parseGroup()
	case token.LBRACK:
		return p.parseVec()
	case token.LBRACE:
		return p.parseMap()
	default:
		p.fail(pos, "unexpected %s", p.tok)
		panic(abort{}) // unreachable, fail always panics
	}
}

// parseGroup parses a parenthesized expression. A single expression with no
// trailing comma is plain grouping; a comma-separated list becomes a Multi
// carrying every value ("inside parentheses it takes all values").
func (p *parser) parseGroup() ast.Node {
	pos := p.expect(token.LPAREN)
	first := p.parseExpr()
	if !p.at(token.COMMA) {
		p.expect(token.RPAREN)
		return first
	}
	values := []ast.Node{first}
	for p.accept(token.COMMA) {
		values = append(values, p.parseExpr())
	}
	p.expect(token.RPAREN)
	return &ast.Multi{Values: values, Results: -1, Base: ast.At(pos)}
}

func (p *parser) parseVec() ast.Node {
	pos := p.expect(token.LBRACK)
	var elems []ast.Node
	for !p.at(token.RBRACK) {
		elems = append(elems, p.parseExpr())
		if !p.accept(token.COMMA) {
			break
		}
	}
	p.expect(token.RBRACK)
	return &ast.VecExpr{Elems: elems, Base: ast.At(pos)}
}

// parseMap parses a `{ k = v, [expr] = v, ... }` map literal. A bare
// identifier key is treated as its string form.
func (p *parser) parseMap() ast.Node {
	pos := p.expect(token.LBRACE)
	var keys, vals []ast.Node
	for !p.at(token.RBRACE) {
		var key ast.Node
		if p.tok == token.LBRACK {
			p.next()
			key = p.parseExpr()
			p.expect(token.RBRACK)
		} else {
			name, kpos := p.expectIdent()
			key = &ast.Literal{Kind: ast.LitString, Str: name, Base: ast.At(kpos)}
		}
		p.expect(token.EQ)
		val := p.parseExpr()
		keys = append(keys, key)
		vals = append(vals, val)
		if !p.accept(token.COMMA) {
			break
		}
	}
	p.expect(token.RBRACE)
	return &ast.MapExpr{Keys: keys, Vals: vals, Base: ast.At(pos)}
}

func (p *parser) parseFunctionExpr() ast.Node {
	pos := p.expect(token.FUNCTION)
	var name string
	if p.at(token.IDENT) {
		name, _ = p.expectIdent()
	}
	params := p.parseParams()
	body := p.parseBlock(token.END)
	p.expect(token.END)
	return &ast.FunctionExpr{Name: name, Params: params, Body: body, Base: ast.At(pos)}
}
