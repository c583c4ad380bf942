package parser

import (
	"github.com/corvid-lang/corvid/lang/ast"
	"github.com/corvid-lang/corvid/lang/token"
)

// precedence levels, high to low:
//
//	*  /  %          (6)
//	+  -             (5)
//	..               (4)
//	== != < <= > >= ~ (3)
//	and              (2)
//	or               (1)
func precedence(tok token.Token) int {
	switch tok {
	case token.STAR, token.SLASH, token.PERCENT:
		return 6
	case token.PLUS, token.MINUS:
		return 5
	case token.CONCAT:
		return 4
	case token.EQEQ, token.NEQ, token.LT, token.LE, token.GT, token.GE, token.TILDE:
		return 3
	case token.AND:
		return 2
	case token.OR:
		return 1
	default:
		return 0
	}
}

func (p *parser) parseExpr() ast.Node { return p.parseBinary(1) }

func (p *parser) parseBinary(minPrec int) ast.Node {
	left := p.parseUnary()
	for {
		prec := precedence(p.tok)
		if prec < minPrec || prec == 0 {
			return left
		}
		op := p.tok
		pos := p.pos
		p.next()
		right := p.parseBinary(prec + 1)
		if op == token.AND || op == token.OR {
			left = &ast.LogicalExpr{Op: op, X: left, Y: right, Base: ast.At(pos)}
		} else {
			left = &ast.OpExpr{Op: op, X: left, Y: right, Base: ast.At(pos)}
		}
	}
}

func (p *parser) parseUnary() ast.Node {
	switch p.tok {
	case token.NOT, token.MINUS, token.POUND:
		op := p.tok
		pos := p.pos
		p.next()
		x := p.parseUnary()
		// constant-fold unary minus over a numeric literal, so that
		// -9223372036854775808 parses rather than overflowing during negation.
		if op == token.MINUS {
			if lit, ok := x.(*ast.Literal); ok {
				switch lit.Kind {
				case ast.LitInt:
					return &ast.Literal{Kind: ast.LitInt, Int: -lit.Int, Base: ast.At(pos)}
				case ast.LitFloat:
					return &ast.Literal{Kind: ast.LitFloat, Flt: -lit.Flt, Base: ast.At(pos)}
				}
			}
		}
		return &ast.OpExpr{Op: op, X: x, Base: ast.At(pos)}
	default:
		return p.parsePostfix()
	}
}

func (p *parser) parsePostfix() ast.Node {
	expr := p.parsePrimary()
loop:
	for {
		switch p.tok {
		case token.DOT:
			p.next()
			name, pos := p.expectIdent()
			expr = appendChain(expr, ast.Accessor{Field: name}, pos)
		case token.LBRACK:
			pos := p.pos
			p.next()
			idx := p.parseExpr()
			p.expect(token.RBRACK)
			expr = appendChain(expr, ast.Accessor{Index: idx}, pos)
		case token.COLON:
			pos := p.pos
			p.next()
			name, _ := p.expectIdent()
			args := p.parseArgs()
			expr = &ast.MethodCall{Receiver: expr, Method: name, Args: args, Base: ast.At(pos)}
		case token.LPAREN:
			pos := p.pos
			args := p.parseArgs()
			expr = &ast.Call{Callee: expr, Args: args, Base: ast.At(pos)}
		default:
			break loop
		}
	}
	return expr
}

// appendChain extends expr's Chain if it is already a plain-name Variable,
// or wraps it in a fresh Variable rooted at expr otherwise (e.g. f().x),
// per the ast.Variable.Root doc.
func appendChain(expr ast.Node, acc ast.Accessor, pos token.Position) ast.Node {
	if v, ok := expr.(*ast.Variable); ok && v.Root == nil {
		v.Chain = append(v.Chain, acc)
		return v
	}
	return &ast.Variable{Base: ast.At(pos), Root: expr, Chain: []ast.Accessor{acc}}
}

func (p *parser) parseArgs() *ast.Multi {
	pos := p.pos
	p.expect(token.LPAREN)
	var values []ast.Node
	for !p.at(token.RPAREN) {
		values = append(values, p.parseExpr())
		if !p.accept(token.COMMA) {
			break
		}
	}
	p.expect(token.RPAREN)
	return &ast.Multi{Values: values, Results: -1, Base: ast.At(pos)}
}
