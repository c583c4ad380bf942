// Package parser implements a hand-written recursive-descent parser
// (with precedence climbing standing in for a shunting-yard pass, an
// equivalent construction for strictly binary infix operators) that turns
// source text into the expression tree defined in package ast. A single
// scanner-driven parser struct walks one token ahead, simplified since this
// language has one source file and aborts on the first syntax error
// ("Syntax error... fatal, aborts before execution").
package parser

import (
	"fmt"

	"github.com/corvid-lang/corvid/lang/ast"
	"github.com/corvid-lang/corvid/lang/scanner"
	"github.com/corvid-lang/corvid/lang/token"
)

// SyntaxError is returned by Parse for any grammar violation.
type SyntaxError struct {
	Pos token.Position
	Msg string
}

func (e *SyntaxError) Error() string { return fmt.Sprintf("%s: %s", e.Pos, e.Msg) }

// Parse parses the complete source of a script into a top-level block.
func Parse(filename string, src []byte) (ast.Block, error) {
	p := &parser{}
	p.s = scanner.New(filename, src, func(pos token.Position, msg string) {
		p.recordError(pos, msg)
	})
	p.next()

	var block ast.Block
	func() {
		defer p.recover()
		block = p.parseBlock(token.EOF)
	}()
	if p.err != nil {
		return nil, p.err
	}
	return block, nil
}

type parser struct {
	s   *scanner.Scanner
	tok token.Token
	pos token.Position
	val scanner.TokenValue
	err error
}

// abort is used with panic/recover to unwind the recursive-descent call
// stack on the first syntax error, mirroring the common recursive-descent
// idiom of signalling failure by panicking with a sentinel type instead of
// threading an error return through every parse method.
type abort struct{}

func (p *parser) recordError(pos token.Position, msg string) {
	if p.err == nil {
		p.err = &SyntaxError{Pos: pos, Msg: msg}
	}
}

func (p *parser) fail(pos token.Position, format string, args ...interface{}) {
	p.recordError(pos, fmt.Sprintf(format, args...))
	panic(abort{})
}

func (p *parser) recover() {
	if r := recover(); r != nil {
		if _, ok := r.(abort); !ok {
			panic(r)
		}
	}
}

func (p *parser) next() {
	p.tok, p.pos, p.val = p.s.Scan()
}

func (p *parser) at(tok token.Token) bool { return p.tok == tok }

func (p *parser) accept(tok token.Token) bool {
	if p.tok == tok {
		p.next()
		return true
	}
	return false
}

func (p *parser) expect(tok token.Token) token.Position {
	pos := p.pos
	if p.tok != tok {
		p.fail(p.pos, "expected %s, found %s", tok, p.tok)
	}
	p.next()
	return pos
}

func (p *parser) expectIdent() (string, token.Position) {
	if p.tok != token.IDENT {
		p.fail(p.pos, "expected identifier, found %s", p.tok)
	}
	name := p.val.String
	pos := p.pos
	p.next()
	return name, pos
}

// isBlockEnd reports whether the current token ends a block given the
// expected terminator (END, normally, or EOF at the top level).
func (p *parser) isBlockEnd(term token.Token) bool {
	if p.tok == term {
		return true
	}
	switch p.tok {
	case token.EOF, token.END, token.ELSE:
		return true
	}
	return false
}

func (p *parser) parseBlock(term token.Token) ast.Block {
	var block ast.Block
	for !p.isBlockEnd(term) {
		block = append(block, p.parseStatement())
	}
	return block
}
