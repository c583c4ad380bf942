package parser

import (
	"strings"

	"github.com/corvid-lang/corvid/lang/ast"
	"github.com/corvid-lang/corvid/lang/token"
)

// parseInterpolated splits a scanned string literal's raw text on the `$name`
// and `${expr}` markers the scanner deliberately leaves untouched,
// producing a CONCAT chain of string-literal segments and sub-parsed
// expressions. A string with no markers collapses back to a plain Literal.
func parseInterpolated(s string, pos token.Position) ast.Node {
	var parts []ast.Node
	lit := strings.Builder{}
	flush := func() {
		if lit.Len() > 0 {
			parts = append(parts, &ast.Literal{Kind: ast.LitString, Str: lit.String(), Base: ast.At(pos)})
			lit.Reset()
		}
	}

	i := 0
	for i < len(s) {
		c := s[i]
		if c != '$' || i+1 >= len(s) {
			lit.WriteByte(c)
			i++
			continue
		}
		if s[i+1] == '{' {
			end := strings.IndexByte(s[i+2:], '}')
			if end < 0 {
				lit.WriteByte(c)
				i++
				continue
			}
			expr := s[i+2 : i+2+end]
			flush()
			parts = append(parts, parseSubExpr(expr, pos))
			i += 2 + end + 1
			continue
		}
		if isIdentStart(s[i+1]) {
			j := i + 1
			for j < len(s) && isIdentCont(s[j]) {
				j++
			}
			flush()
			parts = append(parts, &ast.Variable{Name: s[i+1 : j], Base: ast.At(pos)})
			i = j
			continue
		}
		lit.WriteByte(c)
		i++
	}
	flush()

	if len(parts) == 0 {
		return &ast.Literal{Kind: ast.LitString, Str: "", Base: ast.At(pos)}
	}
	if len(parts) == 1 {
		return parts[0]
	}
	expr := parts[0]
	for _, next := range parts[1:] {
		expr = &ast.OpExpr{Op: token.CONCAT, X: expr, Y: next, Base: ast.At(pos)}
	}
	return expr
}

// parseSubExpr parses the inner text of a ${...} interpolation as a full
// expression, reusing the same recursive-descent machinery as the outer
// parse. Any syntax error inside the interpolation is reported at the
// position of the enclosing string literal, since the sub-parser works on an
// extracted substring and has no knowledge of the outer offsets.
func parseSubExpr(src string, pos token.Position) ast.Node {
	inner, err := Parse("<interpolation>", []byte(src))
	if err != nil || len(inner) != 1 {
		return &ast.Literal{Kind: ast.LitString, Str: "", Base: ast.At(pos)}
	}
	if m, ok := inner[0].(*ast.Multi); ok && m.Targets == nil && len(m.Values) == 1 {
		return m.Values[0]
	}
	return inner[0]
}

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isIdentCont(b byte) bool {
	return isIdentStart(b) || (b >= '0' && b <= '9')
}
