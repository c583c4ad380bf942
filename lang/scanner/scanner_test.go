package scanner

import (
	"testing"

	"github.com/corvid-lang/corvid/lang/token"
	"github.com/stretchr/testify/require"
)

func scanAll(t *testing.T, src string) []token.Token {
	t.Helper()
	var errs []string
	s := New("test.src", []byte(src), func(pos token.Position, msg string) {
		errs = append(errs, msg)
	})
	var toks []token.Token
	for {
		tok, _, _ := s.Scan()
		toks = append(toks, tok)
		if tok == token.EOF {
			break
		}
	}
	require.Empty(t, errs)
	return toks
}

func TestScanPunctAndKeywords(t *testing.T) {
	toks := scanAll(t, `if x < 10 then return x .. "y" end`)
	want := []token.Token{token.IF, token.IDENT, token.LT, token.INT, token.THEN,
		token.RETURN, token.IDENT, token.CONCAT, token.STRING, token.END, token.EOF}
	require.Equal(t, want, toks)
}

func TestScanNumbers(t *testing.T) {
	s := New("t", []byte(`123 0x7b 1.5 1e3 1.5e-2`), nil)
	var ints []int64
	var floats []float64
	for {
		tok, _, v := s.Scan()
		if tok == token.EOF {
			break
		}
		switch tok {
		case token.INT:
			ints = append(ints, v.Int)
		case token.FLOAT:
			floats = append(floats, v.Float)
		}
	}
	require.Equal(t, []int64{123, 123}, ints)
	require.Equal(t, []float64{1.5, 1000, 0.015}, floats)
}

func TestScanStringEscapes(t *testing.T) {
	s := New("t", []byte(`"a\tb\nc\\d\"e"`), nil)
	tok, _, v := s.Scan()
	require.Equal(t, token.STRING, tok)
	require.Equal(t, "a\tb\nc\\d\"e", v.String)
}

func TestScanRawString(t *testing.T) {
	s := New("t", []byte(`[[line1
line2 $x \n]]`), nil)
	tok, _, v := s.Scan()
	require.Equal(t, token.STRING, tok)
	require.Equal(t, "line1\nline2 $x \\n", v.String)
}

func TestScanStringInterpolationMarkersPreserved(t *testing.T) {
	s := New("t", []byte(`"hello $name and ${1+2}"`), nil)
	tok, _, v := s.Scan()
	require.Equal(t, token.STRING, tok)
	require.Equal(t, "hello $name and ${1+2}", v.String)
}

func TestScanComment(t *testing.T) {
	toks := scanAll(t, "x = 1 -- trailing comment\ny = 2")
	want := []token.Token{token.IDENT, token.EQ, token.INT, token.IDENT, token.EQ, token.INT, token.EOF}
	require.Equal(t, want, toks)
}

func TestScanIllegalCharacterReported(t *testing.T) {
	var errs []string
	s := New("t", []byte(`@`), func(pos token.Position, msg string) { errs = append(errs, msg) })
	tok, _, _ := s.Scan()
	require.Equal(t, token.ILLEGAL, tok)
	require.NotEmpty(t, errs)
}
