package token

import "testing"

func TestTokenString(t *testing.T) {
	for tok := Token(0); tok < maxToken; tok++ {
		if tok.String() == "" {
			t.Errorf("missing string representation of token %d", tok)
		}
	}
}

func TestKeywords(t *testing.T) {
	for _, want := range []string{"and", "or", "not", "if", "then", "else",
		"end", "while", "do", "for", "in", "function", "return", "break",
		"continue", "global", "local", "coroutine", "resume", "yield",
		"nil", "true", "false"} {
		tok, ok := Keywords[want]
		if !ok {
			t.Fatalf("keyword %q not registered", want)
		}
		if tok.String() != want {
			t.Fatalf("keyword %q resolved to token %q", want, tok.String())
		}
	}
	if _, ok := Keywords["notakeyword"]; ok {
		t.Fatal("unexpected keyword match")
	}
}
