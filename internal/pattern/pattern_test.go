package pattern

import "testing"

func TestMatchReturnsWholeMatchAndGroups(t *testing.T) {
	got := Match("hello world", `(\w+) (\w+)`)
	want := []string{"hello world", "hello", "world"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestMatchReturnsNilOnNoMatch(t *testing.T) {
	if got := Match("hello", `\d+`); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestMatchReturnsNilOnBadPattern(t *testing.T) {
	if got := Match("hello", `(unclosed`); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestMatchIsDotAll(t *testing.T) {
	got := Match("a\nb", `a.b`)
	if len(got) != 1 || got[0] != "a\nb" {
		t.Fatalf("expected DOTALL match across newline, got %v", got)
	}
}

func TestMatchCachesCompiledPattern(t *testing.T) {
	Match("x", "x")
	if _, ok := cache["x"]; !ok {
		t.Fatal("expected pattern to be cached after first use")
	}
}
