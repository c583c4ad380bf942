// Package pattern implements the `~` match operator's PCRE-dialect regular
// expression matching, backed by github.com/dlclark/regexp2 since Go's
// standard regexp/syntax is RE2-based and cannot express PCRE
// backreferences/lookaround. DOTALL and UTF-8 are always enabled, matching
// `pcre_compile(..., PCRE_DOTALL|PCRE_UTF8, ...)` semantics (see
// DESIGN.md's dependency notes).
package pattern

import (
	"sync"

	"github.com/dlclark/regexp2"
)

// cache avoids recompiling the same pattern on every match in a tight
// loop, amortizing compilation across repeated calls with the same
// pattern string.
var (
	cacheMu sync.Mutex
	cache   = make(map[string]*regexp2.Regexp)
)

func compile(pat string) (*regexp2.Regexp, error) {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	if re, ok := cache[pat]; ok {
		return re, nil
	}
	// Singleline makes '.' match '\n' too, regexp2's equivalent of PCRE_DOTALL;
	// regexp2 operates on Go strings (already UTF-8), satisfying PCRE_UTF8.
	re, err := regexp2.Compile(pat, regexp2.Singleline)
	if err != nil {
		return nil, err
	}
	cache[pat] = re
	return re, nil
}

// Match runs pattern against subject. On a match it returns every captured
// group as a string, group 0 (the whole match) first. On no-match, or on a
// pattern compile failure, it returns a nil slice and no error: a failed
// pattern compile is one of the two recoverable runtime failures, not a Go
// error the caller need report.
func Match(subject, pat string) []string {
	re, err := compile(pat)
	if err != nil {
		return nil
	}
	m, err := re.FindStringMatch(subject)
	if err != nil || m == nil {
		return nil
	}
	groups := m.Groups()
	out := make([]string, 0, len(groups))
	for _, g := range groups {
		out = append(out, g.String())
	}
	return out
}
