package machine_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corvid-lang/corvid/lang/machine"
)

func run(t *testing.T, src string) string {
	t.Helper()
	prog, err := machine.Compile("t", []byte(src))
	require.NoError(t, err)
	var out bytes.Buffer
	in := machine.New(8*1024*1024, &out)
	err = in.Run(context.Background(), prog)
	require.NoError(t, err)
	return out.String()
}

// Lettered end-to-end scenarios: source -> expected stdout.

func TestScenarioA_FunctionCall(t *testing.T) {
	got := run(t, "function f(x) return x*x end print(f(5))")
	require.Equal(t, "25\n", got)
}

func TestScenarioB_MapIteration(t *testing.T) {
	got := run(t, "t = {a=1, b=2} for k,v in t do print(k,v) end")
	lines := map[string]bool{"a\t1": false, "b\t2": false}
	for _, line := range splitLines(got) {
		if _, ok := lines[line]; ok {
			lines[line] = true
		}
	}
	require.True(t, lines["a\t1"])
	require.True(t, lines["b\t2"])
	require.Len(t, splitLines(got), 2)
}

func TestScenarioC_CoroutineRoundTrip(t *testing.T) {
	got := run(t, "c = coroutine(function() yield(1); yield(2); yield(3) end) print(resume(c)) print(resume(c)) print(resume(c)) print(resume(c))")
	require.Equal(t, "1\n2\n3\nfalse\tcannot resume dead coroutine\n", got)
}

func TestScenarioD_ForOverVec(t *testing.T) {
	got := run(t, "a = [1,2,3] s = 0 for i in a do s = s + i end print(s)")
	require.Equal(t, "6\n", got)
}

func TestScenarioE_RecursiveFib(t *testing.T) {
	got := run(t, "function fib(n) if n < 2 then return n else return fib(n-1)+fib(n-2) end end print(fib(10))")
	require.Equal(t, "55\n", got)
}

func TestScenarioF_StringOps(t *testing.T) {
	got := run(t, `s = "hello" print(#s) print(s .. " world")`)
	require.Equal(t, "5\nhello world\n", got)
}

// Property 3: scope leakage. Values assigned inside a smudged scope (a map
// literal's own scope) must not be visible to FIND/FIND_LIT outside it.
func TestScopeLeakage(t *testing.T) {
	got := run(t, `
x = 1
m = {x = 2}
print(x)
`)
	require.Equal(t, "1\n", got)
}

// Property 4: a resume of a dead coroutine always produces (false, _)
// regardless of how many times it is re-attempted.
func TestDeadCoroutineResumeIsIdempotent(t *testing.T) {
	got := run(t, `
c = coroutine(function() return 1 end)
print(resume(c))
print(resume(c))
print(resume(c))
`)
	require.Equal(t, "1\nfalse\tcannot resume dead coroutine\nfalse\tcannot resume dead coroutine\n", got)
}

// Property 6: prototype lookup follows meta transitively, then falls back
// to the per-kind super-map only once the chain is exhausted; setting the
// key directly always shadows it.
func TestPrototypeLookupChain(t *testing.T) {
	got := run(t, `
grandparent = {greeting = "hi"}
parent = {}
inherit(parent, grandparent)
child = {}
inherit(child, parent)
print(child.greeting)
child.greeting = "yo"
print(child.greeting)
`)
	require.Equal(t, "hi\nyo\n", got)
}

// Property 1: refcount balance. A script that only ever builds containers
// in a scope that gets popped before the program ends must leave every
// container kind's live count exactly where it started (the long-lived
// roots: Global, Core, and the seven per-kind prototype maps).
func TestRefcountBalanceAfterScopedContainers(t *testing.T) {
	prog, err := machine.Compile("t", []byte(`
function f()
  v = [1, 2, 3]
  m = {a = 1, b = v}
  return count(v)
end
print(f())
`))
	require.NoError(t, err)

	var out bytes.Buffer
	in := machine.New(8*1024*1024, &out)

	baseVec := in.Budget().Live(machine.KindVec)
	baseMap := in.Budget().Live(machine.KindMap)

	err = in.Run(context.Background(), prog)
	require.NoError(t, err)
	require.Equal(t, "3\n", out.String())

	require.Equal(t, baseVec, in.Budget().Live(machine.KindVec))
	require.Equal(t, baseMap, in.Budget().Live(machine.KindMap))
}

// BREAK inside a for-loop must unwind both of the loop's own frame marks
// (the outer iter/counter pair and the inner per-iteration mark) exactly
// as the normal loop-exhausted exit path does, leaving the stack and
// surrounding code free to continue using marks normally afterward.
func TestBreakInsideForLoop(t *testing.T) {
	got := run(t, `
a = [1,2,3,4,5]
s = 0
for i in a do
  if i == 3 then break end
  s = s + i
end
print(s)
print(s + 1)
`)
	require.Equal(t, "3\n4\n", got)
}

func TestBreakInsideWhileLoop(t *testing.T) {
	got := run(t, `
n = 0
while true do
  n = n + 1
  if n == 3 then break end
end
print(n)
`)
	require.Equal(t, "3\n", got)
}

func TestContinueInsideForLoop(t *testing.T) {
	got := run(t, `
a = [1,2,3,4,5]
s = 0
for i in a do
  if i == 3 then continue end
  s = s + i
end
print(s)
`)
	require.Equal(t, "12\n", got)
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			if i > start {
				lines = append(lines, s[start:i])
			}
			start = i + 1
		}
	}
	return lines
}
