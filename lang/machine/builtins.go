package machine

import (
	"fmt"
	"strings"

	"github.com/corvid-lang/corvid/internal/pattern"
)

// newCoreScope builds the core scope (last name-lookup tier): the eight
// builtins, each reachable as an ordinary name. count/concat/match double
// as the dedicated-operator opcodes COUNT/CONCAT/MATCH; the core-scope
// entries here are the callable-by-name form and share their
// implementation with the opcode handlers in vm.go.
func newCoreScope(in *Interpreter) *Map {
	m := NewMap(in, 8)
	reg := func(name string, fn func(in *Interpreter, args []Value) []Value) {
		m.SetKey(Str(name), &Wrapper{Name: name, Fn: fn})
	}
	reg("print", func(in *Interpreter, args []Value) []Value {
		doPrint(in, args)
		return nil
	})
	reg("count", func(in *Interpreter, args []Value) []Value {
		if len(args) != 1 {
			in.fatalSimple("count() takes exactly one argument")
		}
		n, err := countValue(args[0])
		if err != nil {
			in.fatalSimple(err.Error())
		}
		return []Value{n}
	})
	reg("concat", func(in *Interpreter, args []Value) []Value {
		var b strings.Builder
		for _, a := range args {
			b.WriteString(ToString(a))
		}
		return []Value{Str(b.String())}
	})
	reg("keys", func(in *Interpreter, args []Value) []Value {
		m, ok := oneMap(args)
		if !ok {
			in.fatalSimple("keys() requires a map argument")
		}
		return []Value{doKeys(in, m)}
	})
	reg("values", func(in *Interpreter, args []Value) []Value {
		m, ok := oneMap(args)
		if !ok {
			in.fatalSimple("values() requires a map argument")
		}
		return []Value{doValues(in, m)}
	})
	reg("inherit", func(in *Interpreter, args []Value) []Value {
		if len(args) != 2 {
			in.fatalSimple("inherit() takes exactly two arguments")
		}
		child, ok1 := args[0].(*Map)
		parent, ok2 := args[1].(*Map)
		if !ok1 || !ok2 {
			in.fatalSimple("inherit() requires two map arguments")
		}
		child.SetMeta(parent)
		return nil
	})
	reg("status", func(in *Interpreter, args []Value) []Value {
		return []Value{doStatus(in)}
	})
	reg("match", func(in *Interpreter, args []Value) []Value {
		if len(args) != 2 {
			in.fatalSimple("match() takes exactly two arguments")
		}
		s, ok1 := args[0].(Str)
		pat, ok2 := args[1].(Str)
		if !ok1 || !ok2 {
			in.fatalSimple("match() requires two string arguments")
		}
		return matchResults(string(s), string(pat))
	})
	m.SetSmudged()
	return m
}

func oneMap(args []Value) (*Map, bool) {
	if len(args) != 1 {
		return nil, false
	}
	m, ok := args[0].(*Map)
	return m, ok
}

func countValue(v Value) (Int, error) {
	switch x := v.(type) {
	case Str:
		return Int(len(x)), nil
	case *Vec:
		return Int(x.Len()), nil
	case *Map:
		return Int(x.Count()), nil
	default:
		return 0, fmt.Errorf("cannot count a %s", v.Type())
	}
}

func doPrint(in *Interpreter, vals []Value) {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = ToString(v)
	}
	fmt.Fprintln(in.Stdout, strings.Join(parts, "\t"))
}

func doKeys(in *Interpreter, m *Map) *Vec {
	keys := m.Keys()
	out := make([]Value, len(keys))
	for i, k := range keys {
		out[i] = copyValue(k)
	}
	return NewVec(in, out)
}

func doValues(in *Interpreter, m *Map) *Vec {
	vals := m.Values()
	out := make([]Value, len(vals))
	for i, v := range vals {
		out[i] = copyValue(v)
	}
	return NewVec(in, out)
}

func doStatus(in *Interpreter) *Map {
	return in.budget.Status(in)
}

func matchResults(subject, pat string) []Value {
	groups := pattern.Match(subject, pat)
	out := make([]Value, len(groups))
	for i, g := range groups {
		out[i] = Str(g)
	}
	return out
}
