// Package machine implements the stack-based bytecode VM: value
// representation, the scope chain, cooperative coroutines, and the
// dispatch loop that executes a *compiler.Program.
package machine

import (
	"fmt"
	"math"
	"strconv"
)

// Value is the interface implemented by every value the machine
// manipulates. Concrete kinds are NilType, Bool, Int, Float, Str, *Vec,
// *Map, *Coroutine, FuncVal, and *Wrapper (the builtin dispatch marker).
type Value interface {
	String() string
	Type() string
}

// NilType is the type of Nil, the language's single null value.
type NilType struct{}

func (NilType) String() string { return "nil" }
func (NilType) Type() string   { return "nil" }

// Nil is the language's null value.
var Nil = NilType{}

type Bool bool

func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}
func (Bool) Type() string { return "bool" }

type Int int64

func (i Int) String() string { return strconv.FormatInt(int64(i), 10) }
func (Int) Type() string     { return "int" }

// Float formats: "floats in %e".
type Float float64

func (f Float) String() string { return fmt.Sprintf("%e", float64(f)) }
func (Float) Type() string     { return "float" }

// Str is a byte-wise string value; equality and ordering are byte
// comparisons with no Unicode normalization.
type Str string

func (s Str) String() string { return string(s) }
func (Str) Type() string     { return "string" }

// Truthy reports whether v is truthy. Only nil and false are falsy,
// matching the language's Lua-flavored control-flow keywords (if/then/end,
// while/do/end); every other value, including 0, "", and empty containers,
// is truthy.
func Truthy(v Value) bool {
	switch x := v.(type) {
	case NilType:
		return false
	case Bool:
		return bool(x)
	default:
		return true
	}
}

// Equal implements `==`/`!=`. Numeric kinds compare across Int/Float
// numerically; every other kind requires matching concrete types, with
// containers and coroutines compared by identity.
func Equal(x, y Value) bool {
	switch a := x.(type) {
	case NilType:
		_, ok := y.(NilType)
		return ok
	case Bool:
		b, ok := y.(Bool)
		return ok && a == b
	case Int:
		switch b := y.(type) {
		case Int:
			return a == b
		case Float:
			return float64(a) == float64(b)
		}
		return false
	case Float:
		switch b := y.(type) {
		case Float:
			return a == b
		case Int:
			return float64(a) == float64(b)
		}
		return false
	case Str:
		b, ok := y.(Str)
		return ok && a == b
	case *Vec:
		b, ok := y.(*Vec)
		return ok && a == b
	case *Map:
		b, ok := y.(*Map)
		return ok && a == b
	case *Coroutine:
		b, ok := y.(*Coroutine)
		return ok && a == b
	default:
		return x == y
	}
}

// Compare implements `<`, `<=`, `>`, `>=` for the ordered kinds: int,
// float (mixed numeric comparisons allowed), and string (byte-wise).
func Compare(x, y Value) (int, error) {
	switch a := x.(type) {
	case Int:
		switch b := y.(type) {
		case Int:
			return cmpInt(int64(a), int64(b)), nil
		case Float:
			return cmpFloat(float64(a), float64(b)), nil
		}
	case Float:
		switch b := y.(type) {
		case Float:
			return cmpFloat(float64(a), float64(b)), nil
		case Int:
			return cmpFloat(float64(a), float64(b)), nil
		}
	case Str:
		if b, ok := y.(Str); ok {
			switch {
			case a < b:
				return -1, nil
			case a > b:
				return 1, nil
			default:
				return 0, nil
			}
		}
	}
	return 0, fmt.Errorf("cannot compare %s and %s", x.Type(), y.Type())
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Add implements `+` and the string-concatenation-adjacent numeric paths;
// CONCAT is handled separately in vm.go since it always stringifies.
func Add(x, y Value) (Value, error) {
	switch a := x.(type) {
	case Int:
		if b, ok := y.(Int); ok {
			return a + b, nil
		}
		if b, ok := y.(Float); ok {
			return Float(float64(a)) + b, nil
		}
	case Float:
		if b, ok := y.(Float); ok {
			return a + b, nil
		}
		if b, ok := y.(Int); ok {
			return a + Float(float64(b)), nil
		}
	}
	return nil, fmt.Errorf("cannot add %s and %s", x.Type(), y.Type())
}

func arith(x, y Value, iop func(a, b int64) int64, fop func(a, b float64) float64, name string) (Value, error) {
	switch a := x.(type) {
	case Int:
		if b, ok := y.(Int); ok {
			return Int(iop(int64(a), int64(b))), nil
		}
		if b, ok := y.(Float); ok {
			return Float(fop(float64(a), float64(b))), nil
		}
	case Float:
		if b, ok := y.(Float); ok {
			return Float(fop(float64(a), float64(b))), nil
		}
		if b, ok := y.(Int); ok {
			return Float(fop(float64(a), float64(b))), nil
		}
	}
	return nil, fmt.Errorf("cannot %s %s and %s", name, x.Type(), y.Type())
}

func Sub(x, y Value) (Value, error) {
	return arith(x, y, func(a, b int64) int64 { return a - b }, func(a, b float64) float64 { return a - b }, "subtract")
}

func Mul(x, y Value) (Value, error) {
	return arith(x, y, func(a, b int64) int64 { return a * b }, func(a, b float64) float64 { return a * b }, "multiply")
}

func Div(x, y Value) (Value, error) {
	switch a := x.(type) {
	case Int:
		switch b := y.(type) {
		case Int:
			if b == 0 {
				return nil, fmt.Errorf("division by zero")
			}
			return Float(float64(a) / float64(b)), nil
		case Float:
			return Float(float64(a)) / b, nil
		}
	case Float:
		switch b := y.(type) {
		case Float:
			return a / b, nil
		case Int:
			return a / Float(float64(b)), nil
		}
	}
	return nil, fmt.Errorf("cannot divide %s and %s", x.Type(), y.Type())
}

// Mod implements `%`. Integer operands use Go's truncating remainder;
// float operands are a type error (DESIGN.md Open Question 4).
func Mod(x, y Value) (Value, error) {
	a, aok := x.(Int)
	b, bok := y.(Int)
	if !aok || !bok {
		return nil, fmt.Errorf("mod requires integer operands, got %s and %s", x.Type(), y.Type())
	}
	if b == 0 {
		return nil, fmt.Errorf("division by zero")
	}
	return a % b, nil
}

func Neg(x Value) (Value, error) {
	switch a := x.(type) {
	case Int:
		return -a, nil
	case Float:
		return -a, nil
	}
	return nil, fmt.Errorf("cannot negate %s", x.Type())
}

// ToString renders v the way print/CONCAT/STRING do: ints decimal, floats
// %e, strings literal, containers as placeholders.
func ToString(v Value) string {
	switch x := v.(type) {
	case *Vec:
		return "vec[]"
	case *Map:
		return "map[]"
	default:
		return x.String()
	}
}

// IsNaN reports whether v is a float NaN, used by Compare callers that
// want to reject unordered comparisons explicitly if ever needed.
func IsNaN(v Value) bool {
	f, ok := v.(Float)
	return ok && math.IsNaN(float64(f))
}
