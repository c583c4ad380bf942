package machine

import "fmt"

// Vec is a reference-counted, mutable, ordered sequence of values, a thin
// named-slice wrapper that supports in-place Set/append (the ARRAY opcode
// and the vec-literal and indexing paths).
type Vec struct {
	elems []Value
	refs  int32
	in    *Interpreter
}

var _ Value = (*Vec)(nil)

// NewVec allocates a vec seeded with elems (ownership of elems transfers to
// the Vec: callers should not reuse the slice). Every allocation is
// recorded against the interpreter's heap Budget.
func NewVec(in *Interpreter, elems []Value) *Vec {
	if in != nil {
		in.mustAlloc(KindVec, 1)
	}
	return &Vec{elems: elems, refs: 1, in: in}
}

func (v *Vec) String() string { return fmt.Sprintf("vec[%d]", len(v.elems)) }
func (v *Vec) Type() string   { return "vec" }

// Len returns the number of elements.
func (v *Vec) Len() int { return len(v.elems) }

// Get returns the value at index i, or Nil if i is out of range (the
// FOR/indexing opcodes rely on out-of-range reads failing softly rather
// than panicking, matching the language's permissive indexing).
func (v *Vec) Get(i int64) Value {
	if i < 0 || i >= int64(len(v.elems)) {
		return Nil
	}
	return v.elems[i]
}

// Set implements Vec semantics: "Set at index i >= count
// appends. Set at i < count drops the old value and replaces." Indices
// between the current length and i are padded with Nil, matching the
// language's permissive out-of-range write.
func (v *Vec) Set(i int64, val Value) {
	switch {
	case i < 0:
		return
	case i < int64(len(v.elems)):
		discard(v.in, v.elems[i])
		v.elems[i] = val
	case i == int64(len(v.elems)):
		v.elems = append(v.elems, val)
	default:
		for int64(len(v.elems)) < i {
			v.elems = append(v.elems, Nil)
		}
		v.elems = append(v.elems, val)
	}
}

// Append adds val to the end.
func (v *Vec) Append(val Value) { v.elems = append(v.elems, val) }

// Elems returns the underlying slice for iteration (FOR, KEYS, VALUES);
// callers must not mutate it.
func (v *Vec) Elems() []Value { return v.elems }

// Incref bumps the reference count ownership invariants.
func (v *Vec) Incref() { v.refs++ }

// Decref drops one reference, freeing the vec (and discarding every
// contained value: "freeing it... drops every contained
// value") when it reaches zero.
func (v *Vec) Decref(in *Interpreter) {
	v.refs--
	if v.refs > 0 {
		return
	}
	for _, e := range v.elems {
		discard(in, e)
	}
	if in != nil {
		in.budget.Free(KindVec, 1)
	}
}
