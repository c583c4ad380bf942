package machine

// copyValue returns a reference equivalent to v (ownership
// invariants): immutable kinds (nil, bool, int, float, str) are plain Go
// values, so "duplicating" them is simply returning v; containers instead
// bump their refcount. Every move through a stack cell, map value, vec
// cell, or instruction literal must pair copyValue with discard so that
// totals balance (property 1).
func copyValue(v Value) Value {
	switch x := v.(type) {
	case *Vec:
		x.Incref()
	case *Map:
		x.Incref()
	case *Coroutine:
		x.Incref()
	}
	return v
}

// discard is the inverse of copyValue with respect to a single reference.
func discard(in *Interpreter, v Value) {
	switch x := v.(type) {
	case *Vec:
		x.Decref(in)
	case *Map:
		x.Decref(in)
	case *Coroutine:
		x.Decref(in)
	}
}
