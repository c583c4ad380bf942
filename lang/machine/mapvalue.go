package machine

import (
	"fmt"
	"math"

	"github.com/dolthub/swiss"
)

// Map is a reference-counted, mutable mapping from value to value,
// preserving a smudged flag and an optional prototype link (`meta`). It is
// backed by a github.com/dolthub/swiss table for the common hashable-key
// case (bool/int/float/string) with the meta-chain / per-kind super-map
// fallback and the smudged flag layered on top (see DESIGN.md).
type Map struct {
	buckets  *swiss.Map[Value, Value]
	refs     int32
	meta     *Map
	smudged  bool
	in       *Interpreter
}

var _ Value = (*Map)(nil)

// bucketCount mirrors "small prime bucket count, e.g. 17" as the
// swiss.Map's initial capacity hint; swiss grows past this as needed.
const bucketCount = 17

// NewMap allocates an empty map with room for at least size entries.
func NewMap(in *Interpreter, size int) *Map {
	if size < bucketCount {
		size = bucketCount
	}
	if in != nil {
		in.mustAlloc(KindMap, 1)
	}
	return &Map{buckets: swiss.NewMap[Value, Value](uint32(size)), refs: 1, in: in}
}

func (m *Map) String() string { return fmt.Sprintf("map[%d]", m.buckets.Count()) }
func (m *Map) Type() string   { return "map" }

// Count returns the number of entries in this map's own bucket table (not
// following meta).
func (m *Map) Count() int { return m.buckets.Count() }

// canonicalKey normalizes a map key so cross-kind numeric equality
// ("numeric kinds compare by mathematical value") holds for keys too: an
// integral float canonicalizes to the equivalent Int, so t[1] and t[1.0]
// address the same bucket slot.
func canonicalKey(k Value) Value {
	if f, ok := k.(Float); ok {
		if ff := float64(f); ff == math.Trunc(ff) && !math.IsInf(ff, 0) {
			return Int(int64(ff))
		}
	}
	return k
}

// GetLocal looks up k in this map's own bucket table only, without
// following meta or the super-map fallback.
func (m *Map) GetLocal(k Value) (Value, bool) {
	return m.buckets.Get(canonicalKey(k))
}

// Get implements the lookup order: entry in the map, then via the meta
// link. The per-kind super-map fallback is not applied here; member lookup
// (lookupMember) adds it. visited guards against a cyclic
// meta chain (DESIGN.md Open Question 1): a revisited map during the chain
// walk stops the search instead of looping forever.
func (m *Map) Get(k Value) (Value, bool) {
	return m.get(k, make(map[*Map]bool))
}

func (m *Map) get(k Value, visited map[*Map]bool) (Value, bool) {
	if visited[m] {
		return Nil, false
	}
	visited[m] = true
	if v, ok := m.buckets.Get(canonicalKey(k)); ok {
		return v, true
	}
	if m.meta != nil {
		if v, ok := m.meta.get(k, visited); ok {
			return v, true
		}
	}
	return Nil, false
}

// SetKey inserts or overwrites k -> v in this map's own bucket table,
// discarding the previous value: "Insertion discards the
// previous value."
func (m *Map) SetKey(k, v Value) {
	ck := canonicalKey(k)
	if old, ok := m.buckets.Get(ck); ok {
		discard(m.in, old)
	}
	m.buckets.Put(ck, v)
}

// Delete removes k from this map's own bucket table, discarding its value.
func (m *Map) Delete(k Value) {
	ck := canonicalKey(k)
	if old, ok := m.buckets.Get(ck); ok {
		discard(m.in, old)
		m.buckets.Delete(ck)
	}
}

// Meta returns the prototype pointer.
func (m *Map) Meta() *Map { return m.meta }

// SetMeta sets the prototype pointer per inherit(child, parent) semantics:
// child.meta = parent bumps parent's refcount and drops the
// previously-held meta's reference, if any.
func (m *Map) SetMeta(parent *Map) {
	if m.meta != nil {
		m.meta.Decref(m.in)
	}
	if parent != nil {
		parent.Incref()
	}
	m.meta = parent
}

// Smudged reports whether this is a "pure value" scope used to build map
// literals or blocks whose bindings must not leak into name lookup.
func (m *Map) Smudged() bool { return m.smudged }

// SetSmudged marks the scope smudged.
func (m *Map) SetSmudged() { m.smudged = true }

// Keys returns every key in this map's own bucket table, in the swiss
// map's unspecified iteration order: callers must not depend on a
// particular order, only that each key appears exactly once.
func (m *Map) Keys() []Value {
	keys := make([]Value, 0, m.buckets.Count())
	m.buckets.Iter(func(k, _ Value) bool {
		keys = append(keys, k)
		return false
	})
	return keys
}

// Values returns every value in this map's own bucket table, in the same
// order as Keys.
func (m *Map) Values() []Value {
	vals := make([]Value, 0, m.buckets.Count())
	m.buckets.Iter(func(_, v Value) bool {
		vals = append(vals, v)
		return false
	})
	return vals
}

// Incref bumps the reference count.
func (m *Map) Incref() { m.refs++ }

// Decref drops one reference, freeing the map (discarding every contained
// value and releasing its meta reference) when it reaches zero.
func (m *Map) Decref(in *Interpreter) {
	m.refs--
	if m.refs > 0 {
		return
	}
	m.buckets.Iter(func(_, v Value) bool {
		discard(in, v)
		return false
	})
	if m.meta != nil {
		m.meta.Decref(in)
	}
	if in != nil {
		in.budget.Free(KindMap, 1)
	}
}
