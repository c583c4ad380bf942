package machine

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// Kind identifies one of the per-value-kind arenas the original source
// tracks with a page-bitmap allocator. This implementation
// replaces the bitmap with a plain counter: Go's allocator and GC already
// provide memory safety, so only the observable created/destroyed/limit
// bookkeeping needs to survive the port.
type Kind int

const (
	KindHeap Kind = iota
	KindInt
	KindFloat
	KindStr
	KindVec
	KindMap
	KindCor

	numKinds
)

func (k Kind) String() string {
	switch k {
	case KindHeap:
		return "heap"
	case KindInt:
		return "ints"
	case KindFloat:
		return "dbls"
	case KindStr:
		return "strs"
	case KindVec:
		return "vecs"
	case KindMap:
		return "maps"
	case KindCor:
		return "cors"
	default:
		return "?"
	}
}

// avgValueSize is a conservative fixed per-value-kind size estimate (bytes)
// used to compute Used() against a byte Limit: real accounting isn't needed
// to preserve the allocation-exhaustion contract, only a monotonic counter
// that can be compared to a configured budget.
var avgValueSize = [numKinds]int{
	KindHeap:  64,
	KindInt:   8,
	KindFloat: 8,
	KindStr:   32,
	KindVec:   48,
	KindMap:   96,
	KindCor:   256,
}

// Budget tracks, per Kind, how many values have been created and destroyed
// and a byte limit derived from the -m/--memory flag. It stands in for a
// bump-arena-plus-page-bitmap allocator, scaled down to what a memory-safe
// host needs to keep the same observable contract: exhaustion is fatal,
// and status() reports the same three keys per arena.
type Budget struct {
	limitBytes [numKinds]int64
	created    [numKinds]int64
	destroyed  [numKinds]int64
}

// NewBudget creates a Budget where every kind shares the same total byte
// limit, matching the single `-m MB` flag: the original arena
// allocator carves one fixed page pool per kind out of the same process
// budget, and a single shared limit is the simplest host-native analog.
func NewBudget(totalBytes int64) *Budget {
	b := &Budget{}
	for k := Kind(0); k < numKinds; k++ {
		b.limitBytes[k] = totalBytes
	}
	return b
}

// Alloc records the creation of n values of kind k, returning an
// ArenaExhaustedError if doing so would exceed the kind's byte limit.
func (b *Budget) Alloc(k Kind, n int64) error {
	b.created[k] += n
	if b.Used(k) > b.limitBytes[k] {
		return &ArenaExhaustedError{Kind: k, Limit: b.limitBytes[k], Used: b.Used(k)}
	}
	return nil
}

// Free records the destruction of n values of kind k.
func (b *Budget) Free(k Kind, n int64) {
	b.destroyed[k] += n
}

// Used returns the estimated bytes currently live for kind k.
func (b *Budget) Used(k Kind) int64 {
	live := b.created[k] - b.destroyed[k]
	if live < 0 {
		live = 0
	}
	return live * int64(avgValueSize[k])
}

// Live returns created-destroyed for kind k, the exact count used by
// property 1 (refcount balance): after Run returns, Live must be zero for
// every kind except the long-lived roots.
func (b *Budget) Live(k Kind) int64 { return b.created[k] - b.destroyed[k] }

// ArenaExhaustedError is a fatal error: no free pages for a value kind.
type ArenaExhaustedError struct {
	Kind  Kind
	Limit int64
	Used  int64
}

func (e *ArenaExhaustedError) Error() string {
	return fmt.Sprintf("arena exhausted: %s wants %s but limit is %s", e.Kind, humanize.Bytes(uint64(e.Used)), humanize.Bytes(uint64(e.Limit)))
}

// Status builds the map returned by the status() builtin: for
// each arena, <name>_mem/<name>_limit/<name>_used, plus an additive
// <name>_human key with a humanize.Bytes rendering of the used figure.
func (b *Budget) Status(in *Interpreter) *Map {
	m := NewMap(in, int(numKinds)*4)
	for k := Kind(0); k < numKinds; k++ {
		name := k.String()
		used := b.Used(k)
		m.SetKey(Str(name+"_mem"), Int(b.limitBytes[k]))
		m.SetKey(Str(name+"_limit"), Int(b.limitBytes[k]))
		m.SetKey(Str(name+"_used"), Int(used))
		m.SetKey(Str(name+"_human"), Str(humanize.Bytes(uint64(used))))
	}
	return m
}
