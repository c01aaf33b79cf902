// Package ttable stores search results keyed by position fingerprint.
//
// Two implementations share the Cache interface: Table is a plain slice of
// entries for a single search thread, and Shared packs each entry into two
// 64-bit words updated atomically so several workers can probe and store
// concurrently. Both are lossy. Collisions resolve by replacement.
package ttable

import (
	"errors"

	"github.com/shogiban/kairos/shogi"
)

var ErrZeroCapacity = errors.New("transposition table capacity must be positive")

type Bound uint8

const (
	BoundNone Bound = iota
	BoundExact
	BoundLower
	BoundUpper
)

func (b Bound) String() string {
	switch b {
	case BoundExact:
		return "exact"
	case BoundLower:
		return "lower"
	case BoundUpper:
		return "upper"
	}
	return "none"
}

// Entry is the result of a finished subtree. Entries are replaced wholesale,
// never mutated in their slot.
type Entry struct {
	Key        uint64
	Move       shogi.Move
	Score      int
	Depth      int
	Bound      Bound
	Generation uint8
}

func (e Entry) Valid() bool {
	return e.Bound != BoundNone
}

// Cache is the surface the search uses.
type Cache interface {
	Probe(key uint64) (Entry, bool)
	// Store stamps e with the current generation and applies the
	// replacement policy.
	Store(e Entry)
	// NewSearch ages every stored entry by one generation.
	NewSearch()
	Clear()
	Capacity() int
	Stats() Stats
}

type Stats struct {
	Probes     uint64
	Hits       uint64
	Stores     uint64
	Collisions uint64
}

func (s Stats) HitRate() float64 {
	if s.Probes == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Probes)
}

// replaces reports whether e should overwrite old in the same slot.
//
// Empty slots always take the new entry. A different position is evicted by
// an entry at least as deep, or by anything once the occupant is from an
// earlier search. The same position is overwritten by a deeper result, by an
// exact bound over a non-exact one, or by a result from a newer search.
func replaces(old, e Entry) bool {
	if !old.Valid() {
		return true
	}
	if old.Key != e.Key {
		return e.Depth >= old.Depth || old.Generation != e.Generation
	}
	switch {
	case e.Depth > old.Depth:
		return true
	case e.Bound == BoundExact && old.Bound != BoundExact:
		return true
	}
	// stored generations never run ahead of the current one
	return e.Generation != old.Generation
}
