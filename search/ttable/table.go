package ttable

import (
	"math/bits"
	"sync/atomic"
	"unsafe"

	"github.com/pbnjay/memory"
	"github.com/rs/zerolog/log"
)

// SizeBytes resolves a configured table size. A positive sizeMB wins;
// otherwise the size is fraction of total system memory.
func SizeBytes(sizeMB int, fraction float64) uint64 {
	if sizeMB > 0 {
		return uint64(sizeMB) << 20
	}
	if fraction <= 0 {
		return 0
	}
	return uint64(fraction * float64(memory.TotalMemory()))
}

// capacityFor returns the largest power of two number of entries that fits
// in sizeBytes.
func capacityFor(sizeBytes uint64, entrySize uintptr) (int, error) {
	n := sizeBytes / uint64(entrySize)
	if n == 0 {
		return 0, ErrZeroCapacity
	}
	return 1 << (bits.Len64(n) - 1), nil
}

type counters struct {
	probes     atomic.Uint64
	hits       atomic.Uint64
	stores     atomic.Uint64
	collisions atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Probes:     c.probes.Load(),
		Hits:       c.hits.Load(),
		Stores:     c.stores.Load(),
		Collisions: c.collisions.Load(),
	}
}

func (c *counters) reset() {
	c.probes.Store(0)
	c.hits.Store(0)
	c.stores.Store(0)
	c.collisions.Store(0)
}

// Table is the single-writer cache. Reads and writes are unsynchronised.
type Table struct {
	entries    []Entry
	mask       uint64
	generation uint8
	counters
}

// New allocates a Table of at most sizeBytes.
func New(sizeBytes uint64) (*Table, error) {
	n, err := capacityFor(sizeBytes, unsafe.Sizeof(Entry{}))
	if err != nil {
		return nil, err
	}
	log.Info().Int("num-elems", n).
		Uint64("requested-bytes", sizeBytes).
		Int("estimated-total-memory-bytes", n*int(unsafe.Sizeof(Entry{}))).
		Msg("transposition-table-size")
	return &Table{entries: make([]Entry, n), mask: uint64(n - 1)}, nil
}

func (t *Table) Probe(key uint64) (Entry, bool) {
	t.probes.Add(1)
	e := t.entries[key&t.mask]
	if !e.Valid() {
		return Entry{}, false
	}
	if e.Key != key {
		t.collisions.Add(1)
		return Entry{}, false
	}
	t.hits.Add(1)
	return e, true
}

func (t *Table) Store(e Entry) {
	e.Generation = t.generation
	slot := &t.entries[e.Key&t.mask]
	if !replaces(*slot, e) {
		return
	}
	*slot = e
	t.stores.Add(1)
}

func (t *Table) NewSearch() {
	t.generation++
}

func (t *Table) Clear() {
	clear(t.entries)
	t.generation = 0
	t.reset()
}

func (t *Table) Capacity() int {
	return len(t.entries)
}

func (t *Table) Stats() Stats {
	return t.snapshot()
}
