package ttable

import (
	"math"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/shogiban/kairos/shogi"
)

const sharedEntrySize = 16

const (
	moveBits  = 24
	scoreBits = 16
	depthBits = 8
	boundBits = 2

	scoreShift = moveBits
	depthShift = scoreShift + scoreBits
	boundShift = depthShift + depthBits
	genShift   = boundShift + boundBits
)

// slot holds an entry as two words. check is key^data, so a torn write
// (data from one store, check from another) fails verification on probe and
// reads as a miss.
type slot struct {
	check atomic.Uint64
	data  atomic.Uint64
}

// Shared is a lock-free cache for concurrent search workers. Stores race
// with last write winning.
type Shared struct {
	slots      []slot
	mask       uint64
	generation atomic.Uint32
	counters
}

func NewShared(sizeBytes uint64) (*Shared, error) {
	n, err := capacityFor(sizeBytes, sharedEntrySize)
	if err != nil {
		return nil, err
	}
	log.Info().Int("num-elems", n).
		Uint64("requested-bytes", sizeBytes).
		Int("estimated-total-memory-bytes", n*sharedEntrySize).
		Bool("shared", true).
		Msg("transposition-table-size")
	return &Shared{slots: make([]slot, n), mask: uint64(n - 1)}, nil
}

func pack(e Entry) uint64 {
	score := e.Score
	if score > math.MaxInt16 {
		score = math.MaxInt16
	} else if score < math.MinInt16 {
		score = math.MinInt16
	}
	depth := e.Depth
	if depth < 0 {
		depth = 0
	} else if depth > math.MaxUint8 {
		depth = math.MaxUint8
	}
	return uint64(e.Move)&(1<<moveBits-1) |
		uint64(uint16(int16(score)))<<scoreShift |
		uint64(depth)<<depthShift |
		uint64(e.Bound)<<boundShift |
		uint64(e.Generation)<<genShift
}

func unpack(key, data uint64) Entry {
	return Entry{
		Key:        key,
		Move:       shogi.Move(data & (1<<moveBits - 1)),
		Score:      int(int16(uint16(data >> scoreShift))),
		Depth:      int(uint8(data >> depthShift)),
		Bound:      Bound(data>>boundShift) & (1<<boundBits - 1),
		Generation: uint8(data >> genShift),
	}
}

func (t *Shared) load(s *slot) (uint64, Entry) {
	data := s.data.Load()
	key := s.check.Load() ^ data
	return key, unpack(key, data)
}

func (t *Shared) Probe(key uint64) (Entry, bool) {
	t.probes.Add(1)
	k, e := t.load(&t.slots[key&t.mask])
	if !e.Valid() {
		return Entry{}, false
	}
	if k != key {
		t.collisions.Add(1)
		return Entry{}, false
	}
	t.hits.Add(1)
	return e, true
}

func (t *Shared) Store(e Entry) {
	e.Generation = uint8(t.generation.Load())
	s := &t.slots[e.Key&t.mask]
	if _, old := t.load(s); !replaces(old, e) {
		return
	}
	data := pack(e)
	s.check.Store(e.Key ^ data)
	s.data.Store(data)
	t.stores.Add(1)
}

func (t *Shared) NewSearch() {
	t.generation.Add(1)
}

// Clear must not run concurrently with a search.
func (t *Shared) Clear() {
	for i := range t.slots {
		t.slots[i].check.Store(0)
		t.slots[i].data.Store(0)
	}
	t.generation.Store(0)
	t.reset()
}

func (t *Shared) Capacity() int {
	return len(t.slots)
}

func (t *Shared) Stats() Stats {
	return t.snapshot()
}
