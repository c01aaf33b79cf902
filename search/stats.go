package search

import (
	"sync/atomic"

	"github.com/shogiban/kairos/search/pruning"
)

// Statistics is written by the search workers and readable at any time.
type Statistics struct {
	nodes         atomic.Uint64
	qnodes        atomic.Uint64
	cacheProbes   atomic.Uint64
	cacheHits     atomic.Uint64
	cacheStores   atomic.Uint64
	betaCutoffs   atomic.Uint64
	iidSearches   atomic.Uint64
	futility      atomic.Uint64
	delta         atomic.Uint64
	razoring      atomic.Uint64
	lmr           atomic.Uint64
	lmrResearches atomic.Uint64
	multiCut      atomic.Uint64
}

// Snapshot is a point-in-time copy of Statistics.
type Snapshot struct {
	Nodes         uint64 `json:"nodes"`
	QNodes        uint64 `json:"qnodes"`
	CacheProbes   uint64 `json:"cache_probes"`
	CacheHits     uint64 `json:"cache_hits"`
	CacheStores   uint64 `json:"cache_stores"`
	BetaCutoffs   uint64 `json:"beta_cutoffs"`
	IIDSearches   uint64 `json:"iid_searches"`
	Futility      uint64 `json:"futility"`
	Delta         uint64 `json:"delta"`
	Razoring      uint64 `json:"razoring"`
	LMR           uint64 `json:"lmr"`
	LMRResearches uint64 `json:"lmr_researches"`
	MultiCut      uint64 `json:"multi_cut"`
}

func (s Snapshot) CacheHitRate() float64 {
	if s.CacheProbes == 0 {
		return 0
	}
	return float64(s.CacheHits) / float64(s.CacheProbes)
}

// Prunes returns the per-technique counts keyed by technique name.
func (s Snapshot) Prunes() map[string]uint64 {
	return map[string]uint64{
		pruning.Futility.String(): s.Futility,
		pruning.Delta.String():    s.Delta,
		pruning.Razoring.String(): s.Razoring,
		pruning.LMR.String():      s.LMR,
		pruning.MultiCut.String(): s.MultiCut,
	}
}

func (s *Statistics) Snapshot() Snapshot {
	return Snapshot{
		Nodes:         s.nodes.Load(),
		QNodes:        s.qnodes.Load(),
		CacheProbes:   s.cacheProbes.Load(),
		CacheHits:     s.cacheHits.Load(),
		CacheStores:   s.cacheStores.Load(),
		BetaCutoffs:   s.betaCutoffs.Load(),
		IIDSearches:   s.iidSearches.Load(),
		Futility:      s.futility.Load(),
		Delta:         s.delta.Load(),
		Razoring:      s.razoring.Load(),
		LMR:           s.lmr.Load(),
		LMRResearches: s.lmrResearches.Load(),
		MultiCut:      s.multiCut.Load(),
	}
}

func (s *Statistics) reset() {
	for _, c := range []*atomic.Uint64{
		&s.nodes, &s.qnodes, &s.cacheProbes, &s.cacheHits, &s.cacheStores,
		&s.betaCutoffs, &s.iidSearches, &s.futility, &s.delta, &s.razoring,
		&s.lmr, &s.lmrResearches, &s.multiCut,
	} {
		c.Store(0)
	}
}

func (s *Statistics) prune(t pruning.Technique) {
	switch t {
	case pruning.Futility:
		s.futility.Add(1)
	case pruning.Delta:
		s.delta.Add(1)
	case pruning.Razoring:
		s.razoring.Add(1)
	case pruning.LMR:
		s.lmr.Add(1)
	case pruning.MultiCut:
		s.multiCut.Add(1)
	}
}
