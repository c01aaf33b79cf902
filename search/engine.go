// Package search finds the best move for the side to move with an
// iteratively deepened alpha-beta search, a quiescence search and a set of
// selective pruning techniques. Extra threads run Lazy SMP helpers that
// share the transposition cache.
package search

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/shogiban/kairos/search/pruning"
	"github.com/shogiban/kairos/search/ttable"
	"github.com/shogiban/kairos/shogi"
	"github.com/shogiban/kairos/zobrist"
)

// Result is the outcome of one search.
type Result struct {
	SearchID string
	BestMove shogi.Move
	// Score is from the side to move's point of view. Mate is set when it
	// encodes a forced mate.
	Score        int
	Mate         bool
	DepthReached int
	PV           []shogi.Move
	Stats        Snapshot
	Elapsed      time.Duration
}

// MatePlies returns the signed distance to mate in plies, or 0.
func (r Result) MatePlies() int {
	if !r.Mate {
		return 0
	}
	return MatePlies(r.Score)
}

type Engine struct {
	mu sync.Mutex

	opts    Options
	eval    Evaluator
	pruner  *pruning.Engine
	zobrist *zobrist.Zobrist
	cache   ttable.Cache
	stats   Statistics
	main    *worker
}

func NewEngine(opts Options, ev Evaluator) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	pruner, err := pruning.NewEngine(opts.pruningParams())
	if err != nil {
		return nil, err
	}
	size := ttable.SizeBytes(opts.TTSizeMB, opts.TTMemoryFraction)
	var cache ttable.Cache
	if opts.Threads > 1 {
		cache, err = ttable.NewShared(size)
	} else {
		cache, err = ttable.New(size)
	}
	if err != nil {
		return nil, err
	}
	z := &zobrist.Zobrist{}
	z.Initialize()

	e := &Engine{
		opts:    opts,
		eval:    ev,
		pruner:  pruner,
		zobrist: z,
		cache:   cache,
	}
	e.main = newWorker(0, e)
	return e, nil
}

func (e *Engine) Options() Options {
	return e.opts
}

// Hasher returns the fingerprint generator. Callers use it to build the
// game history passed in Limits.
func (e *Engine) Hasher() *zobrist.Zobrist {
	return e.zobrist
}

// Statistics returns the counters of the current or most recent search.
func (e *Engine) Statistics() Snapshot {
	return e.stats.Snapshot()
}

// CacheStats returns the transposition cache's own counters.
func (e *Engine) CacheStats() ttable.Stats {
	return e.cache.Stats()
}

// Clear forgets everything learned in earlier searches.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache.Clear()
	e.main.orderer.Clear()
}

func (e *Engine) limits(l Limits) (int, time.Duration) {
	if l.Infinite {
		return MaxDepth, 0
	}
	depth, moveTime := l.Depth, l.MoveTime
	if depth == 0 {
		depth = e.opts.Depth
	}
	if moveTime == 0 {
		moveTime = e.opts.MoveTime
	}
	return min(depth, MaxDepth), moveTime
}

// Search looks for the best move at b. The board is restored before Search
// returns. Searches on one engine are serialized.
func (e *Engine) Search(ctx context.Context, b Board, l Limits) (Result, error) {
	if l.Depth < 0 || l.MoveTime < 0 {
		return Result{}, ErrInvalidOptions
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	tstart := time.Now()
	depth, moveTime := e.limits(l)
	result := Result{SearchID: uuid.NewString()}
	log.Debug().Str("search-id", result.SearchID).Int("depth", depth).
		Dur("move-time", moveTime).Int("threads", e.opts.Threads).Msg("search-config")

	e.stats.reset()
	e.cache.NewSearch()
	e.main.orderer.ClearKillers()

	us := b.SideToMove()
	moves := b.LegalMoves(nil)
	switch len(moves) {
	case 0:
		result.Score = DrawScore
		if b.InCheck(us) {
			result.Score = MatedIn(0)
			result.Mate = true
		}
		return e.finish(result, tstart), nil
	case 1:
		result.BestMove = moves[0]
		result.PV = []shogi.Move{moves[0]}
		result.Score = e.eval.StaticScore(b, us)
		return e.finish(result, tstart), nil
	}

	var deadline time.Time
	if moveTime > 0 {
		deadline = tstart.Add(moveTime)
	}
	root := e.main.reset(ctx, b, deadline, l.History)

	helperCtx, cancelHelpers := context.WithCancel(ctx)
	defer cancelHelpers()
	g := &errgroup.Group{}
	e.startHelpers(g, helperCtx, b, deadline, depth, l.History)

	done := make(chan bool)
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		var lastNodes uint64
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				nodes := e.stats.nodes.Load()
				log.Debug().Uint64("nps", nodes-lastNodes).Msg("nodes-per-second")
				lastNodes = nodes
			}
		}
	}()

	log.Debug().Msgf("Using iterative deepening with %v max plies", depth)
	err := e.main.deepen(root, 1, depth, func(d, score int, pv *PVLine) bool {
		result.BestMove = pv.GetPVMove()
		result.Score = score
		result.Mate = IsMateScore(score)
		result.DepthReached = d
		result.PV = slices.Clone(pv.Moves)
		result.Stats = e.stats.Snapshot()
		result.Elapsed = time.Since(tstart)
		log.Info().Str("search-id", result.SearchID).Int("score", score).Int("depth", d).
			Str("pv", pv.USI()).Msg("best-val")
		if l.Progress != nil {
			l.Progress(result)
		}
		// an infinite search runs until stop, found mate or not
		if !l.Infinite && result.Mate && abs(MatePlies(score)) <= d {
			return false
		}
		// another iteration would not finish in time
		return moveTime == 0 || time.Since(tstart) <= moveTime/2
	})
	e.main.leave(root)
	close(done)
	cancelHelpers()
	if herr := g.Wait(); herr != nil {
		return Result{}, herr
	}
	if err != nil && !errors.Is(err, errSearchAborted) {
		return Result{}, err
	}

	if result.BestMove == shogi.NoMove {
		hint := shogi.NoMove
		if entry, ok := e.cache.Probe(root.hash); ok {
			hint = entry.Move
		}
		moves = e.main.orderer.Order(b, b.LegalMoves(moves), hint, 0)
		result.BestMove = moves[0]
		result.PV = []shogi.Move{moves[0]}
		result.Score = e.eval.StaticScore(b, us)
		result.DepthReached = 0
		log.Warn().Str("search-id", result.SearchID).Msg("no-iteration-completed")
	}
	return e.finish(result, tstart), nil
}

// startHelpers launches the Lazy SMP helpers. They search copies of the
// board and talk to the main worker only through the cache.
func (e *Engine) startHelpers(g *errgroup.Group, ctx context.Context, b Board,
	deadline time.Time, depth int, history []uint64) {

	if e.opts.Threads < 2 {
		return
	}
	c, ok := b.(Cloner)
	if !ok {
		log.Warn().Msg("board cannot be cloned; searching single-threaded")
		return
	}
	for t := 1; t < e.opts.Threads; t++ {
		helper := newWorker(t, e)
		helper.shuffleRoot = t%2 == 0
		root := helper.reset(ctx, c.Clone(), deadline, history)
		g.Go(func() error {
			log.Debug().Int("thread", helper.id).Msg("helper-starting")
			err := helper.deepen(root, 1+helper.id%2, depth, func(d, score int, pv *PVLine) bool {
				log.Debug().Int("thread", helper.id).Int("depth", d).Int("score", score).Msg("helper-iteration")
				return true
			})
			if errors.Is(err, errSearchAborted) {
				return nil
			}
			return err
		})
	}
}

func (e *Engine) finish(result Result, tstart time.Time) Result {
	result.Stats = e.stats.Snapshot()
	result.Elapsed = time.Since(tstart)
	log.Info().
		Str("search-id", result.SearchID).
		Str("best-move", result.BestMove.String()).
		Int("score", result.Score).
		Int("depth", result.DepthReached).
		Uint64("nodes", result.Stats.Nodes).
		Float64("cache-hit-rate", result.Stats.CacheHitRate()).
		Float64("time-elapsed-sec", result.Elapsed.Seconds()).
		Msg("search-returning")
	return result
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
