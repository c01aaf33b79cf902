package search

import (
	"context"
	"errors"
	"os"
	"slices"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/rs/zerolog"

	"github.com/shogiban/kairos/eval"
	"github.com/shogiban/kairos/search/ttable"
	"github.com/shogiban/kairos/shogi"
	"github.com/shogiban/kairos/testhelpers"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	os.Exit(m.Run())
}

func newTestEngine(t *testing.T, modify func(*Options)) *Engine {
	t.Helper()
	opts := DefaultOptions()
	opts.TTSizeMB = 1
	if modify != nil {
		modify(&opts)
	}
	e, err := NewEngine(opts, eval.Material{})
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func isLegal(p *shogi.Position, m shogi.Move) bool {
	return slices.Contains(p.LegalMoves(nil), m)
}

func TestSearchStartPosition(t *testing.T) {
	is := is.New(t)
	e := newTestEngine(t, nil)
	pos := shogi.NewStartPosition()
	before := pos.SFEN()

	res, err := e.Search(context.Background(), pos, Limits{Depth: 4})
	is.NoErr(err)
	is.Equal(res.DepthReached, 4)
	is.True(isLegal(pos, res.BestMove))
	is.True(!res.Mate)
	is.Equal(res.PV[0], res.BestMove)
	is.True(res.SearchID != "")
	is.Equal(pos.SFEN(), before)
	// the path bookkeeping is balanced once the search unwinds
	is.Equal(len(e.main.path), 0)
}

func TestSearchOnlyMove(t *testing.T) {
	is := is.New(t)
	e := newTestEngine(t, nil)
	pos := testhelpers.MustParse(testhelpers.OnlyMoveSFEN)

	res, err := e.Search(context.Background(), pos, Limits{Depth: 6})
	is.NoErr(err)
	is.Equal(res.BestMove.String(), testhelpers.OnlyMoveBest)
	is.Equal(res.DepthReached, 0)
	is.Equal(res.Stats.Nodes, uint64(0))
}

func TestSearchCheckmated(t *testing.T) {
	is := is.New(t)
	e := newTestEngine(t, nil)
	pos := testhelpers.MustParse(testhelpers.CheckmatedSFEN)

	res, err := e.Search(context.Background(), pos, Limits{Depth: 4})
	is.NoErr(err)
	is.Equal(res.BestMove, shogi.NoMove)
	is.True(res.Mate)
	is.Equal(res.Score, MatedIn(0))
	is.Equal(res.Score, -MateValue)
}

func TestSearchStalemateIsDraw(t *testing.T) {
	is := is.New(t)
	e := newTestEngine(t, nil)
	pos := testhelpers.MustParse(testhelpers.StalemateSFEN)

	res, err := e.Search(context.Background(), pos, Limits{Depth: 4})
	is.NoErr(err)
	is.Equal(res.BestMove, shogi.NoMove)
	is.True(!res.Mate)
	is.Equal(res.Score, DrawScore)
}

func TestSearchMateInOne(t *testing.T) {
	is := is.New(t)
	e := newTestEngine(t, nil)
	pos := testhelpers.MustParse(testhelpers.MateInOneSFEN)

	for i := 0; i < 2; i++ {
		// the second search starts from a warm cache
		res, err := e.Search(context.Background(), pos, Limits{Depth: 3})
		is.NoErr(err)
		is.Equal(res.BestMove.String(), testhelpers.MateInOneBest)
		is.True(res.Mate)
		is.Equal(res.Score, MateIn(1))
		is.Equal(res.MatePlies(), 1)
	}
}

func TestSearchInCheckHoldingPawn(t *testing.T) {
	is := is.New(t)
	e := newTestEngine(t, nil)
	pos := testhelpers.MustParse(testhelpers.CheckedPawnDropSFEN)
	before := pos.SFEN()

	res, err := e.Search(context.Background(), pos, Limits{Depth: 2})
	is.NoErr(err)
	is.True(isLegal(pos, res.BestMove))
	is.Equal(res.DepthReached, 2)
	is.Equal(pos.SFEN(), before)
}

func TestSearchWinsHangingPiece(t *testing.T) {
	is := is.New(t)
	e := newTestEngine(t, nil)
	pos := testhelpers.MustParse(testhelpers.HangingBishopSFEN)

	res, err := e.Search(context.Background(), pos, Limits{Depth: 3})
	is.NoErr(err)
	is.Equal(res.BestMove.String(), testhelpers.HangingBishopBest)
	is.Equal(res.DepthReached, 3)
	is.True(res.Score > 0)
}

func TestSearchWithoutPruning(t *testing.T) {
	is := is.New(t)
	e := newTestEngine(t, func(o *Options) { o.DisablePruning = true })
	pos := testhelpers.MustParse(testhelpers.HangingBishopSFEN)

	res, err := e.Search(context.Background(), pos, Limits{Depth: 3})
	is.NoErr(err)
	is.Equal(res.BestMove.String(), testhelpers.HangingBishopBest)
	for name, n := range res.Stats.Prunes() {
		if n != 0 {
			t.Errorf("%s pruned %d moves with pruning disabled", name, n)
		}
	}
}

func TestSearchCancelledBeforeStart(t *testing.T) {
	is := is.New(t)
	e := newTestEngine(t, nil)
	pos := testhelpers.MustParse(testhelpers.HangingBishopSFEN)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := e.Search(ctx, pos, Limits{Depth: 8})
	is.NoErr(err)
	is.Equal(res.DepthReached, 0)
	is.True(isLegal(pos, res.BestMove))
	// captures order first
	is.Equal(res.BestMove.String(), testhelpers.HangingBishopBest)
}

func TestSearchRespectsMoveTime(t *testing.T) {
	is := is.New(t)
	e := newTestEngine(t, nil)
	pos := shogi.NewStartPosition()

	start := time.Now()
	res, err := e.Search(context.Background(), pos, Limits{Depth: MaxDepth, MoveTime: 50 * time.Millisecond})
	is.NoErr(err)
	is.True(time.Since(start) < 5*time.Second)
	is.True(res.DepthReached < MaxDepth)
	is.True(isLegal(pos, res.BestMove))
}

func TestSearchProgress(t *testing.T) {
	is := is.New(t)
	e := newTestEngine(t, nil)
	pos := shogi.NewStartPosition()

	var depths []int
	res, err := e.Search(context.Background(), pos, Limits{
		Depth:    3,
		Progress: func(r Result) { depths = append(depths, r.DepthReached) },
	})
	is.NoErr(err)
	is.Equal(depths, []int{1, 2, 3})
	is.Equal(res.DepthReached, 3)
}

func TestInfiniteSearchKeepsGoingAfterMate(t *testing.T) {
	is := is.New(t)
	e := newTestEngine(t, nil)
	pos := testhelpers.MustParse(testhelpers.MateInOneSFEN)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var depths []int
	res, err := e.Search(ctx, pos, Limits{
		Infinite: true,
		Progress: func(r Result) {
			depths = append(depths, r.DepthReached)
			if r.DepthReached == 3 {
				cancel()
			}
		},
	})
	is.NoErr(err)
	is.Equal(depths, []int{1, 2, 3})
	is.Equal(res.DepthReached, 3)
	is.Equal(res.BestMove.String(), testhelpers.MateInOneBest)
	is.Equal(res.Score, MateIn(1))

	// with a depth limit the same search stops at the mate
	depths = nil
	res, err = e.Search(context.Background(), pos, Limits{
		Depth:    6,
		Progress: func(r Result) { depths = append(depths, r.DepthReached) },
	})
	is.NoErr(err)
	is.Equal(depths, []int{1})
	is.Equal(res.Score, MateIn(1))
}

func TestSearchLazySMP(t *testing.T) {
	is := is.New(t)
	e := newTestEngine(t, func(o *Options) { o.Threads = 3 })
	_, shared := e.cache.(*ttable.Shared)
	is.True(shared)
	pos := testhelpers.MustParse(testhelpers.HangingBishopSFEN)
	before := pos.SFEN()

	res, err := e.Search(context.Background(), pos, Limits{Depth: 3})
	is.NoErr(err)
	is.Equal(res.DepthReached, 3)
	is.Equal(res.BestMove.String(), testhelpers.HangingBishopBest)
	is.Equal(pos.SFEN(), before)
}

func TestSearchStatistics(t *testing.T) {
	is := is.New(t)
	e := newTestEngine(t, nil)
	pos := shogi.NewStartPosition()

	res, err := e.Search(context.Background(), pos, Limits{Depth: 3})
	is.NoErr(err)
	s := e.Statistics()
	is.Equal(s, res.Stats)
	is.True(s.Nodes > 0)
	is.True(s.QNodes <= s.Nodes)
	is.True(s.CacheHits <= s.CacheProbes)
	is.True(s.CacheStores > 0)
	is.True(s.CacheHitRate() >= 0 && s.CacheHitRate() <= 1)

	e.Clear()
	is.Equal(e.CacheStats().Stores, uint64(0))
}

func TestRepetitionScoresAsDraw(t *testing.T) {
	is := is.New(t)
	e := newTestEngine(t, nil)
	// Black is a rook down, so a repetition is the best it can hope for.
	const sfen = "k8/9/9/9/9/9/r8/9/8K b - 1"
	pos := testhelpers.MustParse(sfen)

	res, err := e.Search(context.Background(), pos, Limits{Depth: 1})
	is.NoErr(err)
	is.True(res.Score < DrawScore)

	// The position after 1i1h occurred earlier in the game.
	seen := e.Hasher().Hash(testhelpers.PlayMoves(testhelpers.MustParse(sfen), "1i1h"), 0)
	e.Clear()
	res, err = e.Search(context.Background(), pos, Limits{Depth: 1, History: []uint64{seen}})
	is.NoErr(err)
	is.Equal(res.Score, DrawScore)
	is.Equal(res.BestMove.String(), "1i1h")
	is.Equal(len(e.main.path), 1)
}

func TestInvalidOptions(t *testing.T) {
	is := is.New(t)
	opts := DefaultOptions()
	opts.Depth = 0
	_, err := NewEngine(opts, eval.Material{})
	is.True(errors.Is(err, ErrInvalidOptions))

	opts = DefaultOptions()
	opts.TTSizeMB = 0
	opts.TTMemoryFraction = 0
	_, err = NewEngine(opts, eval.Material{})
	is.True(errors.Is(err, ttable.ErrZeroCapacity))

	e := newTestEngine(t, nil)
	_, err = e.Search(context.Background(), shogi.NewStartPosition(), Limits{Depth: -1})
	is.True(errors.Is(err, ErrInvalidOptions))
}

func TestShorterMateScoresHigher(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	for _, disable := range []bool{false, true} {
		e := newTestEngine(t, func(o *Options) { o.DisablePruning = disable })

		pos := testhelpers.MustParse(testhelpers.MateInThreeSFEN)
		three, err := e.Search(ctx, pos, Limits{Depth: 5})
		is.NoErr(err)
		is.Equal(three.BestMove.String(), testhelpers.MateInThreeBest)
		is.Equal(three.Score, MateIn(3))
		is.Equal(three.MatePlies(), 3)
		is.Equal(three.DepthReached, 3)

		// the defender sees the same mate two plies closer
		testhelpers.PlayMoves(pos, testhelpers.MateInThreeBest)
		mated, err := e.Search(ctx, pos, Limits{Depth: 5})
		is.NoErr(err)
		is.Equal(mated.Score, MatedIn(2))
		is.Equal(mated.MatePlies(), -2)

		pos = testhelpers.MustParse(testhelpers.MateInOneOrThreeSFEN)
		one, err := e.Search(ctx, pos, Limits{Depth: 5})
		is.NoErr(err)
		is.Equal(one.BestMove.String(), testhelpers.MateInOneOrThreeBest)
		is.Equal(one.Score, MateIn(1))
		is.True(three.Score < one.Score)
		is.True(mated.Score < three.Score)
	}
}

func TestScoreHelpers(t *testing.T) {
	is := is.New(t)
	is.True(IsMateScore(MateIn(5)))
	is.True(IsMateScore(MatedIn(3)))
	is.True(!IsMateScore(Infinity))
	is.True(!IsMateScore(1500))
	is.Equal(MatePlies(MateIn(5)), 5)
	is.Equal(MatePlies(MatedIn(4)), -4)
	// a mate found 3 plies below a node at ply 7 is stored relative to it
	is.Equal(valueFromTT(valueToTT(MateIn(10), 7), 7), MateIn(10))
	is.Equal(valueToTT(MateIn(10), 7), MateIn(3))
	is.Equal(valueFromTT(valueToTT(MatedIn(9), 2), 4), MatedIn(11))
}

func TestPVLine(t *testing.T) {
	is := is.New(t)
	pos := shogi.NewStartPosition()
	a, err := pos.ParseMove("7g7f")
	is.NoErr(err)
	pos.Apply(a)
	b, err := pos.ParseMove("3c3d")
	is.NoErr(err)

	child := PVLine{Moves: []shogi.Move{b}}
	var pv PVLine
	is.Equal(pv.GetPVMove(), shogi.NoMove)
	pv.Update(a, child, 40)
	is.Equal(pv.USI(), "7g7f 3c3d")
	is.Equal(pv.String(), "PV; val 40; 7g7f 3c3d")
	pv.Clear()
	is.Equal(len(pv.Moves), 0)
}
