package usi

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/rs/zerolog"

	"github.com/shogiban/kairos/eval"
	"github.com/shogiban/kairos/search"
	"github.com/shogiban/kairos/shogi"
	"github.com/shogiban/kairos/testhelpers"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

func run(t *testing.T, input string) (*Protocol, string) {
	t.Helper()
	opts := search.DefaultOptions()
	opts.TTSizeMB = 1
	p := New("kairos", "kairos developers", "test", opts, eval.Material{})
	var out bytes.Buffer
	if err := p.Run(context.Background(), strings.NewReader(input), &out); err != nil {
		t.Fatal(err)
	}
	return p, out.String()
}

func lastLine(out, prefix string) string {
	var found string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, prefix) {
			found = line
		}
	}
	return found
}

func TestHandshake(t *testing.T) {
	is := is.New(t)
	_, out := run(t, "usi\nisready\nquit\n")
	is.True(strings.Contains(out, "id name kairos test\n"))
	is.True(strings.Contains(out, "option name USI_Hash type spin default 1 min 0 max 65536\n"))
	is.True(strings.Contains(out, "option name DisablePruning type check default false\n"))
	is.True(strings.Contains(out, "usiok\n"))
	is.True(strings.HasSuffix(out, "readyok\n"))
}

func TestGoFindsMate(t *testing.T) {
	is := is.New(t)
	_, out := run(t, "usinewgame\nposition sfen "+testhelpers.MateInOneSFEN+"\ngo depth 3\n")
	is.True(strings.Contains(lastLine(out, "info depth"), "score mate 1"))
	is.Equal(lastLine(out, "bestmove"), "bestmove "+testhelpers.MateInOneBest)
}

func TestGoAfterMoves(t *testing.T) {
	is := is.New(t)
	_, out := run(t, "position startpos moves 7g7f 3c3d\ngo depth 2\n")
	best := strings.TrimPrefix(lastLine(out, "bestmove"), "bestmove ")
	pos := testhelpers.PlayMoves(shogi.NewStartPosition(), "7g7f", "3c3d")
	_, err := pos.ParseMove(best)
	is.NoErr(err)
	is.True(strings.Contains(lastLine(out, "info depth 2"), " pv "))
}

func TestCheckmatedResigns(t *testing.T) {
	is := is.New(t)
	_, out := run(t, "position sfen "+testhelpers.CheckmatedSFEN+"\ngo depth 2\n")
	is.Equal(lastLine(out, "bestmove"), "bestmove resign")
}

func TestInfiniteStops(t *testing.T) {
	is := is.New(t)
	start := time.Now()
	_, out := run(t, "position startpos\ngo infinite\nisready\nstop\n")
	is.True(time.Since(start) < 10*time.Second)
	is.True(strings.Contains(out, "readyok\n"))
	is.True(lastLine(out, "bestmove") != "")
}

func TestErrorsAreReported(t *testing.T) {
	is := is.New(t)
	_, out := run(t, "position sfen garbage\nposition startpos moves 1a1b\nfrobnicate\ngo depth x\n")
	is.Equal(strings.Count(out, "info string error"), 4)
	is.Equal(lastLine(out, "bestmove"), "")
}

func TestSetOption(t *testing.T) {
	is := is.New(t)
	p, out := run(t, "setoption name Threads value 2\nsetoption name USI_Hash value 2\nisready\nsetoption name Nope value 1\n")
	is.Equal(p.opts.Threads, 2)
	is.Equal(p.opts.TTSizeMB, 2)
	is.Equal(p.engine.Options().Threads, 2)
	is.Equal(strings.Count(out, "info string error"), 1)
}

func TestGoLimits(t *testing.T) {
	is := is.New(t)

	g, err := parseGo([]string{"btime", "60000", "wtime", "1000", "byoyomi", "5000"})
	is.NoErr(err)
	l := g.limits(shogi.Black)
	is.Equal(l.MoveTime, 60*time.Second/movesToGo+5*time.Second-moveOverhead)
	is.Equal(l.Depth, search.MaxDepth)
	is.Equal(g.limits(shogi.White).MoveTime, time.Second/movesToGo+5*time.Second-moveOverhead)

	g, err = parseGo([]string{"depth", "5", "movetime", "300"})
	is.NoErr(err)
	l = g.limits(shogi.White)
	is.Equal(l.Depth, 5)
	is.Equal(l.MoveTime, 300*time.Millisecond)

	g, err = parseGo([]string{"btime", "10"})
	is.NoErr(err)
	is.Equal(g.limits(shogi.Black).MoveTime, minMoveTime)

	g, err = parseGo([]string{"infinite"})
	is.NoErr(err)
	is.True(g.limits(shogi.Black).Infinite)

	_, err = parseGo([]string{"movetime"})
	is.True(err != nil)
	_, err = parseGo([]string{"mate", "3"})
	is.True(err != nil)
}

// replyWriter sends the next go as soon as it sees a bestmove, the way a
// GUI playing both sides does.
type replyWriter struct {
	bytes.Buffer
	p       *Protocol
	replied bool
	err     error
}

func (w *replyWriter) Write(b []byte) (int, error) {
	n, err := w.Buffer.Write(b)
	if !w.replied && bytes.HasPrefix(b, []byte("bestmove")) {
		w.replied = true
		w.err = w.p.handle(context.Background(), "go depth 1")
	}
	return n, err
}

func TestGoRightAfterBestMove(t *testing.T) {
	is := is.New(t)
	opts := search.DefaultOptions()
	opts.TTSizeMB = 1
	p := New("kairos", "kairos developers", "test", opts, eval.Material{})
	w := &replyWriter{p: p}
	p.out = w

	ctx := context.Background()
	is.NoErr(p.handle(ctx, "position sfen "+testhelpers.MateInOneSFEN))
	is.NoErr(p.handle(ctx, "go depth 1"))
	p.wg.Wait()

	is.True(w.replied)
	is.NoErr(w.err) // the engine was idle when bestmove went out
	out := w.String()
	is.Equal(strings.Count(out, "bestmove "+testhelpers.MateInOneBest+"\n"), 2)
	is.True(!p.thinking.Load())
}
