package bench

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shogiban/kairos/eval"
	"github.com/shogiban/kairos/search"
	"github.com/shogiban/kairos/shogi"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	os.Exit(m.Run())
}

func testOptions() search.Options {
	opts := search.DefaultOptions()
	opts.TTSizeMB = 1
	return opts
}

func TestLoadSuite(t *testing.T) {
	s, err := LoadSuite("testdata/suite.yaml")
	require.NoError(t, err)
	assert.Equal(t, "tactics", s.Name)
	assert.GreaterOrEqual(t, len(lo.Filter(s.Cases, func(c Case, _ int) bool { return c.Best != "" })), 12)
	assert.Equal(t, Case{Name: "mate-in-one", SFEN: "4k4/9/4P4/9/9/9/9/9/4K4 b G 1", Best: "G*5b", Depth: 3}, s.Cases[0])
	last := s.Cases[len(s.Cases)-1]
	assert.Equal(t, shogi.StartSFEN, last.SFEN)
	assert.Empty(t, last.Best)
}

func TestParseSuiteErrors(t *testing.T) {
	_, err := ParseSuite(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptySuite)

	_, err = ParseSuite(strings.NewReader("name: x\npositions: []\n"))
	assert.ErrorIs(t, err, ErrEmptySuite)

	_, err = ParseSuite(strings.NewReader("name: x\npositions:\n  - name: bad\n    sfen: nonsense\n"))
	assert.ErrorIs(t, err, shogi.ErrBadSFEN)

	_, err = ParseSuite(strings.NewReader("name: x\npositions:\n  - name: bad\n    sfen: 8k/9/9/9/9/9/9/9/K8 b - 1\n    best: 5e5d\n"))
	assert.Error(t, err)

	_, err = ParseSuite(strings.NewReader("name: x\nunknown: 1\n"))
	assert.Error(t, err)
}

func TestRunSuite(t *testing.T) {
	s, err := LoadSuite("testdata/suite.yaml")
	require.NoError(t, err)
	r, err := NewRunner(testOptions(), eval.Material{}, 2, 0)
	require.NoError(t, err)

	rep, err := r.Run(context.Background(), s)
	require.NoError(t, err)
	n := len(s.Cases)
	require.Len(t, rep.Outcomes, n)
	assert.Equal(t, DefaultConfidence, rep.Confidence)

	for _, o := range rep.Outcomes {
		// pruning must not lose any of these tactics
		assert.True(t, o.Agree(), o.Case.Name)
		if o.Case.Best != "" {
			assert.True(t, o.Solved(), o.Case.Name)
			assert.Equal(t, o.Case.Best, o.Full.BestMove.String(), o.Case.Name)
		}
	}
	assert.GreaterOrEqual(t, rep.Agreement.Estimate, 0.99)
	assert.LessOrEqual(t, rep.Agreement.Low, rep.Agreement.Estimate)
	assert.GreaterOrEqual(t, rep.Agreement.High, rep.Agreement.Estimate)
	assert.Equal(t, 1.0, rep.Solved.Estimate)

	byName := lo.KeyBy(rep.Outcomes, func(o Outcome) string { return o.Case.Name })
	assert.Equal(t, 0, byName["only-move"].Pruned.DepthReached, "only move returns before searching")
	assert.Equal(t, search.MateIn(3), byName["mate-in-three"].Pruned.Score)
	assert.Equal(t, search.MateIn(3), byName["mate-in-three"].Full.Score)
	opening := byName["opening"]
	assert.Equal(t, 3, opening.Pruned.DepthReached)
	assert.Zero(t, opening.Full.Stats.Futility)
	assert.Equal(t, n, rep.NodeRatio.N)
	assert.Equal(t, n, rep.Nodes.Count())
	assert.Equal(t, n, rep.Millis.N)

	var buf bytes.Buffer
	require.NoError(t, rep.Write(&buf))
	out := buf.String()
	assert.Contains(t, out, "mate-in-one")
	assert.Contains(t, out, "agreement")
	if rep.Millis.Stdev > 0 {
		assert.Contains(t, out, "search time histogram")
	}
}

func TestRunCancelled(t *testing.T) {
	s, err := LoadSuite("testdata/suite.yaml")
	require.NoError(t, err)
	r, err := NewRunner(testOptions(), eval.Material{}, 2, 90)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Run(ctx, s)
	assert.True(t, errors.Is(err, context.Canceled))
}
