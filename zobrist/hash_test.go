package zobrist

import (
	"testing"

	"github.com/matryer/is"
	"lukechampine.com/frand"

	"github.com/shogiban/kairos/shogi"
	"github.com/shogiban/kairos/testhelpers"
)

func seeded() *Zobrist {
	z := &Zobrist{}
	z.InitializeWithSeed(make([]byte, 32))
	return z
}

func TestSeededKeysAreReproducible(t *testing.T) {
	is := is.New(t)
	p := shogi.NewStartPosition()
	is.Equal(seeded().Hash(p, 0), seeded().Hash(p, 0))

	other := &Zobrist{}
	other.Initialize()
	is.True(other.Hash(p, 0) != seeded().Hash(p, 0))
}

func TestTranspositionsHashEqual(t *testing.T) {
	is := is.New(t)
	z := seeded()
	a := testhelpers.PlayMoves(shogi.NewStartPosition(), "7g7f", "3c3d", "2g2f")
	b := testhelpers.PlayMoves(shogi.NewStartPosition(), "2g2f", "3c3d", "7g7f")
	is.Equal(z.Hash(a, 0), z.Hash(b, 0))

	c := testhelpers.PlayMoves(shogi.NewStartPosition(), "2g2f", "3c3d", "6g6f")
	is.True(z.Hash(a, 0) != z.Hash(c, 0))
}

func TestRepetitionClasses(t *testing.T) {
	is := is.New(t)
	z := seeded()
	p := shogi.NewStartPosition()
	h0 := z.Hash(p, 0)
	is.True(h0 != z.Hash(p, 1))
	is.True(z.Hash(p, 1) != z.Hash(p, 2))
	is.Equal(z.Hash(p, 3), z.Hash(p, 7))
	is.Equal(z.Repetition(h0, 0, 2), z.Hash(p, 2))
	is.Equal(z.Repetition(z.Hash(p, 2), 2, 0), h0)
}

func TestSideToMoveChangesHash(t *testing.T) {
	is := is.New(t)
	z := seeded()
	b := testhelpers.MustParse("4k4/9/9/9/9/9/9/9/4K4 b - 1")
	w := testhelpers.MustParse("4k4/9/9/9/9/9/9/9/4K4 w - 1")
	is.True(z.Hash(b, 0) != z.Hash(w, 0))
}

// Incremental updates must agree with a full rehash on random games that
// include captures, promotions, drops and repeated positions.
func TestAddMoveMatchesFullHash(t *testing.T) {
	is := is.New(t)
	z := seeded()
	rng := frand.NewCustom([]byte("kairos-zobrist-incremental-test!"), 1024, 12)

	for game := 0; game < 30; game++ {
		p := shogi.NewStartPosition()
		seen := map[uint64]int{z.Hash(p, 0): 1}
		key := z.Hash(p, 0)
		reps := 0

		type step struct {
			m                 shogi.Move
			key               uint64
			lastReps, newReps int
		}
		var history []step

		for ply := 0; ply < 150; ply++ {
			moves := p.LegalMoves(nil)
			if len(moves) == 0 {
				break
			}
			m := moves[rng.Intn(len(moves))]

			p.Apply(m)
			bare := z.Hash(p, 0)
			newReps := seen[bare]
			p.Undo(m)

			next := z.AddMove(key, m, p, reps, newReps)
			history = append(history, step{m, key, reps, newReps})
			p.Apply(m)
			is.Equal(next, z.Hash(p, newReps))

			seen[bare]++
			key, reps = next, newReps
		}

		for i := len(history) - 1; i >= 0; i-- {
			h := history[i]
			p.Undo(h.m)
			key = z.UndoMove(key, h.m, p, h.lastReps, h.newReps)
			is.Equal(key, h.key)
		}
		is.Equal(key, z.Hash(shogi.NewStartPosition(), 0))
	}
}
