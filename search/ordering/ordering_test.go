package ordering

import (
	"testing"

	"github.com/matryer/is"

	"github.com/shogiban/kairos/eval"
	"github.com/shogiban/kairos/shogi"
	"github.com/shogiban/kairos/testhelpers"
)

func indexOf(moves []shogi.Move, text string) int {
	for i, m := range moves {
		if m.String() == text {
			return i
		}
	}
	return -1
}

func TestOrderPriorities(t *testing.T) {
	is := is.New(t)
	// Black's rook on 5h can take the bishop on 5e or the pawn on 2h.
	p := testhelpers.MustParse("8k/9/9/9/4b4/9/9/4R2p1/4K4 b - 1")
	o := New(eval.Material{})

	quietHint, err := p.ParseMove("5i4i")
	is.NoErr(err)
	killer, err := p.ParseMove("5i6i")
	is.NoErr(err)
	o.StoreKiller(killer, 3)

	moves := o.Order(p, p.LegalMoves(nil), quietHint, 3)
	is.Equal(moves[0], quietHint)
	is.Equal(moves[1].String(), "5h5e") // bishop before pawn
	is.Equal(moves[2].String(), "5h2h")
	is.Equal(moves[3], killer)
	is.True(o.IsKiller(killer, 3))
	is.True(!o.IsKiller(killer, 4))
}

func TestHintMustBeLegal(t *testing.T) {
	is := is.New(t)
	p := shogi.NewStartPosition()
	o := New(eval.Material{})
	bogus := shogi.NewDropMove(shogi.Gold, shogi.NewSquare(5, 5))
	moves := o.Order(p, p.LegalMoves(nil), bogus, 0)
	is.Equal(len(moves), 30)
	is.Equal(indexOf(moves, bogus.String()), -1)
}

func TestKillersShift(t *testing.T) {
	is := is.New(t)
	o := New(eval.Material{})
	a := shogi.NewDropMove(shogi.Pawn, shogi.NewSquare(5, 5))
	b := shogi.NewDropMove(shogi.Gold, shogi.NewSquare(5, 5))
	o.StoreKiller(a, 2)
	o.StoreKiller(a, 2)
	is.Equal(o.killers[2], [MaxKillers]shogi.Move{a, shogi.NoMove})
	o.StoreKiller(b, 2)
	is.Equal(o.killers[2], [MaxKillers]shogi.Move{b, a})
	o.StoreKiller(b, MaxPly) // out of range is ignored
	o.ClearKillers()
	is.True(!o.IsKiller(a, 2))
}

func TestHistoryRaisesCutoffMove(t *testing.T) {
	is := is.New(t)
	p := shogi.NewStartPosition()
	o := New(eval.Material{})
	good, _ := p.ParseMove("2g2f")
	bad, _ := p.ParseMove("1g1f")
	for i := 0; i < 5; i++ {
		o.UpdateHistory(shogi.Black, []shogi.Move{bad, good}, good, 4)
	}
	is.True(o.Score(shogi.Black, good, shogi.NoMove, 1) > 0)
	is.True(o.Score(shogi.Black, bad, shogi.NoMove, 1) < 0)

	moves := o.Order(p, p.LegalMoves(nil), shogi.NoMove, 1)
	is.Equal(moves[0], good)
	is.Equal(moves[len(moves)-1], bad)

	o.Clear()
	is.Equal(o.Score(shogi.Black, good, shogi.NoMove, 1), int32(0))
}

func TestVictimOutranksPromotion(t *testing.T) {
	is := is.New(t)
	// 5d5c+ takes a silver and promotes the pawn; 2f2e takes a promoted
	// knight, worth a little more than the silver.
	p := testhelpers.MustParse("k8/9/4s4/4P4/7+n1/7G1/9/9/4K4 b - 1")
	o := New(eval.Material{})

	moves := o.Order(p, p.LegalMoves(nil), shogi.NoMove, 0)
	is.Equal(moves[0].String(), "2f2e")
	is.Equal(moves[1].String(), "5d5c+")
	is.Equal(moves[2].String(), "5d5c")
	is.True(indexOf(moves, "5d5c") < indexOf(moves, "5i4h"))
}
