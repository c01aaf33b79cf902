package eval

import (
	"testing"

	"github.com/matryer/is"

	"github.com/shogiban/kairos/shogi"
	"github.com/shogiban/kairos/testhelpers"
)

func TestStartPositionIsBalanced(t *testing.T) {
	is := is.New(t)
	p := shogi.NewStartPosition()
	var m Material
	is.Equal(m.StaticScore(p, shogi.Black), 0)
	is.Equal(m.StaticScore(p, shogi.White), 0)
	is.Equal(m.Phase(p), MaxPhase)
}

func TestScoreIsSideRelative(t *testing.T) {
	is := is.New(t)
	p := testhelpers.MustParse(testhelpers.HangingBishopSFEN)
	var m Material
	black := m.StaticScore(p, shogi.Black)
	is.Equal(black, -m.StaticScore(p, shogi.White))
	is.True(black > 0) // rook against bishop

	testhelpers.PlayMoves(p, testhelpers.HangingBishopBest)
	is.True(m.StaticScore(p, shogi.Black) > black)
}

func TestHandPiecesCountMoreThanBoardValue(t *testing.T) {
	is := is.New(t)
	p := testhelpers.MustParse("4k4/9/9/9/9/9/9/9/4K4 b G 1")
	var m Material
	is.True(m.StaticScore(p, shogi.Black) > m.PieceValue(shogi.Gold))
	is.Equal(m.Phase(p), 1)
}
