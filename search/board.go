package search

import "github.com/shogiban/kairos/shogi"

// Board is the move-generation capability the search drives. Apply and Undo
// must be exact inverses and LegalMoves deterministic.
type Board interface {
	shogi.View
	LegalMoves(buf []shogi.Move) []shogi.Move
	Apply(m shogi.Move)
	Undo(m shogi.Move)
	InCheck(c shogi.Color) bool
}

// Evaluator scores a position from side's point of view.
type Evaluator interface {
	StaticScore(v shogi.View, side shogi.Color) int
	PieceValue(pt shogi.PieceType) int
	Phase(v shogi.View) int
}

// Cloner is implemented by boards that helper workers can copy.
type Cloner interface {
	Clone() *shogi.Position
}

var _ Board = (*shogi.Position)(nil)
var _ Cloner = (*shogi.Position)(nil)
