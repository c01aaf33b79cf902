package shogi

import (
	"errors"
	"fmt"
	"strings"
)

var ErrIllegalMove = errors.New("illegal move")

// Move is a packed move.
//
//	bits  0-6   destination square
//	bits  7-13  origin square (unused for drops)
//	bit   14    promotion
//	bit   15    drop
//	bits 16-19  moving (or dropped) piece type, before promotion
//	bits 20-23  captured piece type
//
// The zero value is NoMove; every real move carries a non-zero piece type.
type Move uint32

const NoMove Move = 0

const (
	moveToShift       = 0
	moveFromShift     = 7
	movePromoteBit    = 1 << 14
	moveDropBit       = 1 << 15
	movePieceShift    = 16
	moveCapturedShift = 20
	moveSquareMask    = 0x7f
	moveTypeMask      = 0x0f
)

func NewBoardMove(from, to Square, pt PieceType, captured PieceType, promote bool) Move {
	m := Move(to)<<moveToShift | Move(from)<<moveFromShift |
		Move(pt)<<movePieceShift | Move(captured)<<moveCapturedShift
	if promote {
		m |= movePromoteBit
	}
	return m
}

func NewDropMove(pt PieceType, to Square) Move {
	return Move(to)<<moveToShift | Move(pt)<<movePieceShift | moveDropBit
}

func (m Move) To() Square {
	return Square((m >> moveToShift) & moveSquareMask)
}

func (m Move) From() Square {
	if m.IsDrop() {
		return NoSquare
	}
	return Square((m >> moveFromShift) & moveSquareMask)
}

func (m Move) Piece() PieceType {
	return PieceType((m >> movePieceShift) & moveTypeMask)
}

func (m Move) Captured() PieceType {
	return PieceType((m >> moveCapturedShift) & moveTypeMask)
}

func (m Move) IsDrop() bool {
	return m&moveDropBit != 0
}

func (m Move) IsPromotion() bool {
	return m&movePromoteBit != 0
}

func (m Move) IsCapture() bool {
	return m.Captured() != NoPieceType
}

// PlacedType is the kind standing on the destination after the move.
func (m Move) PlacedType() PieceType {
	if m.IsPromotion() {
		return m.Piece().Promote()
	}
	return m.Piece()
}

// String renders USI notation: 7g7f, 8h2b+, P*5e.
func (m Move) String() string {
	if m == NoMove {
		return "none"
	}
	if m.IsDrop() {
		return fmt.Sprintf("%s*%s", m.Piece(), m.To())
	}
	s := m.From().String() + m.To().String()
	if m.IsPromotion() {
		s += "+"
	}
	return s
}

// ParseMove resolves USI move text against the legal moves of p.
func (p *Position) ParseMove(text string) (Move, error) {
	text = strings.TrimSpace(text)
	for _, m := range p.LegalMoves(nil) {
		if m.String() == text {
			return m, nil
		}
	}
	return NoMove, fmt.Errorf("%w: %q in %s", ErrIllegalMove, text, p.SFEN())
}
