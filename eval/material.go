// Package eval holds the static evaluator the search consults at its leaves.
// Weights are deliberately plain; tuning them is a separate concern.
package eval

import "github.com/shogiban/kairos/shogi"

// MaxPhase is the phase of a position with every major and minor piece still
// on the board or in hand. Phase 0 is a bare endgame.
const MaxPhase = 24

var pieceValues = [shogi.NumPieceTypes]int{
	shogi.Pawn:      100,
	shogi.Lance:     300,
	shogi.Knight:    350,
	shogi.Silver:    500,
	shogi.Gold:      560,
	shogi.Bishop:    820,
	shogi.Rook:      1000,
	shogi.King:      0,
	shogi.ProPawn:   540,
	shogi.ProLance:  520,
	shogi.ProKnight: 520,
	shogi.ProSilver: 560,
	shogi.Horse:     1050,
	shogi.Dragon:    1250,
}

var phaseWeights = [shogi.NumPieceTypes]int{
	shogi.Silver: 1, shogi.Gold: 1, shogi.Bishop: 4, shogi.Rook: 4,
	shogi.ProSilver: 1, shogi.Horse: 4, shogi.Dragon: 4,
}

// handBonus is added per piece in hand, in percent of its board value.
const handBonus = 10

// Material scores material on the board and in hand, plus a small bonus for
// pieces advanced into the promotion zone.
type Material struct{}

func (Material) PieceValue(pt shogi.PieceType) int {
	return pieceValues[pt]
}

// StaticScore returns the score from side's point of view.
func (Material) StaticScore(v shogi.View, side shogi.Color) int {
	var score [2]int
	for i := 0; i < shogi.NumSquares; i++ {
		sq := shogi.Square(i)
		pc := v.PieceAt(sq)
		if pc == shogi.NoPiece {
			continue
		}
		c := pc.Color()
		score[c] += pieceValues[pc.Type()] + advancement(pc, sq)
	}
	for _, c := range []shogi.Color{shogi.Black, shogi.White} {
		for pt := shogi.Pawn; pt <= shogi.Rook; pt++ {
			n := v.HandCount(c, pt)
			score[c] += n * pieceValues[pt] * (100 + handBonus) / 100
		}
	}
	return score[side] - score[side.Opponent()]
}

// Phase measures remaining non-pawn material in [0, MaxPhase].
func (Material) Phase(v shogi.View) int {
	phase := 0
	for i := 0; i < shogi.NumSquares; i++ {
		if pc := v.PieceAt(shogi.Square(i)); pc != shogi.NoPiece {
			phase += phaseWeights[pc.Type()]
		}
	}
	for _, c := range []shogi.Color{shogi.Black, shogi.White} {
		for pt := shogi.Pawn; pt <= shogi.Rook; pt++ {
			phase += v.HandCount(c, pt) * phaseWeights[pt]
		}
	}
	if phase > MaxPhase {
		phase = MaxPhase
	}
	return phase
}

func advancement(pc shogi.Piece, sq shogi.Square) int {
	switch pc.Type() {
	case shogi.Pawn, shogi.Silver:
	default:
		return 0
	}
	// rows advanced from the piece's own back rank
	adv := shogi.BoardDim - sq.Rank()
	if pc.Color() == shogi.White {
		adv = sq.Rank() - 1
	}
	return adv * 2
}
