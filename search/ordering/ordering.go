// Package ordering ranks legal moves so the search meets cutoffs early.
//
// Priority, highest first: the cached move, captures and promotions by
// most valuable victim / least valuable attacker, the two killer moves of the
// ply, then quiet moves by history score.
package ordering

import (
	"sort"

	"github.com/shogiban/kairos/shogi"
)

const (
	MaxPly     = 128
	MaxKillers = 2

	HashMoveOffset = 1 << 30
	CaptureOffset  = 1 << 24
	Killer0Offset  = 1 << 22
	Killer1Offset  = Killer0Offset - 1
)

const historyMax = 1 << 14

// PieceValuer supplies victim and attacker values for MVV-LVA.
type PieceValuer interface {
	PieceValue(pt shogi.PieceType) int
}

// Orderer keeps killer and history tables across the iterations of one
// search. It belongs to a single search worker.
type Orderer struct {
	values  PieceValuer
	killers [MaxPly][MaxKillers]shogi.Move
	history [2][shogi.NumPieceTypes][shogi.NumSquares]int32

	scores []int32
}

func New(values PieceValuer) *Orderer {
	return &Orderer{values: values}
}

// Order sorts moves in place for the side to move in v and returns it.
// hint is the cached move for the position or shogi.NoMove; it is only
// promoted if it is among moves.
func (o *Orderer) Order(v shogi.View, moves []shogi.Move, hint shogi.Move, ply int) []shogi.Move {
	us := v.SideToMove()
	if cap(o.scores) < len(moves) {
		o.scores = make([]int32, len(moves))
	}
	scores := o.scores[:len(moves)]
	for i, m := range moves {
		scores[i] = o.Score(us, m, hint, ply)
	}
	sort.Stable(byScore{moves, scores})
	return moves
}

// Score is the ordering key of m; larger sorts first.
func (o *Orderer) Score(us shogi.Color, m shogi.Move, hint shogi.Move, ply int) int32 {
	switch {
	case m == hint && hint != shogi.NoMove:
		return HashMoveOffset
	case m.IsCapture() || m.IsPromotion():
		return CaptureOffset + o.mvvLva(m)
	}
	if ply < MaxPly {
		if m == o.killers[ply][0] {
			return Killer0Offset
		}
		if m == o.killers[ply][1] {
			return Killer1Offset
		}
	}
	return o.history[us][m.Piece()][m.To()]
}

// victimScale keeps the victim the primary key: the closest two victim
// values differ by 20, and 20*victimScale outweighs the attacker term plus
// the largest promotion gain.
const victimScale = 64

func (o *Orderer) mvvLva(m shogi.Move) int32 {
	score := 0
	if m.IsCapture() {
		score = victimScale*o.values.PieceValue(m.Captured()) - o.values.PieceValue(m.Piece())/16
	}
	if m.IsPromotion() {
		score += o.values.PieceValue(m.PlacedType()) - o.values.PieceValue(m.Piece())
	}
	return int32(score)
}

// IsKiller reports whether m is a killer at ply.
func (o *Orderer) IsKiller(m shogi.Move, ply int) bool {
	if ply >= MaxPly || m == shogi.NoMove {
		return false
	}
	return m == o.killers[ply][0] || m == o.killers[ply][1]
}

// StoreKiller records a quiet move that caused a beta cutoff at ply.
func (o *Orderer) StoreKiller(m shogi.Move, ply int) {
	if ply >= MaxPly || m == o.killers[ply][0] {
		return
	}
	o.killers[ply][1] = o.killers[ply][0]
	o.killers[ply][0] = m
}

// UpdateHistory moves the history of every quiet move tried before best
// toward -historyMax and that of best toward historyMax, weighted by depth.
// quiets must end with best when best is quiet.
func (o *Orderer) UpdateHistory(us shogi.Color, quiets []shogi.Move, best shogi.Move, depth int) {
	bonus := int32(min(depth*depth, 400))
	for _, m := range quiets {
		good := m == best
		v := &o.history[us][m.Piece()][m.To()]
		target := int32(-historyMax)
		if good {
			target = historyMax
		}
		*v += (target - *v) * bonus / 512
		if good {
			break
		}
	}
}

// ClearKillers is called between searches; history survives.
func (o *Orderer) ClearKillers() {
	clear(o.killers[:])
}

func (o *Orderer) Clear() {
	o.ClearKillers()
	for c := range o.history {
		for pt := range o.history[c] {
			clear(o.history[c][pt][:])
		}
	}
}

type byScore struct {
	moves  []shogi.Move
	scores []int32
}

func (b byScore) Len() int           { return len(b.moves) }
func (b byScore) Less(i, j int) bool { return b.scores[i] > b.scores[j] }
func (b byScore) Swap(i, j int) {
	b.moves[i], b.moves[j] = b.moves[j], b.moves[i]
	b.scores[i], b.scores[j] = b.scores[j], b.scores[i]
}
