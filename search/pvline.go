package search

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/shogiban/kairos/shogi"
)

// Credit: MIT-licensed https://github.com/algerbrex/blunder/blob/main/engine/search.go
type PVLine struct {
	Moves []shogi.Move
	score int
}

// Clear the principal variation line.
func (pvLine *PVLine) Clear() {
	pvLine.Moves = pvLine.Moves[:0]
}

// Update the principal variation line with a new best move,
// and a new line of best play after the best move.
func (pvLine *PVLine) Update(m shogi.Move, newPVLine PVLine, score int) {
	pvLine.Clear()
	pvLine.Moves = append(pvLine.Moves, m)
	pvLine.Moves = append(pvLine.Moves, newPVLine.Moves...)
	pvLine.score = score
}

// Get the best move from the principal variation line.
func (pvLine *PVLine) GetPVMove() shogi.Move {
	if len(pvLine.Moves) == 0 {
		return shogi.NoMove
	}
	return pvLine.Moves[0]
}

// USI renders the line as space-separated USI moves.
func (pvLine PVLine) USI() string {
	return strings.Join(lo.Map(pvLine.Moves, func(m shogi.Move, _ int) string {
		return m.String()
	}), " ")
}

func (pvLine PVLine) String() string {
	return fmt.Sprintf("PV; val %d; %s", pvLine.score, pvLine.USI())
}
