package search

import "github.com/shogiban/kairos/search/ordering"

const (
	Infinity  = 32000
	MateValue = 30000
	DrawScore = 0

	// MaxPly bounds the distance from the root of any node, quiescence
	// included.
	MaxPly = ordering.MaxPly
	// MaxDepth is the deepest nominal iteration.
	MaxDepth = 64

	mateBound = MateValue - MaxPly
)

// MateIn is the score of delivering mate ply plies from the root.
func MateIn(ply int) int {
	return MateValue - ply
}

// MatedIn is the score of being mated ply plies from the root.
func MatedIn(ply int) int {
	return -MateValue + ply
}

func IsMateScore(score int) bool {
	return (score >= mateBound && score <= MateValue) ||
		(score <= -mateBound && score >= -MateValue)
}

// MatePlies returns the distance to mate in plies of a mate score: positive
// when the side to move mates, negative when it is mated.
func MatePlies(score int) int {
	if score > 0 {
		return MateValue - score
	}
	return -(MateValue + score)
}

// valueToTT makes a mate score relative to the node being stored so the
// entry stays correct when reached at another ply.
func valueToTT(v, ply int) int {
	if v >= mateBound {
		return v + ply
	}
	if v <= -mateBound {
		return v - ply
	}
	return v
}

func valueFromTT(v, ply int) int {
	if v >= mateBound {
		return v - ply
	}
	if v <= -mateBound {
		return v + ply
	}
	return v
}
