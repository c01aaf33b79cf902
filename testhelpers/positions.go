// Package testhelpers holds positions shared by tests across packages.
package testhelpers

import "github.com/shogiban/kairos/shogi"

const (
	// MateInOneSFEN: Black mates with G*5b; the pawn on 5c guards the gold.
	MateInOneSFEN = "4k4/9/4P4/9/9/9/9/9/4K4 b G 1"
	MateInOneBest = "G*5b"

	// CheckmatedSFEN is MateInOneSFEN after G*5b, White to move.
	CheckmatedSFEN = "4k4/4G4/4P4/9/9/9/9/9/4K4 w - 2"

	// OnlyMoveSFEN: Black's king on 1i is checked by the rook on 1a and the
	// gold on 3g covers 2h, so 1i2i is the one legal reply.
	OnlyMoveSFEN = "4k3r/9/9/9/9/9/6g2/9/8K b - 1"
	OnlyMoveBest = "1i2i"

	// HangingBishopSFEN: the rook on 5h wins an undefended bishop on 5e.
	HangingBishopSFEN = "8k/9/9/9/4b4/9/9/4R4/4K4 b - 1"
	HangingBishopBest = "5h5e"

	// MateInThreeSFEN: after 1d2c+ promotes the bishop on 2c, every White
	// reply allows a mate. Nothing mates sooner.
	MateInThreeSFEN = "8k/5+P3/9/l2+P4B/9/9/9/9/7K1 b SN 1"
	MateInThreeBest = "1d2c+"

	// MateInOneOrThreeSFEN is MateInThreeSFEN with a lance on 1e. 1d3b+
	// uncovers it for mate at once, and the silver drops still mate in
	// three plies.
	MateInOneOrThreeSFEN = "8k/5+P3/9/l2+P4B/8L/9/9/9/7K1 b SN 1"
	MateInOneOrThreeBest = "1d3b+"

	// StalemateSFEN: White to move has only a king on 1a; golds on 3b and 2c
	// cover 2a, 2b and 1b without giving check.
	StalemateSFEN = "8k/6G2/7G1/9/9/9/9/9/K8 w - 1"

	// CheckedPawnDropSFEN: White is in check from the dragon on 8c and holds
	// a pawn that would give check on 3e. The drop does not answer the
	// check, so only the four king and rook evasions are legal.
	CheckedPawnDropSFEN = "9/lPk2s2l/1+R1rgPn2/p1Spp2p1/P1P1n3P/LG2PBKb1/N1+nP2PSS/6G1L/3G5 w 5Pp 116"
)

// MustParse parses sfen or panics; for fixtures only.
func MustParse(sfen string) *shogi.Position {
	p, err := shogi.ParseSFEN(sfen)
	if err != nil {
		panic(err)
	}
	return p
}

// PlayMoves applies USI moves in order or panics.
func PlayMoves(p *shogi.Position, moves ...string) *shogi.Position {
	for _, text := range moves {
		m, err := p.ParseMove(text)
		if err != nil {
			panic(err)
		}
		p.Apply(m)
	}
	return p
}
