package zobrist

import (
	"lukechampine.com/frand"

	"github.com/shogiban/kairos/shogi"
)

const bignum = 1<<63 - 2

// MaxHandCount bounds the per-type hand key table; 18 pawns is the most any
// side can hold.
const MaxHandCount = 18

// MaxRepetitionClass is the highest repetition class hashed separately;
// more repetitions share its key.
const MaxRepetitionClass = 3

// generate a zobrist hash for a shogi position.
// https://en.wikipedia.org/wiki/Zobrist_hashing
type Zobrist struct {
	whiteToMove uint64

	posTable   [shogi.NumSquares][32]uint64
	handTable  [2][shogi.NumHandTypes][MaxHandCount + 1]uint64
	repetition [MaxRepetitionClass + 1]uint64
}

type keySource interface {
	Uint64n(n uint64) uint64
}

type globalSource struct{}

func (globalSource) Uint64n(n uint64) uint64 { return frand.Uint64n(n) }

func (z *Zobrist) Initialize() {
	z.fill(globalSource{})
}

// InitializeWithSeed builds a reproducible key set. seed must be 32 bytes.
func (z *Zobrist) InitializeWithSeed(seed []byte) {
	z.fill(frand.NewCustom(seed, 1024, 12))
}

func (z *Zobrist) fill(src keySource) {
	for sq := range z.posTable {
		for pc := range z.posTable[sq] {
			z.posTable[sq][pc] = src.Uint64n(bignum) + 1
		}
	}
	for c := range z.handTable {
		for pt := range z.handTable[c] {
			for n := range z.handTable[c][pt] {
				z.handTable[c][pt][n] = src.Uint64n(bignum) + 1
			}
		}
	}
	// Class 0 keeps key 0 so a first occurrence hashes as the bare position.
	for i := 1; i <= MaxRepetitionClass; i++ {
		z.repetition[i] = src.Uint64n(bignum) + 1
	}
	z.whiteToMove = src.Uint64n(bignum) + 1
}

func repClass(n int) int {
	if n > MaxRepetitionClass {
		return MaxRepetitionClass
	}
	return n
}

// Hash computes the full fingerprint of v, given how many times the same
// position already occurred on the game path.
func (z *Zobrist) Hash(v shogi.View, repetitions int) uint64 {
	key := uint64(0)
	for i := 0; i < shogi.NumSquares; i++ {
		pc := v.PieceAt(shogi.Square(i))
		if pc == shogi.NoPiece {
			continue
		}
		key ^= z.posTable[i][pc]
	}
	for _, c := range []shogi.Color{shogi.Black, shogi.White} {
		for pt := shogi.Pawn; pt <= shogi.Rook; pt++ {
			key ^= z.handTable[c][pt][v.HandCount(c, pt)]
		}
	}
	if v.SideToMove() == shogi.White {
		key ^= z.whiteToMove
	}
	key ^= z.repetition[repClass(repetitions)]
	return key
}

// AddMove updates key for m played in before. lastRepetitions and
// repetitions are the repetition counts of the position before and after.
func (z *Zobrist) AddMove(key uint64, m shogi.Move, before shogi.View,
	lastRepetitions, repetitions int) uint64 {

	us := before.SideToMove()
	to := m.To()
	if m.IsDrop() {
		pt := m.Piece()
		n := before.HandCount(us, pt)
		key ^= z.handTable[us][pt][n]
		key ^= z.handTable[us][pt][n-1]
		key ^= z.posTable[to][shogi.NewPiece(pt, us)]
	} else {
		from := m.From()
		key ^= z.posTable[from][shogi.NewPiece(m.Piece(), us)]
		if captured := m.Captured(); captured != shogi.NoPieceType {
			key ^= z.posTable[to][shogi.NewPiece(captured, us.Opponent())]
			ht := captured.Unpromote()
			n := before.HandCount(us, ht)
			key ^= z.handTable[us][ht][n]
			key ^= z.handTable[us][ht][n+1]
		}
		// the promoted key goes in directly; the unpromoted one never lands
		key ^= z.posTable[to][shogi.NewPiece(m.PlacedType(), us)]
	}
	if lastRepetitions != repetitions {
		key ^= z.repetition[repClass(lastRepetitions)]
		key ^= z.repetition[repClass(repetitions)]
	}
	key ^= z.whiteToMove
	return key
}

// UndoMove reverses AddMove. XOR is its own inverse, so this is AddMove with
// the repetition classes swapped; before is still the position m was played
// from.
func (z *Zobrist) UndoMove(key uint64, m shogi.Move, before shogi.View,
	lastRepetitions, repetitions int) uint64 {
	return z.AddMove(key, m, before, repetitions, lastRepetitions)
}

// Repetition swaps the repetition component of key from one class to another.
func (z *Zobrist) Repetition(key uint64, from, to int) uint64 {
	return key ^ z.repetition[repClass(from)] ^ z.repetition[repClass(to)]
}
