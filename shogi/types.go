package shogi

import "fmt"

// Color is the side to move. Black (sente) moves first.
type Color uint8

const (
	Black Color = iota
	White
)

func (c Color) Opponent() Color {
	return c ^ 1
}

func (c Color) String() string {
	if c == Black {
		return "b"
	}
	return "w"
}

// PieceType is a colorless piece kind. Promoted kinds follow the base kinds.
type PieceType uint8

const (
	NoPieceType PieceType = iota
	Pawn
	Lance
	Knight
	Silver
	Gold
	Bishop
	Rook
	King
	ProPawn
	ProLance
	ProKnight
	ProSilver
	Horse
	Dragon

	NumPieceTypes
)

// NumHandTypes bounds the hand arrays; hand pieces are Pawn through Rook.
const NumHandTypes = int(Rook) + 1

var promotedOf = [NumPieceTypes]PieceType{
	Pawn:   ProPawn,
	Lance:  ProLance,
	Knight: ProKnight,
	Silver: ProSilver,
	Bishop: Horse,
	Rook:   Dragon,
}

var unpromotedOf = [NumPieceTypes]PieceType{
	Pawn: Pawn, Lance: Lance, Knight: Knight, Silver: Silver, Gold: Gold,
	Bishop: Bishop, Rook: Rook, King: King,
	ProPawn: Pawn, ProLance: Lance, ProKnight: Knight, ProSilver: Silver,
	Horse: Bishop, Dragon: Rook,
}

var sfenLetters = [NumPieceTypes]string{
	Pawn: "P", Lance: "L", Knight: "N", Silver: "S", Gold: "G",
	Bishop: "B", Rook: "R", King: "K",
	ProPawn: "+P", ProLance: "+L", ProKnight: "+N", ProSilver: "+S",
	Horse: "+B", Dragon: "+R",
}

func (pt PieceType) Promotable() bool {
	return promotedOf[pt] != NoPieceType
}

func (pt PieceType) Promoted() bool {
	return pt >= ProPawn
}

// Promote returns the promoted kind, or pt itself if it cannot promote.
func (pt PieceType) Promote() PieceType {
	if p := promotedOf[pt]; p != NoPieceType {
		return p
	}
	return pt
}

// Unpromote returns the kind a captured piece reverts to in hand.
func (pt PieceType) Unpromote() PieceType {
	return unpromotedOf[pt]
}

func (pt PieceType) String() string {
	if pt >= NumPieceTypes {
		return "?"
	}
	return sfenLetters[pt]
}

// Piece is a colored piece: type in the low nibble, color in bit 4.
type Piece uint8

const NoPiece Piece = 0

func NewPiece(pt PieceType, c Color) Piece {
	return Piece(pt) | Piece(c)<<4
}

func (p Piece) Type() PieceType {
	return PieceType(p & 0x0f)
}

func (p Piece) Color() Color {
	return Color(p >> 4)
}

func (p Piece) String() string {
	if p == NoPiece {
		return "."
	}
	s := p.Type().String()
	if p.Color() == White {
		b := []byte(s)
		for i := range b {
			if b[i] >= 'A' && b[i] <= 'Z' {
				b[i] += 'a' - 'A'
			}
		}
		return string(b)
	}
	return s
}

// Square indexes the 9x9 board rank-major: rank 1 (row 0) first, and within
// a rank file 9 (column 0) first, which matches SFEN order.
type Square int8

const (
	BoardDim   = 9
	NumSquares = BoardDim * BoardDim

	NoSquare Square = -1
)

func NewSquare(file, rank int) Square {
	return Square((rank-1)*BoardDim + (BoardDim - file))
}

func squareAt(row, col int) Square {
	return Square(row*BoardDim + col)
}

func (sq Square) Row() int { return int(sq) / BoardDim }
func (sq Square) Col() int { return int(sq) % BoardDim }

// File is 1..9 as printed on a shogi board.
func (sq Square) File() int { return BoardDim - sq.Col() }

// Rank is 1..9; rank 1 is White's back rank.
func (sq Square) Rank() int { return sq.Row() + 1 }

func (sq Square) String() string {
	if sq < 0 || int(sq) >= NumSquares {
		return "--"
	}
	return fmt.Sprintf("%d%c", sq.File(), 'a'+byte(sq.Row()))
}

func parseSquare(s string) (Square, bool) {
	if len(s) != 2 || s[0] < '1' || s[0] > '9' || s[1] < 'a' || s[1] > 'i' {
		return NoSquare, false
	}
	return NewSquare(int(s[0]-'0'), int(s[1]-'a')+1), true
}

// inZone reports whether row lies in c's promotion zone.
func inZone(c Color, row int) bool {
	if c == Black {
		return row <= 2
	}
	return row >= 6
}

// relativeRow counts rows from c's far edge: 0 is the last rank for c.
func relativeRow(c Color, row int) int {
	if c == Black {
		return row
	}
	return BoardDim - 1 - row
}
