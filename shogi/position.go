package shogi

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrBadSFEN = errors.New("bad sfen")

// StartSFEN is the standard initial position.
const StartSFEN = "lnsgkgsnl/1r5b1/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSNL b - 1"

// View is the read-only face of a position consumed by the hasher and the
// evaluator.
type View interface {
	PieceAt(sq Square) Piece
	HandCount(c Color, pt PieceType) int
	SideToMove() Color
}

// Position is a mutable Shogi position. Apply and Undo are exact inverses.
type Position struct {
	board [NumSquares]Piece
	hands [2][NumHandTypes]uint8
	side  Color
	kings [2]Square
	ply   int
}

func NewStartPosition() *Position {
	p, err := ParseSFEN(StartSFEN)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Position) PieceAt(sq Square) Piece {
	return p.board[sq]
}

func (p *Position) HandCount(c Color, pt PieceType) int {
	if int(pt) >= NumHandTypes {
		return 0
	}
	return int(p.hands[c][pt])
}

func (p *Position) SideToMove() Color {
	return p.side
}

func (p *Position) KingSquare(c Color) Square {
	return p.kings[c]
}

// MoveNumber is the SFEN move counter.
func (p *Position) MoveNumber() int {
	return p.ply
}

func (p *Position) Clone() *Position {
	c := *p
	return &c
}

// Apply plays m, which must be legal in p.
func (p *Position) Apply(m Move) {
	us := p.side
	to := m.To()
	if m.IsDrop() {
		p.board[to] = NewPiece(m.Piece(), us)
		p.hands[us][m.Piece()]--
	} else {
		from := m.From()
		if captured := m.Captured(); captured != NoPieceType {
			p.hands[us][captured.Unpromote()]++
		}
		p.board[to] = NewPiece(m.PlacedType(), us)
		p.board[from] = NoPiece
		if m.Piece() == King {
			p.kings[us] = to
		}
	}
	p.side = us.Opponent()
	p.ply++
}

// Undo reverts m, which must be the last move applied.
func (p *Position) Undo(m Move) {
	p.ply--
	p.side = p.side.Opponent()
	us := p.side
	to := m.To()
	if m.IsDrop() {
		p.board[to] = NoPiece
		p.hands[us][m.Piece()]++
		return
	}
	from := m.From()
	p.board[from] = NewPiece(m.Piece(), us)
	if captured := m.Captured(); captured != NoPieceType {
		p.board[to] = NewPiece(captured, us.Opponent())
		p.hands[us][captured.Unpromote()]--
	} else {
		p.board[to] = NoPiece
	}
	if m.Piece() == King {
		p.kings[us] = from
	}
}

// ParseSFEN reads "board side hands [movenumber]".
func ParseSFEN(sfen string) (*Position, error) {
	fields := strings.Fields(sfen)
	if len(fields) < 3 {
		return nil, fmt.Errorf("%w: need at least 3 fields in %q", ErrBadSFEN, sfen)
	}
	p := &Position{kings: [2]Square{NoSquare, NoSquare}, ply: 1}

	ranks := strings.Split(fields[0], "/")
	if len(ranks) != BoardDim {
		return nil, fmt.Errorf("%w: expected %d ranks, got %d", ErrBadSFEN, BoardDim, len(ranks))
	}
	for row, rank := range ranks {
		col := 0
		promoted := false
		for i := 0; i < len(rank); i++ {
			ch := rank[i]
			switch {
			case ch >= '1' && ch <= '9':
				col += int(ch - '0')
			case ch == '+':
				promoted = true
			default:
				pt, c, ok := pieceFromLetter(ch)
				if !ok || col >= BoardDim {
					return nil, fmt.Errorf("%w: bad rank %q", ErrBadSFEN, rank)
				}
				if promoted {
					if !pt.Promotable() {
						return nil, fmt.Errorf("%w: %c cannot promote", ErrBadSFEN, ch)
					}
					pt = pt.Promote()
					promoted = false
				}
				sq := squareAt(row, col)
				p.board[sq] = NewPiece(pt, c)
				if pt == King {
					p.kings[c] = sq
				}
				col++
			}
		}
		if col != BoardDim {
			return nil, fmt.Errorf("%w: rank %q has %d files", ErrBadSFEN, rank, col)
		}
	}

	switch fields[1] {
	case "b":
		p.side = Black
	case "w":
		p.side = White
	default:
		return nil, fmt.Errorf("%w: side %q", ErrBadSFEN, fields[1])
	}

	if fields[2] != "-" {
		count := 0
		for i := 0; i < len(fields[2]); i++ {
			ch := fields[2][i]
			if ch >= '0' && ch <= '9' {
				count = count*10 + int(ch-'0')
				continue
			}
			pt, c, ok := pieceFromLetter(ch)
			if !ok || pt == King {
				return nil, fmt.Errorf("%w: hand %q", ErrBadSFEN, fields[2])
			}
			if count == 0 {
				count = 1
			}
			p.hands[c][pt] += uint8(count)
			count = 0
		}
	}

	if len(fields) > 3 {
		n, err := strconv.Atoi(fields[3])
		if err != nil {
			return nil, fmt.Errorf("%w: move number: %v", ErrBadSFEN, err)
		}
		p.ply = n
	}
	return p, nil
}

var handOrder = []PieceType{Rook, Bishop, Gold, Silver, Knight, Lance, Pawn}

func (p *Position) SFEN() string {
	var sb strings.Builder
	for row := 0; row < BoardDim; row++ {
		if row > 0 {
			sb.WriteByte('/')
		}
		empty := 0
		for col := 0; col < BoardDim; col++ {
			pc := p.board[squareAt(row, col)]
			if pc == NoPiece {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			sb.WriteString(pc.String())
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
	}
	sb.WriteByte(' ')
	sb.WriteString(p.side.String())
	sb.WriteByte(' ')
	hand := ""
	for _, c := range []Color{Black, White} {
		for _, pt := range handOrder {
			n := p.hands[c][pt]
			if n == 0 {
				continue
			}
			if n > 1 {
				hand += strconv.Itoa(int(n))
			}
			hand += NewPiece(pt, c).String()
		}
	}
	if hand == "" {
		hand = "-"
	}
	sb.WriteString(hand)
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(p.ply))
	return sb.String()
}

// ToDisplayText draws the board with Black at the bottom.
func (p *Position) ToDisplayText() string {
	var sb strings.Builder
	sb.WriteString("  9  8  7  6  5  4  3  2  1\n")
	for row := 0; row < BoardDim; row++ {
		for col := 0; col < BoardDim; col++ {
			pc := p.board[squareAt(row, col)]
			s := pc.String()
			if pc != NoPiece && pc.Color() == White {
				s = "v" + s
			}
			fmt.Fprintf(&sb, "%3s", s)
		}
		fmt.Fprintf(&sb, "  %c\n", 'a'+byte(row))
	}
	fmt.Fprintf(&sb, "side: %s  sfen: %s\n", p.side, p.SFEN())
	return sb.String()
}

func pieceFromLetter(ch byte) (PieceType, Color, bool) {
	c := Black
	if ch >= 'a' && ch <= 'z' {
		c = White
		ch -= 'a' - 'A'
	}
	for pt := Pawn; pt <= King; pt++ {
		if sfenLetters[pt][0] == ch {
			return pt, c, true
		}
	}
	return NoPieceType, c, false
}
