package shogi

type delta struct{ dr, dc int }

// Directions are written from Black's point of view: dr < 0 is forward.
var (
	orthogonal  = []delta{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}
	diagonal    = []delta{{-1, -1}, {-1, 1}, {1, -1}, {1, 1}}
	goldSteps   = []delta{{-1, -1}, {-1, 0}, {-1, 1}, {0, -1}, {0, 1}, {1, 0}}
	silverSteps = []delta{{-1, -1}, {-1, 0}, {-1, 1}, {1, -1}, {1, 1}}
	kingSteps   = []delta{{-1, -1}, {-1, 0}, {-1, 1}, {0, -1}, {0, 1}, {1, -1}, {1, 0}, {1, 1}}
	knightJumps = []delta{{-2, -1}, {-2, 1}}
)

var stepTable = [NumPieceTypes][]delta{
	Pawn:      {{-1, 0}},
	Knight:    knightJumps,
	Silver:    silverSteps,
	Gold:      goldSteps,
	King:      kingSteps,
	ProPawn:   goldSteps,
	ProLance:  goldSteps,
	ProKnight: goldSteps,
	ProSilver: goldSteps,
	Horse:     orthogonal,
	Dragon:    diagonal,
}

var slideTable = [NumPieceTypes][]delta{
	Lance:  {{-1, 0}},
	Bishop: diagonal,
	Rook:   orthogonal,
	Horse:  diagonal,
	Dragon: orthogonal,
}

// stepMask and slideMask index the eight neighbouring directions by
// (dr+1)*3 + (dc+1), Black-relative.
var stepMask, slideMask [NumPieceTypes]uint16

func init() {
	for pt := range stepTable {
		for _, d := range stepTable[pt] {
			if d.dr >= -1 && d.dr <= 1 {
				stepMask[pt] |= 1 << dirIndex(d)
			}
		}
		for _, d := range slideTable[pt] {
			slideMask[pt] |= 1 << dirIndex(d)
		}
	}
}

func dirIndex(d delta) uint {
	return uint((d.dr+1)*3 + d.dc + 1)
}

func orient(d delta, c Color) delta {
	if c == White {
		d.dr = -d.dr
	}
	return d
}

func onBoard(row, col int) bool {
	return row >= 0 && row < BoardDim && col >= 0 && col < BoardDim
}

// IsAttacked reports whether any piece of color by attacks sq.
func (p *Position) IsAttacked(sq Square, by Color) bool {
	row, col := sq.Row(), sq.Col()
	for _, d := range kingSteps {
		r, c := row+d.dr, col+d.dc
		for dist := 1; onBoard(r, c); dist++ {
			pc := p.board[squareAt(r, c)]
			if pc != NoPiece {
				if pc.Color() == by {
					// direction of travel from the attacker toward sq
					toward := orient(delta{-d.dr, -d.dc}, by)
					bit := uint16(1) << dirIndex(toward)
					if slideMask[pc.Type()]&bit != 0 {
						return true
					}
					if dist == 1 && stepMask[pc.Type()]&bit != 0 {
						return true
					}
				}
				break
			}
			r += d.dr
			c += d.dc
		}
	}
	fwd := -1
	if by == White {
		fwd = 1
	}
	for _, dc := range []int{-1, 1} {
		r, c := row-2*fwd, col+dc
		if !onBoard(r, c) {
			continue
		}
		if pc := p.board[squareAt(r, c)]; pc == NewPiece(Knight, by) {
			return true
		}
	}
	return false
}

// InCheck reports whether c's king is attacked. Positions without a king for
// c are never in check.
func (p *Position) InCheck(c Color) bool {
	k := p.kings[c]
	if k == NoSquare {
		return false
	}
	return p.IsAttacked(k, c.Opponent())
}

func mustPromote(pt PieceType, c Color, row int) bool {
	rr := relativeRow(c, row)
	switch pt {
	case Pawn, Lance:
		return rr == 0
	case Knight:
		return rr <= 1
	}
	return false
}

func (p *Position) addBoardMoves(moves []Move, from, to Square, pt PieceType) []Move {
	us := p.side
	captured := p.board[to].Type()
	if pt.Promotable() && (inZone(us, from.Row()) || inZone(us, to.Row())) {
		moves = append(moves, NewBoardMove(from, to, pt, captured, true))
		if mustPromote(pt, us, to.Row()) {
			return moves
		}
	}
	return append(moves, NewBoardMove(from, to, pt, captured, false))
}

// pseudoLegal appends every move that obeys piece movement and drop rules
// without checking king safety. Pawn-drop mate is tested only when
// checkDropMate is set.
func (p *Position) pseudoLegal(moves []Move, checkDropMate bool) []Move {
	us := p.side
	for i := 0; i < NumSquares; i++ {
		from := Square(i)
		pc := p.board[from]
		if pc == NoPiece || pc.Color() != us {
			continue
		}
		pt := pc.Type()
		row, col := from.Row(), from.Col()
		for _, d := range stepTable[pt] {
			d = orient(d, us)
			r, c := row+d.dr, col+d.dc
			if !onBoard(r, c) {
				continue
			}
			to := squareAt(r, c)
			if t := p.board[to]; t != NoPiece && t.Color() == us {
				continue
			}
			moves = p.addBoardMoves(moves, from, to, pt)
		}
		for _, d := range slideTable[pt] {
			d = orient(d, us)
			r, c := row+d.dr, col+d.dc
			for onBoard(r, c) {
				to := squareAt(r, c)
				t := p.board[to]
				if t != NoPiece && t.Color() == us {
					break
				}
				moves = p.addBoardMoves(moves, from, to, pt)
				if t != NoPiece {
					break
				}
				r += d.dr
				c += d.dc
			}
		}
	}
	return p.appendDrops(moves, checkDropMate)
}

func (p *Position) appendDrops(moves []Move, checkDropMate bool) []Move {
	us := p.side
	var pawnFiles [BoardDim]bool
	if p.hands[us][Pawn] > 0 {
		for i := 0; i < NumSquares; i++ {
			if p.board[i] == NewPiece(Pawn, us) {
				pawnFiles[Square(i).Col()] = true
			}
		}
	}
	for pt := Pawn; pt <= Rook; pt++ {
		if p.hands[us][pt] == 0 {
			continue
		}
		for i := 0; i < NumSquares; i++ {
			to := Square(i)
			if p.board[to] != NoPiece {
				continue
			}
			rr := relativeRow(us, to.Row())
			switch pt {
			case Pawn:
				if rr == 0 || pawnFiles[to.Col()] {
					continue
				}
			case Lance:
				if rr == 0 {
					continue
				}
			case Knight:
				if rr <= 1 {
					continue
				}
			}
			m := NewDropMove(pt, to)
			if pt == Pawn && checkDropMate && p.isPawnDropMate(m) {
				continue
			}
			moves = append(moves, m)
		}
	}
	return moves
}

// isPawnDropMate reports whether dropping a pawn checkmates, which is illegal.
func (p *Position) isPawnDropMate(m Move) bool {
	them := p.side.Opponent()
	k := p.kings[them]
	if k == NoSquare {
		return false
	}
	front := orient(delta{-1, 0}, p.side)
	to := m.To()
	if to.Row()+front.dr != k.Row() || to.Col() != k.Col() {
		return false
	}
	// a drop that leaves our own king attacked is illegal anyway, and the
	// reply search below would see a king capture
	if !p.isLegal(m) {
		return false
	}
	p.Apply(m)
	mate := !p.hasLegalMove()
	p.Undo(m)
	return mate
}

func (p *Position) isLegal(m Move) bool {
	us := p.side
	p.Apply(m)
	ok := !p.InCheck(us)
	p.Undo(m)
	return ok
}

func (p *Position) hasLegalMove() bool {
	var buf [256]Move
	for _, m := range p.pseudoLegal(buf[:0], false) {
		if p.isLegal(m) {
			return true
		}
	}
	return false
}

// LegalMoves appends the legal moves of the side to move to buf[:0].
func (p *Position) LegalMoves(buf []Move) []Move {
	moves := p.pseudoLegal(buf[:0], true)
	n := 0
	for _, m := range moves {
		if p.isLegal(m) {
			moves[n] = m
			n++
		}
	}
	return moves[:n]
}

// GivesCheck reports whether m, legal in p, checks the opponent.
func (p *Position) GivesCheck(m Move) bool {
	p.Apply(m)
	check := p.InCheck(p.side)
	p.Undo(m)
	return check
}
