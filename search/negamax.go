package search

import (
	"context"
	"errors"
	"time"

	"lukechampine.com/frand"

	"github.com/shogiban/kairos/search/ordering"
	"github.com/shogiban/kairos/search/pruning"
	"github.com/shogiban/kairos/search/ttable"
	"github.com/shogiban/kairos/shogi"
)

// thanks Wikipedia:
/*
function negamax(node, depth, α, β, color) is
    if depth = 0 or node is a terminal node then
        return color × the heuristic value of node

    childNodes := generateMoves(node)
    childNodes := orderMoves(childNodes)
    value := −∞
    foreach child in childNodes do
        value := max(value, −negamax(child, depth − 1, −β, −α, −color))
        α := max(α, value)
        if α ≥ β then
            break (* cut-off *)
    return value
**/

// errSearchAborted unwinds the recursion when the time budget runs out or
// the context is cancelled. It never leaves the package.
var errSearchAborted = errors.New("search aborted")

// node identifies a position on the current search path.
type node struct {
	// hash is the fingerprint including the repetition class.
	hash uint64
	// reps counts earlier occurrences of the position on the game and
	// search path.
	reps int
	ply  int
	// prev is the move that led here; NoMove at the root.
	prev shogi.Move
}

// worker owns one board and its move-ordering tables. Workers share the
// engine's cache, evaluator and statistics.
type worker struct {
	id      int
	e       *Engine
	board   Board
	orderer *ordering.Orderer
	path    map[uint64]int

	moves  [MaxPly][]shogi.Move
	qmoves [MaxPly][]shogi.Move
	quiets [MaxPly][]shogi.Move

	ctx         context.Context
	deadline    time.Time
	nodes       uint64
	shuffleRoot bool
}

func newWorker(id int, e *Engine) *worker {
	return &worker{
		id:      id,
		e:       e,
		orderer: ordering.New(e.eval),
		path:    map[uint64]int{},
	}
}

// reset points the worker at a new root and returns its node.
func (w *worker) reset(ctx context.Context, b Board, deadline time.Time, history []uint64) node {
	w.ctx = ctx
	w.board = b
	w.deadline = deadline
	w.nodes = 0
	clear(w.path)
	for _, h := range history {
		w.path[h]++
	}
	bare := w.e.zobrist.Hash(b, 0)
	reps := w.path[bare]
	root := node{hash: w.e.zobrist.Repetition(bare, 0, reps), reps: reps}
	w.enter(root)
	return root
}

func (w *worker) poll() error {
	w.nodes++
	if w.nodes%uint64(w.e.opts.NodeCheckInterval) != 0 {
		return nil
	}
	if w.ctx.Err() != nil {
		return errSearchAborted
	}
	if !w.deadline.IsZero() && time.Now().After(w.deadline) {
		return errSearchAborted
	}
	return nil
}

func (w *worker) bare(n node) uint64 {
	return w.e.zobrist.Repetition(n.hash, n.reps, 0)
}

func (w *worker) enter(n node) {
	w.path[w.bare(n)]++
}

func (w *worker) leave(n node) {
	b := w.bare(n)
	if w.path[b] <= 1 {
		delete(w.path, b)
		return
	}
	w.path[b]--
}

// play applies m, which must be legal at n, and returns the child node.
func (w *worker) play(n node, m shogi.Move) node {
	bare := w.e.zobrist.AddMove(n.hash, m, w.board, n.reps, 0)
	reps := w.path[bare]
	c := node{
		hash: w.e.zobrist.Repetition(bare, 0, reps),
		reps: reps,
		ply:  n.ply + 1,
		prev: m,
	}
	w.board.Apply(m)
	w.enter(c)
	return c
}

func (w *worker) unplay(c node, m shogi.Move) {
	w.leave(c)
	w.board.Undo(m)
}

func (w *worker) evaluate() int {
	return w.e.eval.StaticScore(w.board, w.board.SideToMove())
}

func (w *worker) candidate(m shogi.Move, idx int, givesCheck bool, ply int) pruning.Candidate {
	return pruning.Candidate{
		Move:          m,
		Index:         idx,
		GivesCheck:    givesCheck,
		Killer:        w.orderer.IsKiller(m, ply),
		CapturedValue: w.e.eval.PieceValue(m.Captured()),
	}
}

func neg(v int, err error) (int, error) {
	return -v, err
}

// deepen runs iterations from..to at root, calling done after each
// completed one until done returns false.
func (w *worker) deepen(root node, from, to int, done func(depth, score int, pv *PVLine) bool) error {
	for d := from; d <= to; d++ {
		if w.ctx.Err() != nil {
			return errSearchAborted
		}
		pv := &PVLine{}
		score, err := w.negamax(root, d, -Infinity, Infinity, pv)
		if err != nil {
			return err
		}
		if !done(d, score, pv) {
			return nil
		}
	}
	return nil
}

func (w *worker) negamax(n node, depth, alpha, beta int, pv *PVLine) (int, error) {
	if depth <= 0 {
		return w.quiescence(n, alpha, beta)
	}
	if err := w.poll(); err != nil {
		return 0, err
	}
	ply := n.ply
	pvNode := beta-alpha > 1
	mateWindow := IsMateScore(alpha) || IsMateScore(beta)
	if ply > 0 {
		if n.reps > 0 {
			return DrawScore, nil
		}
		if ply >= MaxPly-1 {
			return w.evaluate(), nil
		}
		// mate distance pruning
		alpha = max(alpha, MatedIn(ply))
		beta = min(beta, MateIn(ply+1))
		if alpha >= beta {
			return alpha, nil
		}
	}
	w.e.stats.nodes.Add(1)
	alphaOrig := alpha

	hint := shogi.NoMove
	w.e.stats.cacheProbes.Add(1)
	if entry, ok := w.e.cache.Probe(n.hash); ok {
		w.e.stats.cacheHits.Add(1)
		hint = entry.Move
		if ply > 0 && entry.Depth >= depth && (!pvNode || entry.Bound == ttable.BoundExact) {
			score := valueFromTT(entry.Score, ply)
			switch {
			case entry.Bound == ttable.BoundExact:
				return score, nil
			case entry.Bound == ttable.BoundLower && score >= beta:
				return score, nil
			case entry.Bound == ttable.BoundUpper && score <= alpha:
				return score, nil
			}
		}
	}

	us := w.board.SideToMove()
	inCheck := w.board.InCheck(us)
	moves := w.board.LegalMoves(w.moves[ply])
	w.moves[ply] = moves[:0]
	if len(moves) == 0 {
		if inCheck {
			return MatedIn(ply), nil
		}
		return DrawScore, nil
	}

	pctx := pruning.Context{
		Depth:      depth,
		Ply:        ply,
		Alpha:      alpha,
		Beta:       beta,
		InCheck:    inCheck,
		PVNode:     pvNode,
		MateWindow: mateWindow,
		Quiet:      !n.prev.IsCapture() && !n.prev.IsPromotion(),
	}
	if !inCheck {
		pctx.StaticEval = w.e.eval.StaticScore(w.board, us)
		if depth <= w.e.pruner.RazorMaxDepth {
			pctx.Phase = w.e.eval.Phase(w.board)
		}
	}

	if w.e.pruner.Razor(pctx) {
		v, err := w.quiescence(n, alpha, alpha+1)
		if err != nil {
			return 0, err
		}
		if verdict := w.e.pruner.RazorOutcome(pctx, v); verdict.Kind == pruning.Cut {
			w.e.stats.prune(verdict.By)
			return v, nil
		}
	}

	if d, ok := w.e.pruner.IIDDepth(pctx, len(moves), hint != shogi.NoMove); ok {
		w.e.stats.iidSearches.Add(1)
		iidPV := &PVLine{}
		if _, err := w.negamax(n, d, alpha, beta, iidPV); err != nil {
			return 0, err
		}
		hint = iidPV.GetPVMove()
		if hint == shogi.NoMove {
			if entry, ok := w.e.cache.Probe(n.hash); ok {
				hint = entry.Move
			}
		}
		// the shallow search reused this ply's move buffer
		moves = w.board.LegalMoves(w.moves[ply])
		w.moves[ply] = moves[:0]
	}

	moves = w.orderer.Order(w.board, moves, hint, ply)
	if ply == 0 && w.shuffleRoot && len(moves) > 2 {
		frand.Shuffle(len(moves)-1, func(i, j int) {
			moves[i+1], moves[j+1] = moves[j+1], moves[i+1]
		})
	}

	if d, ok := w.e.pruner.MultiCutVerifyDepth(pctx); ok {
		cutoffs := 0
		for _, m := range moves[:min(len(moves), w.e.pruner.MultiCutMoves)] {
			c := w.play(n, m)
			v, err := neg(w.negamax(c, d, -beta, -beta+1, &PVLine{}))
			w.unplay(c, m)
			if err != nil {
				return 0, err
			}
			if v < beta {
				continue
			}
			cutoffs++
			if verdict := w.e.pruner.MultiCutOutcome(pctx, cutoffs); verdict.Kind == pruning.Cut {
				w.e.stats.prune(verdict.By)
				return beta, nil
			}
		}
	}

	quiets := w.quiets[ply][:0]
	best := -Infinity
	bestMove := shogi.NoMove
	searched := 0
	var childPV PVLine
	for i, m := range moves {
		c := w.play(n, m)
		cand := w.candidate(m, i, w.board.InCheck(us.Opponent()), ply)
		pctx.Alpha = alpha
		verdict := w.e.pruner.Decide(pctx, cand)
		if verdict.Kind == pruning.Skip {
			w.unplay(c, m)
			w.e.stats.prune(verdict.By)
			continue
		}
		reduction := 0
		if verdict.Kind == pruning.Reduce {
			reduction = verdict.Reduction
			w.e.stats.prune(verdict.By)
		}
		score, err := w.searchChild(c, depth-1, reduction, alpha, beta, searched == 0, &childPV)
		w.unplay(c, m)
		if err != nil {
			return 0, err
		}
		searched++
		quiet := !cand.Tactical()
		if quiet {
			quiets = append(quiets, m)
		}
		if score > best {
			best = score
			bestMove = m
			if score > alpha {
				alpha = score
				pv.Update(m, childPV, score)
				if alpha >= beta {
					w.e.stats.betaCutoffs.Add(1)
					if quiet {
						w.orderer.StoreKiller(m, ply)
						w.orderer.UpdateHistory(us, quiets, m, depth)
					}
					break
				}
			}
		}
		childPV.Clear()
	}
	w.quiets[ply] = quiets[:0]
	if searched == 0 {
		best = alphaOrig
	}

	bound := ttable.BoundExact
	if best <= alphaOrig {
		bound = ttable.BoundUpper
	} else if best >= beta {
		bound = ttable.BoundLower
	}
	w.e.stats.cacheStores.Add(1)
	w.e.cache.Store(ttable.Entry{
		Key:   n.hash,
		Move:  bestMove,
		Score: valueToTT(best, ply),
		Depth: depth,
		Bound: bound,
	})
	return best, nil
}

// searchChild searches an applied move, first at depth-reduction and again
// at full depth if the reduced search beats alpha. Moves after the first get
// a null window and a full-window re-search only when they land inside
// (alpha, beta).
func (w *worker) searchChild(c node, depth, reduction, alpha, beta int, first bool, pv *PVLine) (int, error) {
	if first {
		score, err := neg(w.negamax(c, depth-reduction, -beta, -alpha, pv))
		if err != nil || reduction == 0 || score <= alpha {
			return score, err
		}
		w.e.stats.lmrResearches.Add(1)
		pv.Clear()
		return neg(w.negamax(c, depth, -beta, -alpha, pv))
	}
	score, err := neg(w.negamax(c, depth-reduction, -alpha-1, -alpha, pv))
	if err != nil {
		return 0, err
	}
	if reduction > 0 && score > alpha {
		w.e.stats.lmrResearches.Add(1)
		pv.Clear()
		if score, err = neg(w.negamax(c, depth, -alpha-1, -alpha, pv)); err != nil {
			return 0, err
		}
	}
	if score > alpha && score < beta {
		pv.Clear()
		return neg(w.negamax(c, depth, -beta, -alpha, pv))
	}
	return score, nil
}

// quiescence resolves captures until the position is quiet. In check every
// evasion is searched and standing pat is not allowed.
func (w *worker) quiescence(n node, alpha, beta int) (int, error) {
	if err := w.poll(); err != nil {
		return 0, err
	}
	ply := n.ply
	if ply > 0 && n.reps > 0 {
		return DrawScore, nil
	}
	w.e.stats.nodes.Add(1)
	w.e.stats.qnodes.Add(1)
	if ply >= MaxPly-1 {
		return w.evaluate(), nil
	}

	us := w.board.SideToMove()
	inCheck := w.board.InCheck(us)
	moves := w.board.LegalMoves(w.qmoves[ply])
	w.qmoves[ply] = moves[:0]
	if len(moves) == 0 {
		if inCheck {
			return MatedIn(ply), nil
		}
		return DrawScore, nil
	}

	best := -Infinity
	pctx := pruning.Context{
		Ply:        ply,
		Alpha:      alpha,
		Beta:       beta,
		InCheck:    inCheck,
		PVNode:     beta-alpha > 1,
		MateWindow: IsMateScore(alpha) || IsMateScore(beta),
	}
	if !inCheck {
		standPat := w.e.eval.StaticScore(w.board, us)
		if standPat >= beta {
			return standPat, nil
		}
		best = standPat
		alpha = max(alpha, standPat)
		pctx.StaticEval = standPat

		captures := moves[:0]
		for _, m := range moves {
			if m.IsCapture() {
				captures = append(captures, m)
			}
		}
		moves = captures
	}

	moves = w.orderer.Order(w.board, moves, shogi.NoMove, ply)
	for i, m := range moves {
		c := w.play(n, m)
		if !inCheck {
			pctx.Alpha = alpha
			cand := w.candidate(m, i, w.board.InCheck(us.Opponent()), ply)
			if verdict := w.e.pruner.Decide(pctx, cand); verdict.Kind == pruning.Skip {
				w.unplay(c, m)
				w.e.stats.prune(verdict.By)
				continue
			}
		}
		score, err := neg(w.quiescence(c, -beta, -alpha))
		w.unplay(c, m)
		if err != nil {
			return 0, err
		}
		if score > best {
			best = score
			if score > alpha {
				alpha = score
				if alpha >= beta {
					break
				}
			}
		}
	}
	return best, nil
}
