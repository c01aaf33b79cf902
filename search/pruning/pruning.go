// Package pruning decides, from the state of a search node and a candidate
// move, whether the search may skip, reduce or cut.
//
// Every technique returns Continue when the side to move is in check. That
// guard is tested first in each of them. Captures, promotions and checking
// moves are never skipped in the main search; delta pruning may skip a
// capture only in quiescence.
package pruning

import (
	"fmt"
	"math"

	"github.com/shogiban/kairos/eval"
	"github.com/shogiban/kairos/shogi"
)

type Kind uint8

const (
	Continue Kind = iota
	Skip
	Reduce
	Cut
)

type Technique uint8

const (
	None Technique = iota
	Futility
	Delta
	Razoring
	LMR
	MultiCut
)

func (t Technique) String() string {
	return [...]string{"none", "futility", "delta", "razoring", "lmr", "multi-cut"}[t]
}

type Verdict struct {
	Kind Kind
	// Reduction is the number of plies to drop when Kind is Reduce.
	Reduction int
	By        Technique
}

func (v Verdict) String() string {
	switch v.Kind {
	case Skip:
		return "skip(" + v.By.String() + ")"
	case Reduce:
		return fmt.Sprintf("reduce(%s,%d)", v.By, v.Reduction)
	case Cut:
		return "cut(" + v.By.String() + ")"
	}
	return "continue"
}

var cont = Verdict{}

// Context is the node state a decision reads. Depth <= 0 means quiescence.
type Context struct {
	Depth      int
	Ply        int
	Alpha      int
	Beta       int
	InCheck    bool
	StaticEval int
	Phase      int
	PVNode     bool
	// MateWindow is set when alpha or beta is a mate score; margins mean
	// nothing there.
	MateWindow bool
	// Quiet is set when the move into this node was neither a capture nor a
	// promotion.
	Quiet bool
}

// Candidate is a move under consideration, already known to be legal.
type Candidate struct {
	Move shogi.Move
	// Index is the move's position in the ordered list, from 0.
	Index      int
	GivesCheck bool
	Killer     bool
	// CapturedValue is the evaluator's value of the captured piece.
	CapturedValue int
}

// Tactical reports whether the move captures, promotes or checks.
func (c Candidate) Tactical() bool {
	return c.Move.IsCapture() || c.Move.IsPromotion() || c.GivesCheck
}

const maxLMRIndex = 64

// Engine applies a validated Params.
type Engine struct {
	Params
	reductions [maxLMRIndex][maxLMRIndex]int
}

func NewEngine(p Params) (*Engine, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{Params: p}
	for d := 1; d < maxLMRIndex; d++ {
		for m := 1; m < maxLMRIndex; m++ {
			e.reductions[d][m] = int(0.75 + math.Log(float64(d))*math.Log(float64(m))/2.25)
		}
	}
	return e, nil
}

// Decide runs the per-move checks in order: futility, delta, late-move
// reduction. The first verdict other than Continue wins.
func (e *Engine) Decide(ctx Context, c Candidate) Verdict {
	if ctx.InCheck {
		return cont
	}
	if v := e.FutilityCheck(ctx, c); v.Kind != Continue {
		return v
	}
	if v := e.DeltaCheck(ctx, c); v.Kind != Continue {
		return v
	}
	return e.LateMoveReduction(ctx, c)
}

func (e *Engine) FutilityCheck(ctx Context, c Candidate) Verdict {
	if ctx.InCheck {
		return cont
	}
	if !e.Futility || ctx.PVNode || ctx.MateWindow || c.Tactical() || c.Index == 0 {
		return cont
	}
	if ctx.Depth < 1 || ctx.Depth >= len(e.FutilityMargins) {
		return cont
	}
	if ctx.StaticEval+e.FutilityMargins[ctx.Depth] <= ctx.Alpha {
		return Verdict{Kind: Skip, By: Futility}
	}
	return cont
}

// DeltaCheck skips hopeless captures in quiescence. In the main search the
// same test only reduces the capture by one ply.
func (e *Engine) DeltaCheck(ctx Context, c Candidate) Verdict {
	if ctx.InCheck {
		return cont
	}
	if !e.Delta || ctx.MateWindow || !c.Move.IsCapture() || c.Move.IsPromotion() || c.GivesCheck {
		return cont
	}
	if ctx.Depth > e.DeltaMaxDepth {
		return cont
	}
	if ctx.StaticEval+c.CapturedValue+e.DeltaMargin > ctx.Alpha {
		return cont
	}
	if ctx.Depth <= 0 {
		return Verdict{Kind: Skip, By: Delta}
	}
	if ctx.Depth < 2 || ctx.PVNode {
		return cont
	}
	return Verdict{Kind: Reduce, Reduction: 1, By: Delta}
}

func (e *Engine) LateMoveReduction(ctx Context, c Candidate) Verdict {
	if ctx.InCheck {
		return cont
	}
	if !e.LMR || c.Tactical() || c.Killer {
		return cont
	}
	if ctx.Depth < e.LMRMinDepth || c.Index < e.LMRMoveThreshold {
		return cont
	}
	r := e.reductions[min(ctx.Depth, maxLMRIndex-1)][min(c.Index, maxLMRIndex-1)]
	if ctx.PVNode {
		r--
	}
	r = min(r, e.LMRMaxReduction, ctx.Depth-2)
	if r <= 0 {
		return cont
	}
	return Verdict{Kind: Reduce, Reduction: r, By: LMR}
}

// RazorMargin interpolates between the opening and endgame margins by phase
// and adds a per-depth term.
func (e *Engine) RazorMargin(phase, depth int) int {
	phase = max(0, min(phase, eval.MaxPhase))
	m := (e.RazorMarginOpening*phase + e.RazorMarginEndgame*(eval.MaxPhase-phase)) / eval.MaxPhase
	return m + e.RazorDepthMargin*depth
}

// Razor reports whether the node qualifies for a razoring verification. The
// caller then runs a quiescence search with window (Alpha, Alpha+1) and
// passes its score to RazorOutcome.
func (e *Engine) Razor(ctx Context) bool {
	if ctx.InCheck {
		return false
	}
	if !e.Razoring || ctx.PVNode || ctx.MateWindow || !ctx.Quiet || ctx.Ply == 0 {
		return false
	}
	if ctx.Depth < 1 || ctx.Depth > e.RazorMaxDepth {
		return false
	}
	return ctx.StaticEval+e.RazorMargin(ctx.Phase, ctx.Depth) <= ctx.Alpha
}

// RazorOutcome cuts the node when the verification search failed to reach
// its beta of Alpha+1.
func (e *Engine) RazorOutcome(ctx Context, verified int) Verdict {
	if ctx.InCheck {
		return cont
	}
	if verified <= ctx.Alpha {
		return Verdict{Kind: Cut, By: Razoring}
	}
	return cont
}

// MultiCutVerifyDepth reports whether the node qualifies for multi-cut and the
// depth of the verification searches. The caller searches up to
// MultiCutMoves moves at that depth with window (Beta-1, Beta), counts the
// cutoffs and passes the count to MultiCutOutcome.
func (e *Engine) MultiCutVerifyDepth(ctx Context) (int, bool) {
	if ctx.InCheck {
		return 0, false
	}
	if !e.MultiCut || ctx.PVNode || ctx.MateWindow || ctx.Ply == 0 {
		return 0, false
	}
	if ctx.Depth < e.MultiCutDepth {
		return 0, false
	}
	return ctx.Depth - 1 - e.MultiCutReduction, true
}

func (e *Engine) MultiCutOutcome(ctx Context, cutoffs int) Verdict {
	if ctx.InCheck {
		return cont
	}
	if cutoffs >= e.MultiCutRequired {
		return Verdict{Kind: Cut, By: MultiCut}
	}
	return cont
}

// IIDDepth reports whether a node without a cached move should first be
// searched shallowly for one, and to what depth.
func (e *Engine) IIDDepth(ctx Context, moveCount int, haveHint bool) (int, bool) {
	if !e.IID || haveHint || moveCount < e.IIDMinMoves || ctx.Depth < e.IIDMinDepth {
		return 0, false
	}
	return ctx.Depth - e.IIDReduction, true
}
