package pruning

import (
	"errors"
	"fmt"
)

var ErrInvalidParams = errors.New("invalid pruning parameters")

// Params configures every pruning technique. A Params value is loaded once
// per session and never modified while a search runs.
type Params struct {
	Futility bool `yaml:"futility" mapstructure:"futility"`
	// FutilityMargins[d] is the margin at remaining depth d. Its length
	// bounds the depths at which futility applies.
	FutilityMargins []int `yaml:"futility-margins" mapstructure:"futility-margins"`

	Delta         bool `yaml:"delta" mapstructure:"delta"`
	DeltaMargin   int  `yaml:"delta-margin" mapstructure:"delta-margin"`
	DeltaMaxDepth int  `yaml:"delta-max-depth" mapstructure:"delta-max-depth"`

	Razoring           bool `yaml:"razoring" mapstructure:"razoring"`
	RazorMaxDepth      int  `yaml:"razor-max-depth" mapstructure:"razor-max-depth"`
	RazorMarginOpening int  `yaml:"razor-margin-opening" mapstructure:"razor-margin-opening"`
	RazorMarginEndgame int  `yaml:"razor-margin-endgame" mapstructure:"razor-margin-endgame"`
	RazorDepthMargin   int  `yaml:"razor-depth-margin" mapstructure:"razor-depth-margin"`

	LMR              bool `yaml:"lmr" mapstructure:"lmr"`
	LMRMinDepth      int  `yaml:"lmr-min-depth" mapstructure:"lmr-min-depth"`
	LMRMoveThreshold int  `yaml:"lmr-move-threshold" mapstructure:"lmr-move-threshold"`
	LMRMaxReduction  int  `yaml:"lmr-max-reduction" mapstructure:"lmr-max-reduction"`

	MultiCut          bool `yaml:"multi-cut" mapstructure:"multi-cut"`
	MultiCutDepth     int  `yaml:"multi-cut-depth" mapstructure:"multi-cut-depth"`
	MultiCutMoves     int  `yaml:"multi-cut-moves" mapstructure:"multi-cut-moves"`
	MultiCutRequired  int  `yaml:"multi-cut-required" mapstructure:"multi-cut-required"`
	MultiCutReduction int  `yaml:"multi-cut-reduction" mapstructure:"multi-cut-reduction"`

	// Internal iterative deepening runs a search of depth-IIDReduction to
	// find an ordering hint when none is cached.
	IID          bool `yaml:"iid" mapstructure:"iid"`
	IIDMinDepth  int  `yaml:"iid-min-depth" mapstructure:"iid-min-depth"`
	IIDMinMoves  int  `yaml:"iid-min-moves" mapstructure:"iid-min-moves"`
	IIDReduction int  `yaml:"iid-reduction" mapstructure:"iid-reduction"`
}

func DefaultParams() Params {
	return Params{
		Futility:        true,
		FutilityMargins: []int{0, 200, 350, 550},

		Delta:         true,
		DeltaMargin:   200,
		DeltaMaxDepth: 2,

		Razoring:           true,
		RazorMaxDepth:      2,
		RazorMarginOpening: 350,
		RazorMarginEndgame: 250,
		RazorDepthMargin:   100,

		LMR:              true,
		LMRMinDepth:      3,
		LMRMoveThreshold: 3,
		LMRMaxReduction:  3,

		MultiCut:          true,
		MultiCutDepth:     6,
		MultiCutMoves:     6,
		MultiCutRequired:  3,
		MultiCutReduction: 4,

		IID:          true,
		IIDMinDepth:  5,
		IIDMinMoves:  4,
		IIDReduction: 2,
	}
}

// Disabled turns every pruning technique off and keeps the rest of p.
func (p Params) Disabled() Params {
	p.Futility = false
	p.Delta = false
	p.Razoring = false
	p.LMR = false
	p.MultiCut = false
	return p
}

// Validate rejects parameter sets the search cannot run with.
func (p Params) Validate() error {
	fail := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidParams, fmt.Sprintf(format, args...))
	}
	if p.Futility {
		if len(p.FutilityMargins) < 2 {
			return fail("futility needs margins for at least depth 1")
		}
		for d, m := range p.FutilityMargins {
			if m < 0 {
				return fail("futility margin at depth %d is negative", d)
			}
		}
	}
	if p.Delta && (p.DeltaMargin < 0 || p.DeltaMaxDepth < 0) {
		return fail("delta margin %d, max depth %d", p.DeltaMargin, p.DeltaMaxDepth)
	}
	if p.Razoring && (p.RazorMaxDepth < 1 || p.RazorMarginOpening < 0 ||
		p.RazorMarginEndgame < 0 || p.RazorDepthMargin < 0) {
		return fail("razoring depth/margins must be positive")
	}
	if p.LMR {
		if p.LMRMinDepth < 2 {
			return fail("lmr-min-depth %d below 2", p.LMRMinDepth)
		}
		if p.LMRMoveThreshold < 1 || p.LMRMaxReduction < 1 {
			return fail("lmr threshold %d, max reduction %d", p.LMRMoveThreshold, p.LMRMaxReduction)
		}
	}
	if p.MultiCut {
		if p.MultiCutRequired < 1 || p.MultiCutRequired > p.MultiCutMoves {
			return fail("multi-cut needs 1 <= required (%d) <= moves (%d)",
				p.MultiCutRequired, p.MultiCutMoves)
		}
		if p.MultiCutReduction < 1 || p.MultiCutDepth <= p.MultiCutReduction {
			return fail("multi-cut depth %d must exceed reduction %d",
				p.MultiCutDepth, p.MultiCutReduction)
		}
	}
	if p.IID && (p.IIDReduction < 1 || p.IIDMinDepth <= p.IIDReduction) {
		return fail("iid depth %d must exceed reduction %d", p.IIDMinDepth, p.IIDReduction)
	}
	return nil
}
