package bench

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/shogiban/kairos/search"
	"github.com/shogiban/kairos/shogi"
	"github.com/shogiban/kairos/stats"
)

const DefaultConfidence = 95.0

// Outcome pairs the pruned and unpruned searches of one case.
type Outcome struct {
	Case   Case
	Pruned search.Result
	Full   search.Result
}

// Agree reports whether pruning kept the move or at least its value.
func (o Outcome) Agree() bool {
	return o.Pruned.BestMove == o.Full.BestMove || o.Pruned.Score == o.Full.Score
}

// Solved reports whether the pruned search found the expected move. Cases
// without one count as solved.
func (o Outcome) Solved() bool {
	return o.Case.Best == "" || o.Pruned.BestMove.String() == o.Case.Best
}

// NodeRatio is the share of the unpruned tree the pruned search visited.
func (o Outcome) NodeRatio() float64 {
	if o.Full.Stats.Nodes == 0 {
		return 1
	}
	return float64(o.Pruned.Stats.Nodes) / float64(o.Full.Stats.Nodes)
}

type Report struct {
	Suite      string
	Outcomes   []Outcome
	Agreement  stats.Interval
	Solved     stats.Interval
	NodeRatio  stats.Summary
	// Nodes and Millis describe the pruned searches.
	Nodes      stats.Running
	Millis     stats.Summary
	Confidence float64
	Elapsed    time.Duration
}

type Runner struct {
	pruned     *search.Engine
	full       *search.Engine
	depth      int
	confidence float64
}

// NewRunner builds the two engines compared by Run. Depth is used for cases
// that do not set their own.
func NewRunner(opts search.Options, ev search.Evaluator, depth int, confidence float64) (*Runner, error) {
	pruned, err := search.NewEngine(opts, ev)
	if err != nil {
		return nil, err
	}
	fullOpts := opts
	fullOpts.DisablePruning = true
	full, err := search.NewEngine(fullOpts, ev)
	if err != nil {
		return nil, err
	}
	if depth <= 0 {
		depth = opts.Depth
	}
	if confidence <= 0 || confidence >= 100 {
		confidence = DefaultConfidence
	}
	return &Runner{pruned: pruned, full: full, depth: depth, confidence: confidence}, nil
}

func (r *Runner) Run(ctx context.Context, s *Suite) (*Report, error) {
	tstart := time.Now()
	rep := &Report{Suite: s.Name, Confidence: r.confidence}
	for _, c := range s.Cases {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		o, err := r.runCase(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c.Name, err)
		}
		log.Debug().Str("case", c.Name).Str("pruned", o.Pruned.BestMove.String()).
			Str("full", o.Full.BestMove.String()).Float64("node-ratio", o.NodeRatio()).
			Msg("bench-case")
		rep.Outcomes = append(rep.Outcomes, o)
		rep.Nodes.Push(float64(o.Pruned.Stats.Nodes))
	}
	n := len(rep.Outcomes)
	rep.Agreement = stats.Proportion(lo.CountBy(rep.Outcomes, Outcome.Agree), n, r.confidence)
	rep.Solved = stats.Proportion(lo.CountBy(rep.Outcomes, Outcome.Solved), n, r.confidence)
	rep.NodeRatio = stats.Summarize(lo.Map(rep.Outcomes, func(o Outcome, _ int) float64 {
		return o.NodeRatio()
	}))
	rep.Millis = stats.Summarize(rep.millis())
	rep.Elapsed = time.Since(tstart)
	return rep, nil
}

func (r *Runner) runCase(ctx context.Context, c Case) (Outcome, error) {
	depth := c.Depth
	if depth == 0 {
		depth = r.depth
	}
	o := Outcome{Case: c}
	for _, run := range []struct {
		e   *search.Engine
		dst *search.Result
	}{{r.pruned, &o.Pruned}, {r.full, &o.Full}} {
		pos, err := shogi.ParseSFEN(c.SFEN)
		if err != nil {
			return o, err
		}
		run.e.Clear()
		res, err := run.e.Search(ctx, pos, search.Limits{Depth: depth})
		if err != nil {
			return o, err
		}
		*run.dst = res
	}
	return o, nil
}

// Write prints a per-case table, the summary intervals and a histogram of
// node ratios.
func (rep *Report) Write(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "case\tpruned\tfull\tscore\tnodes\tfull nodes\tagree\tsolved")
	for _, o := range rep.Outcomes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%v\t%v\n", o.Case.Name,
			o.Pruned.BestMove, o.Full.BestMove, o.Pruned.Score,
			o.Pruned.Stats.Nodes, o.Full.Stats.Nodes, o.Agree(), o.Solved())
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nsuite %s: %d positions in %v\n", rep.Suite, len(rep.Outcomes), rep.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "agreement %.3f (%.0f%% CI %.3f-%.3f)\n", rep.Agreement.Estimate,
		rep.Confidence, rep.Agreement.Low, rep.Agreement.High)
	fmt.Fprintf(w, "solved    %.3f (%.0f%% CI %.3f-%.3f)\n", rep.Solved.Estimate,
		rep.Confidence, rep.Solved.Low, rep.Solved.High)
	fmt.Fprintf(w, "node ratio mean %.3f stdev %.3f median %.3f\n",
		rep.NodeRatio.Mean, rep.NodeRatio.Stdev, rep.NodeRatio.Median)
	fmt.Fprintf(w, "nodes mean %.0f stdev %.0f min %.0f max %.0f\n",
		rep.Nodes.Mean(), rep.Nodes.Stdev(), rep.Nodes.Min(), rep.Nodes.Max())
	fmt.Fprintf(w, "time ms mean %.1f stdev %.1f median %.1f\n",
		rep.Millis.Mean, rep.Millis.Stdev, rep.Millis.Median)
	if len(rep.Outcomes) < 2 || rep.Millis.Stdev == 0 {
		// uniplot cannot bin a sample with no spread
		return nil
	}
	fmt.Fprintln(w, "\nsearch time histogram (ms):")
	hist := histogram.Hist(10, rep.millis())
	return histogram.Fprint(w, hist, histogram.Linear(40))
}

func (rep *Report) millis() []float64 {
	return lo.Map(rep.Outcomes, func(o Outcome, _ int) float64 {
		return float64(o.Pruned.Elapsed.Microseconds()) / 1000
	})
}
