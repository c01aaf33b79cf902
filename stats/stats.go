// Package stats summarizes benchmark measurements: running means of node
// counts and timings, and confidence intervals on agreement rates.
package stats

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

const (
	Epsilon = 1e-6
)

func FuzzyEqual(a, b float64) bool {
	return math.Abs(a-b) < Epsilon
}

// Running accumulates a sample one value at a time (Welford's algorithm).
type Running struct {
	n    int
	last float64
	mean float64
	m2   float64
	min  float64
	max  float64
}

func (r *Running) Push(val float64) {
	r.last = val
	r.n++
	if r.n == 1 {
		r.mean, r.m2 = val, 0
		r.min, r.max = val, val
		return
	}
	delta := val - r.mean
	r.mean += delta / float64(r.n)
	r.m2 += delta * (val - r.mean)
	r.min = min(r.min, val)
	r.max = max(r.max, val)
}

func (r *Running) Mean() float64 {
	return r.mean
}

func (r *Running) Variance() float64 {
	if r.n <= 1 {
		return 0.0
	}
	return r.m2 / float64(r.n-1)
}

func (r *Running) Stdev() float64 {
	return math.Sqrt(r.Variance())
}

// StandardError returns the standard error of the mean.
func (r *Running) StandardError() float64 {
	if r.n == 0 {
		return 0
	}
	return math.Sqrt(r.Variance() / float64(r.n))
}

func (r *Running) Last() float64 { return r.last }
func (r *Running) Min() float64  { return r.min }
func (r *Running) Max() float64  { return r.max }
func (r *Running) Count() int    { return r.n }

// Summary describes a complete sample.
type Summary struct {
	N      int
	Mean   float64
	Stdev  float64
	Median float64
}

// Summarize computes a Summary of xs, which it does not modify.
func Summarize(xs []float64) Summary {
	if len(xs) == 0 {
		return Summary{}
	}
	mean, std := stat.MeanStdDev(xs, nil)
	if len(xs) == 1 {
		std = 0
	}
	sorted := slices.Clone(xs)
	slices.Sort(sorted)
	return Summary{
		N:      len(xs),
		Mean:   mean,
		Stdev:  std,
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
	}
}

// Interval is a two-sided confidence interval around Estimate.
type Interval struct {
	Estimate float64
	Low      float64
	High     float64
}

// Proportion returns the Wilson score interval for successes out of n
// trials at the given confidence (0 to 100 percent).
func Proportion(successes, n int, confidence float64) Interval {
	if n == 0 {
		return Interval{}
	}
	z := ZVal(confidence)
	p := float64(successes) / float64(n)
	nf := float64(n)
	denom := 1 + z*z/nf
	center := (p + z*z/(2*nf)) / denom
	half := z * math.Sqrt(p*(1-p)/nf+z*z/(4*nf*nf)) / denom
	return Interval{
		Estimate: p,
		Low:      max(0, center-half),
		High:     min(1, center+half),
	}
}
