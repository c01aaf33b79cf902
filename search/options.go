package search

import (
	"errors"
	"fmt"
	"time"

	"github.com/shogiban/kairos/config"
	"github.com/shogiban/kairos/search/pruning"
)

var ErrInvalidOptions = errors.New("invalid search options")

// Options is the session configuration of an Engine.
type Options struct {
	// Depth and MoveTime are the limits used when a search does not set its
	// own. A zero MoveTime means no time limit.
	Depth             int
	MoveTime          time.Duration
	Threads           int
	NodeCheckInterval int

	TTSizeMB         int
	TTMemoryFraction float64

	Pruning        pruning.Params
	DisablePruning bool
}

func DefaultOptions() Options {
	return Options{
		Depth:             6,
		Threads:           1,
		NodeCheckInterval: 1024,
		TTSizeMB:          64,
		TTMemoryFraction:  0.05,
		Pruning:           pruning.DefaultParams(),
	}
}

// OptionsFromConfig reads a loaded config and validates the result.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	params, err := cfg.PruningParams()
	if err != nil {
		return Options{}, err
	}
	opts := Options{
		Depth:             cfg.GetInt(config.ConfigDefaultDepth),
		MoveTime:          time.Duration(cfg.GetInt(config.ConfigDefaultMoveTimeMs)) * time.Millisecond,
		Threads:           cfg.GetInt(config.ConfigThreads),
		NodeCheckInterval: cfg.GetInt(config.ConfigNodeCheckInterval),
		TTSizeMB:          cfg.GetInt(config.ConfigTTSizeMB),
		TTMemoryFraction:  cfg.GetFloat64(config.ConfigTTMemoryFraction),
		Pruning:           params,
		DisablePruning:    cfg.GetBool(config.ConfigDisablePruning),
	}
	return opts, opts.Validate()
}

func (o Options) Validate() error {
	switch {
	case o.Depth < 1 || o.Depth > MaxDepth:
		return fmt.Errorf("%w: depth %d not in [1, %d]", ErrInvalidOptions, o.Depth, MaxDepth)
	case o.MoveTime < 0:
		return fmt.Errorf("%w: negative move time", ErrInvalidOptions)
	case o.Threads < 1:
		return fmt.Errorf("%w: threads %d", ErrInvalidOptions, o.Threads)
	case o.NodeCheckInterval < 1:
		return fmt.Errorf("%w: node check interval %d", ErrInvalidOptions, o.NodeCheckInterval)
	case o.TTSizeMB < 0 || o.TTMemoryFraction < 0 || o.TTMemoryFraction > 1:
		return fmt.Errorf("%w: table size %d MB, fraction %v", ErrInvalidOptions, o.TTSizeMB, o.TTMemoryFraction)
	}
	return o.pruningParams().Validate()
}

func (o Options) pruningParams() pruning.Params {
	if o.DisablePruning {
		return o.Pruning.Disabled()
	}
	return o.Pruning
}

// Limits bound one search. Zero fields fall back to the engine Options.
type Limits struct {
	Depth    int
	MoveTime time.Duration
	// Infinite ignores both the depth and time defaults; the search runs to
	// MaxDepth or until its context is cancelled.
	Infinite bool
	// History holds the repetition-free fingerprints of the positions of
	// the game before the root, oldest first. They count as earlier
	// occurrences for repetition detection.
	History []uint64
	// Progress, if set, is called by the main worker after every completed
	// iteration.
	Progress func(Result)
}
