// Package usi speaks the Universal Shogi Interface over a line-oriented
// reader and writer.
package usi

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/shogiban/kairos/search"
	"github.com/shogiban/kairos/shogi"
)

const (
	movesToGo    = 40
	moveOverhead = 50 * time.Millisecond
	minMoveTime  = 10 * time.Millisecond
)

var (
	errSearching      = errors.New("search still running")
	errUnknownCommand = errors.New("command not found")
	errUnknownOption  = errors.New("unhandled option")
)

type Protocol struct {
	name    string
	author  string
	version string

	opts    search.Options
	eval    search.Evaluator
	options []Option
	engine  *search.Engine

	root  *shogi.Position
	moves []shogi.Move

	out   io.Writer
	outMu sync.Mutex

	thinking atomic.Bool
	infinite bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

func New(name, author, version string, opts search.Options, ev search.Evaluator) *Protocol {
	p := &Protocol{
		name:    name,
		author:  author,
		version: version,
		opts:    opts,
		eval:    ev,
		root:    shogi.NewStartPosition(),
	}
	p.options = []Option{
		// 0 sizes the table from system memory
		&IntOption{Name: "USI_Hash", Min: 0, Max: 1 << 16, Value: &p.opts.TTSizeMB},
		&IntOption{Name: "Threads", Min: 1, Max: 256, Value: &p.opts.Threads},
		&IntOption{Name: "Depth", Min: 1, Max: search.MaxDepth, Value: &p.opts.Depth},
		&BoolOption{Name: "DisablePruning", Value: &p.opts.DisablePruning},
	}
	return p
}

// Run processes commands from in until quit or end of input. A running
// search is waited for at end of input unless it is infinite.
func (p *Protocol) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	p.out = out
	log.Info().Str("session-id", uuid.NewString()).Msg("usi-session-starting")

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" {
			p.stop()
			return nil
		}
		if err := p.handle(ctx, line); err != nil {
			log.Error().Err(err).Str("command", line).Msg("usi-command-failed")
			p.send("info string error: %v", err)
		}
	}
	if p.infinite {
		p.stop()
	}
	p.wg.Wait()
	return scanner.Err()
}

func (p *Protocol) send(format string, args ...any) {
	p.outMu.Lock()
	defer p.outMu.Unlock()
	fmt.Fprintf(p.out, format+"\n", args...)
}

// stop cancels the running search, if any, and waits for its bestmove.
func (p *Protocol) stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

func (p *Protocol) handle(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	name, args := fields[0], fields[1:]

	if p.thinking.Load() {
		switch name {
		case "stop":
			p.stop()
			return nil
		case "isready":
			p.send("readyok")
			return nil
		}
		return errSearching
	}

	var h func(args []string) error
	switch name {
	case "usi":
		h = p.usiCommand
	case "isready":
		h = p.isReadyCommand
	case "setoption":
		h = p.setOptionCommand
	case "usinewgame":
		h = p.newGameCommand
	case "position":
		h = p.positionCommand
	case "go":
		h = func(args []string) error { return p.goCommand(ctx, args) }
	case "stop", "gameover", "ponderhit":
		return nil
	}
	if h == nil {
		return fmt.Errorf("%w: %s", errUnknownCommand, name)
	}
	return h(args)
}

func (p *Protocol) usiCommand(args []string) error {
	p.send("id name %s %s", p.name, p.version)
	p.send("id author %s", p.author)
	for _, option := range p.options {
		p.send("%s", option.USIString())
	}
	p.send("usiok")
	return nil
}

func (p *Protocol) ensureEngine() error {
	if p.engine != nil {
		return nil
	}
	e, err := search.NewEngine(p.opts, p.eval)
	if err != nil {
		return err
	}
	p.engine = e
	return nil
}

func (p *Protocol) isReadyCommand(args []string) error {
	if err := p.ensureEngine(); err != nil {
		return err
	}
	p.send("readyok")
	return nil
}

// setoption name <id> value <x>
func (p *Protocol) setOptionCommand(args []string) error {
	if len(args) < 4 || args[0] != "name" || args[2] != "value" {
		return errors.New("invalid setoption arguments")
	}
	name, value := args[1], args[3]
	for _, option := range p.options {
		if strings.EqualFold(option.USIName(), name) {
			if err := option.Set(value); err != nil {
				return err
			}
			// rebuilt on the next isready or go
			p.engine = nil
			return nil
		}
	}
	return fmt.Errorf("%w: %s", errUnknownOption, name)
}

func (p *Protocol) newGameCommand(args []string) error {
	if err := p.ensureEngine(); err != nil {
		return err
	}
	p.engine.Clear()
	return nil
}

// position [startpos | sfen <sfen>] [moves <m1> ...]
func (p *Protocol) positionCommand(args []string) error {
	if len(args) == 0 {
		return errors.New("position: missing arguments")
	}
	movesIndex := slices.Index(args, "moves")
	var text string
	switch args[0] {
	case "startpos":
		text = shogi.StartSFEN
	case "sfen":
		end := len(args)
		if movesIndex >= 0 {
			end = movesIndex
		}
		text = strings.Join(args[1:end], " ")
	default:
		return fmt.Errorf("position: unknown token %q", args[0])
	}
	root, err := shogi.ParseSFEN(text)
	if err != nil {
		return err
	}
	var moves []shogi.Move
	if movesIndex >= 0 {
		pos := root.Clone()
		for _, mt := range args[movesIndex+1:] {
			m, err := pos.ParseMove(mt)
			if err != nil {
				return err
			}
			pos.Apply(m)
			moves = append(moves, m)
		}
	}
	p.root, p.moves = root, moves
	return nil
}

func (p *Protocol) goCommand(ctx context.Context, args []string) error {
	params, err := parseGo(args)
	if err != nil {
		return err
	}
	if err := p.ensureEngine(); err != nil {
		return err
	}
	pos := p.root.Clone()
	hasher := p.engine.Hasher()
	history := make([]uint64, 0, len(p.moves))
	for _, m := range p.moves {
		history = append(history, hasher.Hash(pos, 0))
		pos.Apply(m)
	}
	limits := params.limits(pos.SideToMove())
	limits.History = history
	limits.Progress = func(r search.Result) {
		p.send("%s", infoLine(r))
	}

	sctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.infinite = params.infinite
	p.thinking.Store(true)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		res, err := p.engine.Search(sctx, pos, limits)
		cancel()
		if err != nil {
			log.Error().Err(err).Msg("usi-search-failed")
		}
		// the GUI may answer bestmove with the next go straight away
		p.thinking.Store(false)
		p.send("info string search-id %s", res.SearchID)
		p.send("bestmove %s", bestMove(res))
	}()
	return nil
}

func bestMove(r search.Result) string {
	if r.BestMove == shogi.NoMove {
		return "resign"
	}
	return r.BestMove.String()
}

func infoLine(r search.Result) string {
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "info depth %d", r.DepthReached)
	if r.Mate {
		fmt.Fprintf(sb, " score mate %d", r.MatePlies())
	} else {
		fmt.Fprintf(sb, " score cp %d", r.Score)
	}
	timeMs := r.Elapsed.Milliseconds()
	nps := r.Stats.Nodes * 1000 / uint64(timeMs+1)
	fmt.Fprintf(sb, " nodes %d time %d nps %d", r.Stats.Nodes, timeMs, nps)
	if len(r.PV) != 0 {
		sb.WriteString(" pv ")
		sb.WriteString(strings.Join(lo.Map(r.PV, func(m shogi.Move, _ int) string {
			return m.String()
		}), " "))
	}
	return sb.String()
}

type goParams struct {
	depth    int
	moveTime time.Duration
	byoyomi  time.Duration
	btime    time.Duration
	wtime    time.Duration
	binc     time.Duration
	winc     time.Duration
	infinite bool
}

func parseGo(args []string) (goParams, error) {
	var g goParams
	for i := 0; i < len(args); i++ {
		key := args[i]
		var dst *time.Duration
		switch key {
		case "infinite":
			g.infinite = true
			continue
		case "ponder":
			continue
		case "depth":
			if i+1 >= len(args) {
				return g, fmt.Errorf("go: %s needs a value", key)
			}
			v, err := strconv.Atoi(args[i+1])
			if err != nil {
				return g, fmt.Errorf("go: %s: %w", key, err)
			}
			g.depth = v
			i++
			continue
		case "movetime":
			dst = &g.moveTime
		case "byoyomi":
			dst = &g.byoyomi
		case "btime":
			dst = &g.btime
		case "wtime":
			dst = &g.wtime
		case "binc":
			dst = &g.binc
		case "winc":
			dst = &g.winc
		default:
			return g, fmt.Errorf("go: unknown parameter %q", key)
		}
		if i+1 >= len(args) {
			return g, fmt.Errorf("go: %s needs a value", key)
		}
		ms, err := strconv.Atoi(args[i+1])
		if err != nil {
			return g, fmt.Errorf("go: %s: %w", key, err)
		}
		*dst = time.Duration(ms) * time.Millisecond
		i++
	}
	if g.depth < 0 || g.depth > search.MaxDepth {
		return g, fmt.Errorf("go: depth %d out of range", g.depth)
	}
	return g, nil
}

// limits turns clock information into a per-move budget for side.
func (g goParams) limits(side shogi.Color) search.Limits {
	l := search.Limits{Depth: g.depth, Infinite: g.infinite}
	if g.infinite {
		return l
	}
	if g.moveTime > 0 {
		l.MoveTime = g.moveTime
	} else {
		remaining, inc := g.btime, g.binc
		if side == shogi.White {
			remaining, inc = g.wtime, g.winc
		}
		if remaining > 0 || inc > 0 || g.byoyomi > 0 {
			budget := remaining/movesToGo + inc + g.byoyomi - moveOverhead
			budget = min(budget, remaining+g.byoyomi-moveOverhead)
			l.MoveTime = max(budget, minMoveTime)
		}
	}
	if l.MoveTime > 0 && l.Depth == 0 {
		l.Depth = search.MaxDepth
	}
	return l
}
