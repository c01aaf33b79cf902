package shell

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/shogiban/kairos/bench"
	"github.com/shogiban/kairos/config"
	"github.com/shogiban/kairos/eval"
	"github.com/shogiban/kairos/search"
	"github.com/shogiban/kairos/shogi"
)

type Response struct {
	message string
}

type CmdOptions map[string][]string

func (c CmdOptions) String(key string) string {
	v := c[key]
	if len(v) > 0 {
		return v[0]
	}
	return ""
}

func (c CmdOptions) IntDefault(key string, defaultI int) (int, error) {
	v := c[key]
	if len(v) == 0 {
		return defaultI, nil
	}
	return strconv.Atoi(v[0])
}

func (c CmdOptions) FloatDefault(key string, defaultF float64) (float64, error) {
	v := c[key]
	if len(v) == 0 {
		return defaultF, nil
	}
	return strconv.ParseFloat(v[0], 64)
}

func (c CmdOptions) Bool(key string) bool {
	v := c[key]
	if len(v) == 0 {
		return false
	}
	return strings.ToLower(v[0]) == "true"
}

func msg(message string) *Response {
	return &Response{message: message}
}

// settable maps the names accepted by `set` to config keys.
var settable = map[string]string{
	"depth":           config.ConfigDefaultDepth,
	"movetime":        config.ConfigDefaultMoveTimeMs,
	"threads":         config.ConfigThreads,
	"tt-size-mb":      config.ConfigTTSizeMB,
	"disable-pruning": config.ConfigDisablePruning,
}

func (sc *ShellController) help(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 0 {
		return msg(usage()), nil
	}
	return msg(usageTopic(cmd.args[0])), nil
}

// position startpos | position sfen <board> <side> <hand> [<move number>]
func (sc *ShellController) position(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 0 {
		return nil, errors.New("usage: position startpos | position sfen <sfen>")
	}
	var text string
	switch cmd.args[0] {
	case "startpos":
		text = shogi.StartSFEN
	case "sfen":
		text = strings.Join(cmd.args[1:], " ")
	default:
		// a bare SFEN, possibly quoted
		text = strings.Join(cmd.args, " ")
	}
	p, err := shogi.ParseSFEN(text)
	if err != nil {
		return nil, err
	}
	sc.setRoot(p)
	return msg(sc.pos.ToDisplayText()), nil
}

func (sc *ShellController) moves(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 0 {
		if len(sc.played) == 0 {
			return msg("no moves played"), nil
		}
		return msg(strings.Join(lo.Map(sc.played, func(m shogi.Move, _ int) string {
			return m.String()
		}), " ")), nil
	}
	// validate everything before touching the game
	p := sc.pos.Clone()
	var ms []shogi.Move
	for _, text := range cmd.args {
		m, err := p.ParseMove(text)
		if err != nil {
			return nil, err
		}
		p.Apply(m)
		ms = append(ms, m)
	}
	for _, m := range ms {
		sc.pos.Apply(m)
	}
	sc.played = append(sc.played, ms...)
	sc.lastResult = nil
	return msg(sc.pos.ToDisplayText()), nil
}

func (sc *ShellController) undo(cmd *shellcmd) (*Response, error) {
	n, err := strconv.Atoi(lo.FirstOr(cmd.args, "1"))
	if err != nil {
		return nil, err
	}
	if n < 1 || n > len(sc.played) {
		return nil, fmt.Errorf("cannot undo %d of %d moves", n, len(sc.played))
	}
	for i := 0; i < n; i++ {
		last := sc.played[len(sc.played)-1]
		sc.pos.Undo(last)
		sc.played = sc.played[:len(sc.played)-1]
	}
	sc.lastResult = nil
	return msg(sc.pos.ToDisplayText()), nil
}

func (sc *ShellController) show(cmd *shellcmd) (*Response, error) {
	return msg(sc.pos.ToDisplayText()), nil
}

// go [-depth N] [-movetime MS] [-play true]
func (sc *ShellController) goSearch(cmd *shellcmd) (*Response, error) {
	depth, err := cmd.options.IntDefault("depth", 0)
	if err != nil {
		return nil, err
	}
	moveTime, err := cmd.options.IntDefault("movetime", 0)
	if err != nil {
		return nil, err
	}
	limits := search.Limits{
		Depth:    depth,
		MoveTime: time.Duration(moveTime) * time.Millisecond,
		History:  sc.history(),
		Progress: func(r search.Result) {
			sc.showMessage(progressLine(r))
		},
	}
	res, err := sc.engine.Search(context.Background(), sc.pos, limits)
	if err != nil {
		return nil, err
	}
	sc.lastResult = &res

	var sb strings.Builder
	fmt.Fprintf(&sb, "best move: %s\n", res.BestMove)
	fmt.Fprintf(&sb, "score: %s\n", scoreString(res))
	fmt.Fprintf(&sb, "depth: %d\n", res.DepthReached)
	fmt.Fprintf(&sb, "pv: %s\n", (&search.PVLine{Moves: res.PV}).USI())
	fmt.Fprintf(&sb, "nodes: %d in %v", res.Stats.Nodes, res.Elapsed.Round(time.Millisecond))

	if cmd.options.Bool("play") && res.BestMove != shogi.NoMove {
		sc.pos.Apply(res.BestMove)
		sc.played = append(sc.played, res.BestMove)
		sb.WriteString("\n")
		sb.WriteString(sc.pos.ToDisplayText())
	}
	return msg(sb.String()), nil
}

func scoreString(r search.Result) string {
	if r.Mate {
		return fmt.Sprintf("mate %d", r.MatePlies())
	}
	return fmt.Sprintf("%d", r.Score)
}

func progressLine(r search.Result) string {
	return fmt.Sprintf("depth %2d  score %8s  nodes %10d  %s", r.DepthReached,
		scoreString(r), r.Stats.Nodes, (&search.PVLine{Moves: r.PV}).USI())
}

func (sc *ShellController) stats(cmd *shellcmd) (*Response, error) {
	if sc.lastResult == nil {
		return nil, errors.New("no search has been run on this position")
	}
	s := sc.lastResult.Stats
	var sb strings.Builder
	fmt.Fprintf(&sb, "search %s\n", sc.lastResult.SearchID)
	fmt.Fprintf(&sb, "nodes %d (quiescence %d)\n", s.Nodes, s.QNodes)
	fmt.Fprintf(&sb, "cache probes %d hits %d (%.1f%%) stores %d\n", s.CacheProbes,
		s.CacheHits, 100*s.CacheHitRate(), s.CacheStores)
	fmt.Fprintf(&sb, "beta cutoffs %d, iid searches %d, lmr re-searches %d\n",
		s.BetaCutoffs, s.IIDSearches, s.LMRResearches)
	prunes := s.Prunes()
	names := lo.Keys(prunes)
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&sb, "  %-10s %d\n", name, prunes[name])
	}
	return msg(strings.TrimRight(sb.String(), "\n")), nil
}

// set [name [value]]
func (sc *ShellController) set(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 0 {
		lines := lo.Map(settingNames(), func(n string, _ int) string {
			return fmt.Sprintf("%-16s %v", n, sc.config.Get(settable[n]))
		})
		return msg(strings.Join(lines, "\n")), nil
	}
	name := cmd.args[0]
	key, ok := settable[name]
	if !ok && strings.HasPrefix(name, config.ConfigPruning+".") {
		key, ok = name, true
	}
	if !ok {
		return nil, errors.New("unknown setting " + name)
	}
	if len(cmd.args) == 1 {
		return msg(fmt.Sprintf("%s %v", name, sc.config.Get(key))), nil
	}
	old := sc.config.Get(key)
	sc.config.Set(key, strings.Join(cmd.args[1:], ","))
	opts, err := search.OptionsFromConfig(sc.config)
	if err != nil {
		sc.config.Set(key, old)
		return nil, err
	}
	sc.opts = opts
	if err := sc.rebuildEngine(); err != nil {
		return nil, err
	}
	return msg(fmt.Sprintf("set %s to %v", name, sc.config.Get(key))), nil
}

func (sc *ShellController) clear(cmd *shellcmd) (*Response, error) {
	sc.engine.Clear()
	return msg("cleared transposition table, killers and history"), nil
}

// bench <suite.yaml> [-depth N] [-confidence X]
func (sc *ShellController) bench(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) != 1 {
		return nil, errors.New("usage: bench <suite.yaml> [-depth N] [-confidence X]")
	}
	depth, err := cmd.options.IntDefault("depth", 0)
	if err != nil {
		return nil, err
	}
	confidence, err := cmd.options.FloatDefault("confidence", bench.DefaultConfidence)
	if err != nil {
		return nil, err
	}
	suite, err := bench.LoadSuite(cmd.args[0])
	if err != nil {
		return nil, err
	}
	r, err := bench.NewRunner(sc.opts, eval.Material{}, depth, confidence)
	if err != nil {
		return nil, err
	}
	rep, err := r.Run(context.Background(), suite)
	if err != nil {
		return nil, err
	}
	var sb strings.Builder
	if err := rep.Write(&sb); err != nil {
		return nil, err
	}
	return msg(strings.TrimRight(sb.String(), "\n")), nil
}
