// Package shell is an interactive front end for setting up positions and
// running searches by hand.
package shell

import (
	"errors"
	"io"
	"os"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog/log"

	"github.com/shogiban/kairos/config"
	"github.com/shogiban/kairos/eval"
	"github.com/shogiban/kairos/search"
	"github.com/shogiban/kairos/shogi"
)

var (
	errNoData            = errors.New("no data in this line")
	errWrongOptionSyntax = errors.New("wrong format; all options need arguments")
)

type ShellController struct {
	l          *readline.Instance
	config     *config.Config
	execPath   string
	gitVersion string

	opts   search.Options
	engine *search.Engine

	// root and played describe the game so far; pos is root with played
	// applied.
	root   *shogi.Position
	played []shogi.Move
	pos    *shogi.Position

	lastResult *search.Result
}

type shellcmd struct {
	cmd     string
	args    []string
	options CmdOptions
}

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func NewShellController(cfg *config.Config, execPath, gitVersion string) (*ShellController, error) {
	sc, err := newController(cfg, execPath, gitVersion)
	if err != nil {
		return nil, err
	}
	l, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[31mkairos>\033[0m ",
		HistoryFile:     cfg.GetString(config.ConfigShellHistoryFile),
		EOFPrompt:       "exit",
		InterruptPrompt: "^C",
		AutoComplete:    NewShellCompleter(sc),

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		return nil, err
	}
	sc.l = l
	return sc, nil
}

func newController(cfg *config.Config, execPath, gitVersion string) (*ShellController, error) {
	opts, err := search.OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	sc := &ShellController{
		config:     cfg,
		execPath:   execPath,
		gitVersion: gitVersion,
		opts:       opts,
	}
	if err := sc.rebuildEngine(); err != nil {
		return nil, err
	}
	sc.setRoot(shogi.NewStartPosition())
	return sc, nil
}

func (sc *ShellController) rebuildEngine() error {
	e, err := search.NewEngine(sc.opts, eval.Material{})
	if err != nil {
		return err
	}
	sc.engine = e
	return nil
}

func (sc *ShellController) setRoot(p *shogi.Position) {
	sc.root = p
	sc.played = nil
	sc.pos = p.Clone()
	sc.lastResult = nil
}

// history returns the repetition-free fingerprints of every position before
// the current one.
func (sc *ShellController) history() []uint64 {
	h := sc.engine.Hasher()
	p := sc.root.Clone()
	out := make([]uint64, 0, len(sc.played))
	for _, m := range sc.played {
		out = append(out, h.Hash(p, 0))
		p.Apply(m)
	}
	return out
}

func showMessage(msg string, w io.Writer) {
	io.WriteString(w, msg)
	io.WriteString(w, "\n")
}

func (sc *ShellController) stderr() io.Writer {
	if sc.l == nil {
		return os.Stderr
	}
	return sc.l.Stderr()
}

func (sc *ShellController) showMessage(msg string) {
	showMessage(msg, sc.stderr())
}

func (sc *ShellController) showError(err error) {
	sc.showMessage("Error: " + err.Error())
}

// extractFields splits a command line into the command, its positional
// arguments, and -key value options.
func extractFields(line string) (*shellcmd, error) {
	fields, err := shellquote.Split(line)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, errNoData
	}
	cmd := fields[0]
	var args []string
	options := CmdOptions{}
	for idx := 1; idx < len(fields); idx++ {
		if strings.HasPrefix(fields[idx], "-") && len(fields[idx]) > 1 && !isNumber(fields[idx]) {
			if idx == len(fields)-1 {
				return nil, errWrongOptionSyntax
			}
			key := fields[idx][1:]
			options[key] = append(options[key], fields[idx+1])
			idx++
			continue
		}
		args = append(args, fields[idx])
	}
	return &shellcmd{cmd: cmd, args: args, options: options}, nil
}

func isNumber(s string) bool {
	for i, r := range s {
		if i == 0 && r == '-' {
			continue
		}
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (sc *ShellController) dispatch(cmd *shellcmd) (*Response, error) {
	var h func(*shellcmd) (*Response, error)
	switch cmd.cmd {
	case "help":
		h = sc.help
	case "position", "pos":
		h = sc.position
	case "moves", "m":
		h = sc.moves
	case "undo":
		h = sc.undo
	case "show", "s":
		h = sc.show
	case "go":
		h = sc.goSearch
	case "stats":
		h = sc.stats
	case "set":
		h = sc.set
	case "clear":
		h = sc.clear
	case "bench":
		h = sc.bench
	default:
		return nil, errors.New("command not recognized: " + cmd.cmd)
	}
	return h(cmd)
}

// Execute runs a single command line and reports its output.
func (sc *ShellController) Execute(sig chan os.Signal, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	cmd, err := extractFields(line)
	if err != nil {
		sc.showError(err)
		return false
	}
	if cmd.cmd == "exit" || cmd.cmd == "quit" {
		sig <- syscall.SIGINT
		return true
	}
	resp, err := sc.dispatch(cmd)
	if err != nil {
		sc.showError(err)
		return false
	}
	if resp != nil && resp.message != "" {
		sc.showMessage(resp.message)
	}
	return false
}

func (sc *ShellController) Loop(sig chan os.Signal) {
	defer sc.l.Close()

	for {
		line, err := sc.l.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				sig <- syscall.SIGINT
				break
			}
			continue
		} else if err == io.EOF {
			sig <- syscall.SIGINT
			break
		}
		if sc.Execute(sig, line) {
			break
		}
	}
	log.Debug().Msgf("Exiting readline loop...")
}

func (sc *ShellController) Cleanup() {
	log.Info().Msg("shell-cleanup")
}
