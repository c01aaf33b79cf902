package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/shogiban/kairos/bench"
	"github.com/shogiban/kairos/config"
	"github.com/shogiban/kairos/eval"
	"github.com/shogiban/kairos/search"
	"github.com/shogiban/kairos/shell"
	"github.com/shogiban/kairos/usi"
)

var (
	GitVersion string
)

const (
	engineName   = "Kairos"
	engineAuthor = "the Kairos authors"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Error().Err(err).Msg("exiting")
		os.Exit(1)
	}
}

func run(argv []string) error {
	ex, err := os.Executable()
	if err != nil {
		return err
	}
	exPath := filepath.Dir(ex)

	cfg := &config.Config{}
	if err := cfg.Load(argv); err != nil {
		return err
	}
	setupLogging(cfg.GetBool(config.ConfigDebug))
	log.Debug().Interface("config", cfg.SanitizedSettings()).Msg("loaded-config")

	if path := cfg.GetString(config.ConfigCPUProfile); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("could not create CPU profile: %w", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("could not start CPU profile: %w", err)
		}
		defer pprof.StopCPUProfile()
	}
	defer writeMemProfile(cfg.GetString(config.ConfigMemProfile))

	args := cfg.Args()
	mode := "shell"
	if len(args) > 0 {
		mode, args = args[0], args[1:]
	}
	switch mode {
	case "usi":
		return runUSI(cfg)
	case "bench":
		return runBench(cfg, args)
	case "shell":
		return runShell(cfg, exPath, args)
	}
	return fmt.Errorf("unknown mode %q; expected shell, usi or bench", mode)
}

func setupLogging(debug bool) {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	output.FormatLevel = func(i interface{}) string {
		return strings.ToUpper(fmt.Sprintf("| %-6s|", i))
	}
	output.FormatMessage = func(i interface{}) string {
		return fmt.Sprintf("%s", i)
	}
	output.FormatFieldName = func(i interface{}) string {
		return fmt.Sprintf("%s:", i)
	}

	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	logger := zerolog.New(output).Level(level).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &logger
	log.Logger = logger
	logger.Debug().Msg("Debug logging is on")
}

func runUSI(cfg *config.Config) error {
	opts, err := search.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	p := usi.New(engineName, engineAuthor, GitVersion, opts, eval.Material{})
	return p.Run(ctx, os.Stdin, os.Stdout)
}

// bench <suite.yaml>
func runBench(cfg *config.Config, args []string) error {
	if len(args) == 0 {
		return errors.New("bench needs a suite file")
	}
	opts, err := search.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	suite, err := bench.LoadSuite(args[0])
	if err != nil {
		return err
	}
	r, err := bench.NewRunner(opts, eval.Material{}, 0, bench.DefaultConfidence)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	rep, err := r.Run(ctx, suite)
	if err != nil {
		return err
	}
	return rep.Write(os.Stdout)
}

// runShell starts the interactive shell, or runs a single shell command
// given on the command line.
func runShell(cfg *config.Config, exPath string, args []string) error {
	sc, err := shell.NewShellController(cfg, exPath, GitVersion)
	if err != nil {
		return err
	}
	fmt.Println(engineName, GitVersion)
	log.Info().Msgf("executable path: %v", exPath)

	done := make(chan struct{})
	sig := make(chan os.Signal, 1)
	go func() {
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Info().Msg("got quit signal...")
		close(done)
	}()

	line := strings.TrimSpace(strings.Join(args, " "))
	if line == "" {
		go sc.Loop(sig)
	} else if !sc.Execute(sig, line) {
		sig <- syscall.SIGINT
	}
	<-done
	sc.Cleanup()
	return nil
}

func writeMemProfile(path string) {
	if path == "" {
		return
	}
	f, err := os.Create(path)
	if err != nil {
		log.Error().Err(err).Msg("could not create memory profile")
		return
	}
	defer f.Close()
	memstats := &runtime.MemStats{}
	runtime.ReadMemStats(memstats)
	log.Info().Interface("memstats", memstats).Msg("memory-stats")
	if err := pprof.WriteHeapProfile(f); err != nil {
		log.Error().Err(err).Msg("could not write memory profile")
		return
	}
	log.Info().Msg("wrote memory profile")
}
