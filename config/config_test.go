package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/matryer/is"

	"github.com/shogiban/kairos/search/pruning"
)

func TestDefaults(t *testing.T) {
	is := is.New(t)
	cfg := &Config{}
	is.NoErr(cfg.Load(nil))
	is.Equal(cfg.GetInt(ConfigTTSizeMB), 64)
	is.Equal(cfg.GetInt(ConfigThreads), 1)
	is.Equal(cfg.GetInt(ConfigNodeCheckInterval), 1024)
	is.True(!cfg.GetBool(ConfigDebug))

	p, err := cfg.PruningParams()
	is.NoErr(err)
	is.Equal(p, pruning.DefaultParams())
}

func TestFlagsAndArgs(t *testing.T) {
	is := is.New(t)
	cfg := &Config{}
	is.NoErr(cfg.Load([]string{"--threads", "4", "--debug", "bench", "suite.yaml"}))
	is.Equal(cfg.GetInt(ConfigThreads), 4)
	is.True(cfg.GetBool(ConfigDebug))
	is.Equal(cfg.Args(), []string{"bench", "suite.yaml"})
}

func TestEnvironmentOverrides(t *testing.T) {
	is := is.New(t)
	t.Setenv("KAIROS_TT_SIZE_MB", "16")
	t.Setenv("KAIROS_PRUNING_LMR_MIN_DEPTH", "4")
	t.Setenv("KAIROS_PRUNING_RAZORING", "false")
	cfg := &Config{}
	is.NoErr(cfg.Load(nil))
	is.Equal(cfg.GetInt(ConfigTTSizeMB), 16)

	p, err := cfg.PruningParams()
	is.NoErr(err)
	is.Equal(p.LMRMinDepth, 4)
	is.True(!p.Razoring)
	is.True(p.Futility)
}

func TestConfigFile(t *testing.T) {
	is := is.New(t)
	path := filepath.Join(t.TempDir(), "kairos.yaml")
	is.NoErr(os.WriteFile(path, []byte(`
default-depth: 9
pruning:
  futility-margins: [0, 100, 200]
  multi-cut: false
`), 0o644))
	cfg := &Config{}
	is.NoErr(cfg.Load([]string{"--config", path}))
	is.Equal(cfg.GetInt(ConfigDefaultDepth), 9)

	p, err := cfg.PruningParams()
	is.NoErr(err)
	is.Equal(p.FutilityMargins, []int{0, 100, 200})
	is.True(!p.MultiCut)
	is.Equal(p.DeltaMargin, pruning.DefaultParams().DeltaMargin)
}

func TestBadConfigFile(t *testing.T) {
	is := is.New(t)
	cfg := &Config{}
	err := cfg.Load([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")})
	is.True(err != nil)
}
