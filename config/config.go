package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/shogiban/kairos/search/pruning"
)

const (
	ConfigDebug             = "debug"
	ConfigFile              = "config"
	ConfigTTSizeMB          = "tt-size-mb"
	ConfigTTMemoryFraction  = "tt-memory-fraction"
	ConfigThreads           = "threads"
	ConfigDefaultDepth      = "default-depth"
	ConfigDefaultMoveTimeMs = "default-movetime-ms"
	ConfigNodeCheckInterval = "node-check-interval"
	ConfigDisablePruning    = "disable-pruning"
	ConfigShellHistoryFile  = "shell-history-file"
	ConfigCPUProfile        = "cpu-profile"
	ConfigMemProfile        = "mem-profile"

	// ConfigPruning is the prefix of the pruning parameter keys, e.g.
	// pruning.futility-margins or KAIROS_PRUNING_LMR_MIN_DEPTH.
	ConfigPruning = "pruning"
)

type Config struct {
	*viper.Viper
	args []string
}

// Load reads defaults, then an optional config file, then KAIROS_*
// environment variables, then flags in args. Arguments that are not flags
// are kept and returned by Args.
func (c *Config) Load(args []string) error {
	c.Viper = viper.New()
	c.SetEnvPrefix("KAIROS")
	c.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	c.AutomaticEnv()

	if err := c.setDefaults(); err != nil {
		return err
	}

	fs := pflag.NewFlagSet("kairos", pflag.ContinueOnError)
	fs.Bool(ConfigDebug, false, "debug logging on")
	fs.String(ConfigFile, "", "path to a YAML config file")
	fs.Int(ConfigTTSizeMB, 64, "transposition table size in MB; 0 sizes it from system memory")
	fs.Float64(ConfigTTMemoryFraction, 0.05, "fraction of system memory for the table when tt-size-mb is 0")
	fs.Int(ConfigThreads, 1, "search threads")
	fs.Int(ConfigDefaultDepth, 6, "depth limit when none is given")
	fs.Int(ConfigDefaultMoveTimeMs, 0, "time budget per move when none is given; 0 means none")
	fs.Int(ConfigNodeCheckInterval, 1024, "nodes between time checks")
	fs.Bool(ConfigDisablePruning, false, "turn every pruning technique off")
	fs.String(ConfigShellHistoryFile, "/tmp/kairos-readline.tmp", "shell history file")
	fs.String(ConfigCPUProfile, "", "write a CPU profile here")
	fs.String(ConfigMemProfile, "", "write a heap profile here")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := c.BindPFlags(fs); err != nil {
		return err
	}
	c.args = fs.Args()

	if path := c.GetString(ConfigFile); path != "" {
		c.SetConfigFile(path)
		if err := c.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config %s: %w", path, err)
		}
	}
	return nil
}

func (c *Config) setDefaults() error {
	// Pruning defaults go in through their YAML names so that environment
	// variables and config files can override single keys.
	bts, err := yaml.Marshal(pruning.DefaultParams())
	if err != nil {
		return err
	}
	var m map[string]any
	if err := yaml.Unmarshal(bts, &m); err != nil {
		return err
	}
	for k, v := range m {
		c.SetDefault(ConfigPruning+"."+k, v)
	}
	return nil
}

// Args returns the positional arguments left after flag parsing.
func (c *Config) Args() []string {
	return c.args
}

// PruningParams decodes the pruning section over the defaults. It goes
// through Unmarshal rather than UnmarshalKey so that environment variables
// for single nested keys are honoured.
func (c *Config) PruningParams() (pruning.Params, error) {
	var settings struct {
		Pruning pruning.Params `mapstructure:"pruning"`
	}
	settings.Pruning = pruning.DefaultParams()
	// decoding into a non-nil slice keeps its tail
	settings.Pruning.FutilityMargins = nil
	if err := c.Unmarshal(&settings); err != nil {
		return settings.Pruning, errors.Join(pruning.ErrInvalidParams, err)
	}
	return settings.Pruning, nil
}

// SanitizedSettings returns every setting for logging.
func (c *Config) SanitizedSettings() map[string]any {
	return c.AllSettings()
}
