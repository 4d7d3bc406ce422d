package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sigbridge/internal/model"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

type Config struct {
	Paths  PathsConfig  `mapstructure:"paths"`
	Watch  WatchConfig  `mapstructure:"watch"`
	Daemon DaemonConfig `mapstructure:"daemon"`
}

type PathsConfig struct {
	SourceFile      string `mapstructure:"source_file"`
	DestinationFile string `mapstructure:"destination_file"`
}

type WatchConfig struct {
	SettleDelay time.Duration `mapstructure:"settle_delay"`
}

type DaemonConfig struct {
	// Port of the loopback status server. 0 disables it.
	Port   int    `mapstructure:"port"`
	DBPath string `mapstructure:"db_path"`
}

var Default = Config{
	Watch: WatchConfig{
		SettleDelay: 100 * time.Millisecond,
	},
	Daemon: DaemonConfig{
		Port:   9017,
		DBPath: filepath.Join("~", ".sigbridge", "history.db"),
	},
}

// Placeholders shipped in the sample configuration. A path still holding
// one was never edited.
var Placeholders = []string{"YOUR_USERNAME", "YOUR_TERMINAL_ID"}

// Load reads config.yaml from file, or when file is empty from the working
// directory and then ~/.sigbridge. A missing config file is only an error
// when file names it explicitly. SIGBRIDGE_<SECTION>_<KEY> environment
// variables override the file.
func Load(file string) (*Config, error) {
	v := viper.New()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := Dir(); err == nil {
			v.AddConfigPath(dir)
		}
	}

	v.SetDefault("paths.source_file", Default.Paths.SourceFile)
	v.SetDefault("paths.destination_file", Default.Paths.DestinationFile)
	v.SetDefault("watch.settle_delay", Default.Watch.SettleDelay)
	v.SetDefault("daemon.port", Default.Daemon.Port)
	v.SetDefault("daemon.db_path", Default.Daemon.DBPath)

	v.SetEnvPrefix("SIGBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := errors.AsType[viper.ConfigFileNotFoundError](err); !ok || file != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var err error
	if cfg.Daemon.DBPath, err = expandHome(cfg.Daemon.DBPath); err != nil {
		return nil, err
	}
	if cfg.Paths.SourceFile, err = expandHome(cfg.Paths.SourceFile); err != nil {
		return nil, err
	}
	if cfg.Paths.DestinationFile, err = expandHome(cfg.Paths.DestinationFile); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Dir is the per-user configuration directory.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home dir: %w", err)
	}

	return filepath.Join(home, ".sigbridge"), nil
}

// Validate reports every problem in the configuration at once.
func (c *Config) Validate() error {
	var errs error

	if c.Paths.SourceFile == "" {
		errs = multierr.Append(errs, fmt.Errorf("paths.source_file: %w", model.ErrEmptyPath))
	}
	if c.Paths.DestinationFile == "" {
		errs = multierr.Append(errs, fmt.Errorf("paths.destination_file: %w", model.ErrEmptyPath))
	}

	for _, p := range Placeholders {
		if strings.Contains(c.Paths.SourceFile, p) {
			errs = multierr.Append(errs, fmt.Errorf("paths.source_file still contains %s", p))
		}
		if strings.Contains(c.Paths.DestinationFile, p) {
			errs = multierr.Append(errs, fmt.Errorf("paths.destination_file still contains %s", p))
		}
	}

	if c.Paths.SourceFile != "" && c.Paths.DestinationFile != "" {
		if _, err := c.Target(); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.Watch.SettleDelay <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("watch.settle_delay must be positive, got %s", c.Watch.SettleDelay))
	}

	if c.Daemon.Port < 0 || c.Daemon.Port > 65535 {
		errs = multierr.Append(errs, fmt.Errorf("daemon.port out of range: %d", c.Daemon.Port))
	}

	return errs
}

func (c *Config) Target() (model.WatchTarget, error) {
	return model.NewWatchTarget(c.Paths.SourceFile, c.Paths.DestinationFile)
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, `~\`) {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to expand %s: %w", path, err)
	}

	return filepath.Join(home, path[1:]), nil
}
