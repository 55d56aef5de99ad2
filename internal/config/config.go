package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/dbcreds/internal/reconcile"
	"github.com/eugenenazirov/dbcreds/internal/render"
)

const (
	defaultDir           = "."
	defaultEnvFile       = ".env"
	defaultPattern       = "*.yml"
	defaultDSNAddr       = "127.0.0.1:3306"
	defaultWatchThrottle = 500 * time.Millisecond
	defaultLogLevel      = "warn"
)

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > config file > Environment variables > Defaults
type Config struct {
	Dir           string
	EnvFile       string
	Pattern       string
	Format        render.Format
	Extractor     reconcile.Mode
	DSNAddr       string
	Watch         bool
	WatchThrottle time.Duration
	LogLevel      string
}

// fileConfig represents the YAML or TOML configuration file structure.
type fileConfig struct {
	Dir       string    `yaml:"dir" toml:"dir"`
	EnvFile   string    `yaml:"env_file" toml:"env_file"`
	Pattern   string    `yaml:"pattern" toml:"pattern"`
	Format    string    `yaml:"format" toml:"format"`
	Extractor string    `yaml:"extractor" toml:"extractor"`
	DSNAddr   string    `yaml:"dsn_addr" toml:"dsn_addr"`
	LogLevel  string    `yaml:"log_level" toml:"log_level"`
	Watch     fileWatch `yaml:"watch" toml:"watch"`
}

// fileWatch represents the watch section of the configuration file.
type fileWatch struct {
	Enabled  *bool  `yaml:"enabled" toml:"enabled"`
	Throttle string `yaml:"throttle" toml:"throttle"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile    string
	Dir           *string
	EnvFile       *string
	Pattern       *string
	Format        *string
	Extractor     *string
	DSNAddr       *string
	Watch         *bool
	WatchThrottle *time.Duration
	LogLevel      *string
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > config file > Environment variables > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	if err := applyEnvConfig(&cfg); err != nil {
		return Config{}, err
	}

	if overrides != nil && overrides.ConfigFile != "" {
		fileCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load config file: %w", err)
		}
		if err := applyFileConfig(&cfg, fileCfg); err != nil {
			return Config{}, err
		}
	}

	if overrides != nil {
		applyCLIOverrides(&cfg, overrides)
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		Dir:           defaultDir,
		EnvFile:       defaultEnvFile,
		Pattern:       defaultPattern,
		Format:        render.FormatText,
		Extractor:     reconcile.ModeHeuristic,
		DSNAddr:       defaultDSNAddr,
		WatchThrottle: defaultWatchThrottle,
		LogLevel:      defaultLogLevel,
	}
}

// loadFromFile loads configuration from a YAML file, or a TOML file when the
// extension is .toml.
func loadFromFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var fileCfg fileConfig
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("parse TOML: %w", err)
		}
		return &fileCfg, nil
	}

	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	return &fileCfg, nil
}

// applyFileConfig applies file configuration to the Config struct.
func applyFileConfig(cfg *Config, fileCfg *fileConfig) error {
	setString(&cfg.Dir, fileCfg.Dir)
	setString(&cfg.EnvFile, fileCfg.EnvFile)
	setString(&cfg.Pattern, fileCfg.Pattern)
	setString(&cfg.DSNAddr, fileCfg.DSNAddr)
	setString(&cfg.LogLevel, fileCfg.LogLevel)

	if fileCfg.Format != "" {
		cfg.Format = render.Format(fileCfg.Format)
	}
	if fileCfg.Extractor != "" {
		cfg.Extractor = reconcile.Mode(fileCfg.Extractor)
	}
	if fileCfg.Watch.Enabled != nil {
		cfg.Watch = *fileCfg.Watch.Enabled
	}
	if fileCfg.Watch.Throttle != "" {
		d, err := time.ParseDuration(fileCfg.Watch.Throttle)
		if err != nil {
			return fmt.Errorf("parse watch throttle: %w", err)
		}
		cfg.WatchThrottle = d
	}
	return nil
}

// applyEnvConfig applies environment variable configuration.
func applyEnvConfig(cfg *Config) error {
	setString(&cfg.Dir, envValue("DBCREDS_DIR"))
	setString(&cfg.EnvFile, envValue("DBCREDS_ENV_FILE"))
	setString(&cfg.Pattern, envValue("DBCREDS_PATTERN"))
	setString(&cfg.DSNAddr, envValue("DBCREDS_DSN_ADDR"))
	setString(&cfg.LogLevel, envValue("DBCREDS_LOG_LEVEL"))

	if format := envValue("DBCREDS_FORMAT"); format != "" {
		cfg.Format = render.Format(format)
	}
	if extractor := envValue("DBCREDS_EXTRACTOR"); extractor != "" {
		cfg.Extractor = reconcile.Mode(extractor)
	}

	if watch := envValue("DBCREDS_WATCH"); watch != "" {
		value, err := strconv.ParseBool(watch)
		if err != nil {
			return fmt.Errorf("parse DBCREDS_WATCH: %w", err)
		}
		cfg.Watch = value
	}

	if throttle := envValue("DBCREDS_WATCH_THROTTLE"); throttle != "" {
		d, err := time.ParseDuration(throttle)
		if err != nil {
			return fmt.Errorf("parse DBCREDS_WATCH_THROTTLE: %w", err)
		}
		cfg.WatchThrottle = d
	}
	return nil
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) {
	if overrides.Dir != nil {
		setString(&cfg.Dir, *overrides.Dir)
	}
	if overrides.EnvFile != nil {
		setString(&cfg.EnvFile, *overrides.EnvFile)
	}
	if overrides.Pattern != nil {
		setString(&cfg.Pattern, *overrides.Pattern)
	}
	if overrides.DSNAddr != nil {
		setString(&cfg.DSNAddr, *overrides.DSNAddr)
	}
	if overrides.LogLevel != nil {
		setString(&cfg.LogLevel, *overrides.LogLevel)
	}
	if overrides.Format != nil && *overrides.Format != "" {
		cfg.Format = render.Format(*overrides.Format)
	}
	if overrides.Extractor != nil && *overrides.Extractor != "" {
		cfg.Extractor = reconcile.Mode(*overrides.Extractor)
	}
	if overrides.Watch != nil {
		cfg.Watch = *overrides.Watch
	}
	if overrides.WatchThrottle != nil && *overrides.WatchThrottle > 0 {
		cfg.WatchThrottle = *overrides.WatchThrottle
	}
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	if !slices.Contains(render.Formats(), string(cfg.Format)) {
		return fmt.Errorf("%w: %q (want one of %s)", render.ErrUnknownFormat, cfg.Format, strings.Join(render.Formats(), ", "))
	}
	if !slices.Contains(reconcile.Modes(), string(cfg.Extractor)) {
		return fmt.Errorf("%w: %q (want one of %s)", reconcile.ErrUnknownMode, cfg.Extractor, strings.Join(reconcile.Modes(), ", "))
	}
	if err := reconcile.ValidatePattern(cfg.Pattern); err != nil {
		return err
	}
	if cfg.WatchThrottle <= 0 {
		return errors.New("watch throttle must be > 0")
	}
	if _, err := zapcore.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	return nil
}

func envValue(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func setString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}
