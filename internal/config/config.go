package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jtomasevic/episodes/pkg/episode_io"
	"github.com/jtomasevic/episodes/pkg/episodes"
)

// Config holds all configuration values of an evaluation run.
type Config struct {
	// Data locations
	EventsDir string `yaml:"events_dir"`
	OutputDir string `yaml:"output_dir"`
	StoreDir  string `yaml:"store_dir"`

	// Folds to process and how many run at once.
	Folds       []int `yaml:"folds"`
	Parallelism int   `yaml:"parallelism"`

	// Postprocessing thresholds
	FrequencyThreshold int                    `yaml:"frequency_threshold"`
	EntropyThreshold   float64                `yaml:"entropy_threshold"`
	EpisodeKind        episode_io.EpisodeKind `yaml:"episode_kind"`

	// Windowing and stream clock
	Timeout float64 `yaml:"timeout"`
	Epsilon float64 `yaml:"epsilon"`
	Delta   float64 `yaml:"delta"`

	// Statistics
	LongMethodThreshold int `yaml:"long_method_threshold"`

	// Logging
	LogFile  string `yaml:"log_file"`
	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		EventsDir:           "./data/events",
		OutputDir:           "./data/patterns",
		StoreDir:            "./data/store",
		Folds:               []int{0},
		Parallelism:         2,
		FrequencyThreshold:  5,
		EntropyThreshold:    0.5,
		EpisodeKind:         episode_io.Mix,
		Timeout:             episodes.DefaultTimeout,
		Epsilon:             episodes.DefaultEpsilon,
		Delta:               episodes.DefaultDelta,
		LongMethodThreshold: 5000,
		LogFile:             "/tmp/episodes.log",
		LogLevel:            "INFO",
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// path is not empty), then a .env file in the working directory, then
// EPISODES_* environment variables. The result is validated.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	// .env is optional; values already in the environment win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.EventsDir = getEnv("EPISODES_EVENTS_DIR", c.EventsDir)
	c.OutputDir = getEnv("EPISODES_OUTPUT_DIR", c.OutputDir)
	c.StoreDir = getEnv("EPISODES_STORE_DIR", c.StoreDir)
	if err := errors.Join(
		envInt("EPISODES_PARALLELISM", &c.Parallelism),
		envInt("EPISODES_FREQUENCY", &c.FrequencyThreshold),
		envFloat("EPISODES_ENTROPY", &c.EntropyThreshold),
		envFloat("EPISODES_TIMEOUT", &c.Timeout),
		envFloat("EPISODES_EPSILON", &c.Epsilon),
		envFloat("EPISODES_DELTA", &c.Delta),
		envInt("EPISODES_LONG_METHOD", &c.LongMethodThreshold),
	); err != nil {
		return err
	}
	c.LogFile = getEnv("EPISODES_LOG_FILE", c.LogFile)
	c.LogLevel = getEnv("EPISODES_LOG_LEVEL", c.LogLevel)

	if v := os.Getenv("EPISODES_KIND"); v != "" {
		kind, err := episode_io.ParseEpisodeKind(v)
		if err != nil {
			return err
		}
		c.EpisodeKind = kind
	}
	if v := os.Getenv("EPISODES_FOLDS"); v != "" {
		folds, err := parseFolds(v)
		if err != nil {
			return err
		}
		c.Folds = folds
	}
	return nil
}

// Validate fails fast on values the pipeline cannot run with.
func (c Config) Validate() error {
	if c.EventsDir == "" {
		return fmt.Errorf("%w: events dir is empty", episodes.ErrPrecondition)
	}
	if len(c.Folds) == 0 {
		return fmt.Errorf("%w: no folds configured", episodes.ErrPrecondition)
	}
	for _, f := range c.Folds {
		if f < 0 {
			return fmt.Errorf("%w: negative fold %d", episodes.ErrPrecondition, f)
		}
	}
	if c.Parallelism <= 0 {
		return fmt.Errorf("%w: parallelism must be positive, got %d", episodes.ErrPrecondition, c.Parallelism)
	}
	if c.FrequencyThreshold < 0 {
		return fmt.Errorf("%w: frequency threshold %d is negative", episodes.ErrPrecondition, c.FrequencyThreshold)
	}
	if c.EntropyThreshold < 0 || c.EntropyThreshold > 1 {
		return fmt.Errorf("%w: entropy threshold %v outside [0,1]", episodes.ErrPrecondition, c.EntropyThreshold)
	}
	if _, err := episode_io.ParseEpisodeKind(string(c.EpisodeKind)); err != nil {
		return err
	}
	if c.Delta <= 0 || c.Delta >= c.Timeout {
		return fmt.Errorf("%w: delta %v must be in (0, timeout)", episodes.ErrPrecondition, c.Delta)
	}
	return c.WindowConfig().Validate()
}

func (c Config) WindowConfig() episodes.WindowConfig {
	return episodes.WindowConfig{Timeout: c.Timeout, Epsilon: c.Epsilon}
}

func (c Config) StreamConfig() episodes.StreamConfig {
	return episodes.StreamConfig{Timeout: c.Timeout, Delta: c.Delta}
}

func (c Config) Level() slog.Level { return parseLogLevel(c.LogLevel) }

func (c Config) String() string {
	return fmt.Sprintf("Config{Events: %s, Folds: %v, Freq: %d, Entropy: %.2f, Kind: %s, Parallelism: %d}",
		c.EventsDir, c.Folds, c.FrequencyThreshold, c.EntropyThreshold, c.EpisodeKind, c.Parallelism)
}

func parseFolds(s string) ([]int, error) {
	var out []int
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("%w: bad fold %q", episodes.ErrPrecondition, p)
		}
		out = append(out, n)
	}
	return out, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// envInt overwrites *dst with the value of key when it is set. A value that
// does not parse is an error, never a silent default.
func envInt(key string, dst *int) error {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	i, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not an integer", episodes.ErrPrecondition, key, val)
	}
	*dst = i
	return nil
}

func envFloat(key string, dst *float64) error {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not a number", episodes.ErrPrecondition, key, val)
	}
	*dst = f
	return nil
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
