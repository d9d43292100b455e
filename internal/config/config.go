// Package config loads runtime settings for the image-transform command.
//
// Settings are merged in increasing priority: built-in defaults, an optional
// YAML file, then IMGXFORM_* environment variables. Command-line flags are
// applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/ironsheep/image-transform-cli/internal/fetch"
)

// EnvPrefix is the prefix of environment overrides. Nested keys use a double
// underscore, e.g. IMGXFORM_FETCH__MAX_RETRIES.
const EnvPrefix = "IMGXFORM_"

// DefaultMinTime is the default pacing floor in seconds.
const DefaultMinTime = 10.0

// maxMinTime is the largest floor, in seconds, that fits a time.Duration.
const maxMinTime = float64(math.MaxInt64 / int64(time.Second))

// ErrConfig is returned for invalid or unreadable configuration.
var ErrConfig = errors.New("invalid configuration")

type FetchConfig struct {
	MaxRetries int           `koanf:"max_retries"` // total attempts per download
	RetryDelay time.Duration `koanf:"retry_delay"`
	Timeout    time.Duration `koanf:"timeout"` // per attempt
	UserAgent  string        `koanf:"user_agent"`
	ChunkSize  int           `koanf:"chunk_size"` // bytes per streamed read
}

type LogConfig struct {
	Level string `koanf:"level"` // debug|info|warn|error
	JSON  bool   `koanf:"json"`
}

type Config struct {
	MinTime float64     `koanf:"min_time"` // seconds
	Fetch   FetchConfig `koanf:"fetch"`
	Log     LogConfig   `koanf:"log"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		MinTime: DefaultMinTime,
		Fetch: FetchConfig{
			MaxRetries: fetch.DefaultMaxRetries,
			RetryDelay: fetch.DefaultRetryDelay,
			Timeout:    fetch.DefaultTimeout,
			UserAgent:  fetch.DefaultUserAgent,
			ChunkSize:  fetch.DefaultChunkSize,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load merges the YAML file at path (skipped when path is empty) and the
// environment over the defaults. The result is not validated.
func Load(path string) (Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("%w: load %s: %v", ErrConfig, path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("%w: environment: %v", ErrConfig, err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	return cfg, nil
}

// envAliases lets the logging variables keep their flat names.
var envAliases = map[string]string{
	"log_level": "log.level",
	"log_json":  "log.json",
}

// envKey maps IMGXFORM_FETCH__MAX_RETRIES to fetch.max_retries.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	if alias, ok := envAliases[s]; ok {
		return alias
	}
	return strings.ReplaceAll(s, "__", ".")
}

// Validate checks that every setting is usable.
func (c Config) Validate() error {
	if math.IsNaN(c.MinTime) || math.IsInf(c.MinTime, 0) {
		return fmt.Errorf("%w: min-time must be a finite number (got %g)", ErrConfig, c.MinTime)
	}
	if c.MinTime < 0 {
		return fmt.Errorf("%w: min-time must not be negative (got %g)", ErrConfig, c.MinTime)
	}
	if c.MinTime > maxMinTime {
		return fmt.Errorf("%w: min-time %g exceeds the maximum of %g seconds", ErrConfig, c.MinTime, maxMinTime)
	}
	if c.Fetch.MaxRetries <= 0 {
		return fmt.Errorf("%w: fetch.max_retries must be positive", ErrConfig)
	}
	if c.Fetch.RetryDelay < 0 {
		return fmt.Errorf("%w: fetch.retry_delay must not be negative", ErrConfig)
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("%w: fetch.timeout must be positive", ErrConfig)
	}
	if c.Fetch.ChunkSize <= 0 {
		return fmt.Errorf("%w: fetch.chunk_size must be positive", ErrConfig)
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrConfig, c.Log.Level)
	}
	return nil
}
