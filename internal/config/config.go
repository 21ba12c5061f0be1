// Package config loads the sakura configuration: YAML file, then environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/sakura/internal/logging"
	"github.com/aretw0/sakura/internal/markup"
)

// DefaultPath is read when no path is given.
const DefaultPath = "sakura.yaml"

// Config is the whole application configuration.
type Config struct {
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	Grammar   markup.Grammar  `mapstructure:"grammar" yaml:"grammar"`
	HTTP      HTTPConfig      `mapstructure:"http" yaml:"http"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
	Redis     RedisConfig     `mapstructure:"redis" yaml:"redis"`
	Session   SessionConfig   `mapstructure:"session" yaml:"session"`
	Workspace WorkspaceConfig `mapstructure:"workspace" yaml:"workspace"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	File   string `mapstructure:"file" yaml:"file"`
}

type HTTPConfig struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	CORS              bool          `mapstructure:"cors" yaml:"cors"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Addr serves /metrics on a separate listener; empty mounts it on the API router.
	Addr string `mapstructure:"addr" yaml:"addr"`
}

type RedisConfig struct {
	// Addr enables the Redis snapshot feed and distributed locks when set.
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
	Prefix   string `mapstructure:"prefix" yaml:"prefix"`
}

type SessionConfig struct {
	LockTTL time.Duration `mapstructure:"lock_ttl" yaml:"lock_ttl"`
}

type WorkspaceConfig struct {
	FollowWriting bool `mapstructure:"follow_writing" yaml:"follow_writing"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Log:     LogConfig{Level: "info", Format: "text"},
		Grammar: markup.DefaultGrammar(),
		HTTP: HTTPConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   5 * time.Second,
			CORS:              true,
		},
		Metrics:   MetricsConfig{Enabled: true},
		Redis:     RedisConfig{Prefix: "sakura:"},
		Session:   SessionConfig{LockTTL: 30 * time.Second},
		Workspace: WorkspaceConfig{FollowWriting: true},
	}
}

// Load reads path (DefaultPath when empty) over the defaults and applies environment
// overrides. A missing default file is not an error; a missing explicit file is.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	applyEnv(&cfg, os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           cfg,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

// applyEnv overrides selected keys from SAKURA_* variables.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	overrides := map[string]*string{
		"SAKURA_LOG_LEVEL":    &cfg.Log.Level,
		"SAKURA_LOG_FORMAT":   &cfg.Log.Format,
		"SAKURA_HTTP_ADDR":    &cfg.HTTP.Addr,
		"SAKURA_METRICS_ADDR": &cfg.Metrics.Addr,
		"SAKURA_REDIS_ADDR":   &cfg.Redis.Addr,
	}
	for key, dst := range overrides {
		if v, ok := lookup(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
}

// Validate checks values that would otherwise fail late.
func (c Config) Validate() error {
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	if err := c.Grammar.WithDefaults().Validate(); err != nil {
		return err
	}
	if c.Session.LockTTL < 0 {
		return fmt.Errorf("session.lock_ttl must not be negative")
	}
	return nil
}

// LoggingOptions converts the log section.
func (c Config) LoggingOptions() logging.Options {
	level, _ := logging.ParseLevel(c.Log.Level)
	return logging.Options{Level: level, Format: c.Log.Format, File: c.Log.File}
}
