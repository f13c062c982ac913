// Package config loads codeguard settings from a YAML file and the
// environment.
//
// Precedence, lowest first: Default(), the YAML file, CODEGUARD_*
// environment variables. GITHUB_TOKEN and GITLAB_TOKEN fill the provider
// tokens when the file leaves them empty. ${VAR} references inside the file
// are expanded before parsing.
package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/exploopio/codeguard/pkg/analyzer"
	"github.com/exploopio/codeguard/pkg/audit"
	"github.com/exploopio/codeguard/pkg/compress"
	"github.com/exploopio/codeguard/pkg/core"
	"github.com/exploopio/codeguard/pkg/errors"
	"github.com/exploopio/codeguard/pkg/history"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CODEGUARD_"

// Config is the full codeguard configuration.
type Config struct {
	Analyzer struct {
		MaxInputBytes   int    `yaml:"max_input_bytes"`
		DefaultLanguage string `yaml:"default_language"`
	} `yaml:"analyzer"`

	History struct {
		Enabled     bool   `yaml:"enabled"`
		Path        string `yaml:"path"`
		Compression string `yaml:"compression"`
	} `yaml:"history"`

	Server struct {
		Address         string        `yaml:"address"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Metrics struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"metrics"`

	Audit struct {
		Enabled       bool          `yaml:"enabled"`
		Path          string        `yaml:"path"`
		FlushInterval time.Duration `yaml:"flush_interval"`
	} `yaml:"audit"`

	GitHub Remote `yaml:"github"`
	GitLab Remote `yaml:"gitlab"`

	Watch struct {
		Debounce time.Duration `yaml:"debounce"`
	} `yaml:"watch"`

	Log struct {
		Level string `yaml:"level"`
		JSON  bool   `yaml:"json"`
	} `yaml:"log"`
}

// Remote configures one source provider.
type Remote struct {
	Token   string        `yaml:"token"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`

	// Requests per hour, 0 for unlimited
	RateLimit int `yaml:"rate_limit"`

	// Tries per request on transient failures, including the first.
	// 0 uses the default, a negative value disables retries.
	Attempts int `yaml:"attempts"`
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.Analyzer.MaxInputBytes = analyzer.DefaultMaxInputBytes
	cfg.History.Enabled = true
	cfg.History.Path = history.DefaultPath()
	cfg.History.Compression = string(compress.AlgorithmZSTD)
	cfg.Server.Address = ":8080"
	cfg.Server.ReadTimeout = 15 * time.Second
	cfg.Server.WriteTimeout = 60 * time.Second
	cfg.Server.ShutdownTimeout = 10 * time.Second
	cfg.Metrics.Enabled = true
	cfg.Audit.Path = audit.DefaultPath()
	cfg.Audit.FlushInterval = 5 * time.Second
	cfg.GitHub.Timeout = 30 * time.Second
	cfg.GitHub.RateLimit = 5000
	cfg.GitLab.Timeout = 30 * time.Second
	cfg.GitLab.RateLimit = 2000
	cfg.Watch.Debounce = 300 * time.Millisecond
	cfg.Log.Level = "info"
	return cfg
}

// Load reads path on top of Default() and applies the environment. An
// empty path skips the file.
func Load(path string) (*Config, error) {
	const op = "config.Load"

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.E(errors.KindInvalidInput, op, "read config", err)
		}
		if err := Parse(data, cfg); err != nil {
			return nil, errors.E(errors.KindInvalidInput, op, path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, errors.E(errors.KindInvalidInput, op, "environment", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML data into cfg after expanding ${VAR} references.
// Unknown keys are rejected.
func Parse(data []byte, cfg *Config) error {
	expanded := os.ExpandEnv(string(data))
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// LookupFunc is the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv applies CODEGUARD_* overrides read through lookup.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	var errs []string
	integer := func(key string, dst *int) {
		if v, ok := lookup(EnvPrefix + key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s%s: %v", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(EnvPrefix + key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s%s: %v", EnvPrefix, key, err))
				return
			}
			*dst = b
		}
	}

	integer("MAX_INPUT_BYTES", &c.Analyzer.MaxInputBytes)
	str("DEFAULT_LANGUAGE", &c.Analyzer.DefaultLanguage)
	boolean("HISTORY_ENABLED", &c.History.Enabled)
	str("HISTORY_PATH", &c.History.Path)
	str("HISTORY_COMPRESSION", &c.History.Compression)
	str("SERVER_ADDRESS", &c.Server.Address)
	boolean("METRICS_ENABLED", &c.Metrics.Enabled)
	boolean("AUDIT_ENABLED", &c.Audit.Enabled)
	str("AUDIT_PATH", &c.Audit.Path)
	str("GITHUB_TOKEN", &c.GitHub.Token)
	str("GITHUB_BASE_URL", &c.GitHub.BaseURL)
	integer("GITHUB_RATE_LIMIT", &c.GitHub.RateLimit)
	integer("GITHUB_ATTEMPTS", &c.GitHub.Attempts)
	str("GITLAB_TOKEN", &c.GitLab.Token)
	str("GITLAB_BASE_URL", &c.GitLab.BaseURL)
	integer("GITLAB_RATE_LIMIT", &c.GitLab.RateLimit)
	integer("GITLAB_ATTEMPTS", &c.GitLab.Attempts)
	str("LOG_LEVEL", &c.Log.Level)
	boolean("LOG_JSON", &c.Log.JSON)

	if c.GitHub.Token == "" {
		if v, ok := lookup("GITHUB_TOKEN"); ok {
			c.GitHub.Token = v
		}
	}
	if c.GitLab.Token == "" {
		if v, ok := lookup("GITLAB_TOKEN"); ok {
			c.GitLab.Token = v
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// Validate checks value ranges and enumerations and reports every invalid
// setting at once.
func (c *Config) Validate() error {
	const op = "config.Validate"

	_, compErr := compress.ParseAlgorithm(c.History.Compression)
	_, levelErr := core.ParseLogLevel(c.Log.Level)

	v := core.NewValidator().
		Min("analyzer.max_input_bytes", c.Analyzer.MaxInputBytes, 0).
		Check("history.compression", compErr).
		Custom("history.path", func() bool { return !c.History.Enabled || c.History.Path != "" },
			"is required when history is enabled").
		Required("server.address", c.Server.Address).
		MinDuration("server.shutdown_timeout", c.Server.ShutdownTimeout, 0).
		Custom("audit.path", func() bool { return !c.Audit.Enabled || c.Audit.Path != "" },
			"is required when audit is enabled").
		MinDuration("audit.flush_interval", c.Audit.FlushInterval, 0).
		URL("github.base_url", c.GitHub.BaseURL).
		Min("github.rate_limit", c.GitHub.RateLimit, 0).
		URL("gitlab.base_url", c.GitLab.BaseURL).
		Min("gitlab.rate_limit", c.GitLab.RateLimit, 0).
		MinDuration("watch.debounce", c.Watch.Debounce, 0).
		Check("log.level", levelErr)

	if err := v.Validate(); err != nil {
		return errors.E(errors.KindInvalidInput, op, err.Error(), errors.ErrInvalidConfig)
	}
	return nil
}

// LogLevel returns the parsed log level. Validate has already rejected bad
// values, so errors fall back to info.
func (c *Config) LogLevel() core.LogLevel {
	l, err := core.ParseLogLevel(c.Log.Level)
	if err != nil {
		return core.LogLevelInfo
	}
	return l
}
