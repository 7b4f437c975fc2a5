package suit

import (
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config holds the file-based settings of a runtime and its transport.
//
//	log_level: debug
//	adopt_new_keys: false
//	request_timeout: 10s
//	bootstrap: ./bootstrap.json
type Config struct {
	// LogLevel is a zap level name. Default: info
	LogLevel string `yaml:"log_level"`

	// AdoptNewKeys merges result keys the environment did not hold yet.
	// Default: false
	AdoptNewKeys bool `yaml:"adopt_new_keys"`

	// RequestTimeout bounds each transport request.
	// Default: 30s
	RequestTimeout string `yaml:"request_timeout"`

	// Bootstrap is the path of the environment seed payload.
	Bootstrap string `yaml:"bootstrap"`

	// Secret is the key sealed bootstrap tokens are opened with. When set,
	// the bootstrap file holds a sealed token instead of JSON.
	Secret string `yaml:"secret"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:       "info",
		RequestTimeout: "30s",
	}
}

// LoadConfig reads a YAML configuration file over the defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("suit: read config %s: %w", path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("suit: config %s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes YAML configuration over the defaults and validates it.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field formats.
func (c *Config) Validate() error {
	var errs []error
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	if _, err := c.Timeout(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Timeout returns RequestTimeout as a duration. Empty means no timeout.
func (c *Config) Timeout() (time.Duration, error) {
	if c.RequestTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.RequestTimeout)
	if err != nil {
		return 0, fmt.Errorf("request_timeout: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("request_timeout: negative duration %s", d)
	}
	return d, nil
}

// NewLogger builds a console logger at the configured level.
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log_level: %w", err)
	}
	zc := zap.NewDevelopmentConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.DisableStacktrace = true
	return zc.Build()
}
