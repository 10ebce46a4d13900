package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Load loads configuration from a file path and applies environment variable overrides.
// Validation is deferred to allow CLI flag overrides to be applied first.
func Load(configPath string) (*Config, error) {
	return load(configPath, env.Options{})
}

// LoadFromEnvironment creates a configuration using only defaults and
// environment variables. This is the usual path for container deployments.
func LoadFromEnvironment() (*Config, error) {
	return load("", env.Options{})
}

// LoadWithEnvironment is Load with an explicit environment instead of the
// process one
func LoadWithEnvironment(configPath string, environ map[string]string) (*Config, error) {
	return load(configPath, env.Options{Environment: environ})
}

func load(configPath string, opts env.Options) (*Config, error) {
	// Start with default config
	cfg := DefaultConfig()

	// File values replace defaults field by field
	if configPath != "" {
		if err := loadFromFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Environment wins over file and defaults. Unset variables leave
	// the field untouched because no envDefault tags are used.
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	normalize(cfg)

	return cfg, nil
}

// loadFromFile overlays a JSON config file onto cfg
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrConfigFileNotFound
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var raw fileConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfigFormat, err)
	}

	return raw.apply(cfg)
}

// fileConfig lets durations be written as strings ("5s") in the file
type fileConfig struct {
	Config
	ShutdownTimeout string `json:"shutdownTimeout"`
	Audit           struct {
		AuditConfig
		Timeout string `json:"timeout"`
	} `json:"audit"`
}

func (f *fileConfig) apply(cfg *Config) error {
	merged := f.Config
	merged.Audit = f.Audit.AuditConfig

	if f.ShutdownTimeout != "" {
		d, err := parseDuration("shutdownTimeout", f.ShutdownTimeout)
		if err != nil {
			return err
		}
		merged.ShutdownTimeout = d
	}
	if f.Audit.Timeout != "" {
		d, err := parseDuration("audit.timeout", f.Audit.Timeout)
		if err != nil {
			return err
		}
		merged.Audit.Timeout = d
	}

	overlay(cfg, &merged)
	return nil
}

// overlay copies every non-zero field of src onto dst
func overlay(dst, src *Config) {
	if src.HTTPAddr != "" {
		dst.HTTPAddr = src.HTTPAddr
	}
	if src.Region != "" {
		dst.Region = src.Region
	}
	if src.Audit.Backend != "" {
		dst.Audit.Backend = src.Audit.Backend
	}
	if src.Audit.Bucket != "" {
		dst.Audit.Bucket = src.Audit.Bucket
	}
	if src.Audit.Prefix != "" {
		dst.Audit.Prefix = src.Audit.Prefix
	}
	if src.Audit.Timeout != 0 {
		dst.Audit.Timeout = src.Audit.Timeout
	}
	if src.EC2.DefaultAMI != "" {
		dst.EC2.DefaultAMI = src.EC2.DefaultAMI
	}
	if src.EC2.DefaultInstanceType != "" {
		dst.EC2.DefaultInstanceType = src.EC2.DefaultInstanceType
	}
	if len(src.AllowedOrigins) > 0 {
		dst.AllowedOrigins = src.AllowedOrigins
	}
	if src.JWTIssuer != "" {
		dst.JWTIssuer = src.JWTIssuer
	}
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
	if src.ShutdownTimeout != 0 {
		dst.ShutdownTimeout = src.ShutdownTimeout
	}
	dst.StrictMethod = dst.StrictMethod || src.StrictMethod
	dst.StrictParams = dst.StrictParams || src.StrictParams
	dst.Debug = dst.Debug || src.Debug
}

func parseDuration(field, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidConfigFormat, field, err)
	}
	return d, nil
}

// normalize trims list entries and lowercases enum-like values
func normalize(cfg *Config) {
	origins := make([]string, 0, len(cfg.AllowedOrigins))
	for _, origin := range cfg.AllowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	cfg.AllowedOrigins = origins

	cfg.Audit.Backend = strings.ToLower(strings.TrimSpace(cfg.Audit.Backend))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
}
