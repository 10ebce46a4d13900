package config

import (
	"strings"
	"time"
)

// Audit backends
const (
	AuditBackendS3       = "s3"
	AuditBackendPostgres = "postgres"
	AuditBackendLog      = "log"
	AuditBackendMemory   = "memory"
	AuditBackendNone     = "none"
)

// Config holds all configuration for the gateway.
// Fields are read once at startup; env tags name the override variables.
type Config struct {
	HTTPAddr        string        `json:"httpAddr" env:"GATEWAY_HTTP_ADDR"`
	Region          string        `json:"region" env:"AWS_REGION"`
	Audit           AuditConfig   `json:"audit"`
	EC2             EC2Config     `json:"ec2"`
	StrictMethod    bool          `json:"strictMethod" env:"GATEWAY_STRICT_METHOD"` // reject tools/call bodies whose method is not tools/call
	StrictParams    bool          `json:"strictParams" env:"GATEWAY_STRICT_PARAMS"` // enforce argument types against tool schemas
	AllowedOrigins  []string      `json:"allowedOrigins" env:"GATEWAY_ALLOWED_ORIGINS" envSeparator:","`
	JWTSecret       string        `json:"-" env:"GATEWAY_JWT_SECRET"` // enables HS256 bearer auth when set
	JWTIssuer       string        `json:"jwtIssuer" env:"GATEWAY_JWT_ISSUER"`
	Debug           bool          `json:"debug" env:"GATEWAY_DEBUG"`
	LogLevel        string        `json:"logLevel" env:"GATEWAY_LOG_LEVEL"`
	ShutdownTimeout time.Duration `json:"shutdownTimeout" env:"GATEWAY_SHUTDOWN_TIMEOUT"`
}

// AuditConfig selects and configures the audit store
type AuditConfig struct {
	Backend     string        `json:"backend" env:"AUDIT_BACKEND"`
	Bucket      string        `json:"bucket" env:"AUDIT_BUCKET"`
	Prefix      string        `json:"prefix" env:"AUDIT_PREFIX"`
	Timeout     time.Duration `json:"timeout" env:"AUDIT_TIMEOUT"`
	DatabaseURL string        `json:"-" env:"DATABASE_URL"`
}

// EC2Config holds the launch defaults for create_ec2_instance
type EC2Config struct {
	DefaultAMI          string `json:"defaultAmi" env:"EC2_DEFAULT_AMI"`
	DefaultInstanceType string `json:"defaultInstanceType" env:"EC2_DEFAULT_INSTANCE_TYPE"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if strings.TrimSpace(c.HTTPAddr) == "" {
		return ErrMissingHTTPAddr
	}

	if strings.TrimSpace(c.Region) == "" {
		return ErrMissingRegion
	}

	if err := c.Audit.Validate(); err != nil {
		return err
	}

	if c.EC2.DefaultAMI == "" || c.EC2.DefaultInstanceType == "" {
		return ErrMissingEC2Defaults
	}

	return nil
}

// Validate checks the audit backend settings
func (a *AuditConfig) Validate() error {
	switch a.Backend {
	case AuditBackendS3:
		if a.Bucket == "" {
			return ErrMissingAuditBucket
		}
	case AuditBackendPostgres:
		if a.DatabaseURL == "" {
			return ErrMissingDatabaseURL
		}
	case AuditBackendLog, AuditBackendMemory, AuditBackendNone:
	default:
		return ErrUnknownAuditBackend
	}
	return nil
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		HTTPAddr: ":8080",
		Region:   "eu-west-1",
		Audit: AuditConfig{
			Backend: AuditBackendS3,
			Bucket:  "aws-mcp-audit-logs",
			Prefix:  "audit/",
			Timeout: 5 * time.Second,
		},
		EC2: EC2Config{
			DefaultAMI:          "ami-0fc5d935ebf8bc3bc",
			DefaultInstanceType: "t2.micro",
		},
		AllowedOrigins:  []string{"*"},
		LogLevel:        "info",
		ShutdownTimeout: 15 * time.Second,
	}
}
