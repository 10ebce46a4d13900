package config

import "errors"

var (
	// ErrMissingHTTPAddr indicates that no listen address is configured
	ErrMissingHTTPAddr = errors.New("httpAddr is required in configuration")

	// ErrMissingRegion indicates that the AWS region is not configured
	ErrMissingRegion = errors.New("region is required (set AWS_REGION)")

	// ErrMissingAuditBucket indicates that the s3 audit backend has no bucket
	ErrMissingAuditBucket = errors.New("audit.bucket is required for the s3 audit backend")

	// ErrMissingDatabaseURL indicates that the postgres audit backend has no DSN
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is required for the postgres audit backend")

	// ErrUnknownAuditBackend indicates an unsupported audit.backend value
	ErrUnknownAuditBackend = errors.New("audit.backend must be one of s3, postgres, log, memory, none")

	// ErrMissingEC2Defaults indicates that instance launch defaults are blank
	ErrMissingEC2Defaults = errors.New("ec2.defaultAmi and ec2.defaultInstanceType are required")

	// ErrConfigFileNotFound indicates that the config file was not found
	ErrConfigFileNotFound = errors.New("configuration file not found")

	// ErrInvalidConfigFormat indicates that the config file has invalid JSON
	ErrInvalidConfigFormat = errors.New("invalid configuration file format")
)
