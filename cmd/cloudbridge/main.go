package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/erauner12/cloudbridge/internal/auth"
	"github.com/erauner12/cloudbridge/internal/cloud"
	"github.com/erauner12/cloudbridge/internal/config"
	"github.com/erauner12/cloudbridge/internal/gateway"
	"github.com/erauner12/cloudbridge/internal/tools"
)

const (
	version = "0.1.0"
)

type options struct {
	Config   string `short:"c" long:"config" description:"Path to configuration file (JSON)"`
	Addr     string `long:"addr" description:"HTTP listen address"`
	LogLevel string `long:"log-level" description:"Log level (debug, info, warn, error)"`
	Debug    bool   `long:"debug" description:"Enable debug logging"`
	Version  bool   `short:"v" long:"version" description:"Show version information"`
}

func main() {
	var opts options
	if _, err := flags.NewParser(&opts, flags.Default).Parse(); err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	// Show version and exit
	if opts.Version {
		fmt.Printf("cloudbridge version %s\n", version)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Setup logging
	setupLogging(cfg)

	log.Info().
		Str("version", version).
		Str("region", cfg.Region).
		Str("auditBackend", cfg.Audit.Backend).
		Bool("debug", cfg.Debug).
		Msg("Starting cloudbridge")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	if err := run(ctx, cfg); err != nil {
		log.Error().Err(err).Msg("gateway failed")
		os.Exit(1)
	}

	log.Info().Msg("cloudbridge stopped gracefully")
}

// loadConfig loads the configuration from file and environment, then
// applies CLI flag overrides before validating
func loadConfig(opts options) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if opts.Config != "" {
		cfg, err = config.Load(opts.Config)
	} else {
		cfg, err = config.LoadFromEnvironment()
	}
	if err != nil {
		return nil, err
	}

	applyFlags(cfg, opts)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func applyFlags(cfg *config.Config, opts options) {
	if opts.Addr != "" {
		cfg.HTTPAddr = opts.Addr
	}
	if opts.Debug {
		cfg.Debug = true
		// --debug implies debug level unless a level is given explicitly
		if opts.LogLevel == "" {
			cfg.LogLevel = "debug"
		}
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
}

// setupLogging configures the global logger
func setupLogging(cfg *config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.SetGlobalLevel(parseLogLevel(cfg.LogLevel))

	if cfg.Debug {
		// Pretty logging for development
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		}).With().Caller().Logger()
		return
	}

	// JSON logging for production
	log.Logger = zerolog.New(os.Stderr).
		With().
		Timestamp().
		Str("service", "cloudbridge").
		Logger()
}

// parseLogLevel converts a string log level to zerolog.Level
func parseLogLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// run wires the gateway and blocks until ctx is cancelled or the server fails
func run(ctx context.Context, cfg *config.Config) error {
	awsCfg, err := cloud.LoadConfig(ctx, cfg.Region)
	if err != nil {
		return err
	}

	facade, err := cloud.New(ctx, cfg.Region, cloud.WithConfig(awsCfg))
	if err != nil {
		return err
	}

	sink, closeAudit, err := buildAuditSink(ctx, cfg, awsCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize audit store: %w", err)
	}

	dispatcher, err := tools.NewDispatcher(tools.NewCatalog(), facade, sink,
		tools.WithLaunchDefaults(tools.LaunchDefaults{
			ImageID:      cfg.EC2.DefaultAMI,
			InstanceType: cfg.EC2.DefaultInstanceType,
		}),
		tools.WithSchemaValidation(cfg.StrictParams),
	)
	if err != nil {
		return err
	}

	srv, err := gateway.New(gateway.Options{
		Dispatcher: dispatcher,
		Audit:      sink,
		Policy: gateway.Policy{
			ExpectedMethod: gateway.MethodToolsCall,
			CheckMethod:    cfg.StrictMethod,
			StrictParams:   cfg.StrictParams,
		},
		AllowedOrigins: cfg.AllowedOrigins,
		Auth: auth.JWTCfg{
			HS256Secret: cfg.JWTSecret,
			Issuer:      cfg.JWTIssuer,
		},
		Info: gateway.ServerInfo{Name: "cloudbridge", Version: version},
	})
	if err != nil {
		return err
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		closeAudit(context.Background())
		return fmt.Errorf("http server: %w", err)
	}

	log.Info().Dur("timeout", cfg.ShutdownTimeout).Msg("Shutting down gateway...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http server shutdown incomplete")
	}

	// Pending audit writes are flushed after the last request has finished
	closeAudit(shutdownCtx)

	return nil
}
