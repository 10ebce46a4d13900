package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"github.com/erauner12/cloudbridge/internal/audit"
	"github.com/erauner12/cloudbridge/internal/config"
	"github.com/erauner12/cloudbridge/internal/db"
)

// buildAuditStore creates the store selected by cfg.Audit.Backend. A nil
// store means auditing is disabled. release frees backend resources.
func buildAuditStore(ctx context.Context, cfg *config.Config, awsCfg aws.Config) (store audit.Store, release func(), err error) {
	release = func() {}

	switch cfg.Audit.Backend {
	case config.AuditBackendS3:
		return audit.NewS3Store(s3.NewFromConfig(awsCfg), cfg.Audit.Bucket), release, nil

	case config.AuditBackendPostgres:
		pool, err := db.Open(ctx, cfg.Audit.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return audit.NewPostgresStore(pool), pool.Close, nil

	case config.AuditBackendLog:
		return audit.NewLogStore(log.Logger), release, nil

	case config.AuditBackendMemory:
		return audit.NewMemoryStore(), release, nil

	case config.AuditBackendNone:
		return nil, release, nil
	}

	return nil, nil, fmt.Errorf("%w: %s", config.ErrUnknownAuditBackend, cfg.Audit.Backend)
}

// buildAuditSink wraps the configured store in a Recorder. The returned
// close function drains pending writes and then releases the store.
func buildAuditSink(ctx context.Context, cfg *config.Config, awsCfg aws.Config) (audit.Sink, func(context.Context), error) {
	store, release, err := buildAuditStore(ctx, cfg, awsCfg)
	if err != nil {
		return nil, nil, err
	}

	if store == nil {
		log.Warn().Msg("audit logging disabled")
		return audit.Discard{}, func(context.Context) { release() }, nil
	}

	recorder := audit.NewRecorder(store,
		audit.WithPrefix(cfg.Audit.Prefix),
		audit.WithTimeout(cfg.Audit.Timeout),
		audit.WithLogger(log.Logger),
	)

	log.Info().
		Str("backend", cfg.Audit.Backend).
		Str("bucket", cfg.Audit.Bucket).
		Str("prefix", cfg.Audit.Prefix).
		Msg("audit store initialized")

	closeFn := func(ctx context.Context) {
		if err := recorder.Close(ctx); err != nil {
			log.Warn().Err(err).Msg("pending audit writes abandoned")
		}
		release()
	}
	return recorder, closeFn, nil
}
