package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"

	"github.com/NHSDigital/connecting-party-manager-sub002/internal/platform/config"
	"github.com/NHSDigital/connecting-party-manager-sub002/internal/platform/metrics"
	platformpostgres "github.com/NHSDigital/connecting-party-manager-sub002/internal/platform/postgres"
	platformredis "github.com/NHSDigital/connecting-party-manager-sub002/internal/platform/redis"
	"github.com/NHSDigital/connecting-party-manager-sub002/internal/repository"
	repometrics "github.com/NHSDigital/connecting-party-manager-sub002/internal/repository/metrics"
	"github.com/NHSDigital/connecting-party-manager-sub002/internal/storage"
	dynamostore "github.com/NHSDigital/connecting-party-manager-sub002/internal/storage/dynamodb"
	pgstore "github.com/NHSDigital/connecting-party-manager-sub002/internal/storage/postgres"
	redisstore "github.com/NHSDigital/connecting-party-manager-sub002/internal/storage/redis"
)

const tracerName = "github.com/NHSDigital/connecting-party-manager-sub002/internal/repository"

// app holds the wired dependencies of one command run.
type app struct {
	repo     *repository.Repository
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	closers  []func() error
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	a := &app{registry: prometheus.NewRegistry()}
	a.metrics = metrics.New(a.registry)

	client, err := a.openBackend(ctx, cfg, logger)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	repo, err := repository.New(client, repositoryConfig(cfg),
		repository.WithLogger(logger),
		repository.WithMetrics(repometrics.New(a.registry)),
		repository.WithTracer(otel.Tracer(tracerName)),
	)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.repo = repo
	logger.InfoContext(ctx, "repository ready",
		"backend", cfg.Storage.Backend,
		"table", cfg.Storage.Table,
	)
	return a, nil
}

func (a *app) openBackend(ctx context.Context, cfg config.Config, logger *slog.Logger) (storage.Client, error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		return storage.NewInMemory(), nil

	case config.BackendDynamoDB:
		return dynamostore.NewFromEnv(ctx, cfg.DynamoDB.Region, cfg.DynamoDB.Endpoint, dynamostore.WithLogger(logger))

	case config.BackendPostgres:
		db, err := platformpostgres.Open(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		client, err := pgstore.New(db, pgstore.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		if cfg.Postgres.Migrate {
			if err := client.Migrate(ctx); err != nil {
				return nil, err
			}
		}
		return client, nil

	case config.BackendRedis:
		rdb, err := platformredis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, rdb.Close)
		opts := []redisstore.Option{redisstore.WithLogger(logger)}
		if cfg.Redis.Prefix != "" {
			opts = append(opts, redisstore.WithPrefix(cfg.Redis.Prefix))
		}
		return redisstore.New(rdb.Client, opts...)

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// repositoryConfig overlays the configured limits on the engine defaults.
func repositoryConfig(cfg config.Config) repository.Config {
	out := repository.DefaultConfig(cfg.Storage.Table)
	r := cfg.Repository
	if r.MaxChunkSize > 0 {
		out.MaxChunkSize = r.MaxChunkSize
	}
	if r.BulkBatchSize > 0 {
		out.BulkBatchSize = r.BulkBatchSize
	}
	if r.BulkMaxAttempts > 0 {
		out.BulkMaxAttempts = r.BulkMaxAttempts
	}
	if r.BulkBaseDelay > 0 {
		out.BulkBaseDelay = r.BulkBaseDelay
	}
	if r.BulkMinDelay > 0 {
		out.BulkMinDelay = r.BulkMinDelay
	}
	if r.BulkMaxDelay > 0 {
		out.BulkMaxDelay = r.BulkMaxDelay
	}
	if r.BulkConcurrency > 0 {
		out.BulkConcurrency = r.BulkConcurrency
	}
	return out
}
