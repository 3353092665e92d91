// Package repository persists aggregate events as atomic, conditional writes
// against a storage.Client.
//
// Every entity is stored as several copies (root, one per alternate key, one
// per tag) so each access path is a direct key lookup. Write turns pending
// events into operations, splits them into key-unique chunks of at most
// MaxChunkSize, and commits the chunks one at a time in event order. A failed
// chunk stops the write; earlier chunks stay committed.
package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/NHSDigital/connecting-party-manager-sub002/internal/domain"
	"github.com/NHSDigital/connecting-party-manager-sub002/internal/repository/metrics"
	"github.com/NHSDigital/connecting-party-manager-sub002/internal/storage"
)

const tracerName = "github.com/NHSDigital/connecting-party-manager-sub002/internal/repository"

// Config is built once at process start and passed to New.
type Config struct {
	Table           string
	MaxChunkSize    int
	BulkBatchSize   int
	BulkMaxAttempts int
	BulkBaseDelay   time.Duration
	BulkMinDelay    time.Duration
	BulkMaxDelay    time.Duration
	// BulkConcurrency bounds how many bulk batches are in flight. 1 keeps the
	// bulk path sequential.
	BulkConcurrency int
}

// DefaultConfig returns the backend limits of a DynamoDB-class store.
func DefaultConfig(table string) Config {
	return Config{
		Table:           table,
		MaxChunkSize:    storage.MaxTransactionItems,
		BulkBatchSize:   storage.MaxBatchItems,
		BulkMaxAttempts: 6,
		BulkBaseDelay:   100 * time.Millisecond,
		BulkMinDelay:    10 * time.Millisecond,
		BulkMaxDelay:    5 * time.Second,
		BulkConcurrency: 1,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig(c.Table)
	if c.MaxChunkSize == 0 {
		c.MaxChunkSize = d.MaxChunkSize
	}
	if c.BulkBatchSize == 0 {
		c.BulkBatchSize = d.BulkBatchSize
	}
	if c.BulkMaxAttempts == 0 {
		c.BulkMaxAttempts = d.BulkMaxAttempts
	}
	if c.BulkBaseDelay == 0 {
		c.BulkBaseDelay = d.BulkBaseDelay
	}
	if c.BulkMaxDelay == 0 {
		c.BulkMaxDelay = d.BulkMaxDelay
	}
	if c.BulkConcurrency == 0 {
		c.BulkConcurrency = d.BulkConcurrency
	}
	return c
}

func (c Config) validate() error {
	switch {
	case c.Table == "":
		return errors.New("table is required")
	case c.MaxChunkSize < 1 || c.MaxChunkSize > storage.MaxTransactionItems:
		return fmt.Errorf("max chunk size must be between 1 and %d", storage.MaxTransactionItems)
	case c.BulkBatchSize < 1 || c.BulkBatchSize > storage.MaxBatchItems:
		return fmt.Errorf("bulk batch size must be between 1 and %d", storage.MaxBatchItems)
	case c.BulkMaxAttempts < 1:
		return errors.New("bulk max attempts must be at least 1")
	case c.BulkMinDelay < 0 || c.BulkBaseDelay < 0 || c.BulkMaxDelay < c.BulkMinDelay:
		return errors.New("bulk delays must satisfy 0 <= min <= max")
	case c.BulkConcurrency < 1:
		return errors.New("bulk concurrency must be at least 1")
	}
	return nil
}

// EventSource is an aggregate with pending events.
type EventSource interface {
	Events() []domain.Event
	ClearEvents()
}

// Repository is the only entry point collaborators use to persist and load
// aggregates. It holds no locks; conflicts are resolved by the backend's
// conditional writes.
type Repository struct {
	client  storage.Client
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	sleep   func(time.Duration)
	jitter  func() float64
}

type Option func(*Repository)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Repository) {
		r.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Repository) {
		r.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(r *Repository) {
		r.tracer = tracer
	}
}

// WithSleep replaces the wait between bulk retries.
func WithSleep(sleep func(time.Duration)) Option {
	return func(r *Repository) {
		r.sleep = sleep
	}
}

// WithJitter replaces the [0,1) source used to spread bulk retry delays.
func WithJitter(jitter func() float64) Option {
	return func(r *Repository) {
		r.jitter = jitter
	}
}

func New(client storage.Client, cfg Config, opts ...Option) (*Repository, error) {
	if client == nil {
		return nil, errors.New("storage client is required")
	}
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid repository config: %w", err)
	}

	r := &Repository{
		client: client,
		cfg:    cfg,
		logger: slog.Default(),
		tracer: otel.Tracer(tracerName),
		jitter: rand.Float64,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *Repository) Config() Config {
	return r.cfg
}

// Write commits the pending events of src and returns one receipt per
// committed chunk. On failure the receipts of the chunks committed before the
// failing one are returned with the error, and the events stay pending.
func (r *Repository) Write(ctx context.Context, src EventSource) ([]storage.Receipt, error) {
	start := time.Now()
	defer r.metrics.ObserveWrite("transact", start)

	events := src.Events()
	ctx, span := r.tracer.Start(ctx, "Repository.Write",
		trace.WithAttributes(
			attribute.String("cpm.table", r.cfg.Table),
			attribute.Int("cpm.events", len(events)),
		),
	)
	defer span.End()

	ops, err := Operations(r.cfg.Table, events...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dispatch failed")
		return nil, err
	}
	chunks := Chunk(ops, r.cfg.MaxChunkSize)
	span.SetAttributes(attribute.Int("cpm.operations", len(ops)), attribute.Int("cpm.chunks", len(chunks)))

	receipts := make([]storage.Receipt, 0, len(chunks))
	for i, chunk := range chunks {
		receipt, err := r.transact(ctx, i, chunk)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, OutcomeOf(err).String())
			r.logger.DebugContext(ctx, "write stopped",
				"chunk", i,
				"chunks", len(chunks),
				"committed", len(receipts),
				"outcome", OutcomeOf(err).String(),
				"error", err,
			)
			return receipts, err
		}
		receipts = append(receipts, receipt)
	}

	src.ClearEvents()
	r.logger.DebugContext(ctx, "write committed",
		"events", len(events),
		"operations", len(ops),
		"chunks", len(chunks),
	)
	return receipts, nil
}

// transact commits one chunk and translates backend failures.
func (r *Repository) transact(ctx context.Context, index int, ops []storage.Operation) (storage.Receipt, error) {
	ctx, span := r.tracer.Start(ctx, "Repository.transact",
		trace.WithAttributes(
			attribute.Int("cpm.chunk", index),
			attribute.Int("cpm.operations", len(ops)),
		),
	)
	defer span.End()

	receipt, err := r.client.TransactWrite(ctx, ops)
	if err == nil {
		r.metrics.ObserveChunk(Written.String())
		for kind, n := range countKinds(ops) {
			r.metrics.AddOperations(string(kind), n)
		}
		return receipt, nil
	}

	err = translate(ops, err)
	r.metrics.ObserveChunk(OutcomeOf(err).String())
	span.RecordError(err)
	span.SetStatus(codes.Error, OutcomeOf(err).String())
	return storage.Receipt{}, err
}

func translate(ops []storage.Operation, err error) error {
	var cond *storage.ConditionFailedError
	if errors.As(err, &cond) && cond.Index >= 0 && cond.Index < len(ops) {
		op := ops[cond.Index]
		switch op.Precondition {
		case storage.PreconditionMustNotExist:
			return &AlreadyExistsError{Key: op.Key}
		case storage.PreconditionMustExist:
			return &ItemNotFoundError{Key: op.Key}
		}
	}
	return &UnhandledTransactionError{Operations: ops, Err: err}
}

func countKinds(ops []storage.Operation) map[storage.Kind]int {
	counts := make(map[storage.Kind]int, 3)
	for _, op := range ops {
		counts[op.Kind]++
	}
	return counts
}

// Read fetches the copy at key.
func (r *Repository) Read(ctx context.Context, key storage.Key) (storage.Item, error) {
	item, err := r.client.Get(ctx, r.cfg.Table, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, &ItemNotFoundError{Key: key}
		}
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return item, nil
}

// Search returns the root copies in partition pk whose sort key starts with
// skPrefix. No match is an empty result, not an error.
func (r *Repository) Search(ctx context.Context, pk, skPrefix string) ([]storage.Item, error) {
	items, err := r.Query(ctx, pk, skPrefix)
	if err != nil {
		return nil, err
	}
	roots := items[:0]
	for _, item := range items {
		if item.IsRoot() {
			roots = append(roots, item)
		}
	}
	return roots, nil
}

// Query returns every copy in partition pk whose sort key starts with skPrefix.
func (r *Repository) Query(ctx context.Context, pk, skPrefix string) ([]storage.Item, error) {
	items, err := r.client.Query(ctx, r.cfg.Table, pk, skPrefix)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", pk, err)
	}
	if items == nil {
		items = []storage.Item{}
	}
	return items, nil
}
