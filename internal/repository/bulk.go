package repository

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/NHSDigital/connecting-party-manager-sub002/internal/domain"
	"github.com/NHSDigital/connecting-party-manager-sub002/internal/storage"
)

// BulkResult summarizes a WriteBulk call.
type BulkResult struct {
	Records int
	Batches int
	Retries int
}

// jitterBackOff doubles the delay per attempt up to max, then draws uniformly
// between min and the capped delay.
type jitterBackOff struct {
	base, floor, ceiling time.Duration
	jitter               func() float64
	attempt              int
}

func (b *jitterBackOff) NextBackOff() time.Duration {
	capped := b.ceiling
	if shift := b.attempt; shift < 32 {
		if d := b.base << shift; d > 0 && d < capped {
			capped = d
		}
	}
	b.attempt++

	floor := min(b.floor, capped)
	return floor + time.Duration(b.jitter()*float64(capped-floor))
}

func (b *jitterBackOff) Reset() {
	b.attempt = 0
}

// sleepTimer adapts a sleep function to backoff.Timer.
type sleepTimer struct {
	sleep func(time.Duration)
	c     chan time.Time
}

func (t *sleepTimer) Start(d time.Duration) {
	t.c = make(chan time.Time, 1)
	t.sleep(d)
	t.c <- time.Now()
}

func (t *sleepTimer) Stop() {}

func (t *sleepTimer) C() <-chan time.Time {
	return t.c
}

// Records converts entities into unconditional put operations for every
// current copy. A deleted entity yields only its inactive copy.
func Records(table string, entities ...domain.Entity) ([]storage.Operation, error) {
	var ops []storage.Operation
	for _, e := range entities {
		c, err := entityCopies(e)
		if err != nil {
			return nil, err
		}
		if c.body["status"] == string(domain.StatusInactive) {
			inactive := InactiveKey(c.root)
			ops = append(ops, put(table, inactive, c.item(inactive, true)))
			continue
		}
		ops = append(ops, put(table, c.root, c.item(c.root, true)))
		for _, key := range append(c.keys, c.tags...) {
			ops = append(ops, put(table, key, c.item(key, false)))
		}
	}
	return ops, nil
}

func put(table string, key storage.Key, item storage.Item) storage.Operation {
	return storage.Operation{
		Kind:         storage.KindPut,
		Table:        table,
		Key:          key,
		Item:         item,
		Precondition: storage.PreconditionNone,
	}
}

// WriteBulk writes every copy of entities through the non-transactional batch
// path. Throttled batches are retried with exponential backoff and jitter;
// other errors stop the load. Batches already written stay written.
func (r *Repository) WriteBulk(ctx context.Context, entities ...domain.Entity) (BulkResult, error) {
	start := time.Now()
	defer r.metrics.ObserveWrite("bulk", start)

	ctx, span := r.tracer.Start(ctx, "Repository.WriteBulk",
		trace.WithAttributes(
			attribute.String("cpm.table", r.cfg.Table),
			attribute.Int("cpm.entities", len(entities)),
		),
	)
	defer span.End()

	records, err := Records(r.cfg.Table, entities...)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return BulkResult{}, err
	}
	batches := Chunk(records, r.cfg.BulkBatchSize)
	result := BulkResult{Records: len(records), Batches: len(batches)}

	var retries atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.BulkConcurrency)
	for i, batch := range batches {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			n, err := r.writeBatch(gctx, batch)
			retries.Add(int64(n))
			if err != nil {
				return fmt.Errorf("bulk batch %d: %w", i, err)
			}
			return nil
		})
	}
	err = g.Wait()
	result.Retries = int(retries.Load())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "bulk write failed")
		r.logger.ErrorContext(ctx, "bulk write failed",
			"records", result.Records,
			"batches", result.Batches,
			"retries", result.Retries,
			"error", err,
		)
		return result, err
	}
	r.logger.InfoContext(ctx, "bulk write complete",
		"records", result.Records,
		"batches", result.Batches,
		"retries", result.Retries,
	)
	return result, nil
}

// writeBatch submits one batch, retrying throttled attempts. It returns the
// number of retries made.
func (r *Repository) writeBatch(ctx context.Context, batch []storage.Operation) (int, error) {
	var attempts []error
	retries := 0
	operation := func() error {
		err := r.client.BatchWrite(ctx, batch)
		if err == nil {
			return nil
		}
		if !storage.IsThrottled(err) {
			return backoff.Permanent(err)
		}
		attempts = append(attempts, err)
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(r.newBackOff(), uint64(r.cfg.BulkMaxAttempts-1)),
		ctx,
	)
	notify := func(err error, delay time.Duration) {
		retries++
		r.metrics.IncrementBulkRetry()
		r.logger.WarnContext(ctx, "bulk batch throttled, retrying",
			"attempt", len(attempts),
			"delay", delay,
			"error", err,
		)
	}

	err := backoff.RetryNotifyWithTimer(operation, policy, notify, r.newTimer())
	switch {
	case err == nil:
		r.metrics.ObserveBulkBatch("written")
		r.metrics.AddOperations(string(storage.KindPut), len(batch))
		return retries, nil
	case storage.IsThrottled(err) && len(attempts) >= r.cfg.BulkMaxAttempts:
		r.metrics.ObserveBulkBatch("exhausted")
		return retries, &BulkRetryExhaustedError{Attempts: attempts}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		r.metrics.ObserveBulkBatch("cancelled")
		return retries, err
	default:
		r.metrics.ObserveBulkBatch("failed")
		return retries, err
	}
}

func (r *Repository) newBackOff() backoff.BackOff {
	return &jitterBackOff{
		base:    r.cfg.BulkBaseDelay,
		floor:   r.cfg.BulkMinDelay,
		ceiling: r.cfg.BulkMaxDelay,
		jitter:  r.jitter,
	}
}

func (r *Repository) newTimer() backoff.Timer {
	if r.sleep == nil {
		return nil
	}
	return &sleepTimer{sleep: r.sleep}
}
