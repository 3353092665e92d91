// Package load is the persistence stage of the ETL: it replays event streams
// into the repository and bulk loads entity snapshots.
package load

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/NHSDigital/connecting-party-manager-sub002/internal/domain"
	"github.com/NHSDigital/connecting-party-manager-sub002/internal/repository"
	"github.com/NHSDigital/connecting-party-manager-sub002/internal/storage"
)

const defaultBulkGroupSize = 500

// Writer is the part of the repository the loader drives.
type Writer interface {
	Write(ctx context.Context, src repository.EventSource) ([]storage.Receipt, error)
	WriteBulk(ctx context.Context, entities ...domain.Entity) (repository.BulkResult, error)
}

// Envelope is the serialized form of one event, as found on the event topic.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// NewEnvelope encodes e for transport.
func NewEnvelope(e domain.Event) (Envelope, error) {
	name, data, err := domain.EncodeEvent(e)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Event: name, Data: data}, nil
}

// Decode rebuilds the event.
func (e Envelope) Decode() (domain.Event, error) {
	return domain.DecodeEvent(e.Event, e.Data)
}

// ReplayResult counts what a replay did.
type ReplayResult struct {
	Written int `json:"written"`
	// Skipped counts events whose creations were already stored.
	Skipped int `json:"skipped"`
}

// Loader writes ETL output through the repository.
type Loader struct {
	writer        Writer
	logger        *slog.Logger
	bulkGroupSize int
}

type Option func(*Loader)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// WithBulkGroupSize sets how many entities are handed to one WriteBulk call.
func WithBulkGroupSize(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.bulkGroupSize = n
		}
	}
}

func New(writer Writer, opts ...Option) (*Loader, error) {
	if writer == nil {
		return nil, fmt.Errorf("writer is required")
	}
	l := &Loader{
		writer:        writer,
		logger:        slog.Default(),
		bulkGroupSize: defaultBulkGroupSize,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Replay writes events one at a time in order. An event whose creation is
// already stored is counted as skipped, so a replay interrupted part way can be
// run again from the start.
func (l *Loader) Replay(ctx context.Context, events []domain.Event) (ReplayResult, error) {
	var result ReplayResult
	for i, e := range events {
		_, err := l.writer.Write(ctx, &eventBatch{events: []domain.Event{e}})
		switch repository.OutcomeOf(err) {
		case repository.Written:
			result.Written++
		case repository.AlreadyExists:
			result.Skipped++
			l.logger.DebugContext(ctx, "event already applied",
				"event", e.EventName(),
				"index", i,
				"error", err.Error(),
			)
		default:
			return result, fmt.Errorf("replay event %d (%s): %w", i, e.EventName(), err)
		}
	}
	return result, nil
}

// eventBatch adapts decoded events to repository.EventSource.
type eventBatch struct {
	events []domain.Event
}

func (b *eventBatch) Events() []domain.Event { return b.events }
func (b *eventBatch) ClearEvents()           { b.events = nil }
