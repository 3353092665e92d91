package load

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/NHSDigital/connecting-party-manager-sub002/internal/domain"
	"github.com/NHSDigital/connecting-party-manager-sub002/internal/repository"
)

const maxLineBytes = 4 << 20

// Record is one line of a bulk load file: an entity snapshot tagged with its
// kind.
type Record struct {
	Kind  domain.Kind     `json:"kind"`
	State json.RawMessage `json:"state"`
}

// NewRecord snapshots an entity for a bulk load file.
func NewRecord(e domain.Entity) (Record, error) {
	state, err := json.Marshal(e)
	if err != nil {
		return Record{}, fmt.Errorf("encode %s: %w", e.EntityKind(), err)
	}
	return Record{Kind: e.EntityKind(), State: state}, nil
}

// Entity decodes the snapshot into its aggregate.
func (r Record) Entity() (domain.Entity, error) {
	switch r.Kind {
	case domain.KindProductTeam:
		return decodeEntity[domain.ProductTeam](r.State)
	case domain.KindProduct:
		return decodeEntity[domain.Product](r.State)
	case domain.KindDeviceReferenceData:
		return decodeEntity[domain.DeviceReferenceData](r.State)
	case domain.KindDevice:
		return decodeEntity[domain.Device](r.State)
	default:
		return nil, fmt.Errorf("unknown entity kind %q", r.Kind)
	}
}

func decodeEntity[T any, P interface {
	*T
	domain.Entity
}](raw json.RawMessage) (domain.Entity, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return P(&v), nil
}

// Bulk streams newline-delimited records from r into WriteBulk, one group at a
// time. Blank lines are ignored. The totals cover every group written before
// an error.
func (l *Loader) Bulk(ctx context.Context, r io.Reader) (repository.BulkResult, error) {
	var total repository.BulkResult
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	group := make([]domain.Entity, 0, l.bulkGroupSize)
	flush := func() error {
		if len(group) == 0 {
			return nil
		}
		res, err := l.writer.WriteBulk(ctx, group...)
		total.Records += res.Records
		total.Batches += res.Batches
		total.Retries += res.Retries
		if err != nil {
			return err
		}
		l.logger.InfoContext(ctx, "bulk group written",
			"entities", len(group),
			"records", res.Records,
			"retries", res.Retries,
		)
		group = group[:0]
		return nil
	}

	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return total, fmt.Errorf("line %d: %w", line, err)
		}
		entity, err := rec.Entity()
		if err != nil {
			return total, fmt.Errorf("line %d: %w", line, err)
		}
		group = append(group, entity)
		if len(group) == l.bulkGroupSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		return total, fmt.Errorf("read records: %w", err)
	}
	if err := flush(); err != nil {
		return total, err
	}
	return total, nil
}
