package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// InMemory is a thread-safe, transactional Client backed by maps. It applies
// the same precondition and merge semantics as the networked backends and is
// the default backend for tests and local runs.
type InMemory struct {
	mu     sync.RWMutex
	tables map[string]map[Key]Item
}

func NewInMemory() *InMemory {
	return &InMemory{tables: make(map[string]map[Key]Item)}
}

func (s *InMemory) TransactWrite(ctx context.Context, ops []Operation) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	if len(ops) > MaxTransactionItems {
		return Receipt{}, fmt.Errorf("transaction of %d operations exceeds limit of %d", len(ops), MaxTransactionItems)
	}
	prepared, err := Prepare(ops)
	if err != nil {
		return Receipt{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, op := range prepared {
		_, exists := s.table(op.Table)[op.Key]
		switch op.Precondition {
		case PreconditionMustExist:
			if !exists {
				return Receipt{}, &ConditionFailedError{Index: i, Exists: false}
			}
		case PreconditionMustNotExist:
			if exists {
				return Receipt{}, &ConditionFailedError{Index: i, Exists: true}
			}
		}
	}
	for _, op := range prepared {
		s.apply(op)
	}
	return Receipt{Operations: len(prepared), ConsumedCapacity: float64(2 * len(prepared))}, nil
}

func (s *InMemory) BatchWrite(ctx context.Context, ops []Operation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(ops) > MaxBatchItems {
		return fmt.Errorf("batch of %d operations exceeds limit of %d", len(ops), MaxBatchItems)
	}
	prepared, err := Prepare(ops)
	if err != nil {
		return err
	}
	for _, op := range prepared {
		if op.Kind == KindUpdate {
			return fmt.Errorf("batch write does not support %s operations", op.Kind)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, op := range prepared {
		s.apply(op)
	}
	return nil
}

func (s *InMemory) Get(ctx context.Context, table string, key Key) (Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.tables[table][key]
	if !ok {
		return nil, ErrNotFound
	}
	return CloneItem(item), nil
}

func (s *InMemory) Query(ctx context.Context, table, pk, skPrefix string) ([]Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []Key
	for key := range s.tables[table] {
		if key.PK == pk && strings.HasPrefix(key.SK, skPrefix) {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].SK < keys[j].SK })

	items := make([]Item, 0, len(keys))
	for _, key := range keys {
		items = append(items, CloneItem(s.tables[table][key]))
	}
	return items, nil
}

// Len returns the number of copies stored in table.
func (s *InMemory) Len(table string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tables[table])
}

// table must be called with mu held.
func (s *InMemory) table(name string) map[Key]Item {
	t, ok := s.tables[name]
	if !ok {
		t = make(map[Key]Item)
		s.tables[name] = t
	}
	return t
}

// apply must be called with mu held for writing.
func (s *InMemory) apply(op Operation) {
	t := s.table(op.Table)
	switch op.Kind {
	case KindPut:
		t[op.Key] = op.Item
	case KindDelete:
		delete(t, op.Key)
	case KindUpdate:
		t[op.Key] = Merge(t[op.Key], op.Item)
	}
}

// Prepare validates ops and returns canonical copies of their items with the
// key attributes stamped in.
func Prepare(ops []Operation) ([]Operation, error) {
	seen := make(map[string]struct{}, len(ops))
	out := make([]Operation, 0, len(ops))
	for i, op := range ops {
		if err := op.Validate(); err != nil {
			return nil, fmt.Errorf("operation %d: %w", i, err)
		}
		id := op.Table + "/" + op.Key.String()
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("operation %d: duplicate key %s in one request", i, op.Key)
		}
		seen[id] = struct{}{}

		item, err := NormalizeItem(op.Item)
		if err != nil {
			return nil, fmt.Errorf("operation %d: %w", i, err)
		}
		if op.Kind != KindDelete {
			if item == nil {
				item = Item{}
			}
			item[AttrPK] = op.Key.PK
			item[AttrSK] = op.Key.SK
		}
		op.Item = item
		out = append(out, op)
	}
	return out, nil
}
