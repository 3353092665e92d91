// Package storage defines the wire vocabulary spoken between the repository and
// a transactional key-value backend, plus an in-memory backend.
//
// Backends are interface-driven so the repository can run against DynamoDB,
// PostgreSQL, Redis or memory without rewiring callers. Each backend translates
// its native failures into the error vocabulary in errors.go; the repository
// never inspects backend-specific errors.
package storage

import (
	"context"
	"fmt"
)

// Attribute names every stored item carries.
const (
	AttrPK   = "pk"
	AttrSK   = "sk"
	AttrRoot = "root"
)

// Backend limits of a DynamoDB-class store.
const (
	MaxTransactionItems = 100
	MaxBatchItems       = 25
)

// Kind is the type of write an Operation performs.
type Kind string

const (
	KindPut    Kind = "put"
	KindDelete Kind = "delete"
	KindUpdate Kind = "update"
)

// Precondition guards a single-item write; the backend evaluates it atomically
// with the write.
type Precondition string

const (
	PreconditionNone         Precondition = "none"
	PreconditionMustExist    Precondition = "must_exist"
	PreconditionMustNotExist Precondition = "must_not_exist"
)

// Key is the primary key (identity path) of one copy.
type Key struct {
	PK string `json:"pk"`
	SK string `json:"sk"`
}

func (k Key) String() string {
	return k.PK + "|" + k.SK
}

// Item is one stored copy. Values are canonical (see NormalizeValue).
type Item map[string]any

// Key returns the primary key held in the item's pk/sk attributes.
func (i Item) Key() Key {
	pk, _ := i[AttrPK].(string)
	sk, _ := i[AttrSK].(string)
	return Key{PK: pk, SK: sk}
}

// IsRoot reports whether the item is the canonical copy of its entity.
func (i Item) IsRoot() bool {
	root, _ := i[AttrRoot].(bool)
	return root
}

// Operation is a wire-level instruction against one copy.
//
// For KindPut, Item is the full item including pk/sk. For KindUpdate, Item holds
// only the attributes to overwrite; an update of a missing key creates it unless
// guarded by PreconditionMustExist. KindDelete ignores Item.
type Operation struct {
	Kind         Kind         `json:"kind"`
	Table        string       `json:"table"`
	Key          Key          `json:"key"`
	Item         Item         `json:"item,omitempty"`
	Precondition Precondition `json:"precondition"`
}

// Validate checks the operation is well formed before it reaches a backend.
func (o Operation) Validate() error {
	switch o.Kind {
	case KindPut, KindDelete, KindUpdate:
	default:
		return fmt.Errorf("unknown operation kind %q", o.Kind)
	}
	switch o.Precondition {
	case PreconditionNone, PreconditionMustExist, PreconditionMustNotExist:
	case "":
		return fmt.Errorf("operation on %s has no precondition", o.Key)
	default:
		return fmt.Errorf("unknown precondition %q", o.Precondition)
	}
	if o.Table == "" {
		return fmt.Errorf("operation on %s has no table", o.Key)
	}
	if o.Key.PK == "" || o.Key.SK == "" {
		return fmt.Errorf("operation has incomplete key %s", o.Key)
	}
	return nil
}

func (o Operation) String() string {
	return fmt.Sprintf("%s %s %s (%s)", o.Kind, o.Table, o.Key, o.Precondition)
}

// Receipt acknowledges one committed transaction or batch.
type Receipt struct {
	Operations       int     `json:"operations"`
	ConsumedCapacity float64 `json:"consumed_capacity,omitempty"`
}

// Client is a transactional key-value backend.
type Client interface {
	// TransactWrite applies ops atomically: either every precondition holds and
	// every op is applied, or nothing is. ops never repeat a key.
	TransactWrite(ctx context.Context, ops []Operation) (Receipt, error)
	// BatchWrite applies unconditional puts and deletes without atomicity.
	BatchWrite(ctx context.Context, ops []Operation) error
	// Get returns the item at key, or ErrNotFound.
	Get(ctx context.Context, table string, key Key) (Item, error)
	// Query returns every item in partition pk whose sort key starts with
	// skPrefix, ordered by sort key.
	Query(ctx context.Context, table, pk, skPrefix string) ([]Item, error)
}
