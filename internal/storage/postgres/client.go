// Package postgres implements storage.Client on a single PostgreSQL table.
//
// Every logical table shares cpm_items, keyed by (tbl, pk, sk), with the item
// body in a jsonb column. A transaction runs its operations in order inside one
// database transaction; a guarded statement that touches no row fails the
// precondition and rolls everything back.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/NHSDigital/connecting-party-manager-sub002/internal/storage"
)

const defaultTxTimeout = 5 * time.Second

// Schema creates the item table. It is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS cpm_items (
	tbl  TEXT  NOT NULL,
	pk   TEXT  NOT NULL,
	sk   TEXT  NOT NULL,
	item JSONB NOT NULL,
	PRIMARY KEY (tbl, pk, sk)
)`

const keyClause = `tbl = $1 AND pk = $2 AND sk = $3`

// statement is the SQL for one (kind, precondition) pair. A guarded statement
// affects no row exactly when its precondition fails; absent records the
// observed state in that case.
type statement struct {
	query   string
	guarded bool
	absent  bool
}

var statements = map[storage.Kind]map[storage.Precondition]statement{
	storage.KindPut: {
		storage.PreconditionNone: {query: `INSERT INTO cpm_items (tbl, pk, sk, item) VALUES ($1, $2, $3, $4::jsonb)
			ON CONFLICT (tbl, pk, sk) DO UPDATE SET item = EXCLUDED.item`},
		storage.PreconditionMustNotExist: {query: `INSERT INTO cpm_items (tbl, pk, sk, item) VALUES ($1, $2, $3, $4::jsonb)
			ON CONFLICT (tbl, pk, sk) DO NOTHING`, guarded: true},
		storage.PreconditionMustExist: {query: `UPDATE cpm_items SET item = $4::jsonb WHERE ` + keyClause, guarded: true, absent: true},
	},
	storage.KindUpdate: {
		storage.PreconditionNone: {query: `INSERT INTO cpm_items (tbl, pk, sk, item) VALUES ($1, $2, $3, $4::jsonb)
			ON CONFLICT (tbl, pk, sk) DO UPDATE SET item = cpm_items.item || EXCLUDED.item`},
		storage.PreconditionMustNotExist: {query: `INSERT INTO cpm_items (tbl, pk, sk, item) VALUES ($1, $2, $3, $4::jsonb)
			ON CONFLICT (tbl, pk, sk) DO NOTHING`, guarded: true},
		storage.PreconditionMustExist: {query: `UPDATE cpm_items SET item = item || $4::jsonb WHERE ` + keyClause, guarded: true, absent: true},
	},
	storage.KindDelete: {
		storage.PreconditionNone:      {query: `DELETE FROM cpm_items WHERE ` + keyClause},
		storage.PreconditionMustExist: {query: `DELETE FROM cpm_items WHERE ` + keyClause, guarded: true, absent: true},
		// Succeeds only when there is nothing to delete.
		storage.PreconditionMustNotExist: {query: `DELETE FROM cpm_items WHERE ` + keyClause + ` AND false`},
	},
}

// SQLSTATE codes that mean "try again later".
var retryableCodes = []string{
	"40001", // serialization_failure
	"40P01", // deadlock_detected
	"55P03", // lock_not_available
	"53300", // too_many_connections
	"57P03", // cannot_connect_now
}

type Client struct {
	db        *sql.DB
	logger    *slog.Logger
	txTimeout time.Duration
}

type Option func(*Client)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTxTimeout bounds a transaction when the caller's context has no deadline.
func WithTxTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.txTimeout = d
	}
}

func New(db *sql.DB, opts ...Option) (*Client, error) {
	if db == nil {
		return nil, errors.New("database handle is required")
	}
	c := &Client{db: db, logger: slog.Default(), txTimeout: defaultTxTimeout}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Migrate creates the item table if it does not exist.
func (c *Client) Migrate(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("create cpm_items: %w", err)
	}
	return nil
}

func (c *Client) TransactWrite(ctx context.Context, ops []storage.Operation) (storage.Receipt, error) {
	if len(ops) > storage.MaxTransactionItems {
		return storage.Receipt{}, fmt.Errorf("transaction of %d operations exceeds limit of %d", len(ops), storage.MaxTransactionItems)
	}
	prepared, err := storage.Prepare(ops)
	if err != nil {
		return storage.Receipt{}, err
	}

	err = c.runInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		for i, op := range prepared {
			if err := c.exec(ctx, tx, i, op); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		var cond *storage.ConditionFailedError
		if errors.As(err, &cond) {
			c.logger.DebugContext(ctx, "transaction rolled back", "operation", prepared[cond.Index].String(), "exists", cond.Exists)
		}
		return storage.Receipt{}, err
	}
	return storage.Receipt{Operations: len(prepared)}, nil
}

func (c *Client) BatchWrite(ctx context.Context, ops []storage.Operation) error {
	if len(ops) > storage.MaxBatchItems {
		return fmt.Errorf("batch of %d operations exceeds limit of %d", len(ops), storage.MaxBatchItems)
	}
	prepared, err := storage.Prepare(ops)
	if err != nil {
		return err
	}
	for _, op := range prepared {
		if op.Kind == storage.KindUpdate || op.Precondition != storage.PreconditionNone {
			return fmt.Errorf("batch write does not support %s operations", op)
		}
	}
	return c.runInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		for i, op := range prepared {
			if err := c.exec(ctx, tx, i, op); err != nil {
				return err
			}
		}
		return nil
	})
}

func (c *Client) Get(ctx context.Context, table string, key storage.Key) (storage.Item, error) {
	var raw []byte
	err := c.db.QueryRowContext(ctx, `SELECT item FROM cpm_items WHERE `+keyClause, table, key.PK, key.SK).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, classify(fmt.Errorf("get %s: %w", key, err))
	}
	return storage.ItemFromJSON(raw)
}

func (c *Client) Query(ctx context.Context, table, pk, skPrefix string) ([]storage.Item, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT item FROM cpm_items WHERE tbl = $1 AND pk = $2 AND starts_with(sk, $3) ORDER BY sk COLLATE "C"`,
		table, pk, skPrefix,
	)
	if err != nil {
		return nil, classify(fmt.Errorf("query %s: %w", pk, err))
	}
	defer rows.Close()

	items := []storage.Item{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		item, err := storage.ItemFromJSON(raw)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return items, nil
}

func (c *Client) exec(ctx context.Context, tx *sql.Tx, index int, op storage.Operation) error {
	stmt, ok := statements[op.Kind][op.Precondition]
	if !ok {
		return fmt.Errorf("operation %d: no statement for %s", index, op)
	}

	args := []any{op.Table, op.Key.PK, op.Key.SK}
	if op.Kind != storage.KindDelete {
		body, err := json.Marshal(op.Item)
		if err != nil {
			return fmt.Errorf("operation %d: marshal item: %w", index, err)
		}
		args = append(args, string(body))
	}

	if op.Kind == storage.KindDelete && op.Precondition == storage.PreconditionMustNotExist {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM cpm_items WHERE `+keyClause+`)`, args...).Scan(&exists); err != nil {
			return classify(fmt.Errorf("operation %d: %w", index, err))
		}
		if exists {
			return &storage.ConditionFailedError{Index: index, Exists: true}
		}
	}

	res, err := tx.ExecContext(ctx, stmt.query, args...)
	if err != nil {
		return classify(fmt.Errorf("operation %d: %w", index, err))
	}
	if !stmt.guarded {
		return nil
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("operation %d: rows affected: %w", index, err)
	}
	if n == 0 {
		return &storage.ConditionFailedError{Index: index, Exists: !stmt.absent}
	}
	return nil
}

// runInTx runs fn in a transaction, bounding it with txTimeout when ctx has
// no deadline. fn receives the bounded context.
func (c *Client) runInTx(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && c.txTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.txTimeout)
		defer cancel()
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(fmt.Errorf("begin: %w", err))
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return classify(fmt.Errorf("commit: %w", err))
	}
	return nil
}

// classify marks retryable PostgreSQL failures as throttled.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && slices.Contains(retryableCodes, pgErr.Code) {
		return storage.Throttled(err)
	}
	return err
}
