package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NHSDigital/connecting-party-manager-sub002/internal/storage"
)

func TestStatements(t *testing.T) {
	kinds := []storage.Kind{storage.KindPut, storage.KindUpdate, storage.KindDelete}
	pres := []storage.Precondition{storage.PreconditionNone, storage.PreconditionMustExist, storage.PreconditionMustNotExist}
	for _, kind := range kinds {
		for _, pre := range pres {
			stmt, ok := statements[kind][pre]
			assert.True(t, ok, "%s/%s has no statement", kind, pre)
			assert.NotEmpty(t, stmt.query)
			if pre == storage.PreconditionMustExist {
				assert.True(t, stmt.guarded, "%s/%s must be guarded", kind, pre)
				assert.True(t, stmt.absent)
			}
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		throttled bool
	}{
		{"serialization failure", &pgconn.PgError{Code: "40001"}, true},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"plain error", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.throttled, storage.IsThrottled(classify(tt.err)))
		})
	}
}

func TestTransactionTimeoutReachesStatements(t *testing.T) {
	db := sql.OpenDB(stallConnector{})
	t.Cleanup(func() { _ = db.Close() })
	client, err := New(db, WithTxTimeout(20*time.Millisecond))
	require.NoError(t, err)

	_, err = client.TransactWrite(context.Background(), []storage.Operation{{
		Kind:         storage.KindPut,
		Table:        "cpm",
		Key:          storage.Key{PK: "PT#1", SK: "PT#1"},
		Item:         storage.Item{"pk": "PT#1", "sk": "PT#1"},
		Precondition: storage.PreconditionNone,
	}})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// stallConnector is a database/sql driver whose statements wait for their
// context, or give up after a second.
type stallConnector struct{}

func (c stallConnector) Connect(context.Context) (driver.Conn, error) { return stallConn{}, nil }
func (c stallConnector) Driver() driver.Driver                        { return stallDriver{} }

type stallDriver struct{}

func (stallDriver) Open(string) (driver.Conn, error) { return stallConn{}, nil }

type stallConn struct{}

func (stallConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("prepare not supported") }
func (stallConn) Close() error                       { return nil }
func (stallConn) Begin() (driver.Tx, error)          { return stallTx{}, nil }

func (stallConn) ExecContext(ctx context.Context, _ string, _ []driver.NamedValue) (driver.Result, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(time.Second):
		return driver.RowsAffected(1), nil
	}
}

type stallTx struct{}

func (stallTx) Commit() error   { return nil }
func (stallTx) Rollback() error { return nil }
