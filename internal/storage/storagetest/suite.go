// Package storagetest holds the behavior every storage.Client must share.
// Backend packages embed ClientSuite and point it at their own client.
package storagetest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/NHSDigital/connecting-party-manager-sub002/internal/storage"
)

// ClientSuite runs against Client. Each test writes under a fresh table name,
// so backends need no cleanup between tests.
type ClientSuite struct {
	suite.Suite
	Client storage.Client
	table  string
	ctx    context.Context
}

func (s *ClientSuite) SetupTest() {
	s.Require().NotNil(s.Client, "embedding suite must set Client")
	s.table = "cpm-" + uuid.NewString()[:8]
	s.ctx = context.Background()
}

func (s *ClientSuite) put(pk, sk string, pre storage.Precondition, attrs storage.Item) storage.Operation {
	return storage.Operation{Kind: storage.KindPut, Table: s.table, Key: storage.Key{PK: pk, SK: sk}, Item: attrs, Precondition: pre}
}

func (s *ClientSuite) get(pk, sk string) (storage.Item, error) {
	return s.Client.Get(s.ctx, s.table, storage.Key{PK: pk, SK: sk})
}

func (s *ClientSuite) TestConformanceTransactions() {
	_, err := s.Client.TransactWrite(s.ctx, []storage.Operation{
		s.put("PT#1", "PT#1", storage.PreconditionMustNotExist, storage.Item{"name": "Team", "root": true}),
		s.put("PT#alias", "PT#alias", storage.PreconditionMustNotExist, storage.Item{"name": "Team", "root": false}),
	})
	s.Require().NoError(err)

	s.Run("stored copy carries its key", func() {
		item, err := s.get("PT#1", "PT#1")
		s.Require().NoError(err)
		s.Equal(storage.Key{PK: "PT#1", SK: "PT#1"}, item.Key())
		s.True(item.IsRoot())
		s.Equal("Team", item["name"])
	})

	s.Run("a failed precondition applies nothing", func() {
		_, err := s.Client.TransactWrite(s.ctx, []storage.Operation{
			s.put("PT#2", "PT#2", storage.PreconditionMustNotExist, storage.Item{"name": "Other"}),
			s.put("PT#alias", "PT#alias", storage.PreconditionMustNotExist, storage.Item{"name": "Clash"}),
		})
		var cond *storage.ConditionFailedError
		s.Require().ErrorAs(err, &cond)
		s.Equal(1, cond.Index)
		s.True(cond.Exists)

		_, err = s.get("PT#2", "PT#2")
		s.ErrorIs(err, storage.ErrNotFound)
		item, err := s.get("PT#alias", "PT#alias")
		s.Require().NoError(err)
		s.Equal("Team", item["name"])
	})

	s.Run("must exist fails on a missing copy", func() {
		_, err := s.Client.TransactWrite(s.ctx, []storage.Operation{{
			Kind: storage.KindUpdate, Table: s.table, Key: storage.Key{PK: "D#9", SK: "D#9"},
			Item: storage.Item{"name": "x"}, Precondition: storage.PreconditionMustExist,
		}})
		var cond *storage.ConditionFailedError
		s.Require().ErrorAs(err, &cond)
		s.Equal(0, cond.Index)
		s.False(cond.Exists)
	})

	s.Run("update overwrites only the given attributes", func() {
		_, err := s.Client.TransactWrite(s.ctx, []storage.Operation{{
			Kind: storage.KindUpdate, Table: s.table, Key: storage.Key{PK: "PT#1", SK: "PT#1"},
			Item: storage.Item{"keys": []string{"alias"}}, Precondition: storage.PreconditionNone,
		}})
		s.Require().NoError(err)

		item, err := s.get("PT#1", "PT#1")
		s.Require().NoError(err)
		s.Equal("Team", item["name"])
		s.Equal([]any{"alias"}, item["keys"])
		s.True(item.IsRoot())
	})

	s.Run("delete removes the copy", func() {
		_, err := s.Client.TransactWrite(s.ctx, []storage.Operation{{
			Kind: storage.KindDelete, Table: s.table, Key: storage.Key{PK: "PT#alias", SK: "PT#alias"},
			Precondition: storage.PreconditionNone,
		}})
		s.Require().NoError(err)
		_, err = s.get("PT#alias", "PT#alias")
		s.ErrorIs(err, storage.ErrNotFound)

		items, err := s.Client.Query(s.ctx, s.table, "PT#alias", "")
		s.Require().NoError(err)
		s.Empty(items)
	})
}

func (s *ClientSuite) TestConformanceValues() {
	_, err := s.Client.TransactWrite(s.ctx, []storage.Operation{
		s.put("DRD#1", "DRD#1", storage.PreconditionNone, storage.Item{
			"big":     json.Number("12345678901234567890"),
			"ratio":   json.Number("0.1"),
			"deleted": nil,
			"data":    map[string]any{"nested": []any{true, "x"}},
		}),
	})
	s.Require().NoError(err)

	item, err := s.get("DRD#1", "DRD#1")
	s.Require().NoError(err)
	s.Equal(json.Number("12345678901234567890"), item["big"])
	s.Equal(json.Number("0.1"), item["ratio"])
	s.Contains(item, "deleted")
	s.Nil(item["deleted"])
	s.Equal(map[string]any{"nested": []any{true, "x"}}, item["data"])
}

func (s *ClientSuite) TestConformanceQuery() {
	_, err := s.Client.TransactWrite(s.ctx, []storage.Operation{
		s.put("PT#1", "P#2", storage.PreconditionNone, nil),
		s.put("PT#1", "P#1", storage.PreconditionNone, nil),
		s.put("PT#1", "DRD#1", storage.PreconditionNone, nil),
		s.put("PT#2", "P#3", storage.PreconditionNone, nil),
	})
	s.Require().NoError(err)

	s.Run("prefix scan in sort key order", func() {
		items, err := s.Client.Query(s.ctx, s.table, "PT#1", "P#")
		s.Require().NoError(err)
		s.Require().Len(items, 2)
		s.Equal("P#1", items[0].Key().SK)
		s.Equal("P#2", items[1].Key().SK)
	})

	s.Run("empty prefix returns the partition", func() {
		items, err := s.Client.Query(s.ctx, s.table, "PT#1", "")
		s.Require().NoError(err)
		s.Len(items, 3)
	})

	s.Run("no match is empty, not an error", func() {
		items, err := s.Client.Query(s.ctx, s.table, "PT#none", "P#")
		s.Require().NoError(err)
		s.Empty(items)
	})
}

func (s *ClientSuite) TestConformanceBatchWrite() {
	ops := make([]storage.Operation, 0, storage.MaxBatchItems)
	for i := range storage.MaxBatchItems {
		ops = append(ops, s.put("PT#bulk", fmt.Sprintf("P#%02d", i), storage.PreconditionNone, storage.Item{"n": i}))
	}
	s.Require().NoError(s.Client.BatchWrite(s.ctx, ops))
	s.Require().NoError(s.Client.BatchWrite(s.ctx, ops[:1]))

	items, err := s.Client.Query(s.ctx, s.table, "PT#bulk", "P#")
	s.Require().NoError(err)
	s.Len(items, storage.MaxBatchItems)
}

func (s *ClientSuite) TestConformanceConcurrentCreate() {
	const writers = 10
	var wg sync.WaitGroup
	var won, lost atomic.Int32
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Client.TransactWrite(s.ctx, []storage.Operation{
				s.put("PT#race", "PT#race", storage.PreconditionMustNotExist, storage.Item{"root": true}),
			})
			var cond *storage.ConditionFailedError
			switch {
			case err == nil:
				won.Add(1)
			case s.ErrorAs(err, &cond):
				lost.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(1), won.Load())
	s.Equal(int32(writers-1), lost.Load())
}
