package storage

//go:generate mockgen -source=store.go -destination=mocks/mocks.go -package=mocks Client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/NHSDigital/connecting-party-manager-sub002/pkg/platform/sentinel"
)

const testTable = "cpm-test"

type InMemorySuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *InMemorySuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestInMemorySuite(t *testing.T) {
	suite.Run(t, new(InMemorySuite))
}

func put(pk, sk string, pre Precondition, attrs Item) Operation {
	return Operation{Kind: KindPut, Table: testTable, Key: Key{PK: pk, SK: sk}, Item: attrs, Precondition: pre}
}

func (s *InMemorySuite) TestTransactWrite() {
	s.Run("applies every operation and stamps keys", func() {
		receipt, err := s.store.TransactWrite(s.ctx, []Operation{
			put("PT#1", "PT#1", PreconditionMustNotExist, Item{"name": "Team", "root": true}),
			put("PT#alias", "PT#alias", PreconditionMustNotExist, Item{"name": "Team"}),
		})
		s.Require().NoError(err)
		s.Equal(2, receipt.Operations)

		item, err := s.store.Get(s.ctx, testTable, Key{PK: "PT#1", SK: "PT#1"})
		s.Require().NoError(err)
		s.Equal("PT#1", item[AttrPK])
		s.Equal("PT#1", item[AttrSK])
		s.True(item.IsRoot())
	})

	s.Run("failed precondition applies nothing", func() {
		_, err := s.store.TransactWrite(s.ctx, []Operation{
			put("PT#2", "PT#2", PreconditionMustNotExist, Item{"name": "Other"}),
			put("PT#1", "PT#1", PreconditionMustNotExist, Item{"name": "Clash"}),
		})
		var cond *ConditionFailedError
		s.Require().ErrorAs(err, &cond)
		s.Equal(1, cond.Index)
		s.True(cond.Exists)

		_, err = s.store.Get(s.ctx, testTable, Key{PK: "PT#2", SK: "PT#2"})
		s.ErrorIs(err, ErrNotFound)
	})

	s.Run("must exist fails on missing item", func() {
		_, err := s.store.TransactWrite(s.ctx, []Operation{{
			Kind: KindUpdate, Table: testTable, Key: Key{PK: "D#9", SK: "D#9"},
			Item: Item{"name": "x"}, Precondition: PreconditionMustExist,
		}})
		var cond *ConditionFailedError
		s.Require().ErrorAs(err, &cond)
		s.False(cond.Exists)
	})

	s.Run("update merges attributes", func() {
		_, err := s.store.TransactWrite(s.ctx, []Operation{{
			Kind: KindUpdate, Table: testTable, Key: Key{PK: "PT#1", SK: "PT#1"},
			Item: Item{"updated_on": "2024-01-01T00:00:00Z"}, Precondition: PreconditionNone,
		}})
		s.Require().NoError(err)

		item, err := s.store.Get(s.ctx, testTable, Key{PK: "PT#1", SK: "PT#1"})
		s.Require().NoError(err)
		s.Equal("Team", item["name"])
		s.Equal("2024-01-01T00:00:00Z", item["updated_on"])
	})

	s.Run("rejects duplicate keys", func() {
		_, err := s.store.TransactWrite(s.ctx, []Operation{
			put("PT#3", "PT#3", PreconditionNone, nil),
			put("PT#3", "PT#3", PreconditionNone, nil),
		})
		s.Require().Error(err)
		s.ErrorContains(err, "duplicate key")
	})

	s.Run("rejects oversized transactions", func() {
		ops := make([]Operation, MaxTransactionItems+1)
		for i := range ops {
			ops[i] = put("PT#big", fmt.Sprintf("P#%03d", i), PreconditionNone, nil)
		}
		_, err := s.store.TransactWrite(s.ctx, ops)
		s.Require().Error(err)
	})

	s.Run("delete removes item", func() {
		_, err := s.store.TransactWrite(s.ctx, []Operation{{
			Kind: KindDelete, Table: testTable, Key: Key{PK: "PT#alias", SK: "PT#alias"}, Precondition: PreconditionMustExist,
		}})
		s.Require().NoError(err)
		_, err = s.store.Get(s.ctx, testTable, Key{PK: "PT#alias", SK: "PT#alias"})
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *InMemorySuite) TestBatchWrite() {
	s.Run("overwrites unconditionally", func() {
		s.Require().NoError(s.store.BatchWrite(s.ctx, []Operation{put("PT#1", "P#1", PreconditionNone, Item{"name": "a"})}))
		s.Require().NoError(s.store.BatchWrite(s.ctx, []Operation{
			put("PT#1", "P#1", PreconditionNone, Item{"name": "b"}),
			put("PT#1", "P#2", PreconditionNone, Item{"name": "c"}),
		}))

		item, err := s.store.Get(s.ctx, testTable, Key{PK: "PT#1", SK: "P#1"})
		s.Require().NoError(err)
		s.Equal("b", item["name"])
		s.Equal(2, s.store.Len(testTable))
	})

	s.Run("rejects updates", func() {
		err := s.store.BatchWrite(s.ctx, []Operation{{
			Kind: KindUpdate, Table: testTable, Key: Key{PK: "PT#1", SK: "P#1"}, Precondition: PreconditionNone,
		}})
		s.Require().Error(err)
	})
}

func (s *InMemorySuite) TestQuery() {
	_, err := s.store.TransactWrite(s.ctx, []Operation{
		put("PT#1", "P#2", PreconditionNone, Item{"n": 2}),
		put("PT#1", "P#1", PreconditionNone, Item{"n": 1}),
		put("PT#1", "DRD#1", PreconditionNone, nil),
		put("PT#2", "P#3", PreconditionNone, nil),
	})
	s.Require().NoError(err)

	s.Run("filters by partition and prefix in sort order", func() {
		items, err := s.store.Query(s.ctx, testTable, "PT#1", "P#")
		s.Require().NoError(err)
		s.Require().Len(items, 2)
		s.Equal("P#1", items[0][AttrSK])
		s.Equal(json.Number("1"), items[0]["n"])
		s.Equal("P#2", items[1][AttrSK])
	})

	s.Run("empty partition returns empty slice", func() {
		items, err := s.store.Query(s.ctx, testTable, "PT#none", "")
		s.Require().NoError(err)
		s.Empty(items)
	})
}

func (s *InMemorySuite) TestReadsAreIsolated() {
	_, err := s.store.TransactWrite(s.ctx, []Operation{
		put("D#1", "D#1", PreconditionNone, Item{"keys": []string{"a"}}),
	})
	s.Require().NoError(err)

	item, err := s.store.Get(s.ctx, testTable, Key{PK: "D#1", SK: "D#1"})
	s.Require().NoError(err)
	item["keys"].([]any)[0] = "mutated"

	again, err := s.store.Get(s.ctx, testTable, Key{PK: "D#1", SK: "D#1"})
	s.Require().NoError(err)
	s.Equal([]any{"a"}, again["keys"])
}

func (s *InMemorySuite) TestConcurrentWrites() {
	var wg sync.WaitGroup
	var mu sync.Mutex
	won := 0
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.TransactWrite(s.ctx, []Operation{
				put("PT#race", "PT#race", PreconditionMustNotExist, nil),
			})
			if err == nil {
				mu.Lock()
				won++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	s.Equal(1, won)
}
