package repository

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/NHSDigital/connecting-party-manager-sub002/internal/domain"
	"github.com/NHSDigital/connecting-party-manager-sub002/internal/domain/tag"
	"github.com/NHSDigital/connecting-party-manager-sub002/internal/storage"
	id "github.com/NHSDigital/connecting-party-manager-sub002/pkg/domain"
	"github.com/NHSDigital/connecting-party-manager-sub002/pkg/platform/sentinel"
)

// =============================================================================
// Repository Suite (in-memory backend)
// =============================================================================
// Justification: the in-memory backend applies the same precondition and
// merge semantics as the networked backends, so these tests pin the engine's
// observable behavior end to end without a container.

type RepositorySuite struct {
	suite.Suite
	ctx   context.Context
	store *storage.InMemory
	repo  *Repository
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositorySuite))
}

func (s *RepositorySuite) SetupTest() {
	s.ctx = context.Background()
	s.store = storage.NewInMemory()
	repo, err := New(s.store, DefaultConfig(table), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	s.Require().NoError(err)
	s.repo = repo
}

func (s *RepositorySuite) newTeam(keys ...domain.Key) *domain.ProductTeam {
	team, err := domain.NewProductTeam(id.NewProductTeamID(), "Team", "ABC", fixedNow, keys...)
	s.Require().NoError(err)
	return team
}

func (s *RepositorySuite) newDevice(team *domain.ProductTeam) (*domain.Product, *domain.Device) {
	product, err := domain.NewProduct(id.NewProductID(), team, "Product", fixedNow)
	s.Require().NoError(err)
	device, err := domain.NewDevice(id.NewDeviceID(), product, "Device", fixedNow)
	s.Require().NoError(err)
	return product, device
}

func (s *RepositorySuite) TestNew() {
	s.Run("nil client returns error", func() {
		_, err := New(nil, DefaultConfig(table))
		s.ErrorContains(err, "storage client is required")
	})

	s.Run("missing table returns error", func() {
		_, err := New(s.store, Config{})
		s.ErrorContains(err, "table is required")
	})

	s.Run("chunk size above backend limit returns error", func() {
		cfg := DefaultConfig(table)
		cfg.MaxChunkSize = 101
		_, err := New(s.store, cfg)
		s.Error(err)
	})

	s.Run("zero values take defaults", func() {
		repo, err := New(s.store, Config{Table: table})
		s.Require().NoError(err)
		s.Equal(100, repo.Config().MaxChunkSize)
		s.Equal(25, repo.Config().BulkBatchSize)
		s.Equal(1, repo.Config().BulkConcurrency)
	})
}

func (s *RepositorySuite) TestWriteAndRead() {
	s.Run("round trips through the root key", func() {
		team := s.newTeam(domain.Key{KeyType: domain.KeyTypeProductTeamIDAlias, KeyValue: "spine"})
		receipts, err := s.repo.Write(s.ctx, team)
		s.Require().NoError(err)
		s.NotEmpty(receipts)
		s.Empty(team.Events(), "events are consumed on success")

		got, err := s.repo.ProductTeams().Read(s.ctx, team.ID.String())
		s.Require().NoError(err)
		s.Equal(team.ID, got.ID)
		s.Equal(team.Name, got.Name)
		s.Equal(team.Keys, got.Keys)
		s.True(team.CreatedOn.Equal(got.CreatedOn))
		s.Equal(domain.StatusActive, got.Status)
	})

	s.Run("reads through an alias copy", func() {
		team := s.newTeam(domain.Key{KeyType: domain.KeyTypeProductTeamIDAlias, KeyValue: "alias-read"})
		_, err := s.repo.Write(s.ctx, team)
		s.Require().NoError(err)

		got, err := s.repo.ProductTeams().Read(s.ctx, "alias-read")
		s.Require().NoError(err)
		s.Equal(team.ID, got.ID)
	})

	s.Run("missing item is ItemNotFound", func() {
		_, err := s.repo.ProductTeams().Read(s.ctx, id.NewProductTeamID().String())
		var missing *ItemNotFoundError
		s.Require().ErrorAs(err, &missing)
		s.ErrorIs(err, sentinel.ErrNotFound)
		s.Equal(NotFound, OutcomeOf(err))
	})
}

func (s *RepositorySuite) TestDuplicateCreation() {
	team := s.newTeam()
	events := team.Events()

	_, err := s.repo.Write(s.ctx, team)
	s.Require().NoError(err)

	replay := &replaySource{events: events}
	_, err = s.repo.Write(s.ctx, replay)
	var exists *AlreadyExistsError
	s.Require().ErrorAs(err, &exists)
	s.Equal(ProductTeamKey(team.ID.String()), exists.Key)
	s.Equal(AlreadyExists, OutcomeOf(err))
	s.ErrorIs(err, sentinel.ErrConflict)
	s.NotEmpty(replay.Events(), "events stay pending after a failure")
	s.Equal(1, s.store.Len(table))
}

func (s *RepositorySuite) TestConcurrentCreationOneWins() {
	team := s.newTeam()
	events := team.Events()

	results := make(chan error, 2)
	for range 2 {
		go func() {
			_, err := s.repo.Write(s.ctx, &replaySource{events: events})
			results <- err
		}()
	}
	outcomes := map[Outcome]int{}
	for range 2 {
		outcomes[OutcomeOf(<-results)]++
	}
	s.Equal(map[Outcome]int{Written: 1, AlreadyExists: 1}, outcomes)
}

func (s *RepositorySuite) TestDelete() {
	team := s.newTeam()
	product, device := s.newDevice(team)
	_, err := s.repo.Write(s.ctx, product)
	s.Require().NoError(err)

	asid := domain.Key{KeyType: domain.KeyTypeAccreditedSystemID, KeyValue: "200000000001"}
	t1 := tag.New(tag.Pair{Key: "interaction_id", Value: "urn:nhs:a"})
	s.Require().NoError(device.AddKey(asid, fixedNow))
	s.Require().NoError(device.AddTags([]tag.Tag{t1}, fixedNow))
	_, err = s.repo.Write(s.ctx, device)
	s.Require().NoError(err)

	found, err := s.repo.Devices().SearchByTag(s.ctx, team.ID.String(), product.ID.String(), t1)
	s.Require().NoError(err)
	s.Require().Len(found, 1)
	s.Equal(device.ID, found[0].ID)

	s.Require().NoError(device.Delete(fixedNow))
	_, err = s.repo.Write(s.ctx, device)
	s.Require().NoError(err)

	s.Run("every active path is gone", func() {
		_, err := s.repo.Devices().Read(s.ctx, device.ID.String())
		s.Equal(NotFound, OutcomeOf(err))
		_, err = s.repo.Devices().ReadByKey(s.ctx, asid)
		s.Equal(NotFound, OutcomeOf(err))

		tagged, err := s.repo.Devices().SearchByTag(s.ctx, team.ID.String(), product.ID.String(), t1)
		s.Require().NoError(err)
		s.Empty(tagged)
	})

	s.Run("inactive copy holds the terminal state", func() {
		got, err := s.repo.Devices().ReadInactive(s.ctx, device.ID.String())
		s.Require().NoError(err)
		s.Equal(domain.StatusInactive, got.Status)
		s.Require().NotNil(got.DeletedOn)
		s.Equal([]domain.Key{asid}, got.Keys)
	})
}

func (s *RepositorySuite) TestSearch() {
	team := s.newTeam()
	_, err := s.repo.Write(s.ctx, team)
	s.Require().NoError(err)

	s.Run("no match is an empty result", func() {
		products, err := s.repo.Products().Search(s.ctx, team.ID.String())
		s.Require().NoError(err)
		s.NotNil(products)
		s.Empty(products)
	})

	s.Run("returns root copies only", func() {
		product, err := domain.NewProduct(id.NewProductID(), team, "Product", fixedNow,
			domain.Key{KeyType: domain.KeyTypePartyKey, KeyValue: "ABC-000001"},
			domain.Key{KeyType: domain.KeyTypePartyKey, KeyValue: "ABC-000002"},
		)
		s.Require().NoError(err)
		_, err = s.repo.Write(s.ctx, product)
		s.Require().NoError(err)

		products, err := s.repo.Products().Search(s.ctx, team.ID.String())
		s.Require().NoError(err)
		s.Require().Len(products, 1)
		s.Equal(product.ID, products[0].ID)
		s.Len(products[0].Keys, 2)

		byKey, err := s.repo.Products().Read(s.ctx, team.ID.String(), "ABC-000002")
		s.Require().NoError(err)
		s.Equal(product.ID, byKey.ID)
	})
}

func (s *RepositorySuite) TestPartialFailureKeepsCommittedChunks() {
	team := s.newTeam(domain.Key{KeyType: domain.KeyTypeProductTeamIDAlias, KeyValue: "taken"})
	_, err := s.repo.Write(s.ctx, team)
	s.Require().NoError(err)

	// Second team's root commits in chunk 0; its alias clashes in chunk 0 too,
	// so nothing from that chunk persists.
	other := s.newTeam(domain.Key{KeyType: domain.KeyTypeProductTeamIDAlias, KeyValue: "taken"})
	receipts, err := s.repo.Write(s.ctx, other)
	s.Equal(AlreadyExists, OutcomeOf(err))
	s.Empty(receipts)
	_, readErr := s.repo.ProductTeams().Read(s.ctx, other.ID.String())
	s.Equal(NotFound, OutcomeOf(readErr))

	// A team whose clash sits in the second chunk keeps the first.
	third := s.newTeam(
		domain.Key{KeyType: domain.KeyTypeProductTeamIDAlias, KeyValue: "fresh"},
		domain.Key{KeyType: domain.KeyTypeProductTeamIDAlias, KeyValue: "taken"},
	)
	receipts, err = s.repo.Write(s.ctx, third)
	s.Equal(AlreadyExists, OutcomeOf(err))
	s.Len(receipts, 1)
	s.NotEmpty(third.Events())

	got, err := s.repo.ProductTeams().Read(s.ctx, "fresh")
	s.Require().NoError(err)
	s.Equal(third.ID, got.ID)
}

func (s *RepositorySuite) TestDeviceReferenceData() {
	team := s.newTeam()
	product, err := domain.NewProduct(id.NewProductID(), team, "Product", fixedNow)
	s.Require().NoError(err)
	drd, err := domain.NewDeviceReferenceData(id.NewDeviceReferenceDataID(), product, "Config", fixedNow)
	s.Require().NoError(err)
	_, err = s.repo.Write(s.ctx, drd)
	s.Require().NoError(err)

	listed, err := s.repo.DeviceReferenceData().Search(s.ctx, team.ID.String(), product.ID.String())
	s.Require().NoError(err)
	s.Require().Len(listed, 1)
	s.Equal(drd.ID, listed[0].ID)
}

func (s *RepositorySuite) TestWriteCommitsOneChunkPerHundredEvents() {
	for n, want := range map[int]int{100: 1, 101: 2, 201: 3} {
		s.Run(fmt.Sprintf("%d creations", n), func() {
			src := &replaySource{}
			for range n {
				src.events = append(src.events, s.newTeam().Events()...)
			}

			receipts, err := s.repo.Write(s.ctx, src)
			s.Require().NoError(err)
			s.Len(receipts, want)
			total := 0
			for _, r := range receipts {
				s.LessOrEqual(r.Operations, storage.MaxTransactionItems)
				total += r.Operations
			}
			s.Equal(n, total)
			s.Empty(src.Events())
		})
	}
}

func (s *RepositorySuite) TestSearchByFannedOutTags() {
	team := s.newTeam()
	product, device := s.newDevice(team)
	fields := map[string]any{
		"party_key":      "ABC-123456",
		"interaction_id": []string{"urn:nhs:a", "URN:NHS:A", "urn:nhs:b", "urn:nhs:c"},
		"port":           443,
	}
	queries := [][]string{{"party_key", "interaction_id"}, {"port"}, {"interaction_id", "port"}}
	s.Require().NoError(device.AddTagsFromFields(fields, queries, fixedNow))
	s.Require().Len(device.Tags, 7)

	_, err := s.repo.Write(s.ctx, device)
	s.Require().NoError(err)

	for _, t := range tag.Fanout(fields, queries) {
		found, err := s.repo.Devices().SearchByTag(s.ctx, team.ID.String(), product.ID.String(), t)
		s.Require().NoError(err, t.String())
		s.Require().Len(found, 1, t.String())
		s.Equal(device.ID, found[0].ID)
		s.Len(found[0].Tags, 7)
	}
}

// replaySource re-submits a fixed event list, as an ETL replay would.
type replaySource struct {
	events []domain.Event
}

func (r *replaySource) Events() []domain.Event { return r.events }
func (r *replaySource) ClearEvents()           { r.events = nil }
