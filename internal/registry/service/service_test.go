package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/NHSDigital/connecting-party-manager-sub002/internal/domain"
	"github.com/NHSDigital/connecting-party-manager-sub002/internal/domain/tag"
	"github.com/NHSDigital/connecting-party-manager-sub002/internal/repository"
	"github.com/NHSDigital/connecting-party-manager-sub002/internal/storage"
	dErrors "github.com/NHSDigital/connecting-party-manager-sub002/pkg/domain-errors"
	"github.com/NHSDigital/connecting-party-manager-sub002/pkg/requestcontext"
)

// =============================================================================
// Registry Service Test Suite
// =============================================================================
// Justification: the service is the only place that resolves parents and maps
// repository failures to coded errors, so it is tested against the in-memory
// backend through the real repository rather than against mocks.

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	backend *storage.InMemory
	service *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.backend = storage.NewInMemory()
	repo, err := repository.New(s.backend, repository.DefaultConfig("cpm-test"))
	s.Require().NoError(err)
	s.service, err = New(repo, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	s.Require().NoError(err)
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
}

func (s *ServiceSuite) createTeam(aliases ...string) *domain.ProductTeam {
	keys := make([]domain.Key, 0, len(aliases))
	for _, alias := range aliases {
		keys = append(keys, domain.Key{KeyType: domain.KeyTypeProductTeamIDAlias, KeyValue: alias})
	}
	team, err := s.service.CreateProductTeam(s.ctx, CreateProductTeamRequest{Name: "Spine", OdsCode: "F5H1R", Keys: keys})
	s.Require().NoError(err)
	return team
}

func (s *ServiceSuite) createProduct(team string) *domain.Product {
	product, err := s.service.CreateProduct(s.ctx, team, CreateProductRequest{
		Name: "EPS",
		Keys: []domain.Key{{KeyType: domain.KeyTypePartyKey, KeyValue: "F5H1R-850000"}},
	})
	s.Require().NoError(err)
	return product
}

func (s *ServiceSuite) TestNew() {
	_, err := New(nil)
	s.ErrorContains(err, "repository is required")
}

func (s *ServiceSuite) TestProductTeam() {
	s.Run("create and read by id or alias", func() {
		team := s.createTeam("spine-core")
		s.Empty(team.Events())

		byID, err := s.service.GetProductTeam(s.ctx, team.ID.String())
		s.Require().NoError(err)
		s.Equal("Spine", byID.Name)

		byAlias, err := s.service.GetProductTeam(s.ctx, "spine-core")
		s.Require().NoError(err)
		s.Equal(team.ID, byAlias.ID)
	})

	s.Run("alias already taken is a conflict", func() {
		_, err := s.service.CreateProductTeam(s.ctx, CreateProductTeamRequest{
			Name:    "Other",
			OdsCode: "X26",
			Keys:    []domain.Key{{KeyType: domain.KeyTypeProductTeamIDAlias, KeyValue: "spine-core"}},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict), "got %v", err)
	})

	s.Run("validation errors pass through", func() {
		_, err := s.service.CreateProductTeam(s.ctx, CreateProductTeamRequest{Name: " ", OdsCode: "X26"})
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation), "got %v", err)
	})

	s.Run("missing team", func() {
		_, err := s.service.GetProductTeam(s.ctx, "nobody")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound), "got %v", err)
	})

	s.Run("delete hides every key", func() {
		team := s.createTeam("to-delete")
		s.Require().NoError(s.service.DeleteProductTeam(s.ctx, "to-delete"))

		_, err := s.service.GetProductTeam(s.ctx, team.ID.String())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		_, err = s.service.GetProductTeam(s.ctx, "to-delete")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestProduct() {
	team := s.createTeam("spine-core")
	product := s.createProduct("spine-core")
	s.Equal(team.ID, product.ProductTeamID)

	byKey, err := s.service.GetProduct(s.ctx, team.ID.String(), "F5H1R-850000")
	s.Require().NoError(err)
	s.Equal(product.ID, byKey.ID)

	products, err := s.service.ListProducts(s.ctx, "spine-core")
	s.Require().NoError(err)
	s.Len(products, 1)

	s.Require().NoError(s.service.DeleteProduct(s.ctx, "spine-core", product.ID.String()))
	products, err = s.service.ListProducts(s.ctx, "spine-core")
	s.Require().NoError(err)
	s.Empty(products)

	_, err = s.service.CreateProduct(s.ctx, "missing-team", CreateProductRequest{Name: "EPS"})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestDeviceReferenceData() {
	s.createTeam("spine-core")
	product := s.createProduct("spine-core")

	drd, err := s.service.CreateDeviceReferenceData(s.ctx, "spine-core", product.ID.String(), CreateDeviceReferenceDataRequest{
		Name: "EPS message sets",
		QuestionnaireResponses: []QuestionnaireResponseRequest{
			{QuestionnaireName: "spine_as_additional_interactions", Data: map[string]any{"interaction_id": "urn:nhs:names:services:eps"}},
		},
	})
	s.Require().NoError(err)
	s.Len(drd.QuestionnaireResponses["spine_as_additional_interactions"], 1)

	got, err := s.service.GetDeviceReferenceData(s.ctx, "spine-core", "F5H1R-850000", drd.ID.String())
	s.Require().NoError(err)
	s.Equal("EPS message sets", got.Name)

	all, err := s.service.ListDeviceReferenceData(s.ctx, "spine-core", product.ID.String())
	s.Require().NoError(err)
	s.Len(all, 1)
}

func (s *ServiceSuite) TestDevice() {
	s.createTeam("spine-core")
	product := s.createProduct("spine-core")
	drd, err := s.service.CreateDeviceReferenceData(s.ctx, "spine-core", product.ID.String(), CreateDeviceReferenceDataRequest{Name: "sets"})
	s.Require().NoError(err)

	interaction := tag.New(tag.Pair{Key: "interaction_id", Value: "urn:nhs:names:services:eps"})
	device, err := s.service.CreateDevice(s.ctx, "spine-core", product.ID.String(), CreateDeviceRequest{
		Name:                "EPS MHS",
		Keys:                []domain.Key{{KeyType: domain.KeyTypeAccreditedSystemID, KeyValue: "200000000001"}},
		Tags:                []tag.Tag{interaction},
		DeviceReferenceData: map[string][]string{drd.ID.String(): {"*"}},
	})
	s.Require().NoError(err)
	s.Equal([]string{"*"}, device.DeviceReferenceData[drd.ID.String()])

	s.Run("search by tag", func() {
		found, err := s.service.SearchDevices(s.ctx, "spine-core", product.ID.String(), interaction)
		s.Require().NoError(err)
		s.Require().Len(found, 1)
		s.Equal(device.ID, found[0].ID)
	})

	s.Run("tag fields are fanned out into searchable tags", func() {
		fanned, err := s.service.CreateDevice(s.ctx, "spine-core", product.ID.String(), CreateDeviceRequest{
			Name: "EPS AS",
			TagFields: map[string]any{
				"party_key":      "F5H1R-850000",
				"interaction_id": []string{"urn:nhs:names:services:eps:release", "urn:nhs:names:services:eps:cancel"},
			},
			TagQueries: [][]string{{"party_key", "interaction_id"}},
		})
		s.Require().NoError(err)
		s.Len(fanned.Tags, 2)

		query := tag.New(
			tag.Pair{Key: "party_key", Value: "F5H1R-850000"},
			tag.Pair{Key: "interaction_id", Value: "urn:nhs:names:services:eps:cancel"},
		)
		found, err := s.service.SearchDevices(s.ctx, "spine-core", product.ID.String(), query)
		s.Require().NoError(err)
		s.Require().Len(found, 1)
		s.Equal(fanned.ID, found[0].ID)
	})

	s.Run("device of another product is not found", func() {
		other, err := s.service.CreateProduct(s.ctx, "spine-core", CreateProductRequest{Name: "Other"})
		s.Require().NoError(err)
		_, err = s.service.GetDevice(s.ctx, "spine-core", other.ID.String(), device.ID.String())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("unknown device reference data", func() {
		_, err := s.service.CreateDevice(s.ctx, "spine-core", product.ID.String(), CreateDeviceRequest{
			Name:                "orphan",
			DeviceReferenceData: map[string][]string{"6f1b8a57-3a55-4b9c-9e8f-5d6c1f2d0a11": {"*"}},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound), "got %v", err)
	})

	s.Run("delete removes tag copies", func() {
		s.Require().NoError(s.service.DeleteDevice(s.ctx, "spine-core", product.ID.String(), device.ID.String()))
		_, err := s.service.GetDevice(s.ctx, "spine-core", product.ID.String(), device.ID.String())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		found, err := s.service.SearchDevices(s.ctx, "spine-core", product.ID.String(), interaction)
		s.Require().NoError(err)
		s.Empty(found)
	})
}
