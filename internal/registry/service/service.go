// Package service orchestrates registry use cases: it resolves parents,
// applies domain operations and hands the resulting events to the repository.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/NHSDigital/connecting-party-manager-sub002/internal/domain"
	"github.com/NHSDigital/connecting-party-manager-sub002/internal/domain/tag"
	"github.com/NHSDigital/connecting-party-manager-sub002/internal/repository"
	id "github.com/NHSDigital/connecting-party-manager-sub002/pkg/domain"
	dErrors "github.com/NHSDigital/connecting-party-manager-sub002/pkg/domain-errors"
	"github.com/NHSDigital/connecting-party-manager-sub002/pkg/platform/sentinel"
	"github.com/NHSDigital/connecting-party-manager-sub002/pkg/requestcontext"
)

// Service is the registry use-case layer used by the HTTP handler.
type Service struct {
	repo   *repository.Repository
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(repo *repository.Repository, opts ...Option) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository is required")
	}
	s := &Service{repo: repo, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// -----------------------------------------------------------------------------
// Product teams
// -----------------------------------------------------------------------------

func (s *Service) CreateProductTeam(ctx context.Context, req CreateProductTeamRequest) (*domain.ProductTeam, error) {
	now := requestcontext.Now(ctx)
	team, err := domain.NewProductTeam(id.NewProductTeamID(), req.Name, req.OdsCode, now, req.Keys...)
	if err != nil {
		return nil, err
	}
	if err := s.write(ctx, team, "product team"); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "product team created",
		"request_id", requestcontext.RequestID(ctx),
		"product_team_id", team.ID.String(),
	)
	return team, nil
}

func (s *Service) GetProductTeam(ctx context.Context, teamIDOrAlias string) (*domain.ProductTeam, error) {
	team, err := s.repo.ProductTeams().Read(ctx, teamIDOrAlias)
	if err != nil {
		return nil, translate(err, "product team")
	}
	return team, nil
}

func (s *Service) DeleteProductTeam(ctx context.Context, teamIDOrAlias string) error {
	team, err := s.GetProductTeam(ctx, teamIDOrAlias)
	if err != nil {
		return err
	}
	if err := team.Delete(requestcontext.Now(ctx)); err != nil {
		return err
	}
	return s.write(ctx, team, "product team")
}

// -----------------------------------------------------------------------------
// Products
// -----------------------------------------------------------------------------

func (s *Service) CreateProduct(ctx context.Context, teamIDOrAlias string, req CreateProductRequest) (*domain.Product, error) {
	team, err := s.GetProductTeam(ctx, teamIDOrAlias)
	if err != nil {
		return nil, err
	}
	product, err := domain.NewProduct(id.NewProductID(), team, req.Name, requestcontext.Now(ctx), req.Keys...)
	if err != nil {
		return nil, err
	}
	if err := s.write(ctx, product, "product"); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "product created",
		"request_id", requestcontext.RequestID(ctx),
		"product_team_id", team.ID.String(),
		"product_id", product.ID.String(),
	)
	return product, nil
}

func (s *Service) ListProducts(ctx context.Context, teamIDOrAlias string) ([]*domain.Product, error) {
	team, err := s.GetProductTeam(ctx, teamIDOrAlias)
	if err != nil {
		return nil, err
	}
	products, err := s.repo.Products().Search(ctx, team.ID.String())
	if err != nil {
		return nil, translate(err, "product")
	}
	return products, nil
}

func (s *Service) GetProduct(ctx context.Context, teamIDOrAlias, productIDOrKey string) (*domain.Product, error) {
	team, err := s.GetProductTeam(ctx, teamIDOrAlias)
	if err != nil {
		return nil, err
	}
	product, err := s.repo.Products().Read(ctx, team.ID.String(), productIDOrKey)
	if err != nil {
		return nil, translate(err, "product")
	}
	return product, nil
}

func (s *Service) DeleteProduct(ctx context.Context, teamIDOrAlias, productIDOrKey string) error {
	product, err := s.GetProduct(ctx, teamIDOrAlias, productIDOrKey)
	if err != nil {
		return err
	}
	if err := product.Delete(requestcontext.Now(ctx)); err != nil {
		return err
	}
	return s.write(ctx, product, "product")
}

// -----------------------------------------------------------------------------
// Device reference data
// -----------------------------------------------------------------------------

func (s *Service) CreateDeviceReferenceData(ctx context.Context, teamIDOrAlias, productIDOrKey string, req CreateDeviceReferenceDataRequest) (*domain.DeviceReferenceData, error) {
	product, err := s.GetProduct(ctx, teamIDOrAlias, productIDOrKey)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	drd, err := domain.NewDeviceReferenceData(id.NewDeviceReferenceDataID(), product, req.Name, now)
	if err != nil {
		return nil, err
	}
	for _, qr := range req.QuestionnaireResponses {
		if _, err := drd.AddQuestionnaireResponse(uuid.New(), qr.QuestionnaireName, qr.Data, now); err != nil {
			return nil, err
		}
	}
	if err := s.write(ctx, drd, "device reference data"); err != nil {
		return nil, err
	}
	return drd, nil
}

func (s *Service) ListDeviceReferenceData(ctx context.Context, teamIDOrAlias, productIDOrKey string) ([]*domain.DeviceReferenceData, error) {
	product, err := s.GetProduct(ctx, teamIDOrAlias, productIDOrKey)
	if err != nil {
		return nil, err
	}
	drds, err := s.repo.DeviceReferenceData().Search(ctx, product.ProductTeamID.String(), product.ID.String())
	if err != nil {
		return nil, translate(err, "device reference data")
	}
	return drds, nil
}

func (s *Service) GetDeviceReferenceData(ctx context.Context, teamIDOrAlias, productIDOrKey, drdID string) (*domain.DeviceReferenceData, error) {
	product, err := s.GetProduct(ctx, teamIDOrAlias, productIDOrKey)
	if err != nil {
		return nil, err
	}
	drd, err := s.repo.DeviceReferenceData().Read(ctx, product.ProductTeamID.String(), product.ID.String(), drdID)
	if err != nil {
		return nil, translate(err, "device reference data")
	}
	return drd, nil
}

// -----------------------------------------------------------------------------
// Devices
// -----------------------------------------------------------------------------

func (s *Service) CreateDevice(ctx context.Context, teamIDOrAlias, productIDOrKey string, req CreateDeviceRequest) (*domain.Device, error) {
	product, err := s.GetProduct(ctx, teamIDOrAlias, productIDOrKey)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	device, err := domain.NewDevice(id.NewDeviceID(), product, req.Name, now)
	if err != nil {
		return nil, err
	}
	for _, key := range req.Keys {
		if err := device.AddKey(key, now); err != nil {
			return nil, err
		}
	}
	if len(req.Tags) > 0 {
		if err := device.AddTags(req.Tags, now); err != nil {
			return nil, err
		}
	}
	if len(req.TagFields) > 0 && len(req.TagQueries) > 0 {
		if err := device.AddTagsFromFields(req.TagFields, req.TagQueries, now); err != nil {
			return nil, err
		}
	}
	for drdID, paths := range req.DeviceReferenceData {
		parsed, err := id.ParseDeviceReferenceDataID(drdID)
		if err != nil {
			return nil, err
		}
		if _, err := s.repo.DeviceReferenceData().Read(ctx, product.ProductTeamID.String(), product.ID.String(), parsed.String()); err != nil {
			return nil, translate(err, "device reference data")
		}
		if err := device.AssignDeviceReferenceData(parsed, paths, now); err != nil {
			return nil, err
		}
	}
	if err := s.write(ctx, device, "device"); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "device created",
		"request_id", requestcontext.RequestID(ctx),
		"product_id", product.ID.String(),
		"device_id", device.ID.String(),
	)
	return device, nil
}

// SearchDevices resolves a tag query within a product.
func (s *Service) SearchDevices(ctx context.Context, teamIDOrAlias, productIDOrKey string, t tag.Tag) ([]*domain.Device, error) {
	product, err := s.GetProduct(ctx, teamIDOrAlias, productIDOrKey)
	if err != nil {
		return nil, err
	}
	devices, err := s.repo.Devices().SearchByTag(ctx, product.ProductTeamID.String(), product.ID.String(), t)
	if err != nil {
		return nil, translate(err, "device")
	}
	return devices, nil
}

func (s *Service) GetDevice(ctx context.Context, teamIDOrAlias, productIDOrKey, deviceID string) (*domain.Device, error) {
	product, err := s.GetProduct(ctx, teamIDOrAlias, productIDOrKey)
	if err != nil {
		return nil, err
	}
	device, err := s.repo.Devices().Read(ctx, deviceID)
	if err != nil {
		return nil, translate(err, "device")
	}
	// devices are stored outside their product partition
	if device.ProductID != product.ID {
		return nil, dErrors.New(dErrors.CodeNotFound, "device not found")
	}
	return device, nil
}

func (s *Service) DeleteDevice(ctx context.Context, teamIDOrAlias, productIDOrKey, deviceID string) error {
	device, err := s.GetDevice(ctx, teamIDOrAlias, productIDOrKey, deviceID)
	if err != nil {
		return err
	}
	if err := device.Delete(requestcontext.Now(ctx)); err != nil {
		return err
	}
	return s.write(ctx, device, "device")
}

func (s *Service) write(ctx context.Context, src repository.EventSource, what string) error {
	if _, err := s.repo.Write(ctx, src); err != nil {
		return translate(err, what)
	}
	return nil
}

// translate maps repository failures onto coded domain errors.
func translate(err error, what string) error {
	var exists *repository.AlreadyExistsError
	var domainErr *dErrors.Error
	switch {
	case errors.As(err, &domainErr):
		return err
	case errors.As(err, &exists):
		return dErrors.Wrap(err, dErrors.CodeConflict, fmt.Sprintf("%s already exists (%s)", what, exists.Key))
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, what+" not found")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "registry temporarily unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "request timed out")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist "+what)
	}
}
