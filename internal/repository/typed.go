package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/NHSDigital/connecting-party-manager-sub002/internal/domain"
	"github.com/NHSDigital/connecting-party-manager-sub002/internal/domain/tag"
	"github.com/NHSDigital/connecting-party-manager-sub002/internal/storage"
)

func decodeItem[T any](item storage.Item) (*T, error) {
	raw, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("marshal item: %w", err)
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode item %s: %w", item.Key(), err)
	}
	return &out, nil
}

func readAs[T any](ctx context.Context, r *Repository, key storage.Key) (*T, error) {
	item, err := r.Read(ctx, key)
	if err != nil {
		return nil, err
	}
	return decodeItem[T](item)
}

func decodeAll[T any](items []storage.Item) ([]*T, error) {
	out := make([]*T, 0, len(items))
	for _, item := range items {
		v, err := decodeItem[T](item)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// ProductTeams reads product teams by id or alias.
type ProductTeams struct{ repo *Repository }

// Products reads products within a team.
type Products struct{ repo *Repository }

// DeviceReferenceDataStore reads device reference data within a product.
type DeviceReferenceDataStore struct{ repo *Repository }

// Devices reads devices by id, alternate key or tag.
type Devices struct{ repo *Repository }

func (r *Repository) ProductTeams() *ProductTeams { return &ProductTeams{repo: r} }
func (r *Repository) Products() *Products         { return &Products{repo: r} }
func (r *Repository) Devices() *Devices           { return &Devices{repo: r} }

func (r *Repository) DeviceReferenceData() *DeviceReferenceDataStore {
	return &DeviceReferenceDataStore{repo: r}
}

func (s *ProductTeams) Read(ctx context.Context, teamIDOrAlias string) (*domain.ProductTeam, error) {
	return readAs[domain.ProductTeam](ctx, s.repo, ProductTeamKey(teamIDOrAlias))
}

func (s *ProductTeams) ReadInactive(ctx context.Context, teamID string) (*domain.ProductTeam, error) {
	return readAs[domain.ProductTeam](ctx, s.repo, InactiveKey(ProductTeamKey(teamID)))
}

func (s *Products) Read(ctx context.Context, teamID, productIDOrKey string) (*domain.Product, error) {
	return readAs[domain.Product](ctx, s.repo, ProductKey(teamID, productIDOrKey))
}

func (s *Products) ReadInactive(ctx context.Context, teamID, productID string) (*domain.Product, error) {
	return readAs[domain.Product](ctx, s.repo, InactiveKey(ProductKey(teamID, productID)))
}

// Search lists the active products of a team.
func (s *Products) Search(ctx context.Context, teamID string) ([]*domain.Product, error) {
	pk, prefix := ProductPartition(teamID)
	items, err := s.repo.Search(ctx, pk, prefix)
	if err != nil {
		return nil, err
	}
	return decodeAll[domain.Product](items)
}

func (s *DeviceReferenceDataStore) Read(ctx context.Context, teamID, productID, drdID string) (*domain.DeviceReferenceData, error) {
	return readAs[domain.DeviceReferenceData](ctx, s.repo, DeviceReferenceDataKey(teamID, productID, drdID))
}

func (s *DeviceReferenceDataStore) ReadInactive(ctx context.Context, teamID, productID, drdID string) (*domain.DeviceReferenceData, error) {
	return readAs[domain.DeviceReferenceData](ctx, s.repo, InactiveKey(DeviceReferenceDataKey(teamID, productID, drdID)))
}

// Search lists the active device reference data of a product.
func (s *DeviceReferenceDataStore) Search(ctx context.Context, teamID, productID string) ([]*domain.DeviceReferenceData, error) {
	pk, prefix := DeviceReferenceDataPartition(teamID, productID)
	items, err := s.repo.Search(ctx, pk, prefix)
	if err != nil {
		return nil, err
	}
	return decodeAll[domain.DeviceReferenceData](items)
}

func (s *Devices) Read(ctx context.Context, deviceID string) (*domain.Device, error) {
	return readAs[domain.Device](ctx, s.repo, DeviceKey(deviceID))
}

// ReadByKey resolves a device through one of its alternate keys.
func (s *Devices) ReadByKey(ctx context.Context, key domain.Key) (*domain.Device, error) {
	return readAs[domain.Device](ctx, s.repo, DeviceAltKey(key))
}

func (s *Devices) ReadInactive(ctx context.Context, deviceID string) (*domain.Device, error) {
	return readAs[domain.Device](ctx, s.repo, InactiveKey(DeviceKey(deviceID)))
}

// SearchByTag lists the active devices of a product that t resolves to. Tag
// partitions hold only tag copies, so every copy found is returned.
func (s *Devices) SearchByTag(ctx context.Context, teamID, productID string, t tag.Tag) ([]*domain.Device, error) {
	pk, prefix := DeviceTagPartition(teamID, productID, t)
	items, err := s.repo.Query(ctx, pk, prefix)
	if err != nil {
		return nil, err
	}
	return decodeAll[domain.Device](items)
}
