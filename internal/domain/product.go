package domain

import (
	"slices"
	"strings"
	"time"

	id "github.com/NHSDigital/connecting-party-manager-sub002/pkg/domain"
	dErrors "github.com/NHSDigital/connecting-party-manager-sub002/pkg/domain-errors"
)

// Product belongs to exactly one product team. Products are read by id or by
// party key within their team.
type Product struct {
	ID            id.ProductID     `json:"id"`
	ProductTeamID id.ProductTeamID `json:"product_team_id"`
	Name          string           `json:"name"`
	OdsCode       string           `json:"ods_code"`
	Status        Status           `json:"status"`
	CreatedOn     time.Time        `json:"created_on"`
	UpdatedOn     *time.Time       `json:"updated_on"`
	DeletedOn     *time.Time       `json:"deleted_on"`
	Keys          []Key            `json:"keys"`
	eventLog
}

// NewProduct creates a product owned by team and records ProductCreated
// followed by one ProductKeyAdded per key.
func NewProduct(productID id.ProductID, team *ProductTeam, name string, now time.Time, keys ...Key) (*Product, error) {
	if team == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "product team is required")
	}
	if !team.IsActive() {
		return nil, inactiveError(KindProductTeam)
	}
	if _, err := id.ParseProductID(productID.String()); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "product name cannot be empty")
	}

	p := &Product{
		ID:            productID,
		ProductTeamID: team.ID,
		Name:          name,
		OdsCode:       team.OdsCode,
		Status:        StatusActive,
		CreatedOn:     now.UTC(),
		Keys:          []Key{},
	}
	p.record(ProductCreated{State: p.snapshot()})
	for _, key := range keys {
		if err := p.AddKey(key, now); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (*Product) EntityKind() Kind { return KindProduct }
func (*Product) entity()          {}

func (p *Product) IsActive() bool {
	return p.Status.IsActive()
}

// AddKey registers a party key for the product.
func (p *Product) AddKey(key Key, now time.Time) error {
	if !p.IsActive() {
		return inactiveError(KindProduct)
	}
	if err := checkKey(key, p.Keys, KeyTypePartyKey); err != nil {
		return err
	}
	p.Keys = append(p.Keys, key)
	p.touch(now)
	p.record(ProductKeyAdded{NewKey: key, State: p.snapshot()})
	return nil
}

func (p *Product) Delete(now time.Time) error {
	if !p.IsActive() {
		return inactiveError(KindProduct)
	}
	p.Status = StatusInactive
	p.touch(now)
	deleted := now.UTC()
	p.DeletedOn = &deleted
	p.record(ProductDeleted{State: p.snapshot()})
	return nil
}

func (p *Product) touch(now time.Time) {
	updated := now.UTC()
	p.UpdatedOn = &updated
}

func (p *Product) snapshot() Product {
	s := *p
	s.Keys = slices.Clone(p.Keys)
	s.eventLog = eventLog{}
	return s
}
