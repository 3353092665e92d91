package domain

import (
	"slices"
	"strings"
	"time"

	id "github.com/NHSDigital/connecting-party-manager-sub002/pkg/domain"
	dErrors "github.com/NHSDigital/connecting-party-manager-sub002/pkg/domain-errors"
)

// ProductTeam is the aggregate root for a team that owns products.
//
// Invariants:
//   - Name and OdsCode are non-empty
//   - Keys are unique and of type product_team_id_alias
//   - Status transitions: active → inactive only
type ProductTeam struct {
	ID        id.ProductTeamID `json:"id"`
	Name      string           `json:"name"`
	OdsCode   string           `json:"ods_code"`
	Status    Status           `json:"status"`
	CreatedOn time.Time        `json:"created_on"`
	UpdatedOn *time.Time       `json:"updated_on"`
	DeletedOn *time.Time       `json:"deleted_on"`
	Keys      []Key            `json:"keys"`
	eventLog
}

// NewProductTeam creates a team and records ProductTeamCreated followed by one
// ProductTeamKeyAdded per key.
func NewProductTeam(teamID id.ProductTeamID, name, odsCode string, now time.Time, keys ...Key) (*ProductTeam, error) {
	name = strings.TrimSpace(name)
	odsCode = strings.TrimSpace(odsCode)
	if teamID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "product team id cannot be nil")
	}
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "product team name cannot be empty")
	}
	if odsCode == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "ods_code cannot be empty")
	}

	t := &ProductTeam{
		ID:        teamID,
		Name:      name,
		OdsCode:   odsCode,
		Status:    StatusActive,
		CreatedOn: now.UTC(),
		Keys:      []Key{},
	}
	t.record(ProductTeamCreated{State: t.snapshot()})
	for _, key := range keys {
		if err := t.AddKey(key, now); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (*ProductTeam) EntityKind() Kind { return KindProductTeam }
func (*ProductTeam) entity()          {}

func (t *ProductTeam) IsActive() bool {
	return t.Status.IsActive()
}

// AddKey registers an alias under which the team can be read.
func (t *ProductTeam) AddKey(key Key, now time.Time) error {
	if !t.IsActive() {
		return inactiveError(KindProductTeam)
	}
	if err := checkKey(key, t.Keys, KeyTypeProductTeamIDAlias); err != nil {
		return err
	}
	t.Keys = append(t.Keys, key)
	t.touch(now)
	t.record(ProductTeamKeyAdded{NewKey: key, State: t.snapshot()})
	return nil
}

// Delete transitions the team to inactive.
func (t *ProductTeam) Delete(now time.Time) error {
	if !t.IsActive() {
		return inactiveError(KindProductTeam)
	}
	t.Status = StatusInactive
	t.touch(now)
	deleted := now.UTC()
	t.DeletedOn = &deleted
	t.record(ProductTeamDeleted{State: t.snapshot()})
	return nil
}

func (t *ProductTeam) touch(now time.Time) {
	updated := now.UTC()
	t.UpdatedOn = &updated
}

func (t *ProductTeam) snapshot() ProductTeam {
	s := *t
	s.Keys = slices.Clone(t.Keys)
	s.eventLog = eventLog{}
	return s
}
