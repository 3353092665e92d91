// Package domain holds the registry aggregates (product teams, products,
// devices and device reference data) and the closed set of events they emit.
//
// Aggregates are never persisted directly. Domain methods append events to an
// aggregate-owned log; the repository consumes the log exactly once.
package domain

import (
	"regexp"
	"slices"
	"strings"

	dErrors "github.com/NHSDigital/connecting-party-manager-sub002/pkg/domain-errors"
)

// Kind identifies an aggregate type.
type Kind string

const (
	KindProductTeam         Kind = "product_team"
	KindProduct             Kind = "product"
	KindDevice              Kind = "device"
	KindDeviceReferenceData Kind = "device_reference_data"
)

// Status is the lifecycle state of an aggregate. Transitions are active →
// inactive only; inactive aggregates reject further mutation.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

func (s Status) IsActive() bool {
	return s == StatusActive
}

// KeyType names the kind of alternate natural key.
type KeyType string

const (
	KeyTypeProductTeamIDAlias KeyType = "product_team_id_alias"
	KeyTypePartyKey           KeyType = "party_key"
	KeyTypeProductID          KeyType = "product_id"
	KeyTypeAccreditedSystemID KeyType = "accredited_system_id"
)

var partyKeyPattern = regexp.MustCompile(`^[a-zA-Z0-9]+-[0-9]{6}$`)

// Key is an alternate natural key under which an aggregate can be read.
type Key struct {
	KeyType  KeyType `json:"key_type"`
	KeyValue string  `json:"key_value"`
}

func (k Key) String() string {
	return string(k.KeyType) + ":" + k.KeyValue
}

// Validate checks the key value against its type's format.
func (k Key) Validate() error {
	if strings.TrimSpace(k.KeyValue) == "" {
		return dErrors.New(dErrors.CodeValidation, "key_value cannot be empty")
	}
	if strings.Contains(k.KeyValue, "#") {
		return dErrors.New(dErrors.CodeValidation, "key_value cannot contain '#'")
	}
	switch k.KeyType {
	case KeyTypeProductTeamIDAlias, KeyTypeProductID, KeyTypeAccreditedSystemID:
		return nil
	case KeyTypePartyKey:
		if !partyKeyPattern.MatchString(k.KeyValue) {
			return dErrors.New(dErrors.CodeValidation, "party_key must be of the form <ODS code>-<6 digits>")
		}
		return nil
	default:
		return dErrors.New(dErrors.CodeValidation, "unknown key_type "+string(k.KeyType))
	}
}

// checkKey validates key, its type against allowed, and uniqueness within existing.
func checkKey(key Key, existing []Key, allowed ...KeyType) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if !slices.Contains(allowed, key.KeyType) {
		return dErrors.New(dErrors.CodeValidation, "key_type "+string(key.KeyType)+" is not allowed here")
	}
	if slices.Contains(existing, key) {
		return dErrors.New(dErrors.CodeConflict, "key "+key.String()+" already exists")
	}
	return nil
}

// Entity is implemented by every aggregate.
type Entity interface {
	EntityKind() Kind
	Events() []Event
	ClearEvents()
	entity()
}

// eventLog is the ordered, append-only log embedded in every aggregate.
type eventLog struct {
	events []Event
}

// Events returns the pending events in emission order.
func (l *eventLog) Events() []Event {
	return slices.Clone(l.events)
}

// ClearEvents discards the pending events once they are durable.
func (l *eventLog) ClearEvents() {
	l.events = nil
}

func (l *eventLog) record(e Event) {
	l.events = append(l.events, e)
}

func inactiveError(kind Kind) error {
	return dErrors.New(dErrors.CodeInvalidState, strings.ReplaceAll(string(kind), "_", " ")+" has been deleted")
}
