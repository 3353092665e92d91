// Package domain holds typed identifiers shared across the registry.
//
// Usage: construct via the Parse functions at trust boundaries (HTTP paths,
// ETL records); direct casting bypasses validation.
package domain

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strings"

	"github.com/google/uuid"

	dErrors "github.com/NHSDigital/connecting-party-manager-sub002/pkg/domain-errors"
)

type (
	ProductTeamID         uuid.UUID
	DeviceID              uuid.UUID
	DeviceReferenceDataID uuid.UUID
)

// ProductID is the human-readable CPM product identifier, e.g. "P.AC3-9XY".
type ProductID string

// productIDAlphabet omits characters that are easily confused when read aloud
// or handwritten (B/8, I/1, O/0, S/5, Z/2, Q).
const productIDAlphabet = "ACDEFGHJKLMNPRTUVWXY34679"

var productIDPattern = regexp.MustCompile(`^P\.[` + productIDAlphabet + `]{3}-[` + productIDAlphabet + `]{3}$`)

func NewProductTeamID() ProductTeamID                 { return ProductTeamID(uuid.New()) }
func NewDeviceID() DeviceID                           { return DeviceID(uuid.New()) }
func NewDeviceReferenceDataID() DeviceReferenceDataID { return DeviceReferenceDataID(uuid.New()) }

// NewProductID draws a random product id from the CPM alphabet.
func NewProductID() ProductID {
	var b strings.Builder
	b.WriteString("P.")
	max := big.NewInt(int64(len(productIDAlphabet)))
	for i := range 6 {
		if i == 3 {
			b.WriteByte('-')
		}
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("crypto/rand unavailable: " + err.Error())
		}
		b.WriteByte(productIDAlphabet[n.Int64()])
	}
	return ProductID(b.String())
}

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return u, nil
}

func ParseProductTeamID(s string) (ProductTeamID, error) {
	u, err := parseUUID(s, "product team id")
	return ProductTeamID(u), err
}

func ParseDeviceID(s string) (DeviceID, error) {
	u, err := parseUUID(s, "device id")
	return DeviceID(u), err
}

func ParseDeviceReferenceDataID(s string) (DeviceReferenceDataID, error) {
	u, err := parseUUID(s, "device reference data id")
	return DeviceReferenceDataID(u), err
}

func ParseProductID(s string) (ProductID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "product id is required")
	}
	if !productIDPattern.MatchString(s) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid product id")
	}
	return ProductID(s), nil
}

func (id ProductTeamID) String() string         { return uuid.UUID(id).String() }
func (id DeviceID) String() string              { return uuid.UUID(id).String() }
func (id DeviceReferenceDataID) String() string { return uuid.UUID(id).String() }
func (id ProductID) String() string             { return string(id) }

func (id ProductTeamID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id DeviceID) IsNil() bool              { return uuid.UUID(id) == uuid.Nil }
func (id DeviceReferenceDataID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ProductID) IsNil() bool             { return id == "" }

func (id ProductTeamID) MarshalText() ([]byte, error)         { return uuid.UUID(id).MarshalText() }
func (id DeviceID) MarshalText() ([]byte, error)              { return uuid.UUID(id).MarshalText() }
func (id DeviceReferenceDataID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *ProductTeamID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id *DeviceID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id *DeviceReferenceDataID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}
