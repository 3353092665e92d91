package domain

import (
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/NHSDigital/connecting-party-manager-sub002/internal/domain/tag"
	id "github.com/NHSDigital/connecting-party-manager-sub002/pkg/domain"
	dErrors "github.com/NHSDigital/connecting-party-manager-sub002/pkg/domain-errors"
	cpmstrings "github.com/NHSDigital/connecting-party-manager-sub002/pkg/platform/strings"
)

// Device is an endpoint of a product. It can be read by id, by alternate key,
// or searched by tag within its product.
type Device struct {
	ID            id.DeviceID      `json:"id"`
	ProductID     id.ProductID     `json:"product_id"`
	ProductTeamID id.ProductTeamID `json:"product_team_id"`
	Name          string           `json:"name"`
	OdsCode       string           `json:"ods_code"`
	Status        Status           `json:"status"`
	CreatedOn     time.Time        `json:"created_on"`
	UpdatedOn     *time.Time       `json:"updated_on"`
	DeletedOn     *time.Time       `json:"deleted_on"`
	Keys          []Key            `json:"keys"`
	Tags          []tag.Tag        `json:"tags"`
	// DeviceReferenceData maps a device reference data id to the response
	// paths this device inherits from it.
	DeviceReferenceData map[string][]string `json:"device_reference_data"`
	eventLog
}

func NewDevice(deviceID id.DeviceID, product *Product, name string, now time.Time) (*Device, error) {
	if product == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "product is required")
	}
	if !product.IsActive() {
		return nil, inactiveError(KindProduct)
	}
	if deviceID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "device id cannot be nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "device name cannot be empty")
	}

	d := &Device{
		ID:                  deviceID,
		ProductID:           product.ID,
		ProductTeamID:       product.ProductTeamID,
		Name:                name,
		OdsCode:             product.OdsCode,
		Status:              StatusActive,
		CreatedOn:           now.UTC(),
		Keys:                []Key{},
		Tags:                []tag.Tag{},
		DeviceReferenceData: map[string][]string{},
	}
	d.record(DeviceCreated{State: d.snapshot()})
	return d, nil
}

func (*Device) EntityKind() Kind { return KindDevice }
func (*Device) entity()          {}

func (d *Device) IsActive() bool {
	return d.Status.IsActive()
}

func (d *Device) AddKey(key Key, now time.Time) error {
	if !d.IsActive() {
		return inactiveError(KindDevice)
	}
	if err := checkKey(key, d.Keys, KeyTypeAccreditedSystemID, KeyTypeProductID); err != nil {
		return err
	}
	d.Keys = append(d.Keys, key)
	d.touch(now)
	d.record(DeviceKeyAdded{NewKey: key, State: d.snapshot()})
	return nil
}

// AddTags records the tags not already held by the device. Adding only known
// tags is a no-op.
func (d *Device) AddTags(tags []tag.Tag, now time.Time) error {
	if !d.IsActive() {
		return inactiveError(KindDevice)
	}
	seen := make(map[string]struct{}, len(d.Tags)+len(tags))
	for _, t := range d.Tags {
		seen[t.String()] = struct{}{}
	}
	var added []tag.Tag
	for _, t := range tags {
		if len(t) == 0 {
			return dErrors.New(dErrors.CodeValidation, "tag cannot be empty")
		}
		if _, ok := seen[t.String()]; ok {
			continue
		}
		seen[t.String()] = struct{}{}
		added = append(added, t)
	}
	if len(added) == 0 {
		return nil
	}
	d.Tags = append(d.Tags, added...)
	d.touch(now)
	d.record(DeviceTagsAdded{NewTags: added, State: d.snapshot()})
	return nil
}

// AddTagsFromFields fans fields out over each attribute combination in
// queries and records the resulting tags. A combination naming a field the
// device does not have contributes nothing.
func (d *Device) AddTagsFromFields(fields map[string]any, queries [][]string, now time.Time) error {
	return d.AddTags(tag.Fanout(fields, queries), now)
}

// HasTag reports whether t resolves to this device.
func (d *Device) HasTag(t tag.Tag) bool {
	return slices.ContainsFunc(d.Tags, t.Equal)
}

// Update renames the device.
func (d *Device) Update(name string, now time.Time) error {
	if !d.IsActive() {
		return inactiveError(KindDevice)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return dErrors.New(dErrors.CodeValidation, "device name cannot be empty")
	}
	d.Name = name
	d.touch(now)
	d.record(DeviceUpdated{State: d.snapshot()})
	return nil
}

// AssignDeviceReferenceData links the device to response paths of drdID. Paths
// already assigned are kept.
func (d *Device) AssignDeviceReferenceData(drdID id.DeviceReferenceDataID, paths []string, now time.Time) error {
	if !d.IsActive() {
		return inactiveError(KindDevice)
	}
	if drdID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "device reference data id cannot be nil")
	}
	key := drdID.String()
	merged := cpmstrings.DedupeAndTrim(append(slices.Clone(d.DeviceReferenceData[key]), paths...))
	if merged == nil {
		merged = []string{}
	}
	d.DeviceReferenceData[key] = merged
	d.touch(now)
	d.record(DeviceReferenceDataAssigned{DeviceReferenceDataID: drdID, Paths: slices.Clone(merged), State: d.snapshot()})
	return nil
}

func (d *Device) Delete(now time.Time) error {
	if !d.IsActive() {
		return inactiveError(KindDevice)
	}
	d.Status = StatusInactive
	d.touch(now)
	deleted := now.UTC()
	d.DeletedOn = &deleted
	d.record(DeviceDeleted{State: d.snapshot()})
	return nil
}

func (d *Device) touch(now time.Time) {
	updated := now.UTC()
	d.UpdatedOn = &updated
}

func (d *Device) snapshot() Device {
	s := *d
	s.Keys = slices.Clone(d.Keys)
	s.Tags = slices.Clone(d.Tags)
	s.DeviceReferenceData = maps.Clone(d.DeviceReferenceData)
	for k, v := range s.DeviceReferenceData {
		s.DeviceReferenceData[k] = slices.Clone(v)
	}
	s.eventLog = eventLog{}
	return s
}
