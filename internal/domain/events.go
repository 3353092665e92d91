package domain

import (
	"encoding/json"
	"fmt"

	"github.com/NHSDigital/connecting-party-manager-sub002/internal/domain/tag"
	id "github.com/NHSDigital/connecting-party-manager-sub002/pkg/domain"
)

// Event is one immutable state transition. The set of variants is closed:
// only this package can implement it.
//
// Every variant carries State, the aggregate as it is after the transition,
// so each stored copy can be materialized from the event alone.
type Event interface {
	EventName() string
	Kind() Kind
	isEvent()
}

const (
	EventProductTeamCreated          = "ProductTeamCreated"
	EventProductTeamKeyAdded         = "ProductTeamKeyAdded"
	EventProductTeamDeleted          = "ProductTeamDeleted"
	EventProductCreated              = "ProductCreated"
	EventProductKeyAdded             = "ProductKeyAdded"
	EventProductDeleted              = "ProductDeleted"
	EventDeviceReferenceDataCreated  = "DeviceReferenceDataCreated"
	EventQuestionnaireResponseAdded  = "QuestionnaireResponseAdded"
	EventDeviceReferenceDataDeleted  = "DeviceReferenceDataDeleted"
	EventDeviceCreated               = "DeviceCreated"
	EventDeviceKeyAdded              = "DeviceKeyAdded"
	EventDeviceTagsAdded             = "DeviceTagsAdded"
	EventDeviceUpdated               = "DeviceUpdated"
	EventDeviceReferenceDataAssigned = "DeviceReferenceDataAssigned"
	EventDeviceDeleted               = "DeviceDeleted"
)

// Product team events.

type ProductTeamCreated struct {
	State ProductTeam `json:"state"`
}

type ProductTeamKeyAdded struct {
	NewKey Key         `json:"new_key"`
	State  ProductTeam `json:"state"`
}

type ProductTeamDeleted struct {
	State ProductTeam `json:"state"`
}

// Product events.

type ProductCreated struct {
	State Product `json:"state"`
}

type ProductKeyAdded struct {
	NewKey Key     `json:"new_key"`
	State  Product `json:"state"`
}

type ProductDeleted struct {
	State Product `json:"state"`
}

// Device reference data events.

type DeviceReferenceDataCreated struct {
	State DeviceReferenceData `json:"state"`
}

type QuestionnaireResponseAdded struct {
	Response QuestionnaireResponse `json:"response"`
	State    DeviceReferenceData   `json:"state"`
}

type DeviceReferenceDataDeleted struct {
	State DeviceReferenceData `json:"state"`
}

// Device events.

type DeviceCreated struct {
	State Device `json:"state"`
}

type DeviceKeyAdded struct {
	NewKey Key    `json:"new_key"`
	State  Device `json:"state"`
}

type DeviceTagsAdded struct {
	NewTags []tag.Tag `json:"new_tags"`
	State   Device    `json:"state"`
}

type DeviceUpdated struct {
	State Device `json:"state"`
}

type DeviceReferenceDataAssigned struct {
	DeviceReferenceDataID id.DeviceReferenceDataID `json:"device_reference_data_id"`
	Paths                 []string                 `json:"paths"`
	State                 Device                   `json:"state"`
}

type DeviceDeleted struct {
	State Device `json:"state"`
}

func (ProductTeamCreated) EventName() string          { return EventProductTeamCreated }
func (ProductTeamKeyAdded) EventName() string         { return EventProductTeamKeyAdded }
func (ProductTeamDeleted) EventName() string          { return EventProductTeamDeleted }
func (ProductCreated) EventName() string              { return EventProductCreated }
func (ProductKeyAdded) EventName() string             { return EventProductKeyAdded }
func (ProductDeleted) EventName() string              { return EventProductDeleted }
func (DeviceReferenceDataCreated) EventName() string  { return EventDeviceReferenceDataCreated }
func (QuestionnaireResponseAdded) EventName() string  { return EventQuestionnaireResponseAdded }
func (DeviceReferenceDataDeleted) EventName() string  { return EventDeviceReferenceDataDeleted }
func (DeviceCreated) EventName() string               { return EventDeviceCreated }
func (DeviceKeyAdded) EventName() string              { return EventDeviceKeyAdded }
func (DeviceTagsAdded) EventName() string             { return EventDeviceTagsAdded }
func (DeviceUpdated) EventName() string               { return EventDeviceUpdated }
func (DeviceReferenceDataAssigned) EventName() string { return EventDeviceReferenceDataAssigned }
func (DeviceDeleted) EventName() string               { return EventDeviceDeleted }

func (ProductTeamCreated) Kind() Kind          { return KindProductTeam }
func (ProductTeamKeyAdded) Kind() Kind         { return KindProductTeam }
func (ProductTeamDeleted) Kind() Kind          { return KindProductTeam }
func (ProductCreated) Kind() Kind              { return KindProduct }
func (ProductKeyAdded) Kind() Kind             { return KindProduct }
func (ProductDeleted) Kind() Kind              { return KindProduct }
func (DeviceReferenceDataCreated) Kind() Kind  { return KindDeviceReferenceData }
func (QuestionnaireResponseAdded) Kind() Kind  { return KindDeviceReferenceData }
func (DeviceReferenceDataDeleted) Kind() Kind  { return KindDeviceReferenceData }
func (DeviceCreated) Kind() Kind               { return KindDevice }
func (DeviceKeyAdded) Kind() Kind              { return KindDevice }
func (DeviceTagsAdded) Kind() Kind             { return KindDevice }
func (DeviceUpdated) Kind() Kind               { return KindDevice }
func (DeviceReferenceDataAssigned) Kind() Kind { return KindDevice }
func (DeviceDeleted) Kind() Kind               { return KindDevice }

func (ProductTeamCreated) isEvent()          {}
func (ProductTeamKeyAdded) isEvent()         {}
func (ProductTeamDeleted) isEvent()          {}
func (ProductCreated) isEvent()              {}
func (ProductKeyAdded) isEvent()             {}
func (ProductDeleted) isEvent()              {}
func (DeviceReferenceDataCreated) isEvent()  {}
func (QuestionnaireResponseAdded) isEvent()  {}
func (DeviceReferenceDataDeleted) isEvent()  {}
func (DeviceCreated) isEvent()               {}
func (DeviceKeyAdded) isEvent()              {}
func (DeviceTagsAdded) isEvent()             {}
func (DeviceUpdated) isEvent()               {}
func (DeviceReferenceDataAssigned) isEvent() {}
func (DeviceDeleted) isEvent()               {}

var eventDecoders = map[string]func([]byte) (Event, error){
	EventProductTeamCreated:          decodeAs[ProductTeamCreated],
	EventProductTeamKeyAdded:         decodeAs[ProductTeamKeyAdded],
	EventProductTeamDeleted:          decodeAs[ProductTeamDeleted],
	EventProductCreated:              decodeAs[ProductCreated],
	EventProductKeyAdded:             decodeAs[ProductKeyAdded],
	EventProductDeleted:              decodeAs[ProductDeleted],
	EventDeviceReferenceDataCreated:  decodeAs[DeviceReferenceDataCreated],
	EventQuestionnaireResponseAdded:  decodeAs[QuestionnaireResponseAdded],
	EventDeviceReferenceDataDeleted:  decodeAs[DeviceReferenceDataDeleted],
	EventDeviceCreated:               decodeAs[DeviceCreated],
	EventDeviceKeyAdded:              decodeAs[DeviceKeyAdded],
	EventDeviceTagsAdded:             decodeAs[DeviceTagsAdded],
	EventDeviceUpdated:               decodeAs[DeviceUpdated],
	EventDeviceReferenceDataAssigned: decodeAs[DeviceReferenceDataAssigned],
	EventDeviceDeleted:               decodeAs[DeviceDeleted],
}

func decodeAs[T Event](data []byte) (Event, error) {
	var e T
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return e, nil
}

// EncodeEvent returns the event's name and JSON body.
func EncodeEvent(e Event) (string, []byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", nil, fmt.Errorf("encode %s: %w", e.EventName(), err)
	}
	return e.EventName(), data, nil
}

// DecodeEvent rebuilds an event from its name and JSON body.
func DecodeEvent(name string, data []byte) (Event, error) {
	decode, ok := eventDecoders[name]
	if !ok {
		return nil, fmt.Errorf("unknown event %q", name)
	}
	e, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return e, nil
}
