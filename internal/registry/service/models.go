package service

import (
	"github.com/NHSDigital/connecting-party-manager-sub002/internal/domain"
	"github.com/NHSDigital/connecting-party-manager-sub002/internal/domain/tag"
)

// CreateProductTeamRequest is the body of POST /ProductTeam.
type CreateProductTeamRequest struct {
	Name    string       `json:"name"`
	OdsCode string       `json:"ods_code"`
	Keys    []domain.Key `json:"keys"`
}

// CreateProductRequest is the body of POST /ProductTeam/{team}/Product.
type CreateProductRequest struct {
	Name string       `json:"name"`
	Keys []domain.Key `json:"keys"`
}

// QuestionnaireResponseRequest is one answer set attached at creation time.
type QuestionnaireResponseRequest struct {
	QuestionnaireName string         `json:"questionnaire_name"`
	Data              map[string]any `json:"data"`
}

// CreateDeviceReferenceDataRequest is the body of POST .../DeviceReferenceData.
type CreateDeviceReferenceDataRequest struct {
	Name                   string                         `json:"name"`
	QuestionnaireResponses []QuestionnaireResponseRequest `json:"questionnaire_responses"`
}

// CreateDeviceRequest is the body of POST .../Device. Tags use their query
// string form, e.g. "interaction_id=urn:x&party_key=abc-123456".
//
// TagFields holds the device's searchable attributes, single or multi valued.
// They are fanned out over TagQueries, each a list of field names, into one tag
// per value combination.
type CreateDeviceRequest struct {
	Name                string              `json:"name"`
	Keys                []domain.Key        `json:"keys"`
	Tags                []tag.Tag           `json:"tags"`
	TagFields           map[string]any      `json:"tag_fields"`
	TagQueries          [][]string          `json:"tag_queries"`
	DeviceReferenceData map[string][]string `json:"device_reference_data"`
}
