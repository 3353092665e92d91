package domain

import (
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	id "github.com/NHSDigital/connecting-party-manager-sub002/pkg/domain"
	dErrors "github.com/NHSDigital/connecting-party-manager-sub002/pkg/domain-errors"
)

// QuestionnaireResponse is an already-validated answer set for a named
// questionnaire.
type QuestionnaireResponse struct {
	ID                uuid.UUID      `json:"id"`
	QuestionnaireName string         `json:"questionnaire_name"`
	Data              map[string]any `json:"data"`
	CreatedOn         time.Time      `json:"created_on"`
}

// DeviceReferenceData holds questionnaire responses shared by several devices
// of one product.
type DeviceReferenceData struct {
	ID                     id.DeviceReferenceDataID           `json:"id"`
	ProductID              id.ProductID                       `json:"product_id"`
	ProductTeamID          id.ProductTeamID                   `json:"product_team_id"`
	Name                   string                             `json:"name"`
	OdsCode                string                             `json:"ods_code"`
	Status                 Status                             `json:"status"`
	CreatedOn              time.Time                          `json:"created_on"`
	UpdatedOn              *time.Time                         `json:"updated_on"`
	DeletedOn              *time.Time                         `json:"deleted_on"`
	QuestionnaireResponses map[string][]QuestionnaireResponse `json:"questionnaire_responses"`
	eventLog
}

func NewDeviceReferenceData(drdID id.DeviceReferenceDataID, product *Product, name string, now time.Time) (*DeviceReferenceData, error) {
	if product == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "product is required")
	}
	if !product.IsActive() {
		return nil, inactiveError(KindProduct)
	}
	if drdID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "device reference data id cannot be nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "device reference data name cannot be empty")
	}

	d := &DeviceReferenceData{
		ID:                     drdID,
		ProductID:              product.ID,
		ProductTeamID:          product.ProductTeamID,
		Name:                   name,
		OdsCode:                product.OdsCode,
		Status:                 StatusActive,
		CreatedOn:              now.UTC(),
		QuestionnaireResponses: map[string][]QuestionnaireResponse{},
	}
	d.record(DeviceReferenceDataCreated{State: d.snapshot()})
	return d, nil
}

func (*DeviceReferenceData) EntityKind() Kind { return KindDeviceReferenceData }
func (*DeviceReferenceData) entity()          {}

func (d *DeviceReferenceData) IsActive() bool {
	return d.Status.IsActive()
}

// AddQuestionnaireResponse appends a response under its questionnaire name.
func (d *DeviceReferenceData) AddQuestionnaireResponse(responseID uuid.UUID, questionnaireName string, data map[string]any, now time.Time) (QuestionnaireResponse, error) {
	if !d.IsActive() {
		return QuestionnaireResponse{}, inactiveError(KindDeviceReferenceData)
	}
	questionnaireName = strings.TrimSpace(questionnaireName)
	if questionnaireName == "" {
		return QuestionnaireResponse{}, dErrors.New(dErrors.CodeValidation, "questionnaire_name cannot be empty")
	}
	for _, existing := range d.QuestionnaireResponses[questionnaireName] {
		if existing.ID == responseID {
			return QuestionnaireResponse{}, dErrors.New(dErrors.CodeConflict, "questionnaire response "+responseID.String()+" already exists")
		}
	}

	response := QuestionnaireResponse{
		ID:                responseID,
		QuestionnaireName: questionnaireName,
		Data:              maps.Clone(data),
		CreatedOn:         now.UTC(),
	}
	d.QuestionnaireResponses[questionnaireName] = append(d.QuestionnaireResponses[questionnaireName], response)
	d.touch(now)
	d.record(QuestionnaireResponseAdded{Response: response, State: d.snapshot()})
	return response, nil
}

func (d *DeviceReferenceData) Delete(now time.Time) error {
	if !d.IsActive() {
		return inactiveError(KindDeviceReferenceData)
	}
	d.Status = StatusInactive
	d.touch(now)
	deleted := now.UTC()
	d.DeletedOn = &deleted
	d.record(DeviceReferenceDataDeleted{State: d.snapshot()})
	return nil
}

func (d *DeviceReferenceData) touch(now time.Time) {
	updated := now.UTC()
	d.UpdatedOn = &updated
}

func (d *DeviceReferenceData) snapshot() DeviceReferenceData {
	s := *d
	s.QuestionnaireResponses = make(map[string][]QuestionnaireResponse, len(d.QuestionnaireResponses))
	for name, responses := range d.QuestionnaireResponses {
		s.QuestionnaireResponses[name] = slices.Clone(responses)
	}
	s.eventLog = eventLog{}
	return s
}
