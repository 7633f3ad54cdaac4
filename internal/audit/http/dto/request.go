// Package dto provides data transfer objects for the audit chain HTTP API.
package dto

import (
	validation "github.com/jellydator/validation"

	auditDomain "github.com/kvhuynh79-oss/sda-management-sub004/internal/audit/domain"
	auditUseCase "github.com/kvhuynh79-oss/sda-management-sub004/internal/audit/usecase"
	customValidation "github.com/kvhuynh79-oss/sda-management-sub004/internal/validation"
)

// AppendAuditLogRequest contains the caller-supplied fields of a new audit entry.
//
// Changes may be given either as flat string maps (changes, previous_values) or as the
// entity's state before and after the action (before, after), which are diffed server-side.
type AppendAuditLogRequest struct {
	Action         string            `json:"action"`
	EntityType     string            `json:"entity_type"`
	EntityID       string            `json:"entity_id"`
	EntityName     string            `json:"entity_name"`
	Changes        map[string]string `json:"changes"`
	PreviousValues map[string]string `json:"previous_values"`
	Before         map[string]any    `json:"before"`
	After          map[string]any    `json:"after"`
	Metadata       map[string]string `json:"metadata"`
}

// Validate checks if the append request is valid.
func (r *AppendAuditLogRequest) Validate() error {
	explicit := len(r.Changes) > 0 || len(r.PreviousValues) > 0

	return validation.ValidateStruct(r,
		validation.Field(&r.Action,
			validation.Required,
			validation.By(validateAction),
		),
		validation.Field(&r.EntityType,
			validation.Required,
			customValidation.NotBlank,
			customValidation.NoWhitespace,
			customValidation.NoControlChars,
			validation.Length(1, 100),
		),
		validation.Field(&r.EntityID, customValidation.NoControlChars, validation.Length(0, 255)),
		validation.Field(&r.EntityName, customValidation.NoControlChars, validation.Length(0, 500)),
		validation.Field(&r.Before,
			validation.When(explicit, validation.Empty.Error("cannot be combined with changes")),
		),
		validation.Field(&r.After,
			validation.When(explicit, validation.Empty.Error("cannot be combined with changes")),
		),
	)
}

func validateAction(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if !auditDomain.Action(s).Valid() {
		return validation.NewError("validation_audit_action", "must be a known audit action")
	}
	return nil
}

// ToAppendInput builds the use case input for the given organization and actor.
func (r *AppendAuditLogRequest) ToAppendInput(
	organizationID string,
	actor auditDomain.Actor,
) *auditUseCase.AppendInput {
	changes := auditDomain.Diff(r.Changes)
	previousValues := auditDomain.Diff(r.PreviousValues)
	if len(r.Before) > 0 || len(r.After) > 0 {
		changes, previousValues = auditDomain.FormatChanges(r.Before, r.After)
	}

	return &auditUseCase.AppendInput{
		OrganizationID: organizationID,
		Actor:          actor,
		Action:         auditDomain.Action(r.Action),
		EntityType:     r.EntityType,
		EntityID:       r.EntityID,
		EntityName:     r.EntityName,
		Changes:        changes,
		PreviousValues: previousValues,
		Metadata:       auditDomain.Diff(r.Metadata),
	}
}
