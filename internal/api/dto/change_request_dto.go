package dto

import (
	"encoding/json"

	"github.com/spec-kit/wiki-moderation/internal/domain"
)

// CreateChangeRequest payload. An omitted oldValue/newValue is absent; a
// literal null is an explicit null value. Missing identifying fields and
// unknown actions are reported by the draft check as MALFORMED_REQUEST.
type CreateChangeRequest struct {
	EntityType string          `json:"entityType"`
	EntityID   domain.EntityID `json:"entityId"`
	FieldType  string          `json:"fieldType" validate:"max=128"`
	Action     string          `json:"action"`
	OldValue   json.RawMessage `json:"oldValue"`
	NewValue   json.RawMessage `json:"newValue"`
}

// RejectChangeRequest payload.
type RejectChangeRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

// ChangeRequestListQuery captures list filters.
type ChangeRequestListQuery struct {
	EntityType string `query:"entity_type"`
	EntityID   string `query:"entity_id"`
	FieldType  string `query:"field_type"`
	Status     string `query:"status" validate:"omitempty,oneof=pending approved rejected"`
}
