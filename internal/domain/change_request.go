package domain

import (
	"encoding/json"
	"time"
)

// ChangeRequestStatus enumerates moderation states for change requests.
type ChangeRequestStatus string

const (
	StatusPending  ChangeRequestStatus = "pending"
	StatusApproved ChangeRequestStatus = "approved"
	StatusRejected ChangeRequestStatus = "rejected"
)

// IsValid reports whether the status is one of the known states.
func (s ChangeRequestStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is defined.
func (s ChangeRequestStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// ChangeAction describes the proposed operation on a field.
type ChangeAction string

const (
	ActionAdd    ChangeAction = "add"
	ActionUpdate ChangeAction = "update"
	ActionDelete ChangeAction = "delete"
)

// IsValid reports whether the action is known.
func (a ChangeAction) IsValid() bool {
	switch a {
	case ActionAdd, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// ChangeRequest is a proposal to change one field of one entity.
//
// OldValue and NewValue keep the raw JSON snapshot. A nil slice means the
// value is absent; the literal null is an explicit null value.
type ChangeRequest struct {
	ID              string              `json:"id"`
	EntityType      EntityType          `json:"entityType"`
	EntityID        EntityID            `json:"entityId"`
	FieldType       string              `json:"fieldType"`
	Action          ChangeAction        `json:"action"`
	OldValue        json.RawMessage     `json:"oldValue,omitempty"`
	NewValue        json.RawMessage     `json:"newValue,omitempty"`
	Status          ChangeRequestStatus `json:"status"`
	RequestedBy     string              `json:"requestedBy"`
	ApprovedBy      *string             `json:"approvedBy,omitempty"`
	RejectedBy      *string             `json:"rejectedBy,omitempty"`
	RejectionReason *string             `json:"rejectionReason,omitempty"`
	CreatedAt       time.Time           `json:"createdAt"`
	ApprovedAt      *time.Time          `json:"approvedAt,omitempty"`
	RejectedAt      *time.Time          `json:"rejectedAt,omitempty"`
}

// HasOldValue reports whether an old value snapshot is present.
func (c ChangeRequest) HasOldValue() bool {
	return len(c.OldValue) > 0
}

// HasNewValue reports whether a new value snapshot is present.
func (c ChangeRequest) HasNewValue() bool {
	return len(c.NewValue) > 0
}

// ChangeRequestDraft is the creation payload; the store assigns ID and status.
type ChangeRequestDraft struct {
	EntityType  EntityType
	EntityID    EntityID
	FieldType   string
	Action      ChangeAction
	OldValue    json.RawMessage
	NewValue    json.RawMessage
	RequestedBy string
}
