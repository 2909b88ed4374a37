package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/wiki-moderation/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventChangeRequestCreated  EventType = "change_request_created"
	EventChangeRequestApproved EventType = "change_request_approved"
	EventChangeRequestRejected EventType = "change_request_rejected"
	EventChangeRequestDeleted  EventType = "change_request_deleted"
	EventEntityFieldApplied    EventType = "entity_field_applied"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID              string            `json:"id"`
	Type            EventType         `json:"type"`
	ChangeRequestID string            `json:"change_request_id"`
	EntityType      domain.EntityType `json:"entity_type"`
	EntityID        domain.EntityID   `json:"entity_id"`
	FieldType       string            `json:"field_type"`
	Actor           string            `json:"actor"`
	Timestamp       time.Time         `json:"timestamp"`
	Payload         interface{}       `json:"payload"`
}

// NewChangeRequestEvent builds an event describing req.
func NewChangeRequestEvent(eventType EventType, req domain.ChangeRequest, actor string, payload interface{}) Event {
	return Event{
		ID:              uuid.NewString(),
		Type:            eventType,
		ChangeRequestID: req.ID,
		EntityType:      req.EntityType,
		EntityID:        req.EntityID,
		FieldType:       req.FieldType,
		Actor:           actor,
		Timestamp:       time.Now().UTC(),
		Payload:         payload,
	}
}

// ChangeRequestCreatedPayload payload.
type ChangeRequestCreatedPayload struct {
	Action      domain.ChangeAction `json:"action"`
	RequestedBy string              `json:"requested_by"`
}

// ChangeRequestApprovedPayload carries the approved request so subscribers can apply it.
type ChangeRequestApprovedPayload struct {
	Request domain.ChangeRequest `json:"request"`
}

// ChangeRequestRejectedPayload payload.
type ChangeRequestRejectedPayload struct {
	RequestedBy string `json:"requested_by"`
	Reason      string `json:"reason,omitempty"`
}

// ChangeRequestDeletedPayload payload.
type ChangeRequestDeletedPayload struct {
	Status domain.ChangeRequestStatus `json:"status"`
}

// EntityFieldAppliedPayload payload.
type EntityFieldAppliedPayload struct {
	RevisionID string              `json:"revision_id"`
	Action     domain.ChangeAction `json:"action"`
}
