package changes

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/spec-kit/wiki-moderation/internal/domain"
)

// CanTransition reports whether a request may move from current to next.
// Only pending requests move, and only to a terminal status.
func CanTransition(current, next domain.ChangeRequestStatus) bool {
	if !current.IsValid() || current.IsTerminal() {
		return false
	}
	return next.IsTerminal()
}

// Timestamp normalizes a moment to UTC at millisecond precision, the finest
// precision every store keeps.
func Timestamp(at time.Time) time.Time {
	return at.UTC().Truncate(time.Millisecond)
}

// Approve resolves a pending request as approved. The input is not modified.
func Approve(req domain.ChangeRequest, approvedBy string, at time.Time) (domain.ChangeRequest, error) {
	if !CanTransition(req.Status, domain.StatusApproved) {
		return req, &TransitionError{RequestID: req.ID, From: req.Status, To: domain.StatusApproved}
	}
	out := req
	out.Status = domain.StatusApproved
	out.ApprovedBy = &approvedBy
	approvedAt := Timestamp(at)
	out.ApprovedAt = &approvedAt
	return out, nil
}

// Reject resolves a pending request as rejected. The reason may be empty.
func Reject(req domain.ChangeRequest, rejectedBy, reason string, at time.Time) (domain.ChangeRequest, error) {
	if !CanTransition(req.Status, domain.StatusRejected) {
		return req, &TransitionError{RequestID: req.ID, From: req.Status, To: domain.StatusRejected}
	}
	out := req
	out.Status = domain.StatusRejected
	out.RejectedBy = &rejectedBy
	out.RejectionReason = &reason
	rejectedAt := Timestamp(at)
	out.RejectedAt = &rejectedAt
	return out, nil
}

// ValidateDraft checks a creation payload for the fields every request needs
// and for the value snapshots its action needs.
func ValidateDraft(draft domain.ChangeRequestDraft) error {
	switch {
	case strings.TrimSpace(string(draft.EntityType)) == "":
		return &MalformedRequestError{Field: "entityType", Reason: "is required"}
	case strings.TrimSpace(draft.EntityID.String()) == "":
		return &MalformedRequestError{Field: "entityId", Reason: "is required"}
	case strings.TrimSpace(draft.FieldType) == "":
		return &MalformedRequestError{Field: "fieldType", Reason: "is required"}
	case draft.Action == "":
		return &MalformedRequestError{Field: "action", Reason: "is required"}
	case !draft.Action.IsValid():
		return &MalformedRequestError{Field: "action", Reason: "must be add, update or delete"}
	}

	for name, raw := range map[string]json.RawMessage{"oldValue": draft.OldValue, "newValue": draft.NewValue} {
		if len(raw) > 0 && !json.Valid(raw) {
			return &MalformedRequestError{Field: name, Reason: "is not valid JSON"}
		}
	}

	switch draft.Action {
	case domain.ActionAdd:
		if len(draft.NewValue) == 0 {
			return &MalformedRequestError{Field: "newValue", Reason: "is required for add"}
		}
	case domain.ActionDelete:
		if len(draft.OldValue) == 0 {
			return &MalformedRequestError{Field: "oldValue", Reason: "is required for delete"}
		}
	case domain.ActionUpdate:
		if len(draft.OldValue) == 0 || len(draft.NewValue) == 0 {
			return &MalformedRequestError{Field: "newValue", Reason: "update requires oldValue and newValue"}
		}
	}
	return nil
}
