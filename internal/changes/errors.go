package changes

import (
	"errors"
	"fmt"

	"github.com/spec-kit/wiki-moderation/internal/domain"
)

var (
	// ErrInvalidTransition indicates approve/reject on a request that is no longer pending.
	ErrInvalidTransition = errors.New("change request status transition not allowed")
	// ErrMalformedRequest indicates a request that lacks the data its action needs.
	ErrMalformedRequest = errors.New("malformed change request")
)

// MalformedRequestError describes why one change request cannot be used.
type MalformedRequestError struct {
	RequestID string
	Field     string
	Reason    string
}

func (e *MalformedRequestError) Error() string {
	switch {
	case e.RequestID != "":
		return fmt.Sprintf("change request %s: %s", e.RequestID, e.Reason)
	case e.Field != "":
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	default:
		return e.Reason
	}
}

func (e *MalformedRequestError) Unwrap() error {
	return ErrMalformedRequest
}

// TransitionError reports a rejected status change.
type TransitionError struct {
	RequestID string
	From      domain.ChangeRequestStatus
	To        domain.ChangeRequestStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("change request %s cannot move from %s to %s", e.RequestID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

func malformed(req domain.ChangeRequest, reason string) error {
	return &MalformedRequestError{RequestID: req.ID, Reason: reason}
}
