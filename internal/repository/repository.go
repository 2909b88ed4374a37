package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/spec-kit/wiki-moderation/internal/domain"
)

var (
	// ErrNotFound is returned when no record matches the lookup.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidTransition is returned when a conditional status update finds the request already resolved.
	ErrInvalidTransition = errors.New("change request is not pending")
	// ErrAlreadyExists is returned when creating a record whose key is taken.
	ErrAlreadyExists = errors.New("record already exists")
)

// ChangeRequestFilter narrows List on the store side. Zero values match everything.
// Entity and field matching is left to the selector so id comparison stays loose.
type ChangeRequestFilter struct {
	EntityType domain.EntityType
	Status     domain.ChangeRequestStatus
}

// ChangeRequestRepository persists change requests. List returns records oldest first.
type ChangeRequestRepository interface {
	List(ctx context.Context, filter ChangeRequestFilter) ([]domain.ChangeRequest, error)
	GetByID(ctx context.Context, id string) (*domain.ChangeRequest, error)
	Create(ctx context.Context, req *domain.ChangeRequest) error
	SetApproved(ctx context.Context, req domain.ChangeRequest) error
	SetRejected(ctx context.Context, req domain.ChangeRequest) error
	Delete(ctx context.Context, id string) error
}

// EntityRepository stores the wiki records change requests apply to.
type EntityRepository interface {
	GetByID(ctx context.Context, entityType domain.EntityType, id domain.EntityID) (*domain.Entity, error)
	Create(ctx context.Context, entity *domain.Entity) error
	Update(ctx context.Context, entity *domain.Entity) error
}

// RevisionRepository stores the append-only log of applied changes.
type RevisionRepository interface {
	Create(ctx context.Context, revision *domain.EntityRevision) error
	ListByEntity(ctx context.Context, entityType domain.EntityType, id domain.EntityID) ([]domain.EntityRevision, error)
}

// RawToText converts an optional JSON snapshot to a nullable column value.
func RawToText(raw json.RawMessage) *string {
	if len(raw) == 0 {
		return nil
	}
	s := string(raw)
	return &s
}

// TextToRaw is the inverse of RawToText.
func TextToRaw(s *string) json.RawMessage {
	if s == nil {
		return nil
	}
	return json.RawMessage(*s)
}
