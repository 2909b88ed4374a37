package dto

import "github.com/spec-kit/wiki-moderation/internal/domain"

// CreateEntityRequest seeds a character or member.
type CreateEntityRequest struct {
	ID         domain.EntityID `json:"id" validate:"required"`
	Name       string          `json:"name" validate:"required,max=200"`
	Attributes map[string]any  `json:"attributes"`
}
