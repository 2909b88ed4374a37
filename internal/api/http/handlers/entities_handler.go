package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/wiki-moderation/internal/api/dto"
	"github.com/spec-kit/wiki-moderation/internal/domain"
	"github.com/spec-kit/wiki-moderation/internal/service"
	apperrors "github.com/spec-kit/wiki-moderation/pkg/util/errorutil"
)

// EntitiesHandler serves character and member snapshots, field review views and revisions.
type EntitiesHandler struct {
	service *service.ModerationService
}

// NewEntitiesHandler constructs handler.
func NewEntitiesHandler(moderation *service.ModerationService) *EntitiesHandler {
	return &EntitiesHandler{service: moderation}
}

// Get GET /:collection/:id.
func (h *EntitiesHandler) Get(c *fiber.Ctx) error {
	kind, err := collectionParam(c)
	if err != nil {
		return err
	}
	entity, err := h.service.GetEntity(c.UserContext(), kind, domain.EntityID(c.Params("id")))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": entity})
}

// Field GET /:collection/:id/fields/:field.
func (h *EntitiesHandler) Field(c *fiber.Ctx) error {
	kind, err := collectionParam(c)
	if err != nil {
		return err
	}
	view, err := h.service.PendingFieldView(c.UserContext(), kind, domain.EntityID(c.Params("id")), c.Params("field"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": view})
}

// Revisions GET /:collection/:id/revisions.
func (h *EntitiesHandler) Revisions(c *fiber.Ctx) error {
	kind, err := collectionParam(c)
	if err != nil {
		return err
	}
	revisions, err := h.service.ListRevisions(c.UserContext(), kind, domain.EntityID(c.Params("id")))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": revisions})
}

// Create POST /:collection.
func (h *EntitiesHandler) Create(c *fiber.Ctx) error {
	kind, err := collectionParam(c)
	if err != nil {
		return err
	}
	var req dto.CreateEntityRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(&req); err != nil {
		return err
	}
	entity, err := h.service.CreateEntity(c.UserContext(), domain.Entity{
		Type:       kind,
		ID:         req.ID,
		Name:       req.Name,
		Attributes: req.Attributes,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": entity})
}

func collectionParam(c *fiber.Ctx) (domain.EntityType, error) {
	kind, ok := domain.EntityTypeFromCollection(c.Params("collection"))
	if !ok {
		return "", apperrors.NewNotFound("collection", map[string]any{"collection": c.Params("collection")})
	}
	return kind, nil
}
