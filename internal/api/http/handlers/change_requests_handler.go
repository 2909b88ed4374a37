package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/wiki-moderation/internal/api/dto"
	"github.com/spec-kit/wiki-moderation/internal/auth"
	"github.com/spec-kit/wiki-moderation/internal/domain"
	"github.com/spec-kit/wiki-moderation/internal/service"
	apperrors "github.com/spec-kit/wiki-moderation/pkg/util/errorutil"
)

// ChangeRequestsHandler serves the change-request endpoints.
type ChangeRequestsHandler struct {
	service *service.ModerationService
}

// NewChangeRequestsHandler constructs handler.
func NewChangeRequestsHandler(moderation *service.ModerationService) *ChangeRequestsHandler {
	return &ChangeRequestsHandler{service: moderation}
}

// List GET /change-requests.
func (h *ChangeRequestsHandler) List(c *fiber.Ctx) error {
	var q dto.ChangeRequestListQuery
	if err := c.QueryParser(&q); err != nil {
		return apperrors.NewValidationError("invalid query", nil)
	}
	if err := dto.Validate(&q); err != nil {
		return err
	}
	query := service.ChangeRequestQuery{
		EntityID:  domain.EntityID(strings.TrimSpace(q.EntityID)),
		FieldType: strings.TrimSpace(q.FieldType),
		Status:    domain.ChangeRequestStatus(q.Status),
	}
	if q.EntityType != "" {
		kind, ok := domain.EntityTypeFromCollection(q.EntityType)
		if !ok {
			return apperrors.NewValidationError("unknown entity type", map[string]any{"entity_type": q.EntityType})
		}
		query.EntityType = kind
	}

	items, err := h.service.ListChangeRequests(c.UserContext(), query)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": items})
}

// Create POST /change-requests.
func (h *ChangeRequestsHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(&req); err != nil {
		return err
	}
	var kind domain.EntityType
	if strings.TrimSpace(req.EntityType) != "" {
		resolved, ok := domain.EntityTypeFromCollection(req.EntityType)
		if !ok {
			return apperrors.NewValidationError("unknown entity type", map[string]any{"entityType": req.EntityType})
		}
		kind = resolved
	}

	created, err := h.service.CreateChangeRequest(c.UserContext(), domain.ChangeRequestDraft{
		EntityType:  kind,
		EntityID:    req.EntityID,
		FieldType:   req.FieldType,
		Action:      domain.ChangeAction(req.Action),
		OldValue:    req.OldValue,
		NewValue:    req.NewValue,
		RequestedBy: principal.Name,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": created})
}

// Get GET /change-requests/:id.
func (h *ChangeRequestsHandler) Get(c *fiber.Ctx) error {
	view, err := h.service.GetChangeRequest(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": view})
}

// Approve POST /change-requests/:id/approve.
func (h *ChangeRequestsHandler) Approve(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	approved, err := h.service.Approve(c.UserContext(), c.Params("id"), principal.Name)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": approved})
}

// Reject POST /change-requests/:id/reject.
func (h *ChangeRequestsHandler) Reject(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.RejectChangeRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	if err := dto.Validate(&req); err != nil {
		return err
	}
	rejected, err := h.service.Reject(c.UserContext(), c.Params("id"), principal.Name, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": rejected})
}

// Delete DELETE /change-requests/:id.
func (h *ChangeRequestsHandler) Delete(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.service.DeleteChangeRequest(c.UserContext(), c.Params("id"), principal.Name); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
