package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/wiki-moderation/internal/api/dto"
	"github.com/spec-kit/wiki-moderation/internal/service"
	apperrors "github.com/spec-kit/wiki-moderation/pkg/util/errorutil"
)

// AuthHandler issues bearer tokens.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Token POST /auth/token.
func (h *AuthHandler) Token(c *fiber.Ctx) error {
	var req dto.TokenRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(&req); err != nil {
		return err
	}
	account, token, exp, err := h.auth.Login(c.UserContext(), req.Name, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TokenResponse{Token: token, ExpiresAt: exp, Role: string(account.Role)}})
}
