package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/wiki-moderation/internal/domain"
	apperrors "github.com/spec-kit/wiki-moderation/pkg/util/errorutil"
)

// RequireRole ensures the caller holds at least the given role.
func RequireRole(min domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !principal.Role.AtLeast(min) {
			return apperrors.NewForbidden(string(min) + " role required")
		}
		return c.Next()
	}
}
