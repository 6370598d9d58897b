package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-rubric-api/internal/utils"
)

// CodeForbidden accompanies role check failures.
const CodeForbidden = "forbidden"

// RequireRole ensures that the authenticated user possesses one of the allowed roles.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		if normalized := normalizeRole(role); normalized != "" {
			allowed[normalized] = struct{}{}
		}
	}

	return func(c *fiber.Ctx) error {
		role, _ := c.Locals("user_role").(string)
		if _, ok := allowed[normalizeRole(role)]; !ok {
			return utils.SendErrorCode(c, fiber.StatusForbidden, CodeForbidden, "insufficient permissions")
		}
		return c.Next()
	}
}
