package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/mailroom/internal/domain"
	apperrors "github.com/spec-kit/mailroom/pkg/util"
)

const principalKey = "auth.principal"

// Principal is the authenticated agent attached to a request.
type Principal struct {
	AgentID  string
	TenantID string
	Email    string
	Role     domain.AgentRole
}

// Middleware validates the bearer token and stores the principal in locals.
func Middleware(tokens *TokenManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return apperrors.NewUnauthorized("missing authorization header")
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return apperrors.NewUnauthorized("malformed authorization header")
		}
		claims, err := tokens.Parse(parts[1])
		if err != nil {
			return err
		}
		c.Locals(principalKey, &Principal{
			AgentID:  claims.AgentID,
			TenantID: claims.TenantID,
			Email:    claims.Email,
			Role:     claims.Role,
		})
		return c.Next()
	}
}

// PrincipalFrom returns the principal set by Middleware, or nil.
func PrincipalFrom(c *fiber.Ctx) *Principal {
	principal, _ := c.Locals(principalKey).(*Principal)
	return principal
}

// RequireRole rejects requests whose principal lacks the given role.
// Admins pass every role check.
func RequireRole(role domain.AgentRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal := PrincipalFrom(c)
		if principal == nil {
			return apperrors.NewUnauthorized("authentication required")
		}
		if principal.Role != role && principal.Role != domain.AgentRoleAdmin {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}
