package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/constituent-access/internal/domain"
)

// RequireFamily ensures the principal's role belongs to one of the families.
func RequireFamily(allowed ...domain.RoleFamily) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		for _, f := range allowed {
			if principal.Family() == f {
				return c.Next()
			}
		}
		return fiber.NewError(http.StatusForbidden, "role family not allowed")
	}
}

// RequirePermission rejects principals lacking any of perms before the
// handler runs. The gateway still evaluates every operation; this only
// short-circuits requests that can never succeed.
func RequirePermission(perms ...domain.Permission) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		for _, perm := range perms {
			if !principal.Has(perm) {
				return fiber.NewError(http.StatusForbidden, "missing permission "+perm.String())
			}
		}
		return c.Next()
	}
}

// RequireAnyRole ensures the caller is authenticated.
func RequireAnyRole() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		return c.Next()
	}
}
