package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/constituent-access/internal/domain"
	apperrors "github.com/spec-kit/constituent-access/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Middleware verifies bearer tokens and resolves the caller's Principal once
// per request.
type Middleware struct {
	tokens   *TokenVerifier
	resolver *Resolver
}

// NewMiddleware constructs middleware.
func NewMiddleware(tokens *TokenVerifier, resolver *Resolver) *Middleware {
	return &Middleware{tokens: tokens, resolver: resolver}
}

// Handle enforces authentication for protected routes.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	identity, err := m.tokens.Verify(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	principal, err := m.resolver.Resolve(c.UserContext(), identity)
	if err != nil {
		return resolutionResponse(err)
	}

	c.Locals(principalKey, principal)
	return c.Next()
}

// resolutionResponse tells the client whether to sign in again or that its
// access window is over. Store failures keep their own mapping.
func resolutionResponse(err error) error {
	var re *ResolutionError
	if !errors.As(err, &re) {
		return err
	}
	switch re.Kind {
	case AccessExpired:
		return &apperrors.DomainError{
			Code:       "ACCESS_EXPIRED",
			Message:    "access expired",
			HTTPStatus: http.StatusUnauthorized,
			Details:    map[string]any{"kind": re.Kind.String()},
			Err:        err,
		}
	default:
		return &apperrors.DomainError{
			Code:       "SESSION_INVALID",
			Message:    "sign in again",
			HTTPStatus: http.StatusUnauthorized,
			Details:    map[string]any{"kind": re.Kind.String()},
			Err:        err,
		}
	}
}

// PrincipalFromContext retrieves the resolved principal.
func PrincipalFromContext(c *fiber.Ctx) (*domain.Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*domain.Principal)
	return principal, ok
}

// MustPrincipal returns the resolved principal or a 401 error.
func MustPrincipal(c *fiber.Ctx) (*domain.Principal, error) {
	principal, ok := PrincipalFromContext(c)
	if !ok || principal == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return principal, nil
}
