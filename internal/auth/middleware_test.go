package auth

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap/zaptest"

	"github.com/spec-kit/constituent-access/internal/domain"
	"github.com/spec-kit/constituent-access/internal/policy"
	"github.com/spec-kit/constituent-access/internal/testfixtures"
	apperrors "github.com/spec-kit/constituent-access/pkg/util/errorutil"
)

func newTestApp(t *testing.T, clock *testfixtures.Clock) (*fiber.App, *TokenVerifier) {
	t.Helper()
	profiles := stubProfiles{
		"s-1": officeProfile("s-1", domain.RoleStaffMember),
		"v-1": temporaryProfile("v-1", domain.RoleVolunteer, 1, 30),
	}
	settings := domain.NewOfficeSettings(testfixtures.OfficeID, testfixtures.RepresentativeID, "Office O", "5")
	resolver := NewResolver(ResolverDeps{
		Profiles: profiles,
		Policies: policy.Static{testfixtures.OfficeID: settings},
		Now:      clock.NowFunc(),
		Logger:   zaptest.NewLogger(t),
	})
	tokens := NewTokenVerifier(testIdentityConfig())
	mw := NewMiddleware(tokens, resolver)

	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		de := apperrors.ToDomainError(err)
		return c.Status(de.HTTPStatus).SendString(de.Code)
	}})
	app.Get("/me", mw.Handle, func(c *fiber.Ctx) error {
		p, err := MustPrincipal(c)
		if err != nil {
			return err
		}
		return c.SendString(p.ID + ":" + string(p.Role))
	})
	app.Post("/send", mw.Handle, RequirePermission(domain.PermCommunicationsApprove), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})
	app.Get("/company", mw.Handle, RequireFamily(domain.FamilyCompany), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})
	return app, tokens
}

func call(t *testing.T, app *fiber.App, method, path, token string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, strings.TrimSpace(string(body))
}

func sign(t *testing.T, tokens *TokenVerifier, id string) string {
	t.Helper()
	token, _, err := tokens.Sign(Identity{ID: id}, time.Hour)
	if err != nil {
		t.Fatalf("Sign returned error: %v", err)
	}
	return token
}

func TestMiddleware_ResolvesPrincipal(t *testing.T) {
	app, tokens := newTestApp(t, testfixtures.NewClock(testfixtures.Day(2)))

	status, body := call(t, app, http.MethodGet, "/me", sign(t, tokens, "s-1"))
	if status != http.StatusOK || body != "s-1:staff_member" {
		t.Fatalf("expected principal, got %d %q", status, body)
	}
}

func TestMiddleware_RejectsMissingAndInvalidTokens(t *testing.T) {
	app, _ := newTestApp(t, testfixtures.NewClock(testfixtures.Day(2)))

	if status, body := call(t, app, http.MethodGet, "/me", ""); status != http.StatusUnauthorized || body != "UNAUTHORIZED" {
		t.Fatalf("expected 401, got %d %q", status, body)
	}
	if status, _ := call(t, app, http.MethodGet, "/me", "garbage"); status != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", status)
	}
}

func TestMiddleware_ExpiredAndUnknownPrincipals(t *testing.T) {
	clock := testfixtures.NewClock(testfixtures.Day(31))
	app, tokens := newTestApp(t, clock)

	if status, body := call(t, app, http.MethodGet, "/me", sign(t, tokens, "v-1")); status != http.StatusUnauthorized || body != "ACCESS_EXPIRED" {
		t.Fatalf("expected ACCESS_EXPIRED, got %d %q", status, body)
	}
	if status, body := call(t, app, http.MethodGet, "/me", sign(t, tokens, "nobody")); status != http.StatusUnauthorized || body != "SESSION_INVALID" {
		t.Fatalf("expected SESSION_INVALID, got %d %q", status, body)
	}
}

func TestGuards(t *testing.T) {
	app, tokens := newTestApp(t, testfixtures.NewClock(testfixtures.Day(2)))
	token := sign(t, tokens, "s-1")

	if status, body := call(t, app, http.MethodPost, "/send", token); status != http.StatusForbidden || body != "FORBIDDEN" {
		t.Fatalf("staff member lacks approve, got %d %q", status, body)
	}
	if status, _ := call(t, app, http.MethodGet, "/company", token); status != http.StatusForbidden {
		t.Fatalf("office role is not company family, got %d", status)
	}
}
