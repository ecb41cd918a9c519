package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap/zaptest"

	"github.com/spec-kit/constituent-access/internal/observability"
	"github.com/spec-kit/constituent-access/internal/store"
)

func TestErrorHandling_StoreOutageIsRetryable(t *testing.T) {
	app := fiber.New()
	RegisterMiddlewares(app, zaptest.NewLogger(t), nil, 0)
	app.Get("/boom", func(c *fiber.Ctx) error {
		return fmt.Errorf("load settings: %w", store.ErrStoreUnavailable)
	})
	app.Get("/panic", func(c *fiber.Ctx) error {
		panic("unexpected")
	})

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(observability.RequestIDHeader, "req-1")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") != "1" {
		t.Fatalf("expected Retry-After, got %q", resp.Header.Get("Retry-After"))
	}
	if resp.Header.Get(observability.RequestIDHeader) != "req-1" {
		t.Fatalf("request id not echoed")
	}
	var body struct {
		Error struct {
			Code      string         `json:"code"`
			RequestID string         `json:"request_id"`
			Details   map[string]any `json:"details"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != "STORE_UNAVAILABLE" || body.Error.RequestID != "req-1" || body.Error.Details["retryable"] != true {
		t.Fatalf("unexpected envelope %+v", body.Error)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/panic", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected recovered panic to be 500, got %d", resp.StatusCode)
	}
}
