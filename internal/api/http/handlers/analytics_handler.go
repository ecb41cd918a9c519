package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/constituent-access/internal/api/dto"
	"github.com/spec-kit/constituent-access/internal/auth"
	"github.com/spec-kit/constituent-access/internal/domain"
	"github.com/spec-kit/constituent-access/internal/service"
	apperrors "github.com/spec-kit/constituent-access/pkg/util/errorutil"
)

// AnalyticsHandler exposes aggregate reports.
type AnalyticsHandler struct {
	service *service.AnalyticsService
}

// NewAnalyticsHandler constructs handler.
func NewAnalyticsHandler(analyticsService *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{service: analyticsService}
}

// Record handles POST /analytics.
func (h *AnalyticsHandler) Record(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.RecordAnalyticsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	report, err := h.service.Record(c.UserContext(), principal, service.AnalyticsInput{
		Type:     req.Type,
		Period:   req.Period,
		Data:     req.Data,
		Metadata: req.Metadata,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": report})
}

// List handles GET /analytics?period=.
func (h *AnalyticsHandler) List(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	opts := parseListOptions(c)
	reports, err := h.service.ByPeriod(c.UserContext(), principal, domain.AnalyticsPeriod(c.Query("period")), opts)
	if err != nil {
		return err
	}
	return c.JSON(listResponse(reports, opts))
}

// Export handles GET /analytics/export.
func (h *AnalyticsHandler) Export(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	opts := parseListOptions(c)
	reports, err := h.service.Export(c.UserContext(), principal, opts)
	if err != nil {
		return err
	}
	return c.JSON(listResponse(reports, opts))
}

// Get handles GET /analytics/:id.
func (h *AnalyticsHandler) Get(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	report, err := h.service.Get(c.UserContext(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": report})
}
