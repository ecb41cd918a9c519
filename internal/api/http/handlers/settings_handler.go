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

// SettingsHandler exposes office settings endpoints.
type SettingsHandler struct {
	service *service.SettingsService
}

// NewSettingsHandler constructs handler.
func NewSettingsHandler(settingsService *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{service: settingsService}
}

// Provision handles POST /settings.
func (h *SettingsHandler) Provision(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.ProvisionOfficeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	settings, err := h.service.Provision(c.UserContext(), principal, service.ProvisionInput{
		OfficeID:         req.OfficeID,
		RepresentativeID: req.RepresentativeID,
		Name:             req.Name,
		District:         req.District,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": settings})
}

// List handles GET /settings.
func (h *SettingsHandler) List(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	opts := parseListOptions(c)
	settings, err := h.service.List(c.UserContext(), principal, opts)
	if err != nil {
		return err
	}
	return c.JSON(listResponse(settings, opts))
}

// Get handles GET /settings/:officeId.
func (h *SettingsHandler) Get(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	settings, err := h.service.Get(c.UserContext(), principal, c.Params("officeId"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": settings})
}

// Update handles PATCH /settings/:officeId.
func (h *SettingsHandler) Update(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.UpdateSettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	settings, err := h.service.Update(c.UserContext(), principal, c.Params("officeId"), service.SettingsUpdate{
		Name:                  req.Name,
		District:              req.District,
		WorkflowSettings:      req.WorkflowSettings,
		CommunicationDefaults: req.CommunicationDefaults,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": settings})
}

// UpdateStaffing handles PUT /settings/:officeId/staffing.
func (h *SettingsHandler) UpdateStaffing(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	var req domain.StaffManagement
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	settings, err := h.service.UpdateStaffing(c.UserContext(), principal, c.Params("officeId"), req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": settings})
}
