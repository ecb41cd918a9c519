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

// StaffHandler exposes office staff management endpoints.
type StaffHandler struct {
	staffService *service.StaffService
}

// NewStaffHandler constructs handler.
func NewStaffHandler(staffService *service.StaffService) *StaffHandler {
	return &StaffHandler{staffService: staffService}
}

// Invite handles POST /staff/members.
func (h *StaffHandler) Invite(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.InviteStaffRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	profile, err := h.staffService.InviteStaff(c.UserContext(), principal, service.InviteInput{
		UserID:      req.UserID,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Role:        req.Role,
		Permissions: req.Permissions,
		Department:  req.Department,
		Title:       req.Title,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": staffResponse(profile)})
}

// Admit handles POST /staff/temporary.
func (h *StaffHandler) Admit(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.AdmitStaffRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	profile, err := h.staffService.AdmitTemporaryStaff(c.UserContext(), principal, service.AdmitInput{
		UserID:       req.UserID,
		Email:        req.Email,
		DisplayName:  req.DisplayName,
		Role:         req.Role,
		Start:        req.StartDate,
		End:          req.EndDate,
		SupervisorID: req.SupervisorID,
		Campaign:     req.Campaign,
		Permissions:  req.Permissions,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": staffResponse(profile)})
}

// List handles GET /staff/members?role=.
func (h *StaffHandler) List(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	opts := parseListOptions(c)
	profiles, err := h.staffService.ListStaff(c.UserContext(), principal, c.Query("role"), opts)
	if err != nil {
		return err
	}
	return c.JSON(listResponse(staffResponses(profiles), opts))
}

// ActiveTemporary handles GET /staff/temporary.
func (h *StaffHandler) ActiveTemporary(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	profiles, err := h.staffService.ListActiveTemporary(c.UserContext(), principal)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": staffResponses(profiles)})
}

// Get handles GET /staff/members/:id.
func (h *StaffHandler) Get(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	profile, err := h.staffService.GetStaff(c.UserContext(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": staffResponse(profile)})
}

// UpdatePermissions handles PATCH /staff/members/:id/permissions.
func (h *StaffHandler) UpdatePermissions(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.PermissionChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	profile, err := h.staffService.UpdatePermissions(c.UserContext(), principal, c.Params("id"), service.PermissionChange{
		Grant:  req.Grant,
		Revoke: req.Revoke,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": staffResponse(profile)})
}

// EndAccess handles POST /staff/members/:id/end.
func (h *StaffHandler) EndAccess(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	profile, err := h.staffService.EndTemporaryAccess(c.UserContext(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": staffResponse(profile)})
}

// Remove handles DELETE /staff/members/:id.
func (h *StaffHandler) Remove(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	if err := h.staffService.RemoveStaff(c.UserContext(), principal, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func staffResponses(profiles []*domain.UserProfile) []dto.StaffResponse {
	resp := make([]dto.StaffResponse, 0, len(profiles))
	for _, profile := range profiles {
		resp = append(resp, staffResponse(profile))
	}
	return resp
}

func staffResponse(profile *domain.UserProfile) dto.StaffResponse {
	return dto.StaffResponse{
		ID:                 profile.ID,
		Email:              profile.Email,
		DisplayName:        profile.DisplayName,
		Role:               profile.Role,
		EmploymentType:     string(profile.EmploymentType),
		OfficeID:           profile.OfficeID,
		Permissions:        profile.Permissions,
		RevokedPermissions: profile.RevokedPermissions,
		Employment:         profile.Employment,
		GrantedBy:          profile.GrantedBy,
		CreatedAt:          profile.CreatedAt,
		UpdatedAt:          profile.UpdatedAt,
	}
}
