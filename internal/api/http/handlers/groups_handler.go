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

// GroupsHandler exposes constituent group endpoints.
type GroupsHandler struct {
	service *service.GroupService
}

// NewGroupsHandler constructs handler.
func NewGroupsHandler(groupService *service.GroupService) *GroupsHandler {
	return &GroupsHandler{service: groupService}
}

// Create handles POST /groups.
func (h *GroupsHandler) Create(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.GroupRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	group, err := h.service.Create(c.UserContext(), principal, groupInput(req))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": group})
}

// List handles GET /groups. A district query narrows to one district.
func (h *GroupsHandler) List(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	opts := parseListOptions(c)
	var groups []*domain.ConstituentGroup
	if district := c.Query("district"); district != "" {
		groups, err = h.service.ByDistrict(c.UserContext(), principal, district, opts)
	} else {
		groups, err = h.service.List(c.UserContext(), principal, domain.GroupType(c.Query("type")), opts)
	}
	if err != nil {
		return err
	}
	return c.JSON(listResponse(groups, opts))
}

// Export handles GET /groups/export.
func (h *GroupsHandler) Export(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	opts := parseListOptions(c)
	groups, err := h.service.Export(c.UserContext(), principal, opts)
	if err != nil {
		return err
	}
	return c.JSON(listResponse(groups, opts))
}

// Get handles GET /groups/:id.
func (h *GroupsHandler) Get(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	group, err := h.service.Get(c.UserContext(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": group})
}

// Update handles PUT /groups/:id.
func (h *GroupsHandler) Update(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.GroupRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	group, err := h.service.Update(c.UserContext(), principal, c.Params("id"), groupInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": group})
}

// Delete handles DELETE /groups/:id.
func (h *GroupsHandler) Delete(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), principal, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// AddMember handles POST /groups/:id/members.
func (h *GroupsHandler) AddMember(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.MemberRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	group, err := h.service.AddMember(c.UserContext(), principal, c.Params("id"), req.MemberID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": group})
}

// RemoveMember handles DELETE /groups/:id/members/:memberId.
func (h *GroupsHandler) RemoveMember(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	group, err := h.service.RemoveMember(c.UserContext(), principal, c.Params("id"), c.Params("memberId"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": group})
}

func groupInput(req dto.GroupRequest) service.GroupInput {
	return service.GroupInput{
		Name:        req.Name,
		Description: req.Description,
		Type:        req.Type,
		Visibility:  req.Visibility,
		Settings:    req.Settings,
		Metadata:    req.Metadata,
		Members:     req.Members,
		Moderators:  req.Moderators,
	}
}
