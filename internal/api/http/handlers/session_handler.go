package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/constituent-access/internal/api/dto"
	"github.com/spec-kit/constituent-access/internal/auth"
	"github.com/spec-kit/constituent-access/internal/domain"
	"github.com/spec-kit/constituent-access/internal/service"
)

// SessionHandler describes the caller and its office audit trail.
type SessionHandler struct {
	audit *service.AuditService
}

// NewSessionHandler constructs handler.
func NewSessionHandler(audit *service.AuditService) *SessionHandler {
	return &SessionHandler{audit: audit}
}

// Me handles GET /me.
func (h *SessionHandler) Me(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": principalResponse(principal)})
}

// Audit handles GET /audit?limit=.
func (h *SessionHandler) Audit(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	entries, err := h.audit.Recent(c.UserContext(), principal, int64(parseIntQuery(c, "limit", 50)))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": entries})
}

func principalResponse(p *domain.Principal) dto.PrincipalResponse {
	resp := dto.PrincipalResponse{
		ID:               p.ID,
		Role:             p.Role,
		Family:           p.Family().String(),
		OfficeID:         p.OfficeID,
		RepresentativeID: p.ScopeID(),
		District:         p.District,
		Permissions:      p.Permissions.Names(),
		SupervisorID:     p.SupervisorID,
	}
	if p.Role.RequiresWindow() {
		start := p.Window.Start
		resp.WindowStart = &start
		resp.WindowEnd = p.Window.End
	}
	if p.Family() == domain.FamilyTemporary {
		resp.Restrictions = &dto.RestrictionsResponse{
			Permissions: p.Restrictions.Permissions.Names(),
			Channels:    p.Restrictions.Channels,
		}
	}
	return resp
}
