package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/constituent-access/internal/api/dto"
	"github.com/spec-kit/constituent-access/internal/auth"
	"github.com/spec-kit/constituent-access/internal/domain"
	"github.com/spec-kit/constituent-access/internal/service"
	apperrors "github.com/spec-kit/constituent-access/pkg/util/errorutil"
)

// CommunicationsHandler exposes the communication workflow.
type CommunicationsHandler struct {
	service *service.CommunicationService
}

// NewCommunicationsHandler constructs handler.
func NewCommunicationsHandler(communicationService *service.CommunicationService) *CommunicationsHandler {
	return &CommunicationsHandler{service: communicationService}
}

// Create handles POST /communications.
func (h *CommunicationsHandler) Create(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateCommunicationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	comm, err := h.service.CreateDraft(c.UserContext(), principal, service.DraftInput{
		Type:             req.Type,
		Channel:          req.Channel,
		Subject:          req.Subject,
		Content:          req.Content,
		RecipientID:      req.RecipientID,
		RecipientGroupID: req.RecipientGroupID,
		Visibility:       req.Visibility,
		Metadata:         req.Metadata,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": communicationResponse(comm)})
}

// SubmitInbound handles POST /communications/inbound.
func (h *CommunicationsHandler) SubmitInbound(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.InboundRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	comm, err := h.service.SubmitInbound(c.UserContext(), principal, service.InboundInput{
		Channel: req.Channel,
		Subject: req.Subject,
		Content: req.Content,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": communicationResponse(comm)})
}

// List handles GET /communications.
func (h *CommunicationsHandler) List(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	filter := service.CommunicationFilter{
		Type:      domain.CommunicationType(c.Query("type")),
		Direction: domain.Direction(c.Query("direction")),
		Channel:   domain.Channel(c.Query("channel")),
		Status:    domain.CommunicationStatus(c.Query("status")),
		District:  c.Query("district"),
	}
	opts := parseListOptions(c)
	comms, err := h.service.List(c.UserContext(), principal, filter, opts)
	if err != nil {
		return err
	}
	return c.JSON(listResponse(communicationResponses(comms), opts))
}

// Drafts handles GET /communications/drafts.
func (h *CommunicationsHandler) Drafts(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	opts := parseListOptions(c)
	comms, err := h.service.Drafts(c.UserContext(), principal, opts)
	if err != nil {
		return err
	}
	return c.JSON(listResponse(communicationResponses(comms), opts))
}

// Scheduled handles GET /communications/scheduled.
func (h *CommunicationsHandler) Scheduled(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	opts := parseListOptions(c)
	comms, err := h.service.Scheduled(c.UserContext(), principal, opts)
	if err != nil {
		return err
	}
	return c.JSON(listResponse(communicationResponses(comms), opts))
}

// Get handles GET /communications/:id.
func (h *CommunicationsHandler) Get(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	comm, err := h.service.Get(c.UserContext(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": communicationResponse(comm)})
}

// Update handles PATCH /communications/:id.
func (h *CommunicationsHandler) Update(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.UpdateCommunicationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	comm, err := h.service.Update(c.UserContext(), principal, c.Params("id"), service.CommunicationUpdate{
		Subject:    req.Subject,
		Content:    req.Content,
		Channel:    req.Channel,
		Visibility: req.Visibility,
		Metadata:   req.Metadata,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": communicationResponse(comm)})
}

// Delete handles DELETE /communications/:id.
func (h *CommunicationsHandler) Delete(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), principal, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Schedule handles POST /communications/:id/schedule.
func (h *CommunicationsHandler) Schedule(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.ScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	comm, err := h.service.Schedule(c.UserContext(), principal, c.Params("id"), req.ScheduledFor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": communicationResponse(comm)})
}

// Approve handles POST /communications/:id/approve.
func (h *CommunicationsHandler) Approve(c *fiber.Ctx) error {
	return h.transition(c, h.service.Approve)
}

// Send handles POST /communications/:id/send.
func (h *CommunicationsHandler) Send(c *fiber.Ctx) error {
	return h.transition(c, h.service.Send)
}

// Cancel handles POST /communications/:id/cancel.
func (h *CommunicationsHandler) Cancel(c *fiber.Ctx) error {
	return h.transition(c, h.service.Cancel)
}

type transitionFunc func(ctx context.Context, p *domain.Principal, id string) (*domain.Communication, error)

func (h *CommunicationsHandler) transition(c *fiber.Ctx, fn transitionFunc) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	comm, err := fn(c.UserContext(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": communicationResponse(comm)})
}

func communicationResponses(comms []*domain.Communication) []dto.CommunicationResponse {
	items := make([]dto.CommunicationResponse, 0, len(comms))
	for _, comm := range comms {
		items = append(items, communicationResponse(comm))
	}
	return items
}

func communicationResponse(comm *domain.Communication) dto.CommunicationResponse {
	return dto.CommunicationResponse{
		ID:               comm.ID,
		OfficeID:         comm.OfficeID,
		SenderID:         comm.SenderID,
		SenderRole:       comm.SenderRole,
		RecipientID:      comm.RecipientID,
		RecipientGroupID: comm.RecipientGroupID,
		Type:             comm.Type,
		Direction:        comm.Direction,
		Channel:          comm.Channel,
		Subject:          comm.Subject,
		Content:          comm.Content,
		Status:           comm.Status,
		Visibility:       comm.Visibility,
		ScheduledFor:     comm.ScheduledFor,
		SentAt:           comm.SentAt,
		ApprovedBy:       comm.ApprovedBy,
		ApprovedAt:       comm.ApprovedAt,
		Metadata:         comm.Metadata,
		Stats:            comm.Stats,
		Version:          comm.Version,
		CreatedAt:        comm.CreatedAt,
		UpdatedAt:        comm.UpdatedAt,
	}
}
