package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/mailroom/internal/api/dto"
	"github.com/spec-kit/mailroom/internal/auth"
	"github.com/spec-kit/mailroom/internal/domain"
	"github.com/spec-kit/mailroom/internal/repository"
	"github.com/spec-kit/mailroom/internal/service"
	apperrors "github.com/spec-kit/mailroom/pkg/util"
)

// TicketHandler serves the agent-facing ticket endpoints.
type TicketHandler struct {
	tickets *service.TicketService
	auth    *service.AuthService
}

func NewTicketHandler(tickets *service.TicketService, authSvc *service.AuthService) *TicketHandler {
	return &TicketHandler{tickets: tickets, auth: authSvc}
}

func (h *TicketHandler) List(c *fiber.Ctx) error {
	principal := auth.PrincipalFrom(c)

	filter := repository.TicketFilter{
		Limit:  c.QueryInt("limit", 50),
		Offset: c.QueryInt("offset", 0),
	}
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.ToUpper(strings.TrimSpace(s))))
		}
	}
	if raw := c.Query("priority"); raw != "" {
		for _, p := range strings.Split(raw, ",") {
			filter.Priorities = append(filter.Priorities, domain.TicketPriority(strings.ToUpper(strings.TrimSpace(p))))
		}
	}
	if queueID := c.Query("queue_id"); queueID != "" {
		filter.QueueID = &queueID
	}
	if assignee := c.Query("assignee_id"); assignee != "" {
		filter.AssigneeID = &assignee
	}
	if term := c.Query("q"); term != "" {
		filter.SearchTerm = &term
	}

	tickets, err := h.tickets.List(c.Context(), principal.TenantID, filter)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketListResponse(tickets))
}

func (h *TicketHandler) Get(c *fiber.Ctx) error {
	principal := auth.PrincipalFrom(c)
	ticket, err := h.tickets.Get(c.Context(), principal.TenantID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponse(ticket))
}

func (h *TicketHandler) Messages(c *fiber.Ctx) error {
	principal := auth.PrincipalFrom(c)
	messages, err := h.tickets.Messages(c.Context(), principal.TenantID, c.Params("id"))
	if err != nil {
		return err
	}
	result := make([]dto.MessageResponse, 0, len(messages))
	for i := range messages {
		result = append(result, dto.NewMessageResponse(&messages[i]))
	}
	return c.JSON(result)
}

func (h *TicketHandler) Transition(c *fiber.Ctx) error {
	principal := auth.PrincipalFrom(c)
	var req dto.TransitionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	ticket, err := h.tickets.Transition(c.Context(), principal.TenantID, c.Params("id"),
		domain.TicketStatus(strings.ToUpper(string(req.Status))), principal.AgentID)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponse(ticket))
}

func (h *TicketHandler) Assign(c *fiber.Ctx) error {
	principal := auth.PrincipalFrom(c)
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	ticket, err := h.tickets.Assign(c.Context(), principal.TenantID, c.Params("id"), req.AgentID)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketResponse(ticket))
}

func (h *TicketHandler) Reply(c *fiber.Ctx) error {
	principal := auth.PrincipalFrom(c)
	var req dto.ReplyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	agent, err := h.auth.CurrentAgent(c.Context(), principal.AgentID)
	if err != nil {
		return err
	}
	message, err := h.tickets.Reply(c.Context(), principal.TenantID, c.Params("id"), agent, req.Body)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewMessageResponse(message))
}
