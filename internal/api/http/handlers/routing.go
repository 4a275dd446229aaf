package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/mailroom/internal/api/dto"
	"github.com/spec-kit/mailroom/internal/auth"
	"github.com/spec-kit/mailroom/internal/domain"
	"github.com/spec-kit/mailroom/internal/service"
	apperrors "github.com/spec-kit/mailroom/pkg/util"
)

// RoutingHandler serves the admin endpoints for rules, queues, and mailboxes.
type RoutingHandler struct {
	admin *service.RoutingAdminService
}

func NewRoutingHandler(admin *service.RoutingAdminService) *RoutingHandler {
	return &RoutingHandler{admin: admin}
}

func (h *RoutingHandler) ListRules(c *fiber.Ctx) error {
	principal := auth.PrincipalFrom(c)
	rules, err := h.admin.ListRules(c.Context(), principal.TenantID)
	if err != nil {
		return err
	}
	result := make([]dto.RoutingRuleResponse, 0, len(rules))
	for i := range rules {
		result = append(result, dto.NewRoutingRuleResponse(&rules[i]))
	}
	return c.JSON(result)
}

func (h *RoutingHandler) CreateRule(c *fiber.Ctx) error {
	principal := auth.PrincipalFrom(c)
	var req dto.RoutingRuleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	rule, err := h.admin.CreateRule(c.Context(), req.ToDomain(principal.TenantID))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewRoutingRuleResponse(rule))
}

func (h *RoutingHandler) UpdateRule(c *fiber.Ctx) error {
	principal := auth.PrincipalFrom(c)
	var req dto.RoutingRuleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	rule := req.ToDomain(principal.TenantID)
	rule.ID = c.Params("id")
	updated, err := h.admin.UpdateRule(c.Context(), rule)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewRoutingRuleResponse(updated))
}

func (h *RoutingHandler) DeleteRule(c *fiber.Ctx) error {
	principal := auth.PrincipalFrom(c)
	if err := h.admin.DeleteRule(c.Context(), principal.TenantID, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *RoutingHandler) ListQueues(c *fiber.Ctx) error {
	principal := auth.PrincipalFrom(c)
	queues, err := h.admin.ListQueues(c.Context(), principal.TenantID)
	if err != nil {
		return err
	}
	result := make([]dto.QueueResponse, 0, len(queues))
	for i := range queues {
		result = append(result, dto.NewQueueResponse(&queues[i]))
	}
	return c.JSON(result)
}

func (h *RoutingHandler) CreateQueue(c *fiber.Ctx) error {
	principal := auth.PrincipalFrom(c)
	var req dto.QueueRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	queue, err := h.admin.CreateQueue(c.Context(), &domain.Queue{
		TenantID:  principal.TenantID,
		Name:      req.Name,
		IsDefault: req.IsDefault,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewQueueResponse(queue))
}

func (h *RoutingHandler) UpdateQueue(c *fiber.Ctx) error {
	principal := auth.PrincipalFrom(c)
	var req dto.QueueRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	queue, err := h.admin.UpdateQueue(c.Context(), &domain.Queue{
		ID:        c.Params("id"),
		TenantID:  principal.TenantID,
		Name:      req.Name,
		IsDefault: req.IsDefault,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.NewQueueResponse(queue))
}

func (h *RoutingHandler) ListMailboxes(c *fiber.Ctx) error {
	principal := auth.PrincipalFrom(c)
	mailboxes, err := h.admin.ListMailboxes(c.Context(), principal.TenantID)
	if err != nil {
		return err
	}
	result := make([]dto.MailboxResponse, 0, len(mailboxes))
	for i := range mailboxes {
		result = append(result, dto.NewMailboxResponse(&mailboxes[i]))
	}
	return c.JSON(result)
}

func (h *RoutingHandler) CreateMailbox(c *fiber.Ctx) error {
	principal := auth.PrincipalFrom(c)
	var req dto.MailboxRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	mailbox, err := h.admin.CreateMailbox(c.Context(), req.ToDomain(principal.TenantID))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewMailboxResponse(mailbox))
}

func (h *RoutingHandler) UpdateMailbox(c *fiber.Ctx) error {
	principal := auth.PrincipalFrom(c)
	var req dto.MailboxRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	mailbox := req.ToDomain(principal.TenantID)
	mailbox.ID = c.Params("id")
	updated, err := h.admin.UpdateMailbox(c.Context(), mailbox)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewMailboxResponse(updated))
}
