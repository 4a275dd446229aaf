package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/mailroom/internal/api/dto"
	"github.com/spec-kit/mailroom/internal/auth"
	"github.com/spec-kit/mailroom/internal/service"
	apperrors "github.com/spec-kit/mailroom/pkg/util"
)

// AuthHandler serves login and the current-agent endpoint.
type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(authSvc *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authSvc}
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password are required", nil)
	}

	result, err := h.auth.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(dto.LoginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		Agent:     dto.NewAgentResponse(result.Agent),
	})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	principal := auth.PrincipalFrom(c)
	if principal == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	agent, err := h.auth.CurrentAgent(c.Context(), principal.AgentID)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewAgentResponse(agent))
}
