// Package http wires the fiber application: routes, middleware, handlers.
package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/mailroom/internal/api/dto"
	"github.com/spec-kit/mailroom/internal/observability"
	apperrors "github.com/spec-kit/mailroom/pkg/util"
)

// ErrorHandler maps returned errors onto the uniform error envelope. Wire it
// into fiber.Config so every handler can just return its error.
func ErrorHandler(logger *zap.Logger, metrics *observability.Metrics) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(dto.ErrorResponse{
				Code:    "HTTP_ERROR",
				Message: fiberErr.Message,
			})
		}

		domainErr := apperrors.ToDomainError(err)
		if domainErr.HTTPStatus >= fiber.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("code", domainErr.Code),
				zap.Error(err),
			)
		}
		metrics.RecordError(c.Path(), c.Method(), domainErr.Code)
		return c.Status(domainErr.HTTPStatus).JSON(dto.ErrorResponse{
			Code:    domainErr.Code,
			Message: domainErr.Message,
			Details: domainErr.Details,
		})
	}
}

// Recover converts handler panics into internal errors so the error handler
// can render them.
func Recover(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("handler panic",
					zap.String("path", c.Path()),
					zap.Any("panic", r),
				)
				err = apperrors.NewInternalError(fiber.ErrInternalServerError)
			}
		}()
		return c.Next()
	}
}
