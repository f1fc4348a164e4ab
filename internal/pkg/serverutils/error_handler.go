package serverutils

import (
	"errors"

	"ai-plantcare-be/internal/dto"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// ErrorHandlerMiddleware converts errors bubbled out of controllers into
// consistent JSON responses.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			return ctx.Status(fiber.StatusUnprocessableEntity).
				JSON(ErrorResponse("Validation failed", validationErr.Fields))
		}

		var limitErr *dto.LimitExceededError
		if errors.As(err, &limitErr) {
			return ctx.Status(fiber.StatusTooManyRequests).JSON(dto.LimitExceededResponse{
				Success:   false,
				Code:      fiber.StatusTooManyRequests,
				Message:   limitErr.Error(),
				ErrorType: "LIMIT_EXCEEDED",
				Data: dto.LimitExceededData{
					Limit:      limitErr.Limit,
					Used:       limitErr.Used,
					ResetAfter: limitErr.ResetAfter,
				},
			})
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).
				JSON(ErrorResponse(fiberErr.Message, nil))
		}

		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ctx.Status(fiber.StatusNotFound).
				JSON(ErrorResponse("Resource not found", nil))
		}

		return ctx.Status(fiber.StatusInternalServerError).
			JSON(ErrorResponse("Internal server error", nil))
	}
}
