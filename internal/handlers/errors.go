package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/example/comegetit/internal/services"
)

// statusForCode maps stable service error codes to HTTP statuses.
var statusForCode = map[string]int{
	"VALIDATION_ERROR":     fiber.StatusBadRequest,
	"UNAUTHORIZED":         fiber.StatusUnauthorized,
	"FORBIDDEN":            fiber.StatusForbidden,
	"TOKEN_NOT_FOUND":      fiber.StatusNotFound,
	"REDEMPTION_NOT_FOUND": fiber.StatusNotFound,
	"VENUE_NOT_FOUND":      fiber.StatusNotFound,
	"TOKEN_EXPIRED":        fiber.StatusGone,
	"TOKEN_ALREADY_USED":   fiber.StatusConflict,
	"INVALID_STATE":        fiber.StatusConflict,
	"RATE_LIMITED":         fiber.StatusTooManyRequests,
}

// respondServiceError renders an expected service failure with its stable
// code. Anything that is not a *services.Error is an infrastructure failure:
// it is logged with context and surfaced as an opaque 500.
func respondServiceError(c *fiber.Ctx, err error) error {
	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		status, ok := statusForCode[svcErr.Code]
		if !ok {
			status = fiber.StatusInternalServerError
		}
		return c.Status(status).JSON(fiber.Map{
			"success": false,
			"error":   svcErr.Code,
			"message": svcErr.Message,
		})
	}

	log.Printf("[HTTP] %s %s failed: %v", c.Method(), c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"error":   "INTERNAL",
		"message": "internal server error",
	})
}
