package httpapi

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/kelly-eugenia/weather-forecast/internal/forecast"
	"github.com/kelly-eugenia/weather-forecast/internal/registry"
	"github.com/kelly-eugenia/weather-forecast/internal/store"
)

// toHTTPError maps domain errors to a status code, keeping the message.
func toHTTPError(err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe
	}

	code := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, forecast.ErrInvalidDateRange):
		code = fiber.StatusBadRequest
	case errors.Is(err, store.ErrNoHistory):
		code = fiber.StatusUnprocessableEntity
	case errors.Is(err, registry.ErrModelNotFound):
		code = fiber.StatusServiceUnavailable
	}
	return fiber.NewError(code, err.Error())
}

// ErrorHandler renders every error as {"error": true, "message": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}
