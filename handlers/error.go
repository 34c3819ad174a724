package handlers

import (
	stderrors "errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"tubescribe/errors"
)

// NewErrorHandler builds the fiber error handler. AppError codes map to
// HTTP statuses; anything else is a 500 with a generic message.
func NewErrorHandler(log *logrus.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal Server Error"

		var appErr *errors.AppError
		var fiberErr *fiber.Error
		if stderrors.As(err, &appErr) {
			code = appErr.Code
			message = appErr.Message
		} else if stderrors.As(err, &fiberErr) {
			code = fiberErr.Code
			message = fiberErr.Message
		}

		log.WithFields(logrus.Fields{
			"request_id": c.Get("X-Request-ID"),
			"path":       c.Path(),
			"method":     c.Method(),
			"status":     code,
			"error":      err.Error(),
		}).Error("request error")

		return c.Status(code).JSON(fiber.Map{
			"success":    false,
			"error":      message,
			"request_id": c.Get("X-Request-ID"),
		})
	}
}
