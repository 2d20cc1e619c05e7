package middleware

import (
	"errors"
	"strings"

	"mailassist/utils"

	"github.com/gofiber/fiber/v2"
)

// IsAPIRequest reports whether the response should be JSON rather than a
// rendered page
func IsAPIRequest(c *fiber.Ctx) bool {
	if c == nil {
		return false
	}
	if c.Get("HX-Request") != "" {
		return true
	}
	return strings.HasPrefix(c.Path(), "/api")
}

// ErrorHandler is the fiber error handler. AppErrors keep their status
// code; only their message is shown to the client.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := utils.T(Localizer(c), "error_500")

	var fe *fiber.Error
	if appErr, ok := utils.AsAppError(err); ok {
		code = appErr.Code
		message = appErr.Message
		if code >= 500 {
			utils.Log.WithError(err).Error("Application error: %s", appErr.Message)
		} else {
			utils.Log.Debug("Request rejected: %v", appErr)
		}
	} else if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	} else {
		utils.Log.WithError(err).Error("Unhandled error on %s", c.Path())
	}

	if IsAPIRequest(c) {
		return c.Status(code).JSON(fiber.Map{
			"error": message,
		})
	}

	return c.Status(code).Render("error", fiber.Map{
		"Error":     message,
		"Code":      code,
		"Localizer": Localizer(c),
		"Lang":      Lang(c),
	})
}
