package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mr-karan/noticeboard/pkg/models"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// SendSuccess writes a success envelope with the given payload.
func SendSuccess(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(models.APIResponse{
		Status: statusSuccess,
		Data:   data,
	})
}

// SendError writes an error envelope with the general error type.
func SendError(c *fiber.Ctx, status int, message string) error {
	return SendErrorWithType(c, status, message, models.GeneralErrorType)
}

// SendErrorWithType writes an error envelope with an explicit error type
// so clients can branch on the category instead of the message text.
func SendErrorWithType(c *fiber.Ctx, status int, message string, errorType models.ErrorType) error {
	return c.Status(status).JSON(models.APIError{
		Status:    statusError,
		Message:   message,
		ErrorType: errorType,
	})
}
