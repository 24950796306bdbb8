package server

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/mr-karan/noticeboard/pkg/models"
)

// validate checks request payloads against the constraints declared on
// the model structs.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report field names as they appear on the wire.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return v
}

// parseBody decodes a JSON payload into dst and validates it. The
// returned error has already been written to the response.
func parseBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return SendErrorWithType(c, fiber.StatusBadRequest, "Invalid request body", models.ValidationErrorType)
	}
	if err := validate.Struct(dst); err != nil {
		return SendErrorWithType(c, fiber.StatusBadRequest, validationMessage(err), models.ValidationErrorType)
	}
	return nil
}

// validationMessage renders the first violation as a client-facing
// message.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request body"
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Field %s is required", fe.Field())
	case "email":
		return fmt.Sprintf("Field %s must be a valid email address", fe.Field())
	case "oneof":
		return fmt.Sprintf("Field %s must be one of: %s", fe.Field(), fe.Param())
	case "min", "max":
		return fmt.Sprintf("Field %s is out of range", fe.Field())
	default:
		return fmt.Sprintf("Field %s is invalid", fe.Field())
	}
}
