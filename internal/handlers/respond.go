package handlers

import (
	"errors"
	"fmt"
	"log"

	"jengamart/internal/middleware"
	"jengamart/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// statusFor maps a service error onto an HTTP status and the sentinel it matched.
func statusFor(err error) (int, error) {
	switch {
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrInvalidState),
		errors.Is(err, services.ErrInvalidProvider), errors.Is(err, services.ErrInvalidCredentials):
		return fiber.StatusBadRequest, kindOf(err)
	case errors.Is(err, services.ErrNotFound):
		return fiber.StatusNotFound, services.ErrNotFound
	case errors.Is(err, services.ErrConflict):
		return fiber.StatusConflict, services.ErrConflict
	case errors.Is(err, services.ErrPermissionDenied):
		return fiber.StatusForbidden, services.ErrPermissionDenied
	case errors.Is(err, services.ErrInvalidToken), errors.Is(err, services.ErrInvalidSignature):
		return fiber.StatusUnauthorized, kindOf(err)
	case errors.Is(err, services.ErrGateway):
		return fiber.StatusBadGateway, services.ErrGateway
	}
	return fiber.StatusInternalServerError, errors.New("internal error")
}

func kindOf(err error) error {
	for _, kind := range []error{
		services.ErrValidation, services.ErrInvalidState, services.ErrInvalidProvider,
		services.ErrInvalidCredentials, services.ErrInvalidToken, services.ErrInvalidSignature,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return err
}

// respondError writes the standard error body. Internal errors are logged and their text is
// not exposed.
func respondError(c *fiber.Ctx, err error, message string) error {
	status, kind := statusFor(err)
	detail := err.Error()
	if status == fiber.StatusInternalServerError {
		log.Printf("%s: %v", message, err)
		detail = message
	}
	return c.Status(status).JSON(fiber.Map{
		"message": message,
		"error":   kind.Error(),
		"detail":  detail,
	})
}

// respondErrorAs is respondError with a fixed status, for endpoints whose contract overrides
// the default mapping.
func respondErrorAs(c *fiber.Ctx, status int, err error, message string) error {
	_, kind := statusFor(err)
	return c.Status(status).JSON(fiber.Map{
		"message": message,
		"error":   kind.Error(),
		"detail":  err.Error(),
	})
}

func badBody(c *fiber.Ctx, err error) error {
	log.Printf("Error parsing request body: %v", err)
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Invalid request body",
		"error":   err.Error(),
		"detail":  "Invalid request body",
	})
}

// parseAndValidate binds the JSON body into req and runs the struct validator. On failure it
// writes the 400 response itself and returns false.
func parseAndValidate(c *fiber.Ctx, v *validator.Validate, req interface{}) (bool, error) {
	if err := c.BodyParser(req); err != nil {
		return false, badBody(c, err)
	}
	if err := v.Struct(req); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return false, badBody(c, err)
		}
		errorMessages := make(map[string]string)
		for _, e := range validationErrors {
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  errorMessages,
			"detail":  "Validation failed",
		})
	}
	return true, nil
}

// callerOf returns the authenticated caller. Routes using it sit behind AuthRequired.
func callerOf(c *fiber.Ctx) services.Caller {
	caller, _ := middleware.CallerFrom(c)
	return caller
}
