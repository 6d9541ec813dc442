package middleware

import (
	"log"
	"strings"

	"jengamart/internal/services"

	"github.com/gofiber/fiber/v2"
)

const callerKey = "caller"

// AuthRequired is a Fiber middleware to check for a valid access token.
func AuthRequired(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header is required",
			})
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header format must be 'Bearer <token>'",
			})
		}

		caller, err := authService.Authenticate(strings.TrimSpace(parts[1]))
		if err != nil {
			log.Printf("JWT validation failed: %v", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid or expired token",
				"error":   err.Error(),
			})
		}

		c.Locals(callerKey, caller)
		return c.Next()
	}
}

// CallerFrom returns the principal stored by AuthRequired.
func CallerFrom(c *fiber.Ctx) (services.Caller, bool) {
	caller, ok := c.Locals(callerKey).(services.Caller)
	return caller, ok
}
