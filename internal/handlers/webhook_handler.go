package handlers

import (
	"errors"
	"log"

	"jengamart/internal/services"

	"github.com/gofiber/fiber/v2"
)

// SignatureHeader carries the hex HMAC-SHA256 of the callback body.
const SignatureHeader = "X-Webhook-Signature"

// WebhookHandler receives payment provider callbacks.
type WebhookHandler struct {
	service *services.WebhookService
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(service *services.WebhookService) *WebhookHandler {
	return &WebhookHandler{service: service}
}

// RegisterRoutes registers the public webhook route.
func (h *WebhookHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/webhooks/payments", h.HandlePaymentCallback)
}

// HandlePaymentCallback settles the payment named by the callback's tx_ref.
func (h *WebhookHandler) HandlePaymentCallback(c *fiber.Ctx) error {
	// The body is copied because fasthttp reuses the request buffer after the handler returns.
	body := append([]byte(nil), c.Body()...)

	result, err := h.service.HandleCallback(c.UserContext(), body, c.Get(SignatureHeader))
	if err != nil {
		log.Printf("Payment callback rejected: %v", err)
		status := fiber.StatusInternalServerError
		message := "Callback processing failed"
		switch {
		case errors.Is(err, services.ErrInvalidSignature):
			status, message = fiber.StatusUnauthorized, "Invalid signature"
		case errors.Is(err, services.ErrNotFound):
			status, message = fiber.StatusNotFound, "Payment not found"
		case errors.Is(err, services.ErrValidation):
			status, message = fiber.StatusBadRequest, "Malformed callback"
		}
		return c.Status(status).JSON(fiber.Map{"ok": false, "error": message})
	}
	return c.JSON(fiber.Map{
		"ok":       true,
		"status":   result.Status,
		"replayed": result.Replayed,
	})
}
