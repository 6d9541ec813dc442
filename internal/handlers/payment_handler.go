package handlers

import (
	"errors"

	"jengamart/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// PaymentHandler handles checkout and payment reads.
type PaymentHandler struct {
	service  *services.PaymentService
	validate *validator.Validate
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(service *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{service: service, validate: validator.New()}
}

// RegisterRoutes registers the payment routes behind auth.
func (h *PaymentHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	paymentRoutes := router.Group("/payments", auth)
	paymentRoutes.Get("/", h.HandleListPayments)
	paymentRoutes.Get("/:id", h.HandleGetPayment)
	paymentRoutes.Post("/", h.HandleCheckout)
}

// CheckoutRequest is the body of POST /payments.
type CheckoutRequest struct {
	OrderID  string `json:"order_id" validate:"required"`
	Provider string `json:"provider" validate:"required"`
	Phone    string `json:"phone" validate:"required"`
}

// HandleCheckout records a pending payment and asks the provider to collect it. When the
// provider cannot be reached the payment is still created and the response is 202.
func (h *PaymentHandler) HandleCheckout(c *fiber.Ctx) error {
	var req CheckoutRequest
	if ok, err := parseAndValidate(c, h.validate, &req); !ok {
		return err
	}

	result, err := h.service.Checkout(c.UserContext(), callerOf(c), services.CheckoutInput{
		OrderID:  req.OrderID,
		Provider: req.Provider,
		Phone:    req.Phone,
	})
	if err != nil {
		if errors.Is(err, services.ErrGateway) && result != nil {
			return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
				"payment":       result.Payment,
				"gateway_error": err.Error(),
			})
		}
		return respondError(c, err, "Could not start payment")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"payment": result.Payment,
		"receipt": result.Receipt,
	})
}

// HandleListPayments lists the payments visible to the caller.
func (h *PaymentHandler) HandleListPayments(c *fiber.Ctx) error {
	payments, err := h.service.List(c.UserContext(), callerOf(c))
	if err != nil {
		return respondError(c, err, "Could not retrieve payments")
	}
	return c.JSON(payments)
}

// HandleGetPayment retrieves one payment.
func (h *PaymentHandler) HandleGetPayment(c *fiber.Ctx) error {
	payment, err := h.service.Get(c.UserContext(), callerOf(c), c.Params("id"))
	if err != nil {
		return respondError(c, err, "Could not retrieve payment")
	}
	return c.JSON(payment)
}
