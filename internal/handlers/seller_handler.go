package handlers

import (
	"jengamart/internal/models"
	"jengamart/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// SellerHandler handles HTTP requests for seller profiles.
type SellerHandler struct {
	service  *services.SellerService
	validate *validator.Validate
}

// NewSellerHandler creates a new SellerHandler.
func NewSellerHandler(service *services.SellerService) *SellerHandler {
	return &SellerHandler{service: service, validate: validator.New()}
}

// RegisterRoutes registers the seller routes behind auth.
func (h *SellerHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	sellerRoutes := router.Group("/sellers", auth)
	sellerRoutes.Get("/", h.HandleListSellers)
	sellerRoutes.Post("/", h.HandleCreateSeller)
	sellerRoutes.Get("/:id", h.HandleGetSeller)
	sellerRoutes.Patch("/:id", h.HandleUpdateSeller)
	sellerRoutes.Delete("/:id", h.HandleDeleteSeller)
}

// SellerRequest is the body of seller create and update. On update every field is optional.
type SellerRequest struct {
	BusinessName   string           `json:"business_name" validate:"max=150"`
	TIN            *string          `json:"tin" validate:"omitempty,max=30"`
	Phone          string           `json:"phone" validate:"max=20"`
	Email          *string          `json:"email" validate:"omitempty,email"`
	PickupLocation *models.GeoPoint `json:"pickup_location"`
	Address        *string          `json:"address"`
}

func (r SellerRequest) input() services.SellerInput {
	return services.SellerInput{
		BusinessName:   r.BusinessName,
		TIN:            r.TIN,
		Phone:          r.Phone,
		Email:          r.Email,
		PickupLocation: r.PickupLocation,
		Address:        r.Address,
	}
}

// HandleListSellers lists the sellers visible to the caller.
func (h *SellerHandler) HandleListSellers(c *fiber.Ctx) error {
	sellers, err := h.service.List(c.UserContext(), callerOf(c))
	if err != nil {
		return respondError(c, err, "Could not retrieve sellers")
	}
	return c.JSON(sellers)
}

// HandleGetSeller retrieves one seller.
func (h *SellerHandler) HandleGetSeller(c *fiber.Ctx) error {
	seller, err := h.service.Get(c.UserContext(), callerOf(c), c.Params("id"))
	if err != nil {
		return respondError(c, err, "Could not retrieve seller")
	}
	return c.JSON(seller)
}

// HandleCreateSeller creates a seller owned by the caller.
func (h *SellerHandler) HandleCreateSeller(c *fiber.Ctx) error {
	var req SellerRequest
	if ok, err := parseAndValidate(c, h.validate, &req); !ok {
		return err
	}
	seller, err := h.service.Create(c.UserContext(), callerOf(c), req.input())
	if err != nil {
		return respondError(c, err, "Could not create seller")
	}
	return c.Status(fiber.StatusCreated).JSON(seller)
}

// HandleUpdateSeller patches a seller profile.
func (h *SellerHandler) HandleUpdateSeller(c *fiber.Ctx) error {
	var req SellerRequest
	if ok, err := parseAndValidate(c, h.validate, &req); !ok {
		return err
	}
	seller, err := h.service.Update(c.UserContext(), callerOf(c), c.Params("id"), req.input())
	if err != nil {
		return respondError(c, err, "Could not update seller")
	}
	return c.JSON(seller)
}

// HandleDeleteSeller removes a seller.
func (h *SellerHandler) HandleDeleteSeller(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), callerOf(c), c.Params("id")); err != nil {
		return respondError(c, err, "Could not delete seller")
	}
	return c.SendStatus(fiber.StatusNoContent)
}
