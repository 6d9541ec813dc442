package handlers

import (
	"log"

	"jengamart/internal/models"
	"jengamart/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service  *services.OrderService
	validate *validator.Validate
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the order routes behind auth.
func (h *OrderHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	orderRoutes := router.Group("/orders", auth)
	orderRoutes.Get("/", h.HandleGetOrders)
	orderRoutes.Get("/:id", h.HandleGetOrderByID)
	orderRoutes.Post("/", h.HandleCreateOrder)
	orderRoutes.Post("/:id/add_item", h.HandleAddItem)
	orderRoutes.Patch("/:id/status", h.HandleUpdateOrderStatus)
}

// CreateOrderRequest is the body of POST /orders.
type CreateOrderRequest struct {
	SellerID        string                 `json:"seller" validate:"required"`
	DeliveryMethod  string                 `json:"delivery_method" validate:"omitempty,max=30"`
	DeliveryAddress models.DeliveryAddress `json:"delivery_address"`
}

// AddItemRequest is the body of POST /orders/:id/add_item.
type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity"`
}

// HandleGetOrders lists the orders the caller placed or sells.
func (h *OrderHandler) HandleGetOrders(c *fiber.Ctx) error {
	orders, err := h.service.List(c.UserContext(), callerOf(c))
	if err != nil {
		return respondError(c, err, "Could not retrieve orders")
	}
	return c.JSON(orders)
}

// HandleGetOrderByID retrieves a single order with its items.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	order, err := h.service.Get(c.UserContext(), callerOf(c), c.Params("id"))
	if err != nil {
		return respondError(c, err, "Could not retrieve order")
	}
	return c.JSON(order)
}

// HandleCreateOrder opens an empty order for the caller.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	var req CreateOrderRequest
	if ok, err := parseAndValidate(c, h.validate, &req); !ok {
		return err
	}

	order, err := h.service.Create(c.UserContext(), callerOf(c), services.CreateOrderInput{
		SellerID:        req.SellerID,
		DeliveryMethod:  req.DeliveryMethod,
		DeliveryAddress: req.DeliveryAddress,
	})
	if err != nil {
		log.Printf("Error creating order: %v", err)
		return respondError(c, err, "Could not create order")
	}
	return c.Status(fiber.StatusCreated).JSON(order)
}

// HandleAddItem appends a line to a pending order and returns the recomputed order.
func (h *OrderHandler) HandleAddItem(c *fiber.Ctx) error {
	var req AddItemRequest
	if ok, err := parseAndValidate(c, h.validate, &req); !ok {
		return err
	}

	order, err := h.service.AddItem(c.UserContext(), callerOf(c), c.Params("id"), req.ProductID, req.Quantity)
	if err != nil {
		log.Printf("Error adding item to order %s: %v", c.Params("id"), err)
		return respondError(c, err, "Could not add item")
	}
	return c.JSON(order)
}

// HandleUpdateOrderStatus updates the status of an existing order.
func (h *OrderHandler) HandleUpdateOrderStatus(c *fiber.Ctx) error {
	orderID := c.Params("id")
	var updateData struct {
		Status string `json:"status" validate:"required"`
	}
	if ok, err := parseAndValidate(c, h.validate, &updateData); !ok {
		return err
	}

	order, err := h.service.UpdateStatus(c.UserContext(), callerOf(c), orderID, models.OrderStatus(updateData.Status))
	if err != nil {
		log.Printf("Error updating order status for order %s: %v", orderID, err)
		return respondError(c, err, "Could not update order status")
	}
	return c.JSON(order)
}
