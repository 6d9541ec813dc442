package handlers

import (
	"jengamart/internal/repositories"
	"jengamart/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// ProductHandler handles HTTP requests for the catalog.
type ProductHandler struct {
	service  *services.ProductService
	validate *validator.Validate
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService) *ProductHandler {
	return &ProductHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the product routes behind auth.
func (h *ProductHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	productRoutes := router.Group("/products", auth)
	productRoutes.Get("/", h.HandleGetProducts)
	productRoutes.Get("/:id", h.HandleGetProductByID)
	productRoutes.Post("/", h.HandleCreateProduct)
	productRoutes.Patch("/:id", h.HandleUpdateProduct)
	productRoutes.Delete("/:id", h.HandleDeleteProduct)
}

// ProductRequest is the body of product create and update. Absent fields keep their stored
// value on update.
type ProductRequest struct {
	SellerID    string           `json:"seller_id"`
	Category    *string          `json:"category" validate:"omitempty,max=100"`
	Name        *string          `json:"name" validate:"omitempty,max=150"`
	Brand       *string          `json:"brand" validate:"omitempty,max=100"`
	Description *string          `json:"description"`
	Unit        *string          `json:"unit" validate:"omitempty,max=30"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock" validate:"omitempty,gte=0"`
	Images      []string         `json:"images" validate:"omitempty,dive,required"`
}

// overlay copies the fields present in the request onto in.
func (r ProductRequest) overlay(in *services.ProductInput) {
	if r.SellerID != "" {
		in.SellerID = r.SellerID
	}
	if r.Category != nil {
		in.Category = *r.Category
	}
	if r.Name != nil {
		in.Name = *r.Name
	}
	if r.Brand != nil {
		in.Brand = r.Brand
	}
	if r.Description != nil {
		in.Description = r.Description
	}
	if r.Unit != nil {
		in.Unit = *r.Unit
	}
	if r.Price != nil {
		in.Price = *r.Price
	}
	if r.Stock != nil {
		in.Stock = *r.Stock
	}
	if r.Images != nil {
		in.Images = r.Images
	}
}

// HandleGetProducts lists the catalog. Query parameters: category, seller, search, ordering.
func (h *ProductHandler) HandleGetProducts(c *fiber.Ctx) error {
	products, err := h.service.List(c.UserContext(), repositories.ProductQuery{
		Category: c.Query("category"),
		SellerID: c.Query("seller"),
		Search:   c.Query("search"),
		Ordering: c.Query("ordering"),
	})
	if err != nil {
		return respondError(c, err, "Could not retrieve products")
	}
	return c.JSON(products)
}

// HandleGetProductByID retrieves a single product by its ID.
func (h *ProductHandler) HandleGetProductByID(c *fiber.Ctx) error {
	product, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err, "Could not retrieve product")
	}
	return c.JSON(product)
}

// HandleCreateProduct adds a product to one of the caller's sellers.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var req ProductRequest
	if ok, err := parseAndValidate(c, h.validate, &req); !ok {
		return err
	}
	var in services.ProductInput
	req.overlay(&in)

	product, err := h.service.Create(c.UserContext(), callerOf(c), in)
	if err != nil {
		return respondError(c, err, "Could not create product")
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleUpdateProduct patches a product.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	var req ProductRequest
	if ok, err := parseAndValidate(c, h.validate, &req); !ok {
		return err
	}
	current, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err, "Could not update product")
	}
	in := services.ProductInput{
		Category:    current.Category,
		Name:        current.Name,
		Brand:       current.Brand,
		Description: current.Description,
		Unit:        current.Unit,
		Price:       current.Price,
		Stock:       current.Stock,
		Images:      current.Images,
	}
	req.overlay(&in)

	product, err := h.service.Update(c.UserContext(), callerOf(c), current.ID, in)
	if err != nil {
		return respondError(c, err, "Could not update product")
	}
	return c.JSON(product)
}

// HandleDeleteProduct removes a product.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), callerOf(c), c.Params("id")); err != nil {
		return respondError(c, err, "Could not delete product")
	}
	return c.SendStatus(fiber.StatusNoContent)
}
