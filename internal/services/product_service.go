package services

import (
	"context"
	"fmt"
	"strings"

	"jengamart/internal/models"
	"jengamart/internal/policy"
	"jengamart/internal/repositories"

	"github.com/shopspring/decimal"
)

// ProductInput holds the editable fields of a product. SellerID is only read on create.
type ProductInput struct {
	SellerID    string
	Category    string
	Name        string
	Brand       *string
	Description *string
	Unit        string
	Price       decimal.Decimal
	Stock       int
	Images      []string
}

func (in ProductInput) validate() error {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Category) == "" || strings.TrimSpace(in.Unit) == "" {
		return fmt.Errorf("name, category and unit are required: %w", ErrValidation)
	}
	if !in.Price.IsPositive() {
		return fmt.Errorf("price must be greater than zero: %w", ErrValidation)
	}
	if in.Stock < 0 {
		return fmt.Errorf("stock cannot be negative: %w", ErrValidation)
	}
	return nil
}

// ProductService handles business logic related to the catalog.
type ProductService struct {
	products repositories.ProductRepository
	sellers  repositories.SellerRepository
}

// NewProductService creates a new ProductService.
func NewProductService(products repositories.ProductRepository, sellers repositories.SellerRepository) *ProductService {
	return &ProductService{products: products, sellers: sellers}
}

// List retrieves the catalog filtered and ordered by q.
func (s *ProductService) List(ctx context.Context, q repositories.ProductQuery) ([]models.Product, error) {
	return s.products.List(ctx, q)
}

// Get retrieves a single product by its ID.
func (s *ProductService) Get(ctx context.Context, id string) (*models.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, "product %s", id)
	}
	return product, nil
}

// Create adds a product to one of the caller's sellers. When in.SellerID is empty the
// caller's oldest membership is used.
func (s *ProductService) Create(ctx context.Context, caller Caller, in ProductInput) (*models.Product, error) {
	if !policy.CanManageCatalog(caller.Role) {
		return nil, fmt.Errorf("only sellers can add products: %w", ErrPermissionDenied)
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	sellerID, err := s.resolveSeller(ctx, caller, in.SellerID)
	if err != nil {
		return nil, err
	}

	product := &models.Product{SellerID: sellerID}
	applyProductInput(product, in)
	if err := s.products.Create(ctx, product); err != nil {
		return nil, fromRepo(err, "failed to create product")
	}
	return product, nil
}

// Update replaces the editable fields of a product owned by one of the caller's sellers.
func (s *ProductService) Update(ctx context.Context, caller Caller, id string, in ProductInput) (*models.Product, error) {
	product, err := s.authorizeWrite(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	applyProductInput(product, in)
	if err := s.products.Update(ctx, product); err != nil {
		return nil, fromRepo(err, "failed to update product %s", id)
	}
	return product, nil
}

// Delete removes a product. Order lines that referenced it keep their price snapshot.
func (s *ProductService) Delete(ctx context.Context, caller Caller, id string) error {
	if _, err := s.authorizeWrite(ctx, caller, id); err != nil {
		return err
	}
	if err := s.products.Delete(ctx, id); err != nil {
		return fromRepo(err, "failed to delete product %s", id)
	}
	return nil
}

func (s *ProductService) resolveSeller(ctx context.Context, caller Caller, requested string) (string, error) {
	if requested != "" {
		membership, err := membershipOf(ctx, s.sellers, requested, caller.UserID)
		if err != nil {
			return "", err
		}
		if membership == nil && caller.Role != models.RoleOpsAdmin {
			return "", fmt.Errorf("not a member of seller %s: %w", requested, ErrPermissionDenied)
		}
		return requested, nil
	}

	memberships, err := s.sellers.ListMemberships(ctx, caller.UserID)
	if err != nil {
		return "", err
	}
	if len(memberships) == 0 {
		return "", fmt.Errorf("seller profile not found for user: %w", ErrValidation)
	}
	return memberships[0].SellerID, nil
}

func (s *ProductService) authorizeWrite(ctx context.Context, caller Caller, id string) (*models.Product, error) {
	if !policy.CanManageCatalog(caller.Role) {
		return nil, fmt.Errorf("only sellers can change products: %w", ErrPermissionDenied)
	}
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, "product %s", id)
	}
	if caller.Role == models.RoleOpsAdmin {
		return product, nil
	}
	membership, err := membershipOf(ctx, s.sellers, product.SellerID, caller.UserID)
	if err != nil {
		return nil, err
	}
	if membership == nil {
		return nil, fmt.Errorf("product %s belongs to another seller: %w", id, ErrPermissionDenied)
	}
	return product, nil
}

func applyProductInput(product *models.Product, in ProductInput) {
	product.Category = strings.TrimSpace(in.Category)
	product.Name = strings.TrimSpace(in.Name)
	product.Brand = in.Brand
	product.Description = in.Description
	product.Unit = strings.TrimSpace(in.Unit)
	product.Price = in.Price.Round(2)
	product.Stock = in.Stock
	product.Images = in.Images
	if product.Images == nil {
		product.Images = []string{}
	}
}
