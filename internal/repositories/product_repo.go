package repositories

import (
	"context"

	"jengamart/internal/models"
)

// ProductQuery narrows and orders a catalog listing. Empty fields do not filter.
type ProductQuery struct {
	Category string
	SellerID string
	Search   string
	// Ordering is one of price, -price, created_at, -created_at. Anything else sorts newest first.
	Ordering string
}

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	List(ctx context.Context, q ProductQuery) ([]models.Product, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id string) error
}
