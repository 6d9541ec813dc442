package repositories

import (
	"context"

	"jengamart/internal/models"
)

// Scope restricts a listing to what a caller may see. All wins over the other fields;
// otherwise rows owned by UserID or belonging to one of SellerIDs are returned.
type Scope struct {
	All       bool
	UserID    string
	SellerIDs []string
}

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	// GetForUpdate loads the order row locked until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id string) (*models.Order, error)
	List(ctx context.Context, scope Scope) ([]models.Order, error)
	AddItem(ctx context.Context, item *models.OrderItem) error
	ListItems(ctx context.Context, orderID string) ([]models.OrderItem, error)
	SaveTotals(ctx context.Context, order *models.Order) error
	// UpdateStatus moves the order to status only if it is currently in one of from.
	// It reports whether a row changed.
	UpdateStatus(ctx context.Context, id string, from []models.OrderStatus, to models.OrderStatus) (bool, error)
}
