package repositories

import (
	"context"
	"fmt"
	"time"

	"jengamart/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{db: db}
}

func itemsByCreation(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC").Order("id ASC")
}

func (r *GORMOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if order.Status == "" {
		order.Status = models.OrderPending
	}
	if order.DeliveryMethod == "" {
		order.DeliveryMethod = "pickup"
	}
	if err := conn(ctx, r.db).Omit(clause.Associations).Create(order).Error; err != nil {
		return translate(err, "failed to create order")
	}
	return nil
}

func (r *GORMOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := conn(ctx, r.db).Preload("Items", itemsByCreation).First(&order, "id = ?", id).Error; err != nil {
		return nil, translate(err, "order with ID %s", id)
	}
	return &order, nil
}

func (r *GORMOrderRepository) GetForUpdate(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := conn(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, translate(err, "order with ID %s", id)
	}
	return &order, nil
}

func (r *GORMOrderRepository) List(ctx context.Context, scope Scope) ([]models.Order, error) {
	tx := conn(ctx, r.db).Preload("Items", itemsByCreation)
	if !scope.All {
		if len(scope.SellerIDs) > 0 {
			tx = tx.Where("buyer_id = ? OR seller_id IN ?", scope.UserID, scope.SellerIDs)
		} else {
			tx = tx.Where("buyer_id = ?", scope.UserID)
		}
	}

	var orders []models.Order
	if err := tx.Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (r *GORMOrderRepository) AddItem(ctx context.Context, item *models.OrderItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if err := conn(ctx, r.db).Omit(clause.Associations).Create(item).Error; err != nil {
		return translate(err, "failed to add order item")
	}
	return nil
}

func (r *GORMOrderRepository) ListItems(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	var items []models.OrderItem
	if err := itemsByCreation(conn(ctx, r.db)).Where("order_id = ?", orderID).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list items of order %s: %w", orderID, err)
	}
	return items, nil
}

// SaveTotals persists the four money columns of order.
func (r *GORMOrderRepository) SaveTotals(ctx context.Context, order *models.Order) error {
	order.UpdatedAt = time.Now()
	res := conn(ctx, r.db).Model(&models.Order{}).Where("id = ?", order.ID).Updates(map[string]interface{}{
		"subtotal":     order.Subtotal,
		"tax":          order.Tax,
		"shipping_fee": order.ShippingFee,
		"total":        order.Total,
		"updated_at":   order.UpdatedAt,
	})
	if res.Error != nil {
		return fmt.Errorf("failed to save totals of order %s: %w", order.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("order with ID %s: %w", order.ID, ErrNotFound)
	}
	return nil
}

func (r *GORMOrderRepository) UpdateStatus(ctx context.Context, id string, from []models.OrderStatus, to models.OrderStatus) (bool, error) {
	res := conn(ctx, r.db).Model(&models.Order{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(map[string]interface{}{"status": to, "updated_at": time.Now()})
	if res.Error != nil {
		return false, fmt.Errorf("failed to update status of order %s: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}
