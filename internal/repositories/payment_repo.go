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

// PaymentRepository defines the interface for payment data access.
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	GetByID(ctx context.Context, id string) (*models.Payment, error)
	// GetByTxRefForUpdate loads the payment row locked until the surrounding transaction ends.
	GetByTxRefForUpdate(ctx context.Context, txRef string) (*models.Payment, error)
	List(ctx context.Context, scope Scope) ([]models.Payment, error)
	// Settle moves a pending payment to a terminal status and stores the provider document.
	// It reports false when the payment was no longer pending.
	Settle(ctx context.Context, id string, status models.PaymentStatus, payload models.RawJSON) (bool, error)
	ListStalePending(ctx context.Context, before time.Time, limit int) ([]models.Payment, error)
}

// GORMPaymentRepository is a GORM implementation of PaymentRepository.
type GORMPaymentRepository struct {
	db *gorm.DB
}

// NewGORMPaymentRepository creates a new instance of GORMPaymentRepository.
func NewGORMPaymentRepository(db *gorm.DB) *GORMPaymentRepository {
	return &GORMPaymentRepository{db: db}
}

func (r *GORMPaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.New().String()
	}
	if payment.Status == "" {
		payment.Status = models.PaymentPending
	}
	if payment.Method == "" {
		payment.Method = "mobile_money"
	}
	if err := conn(ctx, r.db).Omit(clause.Associations).Create(payment).Error; err != nil {
		return translate(err, "failed to create payment")
	}
	return nil
}

func (r *GORMPaymentRepository) GetByID(ctx context.Context, id string) (*models.Payment, error) {
	var payment models.Payment
	if err := conn(ctx, r.db).Preload("Order").First(&payment, "id = ?", id).Error; err != nil {
		return nil, translate(err, "payment with ID %s", id)
	}
	return &payment, nil
}

func (r *GORMPaymentRepository) GetByTxRefForUpdate(ctx context.Context, txRef string) (*models.Payment, error) {
	var payment models.Payment
	err := conn(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&payment, "tx_ref = ?", txRef).Error
	if err != nil {
		return nil, translate(err, "payment with tx_ref %s", txRef)
	}
	return &payment, nil
}

func (r *GORMPaymentRepository) List(ctx context.Context, scope Scope) ([]models.Payment, error) {
	tx := conn(ctx, r.db).Model(&models.Payment{})
	if !scope.All {
		tx = tx.Joins("JOIN orders ON orders.id = payments.order_id")
		if len(scope.SellerIDs) > 0 {
			tx = tx.Where("orders.buyer_id = ? OR orders.seller_id IN ?", scope.UserID, scope.SellerIDs)
		} else {
			tx = tx.Where("orders.buyer_id = ?", scope.UserID)
		}
	}

	var payments []models.Payment
	if err := tx.Order("payments.created_at DESC").Find(&payments).Error; err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}

func (r *GORMPaymentRepository) Settle(ctx context.Context, id string, status models.PaymentStatus, payload models.RawJSON) (bool, error) {
	res := conn(ctx, r.db).Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, models.PaymentPending).
		Updates(map[string]interface{}{
			"status":     status,
			"payload":    payload,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to settle payment %s: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// ListStalePending returns the oldest pending payments created before the given time that
// carry a tx_ref.
func (r *GORMPaymentRepository) ListStalePending(ctx context.Context, before time.Time, limit int) ([]models.Payment, error) {
	var payments []models.Payment
	err := conn(ctx, r.db).
		Where("status = ? AND tx_ref IS NOT NULL AND created_at < ?", models.PaymentPending, before).
		Order("created_at ASC").
		Limit(limit).
		Find(&payments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list stale payments: %w", err)
	}
	return payments, nil
}
