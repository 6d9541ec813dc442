package repositories

import (
	"context"
	"fmt"

	"jengamart/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SellerRepository defines the interface for seller and membership data access.
type SellerRepository interface {
	Create(ctx context.Context, seller *models.Seller) error
	GetByID(ctx context.Context, id string) (*models.Seller, error)
	// List returns every seller when scope.All is set, otherwise the sellers owned by
	// scope.UserID or having them as a member.
	List(ctx context.Context, scope Scope) ([]models.Seller, error)
	Update(ctx context.Context, seller *models.Seller) error
	Delete(ctx context.Context, id string) error

	AddMember(ctx context.Context, membership *models.Membership) error
	GetMembership(ctx context.Context, sellerID, userID string) (*models.Membership, error)
	ListMemberships(ctx context.Context, userID string) ([]models.Membership, error)
}

// GORMSellerRepository is a GORM implementation of SellerRepository.
type GORMSellerRepository struct {
	db *gorm.DB
}

// NewGORMSellerRepository creates a new instance of GORMSellerRepository.
func NewGORMSellerRepository(db *gorm.DB) *GORMSellerRepository {
	return &GORMSellerRepository{db: db}
}

func membersByJoinDate(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC")
}

func (r *GORMSellerRepository) Create(ctx context.Context, seller *models.Seller) error {
	if seller.ID == "" {
		seller.ID = uuid.New().String()
	}
	if err := conn(ctx, r.db).Omit(clause.Associations).Create(seller).Error; err != nil {
		return translate(err, "failed to create seller")
	}
	return nil
}

func (r *GORMSellerRepository) GetByID(ctx context.Context, id string) (*models.Seller, error) {
	var seller models.Seller
	err := conn(ctx, r.db).
		Preload("Members", membersByJoinDate).
		Preload("Members.User").
		First(&seller, "id = ?", id).Error
	if err != nil {
		return nil, translate(err, "seller with ID %s", id)
	}
	return &seller, nil
}

func (r *GORMSellerRepository) List(ctx context.Context, scope Scope) ([]models.Seller, error) {
	db := conn(ctx, r.db)
	tx := db.Preload("Members", membersByJoinDate).Preload("Members.User")
	if !scope.All {
		member := db.Session(&gorm.Session{NewDB: true}).
			Model(&models.Membership{}).
			Select("seller_id").
			Where("user_id = ?", scope.UserID)
		tx = tx.Where("user_id = ? OR id IN (?)", scope.UserID, member)
	}

	var sellers []models.Seller
	if err := tx.Order("created_at DESC").Find(&sellers).Error; err != nil {
		return nil, fmt.Errorf("failed to list sellers: %w", err)
	}
	return sellers, nil
}

// Update writes the editable profile columns of seller.
func (r *GORMSellerRepository) Update(ctx context.Context, seller *models.Seller) error {
	res := conn(ctx, r.db).Model(seller).
		Select("business_name", "tin", "phone", "email", "verified", "pickup_location", "address", "updated_at").
		Updates(seller)
	if res.Error != nil {
		return translate(res.Error, "failed to update seller")
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("seller with ID %s: %w", seller.ID, ErrNotFound)
	}
	return nil
}

func (r *GORMSellerRepository) Delete(ctx context.Context, id string) error {
	res := conn(ctx, r.db).Delete(&models.Seller{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete seller: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("seller with ID %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *GORMSellerRepository) AddMember(ctx context.Context, membership *models.Membership) error {
	if membership.ID == "" {
		membership.ID = uuid.New().String()
	}
	if err := conn(ctx, r.db).Omit(clause.Associations).Create(membership).Error; err != nil {
		return translate(err, "failed to add member")
	}
	return nil
}

func (r *GORMSellerRepository) GetMembership(ctx context.Context, sellerID, userID string) (*models.Membership, error) {
	var membership models.Membership
	if err := conn(ctx, r.db).First(&membership, "seller_id = ? AND user_id = ?", sellerID, userID).Error; err != nil {
		return nil, translate(err, "membership of user %s on seller %s", userID, sellerID)
	}
	return &membership, nil
}

// ListMemberships returns the memberships of a user, oldest first.
func (r *GORMSellerRepository) ListMemberships(ctx context.Context, userID string) ([]models.Membership, error) {
	var memberships []models.Membership
	if err := conn(ctx, r.db).Where("user_id = ?", userID).Order("created_at ASC").Find(&memberships).Error; err != nil {
		return nil, fmt.Errorf("failed to list memberships of user %s: %w", userID, err)
	}
	return memberships, nil
}
