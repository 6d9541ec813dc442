package repositories

import (
	"context"

	"jengamart/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMUserRepository is a GORM implementation of UserRepository.
type GORMUserRepository struct {
	db *gorm.DB
}

// NewGORMUserRepository creates a new instance of GORMUserRepository.
func NewGORMUserRepository(db *gorm.DB) *GORMUserRepository {
	return &GORMUserRepository{
		db: db,
	}
}

// Create creates a new user in the database.
func (r *GORMUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if err := conn(ctx, r.db).Create(user).Error; err != nil {
		return translate(err, "failed to create user")
	}
	return nil
}

// GetByID retrieves a user by their ID.
func (r *GORMUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := conn(ctx, r.db).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err, "user with ID %s", id)
	}
	return &user, nil
}

// GetByPhone retrieves a user by their phone number.
func (r *GORMUserRepository) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	var user models.User
	if err := conn(ctx, r.db).First(&user, "phone = ?", phone).Error; err != nil {
		return nil, translate(err, "user with phone %s", phone)
	}
	return &user, nil
}

// ExistsByPhone reports whether the phone is already registered.
func (r *GORMUserRepository) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	var count int64
	if err := conn(ctx, r.db).Model(&models.User{}).Where("phone = ?", phone).Count(&count).Error; err != nil {
		return false, translate(err, "failed to check phone %s", phone)
	}
	return count > 0, nil
}

// ExistsByEmail reports whether the email is already attached to an account.
func (r *GORMUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	if err := conn(ctx, r.db).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, translate(err, "failed to check email %s", email)
	}
	return count > 0, nil
}
