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

// InvitationRepository defines the interface for invitation data access.
type InvitationRepository interface {
	Create(ctx context.Context, invitation *models.Invitation) error
	GetByID(ctx context.Context, id string) (*models.Invitation, error)
	GetPendingByToken(ctx context.Context, token string) (*models.Invitation, error)
	// GetPendingByTokenForUpdate is GetPendingByToken with the row locked until the
	// surrounding transaction ends.
	GetPendingByTokenForUpdate(ctx context.Context, token string) (*models.Invitation, error)
	// FindPending returns the pending invitations of a seller matching email or phone.
	FindPending(ctx context.Context, sellerID, email, phone string) ([]models.Invitation, error)
	ListForSellers(ctx context.Context, scope Scope) ([]models.Invitation, error)
	// Resolve moves a pending invitation to a terminal status. It reports false when the
	// invitation was no longer pending.
	Resolve(ctx context.Context, id string, status models.InvitationStatus, at *time.Time) (bool, error)
}

// GORMInvitationRepository is a GORM implementation of InvitationRepository.
type GORMInvitationRepository struct {
	db *gorm.DB
}

// NewGORMInvitationRepository creates a new instance of GORMInvitationRepository.
func NewGORMInvitationRepository(db *gorm.DB) *GORMInvitationRepository {
	return &GORMInvitationRepository{db: db}
}

func (r *GORMInvitationRepository) Create(ctx context.Context, invitation *models.Invitation) error {
	if invitation.ID == "" {
		invitation.ID = uuid.New().String()
	}
	if invitation.Token == "" {
		invitation.Token = uuid.New().String()
	}
	if invitation.Status == "" {
		invitation.Status = models.InvitationPending
	}
	if err := conn(ctx, r.db).Omit(clause.Associations).Create(invitation).Error; err != nil {
		return translate(err, "failed to create invitation")
	}
	return nil
}

func (r *GORMInvitationRepository) GetByID(ctx context.Context, id string) (*models.Invitation, error) {
	var invitation models.Invitation
	if err := conn(ctx, r.db).Preload("Seller").First(&invitation, "id = ?", id).Error; err != nil {
		return nil, translate(err, "invitation with ID %s", id)
	}
	return &invitation, nil
}

func (r *GORMInvitationRepository) GetPendingByToken(ctx context.Context, token string) (*models.Invitation, error) {
	return r.pendingByToken(conn(ctx, r.db).Preload("Seller"), token)
}

func (r *GORMInvitationRepository) GetPendingByTokenForUpdate(ctx context.Context, token string) (*models.Invitation, error) {
	return r.pendingByToken(conn(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}), token)
}

func (r *GORMInvitationRepository) pendingByToken(tx *gorm.DB, token string) (*models.Invitation, error) {
	var invitation models.Invitation
	if err := tx.First(&invitation, "token = ? AND status = ?", token, models.InvitationPending).Error; err != nil {
		return nil, translate(err, "pending invitation")
	}
	return &invitation, nil
}

func (r *GORMInvitationRepository) FindPending(ctx context.Context, sellerID, email, phone string) ([]models.Invitation, error) {
	var invitations []models.Invitation
	err := conn(ctx, r.db).
		Where("seller_id = ? AND status = ? AND (email = ? OR phone = ?)", sellerID, models.InvitationPending, email, phone).
		Find(&invitations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to look up pending invitations: %w", err)
	}
	return invitations, nil
}

// ListForSellers returns every invitation when scope.All is set, otherwise the invitations of
// scope.SellerIDs.
func (r *GORMInvitationRepository) ListForSellers(ctx context.Context, scope Scope) ([]models.Invitation, error) {
	tx := conn(ctx, r.db).Preload("Seller")
	if !scope.All {
		if len(scope.SellerIDs) == 0 {
			return []models.Invitation{}, nil
		}
		tx = tx.Where("seller_id IN ?", scope.SellerIDs)
	}

	var invitations []models.Invitation
	if err := tx.Order("created_at DESC").Find(&invitations).Error; err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	return invitations, nil
}

func (r *GORMInvitationRepository) Resolve(ctx context.Context, id string, status models.InvitationStatus, at *time.Time) (bool, error) {
	updates := map[string]interface{}{"status": status}
	if at != nil {
		updates["accepted_at"] = *at
	}
	res := conn(ctx, r.db).Model(&models.Invitation{}).
		Where("id = ? AND status = ?", id, models.InvitationPending).
		Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("failed to resolve invitation %s: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}
