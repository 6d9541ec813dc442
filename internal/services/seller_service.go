package services

import (
	"context"
	"fmt"
	"strings"

	"jengamart/internal/models"
	"jengamart/internal/policy"
	"jengamart/internal/repositories"
)

// SellerInput holds the editable profile of a seller.
type SellerInput struct {
	BusinessName   string
	TIN            *string
	Phone          string
	Email          *string
	PickupLocation *models.GeoPoint
	Address        *string
}

// SellerService manages storefronts and their membership.
type SellerService struct {
	tx      repositories.TxManager
	sellers repositories.SellerRepository
}

// NewSellerService creates a new SellerService.
func NewSellerService(tx repositories.TxManager, sellers repositories.SellerRepository) *SellerService {
	return &SellerService{tx: tx, sellers: sellers}
}

// List returns the sellers visible to the caller.
func (s *SellerService) List(ctx context.Context, caller Caller) ([]models.Seller, error) {
	return s.sellers.List(ctx, repositories.Scope{
		All:    policy.CanSeeAllSellers(caller.Role),
		UserID: caller.UserID,
	})
}

// Get returns a seller the caller owns, belongs to, or may see as operations staff.
func (s *SellerService) Get(ctx context.Context, caller Caller, id string) (*models.Seller, error) {
	seller, err := s.sellers.GetByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, "seller %s", id)
	}
	if policy.CanSeeAllSellers(caller.Role) || seller.UserID == caller.UserID {
		return seller, nil
	}
	for _, m := range seller.Members {
		if m.UserID == caller.UserID {
			return seller, nil
		}
	}
	// Out of scope reads look exactly like missing rows.
	return nil, fmt.Errorf("seller %s: %w", id, ErrNotFound)
}

// Create registers a seller owned by the caller, who becomes its first admin member.
func (s *SellerService) Create(ctx context.Context, caller Caller, in SellerInput) (*models.Seller, error) {
	if strings.TrimSpace(in.BusinessName) == "" || strings.TrimSpace(in.Phone) == "" {
		return nil, fmt.Errorf("business_name and phone are required: %w", ErrValidation)
	}

	seller := &models.Seller{UserID: caller.UserID}
	applySellerInput(seller, in)

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.sellers.Create(ctx, seller); err != nil {
			return err
		}
		return s.sellers.AddMember(ctx, &models.Membership{
			SellerID: seller.ID,
			UserID:   caller.UserID,
			Role:     models.MemberRoleAdmin,
		})
	})
	if err != nil {
		return nil, fromRepo(err, "failed to create seller")
	}
	return s.sellers.GetByID(ctx, seller.ID)
}

// Update edits a seller profile. Only operations staff or admin members may do so.
func (s *SellerService) Update(ctx context.Context, caller Caller, id string, in SellerInput) (*models.Seller, error) {
	seller, err := s.authorizeManage(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.BusinessName) == "" {
		in.BusinessName = seller.BusinessName
	}
	if strings.TrimSpace(in.Phone) == "" {
		in.Phone = seller.Phone
	}
	// PATCH semantics: absent optional fields keep their stored value.
	if in.TIN == nil {
		in.TIN = seller.TIN
	}
	if in.Email == nil {
		in.Email = seller.Email
	}
	if in.PickupLocation == nil {
		in.PickupLocation = seller.PickupLocation
	}
	if in.Address == nil {
		in.Address = seller.Address
	}
	applySellerInput(seller, in)
	if err := s.sellers.Update(ctx, seller); err != nil {
		return nil, fromRepo(err, "failed to update seller %s", id)
	}
	return s.sellers.GetByID(ctx, id)
}

// Delete removes a seller together with its catalog, orders and membership.
func (s *SellerService) Delete(ctx context.Context, caller Caller, id string) error {
	if _, err := s.authorizeManage(ctx, caller, id); err != nil {
		return err
	}
	if err := s.sellers.Delete(ctx, id); err != nil {
		return fromRepo(err, "failed to delete seller %s", id)
	}
	return nil
}

func (s *SellerService) authorizeManage(ctx context.Context, caller Caller, id string) (*models.Seller, error) {
	seller, err := s.sellers.GetByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, "seller %s", id)
	}
	membership, err := membershipOf(ctx, s.sellers, id, caller.UserID)
	if err != nil {
		return nil, err
	}
	if !policy.CanManageSeller(caller.Role, membership) {
		return nil, fmt.Errorf("only seller admins can manage seller %s: %w", id, ErrPermissionDenied)
	}
	return seller, nil
}

func applySellerInput(seller *models.Seller, in SellerInput) {
	seller.BusinessName = strings.TrimSpace(in.BusinessName)
	seller.TIN = in.TIN
	seller.Phone = strings.TrimSpace(in.Phone)
	seller.Email = in.Email
	seller.PickupLocation = in.PickupLocation
	seller.Address = in.Address
}
