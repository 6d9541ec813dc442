package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"jengamart/internal/models"
	"jengamart/internal/policy"
	"jengamart/internal/repositories"
)

// InviteInput describes a new staff invitation. SellerID may be empty, in which case the
// caller's first seller with an admin seat is used.
type InviteInput struct {
	SellerID string
	Email    string
	Phone    string
	Role     models.MemberRole
}

// AcceptInput redeems an invitation token into a new account.
type AcceptInput struct {
	Token    string
	FullName string
	Password string
}

// InvitationService runs the staff onboarding workflow:
// pending -> accepted, or pending -> cancelled.
type InvitationService struct {
	tx          repositories.TxManager
	invitations repositories.InvitationRepository
	users       repositories.UserRepository
	sellers     repositories.SellerRepository
	auth        *AuthService
	publisher   EventPublisher
}

// NewInvitationService creates a new InvitationService.
func NewInvitationService(tx repositories.TxManager, invitations repositories.InvitationRepository, users repositories.UserRepository, sellers repositories.SellerRepository, auth *AuthService, publisher EventPublisher) *InvitationService {
	return &InvitationService{
		tx:          tx,
		invitations: invitations,
		users:       users,
		sellers:     sellers,
		auth:        auth,
		publisher:   publisher,
	}
}

// Invite creates a pending invitation. At most one pending invitation may exist per seller
// for a given email and for a given phone.
func (s *InvitationService) Invite(ctx context.Context, caller Caller, in InviteInput) (*models.Invitation, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
	if in.Email == "" || in.Phone == "" {
		return nil, fmt.Errorf("email and phone are required: %w", ErrValidation)
	}
	if in.Role == "" {
		in.Role = models.MemberRoleStaff
	}
	if in.Role != models.MemberRoleStaff {
		return nil, fmt.Errorf("invitations can only grant the staff role: %w", ErrValidation)
	}

	sellerID, err := s.invitingSeller(ctx, caller, in.SellerID)
	if err != nil {
		return nil, err
	}

	invitation := &models.Invitation{
		SellerID:    sellerID,
		Email:       in.Email,
		Phone:       in.Phone,
		Role:        in.Role,
		Status:      models.InvitationPending,
		InvitedByID: caller.UserID,
	}
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		pending, err := s.invitations.FindPending(ctx, sellerID, in.Email, in.Phone)
		if err != nil {
			return err
		}
		for _, p := range pending {
			if p.Email == in.Email {
				return fmt.Errorf("an invitation has already been sent to that email: %w", ErrConflict)
			}
			if p.Phone == in.Phone {
				return fmt.Errorf("an invitation has already been sent to that phone number: %w", ErrConflict)
			}
		}
		return s.invitations.Create(ctx, invitation)
	})
	if err != nil {
		return nil, fromRepo(err, "failed to invite %s", in.Phone)
	}

	created, err := s.invitations.GetByID(ctx, invitation.ID)
	if err != nil {
		return nil, fromRepo(err, "invitation %s", invitation.ID)
	}
	publish(s.publisher, EventInvitationCreated, map[string]interface{}{
		"invitation_id": created.ID,
		"seller_id":     created.SellerID,
		"email":         created.Email,
		"phone":         created.Phone,
		"token":         created.Token,
	})
	return created, nil
}

func (s *InvitationService) invitingSeller(ctx context.Context, caller Caller, requested string) (string, error) {
	if requested != "" {
		membership, err := membershipOf(ctx, s.sellers, requested, caller.UserID)
		if err != nil {
			return "", err
		}
		if !policy.CanInvite(membership) {
			return "", fmt.Errorf("only seller admins can invite team members: %w", ErrPermissionDenied)
		}
		return requested, nil
	}

	memberships, err := s.sellers.ListMemberships(ctx, caller.UserID)
	if err != nil {
		return "", err
	}
	for i := range memberships {
		if policy.CanInvite(&memberships[i]) {
			return memberships[i].SellerID, nil
		}
	}
	return "", fmt.Errorf("only seller admins can invite team members: %w", ErrPermissionDenied)
}

// Lookup returns a pending invitation by token. Used, cancelled and unknown tokens are all
// reported as ErrNotFound.
func (s *InvitationService) Lookup(ctx context.Context, token string) (*models.Invitation, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("token is required: %w", ErrValidation)
	}
	invitation, err := s.invitations.GetPendingByToken(ctx, token)
	if err != nil {
		return nil, fromRepo(err, "invitation not found or already used")
	}
	return invitation, nil
}

// Accept redeems a pending invitation: it creates the staff account and membership and marks
// the invitation accepted in one transaction, with the invitation row locked so a token can
// only ever be redeemed once.
func (s *InvitationService) Accept(ctx context.Context, in AcceptInput) (*models.User, *TokenPair, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	if in.Token == "" || in.FullName == "" || in.Password == "" {
		return nil, nil, fmt.Errorf("token, full_name, and password are required: %w", ErrValidation)
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, nil, err
	}

	var user *models.User
	var invitation *models.Invitation
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		inv, err := s.invitations.GetPendingByTokenForUpdate(ctx, in.Token)
		if err != nil {
			return fromRepo(err, "invitation not found or already used")
		}
		invitation = inv

		exists, err := s.users.ExistsByPhone(ctx, inv.Phone)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("an account with that phone already exists, contact support to link it: %w", ErrConflict)
		}

		user = &models.User{
			FullName:     in.FullName,
			Phone:        inv.Phone,
			Role:         models.RoleSellerStaff,
			KYCStatus:    "pending",
			IsActive:     true,
			PasswordHash: hash,
		}
		if inv.Email != "" {
			taken, err := s.users.ExistsByEmail(ctx, inv.Email)
			if err != nil {
				return err
			}
			if !taken {
				email := inv.Email
				user.Email = &email
			}
		}
		if err := s.users.Create(ctx, user); err != nil {
			return fromRepo(err, "failed to create user")
		}

		invitedBy := inv.InvitedByID
		if err := s.sellers.AddMember(ctx, &models.Membership{
			SellerID:    inv.SellerID,
			UserID:      user.ID,
			Role:        models.MemberRoleStaff,
			InvitedByID: &invitedBy,
		}); err != nil {
			return fromRepo(err, "failed to add member")
		}

		now := time.Now()
		accepted, err := s.invitations.Resolve(ctx, inv.ID, models.InvitationAccepted, &now)
		if err != nil {
			return err
		}
		if !accepted {
			return fmt.Errorf("invitation not found or already used: %w", ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	tokens, err := s.auth.IssueTokens(user)
	if err != nil {
		return nil, nil, err
	}
	log.Printf("Invitation %s accepted by user %s", invitation.ID, user.ID)
	publish(s.publisher, EventInvitationAccepted, map[string]interface{}{
		"invitation_id": invitation.ID,
		"seller_id":     invitation.SellerID,
		"user_id":       user.ID,
	})
	return user, tokens, nil
}

// Cancel withdraws a pending invitation.
func (s *InvitationService) Cancel(ctx context.Context, caller Caller, id string) error {
	invitation, err := s.invitations.GetByID(ctx, id)
	if err != nil {
		return fromRepo(err, "invitation %s", id)
	}
	if caller.Role != models.RoleOpsAdmin {
		membership, err := membershipOf(ctx, s.sellers, invitation.SellerID, caller.UserID)
		if err != nil {
			return err
		}
		if membership == nil {
			return fmt.Errorf("invitation %s: %w", id, ErrNotFound)
		}
		if !policy.CanInvite(membership) {
			return fmt.Errorf("only seller admins can cancel invitations: %w", ErrPermissionDenied)
		}
	}

	cancelled, err := s.invitations.Resolve(ctx, id, models.InvitationCancelled, nil)
	if err != nil {
		return err
	}
	if !cancelled {
		return fmt.Errorf("invitation is not pending: %w", ErrInvalidState)
	}
	return nil
}

// List returns the invitations of the sellers the caller belongs to.
func (s *InvitationService) List(ctx context.Context, caller Caller) ([]models.Invitation, error) {
	if caller.Role == models.RoleOpsAdmin {
		return s.invitations.ListForSellers(ctx, repositories.Scope{All: true})
	}
	ids, err := memberSellerIDs(ctx, s.sellers, caller.UserID)
	if err != nil {
		return nil, err
	}
	return s.invitations.ListForSellers(ctx, repositories.Scope{SellerIDs: ids})
}

// Get returns one invitation of a seller the caller belongs to.
func (s *InvitationService) Get(ctx context.Context, caller Caller, id string) (*models.Invitation, error) {
	invitation, err := s.invitations.GetByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, "invitation %s", id)
	}
	if caller.Role == models.RoleOpsAdmin {
		return invitation, nil
	}
	membership, err := membershipOf(ctx, s.sellers, invitation.SellerID, caller.UserID)
	if err != nil {
		return nil, err
	}
	if membership == nil {
		return nil, fmt.Errorf("invitation %s: %w", id, ErrNotFound)
	}
	return invitation, nil
}
