package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"jengamart/internal/models"
	"jengamart/internal/repositories"
)

// Caller is the authenticated principal on whose behalf a service operation runs.
type Caller struct {
	UserID string
	Role   models.Role
}

// Event routing keys.
const (
	EventOrderCreated       = "order.created"
	EventOrderItemAdded     = "order.item_added"
	EventOrderStatusChanged = "order.status_changed"
	EventPaymentInitiated   = "payment.initiated"
	EventPaymentSettled     = "payment.settled"
	EventInvitationCreated  = "invitation.created"
	EventInvitationAccepted = "invitation.accepted"
)

// EventPublisher delivers domain events to the message broker.
type EventPublisher interface {
	PublishEvent(routingKey string, payload interface{}) error
}

// publish sends an event after the state change has been committed. A nil publisher disables
// events; failures are logged and never reach the caller.
func publish(p EventPublisher, routingKey string, payload interface{}) {
	if p == nil {
		return
	}
	if err := p.PublishEvent(routingKey, payload); err != nil {
		log.Printf("Failed to publish %s event: %v", routingKey, err)
	}
}

// fromRepo translates repository errors into service errors.
func fromRepo(err error, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return fmt.Errorf("%s: %w", msg, ErrNotFound)
	case errors.Is(err, repositories.ErrDuplicate):
		return fmt.Errorf("%s: %w", msg, ErrConflict)
	default:
		return fmt.Errorf("%s: %w", msg, err)
	}
}

// memberSellerIDs lists the sellers the caller belongs to.
func memberSellerIDs(ctx context.Context, sellers repositories.SellerRepository, userID string) ([]string, error) {
	memberships, err := sellers.ListMemberships(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(memberships))
	for _, m := range memberships {
		ids = append(ids, m.SellerID)
	}
	return ids, nil
}

// membershipOf returns the caller's membership on a seller, nil when there is none.
func membershipOf(ctx context.Context, sellers repositories.SellerRepository, sellerID, userID string) (*models.Membership, error) {
	m, err := sellers.GetMembership(ctx, sellerID, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}
