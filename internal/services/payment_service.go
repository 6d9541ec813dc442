package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"jengamart/internal/gateway"
	"jengamart/internal/models"
	"jengamart/internal/policy"
	"jengamart/internal/repositories"

	"github.com/google/uuid"
)

// Gateway is the outbound side of mobile-money collection.
type Gateway interface {
	Supports(provider string) bool
	Initiate(ctx context.Context, provider string, req gateway.Request) (*gateway.Receipt, error)
}

// CheckoutInput starts a payment for an order.
type CheckoutInput struct {
	OrderID  string
	Provider string
	Phone    string
}

// Checkout is the outcome of a checkout. Receipt is nil when the provider could not be
// reached; the payment then stays pending for the reconciliation sweep.
type Checkout struct {
	Payment *models.Payment
	Receipt *gateway.Receipt
}

// PaymentService creates payments and exposes them to their parties.
type PaymentService struct {
	tx             repositories.TxManager
	payments       repositories.PaymentRepository
	orders         repositories.OrderRepository
	sellers        repositories.SellerRepository
	gateway        Gateway
	gatewayTimeout time.Duration
	publisher      EventPublisher
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(tx repositories.TxManager, payments repositories.PaymentRepository, orders repositories.OrderRepository, sellers repositories.SellerRepository, gw Gateway, gatewayTimeout time.Duration, publisher EventPublisher) *PaymentService {
	return &PaymentService{
		tx:             tx,
		payments:       payments,
		orders:         orders,
		sellers:        sellers,
		gateway:        gw,
		gatewayTimeout: gatewayTimeout,
		publisher:      publisher,
	}
}

// Checkout records a pending payment for the order total and asks the provider to collect
// it. The payment row is committed before the provider is called so that a callback can
// never arrive for an unknown tx_ref. A provider failure is returned wrapped in ErrGateway
// together with the still pending payment.
func (s *PaymentService) Checkout(ctx context.Context, caller Caller, in CheckoutInput) (*Checkout, error) {
	if !policy.CanPlaceOrder(caller.Role) {
		return nil, fmt.Errorf("only buyers can pay for orders: %w", ErrPermissionDenied)
	}
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if !s.gateway.Supports(provider) {
		return nil, fmt.Errorf("%q: %w", in.Provider, ErrInvalidProvider)
	}
	if strings.TrimSpace(in.Phone) == "" {
		return nil, fmt.Errorf("phone is required: %w", ErrValidation)
	}

	txRef := uuid.New().String()
	payment := &models.Payment{
		Method:   "mobile_money",
		Provider: provider,
		TxRef:    &txRef,
		Phone:    strings.TrimSpace(in.Phone),
		Status:   models.PaymentPending,
	}
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		order, err := s.orders.GetForUpdate(ctx, in.OrderID)
		if err != nil {
			return fromRepo(err, "order %s", in.OrderID)
		}
		if order.BuyerID != caller.UserID && caller.Role != models.RoleOpsAdmin {
			return fmt.Errorf("order %s: %w", in.OrderID, ErrNotFound)
		}
		if order.Status != models.OrderPending {
			return fmt.Errorf("order %s is %s: %w", order.ID, order.Status, ErrInvalidState)
		}
		if !order.Total.Valid || !order.Total.Decimal.IsPositive() {
			return fmt.Errorf("order %s has nothing to pay: %w", order.ID, ErrValidation)
		}
		payment.OrderID = order.ID
		payment.Amount = order.Total.Decimal
		return s.payments.Create(ctx, payment)
	})
	if err != nil {
		return nil, err
	}
	publish(s.publisher, EventPaymentInitiated, map[string]interface{}{
		"payment_id": payment.ID,
		"order_id":   payment.OrderID,
		"provider":   provider,
		"tx_ref":     txRef,
		"amount":     payment.Amount.String(),
	})

	callCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()
	receipt, err := s.gateway.Initiate(callCtx, provider, gateway.Request{
		Phone:  payment.Phone,
		Amount: payment.Amount,
		TxRef:  txRef,
	})
	if err != nil {
		log.Printf("Gateway call for payment %s (tx_ref %s) failed, left pending for reconciliation: %v", payment.ID, txRef, err)
		return &Checkout{Payment: payment}, fmt.Errorf("%v: %w", err, ErrGateway)
	}
	return &Checkout{Payment: payment, Receipt: receipt}, nil
}

// List returns the payments of orders the caller placed or sells.
func (s *PaymentService) List(ctx context.Context, caller Caller) ([]models.Payment, error) {
	if caller.Role == models.RoleOpsAdmin {
		return s.payments.List(ctx, repositories.Scope{All: true})
	}
	ids, err := memberSellerIDs(ctx, s.sellers, caller.UserID)
	if err != nil {
		return nil, err
	}
	return s.payments.List(ctx, repositories.Scope{UserID: caller.UserID, SellerIDs: ids})
}

// Get returns a payment visible to the caller.
func (s *PaymentService) Get(ctx context.Context, caller Caller, id string) (*models.Payment, error) {
	payment, err := s.payments.GetByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, "payment %s", id)
	}
	if caller.Role == models.RoleOpsAdmin || (payment.Order != nil && payment.Order.BuyerID == caller.UserID) {
		return payment, nil
	}
	if payment.Order != nil {
		membership, err := membershipOf(ctx, s.sellers, payment.Order.SellerID, caller.UserID)
		if err != nil {
			return nil, err
		}
		if membership != nil {
			return payment, nil
		}
	}
	return nil, fmt.Errorf("payment %s: %w", id, ErrNotFound)
}
