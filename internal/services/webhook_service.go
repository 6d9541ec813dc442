package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"jengamart/internal/models"
	"jengamart/internal/repositories"

	"golang.org/x/sync/singleflight"
)

// CallbackPayload is the part of a provider callback the reconciler reads. The full document
// is stored verbatim on the payment.
type CallbackPayload struct {
	TxRef    string `json:"tx_ref"`
	Status   string `json:"status"`
	Provider string `json:"provider"`
}

// SettleResult describes what a callback did.
type SettleResult struct {
	PaymentID string               `json:"payment_id"`
	OrderID   string               `json:"order_id"`
	Status    models.PaymentStatus `json:"status"`
	// Replayed is true when the payment was already terminal and nothing changed.
	Replayed bool `json:"replayed"`
}

// NormalizePaymentStatus maps a provider status onto a terminal payment status. Only
// "success" (any case) counts as success.
func NormalizePaymentStatus(status string) models.PaymentStatus {
	if strings.EqualFold(strings.TrimSpace(status), "success") {
		return models.PaymentSuccess
	}
	return models.PaymentFailed
}

// failedStatuses are the provider answers that end a collection without payment.
var failedStatuses = map[string]bool{
	"failed":    true,
	"failure":   true,
	"cancelled": true,
	"canceled":  true,
	"declined":  true,
	"rejected":  true,
	"expired":   true,
	"timeout":   true,
}

// TerminalPaymentStatus maps a polled provider status onto a terminal payment status. It
// reports false for anything that is not known to be final, such as "processing" or
// "queued", so the payment stays pending.
func TerminalPaymentStatus(status string) (models.PaymentStatus, bool) {
	s := strings.ToLower(strings.TrimSpace(status))
	switch {
	case s == "success":
		return models.PaymentSuccess, true
	case failedStatuses[s]:
		return models.PaymentFailed, true
	}
	return "", false
}

// WebhookService applies provider callbacks to payments and orders exactly once.
type WebhookService struct {
	tx        repositories.TxManager
	payments  repositories.PaymentRepository
	orders    repositories.OrderRepository
	secret    []byte
	inflight  singleflight.Group
	publisher EventPublisher
}

// NewWebhookService creates a new WebhookService. An empty secret disables signature checks.
func NewWebhookService(tx repositories.TxManager, payments repositories.PaymentRepository, orders repositories.OrderRepository, secret string, publisher EventPublisher) *WebhookService {
	return &WebhookService{
		tx:        tx,
		payments:  payments,
		orders:    orders,
		secret:    []byte(secret),
		publisher: publisher,
	}
}

// VerifySignature checks the hex HMAC-SHA256 of body. An optional "sha256=" prefix is
// accepted.
func (s *WebhookService) VerifySignature(body []byte, signature string) error {
	if len(s.secret) == 0 {
		return nil
	}
	got, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(signature), "sha256="))
	if err != nil || len(got) == 0 {
		return ErrInvalidSignature
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return ErrInvalidSignature
	}
	return nil
}

// HandleCallback verifies and applies one provider callback. Concurrent deliveries for the
// same tx_ref share a single settlement.
func (s *WebhookService) HandleCallback(ctx context.Context, body []byte, signature string) (*SettleResult, error) {
	if err := s.VerifySignature(body, signature); err != nil {
		return nil, err
	}

	var payload CallbackPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("malformed callback: %v: %w", err, ErrValidation)
	}
	if payload.TxRef == "" {
		return nil, fmt.Errorf("callback without tx_ref: %w", ErrNotFound)
	}
	if payload.Status == "" {
		payload.Status = "failed"
	}

	// Waiters share this settlement, so it outlives the leading request.
	settleCtx := context.WithoutCancel(ctx)
	led := false
	v, err, shared := s.inflight.Do(payload.TxRef, func() (interface{}, error) {
		led = true
		return s.Settle(settleCtx, payload.TxRef, NormalizePaymentStatus(payload.Status), models.RawJSON(body))
	})
	if shared && !led {
		log.Printf("Collapsed concurrent callback for tx_ref %s, body not stored: %s", payload.TxRef, body)
	}
	if err != nil {
		return nil, err
	}
	return v.(*SettleResult), nil
}

// Settle moves the payment identified by txRef to status, storing payload verbatim, and
// confirms its order on success. The payment row stays locked for the whole transition. A
// payment that is already terminal is left untouched and reported as replayed.
func (s *WebhookService) Settle(ctx context.Context, txRef string, status models.PaymentStatus, payload models.RawJSON) (*SettleResult, error) {
	result := &SettleResult{}
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		payment, err := s.payments.GetByTxRefForUpdate(ctx, txRef)
		if err != nil {
			return fromRepo(err, "payment with tx_ref %s", txRef)
		}
		result.PaymentID = payment.ID
		result.OrderID = payment.OrderID
		result.Status = payment.Status

		if payment.Status.Terminal() {
			result.Replayed = true
			return nil
		}
		changed, err := s.payments.Settle(ctx, payment.ID, status, payload)
		if err != nil {
			return err
		}
		if !changed {
			result.Replayed = true
			return nil
		}
		result.Status = status

		if status == models.PaymentSuccess {
			confirmed, err := s.orders.UpdateStatus(ctx, payment.OrderID, []models.OrderStatus{models.OrderPending}, models.OrderConfirmed)
			if err != nil {
				return err
			}
			if !confirmed {
				log.Printf("Payment %s succeeded but order %s was no longer pending", payment.ID, payment.OrderID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Replayed {
		log.Printf("Ignored callback for already settled payment %s (%s)", result.PaymentID, result.Status)
		return result, nil
	}
	log.Printf("Payment %s settled as %s", result.PaymentID, result.Status)
	publish(s.publisher, EventPaymentSettled, result)
	return result, nil
}
