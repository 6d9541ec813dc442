// Package worker runs the periodic reconciliation of payments whose callback never arrived.
package worker

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"jengamart/internal/gateway"
	"jengamart/internal/models"
	"jengamart/internal/services"

	"golang.org/x/sync/errgroup"
)

// PendingPayments lists payments that are still waiting for a provider answer.
type PendingPayments interface {
	ListStalePending(ctx context.Context, before time.Time, limit int) ([]models.Payment, error)
}

// StatusSource asks a provider what happened to a collection.
type StatusSource interface {
	QueryStatus(ctx context.Context, provider, txRef string) (*gateway.StatusReport, error)
}

// Settler applies a terminal status exactly once. *services.WebhookService satisfies it.
type Settler interface {
	Settle(ctx context.Context, txRef string, status models.PaymentStatus, payload models.RawJSON) (*services.SettleResult, error)
}

// Options tunes the sweep. Zero values fall back to the defaults below.
type Options struct {
	Interval   time.Duration
	StaleAfter time.Duration
	BatchSize  int
	Workers    int
}

// Reconciler finds payments stuck in pending and syncs them with their provider.
type Reconciler struct {
	payments PendingPayments
	gateway  StatusSource
	settler  Settler

	interval   time.Duration
	staleAfter time.Duration
	batchSize  int
	workers    int

	now func() time.Time
}

// NewReconciler creates a Reconciler.
func NewReconciler(payments PendingPayments, gw StatusSource, settler Settler, opts Options) *Reconciler {
	r := &Reconciler{
		payments:   payments,
		gateway:    gw,
		settler:    settler,
		interval:   opts.Interval,
		staleAfter: opts.StaleAfter,
		batchSize:  opts.BatchSize,
		workers:    opts.Workers,
		now:        time.Now,
	}
	if r.interval <= 0 {
		r.interval = 5 * time.Minute
	}
	if r.staleAfter <= 0 {
		r.staleAfter = 5 * time.Minute
	}
	if r.batchSize <= 0 {
		r.batchSize = 50
	}
	if r.workers <= 0 {
		r.workers = 5
	}
	return r
}

// Run sweeps every interval until ctx is cancelled. Blocking call.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	log.Printf("[Reconciler] Worker started. Polling every %s.", r.interval)
	for {
		select {
		case <-ctx.Done():
			log.Println("[Reconciler] Context cancelled, stopping.")
			return
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil {
				log.Printf("[Reconciler] Sweep failed: %v", err)
			}
		}
	}
}

// RunOnce performs a single sweep and returns how many of the examined payments are still
// pending afterwards.
func (r *Reconciler) RunOnce(ctx context.Context) (int, error) {
	stale, err := r.payments.ListStalePending(ctx, r.now().Add(-r.staleAfter), r.batchSize)
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}
	log.Printf("[Reconciler] Processing %d stuck payments...", len(stale))

	var pending int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i := range stale {
		p := stale[i]
		g.Go(func() error {
			if !r.sync(gctx, p) {
				atomic.AddInt64(&pending, 1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(pending), err
	}
	return int(pending), ctx.Err()
}

// sync reports whether the payment left pending.
func (r *Reconciler) sync(ctx context.Context, p models.Payment) bool {
	if p.TxRef == nil || *p.TxRef == "" {
		return false
	}
	txRef := *p.TxRef

	report, err := r.gateway.QueryStatus(ctx, p.Provider, txRef)
	if err != nil {
		log.Printf("[Reconciler] Status query for payment %s failed: %v", p.ID, err)
		return false
	}
	status := strings.TrimSpace(report.Status)
	settled, final := services.TerminalPaymentStatus(status)
	if !final {
		return false
	}

	payload := models.RawJSON(report.Payload)
	if len(payload) == 0 {
		payload, _ = json.Marshal(map[string]string{"status": status, "source": "reconciliation"})
	}
	res, err := r.settler.Settle(ctx, txRef, settled, payload)
	if err != nil {
		log.Printf("[Reconciler] Settling payment %s failed: %v", p.ID, err)
		return false
	}
	if !res.Replayed {
		log.Printf("[Reconciler] Payment %s reconciled as %s", p.ID, res.Status)
	}
	return true
}
