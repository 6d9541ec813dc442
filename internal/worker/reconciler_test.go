package worker

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"jengamart/internal/gateway"
	"jengamart/internal/models"
	"jengamart/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

type stubPayments struct {
	mock.Mock
}

func (s *stubPayments) ListStalePending(ctx context.Context, before time.Time, limit int) ([]models.Payment, error) {
	args := s.Called(ctx, before, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Payment), args.Error(1)
}

type stubGateway struct {
	mu      sync.Mutex
	reports map[string]*gateway.StatusReport
	calls   []string
}

func (g *stubGateway) QueryStatus(_ context.Context, provider, txRef string) (*gateway.StatusReport, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, provider+"/"+txRef)
	r, ok := g.reports[txRef]
	if !ok {
		return nil, errors.New("provider unreachable")
	}
	return r, nil
}

type recordingSettler struct {
	mu      sync.Mutex
	settled map[string]models.PaymentStatus
	payload map[string]string
}

func (s *recordingSettler) Settle(_ context.Context, txRef string, status models.PaymentStatus, payload models.RawJSON) (*services.SettleResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settled == nil {
		s.settled = map[string]models.PaymentStatus{}
		s.payload = map[string]string{}
	}
	s.settled[txRef] = status
	s.payload[txRef] = string(payload)
	return &services.SettleResult{PaymentID: "p-" + txRef, Status: status}, nil
}

func stalePayment(id, provider, txRef string) models.Payment {
	ref := txRef
	return models.Payment{ID: id, Provider: provider, TxRef: &ref, Status: models.PaymentPending}
}

func TestRunOnceSettlesTerminalAnswers(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	payments := new(stubPayments)
	payments.On("ListStalePending", mock.Anything, now.Add(-10*time.Minute), 20).Return([]models.Payment{
		stalePayment("p1", "mpesa", "ref-ok"),
		stalePayment("p2", "tigopesa", "ref-failed"),
		stalePayment("p3", "airtelmoney", "ref-pending"),
		stalePayment("p4", "mpesa", "ref-down"),
		{ID: "p5", Provider: "mpesa", Status: models.PaymentPending},
	}, nil).Once()

	gw := &stubGateway{reports: map[string]*gateway.StatusReport{
		"ref-ok":      {Status: "SUCCESS", Payload: []byte(`{"status":"SUCCESS","receipt":"QX1"}`)},
		"ref-failed":  {Status: "cancelled"},
		"ref-pending": {Status: "pending"},
	}}
	settler := &recordingSettler{}

	r := NewReconciler(payments, gw, settler, Options{StaleAfter: 10 * time.Minute, BatchSize: 20, Workers: 2})
	r.now = func() time.Time { return now }

	pending, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, pending)

	assert.Equal(t, models.PaymentSuccess, settler.settled["ref-ok"])
	assert.Equal(t, `{"status":"SUCCESS","receipt":"QX1"}`, settler.payload["ref-ok"])
	assert.Equal(t, models.PaymentFailed, settler.settled["ref-failed"])
	assert.JSONEq(t, `{"status":"cancelled","source":"reconciliation"}`, settler.payload["ref-failed"])
	assert.NotContains(t, settler.settled, "ref-pending")
	assert.NotContains(t, settler.settled, "ref-down")
	assert.Len(t, gw.calls, 4)
	payments.AssertExpectations(t)
}

func TestRunOnceLeavesInFlightAnswersPending(t *testing.T) {
	payments := new(stubPayments)
	payments.On("ListStalePending", mock.Anything, mock.Anything, 50).Return([]models.Payment{
		stalePayment("p1", "mpesa", "ref-processing"),
		stalePayment("p2", "tigopesa", "ref-progress"),
		stalePayment("p3", "airtelmoney", "ref-queued"),
		stalePayment("p4", "mpesa", "ref-declined"),
	}, nil).Once()

	gw := &stubGateway{reports: map[string]*gateway.StatusReport{
		"ref-processing": {Status: "PROCESSING"},
		"ref-progress":   {Status: "in_progress"},
		"ref-queued":     {Status: "queued"},
		"ref-declined":   {Status: "DECLINED"},
	}}
	settler := &recordingSettler{}

	r := NewReconciler(payments, gw, settler, Options{})
	pending, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, pending)

	assert.NotContains(t, settler.settled, "ref-processing")
	assert.NotContains(t, settler.settled, "ref-progress")
	assert.NotContains(t, settler.settled, "ref-queued")
	assert.Equal(t, models.PaymentFailed, settler.settled["ref-declined"])
	assert.Len(t, gw.calls, 4)
}

func TestRunOnceWithNothingStale(t *testing.T) {
	payments := new(stubPayments)
	payments.On("ListStalePending", mock.Anything, mock.Anything, 50).Return([]models.Payment{}, nil).Once()

	r := NewReconciler(payments, &stubGateway{}, &recordingSettler{}, Options{})
	pending, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestRunOncePropagatesListError(t *testing.T) {
	payments := new(stubPayments)
	payments.On("ListStalePending", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("db down")).Once()

	r := NewReconciler(payments, &stubGateway{}, &recordingSettler{}, Options{})
	_, err := r.RunOnce(context.Background())
	assert.EqualError(t, err, "db down")
}

func TestRunStopsOnCancel(t *testing.T) {
	payments := new(stubPayments)
	payments.On("ListStalePending", mock.Anything, mock.Anything, mock.Anything).Return([]models.Payment{}, nil)

	r := NewReconciler(payments, &stubGateway{}, &recordingSettler{}, Options{Interval: 5 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reconciler did not stop")
	}
}
