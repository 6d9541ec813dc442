// Package gateway dispatches mobile-money collection requests to the configured providers.
// A provider without an endpoint runs in simulation mode and acknowledges every request as
// pending; the real outcome always arrives later through the payment webhook.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Provider names.
const (
	MPesa       = "mpesa"
	TigoPesa    = "tigopesa"
	AirtelMoney = "airtelmoney"
)

// ErrUnknownProvider is returned for a provider name outside the supported set.
var ErrUnknownProvider = errors.New("unknown provider")

// Request is a collection request sent to a provider.
type Request struct {
	Phone  string
	Amount decimal.Decimal
	TxRef  string
}

// Receipt is the synchronous acknowledgement of a collection request.
type Receipt struct {
	Provider string `json:"provider"`
	Status   string `json:"status"`
	TxRef    string `json:"tx_ref"`
}

// StatusReport is a provider's answer to a status query. Payload is the raw document.
type StatusReport struct {
	Status  string
	Payload []byte
}

// Provider is one mobile-money operator.
type Provider interface {
	Name() string
	Initiate(ctx context.Context, req Request) (*Receipt, error)
	QueryStatus(ctx context.Context, txRef string) (*StatusReport, error)
}

// Dispatcher routes requests to a provider by name.
type Dispatcher struct {
	providers map[string]Provider
}

// NewDispatcher builds the three supported providers. endpoints maps a provider name to its
// base URL; a missing or empty entry keeps that provider simulated.
func NewDispatcher(endpoints map[string]string, timeout time.Duration) *Dispatcher {
	return NewDispatcherWith(
		newOperator(MPesa, endpoints[MPesa], timeout, mpesaBody),
		newOperator(TigoPesa, endpoints[TigoPesa], timeout, tigoBody),
		newOperator(AirtelMoney, endpoints[AirtelMoney], timeout, airtelBody),
	)
}

// NewDispatcherWith builds a dispatcher over arbitrary providers.
func NewDispatcherWith(providers ...Provider) *Dispatcher {
	d := &Dispatcher{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		d.providers[strings.ToLower(p.Name())] = p
	}
	return d
}

// Supports reports whether name is a known provider. Matching is case-insensitive.
func (d *Dispatcher) Supports(name string) bool {
	_, ok := d.providers[strings.ToLower(name)]
	return ok
}

// Initiate sends a collection request. It never touches payment state.
func (d *Dispatcher) Initiate(ctx context.Context, name string, req Request) (*Receipt, error) {
	p, ok := d.providers[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownProvider)
	}
	return p.Initiate(ctx, req)
}

// QueryStatus asks a provider for the settlement state of a request.
func (d *Dispatcher) QueryStatus(ctx context.Context, name, txRef string) (*StatusReport, error) {
	p, ok := d.providers[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownProvider)
	}
	return p.QueryStatus(ctx, txRef)
}

func mpesaBody(req Request) interface{} {
	return map[string]interface{}{
		"amount":    req.Amount.StringFixed(2),
		"msisdn":    req.Phone,
		"reference": req.TxRef,
	}
}

func tigoBody(req Request) interface{} {
	return map[string]interface{}{
		"CustomerMSISDN": req.Phone,
		"Amount":         req.Amount.StringFixed(2),
		"ReferenceID":    req.TxRef,
	}
}

func airtelBody(req Request) interface{} {
	return map[string]interface{}{
		"reference": req.TxRef,
		"subscriber": map[string]string{
			"msisdn": req.Phone,
		},
		"transaction": map[string]string{
			"amount": req.Amount.StringFixed(2),
			"id":     req.TxRef,
		},
	}
}

func simulated(name string, req Request) *Receipt {
	log.Printf("Simulating %s collection: phone=%s amount=%s tx_ref=%s", name, req.Phone, req.Amount.StringFixed(2), req.TxRef)
	return &Receipt{Provider: name, Status: "pending", TxRef: req.TxRef}
}
