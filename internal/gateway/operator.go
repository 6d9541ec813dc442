package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// operator is a provider reached over HTTP when an endpoint is configured.
type operator struct {
	name     string
	endpoint string
	timeout  time.Duration
	body     func(Request) interface{}
}

func newOperator(name, endpoint string, timeout time.Duration, body func(Request) interface{}) *operator {
	return &operator{
		name:     name,
		endpoint: strings.TrimRight(endpoint, "/"),
		timeout:  timeout,
		body:     body,
	}
}

func (o *operator) Name() string { return o.name }

// Initiate posts the provider specific request to <endpoint>/collections.
func (o *operator) Initiate(ctx context.Context, req Request) (*Receipt, error) {
	if o.endpoint == "" {
		return simulated(o.name, req), nil
	}

	agent := fiber.Post(o.endpoint + "/collections").
		JSON(o.body(req)).
		Timeout(o.deadline(ctx))
	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return nil, fmt.Errorf("%s request failed: %w", o.name, errs[0])
	}
	if code < 200 || code >= 300 {
		return nil, fmt.Errorf("%s responded with status %d: %s", o.name, code, truncate(body))
	}
	return &Receipt{Provider: o.name, Status: "pending", TxRef: req.TxRef}, nil
}

// QueryStatus reads <endpoint>/collections/<tx_ref>. A simulated provider always reports
// pending.
func (o *operator) QueryStatus(ctx context.Context, txRef string) (*StatusReport, error) {
	if o.endpoint == "" {
		return &StatusReport{Status: "pending"}, nil
	}

	agent := fiber.Get(o.endpoint + "/collections/" + url.PathEscape(txRef)).
		Timeout(o.deadline(ctx))
	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return nil, fmt.Errorf("%s status query failed: %w", o.name, errs[0])
	}
	if code < 200 || code >= 300 {
		return nil, fmt.Errorf("%s status query responded with %d: %s", o.name, code, truncate(body))
	}

	var doc struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%s status query returned invalid JSON: %w", o.name, err)
	}
	return &StatusReport{Status: doc.Status, Payload: body}, nil
}

// deadline is the configured timeout, shortened to the context deadline when that is sooner.
func (o *operator) deadline(ctx context.Context) time.Duration {
	timeout := o.timeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < timeout || timeout <= 0 {
			timeout = left
		}
	}
	if timeout <= 0 {
		timeout = time.Millisecond
	}
	return timeout
}

func truncate(b []byte) string {
	const max = 200
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
