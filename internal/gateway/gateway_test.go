package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startProvider serves a fake operator API on a loopback port and returns its base URL.
func startProvider(t *testing.T, app *fiber.App) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		_ = app.Listener(ln)
	}()
	t.Cleanup(func() {
		_ = app.Shutdown()
	})
	return "http://" + ln.Addr().String()
}

func TestDispatcher_SimulatedProviders(t *testing.T) {
	d := NewDispatcher(nil, time.Second)
	req := Request{Phone: "255700000001", Amount: decimal.NewFromInt(38000), TxRef: "ref-1"}

	for _, name := range []string{MPesa, TigoPesa, AirtelMoney, "MPESA"} {
		assert.True(t, d.Supports(name), name)
		receipt, err := d.Initiate(context.Background(), name, req)
		require.NoError(t, err, name)
		assert.Equal(t, "pending", receipt.Status)
		assert.Equal(t, "ref-1", receipt.TxRef)

		report, err := d.QueryStatus(context.Background(), name, "ref-1")
		require.NoError(t, err)
		assert.Equal(t, "pending", report.Status)
	}
}

func TestDispatcher_UnknownProvider(t *testing.T) {
	d := NewDispatcher(nil, time.Second)
	assert.False(t, d.Supports("paypal"))

	_, err := d.Initiate(context.Background(), "paypal", Request{TxRef: "x"})
	assert.True(t, errors.Is(err, ErrUnknownProvider))
	_, err = d.QueryStatus(context.Background(), "paypal", "x")
	assert.True(t, errors.Is(err, ErrUnknownProvider))
}

func TestOperator_PostsProviderPayload(t *testing.T) {
	received := make(chan map[string]interface{}, 1)
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Post("/collections", func(c *fiber.Ctx) error {
		var body map[string]interface{}
		if err := json.Unmarshal(c.Body(), &body); err != nil {
			return c.SendStatus(fiber.StatusBadRequest)
		}
		received <- body
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"accepted": true})
	})
	app.Get("/collections/:ref", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "SUCCESS", "reference": c.Params("ref")})
	})
	base := startProvider(t, app)

	d := NewDispatcher(map[string]string{MPesa: base + "/"}, 2*time.Second)
	receipt, err := d.Initiate(context.Background(), MPesa, Request{Phone: "255700000001", Amount: decimal.NewFromInt(19000), TxRef: "ref-2"})
	require.NoError(t, err)
	assert.Equal(t, "pending", receipt.Status)

	body := <-received
	assert.Equal(t, "255700000001", body["msisdn"])
	assert.Equal(t, "ref-2", body["reference"])
	assert.Equal(t, "19000.00", body["amount"])

	report, err := d.QueryStatus(context.Background(), MPesa, "ref-2")
	require.NoError(t, err)
	assert.Equal(t, "SUCCESS", report.Status)
	assert.Contains(t, string(report.Payload), "ref-2")
}

func TestOperator_ErrorResponses(t *testing.T) {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Post("/collections", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusServiceUnavailable).SendString("maintenance")
	})
	base := startProvider(t, app)

	d := NewDispatcher(map[string]string{TigoPesa: base}, 2*time.Second)
	_, err := d.Initiate(context.Background(), TigoPesa, Request{Phone: "1", Amount: decimal.NewFromInt(1), TxRef: "r"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestOperator_TransportFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	d := NewDispatcher(map[string]string{AirtelMoney: "http://" + addr}, 500*time.Millisecond)
	_, err = d.Initiate(context.Background(), AirtelMoney, Request{Phone: "1", Amount: decimal.NewFromInt(1), TxRef: "r"})
	assert.Error(t, err)
}

func TestOperator_DeadlineFollowsContext(t *testing.T) {
	o := newOperator(MPesa, "http://example", time.Minute, mpesaBody)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.LessOrEqual(t, o.deadline(ctx), time.Second)
	assert.Equal(t, time.Minute, o.deadline(context.Background()))
}

func TestProviderBodies(t *testing.T) {
	req := Request{Phone: "255711", Amount: decimal.RequireFromString("5000.5"), TxRef: "t"}

	tigo := tigoBody(req).(map[string]interface{})
	assert.Equal(t, "5000.50", tigo["Amount"])
	assert.Equal(t, "255711", tigo["CustomerMSISDN"])

	airtel := airtelBody(req).(map[string]interface{})
	assert.Equal(t, map[string]string{"msisdn": "255711"}, airtel["subscriber"])
}
