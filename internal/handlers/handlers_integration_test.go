package handlers_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"jengamart/internal/config"
	"jengamart/internal/gateway"
	"jengamart/internal/models"
	"jengamart/internal/server"
	"jengamart/internal/store"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

type testEnv struct {
	t   *testing.T
	srv *server.Server
	db  *gorm.DB
}

// setupApp builds the full application on a private in-memory SQLite database.
func setupApp(t *testing.T, configure func(*config.Config), gw *gateway.Dispatcher) *testEnv {
	t.Helper()
	v := viper.New()
	config.SetDefaults(v)
	cfg := config.FromViper(v)
	cfg.JWTSecret = "test_jwt_secret"
	if configure != nil {
		configure(cfg)
	}

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := store.Open("sqlite", "file:"+name+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return &testEnv{t: t, srv: server.New(cfg, db, nil, gw), db: db}
}

// call sends a request and returns the status and raw body.
func (e *testEnv) call(method, path, token string, body interface{}) (int, []byte) {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case []byte:
			reader = bytes.NewReader(b)
		default:
			payload, err := json.Marshal(b)
			require.NoError(e.t, err)
			reader = bytes.NewReader(payload)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.srv.App.Test(req, -1)
	require.NoError(e.t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)
	return resp.StatusCode, raw
}

// object sends a request and decodes a JSON object response.
func (e *testEnv) object(method, path, token string, body interface{}) (int, map[string]interface{}) {
	e.t.Helper()
	status, raw := e.call(method, path, token, body)
	var out map[string]interface{}
	require.NoError(e.t, json.Unmarshal(raw, &out), string(raw))
	return status, out
}

type account struct {
	ID     string
	Access string
}

func (e *testEnv) register(name, phone, role string) account {
	e.t.Helper()
	status, body := e.object("POST", "/api/auth/register", "", fiber.Map{
		"full_name": name, "phone": phone, "password": "pass123", "role": role,
	})
	require.Equal(e.t, fiber.StatusCreated, status, body)
	user := body["user"].(map[string]interface{})
	tokens := body["tokens"].(map[string]interface{})
	return account{ID: user["id"].(string), Access: tokens["access"].(string)}
}

type marketplace struct {
	buyer    account
	admin    account
	sellerID string
	cement   string
	nails    string
}

// marketplaceFixture registers a buyer and a seller admin with a storefront selling cement
// (19000) and nails (5000).
func (e *testEnv) marketplaceFixture() marketplace {
	e.t.Helper()
	m := marketplace{
		buyer: e.register("Asha Buyer", "255700000001", "buyer"),
		admin: e.register("Juma Seller", "255700000002", "seller"),
	}

	status, seller := e.object("POST", "/api/sellers", m.admin.Access, fiber.Map{
		"business_name": "Demo Hardware", "phone": "255700000002",
	})
	require.Equal(e.t, fiber.StatusCreated, status, seller)
	m.sellerID = seller["id"].(string)

	m.cement = e.product(m.admin, "Cement 50kg", "cement", 19000, 100)
	m.nails = e.product(m.admin, "Nails 1kg", "hardware", 5000, 100)
	return m
}

func (e *testEnv) product(owner account, name, category string, price int64, stock int) string {
	e.t.Helper()
	status, body := e.object("POST", "/api/products", owner.Access, fiber.Map{
		"name": name, "category": category, "unit": "bag", "price": price, "stock": stock,
	})
	require.Equal(e.t, fiber.StatusCreated, status, body)
	return body["id"].(string)
}

func (e *testEnv) openOrder(m marketplace) string {
	e.t.Helper()
	status, order := e.object("POST", "/api/orders", m.buyer.Access, fiber.Map{"seller": m.sellerID})
	require.Equal(e.t, fiber.StatusCreated, status, order)
	assert.Nil(e.t, order["total"])
	return order["id"].(string)
}

func money(t *testing.T, v interface{}) decimal.Decimal {
	t.Helper()
	switch x := v.(type) {
	case string:
		d, err := decimal.NewFromString(x)
		require.NoError(t, err)
		return d
	case float64:
		return decimal.NewFromFloat(x)
	}
	t.Fatalf("not a money value: %#v", v)
	return decimal.Zero
}

func assertMoney(t *testing.T, want int64, got interface{}) {
	t.Helper()
	assert.True(t, decimal.NewFromInt(want).Equal(money(t, got)), "want %d, got %v", want, got)
}

func TestHealth(t *testing.T) {
	env := setupApp(t, nil, nil)
	status, body := env.object("GET", "/health", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])
}

func TestAuthFlow(t *testing.T) {
	env := setupApp(t, nil, nil)
	env.register("Asha", "255711111111", "")

	status, body := env.object("POST", "/api/auth/register", "", fiber.Map{
		"full_name": "Someone Else", "phone": "255711111111", "password": "x",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "conflict", body["error"])

	status, body = env.object("POST", "/api/auth/register", "", fiber.Map{"phone": "255722222222"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, body["errors"], "FullName")

	status, _ = env.object("POST", "/api/auth/login", "", fiber.Map{"phone": "255711111111", "password": "wrong"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body = env.object("POST", "/api/auth/login", "", fiber.Map{"phone": "255711111111", "password": "pass123"})
	require.Equal(t, fiber.StatusOK, status)
	tokens := body["tokens"].(map[string]interface{})

	status, body = env.object("POST", "/api/auth/refresh", "", fiber.Map{"refresh_token": tokens["refresh"]})
	require.Equal(t, fiber.StatusOK, status)
	access, _ := body["access_token"].(string)
	assert.NotEmpty(t, access)

	status, _ = env.object("POST", "/api/auth/refresh", "", fiber.Map{"refresh_token": tokens["access"]})
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = env.call("GET", "/api/orders", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	status, _ = env.call("GET", "/api/orders", access, nil)
	assert.Equal(t, fiber.StatusOK, status)
}

func TestAddItemRecomputesTotals(t *testing.T) {
	env := setupApp(t, nil, nil)
	m := env.marketplaceFixture()
	orderID := env.openOrder(m)
	path := "/api/orders/" + orderID + "/add_item"

	status, order := env.object("POST", path, m.buyer.Access, fiber.Map{"product_id": m.cement, "quantity": 2})
	require.Equal(t, fiber.StatusOK, status, order)
	assertMoney(t, 38000, order["subtotal"])
	assertMoney(t, 38000, order["total"])
	require.Len(t, order["items"], 1)
	assertMoney(t, 38000, order["items"].([]interface{})[0].(map[string]interface{})["line_total"])

	status, order = env.object("POST", path, m.buyer.Access, fiber.Map{"product_id": m.nails, "quantity": 1})
	require.Equal(t, fiber.StatusOK, status, order)
	assertMoney(t, 43000, order["subtotal"])
	assertMoney(t, 0, order["tax"])
	assertMoney(t, 43000, order["total"])
	assert.Len(t, order["items"], 2)
}

func TestAddItemRejections(t *testing.T) {
	env := setupApp(t, nil, nil)
	m := env.marketplaceFixture()
	orderID := env.openOrder(m)
	path := "/api/orders/" + orderID + "/add_item"

	status, _ := env.object("POST", path, m.buyer.Access, fiber.Map{"product_id": m.cement, "quantity": 1})
	require.Equal(t, fiber.StatusOK, status)

	status, body := env.object("POST", path, m.buyer.Access, fiber.Map{"product_id": "does-not-exist", "quantity": 1})
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.NotEmpty(t, body["detail"])

	status, _ = env.object("POST", path, m.buyer.Access, fiber.Map{"product_id": m.cement, "quantity": 0})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = env.object("POST", path, m.buyer.Access, fiber.Map{"product_id": m.cement, "quantity": 100})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = env.object("POST", path, m.admin.Access, fiber.Map{"product_id": m.cement, "quantity": 1})
	assert.Equal(t, fiber.StatusNotFound, status)

	status, order := env.object("GET", "/api/orders/"+orderID, m.buyer.Access, nil)
	require.Equal(t, fiber.StatusOK, status)
	assertMoney(t, 19000, order["subtotal"])
	assertMoney(t, 19000, order["total"])
	assert.Len(t, order["items"], 1)
}

func TestLineTotalSurvivesPriceEdit(t *testing.T) {
	env := setupApp(t, nil, nil)
	m := env.marketplaceFixture()
	orderID := env.openOrder(m)

	status, _ := env.object("POST", "/api/orders/"+orderID+"/add_item", m.buyer.Access, fiber.Map{"product_id": m.cement, "quantity": 2})
	require.Equal(t, fiber.StatusOK, status)

	status, product := env.object("PATCH", "/api/products/"+m.cement, m.admin.Access, fiber.Map{"price": 25000})
	require.Equal(t, fiber.StatusOK, status, product)
	assertMoney(t, 25000, product["price"])
	assert.Equal(t, "Cement 50kg", product["name"])

	status, order := env.object("GET", "/api/orders/"+orderID, m.buyer.Access, nil)
	require.Equal(t, fiber.StatusOK, status)
	item := order["items"].([]interface{})[0].(map[string]interface{})
	assertMoney(t, 19000, item["unit_price"])
	assertMoney(t, 38000, item["line_total"])
	assertMoney(t, 38000, order["total"])
}

func TestConcurrentAddItemKeepsSubtotalConsistent(t *testing.T) {
	env := setupApp(t, nil, nil)
	m := env.marketplaceFixture()
	orderID := env.openOrder(m)
	path := "/api/orders/" + orderID + "/add_item"

	const workers = 8
	var wg sync.WaitGroup
	statuses := make([]int, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			payload, _ := json.Marshal(fiber.Map{"product_id": m.nails, "quantity": 1})
			req := httptest.NewRequest("POST", path, bytes.NewReader(payload))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+m.buyer.Access)
			resp, err := env.srv.App.Test(req, -1)
			if err == nil {
				statuses[i] = resp.StatusCode
				resp.Body.Close()
			}
		}(i)
	}
	wg.Wait()
	for _, s := range statuses {
		assert.Equal(t, fiber.StatusOK, s)
	}

	var order models.Order
	require.NoError(t, env.db.Preload("Items").First(&order, "id = ?", orderID).Error)
	require.Len(t, order.Items, workers)
	sum := decimal.Zero
	for _, item := range order.Items {
		sum = sum.Add(item.LineTotal)
	}
	assert.True(t, sum.Equal(order.Subtotal.Decimal), "subtotal %s, items %s", order.Subtotal.Decimal, sum)
	assert.True(t, decimal.NewFromInt(5000*workers).Equal(order.Total.Decimal))
}

func TestOrderStatusTransitions(t *testing.T) {
	env := setupApp(t, nil, nil)
	m := env.marketplaceFixture()
	orderID := env.openOrder(m)
	path := "/api/orders/" + orderID + "/status"

	status, _ := env.object("PATCH", path, m.buyer.Access, fiber.Map{"status": "dispatched"})
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = env.object("PATCH", path, m.admin.Access, fiber.Map{"status": "delivered"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, order := env.object("PATCH", path, m.buyer.Access, fiber.Map{"status": "cancelled"})
	require.Equal(t, fiber.StatusOK, status, order)
	assert.Equal(t, "cancelled", order["status"])
}

func TestInvitationWorkflow(t *testing.T) {
	env := setupApp(t, nil, nil)
	m := env.marketplaceFixture()

	status, inv := env.object("POST", "/api/seller-invitations", m.admin.Access, fiber.Map{
		"email": "Staff@Example.com", "phone": "255733333333",
	})
	require.Equal(t, fiber.StatusCreated, status, inv)
	assert.Equal(t, "pending", inv["status"])
	assert.Equal(t, "staff@example.com", inv["email"])
	assert.Equal(t, "Demo Hardware", inv["seller_name"])
	token := inv["token"].(string)

	status, body := env.object("POST", "/api/seller-invitations", m.admin.Access, fiber.Map{
		"email": "staff@example.com", "phone": "255744444444",
	})
	assert.Equal(t, fiber.StatusConflict, status, body)
	status, _ = env.object("POST", "/api/seller-invitations", m.admin.Access, fiber.Map{
		"email": "other@example.com", "phone": "255733333333",
	})
	assert.Equal(t, fiber.StatusConflict, status)

	status, _ = env.object("POST", "/api/seller-invitations", m.buyer.Access, fiber.Map{
		"email": "x@example.com", "phone": "255755555555",
	})
	assert.Equal(t, fiber.StatusForbidden, status)

	status, found := env.object("GET", "/api/seller-invitations/lookup?token="+token, "", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, inv["id"], found["id"])
	assert.Equal(t, "Demo Hardware", found["seller_name"])

	status, _ = env.object("GET", "/api/seller-invitations/lookup", "", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, accepted := env.object("POST", "/api/seller-invitations/accept", "", fiber.Map{
		"token": token, "full_name": "New Staff", "password": "pass123",
	})
	require.Equal(t, fiber.StatusOK, status, accepted)
	user := accepted["user"].(map[string]interface{})
	assert.Equal(t, "seller_staff", user["role"])
	assert.Equal(t, "255733333333", user["phone"])
	assert.Equal(t, "staff@example.com", user["email"])
	assert.NotEmpty(t, accepted["tokens"].(map[string]interface{})["access"])

	status, _ = env.object("GET", "/api/seller-invitations/lookup?token="+token, "", nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = env.object("POST", "/api/seller-invitations/accept", "", fiber.Map{
		"token": token, "full_name": "Replay", "password": "pass123",
	})
	assert.Equal(t, fiber.StatusNotFound, status)

	var users int64
	require.NoError(t, env.db.Model(&models.User{}).Where("phone = ?", "255733333333").Count(&users).Error)
	assert.Equal(t, int64(1), users)

	status, seller := env.object("GET", "/api/sellers/"+m.sellerID, m.admin.Access, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, seller["members"], 2)

	status, _ = env.object("POST", "/api/seller-invitations/"+inv["id"].(string)+"/cancel", m.admin.Access, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)

	// A fresh invite for the same contact is allowed once the first one is resolved.
	status, again := env.object("POST", "/api/seller-invitations", m.admin.Access, fiber.Map{
		"email": "staff@example.com", "phone": "255766666666",
	})
	require.Equal(t, fiber.StatusCreated, status, again)
	status, cancelled := env.object("POST", "/api/seller-invitations/"+again["id"].(string)+"/cancel", m.admin.Access, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, cancelled["ok"])

	status, list := env.call("GET", "/api/seller-invitations", m.admin.Access, nil)
	require.Equal(t, fiber.StatusOK, status)
	var invitations []map[string]interface{}
	require.NoError(t, json.Unmarshal(list, &invitations))
	assert.Len(t, invitations, 2)
}

func TestAcceptRejectsExistingPhone(t *testing.T) {
	env := setupApp(t, nil, nil)
	m := env.marketplaceFixture()

	status, inv := env.object("POST", "/api/seller-invitations", m.admin.Access, fiber.Map{
		"email": "buyer@example.com", "phone": "255700000001",
	})
	require.Equal(t, fiber.StatusCreated, status)

	status, body := env.object("POST", "/api/seller-invitations/accept", "", fiber.Map{
		"token": inv["token"], "full_name": "Asha Again", "password": "pass123",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "conflict", body["error"])

	status, _ = env.object("GET", "/api/seller-invitations/lookup?token="+inv["token"].(string), "", nil)
	assert.Equal(t, fiber.StatusOK, status)
}

// checkout fills an order with two bags of cement and pays for it.
func (e *testEnv) checkout(m marketplace) (orderID, txRef string, status int, body map[string]interface{}) {
	e.t.Helper()
	orderID = e.openOrder(m)
	s, _ := e.object("POST", "/api/orders/"+orderID+"/add_item", m.buyer.Access, fiber.Map{"product_id": m.cement, "quantity": 2})
	require.Equal(e.t, fiber.StatusOK, s)

	status, body = e.object("POST", "/api/payments", m.buyer.Access, fiber.Map{
		"order_id": orderID, "provider": "MPesa", "phone": "255700000001",
	})
	payment := body["payment"].(map[string]interface{})
	return orderID, payment["tx_ref"].(string), status, body
}

func TestWebhookSettlesPaymentExactlyOnce(t *testing.T) {
	env := setupApp(t, nil, nil)
	m := env.marketplaceFixture()
	orderID, txRef, status, body := env.checkout(m)
	require.Equal(t, fiber.StatusCreated, status, body)
	payment := body["payment"].(map[string]interface{})
	assert.Equal(t, "pending", payment["status"])
	assert.Equal(t, "mpesa", payment["provider"])
	assertMoney(t, 38000, payment["amount"])
	assert.Equal(t, "pending", body["receipt"].(map[string]interface{})["status"])

	status, ack := env.object("POST", "/api/webhooks/payments", "", fiber.Map{
		"tx_ref": txRef, "status": "SUCCESS", "amount": 38000, "provider": "mpesa",
	})
	require.Equal(t, fiber.StatusOK, status, ack)
	assert.Equal(t, true, ack["ok"])
	assert.Equal(t, false, ack["replayed"])

	status, order := env.object("GET", "/api/orders/"+orderID, m.buyer.Access, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "confirmed", order["status"])

	status, ack = env.object("POST", "/api/webhooks/payments", "", fiber.Map{
		"tx_ref": txRef, "status": "SUCCESS", "amount": 38000, "provider": "mpesa",
	})
	require.Equal(t, fiber.StatusOK, status, ack)
	assert.Equal(t, true, ack["ok"])
	assert.Equal(t, true, ack["replayed"])

	status, order = env.object("GET", "/api/orders/"+orderID, m.buyer.Access, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "confirmed", order["status"])

	status, ack = env.object("POST", "/api/webhooks/payments", "", fiber.Map{"tx_ref": txRef, "status": "failed"})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, ack["ok"])
	assert.Equal(t, true, ack["replayed"])

	status, order = env.object("GET", "/api/orders/"+orderID, m.buyer.Access, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "confirmed", order["status"])

	status, raw := env.call("GET", "/api/payments", m.buyer.Access, nil)
	require.Equal(t, fiber.StatusOK, status)
	var payments []map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &payments))
	require.Len(t, payments, 1)
	assert.Equal(t, "success", payments[0]["status"])
	assert.Equal(t, "SUCCESS", payments[0]["payload"].(map[string]interface{})["status"])

	status, ack = env.object("POST", "/api/webhooks/payments", "", fiber.Map{"tx_ref": "unknown-ref", "status": "success"})
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, false, ack["ok"])
}

func TestWebhookConcurrentDeliveries(t *testing.T) {
	env := setupApp(t, nil, nil)
	m := env.marketplaceFixture()
	orderID, txRef, status, body := env.checkout(m)
	require.Equal(t, fiber.StatusCreated, status, body)

	const deliveries = 8
	codes := make([]int, deliveries)
	errs := make([]error, deliveries)
	var wg sync.WaitGroup
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcome := "SUCCESS"
			if i%2 == 1 {
				outcome = "failed"
			}
			payload, _ := json.Marshal(fiber.Map{"tx_ref": txRef, "status": outcome})
			req := httptest.NewRequest("POST", "/api/webhooks/payments", bytes.NewReader(payload))
			req.Header.Set("Content-Type", "application/json")
			resp, err := env.srv.App.Test(req, -1)
			if err != nil {
				errs[i] = err
				return
			}
			resp.Body.Close()
			codes[i] = resp.StatusCode
		}(i)
	}
	wg.Wait()

	for i := 0; i < deliveries; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, fiber.StatusOK, codes[i], "delivery %d", i)
	}

	status, raw := env.call("GET", "/api/payments", m.buyer.Access, nil)
	require.Equal(t, fiber.StatusOK, status)
	var payments []map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &payments))
	require.Len(t, payments, 1)
	settled := payments[0]["status"]
	require.Contains(t, []interface{}{"success", "failed"}, settled)

	_, order := env.object("GET", "/api/orders/"+orderID, m.buyer.Access, nil)
	if settled == "success" {
		assert.Equal(t, "confirmed", order["status"])
	} else {
		assert.Equal(t, "pending", order["status"])
	}
}

func TestWebhookFailureLeavesOrderPending(t *testing.T) {
	env := setupApp(t, nil, nil)
	m := env.marketplaceFixture()
	orderID, txRef, status, _ := env.checkout(m)
	require.Equal(t, fiber.StatusCreated, status)

	status, _ = env.object("POST", "/api/webhooks/payments", "", fiber.Map{"tx_ref": txRef, "status": "declined"})
	require.Equal(t, fiber.StatusOK, status)

	_, order := env.object("GET", "/api/orders/"+orderID, m.buyer.Access, nil)
	assert.Equal(t, "pending", order["status"])
}

func TestWebhookSignature(t *testing.T) {
	const secret = "whsec_test"
	env := setupApp(t, func(cfg *config.Config) { cfg.WebhookSecret = secret }, nil)
	m := env.marketplaceFixture()
	_, txRef, status, _ := env.checkout(m)
	require.Equal(t, fiber.StatusCreated, status)

	payload := []byte(`{"tx_ref":"` + txRef + `","status":"success"}`)

	status, ack := env.object("POST", "/api/webhooks/payments", "", payload)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, false, ack["ok"])

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	req := httptest.NewRequest("POST", "/api/webhooks/payments", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Signature", "sha256="+hex.EncodeToString(mac.Sum(nil)))
	resp, err := env.srv.App.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestCheckoutRejections(t *testing.T) {
	env := setupApp(t, nil, nil)
	m := env.marketplaceFixture()
	orderID := env.openOrder(m)

	status, _ := env.object("POST", "/api/payments", m.buyer.Access, fiber.Map{
		"order_id": orderID, "provider": "mpesa", "phone": "255700000001",
	})
	assert.Equal(t, fiber.StatusBadRequest, status, "empty order has nothing to pay")

	status, body := env.object("POST", "/api/payments", m.buyer.Access, fiber.Map{
		"order_id": orderID, "provider": "paypal", "phone": "255700000001",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "invalid payment provider", body["error"])
}

// flakyProvider cannot be reached for collection but answers status queries.
type flakyProvider struct {
	status string
}

func (p *flakyProvider) Name() string { return gateway.MPesa }

func (p *flakyProvider) Initiate(context.Context, gateway.Request) (*gateway.Receipt, error) {
	return nil, errors.New("connection reset by peer")
}

func (p *flakyProvider) QueryStatus(_ context.Context, txRef string) (*gateway.StatusReport, error) {
	return &gateway.StatusReport{Status: p.status, Payload: []byte(`{"tx_ref":"` + txRef + `","status":"` + p.status + `"}`)}, nil
}

func TestGatewayFailureKeepsPaymentPendingForReconciliation(t *testing.T) {
	provider := &flakyProvider{status: "pending"}
	env := setupApp(t, func(cfg *config.Config) { cfg.ReconcileStaleAfter = time.Minute }, gateway.NewDispatcherWith(provider))
	m := env.marketplaceFixture()

	orderID, txRef, status, body := env.checkout(m)
	require.Equal(t, fiber.StatusAccepted, status, body)
	assert.Equal(t, "pending", body["payment"].(map[string]interface{})["status"])
	assert.Contains(t, body["gateway_error"], "connection reset")

	require.NoError(t, env.db.Model(&models.Payment{}).Where("tx_ref = ?", txRef).
		Update("created_at", time.Now().Add(-time.Hour)).Error)

	ctx := context.Background()
	pending, err := env.srv.Reconciler.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pending)

	provider.status = "success"
	pending, err = env.srv.Reconciler.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, pending)

	var payment models.Payment
	require.NoError(t, env.db.First(&payment, "tx_ref = ?", txRef).Error)
	assert.Equal(t, models.PaymentSuccess, payment.Status)

	_, order := env.object("GET", "/api/orders/"+orderID, m.buyer.Access, nil)
	assert.Equal(t, "confirmed", order["status"])

	pending, err = env.srv.Reconciler.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, pending)
}

func TestCatalogFiltersAndScope(t *testing.T) {
	env := setupApp(t, nil, nil)
	m := env.marketplaceFixture()

	status, raw := env.call("GET", "/api/products?ordering=price", m.buyer.Access, nil)
	require.Equal(t, fiber.StatusOK, status)
	var products []map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &products))
	require.Len(t, products, 2)
	assert.Equal(t, "Nails 1kg", products[0]["name"])

	status, raw = env.call("GET", "/api/products?search=CEMENT", m.buyer.Access, nil)
	require.Equal(t, fiber.StatusOK, status)
	require.NoError(t, json.Unmarshal(raw, &products))
	require.Len(t, products, 1)
	assert.Equal(t, m.cement, products[0]["id"])

	status, _ = env.object("POST", "/api/products", m.buyer.Access, fiber.Map{
		"name": "Sand", "category": "aggregates", "unit": "tonne", "price": 35000, "stock": 1,
	})
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = env.object("PATCH", "/api/products/"+m.cement, m.admin.Access, fiber.Map{"price": 0})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = env.call("GET", "/api/sellers/"+m.sellerID, m.buyer.Access, nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, raw = env.call("GET", "/api/sellers", m.buyer.Access, nil)
	require.Equal(t, fiber.StatusOK, status)
	var sellers []map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &sellers))
	assert.Empty(t, sellers)

	status, _ = env.call("DELETE", "/api/products/"+m.nails, m.admin.Access, nil)
	assert.Equal(t, fiber.StatusNoContent, status)
	status, _ = env.call("GET", "/api/products/"+m.nails, m.buyer.Access, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}
