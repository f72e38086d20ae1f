package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/brandit/internal/crypto"
	"github.com/alanyoungcy/brandit/internal/domain"
	"github.com/alanyoungcy/brandit/internal/pricing"
	"github.com/alanyoungcy/brandit/internal/progression"
	"github.com/alanyoungcy/brandit/internal/queue"
	"github.com/alanyoungcy/brandit/internal/server/handler"
	"github.com/alanyoungcy/brandit/internal/service"
	"github.com/alanyoungcy/brandit/internal/store/memory"
)

const adminKey = "let-me-in"

type testEnv struct {
	srv        *httptest.Server
	signer     *crypto.PaymentSigner
	dispatcher *queue.Dispatcher
}

type denyAll struct{}

func (denyAll) Allow(context.Context, string, int, time.Duration) (bool, error) { return false, nil }

func newTestEnv(t *testing.T, cfg Config, limiter domain.RateLimiter) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	hash, err := crypto.HashAdminKey(adminKey)
	require.NoError(t, err)
	if cfg.AdminKeyHash == "" {
		cfg.AdminKeyHash = hash
	}

	locks := memory.NewLockManager()
	bus := memory.NewSignalBus(64)
	audit := memory.NewAuditStore()
	lockCfg := service.LockConfig{RetryMin: time.Millisecond, RetryMax: 2 * time.Millisecond}

	products := service.NewProductService(memory.NewProductStore(), pricing.NewEngine(pricing.DefaultConfig(), nil),
		locks, memory.NewPriceCache(), bus, audit, nil, lockCfg, logger)

	dispatcher := queue.NewDispatcher(queue.Config{Workers: 2}, products, logger)
	dispatcher.Start(context.Background())
	t.Cleanup(dispatcher.Stop)

	signer := crypto.NewPaymentSigner("gateway-secret")
	orders := service.NewOrderService(memory.NewOrderStore(), products, signer, dispatcher, audit, "", logger)
	tracker := service.NewTrackerService(memory.NewProfileStore(),
		progression.NewEngine(progression.DefaultCatalog(), progression.DefaultConfig(), nil, nil),
		locks, bus, nil, lockCfg, "", logger)

	s := NewServer(cfg, Handlers{
		Health:   handler.NewHealthHandler(nil, logger),
		Status:   handler.NewStatusHandler("server", time.Now(), dispatcher),
		Products: handler.NewProductHandler(products, logger),
		Orders:   handler.NewOrderHandler(orders, "rzp_test", logger),
		Tracker:  handler.NewTrackerHandler(tracker, logger),
	}, nil, limiter, logger)

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, signer: signer, dispatcher: dispatcher}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers map[string]string) (int, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rd)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(data) > 0 {
		require.NoError(t, json.Unmarshal(data, &out), string(data))
	}
	return resp.StatusCode, out
}

var admin = map[string]string{"X-Admin-Key": adminKey}

func TestProductLifecycle(t *testing.T) {
	env := newTestEnv(t, Config{}, nil)

	code, _ := env.do(t, http.MethodPost, "/api/admin/products", map[string]any{"name": "Tee", "base_price": 100, "max_retail_price": 200}, nil)
	assert.Equal(t, http.StatusUnauthorized, code, "admin key required")

	code, created := env.do(t, http.MethodPost, "/api/admin/products", map[string]any{
		"name": "Tee", "base_price": 100, "max_retail_price": 200,
	}, admin)
	require.Equal(t, http.StatusCreated, code)
	id := created["id"].(string)
	assert.EqualValues(t, 100, created["current_price"])

	code, _ = env.do(t, http.MethodPost, "/api/admin/products", map[string]any{
		"name": "Bad", "base_price": 300, "max_retail_price": 200,
	}, admin)
	assert.Equal(t, http.StatusBadRequest, code)

	code, list := env.do(t, http.MethodGet, "/api/products", nil, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, list["products"], 1)
	assert.EqualValues(t, 50, list["limit"])

	code, quote := env.do(t, http.MethodGet, "/api/products/"+id+"/quote", nil, nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 100, quote["price"])

	code, _ = env.do(t, http.MethodPut, "/api/admin/products/"+id, map[string]any{"base_price": 120}, admin)
	require.Equal(t, http.StatusOK, code)

	code, res := env.do(t, http.MethodPost, "/api/admin/crash-sale", map[string]any{
		"product_ids": []string{id, "ghost"}, "activate": true,
	}, admin)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Crash sale activated", res["message"])
	assert.Equal(t, []any{"ghost"}, res["missing"])

	code, stats := env.do(t, http.MethodGet, "/api/market/stats", nil, nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, stats["crash_sales_active"])

	code, _ = env.do(t, http.MethodDelete, "/api/admin/products/"+id, nil, admin)
	require.Equal(t, http.StatusOK, code)
	code, _ = env.do(t, http.MethodGet, "/api/products/"+id, nil, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestCheckoutFlow(t *testing.T) {
	env := newTestEnv(t, Config{}, nil)

	_, created := env.do(t, http.MethodPost, "/api/admin/products", map[string]any{
		"name": "Mug", "base_price": 50, "max_retail_price": 500,
	}, admin)
	id := created["id"].(string)

	code, order := env.do(t, http.MethodPost, "/api/orders", map[string]any{
		"user_id":  "u1",
		"email":    "u1@example.com",
		"products": []map[string]any{{"id": id, "quantity": 2}},
	}, nil)
	require.Equal(t, http.StatusCreated, code)
	assert.EqualValues(t, 100, order["amount"])
	assert.Equal(t, "INR", order["currency"])
	assert.Equal(t, "rzp_test", order["key_id"])

	orderID := order["order_id"].(string)
	gatewayOrder := order["gateway_order_id"].(string)

	code, _ = env.do(t, http.MethodPost, "/api/orders/"+orderID+"/verify", map[string]any{
		"gateway_order_id": gatewayOrder, "gateway_payment_id": "pay_1", "signature": "bogus",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, verified := env.do(t, http.MethodPost, "/api/orders/"+orderID+"/verify", map[string]any{
		"gateway_order_id":   gatewayOrder,
		"gateway_payment_id": "pay_1",
		"signature":          env.signer.Sign(gatewayOrder, "pay_1"),
	}, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "completed", verified["status"])

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.True(t, env.dispatcher.Drain(ctx))

	_, product := env.do(t, http.MethodGet, "/api/products/"+id, nil, nil)
	assert.EqualValues(t, 1, product["purchase_count"], "one price update per line item")
	assert.Greater(t, product["current_price"].(float64), 50.0)

	code, orders := env.do(t, http.MethodGet, "/api/orders/user/u1", nil, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, orders["orders"], 1)

	_, status := env.do(t, http.MethodGet, "/api/status", nil, nil)
	q := status["purchase_queue"].(map[string]any)
	assert.EqualValues(t, 1, q["processed"])
}

func TestTrackerRoutes(t *testing.T) {
	env := newTestEnv(t, Config{}, nil)
	player := map[string]string{"X-Player-ID": "ada"}

	code, profile := env.do(t, http.MethodGet, "/api/tracker", nil, player)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ada", profile["id"])

	code, res := env.do(t, http.MethodPost, "/api/tracker/grind", nil, player)
	require.Equal(t, http.StatusOK, code)
	outcome := res["outcome"].(map[string]any)
	assert.Equal(t, "grind", outcome["action"])

	code, _ = env.do(t, http.MethodPost, "/api/tracker/study", map[string]any{}, player)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = env.do(t, http.MethodPost, "/api/tracker/practice", map[string]any{"skill": "DSA"}, player)
	assert.Equal(t, http.StatusConflict, code, "skill still locked")
}

func TestAPIKeyAndHealth(t *testing.T) {
	env := newTestEnv(t, Config{APIKey: "secret"}, nil)

	code, health := env.do(t, http.MethodGet, "/api/health", nil, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", health["status"])

	code, _ = env.do(t, http.MethodGet, "/api/products", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = env.do(t, http.MethodGet, "/api/products", nil, map[string]string{"Authorization": "Bearer secret"})
	assert.Equal(t, http.StatusOK, code)
}

func TestRateLimitExemptsHealth(t *testing.T) {
	env := newTestEnv(t, Config{RateLimit: 1}, denyAll{})

	code, _ := env.do(t, http.MethodGet, "/api/products", nil, nil)
	assert.Equal(t, http.StatusTooManyRequests, code)

	code, _ = env.do(t, http.MethodGet, "/api/health", nil, nil)
	assert.Equal(t, http.StatusOK, code)
}
