package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/orderhub/internal/cache"
	"github.com/vladislavdragonenkov/orderhub/internal/domain"
	"github.com/vladislavdragonenkov/orderhub/internal/service/customers"
	"github.com/vladislavdragonenkov/orderhub/internal/service/order"
	"github.com/vladislavdragonenkov/orderhub/internal/service/product"
	"github.com/vladislavdragonenkov/orderhub/internal/service/saga"
	"github.com/vladislavdragonenkov/orderhub/internal/storage/memory"
	"github.com/vladislavdragonenkov/orderhub/internal/transport/httpapi"
)

type orderPayload struct {
	ID          string `json:"id"`
	CustomerID  string `json:"customer_id"`
	Status      string `json:"status"`
	AmountMinor int64  `json:"amount_minor"`
	Items       []struct {
		ProductID  string `json:"product_id"`
		SKU        string `json:"sku"`
		Qty        int32  `json:"qty"`
		PriceMinor int64  `json:"price_minor"`
	} `json:"items"`
}

type placeOrderPayload struct {
	Order    orderPayload `json:"order"`
	Customer struct {
		ID string `json:"id"`
	} `json:"customer"`
}

type productPayload struct {
	ID         string `json:"id"`
	SKU        string `json:"sku"`
	Name       string `json:"name"`
	PriceMinor int64  `json:"price_minor"`
	Stock      int32  `json:"stock"`
}

type errorPayload struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Available *int32 `json:"available"`
	Requested *int32 `json:"requested"`
}

type apiFixture struct {
	server    *httptest.Server
	store     *memory.Store
	products  *product.Service
	validator *customers.MockValidator
}

func newAPIFixture(t *testing.T, options ...httpapi.HandlerOption) *apiFixture {
	t.Helper()

	store := memory.NewStore()
	orders := order.NewService(store)
	products := product.NewService(store, nil)
	validator := customers.NewMockValidator()
	orchestrator := saga.NewOrchestratorWithoutMetrics(orders, validator, nil)

	handler := httpapi.NewHandler(orders, products, orchestrator, options...)
	server := httptest.NewServer(httpapi.NewRouter(handler, nil))
	t.Cleanup(server.Close)

	return &apiFixture{
		server:    server,
		store:     store,
		products:  products,
		validator: validator,
	}
}

func (f *apiFixture) seedProduct(t *testing.T, sku string, priceMinor int64, stock int32) productPayload {
	t.Helper()

	created, err := f.products.Create(context.Background(), product.CreateInput{
		SKU:        sku,
		Name:       "product " + sku,
		PriceMinor: priceMinor,
		Stock:      stock,
	})
	require.NoError(t, err)

	return productPayload{
		ID:         created.ID,
		SKU:        created.SKU,
		Name:       created.Name,
		PriceMinor: created.PriceMinor,
		Stock:      created.Stock,
	}
}

func (f *apiFixture) do(t *testing.T, method, path, idempotencyKey string, body any) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, f.server.URL+path, reader)
	require.NoError(t, err)
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()

	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func orderBody(customerID string, items ...map[string]any) map[string]any {
	return map[string]any{
		"customer_id": customerID,
		"items":       items,
	}
}

func TestCreateOrder_CreatedThenReplayed(t *testing.T) {
	f := newAPIFixture(t)
	seeded := f.seedProduct(t, "SKU-1", 1500, 5)

	body := orderBody("customer-1", map[string]any{"product_id": seeded.ID, "qty": 3})

	resp := f.do(t, http.MethodPost, "/orders", "key-1", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody[orderPayload](t, resp)
	require.Equal(t, "created", created.Status)
	require.Equal(t, int64(4500), created.AmountMinor)
	require.Len(t, created.Items, 1)
	require.Equal(t, "SKU-1", created.Items[0].SKU)

	// Повтор с тем же ключом — 200 и тот же заказ, без второго резерва.
	resp = f.do(t, http.MethodPost, "/orders", "key-1", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	replayed := decodeBody[orderPayload](t, resp)
	require.Equal(t, created.ID, replayed.ID)

	left, err := f.products.Get(context.Background(), seeded.ID)
	require.NoError(t, err)
	require.Equal(t, int32(2), left.Stock)
}

func TestCreateOrder_MissingIdempotencyKey(t *testing.T) {
	f := newAPIFixture(t)
	seeded := f.seedProduct(t, "SKU-2", 100, 1)

	resp := f.do(t, http.MethodPost, "/orders", "",
		orderBody("customer-1", map[string]any{"product_id": seeded.ID, "qty": 1}))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	payload := decodeBody[errorPayload](t, resp)
	require.Equal(t, "validation_failed", payload.Error)
}

func TestCreateOrder_InsufficientStockConflict(t *testing.T) {
	f := newAPIFixture(t)
	seeded := f.seedProduct(t, "SKU-3", 100, 2)

	resp := f.do(t, http.MethodPost, "/orders", "key-stock",
		orderBody("customer-1", map[string]any{"product_id": seeded.ID, "qty": 5}))
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	payload := decodeBody[errorPayload](t, resp)
	require.Equal(t, "insufficient_stock", payload.Error)
	require.NotNil(t, payload.Available)
	require.NotNil(t, payload.Requested)
	require.Equal(t, int32(2), *payload.Available)
	require.Equal(t, int32(5), *payload.Requested)
}

func TestGetOrder_NotFound(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, http.MethodGet, "/orders/missing", "", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	payload := decodeBody[errorPayload](t, resp)
	require.Equal(t, "order_not_found", payload.Error)
}

func TestOrderLifecycleOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	seeded := f.seedProduct(t, "SKU-4", 700, 10)

	resp := f.do(t, http.MethodPost, "/orders", "key-flow",
		orderBody("customer-1", map[string]any{"product_id": seeded.ID, "qty": 2}))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody[orderPayload](t, resp)

	resp = f.do(t, http.MethodPost, "/orders/"+created.ID+"/confirm", "confirm-flow", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	confirmed := decodeBody[orderPayload](t, resp)
	require.Equal(t, "confirmed", confirmed.Status)

	resp = f.do(t, http.MethodPost, "/orders/"+created.ID+"/cancel", "",
		map[string]any{"reason": "customer changed mind"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	canceled := decodeBody[orderPayload](t, resp)
	require.Equal(t, "canceled", canceled.Status)

	// Повторная отмена терминального заказа — конфликт.
	resp = f.do(t, http.MethodPost, "/orders/"+created.ID+"/cancel", "", nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	payload := decodeBody[errorPayload](t, resp)
	require.Equal(t, "order_already_canceled", payload.Error)

	resp = f.do(t, http.MethodGet, "/orders/"+created.ID+"/timeline", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	timeline := decodeBody[struct {
		OrderID string `json:"order_id"`
		Events  []struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"events"`
	}](t, resp)
	require.Equal(t, created.ID, timeline.OrderID)
	require.Len(t, timeline.Events, 3)
	require.Equal(t, "OrderCreated", timeline.Events[0].Type)
	require.Equal(t, "OrderConfirmed", timeline.Events[1].Type)
	require.Equal(t, "OrderCanceled", timeline.Events[2].Type)
	require.Equal(t, "customer changed mind", timeline.Events[2].Reason)
}

func TestSearchOrders_InvalidLimit(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, http.MethodGet, "/orders?limit=abc", "", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	payload := decodeBody[errorPayload](t, resp)
	require.Equal(t, "invalid_filter", payload.Error)
}

func TestSearchOrders_ByCustomer(t *testing.T) {
	f := newAPIFixture(t)
	seeded := f.seedProduct(t, "SKU-5", 100, 100)

	for i := 0; i < 3; i++ {
		customer := "customer-a"
		if i == 2 {
			customer = "customer-b"
		}
		resp := f.do(t, http.MethodPost, "/orders", fmt.Sprintf("key-search-%d", i),
			orderBody(customer, map[string]any{"product_id": seeded.ID, "qty": 1}))
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		resp.Body.Close()
	}

	resp := f.do(t, http.MethodGet, "/orders?customer_id=customer-a", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decodeBody[struct {
		Orders []orderPayload `json:"orders"`
	}](t, resp)
	require.Len(t, result.Orders, 2)
	for _, found := range result.Orders {
		require.Equal(t, "customer-a", found.CustomerID)
	}
}

func TestPlaceOrder_OrchestratedAndCached(t *testing.T) {
	respCache := newFakeCache()
	f := newAPIFixture(t, httpapi.WithResponseCache(respCache))
	seeded := f.seedProduct(t, "SKU-6", 2000, 10)

	body := orderBody("customer-1", map[string]any{"product_id": seeded.ID, "qty": 2})

	resp := f.do(t, http.MethodPost, "/orders/orchestrate", "saga-1", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	placed := decodeBody[placeOrderPayload](t, resp)
	require.Equal(t, "confirmed", placed.Order.Status)
	require.Equal(t, "customer-1", placed.Customer.ID)
	require.Equal(t, 1, f.validator.ValidateCalls)

	// Повтор обслуживается из кэша ответов: сага не запускается вовсе.
	resp = f.do(t, http.MethodPost, "/orders/orchestrate", "saga-1", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	replayed := decodeBody[placeOrderPayload](t, resp)
	require.Equal(t, placed.Order.ID, replayed.Order.ID)
	require.Equal(t, 1, f.validator.ValidateCalls)

	left, err := f.products.Get(context.Background(), seeded.ID)
	require.NoError(t, err)
	require.Equal(t, int32(8), left.Stock)
}

func TestPlaceOrder_RequiresIdempotencyKey(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, http.MethodPost, "/orders/orchestrate", "",
		orderBody("customer-1"))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPlaceOrder_CustomerNotFound(t *testing.T) {
	f := newAPIFixture(t)
	f.validator.Err = fmt.Errorf("lookup: %w", domain.ErrCustomerNotFound)
	seeded := f.seedProduct(t, "SKU-7", 100, 5)

	resp := f.do(t, http.MethodPost, "/orders/orchestrate", "saga-2",
		orderBody("customer-ghost", map[string]any{"product_id": seeded.ID, "qty": 1}))
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	left, err := f.products.Get(context.Background(), seeded.ID)
	require.NoError(t, err)
	require.Equal(t, int32(5), left.Stock)
}

func TestProducts_CreateGetPatch(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, http.MethodPost, "/products", "", map[string]any{
		"sku":         "SKU-NEW",
		"name":        "widget",
		"price_minor": 990,
		"stock":       7,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody[productPayload](t, resp)
	require.NotEmpty(t, created.ID)

	resp = f.do(t, http.MethodGet, "/products/"+created.ID, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Частичное обновление: меняем цену, имя и сток не трогаем.
	resp = f.do(t, http.MethodPatch, "/products/"+created.ID, "", map[string]any{
		"price_minor": 1090,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decodeBody[productPayload](t, resp)
	require.Equal(t, int64(1090), updated.PriceMinor)
	require.Equal(t, "widget", updated.Name)
	require.Equal(t, int32(7), updated.Stock)
	require.Equal(t, "SKU-NEW", updated.SKU)
}

func TestProducts_DuplicateSKUConflict(t *testing.T) {
	f := newAPIFixture(t)
	f.seedProduct(t, "SKU-DUP", 100, 1)

	resp := f.do(t, http.MethodPost, "/products", "", map[string]any{
		"sku":         "SKU-DUP",
		"name":        "another",
		"price_minor": 200,
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	payload := decodeBody[errorPayload](t, resp)
	require.Equal(t, "duplicate_sku", payload.Error)
}

func TestProducts_SearchBySKU(t *testing.T) {
	f := newAPIFixture(t)
	seeded := f.seedProduct(t, "SKU-EXACT", 100, 1)
	f.seedProduct(t, "SKU-OTHER", 100, 1)

	resp := f.do(t, http.MethodGet, "/products?sku=SKU-EXACT", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decodeBody[struct {
		Products []productPayload `json:"products"`
	}](t, resp)
	require.Len(t, result.Products, 1)
	require.Equal(t, seeded.ID, result.Products[0].ID)
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]byte)}
}

func (c *fakeCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.entries[key]
	return value, ok, nil
}

func (c *fakeCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = append([]byte(nil), value...)
	return nil
}

func (c *fakeCache) Key(operation, idempotencyKey string) string {
	return "test:" + operation + ":" + idempotencyKey
}

var _ cache.ResponseCache = (*fakeCache)(nil)
