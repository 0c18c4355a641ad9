package handler

import (
	"cmp"
	"context"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/kart-checkout/internal/domain/catalog"
	"github.com/xenking/kart-checkout/internal/domain/checkout"
	"github.com/xenking/kart-checkout/internal/domain/order"
	"github.com/xenking/kart-checkout/internal/domain/pricing"
	"github.com/xenking/kart-checkout/pkg/httpmiddleware"
)

// --- Fakes ---

type fakeItems struct {
	items   map[int64]catalog.Item
	listErr error
}

func (f *fakeItems) List(context.Context) ([]catalog.Item, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]catalog.Item, 0, len(f.items))
	for _, it := range f.items {
		out = append(out, it)
	}
	slices.SortFunc(out, func(a, b catalog.Item) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (f *fakeItems) GetByID(_ context.Context, id int64) (*catalog.Item, error) {
	it, ok := f.items[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &it, nil
}

type fakeOrders struct {
	order     *order.Order
	added     []order.AddItemRequest
	removed   [][2]int64
	adjusted  []order.AdjustmentsRequest
	addID     int64
	err       error
	removeErr error
}

func (f *fakeOrders) Get(_ context.Context, id int64) (*order.Order, error) {
	if f.order == nil || f.order.ID != id {
		return nil, errors.Wrap(order.ErrNotFound, "get order")
	}
	return f.order, nil
}

func (f *fakeOrders) AddItem(_ context.Context, req order.AddItemRequest) (int64, error) {
	f.added = append(f.added, req)
	if f.err != nil {
		return 0, f.err
	}
	if req.OrderID != 0 {
		return req.OrderID, nil
	}
	return f.addID, nil
}

func (f *fakeOrders) RemoveItem(_ context.Context, orderID, itemID int64) error {
	if orderID == 0 || itemID == 0 {
		return order.ErrMissingIDs
	}
	f.removed = append(f.removed, [2]int64{orderID, itemID})
	return f.removeErr
}

func (f *fakeOrders) SetAdjustments(ctx context.Context, req order.AdjustmentsRequest) (*order.Order, error) {
	f.adjusted = append(f.adjusted, req)
	return f.Get(ctx, req.OrderID)
}

type fakeCheckout struct {
	itemCalls  []int64
	orderCalls []int64
	err        error
	keys       map[catalog.Currency]string
}

func (f *fakeCheckout) CheckoutItem(_ context.Context, id int64) (*checkout.Session, error) {
	f.itemCalls = append(f.itemCalls, id)
	if f.err != nil {
		return nil, f.err
	}
	return &checkout.Session{ID: "cs_item"}, nil
}

func (f *fakeCheckout) CheckoutOrder(_ context.Context, id int64) (*checkout.Session, error) {
	f.orderCalls = append(f.orderCalls, id)
	if f.err != nil {
		return nil, f.err
	}
	return &checkout.Session{ID: "cs_order"}, nil
}

func (f *fakeCheckout) PublicKey(cur catalog.Currency) string { return f.keys[cur] }

// --- Helpers ---

type env struct {
	items    *fakeItems
	orders   *fakeOrders
	checkout *fakeCheckout
	router   http.Handler
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		items: &fakeItems{items: map[int64]catalog.Item{
			1: {ID: 1, Name: "Notebook", Description: "A5 dotted", Price: decimal.RequireFromString("10.5"), Currency: catalog.EUR},
		}},
		orders:   &fakeOrders{addID: 42},
		checkout: &fakeCheckout{keys: map[catalog.Currency]string{catalog.EUR: "pk_eur"}},
	}
	h, err := New(e.items, e.orders, e.checkout)
	require.NoError(t, err)
	e.router = h.Router(RouterConfig{})
	return e
}

func (e *env) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// --- Tests ---

func TestAddItem(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
		wantBody string
		wantReq  *order.AddItemRequest
	}{
		{
			name:     "new order",
			body:     `{"item_id": 1}`,
			wantCode: http.StatusOK,
			wantBody: `{"order_id":42}`,
			wantReq:  &order.AddItemRequest{ItemID: 1},
		},
		{
			name:     "existing order as string",
			body:     `{"item_id": "1", "order_id": "7"}`,
			wantCode: http.StatusOK,
			wantBody: `{"order_id":7}`,
			wantReq:  &order.AddItemRequest{ItemID: 1, OrderID: 7},
		},
		{
			name:     "null order id",
			body:     `{"item_id": 1, "order_id": null, "note": {"x": [1]}}`,
			wantCode: http.StatusOK,
			wantBody: `{"order_id":42}`,
			wantReq:  &order.AddItemRequest{ItemID: 1},
		},
		{
			name:     "missing item id",
			body:     `{"order_id": 7}`,
			wantCode: http.StatusBadRequest,
			wantBody: `{"error":"item_id is required"}`,
		},
		{
			name:     "non-positive item id",
			body:     `{"item_id": 0}`,
			wantCode: http.StatusBadRequest,
			wantBody: `{"error":"item_id must be greater than 0"}`,
		},
		{
			name:     "malformed item id",
			body:     `{"item_id": "abc"}`,
			wantCode: http.StatusBadRequest,
			wantBody: `{"error":"invalid item_id"}`,
		},
		{
			name:     "not an object",
			body:     `[1]`,
			wantCode: http.StatusBadRequest,
			wantBody: `{"error":"malformed request body"}`,
		},
		{
			name:     "trailing garbage",
			body:     `{"item_id": 1} trailing-garbage`,
			wantCode: http.StatusBadRequest,
			wantBody: `{"error":"malformed request body"}`,
		},
		{
			name:     "second object",
			body:     `{"item_id":1}{"item_id":99}`,
			wantCode: http.StatusBadRequest,
			wantBody: `{"error":"malformed request body"}`,
		},
		{
			name:     "trailing whitespace",
			body:     "{\"item_id\": 1}\n",
			wantCode: http.StatusOK,
			wantBody: `{"order_id":42}`,
			wantReq:  &order.AddItemRequest{ItemID: 1},
		},
		{
			name:     "zero order id",
			body:     `{"item_id": 1, "order_id": "0"}`,
			wantCode: http.StatusBadRequest,
			wantBody: `{"error":"order_id must be greater than 0"}`,
		},
		{
			name:     "fractional item id",
			body:     `{"item_id": 1.0}`,
			wantCode: http.StatusBadRequest,
			wantBody: `{"error":"invalid item_id"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			w := e.do(http.MethodPost, "/order/add", tt.body)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
			if tt.wantReq != nil {
				require.Len(t, e.orders.added, 1)
				assert.Equal(t, *tt.wantReq, e.orders.added[0])
			} else {
				assert.Empty(t, e.orders.added)
			}
		})
	}
}

func TestAddItem_TrailingSlash(t *testing.T) {
	e := newEnv(t)
	w := e.do(http.MethodPost, "/order/add/", `{"item_id": 1}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAddItem_NotFound(t *testing.T) {
	e := newEnv(t)
	e.orders.err = errors.Wrap(order.ErrNotFound, "add item")

	w := e.do(http.MethodPost, "/order/add", `{"item_id": 1, "order_id": 555}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"order not found"}`, w.Body.String())
}

func TestRemoveItem(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		removeErr error
		wantCode  int
		wantBody  string
	}{
		{
			name:     "removed",
			body:     `{"order_id": 7, "item_id": 1}`,
			wantCode: http.StatusOK,
			wantBody: `{"message":"Item removed from order"}`,
		},
		{
			name:     "missing ids",
			body:     `{"order_id": 7}`,
			wantCode: http.StatusBadRequest,
			wantBody: `{"error":"order_id and item_id are required"}`,
		},
		{
			name:      "not a member",
			body:      `{"order_id": 7, "item_id": 1}`,
			removeErr: errors.Wrap(order.ErrItemNotInOrder, "remove item"),
			wantCode:  http.StatusBadRequest,
			wantBody:  `{"error":"item not in order"}`,
		},
		{
			name:      "unknown item",
			body:      `{"order_id": 7, "item_id": 9}`,
			removeErr: errors.Wrap(catalog.ErrNotFound, "remove item"),
			wantCode:  http.StatusNotFound,
			wantBody:  `{"error":"item not found"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			e.orders.removeErr = tt.removeErr

			w := e.do(http.MethodPost, "/order/remove", tt.body)
			assert.Equal(t, tt.wantCode, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestBuyItem(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodPost, "/buy/1", "")
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"session_id":"cs_item"}`, w.Body.String())

	w = e.do(http.MethodGet, "/buy/1/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"session_id":"cs_item"}`, w.Body.String())

	assert.Equal(t, []int64{1, 1}, e.checkout.itemCalls)

	w = e.do(http.MethodPost, "/buy/abc", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBuyItem_Errors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{
			name:     "item missing",
			err:      errors.Wrap(catalog.ErrNotFound, "get item"),
			wantCode: http.StatusNotFound,
			wantBody: `{"error":"item not found"}`,
		},
		{
			name:     "provider error",
			err:      &checkout.ProviderError{Op: "create checkout session", Message: "Invalid API Key provided"},
			wantCode: http.StatusBadRequest,
			wantBody: `{"error":"Invalid API Key provided"}`,
		},
		{
			name:     "not configured",
			err:      &checkout.CredentialsError{Currency: catalog.EUR},
			wantCode: http.StatusBadRequest,
			wantBody: `{"error":"payment provider is not configured for currency eur"}`,
		},
		{
			name:     "unexpected",
			err:      errors.New("connection reset by peer"),
			wantCode: http.StatusBadRequest,
			wantBody: `{"error":"something went wrong"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			e.checkout.err = tt.err

			w := e.do(http.MethodPost, "/buy/1", "")
			assert.Equal(t, tt.wantCode, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestBuyOrder(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodPost, "/order/7/buy/", "")
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"session_id":"cs_order"}`, w.Body.String())

	w = e.do(http.MethodPost, "/order/buy", `{"order_id": "8"}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = e.do(http.MethodPost, "/order/buy", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"order_id is required"}`, w.Body.String())

	assert.Equal(t, []int64{7, 8}, e.checkout.orderCalls)

	e.checkout.err = checkout.ErrEmptyOrder
	w = e.do(http.MethodGet, "/order/7/buy", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"order is empty"}`, w.Body.String())
}

func TestBuy_RateLimited(t *testing.T) {
	e := newEnv(t)
	h, err := New(e.items, e.orders, e.checkout)
	require.NoError(t, err)
	limiter := httpmiddleware.NewLimiter(httpmiddleware.RateLimitConfig{Max: 1})
	e.router = h.Router(RouterConfig{CheckoutLimit: limiter.Middleware()})

	assert.Equal(t, http.StatusCreated, e.do(http.MethodPost, "/buy/1", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, e.do(http.MethodPost, "/buy/1", "").Code)
	// Order mutations are not limited.
	assert.Equal(t, http.StatusOK, e.do(http.MethodPost, "/order/add", `{"item_id": 1}`).Code)
}

func TestListItems(t *testing.T) {
	e := newEnv(t)
	e.items.items[2] = catalog.Item{ID: 2, Name: "Pen", Price: decimal.RequireFromString("1.2"), Currency: catalog.USD}

	w := e.do(http.MethodGet, "/items", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"items": [
		{"id":1,"name":"Notebook","description":"A5 dotted","price":"10.50","currency":"eur"},
		{"id":2,"name":"Pen","description":"","price":"1.20","currency":"usd"}
	]}`, w.Body.String())

	e.items.items = map[int64]catalog.Item{}
	w = e.do(http.MethodGet, "/items", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"items": []}`, w.Body.String())

	e.items.listErr = errors.New("db down")
	w = e.do(http.MethodGet, "/items", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"something went wrong"}`, w.Body.String())
}

func TestGetOrder(t *testing.T) {
	e := newEnv(t)
	e.orders.order = &order.Order{
		ID: 7,
		Items: []catalog.Item{
			{ID: 1, Name: "Notebook", Price: decimal.RequireFromString("10.00"), Currency: catalog.USD},
			{ID: 2, Name: "Pen", Price: decimal.RequireFromString("15.00"), Currency: catalog.USD},
		},
		Discount: &pricing.Discount{ID: 1, Name: "Welcome", Amount: decimal.RequireFromString("5")},
		Tax:      &pricing.Tax{ID: 2, Name: "VAT", Percentage: decimal.RequireFromString("10")},
	}

	w := e.do(http.MethodGet, "/order/7", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"id": 7,
		"items": [
			{"id":1,"name":"Notebook","description":"","price":"10.00","currency":"usd"},
			{"id":2,"name":"Pen","description":"","price":"15.00","currency":"usd"}
		],
		"discount": {"id":1,"name":"Welcome","amount":"5.00"},
		"tax": {"id":2,"name":"VAT","percentage":"10.00"},
		"subtotal": "25.00",
		"total": "22.00"
	}`, w.Body.String())

	w = e.do(http.MethodGet, "/order/8", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSetAdjustments(t *testing.T) {
	e := newEnv(t)
	e.orders.order = &order.Order{ID: 7}

	w := e.do(http.MethodPost, "/order/7/adjustments", `{"discount_id": 3, "tax_id": null}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, e.orders.adjusted, 1)
	got := e.orders.adjusted[0]
	assert.Equal(t, int64(7), got.OrderID)
	require.NotNil(t, got.DiscountID)
	assert.Equal(t, int64(3), *got.DiscountID)
	assert.Nil(t, got.TaxID)

	w = e.do(http.MethodPost, "/order/7/adjustments", `{"tax_id": -1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"tax_id must be greater than 0"}`, w.Body.String())
}

func TestItemPage(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodGet, "/item/1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.Contains(t, body, "<h1>Notebook</h1>")
	assert.Contains(t, body, "10.50 eur")
	assert.Contains(t, body, `"pk_eur"`)

	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/item/2", "").Code)
}

func TestStaticPages(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodGet, "/success/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Thank you!")

	w = e.do(http.MethodGet, "/cancel", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Payment cancelled")
}
