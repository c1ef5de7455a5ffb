package handler

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltkart/voltkart/internal/domain/auth"
	"github.com/voltkart/voltkart/internal/domain/cart"
	"github.com/voltkart/voltkart/internal/domain/order"
	"github.com/voltkart/voltkart/internal/domain/pricing"
	"github.com/voltkart/voltkart/internal/domain/warranty"
	"github.com/voltkart/voltkart/internal/upstream"
)

type stubProducts struct {
	products []pricing.Product
}

func (s *stubProducts) List(_ context.Context) ([]pricing.Product, error) {
	return s.products, nil
}

func (s *stubProducts) GetByID(_ context.Context, id string) (*pricing.Product, error) {
	for i := range s.products {
		if s.products[i].ID == id {
			return &s.products[i], nil
		}
	}
	return nil, pricing.ErrNotFound
}

type stubGateway struct {
	createFn func(ctx context.Context, sub order.Submission) (jx.Raw, error)
	listFn   func(ctx context.Context, customerID string) ([]order.Order, error)
	getFn    func(ctx context.Context, id string) (*order.Order, error)
	cancelFn func(ctx context.Context, ref string) error
}

func (g *stubGateway) CreateOrder(ctx context.Context, sub order.Submission) (jx.Raw, error) {
	return g.createFn(ctx, sub)
}

func (g *stubGateway) ListOrders(ctx context.Context, customerID string) ([]order.Order, error) {
	if g.listFn == nil {
		return nil, nil
	}
	return g.listFn(ctx, customerID)
}

func (g *stubGateway) GetOrder(ctx context.Context, id string) (*order.Order, error) {
	if g.getFn == nil {
		return nil, order.ErrOrderNotFound
	}
	return g.getFn(ctx, id)
}

func (g *stubGateway) CancelOrder(ctx context.Context, ref string) error {
	if g.cancelFn == nil {
		return nil
	}
	return g.cancelFn(ctx, ref)
}

type stubWarrantyRepo struct {
	sale    *warranty.SaleRecord
	cfg     *warranty.Config
	history []warranty.Replacement
}

func (r *stubWarrantyRepo) FindSale(_ context.Context, serial string) (*warranty.SaleRecord, error) {
	if r.sale == nil || r.sale.SerialNumber != serial {
		return nil, warranty.ErrSerialNotFound
	}
	return r.sale, nil
}

func (r *stubWarrantyRepo) ConfigFor(_ context.Context, _ string) (*warranty.Config, error) {
	return r.cfg, nil
}

func (r *stubWarrantyRepo) ReplacementsFor(_ context.Context, _ string) ([]warranty.Replacement, error) {
	return r.history, nil
}

func (r *stubWarrantyRepo) ReplacementsByCustomer(_ context.Context, _ string) ([]warranty.Replacement, error) {
	return r.history, nil
}

type stubStore struct {
	lines     map[string][]cart.Line
	submitted map[string]bool
}

func newStubStore() *stubStore {
	return &stubStore{lines: make(map[string][]cart.Line), submitted: make(map[string]bool)}
}

func (s *stubStore) Load(_ context.Context, ns string) ([]cart.Line, error) {
	lines, ok := s.lines[ns]
	if !ok || s.submitted[ns] {
		return nil, cart.ErrSessionNotFound
	}
	return lines, nil
}

func (s *stubStore) Save(_ context.Context, ns string, lines []cart.Line) error {
	s.lines[ns] = lines
	s.submitted[ns] = false
	return nil
}

func (s *stubStore) MarkSubmitted(_ context.Context, ns string) error {
	s.submitted[ns] = true
	return nil
}

func (s *stubStore) Clear(_ context.Context, ns string) error {
	delete(s.lines, ns)
	return nil
}

func testMux(gw order.Gateway, repo warranty.Repository, store cart.Store, products []pricing.Product) *http.ServeMux {
	h := NewHandler(
		&stubProducts{products: products},
		order.NewSubmitter(gw),
		order.NewTracker(gw),
		warranty.NewChecker(warranty.NewEngine(repo)),
		repo,
		store,
	)
	mux := http.NewServeMux()
	h.Register(mux)
	return mux
}

func do(mux *http.ServeMux, method, target string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func catalogFixture() []pricing.Product {
	return []pricing.Product{{
		ID:              "bat-150",
		Name:            "VoltMax 150Ah",
		Category:        "battery",
		MRP:             decimal.NewFromInt(10000),
		PriceB2C:        decimal.NewFromInt(8000),
		PriceB2B:        decimal.NewFromInt(7000),
		GuaranteeMonths: 18,
		WarrantyMonths:  18,
	}}
}

func TestListProducts_TierPricing(t *testing.T) {
	mux := testMux(&stubGateway{}, &stubWarrantyRepo{}, newStubStore(), catalogFixture())

	rec := do(mux, http.MethodGet, "/api/products", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	p := body["products"].([]any)[0].(map[string]any)
	assert.Equal(t, "8000.00", p["selling_price"])
	assert.Equal(t, float64(20), p["discount_percent"])

	rec = do(mux, http.MethodGet, "/api/products?tier=b2b", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	p = decodeBody(t, rec)["products"].([]any)[0].(map[string]any)
	assert.Equal(t, "7000.00", p["selling_price"])
	assert.Equal(t, float64(30), p["discount_percent"])
}

func TestListProducts_RejectsUnknownTier(t *testing.T) {
	mux := testMux(&stubGateway{}, &stubWarrantyRepo{}, newStubStore(), catalogFixture())

	rec := do(mux, http.MethodGet, "/api/products?tier=wholesale", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func submitFixture() submitRequest {
	return submitRequest{
		CustomerID:    "cust-1",
		CustomerName:  "Asha",
		CustomerPhone: "9876543210",
		PaymentMethod: "cash",
		Items: []cart.Line{{
			ProductID: "bat-150",
			Category:  "battery",
			Quantity:  1,
			UnitPrice: decimal.NewFromInt(8000),
			UnitMRP:   decimal.NewFromInt(10000),
		}},
	}
}

func TestSubmitOrder_ResolvedInvoice(t *testing.T) {
	gw := &stubGateway{
		createFn: func(_ context.Context, _ order.Submission) (jx.Raw, error) {
			return jx.Raw(`{"sale": {"invoice_number": "INV-42"}}`), nil
		},
	}
	store := newStubStore()
	mux := testMux(gw, &stubWarrantyRepo{}, store, nil)

	req := submitFixture()
	req.CartNamespace = "session-1"
	rec := do(mux, http.MethodPost, "/api/orders", req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "INV-42", decodeBody(t, rec)["invoice_number"])
	assert.True(t, store.submitted["session-1"], "session marked submitted")
}

func TestSubmitOrder_AmbiguousSuccess(t *testing.T) {
	gw := &stubGateway{
		createFn: func(_ context.Context, _ order.Submission) (jx.Raw, error) {
			return jx.Raw(`{"success": true}`), nil
		},
	}
	store := newStubStore()
	mux := testMux(gw, &stubWarrantyRepo{}, store, nil)

	req := submitFixture()
	req.CartNamespace = "session-1"
	rec := do(mux, http.MethodPost, "/api/orders", req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["ambiguous_success"])
	assert.NotContains(t, body, "invoice_number")
	assert.True(t, store.submitted["session-1"], "ambiguous success still marks the session")
}

func TestSubmitOrder_ValidationError(t *testing.T) {
	mux := testMux(&stubGateway{}, &stubWarrantyRepo{}, newStubStore(), nil)

	req := submitFixture()
	req.CustomerPhone = "12345"
	rec := do(mux, http.MethodPost, "/api/orders", req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "customer_phone", decodeBody(t, rec)["field"])
}

func TestSubmitOrder_UpstreamErrorVerbatim(t *testing.T) {
	gw := &stubGateway{
		createFn: func(_ context.Context, _ order.Submission) (jx.Raw, error) {
			return nil, &upstream.Error{Status: http.StatusBadGateway, Message: "order store unavailable"}
		},
	}
	mux := testMux(gw, &stubWarrantyRepo{}, newStubStore(), nil)

	rec := do(mux, http.MethodPost, "/api/orders", submitFixture())
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "order store unavailable", decodeBody(t, rec)["message"])
}

func pendingOrder() *order.Order {
	return &order.Order{
		ID:            "ord-1",
		InvoiceNumber: "INV-1",
		CustomerID:    "cust-1",
		CreatedAt:     time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		PaymentMethod: order.PaymentCash,
		PaymentStatus: order.PaymentStatusPaid,
		Items: []order.LineRecord{{
			Category:    "battery",
			Quantity:    1,
			MRP:         decimal.NewFromInt(1000),
			FinalAmount: decimal.NewFromInt(800),
		}},
	}
}

func TestGetOrder_PendingLinesShowPlaceholder(t *testing.T) {
	gw := &stubGateway{
		getFn: func(_ context.Context, id string) (*order.Order, error) {
			if id != "INV-1" {
				return nil, order.ErrOrderNotFound
			}
			return pendingOrder(), nil
		},
	}
	mux := testMux(gw, &stubWarrantyRepo{}, newStubStore(), nil)

	rec := do(mux, http.MethodGet, "/api/orders/INV-1?customer=cust-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "pending", body["state"])
	line := body["items"].([]any)[0].(map[string]any)
	assert.Equal(t, true, line["pending"])
	assert.Equal(t, "Pending", line["unit_price"])
	assert.Equal(t, "Pending", line["final_amount"])
}

func TestGetOrder_NotFound(t *testing.T) {
	mux := testMux(&stubGateway{}, &stubWarrantyRepo{}, newStubStore(), nil)

	rec := do(mux, http.MethodGet, "/api/orders/missing?customer=cust-1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetOrder_OtherCustomersOrderHidden(t *testing.T) {
	gw := &stubGateway{
		getFn: func(_ context.Context, _ string) (*order.Order, error) {
			return pendingOrder(), nil
		},
	}
	mux := testMux(gw, &stubWarrantyRepo{}, newStubStore(), nil)

	// The order exists upstream but belongs to cust-1.
	rec := do(mux, http.MethodGet, "/api/orders/INV-1?customer=cust-2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetOrder_RequiresCustomer(t *testing.T) {
	mux := testMux(&stubGateway{}, &stubWarrantyRepo{}, newStubStore(), nil)

	rec := do(mux, http.MethodGet, "/api/orders/INV-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(mux, http.MethodDelete, "/api/orders/INV-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelOrder_ConfirmedRejected(t *testing.T) {
	o := pendingOrder()
	o.Items[0].SerialNumber = "SR-100"
	cancelled := false
	gw := &stubGateway{
		getFn: func(_ context.Context, _ string) (*order.Order, error) { return o, nil },
		cancelFn: func(_ context.Context, _ string) error {
			cancelled = true
			return nil
		},
	}
	mux := testMux(gw, &stubWarrantyRepo{}, newStubStore(), nil)

	rec := do(mux, http.MethodDelete, "/api/orders/INV-1?customer=cust-1", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["message"], "already confirmed")
	assert.False(t, cancelled, "upstream must not be called for confirmed orders")
}

func TestCancelOrder_Pending(t *testing.T) {
	gw := &stubGateway{
		getFn: func(_ context.Context, _ string) (*order.Order, error) { return pendingOrder(), nil },
	}
	mux := testMux(gw, &stubWarrantyRepo{}, newStubStore(), nil)

	rec := do(mux, http.MethodDelete, "/api/orders/INV-1?customer=cust-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["success"])
}

func TestWarrantyStatus_NotOwned(t *testing.T) {
	repo := &stubWarrantyRepo{
		sale: &warranty.SaleRecord{
			SerialNumber: "SR-1",
			ProductID:    "bat-150",
			CustomerID:   "someone-else",
			PurchaseDate: time.Now().AddDate(0, -2, 0),
		},
		cfg: &warranty.Config{GuaranteeMonths: 18, WarrantyMonths: 18},
	}
	mux := testMux(&stubGateway{}, repo, newStubStore(), nil)

	rec := do(mux, http.MethodGet, "/api/warranty/SR-1?customer=cust-1", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["message"], "different customer")
}

func TestWarrantyStatus_UnderGuarantee(t *testing.T) {
	repo := &stubWarrantyRepo{
		sale: &warranty.SaleRecord{
			SerialNumber: "SR-1",
			ProductID:    "bat-150",
			CustomerID:   "cust-1",
			PurchaseDate: time.Now().AddDate(0, -2, 0),
		},
		cfg: &warranty.Config{GuaranteeMonths: 18, WarrantyMonths: 18},
	}
	mux := testMux(&stubGateway{}, repo, newStubStore(), nil)

	rec := do(mux, http.MethodGet, "/api/warranty/SR-1?customer=cust-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["eligible"])
	assert.Equal(t, true, body["under_guarantee"])
	assert.NotContains(t, body, "slab")
}

func TestWarrantyStatus_RequiresCustomer(t *testing.T) {
	mux := testMux(&stubGateway{}, &stubWarrantyRepo{}, newStubStore(), nil)

	rec := do(mux, http.MethodGet, "/api/warranty/SR-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCart_SaveLoadClear(t *testing.T) {
	mux := testMux(&stubGateway{}, &stubWarrantyRepo{}, newStubStore(), nil)

	lines := []cart.Line{{
		ProductID: "bat-150",
		Category:  "battery",
		Quantity:  2,
		UnitPrice: decimal.NewFromInt(8000),
		UnitMRP:   decimal.NewFromInt(10000),
	}}
	rec := do(mux, http.MethodPut, "/api/cart/ns-1", map[string]any{"lines": lines})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "16000.00", decodeBody(t, rec)["total"])

	rec = do(mux, http.MethodGet, "/api/cart/ns-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "4000.00", decodeBody(t, rec)["savings"])

	rec = do(mux, http.MethodDelete, "/api/cart/ns-1", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(mux, http.MethodGet, "/api/cart/ns-1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCart_LoadMissing(t *testing.T) {
	mux := testMux(&stubGateway{}, &stubWarrantyRepo{}, newStubStore(), nil)

	rec := do(mux, http.MethodGet, "/api/cart/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type stubAPIKeys struct {
	byHash map[string]*auth.APIKeyInfo
}

func (s *stubAPIKeys) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	info, ok := s.byHash[hash]
	if !ok {
		return nil, errors.New("api key not found")
	}
	return info, nil
}

func hashKey(pepper []byte, key string) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestAPIKeyAuth(t *testing.T) {
	pepper := []byte("test-pepper")
	repo := &stubAPIKeys{byHash: map[string]*auth.APIKeyInfo{
		hashKey(pepper, "retail-key"): {
			ID:      "key-1",
			KeyHash: hashKey(pepper, "retail-key"),
			Name:    "retail",
		},
		hashKey(pepper, "trade-key"): {
			ID:      "key-2",
			KeyHash: hashKey(pepper, "trade-key"),
			Name:    "trade",
			Scopes:  []string{auth.ScopeB2B},
		},
	}}

	var seen *auth.APIKeyInfo
	h := APIKeyAuth(repo, pepper)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = APIKeyFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	call := func(key, target string) int {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		if key != "" {
			req.Header.Set("X-Api-Key", key)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, call("", "/api/products"))
	assert.Equal(t, http.StatusUnauthorized, call("wrong-key", "/api/products"))

	require.Equal(t, http.StatusOK, call("retail-key", "/api/products"))
	require.NotNil(t, seen)
	assert.Equal(t, "retail", seen.Name)

	assert.Equal(t, http.StatusForbidden, call("retail-key", "/api/products?tier=b2b"))
	assert.Equal(t, http.StatusOK, call("trade-key", "/api/products?tier=b2b"))
}
