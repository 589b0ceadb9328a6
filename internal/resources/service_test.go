package resources

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fulfilhub/dashboard/internal/api"
	"github.com/fulfilhub/dashboard/internal/query"
	"github.com/fulfilhub/dashboard/internal/rbac"
	"github.com/fulfilhub/dashboard/internal/shared"
)

var adminSession = shared.Session{Token: "tok-1", Username: "rina", Role: shared.RoleAdmin}

// fakeBackend answers the REST routes used in tests and counts hits per route.
type fakeBackend struct {
	mu     sync.Mutex
	hits   map[string]int
	bodies map[string]string
	mux    *http.ServeMux
}

func newFakeBackend(t *testing.T) (*fakeBackend, *api.Client) {
	t.Helper()
	fb := &fakeBackend{hits: map[string]int{}, bodies: map[string]string{}, mux: http.NewServeMux()}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.Method + " " + r.URL.Path
		body, _ := io.ReadAll(r.Body)
		fb.mu.Lock()
		fb.hits[route]++
		fb.bodies[route] = string(body)
		fb.mu.Unlock()
		r.Body = io.NopCloser(strings.NewReader(string(body)))
		fb.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return fb, api.NewClient(srv.URL, 5*time.Second)
}

func (fb *fakeBackend) handle(pattern string, status int, payload string) {
	fb.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, payload)
	})
}

func (fb *fakeBackend) count(route string) int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.hits[route]
}

func (fb *fakeBackend) body(route string) string {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.bodies[route]
}

type auditSpy struct {
	mu      sync.Mutex
	entries []shared.AuditEntry
}

func (a *auditSpy) Record(_ context.Context, entry shared.AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
	return nil
}

func newService(t *testing.T) (*Service, *fakeBackend, *auditSpy) {
	t.Helper()
	fb, client := newFakeBackend(t)
	spy := &auditSpy{}
	cache := query.NewCache(query.NewMemoryStore(256, time.Hour))
	svc, err := NewService(client, cache, DefaultCatalog(), spy, nil)
	require.NoError(t, err)
	return svc, fb, spy
}

func mustResource(t *testing.T, svc *Service, name string) Resource {
	t.Helper()
	r, err := svc.Resource(name)
	require.NoError(t, err)
	return r
}

func TestCatalogMatchesAccessPolicy(t *testing.T) {
	policy, err := rbac.DefaultPolicy()
	require.NoError(t, err)
	catalog := DefaultCatalog()
	require.Len(t, catalog.Names(), 13)
	require.NoError(t, policy.Validate(catalog.Names()))
	for _, r := range catalog.All() {
		assert.True(t, strings.HasPrefix(r.Route(), rbac.DashboardPath+"/"), r.Name)
	}
}

func TestNewCatalogRejectsDuplicates(t *testing.T) {
	_, err := NewCatalog(Resource{Name: "brands", Endpoint: "/brands"}, Resource{Name: "brands", Endpoint: "/b"})
	require.Error(t, err)
	_, err = NewCatalog(Resource{Name: "brands"})
	require.Error(t, err)
}

func TestGraphStockMovementAffectsStockReads(t *testing.T) {
	keys, err := DefaultCatalog().Graph().Keys(NodeStockMovement)
	require.NoError(t, err)
	var tags []string
	for _, k := range keys {
		tags = append(tags, k.Tag())
	}
	assert.ElementsMatch(t, []string{
		TagStockByProduct, TagInStockHistory, TagOutStockHistory, "get-all-products", "get-all-stocks",
	}, tags)
}

func TestServiceRejectsUnknownAffects(t *testing.T) {
	_, client := newFakeBackend(t)
	catalog, err := NewCatalog(Resource{Name: "brands", Endpoint: "/brands", Affects: []string{"labels"}})
	require.NoError(t, err)
	_, err = NewService(client, query.NewCache(query.NewMemoryStore(16, time.Minute)), catalog, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "labels")
}

func TestListLocalSearchFiltersCachedRows(t *testing.T) {
	svc, fb, _ := newService(t)
	fb.handle("GET /brands", http.StatusOK, `{"data":[{"id":1,"name":"Kopi Senja"},{"id":2,"name":"Teh Pagi"}]}`)
	brands := mustResource(t, svc, "brands")
	ctx := context.Background()

	res := svc.List(ctx, adminSession, brands, ListFilter{Search: "KOPI"})
	require.True(t, res.OK(), res.Err)
	require.Len(t, res.Data, 1)
	assert.Equal(t, "1", res.Data[0].ID())

	res = svc.List(ctx, adminSession, brands, ListFilter{})
	require.True(t, res.OK())
	assert.Len(t, res.Data, 2)
	assert.True(t, res.FromCache)
	assert.Equal(t, 1, fb.count("GET /brands"))
}

func TestListServerSearchForwardsFilter(t *testing.T) {
	svc, fb, _ := newService(t)
	var gotQuery string
	fb.mux.HandleFunc("GET /pesanan", func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = io.WriteString(w, `{"data":[{"id":"INV-1","invoice":"INV-1"}]}`)
	})
	orders := mustResource(t, svc, "orders")
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	res := svc.List(context.Background(), adminSession, orders, ListFilter{Search: "INV", Start: start})
	require.True(t, res.OK(), res.Err)
	assert.Equal(t, "search=INV&start_date=2024-03-01", gotQuery)
	assert.Equal(t, query.NewKey("get-all-orders", "INV", "2024-03-01", ""), res.Key)
}

func TestListFailureReportsError(t *testing.T) {
	svc, fb, _ := newService(t)
	fb.handle("GET /users", http.StatusInternalServerError, `{"message":"boom"}`)

	res := svc.List(context.Background(), adminSession, mustResource(t, svc, "users"), ListFilter{})
	assert.Equal(t, query.StatusError, res.Status)
	var respErr *api.ResponseError
	require.ErrorAs(t, res.Err, &respErr)
	assert.Equal(t, "boom", query.NormalizeError(res.Err))
}

func TestDetailIdleWithoutID(t *testing.T) {
	svc, fb, _ := newService(t)
	fb.handle("GET /produk/{id}", http.StatusOK, `{"data":{"id":9,"name":"Mug"}}`)
	products := mustResource(t, svc, "products")

	res := svc.Detail(context.Background(), adminSession, products, " ")
	assert.Equal(t, query.StatusIdle, res.Status)
	assert.Zero(t, fb.count("GET /produk/"))

	res = svc.Detail(context.Background(), adminSession, products, "9")
	require.True(t, res.OK(), res.Err)
	assert.Equal(t, "Mug", res.Data.Field("name"))
}

func TestCreateInvalidatesListAndAudits(t *testing.T) {
	svc, fb, spy := newService(t)
	fb.handle("GET /brands", http.StatusOK, `{"data":[]}`)
	fb.handle("GET /produk", http.StatusOK, `{"data":[]}`)
	fb.handle("POST /brands", http.StatusCreated, `{"message":"Brand dibuat"}`)
	brands := mustResource(t, svc, "brands")
	products := mustResource(t, svc, "products")
	ctx := context.Background()

	svc.List(ctx, adminSession, brands, ListFilter{})
	svc.List(ctx, adminSession, products, ListFilter{})

	notice, err := svc.Create(ctx, adminSession, brands, map[string]any{"name": "Kopi"})
	require.NoError(t, err)
	assert.Equal(t, shared.FlashMessage{Kind: shared.FlashSuccess, Message: "Brand dibuat"}, notice)
	assert.JSONEq(t, `{"name":"Kopi"}`, fb.body("POST /brands"))

	svc.List(ctx, adminSession, brands, ListFilter{})
	svc.List(ctx, adminSession, products, ListFilter{})
	assert.Equal(t, 2, fb.count("GET /brands"))
	assert.Equal(t, 2, fb.count("GET /produk"), "brand writes affect products")

	require.Len(t, spy.entries, 1)
	assert.Equal(t, "create-brands", spy.entries[0].Action)
	assert.Equal(t, "success", spy.entries[0].Outcome)
	assert.Equal(t, "rina", spy.entries[0].Actor)
}

func TestInvalidationReachesOtherUsers(t *testing.T) {
	svc, fb, _ := newService(t)
	fb.handle("GET /pelanggan", http.StatusOK, `{"data":[]}`)
	fb.handle("DELETE /pelanggan/{id}", http.StatusOK, `{}`)
	customers := mustResource(t, svc, "customers")
	other := shared.Session{Token: "tok-2", Username: "budi", Role: shared.RoleOrderStaff}
	ctx := context.Background()

	svc.List(ctx, other, customers, ListFilter{})
	notice, err := svc.Delete(ctx, adminSession, customers, "4")
	require.NoError(t, err)
	assert.Equal(t, MessageDeleted, notice.Message)

	svc.List(ctx, other, customers, ListFilter{})
	assert.Equal(t, 2, fb.count("GET /pelanggan"))
}

func TestUpdateFailureNotice(t *testing.T) {
	svc, fb, spy := newService(t)
	fb.handle("PUT /users/{id}", http.StatusUnprocessableEntity, `{"message":{"error":"Username sudah dipakai"}}`)

	notice, err := svc.Update(context.Background(), adminSession, mustResource(t, svc, "users"), "3", map[string]any{"username": "rina"})
	require.Error(t, err)
	assert.Equal(t, shared.FlashMessage{Kind: shared.FlashError, Message: "Username sudah dipakai"}, notice)
	require.Len(t, spy.entries, 1)
	assert.Equal(t, "failure", spy.entries[0].Outcome)
}

func TestMoveStockValidatesAndInvalidates(t *testing.T) {
	svc, fb, _ := newService(t)
	fb.handle("GET /stok/produk/{id}", http.StatusOK, `{"data":[{"warehouse":"A","quantity":3}]}`)
	fb.handle("GET /stok/masuk", http.StatusOK, `{"data":[]}`)
	fb.handle("GET /stok/keluar", http.StatusOK, `{"data":[]}`)
	fb.handle("POST /stok/mutasi", http.StatusCreated, `{}`)
	ctx := context.Background()

	_, err := svc.MoveStock(ctx, adminSession, StockMovement{ProductID: "5", Direction: "sideways", Quantity: 1})
	require.Error(t, err)
	assert.Zero(t, fb.count("POST /stok/mutasi"))

	require.True(t, svc.StockByProduct(ctx, adminSession, "5").OK())
	require.True(t, svc.StockHistory(ctx, adminSession, StockIn, ListFilter{}).OK())
	require.True(t, svc.StockHistory(ctx, adminSession, StockOut, ListFilter{}).OK())

	notice, err := svc.MoveStock(ctx, adminSession, StockMovement{ProductID: "5", Direction: StockIn, Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, MessageStockMoved, notice.Message)
	assert.JSONEq(t, `{"product_id":"5","type":"in","quantity":2}`, fb.body("POST /stok/mutasi"))

	for _, tag := range []string{TagStockByProduct, TagInStockHistory, TagOutStockHistory} {
		var key query.Key
		switch tag {
		case TagStockByProduct:
			key = query.NewKey(tag, "5")
		default:
			key = query.NewKey(tag, "", "", "")
		}
		_, ok, err := svc.cache.Peek(ctx, adminSession.Username, key)
		require.NoError(t, err)
		assert.False(t, ok, tag)
	}
}

func TestStockByProductIdleWithoutProduct(t *testing.T) {
	svc, _, _ := newService(t)
	res := svc.StockByProduct(context.Background(), adminSession, "")
	assert.Equal(t, query.StatusIdle, res.Status)
}

func TestCreateShipmentInvalidatesFulfilmentLists(t *testing.T) {
	svc, fb, _ := newService(t)
	for _, route := range []string{"GET /pesanan", "GET /printing", "GET /packing"} {
		fb.handle(route, http.StatusOK, `{"data":[]}`)
	}
	fb.handle("POST /pengiriman", http.StatusCreated, `{"message":"ok"}`)
	ctx := context.Background()
	lists := []string{"orders", "printings", "packings"}
	for _, name := range lists {
		require.True(t, svc.List(ctx, adminSession, mustResource(t, svc, name), ListFilter{}).OK())
	}

	_, err := svc.CreateShipment(ctx, adminSession, Shipment{ShippingServiceID: "2"})
	require.Error(t, err, "orders are required")

	notice, err := svc.CreateShipment(ctx, adminSession, Shipment{OrderIDs: []string{"7", "8"}, ShippingServiceID: "2"})
	require.NoError(t, err)
	assert.Equal(t, "ok", notice.Message)

	for _, name := range lists {
		svc.List(ctx, adminSession, mustResource(t, svc, name), ListFilter{})
	}
	assert.Equal(t, 2, fb.count("GET /pesanan"))
	assert.Equal(t, 2, fb.count("GET /printing"))
	assert.Equal(t, 2, fb.count("GET /packing"))
}

func TestAdvancePrinting(t *testing.T) {
	svc, fb, _ := newService(t)
	fb.handle("PATCH /printing/{id}/status", http.StatusOK, `{}`)

	_, err := svc.AdvancePrinting(context.Background(), adminSession, StatusChange{ID: "3", Status: "lost"})
	require.Error(t, err)

	notice, err := svc.AdvancePrinting(context.Background(), adminSession, StatusChange{ID: "3", Status: "done"})
	require.NoError(t, err)
	assert.Equal(t, MessageStatusUpdated, notice.Message)
	assert.JSONEq(t, `{"status":"done"}`, fb.body("PATCH /printing/3/status"))
}

func TestExport(t *testing.T) {
	svc, fb, _ := newService(t)
	fb.mux.HandleFunc("GET /produk/export", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		_, _ = w.Write([]byte("PK\x03\x04"))
	})

	file, err := svc.Export(context.Background(), adminSession, mustResource(t, svc, "products"))
	require.NoError(t, err)
	assert.Equal(t, "products.xlsx", file.Name)
	assert.Equal(t, []byte("PK\x03\x04"), file.Data)

	_, err = svc.Export(context.Background(), adminSession, mustResource(t, svc, "users"))
	assert.True(t, errors.Is(err, ErrNotSupported))
}

func TestImportUploadsAndInvalidates(t *testing.T) {
	svc, fb, _ := newService(t)
	fb.handle("GET /pesanan", http.StatusOK, `{"data":[]}`)
	var filename string
	fb.mux.HandleFunc("POST /pesanan/import", func(w http.ResponseWriter, r *http.Request) {
		_, header, err := r.FormFile("file")
		if err == nil {
			filename = header.Filename
		}
		_, _ = io.WriteString(w, `{}`)
	})
	orders := mustResource(t, svc, "orders")
	ctx := context.Background()

	svc.List(ctx, adminSession, orders, ListFilter{})
	notice, err := svc.Import(ctx, adminSession, orders, api.Upload{Filename: "orders.xlsx", Data: strings.NewReader("rows")})
	require.NoError(t, err)
	assert.Equal(t, MessageImported, notice.Message)
	assert.Equal(t, "orders.xlsx", filename)

	svc.List(ctx, adminSession, orders, ListFilter{})
	assert.Equal(t, 2, fb.count("GET /pesanan"))

	_, err = svc.Import(ctx, adminSession, mustResource(t, svc, "brands"), api.Upload{})
	assert.ErrorIs(t, err, ErrNotSupported)
}

func TestResourceValues(t *testing.T) {
	products, ok := DefaultCatalog().Lookup("products")
	require.True(t, ok)

	body, err := products.Values(map[string]string{"sku": "SKU-1", "name": "Mug", "brand_id": "2", "price": "15000"})
	require.NoError(t, err)
	encoded, err := json.Marshal(body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"sku":"SKU-1","name":"Mug","brand_id":2,"price":15000}`, string(encoded))

	_, err = products.Values(map[string]string{"sku": "SKU-1", "name": "Mug", "brand_id": "x", "price": "1"})
	var formErr *FormError
	require.ErrorAs(t, err, &formErr)
	assert.Equal(t, "Brand harus berupa angka", formErr.Message)

	_, err = products.Values(map[string]string{"sku": "SKU-1"})
	require.ErrorAs(t, err, &formErr)
	assert.Equal(t, "Nama, Brand, Harga wajib diisi", formErr.Message)
}

func TestUnknownResource(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.Resource("returns")
	assert.ErrorIs(t, err, ErrUnknownResource)
}
