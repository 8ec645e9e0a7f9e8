package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/bulkupload"
	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/inventory"
	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/lock"
	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/model"
	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/reconciliation"
	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/store/memstore"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStorage struct {
	objects map[string][]byte
}

func (f *fakeStorage) Put(ctx context.Context, productID uuid.UUID, filename, contentType string, body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	url := "https://cdn.test/products/" + productID.String() + "-" + filename
	f.objects[url] = data
	return url, nil
}

func (f *fakeStorage) Delete(ctx context.Context, url string) error {
	delete(f.objects, url)
	return nil
}

type testServer struct {
	e       *echo.Echo
	store   *memstore.Store
	storage *fakeStorage
}

func newTestServer(t *testing.T, withStorage bool) *testServer {
	t.Helper()
	s := memstore.New()
	locker := lock.NewLocal()
	inv := inventory.NewService(s, locker)

	e := echo.New()
	e.Validator = NewRequestValidator()
	ts := &testServer{e: e, store: s}

	var storage ImageStorage
	if withStorage {
		ts.storage = &fakeStorage{objects: map[string][]byte{}}
		storage = ts.storage
	}

	e.GET("/health", HealthCheck("inventory-service"))
	api := e.Group("/api")
	products := api.Group("/products")
	NewProductHandler(s, inv).Register(products)
	NewBulkUploadHandler(bulkupload.NewProcessor(s, time.Second), 1<<20).Register(products)
	NewImageHandler(s, storage).Register(products)
	NewReferenceHandler(s).Register(api)
	NewReconciliationHandler(reconciliation.NewService(s, locker)).Register(api.Group("/stock-reconciliations"))
	NewStockAdjustmentHandler(inv).Register(api.Group("/stock-adjustments"))
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) product(t *testing.T, sku string, qty int, price int64) *model.Product {
	t.Helper()
	d := decimal.NewFromInt(price)
	prod := &model.Product{SKU: sku, Name: "Product " + sku, QuantityOnHand: &qty, SellingPrice: &d}
	require.NoError(t, ts.store.CreateProduct(context.Background(), prod))
	return prod
}

func (ts *testServer) quantity(t *testing.T, id uuid.UUID) int {
	t.Helper()
	p, err := ts.store.GetProduct(context.Background(), id)
	require.NoError(t, err)
	return p.Quantity()
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]interface{}
	decode(t, rec, &body)
	msg, _ := body["error"].(string)
	return msg
}

func multipartBody(t *testing.T, field, filename string, content []byte, extra map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if field != "" {
		part, err := w.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	for k, v := range extra {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t, false)
	rec := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","service":"inventory-service"}`, rec.Body.String())
}

func TestProductLifecycle(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(t, http.MethodPost, "/api/products", map[string]interface{}{
		"sku": "W-1", "name": "Watch", "selling_price": 120.5, "quantity_on_hand": 4, "tags": []string{" gold ", ""},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created model.Product
	decode(t, rec, &created)
	assert.Equal(t, model.ProductActive, created.Status)
	assert.Equal(t, []string{"gold"}, []string(created.Tags))

	rec = ts.do(t, http.MethodPost, "/api/products", map[string]interface{}{"sku": "W-1", "name": "Copy"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/products", map[string]interface{}{"name": "No SKU"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "sku: is required", errorOf(t, rec))

	rec = ts.do(t, http.MethodPost, "/api/products", map[string]interface{}{"sku": "W-2", "name": "Bad", "status": "live"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPut, "/api/products/"+created.ID.String(), map[string]interface{}{
		"sku": "W-1B", "name": "Watch v2", "status": "draft",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated model.Product
	decode(t, rec, &updated)
	assert.Equal(t, "W-1B", updated.SKU)
	assert.Equal(t, model.ProductDraft, updated.Status)

	rec = ts.do(t, http.MethodGet, "/api/products?status=draft&q=watch", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []model.Product
	decode(t, rec, &list)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)

	rec = ts.do(t, http.MethodGet, "/api/products/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/api/products/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/products/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/products/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateProductDuplicateSKU(t *testing.T) {
	ts := newTestServer(t, false)
	a := ts.product(t, "A", 1, 10)
	ts.product(t, "B", 1, 10)

	rec := ts.do(t, http.MethodPut, "/api/products/"+a.ID.String(), map[string]interface{}{"sku": "B", "name": "A"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Product with this SKU already exists", errorOf(t, rec))
}

func TestCheckSKU(t *testing.T) {
	ts := newTestServer(t, false)
	p := ts.product(t, "X1", 1, 10)

	rec := ts.do(t, http.MethodGet, "/api/products/check-sku?sku=X1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"unique":false}`, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/api/products/check-sku?sku=X1&productId="+p.ID.String(), nil)
	assert.JSONEq(t, `{"unique":true}`, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/api/products/check-sku?sku=NEW", nil)
	assert.JSONEq(t, `{"unique":true}`, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/api/products/check-sku", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]interface{}
	decode(t, rec, &body)
	assert.Equal(t, false, body["unique"])
}

func TestReferenceData(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(t, http.MethodPost, "/api/categories", map[string]string{"name": " Watches "})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = ts.do(t, http.MethodPost, "/api/categories", map[string]string{"name": "Rings"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/categories", nil)
	var categories []model.Category
	decode(t, rec, &categories)
	require.Len(t, categories, 2)
	assert.Equal(t, "Rings", categories[0].Name)
	assert.Equal(t, "Watches", categories[1].Name)

	rec = ts.do(t, http.MethodPost, "/api/brands", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/suppliers", map[string]string{"name": "Lagos Imports", "email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/suppliers", map[string]string{"name": "Lagos Imports", "email": "sales@lagos.test"})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestBulkUploadRequiresFile(t *testing.T) {
	ts := newTestServer(t, false)
	body, contentType := multipartBody(t, "", "", nil, map[string]string{"note": "x"})
	req := httptest.NewRequest(http.MethodPost, "/api/products/bulk-upload", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No file uploaded", errorOf(t, rec))
}

func TestBulkUploadReport(t *testing.T) {
	ts := newTestServer(t, false)
	require.NoError(t, ts.store.CreateCategory(context.Background(), &model.Category{Name: "Watches"}))

	csvText := "sku,name,category,cost_price,selling_price,quantity_on_hand,status\n" +
		"X1,Widget,Nonexistent,10,20,5,active\n" +
		"X2,Gadget,Watches,10,20,5,active\n"
	body, contentType := multipartBody(t, "file", "products.csv", []byte(csvText), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/products/bulk-upload", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/csv", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, `attachment; filename="bulk-upload-status.csv"`, rec.Header().Get(echo.HeaderContentDisposition))

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "sku,name,category,cost_price,selling_price,quantity_on_hand,status,error", lines[0])
	assert.Equal(t, "X1,Widget,Nonexistent,10,20,5,failed,Category not found: Nonexistent", lines[1])
	assert.Equal(t, "X2,Gadget,Watches,10,20,5,added,", lines[2])
}

func TestBulkUploadUnreadableFile(t *testing.T) {
	ts := newTestServer(t, false)
	body, contentType := multipartBody(t, "file", "products.xlsx", []byte("not a workbook"), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/products/bulk-upload", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotEmpty(t, errorOf(t, rec))
}

type reconciliationResponse struct {
	Success        bool                           `json:"success"`
	Reconciliation model.StockReconciliation      `json:"reconciliation"`
	Applied        int                            `json:"applied"`
	FailedProducts []reconciliation.FailedProduct `json:"failed_products"`
}

func TestReconciliationFlow(t *testing.T) {
	ts := newTestServer(t, false)
	a := ts.product(t, "A", 10, 100)
	b := ts.product(t, "B", 20, 50)

	rec := ts.do(t, http.MethodPost, "/api/stock-reconciliations", map[string]interface{}{
		"created_by": "user-1",
		"status":     "draft",
		"notes":      "monthly count",
		"data": []map[string]interface{}{
			{"id": a.ID, "physicalCount": "8", "reason": "Lost", "discrepancy": 99},
			{"id": b.ID, "physicalCount": 25, "reason": "Overstocking"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created reconciliationResponse
	decode(t, rec, &created)
	assert.True(t, created.Success)
	assert.Equal(t, 3, created.Reconciliation.Discrepancies)
	assert.True(t, decimal.NewFromInt(50).Equal(created.Reconciliation.EstimatedImpact))
	id := created.Reconciliation.ID

	rec = ts.do(t, http.MethodPut, "/api/stock-reconciliations", map[string]interface{}{"status": "pending"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPut, "/api/stock-reconciliations", map[string]interface{}{"id": id, "status": "pending"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var submitted reconciliationResponse
	decode(t, rec, &submitted)
	assert.Equal(t, model.ReconciliationPending, submitted.Reconciliation.Status)
	assert.Equal(t, 3, submitted.Reconciliation.Discrepancies)

	rec = ts.do(t, http.MethodGet, "/api/stock-reconciliations?status=pending", nil)
	var pending []model.StockReconciliation
	decode(t, rec, &pending)
	require.Len(t, pending, 1)

	rec = ts.do(t, http.MethodPost, "/api/stock-reconciliations/"+id.String()+"/approve", map[string]string{"approval_notes": "ok"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var approved reconciliationResponse
	decode(t, rec, &approved)
	assert.Equal(t, model.ReconciliationApproved, approved.Reconciliation.Status)
	assert.Equal(t, 2, approved.Applied)
	assert.Empty(t, approved.FailedProducts)
	assert.Equal(t, 8, ts.quantity(t, a.ID))
	assert.Equal(t, 25, ts.quantity(t, b.ID))

	rec = ts.do(t, http.MethodPost, "/api/stock-reconciliations/"+id.String()+"/reject", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/stock-reconciliations/"+id.String()+"/apply", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var reapplied reconciliationResponse
	decode(t, rec, &reapplied)
	assert.Equal(t, 0, reapplied.Applied)

	rec = ts.do(t, http.MethodGet, "/api/stock-reconciliations/"+id.String(), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReconciliationUpdateByPath(t *testing.T) {
	ts := newTestServer(t, false)
	a := ts.product(t, "A", 10, 100)

	rec := ts.do(t, http.MethodPost, "/api/stock-reconciliations", map[string]interface{}{
		"data": []map[string]interface{}{{"id": a.ID}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created reconciliationResponse
	decode(t, rec, &created)
	assert.Equal(t, model.ReconciliationDraft, created.Reconciliation.Status)

	rec = ts.do(t, http.MethodPut, "/api/stock-reconciliations/"+created.Reconciliation.ID.String(), map[string]interface{}{
		"data": []map[string]interface{}{{"id": a.ID, "physicalCount": "12", "reason": "Data Entry Error"}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated reconciliationResponse
	decode(t, rec, &updated)
	assert.Equal(t, 2, updated.Reconciliation.Discrepancies)
	assert.True(t, decimal.NewFromInt(200).Equal(updated.Reconciliation.EstimatedImpact))
}

func TestReconciliationDecisionWithChunkedEmptyBody(t *testing.T) {
	ts := newTestServer(t, false)
	a := ts.product(t, "A", 10, 100)

	rec := ts.do(t, http.MethodPost, "/api/stock-reconciliations", map[string]interface{}{
		"status": "pending",
		"data":   []map[string]interface{}{{"id": a.ID, "physicalCount": 7, "reason": "Lost"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created reconciliationResponse
	decode(t, rec, &created)
	path := "/api/stock-reconciliations/" + created.Reconciliation.ID.String() + "/approve"

	send := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.ContentLength = -1
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		ts.e.ServeHTTP(rec, req)
		return rec
	}

	rec = send("{")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = send("  \n")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var approved reconciliationResponse
	decode(t, rec, &approved)
	assert.Equal(t, model.ReconciliationApproved, approved.Reconciliation.Status)
	assert.Equal(t, 7, ts.quantity(t, a.ID))
}

func TestReconciliationErrors(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(t, http.MethodPost, "/api/stock-reconciliations/"+uuid.New().String()+"/approve", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/stock-reconciliations", map[string]interface{}{"status": "approved"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/stock-reconciliations", map[string]interface{}{
		"data": []map[string]interface{}{{"id": uuid.New()}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/stock-reconciliations?status=unknown", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStockAdjustment(t *testing.T) {
	ts := newTestServer(t, false)
	p := ts.product(t, "A", 10, 100)

	rec := ts.do(t, http.MethodPost, "/api/stock-adjustments", map[string]interface{}{
		"product_id": p.ID, "adjustment_type": "damage", "quantity_changed": -3, "reason": "dropped", "user_id": "user-9",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"success":true,"newQty":7}`, rec.Body.String())
	assert.Equal(t, 7, ts.quantity(t, p.ID))

	rec = ts.do(t, http.MethodPost, "/api/stock-adjustments", map[string]interface{}{
		"product_id": p.ID, "quantity_changed": 1,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "adjustment_type: is required", errorOf(t, rec))

	rec = ts.do(t, http.MethodGet, "/api/stock-adjustments?product_id="+p.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var adjustments []model.StockAdjustment
	decode(t, rec, &adjustments)
	require.Len(t, adjustments, 1)
	assert.Equal(t, "user-9", adjustments[0].UserID)
	assert.Equal(t, 10, adjustments[0].PreviousQuantity)
}

func TestImagesWithoutStorage(t *testing.T) {
	ts := newTestServer(t, false)
	p := ts.product(t, "A", 1, 10)

	body, contentType := multipartBody(t, "image", "front.png", []byte("png"), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/products/"+p.ID.String()+"/images", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestImageUploadAndDelete(t *testing.T) {
	ts := newTestServer(t, true)
	p := ts.product(t, "A", 1, 10)

	body, contentType := multipartBody(t, "image", "front.png", []byte("png"), map[string]string{"alt_text": "front"})
	req := httptest.NewRequest(http.MethodPost, "/api/products/"+p.ID.String()+"/images", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var img model.ProductImage
	decode(t, rec, &img)
	assert.Equal(t, "front", img.AltText)
	assert.Equal(t, 1, img.DisplayOrder)
	assert.Len(t, ts.storage.objects, 1)

	rec = ts.do(t, http.MethodDelete, "/api/products/"+p.ID.String()+"/images/"+img.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, ts.storage.objects)

	got, err := ts.store.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Images)

	rec = ts.do(t, http.MethodDelete, "/api/products/"+p.ID.String()+"/images/"+img.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
