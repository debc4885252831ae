package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nemonet1337/zaiCostLedger/pkg/inventory"
	"github.com/nemonet1337/zaiCostLedger/pkg/inventory/storage"
)

type testResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Details json.RawMessage `json:"details"`
}

func newTestRouter() *mux.Router {
	manager := inventory.NewManager(storage.NewMemoryStore(nil), nil, zap.NewNop(), nil)
	return setupRouter(NewHandlers(manager, zap.NewNop()), nil, true)
}

func doRequest(t *testing.T, router http.Handler, method, path, body string) (*httptest.ResponseRecorder, testResponse) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "tester")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp testResponse
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func createCloth(t *testing.T, router http.Handler) {
	t.Helper()
	rec, _ := doRequest(t, router, http.MethodPost, "/api/v1/products",
		`{"id":"CLOTH","name":"Cotton Cloth","sku":"CL-1","purchase_price":"1.80","sale_price":"3","stock":"100","low_stock_alert":"10"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestHealthCheck(t *testing.T) {
	router := newTestRouter()

	rec, resp := doRequest(t, router, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCreateProduct(t *testing.T) {
	router := newTestRouter()
	createCloth(t, router)

	rec, resp := doRequest(t, router, http.MethodGet, "/api/v1/products/CLOTH", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var p inventory.Product
	require.NoError(t, json.Unmarshal(resp.Data, &p))
	assert.True(t, decimal.RequireFromString("1.80").Equal(p.AverageCost))

	t.Run("名前なし", func(t *testing.T) {
		rec, resp := doRequest(t, router, http.MethodPost, "/api/v1/products", `{"sku":"X"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, string(resp.Details), `"Name":"required"`)
	})

	t.Run("不正なJSON", func(t *testing.T) {
		rec, _ := doRequest(t, router, http.MethodPost, "/api/v1/products", `{`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("ID重複", func(t *testing.T) {
		rec, _ := doRequest(t, router, http.MethodPost, "/api/v1/products", `{"id":"CLOTH","name":"別商品"}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("存在しない商品", func(t *testing.T) {
		rec, _ := doRequest(t, router, http.MethodGet, "/api/v1/products/NOPE", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestPurchaseAndSale(t *testing.T) {
	router := newTestRouter()
	createCloth(t, router)

	rec, _ := doRequest(t, router, http.MethodPost, "/api/v1/sales", `{"items":[{"product_id":"CLOTH","quantity":"40"}]}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, _ = doRequest(t, router, http.MethodPost, "/api/v1/purchases", `{"product_id":"CLOTH","quantity":"50","unit_cost":"2.00"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	_, resp := doRequest(t, router, http.MethodGet, "/api/v1/products/CLOTH", "")
	var p inventory.Product
	require.NoError(t, json.Unmarshal(resp.Data, &p))
	assert.Equal(t, "110", p.Stock.String())
	assert.Equal(t, "1.89", p.AverageCost.StringFixed(2))

	_, resp = doRequest(t, router, http.MethodGet, "/api/v1/products/CLOTH/history?limit=1", "")
	var history []inventory.Movement
	require.NoError(t, json.Unmarshal(resp.Data, &history))
	require.Len(t, history, 1)
	assert.Equal(t, inventory.MovementTypePurchase, history[0].Type)

	rec, _ = doRequest(t, router, http.MethodGet, "/api/v1/products/CLOTH/history?limit=x", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistoryByDateRange(t *testing.T) {
	router := newTestRouter()
	createCloth(t, router)

	rec, _ := doRequest(t, router, http.MethodPost, "/api/v1/sales", `{"items":[{"product_id":"CLOTH","quantity":"5"}]}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec, _ = doRequest(t, router, http.MethodPost, "/api/v1/purchases", `{"product_id":"CLOTH","quantity":"5","unit_cost":"2"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, resp := doRequest(t, router, http.MethodGet, "/api/v1/products/CLOTH/history?from=2000-01-01T00:00:00Z", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var history []inventory.Movement
	require.NoError(t, json.Unmarshal(resp.Data, &history))
	require.Len(t, history, 2)
	assert.Equal(t, inventory.MovementTypePurchase, history[0].Type)

	t.Run("範囲外は空配列", func(t *testing.T) {
		rec, resp := doRequest(t, router, http.MethodGet, "/api/v1/products/CLOTH/history?from=2999-01-01T00:00:00Z&to=2999-12-31T00:00:00Z", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, string(resp.Data))
	})

	t.Run("不正な日時", func(t *testing.T) {
		rec, _ := doRequest(t, router, http.MethodGet, "/api/v1/products/CLOTH/history?from=yesterday", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("終了が開始より前", func(t *testing.T) {
		rec, _ := doRequest(t, router, http.MethodGet, "/api/v1/products/CLOTH/history?from=2024-02-01T00:00:00Z&to=2024-01-01T00:00:00Z", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("存在しない商品", func(t *testing.T) {
		rec, _ := doRequest(t, router, http.MethodGet, "/api/v1/products/NOPE/history?from=2000-01-01T00:00:00Z", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestMovementsByReference(t *testing.T) {
	router := newTestRouter()
	createCloth(t, router)

	rec, resp := doRequest(t, router, http.MethodPost, "/api/v1/sales", `{"items":[{"product_id":"CLOTH","quantity":"5"}]}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var sale inventory.Sale
	require.NoError(t, json.Unmarshal(resp.Data, &sale))

	rec, resp = doRequest(t, router, http.MethodGet, "/api/v1/movements?reference="+sale.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var moves []inventory.Movement
	require.NoError(t, json.Unmarshal(resp.Data, &moves))
	require.Len(t, moves, 1)
	assert.Equal(t, inventory.MovementTypeSale, moves[0].Type)

	rec, _ = doRequest(t, router, http.MethodGet, "/api/v1/movements", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckoutRejections(t *testing.T) {
	router := newTestRouter()
	createCloth(t, router)

	t.Run("在庫不足", func(t *testing.T) {
		rec, resp := doRequest(t, router, http.MethodPost, "/api/v1/sales", `{"items":[{"product_id":"CLOTH","quantity":"150"}]}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
		var details map[string]string
		require.NoError(t, json.Unmarshal(resp.Details, &details))
		assert.Equal(t, "50", details["shortfall"])
	})

	t.Run("明細なし", func(t *testing.T) {
		rec, _ := doRequest(t, router, http.MethodPost, "/api/v1/sales", `{"items":[]}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("顧客なしの掛売り", func(t *testing.T) {
		rec, resp := doRequest(t, router, http.MethodPost, "/api/v1/sales", `{"items":[{"product_id":"CLOTH","quantity":"1"}],"payment_method":"Credit"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, string(resp.Details), "credit_requires_customer")
	})

	t.Run("無効な決済方法", func(t *testing.T) {
		rec, _ := doRequest(t, router, http.MethodPost, "/api/v1/sales", `{"items":[{"product_id":"CLOTH","quantity":"1"}],"payment_method":"Barter"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestManufacturingEndpoints(t *testing.T) {
	router := newTestRouter()
	createCloth(t, router)
	body := `{"raw_product_id":"CLOTH","raw_quantity":"40","process_type":"Dyeing","unit_process_cost":"0.50","claim_quantity":"8","finished_product_name":"Dyed Cloth"}`

	rec, resp := doRequest(t, router, http.MethodPost, "/api/v1/manufacturing/preview", body)
	require.Equal(t, http.StatusOK, rec.Code)
	var preview inventory.BatchResult
	require.NoError(t, json.Unmarshal(resp.Data, &preview))
	// (40*1.80 + 40*0.50) / 32
	assert.Equal(t, "2.875", preview.BatchUnitCost.String())

	rec, resp = doRequest(t, router, http.MethodPost, "/api/v1/manufacturing", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	var entry inventory.ManufacturingEntry
	require.NoError(t, json.Unmarshal(resp.Data, &entry))
	assert.Equal(t, "32", entry.FinishedQuantity.String())

	rec, _ = doRequest(t, router, http.MethodPost, "/api/v1/manufacturing", `{"raw_product_id":"CLOTH","raw_quantity":"1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClaimEndpoints(t *testing.T) {
	router := newTestRouter()
	createCloth(t, router)

	rec, resp := doRequest(t, router, http.MethodPost, "/api/v1/claims", `{"product_id":"CLOTH","quantity":"2","reason":"破損","type":"Damage"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var claim inventory.ManufacturingClaim
	require.NoError(t, json.Unmarshal(resp.Data, &claim))

	rec, _ = doRequest(t, router, http.MethodPost, "/api/v1/claims/"+claim.ID+"/resolve", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = doRequest(t, router, http.MethodPost, "/api/v1/claims/"+claim.ID+"/resolve", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = doRequest(t, router, http.MethodPost, "/api/v1/claims", `{"product_id":"CLOTH","quantity":"1","reason":"色むら","type":"Defect"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	t.Run("ステータス別一覧", func(t *testing.T) {
		rec, resp := doRequest(t, router, http.MethodGet, "/api/v1/claims?status=Pending", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var pending []inventory.ManufacturingClaim
		require.NoError(t, json.Unmarshal(resp.Data, &pending))
		require.Len(t, pending, 1)
		assert.Equal(t, "色むら", pending[0].Reason)

		_, resp = doRequest(t, router, http.MethodGet, "/api/v1/claims", "")
		var all []inventory.ManufacturingClaim
		require.NoError(t, json.Unmarshal(resp.Data, &all))
		assert.Len(t, all, 2)

		rec, _ = doRequest(t, router, http.MethodGet, "/api/v1/claims?status=Open", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("クレーム取得", func(t *testing.T) {
		rec, resp := doRequest(t, router, http.MethodGet, "/api/v1/claims/"+claim.ID, "")
		require.Equal(t, http.StatusOK, rec.Code)
		var got inventory.ManufacturingClaim
		require.NoError(t, json.Unmarshal(resp.Data, &got))
		assert.Equal(t, inventory.ClaimStatusResolved, got.Status)

		rec, _ = doRequest(t, router, http.MethodGet, "/api/v1/claims/CLM-404", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestVendorEndpoints(t *testing.T) {
	router := newTestRouter()

	rec, resp := doRequest(t, router, http.MethodPost, "/api/v1/vendors", `{"id":"V1","name":"Mills","company_name":"Mills Ltd","opening_balance":"500"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, resp = doRequest(t, router, http.MethodPost, "/api/v1/vendors/V1/payments", `{"amount":"300","method":"Bank"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var v inventory.Vendor
	require.NoError(t, json.Unmarshal(resp.Data, &v))
	assert.Equal(t, "200", v.RemainingPayable.String())
	require.Len(t, v.Ledger, 2)

	rec, _ = doRequest(t, router, http.MethodPost, "/api/v1/vendors/V404/payments", `{"amount":"1"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = doRequest(t, router, http.MethodPost, "/api/v1/vendors/V1/payments", `{"amount":"0"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = doRequest(t, router, http.MethodPost, "/api/v1/vendors", `{"name":"Mills","company_name":"Mills Ltd","email":"not-an-email"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVendorPurchases(t *testing.T) {
	router := newTestRouter()
	createCloth(t, router)

	rec, _ := doRequest(t, router, http.MethodPost, "/api/v1/vendors", `{"id":"V1","name":"Mills"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec, _ = doRequest(t, router, http.MethodPost, "/api/v1/purchases", `{"vendor_id":"V1","product_id":"CLOTH","quantity":"10","unit_cost":"2"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec, _ = doRequest(t, router, http.MethodPost, "/api/v1/purchases", `{"product_id":"CLOTH","quantity":"3","unit_cost":"2"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, resp := doRequest(t, router, http.MethodGet, "/api/v1/vendors/V1/purchases", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var purchases []inventory.PurchaseRecord
	require.NoError(t, json.Unmarshal(resp.Data, &purchases))
	require.Len(t, purchases, 1)
	assert.Equal(t, "20", purchases[0].TotalAmount.String())

	rec, _ = doRequest(t, router, http.MethodGet, "/api/v1/vendors/V404/purchases", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCustomerSales(t *testing.T) {
	router := newTestRouter()
	createCloth(t, router)

	rec, _ := doRequest(t, router, http.MethodPost, "/api/v1/customers", `{"id":"C1","name":"田中商店"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, resp := doRequest(t, router, http.MethodGet, "/api/v1/customers/C1/sales", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(resp.Data))

	rec, _ = doRequest(t, router, http.MethodPost, "/api/v1/sales", `{"customer_id":"C1","items":[{"product_id":"CLOTH","quantity":"2"}]}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	_, resp = doRequest(t, router, http.MethodGet, "/api/v1/customers/C1/sales", "")
	var sales []inventory.Sale
	require.NoError(t, json.Unmarshal(resp.Data, &sales))
	require.Len(t, sales, 1)
	assert.Equal(t, "C1", sales[0].CustomerID)

	rec, _ = doRequest(t, router, http.MethodGet, "/api/v1/customers/C404/sales", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestValuationAndExport(t *testing.T) {
	router := newTestRouter()
	createCloth(t, router)

	rec, resp := doRequest(t, router, http.MethodGet, "/api/v1/valuation?method=RETAIL", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var report inventory.ValuationReport
	require.NoError(t, json.Unmarshal(resp.Data, &report))
	assert.Equal(t, "300.00", report.TotalValue.StringFixed(2))

	rec, _ = doRequest(t, router, http.MethodGet, "/api/v1/valuation?method=FIFO", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = doRequest(t, router, http.MethodGet, "/api/v1/export/products.csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	records, err := csv.NewReader(bytes.NewReader(rec.Body.Bytes())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "CLOTH", records[1][0])

	rec, _ = doRequest(t, router, http.MethodGet, "/api/v1/export/payroll.csv", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = doRequest(t, router, http.MethodGet, "/api/v1/export/workbook.xlsx", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotZero(t, rec.Body.Len())
}
