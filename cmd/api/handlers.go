package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/nemonet1337/zaiCostLedger/pkg/inventory"
	"github.com/nemonet1337/zaiCostLedger/pkg/inventory/export"
)

// Handlers holds HTTP handlers for the cost ledger API
// 原価台帳API用のHTTPハンドラーを保持
type Handlers struct {
	ledger   inventory.CostLedger
	validate *validator.Validate
	logger   *zap.Logger
}

// NewHandlers creates new HTTP handlers
// 新しいHTTPハンドラーを作成
func NewHandlers(ledger inventory.CostLedger, logger *zap.Logger) *Handlers {
	return &Handlers{
		ledger:   ledger,
		validate: validator.New(),
		logger:   logger,
	}
}

// APIResponse represents standard API response format
// 標準的なAPIレスポンス形式を表現
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// CreateProductRequest represents request to register a product
// 商品登録リクエストを表現
type CreateProductRequest struct {
	ID            string          `json:"id"`
	Name          string          `json:"name" validate:"required,max=500"`
	SKU           string          `json:"sku" validate:"max=255"`
	Barcode       string          `json:"barcode" validate:"max=128"`
	Category      string          `json:"category" validate:"max=255"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	SalePrice     decimal.Decimal `json:"sale_price"`
	Stock         decimal.Decimal `json:"stock"`
	LowStockAlert decimal.Decimal `json:"low_stock_alert"`
}

// CreateVendorRequest represents request to register a vendor
// 仕入先登録リクエストを表現
type CreateVendorRequest struct {
	ID             string          `json:"id"`
	Name           string          `json:"name" validate:"required"`
	CompanyName    string          `json:"company_name" validate:"required"`
	Phone          string          `json:"phone"`
	Email          string          `json:"email" validate:"omitempty,email"`
	Address        string          `json:"address"`
	PaymentTerms   string          `json:"payment_terms"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

// CreateCustomerRequest represents request to register a customer
// 顧客登録リクエストを表現
type CreateCustomerRequest struct {
	ID             string          `json:"id"`
	Name           string          `json:"name" validate:"required"`
	CompanyName    string          `json:"company_name"`
	Phone          string          `json:"phone"`
	Email          string          `json:"email" validate:"omitempty,email"`
	Address        string          `json:"address"`
	City           string          `json:"city"`
	PaymentTerms   string          `json:"payment_terms"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	CreditLimit    decimal.Decimal `json:"credit_limit"`
}

// PurchaseRequest represents request to receive goods
// 仕入受入リクエストを表現
type PurchaseRequest struct {
	VendorID      string          `json:"vendor_id"`
	ProductID     string          `json:"product_id" validate:"required"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	PaymentStatus string          `json:"payment_status" validate:"omitempty,oneof=Paid Pending"`
	PaymentMethod string          `json:"payment_method"`
}

// SaleLineRequest represents one cart line
// カート明細を表現
type SaleLineRequest struct {
	ProductID string          `json:"product_id" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// CheckoutRequest represents request to record a sale
// 販売リクエストを表現
type CheckoutRequest struct {
	CustomerID    string            `json:"customer_id"`
	Items         []SaleLineRequest `json:"items" validate:"required,min=1,dive"`
	Discount      decimal.Decimal   `json:"discount"`
	PaymentMethod string            `json:"payment_method" validate:"omitempty,oneof=Cash Card Bank Online Credit"`
	AmountPaid    decimal.Decimal   `json:"amount_paid"`
}

// ManufacturingRequest represents request to preview or commit a batch
// 製造試算・確定リクエストを表現
type ManufacturingRequest struct {
	RawProductID        string          `json:"raw_product_id" validate:"required"`
	RawQuantity         decimal.Decimal `json:"raw_quantity"`
	ProcessType         string          `json:"process_type" validate:"omitempty,oneof=Dyeing Rags Calendering Other"`
	UnitProcessCost     decimal.Decimal `json:"unit_process_cost"`
	ClaimQuantity       decimal.Decimal `json:"claim_quantity"`
	FinishedProductID   string          `json:"finished_product_id"`
	FinishedProductName string          `json:"finished_product_name" validate:"required_without=FinishedProductID"`
	Notes               string          `json:"notes"`
}

// ClaimRequest represents request to write stock off
// 在庫償却リクエストを表現
type ClaimRequest struct {
	ProductID string          `json:"product_id" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
	Reason    string          `json:"reason" validate:"required"`
	Type      string          `json:"type" validate:"omitempty,oneof=Damage Defect Shortage"`
}

// PaymentRequest represents a vendor payment, vendor bill or customer receipt
// 支払・請求・入金リクエストを表現
type PaymentRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Method      string          `json:"method"`
	Description string          `json:"description"`
}

// HealthCheck handles health check requests
// ヘルスチェックリクエストを処理
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.sendSuccess(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now(),
		"service":   "zaiCostLedger",
	})
}

// CreateProduct handles product registration
// 商品登録リクエストを処理
func (h *Handlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if !h.decode(w, r, &req) {
		return
	}

	product, err := h.ledger.CreateProduct(r.Context(), inventory.Product{
		ID:            req.ID,
		Name:          req.Name,
		SKU:           req.SKU,
		Barcode:       req.Barcode,
		Category:      req.Category,
		PurchasePrice: req.PurchasePrice,
		SalePrice:     req.SalePrice,
		Stock:         req.Stock,
		LowStockAlert: req.LowStockAlert,
	})
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, http.StatusCreated, product)
}

// ListProducts handles catalog listing
// 商品一覧リクエストを処理
func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	state, err := h.ledger.Snapshot(r.Context())
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, http.StatusOK, state.Products)
}

// GetProduct handles single product lookup
// 商品取得リクエストを処理
func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	state, err := h.ledger.Snapshot(r.Context())
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	product, err := state.FindProduct(mux.Vars(r)["productId"])
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, http.StatusOK, product)
}

// ArchiveProduct handles soft removal
// 商品アーカイブリクエストを処理
func (h *Handlers) ArchiveProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.ledger.ArchiveProduct(r.Context(), mux.Vars(r)["productId"])
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, http.StatusOK, product)
}

// GetHistory handles movement history requests. from/to (RFC3339) switch
// to a date-range query.
// 在庫移動履歴リクエストを処理（from/to 指定時は期間検索）
func (h *Handlers) GetHistory(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if query.Has("from") || query.Has("to") {
		h.getHistoryByDateRange(w, r)
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			h.sendError(w, http.StatusBadRequest, "無効なlimitパラメータです")
			return
		}
		limit = parsed
	}

	history, err := h.ledger.GetHistory(r.Context(), mux.Vars(r)["productId"], limit)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, http.StatusOK, history)
}

func (h *Handlers) getHistoryByDateRange(w http.ResponseWriter, r *http.Request) {
	var from time.Time
	to := time.Now().UTC()
	for _, param := range []struct {
		name string
		dst  *time.Time
	}{{"from", &from}, {"to", &to}} {
		v := r.URL.Query().Get(param.name)
		if v == "" {
			continue
		}
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			h.sendError(w, http.StatusBadRequest, fmt.Sprintf("無効な%sパラメータです", param.name))
			return
		}
		*param.dst = parsed
	}

	history, err := h.ledger.GetHistoryByDateRange(r.Context(), mux.Vars(r)["productId"], from, to)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, http.StatusOK, nonNil(history))
}

// MovementsByReference handles movement lookup by source record
// 参照ID別の在庫移動リクエストを処理
func (h *Handlers) MovementsByReference(w http.ResponseWriter, r *http.Request) {
	movements, err := h.ledger.MovementsByReference(r.Context(), r.URL.Query().Get("reference"))
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, http.StatusOK, nonNil(movements))
}

// LowStock handles low stock listing
// 低在庫一覧リクエストを処理
func (h *Handlers) LowStock(w http.ResponseWriter, r *http.Request) {
	products, err := h.ledger.LowStock(r.Context())
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	if products == nil {
		products = []inventory.Product{}
	}
	h.sendSuccess(w, http.StatusOK, products)
}

// CreateVendor handles vendor registration
// 仕入先登録リクエストを処理
func (h *Handlers) CreateVendor(w http.ResponseWriter, r *http.Request) {
	var req CreateVendorRequest
	if !h.decode(w, r, &req) {
		return
	}

	vendor, err := h.ledger.CreateVendor(r.Context(), inventory.Vendor{
		ID:             req.ID,
		Name:           req.Name,
		CompanyName:    req.CompanyName,
		Phone:          req.Phone,
		Email:          req.Email,
		Address:        req.Address,
		PaymentTerms:   req.PaymentTerms,
		OpeningBalance: req.OpeningBalance,
	})
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, http.StatusCreated, vendor)
}

// GetVendor handles vendor lookup including its ledger
// 仕入先（元帳含む）取得リクエストを処理
func (h *Handlers) GetVendor(w http.ResponseWriter, r *http.Request) {
	state, err := h.ledger.Snapshot(r.Context())
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	vendor, err := state.FindVendor(mux.Vars(r)["vendorId"])
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, http.StatusOK, vendor)
}

// VendorPurchases 仕入先別の仕入一覧リクエストを処理
func (h *Handlers) VendorPurchases(w http.ResponseWriter, r *http.Request) {
	purchases, err := h.ledger.PurchasesByVendor(r.Context(), mux.Vars(r)["vendorId"])
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, http.StatusOK, nonNil(purchases))
}

// PayVendor handles vendor payments
// 仕入先支払リクエストを処理
func (h *Handlers) PayVendor(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if !h.decode(w, r, &req) {
		return
	}

	vendor, err := h.ledger.PayVendor(r.Context(), mux.Vars(r)["vendorId"], req.Amount, req.Method, req.Description)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, http.StatusOK, vendor)
}

// BillVendor handles vendor bills
// 仕入先請求リクエストを処理
func (h *Handlers) BillVendor(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if !h.decode(w, r, &req) {
		return
	}

	vendor, err := h.ledger.BillVendor(r.Context(), mux.Vars(r)["vendorId"], req.Amount, req.Description)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, http.StatusOK, vendor)
}

// CreateCustomer handles customer registration
// 顧客登録リクエストを処理
func (h *Handlers) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req CreateCustomerRequest
	if !h.decode(w, r, &req) {
		return
	}

	customer, err := h.ledger.CreateCustomer(r.Context(), inventory.Customer{
		ID:             req.ID,
		Name:           req.Name,
		CompanyName:    req.CompanyName,
		Phone:          req.Phone,
		Email:          req.Email,
		Address:        req.Address,
		City:           req.City,
		PaymentTerms:   req.PaymentTerms,
		OpeningBalance: req.OpeningBalance,
		CreditLimit:    req.CreditLimit,
	})
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, http.StatusCreated, customer)
}

// CustomerSales 顧客別の販売一覧リクエストを処理
func (h *Handlers) CustomerSales(w http.ResponseWriter, r *http.Request) {
	sales, err := h.ledger.SalesByCustomer(r.Context(), mux.Vars(r)["customerId"])
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, http.StatusOK, nonNil(sales))
}

// ReceiveCustomerPayment handles money received from a customer
// 顧客入金リクエストを処理
func (h *Handlers) ReceiveCustomerPayment(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if !h.decode(w, r, &req) {
		return
	}

	customer, err := h.ledger.ReceiveCustomerPayment(r.Context(), mux.Vars(r)["customerId"], req.Amount)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, http.StatusOK, customer)
}

// ReceivePurchase handles goods receipts
// 仕入受入リクエストを処理
func (h *Handlers) ReceivePurchase(w http.ResponseWriter, r *http.Request) {
	var req PurchaseRequest
	if !h.decode(w, r, &req) {
		return
	}

	record, err := h.ledger.ReceivePurchase(r.Context(), inventory.PurchaseRequest{
		VendorID:      req.VendorID,
		ProductID:     req.ProductID,
		Quantity:      req.Quantity,
		UnitCost:      req.UnitCost,
		PaymentStatus: inventory.PaymentStatus(req.PaymentStatus),
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, http.StatusCreated, record)
}

// Checkout handles sales
// 販売リクエストを処理
func (h *Handlers) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if !h.decode(w, r, &req) {
		return
	}

	lines := make([]inventory.CheckoutLine, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, inventory.CheckoutLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	sale, err := h.ledger.Checkout(r.Context(), inventory.CheckoutRequest{
		CustomerID:    req.CustomerID,
		Lines:         lines,
		Discount:      req.Discount,
		PaymentMethod: inventory.PaymentMethod(req.PaymentMethod),
		AmountPaid:    req.AmountPaid,
	})
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, http.StatusCreated, sale)
}

// PreviewManufacturing handles batch dry-runs
// 製造試算リクエストを処理
func (h *Handlers) PreviewManufacturing(w http.ResponseWriter, r *http.Request) {
	var req ManufacturingRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.ledger.PreviewManufacturing(r.Context(), req.plan())
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, http.StatusOK, result)
}

// CommitManufacturing handles batch commits
// 製造確定リクエストを処理
func (h *Handlers) CommitManufacturing(w http.ResponseWriter, r *http.Request) {
	var req ManufacturingRequest
	if !h.decode(w, r, &req) {
		return
	}

	entry, err := h.ledger.CommitManufacturing(r.Context(), req.plan())
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, http.StatusCreated, entry)
}

// RecordClaim handles stock write-offs
// 在庫償却リクエストを処理
func (h *Handlers) RecordClaim(w http.ResponseWriter, r *http.Request) {
	var req ClaimRequest
	if !h.decode(w, r, &req) {
		return
	}

	claim, err := h.ledger.RecordClaim(r.Context(), inventory.ClaimRequest{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		Reason:    req.Reason,
		Type:      inventory.ClaimType(req.Type),
	})
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, http.StatusCreated, claim)
}

// ListClaims handles claim listing, optionally filtered by ?status=
// クレーム一覧リクエストを処理
func (h *Handlers) ListClaims(w http.ResponseWriter, r *http.Request) {
	status := inventory.ClaimStatus(r.URL.Query().Get("status"))
	claims, err := h.ledger.ListClaims(r.Context(), status)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, http.StatusOK, nonNil(claims))
}

// GetClaim クレーム取得リクエストを処理
func (h *Handlers) GetClaim(w http.ResponseWriter, r *http.Request) {
	claim, err := h.ledger.GetClaim(r.Context(), mux.Vars(r)["claimId"])
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, http.StatusOK, claim)
}

// ResolveClaim handles claim resolution
// クレーム解決リクエストを処理
func (h *Handlers) ResolveClaim(w http.ResponseWriter, r *http.Request) {
	claim, err := h.ledger.ResolveClaim(r.Context(), mux.Vars(r)["claimId"])
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, http.StatusOK, claim)
}

// Valuation handles valuation report requests
// 在庫評価リクエストを処理
func (h *Handlers) Valuation(w http.ResponseWriter, r *http.Request) {
	method := inventory.ValuationMethod(r.URL.Query().Get("method"))
	report, err := h.ledger.Valuation(r.Context(), method)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	h.sendSuccess(w, http.StatusOK, report)
}

// ExportCSV streams one table as CSV
// 1テーブルをCSVで出力
func (h *Handlers) ExportCSV(w http.ResponseWriter, r *http.Request) {
	table := mux.Vars(r)["table"]
	state, err := h.ledger.Snapshot(r.Context())
	if err != nil {
		h.sendDomainError(w, err)
		return
	}

	t, err := export.BuildTable(state, table)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", table))
	if err := export.WriteTableCSV(w, t); err != nil {
		h.logger.Error("CSV出力に失敗しました", zap.String("table", table), zap.Error(err))
	}
}

// ExportWorkbook streams every table as one XLSX workbook
// 全テーブルをXLSXで出力
func (h *Handlers) ExportWorkbook(w http.ResponseWriter, r *http.Request) {
	state, err := h.ledger.Snapshot(r.Context())
	if err != nil {
		h.sendDomainError(w, err)
		return
	}
	report, err := h.ledger.Valuation(r.Context(), inventory.ValuationMethodAverage)
	if err != nil {
		h.sendDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=costledger.xlsx")
	if err := export.WriteWorkbook(w, state, report); err != nil {
		h.logger.Error("XLSX出力に失敗しました", zap.Error(err))
	}
}

func (req ManufacturingRequest) plan() inventory.ManufacturingPlan {
	return inventory.ManufacturingPlan{
		RawProductID:        req.RawProductID,
		RawQuantity:         req.RawQuantity,
		ProcessType:         inventory.ProcessType(req.ProcessType),
		UnitProcessCost:     req.UnitProcessCost,
		ClaimQuantity:       req.ClaimQuantity,
		FinishedProductID:   req.FinishedProductID,
		FinishedProductName: req.FinishedProductName,
		Notes:               req.Notes,
	}
}

// ヘルパーメソッド

// decode reads and validates a JSON body; false means a response was already sent
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.sendError(w, http.StatusBadRequest, "無効なリクエスト形式です")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
			h.sendErrorWithDetails(w, http.StatusBadRequest, "リクエストのバリデーションに失敗しました", fields)
			return false
		}
		h.sendError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// sendDomainError maps ledger errors to HTTP status codes
// 台帳エラーをHTTPステータスに変換して送信
func (h *Handlers) sendDomainError(w http.ResponseWriter, err error) {
	var (
		stockErr    *inventory.InsufficientStockError
		ruleErr     *inventory.BusinessRuleError
		validateErr *inventory.ValidationError
	)

	switch {
	case errors.As(err, &stockErr):
		h.sendErrorWithDetails(w, http.StatusConflict, err.Error(), map[string]string{
			"product_id": stockErr.ProductID,
			"requested":  stockErr.Requested.String(),
			"available":  stockErr.Available.String(),
			"shortfall":  stockErr.Shortfall().String(),
		})
	case errors.As(err, &validateErr):
		h.sendErrorWithDetails(w, http.StatusBadRequest, err.Error(), validateErr)
	case errors.Is(err, inventory.ErrNotFound):
		h.sendError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, inventory.ErrInvalidInput):
		h.sendError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, inventory.ErrDuplicateProduct),
		errors.Is(err, inventory.ErrClaimAlreadyResolved),
		errors.Is(err, inventory.ErrVersionMismatch):
		h.sendError(w, http.StatusConflict, err.Error())
	case errors.As(err, &ruleErr):
		h.sendErrorWithDetails(w, http.StatusUnprocessableEntity, err.Error(), ruleErr)
	default:
		h.logger.Error("リクエスト処理に失敗しました", zap.Error(err))
		h.sendError(w, http.StatusInternalServerError, "内部エラーが発生しました")
	}
}

// sendSuccess sends a successful API response
// 成功APIレスポンスを送信
func (h *Handlers) sendSuccess(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := APIResponse{
		Success: true,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("レスポンス送信に失敗しました", zap.Error(err))
	}
}

// sendError sends an error API response
// エラーAPIレスポンスを送信
func (h *Handlers) sendError(w http.ResponseWriter, statusCode int, message string) {
	h.sendErrorWithDetails(w, statusCode, message, nil)
}

func (h *Handlers) sendErrorWithDetails(w http.ResponseWriter, statusCode int, message string, details interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := APIResponse{
		Success: false,
		Error:   message,
		Details: details,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("エラーレスポンス送信に失敗しました", zap.Error(err))
	}
}

// nonNil は空の一覧を null ではなく [] で返すためのヘルパー
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
