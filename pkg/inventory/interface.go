package inventory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// CostLedger defines the operations exposed to the UI event collaborator
// UIイベント連携向けの操作インターフェースを定義
type CostLedger interface {
	// 商品・取引先 - Catalog and parties
	CreateProduct(ctx context.Context, product Product) (*Product, error)
	ArchiveProduct(ctx context.Context, productID string) (*Product, error)
	CreateVendor(ctx context.Context, vendor Vendor) (*Vendor, error)
	CreateCustomer(ctx context.Context, customer Customer) (*Customer, error)

	// 在庫イベント - Inventory events
	ReceivePurchase(ctx context.Context, req PurchaseRequest) (*PurchaseRecord, error)
	Checkout(ctx context.Context, req CheckoutRequest) (*Sale, error)
	PreviewManufacturing(ctx context.Context, plan ManufacturingPlan) (*BatchResult, error)
	CommitManufacturing(ctx context.Context, plan ManufacturingPlan) (*ManufacturingEntry, error)
	RecordClaim(ctx context.Context, req ClaimRequest) (*ManufacturingClaim, error)
	ResolveClaim(ctx context.Context, claimID string) (*ManufacturingClaim, error)

	// 残高 - Balances
	PayVendor(ctx context.Context, vendorID string, amount decimal.Decimal, method, description string) (*Vendor, error)
	BillVendor(ctx context.Context, vendorID string, amount decimal.Decimal, description string) (*Vendor, error)
	ReceiveCustomerPayment(ctx context.Context, customerID string, amount decimal.Decimal) (*Customer, error)

	// 照会 - Inquiry
	Snapshot(ctx context.Context) (*State, error)
	Valuation(ctx context.Context, method ValuationMethod) (*ValuationReport, error)
	LowStock(ctx context.Context) ([]Product, error)
	GetHistory(ctx context.Context, productID string, limit int) ([]Movement, error)
	GetHistoryByDateRange(ctx context.Context, productID string, from, to time.Time) ([]Movement, error)
	MovementsByReference(ctx context.Context, referenceID string) ([]Movement, error)
	ListClaims(ctx context.Context, status ClaimStatus) ([]ManufacturingClaim, error)
	GetClaim(ctx context.Context, claimID string) (*ManufacturingClaim, error)
	PurchasesByVendor(ctx context.Context, vendorID string) ([]PurchaseRecord, error)
	SalesByCustomer(ctx context.Context, customerID string) ([]Sale, error)
}

// StateStore defines the state load/save collaborator.
// Save must reject a state whose Version isn't exactly one past the stored one.
// 状態の読込・保存を担うインターフェース（Versionによる楽観的ロック）
type StateStore interface {
	Load(ctx context.Context) (*State, error)
	Save(ctx context.Context, state *State) error
	Ping(ctx context.Context) error
	Close() error
}

// EventPublisher defines interface for publishing inventory events
// 在庫イベント発行のインターフェースを定義
type EventPublisher interface {
	PublishStockChanged(ctx context.Context, event StockChangedEvent) error
	PublishLowStockAlert(ctx context.Context, event LowStockAlertEvent) error
	Close() error
}

// Events for inventory operations
// 在庫操作のイベント定義

// StockChangedEvent represents a stock level change
// 在庫レベル変更イベントを表現
type StockChangedEvent struct {
	ProductID      string          `json:"product_id"`
	MovementID     string          `json:"movement_id"`
	ChangeType     MovementType    `json:"change_type"`
	Quantity       decimal.Decimal `json:"quantity"`
	NewStock       decimal.Decimal `json:"new_stock"`
	NewAverageCost decimal.Decimal `json:"new_average_cost"`
	ReferenceID    string          `json:"reference_id"`
	Timestamp      time.Time       `json:"timestamp"`
	UserID         string          `json:"user_id"`
}

// LowStockAlertEvent represents a low stock alert
// 低在庫アラートイベントを表現
type LowStockAlertEvent struct {
	ProductID  string          `json:"product_id"`
	Name       string          `json:"name"`
	CurrentQty decimal.Decimal `json:"current_qty"`
	Threshold  decimal.Decimal `json:"threshold"`
	Timestamp  time.Time       `json:"timestamp"`
}
