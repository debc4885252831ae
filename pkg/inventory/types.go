// Package inventory provides the weighted-average costing engine and its ledgers
package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product represents a SKU in the catalog
// カタログ上の商品（SKU）を表現
type Product struct {
	ID            string          `json:"id" db:"id"`                           // 商品ID
	Name          string          `json:"name" db:"name"`                       // 商品名
	SKU           string          `json:"sku" db:"sku"`                         // SKU
	Barcode       string          `json:"barcode" db:"barcode"`                 // バーコード
	Category      string          `json:"category" db:"category"`               // カテゴリ
	PurchasePrice decimal.Decimal `json:"purchase_price" db:"purchase_price"`   // 仕入単価（最終または初期）
	AverageCost   decimal.Decimal `json:"average_cost" db:"average_cost"`       // 加重平均原価
	SalePrice     decimal.Decimal `json:"sale_price" db:"sale_price"`           // 販売単価
	Stock         decimal.Decimal `json:"stock" db:"stock"`                     // 在庫数量（小数可）
	LowStockAlert decimal.Decimal `json:"low_stock_alert" db:"low_stock_alert"` // 低在庫閾値
	Archived      bool            `json:"archived" db:"archived"`               // 論理削除
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`           // 作成日時
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`           // 更新日時
}

// CostBasis returns the unit cost used for valuation and blending
// 評価・加重平均に使う単価を返す（平均原価 → 仕入単価 → 0）
func (p Product) CostBasis() decimal.Decimal {
	if !p.AverageCost.IsZero() {
		return p.AverageCost
	}
	return p.PurchasePrice
}

// IsLowStock reports whether stock is at or below the alert threshold
// 在庫が閾値以下かを判定
func (p Product) IsLowStock() bool {
	return p.Stock.LessThanOrEqual(p.LowStockAlert)
}

// PaymentStatus defines whether a purchase was settled on receipt
// 仕入の支払状況を定義
type PaymentStatus string

const (
	PaymentStatusPaid    PaymentStatus = "Paid"    // 支払済み
	PaymentStatusPending PaymentStatus = "Pending" // 未払い
)

// PurchaseRecord is an immutable goods receipt
// 不変の仕入記録
type PurchaseRecord struct {
	ID            string          `json:"id"`             // 仕入ID
	VendorID      string          `json:"vendor_id"`      // 仕入先ID
	ProductID     string          `json:"product_id"`     // 商品ID
	Quantity      decimal.Decimal `json:"quantity"`       // 数量
	UnitCost      decimal.Decimal `json:"unit_cost"`      // 単価
	TotalAmount   decimal.Decimal `json:"total_amount"`   // 合計金額
	PaymentStatus PaymentStatus   `json:"payment_status"` // 支払状況
	CreatedAt     time.Time       `json:"created_at"`     // 作成日時
}

// PaymentMethod defines how a sale was settled
// 販売の決済方法を定義
type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "Cash"   // 現金
	PaymentMethodCard   PaymentMethod = "Card"   // カード
	PaymentMethodBank   PaymentMethod = "Bank"   // 銀行振込
	PaymentMethodOnline PaymentMethod = "Online" // オンライン
	PaymentMethodCredit PaymentMethod = "Credit" // 掛売り
)

// SaleStatus defines the status of a sale
type SaleStatus string

const (
	SaleStatusCompleted SaleStatus = "Completed"
	SaleStatusRefunded  SaleStatus = "Refunded"
)

// SaleLine is one cart line
// カートの1行
type SaleLine struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// Sale is an immutable checkout record
// 不変の販売記録
type Sale struct {
	ID            string          `json:"id"`             // 請求書番号
	CustomerID    string          `json:"customer_id"`    // 顧客ID
	Items         []SaleLine      `json:"items"`          // 明細
	Subtotal      decimal.Decimal `json:"subtotal"`       // 小計
	Tax           decimal.Decimal `json:"tax"`            // 税額
	Discount      decimal.Decimal `json:"discount"`       // 値引
	Total         decimal.Decimal `json:"total"`          // 合計
	AmountPaid    decimal.Decimal `json:"amount_paid"`    // 入金額
	PaymentMethod PaymentMethod   `json:"payment_method"` // 決済方法
	Status        SaleStatus      `json:"status"`         // ステータス
	CreatedAt     time.Time       `json:"created_at"`     // 作成日時
}

// ProcessType defines manufacturing process kinds
// 製造工程の種類を定義
type ProcessType string

const (
	ProcessTypeDyeing      ProcessType = "Dyeing"      // 染色
	ProcessTypeRags        ProcessType = "Rags"        // ウエス加工
	ProcessTypeCalendering ProcessType = "Calendering" // カレンダー加工
	ProcessTypeOther       ProcessType = "Other"       // その他
)

// ManufacturingPlan is the caller's request for one production cycle
// 製造サイクル1回分の依頼内容
type ManufacturingPlan struct {
	RawProductID        string          `json:"raw_product_id"`        // 原材料商品ID
	RawQuantity         decimal.Decimal `json:"raw_quantity"`          // 投入数量
	ProcessType         ProcessType     `json:"process_type"`          // 工程種別
	UnitProcessCost     decimal.Decimal `json:"unit_process_cost"`     // 投入1単位あたり加工費
	ClaimQuantity       decimal.Decimal `json:"claim_quantity"`        // ロス数量
	FinishedProductID   string          `json:"finished_product_id"`   // 完成品ID（既存ならこのIDを優先）
	FinishedProductName string          `json:"finished_product_name"` // 完成品名
	Notes               string          `json:"notes"`                 // 備考
}

// EntryStatus is the status of a manufacturing entry
type EntryStatus string

const EntryStatusCompleted EntryStatus = "Completed"

// ManufacturingEntry is an immutable record of a committed production cycle
// 確定済み製造サイクルの不変記録
type ManufacturingEntry struct {
	ID                  string          `json:"id"`
	RawProductID        string          `json:"raw_product_id"`
	RawQuantity         decimal.Decimal `json:"raw_quantity"`
	RawUnitCost         decimal.Decimal `json:"raw_unit_cost"`
	ProcessType         ProcessType     `json:"process_type"`
	UnitProcessCost     decimal.Decimal `json:"unit_process_cost"`
	ClaimQuantity       decimal.Decimal `json:"claim_quantity"`
	FinishedProductID   string          `json:"finished_product_id"`
	FinishedProductName string          `json:"finished_product_name"`
	FinishedQuantity    decimal.Decimal `json:"finished_quantity"`
	FinishedUnitCost    decimal.Decimal `json:"finished_unit_cost"`
	Notes               string          `json:"notes"`
	Status              EntryStatus     `json:"status"`
	CreatedAt           time.Time       `json:"created_at"`
}

// ClaimType defines the kind of stock write-off
// 在庫償却の種類を定義
type ClaimType string

const (
	ClaimTypeDamage   ClaimType = "Damage"   // 破損
	ClaimTypeDefect   ClaimType = "Defect"   // 不良
	ClaimTypeShortage ClaimType = "Shortage" // 棚卸不足
)

// ClaimStatus is monotonic: Pending -> Resolved
// ステータスは Pending → Resolved の一方向のみ
type ClaimStatus string

const (
	ClaimStatusPending  ClaimStatus = "Pending"
	ClaimStatusResolved ClaimStatus = "Resolved"
)

// ManufacturingClaim records a stock write-off outside a production cycle
// 製造サイクル外の在庫償却記録
type ManufacturingClaim struct {
	ID         string          `json:"id"`
	ProductID  string          `json:"product_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	Reason     string          `json:"reason"`
	Type       ClaimType       `json:"type"`
	Status     ClaimStatus     `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
	ResolvedAt *time.Time      `json:"resolved_at,omitempty"`
}

// MovementType defines the kind of stock movement
// 在庫移動のタイプを定義
type MovementType string

const (
	MovementTypePurchase         MovementType = "purchase"          // 仕入
	MovementTypeSale             MovementType = "sale"              // 販売
	MovementTypeManufacturingIn  MovementType = "manufacturing_in"  // 製造投入（原材料の払出）
	MovementTypeManufacturingOut MovementType = "manufacturing_out" // 製造完成（完成品の受入）
	MovementTypeClaim            MovementType = "claim"             // 償却
)

// Movement is one append-only stock journal row
// 追記専用の在庫移動記録
type Movement struct {
	ID                  string          `json:"id"`
	ProductID           string          `json:"product_id"`
	Type                MovementType    `json:"type"`
	Quantity            decimal.Decimal `json:"quantity"`
	Price               decimal.Decimal `json:"price"`
	VendorID            string          `json:"vendor_id,omitempty"`
	RemainingStockAfter decimal.Decimal `json:"remaining_stock_after"`
	NewAverageCost      decimal.Decimal `json:"new_average_cost"`
	ReferenceID         string          `json:"reference_id"`
	CreatedAt           time.Time       `json:"created_at"`
}

// ID prefixes for generated records
// 生成レコードのIDプレフィックス
const (
	PrefixPurchase      = "PUR"
	PrefixSale          = "INV"
	PrefixManufacturing = "MFG"
	PrefixClaim         = "CLM"
	PrefixPayment       = "PAY"
	PrefixBill          = "BIL"
	PrefixOpening       = "OB"
	PrefixMovement      = "MOV"
	PrefixProduct       = "PRD"
	PrefixVendor        = "VEN"
	PrefixCustomer      = "CUS"
)

// NewID generates a prefixed record ID
// プレフィックス付きIDを生成
func NewID(prefix string) string {
	return prefix + "-" + uuid.New().String()
}
