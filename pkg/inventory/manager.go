package inventory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Manager implements the CostLedger interface on top of a StateStore.
// Mutations are serialized: load, apply on a copy, save, then publish.
// CostLedgerインターフェースの実装（読込→適用→保存→イベント発行を直列化）
type Manager struct {
	mu        sync.Mutex
	store     StateStore     // 状態ストア
	publisher EventPublisher // イベント発行者
	logger    *zap.Logger    // ログ
	config    *Config        // 設定
	metrics   *Metrics       // メトリクス
	now       func() time.Time
	newID     IDGenerator
}

// すべてのインターフェースを実装することを明示
var _ CostLedger = (*Manager)(nil)

// Config holds configuration for the cost ledger
// 原価台帳の設定を保持
type Config struct {
	TaxRate                  float64 `yaml:"tax_rate" envconfig:"TAX_RATE"`                                         // 消費税率（一律）
	ManufacturingMarkup      float64 `yaml:"manufacturing_markup" envconfig:"MANUFACTURING_MARKUP"`                 // 新規完成品の販売価格倍率
	DefaultLowStockAlert     float64 `yaml:"default_low_stock_alert" envconfig:"DEFAULT_LOW_STOCK_ALERT"`           // 新規完成品の低在庫閾値
	ManufacturedCategory     string  `yaml:"manufactured_category" envconfig:"MANUFACTURED_CATEGORY"`               // 新規完成品のカテゴリ
	MatchFinishedGoodsByName bool    `yaml:"match_finished_goods_by_name" envconfig:"MATCH_FINISHED_GOODS_BY_NAME"` // 同名商品を同一SKUとして扱う
	LowStockEvents           bool    `yaml:"low_stock_events" envconfig:"LOW_STOCK_EVENTS"`                         // 低在庫イベントを発行
}

// DefaultConfig returns the stock configuration
// デフォルト設定を返す
func DefaultConfig() *Config {
	return &Config{
		TaxRate:                  0.10,
		ManufacturingMarkup:      1.5,
		DefaultLowStockAlert:     5,
		ManufacturedCategory:     "Manufacturing Output",
		MatchFinishedGoodsByName: true,
		LowStockEvents:           true,
	}
}

// Option customizes a Manager
type Option func(*Manager)

// WithMetrics attaches prometheus collectors
func WithMetrics(metrics *Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithIDGenerator overrides record ID generation
func WithIDGenerator(newID IDGenerator) Option {
	return func(m *Manager) { m.newID = newID }
}

// NewManager creates a new cost ledger manager
// 新しい原価台帳マネージャーを作成
func NewManager(store StateStore, publisher EventPublisher, logger *zap.Logger, config *Config, opts ...Option) *Manager {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Manager{
		store:     store,
		publisher: publisher,
		logger:    logger,
		config:    config,
		now:       time.Now,
		newID:     NewID,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreateProduct registers a catalog entry
// 商品を登録
func (m *Manager) CreateProduct(ctx context.Context, product Product) (*Product, error) {
	var created Product
	_, err := m.mutate(ctx, "create_product", func(s *State) (*State, error) {
		next, p, err := s.AddProduct(product, m.newID, m.now())
		created = p
		return next, err
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("商品登録完了",
		zap.String("product_id", created.ID),
		zap.String("sku", created.SKU),
		zap.String("name", created.Name),
	)
	return &created, nil
}

// ArchiveProduct soft-removes a product
// 商品を論理削除
func (m *Manager) ArchiveProduct(ctx context.Context, productID string) (*Product, error) {
	var archived Product
	_, err := m.mutate(ctx, "archive_product", func(s *State) (*State, error) {
		next, p, err := s.ArchiveProduct(productID, m.now())
		archived = p
		return next, err
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("商品アーカイブ完了", zap.String("product_id", productID))
	return &archived, nil
}

// CreateVendor registers a vendor
// 仕入先を登録
func (m *Manager) CreateVendor(ctx context.Context, vendor Vendor) (*Vendor, error) {
	var created Vendor
	_, err := m.mutate(ctx, "create_vendor", func(s *State) (*State, error) {
		next, v, err := s.AddVendor(vendor, m.newID, m.now())
		created = v
		return next, err
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("仕入先登録完了",
		zap.String("vendor_id", created.ID),
		zap.String("opening_balance", created.OpeningBalance.String()),
	)
	return &created, nil
}

// CreateCustomer registers a customer
// 顧客を登録
func (m *Manager) CreateCustomer(ctx context.Context, customer Customer) (*Customer, error) {
	var created Customer
	_, err := m.mutate(ctx, "create_customer", func(s *State) (*State, error) {
		next, c, err := s.AddCustomer(customer, m.newID, m.now())
		created = c
		return next, err
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("顧客登録完了", zap.String("customer_id", created.ID))
	return &created, nil
}

// ReceivePurchase records a goods receipt
// 仕入受入を記録
func (m *Manager) ReceivePurchase(ctx context.Context, req PurchaseRequest) (*PurchaseRecord, error) {
	var record PurchaseRecord
	next, err := m.mutate(ctx, "receive_purchase", func(s *State) (*State, error) {
		next, r, err := s.ReceivePurchase(req, m.newID, m.now())
		record = r
		return next, err
	})
	if err != nil {
		return nil, err
	}

	p, _ := next.FindProduct(record.ProductID)
	m.logger.Info("仕入受入完了",
		zap.String("purchase_id", record.ID),
		zap.String("product_id", record.ProductID),
		zap.String("vendor_id", record.VendorID),
		zap.String("quantity", record.Quantity.String()),
		zap.String("unit_cost", record.UnitCost.String()),
		zap.String("new_average_cost", p.AverageCost.String()),
	)
	return &record, nil
}

// Checkout records a sale
// 販売を記録
func (m *Manager) Checkout(ctx context.Context, req CheckoutRequest) (*Sale, error) {
	taxRate := decimal.NewFromFloat(m.config.TaxRate)

	var sale Sale
	_, err := m.mutate(ctx, "checkout", func(s *State) (*State, error) {
		next, sl, err := s.Checkout(req, taxRate, m.newID, m.now())
		sale = sl
		return next, err
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("販売完了",
		zap.String("sale_id", sale.ID),
		zap.String("customer_id", sale.CustomerID),
		zap.Int("lines", len(sale.Items)),
		zap.String("total", sale.Total.String()),
		zap.String("payment_method", string(sale.PaymentMethod)),
	)
	return &sale, nil
}

// PreviewManufacturing projects a batch without changing anything
// 製造原価を試算（状態は変更しない）
func (m *Manager) PreviewManufacturing(ctx context.Context, plan ManufacturingPlan) (*BatchResult, error) {
	state, err := m.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	result, err := PreviewManufacturing(state.Products, plan)
	m.metrics.observe("preview_manufacturing", err)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// CommitManufacturing applies one production cycle
// 製造サイクルを確定
func (m *Manager) CommitManufacturing(ctx context.Context, plan ManufacturingPlan) (*ManufacturingEntry, error) {
	var entry ManufacturingEntry
	_, err := m.mutate(ctx, "commit_manufacturing", func(s *State) (*State, error) {
		next, e, err := s.CommitManufacturing(plan, m.manufacturingOptions(), m.newID)
		entry = e
		return next, err
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("製造確定完了",
		zap.String("entry_id", entry.ID),
		zap.String("raw_product_id", entry.RawProductID),
		zap.String("finished_product_id", entry.FinishedProductID),
		zap.String("finished_quantity", entry.FinishedQuantity.String()),
		zap.String("finished_unit_cost", entry.FinishedUnitCost.String()),
	)
	return &entry, nil
}

// RecordClaim writes stock off
// 在庫償却を記録
func (m *Manager) RecordClaim(ctx context.Context, req ClaimRequest) (*ManufacturingClaim, error) {
	var claim ManufacturingClaim
	_, err := m.mutate(ctx, "record_claim", func(s *State) (*State, error) {
		next, c, err := s.RecordClaim(req, m.newID, m.now())
		claim = c
		return next, err
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("クレーム登録完了",
		zap.String("claim_id", claim.ID),
		zap.String("product_id", claim.ProductID),
		zap.String("quantity", claim.Quantity.String()),
		zap.String("type", string(claim.Type)),
	)
	return &claim, nil
}

// ResolveClaim marks a claim Resolved
// クレームを解決済みにする
func (m *Manager) ResolveClaim(ctx context.Context, claimID string) (*ManufacturingClaim, error) {
	var claim ManufacturingClaim
	_, err := m.mutate(ctx, "resolve_claim", func(s *State) (*State, error) {
		next, c, err := s.ResolveClaim(claimID, m.now())
		claim = c
		return next, err
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("クレーム解決完了", zap.String("claim_id", claimID))
	return &claim, nil
}

// PayVendor journals a vendor payment
// 仕入先への支払を記帳
func (m *Manager) PayVendor(ctx context.Context, vendorID string, amount decimal.Decimal, method, description string) (*Vendor, error) {
	var vendor Vendor
	_, err := m.mutate(ctx, "pay_vendor", func(s *State) (*State, error) {
		next, v, err := s.PayVendor(vendorID, LedgerPosting{
			ID:          m.newID(PrefixPayment),
			Amount:      amount,
			Method:      method,
			Description: description,
			At:          m.now(),
		})
		vendor = v
		return next, err
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("仕入先支払完了",
		zap.String("vendor_id", vendorID),
		zap.String("amount", amount.String()),
		zap.String("remaining_payable", vendor.RemainingPayable.String()),
	)
	return &vendor, nil
}

// BillVendor journals a vendor bill
// 仕入先からの請求を記帳
func (m *Manager) BillVendor(ctx context.Context, vendorID string, amount decimal.Decimal, description string) (*Vendor, error) {
	var vendor Vendor
	_, err := m.mutate(ctx, "bill_vendor", func(s *State) (*State, error) {
		next, v, err := s.BillVendor(vendorID, LedgerPosting{
			ID:          m.newID(PrefixBill),
			Amount:      amount,
			Description: description,
			At:          m.now(),
		})
		vendor = v
		return next, err
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("仕入先請求記帳完了",
		zap.String("vendor_id", vendorID),
		zap.String("amount", amount.String()),
		zap.String("remaining_payable", vendor.RemainingPayable.String()),
	)
	return &vendor, nil
}

// ReceiveCustomerPayment books money received from a customer
// 顧客からの入金を記録
func (m *Manager) ReceiveCustomerPayment(ctx context.Context, customerID string, amount decimal.Decimal) (*Customer, error) {
	var customer Customer
	_, err := m.mutate(ctx, "receive_customer_payment", func(s *State) (*State, error) {
		next, c, err := s.ReceiveCustomerPayment(customerID, amount)
		customer = c
		return next, err
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("顧客入金完了",
		zap.String("customer_id", customerID),
		zap.String("amount", amount.String()),
		zap.String("remaining_due", customer.RemainingDue.String()),
	)
	return &customer, nil
}

// Snapshot returns a read-only copy of the current state
// 現在の状態のコピーを取得
func (m *Manager) Snapshot(ctx context.Context) (*State, error) {
	state, err := m.load(ctx)
	if err != nil {
		return nil, err
	}
	return state.Clone(), nil
}

// Valuation values the catalog
// 在庫評価レポートを作成
func (m *Manager) Valuation(ctx context.Context, method ValuationMethod) (*ValuationReport, error) {
	state, err := m.load(ctx)
	if err != nil {
		return nil, err
	}

	report, err := BuildValuationReport(state.Products, method, m.now())
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// LowStock lists active products at or below their alert level
// 低在庫の商品を取得
func (m *Manager) LowStock(ctx context.Context) ([]Product, error) {
	state, err := m.load(ctx)
	if err != nil {
		return nil, err
	}
	return LowStockProducts(state.Products), nil
}

// GetHistory returns the newest movements of a product
// 商品の在庫移動履歴を取得
func (m *Manager) GetHistory(ctx context.Context, productID string, limit int) ([]Movement, error) {
	state, err := m.load(ctx)
	if err != nil {
		return nil, err
	}
	if productID != "" {
		if _, err := state.FindProduct(productID); err != nil {
			return nil, err
		}
	}
	return state.MovementHistory(productID, limit), nil
}

// GetHistoryByDateRange returns a product's movements within [from, to]
// 指定期間の在庫移動履歴を取得
func (m *Manager) GetHistoryByDateRange(ctx context.Context, productID string, from, to time.Time) ([]Movement, error) {
	state, err := m.load(ctx)
	if err != nil {
		return nil, err
	}
	if productID != "" {
		if _, err := state.FindProduct(productID); err != nil {
			return nil, err
		}
	}
	return state.MovementsByDateRange(productID, from, to)
}

// MovementsByReference returns the movements written by one record
// 参照レコード（仕入・販売・製造・クレーム）の在庫移動を取得
func (m *Manager) MovementsByReference(ctx context.Context, referenceID string) ([]Movement, error) {
	if referenceID == "" {
		return nil, NewValidationError("reference", "参照IDは必須です", referenceID)
	}
	state, err := m.load(ctx)
	if err != nil {
		return nil, err
	}
	return state.MovementsByReference(referenceID), nil
}

// ListClaims returns claims filtered by status. An empty status lists all.
// クレーム一覧を取得
func (m *Manager) ListClaims(ctx context.Context, status ClaimStatus) ([]ManufacturingClaim, error) {
	switch status {
	case "", ClaimStatusPending, ClaimStatusResolved:
	default:
		return nil, NewValidationError("status", "無効なクレームステータスです", string(status))
	}
	state, err := m.load(ctx)
	if err != nil {
		return nil, err
	}
	return state.ClaimsByStatus(status), nil
}

// GetClaim クレームを取得
func (m *Manager) GetClaim(ctx context.Context, claimID string) (*ManufacturingClaim, error) {
	state, err := m.load(ctx)
	if err != nil {
		return nil, err
	}
	claim, err := state.FindClaim(claimID)
	if err != nil {
		return nil, err
	}
	return &claim, nil
}

// PurchasesByVendor lists the receipts posted against one vendor
// 仕入先別の仕入記録を取得
func (m *Manager) PurchasesByVendor(ctx context.Context, vendorID string) ([]PurchaseRecord, error) {
	state, err := m.load(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := state.FindVendor(vendorID); err != nil {
		return nil, err
	}
	return state.PurchasesByVendor(vendorID), nil
}

// SalesByCustomer 顧客別の販売記録を取得
func (m *Manager) SalesByCustomer(ctx context.Context, customerID string) ([]Sale, error) {
	state, err := m.load(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := state.FindCustomer(customerID); err != nil {
		return nil, err
	}
	return state.SalesByCustomer(customerID), nil
}

// mutate runs one state transition under the writer lock
func (m *Manager) mutate(ctx context.Context, operation string, apply func(*State) (*State, error)) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, err := m.load(ctx)
	if err != nil {
		m.metrics.observe(operation, err)
		return nil, err
	}

	next, err := apply(current)
	if err != nil {
		m.metrics.observe(operation, err)
		m.logger.Warn("操作が拒否されました",
			zap.String("operation", operation),
			zap.String("user_id", UserFromContext(ctx)),
			zap.Error(err),
		)
		return nil, err
	}

	next.Version = current.Version + 1
	if err := m.store.Save(ctx, next); err != nil {
		m.metrics.observe(operation, err)
		if errors.Is(err, ErrVersionMismatch) {
			m.logger.Warn("状態の保存で競合が発生しました",
				zap.String("operation", operation),
				zap.Int64("version", next.Version),
			)
			return nil, NewConcurrencyError(operation, "state", fmt.Sprintf("バージョン %d の保存に失敗しました", next.Version))
		}
		return nil, NewStorageError("save_state", "状態の保存に失敗しました", err)
	}

	m.metrics.observe(operation, nil)
	m.metrics.refresh(next)
	m.publishMovements(ctx, next, next.Movements[len(current.Movements):])

	return next, nil
}

func (m *Manager) load(ctx context.Context) (*State, error) {
	state, err := m.store.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrStateNotFound) {
			return NewState(), nil
		}
		return nil, NewStorageError("load_state", "状態の読込に失敗しました", err)
	}
	return state, nil
}

// publishMovements emits one StockChangedEvent per new movement and a
// LowStockAlertEvent for products that dropped to their alert level.
// Publisher failures are logged, never returned.
// 在庫移動イベントと低在庫アラートを発行（失敗はログのみ）
func (m *Manager) publishMovements(ctx context.Context, state *State, movements []Movement) {
	if m.publisher == nil || len(movements) == 0 {
		return
	}

	userID := UserFromContext(ctx)
	alerted := make(map[string]bool)
	for _, mv := range movements {
		event := StockChangedEvent{
			ProductID:      mv.ProductID,
			MovementID:     mv.ID,
			ChangeType:     mv.Type,
			Quantity:       mv.Quantity,
			NewStock:       mv.RemainingStockAfter,
			NewAverageCost: mv.NewAverageCost,
			ReferenceID:    mv.ReferenceID,
			Timestamp:      mv.CreatedAt,
			UserID:         userID,
		}
		if err := m.publisher.PublishStockChanged(ctx, event); err != nil {
			m.logger.Error("イベント発行に失敗しました",
				zap.String("movement_id", mv.ID),
				zap.Error(err),
			)
		}

		if !m.config.LowStockEvents || alerted[mv.ProductID] || !decreasesStock(mv.Type) {
			continue
		}
		p, err := state.FindProduct(mv.ProductID)
		if err != nil || p.Archived || !p.IsLowStock() {
			continue
		}
		alerted[mv.ProductID] = true
		m.triggerLowStockAlert(ctx, p)
	}
}

// triggerLowStockAlert publishes a low stock alert
// 低在庫アラートを発行
func (m *Manager) triggerLowStockAlert(ctx context.Context, p Product) {
	m.logger.Warn("在庫が低下しています",
		zap.String("product_id", p.ID),
		zap.String("stock", p.Stock.String()),
		zap.String("threshold", p.LowStockAlert.String()),
	)

	event := LowStockAlertEvent{
		ProductID:  p.ID,
		Name:       p.Name,
		CurrentQty: p.Stock,
		Threshold:  p.LowStockAlert,
		Timestamp:  m.now(),
	}
	if err := m.publisher.PublishLowStockAlert(ctx, event); err != nil {
		m.logger.Error("低在庫アラートイベント発行に失敗しました", zap.Error(err))
	}
}

func (m *Manager) manufacturingOptions() ManufacturingOptions {
	return ManufacturingOptions{
		At:                   m.now(),
		Markup:               decimal.NewFromFloat(m.config.ManufacturingMarkup),
		DefaultLowStockAlert: decimal.NewFromFloat(m.config.DefaultLowStockAlert),
		Category:             m.config.ManufacturedCategory,
		MatchByName:          m.config.MatchFinishedGoodsByName,
	}
}

func decreasesStock(t MovementType) bool {
	switch t {
	case MovementTypeSale, MovementTypeManufacturingIn, MovementTypeClaim:
		return true
	default:
		return false
	}
}

type contextKey string

// UserIDKey is the context key carrying the acting user
const UserIDKey contextKey = "user_id"

// WithUser returns a context carrying the acting user ID
// 操作ユーザーIDをコンテキストに設定
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// UserFromContext extracts user ID from context
// コンテキストからユーザーIDを取得
func UserFromContext(ctx context.Context) string {
	if userID, ok := ctx.Value(UserIDKey).(string); ok && userID != "" {
		return userID
	}
	return "system"
}
