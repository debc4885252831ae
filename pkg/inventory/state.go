package inventory

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// State is the single application-state container.
// Every operation on it returns a new State; the receiver is never modified.
// アプリケーション状態の単一コンテナ（操作は常に新しいStateを返す）
type State struct {
	Version              int64                `json:"version"`
	Products             []Product            `json:"products"`
	Customers            []Customer           `json:"customers"`
	Vendors              []Vendor             `json:"vendors"`
	Purchases            []PurchaseRecord     `json:"purchases"`
	Sales                []Sale               `json:"sales"`
	ManufacturingEntries []ManufacturingEntry `json:"manufacturing_entries"`
	Claims               []ManufacturingClaim `json:"claims"`
	Movements            []Movement           `json:"movements"`
}

// IDGenerator produces a record ID for the given prefix
// プレフィックスからレコードIDを生成する関数
type IDGenerator func(prefix string) string

// NewState creates an empty state
// 空の状態を作成
func NewState() *State {
	return &State{
		Products:             []Product{},
		Customers:            []Customer{},
		Vendors:              []Vendor{},
		Purchases:            []PurchaseRecord{},
		Sales:                []Sale{},
		ManufacturingEntries: []ManufacturingEntry{},
		Claims:               []ManufacturingClaim{},
		Movements:            []Movement{},
	}
}

// Clone returns a deep copy of the state
// 状態のディープコピーを返す
func (s *State) Clone() *State {
	if s == nil {
		return NewState()
	}

	out := &State{
		Version:              s.Version,
		Products:             append([]Product{}, s.Products...),
		Customers:            append([]Customer{}, s.Customers...),
		Vendors:              make([]Vendor, len(s.Vendors)),
		Purchases:            append([]PurchaseRecord{}, s.Purchases...),
		Sales:                make([]Sale, len(s.Sales)),
		ManufacturingEntries: append([]ManufacturingEntry{}, s.ManufacturingEntries...),
		Claims:               make([]ManufacturingClaim, len(s.Claims)),
		Movements:            append([]Movement{}, s.Movements...),
	}

	for i, v := range s.Vendors {
		out.Vendors[i] = cloneVendor(v)
	}
	for i, sale := range s.Sales {
		sale.Items = append([]SaleLine{}, sale.Items...)
		out.Sales[i] = sale
	}
	for i, c := range s.Claims {
		if c.ResolvedAt != nil {
			at := *c.ResolvedAt
			c.ResolvedAt = &at
		}
		out.Claims[i] = c
	}

	return out
}

// FindProduct looks a product up by ID
// IDで商品を検索
func (s *State) FindProduct(id string) (Product, error) {
	if i := productIndex(s.Products, id); i >= 0 {
		return s.Products[i], nil
	}
	return Product{}, NewNotFoundError("product", id)
}

// FindVendor looks a vendor up by ID
// IDで仕入先を検索
func (s *State) FindVendor(id string) (Vendor, error) {
	if i := vendorIndex(s.Vendors, id); i >= 0 {
		return cloneVendor(s.Vendors[i]), nil
	}
	return Vendor{}, NewNotFoundError("vendor", id)
}

// FindCustomer looks a customer up by ID
// IDで顧客を検索
func (s *State) FindCustomer(id string) (Customer, error) {
	if i := customerIndex(s.Customers, id); i >= 0 {
		return s.Customers[i], nil
	}
	return Customer{}, NewNotFoundError("customer", id)
}

// FindClaim looks a claim up by ID
// IDでクレームを検索
func (s *State) FindClaim(id string) (ManufacturingClaim, error) {
	for _, c := range s.Claims {
		if c.ID == id {
			return c, nil
		}
	}
	return ManufacturingClaim{}, NewNotFoundError("claim", id)
}

// AddProduct registers a new catalog entry.
// ID, SKU and barcode must be unique; a missing ID is generated.
// 商品を登録する（ID・SKU・バーコードは一意）
func (s *State) AddProduct(p Product, newID IDGenerator, at time.Time) (*State, Product, error) {
	if p.ID == "" {
		p.ID = newID(PrefixProduct)
	}
	if err := ValidateProduct(&p); err != nil {
		return nil, Product{}, err
	}
	if err := checkProductUnique(s.Products, p); err != nil {
		return nil, Product{}, err
	}

	// 初期在庫の平均原価は仕入単価で開始
	if p.AverageCost.IsZero() && p.Stock.IsPositive() {
		p.AverageCost = p.PurchasePrice
	}
	p.Archived = false
	p.CreatedAt = at
	p.UpdatedAt = at

	next := s.Clone()
	next.Products = append(next.Products, p)
	return next, p, nil
}

// ArchiveProduct soft-removes a product; history keeps referencing it
// 商品を論理削除（履歴からの参照は維持）
func (s *State) ArchiveProduct(id string, at time.Time) (*State, Product, error) {
	i := productIndex(s.Products, id)
	if i < 0 {
		return nil, Product{}, NewNotFoundError("product", id)
	}

	next := s.Clone()
	next.Products[i].Archived = true
	next.Products[i].UpdatedAt = at
	return next, next.Products[i], nil
}

// AddVendor registers a vendor and posts its opening balance
// 仕入先を登録し期首残高を記帳
func (s *State) AddVendor(v Vendor, newID IDGenerator, at time.Time) (*State, Vendor, error) {
	if v.ID == "" {
		v.ID = newID(PrefixVendor)
	}
	if vendorIndex(s.Vendors, v.ID) >= 0 {
		return nil, Vendor{}, NewBusinessRuleError("duplicate_vendor", "仕入先は既に存在します", v.ID)
	}

	created, err := NewVendor(v, newID(PrefixOpening), at)
	if err != nil {
		return nil, Vendor{}, err
	}

	next := s.Clone()
	next.Vendors = append(next.Vendors, created)
	return next, created, nil
}

// AddCustomer registers a customer
// 顧客を登録
func (s *State) AddCustomer(c Customer, newID IDGenerator, at time.Time) (*State, Customer, error) {
	if c.ID == "" {
		c.ID = newID(PrefixCustomer)
	}
	if customerIndex(s.Customers, c.ID) >= 0 {
		return nil, Customer{}, NewBusinessRuleError("duplicate_customer", "顧客は既に存在します", c.ID)
	}

	created, err := NewCustomer(c, at)
	if err != nil {
		return nil, Customer{}, err
	}

	next := s.Clone()
	next.Customers = append(next.Customers, created)
	return next, created, nil
}

// PayVendor journals a payment to a vendor
// 仕入先への支払を記帳
func (s *State) PayVendor(vendorID string, p LedgerPosting) (*State, Vendor, error) {
	i := vendorIndex(s.Vendors, vendorID)
	if i < 0 {
		return nil, Vendor{}, NewNotFoundError("vendor", vendorID)
	}

	updated, err := RecordPayment(s.Vendors[i], p)
	if err != nil {
		return nil, Vendor{}, err
	}

	next := s.Clone()
	next.Vendors[i] = updated
	return next, updated, nil
}

// BillVendor journals a bill outside a purchase receipt
// 仕入受入以外の請求を記帳
func (s *State) BillVendor(vendorID string, p LedgerPosting) (*State, Vendor, error) {
	i := vendorIndex(s.Vendors, vendorID)
	if i < 0 {
		return nil, Vendor{}, NewNotFoundError("vendor", vendorID)
	}

	updated, err := RecordBill(s.Vendors[i], p)
	if err != nil {
		return nil, Vendor{}, err
	}

	next := s.Clone()
	next.Vendors[i] = updated
	return next, updated, nil
}

// ReceiveCustomerPayment books money received from a customer
// 顧客からの入金を反映
func (s *State) ReceiveCustomerPayment(customerID string, amount decimal.Decimal) (*State, Customer, error) {
	i := customerIndex(s.Customers, customerID)
	if i < 0 {
		return nil, Customer{}, NewNotFoundError("customer", customerID)
	}

	updated, err := RecordCustomerPayment(s.Customers[i], amount)
	if err != nil {
		return nil, Customer{}, err
	}

	next := s.Clone()
	next.Customers[i] = updated
	return next, updated, nil
}

func productIndex(products []Product, id string) int {
	for i := range products {
		if products[i].ID == id {
			return i
		}
	}
	return -1
}

// productIndexByName skips archived products
func productIndexByName(products []Product, name string) int {
	for i := range products {
		if products[i].Name == name && !products[i].Archived {
			return i
		}
	}
	return -1
}

func vendorIndex(vendors []Vendor, id string) int {
	for i := range vendors {
		if vendors[i].ID == id {
			return i
		}
	}
	return -1
}

func customerIndex(customers []Customer, id string) int {
	for i := range customers {
		if customers[i].ID == id {
			return i
		}
	}
	return -1
}

func checkProductUnique(products []Product, p Product) error {
	for _, existing := range products {
		switch {
		case existing.ID == p.ID:
			return fmt.Errorf("%w: id %s", ErrDuplicateProduct, p.ID)
		case p.SKU != "" && strings.EqualFold(existing.SKU, p.SKU):
			return fmt.Errorf("%w: sku %s", ErrDuplicateProduct, p.SKU)
		case p.Barcode != "" && existing.Barcode == p.Barcode:
			return fmt.Errorf("%w: barcode %s", ErrDuplicateProduct, p.Barcode)
		}
	}
	return nil
}

// uniqueCode appends a numeric suffix until code is unused
func uniqueCode(code string, taken func(string) bool) string {
	if !taken(code) {
		return code
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%d", code, n)
		if !taken(candidate) {
			return candidate
		}
	}
}
