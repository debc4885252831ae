package inventory

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ReceivePurchase applies a goods receipt to the catalog and re-blends the
// product's weighted-average cost. The input slice is never modified.
// 仕入受入を反映し、加重平均原価を再計算する（入力スライスは変更しない）
func ReceivePurchase(products []Product, record PurchaseRecord) ([]Product, error) {
	if err := ValidateQuantity("quantity", record.Quantity); err != nil {
		return nil, err
	}
	if err := ValidateCost("unit_cost", record.UnitCost); err != nil {
		return nil, err
	}

	i := productIndex(products, record.ProductID)
	if i < 0 {
		return nil, NewNotFoundError("product", record.ProductID)
	}
	if products[i].Archived {
		return nil, archivedError(products[i], "purchase")
	}

	out := append([]Product(nil), products...)
	p := &out[i]
	p.AverageCost = WeightedAverageCost(p.Stock, p.CostBasis(), record.Quantity, record.UnitCost)
	p.Stock = p.Stock.Add(record.Quantity)
	if !record.CreatedAt.IsZero() {
		p.UpdatedAt = record.CreatedAt
	}

	return out, nil
}

// RecordSale deducts every cart line or none of them.
// Lines for the same product are summed before the stock check.
// カート全行を出庫する（全行成功か全行失敗のどちらか）
func RecordSale(products []Product, lines []SaleLine) ([]Product, error) {
	if len(lines) == 0 {
		return nil, NewValidationError("items", "明細が空です", "0")
	}

	requested := make(map[string]decimal.Decimal, len(lines))
	order := make([]string, 0, len(lines))
	for _, line := range lines {
		if err := ValidateQuantity("quantity", line.Quantity); err != nil {
			return nil, err
		}
		if _, seen := requested[line.ProductID]; !seen {
			order = append(order, line.ProductID)
		}
		requested[line.ProductID] = requested[line.ProductID].Add(line.Quantity)
	}

	// 先に全行を検証してから適用する
	for _, id := range order {
		i := productIndex(products, id)
		if i < 0 {
			return nil, NewNotFoundError("product", id)
		}
		if products[i].Archived {
			return nil, archivedError(products[i], "sale")
		}
		if products[i].Stock.LessThan(requested[id]) {
			return nil, NewInsufficientStockError(id, requested[id], products[i].Stock)
		}
	}

	out := append([]Product(nil), products...)
	for _, id := range order {
		i := productIndex(out, id)
		out[i].Stock = out[i].Stock.Sub(requested[id])
	}

	return out, nil
}

// ApplyClaim writes stock off and stores the claim as Pending
// 在庫を償却し、クレームを未解決として記録する
func ApplyClaim(products []Product, claim ManufacturingClaim) ([]Product, ManufacturingClaim, error) {
	if err := ValidateQuantity("quantity", claim.Quantity); err != nil {
		return nil, ManufacturingClaim{}, err
	}
	if err := ValidateClaimType(claim.Type); err != nil {
		return nil, ManufacturingClaim{}, err
	}

	i := productIndex(products, claim.ProductID)
	if i < 0 {
		return nil, ManufacturingClaim{}, NewNotFoundError("product", claim.ProductID)
	}
	if products[i].Archived {
		return nil, ManufacturingClaim{}, archivedError(products[i], "claim")
	}
	if products[i].Stock.LessThan(claim.Quantity) {
		return nil, ManufacturingClaim{}, NewInsufficientStockError(claim.ProductID, claim.Quantity, products[i].Stock)
	}

	out := append([]Product(nil), products...)
	out[i].Stock = out[i].Stock.Sub(claim.Quantity)
	if !claim.CreatedAt.IsZero() {
		out[i].UpdatedAt = claim.CreatedAt
	}

	stored := claim
	stored.Status = ClaimStatusPending
	stored.ResolvedAt = nil
	if stored.Type == "" {
		stored.Type = ClaimTypeDamage
	}

	return out, stored, nil
}

// ResolveClaim moves a claim from Pending to Resolved. The stock was already
// written off when the claim was created, so resolution touches no quantities.
// クレームを解決済みにする（在庫の償却は作成時に完了している）
func ResolveClaim(claim ManufacturingClaim, at time.Time) (ManufacturingClaim, error) {
	if claim.Status == ClaimStatusResolved {
		return ManufacturingClaim{}, fmt.Errorf("%w: %s", ErrClaimAlreadyResolved, claim.ID)
	}

	out := claim
	out.Status = ClaimStatusResolved
	out.ResolvedAt = &at
	return out, nil
}

// PurchaseRequest is the caller input for a goods receipt
// 仕入受入の入力
type PurchaseRequest struct {
	VendorID      string
	ProductID     string
	Quantity      decimal.Decimal
	UnitCost      decimal.Decimal
	PaymentStatus PaymentStatus
	PaymentMethod string
}

// ReceivePurchase records a goods receipt: catalog blend, purchase log,
// movement journal and, when a vendor is named, the vendor bill (plus the
// payment when the receipt was paid on the spot).
// 仕入受入を記録する（原価更新・仕入記録・在庫移動・仕入先への請求/支払）
func (s *State) ReceivePurchase(req PurchaseRequest, newID IDGenerator, at time.Time) (*State, PurchaseRecord, error) {
	vi := -1
	if req.VendorID != "" {
		if vi = vendorIndex(s.Vendors, req.VendorID); vi < 0 {
			return nil, PurchaseRecord{}, NewNotFoundError("vendor", req.VendorID)
		}
	}

	status := req.PaymentStatus
	if status == "" {
		status = PaymentStatusPending
	}

	record := PurchaseRecord{
		ID:            newID(PrefixPurchase),
		VendorID:      req.VendorID,
		ProductID:     req.ProductID,
		Quantity:      req.Quantity,
		UnitCost:      req.UnitCost,
		TotalAmount:   req.Quantity.Mul(req.UnitCost),
		PaymentStatus: status,
		CreatedAt:     at,
	}

	products, err := ReceivePurchase(s.Products, record)
	if err != nil {
		return nil, PurchaseRecord{}, err
	}

	next := s.Clone()
	next.Products = products
	next.Purchases = append(next.Purchases, record)

	p := products[productIndex(products, record.ProductID)]
	next.Movements = append(next.Movements, Movement{
		ID:                  newID(PrefixMovement),
		ProductID:           p.ID,
		Type:                MovementTypePurchase,
		Quantity:            record.Quantity,
		Price:               record.UnitCost,
		VendorID:            record.VendorID,
		RemainingStockAfter: p.Stock,
		NewAverageCost:      p.AverageCost,
		ReferenceID:         record.ID,
		CreatedAt:           at,
	})

	if vi >= 0 && record.TotalAmount.IsPositive() {
		vendor, err := RecordBill(next.Vendors[vi], LedgerPosting{
			ID:          newID(PrefixBill),
			Amount:      record.TotalAmount,
			Description: fmt.Sprintf("Purchase %s: %s x %s", record.ID, p.Name, record.Quantity.String()),
			At:          at,
		})
		if err != nil {
			return nil, PurchaseRecord{}, err
		}
		if status == PaymentStatusPaid {
			vendor, err = RecordPayment(vendor, LedgerPosting{
				ID:          newID(PrefixPayment),
				Amount:      record.TotalAmount,
				Method:      req.PaymentMethod,
				Description: fmt.Sprintf("Payment for %s", record.ID),
				At:          at,
			})
			if err != nil {
				return nil, PurchaseRecord{}, err
			}
		}
		next.Vendors[vi] = vendor
	}

	return next, record, nil
}

// CheckoutLine is one requested cart line; price comes from the catalog
// カート明細の入力（価格は商品マスタから取得）
type CheckoutLine struct {
	ProductID string
	Quantity  decimal.Decimal
}

// CheckoutRequest is the caller input for a sale
// 販売の入力
type CheckoutRequest struct {
	CustomerID    string
	Lines         []CheckoutLine
	Discount      decimal.Decimal
	PaymentMethod PaymentMethod
	AmountPaid    decimal.Decimal // 掛売り時の頭金（それ以外は合計額を入金とみなす）
}

// Checkout prices a cart, applies the flat tax rate, deducts stock and books
// the customer aggregates
// カートを計算し、税・値引を適用して出庫、顧客の集計値を更新する
func (s *State) Checkout(req CheckoutRequest, taxRate decimal.Decimal, newID IDGenerator, at time.Time) (*State, Sale, error) {
	if req.Discount.IsNegative() {
		return nil, Sale{}, NewValidationError("discount", "値引は0以上である必要があります", req.Discount.String())
	}
	if err := ValidatePaymentMethod(req.PaymentMethod); err != nil {
		return nil, Sale{}, err
	}
	method := req.PaymentMethod
	if method == "" {
		method = PaymentMethodCash
	}

	ci := -1
	if req.CustomerID != "" {
		if ci = customerIndex(s.Customers, req.CustomerID); ci < 0 {
			return nil, Sale{}, NewNotFoundError("customer", req.CustomerID)
		}
	} else if method == PaymentMethodCredit {
		return nil, Sale{}, NewBusinessRuleError("credit_requires_customer", "掛売りには顧客の指定が必要です", string(method))
	}

	lines := make([]SaleLine, 0, len(req.Lines))
	subtotal := decimal.Zero
	for _, l := range req.Lines {
		i := productIndex(s.Products, l.ProductID)
		if i < 0 {
			return nil, Sale{}, NewNotFoundError("product", l.ProductID)
		}
		p := s.Products[i]
		lines = append(lines, SaleLine{ProductID: p.ID, Name: p.Name, Quantity: l.Quantity, Price: p.SalePrice})
		subtotal = subtotal.Add(l.Quantity.Mul(p.SalePrice))
	}

	products, err := RecordSale(s.Products, lines)
	if err != nil {
		return nil, Sale{}, err
	}

	tax := Round2(subtotal.Mul(taxRate))
	total := subtotal.Add(tax).Sub(req.Discount)
	if total.IsNegative() {
		return nil, Sale{}, NewBusinessRuleError("discount_exceeds_total", "値引が合計金額を超えています",
			fmt.Sprintf("小計: %s, 税: %s, 値引: %s", subtotal.String(), tax.String(), req.Discount.String()))
	}

	paid := total
	if method == PaymentMethodCredit {
		paid = req.AmountPaid
		if paid.IsNegative() || paid.GreaterThan(total) {
			return nil, Sale{}, NewValidationError("amount_paid", "頭金は0以上かつ合計金額以下である必要があります", paid.String())
		}
	}

	sale := Sale{
		ID:            newID(PrefixSale),
		CustomerID:    req.CustomerID,
		Items:         lines,
		Subtotal:      subtotal,
		Tax:           tax,
		Discount:      req.Discount,
		Total:         total,
		AmountPaid:    paid,
		PaymentMethod: method,
		Status:        SaleStatusCompleted,
		CreatedAt:     at,
	}

	next := s.Clone()
	next.Products = products

	if ci >= 0 {
		customer, err := ChargeCustomer(next.Customers[ci], total, paid, method == PaymentMethodCredit)
		if err != nil {
			return nil, Sale{}, err
		}
		next.Customers[ci] = customer
	}

	// 同一商品の複数行は順に残高を減らして記録
	running := make(map[string]decimal.Decimal, len(lines))
	for _, l := range lines {
		i := productIndex(next.Products, l.ProductID)
		next.Products[i].UpdatedAt = at
		before, ok := running[l.ProductID]
		if !ok {
			before = s.Products[productIndex(s.Products, l.ProductID)].Stock
		}
		after := before.Sub(l.Quantity)
		running[l.ProductID] = after

		next.Movements = append(next.Movements, Movement{
			ID:                  newID(PrefixMovement),
			ProductID:           l.ProductID,
			Type:                MovementTypeSale,
			Quantity:            l.Quantity,
			Price:               l.Price,
			RemainingStockAfter: after,
			NewAverageCost:      next.Products[i].AverageCost,
			ReferenceID:         sale.ID,
			CreatedAt:           at,
		})
	}

	next.Sales = append(next.Sales, sale)
	return next, sale, nil
}

// ClaimRequest is the caller input for a stock write-off
// 在庫償却の入力
type ClaimRequest struct {
	ProductID string
	Quantity  decimal.Decimal
	Reason    string
	Type      ClaimType
}

// RecordClaim writes stock off and appends the Pending claim
// 在庫を償却し、未解決クレームを追加
func (s *State) RecordClaim(req ClaimRequest, newID IDGenerator, at time.Time) (*State, ManufacturingClaim, error) {
	claim := ManufacturingClaim{
		ID:        newID(PrefixClaim),
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		Reason:    req.Reason,
		Type:      req.Type,
		CreatedAt: at,
	}

	products, stored, err := ApplyClaim(s.Products, claim)
	if err != nil {
		return nil, ManufacturingClaim{}, err
	}

	next := s.Clone()
	next.Products = products
	next.Claims = append(next.Claims, stored)

	p := products[productIndex(products, stored.ProductID)]
	next.Movements = append(next.Movements, Movement{
		ID:                  newID(PrefixMovement),
		ProductID:           p.ID,
		Type:                MovementTypeClaim,
		Quantity:            stored.Quantity,
		Price:               p.CostBasis(),
		RemainingStockAfter: p.Stock,
		NewAverageCost:      p.AverageCost,
		ReferenceID:         stored.ID,
		CreatedAt:           at,
	})

	return next, stored, nil
}

// ResolveClaim marks a stored claim Resolved
// 保存済みクレームを解決済みにする
func (s *State) ResolveClaim(claimID string, at time.Time) (*State, ManufacturingClaim, error) {
	for i, c := range s.Claims {
		if c.ID != claimID {
			continue
		}
		resolved, err := ResolveClaim(c, at)
		if err != nil {
			return nil, ManufacturingClaim{}, err
		}
		next := s.Clone()
		next.Claims[i] = resolved
		return next, resolved, nil
	}
	return nil, ManufacturingClaim{}, NewNotFoundError("claim", claimID)
}

func archivedError(p Product, operation string) error {
	return NewBusinessRuleError("archived_product",
		"アーカイブ済みの商品は操作できません",
		fmt.Sprintf("商品ID: %s, 操作: %s", p.ID, operation))
}
