package inventory

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	idPattern      = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	skuPattern     = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)
	barcodePattern = regexp.MustCompile(`^[a-zA-Z0-9-]+$`)
)

// ValidateProductID 商品IDの形式をバリデーション
func ValidateProductID(productID string) error {
	if productID == "" {
		return NewValidationError("product_id", "商品IDが空です", productID)
	}
	if len(productID) > 255 {
		return NewValidationError("product_id", "商品IDが長すぎます", productID)
	}
	// 英数字、ハイフン、アンダースコアのみ許可
	if !idPattern.MatchString(productID) {
		return NewValidationError("product_id", "商品IDに無効な文字が含まれています", productID)
	}
	return nil
}

// ValidateQuantity 数量をバリデーション（正の値のみ）
func ValidateQuantity(field string, quantity decimal.Decimal) error {
	if !quantity.IsPositive() {
		return NewValidationError(field, "数量は正の値である必要があります", quantity.String())
	}
	return nil
}

// ValidateCost 単価・金額をバリデーション（0以上）
func ValidateCost(field string, cost decimal.Decimal) error {
	if cost.IsNegative() {
		return NewValidationError(field, "単価は0以上である必要があります", cost.String())
	}
	return nil
}

// ValidateProductName 商品名をバリデーション
func ValidateProductName(name string) error {
	if strings.TrimSpace(name) == "" {
		return NewValidationError("name", "商品名が空です", name)
	}
	if len(name) > 500 {
		return NewValidationError("name", "商品名が長すぎます", name)
	}
	return nil
}

// ValidateSKU SKUの形式をバリデーション
func ValidateSKU(sku string) error {
	if sku == "" {
		return nil // SKUは任意
	}
	if len(sku) > 255 {
		return NewValidationError("sku", "SKUが長すぎます", sku)
	}
	// 英数字、ハイフン、アンダースコア、ドットのみ許可
	if !skuPattern.MatchString(sku) {
		return NewValidationError("sku", "SKUに無効な文字が含まれています", sku)
	}
	return nil
}

// ValidateBarcode バーコードの形式をバリデーション
func ValidateBarcode(barcode string) error {
	if barcode == "" {
		return nil // バーコードは任意
	}
	if len(barcode) > 128 || !barcodePattern.MatchString(barcode) {
		return NewValidationError("barcode", "バーコードの形式が不正です", barcode)
	}
	return nil
}

// ValidateCategory カテゴリの形式をバリデーション
func ValidateCategory(category string) error {
	if len(category) > 255 {
		return NewValidationError("category", "カテゴリが長すぎます", category)
	}
	return nil
}

// ValidateProduct 商品全体をバリデーション
func ValidateProduct(p *Product) error {
	if p == nil {
		return NewValidationError("product", "商品が指定されていません", "nil")
	}

	if err := ValidateProductID(p.ID); err != nil {
		return err
	}
	if err := ValidateProductName(p.Name); err != nil {
		return err
	}
	if err := ValidateSKU(p.SKU); err != nil {
		return err
	}
	if err := ValidateBarcode(p.Barcode); err != nil {
		return err
	}
	if err := ValidateCategory(p.Category); err != nil {
		return err
	}
	if err := ValidateCost("purchase_price", p.PurchasePrice); err != nil {
		return err
	}
	if err := ValidateCost("average_cost", p.AverageCost); err != nil {
		return err
	}
	if err := ValidateCost("sale_price", p.SalePrice); err != nil {
		return err
	}
	if p.Stock.IsNegative() {
		return NewValidationError("stock", "在庫数量は0以上である必要があります", p.Stock.String())
	}
	if p.LowStockAlert.IsNegative() {
		return NewValidationError("low_stock_alert", "低在庫閾値は0以上である必要があります", p.LowStockAlert.String())
	}

	return nil
}

// ValidateManufacturingPlan 製造計画をバリデーション
func ValidateManufacturingPlan(plan ManufacturingPlan) error {
	if err := ValidateProductID(plan.RawProductID); err != nil {
		return err
	}
	if err := ValidateQuantity("raw_quantity", plan.RawQuantity); err != nil {
		return err
	}
	if err := ValidateCost("unit_process_cost", plan.UnitProcessCost); err != nil {
		return err
	}
	if plan.ClaimQuantity.IsNegative() {
		return NewValidationError("claim_quantity", "ロス数量は0以上である必要があります", plan.ClaimQuantity.String())
	}
	if err := ValidateProcessType(plan.ProcessType); err != nil {
		return err
	}
	if plan.FinishedProductID != "" {
		if err := ValidateProductID(plan.FinishedProductID); err != nil {
			return err
		}
	}
	return nil
}

// ValidateProcessType 工程種別をバリデーション
func ValidateProcessType(processType ProcessType) error {
	switch processType {
	case "", ProcessTypeDyeing, ProcessTypeRags, ProcessTypeCalendering, ProcessTypeOther:
		return nil
	default:
		return NewValidationError("process_type", "無効な工程種別です", string(processType))
	}
}

// ValidateClaimType クレーム種別をバリデーション
func ValidateClaimType(claimType ClaimType) error {
	switch claimType {
	case "", ClaimTypeDamage, ClaimTypeDefect, ClaimTypeShortage:
		return nil
	default:
		return NewValidationError("type", "無効なクレーム種別です", string(claimType))
	}
}

// ValidatePaymentMethod 決済方法をバリデーション
func ValidatePaymentMethod(method PaymentMethod) error {
	switch method {
	case "", PaymentMethodCash, PaymentMethodCard, PaymentMethodBank, PaymentMethodOnline, PaymentMethodCredit:
		return nil
	default:
		return NewValidationError("payment_method", "無効な決済方法です", string(method))
	}
}
