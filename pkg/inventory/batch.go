package inventory

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BatchResult is the cost projection of one production cycle
// 製造サイクル1回分の原価見積り
type BatchResult struct {
	RawUnitCost               decimal.Decimal `json:"raw_unit_cost"`
	RawQuantity               decimal.Decimal `json:"raw_quantity"`
	UnitProcessCost           decimal.Decimal `json:"unit_process_cost"`
	ClaimedWaste              decimal.Decimal `json:"claimed_waste"`
	TotalRawMaterialCost      decimal.Decimal `json:"total_raw_material_cost"`
	TotalProcessingCost       decimal.Decimal `json:"total_processing_cost"`
	TotalProductionInvestment decimal.Decimal `json:"total_production_investment"`
	NetYield                  decimal.Decimal `json:"net_yield"`
	BatchUnitCost             decimal.Decimal `json:"batch_unit_cost"`
	ClaimValue                decimal.Decimal `json:"claim_value"` // ロス分の材料・加工費
}

// ComputeBatch projects the finished-goods cost of a production cycle.
// Processing cost is charged on the input quantity. When everything is waste
// the unit cost falls back to raw cost plus process cost.
// 製造原価を計算する（加工費は投入数量に課金、歩留まり0の場合は材料費+加工費）
func ComputeBatch(rawUnitCost, rawQuantity, unitProcessCost, claimedWaste decimal.Decimal) BatchResult {
	totalRaw := rawQuantity.Mul(rawUnitCost)
	totalProcessing := rawQuantity.Mul(unitProcessCost)
	investment := totalRaw.Add(totalProcessing)
	netYield := maxDecimal(decimal.Zero, rawQuantity.Sub(claimedWaste))

	unitCost := rawUnitCost.Add(unitProcessCost)
	if netYield.IsPositive() {
		unitCost = investment.Div(netYield)
	}

	return BatchResult{
		RawUnitCost:               rawUnitCost,
		RawQuantity:               rawQuantity,
		UnitProcessCost:           unitProcessCost,
		ClaimedWaste:              claimedWaste,
		TotalRawMaterialCost:      totalRaw,
		TotalProcessingCost:       totalProcessing,
		TotalProductionInvestment: investment,
		NetYield:                  netYield,
		BatchUnitCost:             unitCost,
		ClaimValue:                claimedWaste.Mul(rawUnitCost.Add(unitProcessCost)),
	}
}

// PreviewManufacturing resolves the raw material's cost basis from the catalog
// and projects the batch. Commit goes through this same function.
// 原材料の原価を商品マスタから取得して製造原価を試算する
func PreviewManufacturing(products []Product, plan ManufacturingPlan) (BatchResult, error) {
	if err := ValidateManufacturingPlan(plan); err != nil {
		return BatchResult{}, err
	}

	i := productIndex(products, plan.RawProductID)
	if i < 0 {
		return BatchResult{}, NewNotFoundError("product", plan.RawProductID)
	}

	raw := products[i]
	if raw.Archived {
		return BatchResult{}, archivedError(raw, "manufacturing")
	}
	return ComputeBatch(raw.CostBasis(), plan.RawQuantity, plan.UnitProcessCost, plan.ClaimQuantity), nil
}

// ManufacturingOptions carries the identifiers and catalog policy a commit needs
// 製造確定に必要なIDと商品作成ポリシー
type ManufacturingOptions struct {
	EntryID              string
	NewProductID         string // 完成品を新規作成する場合のID
	At                   time.Time
	Markup               decimal.Decimal // 新規完成品の販売価格倍率
	DefaultLowStockAlert decimal.Decimal
	Category             string
	MatchByName          bool // 同名の既存商品を同一SKUとして扱う
}

// CommitManufacturing applies one production cycle atomically: raw deduction,
// finished-goods blend or creation, and the immutable entry.
// 製造サイクルを一括で反映する（原材料の払出・完成品の受入または作成・製造記録）
func CommitManufacturing(products []Product, plan ManufacturingPlan, opts ManufacturingOptions) ([]Product, ManufacturingEntry, BatchResult, error) {
	result, err := PreviewManufacturing(products, plan)
	if err != nil {
		return nil, ManufacturingEntry{}, BatchResult{}, err
	}

	ri := productIndex(products, plan.RawProductID)
	raw := products[ri]
	if raw.Stock.LessThan(plan.RawQuantity) {
		return nil, ManufacturingEntry{}, BatchResult{}, NewInsufficientStockError(raw.ID, plan.RawQuantity, raw.Stock)
	}

	fi := resolveFinishedGood(products, plan, opts.MatchByName)
	if fi == ri {
		return nil, ManufacturingEntry{}, BatchResult{}, NewBusinessRuleError("finished_equals_raw",
			"完成品と原材料に同じ商品は指定できません", raw.ID)
	}
	if fi >= 0 && products[fi].Archived {
		return nil, ManufacturingEntry{}, BatchResult{}, archivedError(products[fi], "manufacturing")
	}

	out := append([]Product(nil), products...)
	out[ri].Stock = raw.Stock.Sub(plan.RawQuantity)
	out[ri].UpdatedAt = opts.At

	var finished Product
	if fi >= 0 {
		f := &out[fi]
		if result.NetYield.IsPositive() {
			f.AverageCost = WeightedAverageCost(f.Stock, f.CostBasis(), result.NetYield, result.BatchUnitCost)
			f.Stock = f.Stock.Add(result.NetYield)
		}
		f.UpdatedAt = opts.At
		finished = *f
	} else {
		name := strings.TrimSpace(plan.FinishedProductName)
		if name == "" {
			return nil, ManufacturingEntry{}, BatchResult{}, NewValidationError("finished_product_name", "完成品名は必須です", plan.FinishedProductName)
		}
		id := plan.FinishedProductID
		if id == "" {
			id = opts.NewProductID
		}
		finished = newFinishedGood(out, id, name, result, opts)
		out = append(out, finished)
	}

	entry := ManufacturingEntry{
		ID:                  opts.EntryID,
		RawProductID:        raw.ID,
		RawQuantity:         plan.RawQuantity,
		RawUnitCost:         result.RawUnitCost,
		ProcessType:         plan.ProcessType,
		UnitProcessCost:     plan.UnitProcessCost,
		ClaimQuantity:       plan.ClaimQuantity,
		FinishedProductID:   finished.ID,
		FinishedProductName: finished.Name,
		FinishedQuantity:    result.NetYield,
		FinishedUnitCost:    result.BatchUnitCost,
		Notes:               plan.Notes,
		Status:              EntryStatusCompleted,
		CreatedAt:           opts.At,
	}

	return out, entry, result, nil
}

// resolveFinishedGood picks the finished-goods product: a caller-chosen ID
// first, then an exact name match among active products when enabled.
// -1 means create.
func resolveFinishedGood(products []Product, plan ManufacturingPlan, matchByName bool) int {
	if plan.FinishedProductID != "" {
		if i := productIndex(products, plan.FinishedProductID); i >= 0 {
			return i
		}
		return -1
	}
	if matchByName && plan.FinishedProductName != "" {
		return productIndexByName(products, plan.FinishedProductName)
	}
	return -1
}

func newFinishedGood(products []Product, id, name string, result BatchResult, opts ManufacturingOptions) Product {
	sku := uniqueCode("MFG-"+skuPrefix(name), func(code string) bool {
		for _, p := range products {
			if strings.EqualFold(p.SKU, code) {
				return true
			}
		}
		return false
	})
	barcode := uniqueCode(fmt.Sprintf("MFG-%d", opts.At.UnixMilli()), func(code string) bool {
		for _, p := range products {
			if p.Barcode == code {
				return true
			}
		}
		return false
	})

	return Product{
		ID:            id,
		Name:          name,
		SKU:           sku,
		Barcode:       barcode,
		Category:      opts.Category,
		PurchasePrice: result.BatchUnitCost,
		AverageCost:   result.BatchUnitCost,
		SalePrice:     Round2(result.BatchUnitCost.Mul(opts.Markup)),
		Stock:         result.NetYield,
		LowStockAlert: opts.DefaultLowStockAlert,
		CreatedAt:     opts.At,
		UpdatedAt:     opts.At,
	}
}

// skuPrefix upper-cases the first three runes of a name for a generated SKU.
// Runes outside [A-Za-z0-9] become "-"; a name with none falls back to ITEM.
// 商品名の先頭3文字からSKU接頭辞を作る（英数字以外は"-"、英数字がなければITEM）
func skuPrefix(name string) string {
	var b strings.Builder
	for i, r := range []rune(name) {
		if i == 3 {
			break
		}
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - 'a' + 'A')
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	if prefix := strings.Trim(b.String(), "-"); prefix != "" {
		return prefix
	}
	return "ITEM"
}

// CommitManufacturing runs one production cycle against the state and appends
// the entry plus the raw-out and finished-in movements
// 製造サイクルを状態に反映し、製造記録と在庫移動を追加する
func (s *State) CommitManufacturing(plan ManufacturingPlan, opts ManufacturingOptions, newID IDGenerator) (*State, ManufacturingEntry, error) {
	if opts.EntryID == "" {
		opts.EntryID = newID(PrefixManufacturing)
	}
	if opts.NewProductID == "" {
		opts.NewProductID = newID(PrefixProduct)
	}

	products, entry, result, err := CommitManufacturing(s.Products, plan, opts)
	if err != nil {
		return nil, ManufacturingEntry{}, err
	}

	next := s.Clone()
	next.Products = products
	next.ManufacturingEntries = append(next.ManufacturingEntries, entry)

	raw := products[productIndex(products, entry.RawProductID)]
	finished := products[productIndex(products, entry.FinishedProductID)]
	next.Movements = append(next.Movements,
		Movement{
			ID:                  newID(PrefixMovement),
			ProductID:           raw.ID,
			Type:                MovementTypeManufacturingIn,
			Quantity:            entry.RawQuantity,
			Price:               result.RawUnitCost,
			RemainingStockAfter: raw.Stock,
			NewAverageCost:      raw.AverageCost,
			ReferenceID:         entry.ID,
			CreatedAt:           opts.At,
		},
		Movement{
			ID:                  newID(PrefixMovement),
			ProductID:           finished.ID,
			Type:                MovementTypeManufacturingOut,
			Quantity:            entry.FinishedQuantity,
			Price:               result.BatchUnitCost,
			RemainingStockAfter: finished.Stock,
			NewAverageCost:      finished.AverageCost,
			ReferenceID:         entry.ID,
			CreatedAt:           opts.At,
		},
	)

	return next, entry, nil
}
