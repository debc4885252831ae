package inventory

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// ValuationMethod defines inventory valuation methods
// 在庫評価方法を定義
type ValuationMethod string

const (
	ValuationMethodAverage  ValuationMethod = "AVERAGE"  // 平均法（加重平均原価）
	ValuationMethodStandard ValuationMethod = "STANDARD" // 標準原価（仕入単価）
	ValuationMethodRetail   ValuationMethod = "RETAIL"   // 売価
)

// ProductValuation is one line of a valuation report
// 評価レポートの1行
type ProductValuation struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	SKU       string          `json:"sku"`
	Category  string          `json:"category"`
	Stock     decimal.Decimal `json:"stock"`
	UnitValue decimal.Decimal `json:"unit_value"`
	Value     decimal.Decimal `json:"value"`
	LowStock  bool            `json:"low_stock"`
	Archived  bool            `json:"archived"`
}

// ValuationReport summarizes the catalog under one method
// 1つの評価方法による在庫評価のサマリー
type ValuationReport struct {
	Method        ValuationMethod    `json:"method"`
	GeneratedAt   time.Time          `json:"generated_at"`
	Lines         []ProductValuation `json:"lines"`
	TotalValue    decimal.Decimal    `json:"total_value"`
	TotalUnits    decimal.Decimal    `json:"total_units"`
	ProductCount  int                `json:"product_count"`
	LowStockCount int                `json:"low_stock_count"`
}

// UnitValue returns the per-unit value of a product under the given method
// 指定された方法で商品の単位評価額を返す
func UnitValue(p Product, method ValuationMethod) (decimal.Decimal, error) {
	switch method {
	case ValuationMethodAverage, "":
		return p.CostBasis(), nil
	case ValuationMethodStandard:
		return p.PurchasePrice, nil
	case ValuationMethodRetail:
		return p.SalePrice, nil
	default:
		return decimal.Zero, NewValidationError("method", fmt.Sprintf("未対応の評価方法です: %s", method), string(method))
	}
}

// ProductValue calculates stock value of one product
// 商品の在庫評価額を計算
func ProductValue(p Product, method ValuationMethod) (decimal.Decimal, error) {
	unit, err := UnitValue(p, method)
	if err != nil {
		return decimal.Zero, err
	}
	if !p.Stock.IsPositive() {
		return decimal.Zero, nil
	}
	return Round2(p.Stock.Mul(unit)), nil
}

// TotalValue calculates the inventory valuation of the whole catalog
// 全商品の在庫評価額を計算
func TotalValue(products []Product, method ValuationMethod) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, p := range products {
		v, err := ProductValue(p, method)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(v)
	}
	return total, nil
}

// LowStockProducts returns active products at or below their alert level,
// lowest stock first
// 低在庫の商品を在庫の少ない順に返す（アーカイブ済みは除外）
func LowStockProducts(products []Product) []Product {
	var low []Product
	for _, p := range products {
		if !p.Archived && p.IsLowStock() {
			low = append(low, p)
		}
	}

	sort.SliceStable(low, func(i, j int) bool {
		return low[i].Stock.LessThan(low[j].Stock)
	})
	return low
}

// BuildValuationReport values every product and totals the result
// 全商品を評価してレポートを作成
func BuildValuationReport(products []Product, method ValuationMethod, at time.Time) (ValuationReport, error) {
	if method == "" {
		method = ValuationMethodAverage
	}

	report := ValuationReport{
		Method:      method,
		GeneratedAt: at,
		Lines:       make([]ProductValuation, 0, len(products)),
		TotalValue:  decimal.Zero,
		TotalUnits:  decimal.Zero,
	}

	for _, p := range products {
		unit, err := UnitValue(p, method)
		if err != nil {
			return ValuationReport{}, err
		}
		value, err := ProductValue(p, method)
		if err != nil {
			return ValuationReport{}, err
		}

		line := ProductValuation{
			ProductID: p.ID,
			Name:      p.Name,
			SKU:       p.SKU,
			Category:  p.Category,
			Stock:     p.Stock,
			UnitValue: unit,
			Value:     value,
			LowStock:  !p.Archived && p.IsLowStock(),
			Archived:  p.Archived,
		}
		report.Lines = append(report.Lines, line)
		report.TotalValue = report.TotalValue.Add(value)
		report.TotalUnits = report.TotalUnits.Add(p.Stock)
		report.ProductCount++
		if line.LowStock {
			report.LowStockCount++
		}
	}

	// 評価額の大きい順
	sort.SliceStable(report.Lines, func(i, j int) bool {
		return report.Lines[i].Value.GreaterThan(report.Lines[j].Value)
	})

	return report, nil
}
