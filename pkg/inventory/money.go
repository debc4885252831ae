package inventory

import (
	"github.com/shopspring/decimal"
)

// CentPlaces is the number of decimal places kept for unit costs and prices
const CentPlaces int32 = 2

// Round2 rounds to cents, half away from zero
// 小数第2位に丸める
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(CentPlaces)
}

// WeightedAverageCost blends an existing cost layer with an incoming one
// 既存在庫と入庫分の加重平均単価を計算する
//
// The result is rounded to cents after the division. Repeated receipts accumulate
// that rounding; the stored value is what later receipts blend against.
// 丸め誤差の累積は許容する（保存値を次回の計算に使う）
func WeightedAverageCost(stock, costBasis, quantity, unitCost decimal.Decimal) decimal.Decimal {
	newStock := stock.Add(quantity)
	if !newStock.IsPositive() {
		return unitCost
	}
	prior := stock.Mul(costBasis)
	incoming := quantity.Mul(unitCost)
	return Round2(prior.Add(incoming).Div(newStock))
}

// maxDecimal returns the larger of a and b
func maxDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}
