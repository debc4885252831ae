package inventory

import (
	"sort"
	"time"
)

// MovementHistory returns the newest movements of a product first.
// A limit of zero or less returns all of them.
// 商品の在庫移動履歴を新しい順に取得（limit<=0 は全件）
func (s *State) MovementHistory(productID string, limit int) []Movement {
	var history []Movement
	for _, m := range s.Movements {
		if productID == "" || m.ProductID == productID {
			history = append(history, m)
		}
	}
	return newestFirst(history, limit)
}

// MovementsByDateRange returns a product's movements within [from, to]
// 指定期間の在庫移動履歴を取得
func (s *State) MovementsByDateRange(productID string, from, to time.Time) ([]Movement, error) {
	if to.Before(from) {
		return nil, NewValidationError("to", "終了日時が開始日時より前です", to.Format(time.RFC3339))
	}

	var history []Movement
	for _, m := range s.Movements {
		if productID != "" && m.ProductID != productID {
			continue
		}
		if m.CreatedAt.Before(from) || m.CreatedAt.After(to) {
			continue
		}
		history = append(history, m)
	}
	return newestFirst(history, 0), nil
}

// MovementsByReference returns every movement written by one record
// (purchase, sale, manufacturing entry or claim)
// 参照レコードに紐づく在庫移動を取得
func (s *State) MovementsByReference(referenceID string) []Movement {
	var out []Movement
	for _, m := range s.Movements {
		if m.ReferenceID == referenceID {
			out = append(out, m)
		}
	}
	return out
}

// PurchasesByVendor 仕入先別の仕入記録を取得
func (s *State) PurchasesByVendor(vendorID string) []PurchaseRecord {
	var out []PurchaseRecord
	for _, p := range s.Purchases {
		if p.VendorID == vendorID {
			out = append(out, p)
		}
	}
	return out
}

// SalesByCustomer 顧客別の販売記録を取得
func (s *State) SalesByCustomer(customerID string) []Sale {
	var out []Sale
	for _, sale := range s.Sales {
		if sale.CustomerID == customerID {
			out = append(out, sale)
		}
	}
	return out
}

// PendingClaims 未解決のクレームを取得
func (s *State) PendingClaims() []ManufacturingClaim {
	return s.ClaimsByStatus(ClaimStatusPending)
}

// ClaimsByStatus returns claims in one status; an empty status returns all
// ステータス別のクレームを取得（空文字は全件）
func (s *State) ClaimsByStatus(status ClaimStatus) []ManufacturingClaim {
	var out []ManufacturingClaim
	for _, c := range s.Claims {
		if status == "" || c.Status == status {
			out = append(out, c)
		}
	}
	return out
}

func newestFirst(movements []Movement, limit int) []Movement {
	// 同時刻は追記順の逆
	indexed := make([]int, len(movements))
	for i := range indexed {
		indexed[i] = i
	}
	sort.SliceStable(indexed, func(a, b int) bool {
		ma, mb := movements[indexed[a]], movements[indexed[b]]
		if ma.CreatedAt.Equal(mb.CreatedAt) {
			return indexed[a] > indexed[b]
		}
		return ma.CreatedAt.After(mb.CreatedAt)
	})

	out := make([]Movement, 0, len(movements))
	for _, i := range indexed {
		out = append(out, movements[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
