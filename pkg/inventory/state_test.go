package inventory

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// populatedState は全コレクションを含むテスト用の状態を作成
func populatedState(t *testing.T) *State {
	t.Helper()
	newID := seqIDs()

	s, _, err := NewState().AddProduct(testProduct("RAW", "100", "2"), newID, testTime)
	require.NoError(t, err)
	s, _, err = s.AddVendor(Vendor{ID: "V1", Name: "仕入先", OpeningBalance: d("40")}, newID, testTime)
	require.NoError(t, err)
	s, _, err = s.AddCustomer(Customer{ID: "C1", Name: "顧客"}, newID, testTime)
	require.NoError(t, err)
	s, _, err = s.ReceivePurchase(PurchaseRequest{VendorID: "V1", ProductID: "RAW", Quantity: d("10"), UnitCost: d("2.30")}, newID, testTime)
	require.NoError(t, err)
	s, _, err = s.Checkout(CheckoutRequest{CustomerID: "C1", Lines: []CheckoutLine{{ProductID: "RAW", Quantity: d("5")}}}, d("0.10"), newID, testTime)
	require.NoError(t, err)
	s, _, err = s.CommitManufacturing(dyeingPlan(), testOptions(), newID)
	require.NoError(t, err)
	s, claim, err := s.RecordClaim(ClaimRequest{ProductID: "RAW", Quantity: d("1"), Reason: "破損"}, newID, testTime)
	require.NoError(t, err)
	s, _, err = s.ResolveClaim(claim.ID, testTime)
	require.NoError(t, err)

	return s
}

func TestState_CloneIsIndependent(t *testing.T) {
	s := populatedState(t)
	c := s.Clone()

	c.Products[0].Stock = d("-1")
	c.Vendors[0].Ledger[0].Balance = d("-1")
	c.Sales[0].Items[0].Quantity = d("-1")
	*c.Claims[0].ResolvedAt = testTime.AddDate(1, 0, 0)
	c.Movements = append(c.Movements, Movement{ID: "extra"})

	assert.False(t, s.Products[0].Stock.IsNegative())
	assert.False(t, s.Vendors[0].Ledger[0].Balance.IsNegative())
	assert.False(t, s.Sales[0].Items[0].Quantity.IsNegative())
	assert.Equal(t, testTime, *s.Claims[0].ResolvedAt)
	assert.NotEqual(t, len(s.Movements), len(c.Movements))
}

func TestState_JSONRoundTrip(t *testing.T) {
	s := populatedState(t)
	s.Version = 7

	payload, err := json.Marshal(s)
	require.NoError(t, err)

	restored := NewState()
	require.NoError(t, json.Unmarshal(payload, restored))

	assert.Equal(t, int64(7), restored.Version)
	require.Len(t, restored.Products, len(s.Products))
	for i := range s.Products {
		assert.True(t, s.Products[i].AverageCost.Equal(restored.Products[i].AverageCost), "average cost of %s", s.Products[i].ID)
		assert.True(t, s.Products[i].Stock.Equal(restored.Products[i].Stock))
	}
	assert.Len(t, restored.Movements, len(s.Movements))
	assert.Len(t, restored.Vendors[0].Ledger, len(s.Vendors[0].Ledger))
	assert.NoError(t, VerifyLedger(restored.Vendors[0]))
	require.NotNil(t, restored.Claims[0].ResolvedAt)
	assert.True(t, testTime.Equal(*restored.Claims[0].ResolvedAt))

	// 金額は文字列として保存される
	assert.True(t, strings.Contains(string(payload), `"average_cost":"2.03"`), string(payload))
}

func TestState_AddProduct(t *testing.T) {
	newID := seqIDs()
	s, p, err := NewState().AddProduct(Product{Name: "新商品", SKU: "NEW-1", PurchasePrice: d("3"), Stock: d("4")}, newID, testTime)
	require.NoError(t, err)

	assert.Equal(t, "PRD-1", p.ID)
	assert.True(t, d("3").Equal(p.AverageCost))
	assert.Equal(t, testTime, p.CreatedAt)
	assert.Len(t, s.Products, 1)

	_, p, err = NewState().AddProduct(Product{Name: "在庫なし", PurchasePrice: d("3")}, newID, testTime)
	require.NoError(t, err)
	assert.True(t, p.AverageCost.IsZero())

	tests := []struct {
		name    string
		product Product
	}{
		{"ID重複", Product{ID: "PRD-1", Name: "別商品"}},
		{"SKU重複（大文字小文字無視）", Product{ID: "X1", Name: "別商品", SKU: "new-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := s.AddProduct(tt.product, newID, testTime)
			assert.ErrorIs(t, err, ErrDuplicateProduct)
		})
	}

	_, _, err = s.AddProduct(Product{ID: "X2", Name: "負の在庫", Stock: d("-1")}, newID, testTime)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, _, err = s.AddProduct(Product{ID: "bad id", Name: "不正ID"}, newID, testTime)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestState_ArchiveProduct(t *testing.T) {
	s, _, err := NewState().AddProduct(testProduct("P1", "3", "1"), seqIDs(), testTime)
	require.NoError(t, err)

	next, p, err := s.ArchiveProduct("P1", testTime)
	require.NoError(t, err)
	assert.True(t, p.Archived)
	assert.False(t, s.Products[0].Archived)

	_, _, err = next.ReceivePurchase(PurchaseRequest{ProductID: "P1", Quantity: d("1"), UnitCost: d("1")}, seqIDs(), testTime)
	assert.Error(t, err)

	_, _, err = s.ArchiveProduct("P9", testTime)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestState_Parties(t *testing.T) {
	newID := seqIDs()
	s, v, err := NewState().AddVendor(Vendor{Name: "仕入先"}, newID, testTime)
	require.NoError(t, err)
	assert.Equal(t, "VEN-1", v.ID)

	_, _, err = s.AddVendor(Vendor{ID: v.ID, Name: "重複"}, newID, testTime)
	var ruleErr *BusinessRuleError
	require.ErrorAs(t, err, &ruleErr)
	assert.Equal(t, "duplicate_vendor", ruleErr.Rule)

	s, c, err := s.AddCustomer(Customer{Name: "顧客"}, newID, testTime)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(c.ID, PrefixCustomer+"-"))

	s, v, err = s.BillVendor(v.ID, LedgerPosting{ID: "BIL-X", Amount: d("80"), At: testTime})
	require.NoError(t, err)
	s, v, err = s.PayVendor(v.ID, LedgerPosting{ID: "PAY-X", Amount: d("30"), Method: "Cash", At: testTime})
	require.NoError(t, err)
	assert.True(t, d("50").Equal(v.RemainingPayable))

	_, _, err = s.PayVendor("VEN-404", LedgerPosting{Amount: d("1")})
	assert.ErrorIs(t, err, ErrNotFound)

	s, c, err = s.ReceiveCustomerPayment(c.ID, d("12"))
	require.NoError(t, err)
	assert.True(t, d("-12").Equal(c.RemainingDue))

	_, _, err = s.ReceiveCustomerPayment("CUS-404", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewID(t *testing.T) {
	a := NewID(PrefixSale)
	b := NewID(PrefixSale)

	assert.True(t, strings.HasPrefix(a, "INV-"))
	assert.NotEqual(t, a, b)
}
