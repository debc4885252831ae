package inventory

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVendor(t *testing.T) {
	v, err := NewVendor(Vendor{ID: "V1", Name: "仕入先", OpeningBalance: d("500")}, "OB-1", testTime)
	require.NoError(t, err)

	assert.True(t, d("500").Equal(v.RemainingPayable))
	assert.True(t, v.TotalPaid.IsZero())
	require.Len(t, v.Ledger, 1)
	assert.Equal(t, LedgerEntryOpeningBalance, v.Ledger[0].Type)
	assert.Equal(t, "Initial Balance Account Setup", v.Ledger[0].Description)
	assert.True(t, d("500").Equal(v.Ledger[0].Credit))
	assert.True(t, d("500").Equal(v.Ledger[0].Balance))
	assert.NoError(t, VerifyLedger(v))

	empty, err := NewVendor(Vendor{ID: "V2", Name: "期首残高なし"}, "OB-2", testTime)
	require.NoError(t, err)
	assert.Empty(t, empty.Ledger)
	assert.NoError(t, VerifyLedger(empty))

	_, err = NewVendor(Vendor{ID: "V3"}, "OB-3", testTime)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestVendorLedgerChain(t *testing.T) {
	v, err := NewVendor(Vendor{ID: "V1", Name: "仕入先", OpeningBalance: d("100")}, "OB-1", testTime)
	require.NoError(t, err)

	v, err = RecordBill(v, LedgerPosting{ID: "BIL-1", Amount: d("250"), Description: "Purchase PUR-1", At: testTime})
	require.NoError(t, err)
	v, err = RecordPayment(v, LedgerPosting{ID: "PAY-1", Amount: d("200"), Method: "Cash", At: testTime})
	require.NoError(t, err)

	assert.True(t, d("150").Equal(v.RemainingPayable))
	assert.True(t, d("250").Equal(v.TotalPurchases))
	assert.True(t, d("200").Equal(v.TotalPaid))
	require.Len(t, v.Ledger, 3)
	assert.True(t, d("350").Equal(v.Ledger[1].Balance))
	assert.True(t, d("200").Equal(v.Ledger[2].Debit))
	assert.NoError(t, VerifyLedger(v))
}

func TestRecordPayment_Overpayment(t *testing.T) {
	v, err := NewVendor(Vendor{ID: "V1", Name: "仕入先", OpeningBalance: d("100")}, "OB-1", testTime)
	require.NoError(t, err)

	v, err = RecordPayment(v, LedgerPosting{ID: "PAY-1", Amount: d("130"), At: testTime})
	require.NoError(t, err)

	assert.Equal(t, "-30", v.RemainingPayable.String())
	assert.NoError(t, VerifyLedger(v))
}

func TestRecordPayment_DoesNotShareLedger(t *testing.T) {
	v, err := NewVendor(Vendor{ID: "V1", Name: "仕入先", OpeningBalance: d("100")}, "OB-1", testTime)
	require.NoError(t, err)

	a, err := RecordPayment(v, LedgerPosting{ID: "PAY-A", Amount: d("10"), At: testTime})
	require.NoError(t, err)
	b, err := RecordPayment(v, LedgerPosting{ID: "PAY-B", Amount: d("20"), At: testTime})
	require.NoError(t, err)

	assert.Len(t, v.Ledger, 1)
	assert.Equal(t, "PAY-A", a.Ledger[1].ID)
	assert.Equal(t, "PAY-B", b.Ledger[1].ID)
}

func TestLedgerPosting_RejectsNonPositiveAmount(t *testing.T) {
	v, err := NewVendor(Vendor{ID: "V1", Name: "仕入先"}, "OB-1", testTime)
	require.NoError(t, err)

	_, err = RecordPayment(v, LedgerPosting{Amount: decimal.Zero})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = RecordBill(v, LedgerPosting{Amount: d("-5")})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestVerifyLedger_DetectsCorruption(t *testing.T) {
	v, err := NewVendor(Vendor{ID: "V1", Name: "仕入先", OpeningBalance: d("100")}, "OB-1", testTime)
	require.NoError(t, err)
	v, err = RecordBill(v, LedgerPosting{ID: "BIL-1", Amount: d("50"), At: testTime})
	require.NoError(t, err)

	t.Run("残高の連鎖が切れている", func(t *testing.T) {
		broken := cloneVendor(v)
		broken.Ledger[1].Balance = d("999")

		var ruleErr *BusinessRuleError
		require.True(t, errors.As(VerifyLedger(broken), &ruleErr))
		assert.Equal(t, "ledger_chain", ruleErr.Rule)
	})

	t.Run("買掛残高と一致しない", func(t *testing.T) {
		broken := cloneVendor(v)
		broken.RemainingPayable = d("1")

		var ruleErr *BusinessRuleError
		require.True(t, errors.As(VerifyLedger(broken), &ruleErr))
		assert.Equal(t, "ledger_balance", ruleErr.Rule)
	})

	t.Run("元帳なしで残高あり", func(t *testing.T) {
		var ruleErr *BusinessRuleError
		require.True(t, errors.As(VerifyLedger(Vendor{ID: "V9", RemainingPayable: d("5")}), &ruleErr))
		assert.Equal(t, "ledger_balance", ruleErr.Rule)
	})
}

func TestChargeCustomer(t *testing.T) {
	c, err := NewCustomer(Customer{ID: "C1", Name: "顧客", OpeningBalance: d("10"), CreditLimit: d("100")}, testTime)
	require.NoError(t, err)
	assert.True(t, d("10").Equal(c.RemainingDue))

	c, err = ChargeCustomer(c, d("50"), d("20"), true)
	require.NoError(t, err)
	assert.Equal(t, 1, c.TotalOrders)
	assert.True(t, d("50").Equal(c.TotalSpent))
	assert.True(t, d("20").Equal(c.PaidAmount))
	assert.True(t, d("40").Equal(c.RemainingDue))

	_, err = ChargeCustomer(c, d("70"), decimal.Zero, true)
	var ruleErr *BusinessRuleError
	require.True(t, errors.As(err, &ruleErr))
	assert.Equal(t, "credit_limit", ruleErr.Rule)

	// 即時決済は与信限度額の対象外
	c, err = ChargeCustomer(c, d("500"), d("500"), false)
	require.NoError(t, err)
	assert.True(t, d("40").Equal(c.RemainingDue))

	c, err = RecordCustomerPayment(c, d("15"))
	require.NoError(t, err)
	assert.True(t, d("25").Equal(c.RemainingDue))
	assert.True(t, d("535").Equal(c.PaidAmount))

	_, err = RecordCustomerPayment(c, decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCustomer_AvailableCredit(t *testing.T) {
	_, limited := Customer{}.AvailableCredit()
	assert.False(t, limited)

	available, limited := Customer{CreditLimit: d("100"), RemainingDue: d("30")}.AvailableCredit()
	assert.True(t, limited)
	assert.True(t, d("70").Equal(available))
}

func TestNewCustomer_Validation(t *testing.T) {
	_, err := NewCustomer(Customer{ID: "C1"}, testTime)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewCustomer(Customer{ID: "C1", Name: "顧客", CreditLimit: d("-1")}, testTime)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
