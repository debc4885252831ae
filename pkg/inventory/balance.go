package inventory

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEntryType defines vendor ledger entry kinds
// 仕入先元帳の仕訳種別を定義
type LedgerEntryType string

const (
	LedgerEntryOpeningBalance LedgerEntryType = "Opening Balance" // 期首残高
	LedgerEntryPurchase       LedgerEntryType = "Purchase"        // 請求（仕入）
	LedgerEntryPayment        LedgerEntryType = "Payment"         // 支払
)

// VendorLedgerEntry is one append-only row of a vendor journal
// 仕入先元帳の1行（追記のみ）
type VendorLedgerEntry struct {
	ID          string          `json:"id"`
	Date        time.Time       `json:"date"`
	Type        LedgerEntryType `json:"type"`
	Description string          `json:"description"`
	Method      string          `json:"method,omitempty"`
	Debit       decimal.Decimal `json:"debit"`   // 支払額
	Credit      decimal.Decimal `json:"credit"`  // 請求額
	Balance     decimal.Decimal `json:"balance"` // 記帳直後の買掛残高
}

// Vendor holds the running payable and its journal
// 仕入先と買掛残高・元帳を保持
type Vendor struct {
	ID               string              `json:"id"`
	Name             string              `json:"name"`
	CompanyName      string              `json:"company_name"`
	Phone            string              `json:"phone"`
	Email            string              `json:"email"`
	Address          string              `json:"address"`
	PaymentTerms     string              `json:"payment_terms"`
	OpeningBalance   decimal.Decimal     `json:"opening_balance"`
	TotalPurchases   decimal.Decimal     `json:"total_purchases"`
	TotalPaid        decimal.Decimal     `json:"total_paid"`
	RemainingPayable decimal.Decimal     `json:"remaining_payable"` // 負の値は前払い（過払い）
	Ledger           []VendorLedgerEntry `json:"ledger"`
	CreatedAt        time.Time           `json:"created_at"`
}

// Customer holds receivable aggregates
// 顧客と売掛の集計値を保持
type Customer struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	CompanyName    string          `json:"company_name"`
	Phone          string          `json:"phone"`
	Email          string          `json:"email"`
	Address        string          `json:"address"`
	City           string          `json:"city"`
	PaymentTerms   string          `json:"payment_terms"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	CreditLimit    decimal.Decimal `json:"credit_limit"` // 0は上限なし
	TotalOrders    int             `json:"total_orders"`
	TotalSpent     decimal.Decimal `json:"total_spent"`
	PaidAmount     decimal.Decimal `json:"paid_amount"`
	RemainingDue   decimal.Decimal `json:"remaining_due"`
	CreatedAt      time.Time       `json:"created_at"`
}

// AvailableCredit returns how much more the customer may take on account
// 掛売り可能な残枠を返す（上限なしの場合は ok=false）
func (c Customer) AvailableCredit() (decimal.Decimal, bool) {
	if c.CreditLimit.IsZero() {
		return decimal.Zero, false
	}
	return c.CreditLimit.Sub(c.RemainingDue), true
}

// LedgerPosting carries one payment or bill to be journaled
// 元帳へ記帳する支払・請求の内容
type LedgerPosting struct {
	ID          string
	Amount      decimal.Decimal
	Method      string
	Description string
	At          time.Time
}

// NewVendor initializes the running totals of a freshly registered vendor.
// A non-zero opening balance becomes the first ledger row.
// 新規仕入先の集計値を初期化し、期首残高があれば元帳の先頭に記帳する
func NewVendor(v Vendor, openingEntryID string, at time.Time) (Vendor, error) {
	if v.Name == "" {
		return Vendor{}, NewValidationError("name", "仕入先名は必須です", v.Name)
	}

	out := v
	out.TotalPurchases = decimal.Zero
	out.TotalPaid = decimal.Zero
	out.RemainingPayable = v.OpeningBalance
	out.Ledger = nil
	out.CreatedAt = at

	if !v.OpeningBalance.IsZero() {
		out.Ledger = []VendorLedgerEntry{{
			ID:          openingEntryID,
			Date:        at,
			Type:        LedgerEntryOpeningBalance,
			Description: "Initial Balance Account Setup",
			Debit:       decimal.Zero,
			Credit:      v.OpeningBalance,
			Balance:     v.OpeningBalance,
		}}
	}

	return out, nil
}

// RecordPayment journals money paid to a vendor. Overpayment is allowed and
// leaves a negative payable.
// 仕入先への支払を記帳する（過払いは許容、買掛残高は負になる）
func RecordPayment(v Vendor, p LedgerPosting) (Vendor, error) {
	if !p.Amount.IsPositive() {
		return Vendor{}, NewValidationError("amount", "支払額は正の値である必要があります", p.Amount.String())
	}

	out := cloneVendor(v)
	out.RemainingPayable = v.RemainingPayable.Sub(p.Amount)
	out.TotalPaid = v.TotalPaid.Add(p.Amount)
	out.Ledger = append(out.Ledger, VendorLedgerEntry{
		ID:          p.ID,
		Date:        p.At,
		Type:        LedgerEntryPayment,
		Description: p.Description,
		Method:      p.Method,
		Debit:       p.Amount,
		Credit:      decimal.Zero,
		Balance:     out.RemainingPayable,
	})
	return out, nil
}

// RecordBill journals an amount the vendor billed us
// 仕入先からの請求を記帳する
func RecordBill(v Vendor, p LedgerPosting) (Vendor, error) {
	if !p.Amount.IsPositive() {
		return Vendor{}, NewValidationError("amount", "請求額は正の値である必要があります", p.Amount.String())
	}

	out := cloneVendor(v)
	out.RemainingPayable = v.RemainingPayable.Add(p.Amount)
	out.TotalPurchases = v.TotalPurchases.Add(p.Amount)
	out.Ledger = append(out.Ledger, VendorLedgerEntry{
		ID:          p.ID,
		Date:        p.At,
		Type:        LedgerEntryPurchase,
		Description: p.Description,
		Method:      p.Method,
		Debit:       decimal.Zero,
		Credit:      p.Amount,
		Balance:     out.RemainingPayable,
	})
	return out, nil
}

// VerifyLedger checks the running-balance chain of a vendor journal.
// The chain starts at zero; an opening balance is its own credit row.
// 元帳の残高連鎖と最新残高が買掛残高と一致するかを検証
func VerifyLedger(v Vendor) error {
	running := decimal.Zero
	for i, e := range v.Ledger {
		running = running.Add(e.Credit).Sub(e.Debit)
		if !running.Equal(e.Balance) {
			return NewBusinessRuleError("ledger_chain",
				"元帳の残高が連続していません",
				fmt.Sprintf("仕入先: %s, 行: %d, 期待値: %s, 記録値: %s", v.ID, i, running.String(), e.Balance.String()))
		}
	}

	if len(v.Ledger) == 0 {
		if !v.RemainingPayable.IsZero() {
			return NewBusinessRuleError("ledger_balance",
				"元帳がないのに買掛残高があります",
				fmt.Sprintf("仕入先: %s, 残高: %s", v.ID, v.RemainingPayable.String()))
		}
		return nil
	}

	last := v.Ledger[len(v.Ledger)-1]
	if !last.Balance.Equal(v.RemainingPayable) {
		return NewBusinessRuleError("ledger_balance",
			"最新の元帳残高と買掛残高が一致しません",
			fmt.Sprintf("仕入先: %s, 元帳: %s, 買掛: %s", v.ID, last.Balance.String(), v.RemainingPayable.String()))
	}
	return nil
}

// NewCustomer initializes receivable aggregates of a new customer
// 新規顧客の集計値を初期化
func NewCustomer(c Customer, at time.Time) (Customer, error) {
	if c.Name == "" {
		return Customer{}, NewValidationError("name", "顧客名は必須です", c.Name)
	}
	if c.CreditLimit.IsNegative() {
		return Customer{}, NewValidationError("credit_limit", "与信限度額は0以上である必要があります", c.CreditLimit.String())
	}

	out := c
	out.TotalOrders = 0
	out.TotalSpent = decimal.Zero
	out.PaidAmount = decimal.Zero
	out.RemainingDue = c.OpeningBalance
	out.CreatedAt = at
	return out, nil
}

// ChargeCustomer books one order against the customer's aggregates.
// onAccount marks a credit sale, which must stay within a non-zero credit limit.
// 注文を顧客の集計値に反映（掛売りは与信限度額を超えられない）
func ChargeCustomer(c Customer, total, paid decimal.Decimal, onAccount bool) (Customer, error) {
	if total.IsNegative() {
		return Customer{}, NewValidationError("total", "合計金額は0以上である必要があります", total.String())
	}
	if paid.IsNegative() {
		return Customer{}, NewValidationError("paid", "入金額は0以上である必要があります", paid.String())
	}

	due := total.Sub(paid)
	if onAccount && !c.CreditLimit.IsZero() && c.RemainingDue.Add(due).GreaterThan(c.CreditLimit) {
		return Customer{}, NewBusinessRuleError("credit_limit",
			"与信限度額を超えています",
			fmt.Sprintf("顧客: %s, 限度額: %s, 売掛: %s, 今回: %s", c.ID, c.CreditLimit.String(), c.RemainingDue.String(), due.String()))
	}

	out := c
	out.TotalOrders = c.TotalOrders + 1
	out.TotalSpent = c.TotalSpent.Add(total)
	out.PaidAmount = c.PaidAmount.Add(paid)
	out.RemainingDue = c.RemainingDue.Add(due)
	return out, nil
}

// RecordCustomerPayment books money received against the receivable
// 顧客からの入金を売掛に反映
func RecordCustomerPayment(c Customer, amount decimal.Decimal) (Customer, error) {
	if !amount.IsPositive() {
		return Customer{}, NewValidationError("amount", "入金額は正の値である必要があります", amount.String())
	}

	out := c
	out.PaidAmount = c.PaidAmount.Add(amount)
	out.RemainingDue = c.RemainingDue.Sub(amount)
	return out, nil
}

func cloneVendor(v Vendor) Vendor {
	out := v
	if v.Ledger != nil {
		out.Ledger = make([]VendorLedgerEntry, len(v.Ledger), len(v.Ledger)+1)
		copy(out.Ledger, v.Ledger)
	}
	return out
}
