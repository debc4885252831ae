// Package export renders read-only ledger snapshots as CSV and XLSX
package export

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nemonet1337/zaiCostLedger/pkg/inventory"
)

// Table names accepted by BuildTable
// エクスポート可能なテーブル名
const (
	TableProducts      = "products"
	TablePurchases     = "purchases"
	TableSales         = "sales"
	TableManufacturing = "manufacturing"
	TableClaims        = "claims"
	TableMovements     = "movements"
	TableVendors       = "vendors"
	TableVendorLedger  = "vendor_ledger"
	TableCustomers     = "customers"
)

// TableNames lists every table in workbook order
var TableNames = []string{
	TableProducts,
	TablePurchases,
	TableSales,
	TableManufacturing,
	TableClaims,
	TableMovements,
	TableVendors,
	TableVendorLedger,
	TableCustomers,
}

// Table is a rendered grid. Cells hold string, int, decimal.Decimal or time.Time.
// 出力用の表（セルは string / int / decimal.Decimal / time.Time）
type Table struct {
	Name    string
	Headers []string
	Rows    [][]any
}

// BuildTable renders one collection of the state
// 状態の1コレクションを表に変換
func BuildTable(state *inventory.State, name string) (Table, error) {
	if state == nil {
		return Table{}, fmt.Errorf("状態が指定されていません")
	}

	switch name {
	case TableProducts:
		return productsTable(state), nil
	case TablePurchases:
		return purchasesTable(state), nil
	case TableSales:
		return salesTable(state), nil
	case TableManufacturing:
		return manufacturingTable(state), nil
	case TableClaims:
		return claimsTable(state), nil
	case TableMovements:
		return movementsTable(state), nil
	case TableVendors:
		return vendorsTable(state), nil
	case TableVendorLedger:
		return vendorLedgerTable(state), nil
	case TableCustomers:
		return customersTable(state), nil
	default:
		return Table{}, inventory.NewValidationError("table", "未対応のテーブルです", name)
	}
}

// ValuationTable renders a valuation report
// 在庫評価レポートを表に変換
func ValuationTable(report inventory.ValuationReport) Table {
	t := Table{
		Name:    "valuation",
		Headers: []string{"Product ID", "Name", "SKU", "Category", "Stock", "Unit Value", "Value", "Low Stock"},
	}
	for _, l := range report.Lines {
		t.Rows = append(t.Rows, []any{l.ProductID, l.Name, l.SKU, l.Category, l.Stock, l.UnitValue, l.Value, yesNo(l.LowStock)})
	}
	t.Rows = append(t.Rows, []any{"TOTAL " + string(report.Method), "", "", "", report.TotalUnits, "", report.TotalValue, strconv.Itoa(report.LowStockCount)})
	return t
}

func productsTable(s *inventory.State) Table {
	t := Table{
		Name:    TableProducts,
		Headers: []string{"ID", "Name", "SKU", "Barcode", "Category", "Stock", "Purchase Price", "Average Cost", "Sale Price", "Low Stock Alert", "Archived"},
	}
	for _, p := range s.Products {
		t.Rows = append(t.Rows, []any{p.ID, p.Name, p.SKU, p.Barcode, p.Category, p.Stock, p.PurchasePrice, p.AverageCost, p.SalePrice, p.LowStockAlert, yesNo(p.Archived)})
	}
	return t
}

func purchasesTable(s *inventory.State) Table {
	t := Table{
		Name:    TablePurchases,
		Headers: []string{"ID", "Date", "Vendor ID", "Product ID", "Quantity", "Unit Cost", "Total Amount", "Payment Status"},
	}
	for _, p := range s.Purchases {
		t.Rows = append(t.Rows, []any{p.ID, p.CreatedAt, p.VendorID, p.ProductID, p.Quantity, p.UnitCost, p.TotalAmount, string(p.PaymentStatus)})
	}
	return t
}

func salesTable(s *inventory.State) Table {
	t := Table{
		Name:    TableSales,
		Headers: []string{"ID", "Date", "Customer ID", "Items", "Subtotal", "Tax", "Discount", "Total", "Amount Paid", "Payment Method", "Status"},
	}
	for _, sale := range s.Sales {
		t.Rows = append(t.Rows, []any{sale.ID, sale.CreatedAt, sale.CustomerID, len(sale.Items), sale.Subtotal, sale.Tax, sale.Discount, sale.Total, sale.AmountPaid, string(sale.PaymentMethod), string(sale.Status)})
	}
	return t
}

func manufacturingTable(s *inventory.State) Table {
	t := Table{
		Name: TableManufacturing,
		Headers: []string{"ID", "Date", "Raw Product ID", "Raw Quantity", "Raw Unit Cost", "Process", "Unit Process Cost",
			"Claim Quantity", "Finished Product ID", "Finished Product", "Finished Quantity", "Finished Unit Cost", "Notes"},
	}
	for _, e := range s.ManufacturingEntries {
		t.Rows = append(t.Rows, []any{e.ID, e.CreatedAt, e.RawProductID, e.RawQuantity, e.RawUnitCost, string(e.ProcessType), e.UnitProcessCost,
			e.ClaimQuantity, e.FinishedProductID, e.FinishedProductName, e.FinishedQuantity, e.FinishedUnitCost, e.Notes})
	}
	return t
}

func claimsTable(s *inventory.State) Table {
	t := Table{
		Name:    TableClaims,
		Headers: []string{"ID", "Date", "Product ID", "Quantity", "Type", "Reason", "Status", "Resolved At"},
	}
	for _, c := range s.Claims {
		var resolved any = ""
		if c.ResolvedAt != nil {
			resolved = *c.ResolvedAt
		}
		t.Rows = append(t.Rows, []any{c.ID, c.CreatedAt, c.ProductID, c.Quantity, string(c.Type), c.Reason, string(c.Status), resolved})
	}
	return t
}

func movementsTable(s *inventory.State) Table {
	t := Table{
		Name:    TableMovements,
		Headers: []string{"ID", "Date", "Product ID", "Type", "Quantity", "Price", "Vendor ID", "Stock After", "Average Cost After", "Reference"},
	}
	for _, m := range s.Movements {
		t.Rows = append(t.Rows, []any{m.ID, m.CreatedAt, m.ProductID, string(m.Type), m.Quantity, m.Price, m.VendorID, m.RemainingStockAfter, m.NewAverageCost, m.ReferenceID})
	}
	return t
}

func vendorsTable(s *inventory.State) Table {
	t := Table{
		Name:    TableVendors,
		Headers: []string{"ID", "Name", "Company", "Phone", "Email", "Opening Balance", "Total Purchases", "Total Paid", "Remaining Payable"},
	}
	for _, v := range s.Vendors {
		t.Rows = append(t.Rows, []any{v.ID, v.Name, v.CompanyName, v.Phone, v.Email, v.OpeningBalance, v.TotalPurchases, v.TotalPaid, v.RemainingPayable})
	}
	return t
}

func vendorLedgerTable(s *inventory.State) Table {
	t := Table{
		Name:    TableVendorLedger,
		Headers: []string{"Vendor ID", "Entry ID", "Date", "Type", "Description", "Method", "Debit", "Credit", "Balance"},
	}

	vendors := append([]inventory.Vendor(nil), s.Vendors...)
	sort.SliceStable(vendors, func(i, j int) bool { return vendors[i].ID < vendors[j].ID })
	for _, v := range vendors {
		for _, e := range v.Ledger {
			t.Rows = append(t.Rows, []any{v.ID, e.ID, e.Date, string(e.Type), e.Description, e.Method, e.Debit, e.Credit, e.Balance})
		}
	}
	return t
}

func customersTable(s *inventory.State) Table {
	t := Table{
		Name:    TableCustomers,
		Headers: []string{"ID", "Name", "Company", "Phone", "Email", "City", "Credit Limit", "Total Orders", "Total Spent", "Paid Amount", "Remaining Due"},
	}
	for _, c := range s.Customers {
		t.Rows = append(t.Rows, []any{c.ID, c.Name, c.CompanyName, c.Phone, c.Email, c.City, c.CreditLimit, c.TotalOrders, c.TotalSpent, c.PaidAmount, c.RemainingDue})
	}
	return t
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// formatCell renders a cell for text formats
func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case decimal.Decimal:
		return x.String()
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return x.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}
