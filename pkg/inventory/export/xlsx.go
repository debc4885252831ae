package export

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/nemonet1337/zaiCostLedger/pkg/inventory"
)

const defaultSheet = "Sheet1"

// WriteWorkbook writes every table of the state, plus the valuation report
// when given, as one sheet each
// 全テーブル（と評価レポート）をシートごとにXLSXで出力
func WriteWorkbook(w io.Writer, state *inventory.State, valuation *inventory.ValuationReport) error {
	tables := make([]Table, 0, len(TableNames)+1)
	for _, name := range TableNames {
		t, err := BuildTable(state, name)
		if err != nil {
			return err
		}
		tables = append(tables, t)
	}
	if valuation != nil {
		tables = append(tables, ValuationTable(*valuation))
	}
	return WriteTablesXLSX(w, tables...)
}

// WriteTablesXLSX writes tables as sheets of one workbook
// 表をシートとしてXLSXに出力
func WriteTablesXLSX(w io.Writer, tables ...Table) error {
	if len(tables) == 0 {
		return fmt.Errorf("出力するテーブルがありません")
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6E6FA"},
			Pattern: 1,
		},
	})
	if err != nil {
		return fmt.Errorf("スタイル作成に失敗しました: %w", err)
	}

	for i, t := range tables {
		index, err := f.NewSheet(t.Name)
		if err != nil {
			return fmt.Errorf("シート作成に失敗しました [%s]: %w", t.Name, err)
		}
		if i == 0 {
			f.SetActiveSheet(index)
		}
		if err := writeSheet(f, t, headerStyle); err != nil {
			return err
		}
	}

	// デフォルトシートを削除
	if err := f.DeleteSheet(defaultSheet); err != nil {
		return fmt.Errorf("デフォルトシートの削除に失敗しました: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("XLSXの書き込みに失敗しました: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, t Table, headerStyle int) error {
	for col, header := range t.Headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(t.Name, cell, header); err != nil {
			return fmt.Errorf("セルの書き込みに失敗しました [%s!%s]: %w", t.Name, cell, err)
		}
	}
	if err := f.SetRowStyle(t.Name, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("ヘッダースタイルの設定に失敗しました: %w", err)
	}

	for r, row := range t.Rows {
		for col, value := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(t.Name, cell, xlsxValue(value)); err != nil {
				return fmt.Errorf("セルの書き込みに失敗しました [%s!%s]: %w", t.Name, cell, err)
			}
		}
	}

	if len(t.Headers) > 0 {
		last, err := excelize.ColumnNumberToName(len(t.Headers))
		if err != nil {
			return err
		}
		if err := f.SetColWidth(t.Name, "A", last, 18); err != nil {
			return fmt.Errorf("列幅の設定に失敗しました: %w", err)
		}
	}
	return nil
}

// xlsxValue keeps numbers numeric so spreadsheets can sum them
func xlsxValue(v any) any {
	switch x := v.(type) {
	case decimal.Decimal:
		return x.InexactFloat64()
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return x.UTC().Format("2006-01-02 15:04:05")
	default:
		return v
	}
}
