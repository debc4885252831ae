package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/nemonet1337/zaiCostLedger/pkg/inventory"
)

// WriteCSV writes one table of the state as CSV with a header row
// 状態の1テーブルをヘッダー付きCSVで出力
func WriteCSV(w io.Writer, state *inventory.State, name string) error {
	t, err := BuildTable(state, name)
	if err != nil {
		return err
	}
	return WriteTableCSV(w, t)
}

// WriteTableCSV writes an already built table as CSV
// 作成済みの表をCSVで出力
func WriteTableCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(t.Headers); err != nil {
		return fmt.Errorf("CSVヘッダーの書き込みに失敗しました: %w", err)
	}

	record := make([]string, len(t.Headers))
	for _, row := range t.Rows {
		for i := range record {
			record[i] = ""
			if i < len(row) {
				record[i] = formatCell(row[i])
			}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("CSV行の書き込みに失敗しました: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("CSVの書き込みに失敗しました: %w", err)
	}
	return nil
}
