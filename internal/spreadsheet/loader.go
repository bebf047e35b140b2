// Package spreadsheet loads the first sheet of a binary spreadsheet file
// into the same RawTable shape the text resolver produces. Delimiter and
// encoding concerns do not apply here; the only heuristics are the shared
// empty-row/column pruning and header derivation from the first row.
package spreadsheet

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"tabular/internal/table"
)

// Load decodes data as an XLSX workbook and returns the first sheet as a
// RawTable plus pruning warnings. Corrupt containers and unsupported
// sub-formats (legacy BIFF .xls files) fail with an error the orchestrator
// surfaces as an unparsable source.
func Load(data []byte) (*table.RawTable, []string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("workbook has no sheets")
	}

	// Only the first sheet is loaded.
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("sheet %s is empty", sheets[0])
	}

	header := records[0]
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	rows := make([][]*string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make([]*string, len(rec))
		for i := range rec {
			v := strings.TrimSpace(rec[i])
			if v == "" {
				continue
			}
			row[i] = &v
		}
		rows = append(rows, row)
	}

	raw := table.NewRaw(header, rows)

	var warnings []string
	droppedRows, droppedCols := raw.Prune()
	if droppedRows > 0 {
		warnings = append(warnings, fmt.Sprintf("Dropped %d entirely empty rows.", droppedRows))
	}
	if droppedCols > 0 {
		warnings = append(warnings, fmt.Sprintf("Dropped %d entirely empty columns.", droppedCols))
	}
	return raw, warnings, nil
}
