package classify

import (
	"strings"

	"tabular/internal/config"
	"tabular/internal/table"
)

// Column-name vocabulary that signals a long (variable/value) layout. The
// match is exact on the lower-cased name; this is deliberately a small fixed
// set, not semantic name understanding.
var (
	valueNames    = map[string]bool{"value": true, "metric": true, "data": true, "count": true}
	variableNames = map[string]bool{"variable": true, "category": true, "type": true, "attribute": true}
)

// Orientation labels the table wide (one row per entity, metrics as
// columns) or long (variable/value pairs).
//
// Most real-world exports are wide, so absence of strong long-format
// signals keeps the default.
func Orientation(t *table.TypedTable, h config.Heuristics) table.Orientation {
	total := t.NumCols()
	if total == 0 {
		return table.Wide
	}

	var numeric int
	var hasValueName, hasVariableName bool
	for _, col := range t.Cols {
		switch col.(type) {
		case *table.Int64Column, *table.Float64Column:
			numeric++
		default:
			name := strings.ToLower(col.Name())
			if valueNames[name] {
				hasValueName = true
			}
			if variableNames[name] {
				hasVariableName = true
			}
		}
	}
	nonNumeric := total - numeric

	if hasValueName && hasVariableName && numeric <= h.LongMaxNumericCols {
		return table.Long
	}
	if float64(numeric)/float64(total) > h.WideNumericShare {
		return table.Wide
	}
	if float64(nonNumeric)/float64(total) > h.LongNonNumericShare && numeric <= h.LongMaxNumericCols {
		return table.Long
	}
	return table.Wide
}
