// Package classify labels typed columns with semantic roles and decides the
// dataset's structural orientation. Both classifiers are pure functions of
// the typed table; they never fail and always produce exactly one label per
// column or table.
package classify

import (
	"tabular/internal/config"
	"tabular/internal/table"
)

// Roles assigns one semantic role per column.
//
// A numeric or string-like column that is almost entirely unique, in a table
// large enough for uniqueness to mean anything, is more likely a surrogate
// key than a measurable quantity — that is the identifier heuristic.
func Roles(t *table.TypedTable, h config.Heuristics) map[string]table.Role {
	roles := make(map[string]table.Role, t.NumCols())
	for _, col := range t.Cols {
		roles[col.Name()] = roleOf(col, h)
	}
	return roles
}

func roleOf(col table.Column, h config.Heuristics) table.Role {
	switch col.(type) {
	case *table.TimestampColumn:
		return table.RoleDateTime

	case *table.Int64Column, *table.Float64Column, *table.BooleanColumn:
		// Booleans ride with the numerics: two levels can never clear the
		// identifier ratio, so they land on Numeric metric.
		if isIdentifier(col, h) {
			return table.RoleIdentifier
		}
		return table.RoleNumericMetric

	case *table.CategoricalColumn, *table.TextColumn:
		if isIdentifier(col, h) {
			return table.RoleIdentifier
		}
		return table.RoleCategoricalDimension

	default:
		// The column set is closed; this arm only guards future variants.
		return table.RoleOther
	}
}

func isIdentifier(col table.Column, h config.Heuristics) bool {
	n := col.Len()
	if n <= h.IdentifierMinRows {
		return false
	}
	return float64(col.Distinct())/float64(n) > h.IdentifierUniqueRatio
}
