package storage

import (
	"context"
	"strconv"
	"strings"

	"tabular/internal/table"
)

// Portable column types. Backends map these to their own SQL types.
const (
	TypeBigint    = "bigint"
	TypeFloat     = "float"
	TypeTimestamp = "timestamp"
	TypeBool      = "bool"
	TypeText      = "text"
)

// TableSpec describes a target table derived from a typed table.
type TableSpec struct {
	Name    string       `json:"name"`
	Columns []ColumnSpec `json:"columns"`

	// DedupeOnHash appends a row_hash column and makes inserts idempotent
	// on it, so reprocessing the same file never duplicates rows.
	DedupeOnHash bool `json:"dedupe_on_hash"`
}

type ColumnSpec struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// HashColumn is the reserved dedupe column name.
const HashColumn = "row_hash"

// SpecFor derives a TableSpec from a typed table. Column names are
// normalized to SQL-safe identifiers; collisions after normalization get a
// numeric suffix so the DDL never contains duplicate column names.
func SpecFor(name string, t *table.TypedTable, dedupeOnHash bool) TableSpec {
	spec := TableSpec{
		Name:         NormalizeColumnName(name),
		DedupeOnHash: dedupeOnHash,
	}

	seen := map[string]int{}
	for _, c := range t.Cols {
		n := NormalizeColumnName(c.Name())
		if n == "" {
			n = "column"
		}
		seen[n]++
		if k := seen[n]; k > 1 {
			n = n + "_" + strconv.Itoa(k)
		}
		spec.Columns = append(spec.Columns, ColumnSpec{Name: n, Type: portableType(c)})
	}

	if dedupeOnHash {
		spec.Columns = append(spec.Columns, ColumnSpec{Name: HashColumn, Type: TypeText})
	}
	return spec
}

func portableType(c table.Column) string {
	switch c.Dtype() {
	case "bigint":
		return TypeBigint
	case "float":
		return TypeFloat
	case "timestamp":
		return TypeTimestamp
	case "bool":
		return TypeBool
	default:
		// categorical and text both land as text.
		return TypeText
	}
}

// Export writes a typed table to the repository: EnsureTable, then one
// batched InsertRows. Returns the number of rows written.
func Export(ctx context.Context, repo Repository, spec TableSpec, t *table.TypedTable) (int64, error) {
	if err := repo.EnsureTable(ctx, spec); err != nil {
		return 0, err
	}

	columns := make([]string, 0, len(spec.Columns))
	for _, c := range spec.Columns {
		columns = append(columns, c.Name)
	}

	nRows := 0
	if len(t.Cols) > 0 {
		nRows = t.Cols[0].Len()
	}

	var dedupeColumns []string
	if spec.DedupeOnHash {
		dedupeColumns = []string{HashColumn}
	}

	rows := make([][]any, 0, nRows)
	for i := 0; i < nRows; i++ {
		row := make([]any, 0, len(columns))
		for _, c := range t.Cols {
			row = append(row, c.Value(i))
		}
		if spec.DedupeOnHash {
			row = append(row, RowHash(row))
		}
		rows = append(rows, row)
	}

	return repo.InsertRows(ctx, spec.Name, columns, rows, dedupeColumns)
}

// NormalizeColumnName converts an arbitrary header into a SQL-safe
// identifier: lower-cased, separators collapsed to single underscores,
// everything outside [a-z0-9_] dropped. A name starting with a digit gets a
// "c_" prefix so it stays a valid bare identifier everywhere.
func NormalizeColumnName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))

	lastUnderscore := false
	for _, r := range s {
		if r == ' ' || r == '-' || r == '.' || r == '/' || r == '\\' || r == ':' || r == ';' {
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
			continue
		}

		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
			lastUnderscore = (r == '_')
			continue
		}

		// Drop everything else.
	}

	out := strings.Trim(b.String(), "_")
	if out != "" && out[0] >= '0' && out[0] <= '9' {
		out = "c_" + out
	}
	return out
}
