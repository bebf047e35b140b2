// Package table defines the tabular data model shared by every pipeline
// stage: the untyped RawTable produced by byte-level parsing, the TypedTable
// produced by type coercion, and the Metadata record that accumulates every
// heuristic decision made along the way.
//
// Design constraints:
//   - A RawTable cell is either a string or null; nulls are represented as
//     nil pointers so "empty after trim" and "absent" collapse to one state.
//   - Typed columns form a closed set of six variants. Downstream consumers
//     switch over the concrete types and must handle all of them.
//   - Row count and row order survive every stage. A cell that fails
//     coercion becomes null, never an error.
package table

import (
	"database/sql"
	"time"
)

// FileType identifies how the source bytes were interpreted.
type FileType string

const (
	FileCSV         FileType = "csv"
	FileTSV         FileType = "tsv"
	FileTXT         FileType = "txt"
	FileXLSX        FileType = "xlsx"
	FileXLS         FileType = "xls"
	FileCSVFallback FileType = "csv_fallback"
	FileUnknown     FileType = "unknown"
)

// Orientation describes the structural layout of a dataset.
type Orientation string

const (
	// Wide: one row per entity, metrics spread across columns.
	Wide Orientation = "wide"
	// Long: variable/value pairs, one observation per row.
	Long Orientation = "long"
)

// Role is the semantic classification of a typed column.
type Role string

const (
	RoleDateTime             Role = "Date/time"
	RoleNumericMetric        Role = "Numeric metric"
	RoleCategoricalDimension Role = "Categorical dimension"
	RoleIdentifier           Role = "Identifier"
	RoleOther                Role = "Other"
)

// Metadata records every inference decision made while ingesting one source.
// It is constructed empty by the orchestrator, populated incrementally by
// each stage, and read-only for the caller afterwards.
type Metadata struct {
	FileType       FileType          `json:"file_type"`
	Orientation    Orientation       `json:"orientation"`
	ColumnRoles    map[string]Role   `json:"column_roles"`
	OriginalDtypes map[string]string `json:"original_dtypes"`
	InferredDtypes map[string]string `json:"inferred_dtypes"`
	Warnings       []string          `json:"warnings"`
}

// NewMetadata returns an empty Metadata with allocated maps.
func NewMetadata() *Metadata {
	return &Metadata{
		FileType:       FileUnknown,
		ColumnRoles:    make(map[string]Role),
		OriginalDtypes: make(map[string]string),
		InferredDtypes: make(map[string]string),
	}
}

// Warn appends a warning, preserving call order.
func (m *Metadata) Warn(w string) { m.Warnings = append(m.Warnings, w) }

// RawColumn is one named column of string-or-null cells.
type RawColumn struct {
	Name  string
	Cells []*string
}

// RawTable is the untyped grid produced by the resolver or the spreadsheet
// loader. All columns share the same row count.
type RawTable struct {
	Cols []RawColumn
}

// NewRaw builds a RawTable from a header and row-major records. Rows shorter
// than the header are padded with nulls; longer rows are truncated so column
// indexes stay stable.
func NewRaw(header []string, rows [][]*string) *RawTable {
	t := &RawTable{Cols: make([]RawColumn, len(header))}
	for i, name := range header {
		t.Cols[i] = RawColumn{Name: name, Cells: make([]*string, len(rows))}
	}
	for r, row := range rows {
		for c := range header {
			if c < len(row) {
				t.Cols[c].Cells[r] = row[c]
			}
		}
	}
	return t
}

// NumRows returns the shared row count.
func (t *RawTable) NumRows() int {
	if len(t.Cols) == 0 {
		return 0
	}
	return len(t.Cols[0].Cells)
}

// NumCols returns the column count.
func (t *RawTable) NumCols() int { return len(t.Cols) }

// Prune drops rows whose cells are all null and columns whose cells are all
// null, in that order, and returns how many of each were removed.
func (t *RawTable) Prune() (droppedRows, droppedCols int) {
	nRows := t.NumRows()

	keepRow := make([]bool, nRows)
	for r := 0; r < nRows; r++ {
		for c := range t.Cols {
			if t.Cols[c].Cells[r] != nil {
				keepRow[r] = true
				break
			}
		}
	}

	for c := range t.Cols {
		kept := t.Cols[c].Cells[:0]
		for r, keep := range keepRow {
			if keep {
				kept = append(kept, t.Cols[c].Cells[r])
			}
		}
		t.Cols[c].Cells = kept
	}
	for _, keep := range keepRow {
		if !keep {
			droppedRows++
		}
	}

	keptCols := t.Cols[:0]
	for _, col := range t.Cols {
		empty := true
		for _, cell := range col.Cells {
			if cell != nil {
				empty = false
				break
			}
		}
		if empty {
			droppedCols++
			continue
		}
		keptCols = append(keptCols, col)
	}
	t.Cols = keptCols

	return droppedRows, droppedCols
}

// Column is one typed, named column. The concrete type is exactly one of
// Int64Column, Float64Column, TimestampColumn, BooleanColumn,
// CategoricalColumn, or TextColumn.
type Column interface {
	Name() string
	Len() int
	// Dtype names the typed representation ("bigint", "float", "timestamp",
	// "bool", "categorical", "text").
	Dtype() string
	// Distinct counts distinct non-null values.
	Distinct() int
	// IsNull reports whether row i holds a null.
	IsNull(i int) bool
	// Value returns a driver-friendly scalar for row i (int64, float64,
	// time.Time, bool, or string), or nil when the cell is null.
	Value(i int) any
}

// TypedTable is the grid after per-column type coercion. Column order and row
// order match the RawTable it was derived from.
type TypedTable struct {
	Cols []Column
}

// NumRows returns the shared row count.
func (t *TypedTable) NumRows() int {
	if len(t.Cols) == 0 {
		return 0
	}
	return t.Cols[0].Len()
}

// NumCols returns the column count.
func (t *TypedTable) NumCols() int { return len(t.Cols) }

// Int64Column holds nullable 64-bit integers.
type Int64Column struct {
	ColName string
	Values  []sql.NullInt64
}

func (c *Int64Column) Name() string  { return c.ColName }
func (c *Int64Column) Len() int      { return len(c.Values) }
func (c *Int64Column) Dtype() string { return "bigint" }
func (c *Int64Column) IsNull(i int) bool {
	return !c.Values[i].Valid
}
func (c *Int64Column) Value(i int) any {
	if !c.Values[i].Valid {
		return nil
	}
	return c.Values[i].Int64
}
func (c *Int64Column) Distinct() int {
	set := make(map[int64]struct{})
	for _, v := range c.Values {
		if v.Valid {
			set[v.Int64] = struct{}{}
		}
	}
	return len(set)
}

// Float64Column holds nullable floating-point values.
type Float64Column struct {
	ColName string
	Values  []sql.NullFloat64
}

func (c *Float64Column) Name() string  { return c.ColName }
func (c *Float64Column) Len() int      { return len(c.Values) }
func (c *Float64Column) Dtype() string { return "float" }
func (c *Float64Column) IsNull(i int) bool {
	return !c.Values[i].Valid
}
func (c *Float64Column) Value(i int) any {
	if !c.Values[i].Valid {
		return nil
	}
	return c.Values[i].Float64
}
func (c *Float64Column) Distinct() int {
	set := make(map[float64]struct{})
	for _, v := range c.Values {
		if v.Valid {
			set[v.Float64] = struct{}{}
		}
	}
	return len(set)
}

// TimestampColumn holds nullable timestamps.
type TimestampColumn struct {
	ColName string
	Values  []sql.NullTime
}

func (c *TimestampColumn) Name() string  { return c.ColName }
func (c *TimestampColumn) Len() int      { return len(c.Values) }
func (c *TimestampColumn) Dtype() string { return "timestamp" }
func (c *TimestampColumn) IsNull(i int) bool {
	return !c.Values[i].Valid
}
func (c *TimestampColumn) Value(i int) any {
	if !c.Values[i].Valid {
		return nil
	}
	return c.Values[i].Time
}
func (c *TimestampColumn) Distinct() int {
	set := make(map[time.Time]struct{})
	for _, v := range c.Values {
		if v.Valid {
			set[v.Time] = struct{}{}
		}
	}
	return len(set)
}

// BooleanColumn holds nullable booleans.
type BooleanColumn struct {
	ColName string
	Values  []sql.NullBool
}

func (c *BooleanColumn) Name() string  { return c.ColName }
func (c *BooleanColumn) Len() int      { return len(c.Values) }
func (c *BooleanColumn) Dtype() string { return "bool" }
func (c *BooleanColumn) IsNull(i int) bool {
	return !c.Values[i].Valid
}
func (c *BooleanColumn) Value(i int) any {
	if !c.Values[i].Valid {
		return nil
	}
	return c.Values[i].Bool
}
func (c *BooleanColumn) Distinct() int {
	set := make(map[bool]struct{})
	for _, v := range c.Values {
		if v.Valid {
			set[v.Bool] = struct{}{}
		}
	}
	return len(set)
}

// CategoricalColumn holds a low-cardinality column as an ordered level set
// plus per-row codes. A code of -1 marks a null cell. Levels keep first-seen
// order from the raw column.
type CategoricalColumn struct {
	ColName string
	Levels  []string
	Codes   []int
}

func (c *CategoricalColumn) Name() string  { return c.ColName }
func (c *CategoricalColumn) Len() int      { return len(c.Codes) }
func (c *CategoricalColumn) Dtype() string { return "categorical" }
func (c *CategoricalColumn) IsNull(i int) bool {
	return c.Codes[i] < 0
}
func (c *CategoricalColumn) Value(i int) any {
	if c.Codes[i] < 0 {
		return nil
	}
	return c.Levels[c.Codes[i]]
}
func (c *CategoricalColumn) Distinct() int { return len(c.Levels) }

// TextColumn holds nullable free text.
type TextColumn struct {
	ColName string
	Values  []sql.NullString
}

func (c *TextColumn) Name() string  { return c.ColName }
func (c *TextColumn) Len() int      { return len(c.Values) }
func (c *TextColumn) Dtype() string { return "text" }
func (c *TextColumn) IsNull(i int) bool {
	return !c.Values[i].Valid
}
func (c *TextColumn) Value(i int) any {
	if !c.Values[i].Valid {
		return nil
	}
	return c.Values[i].String
}
func (c *TextColumn) Distinct() int {
	set := make(map[string]struct{})
	for _, v := range c.Values {
		if v.Valid {
			set[v.String] = struct{}{}
		}
	}
	return len(set)
}
