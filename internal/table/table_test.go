package table

import (
	"database/sql"
	"testing"
)

func strp(s string) *string { return &s }

func TestNewRawPadsAndTruncates(t *testing.T) {
	t.Parallel()

	raw := NewRaw([]string{"a", "b", "c"}, [][]*string{
		{strp("1")},                            // short row padded
		{strp("2"), strp("3"), strp("4")},      // exact
		{strp("5"), nil, strp("6"), strp("7")}, // long row truncated
	})

	if raw.NumRows() != 3 || raw.NumCols() != 3 {
		t.Fatalf("got %dx%d, want 3x3", raw.NumRows(), raw.NumCols())
	}
	if raw.Cols[1].Cells[0] != nil {
		t.Error("short row must pad with nulls")
	}
	if *raw.Cols[2].Cells[2] != "6" {
		t.Error("long row must truncate, keeping leading cells")
	}
}

func TestPrune(t *testing.T) {
	t.Parallel()

	raw := NewRaw([]string{"a", "empty", "b"}, [][]*string{
		{strp("1"), nil, strp("x")},
		{nil, nil, nil}, // all-null row
		{strp("2"), nil, nil},
	})

	rows, cols := raw.Prune()
	if rows != 1 || cols != 1 {
		t.Fatalf("dropped %d rows, %d cols; want 1, 1", rows, cols)
	}
	if raw.NumRows() != 2 || raw.NumCols() != 2 {
		t.Fatalf("got %dx%d after prune, want 2x2", raw.NumRows(), raw.NumCols())
	}
	if raw.Cols[0].Name != "a" || raw.Cols[1].Name != "b" {
		t.Errorf("column order broken: %s, %s", raw.Cols[0].Name, raw.Cols[1].Name)
	}
}

func TestPruneNoop(t *testing.T) {
	t.Parallel()

	raw := NewRaw([]string{"a"}, [][]*string{{strp("1")}})
	if rows, cols := raw.Prune(); rows != 0 || cols != 0 {
		t.Fatalf("dropped %d rows, %d cols from a dense table", rows, cols)
	}
}

func TestCategoricalColumn(t *testing.T) {
	t.Parallel()

	c := &CategoricalColumn{
		ColName: "region",
		Levels:  []string{"north", "south"},
		Codes:   []int{0, 1, -1, 0},
	}

	if c.Len() != 4 || c.Distinct() != 2 {
		t.Fatalf("Len=%d Distinct=%d", c.Len(), c.Distinct())
	}
	if !c.IsNull(2) || c.IsNull(0) {
		t.Error("null bookkeeping wrong")
	}
	if c.Value(3) != "north" {
		t.Errorf("Value(3) = %v", c.Value(3))
	}
	if c.Value(2) != nil {
		t.Errorf("null cell Value = %v", c.Value(2))
	}
}

func TestDistinctExcludesNulls(t *testing.T) {
	t.Parallel()

	c := &Int64Column{ColName: "n", Values: []sql.NullInt64{
		{Int64: 1, Valid: true},
		{Int64: 1, Valid: true},
		{Valid: false},
		{Int64: 2, Valid: true},
	}}
	if got := c.Distinct(); got != 2 {
		t.Errorf("Distinct = %d, want 2", got)
	}
}
