package infer

import (
	"strings"
	"testing"
	"time"

	"tabular/internal/config"
	"tabular/internal/table"
)

func strp(s string) *string { return &s }

func rawCol(name string, cells ...*string) *table.RawTable {
	return &table.RawTable{Cols: []table.RawColumn{{Name: name, Cells: cells}}}
}

func cells(vals ...string) []*string {
	out := make([]*string, len(vals))
	for i, v := range vals {
		if v != "<nil>" {
			out[i] = strp(vals[i])
		}
	}
	return out
}

func TestCoerceIntegerColumn(t *testing.T) {
	t.Parallel()

	res := Coerce(rawCol("n", cells("1", "2", "3")...), config.Default())

	col, ok := res.Table.Cols[0].(*table.Int64Column)
	if !ok {
		t.Fatalf("got %T, want Int64Column", res.Table.Cols[0])
	}
	if col.Values[2].Int64 != 3 {
		t.Errorf("Values[2] = %v", col.Values[2])
	}
	if len(res.Warnings) != 0 {
		t.Errorf("clean parse warned: %v", res.Warnings)
	}
	if res.OriginalDtypes["n"] != "text" || res.InferredDtypes["n"] != "bigint" {
		t.Errorf("dtype record: %v / %v", res.OriginalDtypes, res.InferredDtypes)
	}
}

func TestCoerceFloatWhenAnyFractional(t *testing.T) {
	t.Parallel()

	res := Coerce(rawCol("n", cells("1", "2.5", "3")...), config.Default())
	if _, ok := res.Table.Cols[0].(*table.Float64Column); !ok {
		t.Fatalf("got %T, want Float64Column", res.Table.Cols[0])
	}
}

func TestCoerceIntegralFloatsStayInteger(t *testing.T) {
	t.Parallel()

	res := Coerce(rawCol("n", cells("1.0", "2.0", "3.0")...), config.Default())
	if _, ok := res.Table.Cols[0].(*table.Int64Column); !ok {
		t.Fatalf("got %T, want Int64Column", res.Table.Cols[0])
	}
}

// 3 of 4 cells parse (75%), which does not clear the 0.8 threshold; the
// column must fall through the ladder instead of becoming numeric.
func TestCoerceBelowRatioStaysNonNumeric(t *testing.T) {
	t.Parallel()

	res := Coerce(rawCol("n", cells("1", "2", "3", "oops")...), config.Default())
	if _, ok := res.Table.Cols[0].(*table.Int64Column); ok {
		t.Fatal("75% parse rate must not commit to numeric")
	}
	if _, ok := res.Table.Cols[0].(*table.Float64Column); ok {
		t.Fatal("75% parse rate must not commit to numeric")
	}
}

// The threshold is strictly greater-than: exactly 0.8 fails.
func TestCoerceExactThresholdFails(t *testing.T) {
	t.Parallel()

	res := Coerce(rawCol("n", cells("1", "2", "3", "4", "x")...), config.Default())
	if res.Table.Cols[0].Dtype() == "bigint" {
		t.Fatal("exactly 0.8 must not clear a strict threshold")
	}
}

func TestCoercePartialNumericWarns(t *testing.T) {
	t.Parallel()

	// 9 of 10 parse: above threshold, so the column commits and the
	// unparseable remainder becomes null with a warning.
	vals := []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "bad"}
	res := Coerce(rawCol("n", cells(vals...)...), config.Default())

	col, ok := res.Table.Cols[0].(*table.Int64Column)
	if !ok {
		t.Fatalf("got %T, want Int64Column", res.Table.Cols[0])
	}
	if !res.Table.Cols[0].IsNull(9) {
		t.Error("unparseable cell must become null")
	}
	if col.Values[0].Int64 != 1 {
		t.Errorf("Values[0] = %v", col.Values[0])
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "coerced to numeric") {
		t.Errorf("warnings = %v", res.Warnings)
	}
	if !strings.Contains(res.Warnings[0], "10.00%") {
		t.Errorf("warning must cite the unparsed share: %v", res.Warnings)
	}
}

func TestCoerceTimestampDayFirst(t *testing.T) {
	t.Parallel()

	res := Coerce(rawCol("d", cells("03/04/2024", "05/06/2024", "07/08/2024")...), config.Default())

	col, ok := res.Table.Cols[0].(*table.TimestampColumn)
	if !ok {
		t.Fatalf("got %T, want TimestampColumn", res.Table.Cols[0])
	}
	want := time.Date(2024, time.April, 3, 0, 0, 0, 0, time.UTC)
	if !col.Values[0].Time.Equal(want) {
		t.Errorf("ambiguous date parsed as %v, want day-first %v", col.Values[0].Time, want)
	}
}

func TestCoerceBooleanColumn(t *testing.T) {
	t.Parallel()

	res := Coerce(rawCol("b", cells("yes", "no", "TRUE", "n")...), config.Default())

	col, ok := res.Table.Cols[0].(*table.BooleanColumn)
	if !ok {
		t.Fatalf("got %T, want BooleanColumn", res.Table.Cols[0])
	}
	want := []bool{true, false, true, false}
	for i, w := range want {
		if col.Values[i].Bool != w {
			t.Errorf("Values[%d] = %v, want %v", i, col.Values[i].Bool, w)
		}
	}
}

// "1"/"0" columns are numeric, not boolean: numeric sits higher on the
// ladder and claims them first.
func TestCoerceOneZeroIsNumeric(t *testing.T) {
	t.Parallel()

	res := Coerce(rawCol("b", cells("1", "0", "1")...), config.Default())
	if _, ok := res.Table.Cols[0].(*table.Int64Column); !ok {
		t.Fatalf("got %T, want Int64Column", res.Table.Cols[0])
	}
}

func TestCoerceCategorical(t *testing.T) {
	t.Parallel()

	res := Coerce(rawCol("r", cells("north", "south", "north", "south", "north", "south", "north", "south")...), config.Default())

	col, ok := res.Table.Cols[0].(*table.CategoricalColumn)
	if !ok {
		t.Fatalf("got %T, want CategoricalColumn", res.Table.Cols[0])
	}
	// Levels keep first-seen order.
	if col.Levels[0] != "north" || col.Levels[1] != "south" {
		t.Errorf("levels = %v", col.Levels)
	}
	if col.Codes[1] != 1 || col.Codes[2] != 0 {
		t.Errorf("codes = %v", col.Codes)
	}
}

func TestCoerceHighCardinalityStaysText(t *testing.T) {
	t.Parallel()

	res := Coerce(rawCol("s", cells("a", "b", "c", "d")...), config.Default())
	if _, ok := res.Table.Cols[0].(*table.TextColumn); !ok {
		t.Fatalf("got %T, want TextColumn", res.Table.Cols[0])
	}
}

func TestCoerceSingleValueStaysText(t *testing.T) {
	t.Parallel()

	// Unique ratio is low but there is only one distinct value, which is
	// below the categorical distinct floor.
	res := Coerce(rawCol("s", cells("same", "same", "same", "same")...), config.Default())
	if _, ok := res.Table.Cols[0].(*table.TextColumn); !ok {
		t.Fatalf("got %T, want TextColumn", res.Table.Cols[0])
	}
}

func TestCoerceNullsCountAgainstRatio(t *testing.T) {
	t.Parallel()

	// 3 numbers, 2 nulls: 3/5 = 0.6 over the full length, so no numeric
	// commitment even though every non-null cell parses.
	res := Coerce(rawCol("n", cells("1", "2", "3", "<nil>", "<nil>")...), config.Default())
	if res.Table.Cols[0].Dtype() == "bigint" {
		t.Fatal("ratio denominator must be the full column length")
	}
}

func TestCoerceEmptyColumn(t *testing.T) {
	t.Parallel()

	res := Coerce(rawCol("e"), config.Default())
	if _, ok := res.Table.Cols[0].(*table.TextColumn); !ok {
		t.Fatalf("got %T, want TextColumn", res.Table.Cols[0])
	}
	if res.Table.Cols[0].Len() != 0 {
		t.Errorf("Len = %d", res.Table.Cols[0].Len())
	}
}

func TestParseBoolLoose(t *testing.T) {
	t.Parallel()

	truthy := []string{"true", "1", "yes", "y", " YES ", "Y"}
	for _, s := range truthy {
		if v, ok := parseBoolLoose(s); !ok || !v {
			t.Errorf("parseBoolLoose(%q) = %v, %v", s, v, ok)
		}
	}
	falsy := []string{"false", "0", "no", "n", "No"}
	for _, s := range falsy {
		if v, ok := parseBoolLoose(s); !ok || v {
			t.Errorf("parseBoolLoose(%q) = %v, %v", s, v, ok)
		}
	}
	for _, s := range []string{"", "maybe", "yep", "2"} {
		if _, ok := parseBoolLoose(s); ok {
			t.Errorf("parseBoolLoose(%q) accepted", s)
		}
	}
}

func TestParseTimestampLooseLayouts(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want time.Time
	}{
		{"2024-03-01", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"2024-03-01 13:30:00", time.Date(2024, 3, 1, 13, 30, 0, 0, time.UTC)},
		{"01.03.2024", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"2024/03/01", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range cases {
		got, ok := parseTimestampLoose(tt.in)
		if !ok || !got.Equal(tt.want) {
			t.Errorf("parseTimestampLoose(%q) = %v, %v", tt.in, got, ok)
		}
	}
	if _, ok := parseTimestampLoose("not a date"); ok {
		t.Error("junk accepted as timestamp")
	}
}
