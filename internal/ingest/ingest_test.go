package ingest

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"tabular/internal/config"
	"tabular/internal/datasource/file"
	"tabular/internal/datasource/memory"
	"tabular/internal/table"
)

func TestProcessCSVEndToEnd(t *testing.T) {
	t.Parallel()

	csv := strings.Join([]string{
		"id,region,amount,signup_date,active",
		"1,north,10.5,01.02.2024,yes",
		"2,south,20.0,02.02.2024,no",
		"3,east,30.25,03.02.2024,yes",
	}, "\n")

	e := New(config.Default())
	typed, meta, err := e.Process(context.Background(), memory.NewBuffer("orders.csv", []byte(csv)))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if meta.FileType != table.FileCSV {
		t.Errorf("FileType = %s, want csv", meta.FileType)
	}
	if typed.NumRows() != 3 || typed.NumCols() != 5 {
		t.Fatalf("got %dx%d, want 3x5", typed.NumRows(), typed.NumCols())
	}

	wantDtypes := map[string]string{
		"id":          "bigint",
		"region":      "text",
		"amount":      "float",
		"signup_date": "timestamp",
		"active":      "bool",
	}
	for name, want := range wantDtypes {
		if got := meta.InferredDtypes[name]; got != want {
			t.Errorf("InferredDtypes[%s] = %s, want %s", name, got, want)
		}
	}
	for name, got := range meta.OriginalDtypes {
		if got != "text" {
			t.Errorf("OriginalDtypes[%s] = %s, want text", name, got)
		}
	}

	if got := meta.ColumnRoles["signup_date"]; got != table.RoleDateTime {
		t.Errorf("signup_date role = %s", got)
	}
}

func TestProcessEmptySource(t *testing.T) {
	t.Parallel()

	e := New(config.Default())
	_, _, err := e.Process(context.Background(), memory.NewBuffer("empty.csv", nil))
	if !errors.Is(err, ErrUnparsableSource) {
		t.Fatalf("err = %v, want ErrUnparsableSource", err)
	}
}

func TestProcessMissingFile(t *testing.T) {
	t.Parallel()

	e := New(config.Default())
	_, _, err := e.Process(context.Background(), file.NewLocal("/no/such/path/data.csv"))
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("err = %v, want ErrSourceUnavailable", err)
	}
}

func TestProcessUnknownExtension(t *testing.T) {
	t.Parallel()

	src := memory.NewBuffer("export.dat", []byte("a,b\n1,2\n3,4"))
	e := New(config.Default())
	_, meta, err := e.Process(context.Background(), src)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if meta.FileType != table.FileCSVFallback {
		t.Errorf("FileType = %s, want csv_fallback", meta.FileType)
	}
	if len(meta.Warnings) == 0 || !strings.Contains(meta.Warnings[0], "Unsupported file type detected: .dat") {
		t.Errorf("warnings = %v, want leading unsupported-type warning", meta.Warnings)
	}
}

func TestProcessMixedDelimiterFallback(t *testing.T) {
	t.Parallel()

	// Semicolons outnumber commas, so the semicolon trial runs first and
	// fails on the comma rows; every single-delimiter trial fails and the
	// per-line fallback takes over.
	mixed := strings.Join([]string{
		"a;b;c",
		"1;2;3",
		"4,5,6",
		"7;8;9",
		"10,11,12",
	}, "\n")

	e := New(config.Default())
	typed, meta, err := e.Process(context.Background(), memory.NewBuffer("mixed.csv", []byte(mixed)))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if typed.NumRows() != 4 {
		t.Errorf("got %d rows, want 4", typed.NumRows())
	}
	found := false
	for _, w := range meta.Warnings {
		if strings.Contains(w, "fallback") {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("warnings = %v, want fallback notice", meta.Warnings)
	}
}

// Processing the same bytes twice must yield identical metadata; nothing in
// the pipeline may depend on goroutine scheduling or map iteration order.
func TestProcessIdempotent(t *testing.T) {
	t.Parallel()

	csv := "name,score\nalice,1\nbob,2\ncarol,3"
	e := New(config.Default())

	_, meta1, err := e.Process(context.Background(), memory.NewBuffer("s.csv", []byte(csv)))
	if err != nil {
		t.Fatalf("first Process: %v", err)
	}
	_, meta2, err := e.Process(context.Background(), memory.NewBuffer("s.csv", []byte(csv)))
	if err != nil {
		t.Fatalf("second Process: %v", err)
	}

	if !reflect.DeepEqual(meta1, meta2) {
		t.Errorf("metadata differs across identical runs:\n%+v\n%+v", meta1, meta2)
	}
}

func TestNewDefaultsZeroHeuristics(t *testing.T) {
	t.Parallel()

	e := New(config.Heuristics{})
	if e.h != config.Default() {
		t.Error("zero heuristics must be replaced with defaults")
	}
}
