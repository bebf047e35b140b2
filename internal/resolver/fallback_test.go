package resolver

import (
	"reflect"
	"testing"
)

var allDelims = []rune{',', '\t', ';', '|'}

func TestParseFallbackMixedRows(t *testing.T) {
	t.Parallel()

	header, rows, ok := parseFallback("a;b;c\n1;2;3\n4,5,6", allDelims)
	if !ok {
		t.Fatal("parseFallback failed")
	}
	if !reflect.DeepEqual(header, []string{"a", "b", "c"}) {
		t.Errorf("header = %v", header)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows", len(rows))
	}
	if *rows[1][0] != "4" || *rows[1][2] != "6" {
		t.Errorf("alternate-delimiter row not split: %v", rows[1])
	}
}

func TestParseFallbackKeepsUnmatchedLineWhole(t *testing.T) {
	t.Parallel()

	_, rows, ok := parseFallback("a;b;c\n1;2;3\nno delimiters here", allDelims)
	if !ok {
		t.Fatal("parseFallback failed")
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows", len(rows))
	}
	if len(rows[1]) != 1 || *rows[1][0] != "no delimiters here" {
		t.Errorf("unmatched line must be kept as a single field: %v", rows[1])
	}
}

func TestParseFallbackRejectsDegenerateInput(t *testing.T) {
	t.Parallel()

	if _, _, ok := parseFallback("only-header;x", allDelims); ok {
		t.Error("single line must not fall back")
	}
	if _, _, ok := parseFallback("no delims\nanywhere", allDelims); ok {
		t.Error("delimiter-free header must not fall back")
	}
}

func TestSplitLinesHandlesCRLF(t *testing.T) {
	t.Parallel()

	got := splitLines("a,b\r\n1,2\r\n")
	if !reflect.DeepEqual(got, []string{"a,b", "1,2"}) {
		t.Errorf("splitLines = %q", got)
	}
}
