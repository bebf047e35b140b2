// Package infer implements per-column type inference and coercion.
//
// For each column, candidate types are evaluated in a fixed ladder — numeric,
// timestamp, boolean, then categorical/text — and the column commits to the
// first candidate whose parse-success ratio clears the configured threshold.
// Ratios are computed over the full column length, so nulls count against
// every candidate. A cell that fails coercion under the committed type
// becomes null; coercion never raises.
package infer

import (
	"database/sql"
	"fmt"
	"math"
	"strconv"
	"strings"

	"tabular/internal/config"
	"tabular/internal/table"
)

// Result carries the typed table plus the decision record for each column.
type Result struct {
	Table          *table.TypedTable
	OriginalDtypes map[string]string
	InferredDtypes map[string]string
	Warnings       []string
}

// Coerce types every column of raw according to the heuristic ladder.
// Row count and row order are preserved exactly.
func Coerce(raw *table.RawTable, h config.Heuristics) Result {
	res := Result{
		Table:          &table.TypedTable{Cols: make([]table.Column, 0, raw.NumCols())},
		OriginalDtypes: make(map[string]string, raw.NumCols()),
		InferredDtypes: make(map[string]string, raw.NumCols()),
	}

	for i := range raw.Cols {
		col := coerceColumn(&raw.Cols[i], h, &res.Warnings)
		res.Table.Cols = append(res.Table.Cols, col)
		res.OriginalDtypes[col.Name()] = "text"
		res.InferredDtypes[col.Name()] = col.Dtype()
	}
	return res
}

func coerceColumn(rc *table.RawColumn, h config.Heuristics, warnings *[]string) table.Column {
	n := len(rc.Cells)
	if n == 0 {
		return &table.TextColumn{ColName: rc.Name}
	}

	if col, ratio, ok := tryNumeric(rc, h); ok {
		warnPartial(warnings, rc.Name, "numeric", ratio)
		return col
	}
	if col, ratio, ok := tryTimestamp(rc, h); ok {
		if ratio < 1.0 {
			*warnings = append(*warnings, fmt.Sprintf(
				"Column '%s' was coerced to timestamp, but %.2f%% of values were unparseable or in inconsistent formats.",
				rc.Name, 100*(1-ratio)))
		}
		return col
	}
	if col, ratio, ok := tryBoolean(rc, h); ok {
		warnPartial(warnings, rc.Name, "boolean", ratio)
		return col
	}
	return categoricalOrText(rc, h)
}

func warnPartial(warnings *[]string, name, kind string, ratio float64) {
	if ratio < 1.0 {
		*warnings = append(*warnings, fmt.Sprintf(
			"Column '%s' was coerced to %s, but %.2f%% of values were unparseable.",
			name, kind, 100*(1-ratio)))
	}
}

// parsedNumber is one successfully parsed numeric cell.
type parsedNumber struct {
	f        float64
	i        int64
	integral bool
}

// parseNumber accepts integer and floating-point literals. Integer parses
// keep full int64 precision; float parses are checked for a zero fractional
// part so "1.0" can still participate in an integer column.
func parseNumber(s string) (parsedNumber, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return parsedNumber{}, false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return parsedNumber{f: float64(i), i: i, integral: true}, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return parsedNumber{}, false
	}
	integral := f == math.Trunc(f) && f >= math.MinInt64 && f <= math.MaxInt64
	return parsedNumber{f: f, i: int64(f), integral: integral}, true
}

func tryNumeric(rc *table.RawColumn, h config.Heuristics) (table.Column, float64, bool) {
	n := len(rc.Cells)
	parsed := make([]*parsedNumber, n)
	hits := 0
	allIntegral := true
	for i, cell := range rc.Cells {
		if cell == nil {
			continue
		}
		p, ok := parseNumber(*cell)
		if !ok {
			continue
		}
		parsed[i] = &p
		hits++
		if !p.integral {
			allIntegral = false
		}
	}

	ratio := float64(hits) / float64(n)
	if ratio <= h.TypeRatio {
		return nil, 0, false
	}

	if allIntegral {
		col := &table.Int64Column{ColName: rc.Name, Values: make([]sql.NullInt64, n)}
		for i, p := range parsed {
			if p != nil {
				col.Values[i] = sql.NullInt64{Int64: p.i, Valid: true}
			}
		}
		return col, ratio, true
	}
	col := &table.Float64Column{ColName: rc.Name, Values: make([]sql.NullFloat64, n)}
	for i, p := range parsed {
		if p != nil {
			col.Values[i] = sql.NullFloat64{Float64: p.f, Valid: true}
		}
	}
	return col, ratio, true
}

func tryTimestamp(rc *table.RawColumn, h config.Heuristics) (table.Column, float64, bool) {
	n := len(rc.Cells)
	col := &table.TimestampColumn{ColName: rc.Name, Values: make([]sql.NullTime, n)}
	hits := 0
	for i, cell := range rc.Cells {
		if cell == nil {
			continue
		}
		if t, ok := parseTimestampLoose(*cell); ok {
			col.Values[i] = sql.NullTime{Time: t, Valid: true}
			hits++
		}
	}
	ratio := float64(hits) / float64(n)
	if ratio <= h.TypeRatio {
		return nil, 0, false
	}
	return col, ratio, true
}

func tryBoolean(rc *table.RawColumn, h config.Heuristics) (table.Column, float64, bool) {
	n := len(rc.Cells)
	col := &table.BooleanColumn{ColName: rc.Name, Values: make([]sql.NullBool, n)}
	hits := 0
	for i, cell := range rc.Cells {
		if cell == nil {
			continue
		}
		if b, ok := parseBoolLoose(*cell); ok {
			col.Values[i] = sql.NullBool{Bool: b, Valid: true}
			hits++
		}
	}
	ratio := float64(hits) / float64(n)
	if ratio <= h.TypeRatio {
		return nil, 0, false
	}
	return col, ratio, true
}

// categoricalOrText is the terminal rung: low-cardinality columns become
// categorical (levels in first-seen order), everything else stays text.
func categoricalOrText(rc *table.RawColumn, h config.Heuristics) table.Column {
	n := len(rc.Cells)

	levels := make([]string, 0, 16)
	codeOf := make(map[string]int, 16)
	for _, cell := range rc.Cells {
		if cell == nil {
			continue
		}
		if _, ok := codeOf[*cell]; !ok {
			codeOf[*cell] = len(levels)
			levels = append(levels, *cell)
		}
	}

	uniqueRatio := float64(len(levels)) / float64(n)
	if uniqueRatio < h.CategoricalUniqueRatio && len(levels) >= h.CategoricalMinDistinct {
		col := &table.CategoricalColumn{ColName: rc.Name, Levels: levels, Codes: make([]int, n)}
		for i, cell := range rc.Cells {
			if cell == nil {
				col.Codes[i] = -1
				continue
			}
			col.Codes[i] = codeOf[*cell]
		}
		return col
	}

	col := &table.TextColumn{ColName: rc.Name, Values: make([]sql.NullString, n)}
	for i, cell := range rc.Cells {
		if cell != nil {
			col.Values[i] = sql.NullString{String: *cell, Valid: true}
		}
	}
	return col
}
