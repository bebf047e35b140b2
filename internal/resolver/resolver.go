// Package resolver turns raw bytes believed to be delimited text into an
// untyped RawTable.
//
// The resolver is responsible for:
//   - Trial-decoding the bytes under a fixed priority of candidate encodings
//   - Reordering candidate delimiters by raw occurrence count
//   - Rejecting (encoding, delimiter) pairs that produce a single column or
//     inconsistent per-row field counts
//   - Falling back to per-line mixed-delimiter parsing when no single pair
//     parses the whole file consistently
//   - Pruning entirely empty rows and columns from whatever table survives
//
// All inference is best-effort: a rejected pair becomes a warning, never an
// error. Resolve fails only when every pair and the fallback produce nothing
// usable.
package resolver

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"runtime"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"tabular/internal/config"
	"tabular/internal/table"
)

const utf8BOM = "\xEF\xBB\xBF"

// FallbackSucceeded is the warning appended when per-line fallback parsing
// recovered a table after every single-delimiter trial failed. Callers key
// off it to count fallback parses.
const FallbackSucceeded = "Successfully parsed file with mixed delimiters using fallback method."

// candidate encodings in fixed priority order. UTF-8 is validated strictly;
// the single-byte charmaps never fail to decode, so they act as terminal
// fallbacks whose fitness is judged by the structural checks instead.
type namedEncoding struct {
	name string
	enc  encoding.Encoding // nil means strict UTF-8
}

var encodings = []namedEncoding{
	{name: "utf-8"},
	{name: "windows-1252", enc: charmap.Windows1252},
	{name: "iso-8859-1", enc: charmap.ISO8859_1},
}

// candidate delimiters in default priority order.
var delimiters = []rune{',', '\t', ';', '|'}

// trialResult is the outcome of parsing one (encoding, delimiter) pair.
type trialResult struct {
	header  []string
	rows    [][]*string
	ok      bool
	warning string
}

// Resolve parses data into a RawTable, returning the table, the warnings
// accumulated along the way, and an error only when no combination of
// encoding, delimiter, and fallback parsing produced a non-empty
// multi-column table.
//
// Trials are evaluated concurrently, but the winner is always the first
// surviving pair in (encoding, delimiter) priority order, and the warning
// log matches what a sequential scan would have produced.
func Resolve(ctx context.Context, data []byte, h config.Heuristics) (*table.RawTable, []string, error) {
	var warnings []string

	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil, fmt.Errorf("empty input")
	}

	// Decode once per encoding; failed decodes drop out of the trial set.
	type decoded struct {
		encName string
		text    string
	}
	var texts []decoded
	for _, ne := range encodings {
		text, err := decode(data, ne)
		if err != nil {
			continue
		}
		texts = append(texts, decoded{encName: ne.name, text: text})
	}
	if len(texts) == 0 {
		return nil, warnings, fmt.Errorf("no candidate encoding decodes the input")
	}

	// The true delimiter is usually also the most frequent candidate
	// character in the text, so reorder by raw occurrence count before
	// trial parsing. Counting uses the highest-priority decodable text.
	delims := reorderByCount(texts[0].text, delimiters)

	type trial struct {
		encName string
		text    string
		delim   rune
	}
	trials := make([]trial, 0, len(texts)*len(delims))
	for _, d := range texts {
		for _, delim := range delims {
			trials = append(trials, trial{encName: d.encName, text: d.text, delim: delim})
		}
	}

	// Trials are independent; evaluate them in parallel but keep the
	// first-success-in-priority-order semantics by selecting on index, not
	// completion order.
	results := make([]trialResult, len(trials))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, tr := range trials {
		i, tr := i, tr
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			results[i] = parseTrial(tr.text, tr.delim, tr.encName, h)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, warnings, err
	}

	winner := -1
	for i := range results {
		if results[i].ok {
			winner = i
			break
		}
	}

	if winner >= 0 {
		// Emit rejection warnings exactly as a sequential scan would have:
		// every attempt before the winner, nothing after.
		for i := 0; i < winner; i++ {
			if results[i].warning != "" {
				warnings = append(warnings, results[i].warning)
			}
		}
		raw := table.NewRaw(results[winner].header, results[winner].rows)
		warnings = append(warnings, pruneWithWarnings(raw)...)
		return raw, warnings, nil
	}

	for i := range results {
		if results[i].warning != "" {
			warnings = append(warnings, results[i].warning)
		}
	}

	// No single delimiter parsed the whole file; retry per line.
	warnings = append(warnings, "File appears to have inconsistent delimiters. Attempting fallback parsing.")
	header, rows, ok := parseFallback(texts[0].text, delims)
	if !ok {
		return nil, warnings, fmt.Errorf("no encoding/delimiter combination produced a usable table")
	}
	warnings = append(warnings, FallbackSucceeded)

	raw := table.NewRaw(header, rows)
	warnings = append(warnings, pruneWithWarnings(raw)...)
	return raw, warnings, nil
}

// decode interprets data under one candidate encoding. UTF-8 is validated
// byte-for-byte; charmap decoders accept any byte sequence.
func decode(data []byte, ne namedEncoding) (string, error) {
	if ne.enc == nil {
		if !utf8.Valid(data) {
			return "", fmt.Errorf("invalid utf-8")
		}
		return strings.TrimPrefix(string(data), utf8BOM), nil
	}
	out, err := ne.enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// reorderByCount sorts candidates that occur in text by descending count,
// then appends absent candidates in their original priority order. Ties keep
// priority order.
func reorderByCount(text string, cands []rune) []rune {
	counts := make(map[rune]int, len(cands))
	for _, d := range cands {
		counts[d] = strings.Count(text, string(d))
	}
	out := make([]rune, 0, len(cands))
	for _, d := range cands {
		if counts[d] > 0 {
			out = append(out, d)
		}
	}
	// Stable selection sort by count keeps priority order on ties.
	for i := 0; i < len(out); i++ {
		best := i
		for j := i + 1; j < len(out); j++ {
			if counts[out[j]] > counts[out[best]] {
				best = j
			}
		}
		if best != i {
			d := out[best]
			copy(out[i+1:best+1], out[i:best])
			out[i] = d
		}
	}
	for _, d := range cands {
		if counts[d] == 0 {
			out = append(out, d)
		}
	}
	return out
}

// parseTrial parses the decoded text with one delimiter and applies the two
// structural rejection checks. Parsing is tolerant (lazy quotes, variable
// field counts); fitness is judged afterwards.
func parseTrial(text string, delim rune, encName string, h config.Heuristics) trialResult {
	cr := csv.NewReader(strings.NewReader(text))
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var records [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return trialResult{warning: fmt.Sprintf(
				"Failed to load with delimiter %q and encoding '%s': %v.", delim, encName, err)}
		}
		records = append(records, rec)
	}

	if len(records) < 2 {
		return trialResult{warning: fmt.Sprintf(
			"Attempted to load with delimiter %q and encoding '%s', but the table was empty. Trying other options.",
			delim, encName)}
	}

	header := records[0]
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	header[0] = strings.TrimPrefix(header[0], utf8BOM)

	if len(header) == 1 {
		return trialResult{warning: fmt.Sprintf(
			"Attempted to load with delimiter %q and encoding '%s', but resulted in a single column. Trying other options.",
			delim, encName)}
	}

	rows := make([][]*string, 0, len(records)-1)
	var fieldCounts []float64
	for _, rec := range records[1:] {
		row := make([]*string, len(rec))
		n := 0
		for i := range rec {
			v := strings.TrimSpace(rec[i])
			if v == "" {
				continue
			}
			row[i] = &v
			n++
		}
		rows = append(rows, row)
		if n > 0 {
			fieldCounts = append(fieldCounts, float64(n))
		}
	}

	// High variance in per-row non-null field counts signals a wrong
	// delimiter or corrupt rows.
	if len(fieldCounts) > 1 && sampleStdDev(fieldCounts) > h.FieldStdDevLimit {
		return trialResult{warning: fmt.Sprintf(
			"Delimiter %q with encoding '%s' resulted in inconsistent column counts across rows. Trying other options.",
			delim, encName)}
	}

	return trialResult{header: header, rows: rows, ok: true}
}

// sampleStdDev returns the sample (n-1) standard deviation.
func sampleStdDev(xs []float64) float64 {
	n := float64(len(xs))
	if n < 2 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / n
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / (n - 1))
}

// pruneWithWarnings drops all-empty rows and columns and reports the counts.
func pruneWithWarnings(raw *table.RawTable) []string {
	droppedRows, droppedCols := raw.Prune()
	var out []string
	if droppedRows > 0 {
		out = append(out, fmt.Sprintf("Dropped %d entirely empty rows.", droppedRows))
	}
	if droppedCols > 0 {
		out = append(out, fmt.Sprintf("Dropped %d entirely empty columns.", droppedCols))
	}
	return out
}
