// Package ingest orchestrates the full pipeline: read bytes from a source,
// resolve them into a raw table, coerce column types, classify roles, and
// detect orientation. The result is a typed table plus a Metadata record
// holding every warning the stages emitted, in call order.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"tabular/internal/classify"
	"tabular/internal/config"
	"tabular/internal/datasource"
	"tabular/internal/infer"
	"tabular/internal/metrics"
	"tabular/internal/resolver"
	"tabular/internal/spreadsheet"
	"tabular/internal/table"
)

// Sentinel errors. Callers classify failures with errors.Is; the wrapped
// message carries the detail.
var (
	// ErrSourceUnavailable: the source could not be read at all (missing
	// file, sealed buffer, network failure).
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrUnparsableSource: bytes were read but no strategy produced a
	// usable table.
	ErrUnparsableSource = errors.New("unparsable source")
)

// Engine runs the ingestion pipeline with a fixed set of heuristics.
type Engine struct {
	h config.Heuristics
}

// New returns an Engine. Zero-value heuristics are replaced by defaults so a
// literal Engine{} misconfiguration cannot silently disable every threshold.
func New(h config.Heuristics) *Engine {
	if h == (config.Heuristics{}) {
		h = config.Default()
	}
	return &Engine{h: h}
}

// Process ingests one source end to end.
//
// The extension of src.Name() selects the parsing strategy: .csv/.tsv/.txt
// go through the text resolver, .xlsx/.xls through the spreadsheet loader,
// and anything else is attempted as delimited text with a warning. Warnings
// from every stage accumulate on the returned Metadata in call order.
//
// Errors:
//   - ErrSourceUnavailable (wrapped) when the source cannot be read.
//   - ErrUnparsableSource (wrapped) when no strategy yields a table.
func (e *Engine) Process(ctx context.Context, src datasource.Source) (*table.TypedTable, *table.Metadata, error) {
	start := time.Now()
	data, err := src.ReadAll(ctx)
	metrics.RecordStage("read", err, time.Since(start))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, src.Name(), err)
	}

	meta := table.NewMetadata()

	ext := strings.ToLower(filepath.Ext(src.Name()))
	var raw *table.RawTable
	var warnings []string

	switch ext {
	case ".csv", ".tsv", ".txt":
		meta.FileType = textFileType(ext)
		raw, warnings, err = e.resolveText(ctx, data)
	case ".xlsx", ".xls":
		meta.FileType = spreadsheetFileType(ext)
		start = time.Now()
		raw, warnings, err = spreadsheet.Load(data)
		metrics.RecordStage("spreadsheet", err, time.Since(start))
	default:
		meta.FileType = table.FileCSVFallback
		meta.Warn(fmt.Sprintf("Unsupported file type detected: %s. Attempting to load as CSV.", ext))
		raw, warnings, err = e.resolveText(ctx, data)
	}

	for _, w := range warnings {
		meta.Warn(w)
		if w == resolver.FallbackSucceeded {
			metrics.RecordFallback()
		}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrUnparsableSource, src.Name(), err)
	}

	start = time.Now()
	res := infer.Coerce(raw, e.h)
	metrics.RecordStage("infer", nil, time.Since(start))
	meta.OriginalDtypes = res.OriginalDtypes
	meta.InferredDtypes = res.InferredDtypes
	for _, w := range res.Warnings {
		meta.Warn(w)
	}

	meta.ColumnRoles = classify.Roles(res.Table, e.h)
	meta.Orientation = classify.Orientation(res.Table, e.h)

	metrics.RecordFile(string(meta.FileType))
	metrics.RecordWarnings(len(meta.Warnings))

	return res.Table, meta, nil
}

func (e *Engine) resolveText(ctx context.Context, data []byte) (*table.RawTable, []string, error) {
	start := time.Now()
	raw, warnings, err := resolver.Resolve(ctx, data, e.h)
	metrics.RecordStage("resolve", err, time.Since(start))
	return raw, warnings, err
}

func textFileType(ext string) table.FileType {
	switch ext {
	case ".tsv":
		return table.FileTSV
	case ".txt":
		return table.FileTXT
	default:
		return table.FileCSV
	}
}

func spreadsheetFileType(ext string) table.FileType {
	if ext == ".xls" {
		return table.FileXLS
	}
	return table.FileXLSX
}
