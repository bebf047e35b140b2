// Command ingest loads one tabular source, infers column types and roles,
// and prints a metadata report with an optional data preview.
//
// The source may be a local file path (-file) or an http(s) URL (-url).
// Format is chosen by extension: .csv/.tsv/.txt parse as delimited text,
// .xlsx/.xls through the spreadsheet loader, and anything else is attempted
// as delimited text with a warning recorded in the metadata.
//
// Output modes
//
//   - Default: JSON report (metadata + preview rows) to stdout.
//   - -text: human-readable text report instead of JSON.
//
// Heuristic thresholds (type-ratio, identifier uniqueness, orientation
// shares, ...) can be overridden with a JSON file via -heuristics; omitted
// fields keep their defaults.
//
// # Export
//
// With -store the typed table is also written to a database. The backend is
// selected with -backend (postgres|mssql|sqlite) and the DSN is passed
// through as-is. Column names are normalized to backend-safe identifiers.
// Unless -no-dedupe is set, a row_hash column makes re-running the same file
// a no-op instead of duplicating rows.
//
// # Metrics
//
// With -dd-metrics, pipeline counters and stage latencies are submitted to
// Datadog via the official client; authentication comes from the standard
// DD_API_KEY/DD_APP_KEY environment variables.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"tabular/internal/config"
	"tabular/internal/datasource"
	"tabular/internal/datasource/file"
	"tabular/internal/datasource/httpds"
	"tabular/internal/ingest"
	"tabular/internal/metrics"
	"tabular/internal/metrics/datadog"
	"tabular/internal/storage"
	_ "tabular/internal/storage/mssql"
	_ "tabular/internal/storage/postgres"
	_ "tabular/internal/storage/sqlite"
	"tabular/internal/table"
)

func main() {
	var (
		flagFile = flag.String("file", "", "Path of the source file (CSV, TSV, TXT, XLSX)")
		flagURL  = flag.String("url", "", "http(s) URL of the source file (alternative to -file)")

		flagHeuristics = flag.String("heuristics", "", "Path to a JSON file overriding heuristic thresholds")

		flagText    = flag.Bool("text", false, "Print a text report instead of JSON")
		flagPretty  = flag.Bool("pretty", true, "Pretty-print JSON output")
		flagPreview = flag.Int("preview", 5, "Number of data rows to include in the report")

		flagTimeout = flag.Duration("timeout", 60*time.Second, "Overall run timeout")

		// HTTP source knobs.
		flagMaxBytes = flag.Int("max-bytes", 8<<20, "Maximum bytes to fetch from a URL source")
		flagInsecure = flag.Bool("allow-insecure", false, "Skip TLS verification for URL sources")

		// Export knobs.
		flagStore    = flag.String("store", "", "DSN to export the typed table to (enables export)")
		flagBackend  = flag.String("backend", "postgres", "Storage backend: postgres|mssql|sqlite")
		flagTable    = flag.String("table", "", "Target table name; defaults to the normalized source name")
		flagNoDedupe = flag.Bool("no-dedupe", false, "Disable the row_hash dedupe column on export")

		// Metrics knobs.
		flagDDMetrics = flag.Bool("dd-metrics", false, "Submit pipeline metrics to Datadog")
		flagDDJob     = flag.String("dd-job", "ingest", "Datadog job tag")
		flagDDTags    = flag.String("dd-tags", "", "Extra Datadog tags, comma-separated (e.g. env:prod,team:data)")
	)
	flag.Parse()

	if (*flagFile == "") == (*flagURL == "") {
		fmt.Fprintln(os.Stderr, "exactly one of -file or -url is required")
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *flagTimeout)
	defer cancel()

	if *flagDDMetrics {
		backend, err := datadog.NewBackend(ctx, datadog.Options{
			JobName: *flagDDJob,
			Tags:    datadog.ParseTagsCSV(*flagDDTags),
		})
		if err != nil {
			log.Fatalf("datadog: %v", err)
		}
		metrics.SetBackend(backend)
		defer func() {
			if err := backend.Close(); err != nil {
				log.Printf("datadog flush: %v", err)
			}
		}()
	}

	h := config.Default()
	if *flagHeuristics != "" {
		var err error
		h, err = config.Load(*flagHeuristics)
		if err != nil {
			log.Fatalf("heuristics: %v", err)
		}
	}

	src := buildSource(*flagFile, *flagURL, *flagMaxBytes, *flagInsecure)

	typed, meta, err := ingest.New(h).Process(ctx, src)
	if err != nil {
		log.Fatalf("ingest: %v", err)
	}

	if *flagStore != "" {
		if err := export(ctx, typed, src.Name(), *flagBackend, *flagStore, *flagTable, !*flagNoDedupe); err != nil {
			log.Fatalf("export: %v", err)
		}
	}

	if *flagText {
		printText(os.Stdout, typed, meta, *flagPreview)
		return
	}
	if err := printJSON(os.Stdout, typed, meta, *flagPreview, *flagPretty); err != nil {
		log.Fatalf("encode report: %v", err)
	}
}

func buildSource(path, rawURL string, maxBytes int, insecure bool) datasource.Source {
	if path != "" {
		return file.NewLocal(path)
	}
	return httpds.NewRemote(rawURL, httpds.Config{
		MaxBytes:           maxBytes,
		InsecureSkipVerify: insecure,
	})
}

func export(ctx context.Context, typed *table.TypedTable, sourceName, backend, dsn, tableName string, dedupe bool) error {
	repo, err := storage.New(ctx, storage.Config{Kind: backend, DSN: dsn})
	if err != nil {
		return err
	}
	defer repo.Close()

	name := tableName
	if name == "" {
		name = trimExt(sourceName)
	}

	spec := storage.SpecFor(name, typed, dedupe)
	n, err := storage.Export(ctx, repo, spec, typed)
	if err != nil {
		return err
	}
	log.Printf("exported %d rows to %s.%s", n, backend, spec.Name)
	return nil
}

func trimExt(name string) string {
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		return name[:i]
	}
	return name
}

// report is the JSON output shape: the full metadata record plus a bounded
// preview of typed values (nulls encode as JSON null).
type report struct {
	Source  string          `json:"source"`
	Rows    int             `json:"rows"`
	Columns []string        `json:"columns"`
	Meta    *table.Metadata `json:"metadata"`
	Preview [][]any         `json:"preview,omitempty"`
}

func buildReport(typed *table.TypedTable, meta *table.Metadata, preview int) report {
	r := report{
		Rows: typed.NumRows(),
		Meta: meta,
	}
	for _, c := range typed.Cols {
		r.Columns = append(r.Columns, c.Name())
	}

	n := preview
	if n > typed.NumRows() {
		n = typed.NumRows()
	}
	for i := 0; i < n; i++ {
		row := make([]any, 0, len(typed.Cols))
		for _, c := range typed.Cols {
			row = append(row, c.Value(i))
		}
		r.Preview = append(r.Preview, row)
	}
	return r
}

func printJSON(w *os.File, typed *table.TypedTable, meta *table.Metadata, preview int, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(buildReport(typed, meta, preview))
}

func printText(w *os.File, typed *table.TypedTable, meta *table.Metadata, preview int) {
	fmt.Fprintf(w, "file_type:   %s\n", meta.FileType)
	fmt.Fprintf(w, "orientation: %s\n", meta.Orientation)
	fmt.Fprintf(w, "rows:        %d\n", typed.NumRows())
	fmt.Fprintln(w, "columns:")
	for _, c := range typed.Cols {
		fmt.Fprintf(w, "  %-24s %-12s %s\n", c.Name(), c.Dtype(), meta.ColumnRoles[c.Name()])
	}
	if len(meta.Warnings) > 0 {
		fmt.Fprintln(w, "warnings:")
		for _, warn := range meta.Warnings {
			fmt.Fprintf(w, "  - %s\n", warn)
		}
	}

	n := preview
	if n > typed.NumRows() {
		n = typed.NumRows()
	}
	if n > 0 {
		fmt.Fprintln(w, "preview:")
		for i := 0; i < n; i++ {
			parts := make([]string, 0, len(typed.Cols))
			for _, c := range typed.Cols {
				v := c.Value(i)
				if v == nil {
					parts = append(parts, "<null>")
					continue
				}
				parts = append(parts, fmt.Sprint(v))
			}
			fmt.Fprintf(w, "  %s\n", strings.Join(parts, " | "))
		}
	}
}
