// Package mssql implements storage.Repository on the go-mssqldb driver.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb"

	"tabular/internal/storage"
)

// Repo implements storage.Repository for SQL Server.
//
// SQL Server has no INSERT ... ON CONFLICT. Dedupe inserts use a SELECT ...
// WHERE NOT EXISTS per value row, which is idempotent without requiring a
// unique index (EnsureTable still creates one as a safety net against
// concurrent writers).
type Repo struct {
	db *sql.DB
}

func init() {
	storage.Register("mssql", New)
}

func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Close() { _ = r.db.Close() }

func (r *Repo) EnsureTable(ctx context.Context, spec storage.TableSpec) error {
	ddl, err := buildCreateSQL(spec)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", spec.Name, err)
	}
	return nil
}

func buildCreateSQL(spec storage.TableSpec) (string, error) {
	if spec.Name == "" {
		return "", fmt.Errorf("mssql: empty table name")
	}
	if len(spec.Columns) == 0 {
		return "", fmt.Errorf("mssql: table %s has no columns", spec.Name)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "IF OBJECT_ID(N'%s', N'U') IS NULL CREATE TABLE ", strings.ReplaceAll(spec.Name, "'", "''"))
	b.WriteString(mssqlIdent(spec.Name))
	b.WriteString(" (")
	for i, c := range spec.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(mssqlIdent(c.Name))
		b.WriteString(" ")
		if spec.DedupeOnHash && c.Name == storage.HashColumn {
			// Unique-indexable width; xxh3-128 hex is 32 chars.
			b.WriteString("NVARCHAR(64)")
			continue
		}
		b.WriteString(mssqlType(c.Type))
	}
	if spec.DedupeOnHash {
		b.WriteString(", UNIQUE (")
		b.WriteString(mssqlIdent(storage.HashColumn))
		b.WriteString(")")
	}
	b.WriteString(")")
	return b.String(), nil
}

func mssqlType(portable string) string {
	switch portable {
	case storage.TypeBigint:
		return "BIGINT"
	case storage.TypeFloat:
		return "FLOAT"
	case storage.TypeTimestamp:
		return "DATETIME2"
	case storage.TypeBool:
		return "BIT"
	default:
		return "NVARCHAR(4000)"
	}
}

// SQL Server caps parameters at 2100 per statement; stay under it.
const maxParams = 2000

func (r *Repo) InsertRows(ctx context.Context, table string, columns []string, rows [][]any, dedupeColumns []string) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(columns) == 0 {
		return 0, fmt.Errorf("mssql: insert into %s with no columns", table)
	}

	colPos := map[string]int{}
	for i, c := range columns {
		colPos[c] = i
	}
	for _, dc := range dedupeColumns {
		if _, ok := colPos[dc]; !ok {
			return 0, fmt.Errorf("mssql: dedupe column %q not present in columns", dc)
		}
	}

	maxRows := maxParams / len(columns)
	if maxRows < 1 {
		maxRows = 1
	}

	var total int64
	for start := 0; start < len(rows); start += maxRows {
		end := start + maxRows
		if end > len(rows) {
			end = len(rows)
		}
		part := rows[start:end]

		var q string
		var args []any
		if len(dedupeColumns) == 0 {
			q, args = buildInsertSQL(table, columns, part)
		} else {
			q, args = buildInsertNotExistsSQL(table, columns, part, dedupeColumns)
		}

		res, err := r.db.ExecContext(ctx, q, args...)
		if err != nil {
			return total, err
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

func buildInsertSQL(table string, columns []string, rows [][]any) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(mssqlIdent(table))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(mssqlIdent(c))
	}
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(columns))
	p := 1
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j := range columns {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "@p%d", p)
			args = append(args, row[j])
			p++
		}
		b.WriteString(")")
	}
	return b.String(), args
}

// buildInsertNotExistsSQL emits one INSERT ... SELECT ... WHERE NOT EXISTS
// per value row, joined into a single batch. Duplicate rows within the batch
// are also skipped because earlier inserts in the batch are visible to later
// NOT EXISTS checks.
func buildInsertNotExistsSQL(table string, columns []string, rows [][]any, dedupeColumns []string) (string, []any) {
	colPos := map[string]int{}
	for i, c := range columns {
		colPos[c] = i
	}

	var b strings.Builder
	args := make([]any, 0, len(rows)*len(columns))
	p := 1

	for _, row := range rows {
		b.WriteString("INSERT INTO ")
		b.WriteString(mssqlIdent(table))
		b.WriteString(" (")
		for i, c := range columns {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(mssqlIdent(c))
		}
		b.WriteString(") SELECT ")

		rowParams := make([]int, len(columns))
		for j := range columns {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "@p%d", p)
			rowParams[j] = p
			args = append(args, row[j])
			p++
		}

		b.WriteString(" WHERE NOT EXISTS (SELECT 1 FROM ")
		b.WriteString(mssqlIdent(table))
		b.WriteString(" WHERE ")
		for i, dc := range dedupeColumns {
			if i > 0 {
				b.WriteString(" AND ")
			}
			fmt.Fprintf(&b, "%s = @p%d", mssqlIdent(dc), rowParams[colPos[dc]])
		}
		b.WriteString(");\n")
	}
	return b.String(), args
}

func mssqlIdent(s string) string {
	return "[" + strings.ReplaceAll(s, "]", "]]") + "]"
}
