// Package storage exports typed tables to SQL backends.
//
// The package defines a small backend-agnostic Repository interface plus a
// factory registry. Backend packages (sqlite, postgres, mssql) register
// themselves from init() and are selected by kind string at runtime, so the
// orchestrator never imports a driver directly.
package storage

import (
	"context"
	"fmt"
	"sync"
)

// Config selects and configures a storage backend.
//
// Edge cases:
//   - Kind must be non-empty and must match a registered backend kind.
//   - DSN is passed through to the backend factory; validation is
//     backend-specific.
type Config struct {
	Kind string
	DSN  string
}

// Repository is a backend-agnostic sink for typed tables.
//
// IMPORTANT: This interface is intentionally minimal and focused on the
// operations the export path needs. Each backend implements these semantics
// in its own idiomatic way (Postgres ON CONFLICT, SQLite OR IGNORE, SQL
// Server NOT EXISTS).
type Repository interface {
	// Close releases backend resources. Treat Close as "call once".
	Close()

	// EnsureTable creates the target table when it does not exist yet.
	// Repeated calls with the same spec are a no-op.
	EnsureTable(ctx context.Context, spec TableSpec) error

	// InsertRows bulk-inserts rows. When dedupeColumns is non-empty the
	// insert must be idempotent: rows whose dedupe columns collide with
	// existing rows are skipped, not errors. Returns the number of rows
	// actually written.
	InsertRows(ctx context.Context, table string, columns []string, rows [][]any, dedupeColumns []string) (int64, error)
}

// ---- backend factories ----

type factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	factoriesMu sync.RWMutex
	factories   = map[string]factory{}
)

// Register registers a backend under a kind (e.g. "postgres", "sqlite").
//
// Call Register from an init() function in a backend package. Registering
// the same kind more than once panics; this fails fast instead of allowing
// ambiguous backend selection.
func Register(kind string, f factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}

	factories[kind] = f
}

// New constructs a Repository using the registered backend factory.
//
// Errors:
//   - Returns an error if cfg.Kind is empty or unsupported.
//   - Returns whatever error the registered factory returns.
func New(ctx context.Context, cfg Config) (Repository, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing Kind")
	}

	factoriesMu.RLock()
	f := factories[cfg.Kind]
	factoriesMu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}
