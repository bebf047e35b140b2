// Package file implements a local filesystem-backed data source.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Local is a filesystem data source bound to one path. Repeated reads
// re-open the file, so every ReadAll observes the same content as long as
// the file is not rewritten concurrently.
type Local struct{ path string }

// NewLocal returns a Local source for the given path. The path is not
// touched until ReadAll.
func NewLocal(path string) *Local { return &Local{path: path} }

// Name returns the base name of the underlying path.
func (l *Local) Name() string { return filepath.Base(l.path) }

// ReadAll reads the whole file.
//
// Behavior:
//   - If the context is already canceled or past its deadline, ReadAll
//     returns the context error without touching the filesystem.
//   - Filesystem errors are wrapped with the path while preserving
//     errors.Is checks (e.g. errors.Is(err, os.ErrNotExist)).
func (l *Local) ReadAll(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	b, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", l.path, err)
	}
	return b, nil
}
