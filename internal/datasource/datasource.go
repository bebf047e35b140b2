// Package datasource defines the byte-source abstraction the ingestion
// pipeline reads from. A Source yields the complete raw content plus a name
// hint whose extension drives format dispatch. No interpretation of the
// bytes happens at this layer.
package datasource

import "context"

// Source supplies raw bytes from some origin (filesystem, memory, HTTP).
type Source interface {
	// Name returns the source's name hint, usually a filename whose
	// extension identifies the expected format. May be empty.
	Name() string
	// ReadAll returns the full content. Implementations must make repeated
	// calls yield identical bytes so the same content can be re-decoded
	// under different encoding hypotheses.
	ReadAll(ctx context.Context) ([]byte, error)
}
