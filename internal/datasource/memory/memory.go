// Package memory implements an in-memory data source for uploaded or
// already-fetched content.
package memory

import (
	"context"
	"errors"
)

// ErrSealed is returned when a buffer has been sealed and can no longer be
// rewound for another decode attempt.
var ErrSealed = errors.New("memory source sealed")

// Buffer is an in-memory byte source with a name hint. Reads never consume
// the content; Reset exists for symmetry with stream-style callers that
// rewind between decode attempts.
type Buffer struct {
	name   string
	data   []byte
	sealed bool
}

// NewBuffer wraps data under the given name hint. The slice is not copied;
// the caller must not mutate it afterwards.
func NewBuffer(name string, data []byte) *Buffer {
	return &Buffer{name: name, data: data}
}

// Name returns the name hint supplied at construction.
func (b *Buffer) Name() string { return b.name }

// ReadAll returns the buffered content.
func (b *Buffer) ReadAll(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	if b.sealed {
		return nil, ErrSealed
	}
	return b.data, nil
}

// Reset rewinds the buffer. It fails only when the buffer was sealed.
func (b *Buffer) Reset() error {
	if b.sealed {
		return ErrSealed
	}
	return nil
}

// Seal releases the content reference and marks the buffer unreadable.
// Subsequent ReadAll and Reset calls fail with ErrSealed.
func (b *Buffer) Seal() {
	b.sealed = true
	b.data = nil
}
