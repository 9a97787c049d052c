package native

import "bytes"

// DefaultBufferSize is the capacity of error and output buffers handed to
// the native side when none is configured.
const DefaultBufferSize = 1024

// MinBufferSize is the smallest accepted buffer capacity.
const MinBufferSize = 64

// Buffer is a fixed-capacity, caller-owned byte region the native side writes
// a NUL-terminated string into. Its contents are only meaningful after the
// call that received it returns; String copies them out.
type Buffer struct {
	b []byte
}

// NewBuffer allocates a zeroed buffer of the given capacity, clamped to
// MinBufferSize.
func NewBuffer(size int) *Buffer {
	if size < MinBufferSize {
		size = MinBufferSize
	}
	return &Buffer{b: make([]byte, size)}
}

// Cap returns the fixed capacity in bytes, including the terminator.
func (b *Buffer) Cap() int { return len(b.b) }

// Bytes exposes the raw region for a loader to pass by pointer. Callers must
// not retain it past the native call.
func (b *Buffer) Bytes() []byte { return b.b }

// String decodes the region up to the first NUL into an owned string.
func (b *Buffer) String() string {
	if i := bytes.IndexByte(b.b, 0); i >= 0 {
		return string(b.b[:i])
	}
	return string(b.b)
}

// WriteString stores s the way a well-behaved native writer would: truncated
// to Cap()-1 bytes and NUL-terminated. Used by in-process entry points.
func (b *Buffer) WriteString(s string) {
	n := copy(b.b[:len(b.b)-1], s)
	b.b[n] = 0
}

// Reset zeroes the region so it can be reused for another call.
func (b *Buffer) Reset() { clear(b.b) }
