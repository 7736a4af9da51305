// Package bufferpool recycles the byte buffers used to format log lines.
package bufferpool

import (
	"bytes"
	"sync"
)

// 512 B fits a typical console line with a handful of attributes.
const initialSize = 512

// Buffers above this capacity are dropped instead of pooled.
const maxPooledSize = 64 << 10

var pool = sync.Pool{
	New: func() any {
		return &Buffer{Buffer: bytes.NewBuffer(make([]byte, 0, initialSize))}
	},
}

type Buffer struct {
	*bytes.Buffer
}

// Get returns an empty buffer from the pool.
func Get() *Buffer {
	buf := pool.Get().(*Buffer)
	buf.Reset()
	return buf
}

// Free returns the buffer to the pool. Callers must not use it afterwards.
func (b *Buffer) Free() {
	if b.Cap() > maxPooledSize {
		return
	}
	pool.Put(b)
}
