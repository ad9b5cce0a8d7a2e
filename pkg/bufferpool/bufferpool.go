// Package bufferpool recycles the buffers used to render response bodies.
package bufferpool

import (
	"bytes"
	"sync"
)

const (
	defaultSize = 4 << 10
	// buffers grown past maxSize are dropped instead of pooled, so one large export
	// does not pin its memory forever.
	maxSize = 1 << 20
)

var pool = &sync.Pool{
	New: func() interface{} {
		return &Buffer{
			Buffer: bytes.NewBuffer(make([]byte, 0, defaultSize)),
		}
	},
}

type Buffer struct {
	*bytes.Buffer
}

// Release returns the Buffer to the pool.
//
// Callers must not retain references to the Buffer or its bytes after calling Release.
func (b *Buffer) Release() {
	if b.Cap() > maxSize {
		return
	}
	pool.Put(b)
}

// Get returns an empty Buffer from the pool.
func Get() *Buffer {
	buf := pool.Get().(*Buffer)
	buf.Reset()
	return buf
}
