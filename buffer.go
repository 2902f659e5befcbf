package unpack

import (
	"sync"
	"sync/atomic"
)

// DefaultBufferSize is the capacity of buffers from a PoolAllocator created
// with a non-positive size.
const DefaultBufferSize = 32 << 10

// Buffer is a fixed-capacity chunk handed out by an Allocator.
type Buffer struct {
	data    []byte
	n       int
	release func(*Buffer)
}

// NewBuffer returns an unpooled buffer with the given capacity.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{data: make([]byte, capacity)}
}

// Bytes returns the filled portion of the buffer.
func (b *Buffer) Bytes() []byte {
	return b.data[:b.n]
}

// Len returns the number of filled bytes.
func (b *Buffer) Len() int {
	return b.n
}

// Cap returns the buffer capacity.
func (b *Buffer) Cap() int {
	return len(b.data)
}

// Release returns the buffer to its allocator. Calling Release more than
// once has no effect. The buffer must not be used afterwards.
func (b *Buffer) Release() {
	if b.release != nil {
		release := b.release
		b.release = nil
		release(b)
	}
}

// Allocator hands out buffers for FileInput.Poll.
type Allocator interface {
	Allocate() *Buffer
}

// PoolAllocator recycles fixed-capacity buffers. It is safe for concurrent use.
type PoolAllocator struct {
	size        int
	pool        sync.Pool
	outstanding atomic.Int64
}

// NewPoolAllocator returns an allocator of buffers with the given capacity.
func NewPoolAllocator(size int) *PoolAllocator {
	if size <= 0 {
		size = DefaultBufferSize
	}
	a := &PoolAllocator{size: size}
	a.pool.New = func() any {
		buf := make([]byte, a.size)
		return &buf
	}
	return a
}

// Allocate implements Allocator.
func (a *PoolAllocator) Allocate() *Buffer {
	a.outstanding.Add(1)
	data, _ := a.pool.Get().(*[]byte)
	return &Buffer{data: *data, release: a.put}
}

// Outstanding returns the number of buffers allocated and not yet released.
func (a *PoolAllocator) Outstanding() int64 {
	return a.outstanding.Load()
}

func (a *PoolAllocator) put(b *Buffer) {
	a.outstanding.Add(-1)
	data := b.data
	b.data, b.n = nil, 0
	a.pool.Put(&data)
}
