// File: pool/bytepool.go
// Author: momentics <momentics@gmail.com>

package pool

// DefaultCopyBufferSize is the chunk size used when streaming response bodies.
const DefaultCopyBufferSize = 32 << 10

// BytePool hands out fixed-size scratch buffers.
type BytePool struct {
	p    *SyncPool[*[]byte]
	size int
}

// NewBytePool creates a pool of buffers of the given size.
func NewBytePool(size int) *BytePool {
	if size <= 0 {
		size = DefaultCopyBufferSize
	}
	return &BytePool{
		p: NewSyncPool(func() *[]byte {
			b := make([]byte, size)
			return &b
		}, nil),
		size: size,
	}
}

// Size returns the length of every buffer in the pool.
func (b *BytePool) Size() int { return b.size }

// GetBuffer returns a buffer from the pool.
func (b *BytePool) GetBuffer() *[]byte {
	return b.p.Get()
}

// PutBuffer returns a buffer to the pool. Buffers of a foreign size are dropped.
func (b *BytePool) PutBuffer(buf *[]byte) {
	if buf == nil || len(*buf) != b.size {
		return
	}
	b.p.Put(buf)
}
