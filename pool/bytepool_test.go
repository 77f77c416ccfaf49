package pool_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-http/pool"
)

func TestBytePoolBufferSize(t *testing.T) {
	bp := pool.NewBytePool(128)
	b := bp.GetBuffer()
	require.Len(t, *b, 128)
	bp.PutBuffer(b)

	again := bp.GetBuffer()
	require.Len(t, *again, 128)
}

func TestBytePoolDefaultSize(t *testing.T) {
	bp := pool.NewBytePool(0)
	require.Equal(t, pool.DefaultCopyBufferSize, bp.Size())
}

func TestBytePoolDropsForeignBuffers(t *testing.T) {
	bp := pool.NewBytePool(64)
	foreign := make([]byte, 16)
	bp.PutBuffer(&foreign)
	bp.PutBuffer(nil)
	require.Len(t, *bp.GetBuffer(), 64)
}

func TestSyncPoolResetOnPut(t *testing.T) {
	resets := 0
	sp := pool.NewSyncPool(func() []int { return make([]int, 0, 4) }, func([]int) { resets++ })
	sp.Put(sp.Get())
	require.Equal(t, 1, resets)
}
