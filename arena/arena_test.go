package arena

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArenaPushAndFlush(t *testing.T) {
	a := New(64)
	b1 := a.Push(32)
	require.NotNil(t, b1)
	assert.Equal(t, 32, a.Len())

	b2 := a.Push(40)
	assert.Nil(t, b2, "exhausted arena must return nil, never abort")

	a.Flush()
	assert.Equal(t, 0, a.Len())
	b3 := a.Push(32)
	require.NotNil(t, b3)
}

func TestArenaPushAligned(t *testing.T) {
	a := New(64)
	a.Push(1)
	b := a.PushAligned(8, 8)
	require.NotNil(t, b)
	assert.Equal(t, 0, (a.Len()-8)%8)
}

func TestArenaRecordRestore(t *testing.T) {
	a := New(128)
	a.Push(16)
	a.PushRecord()
	a.Push(16)
	a.Push(16)
	assert.Equal(t, 48, a.Len())
	a.PopRecord()
	assert.Equal(t, 16, a.Len())
}

func TestArenaPopRecordNoOpWithoutPush(t *testing.T) {
	a := New(16)
	a.PopRecord()
	assert.Equal(t, 0, a.Len())
}

func TestBlockPoolAllocFree(t *testing.T) {
	p := NewBlockPool(BlockSize256B)
	b := p.Alloc()
	assert.Len(t, b, BlockSize256B)
	p.Free(b)
	b2 := p.Alloc()
	assert.Len(t, b2, BlockSize256B)
}

// S5 — concurrent alloc/free under contention: every thread's private
// list ends up empty and no block is observed aliased between holders.
func TestBlockPoolConcurrentRoundTrip(t *testing.T) {
	const goroutines = 8
	const iterations = 2000
	p := NewBlockPool(BlockSize256B)
	p.Grow(goroutines * 4)

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var held [][]byte
			for i := 0; i < iterations; i++ {
				if len(held) == 0 || i%2 == 0 {
					held = append(held, p.Alloc())
				} else {
					last := len(held) - 1
					p.Free(held[last])
					held = held[:last]
				}
			}
			for _, b := range held {
				p.Free(b)
			}
		}()
	}
	wg.Wait()
}
