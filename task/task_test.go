package task

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueuePushPopFIFO(t *testing.T) {
	q := NewQueue(8)
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		require.True(t, q.Push(&Task{Func: func(*Task) { order = append(order, i) }}))
	}
	for i := 0; i < 5; i++ {
		tk, ok := q.TryPop()
		require.True(t, ok)
		tk.Func(tk)
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)

	_, ok := q.TryPop()
	assert.False(t, ok)
}

func TestQueueFullReturnsFalse(t *testing.T) {
	q := NewQueue(2) // rounds up internally but capacity is still bounded
	ok1 := q.Push(&Task{Func: func(*Task) {}})
	ok2 := q.Push(&Task{Func: func(*Task) {}})
	require.True(t, ok1)
	require.True(t, ok2)
	assert.False(t, q.Push(&Task{Func: func(*Task) {}}))
}

func TestBundleForkJoin(t *testing.T) {
	ctx := NewContext(4, 64, 1<<16)
	ctx.Start()
	defer ctx.Shutdown()

	const n = 16
	inputs := make([]int, n)
	var mu sync.Mutex

	bundle := ctx.BundleSplitRange(func(tk *Task) {
		for i := tk.Range.Base; i < tk.Range.Base+tk.Range.Count; i++ {
			mu.Lock()
			inputs[i] = i
			mu.Unlock()
		}
	}, 4, n, nil)
	require.NotNil(t, bundle)
	bundle.Wait()

	for i := 0; i < n; i++ {
		assert.Equal(t, i, inputs[i])
	}
}

func TestBundleSplitRangeUnevenDivision(t *testing.T) {
	ctx := NewContext(2, 64, 1<<16)
	ctx.Start()
	defer ctx.Shutdown()

	var mu sync.Mutex
	var ranges []Range
	bundle := ctx.BundleSplitRange(func(tk *Task) {
		mu.Lock()
		ranges = append(ranges, tk.Range)
		mu.Unlock()
	}, 3, 10, nil)
	bundle.Wait()

	require.Len(t, ranges, 3)
	total := 0
	for _, r := range ranges {
		total += r.Count
	}
	assert.Equal(t, 10, total)
	// first 10%3=1 range gets the extra element
	assert.Equal(t, 4, ranges[0].Count)
}

func TestStreamDispatchWait(t *testing.T) {
	ctx := NewContext(3, 64, 1<<16)
	ctx.Start()
	defer ctx.Shutdown()

	s := NewStream()
	var counter int32
	var mu sync.Mutex
	for i := 0; i < 10; i++ {
		ctx.Dispatch(s, func(*Task) {
			mu.Lock()
			counter++
			mu.Unlock()
		}, nil)
	}
	s.Wait()
	assert.EqualValues(t, 10, counter)
}

func TestDrainAvailableRunsOnCallerGoroutine(t *testing.T) {
	ctx := NewContext(1, 64, 1<<16) // only worker 0, no goroutines spawned
	ran := false
	require.True(t, ctx.Queue.Push(&Task{Func: func(*Task) { ran = true }}))
	ctx.DrainAvailable()
	assert.True(t, ran)
}

func TestFrameClearFlushesWorkerArenaBeforeNextTask(t *testing.T) {
	ctx := NewContext(1, 64, 1<<16)
	w := ctx.Workers[0]
	w.MemFrame.Push(128)
	require.Equal(t, 128, w.MemFrame.Len())

	ctx.FrameClear()
	require.True(t, ctx.Queue.Push(&Task{Func: func(*Task) {}}))
	ctx.DrainAvailable()

	assert.Equal(t, 0, w.MemFrame.Len())
}

func TestShutdownWaitsForWorkers(t *testing.T) {
	ctx := NewContext(4, 64, 1<<12)
	ctx.Start()

	done := make(chan struct{})
	go func() {
		ctx.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not return")
	}
}
