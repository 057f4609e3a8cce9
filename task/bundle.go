package task

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

var backgroundCtx = context.Background()

// Bundle is a fork/join group: N tasks posted together, with a
// completion semaphore posted once by whichever task's completion
// brings tasksLeft to zero (spec §4.H, §5: "all writes by all member
// tasks happen-before the bundle semaphore wait returns").
type Bundle struct {
	tasksLeft atomic.Int32
	completed *semaphore.Weighted
	Tasks     []*Task
}

// newBundle creates a bundle whose completion semaphore starts
// unsignaled: golang.org/x/sync/semaphore.Weighted has no zero-start
// constructor, so the only unit of a NewWeighted(1) is immediately
// (and always successfully, since nothing contends yet) acquired here
// to emulate the original's semaphore_init(sem, 0).
func newBundle() *Bundle {
	b := &Bundle{completed: semaphore.NewWeighted(1)}
	_ = b.completed.Acquire(backgroundCtx, 1)
	return b
}

func (b *Bundle) taskDone() {
	if b.tasksLeft.Add(-1) == 0 {
		b.completed.Release(1)
	}
}

// BundleSplitRange partitions a conceptual input of inputCount
// elements into at most splitCount contiguous ranges (the first
// inputCount%splitCount ranges get one extra element), posts one task
// per range sharing sharedArgs, and returns the Bundle the caller
// waits on. Each task's Range describes its slice of the original
// input by element offset/count; the task function indexes the
// caller's own backing slice with it.
func (c *Context) BundleSplitRange(fn func(t *Task), splitCount int, inputCount int, sharedArgs any) *Bundle {
	if splitCount <= 0 {
		splitCount = 1
	}
	perRange := inputCount / splitCount
	extra := inputCount % splitCount
	splits := splitCount
	if perRange == 0 {
		splits = extra
	}
	if splits == 0 {
		return nil
	}

	bundle := newBundle()
	bundle.Tasks = make([]*Task, splits)
	bundle.tasksLeft.Store(int32(splits))

	offset := 0
	for i := 0; i < splits; i++ {
		count := perRange
		if extra > 0 {
			extra--
			count++
		}
		t := &Task{
			Func:      fn,
			Input:     sharedArgs,
			Range:     Range{Base: offset, Count: count},
			BatchType: BatchBundle,
			Batch:     bundle,
		}
		bundle.Tasks[i] = t
		offset += count
		c.Queue.Push(t)
	}
	return bundle
}

// Wait blocks until every task in the bundle has completed.
func (b *Bundle) Wait() {
	_ = b.completed.Acquire(backgroundCtx, 1)
	b.completed.Release(1) // re-arm: Acquire(1) on a weighted(1) sem is one-shot per completion
}

// Release forcibly marks the bundle complete, for error/shutdown
// paths that must stop waiting on tasks that will never finish.
func (b *Bundle) Release() {
	if b.tasksLeft.Swap(0) > 0 {
		b.completed.Release(1)
	}
}
