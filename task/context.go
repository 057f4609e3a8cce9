package task

import (
	"context"
	"sync"
)

// Context is the task system's process-wide state: the bounded
// queue and the fixed worker table. Each BundleSplitRange call
// creates its own Bundle. Worker 0 is
// reserved for the caller's own thread (the main/render thread); it
// never runs Context's goroutine loop.
type Context struct {
	Queue   *Queue
	Workers []*Worker

	wg  sync.WaitGroup
	ctx context.Context
	cancel context.CancelFunc
}

// NewContext creates worker_count workers (index 0 reserved for the
// caller) sharing a queue of the given capacity, each with its own
// frameArenaSize-byte per-frame arena (spec §4.H: "per-worker arenas
// that outlive a single Arena... reset once per frame").
func NewContext(workerCount, queueCapacity, frameArenaSize int) *Context {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Context{
		Queue:  NewQueue(queueCapacity),
		ctx:    ctx,
		cancel: cancel,
	}
	for i := 0; i < workerCount; i++ {
		c.Workers = append(c.Workers, newWorker(i, frameArenaSize))
	}
	return c
}

// Start launches goroutines for workers 1..N-1. Worker 0 (the main
// thread) never gets a goroutine; the caller drives it explicitly via
// DrainAvailable between frames, matching
// task_main_master_run_available_jobs.
func (c *Context) Start() {
	for i := 1; i < len(c.Workers); i++ {
		c.wg.Add(1)
		w := c.Workers[i]
		go func() {
			defer c.wg.Done()
			c.workerLoop(w)
		}()
	}
}

// workerLoop mirrors task_main: plow through every immediately
// available task, then block on the queue's semaphore once it's
// empty. Cancellation only unblocks an idle wait; an in-flight task
// always runs to completion (spec §5: "tasks cannot be cancelled").
func (c *Context) workerLoop(w *Worker) {
	for {
		for {
			t, ok := c.Queue.TryPop()
			if !ok {
				break
			}
			t.run(w)
		}
		t, err := c.Queue.Pop(c.ctx)
		if err != nil {
			return // context cancelled while idle: shutdown
		}
		t.run(w)
	}
}

// DrainAvailable runs every task currently queued using Worker 0,
// without blocking. The caller (the main/render thread) invokes this
// between frame-pipeline stages to steal work the way worker 0 does
// in the original.
func (c *Context) DrainAvailable() {
	w := c.Workers[0]
	for {
		t, ok := c.Queue.TryPop()
		if !ok {
			return
		}
		t.run(w)
	}
}

// FrameClear arms every worker's mem_frame_clear flag; each worker
// flushes its own arena the next time it runs a task, never
// synchronously from this call (spec §4.H, §5: "workers may only
// write into their own per-worker arena").
func (c *Context) FrameClear() {
	for _, w := range c.Workers {
		w.requestFrameClear()
	}
}

// Shutdown cancels any idle wait (so worker goroutines blocked on an
// empty queue return) and waits for every worker goroutine to exit.
// In-flight tasks still run to completion first.
func (c *Context) Shutdown() {
	c.cancel()
	c.wg.Wait()
}
