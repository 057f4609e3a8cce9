// Package task implements the core's bounded MPMC task queue,
// semaphore-gated worker pool, and the fork/join (Bundle) and
// dispatch-and-wait (Stream) batch primitives built on top of it.
package task

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// cell is one slot of the bounded ring buffer. sequence implements
// Dmitry Vyukov's bounded MPMC queue algorithm: a slot is ready to
// enqueue when sequence == pos, and ready to dequeue when
// sequence == pos+1.
type cell struct {
	sequence atomic.Uint64
	task     *Task
}

// Queue is a bounded, lock-free multi-producer/multi-consumer FIFO of
// task pointers. Capacity must be a power of two. able_for_reservation
// is modeled by a weighted semaphore posted once per Push and waited
// once per Pop, so consumers block on an empty queue rather than
// spinning (spec §4.H, §5).
type Queue struct {
	buffer []cell
	mask   uint64

	enqueuePos atomic.Uint64
	dequeuePos atomic.Uint64

	avail *semaphore.Weighted
}

// NewQueue creates a queue with room for capacity tasks. capacity is
// rounded up to the next power of two.
func NewQueue(capacity int) *Queue {
	n := 1
	for n < capacity {
		n <<= 1
	}
	q := &Queue{
		buffer: make([]cell, n),
		mask:   uint64(n - 1),
		avail:  semaphore.NewWeighted(int64(n)),
	}
	for i := range q.buffer {
		q.buffer[i].sequence.Store(uint64(i))
	}
	// Start with every unit held so the semaphore counts queued tasks:
	// each Push releases one unit and each pop acquires one.
	_ = q.avail.Acquire(context.Background(), int64(n))
	return q
}

// Push reserves the next slot via CAS on enqueuePos and installs
// task, then posts able_for_reservation. Push never blocks: a full
// queue signals backpressure by returning false so callers can retry
// or drop, matching the "allocation failure never aborts" policy
// applied to the task system's fixed-size queue.
func (q *Queue) Push(t *Task) bool {
	var c *cell
	pos := q.enqueuePos.Load()
	for {
		c = &q.buffer[pos&q.mask]
		seq := c.sequence.Load()
		diff := int64(seq) - int64(pos)
		switch {
		case diff == 0:
			if q.enqueuePos.CompareAndSwap(pos, pos+1) {
				goto reserved
			}
			pos = q.enqueuePos.Load()
		case diff < 0:
			return false // queue full
		default:
			pos = q.enqueuePos.Load()
		}
	}
reserved:
	c.task = t
	c.sequence.Store(pos + 1)
	q.avail.Release(1)
	return true
}

// TryPop pops a task without blocking, or returns ok=false if the
// queue is currently empty (mirrors semaphore_trywait followed by
// fifo_spmc_pop in task_main's hot loop).
func (q *Queue) TryPop() (*Task, bool) {
	if !q.avail.TryAcquire(1) {
		return nil, false
	}
	return q.pop(), true
}

// Pop blocks (via the semaphore) until a task is available, then
// dequeues it. ctx is only consulted for cancellation of the wait;
// task execution itself is never cancelled (spec §5).
func (q *Queue) Pop(ctx context.Context) (*Task, error) {
	if err := q.avail.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return q.pop(), nil
}

func (q *Queue) pop() *Task {
	var c *cell
	pos := q.dequeuePos.Load()
	for {
		c = &q.buffer[pos&q.mask]
		seq := c.sequence.Load()
		diff := int64(seq) - int64(pos+1)
		switch {
		case diff == 0:
			if q.dequeuePos.CompareAndSwap(pos, pos+1) {
				goto reserved
			}
			pos = q.dequeuePos.Load()
		case diff < 0:
			return nil // spurious: nothing to dequeue (semaphore should have prevented this)
		default:
			pos = q.dequeuePos.Load()
		}
	}
reserved:
	t := c.task
	c.task = nil
	c.sequence.Store(pos + q.mask + 1)
	return t
}
