package task

import "sync/atomic"

// Stream is a fire-and-forget dispatch batch: tasks are added one at
// a time via Dispatch (no fixed task_count up front, unlike Bundle),
// and the owner spin-waits in Wait until every dispatched task has
// incremented Completed (spec §4.H: "the owner spin-waits until equal
// to task_count").
type Stream struct {
	completed atomic.Int32
	taskCount int32
}

// NewStream creates an empty stream.
func NewStream() *Stream { return &Stream{} }

func (s *Stream) taskDone() { s.completed.Add(1) }

// Dispatch posts one task to the queue tagged as belonging to s.
func (c *Context) Dispatch(s *Stream, fn func(t *Task), args any) {
	s.taskCount++
	c.Queue.Push(&Task{Func: fn, Input: args, BatchType: BatchStream, Batch: s})
}

// Wait spin-waits until every task dispatched to s has completed.
// Mirrors task_stream_spin_wait exactly — this is a busy loop by
// design, for streams whose completion is expected imminently on
// threads that have no other work to steal.
func (s *Stream) Wait() {
	for s.completed.Load() < s.taskCount {
	}
}

// Done reports whether every dispatched task has completed, without
// blocking.
func (s *Stream) Done() bool { return s.completed.Load() == s.taskCount }
