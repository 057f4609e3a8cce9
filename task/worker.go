package task

import (
	"sync/atomic"

	"github.com/kasp-editor/kaspcore/arena"
)

// Worker is one task-executing OS thread's state: its own arena
// (reset once per frame, never shared) and its index in Context's
// worker table. Worker 0 is always the main thread; it is never
// spawned as a goroutine (see Context.DrainAvailable).
type Worker struct {
	Index   int
	MemFrame *arena.Arena

	frameClearPending atomic.Bool

	stop chan struct{}
}

func newWorker(index int, frameArenaSize int) *Worker {
	return &Worker{
		Index:    index,
		MemFrame: arena.New(frameArenaSize),
		stop:     make(chan struct{}),
	}
}

// requestFrameClear arms this worker's mem_frame_clear flag; the
// worker flushes its arena the next time it runs a task (spec §4.H:
// "reset once per frame on a mem_frame_clear flag").
func (w *Worker) requestFrameClear() { w.frameClearPending.Store(true) }
