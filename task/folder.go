// Package task runs background maintenance that must keep up with rapid
// edit bursts by superseding stale work instead of queueing it.
package task

import "sync"

// FutureFolder folds submitted tasks into a single-slot mailbox. A pending
// task that has not started yet is discarded when a newer revision arrives,
// so at most one stale task is ever executed no matter how fast revisions
// are published. The zero value is ready to use.
type FutureFolder struct {
	mu      sync.Mutex
	running bool
	pending *foldTask
}

type foldTask struct {
	revision uint64
	run      func()
}

// Spawn submits a task for a revision. When the mailbox already holds a
// pending task, the newer revision wins and the older task is dropped
// unexecuted. The first submission starts a runner goroutine that drains the
// mailbox until it is empty.
func (f *FutureFolder) Spawn(revision uint64, run func()) {
	f.mu.Lock()
	if f.pending != nil {
		if f.pending.revision < revision {
			f.pending = &foldTask{revision: revision, run: run}
		}
		f.mu.Unlock()
		return
	}
	f.pending = &foldTask{revision: revision, run: run}
	if f.running {
		f.mu.Unlock()
		return
	}
	f.running = true
	f.mu.Unlock()

	go f.drain()
}

func (f *FutureFolder) drain() {
	for {
		f.mu.Lock()
		t := f.pending
		if t == nil {
			f.running = false
			f.mu.Unlock()
			return
		}
		f.pending = nil
		f.mu.Unlock()

		t.run()
	}
}
