package ui

import (
	"context"
	"sync"
)

// inflight tracks the running load per page view. Starting a new load of
// the same view cancels the one it supersedes.
type inflight struct {
	mu    sync.Mutex
	seq   uint64
	loads map[string]load
}

type load struct {
	id     uint64
	cancel context.CancelFunc
}

func newInflight() *inflight {
	return &inflight{
		loads: make(map[string]load),
	}
}

// start returns a context for a new load of key and a func to call once the
// load finished.
func (f *inflight) start(ctx context.Context, key string) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)

	f.mu.Lock()
	if prev, ok := f.loads[key]; ok {
		prev.cancel()
	}
	f.seq++
	id := f.seq
	f.loads[key] = load{id: id, cancel: cancel}
	f.mu.Unlock()

	return ctx, func() {
		f.mu.Lock()
		if cur, ok := f.loads[key]; ok && cur.id == id {
			delete(f.loads, key)
		}
		f.mu.Unlock()

		cancel()
	}
}

func (f *inflight) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.loads)
}
