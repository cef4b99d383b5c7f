package engine

import (
	"context"
	"sync"
)

// idleTracker counts outstanding work (queued records, the record being
// applied, a running diff drain). The channel returned by wait is closed
// whenever the count drops back to zero.
type idleTracker struct {
	mu   sync.Mutex
	busy int
	idle chan struct{}
}

func newIdleTracker() *idleTracker {
	ch := make(chan struct{})
	close(ch)
	return &idleTracker{idle: ch}
}

func (t *idleTracker) add(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	was := t.busy
	t.busy += n
	if t.busy < 0 {
		t.busy = 0
	}
	switch {
	case was == 0 && t.busy > 0:
		t.idle = make(chan struct{})
	case was > 0 && t.busy == 0:
		close(t.idle)
	}
}

func (t *idleTracker) done() {
	t.add(-1)
}

func (t *idleTracker) wait(ctx context.Context) error {
	t.mu.Lock()
	ch := t.idle
	t.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
