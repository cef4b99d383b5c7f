package engine

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/listq/internal/listop"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recorder collects published results.
type recorder[T any] struct {
	mu      sync.Mutex
	results []Result[T]
}

func (r *recorder[T]) Publish(res Result[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

func (r *recorder[T]) all() []Result[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Result[T], len(r.results))
	copy(out, r.results)
	return out
}

func (r *recorder[T]) generations() []int64 {
	var gens []int64
	for _, res := range r.all() {
		gens = append(gens, res.Snapshot.Generation)
	}
	return gens
}

// events collects debug events and failure records.
type events struct {
	mu       sync.Mutex
	debug    []DebugEvent
	failures []FailureRecord
}

func (ev *events) attach(e interface {
	OnFailure(func(FailureRecord))
	OnDebugEvent(func(DebugEvent), ...EventKind)
}) {
	e.OnFailure(func(f FailureRecord) {
		ev.mu.Lock()
		defer ev.mu.Unlock()
		ev.failures = append(ev.failures, f)
	})
	e.OnDebugEvent(func(d DebugEvent) {
		ev.mu.Lock()
		defer ev.mu.Unlock()
		ev.debug = append(ev.debug, d)
	})
}

func (ev *events) kinds() []EventKind {
	ev.mu.Lock()
	defer ev.mu.Unlock()
	out := make([]EventKind, 0, len(ev.debug))
	for _, d := range ev.debug {
		out = append(out, d.Kind)
	}
	return out
}

func (ev *events) ofKind(k EventKind) []DebugEvent {
	ev.mu.Lock()
	defer ev.mu.Unlock()
	var out []DebugEvent
	for _, d := range ev.debug {
		if d.Kind == k {
			out = append(out, d)
		}
	}
	return out
}

func (ev *events) failureList() []FailureRecord {
	ev.mu.Lock()
	defer ev.mu.Unlock()
	out := make([]FailureRecord, len(ev.failures))
	copy(out, ev.failures)
	return out
}

func newStringEngine(t *testing.T, opts ...Option) (*Engine[string], *recorder[string], *events) {
	t.Helper()
	rec := &recorder[string]{}
	base := []Option{WithLogger(quietLogger()), WithDiffMode(DiffInline)}
	e := New(listop.Comparable[string](), rec, append(base, opts...)...)
	ev := &events{}
	ev.attach(e)
	return e, rec, ev
}

// startLane runs the lane until the test ends.
func startLane[T any](t *testing.T, e *Engine[T]) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func flush[T any](t *testing.T, e *Engine[T]) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.Flush(ctx))
}

func wait(t *testing.T, tk *Ticket) Outcome {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	o, err := tk.Wait(ctx)
	require.NoError(t, err)
	return o
}
