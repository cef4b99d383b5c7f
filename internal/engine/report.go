package engine

import (
	"log/slog"
	"sync/atomic"

	"github.com/roach88/listq/internal/metrics"
)

type failureListener struct {
	fn func(FailureRecord)
}

type debugListener struct {
	fn    func(DebugEvent)
	kinds map[EventKind]bool // nil accepts every kind
}

// reporter fans failures and debug events out to the listeners and the
// metrics collectors. Listeners are swapped atomically and invoked outside
// any engine lock; a panicking listener is logged and otherwise ignored.
type reporter struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	failure atomic.Pointer[failureListener]
	debug   atomic.Pointer[debugListener]
}

func (r *reporter) setFailureListener(fn func(FailureRecord)) {
	if fn == nil {
		r.failure.Store(nil)
		return
	}
	r.failure.Store(&failureListener{fn: fn})
}

func (r *reporter) setDebugListener(fn func(DebugEvent), kinds []EventKind) {
	if fn == nil {
		r.debug.Store(nil)
		return
	}
	l := &debugListener{fn: fn}
	if len(kinds) > 0 {
		l.kinds = make(map[EventKind]bool, len(kinds))
		for _, k := range kinds {
			l.kinds[k] = true
		}
	}
	r.debug.Store(l)
}

func (r *reporter) fail(rec FailureRecord) {
	r.metrics.Failed(string(rec.Kind))
	if rec.Kind == FailureDropped {
		r.metrics.Dropped(string(rec.Reason))
	}

	l := r.failure.Load()
	if l == nil {
		return
	}
	r.safely("failure listener", func() { l.fn(rec) })
}

func (r *reporter) event(ev DebugEvent) {
	switch ev.Kind {
	case EventEnqueued, EventDequeued, EventDropped, EventCleared:
		r.metrics.SetQueueDepth(ev.Pending)
	}

	l := r.debug.Load()
	if l == nil {
		return
	}
	if l.kinds != nil && !l.kinds[ev.Kind] {
		return
	}
	r.safely("debug listener", func() { l.fn(ev) })
}

// safely runs fn and converts a panic into an error log line.
func (r *reporter) safely(what string, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("recovered panic",
				"source", what,
				"error", panicError(rec),
				"event", "listener_panic",
			)
		}
	}()
	fn()
}
