package engine

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/listq/internal/diff"
	"github.com/roach88/listq/internal/listop"
	"github.com/roach88/listq/internal/metrics"
)

// diffStage computes edit scripts with at most one computation in flight.
//
// The running flag and the pending slot are guarded by mu. latest holds the
// newest requested generation and is checked after every computation: a
// result whose generation is no longer the latest is discarded, and the
// next drain iteration diffs the published snapshot against the newest
// pending one.
type diffStage[T any] struct {
	eq      listop.Equivalence[T]
	pub     Publisher[T]
	report  *reporter
	metrics *metrics.Metrics
	idle    *idleTracker
	logger  *slog.Logger
	depth   func() int

	latest        atomic.Int64
	lastDelivered atomic.Int64

	mu      sync.Mutex
	running bool
	pending *Snapshot[T]

	// published is only touched by the goroutine that owns the running flag.
	published Snapshot[T]
}

// request hands snap to the stage. In inline mode an idle stage computes on
// the caller's goroutine before returning.
func (s *diffStage[T]) request(snap Snapshot[T], mode DiffMode) {
	s.latest.Store(snap.Generation)

	s.mu.Lock()
	replaced := s.pending
	s.pending = &snap
	start := !s.running
	if start {
		s.running = true
		s.idle.add(1)
	}
	s.mu.Unlock()

	if replaced != nil {
		s.superseded(replaced.Generation, "replaced before start")
	}
	if !start {
		return
	}
	if mode == DiffInline {
		s.drain()
		return
	}
	go s.drain()
}

func (s *diffStage[T]) drain() {
	defer s.idle.done()

	for {
		s.mu.Lock()
		req := s.pending
		s.pending = nil
		if req == nil {
			s.running = false
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		started := time.Now()
		script, err := s.compute(s.published.Items, req.Items)
		s.metrics.ObserveDiff(time.Since(started))

		if req.Generation != s.latest.Load() {
			s.superseded(req.Generation, "discarded after compute")
			continue
		}

		res := Result[T]{Previous: s.published, Snapshot: *req, Script: script}
		if err != nil {
			fe := newExceptionError("Diff", "", err)
			s.report.fail(FailureRecord{Operation: "Diff", Kind: FailureException, Err: fe})
			s.report.event(DebugEvent{
				Kind:       EventError,
				Operation:  "Diff",
				Pending:    s.depth(),
				Generation: req.Generation,
				Message:    fe.Error(),
			})
			res.Script = diff.Script{}
			res.Reset = true
		}
		s.deliver(res)
		s.published = *req
	}
}

func (s *diffStage[T]) compute(old, next []T) (script diff.Script, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
	}()
	return diff.Compute(old, next, s.eq), nil
}

// deliver publishes res unless its generation does not advance past the
// last delivered one.
func (s *diffStage[T]) deliver(res Result[T]) {
	gen := res.Snapshot.Generation
	if gen <= s.lastDelivered.Load() {
		s.logger.Debug("dropping stale result",
			"generation", gen,
			"last", s.lastDelivered.Load(),
			"event", "stale_result",
		)
		return
	}
	s.lastDelivered.Store(gen)

	defer func() {
		if r := recover(); r != nil {
			fe := newExceptionError("Publish", "", panicError(r))
			s.logger.Error("publisher panicked", "generation", gen, "error", fe, "event", "publisher_panic")
			s.report.fail(FailureRecord{Operation: "Publish", Kind: FailureException, Err: fe})
		}
	}()
	s.pub.Publish(res)
	s.metrics.Published()
}

func (s *diffStage[T]) superseded(gen int64, why string) {
	s.metrics.Superseded()
	s.report.event(DebugEvent{
		Kind:       EventSuperseded,
		Operation:  "Diff",
		Pending:    s.depth(),
		Generation: gen,
		Message:    why,
	})
}
