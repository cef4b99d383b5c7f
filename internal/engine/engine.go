package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/roach88/listq/internal/listop"
	"github.com/roach88/listq/internal/metrics"
)

// Engine is the list-mutation queue engine for items of type T.
//
// CRITICAL: the authoritative list is only mutated inside Run. Producers
// call Submit from any goroutine; Run must own exactly one goroutine.
//
// INVARIANTS:
//   - Operations are applied in admission order after coalescing
//   - Queue depth never exceeds Config.MaxPending when bounded
//   - Every ticket resolves exactly once
//   - Published generations are strictly increasing
type Engine[T any] struct {
	eq      listop.Equivalence[T]
	logger  *slog.Logger
	metrics *metrics.Metrics
	ids     IDGenerator
	seq     *Clock // enqueue sequence
	gens    *Clock // list generation

	cfgMu sync.Mutex
	cfg   atomic.Pointer[Config]

	queue  *admissionQueue[T]
	report *reporter
	diff   *diffStage[T]
	idle   *idleTracker

	list       atomic.Pointer[Snapshot[T]]
	running    atomic.Bool
	processing atomic.Bool
}

// New creates an Engine. eq decides identity and content equality for the
// diff stage and RemoveItem; pub receives every published result and may be
// nil when only the authoritative list matters.
func New[T any](eq listop.Equivalence[T], pub Publisher[T], opts ...Option) *Engine[T] {
	s := settings{cfg: DefaultConfig()}
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.ids == nil {
		s.ids = UUIDv7Generator{}
	}
	if pub == nil {
		pub = PublisherFunc[T](func(Result[T]) {})
	}
	s.cfg.normalize()

	e := &Engine[T]{
		eq:      eq,
		logger:  s.logger,
		metrics: s.metrics,
		ids:     s.ids,
		seq:     NewClock(),
		gens:    NewClock(),
		queue:   newAdmissionQueue[T](),
		report:  &reporter{logger: s.logger, metrics: s.metrics},
		idle:    newIdleTracker(),
	}
	cfg := s.cfg
	e.cfg.Store(&cfg)
	e.list.Store(&Snapshot[T]{Items: []T{}})
	e.diff = &diffStage[T]{
		eq:      eq,
		pub:     pub,
		report:  e.report,
		metrics: s.metrics,
		idle:    e.idle,
		logger:  s.logger,
		depth:   e.queue.Len,
	}
	return e
}

// Submit offers op to the admission queue.
//
// The returned ticket always resolves, even when accepted is false. Submit
// never blocks on the lane and never panics on bad input: rejections surface
// through the ticket, the failure listener and the debug listener.
func (e *Engine[T]) Submit(op listop.Operation[T], opts ...SubmitOption) (*Ticket, bool) {
	cfg := e.cfg.Load()
	rec := e.newRecord(op, opts)

	if err := e.checkAffinity(cfg, "Submit"); err != nil {
		e.reject(rec, err)
		return rec.ticket, false
	}

	e.idle.add(1)
	adm := e.queue.Admit(rec, cfg)
	e.settle(rec, adm)
	return rec.ticket, adm.accepted
}

// ClearAndSubmit evicts every queued operation with CLEARED_EXPLICIT and
// enqueues op as the only entry.
func (e *Engine[T]) ClearAndSubmit(op listop.Operation[T], opts ...SubmitOption) (*Ticket, bool) {
	cfg := e.cfg.Load()
	rec := e.newRecord(op, opts)

	if err := e.checkAffinity(cfg, "ClearAndSubmit"); err != nil {
		e.reject(rec, err)
		return rec.ticket, false
	}

	e.idle.add(1)
	adm := e.queue.Replace(rec, DropClearedExplicit)
	e.evict(adm)
	if adm.accepted {
		e.report.event(DebugEvent{
			Kind:       EventCleared,
			Operation:  rec.name(),
			Pending:    0,
			Processing: e.processing.Load(),
			Reason:     DropClearedExplicit,
			Message:    fmt.Sprintf("cleared %d pending before enqueue", len(adm.evicted)),
		})
	}
	e.settle(rec, admission[T]{accepted: adm.accepted, closed: adm.closed, rejected: adm.rejected, depth: adm.depth})
	return rec.ticket, adm.accepted
}

// SetItemsLatest replaces the list with items, discarding anything queued.
func (e *Engine[T]) SetItemsLatest(items []T, opts ...SubmitOption) (*Ticket, bool) {
	return e.ClearAndSubmit(listop.SetItems(items), opts...)
}

// ClearQueue evicts every queued operation with CLEARED_BY_API and returns
// how many were evicted. The operation currently being applied is not
// affected.
func (e *Engine[T]) ClearQueue() (int, error) {
	if err := e.checkAffinity(e.cfg.Load(), "ClearQueue"); err != nil {
		return 0, newValidationError("ClearQueue", "", err)
	}

	adm := e.queue.Replace(nil, DropClearedByAPI)
	if adm.closed {
		return 0, ErrStopped
	}
	if len(adm.evicted) == 0 {
		return 0, nil
	}
	e.evict(adm)
	e.report.event(DebugEvent{
		Kind:       EventCleared,
		Operation:  "ClearQueue",
		Pending:    0,
		Processing: e.processing.Load(),
		Reason:     DropClearedByAPI,
		Message:    fmt.Sprintf("cleared %d pending", len(adm.evicted)),
	})
	return len(adm.evicted), nil
}

// Run is the applier lane. It dequeues and applies operations one at a time
// until ctx is done or Stop is called and the queue has drained.
//
// On context cancellation, operations still queued are dropped with
// ENGINE_STOPPED and Run returns ctx.Err(). After Stop, Run applies what was
// already admitted and returns nil.
func (e *Engine[T]) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer e.running.Store(false)

	e.logger.Info("engine lane starting", "event", "lane_start")

	for {
		if rec, depth, ok := e.queue.TryDequeue(); ok {
			e.apply(rec, depth)
			continue
		}

		select {
		case <-ctx.Done():
			e.logger.Info("engine lane stopping", "reason", ctx.Err(), "event", "lane_stop")
			e.queue.Close()
			e.dropRemaining()
			return ctx.Err()
		case _, open := <-e.queue.Wait():
			if !open && e.queue.Len() == 0 {
				e.logger.Info("engine lane stopping", "reason", "queue closed", "event", "lane_stop")
				return nil
			}
		}
	}
}

// Drain applies every queued operation on the calling goroutine and returns
// how many it applied. It is the lane for hosts that pump their own loop; it
// fails with ErrAlreadyRunning while Run is active. Drain is subject to the
// thread check: in strict mode a call off the designated goroutine applies
// nothing and returns a validation error.
func (e *Engine[T]) Drain() (int, error) {
	if err := e.checkAffinity(e.cfg.Load(), "Drain"); err != nil {
		return 0, newValidationError("Drain", "", err)
	}
	if !e.running.CompareAndSwap(false, true) {
		return 0, ErrAlreadyRunning
	}
	defer e.running.Store(false)

	n := 0
	for {
		rec, depth, ok := e.queue.TryDequeue()
		if !ok {
			return n, nil
		}
		e.apply(rec, depth)
		n++
	}
}

// Stop closes admission. Later submissions are dropped with ENGINE_STOPPED.
func (e *Engine[T]) Stop() {
	e.queue.Close()
}

// Flush blocks until the queue is empty, the lane is idle and no diff is
// in flight, or ctx is done. Flush only makes progress while Run is active.
func (e *Engine[T]) Flush(ctx context.Context) error {
	return e.idle.wait(ctx)
}

// Items returns a copy of the authoritative list.
func (e *Engine[T]) Items() []T {
	return slices.Clone(e.list.Load().Items)
}

// Snapshot returns a copy of the authoritative list with its generation.
func (e *Engine[T]) Snapshot() Snapshot[T] {
	return cloneSnapshot(*e.list.Load())
}

// Pending returns the admission queue depth.
func (e *Engine[T]) Pending() int {
	return e.queue.Len()
}

// Processing reports whether the lane is applying an operation.
func (e *Engine[T]) Processing() bool {
	return e.processing.Load()
}

// OnFailure installs the failure listener, replacing any previous one.
// A nil fn removes it.
func (e *Engine[T]) OnFailure(fn func(FailureRecord)) {
	e.report.setFailureListener(fn)
}

// OnDebugEvent installs the debug listener. With kinds, only those kinds
// are delivered. A nil fn removes it.
func (e *Engine[T]) OnDebugEvent(fn func(DebugEvent), kinds ...EventKind) {
	e.report.setDebugListener(fn, kinds)
}

// Config returns a copy of the current policy.
func (e *Engine[T]) Config() Config {
	return e.cfg.Load().clone()
}

// Reconfigure applies fn to a copy of the current policy and publishes it.
// Submissions already decided keep the policy they observed. When a new
// bound is smaller than the current depth the queue is trimmed under the
// new overflow policy.
func (e *Engine[T]) Reconfigure(fn func(*Config)) {
	e.cfgMu.Lock()
	next := e.cfg.Load().clone()
	fn(&next)
	next.normalize()
	e.cfg.Store(&next)
	e.cfgMu.Unlock()

	e.logger.Debug("engine reconfigured",
		"max_pending", next.MaxPending,
		"overflow", next.Overflow.String(),
		"merge_keys", next.MergeKeys,
		"diff_mode", next.DiffMode.String(),
		"thread_check", next.ThreadCheck.String(),
	)

	if adm := e.queue.Trim(&next); len(adm.evicted) > 0 {
		e.evict(adm)
	}
}

// SetQueuePolicy sets the depth bound and overflow policy.
func (e *Engine[T]) SetQueuePolicy(maxPending int, policy OverflowPolicy) {
	e.Reconfigure(func(c *Config) {
		c.MaxPending = maxPending
		c.Overflow = policy
	})
}

// SetMergeKeys replaces the set of merge-enabled keys.
func (e *Engine[T]) SetMergeKeys(keys ...string) {
	e.Reconfigure(func(c *Config) {
		c.MergeKeys = slices.Clone(keys)
	})
}

// SetDiffMode switches between inline and async diffing. A drain already
// running finishes in its current mode.
func (e *Engine[T]) SetDiffMode(mode DiffMode) {
	e.Reconfigure(func(c *Config) {
		c.DiffMode = mode
	})
}

// SetThreadCheck configures the affinity assertion.
func (e *Engine[T]) SetThreadCheck(mode ThreadCheckMode, affinity func() bool) {
	e.Reconfigure(func(c *Config) {
		c.ThreadCheck = mode
		c.Affinity = affinity
	})
}

func (e *Engine[T]) newRecord(op listop.Operation[T], opts []SubmitOption) *record[T] {
	var ss submitSettings
	for _, opt := range opts {
		opt(&ss)
	}
	id := e.ids.Generate()
	op.Items = slices.Clone(op.Items)
	return &record[T]{
		id:         id,
		seq:        e.seq.Next(),
		op:         op,
		ticket:     newTicket(id, op.Name()),
		onComplete: ss.onComplete,
	}
}

func (e *Engine[T]) checkAffinity(cfg *Config, api string) error {
	if cfg.ThreadCheck == ThreadCheckOff || cfg.Affinity == nil || cfg.Affinity() {
		return nil
	}
	if cfg.ThreadCheck == ThreadCheckLog {
		e.logger.Warn("engine called off the designated goroutine",
			"api", api,
			"event", "thread_check",
		)
		return nil
	}
	return fmt.Errorf("%s: %w", api, ErrWrongGoroutine)
}

// reject fails rec before it reaches the queue.
func (e *Engine[T]) reject(rec *record[T], cause error) {
	fe := newValidationError(rec.name(), rec.id, cause)
	e.logger.Warn("submission rejected", "op", rec.name(), "id", rec.id, "error", fe, "event", "rejected")
	e.report.fail(FailureRecord{
		Operation:   rec.name(),
		OperationID: rec.id,
		Kind:        FailureValidation,
		Err:         fe,
	})
	e.report.event(DebugEvent{
		Kind:        EventError,
		Operation:   rec.name(),
		OperationID: rec.id,
		Pending:     e.queue.Len(),
		Processing:  e.processing.Load(),
		Message:     fe.Error(),
	})
	e.finish(rec, Outcome{Status: StatusFailed, Generation: e.gens.Current(), Err: fe})
}

// settle reports an admission decision for the incoming record, after the
// evictions it caused.
func (e *Engine[T]) settle(rec *record[T], adm admission[T]) {
	e.evict(adm)

	if !adm.accepted {
		e.idle.done()
		e.drop(rec, adm.rejected, adm.depth)
		return
	}

	e.metrics.Admitted()
	e.report.event(DebugEvent{
		Kind:        EventEnqueued,
		Operation:   rec.name(),
		OperationID: rec.id,
		Pending:     adm.depth,
		Processing:  e.processing.Load(),
	})
}

func (e *Engine[T]) evict(adm admission[T]) {
	for _, ev := range adm.evicted {
		e.idle.done()
		e.drop(ev.rec, ev.reason, adm.depth)
	}
}

func (e *Engine[T]) drop(rec *record[T], reason DropReason, depth int) {
	fe := newDroppedError(rec.name(), rec.id, reason)
	e.report.fail(FailureRecord{
		Operation:   rec.name(),
		OperationID: rec.id,
		Kind:        FailureDropped,
		Reason:      reason,
		Err:         fe,
	})
	e.report.event(DebugEvent{
		Kind:        EventDropped,
		Operation:   rec.name(),
		OperationID: rec.id,
		Pending:     depth,
		Processing:  e.processing.Load(),
		Reason:      reason,
	})
	e.finish(rec, Outcome{Status: StatusDropped, Generation: e.gens.Current(), Err: fe})
}

func (e *Engine[T]) dropRemaining() {
	for _, rec := range e.queue.Drain() {
		e.idle.done()
		e.drop(rec, DropStopped, 0)
	}
}

// finish resolves the ticket and runs the completion callback once.
func (e *Engine[T]) finish(rec *record[T], o Outcome) {
	if !rec.ticket.resolve(o) || rec.onComplete == nil {
		return
	}
	o, _ = rec.ticket.Outcome()
	e.report.safely("completion callback", func() { rec.onComplete(o) })
}

// apply runs one record on the lane.
func (e *Engine[T]) apply(rec *record[T], depth int) {
	defer e.idle.done()
	e.processing.Store(true)
	defer e.processing.Store(false)

	e.report.event(DebugEvent{
		Kind:        EventDequeued,
		Operation:   rec.name(),
		OperationID: rec.id,
		Pending:     depth,
		Processing:  true,
	})
	e.logger.Debug("applying operation",
		"op", rec.name(),
		"id", rec.id,
		"seq", rec.seq,
		"pending", depth,
	)

	cur := e.list.Load()
	res, err := e.applySafely(rec.op, cur.Items)
	if err != nil {
		e.failApply(rec, cur.Generation, err)
		return
	}

	gen := cur.Generation
	if res.Modified {
		gen = e.gens.Next()
		snap := &Snapshot[T]{Items: res.Items, Generation: gen}
		e.list.Store(snap)
		e.diff.request(*snap, e.cfg.Load().DiffMode)
	}

	e.metrics.Applied()
	e.finish(rec, Outcome{Status: StatusApplied, Generation: gen, Change: res.Change})
	e.report.event(DebugEvent{
		Kind:        EventCompleted,
		Operation:   rec.name(),
		OperationID: rec.id,
		Pending:     e.queue.Len(),
		Processing:  true,
		Generation:  gen,
	})
}

func (e *Engine[T]) applySafely(op listop.Operation[T], items []T) (res listop.Result[T], err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
	}()
	return listop.Apply(op, items, e.eq)
}

func (e *Engine[T]) failApply(rec *record[T], gen int64, err error) {
	var fe *FailureError
	if listop.IsValidation(err) {
		fe = newValidationError(rec.name(), rec.id, err)
		e.logger.Debug("operation failed validation", "op", rec.name(), "id", rec.id, "error", err)
	} else {
		fe = newExceptionError(rec.name(), rec.id, err)
		e.logger.Error("operation raised", "op", rec.name(), "id", rec.id, "error", err, "event", "apply_exception")
	}

	e.report.fail(FailureRecord{
		Operation:   rec.name(),
		OperationID: rec.id,
		Kind:        failureKindOf(fe.Code),
		Err:         fe,
	})
	if fe.Code == ErrCodeException {
		e.report.event(DebugEvent{
			Kind:        EventError,
			Operation:   rec.name(),
			OperationID: rec.id,
			Pending:     e.queue.Len(),
			Processing:  true,
			Message:     fe.Error(),
		})
	}
	e.finish(rec, Outcome{Status: StatusFailed, Generation: gen, Err: fe})
	e.report.event(DebugEvent{
		Kind:        EventCompleted,
		Operation:   rec.name(),
		OperationID: rec.id,
		Pending:     e.queue.Len(),
		Processing:  true,
		Generation:  gen,
		Message:     fe.Error(),
	})
}
