package store

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/listq/internal/canonical"
	"github.com/roach88/listq/internal/engine"
)

// Journal writes one run's engine output to a Store.
//
// Record methods have listener signatures and never return errors: the
// first write error is kept and exposed through Err, later ones are logged.
//
// Thread-safety: safe for concurrent use; seq numbers are assigned
// atomically in call order.
type Journal struct {
	store  *Store
	runID  string
	ctx    context.Context
	logger *slog.Logger

	eventSeq   atomic.Int64
	failureSeq atomic.Int64

	mu  sync.Mutex
	err error
}

// NewJournal creates a journal for runID. The run row must already exist
// (see Store.WriteRun).
func NewJournal(ctx context.Context, s *Store, runID string, logger *slog.Logger) *Journal {
	if logger == nil {
		logger = slog.Default()
	}
	return &Journal{store: s, runID: runID, ctx: ctx, logger: logger}
}

// RunID returns the run this journal writes to.
func (j *Journal) RunID() string {
	return j.runID
}

// RecordEvent persists a debug event.
func (j *Journal) RecordEvent(ev engine.DebugEvent) {
	j.keep(j.store.WriteEvent(j.ctx, EventRow{
		RunID:       j.runID,
		Seq:         j.eventSeq.Add(1),
		Kind:        string(ev.Kind),
		Operation:   ev.Operation,
		OperationID: ev.OperationID,
		Pending:     ev.Pending,
		Processing:  ev.Processing,
		Reason:      string(ev.Reason),
		Generation:  ev.Generation,
		Message:     ev.Message,
	}))
}

// RecordFailure persists a failure record.
func (j *Journal) RecordFailure(f engine.FailureRecord) {
	msg := ""
	if f.Err != nil {
		msg = f.Err.Error()
	}
	j.keep(j.store.WriteFailure(j.ctx, FailureRow{
		RunID:       j.runID,
		Seq:         j.failureSeq.Add(1),
		Operation:   f.Operation,
		OperationID: f.OperationID,
		Kind:        string(f.Kind),
		Reason:      string(f.Reason),
		Error:       msg,
	}))
}

// Err returns the first write error, if any.
func (j *Journal) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

func (j *Journal) keep(err error) {
	if err == nil {
		return
	}
	j.mu.Lock()
	first := j.err == nil
	if first {
		j.err = err
	}
	j.mu.Unlock()
	if !first {
		j.logger.Warn("journal write failed", "run", j.runID, "error", err)
	}
}

// RecordResults wraps next so every publication is journaled before it is
// forwarded. next may be nil.
func RecordResults[T any](j *Journal, next engine.Publisher[T]) engine.Publisher[T] {
	return engine.PublisherFunc[T](func(r engine.Result[T]) {
		script, err := canonical.Marshal(r.Script)
		if err != nil {
			j.keep(err)
		} else {
			j.keep(j.store.WriteResult(j.ctx, ResultRow{
				RunID:      j.runID,
				Generation: r.Snapshot.Generation,
				Previous:   r.Previous.Generation,
				Size:       r.Snapshot.Len(),
				Script:     string(script),
				Reset:      r.Reset,
			}))
		}
		if next != nil {
			next.Publish(r)
		}
	})
}
