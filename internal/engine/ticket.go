package engine

import (
	"context"
	"sync"

	"github.com/roach88/listq/internal/listop"
)

// Status is the terminal state of a submitted operation.
type Status string

const (
	StatusApplied Status = "APPLIED"
	StatusFailed  Status = "FAILED"
	StatusDropped Status = "DROPPED"
)

// Outcome describes how a submitted operation ended.
type Outcome struct {
	OperationID string
	Operation   string
	Status      Status

	// Generation is the list generation after application. It equals the
	// previous generation when the operation left the list unchanged.
	Generation int64

	// Change is the position metadata for an applied operation.
	Change listop.Change

	// Err is a *FailureError unless Status is StatusApplied.
	Err error
}

// Success reports whether the operation was applied.
func (o Outcome) Success() bool {
	return o.Status == StatusApplied
}

// Ticket tracks one submitted operation until it is applied, fails or is
// dropped. Every ticket resolves exactly once.
//
// Thread-safety: all methods are safe for concurrent use.
type Ticket struct {
	id      string
	op      string
	done    chan struct{}
	once    sync.Once
	outcome Outcome
}

func newTicket(id, op string) *Ticket {
	return &Ticket{id: id, op: op, done: make(chan struct{})}
}

// ID returns the operation ID.
func (t *Ticket) ID() string {
	return t.id
}

// Operation returns the operation name.
func (t *Ticket) Operation() string {
	return t.op
}

// Done is closed once the outcome is known.
func (t *Ticket) Done() <-chan struct{} {
	return t.done
}

// Outcome returns the outcome without blocking; ok is false while pending.
func (t *Ticket) Outcome() (Outcome, bool) {
	select {
	case <-t.done:
		return t.outcome, true
	default:
		return Outcome{}, false
	}
}

// Wait blocks until the outcome is known or ctx is done.
func (t *Ticket) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-t.done:
		return t.outcome, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// resolve records o and reports whether this call was the one that settled
// the ticket.
func (t *Ticket) resolve(o Outcome) bool {
	settled := false
	t.once.Do(func() {
		o.OperationID = t.id
		o.Operation = t.op
		t.outcome = o
		close(t.done)
		settled = true
	})
	return settled
}

// SubmitOption customizes a single submission.
type SubmitOption func(*submitSettings)

type submitSettings struct {
	onComplete func(Outcome)
}

// OnComplete registers a callback invoked once with the outcome. It runs on
// the goroutine that resolved the ticket: the lane for applied and failed
// operations, the evicting caller for drops.
func OnComplete(fn func(Outcome)) SubmitOption {
	return func(s *submitSettings) {
		s.onComplete = fn
	}
}
