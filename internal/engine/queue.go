package engine

import (
	"sync"

	"github.com/roach88/listq/internal/listop"
)

// record is one admitted operation, owned by the queue until dequeued.
type record[T any] struct {
	id         string
	seq        int64
	op         listop.Operation[T]
	ticket     *Ticket
	onComplete func(Outcome)
}

func (r *record[T]) name() string {
	return r.op.Name()
}

// eviction is a queued record removed by an admission decision.
type eviction[T any] struct {
	rec    *record[T]
	reason DropReason
}

// admission is the result of one queue decision. Reporting happens after
// the queue mutex is released.
type admission[T any] struct {
	accepted bool
	closed   bool
	rejected DropReason // set when the incoming record itself was dropped
	evicted  []eviction[T]
	depth    int
}

// admissionQueue is the bounded FIFO between producers and the lane.
//
// Admit holds the mutex only for the decision itself; it never waits on the
// lane. The signal channel (buffered, size 1) wakes the lane for
// context-aware waiting, and is closed by Close.
type admissionQueue[T any] struct {
	mu      sync.Mutex
	records []*record[T]
	closed  bool
	signal  chan struct{}
}

func newAdmissionQueue[T any]() *admissionQueue[T] {
	return &admissionQueue[T]{
		records: make([]*record[T], 0, 64),
		signal:  make(chan struct{}, 1),
	}
}

// Admit applies merging, then the capacity policy, then appends rec.
func (q *admissionQueue[T]) Admit(rec *record[T], cfg *Config) admission[T] {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return admission[T]{closed: true, rejected: DropStopped, depth: len(q.records)}
	}

	var evicted []eviction[T]
	if cfg.Merges(rec.op.Key()) {
		if rec.op.Wholesale() {
			evicted = q.takeAll(DropMerged, evicted)
		} else {
			evicted = q.takeKey(rec.op.Key(), evicted)
		}
	}

	if cfg.Bounded() && len(q.records) >= cfg.MaxPending {
		switch cfg.Overflow {
		case DropOldest:
			for len(q.records) >= cfg.MaxPending {
				evicted = append(evicted, eviction[T]{rec: q.popFront(), reason: DropQueueFullOldest})
			}
		case ClearAndEnqueue:
			evicted = q.takeAll(DropQueueFullClear, evicted)
		default:
			return admission[T]{rejected: DropQueueFullNew, evicted: evicted, depth: len(q.records)}
		}
	}

	q.push(rec)
	return admission[T]{accepted: true, evicted: evicted, depth: len(q.records)}
}

// Replace evicts every queued record under reason and, when rec is non-nil,
// enqueues it as the only entry.
func (q *admissionQueue[T]) Replace(rec *record[T], reason DropReason) admission[T] {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return admission[T]{closed: true, rejected: DropStopped, depth: len(q.records)}
	}

	evicted := q.takeAll(reason, nil)
	if rec == nil {
		return admission[T]{evicted: evicted}
	}
	q.push(rec)
	return admission[T]{accepted: true, evicted: evicted, depth: 1}
}

// TryDequeue removes the head without blocking and returns the remaining depth.
func (q *admissionQueue[T]) TryDequeue() (*record[T], int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.records) == 0 {
		return nil, 0, false
	}
	rec := q.popFront()
	return rec, len(q.records), true
}

// Wait returns a channel that signals when records may be available.
//
//	select {
//	case <-ctx.Done():
//	    return ctx.Err()
//	case <-q.Wait():
//	    // TryDequeue
//	}
func (q *admissionQueue[T]) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current depth.
func (q *admissionQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.records)
}

// Closed reports whether Close has been called.
func (q *admissionQueue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close rejects further admissions and wakes the lane.
func (q *admissionQueue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}

// Drain removes and returns everything still queued.
func (q *admissionQueue[T]) Drain() []*record[T] {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]*record[T], len(q.records))
	copy(out, q.records)
	clear(q.records)
	q.records = q.records[:0]
	return out
}

func (q *admissionQueue[T]) push(rec *record[T]) {
	q.records = append(q.records, rec)
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *admissionQueue[T]) popFront() *record[T] {
	rec := q.records[0]
	// Nil out the slot so the backing array does not pin the record.
	q.records[0] = nil
	if len(q.records) == 1 {
		q.records = q.records[:0]
	} else {
		q.records = q.records[1:]
	}
	return rec
}

func (q *admissionQueue[T]) takeAll(reason DropReason, into []eviction[T]) []eviction[T] {
	for _, rec := range q.records {
		into = append(into, eviction[T]{rec: rec, reason: reason})
	}
	clear(q.records)
	q.records = q.records[:0]
	return into
}

func (q *admissionQueue[T]) takeKey(key string, into []eviction[T]) []eviction[T] {
	kept := q.records[:0]
	for _, rec := range q.records {
		if rec.op.Key() == key {
			into = append(into, eviction[T]{rec: rec, reason: DropMerged})
			continue
		}
		kept = append(kept, rec)
	}
	clear(q.records[len(kept):])
	q.records = kept
	return into
}

// Trim evicts records until the depth fits cfg. DropNew evicts from the
// tail, the other policies from the head.
func (q *admissionQueue[T]) Trim(cfg *Config) admission[T] {
	q.mu.Lock()
	defer q.mu.Unlock()

	var evicted []eviction[T]
	if !cfg.Bounded() || len(q.records) <= cfg.MaxPending {
		return admission[T]{depth: len(q.records)}
	}
	switch cfg.Overflow {
	case DropNew:
		for len(q.records) > cfg.MaxPending {
			last := len(q.records) - 1
			evicted = append(evicted, eviction[T]{rec: q.records[last], reason: DropQueueFullNew})
			q.records[last] = nil
			q.records = q.records[:last]
		}
	case ClearAndEnqueue:
		evicted = q.takeAll(DropQueueFullClear, evicted)
	default:
		for len(q.records) > cfg.MaxPending {
			evicted = append(evicted, eviction[T]{rec: q.popFront(), reason: DropQueueFullOldest})
		}
	}
	return admission[T]{evicted: evicted, depth: len(q.records)}
}
