package engine

import (
	"slices"

	"github.com/roach88/listq/internal/diff"
)

// Snapshot is an immutable copy of the list and the generation that
// produced it. Callers must not modify Items.
type Snapshot[T any] struct {
	Items      []T
	Generation int64
}

// Len returns the number of items.
func (s Snapshot[T]) Len() int {
	return len(s.Items)
}

// Result is one publication: the edit script that turns Previous into
// Snapshot.
type Result[T any] struct {
	Previous Snapshot[T]
	Snapshot Snapshot[T]
	Script   diff.Script

	// Reset is set when no script could be computed. Consumers must reload
	// Snapshot wholesale.
	Reset bool
}

// Publisher delivers results to the consumer. The engine calls Publish from
// one goroutine at a time with strictly increasing generations.
type Publisher[T any] interface {
	Publish(Result[T])
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc[T any] func(Result[T])

// Publish calls f(r).
func (f PublisherFunc[T]) Publish(r Result[T]) {
	f(r)
}

// ScriptPublisher hands each snapshot and its edit script to a list differ.
// On reset the script removes every previous item and inserts every new one.
type ScriptPublisher[T any] struct {
	Submit func(snapshot Snapshot[T], script diff.Script)
}

// Publish implements Publisher.
func (p ScriptPublisher[T]) Publish(r Result[T]) {
	script := r.Script
	if r.Reset {
		script = resetScript(r.Previous.Len(), r.Snapshot.Len())
	}
	p.Submit(r.Snapshot, script)
}

// Notifier receives index-based change notifications, in the order a
// manual-notify adapter would issue them.
type Notifier interface {
	ItemRangeInserted(position, count int)
	ItemRangeRemoved(position, count int)
	ItemRangeChanged(position, count int)
	ItemMoved(from, to int)
	DataSetChanged()
}

// NotifyPublisher expands edit scripts into Notifier calls. Commit, when
// set, runs first so the adapter's backing list matches the notifications.
type NotifyPublisher[T any] struct {
	Target Notifier
	Commit func(Snapshot[T])
}

// Publish implements Publisher.
func (p NotifyPublisher[T]) Publish(r Result[T]) {
	if p.Commit != nil {
		p.Commit(r.Snapshot)
	}
	if r.Reset {
		p.Target.DataSetChanged()
		return
	}
	for _, e := range r.Script.Edits {
		switch e.Type {
		case diff.EditInsert:
			p.Target.ItemRangeInserted(e.Position, e.Count)
		case diff.EditRemove:
			p.Target.ItemRangeRemoved(e.Position, e.Count)
		case diff.EditChange:
			p.Target.ItemRangeChanged(e.Position, e.Count)
		case diff.EditMove:
			p.Target.ItemMoved(e.From, e.To)
		}
	}
}

func resetScript(prev, next int) diff.Script {
	var edits []diff.Edit
	if prev > 0 {
		edits = append(edits, diff.Edit{Type: diff.EditRemove, Position: 0, Count: prev})
	}
	if next > 0 {
		edits = append(edits, diff.Edit{Type: diff.EditInsert, Position: 0, Count: next})
	}
	return diff.Script{Edits: edits}
}

func cloneSnapshot[T any](s Snapshot[T]) Snapshot[T] {
	return Snapshot[T]{Items: slices.Clone(s.Items), Generation: s.Generation}
}
