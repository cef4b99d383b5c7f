package harness

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/listq/internal/config"
	"github.com/roach88/listq/internal/engine"
	"github.com/roach88/listq/internal/listop"
	"github.com/roach88/listq/internal/metrics"
	"github.com/roach88/listq/internal/store"
	"github.com/roach88/listq/internal/testutil"
)

// Harness runs one scenario against a string engine.
//
// Everything happens on the calling goroutine: the diff stage runs inline
// and the lane is pumped with Engine.Drain, so the trace order is fixed for
// a given scenario.
type Harness struct {
	engine  *engine.Engine[string]
	clock   *testutil.DeterministicClock
	journal *store.Journal
	logger  *slog.Logger
	result  *Result
	tickets []stepTicket
}

type stepTicket struct {
	step   int
	ticket *engine.Ticket
}

// Option customizes a run.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	journal *store.Journal
	metrics *metrics.Metrics
	config  *config.File
}

// WithLogger sets the engine logger. Runs are silent by default.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithJournal records every event, failure and publication to j.
func WithJournal(j *store.Journal) Option {
	return func(o *options) { o.journal = j }
}

// WithMetrics records engine metrics to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithConfig replaces the scenario's own config block.
func WithConfig(f *config.File) Option {
	return func(o *options) { o.config = f }
}

// Run executes a scenario and evaluates its expectations.
//
// Execution flow:
//  1. Build the engine from the scenario config (diffing forced inline)
//  2. Submit each step, draining after each unless the scenario is queued
//  3. Drain whatever is left and stop the engine
//  4. Collect outcomes and evaluate expectations
//
// An error is returned only when the scenario could not be executed;
// unmet expectations are reported in Result.Errors.
func Run(s *Scenario, opts ...Option) (*Result, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	file := s.Config
	if o.config != nil {
		file = *o.config
	}
	cfg, err := file.EngineConfig()
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	cfg.DiffMode = engine.DiffInline

	h := &Harness{
		clock:   testutil.NewDeterministicClock(),
		journal: o.journal,
		logger:  o.logger,
		result:  NewResult(),
	}

	var pub engine.Publisher[string] = engine.PublisherFunc[string](h.publish)
	if h.journal != nil {
		pub = store.RecordResults(h.journal, pub)
	}
	h.engine = engine.New(equivalence(s.Identity), pub,
		engine.WithConfig(cfg),
		engine.WithIDGenerator(testutil.NewSequenceGenerator("op")),
		engine.WithLogger(o.logger),
		engine.WithMetrics(o.metrics),
	)
	h.engine.OnDebugEvent(h.event)
	h.engine.OnFailure(h.failure)

	for i, step := range s.Steps {
		if err := h.run(i, step, s.Queued); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}
	if _, err := h.engine.Drain(); err != nil {
		return nil, fmt.Errorf("final drain: %w", err)
	}
	h.engine.Stop()

	for _, st := range h.tickets {
		out, ok := st.ticket.Outcome()
		if !ok {
			return nil, fmt.Errorf("step %d: operation %s never resolved", st.step, st.ticket.ID())
		}
		h.result.Outcomes = append(h.result.Outcomes, outcomeOf(st.step, out))
	}
	snap := h.engine.Snapshot()
	h.result.Items = append(h.result.Items, snap.Items...)
	h.result.Generation = snap.Generation

	for _, msg := range EvaluateExpectations(s, h.result) {
		h.result.AddError(msg)
	}

	if h.journal != nil {
		if err := h.journal.Err(); err != nil {
			return nil, fmt.Errorf("journal: %w", err)
		}
	}
	return h.result, nil
}

func (h *Harness) run(i int, step Step, queued bool) error {
	switch step.Action {
	case ActionDrain:
		_, err := h.engine.Drain()
		return err
	case ActionClearQueue:
		_, err := h.engine.ClearQueue()
		return err
	}

	op, err := buildOp(step)
	if err != nil {
		return err
	}
	var tk *engine.Ticket
	if step.Clear {
		tk, _ = h.engine.ClearAndSubmit(op)
	} else {
		tk, _ = h.engine.Submit(op)
	}
	h.tickets = append(h.tickets, stepTicket{step: i, ticket: tk})

	if queued {
		return nil
	}
	_, err = h.engine.Drain()
	return err
}

func (h *Harness) event(ev engine.DebugEvent) {
	h.result.Trace = append(h.result.Trace, TraceEvent{
		Seq:         h.clock.Next(),
		Kind:        string(ev.Kind),
		Operation:   ev.Operation,
		OperationID: ev.OperationID,
		Pending:     ev.Pending,
		Processing:  ev.Processing,
		Reason:      string(ev.Reason),
		Generation:  ev.Generation,
		Message:     ev.Message,
	})
	if h.journal != nil {
		h.journal.RecordEvent(ev)
	}
}

func (h *Harness) failure(f engine.FailureRecord) {
	entry := FailureEntry{
		Operation:   f.Operation,
		OperationID: f.OperationID,
		Kind:        string(f.Kind),
		Reason:      string(f.Reason),
	}
	if f.Err != nil {
		entry.Error = f.Err.Error()
	}
	h.result.Failures = append(h.result.Failures, entry)
	if h.journal != nil {
		h.journal.RecordFailure(f)
	}
}

func (h *Harness) publish(r engine.Result[string]) {
	h.result.Trace = append(h.result.Trace, TraceEvent{
		Seq:        h.clock.Next(),
		Kind:       KindPublished,
		Pending:    h.engine.Pending(),
		Processing: h.engine.Processing(),
		Generation: r.Snapshot.Generation,
		Script:     r.Script.String(),
		Items:      slices.Clone(r.Snapshot.Items),
	})
	h.logger.Debug("published", "generation", r.Snapshot.Generation, "script", r.Script.String())
}

func equivalence(identity string) listop.Equivalence[string] {
	if identity == IdentityPrefix {
		return listop.ByKey(
			func(s string) string {
				key, _, _ := strings.Cut(s, ":")
				return key
			},
			func(a, b string) bool { return a == b },
		)
	}
	return listop.Comparable[string]()
}

func buildOp(step Step) (listop.Operation[string], error) {
	kind, ok := listop.ParseKind(step.Op)
	if !ok {
		return listop.Operation[string]{}, fmt.Errorf("unknown op %q", step.Op)
	}

	var op listop.Operation[string]
	switch kind {
	case listop.KindSetItems:
		op = listop.SetItems(step.Items)
	case listop.KindAddItem:
		op = listop.AddItem(step.Item)
	case listop.KindAddItemAt:
		op = listop.AddItemAt(step.Index, step.Item)
	case listop.KindAddItems:
		op = listop.AddItems(step.Items)
	case listop.KindAddItemsAt:
		op = listop.AddItemsAt(step.Index, step.Items)
	case listop.KindRemoveAt:
		op = listop.RemoveAt[string](step.Index)
	case listop.KindRemoveItem:
		op = listop.RemoveItem(step.Item)
	case listop.KindReplaceItemAt:
		op = listop.ReplaceItemAt(step.Index, step.Item)
	case listop.KindMoveItem:
		op = listop.MoveItem[string](step.From, step.To)
	case listop.KindRemoveAll:
		op = listop.RemoveAll[string]()
	case listop.KindUpdateItems:
		fn, err := transform(step.Transform)
		if err != nil {
			return listop.Operation[string]{}, err
		}
		op = listop.UpdateItems(fn)
	}

	if step.MergeKey != "" {
		op = op.WithMergeKey(step.MergeKey)
	}
	return op, nil
}

func transform(name string) (func([]string) []string, error) {
	switch name {
	case TransformReverse:
		return func(items []string) []string {
			slices.Reverse(items)
			return items
		}, nil
	case TransformSort:
		return func(items []string) []string {
			slices.Sort(items)
			return items
		}, nil
	case TransformUpper:
		return func(items []string) []string {
			for i, s := range items {
				items[i] = strings.ToUpper(s)
			}
			return items
		}, nil
	case TransformPanic:
		return func([]string) []string {
			panic("transform failed")
		}, nil
	}
	return nil, fmt.Errorf("unknown transform %q", name)
}
