package harness

import "github.com/roach88/listq/internal/engine"

// KindPublished marks a trace entry for a result delivered to the consumer.
// Every other trace kind is an engine.EventKind.
const KindPublished = "PUBLISHED"

// TraceEvent is one line of a scenario trace: a debug event or a
// publication.
type TraceEvent struct {
	Seq         int64  `json:"seq"`
	Kind        string `json:"kind"`
	Operation   string `json:"op,omitempty"`
	OperationID string `json:"id,omitempty"`
	Pending     int    `json:"pending"`
	Processing  bool   `json:"processing"`
	Reason      string `json:"reason,omitempty"`
	Generation  int64  `json:"generation,omitempty"`
	Message     string `json:"message,omitempty"`

	// Script and Items are set on PUBLISHED entries.
	Script string   `json:"script,omitempty"`
	Items  []string `json:"items,omitempty"`
}

// StepOutcome records how one operation step ended.
type StepOutcome struct {
	Step        int    `json:"step"`
	Operation   string `json:"op"`
	OperationID string `json:"id"`
	Status      string `json:"status"`
	Reason      string `json:"reason,omitempty"`
	Generation  int64  `json:"generation"`
	Change      string `json:"change,omitempty"`
	Error       string `json:"error,omitempty"`
}

// FailureEntry mirrors one engine.FailureRecord.
type FailureEntry struct {
	Operation   string `json:"op"`
	OperationID string `json:"id,omitempty"`
	Kind        string `json:"kind"`
	Reason      string `json:"reason,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expectation held.
	Pass bool `json:"pass"`

	Trace      []TraceEvent  `json:"trace"`
	Outcomes   []StepOutcome `json:"outcomes"`
	Failures   []FailureEntry `json:"failures"`
	Items      []string      `json:"items"`
	Generation int64         `json:"generation"`

	// Errors lists failed expectations. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Trace:    []TraceEvent{},
		Outcomes: []StepOutcome{},
		Failures: []FailureEntry{},
		Items:    []string{},
		Errors:   []string{},
	}
}

// AddError records a failed expectation and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Count returns how many trace entries have the given kind.
func (r *Result) Count(kind string) int {
	n := 0
	for _, ev := range r.Trace {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

// Published returns the PUBLISHED entries in order.
func (r *Result) Published() []TraceEvent {
	var out []TraceEvent
	for _, ev := range r.Trace {
		if ev.Kind == KindPublished {
			out = append(out, ev)
		}
	}
	return out
}

// DropCounts tallies dropped operations by reason.
func (r *Result) DropCounts() map[string]int {
	out := make(map[string]int)
	for _, f := range r.Failures {
		if f.Reason != "" {
			out[f.Reason]++
		}
	}
	return out
}

// FailureCounts tallies failure records by kind.
func (r *Result) FailureCounts() map[string]int {
	out := make(map[string]int)
	for _, f := range r.Failures {
		out[f.Kind]++
	}
	return out
}

func outcomeOf(step int, o engine.Outcome) StepOutcome {
	so := StepOutcome{
		Step:        step,
		Operation:   o.Operation,
		OperationID: o.OperationID,
		Status:      string(o.Status),
		Generation:  o.Generation,
	}
	if o.Status == engine.StatusApplied {
		so.Change = o.Change.String()
	}
	if reason, ok := engine.IsDropped(o.Err); ok {
		so.Reason = string(reason)
	}
	if o.Err != nil {
		so.Error = o.Err.Error()
	}
	return so
}
