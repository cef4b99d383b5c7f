package harness

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// Expectation types, used to categorize AssertionError.
const (
	AssertStep       = "step"
	AssertItems      = "items"
	AssertGeneration = "generation"
	AssertPublished  = "published"
	AssertDrops      = "drops"
	AssertFailures   = "failures"
	AssertEvents     = "events"
	AssertOrder      = "order"
)

// AssertionError describes one unmet expectation.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nTrace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s %s\n", ev.Seq, ev.Kind, ev.Operation, ev.Reason)
		}
	}
	return buf.String()
}

// EvaluateExpectations checks every step and scenario expectation against
// r and returns one message per failure.
func EvaluateExpectations(s *Scenario, r *Result) []string {
	var errs []string
	add := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	for _, o := range r.Outcomes {
		if exp := s.Steps[o.Step].Expect; exp != nil {
			add(assertStep(o, *exp))
		}
	}

	exp := s.Expect
	if exp.Items != nil {
		add(assertItems(r, exp.Items))
	}
	if exp.Generation != nil && r.Generation != *exp.Generation {
		add(&AssertionError{
			Type:     AssertGeneration,
			Expected: fmt.Sprintf("generation %d", *exp.Generation),
			Actual:   fmt.Sprintf("generation %d", r.Generation),
		})
	}
	if exp.Published != nil {
		if n := r.Count(KindPublished); n != *exp.Published {
			add(&AssertionError{
				Type:     AssertPublished,
				Expected: fmt.Sprintf("%d publications", *exp.Published),
				Actual:   fmt.Sprintf("%d publications", n),
				Trace:    r.Trace,
			})
		}
	}
	if exp.Drops != nil {
		add(assertCounts(AssertDrops, exp.Drops, r.DropCounts(), nil))
	}
	if exp.Failures != nil {
		add(assertCounts(AssertFailures, exp.Failures, r.FailureCounts(), nil))
	}
	if exp.Events != nil {
		counts := make(map[string]int)
		for _, ev := range r.Trace {
			counts[ev.Kind]++
		}
		add(assertCounts(AssertEvents, exp.Events, counts, r.Trace))
	}
	if len(exp.Order) > 0 {
		add(assertOrder(r.Trace, exp.Order))
	}
	return errs
}

func assertStep(o StepOutcome, exp StepExpect) error {
	fail := func(expected, actual string) error {
		return &AssertionError{
			Type:     AssertStep,
			Expected: fmt.Sprintf("step %d (%s) %s", o.Step, o.Operation, expected),
			Actual:   actual,
		}
	}

	if o.Status != exp.Status {
		return fail(exp.Status, fmt.Sprintf("%s %s", o.Status, o.Error))
	}
	if exp.Reason != "" && o.Reason != exp.Reason {
		return fail("dropped with "+exp.Reason, "dropped with "+o.Reason)
	}
	if exp.Error != "" && !strings.Contains(o.Error, exp.Error) {
		return fail(fmt.Sprintf("error containing %q", exp.Error), fmt.Sprintf("error %q", o.Error))
	}
	return nil
}

func assertItems(r *Result, want []string) error {
	if slices.Equal(r.Items, want) {
		return nil
	}
	return &AssertionError{
		Type:     AssertItems,
		Expected: fmt.Sprintf("%v", want),
		Actual:   fmt.Sprintf("%v", r.Items),
	}
}

// assertCounts requires got[k] == want[k] for every k in want. Keys absent
// from want are not checked.
func assertCounts(typ string, want, got map[string]int, trace []TraceEvent) error {
	keys := make([]string, 0, len(want))
	for k := range want {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var mismatches []string
	for _, k := range keys {
		if got[k] != want[k] {
			mismatches = append(mismatches, fmt.Sprintf("%s=%d (want %d)", k, got[k], want[k]))
		}
	}
	if len(mismatches) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     typ,
		Expected: fmt.Sprintf("%v", want),
		Actual:   strings.Join(mismatches, ", "),
		Trace:    trace,
	}
}

// assertOrder checks that kinds occur in the trace in the given relative
// order. Intervening entries are allowed.
func assertOrder(trace []TraceEvent, kinds []string) error {
	next := 0
	for _, ev := range trace {
		if next < len(kinds) && ev.Kind == kinds[next] {
			next++
		}
	}
	if next == len(kinds) {
		return nil
	}
	return &AssertionError{
		Type:     AssertOrder,
		Expected: fmt.Sprintf("kinds in order: %v", kinds),
		Actual:   fmt.Sprintf("matched %d of %d, stuck at %s", next, len(kinds), kinds[next]),
		Trace:    trace,
	}
}
