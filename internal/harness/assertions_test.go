package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func traceOf(kinds ...string) []TraceEvent {
	out := make([]TraceEvent, len(kinds))
	for i, k := range kinds {
		out[i] = TraceEvent{Seq: int64(i + 1), Kind: k}
	}
	return out
}

func TestAssertOrder(t *testing.T) {
	trace := traceOf("ENQUEUED", "DEQUEUED", "PUBLISHED", "COMPLETED", "ENQUEUED")

	tests := []struct {
		name  string
		kinds []string
		ok    bool
	}{
		{"subsequence", []string{"ENQUEUED", "PUBLISHED", "COMPLETED"}, true},
		{"repeated kind", []string{"ENQUEUED", "COMPLETED", "ENQUEUED"}, true},
		{"out of order", []string{"COMPLETED", "DEQUEUED"}, false},
		{"missing kind", []string{"ENQUEUED", "SUPERSEDED"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertOrder(trace, tt.kinds)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var ae *AssertionError
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, AssertOrder, ae.Type)
		})
	}
}

func TestAssertCounts_OnlyListedKeys(t *testing.T) {
	got := map[string]int{"MERGED": 2, "QUEUE_FULL_DROP_NEW": 1}

	assert.NoError(t, assertCounts(AssertDrops, map[string]int{"MERGED": 2}, got, nil))
	assert.NoError(t, assertCounts(AssertDrops, map[string]int{"CLEARED_BY_API": 0}, got, nil))

	err := assertCounts(AssertDrops, map[string]int{"MERGED": 1, "QUEUE_FULL_DROP_NEW": 3}, got, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MERGED=2 (want 1), QUEUE_FULL_DROP_NEW=1 (want 3)")
}

func TestAssertStep(t *testing.T) {
	o := StepOutcome{Step: 2, Operation: "AddItem", Status: "DROPPED", Reason: "MERGED", Error: "DROPPED: AddItem dropped (MERGED)"}

	assert.NoError(t, assertStep(o, StepExpect{Status: "DROPPED"}))
	assert.NoError(t, assertStep(o, StepExpect{Status: "DROPPED", Reason: "MERGED", Error: "dropped"}))

	err := assertStep(o, StepExpect{Status: "APPLIED"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 2 (AddItem) APPLIED")

	assert.Error(t, assertStep(o, StepExpect{Status: "DROPPED", Reason: "QUEUE_FULL_DROP_NEW"}))
	assert.Error(t, assertStep(o, StepExpect{Status: "DROPPED", Error: "VALIDATION"}))
}

func TestAssertionError_IncludesTrace(t *testing.T) {
	err := &AssertionError{
		Type:     AssertEvents,
		Expected: "x",
		Actual:   "y",
		Trace:    []TraceEvent{{Seq: 1, Kind: "DROPPED", Operation: "AddItem", Reason: "MERGED"}},
	}

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: events")
	assert.Contains(t, msg, "Expected: x")
	assert.Contains(t, msg, "[1] DROPPED AddItem MERGED")
}

func TestEvaluateExpectations_SkipsUnsetFields(t *testing.T) {
	s := &Scenario{Steps: []Step{{Op: "AddItem"}}}
	r := NewResult()
	r.Outcomes = append(r.Outcomes, StepOutcome{Step: 0, Status: "FAILED"})
	r.Items = []string{"anything"}

	assert.Empty(t, EvaluateExpectations(s, r))
}
