// Package harness runs list-engine scenarios described in YAML.
//
// A scenario names an engine policy, a list of steps (operations or engine
// actions such as drain and clear_queue) and the expected end state:
//
//	name: drop_new_when_full
//	description: a bounded queue rejects the newest submission
//	config:
//	  max_pending: 1
//	  overflow: DROP_NEW
//	queued: true
//	steps:
//	  - op: AddItem
//	    item: a
//	  - op: AddItem
//	    item: b
//	    expect: {status: DROPPED, reason: QUEUE_FULL_DROP_NEW}
//	expect:
//	  items: [a]
//	  drops: {QUEUE_FULL_DROP_NEW: 1}
//
// Runs are deterministic. Operation IDs come from a sequence generator,
// diffing is inline and the lane is pumped on the caller's goroutine, so
// the trace (debug events plus publications) is stable enough for golden
// comparison with goldie.
package harness
