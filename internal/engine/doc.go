// Package engine implements the list-mutation queue engine.
//
// Producers submit structural list edits (listop.Operation) from any
// goroutine. The engine admits them into a bounded queue, applies them one
// at a time to an authoritative list, and hands every resulting snapshot to
// a diff stage whose edit scripts are published to a single consumer.
//
// ARCHITECTURE:
//
// Single-Writer Lane:
// Engine.Run must be called from exactly one goroutine. It is the only code
// that mutates the authoritative list, so application is strictly serial and
// follows admission order (after coalescing).
//
// Admission:
//  1. Submit checks thread affinity (when configured).
//  2. Merge-enabled keys evict queued entries with the same key.
//  3. The overflow policy decides when the queue is at capacity.
//  4. Every decision is reported as a DebugEvent and, for drops, a FailureRecord.
//
// Diff Stage:
// At most one computation runs at a time. Requests arriving while one is in
// flight replace the pending request; a finished result is discarded when a
// newer generation has been requested since. Computations always diff the
// last published snapshot, so skipping intermediate generations is safe.
//
// Reporting:
// Failure and debug listeners run on the goroutine that produced the event.
// Listener panics are recovered and logged; they never reach the lane.
//
// Thread-safety model:
//   - Submit, ClearQueue, ClearAndSubmit: safe from any goroutine
//   - Run: exactly one goroutine
//   - Items, Snapshot, Config: safe from any goroutine
//   - Publisher: called by one goroutine at a time, in generation order
package engine
