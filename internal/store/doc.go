// Package store provides a SQLite-backed journal for list-engine runs.
//
// The journal is append-only and records, per run:
//   - Events: every debug event the engine emitted
//   - Failures: every failure record (validation, exception, dropped)
//   - Results: every published diff result (generation, size, edit script)
//
// It exists for offline tuning: replaying a workload with different queue
// policies and comparing drop counts, supersessions and script sizes.
//
// # Ordering
//
//   - Rows carry a per-run seq INTEGER assigned by the Journal, never a
//     timestamp
//   - Reads always ORDER BY seq ASC (generation ASC for results)
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Scripts and run configs are stored as canonical JSON (internal/canonical)
// so journals from identical runs compare byte for byte.
package store
