package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ReadRuns returns every run, oldest first.
func (s *Store) ReadRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, config, created_at
		FROM runs
		ORDER BY created_at ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Name, &r.Config, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun returns one run, or sql.ErrNoRows wrapped.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	var r Run
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, config, created_at FROM runs WHERE id = ?
	`, id).Scan(&r.ID, &r.Name, &r.Config, &r.CreatedAt)
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", id, err)
	}
	return r, nil
}

// ReadEvents returns a run's events in seq order, optionally restricted
// to the given kinds.
//
// Returns an empty slice (not nil) if no events match.
func (s *Store) ReadEvents(ctx context.Context, runID string, kinds ...string) ([]EventRow, error) {
	query := `
		SELECT run_id, seq, kind, operation, operation_id, pending, processing, reason, generation, message
		FROM events
		WHERE run_id = ?`
	args := []any{runID}
	if len(kinds) > 0 {
		query += " AND kind IN (" + placeholders(len(kinds)) + ")"
		for _, k := range kinds {
			args = append(args, k)
		}
	}
	query += " ORDER BY seq ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []EventRow{}
	for rows.Next() {
		var ev EventRow
		var processing int
		if err := rows.Scan(
			&ev.RunID, &ev.Seq, &ev.Kind, &ev.Operation, &ev.OperationID,
			&ev.Pending, &processing, &ev.Reason, &ev.Generation, &ev.Message,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Processing = processing != 0
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// ReadFailures returns a run's failures in seq order.
func (s *Store) ReadFailures(ctx context.Context, runID string) ([]FailureRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, operation, operation_id, kind, reason, error
		FROM failures
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query failures: %w", err)
	}
	defer rows.Close()

	failures := []FailureRow{}
	for rows.Next() {
		var f FailureRow
		if err := rows.Scan(&f.RunID, &f.Seq, &f.Operation, &f.OperationID, &f.Kind, &f.Reason, &f.Error); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		failures = append(failures, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate failures: %w", err)
	}
	return failures, nil
}

// ReadResults returns a run's publications in generation order.
func (s *Store) ReadResults(ctx context.Context, runID string) ([]ResultRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, generation, previous, size, script, reset
		FROM results
		WHERE run_id = ?
		ORDER BY generation ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	results := []ResultRow{}
	for rows.Next() {
		var r ResultRow
		var reset int
		if err := rows.Scan(&r.RunID, &r.Generation, &r.Previous, &r.Size, &r.Script, &reset); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.Reset = reset != 0
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return results, nil
}

// DropCounts aggregates dropped failures by reason for a run.
func (s *Store) DropCounts(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT reason, COUNT(*)
		FROM failures
		WHERE run_id = ? AND kind = 'DROPPED'
		GROUP BY reason
		ORDER BY reason COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query drop counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var reason string
		var n int
		if err := rows.Scan(&reason, &n); err != nil {
			return nil, fmt.Errorf("scan drop count: %w", err)
		}
		counts[reason] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate drop counts: %w", err)
	}
	return counts, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// IsNotFound reports whether err came from a lookup with no rows.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
