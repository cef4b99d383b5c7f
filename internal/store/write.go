package store

import (
	"context"
	"fmt"

	"github.com/roach88/listq/internal/canonical"
)

// WriteRun registers a run. config is stored as canonical JSON.
// Uses ON CONFLICT(id) DO NOTHING for idempotency.
func (s *Store) WriteRun(ctx context.Context, id, name string, config any) error {
	cfg := "{}"
	if config != nil {
		data, err := canonical.Marshal(config)
		if err != nil {
			return fmt.Errorf("write run: %w", err)
		}
		cfg = string(data)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, name, config)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, id, name, cfg)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// WriteEvent appends a debug event row.
// Note: The run referenced by RunID must exist (foreign key constraint).
func (s *Store) WriteEvent(ctx context.Context, ev EventRow) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events
		(run_id, seq, kind, operation, operation_id, pending, processing, reason, generation, message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		ev.RunID,
		ev.Seq,
		ev.Kind,
		ev.Operation,
		ev.OperationID,
		ev.Pending,
		boolToInt(ev.Processing),
		ev.Reason,
		ev.Generation,
		ev.Message,
	)
	if err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

// WriteFailure appends a failure row.
func (s *Store) WriteFailure(ctx context.Context, f FailureRow) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO failures
		(run_id, seq, operation, operation_id, kind, reason, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		f.RunID,
		f.Seq,
		f.Operation,
		f.OperationID,
		f.Kind,
		f.Reason,
		f.Error,
	)
	if err != nil {
		return fmt.Errorf("write failure: %w", err)
	}
	return nil
}

// WriteResult appends a publication row. A second write for the same
// generation is ignored.
func (s *Store) WriteResult(ctx context.Context, r ResultRow) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO results
		(run_id, generation, previous, size, script, reset)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		r.RunID,
		r.Generation,
		r.Previous,
		r.Size,
		r.Script,
		boolToInt(r.Reset),
	)
	if err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
