package cli

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/listq/internal/engine"
	"github.com/roach88/listq/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string
	Kinds    []string
}

// RunSummary describes one journaled run.
type RunSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Config    string `json:"config"`
	CreatedAt string `json:"created_at"`
}

// TraceEvent is one journaled debug event.
type TraceEvent struct {
	Seq         int64  `json:"seq"`
	Kind        string `json:"kind"`
	Operation   string `json:"op"`
	OperationID string `json:"id,omitempty"`
	Pending     int    `json:"pending"`
	Processing  bool   `json:"processing"`
	Reason      string `json:"reason,omitempty"`
	Generation  int64  `json:"generation,omitempty"`
	Message     string `json:"message,omitempty"`
}

// TraceFailure is one journaled failure record.
type TraceFailure struct {
	Seq         int64  `json:"seq"`
	Operation   string `json:"op"`
	OperationID string `json:"id,omitempty"`
	Kind        string `json:"kind"`
	Reason      string `json:"reason,omitempty"`
	Error       string `json:"error"`
}

// TracePublication is one journaled result.
type TracePublication struct {
	Generation int64  `json:"generation"`
	Previous   int64  `json:"previous"`
	Size       int    `json:"size"`
	Script     string `json:"script"`
	Reset      bool   `json:"reset"`
}

// TraceResult holds the journal of one run.
type TraceResult struct {
	Run          RunSummary         `json:"run"`
	Events       []TraceEvent       `json:"events"`
	Failures     []TraceFailure     `json:"failures"`
	Publications []TracePublication `json:"publications"`
	Drops        map[string]int     `json:"drops"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect a journaled run",
		Long: `Print what a journaled run recorded: debug events in order, failure
records, publications and drop counts by reason.

Without --run, lists the runs in the database.

Examples:
  listq trace --db ./listq.db
  listq trace --db ./listq.db --run 0192f3c4-...
  listq trace --db ./listq.db --run 0192f3c4-... --kind DROPPED --kind SUPERSEDED`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run to print")
	cmd.Flags().StringSliceVar(&opts.Kinds, "kind", nil, "only print events of these kinds")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := formatter(opts.RootOptions, cmd)

	kinds := make([]string, 0, len(opts.Kinds))
	for _, k := range opts.Kinds {
		k = strings.ToUpper(k)
		if !slices.Contains(engine.EventKinds(), engine.EventKind(k)) {
			return NewExitError(ExitCommandError, fmt.Sprintf("unknown event kind %q", k))
		}
		kinds = append(kinds, k)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.RunID == "" {
		return listRuns(ctx, st, out)
	}

	run, err := st.ReadRun(ctx, opts.RunID)
	if err != nil {
		if store.IsNotFound(err) {
			return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", opts.RunID))
		}
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	result, err := loadTrace(ctx, st, run, kinds)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}
	return out.Success(result, func(w io.Writer) { writeTraceText(w, result) })
}

func listRuns(ctx context.Context, st *store.Store, out *OutputFormatter) error {
	runs, err := st.ReadRuns(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read runs", err)
	}
	summaries := make([]RunSummary, 0, len(runs))
	for _, r := range runs {
		summaries = append(summaries, summarize(r))
	}
	return out.Success(summaries, func(w io.Writer) {
		if len(summaries) == 0 {
			fmt.Fprintln(w, "No runs recorded.")
			return
		}
		for _, r := range summaries {
			fmt.Fprintf(w, "%s  %-28s %s\n", r.ID, r.Name, r.CreatedAt)
		}
	})
}

func loadTrace(ctx context.Context, st *store.Store, run store.Run, kinds []string) (TraceResult, error) {
	result := TraceResult{
		Run:          summarize(run),
		Events:       []TraceEvent{},
		Failures:     []TraceFailure{},
		Publications: []TracePublication{},
	}

	events, err := st.ReadEvents(ctx, run.ID, kinds...)
	if err != nil {
		return result, err
	}
	for _, ev := range events {
		result.Events = append(result.Events, TraceEvent{
			Seq:         ev.Seq,
			Kind:        ev.Kind,
			Operation:   ev.Operation,
			OperationID: ev.OperationID,
			Pending:     ev.Pending,
			Processing:  ev.Processing,
			Reason:      ev.Reason,
			Generation:  ev.Generation,
			Message:     ev.Message,
		})
	}

	failures, err := st.ReadFailures(ctx, run.ID)
	if err != nil {
		return result, err
	}
	for _, f := range failures {
		result.Failures = append(result.Failures, TraceFailure{
			Seq:         f.Seq,
			Operation:   f.Operation,
			OperationID: f.OperationID,
			Kind:        f.Kind,
			Reason:      f.Reason,
			Error:       f.Error,
		})
	}

	results, err := st.ReadResults(ctx, run.ID)
	if err != nil {
		return result, err
	}
	for _, r := range results {
		result.Publications = append(result.Publications, TracePublication{
			Generation: r.Generation,
			Previous:   r.Previous,
			Size:       r.Size,
			Script:     r.Script,
			Reset:      r.Reset,
		})
	}

	result.Drops, err = st.DropCounts(ctx, run.ID)
	return result, err
}

func summarize(r store.Run) RunSummary {
	return RunSummary{ID: r.ID, Name: r.Name, Config: r.Config, CreatedAt: r.CreatedAt}
}

func writeTraceText(w io.Writer, r TraceResult) {
	fmt.Fprintf(w, "Run %s (%s)\n", r.Run.ID, r.Run.Name)
	fmt.Fprintf(w, "Config: %s\n\n", r.Run.Config)

	fmt.Fprintln(w, "Events:")
	for _, ev := range r.Events {
		line := fmt.Sprintf("  %4d %-10s %-14s pending=%d", ev.Seq, ev.Kind, ev.Operation, ev.Pending)
		if ev.Reason != "" {
			line += " reason=" + ev.Reason
		}
		if ev.Generation != 0 {
			line += fmt.Sprintf(" gen=%d", ev.Generation)
		}
		if ev.Message != "" {
			line += " " + ev.Message
		}
		fmt.Fprintln(w, line)
	}

	if len(r.Failures) > 0 {
		fmt.Fprintln(w, "\nFailures:")
		for _, f := range r.Failures {
			fmt.Fprintf(w, "  %4d %-10s %s\n", f.Seq, f.Kind, f.Error)
		}
	}

	fmt.Fprintf(w, "\nPublications: %d\n", len(r.Publications))
	for _, p := range r.Publications {
		fmt.Fprintf(w, "  gen %d <- %d size=%d %s\n", p.Generation, p.Previous, p.Size, p.Script)
	}

	if len(r.Drops) > 0 {
		reasons := make([]string, 0, len(r.Drops))
		for k := range r.Drops {
			reasons = append(reasons, k)
		}
		sort.Strings(reasons)
		fmt.Fprintln(w, "\nDrops:")
		for _, k := range reasons {
			fmt.Fprintf(w, "  %-24s %d\n", k, r.Drops[k])
		}
	}
}
