package cli

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/roach88/listq/internal/config"
	"github.com/roach88/listq/internal/engine"
	"github.com/roach88/listq/internal/harness"
	"github.com/roach88/listq/internal/metrics"
	"github.com/roach88/listq/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Config   string
	Metrics  bool

	// RunIDs overrides the journal run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs engine.IDGenerator
}

// RunResult is the output of one scenario run.
type RunResult struct {
	Scenario   string                `json:"scenario"`
	RunID      string                `json:"run_id,omitempty"`
	Pass       bool                  `json:"pass"`
	Items      []string              `json:"items"`
	Generation int64                 `json:"generation"`
	Outcomes   []harness.StepOutcome `json:"outcomes"`
	Drops      map[string]int        `json:"drops"`
	Errors     []string              `json:"errors,omitempty"`
	Trace      []harness.TraceEvent  `json:"trace,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run one scenario",
		Long: `Run a scenario against the engine and print the final list and the
outcome of every operation.

With --db the run's debug events, failures and publications are journaled
to SQLite for later inspection with "listq trace". With --config the
scenario's own config block is replaced.

Examples:
  listq run scenarios/drop_new.yaml
  listq run scenarios/drop_new.yaml --db ./listq.db --config tuned.yaml
  listq run scenarios/drop_new.yaml --metrics`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "journal the run to this SQLite database")
	cmd.Flags().StringVar(&opts.Config, "config", "", "engine config (YAML or CUE) replacing the scenario's")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print engine metrics after the run")

	return cmd
}

func runScenarioFile(opts *RunOptions, path string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := formatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	file := scenario.Config
	runOpts := []harness.Option{harness.WithLogger(logger)}
	if opts.Config != "" {
		f, err := config.Load(opts.Config)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load config", err)
		}
		file = *f
		runOpts = append(runOpts, harness.WithConfig(f))
	}

	var reg *prometheus.Registry
	if opts.Metrics {
		reg = prometheus.NewRegistry()
		runOpts = append(runOpts, harness.WithMetrics(metrics.New(reg, file.MetricsNamespace)))
	}

	var runID string
	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if cerr := st.Close(); cerr != nil {
				logger.Error("error closing database", "error", cerr)
			}
		}()

		ids := opts.RunIDs
		if ids == nil {
			ids = engine.UUIDv7Generator{}
		}
		runID = ids.Generate()
		if err := st.WriteRun(ctx, runID, scenario.Name, file); err != nil {
			return WrapExitError(ExitCommandError, "failed to register run", err)
		}
		runOpts = append(runOpts, harness.WithJournal(store.NewJournal(ctx, st, runID, logger)))
		out.VerboseLog("journaling run %s to %s", runID, opts.Database)
	}

	result, err := harness.Run(scenario, runOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "scenario execution failed", err)
	}

	rr := RunResult{
		Scenario:   scenario.Name,
		RunID:      runID,
		Pass:       result.Pass,
		Items:      result.Items,
		Generation: result.Generation,
		Outcomes:   result.Outcomes,
		Drops:      result.DropCounts(),
		Errors:     result.Errors,
	}
	if opts.Verbose {
		rr.Trace = result.Trace
	}

	text := func(w io.Writer) {
		writeRunText(w, rr)
		if reg != nil {
			writeMetrics(w, reg)
		}
	}
	if !rr.Pass {
		if err := out.Failure("E_EXPECTATION_FAILED",
			fmt.Sprintf("%d expectation(s) failed", len(rr.Errors)), rr, text); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}
	return out.Success(rr, text)
}

func writeRunText(w io.Writer, rr RunResult) {
	fmt.Fprintf(w, "Scenario: %s\n", rr.Scenario)
	if rr.RunID != "" {
		fmt.Fprintf(w, "Run: %s\n", rr.RunID)
	}
	for _, o := range rr.Outcomes {
		detail := o.Change
		switch {
		case o.Reason != "":
			detail = "(" + o.Reason + ")"
		case o.Error != "":
			detail = o.Error
		}
		fmt.Fprintf(w, "  [%s] %-14s %-8s gen=%d %s\n", o.OperationID, o.Operation, o.Status, o.Generation, detail)
	}
	for _, ev := range rr.Trace {
		fmt.Fprintf(w, "  #%-3d %-10s %-14s pending=%d %s\n", ev.Seq, ev.Kind, ev.Operation, ev.Pending, ev.Reason)
	}
	fmt.Fprintf(w, "Items (generation %d): %v\n", rr.Generation, rr.Items)

	if len(rr.Drops) > 0 {
		reasons := make([]string, 0, len(rr.Drops))
		for r := range rr.Drops {
			reasons = append(reasons, r)
		}
		sort.Strings(reasons)
		fmt.Fprint(w, "Drops:")
		for _, r := range reasons {
			fmt.Fprintf(w, " %s=%d", r, rr.Drops[r])
		}
		fmt.Fprintln(w)
	}

	if rr.Pass {
		fmt.Fprintln(w, "✓ all expectations met")
		return
	}
	for _, e := range rr.Errors {
		fmt.Fprintf(w, "✗ %s\n", e)
	}
}

func writeMetrics(w io.Writer, reg *prometheus.Registry) {
	families, err := reg.Gather()
	if err != nil {
		fmt.Fprintf(w, "# metrics unavailable: %v\n", err)
		return
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			fmt.Fprintf(w, "# metrics unavailable: %v\n", err)
			return
		}
	}
}
