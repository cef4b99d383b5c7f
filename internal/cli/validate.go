package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/listq/internal/config"
	"github.com/roach88/listq/internal/engine"
)

// EffectiveConfig is the engine policy a config file resolves to.
type EffectiveConfig struct {
	MaxPending       int      `json:"max_pending"`
	Overflow         string   `json:"overflow"`
	MergeKeys        []string `json:"merge_keys"`
	DiffMode         string   `json:"diff_mode"`
	ThreadCheck      string   `json:"thread_check"`
	MetricsNamespace string   `json:"metrics_namespace,omitempty"`
}

// ValidateResult is the outcome of validating one config file.
type ValidateResult struct {
	Path   string           `json:"path"`
	Valid  bool             `json:"valid"`
	Config *EffectiveConfig `json:"config,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config>",
		Short: "Validate an engine config file",
		Long: `Validate a YAML or CUE engine config against the config schema and
print the policy it resolves to.

Exit codes:
  0 - config is valid
  1 - config is invalid
  2 - config could not be read

Examples:
  listq validate engine.yaml
  listq validate engine.cue --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	out := formatter(opts, cmd)
	result := ValidateResult{Path: path}

	file, err := config.Load(path)
	if err != nil {
		if !config.IsConfigError(err) {
			return WrapExitError(ExitCommandError, "failed to read config", err)
		}
		result.Error = err.Error()
		if ferr := out.Failure("E_INVALID_CONFIG", err.Error(), result, nil); ferr != nil {
			return ferr
		}
		return NewExitError(ExitFailure, "config is invalid")
	}

	cfg, err := file.EngineConfig()
	if err != nil {
		result.Error = err.Error()
		if ferr := out.Failure("E_INVALID_CONFIG", err.Error(), result, nil); ferr != nil {
			return ferr
		}
		return NewExitError(ExitFailure, "config is invalid")
	}

	result.Valid = true
	result.Config = effective(cfg, file.MetricsNamespace)
	return out.Success(result, func(w io.Writer) {
		fmt.Fprintf(w, "✓ %s is valid\n", path)
		writeConfig(w, result.Config)
	})
}

func effective(cfg engine.Config, namespace string) *EffectiveConfig {
	keys := cfg.MergeKeys
	if keys == nil {
		keys = []string{}
	}
	return &EffectiveConfig{
		MaxPending:       cfg.MaxPending,
		Overflow:         cfg.Overflow.String(),
		MergeKeys:        keys,
		DiffMode:         cfg.DiffMode.String(),
		ThreadCheck:      cfg.ThreadCheck.String(),
		MetricsNamespace: namespace,
	}
}

func writeConfig(w io.Writer, c *EffectiveConfig) {
	bound := "unbounded"
	if c.MaxPending > 0 {
		bound = fmt.Sprintf("%d", c.MaxPending)
	}
	fmt.Fprintf(w, "  max_pending:  %s\n", bound)
	fmt.Fprintf(w, "  overflow:     %s\n", c.Overflow)
	fmt.Fprintf(w, "  merge_keys:   %v\n", c.MergeKeys)
	fmt.Fprintf(w, "  diff_mode:    %s\n", c.DiffMode)
	fmt.Fprintf(w, "  thread_check: %s\n", c.ThreadCheck)
}
