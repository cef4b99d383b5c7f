package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/listq/internal/config"
	"github.com/roach88/listq/internal/engine"
	"github.com/roach88/listq/internal/listop"
)

// Scenario drives one engine through a list of steps and checks the
// outcome. Items are strings.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario demonstrates.
	Description string `yaml:"description"`

	// Config is the engine policy, in the same shape as a config file.
	Config config.File `yaml:"config,omitempty"`

	// Identity selects how items are matched by the diff stage:
	// "" compares whole strings, "prefix" treats the text before the first
	// ':' as identity and the whole string as content.
	Identity string `yaml:"identity,omitempty"`

	// Queued submits every step before the lane runs. Otherwise the lane
	// drains after each step.
	Queued bool `yaml:"queued,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Expect is checked after the final drain.
	Expect Expectations `yaml:"expect,omitempty"`
}

// Step is either an operation (Op set) or an engine action (Action set).
type Step struct {
	Op        string   `yaml:"op,omitempty"`
	Item      string   `yaml:"item,omitempty"`
	Items     []string `yaml:"items,omitempty"`
	Index     int      `yaml:"index,omitempty"`
	From      int      `yaml:"from,omitempty"`
	To        int      `yaml:"to,omitempty"`
	Transform string   `yaml:"transform,omitempty"`
	MergeKey  string   `yaml:"merge_key,omitempty"`

	// Clear submits through ClearAndSubmit instead of Submit.
	Clear bool `yaml:"clear,omitempty"`

	// Action is one of the Action* constants.
	Action string `yaml:"action,omitempty"`

	// Expect checks the operation's outcome. Only valid with Op.
	Expect *StepExpect `yaml:"expect,omitempty"`
}

// StepExpect is the expected outcome of one operation.
type StepExpect struct {
	// Status is APPLIED, FAILED or DROPPED.
	Status string `yaml:"status"`

	// Reason is the expected drop reason. Only valid with DROPPED.
	Reason string `yaml:"reason,omitempty"`

	// Error is a substring of the expected error message.
	Error string `yaml:"error,omitempty"`
}

// Expectations are checked against the final engine state and the trace.
// Nil fields are not checked.
type Expectations struct {
	Items      []string       `yaml:"items,omitempty"`
	Generation *int64         `yaml:"generation,omitempty"`
	Published  *int           `yaml:"published,omitempty"`
	Drops      map[string]int `yaml:"drops,omitempty"`
	Failures   map[string]int `yaml:"failures,omitempty"`
	Events     map[string]int `yaml:"events,omitempty"`

	// Order lists trace kinds that must appear in this relative order.
	Order []string `yaml:"order,omitempty"`
}

// Engine actions a step may request.
const (
	ActionDrain      = "drain"
	ActionClearQueue = "clear_queue"
)

// Identity modes.
const (
	IdentityWhole  = ""
	IdentityPrefix = "prefix"
)

// Transforms accepted by UpdateItems steps.
const (
	TransformReverse = "reverse"
	TransformSort    = "sort"
	TransformUpper   = "upper"
	TransformPanic   = "panic"
)

// LoadScenario reads and validates a scenario file. Unknown fields are
// rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// LoadDir loads every *.yaml and *.yml scenario under dir, sorted by path.
func LoadDir(dir string) ([]*Scenario, []string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", p, err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, paths, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	switch s.Identity {
	case IdentityWhole, IdentityPrefix:
	default:
		return fmt.Errorf("identity %q must be empty or %q", s.Identity, IdentityPrefix)
	}
	if err := s.Config.Validate(); err != nil {
		return err
	}

	for i, step := range s.Steps {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}

	for kind := range s.Expect.Drops {
		if !knownDropReason(kind) {
			return fmt.Errorf("expect.drops: unknown reason %q", kind)
		}
	}
	for _, kind := range s.Expect.Order {
		if !knownTraceKind(kind) {
			return fmt.Errorf("expect.order: unknown kind %q", kind)
		}
	}
	for kind := range s.Expect.Events {
		if !knownTraceKind(kind) {
			return fmt.Errorf("expect.events: unknown kind %q", kind)
		}
	}
	return nil
}

func validateStep(step Step) error {
	if (step.Op == "") == (step.Action == "") {
		return fmt.Errorf("exactly one of op or action is required")
	}

	if step.Action != "" {
		switch step.Action {
		case ActionDrain, ActionClearQueue:
		default:
			return fmt.Errorf("unknown action %q", step.Action)
		}
		if step.Expect != nil {
			return fmt.Errorf("expect is only valid on op steps")
		}
		return nil
	}

	kind, ok := listop.ParseKind(step.Op)
	if !ok {
		return fmt.Errorf("unknown op %q", step.Op)
	}
	if kind == listop.KindUpdateItems {
		switch step.Transform {
		case TransformReverse, TransformSort, TransformUpper, TransformPanic:
		default:
			return fmt.Errorf("UpdateItems needs a transform (reverse, sort, upper or panic), got %q", step.Transform)
		}
	} else if step.Transform != "" {
		return fmt.Errorf("transform is only valid for UpdateItems")
	}

	if e := step.Expect; e != nil {
		switch engine.Status(e.Status) {
		case engine.StatusApplied, engine.StatusFailed, engine.StatusDropped:
		default:
			return fmt.Errorf("expect.status %q must be APPLIED, FAILED or DROPPED", e.Status)
		}
		if e.Reason != "" && engine.Status(e.Status) != engine.StatusDropped {
			return fmt.Errorf("expect.reason requires status DROPPED")
		}
		if e.Reason != "" && !knownDropReason(e.Reason) {
			return fmt.Errorf("expect.reason: unknown reason %q", e.Reason)
		}
	}
	return nil
}

func knownDropReason(r string) bool {
	switch engine.DropReason(r) {
	case engine.DropQueueFullNew, engine.DropQueueFullOldest, engine.DropQueueFullClear,
		engine.DropClearedExplicit, engine.DropClearedByAPI, engine.DropMerged, engine.DropStopped:
		return true
	}
	return false
}

func knownTraceKind(k string) bool {
	if k == KindPublished {
		return true
	}
	for _, ek := range engine.EventKinds() {
		if string(ek) == k {
			return true
		}
	}
	return false
}
