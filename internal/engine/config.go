package engine

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/listq/internal/metrics"
)

// OverflowPolicy decides what happens when a submit finds the queue full.
type OverflowPolicy int

const (
	// DropNew rejects the incoming operation and leaves the queue unchanged.
	DropNew OverflowPolicy = iota
	// DropOldest evicts the head of the queue and appends the incoming one.
	DropOldest
	// ClearAndEnqueue evicts every queued operation and appends the incoming one.
	ClearAndEnqueue
)

var overflowNames = map[OverflowPolicy]string{
	DropNew:         "DROP_NEW",
	DropOldest:      "DROP_OLDEST",
	ClearAndEnqueue: "CLEAR_AND_ENQUEUE",
}

func (p OverflowPolicy) String() string {
	if s, ok := overflowNames[p]; ok {
		return s
	}
	return fmt.Sprintf("OverflowPolicy(%d)", int(p))
}

// ParseOverflowPolicy accepts the String form, case-insensitively.
func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	for p, name := range overflowNames {
		if strings.EqualFold(s, name) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown overflow policy %q", s)
}

// DiffMode selects where edit scripts are computed.
type DiffMode int

const (
	// DiffAsync computes on a worker goroutine, one at a time.
	DiffAsync DiffMode = iota
	// DiffInline computes on the lane right after each application.
	DiffInline
)

func (m DiffMode) String() string {
	switch m {
	case DiffAsync:
		return "async"
	case DiffInline:
		return "inline"
	default:
		return fmt.Sprintf("DiffMode(%d)", int(m))
	}
}

// ParseDiffMode accepts "async" or "inline".
func ParseDiffMode(s string) (DiffMode, error) {
	switch strings.ToLower(s) {
	case "async":
		return DiffAsync, nil
	case "inline":
		return DiffInline, nil
	}
	return 0, fmt.Errorf("unknown diff mode %q", s)
}

// ThreadCheckMode controls the goroutine-affinity assertion on Submit.
type ThreadCheckMode int

const (
	ThreadCheckOff ThreadCheckMode = iota
	// ThreadCheckLog logs a warning and accepts the call.
	ThreadCheckLog
	// ThreadCheckStrict rejects the call with a validation failure.
	ThreadCheckStrict
)

func (m ThreadCheckMode) String() string {
	switch m {
	case ThreadCheckOff:
		return "off"
	case ThreadCheckLog:
		return "log"
	case ThreadCheckStrict:
		return "strict"
	default:
		return fmt.Sprintf("ThreadCheckMode(%d)", int(m))
	}
}

// ParseThreadCheckMode accepts "off", "log" or "strict".
func ParseThreadCheckMode(s string) (ThreadCheckMode, error) {
	switch strings.ToLower(s) {
	case "off", "":
		return ThreadCheckOff, nil
	case "log":
		return ThreadCheckLog, nil
	case "strict":
		return ThreadCheckStrict, nil
	}
	return 0, fmt.Errorf("unknown thread check mode %q", s)
}

// Config is the engine's tunable policy.
//
// The engine never mutates a published Config. Readers load it through an
// atomic pointer; writers go through Engine.Reconfigure.
type Config struct {
	// MaxPending bounds the admission queue. Zero or negative means unbounded.
	MaxPending int

	Overflow OverflowPolicy

	// MergeKeys lists operation keys whose queued entries are evicted when a
	// newer operation with the same key arrives.
	MergeKeys []string

	DiffMode DiffMode

	ThreadCheck ThreadCheckMode

	// Affinity reports whether the caller runs on the designated goroutine.
	// The thread check is skipped while it is nil.
	Affinity func() bool
}

// DefaultConfig returns an unbounded, non-merging, async configuration.
func DefaultConfig() Config {
	return Config{
		Overflow: DropNew,
		DiffMode: DiffAsync,
	}
}

// Bounded reports whether the queue has a depth limit.
func (c Config) Bounded() bool {
	return c.MaxPending > 0
}

// Merges reports whether key is merge-enabled.
func (c Config) Merges(key string) bool {
	_, ok := slices.BinarySearch(c.MergeKeys, key)
	return ok
}

func (c Config) clone() Config {
	c.MergeKeys = slices.Clone(c.MergeKeys)
	return c
}

func (c *Config) normalize() {
	slices.Sort(c.MergeKeys)
	c.MergeKeys = slices.Compact(c.MergeKeys)
}

type settings struct {
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	ids     IDGenerator
}

// Option configures an Engine at construction.
type Option func(*settings)

// WithConfig replaces the whole policy. Later options still apply on top.
func WithConfig(cfg Config) Option {
	return func(s *settings) {
		s.cfg = cfg.clone()
	}
}

// WithMaxPending bounds the admission queue. n <= 0 means unbounded.
func WithMaxPending(n int) Option {
	return func(s *settings) {
		s.cfg.MaxPending = n
	}
}

// WithOverflowPolicy sets the policy applied when the queue is full.
func WithOverflowPolicy(p OverflowPolicy) Option {
	return func(s *settings) {
		s.cfg.Overflow = p
	}
}

// WithMergeKeys enables merging for the given operation keys.
func WithMergeKeys(keys ...string) Option {
	return func(s *settings) {
		s.cfg.MergeKeys = append(s.cfg.MergeKeys, keys...)
	}
}

// WithDiffMode selects inline or async diff computation.
func WithDiffMode(m DiffMode) Option {
	return func(s *settings) {
		s.cfg.DiffMode = m
	}
}

// WithThreadCheck enables the affinity assertion on Submit.
func WithThreadCheck(mode ThreadCheckMode, affinity func() bool) Option {
	return func(s *settings) {
		s.cfg.ThreadCheck = mode
		s.cfg.Affinity = affinity
	}
}

// WithIDGenerator overrides the UUIDv7 operation ID generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *settings) {
		s.ids = g
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		s.logger = l
	}
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *settings) {
		s.metrics = m
	}
}
