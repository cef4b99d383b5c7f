package testutil

import "fmt"

// SequenceGenerator produces operation IDs of the form "<prefix>-001",
// "<prefix>-002", ... and never runs out.
//
// Unlike engine.FixedGenerator, which replays a fixed list and panics when
// it is exhausted, SequenceGenerator suits scenarios whose submission count
// is not known up front. The same scenario always yields the same IDs, so
// traces compare byte-for-byte against golden files.
//
// Implements engine.IDGenerator.
type SequenceGenerator struct {
	prefix string
	clock  *DeterministicClock
}

// NewSequenceGenerator creates a generator. An empty prefix means "op".
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	if prefix == "" {
		prefix = "op"
	}
	return &SequenceGenerator{prefix: prefix, clock: NewDeterministicClock()}
}

// Generate returns the next ID.
func (g *SequenceGenerator) Generate() string {
	return fmt.Sprintf("%s-%03d", g.prefix, g.clock.Next())
}

// Reset restarts the sequence at 1.
func (g *SequenceGenerator) Reset() {
	g.clock.Reset()
}
