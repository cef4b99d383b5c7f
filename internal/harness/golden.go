package harness

import (
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/listq/internal/canonical"
)

// TraceLines renders the trace as canonical JSON, one entry per line, with
// a trailing newline.
func TraceLines(r *Result) ([]byte, error) {
	var buf bytes.Buffer
	for _, ev := range r.Trace {
		line, err := canonical.Marshal(ev)
		if err != nil {
			return nil, err
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// RunWithGolden executes a scenario and compares its trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns an error if the scenario could not be executed. Unmet
// expectations and trace mismatches fail t.
func RunWithGolden(t *testing.T, s *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(s, opts...)
	if err != nil {
		return nil, err
	}
	for _, msg := range result.Errors {
		t.Error(msg)
	}
	return result, AssertGolden(t, s.Name, result)
}

// AssertGolden compares an existing result's trace against the golden file
// for name.
func AssertGolden(t *testing.T, name string, r *Result) error {
	t.Helper()

	trace, err := TraceLines(r)
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, trace)
	return nil
}
