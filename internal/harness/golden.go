package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/tapevm/internal/ir"
)

// TraceSnapshot captures the observable outcome of a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string    `json:"scenario_name"`
	RunID        string    `json:"run_id"`
	Status       string    `json:"status"`
	ErrorKind    string    `json:"error_kind,omitempty"`
	Steps        int64     `json:"steps"`
	Output       []byte    `json:"output"`
	Trace        []ir.Step `json:"trace"`
}

// NewTraceSnapshot builds the snapshot of a result.
func NewTraceSnapshot(name string, r *Result) TraceSnapshot {
	return TraceSnapshot{
		ScenarioName: name,
		RunID:        r.RunID,
		Status:       r.Status,
		ErrorKind:    r.ErrorKind,
		Steps:        r.Steps,
		Output:       r.Output,
		Trace:        r.Trace,
	}
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any for canonical JSON serialization.
func (s TraceSnapshot) toCanonicalMap() map[string]any {
	trace := make([]any, len(s.Trace))
	for i, st := range s.Trace {
		trace[i] = st.Object()
	}

	m := map[string]any{
		"scenario_name": s.ScenarioName,
		"run_id":        s.RunID,
		"status":        s.Status,
		"steps":         s.Steps,
		"output":        append([]byte{}, s.Output...),
		"trace":         trace,
	}
	if s.ErrorKind != "" {
		m["error_kind"] = s.ErrorKind
	}
	return m
}

// MarshalCanonical returns the snapshot as canonical JSON, the golden file
// content.
func (s TraceSnapshot) MarshalCanonical() ([]byte, error) {
	return ir.MarshalCanonical(s.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := NewTraceSnapshot(scenarioName, result)
	traceJSON, err := snapshot.MarshalCanonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}
