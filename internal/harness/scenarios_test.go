package harness

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenarios runs every scenario under testdata/scenarios. These
// scenarios serve as:
// 1. End-to-end validation of compiler, engine, session and store
// 2. Reference examples of the scenario format
// 3. Regression fixtures through their golden traces
func TestScenarios(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), ".yaml")
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err, "failed to load scenario from %s", path)
			assert.Equal(t, name, scenario.Name, "file name and scenario name differ")

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "scenario should pass: errors=%v", result.Errors)

			if scenario.Golden {
				require.NoError(t, AssertGolden(t, scenario.Name, result))
			}
		})
	}
}

// TestScenarios_GoldenFilesHaveScenarios catches golden files left behind
// by renamed scenarios.
func TestScenarios_GoldenFilesHaveScenarios(t *testing.T) {
	goldens, err := filepath.Glob("testdata/golden/*.golden")
	require.NoError(t, err)

	for _, g := range goldens {
		name := strings.TrimSuffix(filepath.Base(g), ".golden")
		_, err := os.Stat(filepath.Join("testdata/scenarios", name+".yaml"))
		assert.NoError(t, err, "golden file %s has no scenario", g)
	}
}

// TestScenarios_Deterministic runs the same scenario twice and compares
// the traces.
func TestScenarios_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/hello.yaml")
	require.NoError(t, err)

	r1, err := Run(scenario)
	require.NoError(t, err)
	r2, err := Run(scenario)
	require.NoError(t, err)

	s1, err := NewTraceSnapshot(scenario.Name, r1).MarshalCanonical()
	require.NoError(t, err)
	s2, err := NewTraceSnapshot(scenario.Name, r2).MarshalCanonical()
	require.NoError(t, err)
	assert.Equal(t, string(s1), string(s2))
	assert.Len(t, r1.Trace, 906)
}
