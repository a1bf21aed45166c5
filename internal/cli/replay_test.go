package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tapevm/internal/store"
)

func TestReplayMissingDatabaseFlag(t *testing.T) {
	_, _, err := execute(t, "replay")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
	assert.Contains(t, err.Error(), "db")
}

func TestReplayNonExistentDatabase(t *testing.T) {
	_, _, err := execute(t, "replay", "--db", filepath.Join(t.TempDir(), "missing.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestReplayEmptyDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, _, err := execute(t, "replay", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No runs found in database.")

	out, _, err = execute(t, "replay", "--db", dbPath, "--format", "json")
	require.NoError(t, err)
	_, result, _ := decodeResponse[ReplayResult](t, out)
	assert.True(t, result.AllDeterministic)
	assert.Empty(t, result.Runs)
}

func TestReplayAllRuns(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "runs.db")
	hello := recordTestRun(t, dbPath, helloWorld, "--cells", "7")
	echo := recordTestRun(t, dbPath, ",[.,]", "--input", "replay me")

	// An untraced budget run and a failed run replay too.
	spin := writeFile(t, dir, "spin.bf", "+[]")
	_, _, err := execute(t, "run", "--db", dbPath, "--max-steps", "20", spin)
	require.Error(t, err)
	left := writeFile(t, dir, "left.bf", ">><<<")
	_, _, err = execute(t, "run", "--db", dbPath, left)
	require.Error(t, err)

	out, _, err := execute(t, "replay", "--db", dbPath)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Replay Summary: 4 run(s)")
	assert.Contains(t, out, "✓ Run: "+hello)
	assert.Contains(t, out, "✓ Run: "+echo)
	assert.Contains(t, out, "budget_exceeded after 20 steps")
	assert.Contains(t, out, "failed after 4 steps")
	assert.Contains(t, out, "✓ All runs verified deterministic")
}

func TestReplaySpecificRunJSON(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	recordTestRun(t, dbPath, "+.")
	id := recordTestRun(t, dbPath, ",.", "--input", "q")

	out, _, err := execute(t, "replay", "--db", dbPath, "--run", id, "--format", "json")
	require.NoError(t, err)

	status, result, _ := decodeResponse[ReplayResult](t, out)
	assert.Equal(t, "ok", status)
	require.Len(t, result.Runs, 1)
	assert.Equal(t, id, result.Runs[0].RunID)
	assert.True(t, result.Runs[0].Traced)
	assert.True(t, result.Runs[0].Deterministic)
}

func TestReplayUnknownRun(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	recordTestRun(t, dbPath, "+")

	_, _, err := execute(t, "replay", "--db", dbPath, "--run", "no-such-run")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestReplayDetectsMismatch(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	id := recordTestRun(t, dbPath, "++.")

	// Store a copy of the run whose recorded output was altered.
	ctx := context.Background()
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	run, err := st.ReadRun(ctx, id)
	require.NoError(t, err)
	run.ID = "tampered-run"
	run.Output = []byte("zz")
	run.TraceHash = ""
	run.Seq = 0
	_, err = st.WriteRun(ctx, run)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, _, err := execute(t, "replay", "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✓ Run: "+id)
	assert.Contains(t, out, "✗ Run: tampered-run")
	assert.Contains(t, out, "output: recorded")
	assert.Contains(t, out, "✗ Determinism verification failed")

	out, _, err = execute(t, "replay", "--db", dbPath, "--run", "tampered-run", "--format", "json")
	require.Error(t, err)
	status, result, cliErr := decodeResponse[ReplayResult](t, out)
	assert.Equal(t, "error", status)
	require.NotNil(t, cliErr)
	assert.Equal(t, ErrCodeReplayMismatch, cliErr.Code)
	assert.False(t, result.AllDeterministic)
	require.Len(t, result.Runs, 1)
	assert.NotEmpty(t, result.Runs[0].Diffs)
}
