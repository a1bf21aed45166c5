package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tapevm/internal/compiler"
	"github.com/roach88/tapevm/internal/session"
)

// recordRun executes source in a session and stores program, run and trace.
func recordRun(t *testing.T, s *Store, source string, in []int, opts session.Options) Run {
	t.Helper()
	return recordRunAs(t, s, "run-1", source, in, opts)
}

func recordRunAs(t *testing.T, s *Store, id, source string, in []int, opts session.Options) Run {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, s.WriteProgram(ctx, ProgramFrom(compiler.MustCompile(source), source)))

	res := runSession(t, source, in, opts)
	run, err := RunFrom(res)
	require.NoError(t, err)
	run.ID = id
	run.Seq, err = s.WriteRun(ctx, run)
	require.NoError(t, err)
	require.NoError(t, s.WriteSteps(ctx, run.ID, res.Trace))
	return run
}

func TestReplay_Matches(t *testing.T) {
	tests := []struct {
		name   string
		source string
		input  []int
		opts   session.Options
		status string
	}{
		{"halted", ",[.,]", []int{'h', 'i', 0}, session.Options{}, "halted"},
		{"halted with trace", ",+.", []int{1}, session.Options{Trace: true}, "halted"},
		{"failed", "+<", nil, session.Options{Trace: true}, "failed"},
		{"budget", "+[]", nil, session.Options{MaxSteps: 50}, "budget_exceeded"},
		{"input error", ",,", []int{1}, session.Options{}, "failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := createTestStore(t)
			run := recordRun(t, s, tt.source, tt.input, tt.opts)
			require.Equal(t, tt.status, run.Status)

			report, err := s.Replay(context.Background(), run.ID)
			require.NoError(t, err)
			assert.True(t, report.Match, "diffs: %v", report.Diffs)
			assert.Empty(t, report.Diffs)
			assert.Equal(t, run.ID, report.RunID)
		})
	}
}

func TestReplay_SameCodeDifferentLayout(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	plain := recordRunAs(t, s, "run-a", "+.", nil, session.Options{Trace: true})
	commented := recordRunAs(t, s, "run-b", "# add one\n+.", nil, session.Options{Trace: true})
	require.NotEqual(t, plain.ProgramHash, commented.ProgramHash)

	prog, err := s.ReadProgram(ctx, commented.ProgramHash)
	require.NoError(t, err)
	assert.Equal(t, "# add one\n+.", prog.Source)

	steps, err := s.ReadSteps(ctx, "run-b")
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, 10, steps[0].Pos)

	for _, id := range []string{"run-a", "run-b"} {
		report, err := s.Replay(ctx, id)
		require.NoError(t, err)
		assert.True(t, report.Match, "%s diffs: %v", id, report.Diffs)
	}
}

func TestReplay_DetectsTamperedOutput(t *testing.T) {
	s := createTestStore(t)
	run := recordRun(t, s, ",+.", []int{1}, session.Options{})

	_, err := s.db.Exec(`UPDATE runs SET output = ? WHERE id = ?`, []byte{9}, run.ID)
	require.NoError(t, err)

	report, err := s.Replay(context.Background(), run.ID)
	require.NoError(t, err)
	assert.False(t, report.Match)
	require.Len(t, report.Diffs, 1)
	assert.Contains(t, report.Diffs[0], "output")
}

func TestReplay_DetectsTamperedInput(t *testing.T) {
	s := createTestStore(t)
	run := recordRun(t, s, ",.,.", []int{1, 2}, session.Options{Trace: true})

	_, err := s.db.Exec(`UPDATE runs SET input = ? WHERE id = ?`, []byte{1}, run.ID)
	require.NoError(t, err)

	report, err := s.Replay(context.Background(), run.ID)
	require.NoError(t, err)
	assert.False(t, report.Match)
	assert.Equal(t, session.StatusFailed, report.Replayed.Status, "replay runs out of recorded input")
}

func TestReplay_UnknownRun(t *testing.T) {
	s := createTestStore(t)
	_, err := s.Replay(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetLastSeq_Empty(t *testing.T) {
	s := createTestStore(t)
	seq, err := s.GetLastSeq(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), seq)
}
