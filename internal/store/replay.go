package store

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/roach88/tapevm/internal/compiler"
	"github.com/roach88/tapevm/internal/console"
	"github.com/roach88/tapevm/internal/engine"
	"github.com/roach88/tapevm/internal/session"
)

// ReplayReport is the outcome of re-executing a stored run.
type ReplayReport struct {
	RunID    string          `json:"run_id"`
	Original Run             `json:"original"`
	Replayed *session.Result `json:"-"`
	Match    bool            `json:"match"`
	Diffs    []string        `json:"diffs,omitempty"`
}

// GetLastSeq returns the highest run seq, 0 for an empty store.
func (s *Store) GetLastSeq(ctx context.Context) (int64, error) {
	var seq int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM runs`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("get last seq: %w", err)
	}
	return seq, nil
}

// Replay re-executes a stored run with its recorded input and compares
// status, step count, output and (when recorded) the trace hash.
//
// The recorded input is exactly what the original run consumed, so the
// replay reads it with EOFError: a run that asks for more input than was
// recorded diverges. Runs that stopped on their budget or were cancelled
// are replayed under a budget equal to their recorded step count.
func (s *Store) Replay(ctx context.Context, runID string) (*ReplayReport, error) {
	orig, err := s.ReadRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	prog, err := s.ReadProgram(ctx, orig.ProgramHash)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	compiled, err := compiler.Compile(prog.Source)
	if err != nil {
		return nil, fmt.Errorf("replay: stored program %s: %w", prog.Hash, err)
	}
	if compiled.Hash() != orig.ProgramHash {
		return nil, fmt.Errorf("replay: stored program hashes to %s, run references %s", compiled.Hash(), orig.ProgramHash)
	}

	capacity, err := engine.ParseCapacity(orig.Capacity)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	opts := session.Options{
		Trace: orig.TraceHash != "",
		IDGen: fixedID(orig.ID),
	}
	bounded := orig.Status == string(session.StatusBudget) || orig.Status == string(session.StatusCancelled)
	if bounded {
		opts.MaxSteps = orig.Steps
	}

	in := console.NewInput(bytes.NewReader(orig.Input), console.WithEOFPolicy(console.EOFError))
	sess, err := session.New(compiled, in, console.NewOutput(io.Discard), opts, engine.WithCapacity(capacity))
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	res := sess.Run(ctx)

	report := &ReplayReport{RunID: orig.ID, Original: orig, Replayed: res}

	wantStatus := orig.Status
	if orig.Status == string(session.StatusCancelled) {
		wantStatus = string(session.StatusBudget)
	}
	if string(res.Status) != wantStatus {
		report.Diffs = append(report.Diffs, fmt.Sprintf("status: recorded %s, replayed %s", orig.Status, res.Status))
	}
	if res.ErrorKind() != orig.ErrorKind && !bounded {
		report.Diffs = append(report.Diffs, fmt.Sprintf("error kind: recorded %q, replayed %q", orig.ErrorKind, res.ErrorKind()))
	}
	if res.Steps != orig.Steps {
		report.Diffs = append(report.Diffs, fmt.Sprintf("steps: recorded %d, replayed %d", orig.Steps, res.Steps))
	}
	if !bytes.Equal(res.Output, orig.Output) {
		report.Diffs = append(report.Diffs, fmt.Sprintf("output: recorded %q, replayed %q", orig.Output, res.Output))
	}
	if !bytes.Equal(res.Input, orig.Input) {
		report.Diffs = append(report.Diffs, fmt.Sprintf("input consumed: recorded %d bytes, replayed %d bytes", len(orig.Input), len(res.Input)))
	}
	if orig.TraceHash != "" {
		replayed, err := RunFrom(res)
		if err != nil {
			return nil, fmt.Errorf("replay: %w", err)
		}
		if replayed.TraceHash != orig.TraceHash {
			report.Diffs = append(report.Diffs, "trace hash differs")
		}
	}

	report.Match = len(report.Diffs) == 0
	return report, nil
}

type fixedID string

func (f fixedID) Generate() string { return string(f) }
