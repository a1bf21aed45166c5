package store

import (
	"context"
	"fmt"

	"github.com/roach88/tapevm/internal/ir"
)

// WriteProgram inserts a program source.
// Uses ON CONFLICT(hash) DO NOTHING - programs are content-addressed, so a
// second write of the same hash is a no-op.
func (s *Store) WriteProgram(ctx context.Context, p Program) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO programs (hash, source, tokens)
		VALUES (?, ?, ?)
		ON CONFLICT(hash) DO NOTHING
	`, p.Hash, p.Source, p.Tokens)
	if err != nil {
		return fmt.Errorf("write program: %w", err)
	}
	return nil
}

// WriteRun inserts a run record and returns its seq.
//
// When run.Seq is 0 the next seq is assigned inside the same transaction.
// Duplicate run IDs are ignored and the existing seq is returned.
//
// Note: The program referenced by ProgramHash must exist (foreign key constraint).
func (s *Store) WriteRun(ctx context.Context, run Run) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var existing int64
	err = tx.QueryRowContext(ctx, `SELECT seq FROM runs WHERE id = ?`, run.ID).Scan(&existing)
	if err == nil {
		return existing, nil
	}
	if !isNoRows(err) {
		return 0, fmt.Errorf("write run: %w", err)
	}

	seq := run.Seq
	if seq == 0 {
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&seq); err != nil {
			return 0, fmt.Errorf("write run: next seq: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, program_hash, capacity, status, error_kind, error, steps, input, output, trace_hash, engine_version, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.ProgramHash,
		run.Capacity,
		run.Status,
		run.ErrorKind,
		run.Error,
		run.Steps,
		nonNil(run.Input),
		nonNil(run.Output),
		run.TraceHash,
		run.EngineVersion,
		seq,
	)
	if err != nil {
		return 0, fmt.Errorf("write run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("write run: commit: %w", err)
	}
	return seq, nil
}

// WriteSteps appends step records to a run in one transaction.
// Uses ON CONFLICT(run_id, seq) DO NOTHING so a retried write is harmless.
//
// Note: The run must exist (foreign key constraint).
func (s *Store) WriteSteps(ctx context.Context, runID string, steps []ir.Step) error {
	if len(steps) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write steps: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO steps (run_id, seq, idx, pointer, pos, symbol, cell)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("write steps: prepare: %w", err)
	}
	defer stmt.Close()

	for _, st := range steps {
		sym, err := encodeSymbol(st.Symbol)
		if err != nil {
			return fmt.Errorf("write steps: seq %d: %w", st.Seq, err)
		}
		if _, err := stmt.ExecContext(ctx, runID, st.Seq, st.Index, st.Pointer, st.Pos, sym, int(st.Cell)); err != nil {
			return fmt.Errorf("write steps: seq %d: %w", st.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write steps: commit: %w", err)
	}
	return nil
}
