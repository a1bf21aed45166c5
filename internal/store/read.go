package store

import (
	"context"
	"fmt"

	"github.com/roach88/tapevm/internal/ir"
)

const runColumns = `id, program_hash, capacity, status, error_kind, error, steps, input, output, trace_hash, engine_version, seq`

// ReadProgram retrieves a program by hash.
// Returns ErrNotFound if no such program exists.
func (s *Store) ReadProgram(ctx context.Context, hash string) (Program, error) {
	var p Program
	err := s.db.QueryRowContext(ctx, `
		SELECT hash, source, tokens FROM programs WHERE hash = ?
	`, hash).Scan(&p.Hash, &p.Source, &p.Tokens)
	if isNoRows(err) {
		return Program{}, fmt.Errorf("read program %s: %w", hash, ErrNotFound)
	}
	if err != nil {
		return Program{}, fmt.Errorf("read program %s: %w", hash, err)
	}
	return p, nil
}

// ReadRun retrieves a run by ID.
// Returns ErrNotFound if no such run exists.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if isNoRows(err) {
		return Run{}, fmt.Errorf("read run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns stored runs in seq order. A non-empty programHash limits
// the listing to runs of that program; limit <= 0 means no limit.
func (s *Store) ListRuns(ctx context.Context, programHash string, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	var args []any
	if programHash != "" {
		query += ` WHERE program_hash = ?`
		args = append(args, programHash)
	}
	query += ` ORDER BY seq ASC, id COLLATE BINARY ASC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// ReadSteps returns the stored trace of a run in seq order. A run stored
// without a trace yields an empty slice.
func (s *Store) ReadSteps(ctx context.Context, runID string) ([]ir.Step, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, idx, pointer, pos, symbol, cell
		FROM steps
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("read steps %s: %w", runID, err)
	}
	defer rows.Close()

	var steps []ir.Step
	for rows.Next() {
		var (
			st   ir.Step
			sym  string
			cell int
		)
		if err := rows.Scan(&st.Seq, &st.Index, &st.Pointer, &st.Pos, &sym, &cell); err != nil {
			return nil, fmt.Errorf("read steps %s: %w", runID, err)
		}
		if st.Symbol, err = decodeSymbol(sym); err != nil {
			return nil, fmt.Errorf("read steps %s: seq %d: %w", runID, st.Seq, err)
		}
		st.Cell = byte(cell)
		steps = append(steps, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read steps %s: %w", runID, err)
	}
	return steps, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(r rowScanner) (Run, error) {
	var run Run
	err := r.Scan(
		&run.ID,
		&run.ProgramHash,
		&run.Capacity,
		&run.Status,
		&run.ErrorKind,
		&run.Error,
		&run.Steps,
		&run.Input,
		&run.Output,
		&run.TraceHash,
		&run.EngineVersion,
		&run.Seq,
	)
	return run, err
}
