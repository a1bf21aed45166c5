package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/tapevm/internal/compiler"
	"github.com/roach88/tapevm/internal/ir"
	"github.com/roach88/tapevm/internal/session"
)

// encodeSymbol stores a symbol as its source character.
func encodeSymbol(sym ir.Symbol) (string, error) {
	b, err := sym.MarshalText()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeSymbol(s string) (ir.Symbol, error) {
	var sym ir.Symbol
	if err := sym.UnmarshalText([]byte(s)); err != nil {
		return 0, err
	}
	return sym, nil
}

// nonNil keeps empty captures as empty blobs; the columns are NOT NULL.
func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// ProgramFrom builds the stored form of a compiled program.
func ProgramFrom(prog *compiler.Program, source string) Program {
	return Program{
		Hash:   prog.Hash(),
		Source: source,
		Tokens: prog.Len(),
	}
}

// RunFrom builds the stored form of a session result. When the result
// carries a trace its hash is recorded for replay comparison.
func RunFrom(res *session.Result) (Run, error) {
	run := Run{
		ID:            res.RunID,
		ProgramHash:   res.ProgramHash,
		Capacity:      res.Capacity,
		Status:        string(res.Status),
		ErrorKind:     res.ErrorKind(),
		Error:         res.ErrorMessage(),
		Steps:         res.Steps,
		Input:         res.Input,
		Output:        res.Output,
		EngineVersion: ir.EngineVersion,
	}
	if len(res.Trace) > 0 {
		h, err := ir.TraceHash(res.Trace)
		if err != nil {
			return Run{}, fmt.Errorf("run %s: %w", res.RunID, err)
		}
		run.TraceHash = h
	}
	return run, nil
}
