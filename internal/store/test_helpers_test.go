package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/tapevm/internal/compiler"
	"github.com/roach88/tapevm/internal/ir"
)

// createTestStore creates a new store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestProgram compiles source and stores it.
func createTestProgram(t *testing.T, s *Store, source string) Program {
	t.Helper()
	p := ProgramFrom(compiler.MustCompile(source), source)
	if err := s.WriteProgram(context.Background(), p); err != nil {
		t.Fatalf("WriteProgram() failed: %v", err)
	}
	return p
}

// createTestRun creates a run record with minimal required fields.
func createTestRun(id, programHash string) Run {
	return Run{
		ID:            id,
		ProgramHash:   programHash,
		Capacity:      "fixed(30000)",
		Status:        "halted",
		Steps:         3,
		Input:         []byte{},
		Output:        []byte("A"),
		EngineVersion: ir.EngineVersion,
	}
}
