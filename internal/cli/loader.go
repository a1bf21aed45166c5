package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/tapevm/internal/compiler"
	"github.com/roach88/tapevm/internal/console"
)

// LoadMode controls how errors are handled when loading several programs.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadedProgram is a program file read from disk and compiled.
type LoadedProgram struct {
	Path    string
	Source  string
	Program *compiler.Program
}

// LoadError represents an error that occurred while loading a program file.
type LoadError struct {
	Code    string `json:"code"`
	Path    string `json:"path"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"` // 1-based, 0 when not a syntax error
	Column  int    `json:"column,omitempty"`
	Err     error  `json:"-"`
}

func (e *LoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Path, e.Line, e.Column, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// IsSyntax reports whether the file was read but did not compile.
func (e *LoadError) IsSyntax() bool {
	return e.Code == ErrCodeSyntax
}

// LoadProgram reads and compiles a single program file.
func LoadProgram(path string) (*LoadedProgram, error) {
	source, err := console.LoadProgram(path)
	if err != nil {
		code := ErrCodeReadFailed
		if errors.Is(err, os.ErrNotExist) {
			code = ErrCodeNotFound
		}
		return nil, &LoadError{Code: code, Path: path, Message: err.Error(), Err: err}
	}

	prog, err := compiler.Compile(source)
	if err != nil {
		le := &LoadError{Code: ErrCodeSyntax, Path: path, Message: err.Error(), Err: err}
		var se *compiler.SyntaxError
		if errors.As(err, &se) {
			le.Message = se.Message
			le.Line, le.Column = se.Line, se.Column
		}
		return nil, le
	}

	return &LoadedProgram{Path: path, Source: source, Program: prog}, nil
}

// LoadPrograms loads every path in order.
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, the returned slice holds nil for each
// path that failed, aligned with paths.
func LoadPrograms(paths []string, mode LoadMode) ([]*LoadedProgram, []error) {
	var errs []error
	progs := make([]*LoadedProgram, 0, len(paths))

	for _, path := range paths {
		p, err := LoadProgram(path)
		if err != nil {
			errs = append(errs, err)
			if mode == LoadModeFailFast {
				return progs, errs
			}
		}
		progs = append(progs, p)
	}

	return progs, errs
}

// Error codes for CLI error responses.
const (
	ErrCodeGeneric    = "E001" // Generic/unknown error
	ErrCodeReadFailed = "E004" // File read error
	ErrCodeNotFound   = "E005" // Path not found
	ErrCodeConfig     = "E006" // Invalid configuration
	ErrCodeDatabase   = "E007" // Run log error

	ErrCodeSyntax = "E101" // Unbalanced brackets

	ErrCodeRuntime = "E201" // Step failed (OUT_OF_BOUNDS, INVALID_INPUT_BYTE, sink or provider error)
	ErrCodeBudget  = "E202" // Step budget exhausted
	ErrCodeStopped = "E203" // Interrupted or cancelled

	ErrCodeReplayMismatch = "E301" // Replay diverged from the recorded run
)
