package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/tapevm/internal/ir"
)

// RuntimeError represents an error detected while executing a step.
//
// A RuntimeError is fatal to the current run: the engine moves to Halted
// and keeps its tape for inspection.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Index and Pos locate the failing instruction. Symbol is its kind.
	Index  int
	Pos    int
	Symbol ir.Symbol

	// Pointer is the tape pointer when the error occurred.
	Pointer int

	// Value is the offending input value (INVALID_INPUT_BYTE only).
	Value int
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeOutOfBounds indicates the pointer would leave the tape.
	ErrCodeOutOfBounds RuntimeErrorCode = "OUT_OF_BOUNDS"

	// ErrCodeInvalidInputByte indicates the input provider returned a value
	// outside [0,255].
	ErrCodeInvalidInputByte RuntimeErrorCode = "INVALID_INPUT_BYTE"
)

// Sentinels matched by errors.Is against a *RuntimeError of the same code.
var (
	ErrOutOfBounds      = errors.New("pointer out of bounds")
	ErrInvalidInputByte = errors.New("input is not an unsigned 8-bit value")
	ErrNilCapability    = errors.New("input provider and output sink are required")
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s: %s (index=%d, pos=%d, pointer=%d)", e.Code, e.Message, e.Index, e.Pos, e.Pointer)
}

// Unwrap returns the sentinel for the error's code.
func (e *RuntimeError) Unwrap() error {
	switch e.Code {
	case ErrCodeOutOfBounds:
		return ErrOutOfBounds
	case ErrCodeInvalidInputByte:
		return ErrInvalidInputByte
	}
	return nil
}

// IsOutOfBounds returns true if the error is a pointer range error.
// Uses errors.As to handle wrapped errors.
func IsOutOfBounds(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeOutOfBounds
	}
	return false
}

// IsInvalidInput returns true if the error is an input contract violation.
// Uses errors.As to handle wrapped errors.
func IsInvalidInput(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeInvalidInputByte
	}
	return false
}

// Kind returns a short name for the error category, used by the CLI,
// the harness and the run store. Returns "" for nil.
func Kind(err error) string {
	var re *RuntimeError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &re):
		return string(re.Code)
	default:
		return "ERROR"
	}
}

func newOutOfBoundsError(dir string, ptr, length int) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeOutOfBounds,
		Message: fmt.Sprintf("cannot move %s from cell %d of %d", dir, ptr, length),
		Pointer: ptr,
	}
}

func newInvalidInputError(v int) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeInvalidInputByte,
		Message: fmt.Sprintf("input provider returned %d, want 0..255", v),
		Value:   v,
	}
}
