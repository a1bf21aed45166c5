package compiler

import (
	"errors"
	"fmt"
)

// Syntax error codes (E001-E009).
const (
	ErrCodeUnbalancedBrackets = "E001" // unmatched '[' or ']'
)

// ErrUnbalancedBrackets is matched by every bracket-matching failure.
var ErrUnbalancedBrackets = errors.New("unbalanced brackets")

// SyntaxError reports a program that cannot be compiled.
// No engine is ever built from a program that produced one.
type SyntaxError struct {
	Code    string `json:"code"`
	Message string `json:"message"`

	// Index is the offending token's index in the instruction stream.
	Index int `json:"index"`

	// Pos is the offending token's byte offset in the source.
	Pos int `json:"pos"`

	// Line and Column are 1-based. Zero when the source was not available
	// (Match called directly on tokens).
	Line   int `json:"line,omitempty"`
	Column int `json:"column,omitempty"`
}

func newUnbalancedError(msg string, index, pos int) *SyntaxError {
	return &SyntaxError{
		Code:    ErrCodeUnbalancedBrackets,
		Message: msg,
		Index:   index,
		Pos:     pos,
	}
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d, column %d: %s", e.Code, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("[%s] offset %d: %s", e.Code, e.Pos, e.Message)
}

// Unwrap lets errors.Is match the sentinel for the error's code.
func (e *SyntaxError) Unwrap() error {
	if e.Code == ErrCodeUnbalancedBrackets {
		return ErrUnbalancedBrackets
	}
	return nil
}

// IsSyntaxError returns true if err is or wraps a *SyntaxError.
func IsSyntaxError(err error) bool {
	var se *SyntaxError
	return errors.As(err, &se)
}

// locate fills Line and Column from the source text. Column counts runes,
// so multibyte text before the error moves it by one per character.
func (e *SyntaxError) locate(source string) {
	if e.Pos < 0 || e.Pos > len(source) {
		return
	}
	line, col := 1, 1
	for _, r := range source[:e.Pos] {
		if r == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	e.Line, e.Column = line, col
}
