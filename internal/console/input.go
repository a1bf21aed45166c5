package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// EOFPolicy selects what an input instruction stores once the reader is
// exhausted.
type EOFPolicy string

const (
	EOFZero  EOFPolicy = "zero"  // store 0
	EOFKeep  EOFPolicy = "keep"  // leave the cell unchanged
	EOFError EOFPolicy = "error" // fail the step with ErrEndOfInput
)

// ErrEndOfInput is returned by Input under EOFError once the reader is
// exhausted.
var ErrEndOfInput = errors.New("end of input")

// ErrInterrupted is returned when Ctrl-C is read in raw mode.
var ErrInterrupted = errors.New("interrupted")

const (
	keyInterrupt = 0x03 // Ctrl-C
	keyEOT       = 0x04 // Ctrl-D
)

// ParseEOFPolicy parses "zero", "keep" or "error". The empty string is
// EOFZero.
func ParseEOFPolicy(s string) (EOFPolicy, error) {
	switch EOFPolicy(s) {
	case "", EOFZero:
		return EOFZero, nil
	case EOFKeep:
		return EOFKeep, nil
	case EOFError:
		return EOFError, nil
	}
	return "", fmt.Errorf("invalid eof policy %q (expected zero, keep or error)", s)
}

// Input is an engine.InputProvider over an io.Reader.
type Input struct {
	r      *bufio.Reader
	policy EOFPolicy
	cell   func() byte
	echo   io.Writer
	raw    bool
	eof    bool
}

// InputOption configures an Input.
type InputOption func(*Input)

// WithEOFPolicy sets the end-of-input policy. Default EOFZero.
func WithEOFPolicy(p EOFPolicy) InputOption {
	return func(in *Input) {
		in.policy = p
	}
}

// WithCurrentCell supplies the value of the cell under the pointer, used by
// EOFKeep. Without it EOFKeep behaves like EOFZero.
func WithCurrentCell(cell func() byte) InputOption {
	return func(in *Input) {
		in.cell = cell
	}
}

// WithEcho writes every byte read to w. Raw terminals do not echo.
func WithEcho(w io.Writer) InputOption {
	return func(in *Input) {
		in.echo = w
	}
}

// WithRawKeys treats Ctrl-D as end of input and Ctrl-C as ErrInterrupted,
// since a raw terminal delivers both as plain bytes.
func WithRawKeys() InputOption {
	return func(in *Input) {
		in.raw = true
	}
}

// NewInput creates an Input reading from r.
func NewInput(r io.Reader, opts ...InputOption) *Input {
	in := &Input{r: bufio.NewReaderSize(r, 1), policy: EOFZero}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// SetCurrentCell replaces the cell source after construction, for callers
// that create the engine after its input.
func (in *Input) SetCurrentCell(cell func() byte) {
	in.cell = cell
}

// ReadCell returns the next byte, or the policy's value at end of input.
func (in *Input) ReadCell() (int, error) {
	if !in.eof {
		b, err := in.r.ReadByte()
		switch {
		case err == nil && in.raw && b == keyInterrupt:
			return 0, ErrInterrupted
		case err == nil && in.raw && b == keyEOT:
			in.eof = true
		case err == nil:
			if in.echo != nil {
				if _, werr := in.echo.Write([]byte{b}); werr != nil {
					return 0, fmt.Errorf("echo: %w", werr)
				}
			}
			return int(b), nil
		case errors.Is(err, io.EOF):
			in.eof = true
		default:
			return 0, err
		}
	}

	switch in.policy {
	case EOFKeep:
		if in.cell != nil {
			return int(in.cell()), nil
		}
		return 0, nil
	case EOFError:
		return 0, ErrEndOfInput
	default:
		return 0, nil
	}
}
