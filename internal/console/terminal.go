package console

import (
	"log/slog"
	"os"

	"golang.org/x/term"
)

// Terminal is a file descriptor switched to raw mode.
type Terminal struct {
	fd    int
	state *term.State
}

// IsTerminal reports whether f is a terminal.
func IsTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

// MakeRaw switches f to raw mode. It returns nil, nil when f is not a
// terminal, so callers can always defer Restore on the result.
func MakeRaw(f *os.File) (*Terminal, error) {
	if !IsTerminal(f) {
		return nil, nil
	}
	fd := int(f.Fd())
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	slog.Debug("terminal raw mode", "fd", fd)
	return &Terminal{fd: fd, state: state}, nil
}

// Restore returns the terminal to its previous mode. Safe on nil.
func (t *Terminal) Restore() error {
	if t == nil {
		return nil
	}
	return term.Restore(t.fd, t.state)
}
