package engine

// InputProvider supplies one value per ',' instruction.
// Any value outside [0,255] is a contract violation (INVALID_INPUT_BYTE).
// The engine imposes no timeout: if ReadCell blocks, so does Step.
type InputProvider interface {
	ReadCell() (int, error)
}

// OutputSink receives the current cell value on each '.' instruction.
// An error returned from WriteCell is propagated from Step.
type OutputSink interface {
	WriteCell(v byte) error
}

// InputFunc adapts a function to InputProvider.
type InputFunc func() (int, error)

// ReadCell calls f.
func (f InputFunc) ReadCell() (int, error) { return f() }

// OutputFunc adapts a function to OutputSink.
type OutputFunc func(v byte) error

// WriteCell calls f.
func (f OutputFunc) WriteCell(v byte) error { return f(v) }
