package console

import "io"

type flusher interface {
	Flush() error
}

// Output is an engine.OutputSink over an io.Writer. Each byte is written
// and flushed before WriteCell returns.
type Output struct {
	w    io.Writer
	crlf bool
}

// OutputOption configures an Output.
type OutputOption func(*Output)

// WithCRLF writes "\r\n" for every '\n'. A raw terminal does not translate
// newlines itself.
func WithCRLF() OutputOption {
	return func(o *Output) {
		o.crlf = true
	}
}

// NewOutput creates an Output writing to w.
func NewOutput(w io.Writer, opts ...OutputOption) *Output {
	o := &Output{w: w}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WriteCell writes v.
func (o *Output) WriteCell(v byte) error {
	buf := []byte{v}
	if o.crlf && v == '\n' {
		buf = []byte{'\r', '\n'}
	}
	if _, err := o.w.Write(buf); err != nil {
		return err
	}
	if f, ok := o.w.(flusher); ok {
		return f.Flush()
	}
	return nil
}
