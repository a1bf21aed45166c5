package session

import "github.com/roach88/tapevm/internal/engine"

// captureInput records every in-range value the wrapped provider returns.
type captureInput struct {
	next engine.InputProvider
	buf  []byte
}

func (c *captureInput) ReadCell() (int, error) {
	v, err := c.next.ReadCell()
	if err == nil && v >= 0 && v <= 255 {
		c.buf = append(c.buf, byte(v))
	}
	return v, err
}

// captureOutput records every value passed to the wrapped sink.
type captureOutput struct {
	next engine.OutputSink
	buf  []byte
}

func (c *captureOutput) WriteCell(v byte) error {
	c.buf = append(c.buf, v)
	return c.next.WriteCell(v)
}
