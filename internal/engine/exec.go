package engine

import (
	"context"

	"github.com/roach88/tapevm/internal/compiler"
)

// Exec compiles source and runs it to completion on a fresh engine.
// The tape is discarded when Exec returns.
func Exec(ctx context.Context, source string, in InputProvider, out OutputSink, opts ...Option) error {
	prog, err := compiler.Compile(source)
	if err != nil {
		return err
	}

	e, err := New(prog, in, out, opts...)
	if err != nil {
		return err
	}

	e.Start()
	defer e.Stop(true)

	return e.Run(ctx)
}
