package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tapevm/internal/compiler"
	"github.com/roach88/tapevm/internal/ir"
	"github.com/roach88/tapevm/internal/session"
	"github.com/roach88/tapevm/internal/testutil"
)

func TestSymbolEncoding(t *testing.T) {
	for _, sym := range ir.AllSymbols() {
		s, err := encodeSymbol(sym)
		require.NoError(t, err)
		assert.Len(t, s, 1)

		got, err := decodeSymbol(s)
		require.NoError(t, err)
		assert.Equal(t, sym, got)
	}

	_, err := encodeSymbol(ir.Symbol(200))
	assert.Error(t, err)
	_, err = decodeSymbol("#")
	assert.Error(t, err)
}

func TestProgramFrom(t *testing.T) {
	prog := compiler.MustCompile("+ + #x\n.")
	p := ProgramFrom(prog, "+ + #x\n.")
	assert.Equal(t, prog.Hash(), p.Hash)
	assert.Equal(t, 3, p.Tokens)
	assert.Equal(t, "+ + #x\n.", p.Source)
}

func runSession(t *testing.T, source string, in []int, opts session.Options) *session.Result {
	t.Helper()
	opts.IDGen = testutil.NewFixedRunIDGenerator("run-1")
	s, err := session.New(compiler.MustCompile(source), testutil.NewScriptedInput(in...), testutil.NewRecordingOutput(), opts)
	require.NoError(t, err)
	return s.Run(context.Background())
}

func TestRunFrom(t *testing.T) {
	res := runSession(t, ",+.", []int{64}, session.Options{})
	run, err := RunFrom(res)
	require.NoError(t, err)

	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, "halted", run.Status)
	assert.Equal(t, []byte{64}, run.Input)
	assert.Equal(t, []byte("A"), run.Output)
	assert.Equal(t, int64(3), run.Steps)
	assert.Empty(t, run.ErrorKind)
	assert.Empty(t, run.TraceHash)
	assert.Equal(t, ir.EngineVersion, run.EngineVersion)
}

func TestRunFrom_TraceAndError(t *testing.T) {
	res := runSession(t, "+<", nil, session.Options{Trace: true})
	run, err := RunFrom(res)
	require.NoError(t, err)

	assert.Equal(t, "failed", run.Status)
	assert.Equal(t, "OUT_OF_BOUNDS", run.ErrorKind)
	assert.NotEmpty(t, run.Error)

	want, err := ir.TraceHash(res.Trace)
	require.NoError(t, err)
	assert.Equal(t, want, run.TraceHash)
}
