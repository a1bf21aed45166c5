package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tapevm/internal/compiler"
	"github.com/roach88/tapevm/internal/ir"
	"github.com/roach88/tapevm/internal/testutil"
)

const helloWorld = `++++++++[>++++[>++>+++>+++>+<<<<-]>+>+>->>+[<]<-]>>.>---.+++++++..+++.>>.<-.<.+++.------.--------.>>+.>++.`

func newTestEngine(t *testing.T, source string, in InputProvider, opts ...Option) (*Engine, *testutil.RecordingOutput) {
	t.Helper()
	if in == nil {
		in = testutil.NewScriptedInput()
	}
	out := testutil.NewRecordingOutput()
	e, err := New(compiler.MustCompile(source), in, out, opts...)
	require.NoError(t, err)
	return e, out
}

func runToEnd(t *testing.T, e *Engine) []ir.Step {
	t.Helper()
	var steps []ir.Step
	for e.Phase() == Running {
		rec, err := e.Step()
		require.NoError(t, err)
		if rec != nil {
			steps = append(steps, *rec)
		}
	}
	return steps
}

func TestEngine_New(t *testing.T) {
	e, _ := newTestEngine(t, "+", nil)
	assert.Equal(t, NotStarted, e.Phase())
	assert.Equal(t, Fixed(DefaultCells), e.Capacity())
	assert.Equal(t, int64(0), e.Steps())

	_, ok := e.Snapshot()
	assert.False(t, ok, "no state before Start")
}

func TestEngine_NewRequiresCapabilities(t *testing.T) {
	prog := compiler.MustCompile("+")
	out := testutil.NewRecordingOutput()

	_, err := New(prog, nil, out)
	assert.ErrorIs(t, err, ErrNilCapability)

	_, err = New(prog, testutil.NewScriptedInput(), nil)
	assert.ErrorIs(t, err, ErrNilCapability)

	_, err = New(nil, testutil.NewScriptedInput(), out)
	assert.Error(t, err)
}

func TestEngine_NewRejectsInvalidCapacity(t *testing.T) {
	prog := compiler.MustCompile("+")
	_, err := New(prog, testutil.NewScriptedInput(), testutil.NewRecordingOutput(), WithCapacity(Fixed(0)))
	assert.ErrorIs(t, err, ErrInvalidCapacity)
}

func TestEngine_StepBeforeStartIsNoop(t *testing.T) {
	e, _ := newTestEngine(t, "+", nil)
	rec, err := e.Step()
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Equal(t, NotStarted, e.Phase())
}

func TestEngine_StepRecords(t *testing.T) {
	e, _ := newTestEngine(t, "+ >+", nil, WithCapacity(Fixed(4)))
	e.Start()
	require.Equal(t, Running, e.Phase())

	steps := runToEnd(t, e)
	require.Len(t, steps, 3)

	assert.Equal(t, ir.Step{Seq: 1, Index: 0, Pointer: 0, Pos: 0, Symbol: ir.SymInc, Cell: 1}, steps[0])
	assert.Equal(t, ir.Step{Seq: 2, Index: 1, Pointer: 1, Pos: 2, Symbol: ir.SymRight, Cell: 0}, steps[1])
	assert.Equal(t, ir.Step{Seq: 3, Index: 2, Pointer: 1, Pos: 3, Symbol: ir.SymInc, Cell: 1}, steps[2])

	assert.Equal(t, Halted, e.Phase())
	assert.Equal(t, int64(3), e.Steps())
}

func TestEngine_IncrementWrapsThroughEngine(t *testing.T) {
	e, _ := newTestEngine(t, ",+", testutil.NewScriptedInput(255))
	e.Start()
	runToEnd(t, e)

	snap, ok := e.Snapshot()
	require.True(t, ok)
	assert.Equal(t, byte(0), snap.Cells[0])
}

func TestEngine_DecrementWrapsThroughEngine(t *testing.T) {
	e, _ := newTestEngine(t, "-", nil)
	e.Start()
	runToEnd(t, e)

	snap, ok := e.Snapshot()
	require.True(t, ok)
	assert.Equal(t, byte(255), snap.Cells[0])
}

func TestEngine_ClearLoopRunsBodyFiveTimes(t *testing.T) {
	e, _ := newTestEngine(t, ",[-]", testutil.NewScriptedInput(5))
	e.Start()
	steps := runToEnd(t, e)

	bodies := 0
	for _, s := range steps {
		if s.Symbol == ir.SymDec {
			bodies++
		}
	}
	assert.Equal(t, 5, bodies)

	snap, ok := e.Snapshot()
	require.True(t, ok)
	assert.Equal(t, byte(0), snap.Cells[0])
	assert.Equal(t, 0, snap.Pointer)
}

func TestEngine_OpenBracketJumpsOnZero(t *testing.T) {
	e, out := newTestEngine(t, "[.]", nil)
	e.Start()

	rec, err := e.Step()
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, ir.SymLoopOpen, rec.Symbol)
	assert.Equal(t, 2, rec.Index, "index reports the jump target")

	rec, err = e.Step()
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Equal(t, Halted, e.Phase())
	assert.Empty(t, out.Bytes())
}

func TestEngine_CloseBracketJumpsBackOnNonZero(t *testing.T) {
	e, _ := newTestEngine(t, "++[-]", nil)
	e.Start()

	steps := runToEnd(t, e)
	var closes []ir.Step
	for _, s := range steps {
		if s.Symbol == ir.SymLoopClose {
			closes = append(closes, s)
		}
	}
	require.Len(t, closes, 2)
	assert.Equal(t, 2, closes[0].Index, "jumped back to '['")
	assert.Equal(t, 4, closes[1].Index, "fell through")
}

func TestEngine_FixedCapacityOutOfBounds(t *testing.T) {
	e, _ := newTestEngine(t, ">", nil, WithCapacity(Fixed(1)))
	e.Start()

	rec, err := e.Step()
	require.Error(t, err)
	assert.Nil(t, rec)
	assert.True(t, IsOutOfBounds(err))
	assert.Equal(t, Halted, e.Phase())

	var re *RuntimeError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, 0, re.Index)
	assert.Equal(t, ir.SymRight, re.Symbol)
	assert.Equal(t, 0, re.Pointer)

	snap, ok := e.Snapshot()
	require.True(t, ok, "tape is kept after a failure")
	assert.Equal(t, 0, snap.Pointer)
}

func TestEngine_GrowableCapacityExtends(t *testing.T) {
	e, _ := newTestEngine(t, ">", nil, WithCapacity(Growable(1)))
	e.Start()
	runToEnd(t, e)

	snap, ok := e.Snapshot()
	require.True(t, ok)
	assert.Len(t, snap.Cells, 2)
	assert.Equal(t, 1, snap.Pointer)
}

func TestEngine_LeftOfZeroFails(t *testing.T) {
	for _, c := range []Capacity{Fixed(8), Growable(8)} {
		t.Run(c.String(), func(t *testing.T) {
			e, _ := newTestEngine(t, "+<", nil, WithCapacity(c))
			e.Start()

			_, err := e.Step()
			require.NoError(t, err)
			_, err = e.Step()
			assert.True(t, IsOutOfBounds(err))
			assert.ErrorIs(t, err, ErrOutOfBounds)
		})
	}
}

func TestEngine_HelloWorld(t *testing.T) {
	for _, c := range []Capacity{Fixed(7), Fixed(DefaultCells), Growable(1)} {
		t.Run(c.String(), func(t *testing.T) {
			e, out := newTestEngine(t, helloWorld, nil, WithCapacity(c))
			e.Start()
			require.NoError(t, e.Run(context.Background()))

			assert.Equal(t, []byte("Hello World!\n"), out.Bytes())
			assert.Equal(t, Halted, e.Phase())
		})
	}
}

func TestEngine_EchoInput(t *testing.T) {
	in := testutil.NewScriptedInput(65)
	e, out := newTestEngine(t, ",.", in)
	e.Start()
	require.NoError(t, e.Run(context.Background()))

	assert.Equal(t, []byte{65}, out.Bytes())
	assert.Equal(t, 1, in.Calls())
}

func TestEngine_InvalidInputByte(t *testing.T) {
	for _, v := range []int{-1, 256, 1000} {
		e, _ := newTestEngine(t, ",", testutil.NewScriptedInput(v))
		e.Start()

		_, err := e.Step()
		require.Error(t, err, "value %d", v)
		assert.True(t, IsInvalidInput(err))
		assert.ErrorIs(t, err, ErrInvalidInputByte)
		assert.Equal(t, Halted, e.Phase())

		var re *RuntimeError
		require.True(t, errors.As(err, &re))
		assert.Equal(t, v, re.Value)
	}
}

func TestEngine_InputBoundaryValues(t *testing.T) {
	e, out := newTestEngine(t, ",.,.", testutil.NewScriptedInput(0, 255))
	e.Start()
	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, []byte{0, 255}, out.Bytes())
}

func TestEngine_InputProviderErrorPropagates(t *testing.T) {
	e, _ := newTestEngine(t, ",", testutil.NewScriptedInput())
	e.Start()

	err := e.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, testutil.ErrInputExhausted)
	assert.Equal(t, Halted, e.Phase())
}

func TestEngine_OutputSinkErrorPropagates(t *testing.T) {
	sinkErr := errors.New("broken pipe")
	e, err := New(compiler.MustCompile(".."), testutil.NewScriptedInput(), OutputFunc(func(byte) error {
		return sinkErr
	}))
	require.NoError(t, err)
	e.Start()

	err = e.Run(context.Background())
	assert.ErrorIs(t, err, sinkErr)
	assert.Equal(t, int64(0), e.Steps())
}

func TestEngine_StepAfterHaltIsNoop(t *testing.T) {
	e, out := newTestEngine(t, "+.", nil)
	e.Start()
	runToEnd(t, e)

	before, ok := e.Snapshot()
	require.True(t, ok)

	for i := 0; i < 3; i++ {
		rec, err := e.Step()
		require.NoError(t, err)
		assert.Nil(t, rec)
	}

	after, ok := e.Snapshot()
	require.True(t, ok)
	assert.Equal(t, before, after)
	assert.Equal(t, []byte{1}, out.Bytes())
}

func TestEngine_StopDiscardsState(t *testing.T) {
	e, _ := newTestEngine(t, "+++", nil)
	e.Start()
	_, err := e.Step()
	require.NoError(t, err)

	e.Stop(true)
	assert.Equal(t, Halted, e.Phase())
	_, ok := e.Snapshot()
	assert.False(t, ok)

	rec, err := e.Step()
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestEngine_StopKeepsStateForInspection(t *testing.T) {
	e, _ := newTestEngine(t, "+++", nil)
	e.Start()
	_, err := e.Step()
	require.NoError(t, err)

	e.Stop(false)
	snap, ok := e.Snapshot()
	require.True(t, ok)
	assert.Equal(t, 0, snap.Index)
	assert.Equal(t, byte(1), snap.Cells[0])
}

func TestEngine_StopWhenNotRunningIsNoop(t *testing.T) {
	e, _ := newTestEngine(t, "+", nil)
	e.Stop(true)
	assert.Equal(t, NotStarted, e.Phase())

	e.Start()
	runToEnd(t, e)
	e.Stop(true)
	_, ok := e.Snapshot()
	assert.True(t, ok, "Stop after a natural halt does nothing")
}

func TestEngine_StartWhileRunningIsNoop(t *testing.T) {
	e, _ := newTestEngine(t, "++", nil)
	e.Start()
	_, err := e.Step()
	require.NoError(t, err)

	e.Start()
	snap, _ := e.Snapshot()
	assert.Equal(t, 0, snap.Index)
	assert.Equal(t, byte(1), snap.Cells[0])
}

func TestEngine_RestartResetsState(t *testing.T) {
	e, out := newTestEngine(t, "+.", nil, WithCapacity(Growable(1)))

	e.Start()
	require.NoError(t, e.Run(context.Background()))
	e.Start()
	require.NoError(t, e.Run(context.Background()))

	assert.Equal(t, []byte{1, 1}, out.Bytes(), "tape is fresh on each Start")
	assert.Equal(t, int64(2), e.Steps())
}

func TestEngine_RunNotStartedReturns(t *testing.T) {
	e, _ := newTestEngine(t, "+[]", nil)
	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, NotStarted, e.Phase())
}

func TestEngine_RunCancelledLeavesRunning(t *testing.T) {
	e, _ := newTestEngine(t, "+[]", nil)
	e.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := e.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, Running, e.Phase())
	assert.Greater(t, e.Steps(), int64(0))

	e.Stop(true)
	assert.Equal(t, Halted, e.Phase())
}

func TestEngine_RunStopsAtTheNextStepAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := OutputFunc(func(byte) error {
		cancel()
		return nil
	})
	e, err := New(compiler.MustCompile("+.+.+."), testutil.NewScriptedInput(), out)
	require.NoError(t, err)
	e.Start()

	err = e.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(2), e.Steps(), "no step runs once the sink cancelled")
	assert.Equal(t, Running, e.Phase())

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, int64(6), e.Steps())
	assert.Equal(t, Halted, e.Phase())
}

func TestEngine_SharedProgramConcurrentEngines(t *testing.T) {
	prog := compiler.MustCompile(helloWorld)

	var wg sync.WaitGroup
	outputs := make([]*testutil.RecordingOutput, 8)
	for i := range outputs {
		outputs[i] = testutil.NewRecordingOutput()
		wg.Add(1)
		go func(out *testutil.RecordingOutput) {
			defer wg.Done()
			e, err := New(prog, testutil.NewScriptedInput(), out, WithCapacity(Growable(1)))
			if !assert.NoError(t, err) {
				return
			}
			e.Start()
			assert.NoError(t, e.Run(context.Background()))
		}(outputs[i])
	}
	wg.Wait()

	for _, out := range outputs {
		assert.Equal(t, "Hello World!\n", out.String())
	}
}

func TestExec(t *testing.T) {
	out := testutil.NewRecordingOutput()
	err := Exec(context.Background(), "# shout\n,+.", testutil.NewScriptedBytes("a"), out)
	require.NoError(t, err)
	assert.Equal(t, "b", out.String())
}

func TestExec_SyntaxError(t *testing.T) {
	err := Exec(context.Background(), "[", testutil.NewScriptedInput(), testutil.NewRecordingOutput())
	assert.ErrorIs(t, err, compiler.ErrUnbalancedBrackets)
}

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "not_started", NotStarted.String())
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "halted", Halted.String())
	assert.Equal(t, "Phase(7)", Phase(7).String())
}

func TestKind(t *testing.T) {
	assert.Equal(t, "", Kind(nil))
	assert.Equal(t, "OUT_OF_BOUNDS", Kind(newOutOfBoundsError("left", 0, 1)))
	assert.Equal(t, "INVALID_INPUT_BYTE", Kind(newInvalidInputError(300)))
	assert.Equal(t, "ERROR", Kind(errors.New("other")))
}

func TestEngine_Index(t *testing.T) {
	e, _ := newTestEngine(t, "++", nil)
	_, ok := e.Index()
	assert.False(t, ok)

	e.Start()
	idx, ok := e.Index()
	require.True(t, ok)
	assert.Equal(t, -1, idx)

	_, err := e.Step()
	require.NoError(t, err)
	idx, _ = e.Index()
	assert.Equal(t, 0, idx)
}

func TestEngine_Cell(t *testing.T) {
	e, _ := newTestEngine(t, "+++>+", nil)
	_, ok := e.Cell()
	assert.False(t, ok)

	e.Start()
	for i := 0; i < 3; i++ {
		_, err := e.Step()
		require.NoError(t, err)
	}
	c, ok := e.Cell()
	require.True(t, ok)
	assert.Equal(t, byte(3), c)

	_, err := e.Step()
	require.NoError(t, err)
	c, _ = e.Cell()
	assert.Equal(t, byte(0), c)
}
