package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/tapevm/internal/compiler"
	"github.com/roach88/tapevm/internal/ir"
)

// Phase is the engine's lifecycle state.
type Phase uint8

const (
	NotStarted Phase = iota
	Running
	Halted
)

// String implements fmt.Stringer.
func (p Phase) String() string {
	switch p {
	case NotStarted:
		return "not_started"
	case Running:
		return "running"
	case Halted:
		return "halted"
	}
	return fmt.Sprintf("Phase(%d)", uint8(p))
}

// Snapshot is a copy of the execution state taken for inspection.
type Snapshot struct {
	Index   int    `json:"index"`
	Pointer int    `json:"pointer"`
	Cells   []byte `json:"cells"`
}

// execState exists only between Start and a discarding Stop.
type execState struct {
	index int
	tape  *Tape
}

// Engine is the stepwise virtual machine.
type Engine struct {
	prog     *compiler.Program
	in       InputProvider
	out      OutputSink
	capacity Capacity

	phase Phase
	state *execState
	clock *Clock
}

// Option configures an Engine.
type Option func(*Engine)

// WithCapacity sets the tape allocation policy.
//
// Default: Fixed(DefaultCells).
func WithCapacity(c Capacity) Option {
	return func(e *Engine) {
		e.capacity = c
	}
}

// New creates an engine for prog. The input provider and output sink are
// mandatory; an invalid capacity is rejected here rather than at Start.
func New(prog *compiler.Program, in InputProvider, out OutputSink, opts ...Option) (*Engine, error) {
	if prog == nil {
		return nil, errors.New("engine: program is required")
	}
	if in == nil || out == nil {
		return nil, ErrNilCapability
	}

	e := &Engine{
		prog:  prog,
		in:    in,
		out:   out,
		clock: NewClock(),
	}
	for _, opt := range opts {
		opt(e)
	}

	c, err := e.capacity.normalize()
	if err != nil {
		return nil, err
	}
	e.capacity = c

	return e, nil
}

// Program returns the program the engine executes.
func (e *Engine) Program() *compiler.Program {
	return e.prog
}

// Capacity returns the configured tape policy.
func (e *Engine) Capacity() Capacity {
	return e.capacity
}

// Phase returns the lifecycle state.
func (e *Engine) Phase() Phase {
	return e.phase
}

// Steps returns the number of instructions executed since the last Start.
func (e *Engine) Steps() int64 {
	return e.clock.Current()
}

// Start allocates a fresh tape and enters Running.
// It is a no-op if the engine is already Running.
func (e *Engine) Start() {
	if e.phase == Running {
		return
	}

	// normalize succeeded in New, so NewTape cannot fail.
	tape, _ := NewTape(e.capacity)
	e.state = &execState{index: -1, tape: tape}
	e.clock = NewClock()
	e.phase = Running

	slog.Debug("engine started",
		"program", e.prog.Hash(),
		"tokens", e.prog.Len(),
		"capacity", e.capacity.String(),
	)
}

// Step executes exactly one instruction.
//
// It returns (nil, nil) when the engine is not Running, and also on the
// call that moves past the last instruction, which halts the engine. An
// error halts the engine and is returned; the tape is kept.
func (e *Engine) Step() (*ir.Step, error) {
	rec, ok, err := e.step()
	if err != nil || !ok {
		return nil, err
	}
	return &rec, nil
}

// step is Step without the allocation, used by Run.
func (e *Engine) step() (ir.Step, bool, error) {
	if e.phase != Running {
		return ir.Step{}, false, nil
	}

	st := e.state
	st.index++
	if st.index >= e.prog.Len() {
		e.phase = Halted
		slog.Debug("engine halted", "program", e.prog.Hash(), "steps", e.clock.Current())
		return ir.Step{}, false, nil
	}

	tok := e.prog.Token(st.index)
	if err := e.execute(st, tok); err != nil {
		e.phase = Halted
		var re *RuntimeError
		if errors.As(err, &re) {
			re.Index, re.Pos, re.Symbol = st.index, tok.Pos, tok.Symbol
			re.Pointer = st.tape.Pointer()
		}
		slog.Debug("engine failed", "program", e.prog.Hash(), "index", st.index, "error", err)
		return ir.Step{}, false, err
	}

	return ir.Step{
		Seq:     e.clock.Next(),
		Index:   st.index,
		Pointer: st.tape.Pointer(),
		Pos:     tok.Pos,
		Symbol:  tok.Symbol,
		Cell:    st.tape.Read(),
	}, true, nil
}

// execute applies one token to the state.
func (e *Engine) execute(st *execState, tok ir.Token) error {
	tape := st.tape

	switch tok.Symbol {
	case ir.SymRight:
		return tape.MoveRight()

	case ir.SymLeft:
		return tape.MoveLeft()

	case ir.SymInc:
		tape.Inc()

	case ir.SymDec:
		tape.Dec()

	case ir.SymOutput:
		if err := e.out.WriteCell(tape.Read()); err != nil {
			return fmt.Errorf("output sink: %w", err)
		}

	case ir.SymInput:
		v, err := e.in.ReadCell()
		if err != nil {
			return fmt.Errorf("input provider: %w", err)
		}
		if v < 0 || v > 255 {
			return newInvalidInputError(v)
		}
		tape.Write(byte(v))

	case ir.SymLoopOpen:
		if tape.Read() == 0 {
			st.index, _ = e.prog.Jump(st.index)
		}

	case ir.SymLoopClose:
		if tape.Read() != 0 {
			st.index, _ = e.prog.Jump(st.index)
		}

	default:
		return fmt.Errorf("engine: unknown symbol %s at index %d", tok.Symbol, st.index)
	}

	return nil
}

// Stop forces the engine to Halted. It is a no-op unless Running.
//
// With discard the tape and indices are released and Snapshot reports
// nothing; pass false to keep them for post-mortem inspection.
func (e *Engine) Stop(discard bool) {
	if e.phase != Running {
		return
	}
	e.phase = Halted
	if discard {
		e.state = nil
	}
	slog.Debug("engine stopped", "program", e.prog.Hash(), "steps", e.clock.Current(), "discard", discard)
}

// Run steps until the engine halts.
//
// The context is checked before every step; an in-flight InputProvider call is
// not interrupted. On cancellation Run returns the context error and leaves
// the engine Running, so the caller may resume or Stop it. Run on an engine
// that is not Running returns nil immediately.
func (e *Engine) Run(ctx context.Context) error {
	for e.phase == Running {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, _, err := e.step(); err != nil {
			return err
		}
	}
	return nil
}

// Index returns the index of the last executed instruction, -1 right after
// Start. The second result is false when no state exists.
func (e *Engine) Index() (int, bool) {
	if e.state == nil {
		return 0, false
	}
	return e.state.index, true
}

// Cell returns the value under the pointer. The second result is false when
// no state exists.
func (e *Engine) Cell() (byte, bool) {
	if e.state == nil {
		return 0, false
	}
	return e.state.tape.Read(), true
}

// Snapshot copies the current state. The second result is false before the
// first Start and after Stop(true).
func (e *Engine) Snapshot() (Snapshot, bool) {
	if e.state == nil {
		return Snapshot{}, false
	}
	return Snapshot{
		Index:   e.state.index,
		Pointer: e.state.tape.Pointer(),
		Cells:   e.state.tape.Cells(),
	}, true
}
