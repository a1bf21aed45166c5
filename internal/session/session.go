package session

import (
	"context"
	"errors"
	"log/slog"

	"github.com/roach88/tapevm/internal/compiler"
	"github.com/roach88/tapevm/internal/engine"
	"github.com/roach88/tapevm/internal/ir"
)

// Status is the outcome of a session run.
type Status string

const (
	StatusHalted     Status = "halted"          // ran past the last instruction
	StatusFailed     Status = "failed"          // a step returned an error
	StatusBudget     Status = "budget_exceeded" // MaxSteps reached
	StatusCancelled  Status = "cancelled"       // context cancelled
	StatusBreakpoint Status = "breakpoint"      // paused before a breakpoint
)

// Options configures a Session.
type Options struct {
	// MaxSteps caps the number of executed instructions. 0 is unlimited.
	MaxSteps int64

	// Breakpoints are instruction indices. The run pauses before executing
	// any of them; Run again to continue.
	Breakpoints []int

	// Trace keeps every step record in Result.Trace.
	Trace bool

	// OnStep, if set, is called after every step. A returned error stops
	// the run with StatusFailed.
	OnStep func(ir.Step) error

	// IDGen generates the run ID. Defaults to UUIDv7Generator.
	IDGen RunIDGenerator
}

// Result describes a finished (or paused) run.
type Result struct {
	RunID       string           `json:"run_id"`
	ProgramHash string           `json:"program_hash"`
	Capacity    string           `json:"capacity"`
	Status      Status           `json:"status"`
	Steps       int64            `json:"steps"`
	Input       []byte           `json:"input"`
	Output      []byte           `json:"output"`
	Trace       []ir.Step        `json:"trace,omitempty"`
	Snapshot    *engine.Snapshot `json:"snapshot,omitempty"`
	Err         error            `json:"-"`
}

// ErrorKind returns the category of Err, "" when the run succeeded.
func (r *Result) ErrorKind() string {
	if IsBudgetExceeded(r.Err) {
		return "BUDGET_EXCEEDED"
	}
	return engine.Kind(r.Err)
}

// ErrorMessage returns Err's message, "" when the run succeeded.
func (r *Result) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Session wraps one engine and one run ID.
type Session struct {
	id     string
	eng    *engine.Engine
	in     *captureInput
	out    *captureOutput
	opts   Options
	budget *StepBudget
	breaks map[int]bool
	trace  []ir.Step
	paused bool
}

// New creates a session for prog. Engine options (capacity) pass through.
func New(prog *compiler.Program, in engine.InputProvider, out engine.OutputSink, opts Options, engineOpts ...engine.Option) (*Session, error) {
	if in == nil || out == nil {
		return nil, engine.ErrNilCapability
	}

	ci := &captureInput{next: in}
	co := &captureOutput{next: out}
	eng, err := engine.New(prog, ci, co, engineOpts...)
	if err != nil {
		return nil, err
	}

	gen := opts.IDGen
	if gen == nil {
		gen = UUIDv7Generator{}
	}

	breaks := make(map[int]bool, len(opts.Breakpoints))
	for _, b := range opts.Breakpoints {
		breaks[b] = true
	}

	return &Session{
		id:     gen.Generate(),
		eng:    eng,
		in:     ci,
		out:    co,
		opts:   opts,
		budget: NewStepBudget(opts.MaxSteps),
		breaks: breaks,
	}, nil
}

// ID returns the run ID.
func (s *Session) ID() string {
	return s.id
}

// Engine returns the wrapped engine for inspection.
func (s *Session) Engine() *engine.Engine {
	return s.eng
}

// Run starts the engine if needed and steps until the program halts,
// fails, exhausts the budget, hits a breakpoint or ctx is cancelled.
//
// After StatusBreakpoint, calling Run again continues from the paused
// instruction. Every other status leaves the engine Halted, except
// StatusCancelled which leaves it Running so the caller may resume or Stop.
func (s *Session) Run(ctx context.Context) *Result {
	if s.eng.Phase() != engine.Running {
		s.eng.Start()
		s.trace = nil
		s.in.buf, s.out.buf = nil, nil
		s.budget = NewStepBudget(s.opts.MaxSteps)
		slog.Debug("run started", "run_id", s.id, "program", s.eng.Program().Hash(), "capacity", s.eng.Capacity().String())
	}

	resumed := s.paused
	s.paused = false

	for s.eng.Phase() == engine.Running {
		if err := ctx.Err(); err != nil {
			return s.finish(StatusCancelled, err)
		}

		idx, _ := s.eng.Index()
		next := idx + 1
		if !resumed && s.breaks[next] {
			s.paused = true
			return s.finish(StatusBreakpoint, nil)
		}
		resumed = false

		// The step that runs past the end only halts; it is not charged.
		if next < s.eng.Program().Len() {
			if err := s.budget.Check(s.id); err != nil {
				s.eng.Stop(false)
				return s.finish(StatusBudget, err)
			}
		}

		rec, err := s.eng.Step()
		if err != nil {
			return s.finish(StatusFailed, err)
		}
		if rec == nil {
			break
		}

		if s.opts.Trace {
			s.trace = append(s.trace, *rec)
		}
		if s.opts.OnStep != nil {
			if err := s.opts.OnStep(*rec); err != nil {
				s.eng.Stop(false)
				return s.finish(StatusFailed, err)
			}
		}
	}

	return s.finish(StatusHalted, nil)
}

// Stop halts the engine, discarding its tape.
func (s *Session) Stop() {
	s.eng.Stop(true)
}

func (s *Session) finish(status Status, err error) *Result {
	res := &Result{
		RunID:       s.id,
		ProgramHash: s.eng.Program().Hash(),
		Capacity:    s.eng.Capacity().String(),
		Status:      status,
		Steps:       s.eng.Steps(),
		Input:       append([]byte(nil), s.in.buf...),
		Output:      append([]byte(nil), s.out.buf...),
		Err:         err,
	}
	if s.opts.Trace {
		res.Trace = append([]ir.Step(nil), s.trace...)
	}
	if snap, ok := s.eng.Snapshot(); ok {
		res.Snapshot = &snap
	}

	attrs := []any{"run_id", s.id, "status", string(status), "steps", res.Steps}
	switch {
	case err == nil:
		slog.Debug("run finished", attrs...)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		slog.Warn("run cancelled", attrs...)
	default:
		slog.Debug("run failed", append(attrs, "error", err)...)
	}

	return res
}
