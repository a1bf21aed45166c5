package harness

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/tapevm/internal/compiler"
	"github.com/roach88/tapevm/internal/console"
	"github.com/roach88/tapevm/internal/engine"
	"github.com/roach88/tapevm/internal/session"
	"github.com/roach88/tapevm/internal/store"
	"github.com/roach88/tapevm/internal/testutil"
)

// Harness is the test execution engine.
// It runs one scenario with a fixed run ID against a private store.
type Harness struct {
	store  *store.Store
	idGen  *testutil.FixedRunIDGenerator
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Load and compile the program
// 2. Run it in a session with the scenario's capacity, input and budget
// 3. Record program, run and trace in the store
// 4. Validate the expect clause and evaluate assertions
//
// A program that fails to compile is not an execution error: the result
// carries status "rejected" and kind UNBALANCED_BRACKETS for the expect
// clause to check. Errors are returned only when the scenario itself
// cannot be executed.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		idGen:  testutil.NewFixedRunIDGenerator(scenario.RunID),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	result, err := h.execute(ctx, scenario)
	if err != nil {
		return nil, err
	}

	checkExpect(result, &scenario.Expect)

	actx := &AssertionContext{
		Store: st,
		Ctx:   ctx,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	h.logger.Info("scenario finished", "name", scenario.Name, "pass", result.Pass)
	return result, nil
}

func (h *Harness) execute(ctx context.Context, scenario *Scenario) (*Result, error) {
	source := scenario.Program
	if scenario.ProgramFile != "" {
		var err error
		if source, err = console.LoadProgram(scenario.ProgramFile); err != nil {
			return nil, fmt.Errorf("failed to load program: %w", err)
		}
	}

	result := NewResult()
	result.RunID = h.idGen.Generate()

	prog, err := compiler.Compile(source)
	if err != nil {
		if !compiler.IsSyntaxError(err) {
			return nil, fmt.Errorf("failed to compile program: %w", err)
		}
		result.Status = StatusRejected
		result.ErrorKind = KindUnbalancedBrackets
		result.Error = err.Error()
		return result, nil
	}

	capacity := engine.Fixed(engine.DefaultCells)
	if scenario.Cells > 0 {
		capacity = engine.Fixed(scenario.Cells)
		if scenario.Growable {
			capacity = engine.Growable(scenario.Cells)
		}
	} else if scenario.Growable {
		capacity = engine.Growable(1)
	}

	policy, err := console.ParseEOFPolicy(scenario.EOF)
	if err != nil {
		return nil, err
	}

	var (
		in     engine.InputProvider
		textIn *console.Input
	)
	if scenario.InputBytes != nil {
		in = testutil.NewScriptedInput(scenario.InputBytes...)
	} else {
		textIn = console.NewInput(strings.NewReader(scenario.Input), console.WithEOFPolicy(policy))
		in = textIn
	}

	sess, err := session.New(prog, in, testutil.NewRecordingOutput(), session.Options{
		MaxSteps: scenario.MaxSteps,
		Trace:    true,
		IDGen:    h.idGen,
	}, engine.WithCapacity(capacity))
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	if textIn != nil {
		textIn.SetCurrentCell(func() byte {
			c, _ := sess.Engine().Cell()
			return c
		})
	}

	res := sess.Run(ctx)

	result.Status = string(res.Status)
	result.Steps = res.Steps
	result.Output = append(result.Output, res.Output...)
	result.ErrorKind = res.ErrorKind()
	result.Error = res.ErrorMessage()
	result.Trace = append(result.Trace, res.Trace...)
	if res.Snapshot != nil {
		result.Pointer = res.Snapshot.Pointer
		result.Cells = res.Snapshot.Cells
	}

	// Record even when ctx was cancelled; the run itself is complete.
	if err := h.record(context.WithoutCancel(ctx), prog, source, res); err != nil {
		return nil, err
	}

	return result, nil
}

// record stores the run so assertions can read it back.
func (h *Harness) record(ctx context.Context, prog *compiler.Program, source string, res *session.Result) error {
	if err := h.store.WriteProgram(ctx, store.ProgramFrom(prog, source)); err != nil {
		return fmt.Errorf("failed to record program: %w", err)
	}
	run, err := store.RunFrom(res)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	if _, err := h.store.WriteRun(ctx, run); err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	if err := h.store.WriteSteps(ctx, run.ID, res.Trace); err != nil {
		return fmt.Errorf("failed to record trace: %w", err)
	}
	return nil
}

// checkExpect compares the result with the expect clause.
func checkExpect(r *Result, e *Expect) {
	if r.ErrorKind != e.Error {
		switch {
		case e.Error == "":
			r.AddError(fmt.Sprintf("expected clean halt, got %s: %s", r.ErrorKind, r.Error))
		case r.ErrorKind == "":
			r.AddError(fmt.Sprintf("expected error %s, got clean halt", e.Error))
		default:
			r.AddError(fmt.Sprintf("expected error %s, got %s: %s", e.Error, r.ErrorKind, r.Error))
		}
	}

	if e.Output != nil && !bytes.Equal(r.Output, []byte(*e.Output)) {
		r.AddError(fmt.Sprintf("output: expected %q, got %q", *e.Output, r.Output))
	}
	if e.OutputBytes != nil {
		want := toBytes(e.OutputBytes)
		if !bytes.Equal(r.Output, want) {
			r.AddError(fmt.Sprintf("output_bytes: expected %v, got %v", want, r.Output))
		}
	}

	if e.Steps != nil && r.Steps != *e.Steps {
		r.AddError(fmt.Sprintf("steps: expected %d, got %d", *e.Steps, r.Steps))
	}

	if r.Cells == nil {
		if e.Pointer != nil || e.Cells != nil {
			r.AddError("tape: program did not run")
		}
		return
	}

	if e.Pointer != nil && r.Pointer != *e.Pointer {
		r.AddError(fmt.Sprintf("pointer: expected %d, got %d", *e.Pointer, r.Pointer))
	}
	if e.Cells != nil {
		want := toBytes(e.Cells)
		if len(r.Cells) < len(want) || !bytes.Equal(r.Cells[:len(want)], want) {
			n := min(len(want), len(r.Cells))
			r.AddError(fmt.Sprintf("cells: expected prefix %v, got %v", want, r.Cells[:n]))
		}
	}
}

// toBytes converts validated byte values.
func toBytes(vals []int) []byte {
	b := make([]byte, len(vals))
	for i, v := range vals {
		b[i] = byte(v)
	}
	return b
}
