package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/tapevm/internal/ir"
	"github.com/roach88/tapevm/internal/store"
)

// Assertion type constants.
const (
	AssertSymbolCount = "symbol_count" // symbol executed exactly Count times
	AssertVisits      = "visits"       // instruction at source offset Pos executed Count times
	AssertMaxPointer  = "max_pointer"  // highest pointer reached equals Value
	AssertReplay      = "replay"       // the stored run replays identically
)

// Assertion validates the step trace or the stored run.
type Assertion struct {
	// Type specifies the assertion type (see the Assert constants).
	Type string `yaml:"type"`

	// Symbol is the instruction character (used by symbol_count).
	Symbol string `yaml:"symbol,omitempty"`

	// Pos is the source byte offset of an instruction (used by visits).
	Pos *int `yaml:"pos,omitempty"`

	// Count is the expected number of executions (symbol_count, visits).
	Count *int `yaml:"count,omitempty"`

	// Value is the expected pointer (max_pointer).
	Value *int `yaml:"value,omitempty"`
}

// AssertionContext provides access to the recorded run.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// AssertionError is returned when an assertion fails.
// It includes the tail of the trace to help debug the failure.
type AssertionError struct {
	Type     string    // Assertion type for categorization
	Expected string    // Human-readable expected outcome
	Actual   string    // Human-readable actual outcome
	Trace    []ir.Step // Trace for debugging context
}

// traceTail is how many trailing steps an AssertionError prints.
const traceTail = 8

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		start := max(0, len(e.Trace)-traceTail)
		fmt.Fprintf(&buf, "\nLast %d of %d steps:\n", len(e.Trace)-start, len(e.Trace))
		for _, st := range e.Trace[start:] {
			fmt.Fprintf(&buf, "  [%d] %s index=%d pointer=%d cell=%d\n", st.Seq, st.Symbol, st.Index, st.Pointer, st.Cell)
		}
	}

	return buf.String()
}

func assertSymbolCount(trace []ir.Step, a Assertion) error {
	sym, err := ir.ParseSymbol(a.Symbol)
	if err != nil {
		return err
	}
	count := 0
	for _, st := range trace {
		if st.Symbol == sym {
			count++
		}
	}
	if count != *a.Count {
		return &AssertionError{
			Type:     AssertSymbolCount,
			Expected: fmt.Sprintf("%q executed %d times", a.Symbol, *a.Count),
			Actual:   fmt.Sprintf("executed %d times", count),
			Trace:    trace,
		}
	}
	return nil
}

func assertVisits(trace []ir.Step, a Assertion) error {
	count := 0
	for _, st := range trace {
		if st.Pos == *a.Pos {
			count++
		}
	}
	if count != *a.Count {
		return &AssertionError{
			Type:     AssertVisits,
			Expected: fmt.Sprintf("instruction at offset %d executed %d times", *a.Pos, *a.Count),
			Actual:   fmt.Sprintf("executed %d times", count),
			Trace:    trace,
		}
	}
	return nil
}

func assertMaxPointer(trace []ir.Step, a Assertion) error {
	highest := 0
	for _, st := range trace {
		highest = max(highest, st.Pointer)
	}
	if highest != *a.Value {
		return &AssertionError{
			Type:     AssertMaxPointer,
			Expected: fmt.Sprintf("highest pointer %d", *a.Value),
			Actual:   fmt.Sprintf("highest pointer %d", highest),
			Trace:    trace,
		}
	}
	return nil
}

func assertReplay(r *Result, actx *AssertionContext) error {
	if r.Status == StatusRejected {
		return &AssertionError{
			Type:     AssertReplay,
			Expected: "a recorded run",
			Actual:   "program was rejected",
		}
	}
	report, err := actx.Store.Replay(actx.Ctx, r.RunID)
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	if !report.Match {
		return &AssertionError{
			Type:     AssertReplay,
			Expected: "identical replay",
			Actual:   strings.Join(report.Diffs, "; "),
			Trace:    r.Trace,
		}
	}
	return nil
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(r *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertSymbolCount:
			err = assertSymbolCount(r.Trace, a)
		case AssertVisits:
			err = assertVisits(r.Trace, a)
		case AssertMaxPointer:
			err = assertMaxPointer(r.Trace, a)
		case AssertReplay:
			err = assertReplay(r, actx)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertSymbolCount:
		if _, err := ir.ParseSymbol(a.Symbol); err != nil {
			return fmt.Errorf("assertions[%d]: symbol_count: %w", index, err)
		}
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: symbol_count requires count", index)
		}
	case AssertVisits:
		if a.Pos == nil || a.Count == nil {
			return fmt.Errorf("assertions[%d]: visits requires pos and count", index)
		}
	case AssertMaxPointer:
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: max_pointer requires value", index)
		}
	case AssertReplay:
	default:
		return fmt.Errorf("assertions[%d]: unknown type %q", index, a.Type)
	}
	return nil
}
