package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/tapevm/internal/ir"
	"github.com/roach88/tapevm/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string
	Symbol   string // optional - only steps executing this symbol
}

// TraceStats summarizes a stored trace.
type TraceStats struct {
	Recorded   int            `json:"recorded"`
	Shown      int            `json:"shown"`
	BySymbol   map[string]int `json:"by_symbol"`
	MaxPointer int            `json:"max_pointer"`
}

// TraceResult holds the stored run, its program and its steps.
type TraceResult struct {
	Run     store.Run     `json:"run"`
	Program store.Program `json:"program"`
	Steps   []ir.Step     `json:"steps"`
	Stats   TraceStats    `json:"stats"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Print a recorded run and its steps",
		Long: `Print a run recorded with "run --db" and every step recorded with
"--trace", in seq order.

Examples:
  tapevm trace --db ./runs.db --run 019237a8-...
  tapevm trace --db ./runs.db --run 019237a8-... --symbol ","
  tapevm trace --db ./runs.db --run 019237a8-... --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run ID to trace (required)")
	_ = cmd.MarkFlagRequired("run")
	cmd.Flags().StringVar(&opts.Symbol, "symbol", "", "only show steps executing this symbol")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)

	var filter *ir.Symbol
	if opts.Symbol != "" {
		sym, err := ir.ParseSymbol(opts.Symbol)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --symbol", err)
		}
		filter = &sym
	}

	st, err := openExistingStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := st.ReadRun(ctx, opts.RunID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", opts.RunID))
		}
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}
	prog, err := st.ReadProgram(ctx, run.ProgramHash)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read program", err)
	}
	steps, err := st.ReadSteps(ctx, run.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read steps", err)
	}

	result := TraceResult{
		Run:     run,
		Program: prog,
		Steps:   filterSteps(steps, filter),
		Stats:   buildTraceStats(steps),
	}
	result.Stats.Shown = len(result.Steps)

	if opts.Format == "json" {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(CLIResponse{Status: "ok", Data: result})
	}
	outputTraceText(cmd.OutOrStdout(), result, opts.Verbose)
	return nil
}

// openExistingStore opens a run log that must already exist. store.Open
// would otherwise create an empty database.
func openExistingStore(path string) (*store.Store, error) {
	if !fileExists(path) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path))
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// filterSteps returns the steps executing sym, or all steps when sym is nil.
func filterSteps(steps []ir.Step, sym *ir.Symbol) []ir.Step {
	if sym == nil {
		return steps
	}
	out := make([]ir.Step, 0, len(steps))
	for _, s := range steps {
		if s.Symbol == *sym {
			out = append(out, s)
		}
	}
	return out
}

func buildTraceStats(steps []ir.Step) TraceStats {
	stats := TraceStats{
		Recorded: len(steps),
		BySymbol: make(map[string]int),
	}
	for _, s := range steps {
		stats.BySymbol[s.Symbol.String()]++
		if s.Pointer > stats.MaxPointer {
			stats.MaxPointer = s.Pointer
		}
	}
	return stats
}

// outputTraceText outputs the trace result as text.
func outputTraceText(w io.Writer, result TraceResult, verbose bool) {
	run := result.Run

	fmt.Fprintf(w, "Trace for Run: %s\n", run.ID)
	fmt.Fprintf(w, "Program:  %s (%d instructions)\n", truncateID(run.ProgramHash), result.Program.Tokens)
	fmt.Fprintf(w, "Capacity: %s\n", run.Capacity)
	fmt.Fprintf(w, "Status:   %s\n", run.Status)
	if run.ErrorKind != "" {
		fmt.Fprintf(w, "Error:    %s\n", run.Error)
	}
	fmt.Fprintf(w, "Input:    %q\n", run.Input)
	fmt.Fprintf(w, "Output:   %q\n", run.Output)
	if verbose {
		fmt.Fprintf(w, "Engine:   %s\n", run.EngineVersion)
		fmt.Fprintf(w, "Source:\n%s\n", result.Program.Source)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Steps ===")
	if len(result.Steps) == 0 {
		fmt.Fprintln(w, "  (no steps recorded)")
	} else {
		for _, st := range result.Steps {
			writeStepLine(w, st)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Steps:       %d\n", run.Steps)
	fmt.Fprintf(w, "  Recorded:    %d\n", result.Stats.Recorded)
	fmt.Fprintf(w, "  Max pointer: %d\n", result.Stats.MaxPointer)
	for _, sym := range ir.AllSymbols() {
		if n := result.Stats.BySymbol[sym.String()]; n > 0 {
			fmt.Fprintf(w, "  %s %d\n", sym, n)
		}
	}
}

// truncateID shortens an ID for display.
func truncateID(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:12] + "..."
}
