package cli

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/tapevm/internal/engine"
	"github.com/roach88/tapevm/internal/ir"
	"github.com/roach88/tapevm/internal/session"
)

// StepOptions holds flags for the step command.
type StepOptions struct {
	*RootOptions
	MachineFlags
	Breaks []int

	// IDGen allows overriding the run ID generator (for testing).
	IDGen session.RunIDGenerator
}

// BreakHit records one pause before a breakpoint.
type BreakHit struct {
	Index   int   `json:"index"`
	Seq     int64 `json:"seq"` // steps executed before the pause
	Pointer int   `json:"pointer"`
	Cell    byte  `json:"cell"`
}

// StepResult is the JSON result of the step command.
type StepResult struct {
	RunSummary
	Trace  []ir.Step  `json:"trace"`
	Breaks []BreakHit `json:"breaks,omitempty"`
}

// NewStepCommand creates the step command.
func NewStepCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StepOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "step <file>",
		Short: "Execute a program one step per line",
		Long: `Execute a program and print one line per executed instruction:

  seq index pointer pos symbol cell

index is the instruction index after the step (the jump target when a
loop delimiter jumped), pointer and cell describe the tape after the
step, pos is the byte offset of the instruction in the source.

Program output is printed after the trace. With --break the run pauses
before each listed instruction index, prints the machine state and
continues.

Examples:
  tapevm step clear.bf
  tapevm step --break 3 --break 7 loop.bf
  tapevm step --input "ab" --format json echo.bf`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStep(opts, args[0], cmd)
		},
	}

	opts.MachineFlags.bind(cmd)
	cmd.Flags().IntSliceVar(&opts.Breaks, "break", nil, "pause before this instruction index (repeatable)")

	return cmd
}

func runStep(opts *StepOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	w := cmd.OutOrStdout()
	text := opts.Format != "json"

	cfg, err := opts.MachineFlags.resolve(cmd)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	loaded, err := LoadProgram(path)
	if err != nil {
		return loadFailure(formatter, err)
	}

	for _, b := range opts.Breaks {
		if b < 0 || b >= loaded.Program.Len() {
			return NewExitError(ExitCommandError, fmt.Sprintf("breakpoint %d outside program (0..%d)", b, loaded.Program.Len()-1))
		}
	}

	// Program output would interleave with the trace, so it is collected
	// and printed at the end.
	var progOut bytes.Buffer
	mio, err := openMachineIO(cmd, &opts.MachineFlags, cfg, &progOut)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to set up terminal", err)
	}
	defer mio.Close()

	result := StepResult{Trace: []ir.Step{}}
	if text {
		fmt.Fprintf(w, "%6s %5s %7s %5s %s %4s\n", "seq", "index", "pointer", "pos", "sym", "cell")
	}

	sess, err := session.New(loaded.Program, mio.in, mio.out, session.Options{
		MaxSteps:    cfg.MaxSteps,
		Breakpoints: opts.Breaks,
		IDGen:       opts.IDGen,
		OnStep: func(st ir.Step) error {
			if text {
				writeStepLine(w, st)
				return nil
			}
			result.Trace = append(result.Trace, st)
			return nil
		},
	}, engine.WithCapacity(cfg.Capacity()))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create session", err)
	}
	mio.in.SetCurrentCell(func() byte {
		c, _ := sess.Engine().Cell()
		return c
	})

	ctx, stop := signalContext(cmd)
	defer stop()

	res := sess.Run(ctx)
	for res.Status == session.StatusBreakpoint {
		hit := BreakHit{Seq: res.Steps}
		if res.Snapshot != nil {
			hit.Index = res.Snapshot.Index + 1
			hit.Pointer = res.Snapshot.Pointer
			hit.Cell = res.Snapshot.Cells[hit.Pointer]
		}
		result.Breaks = append(result.Breaks, hit)
		if text {
			fmt.Fprintf(w, "-- break before index %d (pointer %d, cell %d)\n", hit.Index, hit.Pointer, hit.Cell)
		}
		slog.Debug("breakpoint", "run_id", res.RunID, "index", hit.Index)
		res = sess.Run(ctx)
	}
	if res.Status == session.StatusCancelled {
		sess.Stop()
	}
	mio.Close()

	result.RunSummary = RunSummary{
		RunID:       res.RunID,
		ProgramHash: res.ProgramHash,
		Capacity:    res.Capacity,
		Status:      string(res.Status),
		Steps:       res.Steps,
		Output:      string(res.Output),
		ErrorKind:   res.ErrorKind(),
		Error:       res.ErrorMessage(),
	}

	if text {
		fmt.Fprintf(w, "status: %s, steps: %d\n", res.Status, res.Steps)
		fmt.Fprintf(w, "output: %q\n", progOut.String())
		return reportRun(formatter, result.RunSummary, res)
	}
	if res.Status == session.StatusHalted {
		return formatter.Success(result)
	}
	return reportRun(formatter, result.RunSummary, res)
}

// writeStepLine prints one trace line.
func writeStepLine(w io.Writer, st ir.Step) {
	fmt.Fprintf(w, "%6d %5d %7d %5d %s %4d\n", st.Seq, st.Index, st.Pointer, st.Pos, st.Symbol, st.Cell)
}
