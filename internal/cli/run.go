package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/tapevm/internal/config"
	"github.com/roach88/tapevm/internal/console"
	"github.com/roach88/tapevm/internal/engine"
	"github.com/roach88/tapevm/internal/session"
	"github.com/roach88/tapevm/internal/store"
)

// MachineFlags are the tape and input settings shared by run and step.
// Explicit flags override values from --config.
type MachineFlags struct {
	ConfigPath string
	Cells      int
	Growable   bool
	EOF        string
	MaxSteps   int64
	Input      string
	Echo       bool
}

func (f *MachineFlags) bind(cmd *cobra.Command) {
	def := config.Default()
	cmd.Flags().StringVar(&f.ConfigPath, "config", "", "machine config file (.cue, .toml, .yaml)")
	cmd.Flags().IntVar(&f.Cells, "cells", def.Cells, "tape length (initial length when growable)")
	cmd.Flags().BoolVar(&f.Growable, "growable", def.Growable, "grow the tape when the pointer moves past the right edge")
	cmd.Flags().StringVar(&f.EOF, "eof", def.EOF, "end-of-input policy (zero|keep|error)")
	cmd.Flags().Int64Var(&f.MaxSteps, "max-steps", def.MaxSteps, "stop after this many steps (0 is unlimited)")
	cmd.Flags().StringVar(&f.Input, "input", "", "literal program input instead of stdin")
	cmd.Flags().BoolVar(&f.Echo, "echo", def.Echo, "echo consumed input to stdout")
}

// resolve loads --config, if any, and applies explicitly set flags on top.
func (f *MachineFlags) resolve(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if f.ConfigPath != "" {
		loaded, err := config.Load(f.ConfigPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("cells") {
		cfg.Cells = f.Cells
	}
	if flags.Changed("growable") {
		cfg.Growable = f.Growable
	}
	if flags.Changed("eof") {
		cfg.EOF = f.EOF
	}
	if flags.Changed("max-steps") {
		cfg.MaxSteps = f.MaxSteps
	}
	if flags.Changed("echo") {
		cfg.Echo = f.Echo
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// machineIO is the console wiring of one run.
type machineIO struct {
	in   *console.Input
	out  *console.Output
	term *console.Terminal
}

// Close restores the terminal if it was put in raw mode. Safe to call twice.
func (m *machineIO) Close() {
	if err := m.term.Restore(); err != nil {
		slog.Error("error restoring terminal", "error", err)
	}
	m.term = nil
}

// openMachineIO builds the input provider and output sink for a run.
// stdin is put in raw mode only when it is an interactive terminal and no
// literal --input was given.
func openMachineIO(cmd *cobra.Command, f *MachineFlags, cfg config.Config, out io.Writer) (*machineIO, error) {
	m := &machineIO{}
	inOpts := []console.InputOption{console.WithEOFPolicy(cfg.EOFPolicy())}
	var outOpts []console.OutputOption

	var r io.Reader
	if cmd.Flags().Changed("input") {
		r = strings.NewReader(f.Input)
	} else {
		r = cmd.InOrStdin()
		if file, ok := r.(*os.File); ok {
			term, err := console.MakeRaw(file)
			if err != nil {
				return nil, err
			}
			if term != nil {
				m.term = term
				inOpts = append(inOpts, console.WithRawKeys())
				outOpts = append(outOpts, console.WithCRLF())
			}
		}
	}

	if cfg.Echo {
		inOpts = append(inOpts, console.WithEcho(out))
	}

	m.in = console.NewInput(r, inOpts...)
	m.out = console.NewOutput(out, outOpts...)
	return m, nil
}

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	MachineFlags
	Database string
	Trace    bool

	// IDGen allows overriding the run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDGen session.RunIDGenerator
}

// RunSummary is the result of the run command.
type RunSummary struct {
	RunID       string           `json:"run_id"`
	ProgramHash string           `json:"program_hash"`
	Capacity    string           `json:"capacity"`
	Status      string           `json:"status"`
	Steps       int64            `json:"steps"`
	Output      string           `json:"output"`
	ErrorKind   string           `json:"error_kind,omitempty"`
	Error       string           `json:"error,omitempty"`
	Snapshot    *engine.Snapshot `json:"snapshot,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Execute a program",
		Long: `Compile and execute a program file.

Input is read from stdin one byte per ',' unless --input is given. When
stdin is a terminal it is switched to raw mode for the run: Ctrl-D ends
input and Ctrl-C interrupts the program.

Settings come from --config (CUE, TOML or YAML) and are overridden by any
flag given explicitly. With --db the program and the run are recorded;
--trace also records every step.

Exit codes:
  0 - Program halted normally
  1 - Program failed (syntax error, runtime error, budget exhausted)
  2 - Command error (file not found, bad config, database error)

Examples:
  tapevm run hello.bf
  tapevm run --cells 100 --growable echo.bf --input "abc"
  tapevm run --config machine.toml --db runs.db --trace prog.bf`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProgram(opts, args[0], cmd)
		},
	}

	opts.MachineFlags.bind(cmd)
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the run in this SQLite database")
	cmd.Flags().BoolVar(&opts.Trace, "trace", false, "record every step (requires --db)")

	return cmd
}

func runProgram(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if opts.Trace && opts.Database == "" {
		return NewExitError(ExitCommandError, "--trace requires --db")
	}

	cfg, err := opts.MachineFlags.resolve(cmd)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	loaded, err := LoadProgram(path)
	if err != nil {
		return loadFailure(formatter, err)
	}
	slog.Debug("program compiled", "path", path, "hash", loaded.Program.Hash(), "tokens", loaded.Program.Len())

	// Program output streams straight to stdout in text mode and is
	// collected for the response in JSON mode.
	var collected bytes.Buffer
	progOut := cmd.OutOrStdout()
	if opts.Format == "json" {
		progOut = &collected
	}

	mio, err := openMachineIO(cmd, &opts.MachineFlags, cfg, progOut)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to set up terminal", err)
	}
	defer mio.Close()

	sess, err := session.New(loaded.Program, mio.in, mio.out, session.Options{
		MaxSteps: cfg.MaxSteps,
		Trace:    opts.Trace,
		IDGen:    opts.IDGen,
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
	if res.Status == session.StatusCancelled {
		sess.Stop()
	}
	mio.Close()

	if opts.Database != "" {
		if err := recordRun(context.WithoutCancel(ctx), opts.Database, loaded, res); err != nil {
			return WrapExitError(ExitCommandError, "failed to record run", err)
		}
		formatter.VerboseLog("Recorded run %s in %s", res.RunID, opts.Database)
	}

	summary := RunSummary{
		RunID:       res.RunID,
		ProgramHash: res.ProgramHash,
		Capacity:    res.Capacity,
		Status:      string(res.Status),
		Steps:       res.Steps,
		Output:      string(res.Output),
		ErrorKind:   res.ErrorKind(),
		Error:       res.ErrorMessage(),
		Snapshot:    res.Snapshot,
	}
	return reportRun(formatter, summary, res)
}

// reportRun writes the run outcome and maps the status to an exit code.
func reportRun(formatter *OutputFormatter, summary RunSummary, res *session.Result) error {
	if res.Status == session.StatusHalted {
		if formatter.Format == "json" {
			return formatter.Success(summary)
		}
		formatter.VerboseLog("run %s halted after %d steps", summary.RunID, summary.Steps)
		return nil
	}

	code, message := ErrCodeRuntime, "program failed"
	switch {
	case res.Status == session.StatusBudget:
		code, message = ErrCodeBudget, "step budget exhausted"
	case res.Status == session.StatusCancelled, errors.Is(res.Err, console.ErrInterrupted):
		code, message = ErrCodeStopped, "program interrupted"
	}

	if formatter.Format == "json" {
		if err := formatter.Error(code, message, summary); err != nil {
			return err
		}
		return NewExitError(ExitFailure, message)
	}
	return WrapExitError(ExitFailure, message, res.Err)
}

// loadFailure reports a program that could not be read or compiled.
func loadFailure(formatter *OutputFormatter, err error) error {
	var le *LoadError
	if !errors.As(err, &le) {
		return WrapExitError(ExitCommandError, "failed to load program", err)
	}

	exit := ExitCommandError
	if le.IsSyntax() {
		exit = ExitFailure
	}
	if formatter.Format == "json" {
		if ferr := formatter.Error(le.Code, le.Message, le); ferr != nil {
			return ferr
		}
		return NewExitError(exit, le.Message)
	}
	return WrapExitError(exit, "failed to load program", err)
}

// recordRun stores the program, the run and its trace.
func recordRun(ctx context.Context, dbPath string, loaded *LoadedProgram, res *session.Result) error {
	st, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	if err := st.WriteProgram(ctx, store.ProgramFrom(loaded.Program, loaded.Source)); err != nil {
		return err
	}
	run, err := store.RunFrom(res)
	if err != nil {
		return err
	}
	seq, err := st.WriteRun(ctx, run)
	if err != nil {
		return err
	}
	if len(res.Trace) > 0 {
		if err := st.WriteSteps(ctx, res.RunID, res.Trace); err != nil {
			return err
		}
	}
	slog.Debug("run recorded", "run_id", res.RunID, "seq", seq, "steps", len(res.Trace))
	return nil
}

// commandContext returns the command's context if available (for testing).
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, func()) {
	ctx, cancel := context.WithCancel(commandContext(cmd))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, stopping", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan) // Prevent signal handler leak
		cancel()
	}
}
