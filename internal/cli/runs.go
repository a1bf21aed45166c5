package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/tapevm/internal/store"
)

// RunsOptions holds flags for the runs command.
type RunsOptions struct {
	*RootOptions
	Database string
	Program  string // optional - program hash filter
	Limit    int
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs",
		Long: `List runs recorded with "run --db" in the order they were stored.

Examples:
  tapevm runs --db ./runs.db
  tapevm runs --db ./runs.db --program 3f9a... --limit 10`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runListRuns(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Program, "program", "", "only runs of this program hash")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of runs (0 is all)")

	return cmd
}

func runListRuns(opts *RunsOptions, cmd *cobra.Command) error {
	st, err := openExistingStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(commandContext(cmd), opts.Program, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}
	if runs == nil {
		runs = []store.Run{}
	}

	if opts.Format == "json" {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(CLIResponse{Status: "ok", Data: runs})
	}

	w := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs found in database.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(w, "%4d %s\n", r.Seq, describeRun(r.ID, r.Status, r.Steps, r.ErrorKind))
		if opts.Verbose {
			fmt.Fprintf(w, "     program %s, %s, output %q\n", truncateID(r.ProgramHash), r.Capacity, r.Output)
		}
	}
	return nil
}

// describeRun is the one-line text form of a stored or finished run.
func describeRun(id, status string, steps int64, kind string) string {
	if kind != "" {
		return fmt.Sprintf("%s %s after %d steps (%s)", id, status, steps, kind)
	}
	return fmt.Sprintf("%s %s after %d steps", id, status, steps)
}
