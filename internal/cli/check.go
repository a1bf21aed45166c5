package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/tapevm/internal/compiler"
)

// CheckFileResult is the outcome of checking one program file.
type CheckFileResult struct {
	Path  string          `json:"path"`
	Valid bool            `json:"valid"`
	Stats *compiler.Stats `json:"stats,omitempty"`
	Error *LoadError      `json:"error,omitempty"`
}

// CheckResult holds the results for every file.
type CheckResult struct {
	Files   []CheckFileResult `json:"files"`
	Valid   int               `json:"valid"`
	Invalid int               `json:"invalid"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <file>...",
		Short: "Compile programs without running them",
		Long: `Compile program files and report instruction statistics or
syntax errors. Every file is checked even after a failure.

Exit codes:
  0 - All programs compile
  1 - One or more programs have unbalanced brackets
  2 - A file could not be read`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runCheck(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	// Failed paths are nil in progs; errs holds their errors in order.
	progs, errs := LoadPrograms(paths, LoadModeCollectAll)

	result := CheckResult{Files: make([]CheckFileResult, 0, len(paths))}
	exit := ExitSuccess
	for i, path := range paths {
		fr := CheckFileResult{Path: path}
		if p := progs[i]; p != nil {
			stats := compiler.Analyze(p.Program)
			fr.Valid = true
			fr.Stats = &stats
			result.Valid++
		} else {
			var le *LoadError
			if len(errs) > 0 {
				errors.As(errs[0], &le)
				errs = errs[1:]
			}
			fr.Error = le
			result.Invalid++
			if le == nil || !le.IsSyntax() {
				exit = ExitCommandError
			} else if exit == ExitSuccess {
				exit = ExitFailure
			}
		}
		result.Files = append(result.Files, fr)
	}

	if opts.Format == "json" {
		status := "ok"
		if result.Invalid > 0 {
			status = "error"
		}
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(CLIResponse{Status: status, Data: result}); err != nil {
			return err
		}
	} else {
		outputCheckText(cmd, result, opts.Verbose)
	}

	if exit != ExitSuccess {
		return NewExitError(exit, fmt.Sprintf("%d of %d program(s) failed to compile", result.Invalid, len(paths)))
	}
	return nil
}

func outputCheckText(cmd *cobra.Command, result CheckResult, verbose bool) {
	w := cmd.OutOrStdout()
	for _, fr := range result.Files {
		if !fr.Valid {
			fmt.Fprintf(w, "✗ %s\n", fr.Path)
			if fr.Error != nil {
				fmt.Fprintf(w, "  %s\n", fr.Error.Error())
			}
			continue
		}

		st := fr.Stats
		fmt.Fprintf(w, "✓ %s: %d instructions, %d loops, depth %d\n", fr.Path, st.Tokens, st.Loops, st.MaxDepth)
		if verbose {
			fmt.Fprintf(w, "  hash: %s\n", st.Hash)
			fmt.Fprintf(w, "  reads input: %t\n", st.ReadsInput)
			keys := make([]string, 0, len(st.BySymbol))
			for k := range st.BySymbol {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(w, "  %s %d\n", k, st.BySymbol[k])
			}
		}
	}
}
