// Command tapevm runs and inspects programs for a byte tape machine.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/tapevm/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
