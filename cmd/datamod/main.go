// Command datamod builds, serves and exercises collection-state modules.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/datamod/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
