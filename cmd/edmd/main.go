// Command edmd runs event-driven molecular dynamics simulations.
package main

import (
	"os"

	"github.com/roach88/edmd/internal/cli"
)

func main() {
	// cobra already printed the error and usage.
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(cli.GetExitCode(err))
	}
}
