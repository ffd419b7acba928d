// zarrdump command line
// Summarizes Zarr stores, checks CF conventions and serves both over gRPC
package main

import (
	"context"
	"io"
	"os"

	"github.com/nainya/zarrdump/internal/cli"
)

func main() {
	os.Exit(run(os.Stdout, os.Stderr, os.Args[1:]))
}

// run executes the command line and returns the process exit code.
func run(out, errOut io.Writer, args []string) int {
	return cli.ExitCode(cli.Execute(context.Background(), args, out, errOut))
}
