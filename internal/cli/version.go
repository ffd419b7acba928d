package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func newVersionCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  usageArgs(cobra.NoArgs),
		// version must work even with a broken config file
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			p := a.palette()
			rows := [][2]string{
				{"zarrdump version", Version},
				{"Git commit", GitCommit},
				{"Build date", BuildDate},
				{"Go version", runtime.Version()},
			}
			for _, r := range rows {
				fmt.Fprintf(a.out, "%s %s\n", p.section.Sprint(r[0]+":"), r[1])
			}
			return nil
		},
	}
}
