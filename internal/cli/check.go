package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nainya/zarrdump/pkg/cf"
)

func newCheckCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cf-check STORE",
		Short: "Check CF conventions (metadata and light-touch coordinate checks)",
		Long: `cf-check validates CF metadata conventions and samples coordinate
values for monotonicity and range. It exits with status 1 when any
error is reported.`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(func() error {
				location := args[0]
				fmt.Fprintf(a.out, "Opening Zarr store: %s\n", location)

				ds, err := a.inspector.Open(cmd.Context(), location)
				if err != nil {
					return fmt.Errorf("failed to load Zarr store from '%s': %w", location, err)
				}
				defer ds.Close()

				report := a.inspector.Check(cmd.Context(), ds)
				if err := writeReport(a, report); err != nil {
					return err
				}
				if report.HasErrors() {
					return &ExitError{Code: 1, Message: "CF check failed"}
				}
				return nil
			})
		},
	}
	checkFlags(cmd.Flags())
	return cmd
}

// writeReport prints the report with colored level tags.
func writeReport(a *app, report *cf.Report) error {
	if a.noColor {
		_, err := report.WriteTo(a.out)
		return err
	}

	p := a.palette()
	fmt.Fprintln(a.out, "cf-check {")
	for _, is := range report.Issues() {
		fmt.Fprintf(a.out, "  %s: %s\n", p.level(is.Level).Sprint(is.Level), is.Message)
	}
	_, err := fmt.Fprintf(a.out, "}\nSummary: %d warnings, %d errors\n", report.Warnings(), report.Errors())
	return err
}
