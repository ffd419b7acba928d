package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/nainya/zarrdump/pkg/chunk"
)

type dumpOptions struct {
	coordinateData bool
}

func (o *dumpOptions) bind(fs *pflag.FlagSet) {
	fs.BoolVarP(&o.coordinateData, "coordinate-data", "c", false, "Show coordinate variable values (like ncdump -c)")
}

func newDumpCommand(a *app) *cobra.Command {
	var opts dumpOptions
	cmd := &cobra.Command{
		Use:   "dump STORE",
		Short: "Print an ncdump-like summary of a store",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(func() error {
				return a.runDump(cmd.Context(), args[0], opts)
			})
		},
	}
	opts.bind(cmd.Flags())
	return cmd
}

func (a *app) runDump(ctx context.Context, location string, opts dumpOptions) error {
	fmt.Fprintf(a.out, "Opening Zarr store: %s\n", location)

	ds, err := a.inspector.Open(ctx, location)
	if err != nil {
		return fmt.Errorf("failed to load Zarr store from '%s': %w", location, err)
	}
	defer ds.Close()

	var reader chunk.Reader
	if opts.coordinateData {
		reader = ds.Reader
	}
	return newDumper(a.out, a.palette()).Dump(ctx, ds.Metadata, a.inspector.Summarize(ds), reader)
}
