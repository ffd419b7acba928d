package cli

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nainya/zarrdump/pkg/cf"
	"github.com/nainya/zarrdump/pkg/metadata"
	"github.com/nainya/zarrdump/pkg/plot"
)

type sliceOptions struct {
	dims   string
	slices []string
}

func newSliceCommand(a *app) *cobra.Command {
	var opts sliceOptions
	cmd := &cobra.Command{
		Use:   "slice STORE VAR",
		Short: "Print a 2-D slice of a variable",
		Long: `slice reads one 2-D slice of VAR and prints it as rows of values
followed by the slice's minimum and maximum.

Every dimension other than the two plotted ones needs a fixed index:

  zarrdump slice data.zarr temp --dims lat,lon --slice time=0`,
		Args: usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(func() error {
				return a.runSlice(cmd.Context(), args[0], args[1], opts)
			})
		},
	}
	cmd.Flags().StringVar(&opts.dims, "dims", "", "Dimensions to print, formatted as 'dim_y,dim_x' (default: suggested plot dims)")
	cmd.Flags().StringArrayVar(&opts.slices, "slice", nil, "Fixed index for a remaining dimension, formatted as 'dim=index' (repeatable)")
	return cmd
}

func (a *app) runSlice(ctx context.Context, location, name string, opts sliceOptions) error {
	fixed, err := plot.ParseSlices(opts.slices)
	if err != nil {
		return usageError(err)
	}
	var dimY, dimX string
	if opts.dims != "" {
		if dimY, dimX, err = plot.ParseDims(opts.dims); err != nil {
			return usageError(err)
		}
	}

	ds, err := a.inspector.Open(ctx, location)
	if err != nil {
		return fmt.Errorf("failed to load Zarr store from '%s': %w", location, err)
	}
	defer ds.Close()

	md := ds.Metadata
	v, ok := md.Variables[metadata.NormalizeVariableKey(name)]
	if !ok {
		return variableNotFound(name, md)
	}
	if opts.dims == "" {
		if dimY, dimX, err = plot.ChooseDims(v, a.inspector.Summarize(ds)); err != nil {
			return err
		}
	}

	sel, err := plot.BuildSelection(v, dimY, dimX, fixed)
	if err != nil {
		return err
	}
	data, err := ds.Reader.ReadFloat64(ctx, v.Path, sel.Ranges)
	if err != nil {
		return fmt.Errorf("failed to read data for variable '%s': %w", name, err)
	}

	return writeSlice(a, v, sel, data)
}

func writeSlice(a *app, v *metadata.Variable, sel *plot.Selection, data []float64) error {
	p := a.palette()
	w := bufio.NewWriter(a.out)

	fmt.Fprintf(w, "%s: %s,%s (%d x %d)\n", p.name.Sprint(v.DisplayPath()), sel.DimY, sel.DimX, sel.Height, sel.Width)
	for _, row := range sel.Rows(data) {
		cells := make([]string, len(row))
		for i, x := range row {
			cells[i] = strconv.FormatFloat(x, 'g', -1, 64)
		}
		fmt.Fprintln(w, strings.Join(cells, " "))
	}

	if lo, hi, ok := cf.MinMax(data, cf.MissingValues(v)); ok {
		fmt.Fprintf(w, "%s min = %s, max = %s\n", p.comment.Sprint("//"),
			p.number.Sprint(strconv.FormatFloat(lo, 'g', -1, 64)),
			p.number.Sprint(strconv.FormatFloat(hi, 'g', -1, 64)))
	} else {
		fmt.Fprintf(w, "%s no valid values\n", p.comment.Sprint("//"))
	}
	return w.Flush()
}
