// Package cli implements the zarrdump command line
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/nainya/zarrdump/internal/config"
	"github.com/nainya/zarrdump/internal/inspect"
	"github.com/nainya/zarrdump/internal/logger"
	"github.com/nainya/zarrdump/internal/metrics"
	"github.com/nainya/zarrdump/pkg/cf"
	"github.com/nainya/zarrdump/pkg/storage"
)

// ExitError is an error that carries a process exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// usageError marks err as a command line mistake (exit code 2).
func usageError(err error) error {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}
	return &ExitError{Code: 2, Message: err.Error()}
}

// ExitCode maps an error returned by Execute to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}

// app holds what every command needs once flags and config are resolved.
type app struct {
	out    io.Writer
	errOut io.Writer

	configFile string
	noColor    bool

	cfg       *config.Config
	log       *logger.Logger
	metrics   *metrics.Metrics
	inspector *inspect.Inspector
}

// setup loads configuration for cmd and builds the logger and inspector.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configFile, cmd.Flags())
	if err != nil {
		return usageError(err)
	}
	a.cfg = cfg
	a.log = logger.NewLogger(logger.Config{
		Level:   cfg.Log.Level,
		Pretty:  cfg.Log.Pretty,
		NoColor: a.noColor,
		Output:  a.errOut,
	})
	a.metrics = metrics.NewMetrics()
	a.inspector = inspect.New(a.log, a.metrics, inspect.Options{
		Check: cf.Options{
			SampleLimit: cfg.Check.SampleLimit,
			Tolerance:   cfg.Check.Tolerance,
		},
		Storage: storage.Options{CredentialsFile: cfg.Storage.CredentialsFile},
	})
	return nil
}

// finish writes the metrics textfile for one-shot commands.
func (a *app) finish() error {
	if a.cfg == nil || a.cfg.Metrics.Textfile == "" {
		return nil
	}
	if err := a.metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	a.log.Debug("Metrics textfile written").Str("path", a.cfg.Metrics.Textfile).Send()
	return nil
}

// run calls fn and then writes the metrics textfile, even when fn failed.
func (a *app) run(fn func() error) error {
	err := fn()
	if ferr := a.finish(); ferr != nil && err == nil {
		err = ferr
	}
	return err
}

func (a *app) palette() *palette {
	return newPalette(!a.noColor)
}

// NewRootCommand creates the root command writing to out and errOut
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}
	d := config.Defaults()

	var dumpOpts dumpOptions
	rootCmd := &cobra.Command{
		Use:   "zarrdump [STORE]",
		Short: "Summarize Zarr stores and check CF conventions",
		Long: `zarrdump prints an ncdump-like summary of a Zarr v2 or v3 store.

STORE is a local directory or a gs://bucket/prefix URL. Without a
subcommand zarrdump runs dump.`,
		Args:          usageArgs(cobra.MaximumNArgs(1)),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return a.run(func() error {
				return a.runDump(cmd.Context(), args[0], dumpOpts)
			})
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "Config file (default ./zarrdump.yaml)")
	pf.String("log-level", d.Log.Level, "Log level: debug, info, warn or error")
	pf.Bool("log-pretty", d.Log.Pretty, "Human readable logs instead of JSON")
	pf.BoolVar(&a.noColor, "no-color", false, "Disable colored output")
	pf.String("metrics-textfile", d.Metrics.Textfile, "Write run metrics to this file in textfile format")
	pf.String("credentials", d.Storage.CredentialsFile, "Service account JSON for gs:// stores")

	dumpOpts.bind(rootCmd.Flags())

	rootCmd.AddCommand(newDumpCommand(a))
	rootCmd.AddCommand(newCheckCommand(a))
	rootCmd.AddCommand(newSliceCommand(a))
	rootCmd.AddCommand(newServeCommand(a))
	rootCmd.AddCommand(newVersionCommand(a))

	return rootCmd
}

// Execute runs the command line in args. Errors are printed to errOut and
// returned so the caller can pick an exit code with ExitCode.
func Execute(ctx context.Context, args []string, out, errOut io.Writer) error {
	rootCmd := NewRootCommand(out, errOut)
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	errorColor := color.New(color.FgRed, color.Bold)
	if noColorRequested(rootCmd) {
		errorColor.DisableColor()
	}
	errorColor.Fprintf(errOut, "Error: %v\n", err)
	return err
}

func noColorRequested(cmd *cobra.Command) bool {
	f := cmd.PersistentFlags().Lookup("no-color")
	return f != nil && f.Value.String() == "true"
}

// usageArgs reports argument count mistakes as usage errors.
func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return usageError(err)
		}
		return nil
	}
}

// checkFlags registers the sampled-check tuning flags.
func checkFlags(fs *pflag.FlagSet) {
	d := config.Defaults()
	fs.Uint64("sample-limit", d.Check.SampleLimit, "Maximum coordinate values sampled per variable")
	fs.Float64("tolerance", d.Check.Tolerance, "Slack allowed on latitude and longitude ranges")
}
