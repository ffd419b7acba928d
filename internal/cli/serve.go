package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nainya/zarrdump/internal/config"
	"github.com/nainya/zarrdump/internal/server"
)

func newServeCommand(a *app) *cobra.Command {
	d := config.Defaults()
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve check and summary requests over gRPC",
		Long: `serve runs the zarrdump.v1.Inspector gRPC service together with an
HTTP server for /metrics, /health, /ready and pprof.

With --root set, requests may only name stores below that directory.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg := a.cfg.Server
			srv := server.NewServer(a.inspector, cfg.Root)
			return server.Run(ctx, server.Config{
				GrpcPort:    cfg.GrpcPort,
				MetricsPort: cfg.MetricsPort,
				Root:        cfg.Root,
			}, srv, a.metrics, a.log)
		},
	}

	fs := cmd.Flags()
	fs.Int("port", d.Server.GrpcPort, "gRPC listen port")
	fs.Int("metrics-port", d.Server.MetricsPort, "HTTP port for metrics, health and pprof")
	fs.String("root", d.Server.Root, "Only serve stores below this directory")
	checkFlags(fs)
	return cmd
}
