package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/nainya/zarrdump/internal/logger"
	"github.com/nainya/zarrdump/internal/metrics"
)

const shutdownTimeout = 5 * time.Second

// Config configures Run.
type Config struct {
	GrpcPort    int
	MetricsPort int
	Root        string
}

// NewGRPCServer builds a gRPC server with the Inspector, health and
// reflection services registered.
func NewGRPCServer(srv InspectorServer, m *metrics.Metrics, log *logger.Logger) (*grpc.Server, *health.Server) {
	grpcServer := grpc.NewServer(
		grpc.MaxRecvMsgSize(16*1024*1024),
		grpc.MaxSendMsgSize(16*1024*1024),
		grpc.ChainUnaryInterceptor(GrpcMetricsInterceptor(m, log)),
	)
	Register(grpcServer, srv)

	healthSrv := health.NewServer()
	healthSrv.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthSrv)

	// Reflection for grpcurl/grpcui
	reflection.Register(grpcServer)
	return grpcServer, healthSrv
}

// Run serves srv and the observability endpoints until ctx is done or either
// listener fails.
func Run(ctx context.Context, cfg Config, srv InspectorServer, m *metrics.Metrics, log *logger.Logger) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GrpcPort))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", cfg.GrpcPort, err)
	}
	log.LogServerStart(cfg.GrpcPort, cfg.Root)

	grpcServer, healthSrv := NewGRPCServer(srv, m, log)
	obs := NewObservabilityServer(cfg.MetricsPort, m, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m.TrackUptime(gctx)
		return nil
	})
	g.Go(obs.Start)
	g.Go(func() error {
		obs.SetReady(true)
		log.LogServerReady(cfg.GrpcPort)
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.LogServerShutdown()
		obs.SetReady(false)
		healthSrv.Shutdown()
		grpcServer.GracefulStop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := obs.Shutdown(shutdownCtx); err != nil {
			log.Warn("Observability server did not shut down cleanly").Err(err).Send()
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("zarrdump server stopped").Err(err).Send()
		return err
	}
	return nil
}
