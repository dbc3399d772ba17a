package bot

import (
	"context"
	"net"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthService is the gRPC health service name that tracks the readiness gate.
const HealthService = "punish"

// serveHealth exposes grpc.health.v1 on addr. The punish service reports
// NOT_SERVING until startup reconciliation has opened the gate.
func (b *Bot) serveHealth(ctx context.Context, addr string) error {
	b.health.SetServingStatus(HealthService, healthpb.HealthCheckResponse_NOT_SERVING)
	go func() {
		select {
		case <-b.Gate.Done():
			b.health.SetServingStatus(HealthService, healthpb.HealthCheckResponse_SERVING)
		case <-ctx.Done():
		}
	}()

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", addr)
	}
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, b.health)

	go func() {
		<-ctx.Done()
		b.health.Shutdown()
		srv.GracefulStop()
	}()

	log.Info().Str("addr", addr).Msg("gRPC health server listening")
	if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return errors.Wrap(err, "gRPC health server failed")
	}
	return nil
}
