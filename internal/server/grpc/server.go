// Package grpc runs the internal gRPC endpoint of the auth core. It serves
// the standard grpc.health.v1 service so orchestrators can probe whether
// authentication is usable under the current feature flags.
package grpc

import (
	"context"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dmitrijs2005/chapterhub/internal/logging"
	"github.com/dmitrijs2005/chapterhub/internal/server/featureflags"
)

// ServiceName is the health service name reported alongside the overall
// ("") status.
const ServiceName = "chapterhub.auth"

type GRPCServer struct {
	address string
	flags   *featureflags.Registry
	health  *health.Server
	logger  logging.Logger
}

func NewGRPCServer(a string, l logging.Logger, flags *featureflags.Registry) *GRPCServer {
	return &GRPCServer{
		address: a,
		flags:   flags,
		health:  health.NewServer(),
		logger:  l.With("module", "grpc_server"),
	}
}

// servingStatus is SERVING unless no login path is enabled.
func (s *GRPCServer) servingStatus() healthpb.HealthCheckResponse_ServingStatus {
	if s.flags.AuthUsable() {
		return healthpb.HealthCheckResponse_SERVING
	}
	return healthpb.HealthCheckResponse_NOT_SERVING
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on l until ctx is done.
func (s *GRPCServer) Serve(ctx context.Context, l net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor))

	st := s.servingStatus()
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
	healthpb.RegisterHealthServer(srv, s.health)

	if st != healthpb.HealthCheckResponse_SERVING {
		s.logger.Warn(ctx, "authentication unusable, reporting NOT_SERVING", "warnings", s.flags.Validate().Warnings)
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", l.Addr().String())

	return srv.Serve(l)
}
