package server

import (
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/oggyb/codev-api/internal/config"
)

// NewGRPCServer builds a server with the metrics and auth interceptors
// chained, in that order, and registers all provided services.
func NewGRPCServer(cfg *config.Config, log *slog.Logger, registrars ...Registrar) *grpc.Server {
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			MetricsInterceptor(),
			AuthInterceptor(cfg.Auth.JWTSecret, cfg.Roles.Admin, log),
		),
	)

	// register all services
	for _, r := range registrars {
		r.Register(grpcServer)
	}

	// enable reflection for easier debugging with grpcurl
	reflection.Register(grpcServer)
	return grpcServer
}

// Serve listens on addr and blocks serving grpcServer.
func Serve(grpcServer *grpc.Server, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return grpcServer.Serve(lis)
}
