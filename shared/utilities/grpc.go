package utilities

import (
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// RegisterHealthServer registers the gRPC health check service and marks both the
// overall server and the named service as serving.
func RegisterHealthServer(grpcServer *grpc.Server, service string) *health.Server {
	healthServer := health.NewServer()
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	if service != "" {
		healthServer.SetServingStatus(service, grpc_health_v1.HealthCheckResponse_SERVING)
	}
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)

	return healthServer
}

// HealthServer is a standalone gRPC server exposing only the health protocol.
// It lets service discovery probe an HTTP-only process.
type HealthServer struct {
	server *grpc.Server
	health *health.Server
}

// NewHealthServer creates a HealthServer reporting service as serving.
func NewHealthServer(service string) *HealthServer {
	server := grpc.NewServer()
	return &HealthServer{
		server: server,
		health: RegisterHealthServer(server, service),
	}
}

// Serve accepts connections on lis until Stop is called.
func (s *HealthServer) Serve(lis net.Listener) error {
	return s.server.Serve(lis)
}

// MarkNotServing flips every registered service to NOT_SERVING so probes fail
// while the process drains.
func (s *HealthServer) MarkNotServing() {
	s.health.Shutdown()
}

// Stop marks the server as not serving and stops it gracefully.
func (s *HealthServer) Stop() {
	s.health.Shutdown()
	s.server.GracefulStop()
}
