// Package grpcutil builds the gRPC server that reports service health.
package grpcutil

import (
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the name health checks should ask about
const ServiceName = "pvforecast"

// HealthServer pairs a gRPC server with its health service
type HealthServer struct {
	Server *grpc.Server
	Health *health.Server
}

// NewHealthServer creates a gRPC server with the standard health service and
// reflection registered. The service starts out NOT_SERVING. TLS is used when
// both cert and key are set.
func NewHealthServer(cert, key string) (*HealthServer, error) {
	var opts []grpc.ServerOption
	if cert != "" && key != "" {
		creds, err := credentials.NewServerTLSFromFile(cert, key)
		if err != nil {
			return nil, fmt.Errorf("could not create TLS server from keypair: %v", err)
		}
		opts = append(opts, grpc.Creds(creds))
	}

	hs := &HealthServer{
		Server: grpc.NewServer(opts...),
		Health: health.NewServer(),
	}
	healthpb.RegisterHealthServer(hs.Server, hs.Health)
	reflection.Register(hs.Server)

	hs.SetServing(false)
	return hs, nil
}

// SetServing flips the reported status of ServiceName and the overall server
func (hs *HealthServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	hs.Health.SetServingStatus(ServiceName, status)
	hs.Health.SetServingStatus("", status)
}

// Stop marks everything NOT_SERVING and drains in-flight calls
func (hs *HealthServer) Stop() {
	hs.Health.Shutdown()
	hs.Server.GracefulStop()
}
