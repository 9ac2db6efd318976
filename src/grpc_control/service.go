package grpc_control

import (
	"fmt"
	"net"

	"enrollment-observer/src/logger"
	"enrollment-observer/src/models"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Component names reported on the health service.
const (
	ComponentStorage = "storage"
	ComponentScanner = "scanner"
	ComponentServer  = "server"
)

// -----------------------------------------------------------------------------
// ControlServer exposes the standard gRPC health service so orchestrators
// can probe the observer's components individually.
// -----------------------------------------------------------------------------

type ControlServer struct {
	Config *models.MConfig
	Logger *logger.Logger
	server *grpc.Server
	health *health.Server
}

// -----------------------------------------------------------------------------

func NewControlServer(cfg *models.MConfig, log *logger.Logger) *ControlServer {
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	return &ControlServer{
		Config: cfg,
		Logger: log,
		server: grpcServer,
		health: healthServer,
	}
}

// -----------------------------------------------------------------------------

// Start listens on the configured control address. Serving happens on a
// background goroutine; the error channel is only written on listener setup
// failure or serve exit.
func (s *ControlServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.GrpcHost, s.Config.GrpcPort)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("control server failed to listen on %s: %w", addr, err)
	}

	s.Logger.Info("Starting control server on %s", addr)

	go func() {
		if err := s.server.Serve(lis); err != nil {
			s.Logger.Error("Control server stopped: %v", err)
		}
	}()

	return nil
}

// -----------------------------------------------------------------------------

// SetServing flips the health status of one component.
func (s *ControlServer) SetServing(component string, serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(component, status)
}

// -----------------------------------------------------------------------------

// Stop drains in-flight RPCs and shuts the listener down.
func (s *ControlServer) Stop() {
	s.health.Shutdown()
	s.server.GracefulStop()
}
