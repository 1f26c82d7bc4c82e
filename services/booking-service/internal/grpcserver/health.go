package grpcserver

import (
	"context"
	"log/slog"
	"net"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/md-rashed-zaman/spacebook/libs/runtime"
)

// ServiceName is reported next to the overall ("") status.
const ServiceName = "spacebook.booking.v1.BookingService"

// Health mirrors the HTTP readiness checks onto grpc.health.v1.
type Health struct {
	srv     *health.Server
	checks  []runtime.ReadyCheck
	every   time.Duration
	timeout time.Duration
	logger  *slog.Logger
}

func NewHealth(logger *slog.Logger, every time.Duration, checks ...runtime.ReadyCheck) *Health {
	if every <= 0 {
		every = 10 * time.Second
	}
	h := &Health{
		srv:     health.NewServer(),
		checks:  checks,
		every:   every,
		timeout: 2 * time.Second,
		logger:  logger,
	}
	h.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

func (h *Health) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.srv)
}

// Refresh runs the checks once and publishes the result. It reports whether all passed.
func (h *Health) Refresh(ctx context.Context) bool {
	failures := runtime.RunChecks(ctx, h.timeout, h.checks...)
	if len(failures) > 0 {
		h.logger.Warn("grpc health not serving", "failures", strings.Join(failures, "; "))
		h.set(healthpb.HealthCheckResponse_NOT_SERVING)
		return false
	}
	h.set(healthpb.HealthCheckResponse_SERVING)
	return true
}

// Run refreshes on every tick until ctx is done, then marks everything NOT_SERVING.
func (h *Health) Run(ctx context.Context) {
	h.Refresh(ctx)
	ticker := time.NewTicker(h.every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.srv.Shutdown()
			return
		case <-ticker.C:
			h.Refresh(ctx)
		}
	}
}

func (h *Health) set(status healthpb.HealthCheckResponse_ServingStatus) {
	h.srv.SetServingStatus("", status)
	h.srv.SetServingStatus(ServiceName, status)
}

// Serve listens on addr and serves srv until ctx is done.
func Serve(ctx context.Context, logger *slog.Logger, addr string, srv *grpc.Server) (net.Addr, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	go func() {
		logger.Info("grpc server starting", "addr", lis.Addr().String())
		if err := srv.Serve(lis); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()

	go func() {
		<-ctx.Done()
		srv.GracefulStop()
	}()

	return lis.Addr(), nil
}
