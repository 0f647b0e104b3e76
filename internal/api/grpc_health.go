package api

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"hashquest/internal/game"
)

// HealthServiceName is the service name reported next to the overall ("") status
const HealthServiceName = "hashquest"

// HealthService publishes the game's health over the standard gRPC health
// protocol so process supervisors can probe the host without speaking JSON.
type HealthService struct {
	game   *game.Game
	health *health.Server
}

// NewHealthService creates a health service for g. Its status is NOT_SERVING
// until the first Sync.
func NewHealthService(g *game.Game) *HealthService {
	hs := &HealthService{game: g, health: health.NewServer()}
	hs.set(grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	return hs
}

// Register attaches the health service to s
func (h *HealthService) Register(s *grpc.Server) {
	grpc_health_v1.RegisterHealthServer(s, h.health)
}

// Sync derives the serving status from the game, using the same rule as
// GET /health: a halted engine or a failing save is NOT_SERVING.
func (h *HealthService) Sync() grpc_health_v1.HealthCheckResponse_ServingStatus {
	snap := h.game.Snapshot(0)
	status := grpc_health_v1.HealthCheckResponse_SERVING
	if snap.Engine.LastError != "" || snap.SaveError != "" {
		status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}
	h.set(status)
	return status
}

// Run syncs every interval until ctx is done, then reports NOT_SERVING
func (h *HealthService) Run(ctx context.Context, interval time.Duration) {
	h.Sync()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.health.Shutdown()
			return
		case <-ticker.C:
			h.Sync()
		}
	}
}

func (h *HealthService) set(status grpc_health_v1.HealthCheckResponse_ServingStatus) {
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(HealthServiceName, status)
}
