package api

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"hashquest/internal/game"
	"hashquest/internal/savestore"
	"hashquest/pkg/hashing/factory"
)

func startHealthServer(t *testing.T, hs *HealthService) grpc_health_v1.HealthClient {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	grpcServer := grpc.NewServer()
	hs.Register(grpcServer)
	go func() { _ = grpcServer.Serve(listener) }()
	t.Cleanup(grpcServer.Stop)

	conn, err := grpc.NewClient(listener.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return grpc_health_v1.NewHealthClient(conn)
}

func check(t *testing.T, client grpc_health_v1.HealthClient, service string) grpc_health_v1.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := client.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestGRPCHealthFollowsEngine(t *testing.T) {
	opts := game.DefaultOptions()
	opts.Engine.Manual = true
	opts.Engine.AttemptsPerTick = 1
	oracle, err := factory.NewHashMethodFactory(nil).Open("sha256")
	require.NoError(t, err)
	store := savestore.New(savestore.NewMemoryBackend(), savestore.DefaultOptions(), nil)
	g, err := game.New(context.Background(), store, oracle, opts, nil)
	require.NoError(t, err)

	hs := NewHealthService(g)
	client := startHealthServer(t, hs)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, check(t, client, ""))

	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, hs.Sync())
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, check(t, client, ""))
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, check(t, client, HealthServiceName))

	// the oracle going away halts the engine
	require.NoError(t, oracle.Shutdown())
	g.Start()
	_, err = g.Tick()
	require.Error(t, err)

	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, hs.Sync())
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, check(t, client, HealthServiceName))
}

func TestGRPCHealthRunStopsServing(t *testing.T) {
	g, _ := newTestServer(t)
	hs := NewHealthService(g)
	client := startHealthServer(t, hs)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hs.Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return check(t, client, "") == grpc_health_v1.HealthCheckResponse_SERVING
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, check(t, client, ""))
}
