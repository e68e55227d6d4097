package grpc_test

import (
	"context"
	"log/slog"
	"net"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	grpcsource "github.com/i2y/apiforge/internal/adapter/outbound/grpc"
	"github.com/i2y/apiforge/internal/adapter/outbound/proto"
	"github.com/i2y/apiforge/internal/domain"
	"github.com/i2y/apiforge/internal/usecase"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// startServer runs a gRPC server exposing the health service and
// reflection on a loopback port.
func startServer(t *testing.T, withServices bool) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := grpc.NewServer()
	if withServices {
		healthpb.RegisterHealthServer(srv, health.NewServer())
	}
	reflection.Register(srv)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)
	return lis.Addr().String()
}

func TestSourceFetcher_Accepts(t *testing.T) {
	f := grpcsource.NewSourceFetcher(testLogger())
	assert.True(t, f.Accepts(usecase.SourceConfig{URL: "grpc://localhost:50051"}))
	assert.False(t, f.Accepts(usecase.SourceConfig{URL: "http://localhost:50051"}))
	assert.False(t, f.Accepts(usecase.SourceConfig{URL: "service.proto"}))
}

func TestSourceFetcher_Fetch(t *testing.T) {
	addr := startServer(t, true)
	f := grpcsource.NewSourceFetcher(testLogger())

	srcs, err := f.Fetch(context.Background(), usecase.SourceConfig{
		URL:     "grpc://" + addr,
		Headers: map[string]string{"x-api-key": "secret"},
	})
	require.NoError(t, err)
	require.Len(t, srcs, 1)
	src := srcs[0]
	assert.Equal(t, domain.KindProtoset, src.Kind)
	assert.Equal(t, "http://"+addr, src.BaseURL)

	files, err := proto.ParseSet(src.Data)
	require.NoError(t, err)
	eps, _, _ := proto.Endpoints(src.Origin, files)
	var keys []string
	for _, ep := range eps {
		keys = append(keys, ep.Key().String())
	}
	assert.Contains(t, keys, "POST /grpc.health.v1.Health/Check")
	assert.NotContains(t, keys, "POST /grpc.health.v1.Health/Watch")
}

func TestSourceFetcher_BaseURLOverride(t *testing.T) {
	addr := startServer(t, true)
	f := grpcsource.NewSourceFetcher(testLogger())
	srcs, err := f.Fetch(context.Background(), usecase.SourceConfig{URL: "grpc://" + addr, BaseURL: "https://api.example.com"})
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", srcs[0].BaseURL)
}

func TestSourceFetcher_ReflectionOnly(t *testing.T) {
	addr := startServer(t, false)
	f := grpcsource.NewSourceFetcher(testLogger())
	_, err := f.Fetch(context.Background(), usecase.SourceConfig{URL: "grpc://" + addr})
	assert.ErrorContains(t, err, "no services")
}
