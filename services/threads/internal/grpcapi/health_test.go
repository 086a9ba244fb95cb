package grpcapi

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/example/comment-platform/services/threads/internal/store"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestHealth_ServingWhenStoreAnswers(t *testing.T) {
	h := NewHealth(store.NewInMemoryCommentStore(), nil)
	if st := h.Check(context.Background()); st != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("expected SERVING, got %s", st)
	}
	resp, err := h.srv.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("expected SERVING for %s, got %s", ServiceName, resp.GetStatus())
	}
}

func TestHealth_NotServingWhenPingFails(t *testing.T) {
	h := NewHealth(pinger{err: errors.New("connection refused")}, nil)
	if st := h.Check(context.Background()); st != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("expected NOT_SERVING, got %s", st)
	}
	resp, err := h.srv.Check(context.Background(), &healthpb.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("expected NOT_SERVING, got %s", resp.GetStatus())
	}
}

func TestHealth_WatchStopsOnCancel(t *testing.T) {
	h := NewHealth(pinger{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h.Watch(ctx, 1)

	// Shutdown flips every registered service to NOT_SERVING.
	resp, err := h.srv.Check(context.Background(), &healthpb.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("expected NOT_SERVING after shutdown, got %s", resp.GetStatus())
	}
}

func TestLoggingInterceptor_PassesThrough(t *testing.T) {
	icpt := loggingInterceptor(nil)
	want := status.Error(codes.NotFound, "missing")
	resp, err := icpt(context.Background(), "req", &grpc.UnaryServerInfo{FullMethod: "/x/Y"},
		func(context.Context, any) (any, error) { return "resp", want })
	if resp != "resp" || !errors.Is(err, want) {
		t.Fatalf("unexpected passthrough: %v %v", resp, err)
	}
}

func TestNewServer_RegistersHealth(t *testing.T) {
	s := NewServer(NewHealth(pinger{}, nil), nil)
	defer s.Stop()
	if _, ok := s.GetServiceInfo()[healthpb.Health_ServiceDesc.ServiceName]; !ok {
		t.Fatal("expected health service to be registered")
	}
}
