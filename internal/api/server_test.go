package api

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/claritypixel/pixel-health/internal/config"
)

func startBufServer(t *testing.T, svc EventHealthServer) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	server := newServer(config.ServerConfig{GracefulTimeout: time.Second}, lis, svc)
	go server.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		server.Shutdown(ctx)
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestGRPCRoundTripOverJSONCodec(t *testing.T) {
	svc := &fakeService{}
	client := NewEventHealthClient(startBufServer(t, svc))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	health, err := client.GetHealth(ctx, &HealthRequest{WebsiteID: "shop-42"})
	if err != nil {
		t.Fatalf("GetHealth: %v", err)
	}
	if health.WebsiteID != "shop-42" || len(health.Events) != 2 || !health.Events[1].NeverSeen {
		t.Fatalf("unexpected health response: %+v", health)
	}

	report, err := client.GetReport(ctx, &HealthRequest{WebsiteID: "shop-42"})
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if len(report.Alerts) != 1 || !report.Alerts[0].Timestamp.Equal(testNow) {
		t.Fatalf("unexpected report: %+v", report)
	}

	if _, err := client.GetAlerts(ctx, &HealthRequest{WebsiteID: "shop-42"}); err != nil {
		t.Fatalf("GetAlerts: %v", err)
	}
}

func TestGRPCStatusPropagates(t *testing.T) {
	client := NewEventHealthClient(startBufServer(t, &fakeService{}))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.GetReport(ctx, &HealthRequest{})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestGRPCHealthService(t *testing.T) {
	conn := startBufServer(t, &fakeService{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		t.Fatalf("health check: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("unexpected health status %s", resp.GetStatus())
	}
}

func TestJSONCodecIgnoresEmptyPayload(t *testing.T) {
	var req HealthRequest
	if err := (jsonCodec{}).Unmarshal(nil, &req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := (jsonCodec{}).Marshal(make(chan int)); err == nil {
		t.Fatalf("expected marshal error for unsupported type")
	}
}
