package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/claritypixel/pixel-health/internal/api"
	"github.com/claritypixel/pixel-health/internal/engine"
	"github.com/claritypixel/pixel-health/internal/models"
	"github.com/claritypixel/pixel-health/internal/repo"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

type failingStore struct{ err error }

func (f failingStore) QueryEvents(ctx context.Context, websiteID string, names []string, start, end time.Time) ([]models.EventRecord, error) {
	return nil, f.err
}

type blockingStore struct{}

func (blockingStore) QueryEvents(ctx context.Context, websiteID string, names []string, start, end time.Time) ([]models.EventRecord, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newService(t *testing.T, store engine.EventStore, opts ...Option) *HealthService {
	t.Helper()
	eng := engine.New(quietLogger(), store, engine.DefaultHintBook())
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	svc, err := NewHealthService(quietLogger(), eng, engine.DefaultSettings(), opts...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func seededStore() *repo.MemoryStore {
	store := repo.NewMemoryStore()
	store.Append(
		models.EventRecord{WebsiteID: "site-1", EventName: engine.EventPurchase, EventID: "o-1", ReceivedAt: testNow.Add(-time.Hour), IdentityPresent: true},
		models.EventRecord{WebsiteID: "site-1", EventName: engine.EventInitiateCheckout, ReceivedAt: testNow.Add(-6 * time.Hour)},
		models.EventRecord{WebsiteID: "site-1", EventName: engine.EventPageView, EventID: "pv-1", ReceivedAt: testNow.Add(-10 * time.Minute)},
		models.EventRecord{WebsiteID: "site-1", EventName: engine.EventPageView, EventID: "pv-1", ReceivedAt: testNow.Add(-5 * time.Minute)},
	)
	return store
}

func TestGetHealth(t *testing.T) {
	svc := newService(t, seededStore())

	resp, err := svc.GetHealth(context.Background(), &api.HealthRequest{WebsiteID: "site-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := uuid.Parse(resp.EvaluationID); err != nil {
		t.Fatalf("evaluation id is not a uuid: %q", resp.EvaluationID)
	}
	if !resp.EvaluatedAt.Equal(testNow) {
		t.Fatalf("unexpected evaluated_at: %s", resp.EvaluatedAt)
	}

	want := []struct {
		name      string
		status    string
		score     float64
		neverSeen bool
	}{
		{engine.EventPageView, "healthy", 7.0, false},
		{engine.EventAddToCart, "error", 0, true},
		{engine.EventInitiateCheckout, "warning", 5.5, false},
		{engine.EventPurchase, "healthy", 9.1, false},
	}
	if len(resp.Events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(resp.Events))
	}
	for i, w := range want {
		got := resp.Events[i]
		if got.EventName != w.name || got.Status != w.status || got.QualityScore != w.score || got.NeverSeen != w.neverSeen {
			t.Fatalf("event %d: got %+v, want %+v", i, got, w)
		}
	}
	if !resp.Events[1].LastReceived.IsZero() {
		t.Fatalf("never-seen event must carry the zero timestamp, got %s", resp.Events[1].LastReceived)
	}
}

func TestGetAlerts(t *testing.T) {
	svc := newService(t, seededStore())

	resp, err := svc.GetAlerts(context.Background(), &api.HealthRequest{WebsiteID: "site-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Alerts) != 2 {
		t.Fatalf("expected duplicate and quality alerts, got %+v", resp.Alerts)
	}
	if resp.Alerts[0].ID != models.AlertIDDuplicateEvents || resp.Alerts[1].ID != models.AlertIDLowQualityCheckout {
		t.Fatalf("unexpected alert order: %s, %s", resp.Alerts[0].ID, resp.Alerts[1].ID)
	}
	if len(resp.Alerts[0].Hints) == 0 {
		t.Fatalf("expected remediation hints on duplicate alert")
	}
}

func TestGetReportEvaluatesBothHalvesAtOneInstant(t *testing.T) {
	svc := newService(t, seededStore())

	resp, err := svc.GetReport(context.Background(), &api.HealthRequest{WebsiteID: "site-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.WebsiteID != "site-1" || !resp.EvaluatedAt.Equal(testNow) {
		t.Fatalf("unexpected report header: %+v", resp)
	}
	if len(resp.Health) != 4 || len(resp.Alerts) != 2 {
		t.Fatalf("unexpected report body: %d health, %d alerts", len(resp.Health), len(resp.Alerts))
	}
}

func TestInvalidRequests(t *testing.T) {
	svc := newService(t, seededStore())

	if _, err := svc.GetHealth(context.Background(), nil); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected invalid argument for nil request, got %v", err)
	}
	for _, id := range []string{"", "bad id", "../etc"} {
		_, err := svc.GetAlerts(context.Background(), &api.HealthRequest{WebsiteID: id})
		if status.Code(err) != codes.InvalidArgument {
			t.Fatalf("website %q: expected invalid argument, got %v", id, err)
		}
	}
}

func TestUpstreamFailureMapsToUnavailable(t *testing.T) {
	svc := newService(t, failingStore{err: errors.New("connection refused")})

	_, err := svc.GetReport(context.Background(), &api.HealthRequest{WebsiteID: "site-1"})
	if status.Code(err) != codes.Unavailable {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestStoreTimeoutMapsToUnavailable(t *testing.T) {
	svc := newService(t, failingStore{err: fmt.Errorf("Client.Timeout exceeded: %w", context.DeadlineExceeded)})

	_, err := svc.GetHealth(context.Background(), &api.HealthRequest{WebsiteID: "site-1"})
	if status.Code(err) != codes.Unavailable {
		t.Fatalf("expected unavailable for a store-side timeout, got %v", err)
	}
}

func TestRequestTimeoutMapsToDeadlineExceeded(t *testing.T) {
	svc := newService(t, blockingStore{}, WithRequestTimeout(20*time.Millisecond))

	_, err := svc.GetHealth(context.Background(), &api.HealthRequest{WebsiteID: "site-1"})
	if status.Code(err) != codes.DeadlineExceeded {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestCallerCancellationMapsToCanceled(t *testing.T) {
	svc := newService(t, blockingStore{})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := svc.GetAlerts(ctx, &api.HealthRequest{WebsiteID: "site-1"})
	if status.Code(err) != codes.Canceled {
		t.Fatalf("expected canceled, got %v", err)
	}
}

func TestUpdateSettings(t *testing.T) {
	svc := newService(t, seededStore())

	bad := engine.DefaultSettings()
	bad.WarningAge = 48 * time.Hour
	if err := svc.UpdateSettings(bad); err == nil {
		t.Fatalf("expected invalid settings to be rejected")
	}
	if svc.Settings().WarningAge != 4*time.Hour {
		t.Fatalf("rejected settings must not be applied")
	}

	relaxed := engine.DefaultSettings()
	relaxed.QualityAlertThreshold = 3.0
	if err := svc.UpdateSettings(relaxed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp, err := svc.GetAlerts(context.Background(), &api.HealthRequest{WebsiteID: "site-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Alerts) != 1 || resp.Alerts[0].ID != models.AlertIDDuplicateEvents {
		t.Fatalf("expected only the duplicate alert after lowering the threshold, got %+v", resp.Alerts)
	}
}

func TestNewHealthServiceRequiresEvaluator(t *testing.T) {
	if _, err := NewHealthService(nil, nil, engine.DefaultSettings()); err == nil {
		t.Fatalf("expected error for missing evaluator")
	}
}
