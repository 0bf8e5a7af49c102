package api

import (
	"testing"
	"time"

	"github.com/claritypixel/pixel-health/internal/models"
)

func TestToWireHealthNeverSeen(t *testing.T) {
	seen := time.Date(2026, 3, 14, 11, 0, 0, 0, time.FixedZone("CET", 3600))
	wire := ToWireHealth([]models.HealthStatus{
		{EventName: "Purchase", Status: models.StatusHealthy, QualityScore: 9.1, LastReceived: &seen},
		{EventName: "AddToCart", Status: models.StatusError},
	})

	if len(wire) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(wire))
	}
	if wire[0].NeverSeen || wire[0].LastReceived.Location() != time.UTC || !wire[0].LastReceived.Equal(seen) {
		t.Fatalf("unexpected seen entry: %+v", wire[0])
	}
	if !wire[1].NeverSeen || !wire[1].LastReceived.IsZero() {
		t.Fatalf("unexpected never-seen entry: %+v", wire[1])
	}
}

func TestToWireAlertsKeepsOrderAndEmptySlice(t *testing.T) {
	if got := ToWireAlerts(nil); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
	alerts := ToWireAlerts([]models.Alert{
		{ID: models.AlertIDDuplicateEvents, Severity: models.SeverityWarning},
		{ID: models.AlertIDLowQualityCheckout, Severity: models.SeverityWarning, Hints: []string{"a"}},
	})
	if alerts[0].ID != models.AlertIDDuplicateEvents || alerts[1].ID != models.AlertIDLowQualityCheckout {
		t.Fatalf("unexpected order: %+v", alerts)
	}
	if len(alerts[1].Hints) != 1 {
		t.Fatalf("expected hints to be carried over")
	}
}

func TestWebsiteIDFromRequest(t *testing.T) {
	if _, err := WebsiteIDFromRequest(nil); err == nil {
		t.Fatalf("expected error for nil request")
	}
	id, err := WebsiteIDFromRequest(&HealthRequest{WebsiteID: "site-1"})
	if err != nil || id != "site-1" {
		t.Fatalf("unexpected result: %q, %v", id, err)
	}
}
