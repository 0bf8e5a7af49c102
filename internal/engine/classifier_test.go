package engine

import (
	"testing"
	"time"

	"github.com/claritypixel/pixel-health/internal/models"
)

func TestClassifyThresholds(t *testing.T) {
	settings := DefaultSettings()
	cases := []struct {
		name   string
		age    time.Duration
		status models.Status
		score  float64
	}{
		{"fresh", time.Hour, models.StatusHealthy, 7.0},
		{"warning boundary inclusive", 4 * time.Hour, models.StatusHealthy, 7.0},
		{"just past warning", 4*time.Hour + time.Nanosecond, models.StatusWarning, 5.5},
		{"error boundary inclusive", 24 * time.Hour, models.StatusWarning, 5.5},
		{"just past error", 24*time.Hour + time.Nanosecond, models.StatusError, 4.0},
		{"future timestamp", -time.Minute, models.StatusError, 4.0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			summary := models.EventSummary{EventName: EventPurchase, LastReceived: testNow.Add(-tc.age)}
			got := Classify(summary, testNow, settings)
			if got.Status != tc.status {
				t.Fatalf("expected status %s, got %s", tc.status, got.Status)
			}
			if got.QualityScore != tc.score {
				t.Fatalf("expected score %.1f, got %v", tc.score, got.QualityScore)
			}
			if got.LastReceived == nil || !got.LastReceived.Equal(summary.LastReceived) {
				t.Fatalf("expected last received to be carried over, got %v", got.LastReceived)
			}
		})
	}
}

func TestQualityScoreIdentityBonus(t *testing.T) {
	settings := DefaultSettings()
	if got := QualityScore(models.StatusHealthy, true, settings); got != 9.1 {
		t.Fatalf("expected 9.1 for healthy with identity (4.0+3.0+2.1; the formula wins over the 9.9 ceiling), got %v", got)
	}
	if got := QualityScore(models.StatusWarning, true, settings); got != 7.6 {
		t.Fatalf("expected 7.6 for warning with identity, got %v", got)
	}
	if got := QualityScore(models.StatusError, true, settings); got != 6.1 {
		t.Fatalf("expected 6.1 for error with identity, got %v", got)
	}
}

func TestQualityScoreClamped(t *testing.T) {
	settings := DefaultSettings()
	settings.IdentityBonus = 3.5
	if got := QualityScore(models.StatusHealthy, true, settings); got != 9.9 {
		t.Fatalf("expected score clamped to 9.9, got %v", got)
	}

	settings = DefaultSettings()
	settings.BaseScore = -2
	if got := QualityScore(models.StatusError, false, settings); got != 0 {
		t.Fatalf("expected score floored at 0, got %v", got)
	}
}

func TestClassifyMissing(t *testing.T) {
	got := ClassifyMissing(EventAddToCart)
	if got.Status != models.StatusError || got.QualityScore != 0 {
		t.Fatalf("expected error/0.0, got %s/%v", got.Status, got.QualityScore)
	}
	if !got.NeverSeen() {
		t.Fatalf("expected missing event to be marked never seen")
	}
}

func TestClassifyMonotonicInAge(t *testing.T) {
	settings := DefaultSettings()
	for _, identity := range []bool{false, true} {
		prevScore := -1.0
		prevRank := -1
		// Walk from oldest to freshest; nothing may get worse.
		for age := 72 * time.Hour; age >= 0; age -= 15 * time.Minute {
			got := Classify(models.EventSummary{
				EventName:       EventPageView,
				LastReceived:    testNow.Add(-age),
				IdentityPresent: identity,
			}, testNow, settings)
			if got.QualityScore < prevScore {
				t.Fatalf("score decreased at age %v: %v < %v", age, got.QualityScore, prevScore)
			}
			if got.Status.Rank() < prevRank {
				t.Fatalf("status worsened at age %v: %s", age, got.Status)
			}
			prevScore = got.QualityScore
			prevRank = got.Status.Rank()
		}
	}
}
