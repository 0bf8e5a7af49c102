package engine

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/claritypixel/pixel-health/internal/models"
)

// Summarize returns, per event name seen in the window, the latest receipt time
// and whether any record carried an identity signal. Event names with no
// records are absent from the result. An optional name list narrows the query.
func (e *Engine) Summarize(ctx context.Context, websiteID string, window time.Duration, now time.Time, names ...string) ([]models.EventSummary, error) {
	records, err := e.query(ctx, "summarize", websiteID, window, now, names)
	if err != nil {
		return nil, err
	}
	return summarizeRecords(records), nil
}

// summarizeRecords partitions records by event name. Arrival order is irrelevant:
// last_received is a max and the identity flag is an OR.
func summarizeRecords(records []models.EventRecord) []models.EventSummary {
	byName := make(map[string]*models.EventSummary)
	for _, rec := range records {
		if rec.EventName == "" {
			continue
		}
		summary, ok := byName[rec.EventName]
		if !ok {
			byName[rec.EventName] = &models.EventSummary{
				EventName:       rec.EventName,
				LastReceived:    rec.ReceivedAt,
				IdentityPresent: rec.IdentityPresent,
			}
			continue
		}
		if rec.ReceivedAt.After(summary.LastReceived) {
			summary.LastReceived = rec.ReceivedAt
		}
		summary.IdentityPresent = summary.IdentityPresent || rec.IdentityPresent
	}

	summaries := make([]models.EventSummary, 0, len(byName))
	for _, summary := range byName {
		summaries = append(summaries, *summary)
	}
	slices.SortFunc(summaries, func(a, b models.EventSummary) int {
		return strings.Compare(a.EventName, b.EventName)
	})
	return summaries
}
