package engine

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/claritypixel/pixel-health/internal/models"
)

// fakeStore serves records from memory. With leaky set it ignores every
// filter, which lets tests check that the engine scopes results itself.
type fakeStore struct {
	mu      sync.Mutex
	records []models.EventRecord
	err     error
	block   bool
	leaky   bool
	calls   int
}

func (f *fakeStore) QueryEvents(ctx context.Context, websiteID string, names []string, start, end time.Time) ([]models.EventRecord, error) {
	f.mu.Lock()
	f.calls++
	block, err, leaky := f.block, f.err, f.leaky
	records := append([]models.EventRecord(nil), f.records...)
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	if leaky {
		return records, nil
	}

	out := make([]models.EventRecord, 0, len(records))
	for _, rec := range records {
		if rec.WebsiteID != websiteID {
			continue
		}
		if rec.ReceivedAt.Before(start) || rec.ReceivedAt.After(end) {
			continue
		}
		if len(names) > 0 && !slices.Contains(names, rec.EventName) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (f *fakeStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func record(name, id string, age time.Duration, identity bool) models.EventRecord {
	return models.EventRecord{
		WebsiteID:       "site-1",
		EventName:       name,
		EventID:         id,
		ReceivedAt:      testNow.Add(-age),
		IdentityPresent: identity,
	}
}
