package engine

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/claritypixel/pixel-health/internal/models"
)

// FindDuplicates returns the sorted event ids that occur at least twice in the window.
func (e *Engine) FindDuplicates(ctx context.Context, websiteID string, window time.Duration, now time.Time) ([]string, error) {
	groups, err := e.duplicateGroups(ctx, websiteID, window, now)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(groups))
	for _, g := range groups {
		ids = append(ids, g.EventID)
	}
	return ids, nil
}

func (e *Engine) duplicateGroups(ctx context.Context, websiteID string, window time.Duration, now time.Time) ([]models.DuplicateGroup, error) {
	records, err := e.query(ctx, "find_duplicates", websiteID, window, now, nil)
	if err != nil {
		return nil, err
	}
	return groupDuplicates(records), nil
}

// groupDuplicates groups records by their exact event id, skipping empty ids,
// and keeps only groups of two or more. Output is sorted by event id.
func groupDuplicates(records []models.EventRecord) []models.DuplicateGroup {
	groups := make(map[string]*models.DuplicateGroup)
	for _, rec := range records {
		id := rec.EventID
		if id == "" {
			continue
		}
		g, ok := groups[id]
		if !ok {
			groups[id] = &models.DuplicateGroup{EventID: id, Count: 1, LastReceived: rec.ReceivedAt}
			continue
		}
		g.Count++
		if rec.ReceivedAt.After(g.LastReceived) {
			g.LastReceived = rec.ReceivedAt
		}
	}

	dups := make([]models.DuplicateGroup, 0)
	for _, g := range groups {
		if g.Count >= 2 {
			dups = append(dups, *g)
		}
	}
	slices.SortFunc(dups, func(a, b models.DuplicateGroup) int {
		return strings.Compare(a.EventID, b.EventID)
	})
	return dups
}
