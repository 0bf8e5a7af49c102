package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/claritypixel/pixel-health/internal/models"
)

// MemoryStore is an in-process, append-only event log.
type MemoryStore struct {
	mu      sync.RWMutex
	records []models.EventRecord
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append adds records to the log.
func (s *MemoryStore) Append(records ...models.EventRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, records...)
}

// Load appends a JSON array of records read from r.
func (s *MemoryStore) Load(r io.Reader) error {
	var records []models.EventRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return fmt.Errorf("decode events: %w", err)
	}
	for i, rec := range records {
		if rec.WebsiteID == "" {
			return fmt.Errorf("event %d: website_id is required", i)
		}
	}
	s.Append(records...)
	return nil
}

// LoadFile appends the records of a JSON file.
func (s *MemoryStore) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open events file: %w", err)
	}
	defer f.Close()
	return s.Load(f)
}

// Len returns how many records the log holds.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// QueryEvents returns the website's records received in [start, end].
func (s *MemoryStore) QueryEvents(ctx context.Context, websiteID string, names []string, start, end time.Time) ([]models.EventRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.EventRecord, 0)
	for _, rec := range s.records {
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

// Backend names the store in metrics and logs.
func (s *MemoryStore) Backend() string { return DriverMemory }

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
