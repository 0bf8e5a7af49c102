package repo

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/claritypixel/pixel-health/internal/metrics"
	"github.com/claritypixel/pixel-health/internal/models"
)

// Store is a readable event log with a lifecycle.
type Store interface {
	QueryEvents(ctx context.Context, websiteID string, names []string, start, end time.Time) ([]models.EventRecord, error)
	Backend() string
	Close() error
}

// Supported drivers.
const (
	DriverMemory     = "memory"
	DriverPostgres   = "postgres"
	DriverClickHouse = "clickhouse"
	DriverSQLite     = "sqlite"
	DriverHTTP       = "http"
)

// DefaultTable is the event log table read by the SQL backends.
const DefaultTable = "events"

// Options selects and configures a log store backend.
type Options struct {
	Driver      string
	DSN         string
	Table       string
	Timeout     time.Duration
	BaseURL     string
	QueryPath   string
	AutoMigrate bool
	// SeedFile preloads the memory store from a JSON array of records.
	SeedFile string
}

// Open connects to the configured backend and wraps it with query metrics.
func Open(ctx context.Context, opts Options, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Table == "" {
		opts.Table = DefaultTable
	}

	var (
		store Store
		err   error
	)
	switch strings.ToLower(opts.Driver) {
	case "", DriverMemory:
		mem := NewMemoryStore()
		if opts.SeedFile != "" {
			if err := mem.LoadFile(opts.SeedFile); err != nil {
				return nil, err
			}
		}
		store = mem
	case DriverPostgres:
		store, err = NewPostgresStore(ctx, opts.DSN, opts.Table, logger)
	case DriverClickHouse:
		store, err = OpenClickHouse(ctx, opts.DSN, opts.Table, logger)
	case DriverSQLite:
		store, err = OpenSQLite(ctx, opts.DSN, opts.Table)
	case DriverHTTP:
		store = NewEventLogClient(opts.BaseURL, opts.QueryPath, opts.Timeout)
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
	if err != nil {
		return nil, err
	}

	if opts.AutoMigrate {
		if m, ok := store.(interface{ EnsureSchema(context.Context) error }); ok {
			if err := m.EnsureSchema(ctx); err != nil {
				store.Close()
				return nil, fmt.Errorf("ensure schema: %w", err)
			}
		}
	}

	logger.Info("event store ready", slog.String("backend", store.Backend()))
	return Instrument(store), nil
}

// Instrument records latency and failures of every query against store.
func Instrument(store Store) Store {
	return instrumented{Store: store}
}

type instrumented struct {
	Store
}

func (s instrumented) QueryEvents(ctx context.Context, websiteID string, names []string, start, end time.Time) ([]models.EventRecord, error) {
	began := time.Now()
	records, err := s.Store.QueryEvents(ctx, websiteID, names, start, end)
	metrics.ObserveStoreQuery(s.Store.Backend(), time.Since(began), err)
	return records, err
}
