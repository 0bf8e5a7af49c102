package repo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/claritypixel/pixel-health/internal/models"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS %[1]s (
    id                      BIGSERIAL PRIMARY KEY,
    website_id              TEXT        NOT NULL,
    event_name              TEXT        NOT NULL,
    event_id                TEXT,
    received_at             TIMESTAMPTZ NOT NULL,
    identity_signal_present BOOLEAN     NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS %[2]s ON %[1]s (website_id, received_at);
`

// PostgresStore reads the event log from PostgreSQL through a pgx pool.
type PostgresStore struct {
	pool  *pgxpool.Pool
	table pgx.Identifier
}

// NewPostgresStore opens a pool against dsn, retrying the initial connection.
func NewPostgresStore(ctx context.Context, dsn, table string, logger *slog.Logger) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}
	ident, err := tableIdentifier(table)
	if err != nil {
		return nil, err
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pgxpool config: %w", err)
	}
	cfg.MaxConns = 20
	cfg.MinConns = 2
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.HealthCheckPeriod = time.Minute
	cfg.ConnConfig.ConnectTimeout = 10 * time.Second

	var pool *pgxpool.Pool
	err = retryConnect(ctx, logger, DriverPostgres, func() error {
		p, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return err
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return err
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &PostgresStore{pool: pool, table: ident}, nil
}

// QueryEvents returns the website's records received in [start, end].
func (s *PostgresStore) QueryEvents(ctx context.Context, websiteID string, names []string, start, end time.Time) ([]models.EventRecord, error) {
	query, args := buildPostgresQuery(s.table.Sanitize(), websiteID, names, start, end)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres query: %w", err)
	}
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.EventRecord, error) {
		var (
			rec     models.EventRecord
			eventID *string
		)
		if err := row.Scan(&rec.WebsiteID, &rec.EventName, &eventID, &rec.ReceivedAt, &rec.IdentityPresent); err != nil {
			return rec, err
		}
		if eventID != nil {
			rec.EventID = *eventID
		}
		rec.ReceivedAt = rec.ReceivedAt.UTC()
		return rec, nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres scan: %w", err)
	}
	return records, nil
}

// EnsureSchema creates the event table when it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	index := pgx.Identifier{strings.Join(s.table, "_") + "_website_received_idx"}.Sanitize()
	_, err := s.pool.Exec(ctx, fmt.Sprintf(postgresSchema, s.table.Sanitize(), index))
	return err
}

// Backend names the store in metrics and logs.
func (s *PostgresStore) Backend() string { return DriverPostgres }

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func buildPostgresQuery(table, websiteID string, names []string, start, end time.Time) (string, []any) {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT website_id, event_name, event_id, received_at, identity_signal_present FROM %s WHERE website_id = $1 AND received_at >= $2 AND received_at <= $3", table)
	args := []any{websiteID, start.UTC(), end.UTC()}
	if len(names) > 0 {
		b.WriteString(" AND event_name = ANY($4)")
		args = append(args, names)
	}
	return b.String(), args
}

// tableIdentifier splits and validates a possibly schema-qualified table name.
func tableIdentifier(table string) (pgx.Identifier, error) {
	if table == "" {
		table = DefaultTable
	}
	parts := strings.Split(table, ".")
	for _, p := range parts {
		if !identPattern.MatchString(p) {
			return nil, fmt.Errorf("invalid table name %q", table)
		}
	}
	return pgx.Identifier(parts), nil
}

// connectAttempts bounds the initial connection retries of the SQL stores.
const connectAttempts = 3

// retryWait is the pause before the next connection attempt.
var retryWait = backoff

// retryConnect runs connect up to connectAttempts times, waiting between
// attempts but not after the last one.
func retryConnect(ctx context.Context, logger *slog.Logger, backend string, connect func() error) error {
	if logger == nil {
		logger = slog.Default()
	}
	var err error
	for attempt := 0; attempt < connectAttempts; attempt++ {
		if err = connect(); err == nil {
			return nil
		}
		logger.Warn("store connection failed",
			slog.String("backend", backend),
			slog.Int("attempt", attempt+1),
			slog.Any("error", err))
		if attempt == connectAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryWait(attempt)):
		}
	}
	return fmt.Errorf("connect to %s after %d attempts: %w", backend, connectAttempts, err)
}

func backoff(attempt int) time.Duration {
	base := 250 * time.Millisecond
	return time.Duration(1<<attempt) * base
}
