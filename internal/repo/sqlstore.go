package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2"
	_ "modernc.org/sqlite"

	"github.com/claritypixel/pixel-health/internal/models"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// sqlDialect captures what differs between the database/sql backends.
type sqlDialect struct {
	backend string
	driver  string
	// schema statements take the quoted table as %[1]s and an index name as %[2]s.
	schema []string
	// receivedAt selects received_at as unix milliseconds.
	receivedAt string
	// bound wraps a unix-millisecond placeholder for comparison with received_at.
	bound string
	// bindTime converts a receipt time for INSERT.
	bindTime func(time.Time) any
}

var clickhouseDialect = sqlDialect{
	backend: DriverClickHouse,
	driver:  "clickhouse",
	schema: []string{`CREATE TABLE IF NOT EXISTS %[1]s (
    website_id              String,
    event_name              LowCardinality(String),
    event_id                Nullable(String),
    received_at             DateTime64(3, 'UTC'),
    identity_signal_present Bool DEFAULT false
) ENGINE = MergeTree
ORDER BY (website_id, received_at)`},
	receivedAt: "toUnixTimestamp64Milli(received_at)",
	bound:      "fromUnixTimestamp64Milli(toInt64(?))",
	bindTime:   func(t time.Time) any { return t.UTC() },
}

var sqliteDialect = sqlDialect{
	backend: DriverSQLite,
	driver:  "sqlite",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS %[1]s (
    id                      INTEGER PRIMARY KEY AUTOINCREMENT,
    website_id              TEXT    NOT NULL,
    event_name              TEXT    NOT NULL,
    event_id                TEXT,
    received_at             INTEGER NOT NULL,
    identity_signal_present INTEGER NOT NULL DEFAULT 0
)`,
		`CREATE INDEX IF NOT EXISTS %[2]s ON %[1]s (website_id, received_at)`,
	},
	receivedAt: "received_at",
	bound:      "?",
	bindTime:   func(t time.Time) any { return t.UnixMilli() },
}

// SQLStore reads the event log through database/sql. ClickHouse and SQLite
// share it and differ only in their dialect.
type SQLStore struct {
	db      *sql.DB
	table   []string
	dialect sqlDialect
}

// OpenClickHouse connects to a ClickHouse server, retrying the initial ping.
func OpenClickHouse(ctx context.Context, dsn, table string, logger *slog.Logger) (*SQLStore, error) {
	if dsn == "" {
		return nil, errors.New("clickhouse dsn is required")
	}
	parts, err := splitTable(table)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(clickhouseDialect.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}
	db.SetMaxIdleConns(5)
	db.SetMaxOpenConns(50)
	db.SetConnMaxLifetime(time.Hour)

	if err := retryConnect(ctx, logger, DriverClickHouse, func() error { return db.PingContext(ctx) }); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLStore{db: db, table: parts, dialect: clickhouseDialect}, nil
}

// OpenSQLite opens (or creates) a SQLite database file.
func OpenSQLite(ctx context.Context, dsn, table string) (*SQLStore, error) {
	if dsn == "" {
		return nil, errors.New("sqlite dsn is required")
	}
	parts, err := splitTable(table)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(sqliteDialect.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return &SQLStore{db: db, table: parts, dialect: sqliteDialect}, nil
}

// QueryEvents returns the website's records received in [start, end].
func (s *SQLStore) QueryEvents(ctx context.Context, websiteID string, names []string, start, end time.Time) ([]models.EventRecord, error) {
	query, args := s.buildQuery(websiteID, names, start, end)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s query: %w", s.dialect.backend, err)
	}
	defer rows.Close()

	records := make([]models.EventRecord, 0)
	for rows.Next() {
		var (
			rec     models.EventRecord
			eventID sql.NullString
			millis  int64
		)
		if err := rows.Scan(&rec.WebsiteID, &rec.EventName, &eventID, &millis, &rec.IdentityPresent); err != nil {
			return nil, fmt.Errorf("%s scan: %w", s.dialect.backend, err)
		}
		rec.EventID = eventID.String
		rec.ReceivedAt = time.UnixMilli(millis).UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s rows: %w", s.dialect.backend, err)
	}
	return records, nil
}

// Insert appends records in a single transaction.
func (s *SQLStore) Insert(ctx context.Context, records ...models.EventRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (website_id, event_name, event_id, received_at, identity_signal_present) VALUES (?, ?, ?, ?, ?)",
		s.quotedTable()))
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		var eventID any
		if rec.EventID != "" {
			eventID = rec.EventID
		}
		if _, err := stmt.ExecContext(ctx, rec.WebsiteID, rec.EventName, eventID, s.dialect.bindTime(rec.ReceivedAt), rec.IdentityPresent); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert event: %w", err)
		}
	}
	return tx.Commit()
}

// EnsureSchema creates the event table when it does not exist.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	index := quoteIdent(strings.Join(s.table, "_") + "_website_received_idx")
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf(stmt, s.quotedTable(), index)); err != nil {
			return err
		}
	}
	return nil
}

// Backend names the store in metrics and logs.
func (s *SQLStore) Backend() string { return s.dialect.backend }

// Close releases the database handle.
func (s *SQLStore) Close() error { return s.db.Close() }

func (s *SQLStore) buildQuery(websiteID string, names []string, start, end time.Time) (string, []any) {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT website_id, event_name, event_id, %s, identity_signal_present FROM %s WHERE website_id = ? AND received_at >= %s AND received_at <= %s",
		s.dialect.receivedAt, s.quotedTable(), s.dialect.bound, s.dialect.bound)
	args := []any{websiteID, start.UnixMilli(), end.UnixMilli()}
	if len(names) > 0 {
		b.WriteString(" AND event_name IN (")
		for i, name := range names {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString("?")
			args = append(args, name)
		}
		b.WriteString(")")
	}
	return b.String(), args
}

func (s *SQLStore) quotedTable() string {
	quoted := make([]string, len(s.table))
	for i, part := range s.table {
		quoted[i] = quoteIdent(part)
	}
	return strings.Join(quoted, ".")
}

func splitTable(table string) ([]string, error) {
	ident, err := tableIdentifier(table)
	if err != nil {
		return nil, err
	}
	return []string(ident), nil
}

// quoteIdent double-quotes a name already checked against identPattern.
func quoteIdent(name string) string {
	return `"` + name + `"`
}
