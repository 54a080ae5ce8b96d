package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Store persists apartments, chat sessions and recommendations. Queries are
// written with ? placeholders and rebound for postgres.
type Store struct {
	db     *sql.DB
	driver string
	logger zerolog.Logger
}

// Open connects to driver/dsn and applies connection settings. It does not
// create the schema; call EnsureSchema for that.
func Open(ctx context.Context, driver, dsn string, logger zerolog.Logger) (*Store, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	s := &Store{db: db, driver: driver, logger: logger.With().Str("component", "storage").Logger()}

	if driver == DriverSQLite {
		// A single writer avoids SQLITE_BUSY under concurrent requests.
		db.SetMaxOpenConns(1)
		for _, pragma := range []string{`PRAGMA journal_mode=WAL;`, `PRAGMA foreign_keys=ON;`} {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("apply %s: %w", pragma, err)
			}
		}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Driver() string { return s.driver }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// rebind rewrites ? placeholders to $n for postgres.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) exec(ctx context.Context, q queryer, query string, args ...any) (sql.Result, error) {
	return q.ExecContext(ctx, s.rebind(query), args...)
}

func (s *Store) query(ctx context.Context, q queryer, query string, args ...any) (*sql.Rows, error) {
	return q.QueryContext(ctx, s.rebind(query), args...)
}

func (s *Store) queryRow(ctx context.Context, q queryer, query string, args ...any) *sql.Row {
	return q.QueryRowContext(ctx, s.rebind(query), args...)
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) autoIncrement() string {
	if s.driver == DriverPostgres {
		return "BIGSERIAL PRIMARY KEY"
	}
	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}

// EnsureSchema creates tables and indexes if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	id := s.autoIncrement()
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS apartments (
  complex_no BIGINT PRIMARY KEY,
  complex_name TEXT NOT NULL,
  dong_name TEXT NOT NULL DEFAULT '',
  sigungu TEXT NOT NULL,
  detail_address TEXT NOT NULL DEFAULT '',
  total_households INTEGER NOT NULL DEFAULT 0,
  latitude DOUBLE PRECISION,
  longitude DOUBLE PRECISION
)`,
		`CREATE TABLE IF NOT EXISTS apartment_prices (
  id ` + id + `,
  complex_no BIGINT NOT NULL REFERENCES apartments(complex_no) ON DELETE CASCADE,
  transaction_type TEXT NOT NULL,
  exclusive_area DOUBLE PRECISION NOT NULL DEFAULT 0,
  pyeong DOUBLE PRECISION NOT NULL DEFAULT 0,
  sale_price DOUBLE PRECISION,
  lease_price DOUBLE PRECISION,
  gap DOUBLE PRECISION,
  lease_rate DOUBLE PRECISION,
  highest_price DOUBLE PRECISION,
  change_from_peak DOUBLE PRECISION
)`,
		`CREATE TABLE IF NOT EXISTS chat_sessions (
  id TEXT PRIMARY KEY,
  profile_json TEXT NOT NULL DEFAULT '{}',
  envelope_json TEXT,
  created_at BIGINT NOT NULL,
  updated_at BIGINT NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS chat_messages (
  id ` + id + `,
  session_id TEXT NOT NULL REFERENCES chat_sessions(id) ON DELETE CASCADE,
  role TEXT NOT NULL,
  content TEXT NOT NULL,
  metadata_json TEXT NOT NULL DEFAULT '{}',
  created_at BIGINT NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS recommendations (
  id ` + id + `,
  session_id TEXT NOT NULL REFERENCES chat_sessions(id) ON DELETE CASCADE,
  complex_no BIGINT NOT NULL,
  price_id BIGINT NOT NULL,
  rank_no INTEGER NOT NULL,
  tier TEXT NOT NULL,
  score DOUBLE PRECISION NOT NULL,
  reasons_json TEXT NOT NULL DEFAULT '[]',
  commute_minutes INTEGER NOT NULL DEFAULT 0,
  created_at BIGINT NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_apartments_sigungu ON apartments(sigungu)`,
		`CREATE INDEX IF NOT EXISTS idx_prices_complex ON apartment_prices(complex_no)`,
		`CREATE INDEX IF NOT EXISTS idx_prices_type_sale ON apartment_prices(transaction_type, sale_price)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session ON chat_messages(session_id, id)`,
		`CREATE INDEX IF NOT EXISTS idx_recommendations_session ON recommendations(session_id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func nowNanos() int64 { return time.Now().UTC().UnixNano() }

func fromNanos(n int64) time.Time { return time.Unix(0, n).UTC() }
