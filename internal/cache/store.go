package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/yuki-osaki/marketscan/internal/model"
)

// DefaultTTL is the default response lifetime: one day. Marketplace
// listings change slowly enough that a day-old page is still useful for
// extraction, and re-running a crawl within that window costs nothing.
const DefaultTTL = 24 * time.Hour

// dbFileName is the cache database file created inside the cache directory.
const dbFileName = "marketscan-cache.db"

// Store is the SQLite-backed response cache.
//
// Design decision: We persist the cache in SQLite rather than holding it
// in memory because the whole point is surviving process restarts — a
// re-run after a crash or a selector fix should not re-download pages
// fetched minutes ago.
type Store struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// ttl is the entry lifetime; entries at or past it are misses.
	ttl time.Duration

	// now returns the current time. Injectable for expiry tests.
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source. Used by tests to control expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Open opens or creates the cache database in dir. A non-positive ttl
// falls back to DefaultTTL.
func Open(dir string, ttl time.Duration, opts ...Option) (*Store, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFileName)
	db, err := sql.Open("sqlite", dbPath+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	// SQLite supports one writer; a single connection avoids lock
	// contention between the orchestrator's Get and Put calls.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &Store{
		db:  db,
		ttl: ttl,
		now: time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	if err := s.createTable(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create cache schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// createTable creates the cache schema if it doesn't exist.
func (s *Store) createTable() error {
	schema := `
	CREATE TABLE IF NOT EXISTS responses (
		key TEXT PRIMARY KEY,
		final_url TEXT NOT NULL,
		status_code INTEGER NOT NULL,
		content_type TEXT,
		body BLOB,
		fetched_at INTEGER NOT NULL,
		stored_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_responses_stored_at ON responses(stored_at);
	`

	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

// Get returns the cached page for a GET of rawURL, or ok=false on a miss.
// An entry whose age has reached the TTL is treated as absent and removed
// so the following Put can overwrite it cleanly.
func (s *Store) Get(ctx context.Context, rawURL string) (*model.FetchedPage, bool, error) {
	key := Key(http.MethodGet, rawURL)

	query := `
	SELECT final_url, status_code, content_type, body, fetched_at, stored_at
	FROM responses
	WHERE key = ?
	`

	var page model.FetchedPage
	var fetchedAt, storedAt int64

	err := s.db.QueryRowContext(ctx, query, key).Scan(
		&page.URL,
		&page.StatusCode,
		&page.ContentType,
		&page.Body,
		&fetchedAt,
		&storedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	if s.now().Unix()-storedAt >= int64(s.ttl.Seconds()) {
		// Expired: treat as a miss and free the slot.
		if _, err := s.db.ExecContext(ctx, "DELETE FROM responses WHERE key = ?", key); err != nil {
			return nil, false, fmt.Errorf("failed to evict expired entry: %w", err)
		}
		return nil, false, nil
	}

	page.FetchedAt = time.Unix(fetchedAt, 0).UTC()
	return &page, true, nil
}

// Put stores the page under the GET key for rawURL, overwriting any
// previous entry.
func (s *Store) Put(ctx context.Context, rawURL string, page *model.FetchedPage) error {
	key := Key(http.MethodGet, rawURL)

	query := `
	INSERT INTO responses (key, final_url, status_code, content_type, body, fetched_at, stored_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET
		final_url = excluded.final_url,
		status_code = excluded.status_code,
		content_type = excluded.content_type,
		body = excluded.body,
		fetched_at = excluded.fetched_at,
		stored_at = excluded.stored_at
	`

	_, err := s.db.ExecContext(ctx, query,
		key,
		page.URL,
		page.StatusCode,
		page.ContentType,
		page.Body,
		page.FetchedAt.Unix(),
		s.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}
	return nil
}

// Purge deletes all expired entries and returns how many were removed.
func (s *Store) Purge(ctx context.Context) (int64, error) {
	cutoff := s.now().Unix() - int64(s.ttl.Seconds())
	res, err := s.db.ExecContext(ctx, "DELETE FROM responses WHERE stored_at <= ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge cache: %w", err)
	}
	return res.RowsAffected()
}
