package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/yuki-osaki/marketscan/internal/model"
)

// SQLiteSink stores product records in a SQLite database, one row per
// item. Re-crawling an item updates its row in place, so the table
// always holds the latest extraction per identifier.
type SQLiteSink struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteSink opens or creates the database at path, creating parent
// directories as needed.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &SQLiteSink{db: db, dbPath: path}

	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return s, nil
}

// createTables creates the schema if it doesn't exist.
func (s *SQLiteSink) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS products (
		item_id TEXT PRIMARY KEY,
		title TEXT,
		price TEXT,
		rating TEXT,
		review_count TEXT,
		features TEXT,
		description TEXT,
		images TEXT,
		source_url TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_products_updated ON products(updated_at);
	`

	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

// Accept inserts or updates the record's row.
//
// Design decision: The primary key is the marketplace item identifier
// rather than the URL because: 1. The same item is reachable through many
// URL variants 2. Re-crawls should refresh the item, not duplicate it
// 3. Identifier lookups are what downstream consumers do.
// Records without an identifier fall back to their source URL as the key.
func (s *SQLiteSink) Accept(ctx context.Context, record *model.ProductRecord) error {
	featuresJSON, err := json.Marshal(record.Features)
	if err != nil {
		return fmt.Errorf("failed to serialize features: %w", err)
	}
	imagesJSON, err := json.Marshal(record.Images)
	if err != nil {
		return fmt.Errorf("failed to serialize images: %w", err)
	}

	key := record.ID
	if key == "" {
		key = record.SourceURL
	}

	query := `
	INSERT INTO products (item_id, title, price, rating, review_count, features, description, images, source_url)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(item_id) DO UPDATE SET
		title = excluded.title,
		price = excluded.price,
		rating = excluded.rating,
		review_count = excluded.review_count,
		features = excluded.features,
		description = excluded.description,
		images = excluded.images,
		source_url = excluded.source_url,
		updated_at = CURRENT_TIMESTAMP
	`

	if _, err := s.db.ExecContext(ctx, query,
		key,
		record.Title,
		record.Price,
		record.Rating,
		record.ReviewCount,
		string(featuresJSON),
		record.Description,
		string(imagesJSON),
		record.SourceURL,
	); err != nil {
		return fmt.Errorf("failed to store record: %w", err)
	}

	return nil
}

// Count returns the number of stored products.
func (s *SQLiteSink) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return count, nil
}

// Get retrieves a stored record by item identifier. Returns nil without
// error when the item is unknown.
func (s *SQLiteSink) Get(ctx context.Context, itemID string) (*model.ProductRecord, error) {
	query := `
	SELECT item_id, title, price, rating, review_count, features, description, images, source_url
	FROM products
	WHERE item_id = ?
	`

	var rec model.ProductRecord
	var featuresJSON, imagesJSON string

	err := s.db.QueryRowContext(ctx, query, itemID).Scan(
		&rec.ID,
		&rec.Title,
		&rec.Price,
		&rec.Rating,
		&rec.ReviewCount,
		&featuresJSON,
		&rec.Description,
		&imagesJSON,
		&rec.SourceURL,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	if featuresJSON != "" {
		if err := json.Unmarshal([]byte(featuresJSON), &rec.Features); err != nil {
			return nil, fmt.Errorf("failed to parse features: %w", err)
		}
	}
	if imagesJSON != "" {
		if err := json.Unmarshal([]byte(imagesJSON), &rec.Images); err != nil {
			return nil, fmt.Errorf("failed to parse images: %w", err)
		}
	}

	return &rec, nil
}

// List returns stored records ordered by most recent update. A
// non-positive limit returns everything.
func (s *SQLiteSink) List(ctx context.Context, limit int) ([]*model.ProductRecord, error) {
	query := `
	SELECT item_id, title, price, rating, review_count, features, description, images, source_url
	FROM products
	ORDER BY updated_at DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var records []*model.ProductRecord
	for rows.Next() {
		var rec model.ProductRecord
		var featuresJSON, imagesJSON string
		if err := rows.Scan(
			&rec.ID,
			&rec.Title,
			&rec.Price,
			&rec.Rating,
			&rec.ReviewCount,
			&featuresJSON,
			&rec.Description,
			&imagesJSON,
			&rec.SourceURL,
		); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		if featuresJSON != "" {
			if err := json.Unmarshal([]byte(featuresJSON), &rec.Features); err != nil {
				return nil, fmt.Errorf("failed to parse features: %w", err)
			}
		}
		if imagesJSON != "" {
			if err := json.Unmarshal([]byte(imagesJSON), &rec.Images); err != nil {
				return nil, fmt.Errorf("failed to parse images: %w", err)
			}
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}

	return records, nil
}

// Close closes the database connection.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
