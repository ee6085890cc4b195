package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// EnsureSchema creates the products table and its indexes when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS products (
		id BIGSERIAL PRIMARY KEY,
		sku TEXT UNIQUE NOT NULL,
		product_name TEXT NOT NULL DEFAULT '',
		category_path TEXT NOT NULL DEFAULT '',
		size_cm TEXT NOT NULL DEFAULT '',
		parts_count INTEGER NOT NULL DEFAULT 0,
		color TEXT NOT NULL DEFAULT '',
		material TEXT NOT NULL DEFAULT '',
		thickness TEXT NOT NULL DEFAULT '',
		price NUMERIC NOT NULL DEFAULT 0,
		main_image_filename TEXT NOT NULL DEFAULT '',
		extra_image_filenames JSONB NOT NULL DEFAULT '[]',
		description_filename TEXT NOT NULL DEFAULT '',
		has_image BOOLEAN NOT NULL DEFAULT FALSE,
		has_description BOOLEAN NOT NULL DEFAULT FALSE,
		is_uploaded BOOLEAN NOT NULL DEFAULT FALSE,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		last_checked_at TIMESTAMPTZ,
		last_modified_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_products_sku ON products(sku);
	CREATE INDEX IF NOT EXISTS idx_products_category ON products(category_path);
	CREATE INDEX IF NOT EXISTS idx_products_active ON products(is_active);
	CREATE INDEX IF NOT EXISTS idx_products_uploaded ON products(is_uploaded);`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}
