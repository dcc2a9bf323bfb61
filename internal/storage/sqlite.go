package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"torznab_monitor/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// MarkSeen records that an item has been processed for an endpoint.
// Recording an already-seen item is a no-op.
func (s *SQLite) MarkSeen(ctx context.Context, endpoint, guid string) error {
	now := time.Now().UTC().Format(timeLayout)
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO seen_items (endpoint, guid, seen_at) VALUES (?, ?, ?)`,
		endpoint, guid, now,
	)
	if err != nil {
		return fmt.Errorf("mark seen: %w", err)
	}
	return nil
}

// IsSeen checks whether an item has already been processed for an endpoint.
func (s *SQLite) IsSeen(ctx context.Context, endpoint, guid string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM seen_items WHERE endpoint = ? AND guid = ?`,
		endpoint, guid,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check seen: %w", err)
	}
	return count > 0, nil
}

// PruneSeen drops all but the newest keep records for an endpoint.
// Insertion order stands in for recency since records are never updated.
func (s *SQLite) PruneSeen(ctx context.Context, endpoint string, keep int) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM seen_items
		 WHERE endpoint = ? AND rowid NOT IN (
		     SELECT rowid FROM seen_items WHERE endpoint = ?
		     ORDER BY rowid DESC LIMIT ?)`,
		endpoint, endpoint, keep,
	)
	if err != nil {
		return fmt.Errorf("prune seen: %w", err)
	}
	return nil
}
