// Package sqlite implements storage.SettingsStore on a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"codeplay/internal/storage"

	_ "modernc.org/sqlite"
)

// Store implements storage.SettingsStore backed by a SQLite database.
type Store struct {
	db *sql.DB
}

var _ storage.SettingsStore = (*Store)(nil)

// Open creates or opens a SQLite database at the given path and runs migrations.
// Use ":memory:" for an in-memory database.
func Open(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("reading setting %s: %w", key, err)
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, datetime('now'))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("writing setting %s: %w", key, err)
	}
	return nil
}

func (s *Store) AppendStat(ctx context.Context, stat storage.ExecutionStat) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO execution_stats (ran_at, duration_ms, language, status) VALUES (?, ?, ?, ?)`,
		stat.Timestamp.UTC().Format(time.RFC3339Nano), stat.DurationMS, stat.Language, stat.Status,
	)
	if err != nil {
		return fmt.Errorf("inserting stat: %w", err)
	}
	return nil
}

func (s *Store) ListStats(ctx context.Context, limit int) ([]storage.ExecutionStat, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT ran_at, duration_ms, language, status FROM (
			SELECT id, ran_at, duration_ms, language, status
			FROM execution_stats ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying stats: %w", err)
	}
	defer rows.Close()

	var stats []storage.ExecutionStat
	for rows.Next() {
		var (
			st    storage.ExecutionStat
			ranAt string
		)
		if err := rows.Scan(&ranAt, &st.DurationMS, &st.Language, &st.Status); err != nil {
			return nil, fmt.Errorf("scanning stat: %w", err)
		}
		st.Timestamp, _ = time.Parse(time.RFC3339Nano, ranAt)
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
