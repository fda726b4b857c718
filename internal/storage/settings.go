package storage

import (
	"context"
	"errors"
	"time"
)

// Settings keys shared by every client of a SettingsStore.
const (
	KeyLastSession = "cp_last_session"
	KeyTheme       = "cp_theme"
)

// ErrNotFound is returned when a settings key has never been written.
var ErrNotFound = errors.New("setting not found")

// Status values for ExecutionStat.
const (
	StatSuccess = "success"
	StatError   = "error"
)

// ExecutionStat is one run as seen by the editor.
type ExecutionStat struct {
	Timestamp  time.Time `json:"timestamp"`
	DurationMS int64     `json:"duration"`
	Language   string    `json:"language"` // display name
	Status     string    `json:"status"`
}

// SettingsStore persists client-side editor state.
type SettingsStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	AppendStat(ctx context.Context, stat ExecutionStat) error
	// ListStats returns the most recent stats, oldest first.
	ListStats(ctx context.Context, limit int) ([]ExecutionStat, error)
	Close() error
}
