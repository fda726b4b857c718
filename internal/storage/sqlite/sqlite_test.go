package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"codeplay/internal/storage"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("opening memory db: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetMissingKey(t *testing.T) {
	s := testStore(t)
	_, err := s.Get(context.Background(), storage.KeyTheme)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSetOverwrites(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, storage.KeyTheme, "dark"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(ctx, storage.KeyTheme, "light"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := s.Get(ctx, storage.KeyTheme)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "light" {
		t.Errorf("theme = %q, want light", got)
	}
}

func TestListStatsNewestWindowOldestFirst(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		st := storage.ExecutionStat{
			Timestamp:  base.Add(time.Duration(i) * time.Second),
			DurationMS: int64(100 * (i + 1)),
			Language:   "Python",
			Status:     storage.StatSuccess,
		}
		if err := s.AppendStat(ctx, st); err != nil {
			t.Fatalf("AppendStat: %v", err)
		}
	}

	stats, err := s.ListStats(ctx, 3)
	if err != nil {
		t.Fatalf("ListStats: %v", err)
	}
	if len(stats) != 3 {
		t.Fatalf("len = %d, want 3", len(stats))
	}
	if stats[0].DurationMS != 300 || stats[2].DurationMS != 500 {
		t.Errorf("durations = %d..%d, want 300..500", stats[0].DurationMS, stats[2].DurationMS)
	}
	if !stats[2].Timestamp.Equal(base.Add(4 * time.Second)) {
		t.Errorf("timestamp = %s", stats[2].Timestamp)
	}
}

func TestAppendStatRejectsUnknownStatus(t *testing.T) {
	s := testStore(t)
	err := s.AppendStat(context.Background(), storage.ExecutionStat{Timestamp: time.Now(), Language: "Go", Status: "maybe"})
	if err == nil {
		t.Error("expected CHECK constraint failure")
	}
}

func TestReopenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.db")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Set(ctx, storage.KeyLastSession, `{"language":"go","code":"package main"}`); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	got, err := s.Get(ctx, storage.KeyLastSession)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != `{"language":"go","code":"package main"}` {
		t.Errorf("last session = %q", got)
	}
}
