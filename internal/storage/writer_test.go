package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeLogger struct {
	mu       sync.Mutex
	failures int
	calls    int
	written  []*Execution
}

func (f *fakeLogger) LogExecution(_ context.Context, exec *Execution) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures > 0 {
		f.failures--
		return errors.New("connection reset")
	}
	f.written = append(f.written, exec)
	return nil
}

func TestAuditWriter_FlushDrains(t *testing.T) {
	db := &fakeLogger{}
	w := NewAuditWriter(db, 16)
	w.Start()

	for i := 0; i < 5; i++ {
		w.Log(&Execution{ID: string(rune('a' + i)), Language: "python"})
	}
	w.Flush(2 * time.Second)

	db.mu.Lock()
	defer db.mu.Unlock()
	if len(db.written) != 5 {
		t.Errorf("written = %d, want 5", len(db.written))
	}
}

func TestAuditWriter_RetriesTransientFailures(t *testing.T) {
	db := &fakeLogger{failures: 2}
	w := NewAuditWriter(db, 4)
	w.backoff = time.Millisecond
	w.Start()

	w.Log(&Execution{ID: "x", Language: "go"})
	w.Flush(2 * time.Second)

	db.mu.Lock()
	defer db.mu.Unlock()
	if db.calls != 3 {
		t.Errorf("calls = %d, want 3", db.calls)
	}
	if len(db.written) != 1 {
		t.Errorf("written = %d, want 1", len(db.written))
	}
}

func TestAuditWriter_DropsWhenFull(t *testing.T) {
	w := NewAuditWriter(&fakeLogger{}, 1)
	// not started: the buffer never drains
	w.Log(&Execution{ID: "1"})
	w.Log(&Execution{ID: "2"})
	w.Log(&Execution{ID: "3"})

	if got := w.Dropped(); got != 2 {
		t.Errorf("Dropped() = %d, want 2", got)
	}
}

func TestHashCode(t *testing.T) {
	a := HashCode("print(1)")
	if len(a) != 64 {
		t.Fatalf("len = %d, want 64", len(a))
	}
	if a != HashCode("print(1)") {
		t.Error("hash not stable")
	}
	if a == HashCode("print(2)") {
		t.Error("different code hashed equal")
	}
}
