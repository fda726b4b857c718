package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// ExecutionLogger persists one audit record; *DB satisfies it.
type ExecutionLogger interface {
	LogExecution(ctx context.Context, exec *Execution) error
}

var _ ExecutionLogger = (*DB)(nil)

// AuditWriter buffers audit records and writes them off the request path.
type AuditWriter struct {
	db      ExecutionLogger
	ch      chan *Execution
	wg      sync.WaitGroup
	done    chan struct{}
	dropped atomic.Int64
	backoff time.Duration
}

func NewAuditWriter(db ExecutionLogger, bufferSize int) *AuditWriter {
	if bufferSize < 1 {
		bufferSize = 10000
	}
	return &AuditWriter{
		db:      db,
		ch:      make(chan *Execution, bufferSize),
		done:    make(chan struct{}),
		backoff: 100 * time.Millisecond,
	}
}

func (w *AuditWriter) Start() {
	w.wg.Add(1)
	go w.processLoop()
}

// Log enqueues exec without blocking; entries are dropped when the buffer is full.
func (w *AuditWriter) Log(exec *Execution) {
	select {
	case w.ch <- exec:
	default:
		w.dropped.Add(1)
		log.Warn().Str("exec_id", exec.ID).Str("language", exec.Language).Msg("audit buffer full, dropping log entry")
	}
}

// Dropped reports how many entries were discarded because the buffer was full.
func (w *AuditWriter) Dropped() int64 {
	return w.dropped.Load()
}

func (w *AuditWriter) Flush(timeout time.Duration) {
	close(w.done)

	doneCh := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(doneCh)
	}()

	select {
	case <-doneCh:
		log.Info().Msg("audit writer flushed")
	case <-time.After(timeout):
		log.Warn().Msg("audit writer flush timed out")
	}
}

func (w *AuditWriter) processLoop() {
	defer w.wg.Done()

	for {
		select {
		case exec := <-w.ch:
			w.writeWithRetry(exec)
		case <-w.done:
			// Drain remaining entries
			for {
				select {
				case exec := <-w.ch:
					w.writeWithRetry(exec)
				default:
					return
				}
			}
		}
	}
}

func (w *AuditWriter) writeWithRetry(exec *Execution) {
	const maxRetries = 3

	for attempt := 0; attempt <= maxRetries; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := w.db.LogExecution(ctx, exec)
		cancel()

		if err == nil {
			return
		}

		if attempt < maxRetries {
			backoff := time.Duration(math.Pow(2, float64(attempt))) * w.backoff
			log.Warn().
				Err(err).
				Str("exec_id", exec.ID).
				Int("attempt", attempt+1).
				Dur("backoff", backoff).
				Msg("audit write failed, retrying")
			time.Sleep(backoff)
		} else {
			log.Error().
				Err(err).
				Str("exec_id", exec.ID).
				Msg("audit write failed permanently after retries")
		}
	}
}

// HashCode returns the hex SHA-256 of source code; audit rows never store code.
func HashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
