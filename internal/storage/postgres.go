package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

const schema = `
CREATE TABLE IF NOT EXISTS executions (
	id            TEXT PRIMARY KEY,
	request_id    TEXT NOT NULL DEFAULT '',
	language      TEXT NOT NULL,
	version       TEXT NOT NULL DEFAULT '',
	code_hash     TEXT NOT NULL,
	shim_injected BOOLEAN NOT NULL DEFAULT FALSE,
	exit_code     INTEGER,
	signal        TEXT NOT NULL DEFAULT '',
	stdout        TEXT NOT NULL DEFAULT '',
	stderr        TEXT NOT NULL DEFAULT '',
	duration_ms   BIGINT NOT NULL DEFAULT 0,
	status        TEXT NOT NULL,
	http_status   INTEGER NOT NULL DEFAULT 0,
	request_ip    TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL,
	completed_at  TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_executions_created ON executions (created_at DESC);
CREATE INDEX IF NOT EXISTS idx_executions_language ON executions (language);
ALTER TABLE executions ALTER COLUMN exit_code DROP NOT NULL;
ALTER TABLE executions ALTER COLUMN exit_code DROP DEFAULT;
`

// DB wraps a PostgreSQL connection pool for audit logging.
type DB struct {
	pool *pgxpool.Pool
}

// New creates a new database connection pool and ensures the schema exists.
func New(ctx context.Context, dsn string) (*DB, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing database DSN: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	log.Info().Msg("connected to PostgreSQL")
	return &DB{pool: pool}, nil
}

// Close shuts down the connection pool.
func (db *DB) Close() {
	db.pool.Close()
}

// Healthy checks database connectivity.
func (db *DB) Healthy(ctx context.Context) bool {
	return db.pool.Ping(ctx) == nil
}

// LogExecution inserts an execution record into the audit log.
func (db *DB) LogExecution(ctx context.Context, exec *Execution) error {
	if exec.ID == "" {
		exec.ID = uuid.New().String()
	}

	query := `
		INSERT INTO executions (id, request_id, language, version, code_hash, shim_injected,
			exit_code, signal, stdout, stderr, duration_ms, status, http_status,
			request_ip, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err := db.pool.Exec(ctx, query,
		exec.ID, exec.RequestID, exec.Language, exec.Version, exec.CodeHash, exec.ShimInjected,
		exec.ExitCode, exec.Signal,
		truncateForDB(exec.Stdout, 65535),
		truncateForDB(exec.Stderr, 65535),
		exec.DurationMS, exec.Status, exec.HTTPStatus,
		exec.RequestIP, exec.CreatedAt, exec.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting execution: %w", err)
	}
	return nil
}

// GetExecution retrieves a single execution by ID.
func (db *DB) GetExecution(ctx context.Context, id string) (*Execution, error) {
	query := `
		SELECT id, request_id, language, version, code_hash, shim_injected,
			exit_code, signal, stdout, stderr, duration_ms, status, http_status,
			request_ip, created_at, completed_at
		FROM executions WHERE id = $1`

	var exec Execution
	err := db.pool.QueryRow(ctx, query, id).Scan(
		&exec.ID, &exec.RequestID, &exec.Language, &exec.Version, &exec.CodeHash, &exec.ShimInjected,
		&exec.ExitCode, &exec.Signal, &exec.Stdout, &exec.Stderr,
		&exec.DurationMS, &exec.Status, &exec.HTTPStatus,
		&exec.RequestIP, &exec.CreatedAt, &exec.CompletedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("querying execution %s: %w", id, err)
	}
	return &exec, nil
}

// ListExecutions queries executions with optional filters.
func (db *DB) ListExecutions(ctx context.Context, filter ExecutionFilter) ([]Execution, error) {
	query := `
		SELECT id, language, version, code_hash, exit_code, duration_ms,
			status, http_status, created_at, completed_at
		FROM executions
		WHERE ($1 = '' OR language = $1)
		  AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`

	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	rows, err := db.pool.Query(ctx, query,
		filter.Language, filter.Status, limit, filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("querying executions: %w", err)
	}
	defer rows.Close()

	var results []Execution
	for rows.Next() {
		var exec Execution
		if err := rows.Scan(
			&exec.ID, &exec.Language, &exec.Version, &exec.CodeHash, &exec.ExitCode,
			&exec.DurationMS, &exec.Status, &exec.HTTPStatus,
			&exec.CreatedAt, &exec.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning execution row: %w", err)
		}
		results = append(results, exec)
	}

	return results, rows.Err()
}

func truncateForDB(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
