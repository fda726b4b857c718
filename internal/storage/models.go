package storage

import "time"

// Execution is one audited run forwarded to the sandbox.
type Execution struct {
	ID           string     `json:"id" db:"id"`
	RequestID    string     `json:"request_id" db:"request_id"`
	Language     string     `json:"language" db:"language"`
	Version      string     `json:"version" db:"version"`
	CodeHash     string     `json:"code_hash" db:"code_hash"`
	ShimInjected bool       `json:"shim_injected" db:"shim_injected"`
	ExitCode     *int       `json:"exit_code" db:"exit_code"` // null when the run was killed
	Signal       string     `json:"signal,omitempty" db:"signal"`
	Stdout       string     `json:"stdout" db:"stdout"`
	Stderr       string     `json:"stderr" db:"stderr"`
	DurationMS   int64      `json:"duration_ms" db:"duration_ms"`
	Status       string     `json:"status" db:"status"` // success, error, killed, timeout, upstream_error, unreachable
	HTTPStatus   int        `json:"http_status" db:"http_status"`
	RequestIP    string     `json:"request_ip" db:"request_ip"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// ExecutionFilter provides criteria for querying executions.
type ExecutionFilter struct {
	Language string
	Status   string
	Limit    int
	Offset   int
}
