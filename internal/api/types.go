package api

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// ExecutionRequest is the body of POST /api/execute. Fields stay raw so a
// missing or non-string value can be told apart from an empty string.
type ExecutionRequest struct {
	Language json.RawMessage `json:"language"`
	Code     json.RawMessage `json:"code"`
	Stdin    json.RawMessage `json:"stdin,omitempty"`
}

// LanguageTag returns the language as text. Absent, null, empty, false and
// zero count as missing; any other non-string value is returned as its JSON
// text so it can be reported as unsupported.
func (r ExecutionRequest) LanguageTag() (string, bool) {
	raw := bytes.TrimSpace(r.Language)
	if s, ok := rawString(raw); ok {
		return s, s != ""
	}
	switch string(raw) {
	case "", "null", "false":
		return "", false
	}
	if f, err := strconv.ParseFloat(string(raw), 64); err == nil && f == 0 {
		return "", false
	}
	return string(raw), true
}

// CodeString returns the code when it was sent as a JSON string.
func (r ExecutionRequest) CodeString() (string, bool) {
	return rawString(r.Code)
}

// StdinString returns stdin, or "" when absent or not a string.
func (r ExecutionRequest) StdinString() string {
	s, _ := rawString(r.Stdin)
	return s
}

func rawString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// ErrorResponse is returned for API errors.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime"`
	Database  *bool     `json:"database,omitempty"`
}
