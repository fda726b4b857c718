package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"codeplay/internal/monitor"
	"codeplay/internal/runtime"
	"codeplay/internal/sandbox"
	"codeplay/internal/storage"
)

const (
	msgMissingFields = `Missing "language" or "code" fields.`
	msgTimedOut      = "Execution timed out."
	msgUnavailable   = "Execution service unavailable."
	msgUnreachable   = "Failed to connect to execution engine."
	msgHTMLClient    = "HTML is rendered client-side."
)

// AuditReader serves the execution audit endpoints; *storage.DB satisfies it.
type AuditReader interface {
	GetExecution(ctx context.Context, id string) (*storage.Execution, error)
	ListExecutions(ctx context.Context, filter storage.ExecutionFilter) ([]storage.Execution, error)
}

type Handlers struct {
	backend     sandbox.Backend
	registry    *runtime.Registry
	limits      sandbox.Limits
	audit       AuditReader
	auditWriter *storage.AuditWriter
	metrics     *monitor.Metrics
}

func NewHandlers(backend sandbox.Backend, limits sandbox.Limits, audit AuditReader, auditWriter *storage.AuditWriter, metrics *monitor.Metrics) *Handlers {
	return &Handlers{
		backend:     backend,
		registry:    runtime.NewRegistry(),
		limits:      limits,
		audit:       audit,
		auditWriter: auditWriter,
		metrics:     metrics,
	}
}

func (h *Handlers) HandleExecute(w http.ResponseWriter, r *http.Request) {
	var req ExecutionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, msgMissingFields, "INVALID_REQUEST", http.StatusBadRequest, r)
		return
	}

	lang, hasLang := req.LanguageTag()
	code, ok := req.CodeString()
	if !hasLang || !ok {
		writeError(w, msgMissingFields, "INVALID_REQUEST", http.StatusBadRequest, r)
		return
	}

	rt, err := h.registry.Get(lang)
	if err != nil {
		writeError(w, err.Error(), "UNSUPPORTED_LANGUAGE", http.StatusBadRequest, r)
		return
	}

	if !rt.Executable {
		writeJSON(w, http.StatusOK, sandbox.ExecuteResponse{
			Run: sandbox.RunResult{Output: msgHTMLClient, Code: sandbox.ExitCode(0)},
		})
		return
	}

	payload := sandbox.ExecuteRequest{
		Language: rt.Sandbox,
		Version:  rt.Version,
		Files:    rt.Files(code),
		Stdin:    req.StdinString(),
		Args:     []string{},
	}
	h.limits.Apply(&payload)

	shim := len(payload.Files) > 1
	h.metrics.CodeSizeBytes.Observe(float64(len(code)))
	if shim {
		h.metrics.ShimInjections.Inc()
	}

	h.metrics.ActiveExecutions.Inc()
	defer h.metrics.ActiveExecutions.Dec()

	start := time.Now()
	raw, err := h.backend.ExecuteRaw(r.Context(), payload)
	duration := time.Since(start)

	entry := &storage.Execution{
		RequestID:    RequestIDFromContext(r.Context()),
		Language:     string(rt.Language),
		Version:      rt.Version,
		CodeHash:     storage.HashCode(code),
		ShimInjected: shim,
		DurationMS:   duration.Milliseconds(),
		RequestIP:    r.RemoteAddr,
		CreatedAt:    start,
	}

	if err != nil {
		status, msg, label := upstreamFailure(err)
		h.metrics.RecordExecution(string(rt.Language), label, duration.Seconds())
		h.metrics.RecordError(label)
		log.Error().
			Err(err).
			Str("request_id", entry.RequestID).
			Str("language", entry.Language).
			Int("status", status).
			Msg("sandbox execution failed")

		entry.Status = label
		entry.HTTPStatus = status
		h.logAudit(entry)

		writeError(w, msg, codeFor(label), status, r)
		return
	}

	// The body goes back untouched; the decoded copy only feeds the audit
	// log and metrics.
	var result sandbox.ExecuteResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		log.Warn().Err(err).Str("request_id", entry.RequestID).Msg("sandbox result has an unexpected shape")
	}
	status := runStatus(result.Run)

	h.metrics.RecordExecution(string(rt.Language), status, duration.Seconds())
	h.metrics.OutputSizeBytes.Observe(float64(len(result.Run.Stdout) + len(result.Run.Stderr)))

	entry.Status = status
	entry.HTTPStatus = http.StatusOK
	entry.ExitCode = result.Run.Code
	entry.Stdout = result.Run.Stdout
	entry.Stderr = result.Run.Stderr
	if result.Run.Signal != nil {
		entry.Signal = *result.Run.Signal
	}
	h.logAudit(entry)

	writeRaw(w, http.StatusOK, raw)
}

// runStatus labels a completed run: success, error (non-zero exit) or killed
// (terminated by a signal, e.g. on timeout).
func runStatus(run sandbox.RunResult) string {
	switch {
	case run.Succeeded():
		return "success"
	case run.Signal != nil:
		return "killed"
	default:
		return "error"
	}
}

// upstreamFailure maps a sandbox call error to the HTTP status, client
// message and metrics label it is reported with.
func upstreamFailure(err error) (int, string, string) {
	if sandbox.IsTimeout(err) {
		return http.StatusGatewayTimeout, msgTimedOut, "timeout"
	}
	if ue, ok := sandbox.AsUpstream(err); ok {
		msg := ue.Message
		if msg == "" {
			msg = msgUnavailable
		}
		return ue.Status, msg, "upstream_error"
	}
	return http.StatusBadGateway, msgUnreachable, "unreachable"
}

func codeFor(label string) string {
	switch label {
	case "timeout":
		return "TIMEOUT"
	case "upstream_error":
		return "UPSTREAM_ERROR"
	default:
		return "UNREACHABLE"
	}
}

func (h *Handlers) HandleGetExecution(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, "execution ID required", "INVALID_REQUEST", http.StatusBadRequest, r)
		return
	}

	if h.audit == nil {
		writeError(w, "database not configured", "DB_UNAVAILABLE", http.StatusServiceUnavailable, r)
		return
	}

	exec, err := h.audit.GetExecution(r.Context(), id)
	if err != nil {
		writeError(w, "execution not found", "NOT_FOUND", http.StatusNotFound, r)
		return
	}

	writeJSON(w, http.StatusOK, exec)
}

func (h *Handlers) HandleListExecutions(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		writeError(w, "database not configured", "DB_UNAVAILABLE", http.StatusServiceUnavailable, r)
		return
	}

	q := r.URL.Query()
	filter := storage.ExecutionFilter{
		Language: q.Get("language"),
		Status:   q.Get("status"),
		Limit:    100,
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil {
		filter.Limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v >= 0 {
		filter.Offset = v
	}

	execs, err := h.audit.ListExecutions(r.Context(), filter)
	if err != nil {
		log.Error().Err(err).Str("request_id", RequestIDFromContext(r.Context())).Msg("listing executions failed")
		writeError(w, "query failed", "INTERNAL", http.StatusInternalServerError, r)
		return
	}
	if execs == nil {
		execs = []storage.Execution{}
	}

	writeJSON(w, http.StatusOK, execs)
}

func (h *Handlers) logAudit(entry *storage.Execution) {
	if h.auditWriter == nil {
		return
	}
	completedAt := time.Now()
	entry.CompletedAt = &completedAt
	h.auditWriter.Log(entry)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}

func writeError(w http.ResponseWriter, msg, code string, status int, r *http.Request) {
	resp := ErrorResponse{
		Error:     msg,
		Code:      code,
		RequestID: RequestIDFromContext(r.Context()),
	}
	writeJSON(w, status, resp)
}
