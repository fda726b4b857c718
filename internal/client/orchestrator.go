// Package client turns a (language, code, stdin) triple into exactly one
// execution result, going through the proxy first and the public sandbox
// second.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"codeplay/internal/runtime"
	"codeplay/internal/sandbox"
)

const (
	DefaultPrimaryURL  = "http://localhost:3000/api/execute"
	DefaultFallbackURL = "https://emkc.org/api/v2/piston"

	fallbackRunTimeout     = 5000
	fallbackCompileTimeout = 10000

	unavailableMessage = "Execution service unavailable. Try again later."
)

// Outcome tags which path produced a Result.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"   // primary answered
	OutcomeRecovered Outcome = "recovered" // fallback answered
	OutcomeFailed    Outcome = "failed"    // synthesized failure
	OutcomePreview   Outcome = "preview"   // html, nothing executed
)

// Request is one run.
type Request struct {
	Language runtime.Language `json:"language"`
	Code     string           `json:"code"`
	Stdin    string           `json:"stdin"`
}

// Attempt records one call made while serving a Request.
type Attempt struct {
	Step     string
	Class    FailureClass
	Err      error
	Duration time.Duration
}

// Result is the canonical execution result plus how it was obtained.
type Result struct {
	sandbox.ExecuteResponse
	Outcome  Outcome
	Attempts []Attempt
}

// Executor runs a sandbox-shaped payload; *sandbox.Client satisfies it.
type Executor interface {
	Execute(ctx context.Context, req sandbox.ExecuteRequest) (*sandbox.ExecuteResponse, error)
}

// Orchestrator implements the primary/fallback execution pipeline.
type Orchestrator struct {
	primaryURL string
	http       *http.Client
	fallback   Executor
	registry   *runtime.Registry
	apiKey     string
}

type Option func(*Orchestrator)

// WithHTTPClient sets the client used for the primary call.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *Orchestrator) { o.http = hc }
}

// WithAPIKey sends key in X-API-Key on primary calls.
func WithAPIKey(key string) Option {
	return func(o *Orchestrator) { o.apiKey = key }
}

// WithRegistry replaces the default runtime table.
func WithRegistry(r *runtime.Registry) Option {
	return func(o *Orchestrator) { o.registry = r }
}

// New creates an Orchestrator posting to primaryURL and falling back to
// fallback. A nil fallback disables the second step.
func New(primaryURL string, fallback Executor, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		primaryURL: primaryURL,
		http:       &http.Client{Timeout: 30 * time.Second},
		fallback:   fallback,
		registry:   runtime.NewRegistry(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type step struct {
	name string
	run  func(ctx context.Context, req Request) (*sandbox.ExecuteResponse, error)
}

// Execute always returns a Result; failures are folded into the canonical
// shape with exit code 1 and signal "ERROR".
func (o *Orchestrator) Execute(ctx context.Context, req Request) Result {
	if req.Language == runtime.HTML {
		return Result{ExecuteResponse: htmlPreview(), Outcome: OutcomePreview}
	}

	steps := []step{{name: "primary", run: o.executePrimary}}
	if o.fallback != nil {
		steps = append(steps, step{name: "fallback", run: o.executeFallback})
	}

	var res Result
	for i, s := range steps {
		start := time.Now()
		resp, err := s.run(ctx, req)
		attempt := Attempt{Step: s.name, Err: err, Duration: time.Since(start)}

		if err == nil {
			res.Attempts = append(res.Attempts, attempt)
			res.ExecuteResponse = *resp
			res.Outcome = OutcomeSuccess
			if i > 0 {
				res.Outcome = OutcomeRecovered
			}
			return res
		}

		attempt.Class = Classify(err)
		res.Attempts = append(res.Attempts, attempt)

		if i > 0 {
			log.Error().Err(err).Str("step", s.name).Msg("fallback execution failed")
			break
		}
		if attempt.Class != ClassNetwork {
			break
		}
		if i+1 < len(steps) {
			log.Warn().Err(err).Str("step", s.name).Msg("execution service failed, attempting fallback")
		}
	}

	res.ExecuteResponse = failure(failureMessage(res.Attempts[0].Err))
	res.Outcome = OutcomeFailed
	return res
}

func (o *Orchestrator) executePrimary(ctx context.Context, req Request) (*sandbox.ExecuteResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.primaryURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if o.apiKey != "" {
		httpReq.Header.Set("X-API-Key", o.apiKey)
	}

	resp, err := o.http.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Status: resp.StatusCode, Message: gjson.GetBytes(data, "error").String()}
	}

	var out sandbox.ExecuteResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &out, nil
}

func (o *Orchestrator) executeFallback(ctx context.Context, req Request) (*sandbox.ExecuteResponse, error) {
	rt, err := o.registry.Get(string(req.Language))
	if err != nil {
		return nil, err
	}

	payload := sandbox.ExecuteRequest{
		Language:       rt.Sandbox,
		Version:        rt.Version,
		Files:          rt.EntryFile(req.Code),
		Stdin:          req.Stdin,
		Args:           []string{},
		RunTimeout:     fallbackRunTimeout,
		CompileTimeout: fallbackCompileTimeout,
	}
	return o.fallback.Execute(ctx, payload)
}

func htmlPreview() sandbox.ExecuteResponse {
	return sandbox.ExecuteResponse{
		Run: sandbox.RunResult{
			Stdout: "Rendering HTML Preview...",
			Output: "HTML Preview Active",
			Code:   sandbox.ExitCode(0),
		},
	}
}

func failure(msg string) sandbox.ExecuteResponse {
	return sandbox.ExecuteResponse{
		Run: sandbox.RunResult{
			Stderr: "System Error: " + msg,
			Code:   sandbox.ExitCode(1),
			Signal: sandbox.Signal("ERROR"),
		},
		Message: msg,
	}
}

// failureMessage prefers the proxy's own error text, then the error itself.
func failureMessage(err error) string {
	var se *StatusError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return unavailableMessage
}
