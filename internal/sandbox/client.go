package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"codeplay/internal/monitor"
)

// maxResponseBody bounds how much of a sandbox answer is read.
const maxResponseBody = 8 << 20

const msgInvalidBody = "Execution engine returned an invalid response."

// Client talks to a Piston-compatible sandbox API. baseURL is the API root,
// e.g. "http://piston:2000/api/v2" or "https://emkc.org/api/v2/piston".
type Client struct {
	baseURL string
	http    *http.Client
	tracer  *monitor.Tracer
}

type ClientOption func(*Client)

// WithTracer records a span per sandbox call.
func WithTracer(t *monitor.Tracer) ClientOption {
	return func(c *Client) { c.tracer = t }
}

// WithHTTPClient replaces the pooled HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// NewClient creates a client over a keep-alive connection pool. timeout
// bounds each whole call including reading the response.
func NewClient(baseURL string, timeout time.Duration, opts ...ClientOption) *Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     30 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Transport: transport, Timeout: timeout},
		tracer:  monitor.NewTracer(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Transport returns the client's round tripper so other forwarders can share
// its connection pool.
func (c *Client) Transport() http.RoundTripper {
	if c.http.Transport == nil {
		return http.DefaultTransport
	}
	return c.http.Transport
}

// Execute runs a payload and returns the sandbox's result.
func (c *Client) Execute(ctx context.Context, req ExecuteRequest) (*ExecuteResponse, error) {
	raw, err := c.ExecuteRaw(ctx, req)
	if err != nil {
		return nil, err
	}
	var resp ExecuteResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &CallError{Op: "execute", Err: fmt.Errorf("decoding response: %w", err)}
	}
	return &resp, nil
}

// ExecuteRaw runs a payload and returns the sandbox's answer byte for byte.
// A 2xx body that is not JSON is reported as a 502 UpstreamError.
func (c *Client) ExecuteRaw(ctx context.Context, req ExecuteRequest) (json.RawMessage, error) {
	ctx, span := c.tracer.StartSpan(ctx, "execute",
		monitor.AttrLanguage.String(req.Language),
		monitor.AttrVersion.String(req.Version),
		attribute.Int("sandbox.files", len(req.Files)),
	)
	defer span.End()

	if req.Args == nil {
		req.Args = []string{}
	}

	data, err := c.roundTrip(ctx, http.MethodPost, "/execute", req)
	if err == nil && !gjson.ValidBytes(data) {
		err = &UpstreamError{Status: http.StatusBadGateway, Message: msgInvalidBody}
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, &CallError{Op: "execute", Err: err}
	}

	if code := gjson.GetBytes(data, "run.code"); code.Type == gjson.Number {
		span.SetAttributes(monitor.AttrExitCode.Int(int(code.Int())))
	}
	if sig := gjson.GetBytes(data, "run.signal"); sig.Type == gjson.String {
		span.SetAttributes(monitor.AttrSignal.String(sig.Str))
	}
	return json.RawMessage(data), nil
}

// Runtimes lists the runtimes installed in the sandbox.
func (c *Client) Runtimes(ctx context.Context) ([]RuntimeInfo, error) {
	ctx, span := c.tracer.StartSpan(ctx, "runtimes")
	defer span.End()

	var list []RuntimeInfo
	if err := c.do(ctx, http.MethodGet, "/runtimes", nil, &list); err != nil {
		span.RecordError(err)
		return nil, &CallError{Op: "runtimes", Err: err}
	}
	return list, nil
}

// Install asks the sandbox to install a package. Already-installed packages
// come back as an UpstreamError.
func (c *Client) Install(ctx context.Context, pkg Package) error {
	ctx, span := c.tracer.StartSpan(ctx, "install",
		monitor.AttrLanguage.String(pkg.Language),
		monitor.AttrVersion.String(pkg.Version),
	)
	defer span.End()

	if err := c.do(ctx, http.MethodPost, "/packages", pkg, nil); err != nil {
		span.RecordError(err)
		return &CallError{Op: "install", Err: err}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	data, err := c.roundTrip(ctx, method, path, body)
	if err != nil {
		return err
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// roundTrip sends one call and returns the 2xx body.
func (c *Client) roundTrip(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransport(ctx, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, classifyTransport(ctx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{Status: resp.StatusCode, Message: upstreamMessage(data)}
	}
	return data, nil
}

// classifyTransport maps a failed round trip onto ErrTimeout or ErrUnreachable.
func classifyTransport(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrUnreachable, err)
}

// upstreamMessage pulls a human-readable message out of an error body.
func upstreamMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	for _, key := range []string{"message", "error"} {
		if v := gjson.GetBytes(body, key); v.Type == gjson.String && v.Str != "" {
			return v.Str
		}
	}
	return ""
}
