// Package proxy passes read-only sandbox endpoints through the service
// without decoding them.
package proxy

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
)

const unreachableBody = `{"error":"Failed to connect to execution engine."}` + "\n"

// RuntimesProxy is a reverse proxy that serves the sandbox's runtime list.
// Whatever path it is mounted on, requests are rewritten to <api root>/runtimes
// and caller credentials are stripped before forwarding.
type RuntimesProxy struct {
	rp     *httputil.ReverseProxy
	target *url.URL
}

type Option func(*RuntimesProxy)

// WithTransport shares an existing round tripper, typically the sandbox
// client's keep-alive pool.
func WithTransport(rt http.RoundTripper) Option {
	return func(p *RuntimesProxy) { p.rp.Transport = rt }
}

// New creates a RuntimesProxy for the sandbox API rooted at sandboxURL,
// e.g. "http://piston:2000/api/v2".
func New(sandboxURL string, opts ...Option) (*RuntimesProxy, error) {
	target, err := url.Parse(strings.TrimRight(sandboxURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing sandbox url: %w", err)
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return nil, fmt.Errorf("sandbox url must be http(s), got %q", sandboxURL)
	}

	p := &RuntimesProxy{target: target}
	p.rp = &httputil.ReverseProxy{
		Director:       p.direct,
		ModifyResponse: modifyResponse,
		ErrorHandler:   errorHandler,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *RuntimesProxy) direct(r *http.Request) {
	r.URL.Scheme = p.target.Scheme
	r.URL.Host = p.target.Host
	r.URL.Path = p.target.Path + "/runtimes"
	r.URL.RawPath = ""
	r.URL.RawQuery = ""
	r.Host = p.target.Host

	r.Header.Del("Authorization")
	r.Header.Del("Cookie")
	if _, ok := r.Header["User-Agent"]; !ok {
		// keep net/http from adding its default
		r.Header.Set("User-Agent", "")
	}
}

func (p *RuntimesProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}
	p.rp.ServeHTTP(w, r)
}

func modifyResponse(resp *http.Response) error {
	resp.Header.Del("Set-Cookie")
	if resp.StatusCode == http.StatusOK {
		resp.Header.Set("Cache-Control", "public, max-age=60")
	}
	return nil
}

func errorHandler(w http.ResponseWriter, r *http.Request, err error) {
	log.Warn().Err(err).Str("path", r.URL.Path).Msg("runtime list proxy failed")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadGateway)
	w.Write([]byte(unreachableBody))
}
