package sandbox

import (
	"context"
	"encoding/json"
)

// Backend is the sandbox surface the proxy depends on. ExecuteRaw returns the
// sandbox body untouched so it can be relayed as is.
type Backend interface {
	ExecuteRaw(ctx context.Context, req ExecuteRequest) (json.RawMessage, error)
	Runtimes(ctx context.Context) ([]RuntimeInfo, error)
	Install(ctx context.Context, pkg Package) error
}

var _ Backend = (*Client)(nil)
