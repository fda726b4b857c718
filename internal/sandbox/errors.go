package sandbox

import (
	"errors"
	"fmt"
)

// Sentinel errors for typed error checking.
var (
	ErrTimeout        = errors.New("execution timed out")
	ErrUnreachable    = errors.New("sandbox unreachable")
	ErrInvalidRequest = errors.New("invalid execution request")
)

// UpstreamError is a non-2xx answer from the sandbox.
type UpstreamError struct {
	Status  int
	Message string // sandbox-provided message, may be empty
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("sandbox returned status %d", e.Status)
	}
	return fmt.Sprintf("sandbox returned status %d: %s", e.Status, e.Message)
}

// CallError wraps errors with the sandbox operation that produced them.
type CallError struct {
	Op  string // execute, runtimes, install
	Err error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// IsTimeout returns true if the error is a timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsUnreachable returns true if no response was received at all.
func IsUnreachable(err error) bool {
	return errors.Is(err, ErrUnreachable)
}

// AsUpstream extracts an UpstreamError from err.
func AsUpstream(err error) (*UpstreamError, bool) {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}
