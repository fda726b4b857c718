package client

import (
	"errors"
	"fmt"
	"net/http"
)

// FailureClass decides whether a failed attempt may be recovered.
type FailureClass int

// ClassNetwork (no response, or 5xx) lets the next step run; ClassRejected
// (4xx or a malformed answer) ends the pipeline.
const (
	ClassNone FailureClass = iota
	ClassNetwork
	ClassRejected
)

func (c FailureClass) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassNetwork:
		return "network"
	case ClassRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// TransportError means the request got no HTTP response at all.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusError is a non-2xx response from the proxy.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("Request failed with status code %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("Request failed with status code %d", e.Status)
}

// Classify sorts an attempt error into network-class or rejected.
func Classify(err error) FailureClass {
	if err == nil {
		return ClassNone
	}
	var te *TransportError
	if errors.As(err, &te) {
		return ClassNetwork
	}
	var se *StatusError
	if errors.As(err, &se) {
		if se.Status >= http.StatusInternalServerError {
			return ClassNetwork
		}
		return ClassRejected
	}
	return ClassRejected
}
