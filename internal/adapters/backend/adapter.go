// Package backend contains the adapters that translate canonical query
// requests into backend-native calls, one adapter per backend family.
// Adapters never leak backend-native errors: every failure crossing the
// package boundary is an *AdapterError.
package backend

import (
	"context"
	"net"
	"net/http"

	"athena/internal/domain/model"
	"athena/internal/domain/query"
	"athena/pkg/errors"
)

// Adapter is the contract every backend family implements. Adapters are
// stateless with respect to orchestration: any backend-specific retry or
// rate limiting is internal and invisible to the caller.
type Adapter interface {
	Kind() model.BackendKind
	Invoke(ctx context.Context, req query.Request, desc model.Descriptor) (*query.Response, error)
}

// AdapterError normalizes a backend-native failure. Transient failures
// (timeouts, connection drops, overload) are eligible for the
// orchestrator's fallback policy; everything else is not.
type AdapterError struct {
	Backend   model.BackendKind
	Transient bool
	Err       error
}

// Error implements the error interface.
func (e *AdapterError) Error() string {
	return "backend " + e.Backend.String() + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *AdapterError) Unwrap() error {
	return e.Err
}

func newAdapterError(kind model.BackendKind, transient bool, err error) *AdapterError {
	return &AdapterError{Backend: kind, Transient: transient, Err: err}
}

// IsTransient reports whether err is (or wraps) a transient adapter error.
func IsTransient(err error) bool {
	var ae *AdapterError
	if errors.As(err, &ae) {
		return ae.Transient
	}
	return false
}

// transientStatus classifies HTTP status codes from model runtimes.
func transientStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	}
	return code >= 500
}

// transportFailure classifies low-level call errors: context deadlines
// and network errors count as transient.
func transportFailure(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
