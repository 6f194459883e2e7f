package api

import (
	"errors"
	"fmt"
)

// Kind classifies a request failure structurally, replacing any need to
// inspect error message text.
//
// The polling routes use the kind to decide whether a failure should be
// downgraded to a benign default payload (permission and transient
// errors for selected endpoints) or propagated to subscribers.
type Kind int

const (
	// KindStatus is a non-2xx HTTP response that fits no more specific
	// classification (e.g. 404, 409, 500).
	KindStatus Kind = iota

	// KindUnauthorized is an HTTP 401. The client has already cleared
	// the token store and invoked the unauthorized hook by the time a
	// caller sees this error.
	KindUnauthorized

	// KindPermission is an HTTP 403: the authenticated user lacks
	// access to the resource.
	KindPermission

	// KindTransient is a transport-level failure: connection refused,
	// DNS failure, timeout, cancelled context. No HTTP response was
	// fully received.
	KindTransient
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindPermission:
		return "permission_denied"
	case KindTransient:
		return "transient"
	default:
		return "status"
	}
}

// Error is the error type returned for all request failures.
//
// StatusCode is zero for transient failures where no response was
// received. The wrapped cause, if any, is available via [errors.Unwrap].
type Error struct {
	Kind       Kind
	StatusCode int
	Status     string
	Endpoint   string
	cause      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s request failed: %v", e.Endpoint, e.Kind, e.cause)
	}
	return fmt.Sprintf("%s: request failed with status %d %s", e.Endpoint, e.StatusCode, e.Status)
}

// Unwrap returns the underlying transport error, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// IsPermission reports whether err is a request failure caused by an
// HTTP 403 response.
func IsPermission(err error) bool {
	return hasKind(err, KindPermission)
}

// IsUnauthorized reports whether err is a request failure caused by an
// HTTP 401 response.
func IsUnauthorized(err error) bool {
	return hasKind(err, KindUnauthorized)
}

// IsTransient reports whether err is a transport-level request failure
// (network error, timeout, cancellation).
func IsTransient(err error) bool {
	return hasKind(err, KindTransient)
}

func hasKind(err error, kind Kind) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}
