// Package apperr classifies workflow failures so HTTP handlers can map them
// to response codes without inspecting provider-specific errors.
package apperr

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
)

// Kind is the failure category of an Error.
type Kind int

const (
	// KindValidation is bad caller input; the user must correct it.
	KindValidation Kind = iota
	// KindProviderUnavailable means a required provider credential or
	// endpoint is not configured. Not user-fixable.
	KindProviderUnavailable
	// KindUpstream is a non-2xx or transport failure from an external
	// provider. Safe for a user-triggered retry.
	KindUpstream
	// KindParse means a provider responded but its output did not match
	// the declared shape.
	KindParse
)

// Error carries a failure category alongside the wrapped cause.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string { return e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

// New creates a categorized error from a message.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Err: eris.New(msg)}
}

// Wrap categorizes an existing error.
func Wrap(kind Kind, err error, msg string) error {
	return &Error{Kind: kind, Err: eris.Wrap(err, msg)}
}

// KindOf extracts the category of err, defaulting to KindUpstream for
// uncategorized failures so callers treat them as retriable.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUpstream
}

// HTTPStatus maps an error to the response code its category calls for.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindProviderUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Retriable reports whether the caller should be offered a retry control.
func Retriable(err error) bool {
	return KindOf(err) == KindUpstream
}

// IsTransient reports whether err looks like a transient network failure
// (timeouts, resets, DNS). Used to tag upstream errors as retriable even
// when the provider client did not categorize them.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}
