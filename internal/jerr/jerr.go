// Package jerr defines the error taxonomy shared by the daemon's HTTP, WS,
// and internal layers so a caller can map any failure to a stable category
// without string-matching messages.
package jerr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is one of the six error categories a daemon operation can fail with.
type Kind int

const (
	// Internal is the zero value so an unclassified error defaults to 500,
	// not 404.
	Internal Kind = iota
	NotFound
	AlreadyEnded
	Malformed
	Unavailable
	Conflict
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case AlreadyEnded:
		return "already_ended"
	case Malformed:
		return "malformed"
	case Unavailable:
		return "unavailable"
	case Conflict:
		return "conflict"
	default:
		return "internal"
	}
}

// HTTPStatus maps a Kind to the status code the gateway returns for it.
func (k Kind) HTTPStatus() int {
	switch k {
	case NotFound:
		return http.StatusNotFound
	case AlreadyEnded:
		return http.StatusGone
	case Malformed:
		return http.StatusBadRequest
	case Unavailable:
		return http.StatusServiceUnavailable
	case Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error is a Kind-tagged error that wraps an underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a Kind-tagged Error. op names the failing operation, e.g.
// "catalog.Load".
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Wrap is New with a fmt.Errorf-style message instead of a bare error.
func Wrap(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the Kind from err, defaulting to Internal when err does
// not carry one.
func KindOf(err error) Kind {
	var je *Error
	if errors.As(err, &je) {
		return je.Kind
	}
	return Internal
}
