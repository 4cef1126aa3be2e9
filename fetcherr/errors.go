// Package fetcherr defines the closed taxonomy every fetch failure is mapped
// into before it leaves the retry engine, together with the human-readable
// messages shown to callers.
package fetcherr

import (
	"errors"
	"fmt"
)

// Kind classifies a failed fetch attempt.
type Kind int

const (
	Unknown Kind = iota
	Timeout
	NetworkError
	ServerUnavailable
	NotFound
	RateLimited
	InvalidResponse
	ParseError
)

var kindNames = [...]string{
	Unknown:           "unknown",
	Timeout:           "timeout",
	NetworkError:      "network_error",
	ServerUnavailable: "server_unavailable",
	NotFound:          "not_found",
	RateLimited:       "rate_limited",
	InvalidResponse:   "invalid_response",
	ParseError:        "parse_error",
}

// String returns the snake_case name of k, used as a metrics label.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// Transient reports whether k is retried by default on any source.
func (k Kind) Transient() bool {
	switch k {
	case Timeout, NetworkError, ServerUnavailable, Unknown:
		return true
	}
	return false
}

// Terminal reports whether k is never retried, whatever the source.
func (k Kind) Terminal() bool {
	return k == NotFound || k == RateLimited
}

// ErrServiceRequired is wrapped by the guidance error returned when a numeric
// creator ID is searched without selecting a service.
var ErrServiceRequired = errors.New("fetcherr: a specific service is required for numeric ID lookup")

// Error is a classified fetch failure.
type Error struct {
	Kind      Kind
	Retryable bool
	Message   string

	// Attempts is the number of times the operation was invoked.
	Attempts int
	// Exhausted is set when the retry engine used every allowed attempt.
	Exhausted bool

	Err error
}

// New creates an Error of the given kind with the default retryability.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Retryable: kind.Transient(), Message: msg}
}

// Wrap creates an Error of the given kind that wraps cause.
func Wrap(kind Kind, cause error) *Error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return &Error{Kind: kind, Retryable: kind.Transient(), Message: msg, Err: cause}
}

// ServiceRequired returns the guidance error for numeric lookups without a
// selected service. It is never retryable.
func ServiceRequired() *Error {
	return &Error{
		Kind:    InvalidResponse,
		Message: ErrServiceRequired.Error(),
		Err:     ErrServiceRequired,
	}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return "fetch failed: " + e.Kind.String()
	}
	return fmt.Sprintf("fetch failed (%s): %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind, so errors.Is(err, fetcherr.New(NotFound, ""))
// works as a kind test.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the Kind of err, or Unknown when err is not classified.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Unknown
}

// IsNotFound reports whether err is classified as NotFound.
func IsNotFound(err error) bool {
	return KindOf(err) == NotFound
}
