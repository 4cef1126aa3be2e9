package fetcherr

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// statusCoder is implemented by transport errors that carry an HTTP status.
type statusCoder interface {
	HTTPStatus() int
}

// Classify maps a raw transport or decoding error to a classified Error. An
// error that is already classified is returned unchanged.
//
// Structured information wins over message text: context errors, net.Error
// timeouts, HTTP status codes, gRPC status codes and JSON decoder errors are
// inspected first, then the message is matched against known markers.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return Wrap(Timeout, err)
	case errors.Is(err, context.Canceled):
		e := Wrap(Unknown, err)
		e.Retryable = false
		return e
	}

	var sc statusCoder
	if errors.As(err, &sc) {
		if k, ok := kindForHTTP(sc.HTTPStatus()); ok {
			return Wrap(k, err)
		}
	}

	if st, ok := status.FromError(err); ok && st.Code() != codes.Unknown {
		if k, ok := kindForGRPC(st.Code()); ok {
			return Wrap(k, err)
		}
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return Wrap(ParseError, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Wrap(Timeout, err)
	}

	return Wrap(kindForMessage(err.Error()), err)
}

func kindForHTTP(code int) (Kind, bool) {
	switch {
	case code == http.StatusNotFound || code == http.StatusGone:
		return NotFound, true
	case code == http.StatusTooManyRequests:
		return RateLimited, true
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return Timeout, true
	case code >= 500:
		return ServerUnavailable, true
	case code >= 400:
		return InvalidResponse, true
	}
	return Unknown, false
}

func kindForGRPC(code codes.Code) (Kind, bool) {
	switch code {
	case codes.NotFound:
		return NotFound, true
	case codes.ResourceExhausted:
		return RateLimited, true
	case codes.DeadlineExceeded:
		return Timeout, true
	case codes.Unavailable:
		return ServerUnavailable, true
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
		return InvalidResponse, true
	case codes.DataLoss:
		return ParseError, true
	}
	return Unknown, false
}

// kindForMessage matches lowercase markers. Status-code markers are checked
// before generic words so "503 ... timeout" is a ServerUnavailable.
func kindForMessage(msg string) Kind {
	s := strings.ToLower(msg)

	switch {
	case containsAny(s, "404", "not found"):
		return NotFound
	case containsAny(s, "429", "rate limit", "too many requests"):
		return RateLimited
	case containsAny(s, "503", "502", "unavailable", "bad gateway"):
		return ServerUnavailable
	case containsAny(s, "timeout", "timed out", "deadline exceeded"):
		return Timeout
	case containsAny(s, "connection", "socket", "network", "no such host", "broken pipe", "eof"):
		return NetworkError
	case containsAny(s, "<!doctype", "<html"):
		return InvalidResponse
	case containsAny(s, "json", "invalid character", "unexpected end of"):
		return ParseError
	}
	return Unknown
}

func containsAny(s string, markers ...string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
