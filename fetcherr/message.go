package fetcherr

import (
	"errors"
	"fmt"
)

// UserMessage returns a short message suitable for display. The guidance
// error for numeric lookups is never phrased as a transient failure.
func (e *Error) UserMessage() string {
	if errors.Is(e.Err, ErrServiceRequired) {
		return "Numeric creator IDs need a specific service. Pick a service and search again."
	}
	if e.Exhausted {
		return fmt.Sprintf("Gave up after %d attempts: %s.", e.Attempts, describe(e.Kind))
	}
	return capitalize(describe(e.Kind)) + "."
}

// RetryingMessage is shown while the retry window is still open.
func RetryingMessage(attempt, maxAttempts int, err error) string {
	return fmt.Sprintf("Still retrying (attempt %d/%d): %s.", attempt, maxAttempts, describe(KindOf(err)))
}

// UserMessage returns the display message for any error, classifying it
// first when needed.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	return Classify(err).UserMessage()
}

func describe(k Kind) string {
	switch k {
	case Timeout:
		return "the server took too long to respond"
	case NetworkError:
		return "the network connection failed"
	case ServerUnavailable:
		return "the server is unavailable"
	case NotFound:
		return "nothing was found"
	case RateLimited:
		return "too many requests, slow down"
	case InvalidResponse:
		return "the server sent an unexpected response"
	case ParseError:
		return "the server response could not be read"
	default:
		return "something went wrong"
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}
