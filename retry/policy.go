package retry

import (
	"time"

	"github.com/Keksclan/rawrfetch/fetcherr"
)

// Policy controls one family of retried operations.
type Policy struct {
	// Name labels logs, spans and metrics (normally the content source).
	Name string `yaml:"-"`

	// MaxAttempts is the maximum number of times the operation is invoked,
	// including the first attempt. Values <= 1 mean no retries.
	MaxAttempts int `yaml:"max_attempts" env:"MAX_ATTEMPTS"`

	Backoff Backoff `yaml:"backoff" envPrefix:"BACKOFF_"`

	// RetryAll retries every classified failure except NotFound and
	// RateLimited, including data-integrity failures. It is set for the
	// flakier secondary source.
	RetryAll bool `yaml:"retry_all" env:"RETRY_ALL"`
}

// PrimaryPolicy is the default for the primary source: few attempts with a
// linear 0.5s, 1.0s, 1.5s, ... delay.
func PrimaryPolicy() Policy {
	return Policy{
		Name:        "primary",
		MaxAttempts: 3,
		Backoff:     Backoff{Kind: Linear, Base: 500 * time.Millisecond, Cap: 10 * time.Second},
	}
}

// SecondaryPolicy is the default for the secondary source: more attempts with
// exponential 1s, 2s, 4s, ... delays capped at 10s.
func SecondaryPolicy() Policy {
	return Policy{
		Name:        "secondary",
		MaxAttempts: 6,
		Backoff:     Backoff{Kind: Exponential, Base: time.Second, Cap: 10 * time.Second},
		RetryAll:    true,
	}
}

// shouldRetry reports whether a failure of kind k may be retried under p.
func (p Policy) shouldRetry(e *fetcherr.Error) bool {
	if e.Kind.Terminal() {
		return false
	}
	if p.RetryAll {
		return true
	}
	return e.Retryable
}

func (p Policy) attempts() int {
	return max(p.MaxAttempts, 1)
}
