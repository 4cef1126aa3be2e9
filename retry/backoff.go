package retry

import (
	"fmt"
	"strings"
	"time"
)

// BackoffKind selects the delay curve between attempts.
type BackoffKind int

const (
	Exponential BackoffKind = iota
	Linear
)

func (k BackoffKind) String() string {
	if k == Linear {
		return "linear"
	}
	return "exponential"
}

// UnmarshalText implements encoding.TextUnmarshaler for env and flag parsing.
func (k *BackoffKind) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "exponential", "exp":
		*k = Exponential
	case "linear":
		*k = Linear
	default:
		return fmt.Errorf("retry: unknown backoff kind %q", string(b))
	}
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (k *BackoffKind) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	return k.UnmarshalText([]byte(s))
}

// MarshalText implements encoding.TextMarshaler.
func (k BackoffKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Backoff describes the delay applied before each retry.
type Backoff struct {
	Kind BackoffKind   `yaml:"kind" env:"KIND"`
	Base time.Duration `yaml:"base" env:"BASE"`
	// Cap bounds every computed delay. Zero means uncapped.
	Cap time.Duration `yaml:"cap" env:"CAP"`
}

// Delay returns the wait after the given failed attempt (1-indexed), i.e. the
// delay before attempt+1:
//
//	exponential: min(Base * 2^(attempt-1), Cap)
//	linear:      min(Base * attempt, Cap)
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 || b.Base <= 0 {
		return 0
	}

	var d time.Duration
	switch b.Kind {
	case Linear:
		d = b.Base * time.Duration(attempt)
	default:
		d = b.Base
		for i := 1; i < attempt; i++ {
			d *= 2
			if b.Cap > 0 && d >= b.Cap {
				break
			}
		}
	}
	if b.Cap > 0 && d > b.Cap {
		d = b.Cap
	}
	return d
}
