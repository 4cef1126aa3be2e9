// Package source maps logical content-service identifiers to one of the two
// interchangeable catalog backends and to the ordered mirror hosts serving it.
package source

import (
	"fmt"
	"strings"
)

// ContentSource identifies one of the two catalog backends.
type ContentSource int

const (
	Primary ContentSource = iota
	Secondary
)

// String returns the lowercase name of s.
func (s ContentSource) String() string {
	switch s {
	case Primary:
		return "primary"
	case Secondary:
		return "secondary"
	default:
		return fmt.Sprintf("source(%d)", int(s))
	}
}

// Parse converts "primary" or "secondary" (case-insensitive) to a ContentSource.
func Parse(s string) (ContentSource, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "primary":
		return Primary, nil
	case "secondary":
		return Secondary, nil
	}
	return Primary, fmt.Errorf("source: unknown content source %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (s ContentSource) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *ContentSource) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// All lists both sources in a fixed order.
func All() []ContentSource {
	return []ContentSource{Primary, Secondary}
}
