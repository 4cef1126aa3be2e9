// Package contextx carries request-scoped values through engine operations.
package contextx

// contextKey is an unexported type used as context key to avoid collisions
// with keys defined in other packages.
type contextKey int

const (
	requestIDKey contextKey = iota
)
