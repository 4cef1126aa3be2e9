package config

import "fmt"

// ErrReadFile represents a failure reading the config file.
func ErrReadFile(path string, err error) error {
	return fmt.Errorf("config: failed to read %s: %w", path, err)
}

// ErrParse represents a malformed config file.
func ErrParse(path string, err error) error {
	return fmt.Errorf("config: failed to parse %s: %w", path, err)
}

// ErrEnv represents an invalid environment override.
func ErrEnv(err error) error {
	return fmt.Errorf("config: invalid environment override: %w", err)
}

// ErrInvalidAttempts represents a retry policy without attempts.
func ErrInvalidAttempts(src string, n int) error {
	return fmt.Errorf("config: %s.retry.max_attempts must be at least 1, got %d", src, n)
}

// ErrInvalidBackoff represents a negative backoff duration.
func ErrInvalidBackoff(src string) error {
	return fmt.Errorf("config: %s.retry.backoff base and cap must not be negative", src)
}

// ErrNoHosts represents a source without mirrors.
func ErrNoHosts(src string) error {
	return fmt.Errorf("config: %s.hosts must list at least one host", src)
}

// ErrInvalidTable represents a negative TTL or capacity.
func ErrInvalidTable(table string) error {
	return fmt.Errorf("config: cache.%s ttl and max_entries must not be negative", table)
}

// ErrInvalidPagination represents a bad page or buffer size.
func ErrInvalidPagination(pageSize, maxBuffered int) error {
	return fmt.Errorf("config: pagination page_size (%d) must be positive and not exceed max_buffered_items (%d)", pageSize, maxBuffered)
}

// ErrInvalidTopN represents a non-positive search cap.
func ErrInvalidTopN(n int) error {
	return fmt.Errorf("config: search.top_n must be positive, got %d", n)
}

// ErrInvalidRoute represents a malformed routing rule.
func ErrInvalidRoute(name string, err error) error {
	return fmt.Errorf("config: route %q: %w", name, err)
}

// ErrInvalidBackend represents an unknown persistence backend.
func ErrInvalidBackend(backend string) error {
	return fmt.Errorf("config: persist.backend %q must be none, memory or redis", backend)
}

// ErrRedisAddr represents a redis backend without an address.
func ErrRedisAddr() error {
	return fmt.Errorf("config: persist.redis.addr is required for the redis backend")
}
