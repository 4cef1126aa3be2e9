// Package config loads the engine configuration from YAML with environment
// overrides.
package config

import (
	"slices"
	"time"

	"github.com/Keksclan/rawrfetch/breaker"
	"github.com/Keksclan/rawrfetch/cache"
	"github.com/Keksclan/rawrfetch/logger"
	"github.com/Keksclan/rawrfetch/paginate"
	"github.com/Keksclan/rawrfetch/persist"
	"github.com/Keksclan/rawrfetch/retry"
	"github.com/Keksclan/rawrfetch/source"
)

// EnvPrefix prefixes every environment override, e.g.
// RAWRFETCH_SECONDARY_RETRY_MAX_ATTEMPTS.
const EnvPrefix = "RAWRFETCH_"

// Config is the complete engine configuration.
type Config struct {
	Logger logger.Config `yaml:"logger" envPrefix:"LOG_"`

	Primary   SourceConfig `yaml:"primary" envPrefix:"PRIMARY_"`
	Secondary SourceConfig `yaml:"secondary" envPrefix:"SECONDARY_"`

	// SecondaryServices are routed to the secondary source by exact match.
	SecondaryServices []string `yaml:"secondary_services" env:"SECONDARY_SERVICES" envSeparator:","`
	// Routes adds prefix and regex routing rules. YAML only.
	Routes []RouteConfig `yaml:"routes"`

	Cache      CacheConfig     `yaml:"cache" envPrefix:"CACHE_"`
	Pagination paginate.Config `yaml:"pagination" envPrefix:"PAGINATION_"`
	Search     SearchConfig    `yaml:"search" envPrefix:"SEARCH_"`
	Breaker    breaker.Config  `yaml:"breaker" envPrefix:"BREAKER_"`
	Transport  TransportConfig `yaml:"transport" envPrefix:"TRANSPORT_"`
	Persist    PersistConfig   `yaml:"persist" envPrefix:"PERSIST_"`
}

// SourceConfig configures one content source.
type SourceConfig struct {
	// Hosts are the mirrors of the source in the order they are tried.
	Hosts []string     `yaml:"hosts" env:"HOSTS" envSeparator:","`
	Retry retry.Policy `yaml:"retry" envPrefix:"RETRY_"`
	// RateLimit is the outbound request rate in requests per second.
	// Zero disables limiting.
	RateLimit float64 `yaml:"rate_limit" env:"RATE_LIMIT"`
	Burst     int     `yaml:"burst" env:"BURST"`
}

// RouteConfig is one routing rule.
type RouteConfig struct {
	Name string `yaml:"name"`
	// Match is exact, prefix or regex.
	Match   string   `yaml:"match"`
	Pattern []string `yaml:"pattern"`
	// Source is primary or secondary.
	Source string `yaml:"source"`
}

// CacheConfig sizes each cache table.
type CacheConfig struct {
	Creators cache.TableConfig `yaml:"creators" envPrefix:"CREATORS_"`
	Posts    cache.TableConfig `yaml:"posts" envPrefix:"POSTS_"`
	Post     cache.TableConfig `yaml:"post" envPrefix:"POST_"`
	Searches cache.TableConfig `yaml:"searches" envPrefix:"SEARCHES_"`
}

// SearchConfig configures creator search.
type SearchConfig struct {
	TopN        int `yaml:"top_n" env:"TOP_N"`
	HistorySize int `yaml:"history_size" env:"HISTORY_SIZE"`
}

// TransportConfig configures the HTTP transport.
type TransportConfig struct {
	// Timeout bounds one attempt.
	Timeout   time.Duration `yaml:"timeout" env:"TIMEOUT"`
	UserAgent string        `yaml:"user_agent" env:"USER_AGENT"`
	// Scheme is prepended to mirror hosts, https unless overridden.
	Scheme      string        `yaml:"scheme" env:"SCHEME"`
	MemoEntries int64         `yaml:"memo_entries" env:"MEMO_ENTRIES"`
	MemoTTL     time.Duration `yaml:"memo_ttl" env:"MEMO_TTL"`
}

// Persist backends.
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// PersistConfig configures cache persistence.
type PersistConfig struct {
	// Backend is none, memory or redis.
	Backend string              `yaml:"backend" env:"BACKEND"`
	Redis   persist.RedisConfig `yaml:"redis" envPrefix:"REDIS_"`
	// FlushSchedule is a cron spec, e.g. "@every 5m". Empty disables
	// scheduled flushing.
	FlushSchedule string `yaml:"flush_schedule" env:"FLUSH_SCHEDULE"`
	// Retention drops cached entries older than this on every flush.
	Retention      time.Duration `yaml:"retention" env:"RETENTION"`
	RestoreOnStart bool          `yaml:"restore_on_start" env:"RESTORE_ON_START"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Logger: *logger.DefaultConfig(),
		Primary: SourceConfig{
			Hosts: slices.Clone(source.DefaultHosts[source.Primary]),
			Retry: retry.PrimaryPolicy(),
		},
		Secondary: SourceConfig{
			Hosts: slices.Clone(source.DefaultHosts[source.Secondary]),
			Retry: retry.SecondaryPolicy(),
		},
		SecondaryServices: slices.Clone(source.DefaultSecondaryServices),
		Cache: CacheConfig{
			Creators: cache.TableConfig{TTL: 30 * time.Minute, MaxEntries: 500},
			Posts:    cache.TableConfig{TTL: 15 * time.Minute, MaxEntries: 200},
			Post:     cache.TableConfig{TTL: 15 * time.Minute, MaxEntries: 200},
			Searches: cache.TableConfig{TTL: 10 * time.Minute, MaxEntries: 100},
		},
		Pagination: paginate.DefaultConfig(),
		Search:     SearchConfig{TopN: 5, HistorySize: 20},
		Breaker:    breaker.DefaultConfig(),
		Transport: TransportConfig{
			Timeout:     20 * time.Second,
			UserAgent:   "rawrfetch/1.0",
			Scheme:      "https",
			MemoEntries: 1000,
			MemoTTL:     30 * time.Second,
		},
		Persist: PersistConfig{
			Backend:        BackendMemory,
			FlushSchedule:  "@every 5m",
			Retention:      7 * 24 * time.Hour,
			RestoreOnStart: true,
		},
	}
}

// Policy returns the retry policy of src, named after the source.
func (c *Config) Policy(src source.ContentSource) retry.Policy {
	p := c.Primary.Retry
	if src == source.Secondary {
		p = c.Secondary.Retry
	}
	p.Name = src.String()
	return p
}

// Source returns the configuration of src.
func (c *Config) Source(src source.ContentSource) SourceConfig {
	if src == source.Secondary {
		return c.Secondary
	}
	return c.Primary
}
