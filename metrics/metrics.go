// Package metrics defines the Prometheus collectors exported by the engine.
// Every method is safe to call on a nil *Metrics, which records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the engine collectors registered on one Registerer.
type Metrics struct {
	// AttemptsTotal counts fetch attempts per policy and outcome ("ok" or an error kind).
	AttemptsTotal *prometheus.CounterVec
	// AttemptLatency tracks the duration of single attempts.
	AttemptLatency *prometheus.HistogramVec
	// GaveUpTotal counts operations that exhausted every attempt.
	GaveUpTotal *prometheus.CounterVec

	// CacheLookups counts table reads per result (hit, miss, expired).
	CacheLookups *prometheus.CounterVec
	// CacheEvictions counts removed entries per reason (capacity, ttl, sweep).
	CacheEvictions *prometheus.CounterVec
	// CacheEntries tracks the current size of each table.
	CacheEntries *prometheus.GaugeVec

	// PagesLoaded counts pages merged into pagination cursors.
	PagesLoaded *prometheus.CounterVec
	// StaleDiscards counts completed loads dropped because the cursor moved on.
	StaleDiscards *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		AttemptsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rawrfetch_attempts_total",
				Help: "Total number of fetch attempts",
			},
			[]string{"policy", "outcome"},
		),
		AttemptLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rawrfetch_attempt_latency_seconds",
				Help:    "Fetch attempt latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"policy"},
		),
		GaveUpTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rawrfetch_gave_up_total",
				Help: "Total number of fetches that exhausted all attempts",
			},
			[]string{"policy", "kind"},
		),
		CacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rawrfetch_cache_lookups_total",
				Help: "Total number of cache lookups",
			},
			[]string{"table", "result"},
		),
		CacheEvictions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rawrfetch_cache_evictions_total",
				Help: "Total number of cache entries removed",
			},
			[]string{"table", "reason"},
		),
		CacheEntries: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "rawrfetch_cache_entries",
				Help: "Current number of entries per cache table",
			},
			[]string{"table"},
		),
		PagesLoaded: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rawrfetch_pages_loaded_total",
				Help: "Total number of pages appended to listings",
			},
			[]string{"kind"},
		),
		StaleDiscards: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rawrfetch_stale_discards_total",
				Help: "Total number of completed page loads discarded as stale",
			},
			[]string{"kind"},
		),
	}
}

// ObserveAttempt records one attempt outcome.
func (m *Metrics) ObserveAttempt(policy, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.AttemptsTotal.WithLabelValues(policy, outcome).Inc()
	m.AttemptLatency.WithLabelValues(policy).Observe(d.Seconds())
}

// GaveUp records an exhausted operation.
func (m *Metrics) GaveUp(policy, kind string) {
	if m == nil {
		return
	}
	m.GaveUpTotal.WithLabelValues(policy, kind).Inc()
}

// CacheLookup records a table read.
func (m *Metrics) CacheLookup(table, result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(table, result).Inc()
}

// CacheEvicted records n removed entries.
func (m *Metrics) CacheEvicted(table, reason string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.CacheEvictions.WithLabelValues(table, reason).Add(float64(n))
}

// CacheSize sets the current size of a table.
func (m *Metrics) CacheSize(table string, n int) {
	if m == nil {
		return
	}
	m.CacheEntries.WithLabelValues(table).Set(float64(n))
}

// PageLoaded records a merged page.
func (m *Metrics) PageLoaded(kind string) {
	if m == nil {
		return
	}
	m.PagesLoaded.WithLabelValues(kind).Inc()
}

// StaleDiscarded records a dropped page.
func (m *Metrics) StaleDiscarded(kind string) {
	if m == nil {
		return
	}
	m.StaleDiscards.WithLabelValues(kind).Inc()
}
