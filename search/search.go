// Package search resolves creator queries: numeric IDs are looked up
// directly on a selected service, everything else goes through name search,
// and a failed name search degrades to a scan of cached creators.
package search

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/Keksclan/rawrfetch/fetcherr"
	"github.com/Keksclan/rawrfetch/logger"
	"github.com/Keksclan/rawrfetch/model"
)

// DefaultTopN caps the number of returned creators.
const DefaultTopN = 5

// Directory is the creator lookup surface search runs against.
type Directory interface {
	CreatorByID(ctx context.Context, service, id string) (model.Creator, error)
	SearchByName(ctx context.Context, query, service string) ([]model.Creator, error)
	CachedCreators() []model.Creator
}

// Strategy runs creator searches against a Directory.
type Strategy struct {
	dir     Directory
	topN    int
	log     logger.Logger
	history *History
}

// Option configures a Strategy.
type Option func(*Strategy)

// WithTopN caps results. Non-positive values keep DefaultTopN.
func WithTopN(n int) Option {
	return func(s *Strategy) {
		if n > 0 {
			s.topN = n
		}
	}
}

// WithLogger sets the logger used for degraded searches.
func WithLogger(l logger.Logger) Option {
	return func(s *Strategy) { s.log = l }
}

// WithHistory records successful queries.
func WithHistory(h *History) Option {
	return func(s *Strategy) { s.history = h }
}

// New creates a Strategy over dir.
func New(dir Directory, opts ...Option) *Strategy {
	s := &Strategy{dir: dir, topN: DefaultTopN, log: logger.Nop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// AllServices reports whether service selects every service.
func AllServices(service string) bool {
	s := strings.TrimSpace(service)
	return s == "" || strings.EqualFold(s, "all")
}

// Search resolves query on service.
//
// A numeric query needs a specific service and fails fast with the
// fetcherr.ErrServiceRequired guidance error otherwise. A failed ID lookup
// falls through to name search. A failed name search is logged and answered
// from the creator cache. Only context cancellation and the guidance error
// are returned as errors.
func (s *Strategy) Search(ctx context.Context, query, service string) ([]model.Creator, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, nil
	}
	all := AllServices(service)
	if all {
		service = ""
	}

	if model.IsNumeric(q) {
		if all {
			return nil, fetcherr.ServiceRequired()
		}
		c, err := s.dir.CreatorByID(ctx, service, q)
		if err == nil {
			s.remember(ctx, q, service)
			return []model.Creator{c}, nil
		}
		if ctx.Err() != nil {
			return nil, fetcherr.Classify(ctx.Err())
		}
		s.log.Debug("id lookup failed, searching by name",
			zap.String("query", q),
			zap.String("service", service),
			zap.String("kind", fetcherr.KindOf(err).String()),
		)
	}

	results, err := s.dir.SearchByName(ctx, q, service)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fetcherr.Classify(ctx.Err())
		}
		s.log.Warn("name search failed, answering from cache",
			zap.String("query", q),
			zap.String("service", service),
			zap.Error(err),
		)
		results = ScanCached(s.dir.CachedCreators(), q, service)
	}

	if len(results) > 0 {
		s.remember(ctx, q, service)
	}
	return s.cap(results), nil
}

func (s *Strategy) cap(in []model.Creator) []model.Creator {
	if len(in) > s.topN {
		return slices.Clone(in[:s.topN])
	}
	return in
}

func (s *Strategy) remember(ctx context.Context, query, service string) {
	if s.history == nil {
		return
	}
	if err := s.history.Add(ctx, query, service); err != nil {
		s.log.Warn("failed to save search history", zap.Error(err))
	}
}

// ScanCached matches query against cached creators: a case-insensitive
// substring of the name or an exact ID, restricted to service unless it
// selects all services. Exact name matches rank first, then prefix matches,
// then the rest in cache order.
func ScanCached(cached []model.Creator, query, service string) []model.Creator {
	q := strings.ToLower(strings.TrimSpace(query))
	all := AllServices(service)

	type hit struct {
		c    model.Creator
		rank int
	}
	var hits []hit
	for _, c := range cached {
		if !all && !strings.EqualFold(c.Service, service) {
			continue
		}
		name := strings.ToLower(c.Name)
		switch {
		case name == q || string(c.ID) == q:
			hits = append(hits, hit{c, 0})
		case strings.HasPrefix(name, q):
			hits = append(hits, hit{c, 1})
		case strings.Contains(name, q):
			hits = append(hits, hit{c, 2})
		}
	}
	slices.SortStableFunc(hits, func(a, b hit) int { return cmp.Compare(a.rank, b.rank) })

	out := make([]model.Creator, len(hits))
	for i, h := range hits {
		out[i] = h.c
	}
	return out
}
