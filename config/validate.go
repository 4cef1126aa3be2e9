package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/Keksclan/rawrfetch/cache"
	"github.com/Keksclan/rawrfetch/source"
)

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	if err := c.Logger.Validate(); err != nil {
		return err
	}
	for _, s := range []struct {
		name string
		cfg  SourceConfig
	}{
		{"primary", c.Primary},
		{"secondary", c.Secondary},
	} {
		if s.cfg.Retry.MaxAttempts < 1 {
			return ErrInvalidAttempts(s.name, s.cfg.Retry.MaxAttempts)
		}
		if s.cfg.Retry.Backoff.Base < 0 || s.cfg.Retry.Backoff.Cap < 0 {
			return ErrInvalidBackoff(s.name)
		}
		if len(s.cfg.Hosts) == 0 {
			return ErrNoHosts(s.name)
		}
	}

	for name, t := range map[string]cache.TableConfig{
		"creators": c.Cache.Creators,
		"posts":    c.Cache.Posts,
		"post":     c.Cache.Post,
		"searches": c.Cache.Searches,
	} {
		if t.TTL < 0 || t.MaxEntries < 0 {
			return ErrInvalidTable(name)
		}
	}

	p := c.Pagination
	if p.PageSize <= 0 || p.MaxBufferedItems < p.PageSize {
		return ErrInvalidPagination(p.PageSize, p.MaxBufferedItems)
	}
	if c.Search.TopN <= 0 {
		return ErrInvalidTopN(c.Search.TopN)
	}

	for _, r := range c.Routes {
		if _, err := buildRoute(r); err != nil {
			return err
		}
	}

	switch c.Persist.Backend {
	case "", BackendNone, BackendMemory:
	case BackendRedis:
		if c.Persist.Redis.Addr == "" {
			return ErrRedisAddr()
		}
	default:
		return ErrInvalidBackend(c.Persist.Backend)
	}
	return nil
}

// Resolver builds the source resolver. Configured routes are registered
// before the secondary service list so they win ties.
func (c *Config) Resolver() (*source.Resolver, error) {
	routes := make([]*source.RouteBuilder, 0, len(c.Routes)+1)
	for _, r := range c.Routes {
		rb, err := buildRoute(r)
		if err != nil {
			return nil, err
		}
		routes = append(routes, rb)
	}
	if len(c.SecondaryServices) > 0 {
		routes = append(routes, source.Route("secondary").Exact(c.SecondaryServices...).To(source.Secondary))
	}
	return source.NewResolver(map[source.ContentSource][]string{
		source.Primary:   c.Primary.Hosts,
		source.Secondary: c.Secondary.Hosts,
	}, routes...), nil
}

func buildRoute(r RouteConfig) (*source.RouteBuilder, error) {
	src, err := source.Parse(r.Source)
	if err != nil {
		return nil, ErrInvalidRoute(r.Name, err)
	}
	if len(r.Pattern) == 0 {
		return nil, ErrInvalidRoute(r.Name, errors.New("pattern is empty"))
	}

	rb := source.Route(r.Name)
	switch strings.ToLower(r.Match) {
	case "", "exact":
		rb.Exact(r.Pattern...)
	case "prefix":
		for _, p := range r.Pattern {
			rb.Prefix(p)
		}
	case "regex":
		for _, p := range r.Pattern {
			if _, err := regexp.Compile(p); err != nil {
				return nil, ErrInvalidRoute(r.Name, err)
			}
			rb.Regex(p)
		}
	default:
		return nil, ErrInvalidRoute(r.Name, fmt.Errorf("unknown match %q", r.Match))
	}
	return rb.To(src), nil
}
