package source

import "slices"

// Resolver holds the fixed service routing table and the mirror hosts of each
// source. It is immutable after construction and safe for concurrent use.
type Resolver struct {
	routes []*RouteBuilder
	hosts  map[ContentSource][]string
}

// NewResolver creates a Resolver. Host lists are deduplicated preserving first
// occurrence; empty host names are dropped.
func NewResolver(hosts map[ContentSource][]string, routes ...*RouteBuilder) *Resolver {
	res := &Resolver{
		routes: routes,
		hosts:  make(map[ContentSource][]string, len(hosts)),
	}
	for src, hs := range hosts {
		res.hosts[src] = dedupe(hs)
	}
	return res
}

// DefaultSecondaryServices are the services served by the secondary catalog.
var DefaultSecondaryServices = []string{"onlyfans", "fansly", "candfans"}

// DefaultHosts are the mirrors used when no hosts are configured.
var DefaultHosts = map[ContentSource][]string{
	Primary:   {"primary.catalog.example", "primary-mirror.catalog.example"},
	Secondary: {"secondary.catalog.example", "secondary-mirror.catalog.example"},
}

// DefaultResolver routes DefaultSecondaryServices to Secondary over
// DefaultHosts.
func DefaultResolver() *Resolver {
	return NewResolver(DefaultHosts,
		Route("secondary").Exact(DefaultSecondaryServices...).To(Secondary),
	)
}

// Resolve maps serviceID to its content source and host candidates.
//
// Priority rules:
//   - Exact matches beat prefix matches, which beat regex matches.
//   - Among matches of the same kind the longer match wins.
//   - When two matches have equal kind and length the route that was
//     registered first wins.
//
// Unknown or empty identifiers resolve to Primary. The returned slice is a
// copy owned by the caller.
func (res *Resolver) Resolve(serviceID string) (ContentSource, []string) {
	src := Primary
	if _, s, ok := res.Match(serviceID); ok {
		src = s
	}
	return src, res.Hosts(src)
}

// Match finds the best-matching route for serviceID. If no route matches, ok
// is false.
func (res *Resolver) Match(serviceID string) (routeName string, src ContentSource, ok bool) {
	id := normalize(serviceID)
	if id == "" {
		return "", Primary, false
	}

	bestKind := matchKind(-1)
	bestLen := -1

	for _, r := range res.routes {
		for _, ru := range r.rules {
			matched, mLen := ru.match(id)
			if !matched {
				continue
			}
			// A lower kind value means higher priority.
			better := bestKind < 0 ||
				ru.kind < bestKind ||
				(ru.kind == bestKind && mLen > bestLen)
			if better {
				bestKind = ru.kind
				bestLen = mLen
				routeName = r.name
				src = r.source
				ok = true
			}
		}
	}
	return routeName, src, ok
}

// Hosts returns a copy of the ordered host candidates for src.
func (res *Resolver) Hosts(src ContentSource) []string {
	return slices.Clone(res.hosts[src])
}

func dedupe(hosts []string) []string {
	out := make([]string, 0, len(hosts))
	for _, h := range hosts {
		if h == "" || slices.Contains(out, h) {
			continue
		}
		out = append(out, h)
	}
	return out
}
