package source

import "regexp"

// matchKind distinguishes the three matching strategies.
type matchKind int

const (
	kindExact  matchKind = iota // highest priority
	kindPrefix                  // medium priority
	kindRegex                   // lowest priority
)

// rule is a single matching rule inside a route.
type rule struct {
	kind    matchKind
	pattern string         // used for exact and prefix matches
	re      *regexp.Regexp // used for regex matches
}

// RouteBuilder collects service-ID rules that send matching services to one
// content source.
type RouteBuilder struct {
	name   string
	rules  []rule
	source ContentSource
}

// Route starts building a new named route. Until To is called the route
// targets Primary.
func Route(name string) *RouteBuilder {
	return &RouteBuilder{name: name}
}

// Exact adds an exact-match rule. Service IDs are compared lowercased.
func (r *RouteBuilder) Exact(services ...string) *RouteBuilder {
	for _, s := range services {
		r.rules = append(r.rules, rule{kind: kindExact, pattern: normalize(s)})
	}
	return r
}

// Prefix adds a prefix-match rule.
func (r *RouteBuilder) Prefix(pattern string) *RouteBuilder {
	r.rules = append(r.rules, rule{kind: kindPrefix, pattern: normalize(pattern)})
	return r
}

// Regex adds a regex-match rule. The pattern is compiled immediately; an
// invalid regex will panic.
func (r *RouteBuilder) Regex(pattern string) *RouteBuilder {
	r.rules = append(r.rules, rule{kind: kindRegex, pattern: pattern, re: regexp.MustCompile(pattern)})
	return r
}

// To sets the content source the route resolves to.
func (r *RouteBuilder) To(src ContentSource) *RouteBuilder {
	r.source = src
	return r
}
