package rawrfetch

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/Keksclan/rawrfetch/cache"
	"github.com/Keksclan/rawrfetch/fetcherr"
	"github.com/Keksclan/rawrfetch/model"
	"github.com/Keksclan/rawrfetch/search"
	"github.com/Keksclan/rawrfetch/source"
)

// Creator returns the profile of creator id on service, from cache when a
// fresh entry exists.
func (e *Engine) Creator(ctx context.Context, service, id string) (c model.Creator, err error) {
	service = normalizeService(service)
	if service == "" || strings.TrimSpace(id) == "" {
		return model.Creator{}, fetcherr.New(fetcherr.InvalidResponse, "service and creator id are required")
	}
	src, _ := e.resolver.Resolve(service)
	key := cache.FetchKey{Source: src, Kind: cache.KindCreator, EntityID: creatorKey(service, id)}
	if c, ok := e.creators.Get(key); ok {
		return c, nil
	}

	ctx, finish := e.operation(ctx, "creator",
		attribute.String("rawrfetch.service", service),
		attribute.String("rawrfetch.source", src.String()),
	)
	defer func() { finish(err) }()

	c, err = fetch(ctx, e, src, profilePath(service, strings.TrimSpace(id)), model.DecodeCreator)
	if err != nil {
		return model.Creator{}, err
	}
	if c.Service == "" {
		c.Service = service
	}
	e.creators.Put(key, c, src)
	return c, nil
}

// CreatorByID is Creator under the name search.Directory expects.
func (e *Engine) CreatorByID(ctx context.Context, service, id string) (model.Creator, error) {
	return e.Creator(ctx, service, id)
}

// Post returns a single post.
func (e *Engine) Post(ctx context.Context, service, creatorID, postID string) (p model.Post, err error) {
	service = normalizeService(service)
	if service == "" || strings.TrimSpace(creatorID) == "" || strings.TrimSpace(postID) == "" {
		return model.Post{}, fetcherr.New(fetcherr.InvalidResponse, "service, creator id and post id are required")
	}
	src, _ := e.resolver.Resolve(service)
	key := cache.FetchKey{
		Source:   src,
		Kind:     cache.KindPost,
		EntityID: creatorKey(service, creatorID) + "/" + strings.TrimSpace(postID),
	}
	if p, ok := e.posts.Get(key); ok {
		return p, nil
	}

	ctx, finish := e.operation(ctx, "post",
		attribute.String("rawrfetch.service", service),
		attribute.String("rawrfetch.source", src.String()),
	)
	defer func() { finish(err) }()

	p, err = fetch(ctx, e, src, postPath(service, strings.TrimSpace(creatorID), strings.TrimSpace(postID)), model.DecodePost)
	if err != nil {
		return model.Post{}, err
	}
	e.posts.Put(key, p, src)
	return p, nil
}

// SearchByName searches creators by name on service, or on both sources
// when service selects all services. With all services the search fails
// only when both sources fail. Results warm the creator cache.
func (e *Engine) SearchByName(ctx context.Context, query, service string) (out []model.Creator, err error) {
	query = strings.TrimSpace(query)
	service = normalizeService(service)
	if search.AllServices(service) {
		service = ""
	}

	var sources []source.ContentSource
	if service == "" {
		sources = source.All()
	} else {
		src, _ := e.resolver.Resolve(service)
		sources = []source.ContentSource{src}
	}

	ctx, finish := e.operation(ctx, "search",
		attribute.String("rawrfetch.service", service),
		attribute.Int("rawrfetch.sources", len(sources)),
	)
	defer func() { finish(err) }()

	var errs []error
	seen := make(map[string]bool)
	for _, src := range sources {
		list, err := e.searchSource(ctx, src, query, service)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			errs = append(errs, err)
			continue
		}
		for _, c := range list {
			if !seen[c.Key()] {
				seen[c.Key()] = true
				out = append(out, c)
			}
		}
	}
	if len(errs) == len(sources) {
		return nil, errors.Join(errs...)
	}
	if len(errs) > 0 {
		e.log.Warn("search partially failed",
			zap.String("query", query),
			zap.Error(errors.Join(errs...)),
		)
	}
	return out, nil
}

func (e *Engine) searchSource(ctx context.Context, src source.ContentSource, query, service string) ([]model.Creator, error) {
	key := cache.FetchKey{Source: src, Kind: cache.KindSearch, EntityID: service + "?" + strings.ToLower(query)}
	if list, ok := e.searches.Get(key); ok {
		return list, nil
	}

	list, err := fetch(ctx, e, src, searchPath(query, service), model.DecodeCreators)
	if err != nil {
		return nil, err
	}
	e.searches.Put(key, list, src)
	for _, c := range list {
		if c.Service == "" {
			continue
		}
		csrc, _ := e.resolver.Resolve(c.Service)
		ck := cache.FetchKey{Source: csrc, Kind: cache.KindCreator, EntityID: creatorKey(normalizeService(c.Service), string(c.ID))}
		e.creators.Put(ck, c, csrc)
	}
	return list, nil
}

// CachedCreators returns every fresh creator in the cache, oldest first.
func (e *Engine) CachedCreators() []model.Creator {
	return e.creators.Values()
}

// SearchCreators runs the search strategy: numeric queries on a specific
// service are direct ID lookups, everything else is a name search that
// degrades to the creator cache when the network fails. At most
// config.SearchConfig.TopN creators are returned.
func (e *Engine) SearchCreators(ctx context.Context, query, service string) ([]model.Creator, error) {
	return e.strategy.Search(ctx, query, normalizeService(service))
}

// SearchHistory returns the recent successful queries, newest first.
func (e *Engine) SearchHistory() []search.Query {
	return e.history.List()
}

// InvalidateCreator drops the cached profile, post pages and single posts
// of a creator on every source. It returns the number of removed entries.
func (e *Engine) InvalidateCreator(service, id string) int {
	ck := creatorKey(normalizeService(service), id)
	prefix := ck + "/"

	n := e.creators.InvalidateFunc(func(k cache.FetchKey, _ source.ContentSource) bool {
		return k.EntityID == ck
	})
	n += e.pages.InvalidateFunc(func(k cache.FetchKey, _ source.ContentSource) bool {
		return k.Kind == cache.KindPosts && k.EntityID == ck
	})
	n += e.posts.InvalidateFunc(func(k cache.FetchKey, _ source.ContentSource) bool {
		return strings.HasPrefix(k.EntityID, prefix)
	})
	return n
}
