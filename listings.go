package rawrfetch

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/Keksclan/rawrfetch/cache"
	"github.com/Keksclan/rawrfetch/fetcherr"
	"github.com/Keksclan/rawrfetch/model"
	"github.com/Keksclan/rawrfetch/paginate"
	"github.com/Keksclan/rawrfetch/source"
	"github.com/Keksclan/rawrfetch/transport"
)

// Cursor is a pagination cursor over posts.
type Cursor = paginate.Cursor[model.Post]

// Posts returns the cursor of a creator's posts, creating it on first use.
// The same cursor is returned until ClosePosts.
func (e *Engine) Posts(service, creatorID string) *Cursor {
	service = normalizeService(service)
	id := creatorKey(service, creatorID)

	e.mu.Lock()
	defer e.mu.Unlock()
	if c, ok := e.listings[id]; ok {
		return c
	}

	src, _ := e.resolver.Resolve(service)
	key := paginate.Key{Source: src, Kind: cache.KindPosts, EntityID: id}
	var cur *Cursor
	cur = paginate.New(key, e.cfg.Pagination, e.pageFetcher(func() *Cursor { return cur }, func(offset, limit int) string {
		return postsPath(service, creatorID, offset, limit)
	}), e.cursorOptions()...)
	e.listings[id] = cur
	return cur
}

// LoadPosts opens a creator's listing: it loads the first page unless the
// cursor already holds items, and returns the buffered posts.
func (e *Engine) LoadPosts(ctx context.Context, service, creatorID string) ([]model.Post, error) {
	cur := e.Posts(service, creatorID)
	if cur.Offset() == 0 {
		if _, err := e.loadPage(ctx, cur, "posts"); err != nil {
			return nil, err
		}
	}
	return cur.Items(), nil
}

// LoadMorePosts appends the next page of a creator's posts and returns the
// number of appended posts. It returns 0 while another load is in flight or
// after the last page.
func (e *Engine) LoadMorePosts(ctx context.Context, service, creatorID string) (int, error) {
	return e.loadPage(ctx, e.Posts(service, creatorID), "posts")
}

// RefreshPosts drops the cached pages of a creator's listing and reloads it
// from the first page, bypassing the transport memo.
func (e *Engine) RefreshPosts(ctx context.Context, service, creatorID string) (int, error) {
	cur := e.Posts(service, creatorID)
	cur.Reset()
	e.dropPages(cur.Key())
	return e.loadPage(transport.Bypass(ctx), cur, "posts")
}

// ClosePosts forgets a creator's cursor. A load still in flight completes
// against the detached cursor.
func (e *Engine) ClosePosts(service, creatorID string) {
	id := creatorKey(normalizeService(service), creatorID)
	e.mu.Lock()
	delete(e.listings, id)
	e.mu.Unlock()
}

// Recent returns the cursor of the recent posts feed on the active source.
func (e *Engine) Recent() *Cursor {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.recent == nil {
		key := paginate.Key{Source: e.active, Kind: cache.KindRecent}
		var cur *Cursor
		cur = paginate.New(key, e.cfg.Pagination, e.pageFetcher(func() *Cursor { return cur }, recentPath), e.cursorOptions()...)
		e.recent = cur
	}
	return e.recent
}

// LoadRecent appends the next page of the recent feed.
func (e *Engine) LoadRecent(ctx context.Context) (int, error) {
	return e.loadPage(ctx, e.Recent(), "recent")
}

// RefreshRecent reloads the recent feed from the first page, bypassing the
// transport memo.
func (e *Engine) RefreshRecent(ctx context.Context) (int, error) {
	cur := e.Recent()
	cur.Reset()
	e.dropPages(cur.Key())
	return e.loadPage(transport.Bypass(ctx), cur, "recent")
}

// ActiveSource returns the source the recent feed is read from.
func (e *Engine) ActiveSource() source.ContentSource {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// SwitchSource moves the recent feed to src. Buffered items are cleared and
// a page still in flight for the previous source is discarded when it
// completes; it is neither merged nor cached. It reports whether the source
// changed.
func (e *Engine) SwitchSource(src source.ContentSource) bool {
	e.mu.Lock()
	if e.active == src {
		e.mu.Unlock()
		return false
	}
	prev := e.active
	e.active = src
	cur := e.recent
	e.mu.Unlock()

	if cur != nil {
		cur.SetSource(src)
	}
	e.log.Info("content source switched",
		zap.Stringer("from", prev),
		zap.Stringer("to", src),
	)
	return true
}

func (e *Engine) cursorOptions() []paginate.Option[model.Post] {
	return []paginate.Option[model.Post]{
		paginate.WithClone(model.ClonePosts),
		paginate.WithMetrics[model.Post](e.metrics),
	}
}

// pageFetcher builds the fetch function of a cursor. Pages come from the
// page cache when fresh. A fetched page is cached only if the cursor is still
// in the generation the load started under, so pages of a listing that was
// reset, refreshed or switched to another source are never cached.
func (e *Engine) pageFetcher(cursor func() *Cursor, path func(offset, limit int) string) paginate.FetchFunc[model.Post] {
	return func(ctx context.Context, req paginate.Request) ([]model.Post, error) {
		key := cursor().Key()
		key.Source = req.Source
		ck := key.Page(req.Offset, req.Limit)
		if page, ok := e.pages.Get(ck); ok {
			return page, nil
		}

		page, err := fetch(ctx, e, req.Source, path(req.Offset, req.Limit), model.DecodePosts)
		if err != nil {
			return nil, err
		}
		cursor().IfCurrent(req.Generation, func() {
			e.pages.Put(ck, page, req.Source)
		})
		return page, nil
	}
}

func (e *Engine) loadPage(ctx context.Context, cur *Cursor, name string) (n int, err error) {
	key := cur.Key()
	ctx, finish := e.operation(ctx, name,
		attribute.String("rawrfetch.listing", key.EntityID),
		attribute.String("rawrfetch.source", key.Source.String()),
		attribute.Int("rawrfetch.offset", cur.Offset()),
	)
	defer func() { finish(err) }()

	n, err = cur.LoadMore(ctx)
	if errors.Is(err, paginate.ErrStale) {
		e.log.Debug("stale page discarded",
			zap.String("listing", key.String()),
		)
		return 0, err
	}
	if err != nil && !errors.As(err, new(*fetcherr.Error)) {
		err = fetcherr.Classify(err)
	}
	return n, err
}

func (e *Engine) dropPages(key paginate.Key) {
	e.pages.InvalidateFunc(func(k cache.FetchKey, _ source.ContentSource) bool {
		return k.Source == key.Source && k.Kind == key.Kind && k.EntityID == key.EntityID
	})
}
