package paginate

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Keksclan/rawrfetch/cache"
	"github.com/Keksclan/rawrfetch/fetcherr"
	"github.com/Keksclan/rawrfetch/source"
)

var postsKey = Key{Source: source.Primary, Kind: cache.KindPosts, EntityID: "svc/alice"}

// pagesFetch serves the given page sizes in order, numbering items
// consecutively, and then empty pages.
func pagesFetch(sizes ...int) (FetchFunc[int], *int) {
	calls := 0
	next := 0
	return func(_ context.Context, req Request) ([]int, error) {
		offset := req.Offset
		calls++
		if calls > len(sizes) {
			return nil, nil
		}
		if offset != next {
			return nil, errors.New("unexpected offset")
		}
		page := make([]int, sizes[calls-1])
		for i := range page {
			page[i] = next + i
		}
		next += len(page)
		return page, nil
	}, &calls
}

func TestCursor_ShortPageEndsListing(t *testing.T) {
	fetch, _ := pagesFetch(50, 50, 30)
	c := New(postsKey, Config{PageSize: 50, MaxBufferedItems: 200}, fetch)

	for i, want := range []int{50, 50, 30} {
		n, err := c.LoadMore(t.Context())
		if err != nil {
			t.Fatalf("load %d: %v", i+1, err)
		}
		if n != want {
			t.Fatalf("load %d appended %d, want %d", i+1, n, want)
		}
	}

	if c.HasMore() {
		t.Fatal("HasMore should be false after a short page")
	}
	if got := len(c.Items()); got != 130 {
		t.Fatalf("len(Items) = %d, want 130", got)
	}
	if c.Offset() != 130 {
		t.Fatalf("Offset = %d, want 130", c.Offset())
	}

	// Exhausted listings do not fetch again until reset.
	if n, err := c.LoadMore(t.Context()); n != 0 || err != nil {
		t.Fatalf("LoadMore after end = (%d, %v), want (0, nil)", n, err)
	}
}

func TestCursor_EmptyPageEndsListing(t *testing.T) {
	fetch, calls := pagesFetch(10)
	c := New(postsKey, Config{PageSize: 10, MaxBufferedItems: 100}, fetch)

	if _, err := c.LoadMore(t.Context()); err != nil {
		t.Fatal(err)
	}
	if !c.HasMore() {
		t.Fatal("full page should keep HasMore")
	}
	if n, err := c.LoadMore(t.Context()); n != 0 || err != nil {
		t.Fatalf("empty page = (%d, %v)", n, err)
	}
	if c.HasMore() {
		t.Fatal("empty page should clear HasMore")
	}
	c.LoadMore(t.Context())
	if *calls != 2 {
		t.Fatalf("fetch called %d times, want 2", *calls)
	}

	c.Reset()
	if !c.HasMore() || c.Offset() != 0 || len(c.Items()) != 0 {
		t.Fatal("Reset did not restore the initial state")
	}
}

func TestCursor_OffsetMonotonic(t *testing.T) {
	fetch, _ := pagesFetch(5, 5, 5, 5, 2)
	c := New(postsKey, Config{PageSize: 5, MaxBufferedItems: 8}, fetch)

	prev := 0
	for c.HasMore() {
		n, err := c.LoadMore(t.Context())
		if err != nil {
			t.Fatal(err)
		}
		if got := c.Offset(); got != prev+n {
			t.Fatalf("Offset = %d, want %d", got, prev+n)
		}
		prev = c.Offset()
	}
}

func TestCursor_KeepsLastN(t *testing.T) {
	fetch, _ := pagesFetch(50, 50, 50, 50, 50)
	c := New(postsKey, Config{PageSize: 50, MaxBufferedItems: 200}, fetch)

	for range 5 {
		if _, err := c.LoadMore(t.Context()); err != nil {
			t.Fatal(err)
		}
		if n := len(c.Items()); n > 200 {
			t.Fatalf("buffer grew to %d", n)
		}
	}

	items := c.Items()
	if len(items) != 200 {
		t.Fatalf("len = %d, want 200", len(items))
	}
	for i, v := range items {
		if v != 50+i {
			t.Fatalf("items[%d] = %d, want %d", i, v, 50+i)
		}
	}
	if c.Offset() != 250 {
		t.Fatalf("Offset = %d, want 250", c.Offset())
	}
}

func TestCursor_GuardClearedOnError(t *testing.T) {
	fail := true
	fetch := func(context.Context, Request) ([]int, error) {
		if fail {
			return nil, fetcherr.New(fetcherr.ServerUnavailable, "503")
		}
		return []int{1, 2}, nil
	}
	c := New(postsKey, Config{PageSize: 2}, fetch)

	if _, err := c.LoadMore(t.Context()); err == nil {
		t.Fatal("expected error")
	}
	if c.Loading() {
		t.Fatal("guard stuck after failure")
	}
	if c.Offset() != 0 || !c.HasMore() {
		t.Fatal("failed load changed cursor state")
	}

	fail = false
	if n, err := c.LoadMore(t.Context()); n != 2 || err != nil {
		t.Fatalf("retry load = (%d, %v), want (2, nil)", n, err)
	}
}

func TestCursor_OverlappingLoadIsNoop(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls int
	var mu sync.Mutex
	fetch := func(context.Context, Request) ([]int, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		close(started)
		<-release
		return []int{1}, nil
	}
	c := New(postsKey, Config{PageSize: 1}, fetch)

	done := make(chan error, 1)
	go func() {
		_, err := c.LoadMore(context.Background())
		done <- err
	}()
	<-started

	if !c.Loading() {
		t.Fatal("Loading should be true while in flight")
	}
	if n, err := c.LoadMore(t.Context()); n != 0 || err != nil {
		t.Fatalf("overlapping load = (%d, %v), want (0, nil)", n, err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Fatalf("fetch called %d times, want 1", calls)
	}
}

func TestCursor_SetSourceDiscardsStalePage(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var seen []source.ContentSource
	var mu sync.Mutex
	fetch := func(_ context.Context, req Request) ([]int, error) {
		mu.Lock()
		seen = append(seen, req.Source)
		first := len(seen) == 1
		mu.Unlock()
		if first {
			close(started)
			<-release
			return []int{100, 101}, nil
		}
		return []int{1, 2}, nil
	}
	c := New(postsKey, Config{PageSize: 2}, fetch)

	done := make(chan error, 1)
	go func() {
		_, err := c.LoadMore(context.Background())
		done <- err
	}()
	<-started

	if !c.SetSource(source.Secondary) {
		t.Fatal("SetSource should report a change")
	}
	// The guard belongs to the new source now.
	if n, err := c.LoadMore(t.Context()); n != 2 || err != nil {
		t.Fatalf("load on new source = (%d, %v), want (2, nil)", n, err)
	}

	close(release)
	if err := <-done; !errors.Is(err, ErrStale) {
		t.Fatalf("old load err = %v, want ErrStale", err)
	}

	items := c.Items()
	if len(items) != 2 || items[0] != 1 {
		t.Fatalf("stale page merged: %v", items)
	}
	if c.Key().Source != source.Secondary {
		t.Fatal("cursor key not updated")
	}
	mu.Lock()
	defer mu.Unlock()
	if seen[1] != source.Secondary {
		t.Fatalf("second fetch went to %v", seen[1])
	}
}

func TestCursor_SetSameSourceKeepsState(t *testing.T) {
	fetch, _ := pagesFetch(3)
	c := New(postsKey, Config{PageSize: 3}, fetch)
	c.LoadMore(t.Context())

	if c.SetSource(source.Primary) {
		t.Fatal("same source reported as change")
	}
	if len(c.Items()) != 3 {
		t.Fatal("SetSource with the same source cleared items")
	}
}

func TestCursor_Refresh(t *testing.T) {
	calls := 0
	fetch := func(_ context.Context, req Request) ([]int, error) {
		calls++
		if req.Offset != 0 {
			return []int{req.Offset}, nil
		}
		return []int{calls, calls}, nil
	}
	c := New(postsKey, Config{PageSize: 2}, fetch)
	c.LoadMore(t.Context())
	c.LoadMore(t.Context())

	n, err := c.Refresh(t.Context())
	if err != nil || n != 2 {
		t.Fatalf("Refresh = (%d, %v), want (2, nil)", n, err)
	}
	if got := c.Items(); len(got) != 2 || got[0] != 3 {
		t.Fatalf("items after refresh = %v", got)
	}
	if c.Offset() != 2 {
		t.Fatalf("Offset = %d, want 2", c.Offset())
	}
}

func TestCursor_ItemsIsACopy(t *testing.T) {
	fetch, _ := pagesFetch(2)
	c := New(postsKey, Config{PageSize: 2}, fetch)
	c.LoadMore(t.Context())

	items := c.Items()
	items[0] = -1
	if c.Items()[0] == -1 {
		t.Fatal("Items exposes internal buffer")
	}
}

func TestKey_Page(t *testing.T) {
	got := postsKey.Page(100, 50)
	want := cache.FetchKey{Source: source.Primary, Kind: cache.KindPosts, EntityID: "svc/alice", Offset: 100, Limit: 50}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestCursor_RequestCarriesPageSize(t *testing.T) {
	var got []Request
	fetch := func(_ context.Context, req Request) ([]int, error) {
		got = append(got, req)
		return make([]int, req.Limit), nil
	}
	c := New(postsKey, Config{PageSize: 100, MaxBufferedItems: 500}, fetch)
	for range 2 {
		if _, err := c.LoadMore(t.Context()); err != nil {
			t.Fatal(err)
		}
	}

	if len(got) != 2 || got[0].Limit != 100 || got[1].Offset != 100 || got[1].Limit != 100 {
		t.Fatalf("requests = %+v", got)
	}
	if !c.HasMore() {
		t.Fatal("full pages should keep the listing open")
	}
}

func TestCursor_IfCurrent(t *testing.T) {
	var gen uint64
	fetch := func(_ context.Context, req Request) ([]int, error) {
		gen = req.Generation
		return []int{1}, nil
	}
	c := New(postsKey, Config{PageSize: 2}, fetch)
	if _, err := c.LoadMore(t.Context()); err != nil {
		t.Fatal(err)
	}

	called := false
	if !c.IfCurrent(gen, func() { called = true }) || !called {
		t.Fatal("fn not called for the current generation")
	}

	c.Reset()
	called = false
	if c.IfCurrent(gen, func() { called = true }) || called {
		t.Fatal("fn called after Reset")
	}
}
