package mutation

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/blognest/blognest-go/internal/model"
)

// View tracks whether the owner of some local state is still displayed.
// Results that arrive after Close are dropped.
type View struct {
	closed atomic.Bool
}

func (v *View) Close() {
	v.closed.Store(true)
}

func (v *View) Live() bool {
	return !v.closed.Load()
}

// Refresher re-reads a list from the backend.
type Refresher interface {
	Refetch(ctx context.Context) error
}

type SearchField int

const (
	ByTitle SearchField = iota
	ByAuthor
)

// Filter narrows a fetched list by a case-insensitive substring.
type Filter struct {
	Term string
	By   SearchField
}

func (f Filter) Match(b model.Blog) bool {
	term := strings.ToLower(strings.TrimSpace(f.Term))
	if term == "" {
		return true
	}

	field := b.Title
	if f.By == ByAuthor {
		field = b.Creator.Username
	}
	return strings.Contains(strings.ToLower(field), term)
}

// Loader fetches the full list backing a Feed.
type Loader func(ctx context.Context) ([]model.Blog, error)

type FeedOption func(*Feed)

// WithLimit keeps only the newest n blogs.
func WithLimit(n int) FeedOption {
	return func(f *Feed) { f.limit = n }
}

func WithFilter(filter Filter) FeedOption {
	return func(f *Feed) { f.filter = filter }
}

// Feed is a locally held list of blogs, newest first.
type Feed struct {
	View

	load   Loader
	limit  int
	filter Filter

	mu    sync.Mutex
	items []model.Blog
	gen   uint64
}

func NewFeed(load Loader, opts ...FeedOption) *Feed {
	f := &Feed{load: load}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Refetch replaces the list with a fresh copy from the backend. When fetches
// overlap only the most recently started one is kept. On error the current
// list is left as is.
func (f *Feed) Refetch(ctx context.Context) error {
	f.mu.Lock()
	f.gen++
	gen := f.gen
	filter := f.filter
	f.mu.Unlock()

	blogs, err := f.load(ctx)
	if err != nil {
		return err
	}

	items := make([]model.Blog, 0, len(blogs))
	for _, b := range blogs {
		if filter.Match(b) {
			items = append(items, b)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt.Time)
	})
	if f.limit > 0 && len(items) > f.limit {
		items = items[:f.limit]
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.Live() || gen != f.gen {
		return nil
	}
	f.items = items
	return nil
}

// SetFilter changes the filter used by the next Refetch.
func (f *Feed) SetFilter(filter Filter) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filter = filter
}

// Items returns a copy of the list.
func (f *Feed) Items() []model.Blog {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Blog, len(f.items))
	copy(out, f.items)
	return out
}

func (f *Feed) Find(id int64) (model.Blog, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.items {
		if b.ID == id {
			return b, true
		}
	}
	return model.Blog{}, false
}

// remove takes id out of the list and reports where it was.
func (f *Feed) remove(id int64) (model.Blog, int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, b := range f.items {
		if b.ID == id {
			f.items = append(f.items[:i:i], f.items[i+1:]...)
			return b, i, true
		}
	}
	return model.Blog{}, 0, false
}

// restore puts b back at index at, unless a refetch already brought it back.
func (f *Feed) restore(at int, b model.Blog) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, it := range f.items {
		if it.ID == b.ID {
			return
		}
	}
	if at > len(f.items) {
		at = len(f.items)
	}
	f.items = append(f.items[:at:at], append([]model.Blog{b}, f.items[at:]...)...)
}
