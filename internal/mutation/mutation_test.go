package mutation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/blognest/blognest-go/internal/apperr"
	"github.com/blognest/blognest-go/internal/model"
)

type fakeAPI struct {
	mu      sync.Mutex
	err     error
	block   chan struct{}
	started chan struct{}
	calls   []string
	blogs   []model.Blog
	loads   int
}

func (f *fakeAPI) record(call string) (chan struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.block, f.err
}

func (f *fakeAPI) wait(block chan struct{}) {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if block != nil {
		<-block
	}
}

func (f *fakeAPI) Interact(ctx context.Context, id int64, kind model.Interaction) error {
	block, err := f.record("interact:" + string(kind))
	f.wait(block)
	return err
}

func (f *fakeAPI) DeleteBlog(ctx context.Context, id int64) error {
	_, err := f.record("delete")
	return err
}

func (f *fakeAPI) CreateBlog(ctx context.Context, in model.BlogInput) (model.Blog, error) {
	_, err := f.record("create")
	return model.Blog{ID: 99, Title: in.Title}, err
}

func (f *fakeAPI) UpdateBlog(ctx context.Context, id int64, in model.BlogInput) (model.Blog, error) {
	_, err := f.record("update")
	return model.Blog{ID: id, Title: in.Title}, err
}

func (f *fakeAPI) load(ctx context.Context) ([]model.Blog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	out := make([]model.Blog, len(f.blogs))
	copy(out, f.blogs)
	return out, nil
}

func (f *fakeAPI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeAPI) loadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loads
}

func blogAt(id int64, title, author string, daysAgo int) model.Blog {
	ts := time.Date(2026, 1, 31, 12, 0, 0, 0, time.UTC).AddDate(0, 0, -daysAgo)
	return model.Blog{
		ID:        id,
		Title:     title,
		Creator:   model.User{Username: author},
		CreatedAt: model.Timestamp{Time: ts},
	}
}

func TestItemView_LikeFailureRollsBack(t *testing.T) {
	api := &fakeAPI{err: apperr.Network("request failed", nil)}
	v := NewItemView(api, model.Blog{ID: 1, Likes: 5, Dislikes: 2}, model.InteractionNone)

	err := v.Toggle(context.Background(), model.Like)
	if !errors.Is(err, apperr.ErrNetwork) {
		t.Fatalf("Toggle() error = %v, want network error", err)
	}

	want := Counters{Likes: 5, Dislikes: 2}
	if got := v.Counters(); got != want {
		t.Errorf("Counters() = %+v, want %+v", got, want)
	}
	if v.Committed() {
		t.Error("Committed() = true after failure")
	}
}

func TestItemView_SwitchFailureRestoresPrior(t *testing.T) {
	api := &fakeAPI{err: apperr.Conflict(400, "nope")}
	v := NewItemView(api, model.Blog{ID: 1, Likes: 6, Dislikes: 2}, model.Like)

	if err := v.Toggle(context.Background(), model.Dislike); err == nil {
		t.Fatal("Toggle() error = nil")
	}

	want := Counters{Likes: 6, Dislikes: 2, Mine: model.Like}
	if got := v.Counters(); got != want {
		t.Errorf("Counters() = %+v, want %+v", got, want)
	}
}

func TestItemView_SuccessKeepsOptimisticState(t *testing.T) {
	api := &fakeAPI{}
	v := NewItemView(api, model.Blog{ID: 1, Likes: 5, Dislikes: 2}, model.InteractionNone)

	if err := v.Toggle(context.Background(), model.Like); err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}

	b := v.Blog()
	if b.Likes != 6 || b.Dislikes != 2 {
		t.Errorf("Blog() counters = %d/%d, want 6/2", b.Likes, b.Dislikes)
	}
	if !v.Committed() {
		t.Error("Committed() = false after success")
	}
}

func TestItemView_SecondToggleWhileInFlight(t *testing.T) {
	api := &fakeAPI{block: make(chan struct{}), started: make(chan struct{}, 1)}
	v := NewItemView(api, model.Blog{ID: 1, Likes: 5}, model.InteractionNone)

	done := make(chan error, 1)
	go func() {
		done <- v.Toggle(context.Background(), model.Like)
	}()
	<-api.started

	if !v.InFlight() {
		t.Error("InFlight() = false while waiting")
	}
	if err := v.Toggle(context.Background(), model.Dislike); !errors.Is(err, ErrInFlight) {
		t.Errorf("second Toggle() error = %v, want ErrInFlight", err)
	}
	if got := v.Counters(); got.Likes != 6 || got.Dislikes != 0 {
		t.Errorf("Counters() = %+v, second toggle must not apply", got)
	}

	close(api.block)
	if err := <-done; err != nil {
		t.Fatalf("first Toggle() error = %v", err)
	}
	if n := api.callCount(); n != 1 {
		t.Errorf("backend calls = %d, want 1", n)
	}
}

func TestItemView_ClosedViewSkipsRollback(t *testing.T) {
	api := &fakeAPI{
		err:     apperr.Network("request failed", nil),
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	v := NewItemView(api, model.Blog{ID: 1, Likes: 5}, model.InteractionNone)

	done := make(chan error, 1)
	go func() {
		done <- v.Toggle(context.Background(), model.Like)
	}()
	<-api.started

	v.Close()
	close(api.block)

	if err := <-done; err == nil {
		t.Fatal("Toggle() error = nil")
	}
	if got := v.Counters(); got.Likes != 6 {
		t.Errorf("Counters().Likes = %d, closed view must not be reconciled", got.Likes)
	}
}

func TestItemView_InvalidKind(t *testing.T) {
	api := &fakeAPI{}
	v := NewItemView(api, model.Blog{ID: 1}, model.InteractionNone)

	if err := v.Toggle(context.Background(), model.InteractionNone); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("Toggle() error = %v, want validation error", err)
	}
	if api.callCount() != 0 {
		t.Error("backend called for invalid kind")
	}
}

func TestGate(t *testing.T) {
	var g Gate

	release, err := g.Acquire(1)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if _, err := g.Acquire(1); !errors.Is(err, ErrInFlight) {
		t.Errorf("Acquire() same id error = %v, want ErrInFlight", err)
	}
	if _, err := g.Acquire(2); err != nil {
		t.Errorf("Acquire() other id error = %v", err)
	}

	release()
	release()
	if g.Busy(1) {
		t.Error("Busy() = true after release")
	}
	if _, err := g.Acquire(1); err != nil {
		t.Errorf("Acquire() after release error = %v", err)
	}
}

func TestFeed_RefetchOrdersLimitsAndFilters(t *testing.T) {
	api := &fakeAPI{blogs: []model.Blog{
		blogAt(1, "Oldest", "ana", 10),
		blogAt(2, "Go tips", "ben", 1),
		blogAt(3, "Newest", "ana", 0),
		blogAt(4, "More Go", "cy", 5),
	}}

	f := NewFeed(api.load, WithLimit(3))
	if err := f.Refetch(context.Background()); err != nil {
		t.Fatalf("Refetch() error = %v", err)
	}

	got := f.Items()
	wantIDs := []int64{3, 2, 4}
	if len(got) != len(wantIDs) {
		t.Fatalf("Items() len = %d, want %d", len(got), len(wantIDs))
	}
	for i, id := range wantIDs {
		if got[i].ID != id {
			t.Errorf("Items()[%d].ID = %d, want %d", i, got[i].ID, id)
		}
	}

	f.SetFilter(Filter{Term: "go", By: ByTitle})
	if err := f.Refetch(context.Background()); err != nil {
		t.Fatalf("Refetch() error = %v", err)
	}
	if got := f.Items(); len(got) != 2 {
		t.Errorf("title filter len = %d, want 2", len(got))
	}

	f.SetFilter(Filter{Term: "ANA", By: ByAuthor})
	if err := f.Refetch(context.Background()); err != nil {
		t.Fatalf("Refetch() error = %v", err)
	}
	if got := f.Items(); len(got) != 2 || got[0].ID != 3 {
		t.Errorf("author filter = %+v", got)
	}
}

func TestFeed_ClosedViewIgnoresResult(t *testing.T) {
	api := &fakeAPI{blogs: []model.Blog{blogAt(1, "a", "x", 0)}}
	f := NewFeed(api.load)
	f.Close()

	if err := f.Refetch(context.Background()); err != nil {
		t.Fatalf("Refetch() error = %v", err)
	}
	if len(f.Items()) != 0 {
		t.Error("Items() populated after Close")
	}
}

func TestFeed_RefetchErrorKeepsItems(t *testing.T) {
	fail := false
	f := NewFeed(func(ctx context.Context) ([]model.Blog, error) {
		if fail {
			return nil, apperr.Network("request failed", nil)
		}
		return []model.Blog{blogAt(1, "a", "x", 0)}, nil
	})

	if err := f.Refetch(context.Background()); err != nil {
		t.Fatalf("Refetch() error = %v", err)
	}
	fail = true
	if err := f.Refetch(context.Background()); err == nil {
		t.Fatal("Refetch() error = nil")
	}
	if len(f.Items()) != 1 {
		t.Error("Items() changed after failed refetch")
	}
}

// gatedLoader serves responses[i] to the i-th call once gates[i] is closed.
type gatedLoader struct {
	mu        sync.Mutex
	calls     int
	responses [][]model.Blog
	gates     []chan struct{}
	started   chan int
}

func newGatedLoader(responses ...[]model.Blog) *gatedLoader {
	g := &gatedLoader{responses: responses, started: make(chan int, len(responses))}
	for range responses {
		g.gates = append(g.gates, make(chan struct{}))
	}
	return g
}

func (g *gatedLoader) load(ctx context.Context) ([]model.Blog, error) {
	g.mu.Lock()
	i := g.calls
	g.calls++
	g.mu.Unlock()

	g.started <- i
	<-g.gates[i]
	return g.responses[i], nil
}

func TestFeed_LatestRefetchWins(t *testing.T) {
	older := []model.Blog{blogAt(1, "stale", "x", 0)}
	newer := []model.Blog{blogAt(2, "fresh", "y", 0)}
	loader := newGatedLoader(older, newer)
	f := NewFeed(loader.load)

	first := make(chan error, 1)
	go func() { first <- f.Refetch(context.Background()) }()
	<-loader.started

	second := make(chan error, 1)
	go func() { second <- f.Refetch(context.Background()) }()
	<-loader.started

	close(loader.gates[1])
	if err := <-second; err != nil {
		t.Fatalf("second Refetch() error = %v", err)
	}
	close(loader.gates[0])
	if err := <-first; err != nil {
		t.Fatalf("first Refetch() error = %v", err)
	}

	got := f.Items()
	if len(got) != 1 || got[0].ID != 2 {
		t.Errorf("Items() = %+v, want only the newer result", got)
	}
}

func TestFeed_SetFilterDuringRefetch(t *testing.T) {
	loader := newGatedLoader([]model.Blog{
		blogAt(1, "Go tips", "ana", 1),
		blogAt(2, "Rust", "ben", 0),
	})
	f := NewFeed(loader.load)

	done := make(chan error, 1)
	go func() { done <- f.Refetch(context.Background()) }()
	<-loader.started

	f.SetFilter(Filter{Term: "go", By: ByTitle})
	close(loader.gates[0])
	if err := <-done; err != nil {
		t.Fatalf("Refetch() error = %v", err)
	}

	// The running fetch keeps the filter it started with.
	if got := f.Items(); len(got) != 2 {
		t.Errorf("Items() len = %d, want 2", len(got))
	}
}

func TestDeleter_DeclinedDoesNotCallBackend(t *testing.T) {
	api := &fakeAPI{blogs: []model.Blog{blogAt(1, "a", "x", 0)}}
	feed := NewFeed(api.load)

	var prompt string
	d := NewDeleter(api, ConfirmFunc(func(ctx context.Context, p string) (bool, error) {
		prompt = p
		return false, nil
	}))

	if err := d.Delete(context.Background(), 1, feed); !errors.Is(err, ErrNotConfirmed) {
		t.Errorf("Delete() error = %v, want ErrNotConfirmed", err)
	}
	if prompt != DeletePrompt {
		t.Errorf("prompt = %q", prompt)
	}
	if api.callCount() != 0 {
		t.Error("backend called without confirmation")
	}
	if api.loadCount() != 0 {
		t.Error("refetched without deletion")
	}
}

func TestDeleter_NilConfirmerRefuses(t *testing.T) {
	api := &fakeAPI{}
	d := NewDeleter(api, nil)

	if err := d.Delete(context.Background(), 1, nil); !errors.Is(err, ErrNotConfirmed) {
		t.Errorf("Delete() error = %v, want ErrNotConfirmed", err)
	}
	if api.callCount() != 0 {
		t.Error("backend called without confirmer")
	}
}

func TestDeleter_ConfirmedRefetchesOnSuccess(t *testing.T) {
	api := &fakeAPI{blogs: []model.Blog{blogAt(2, "b", "x", 0)}}
	feed := NewFeed(api.load)
	yes := ConfirmFunc(func(context.Context, string) (bool, error) { return true, nil })

	if err := NewDeleter(api, yes).Delete(context.Background(), 1, feed); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if api.loadCount() != 1 {
		t.Errorf("loads = %d, want 1", api.loadCount())
	}
	if items := feed.Items(); len(items) != 1 || items[0].ID != 2 {
		t.Errorf("Items() = %+v", items)
	}
}

func TestDeleter_FailureLeavesList(t *testing.T) {
	api := &fakeAPI{blogs: []model.Blog{blogAt(1, "a", "x", 0)}}
	feed := NewFeed(api.load)
	if err := feed.Refetch(context.Background()); err != nil {
		t.Fatalf("Refetch() error = %v", err)
	}

	api.err = apperr.Conflict(403, "Not authorized to delete this blog")
	yes := ConfirmFunc(func(context.Context, string) (bool, error) { return true, nil })

	err := NewDeleter(api, yes).Delete(context.Background(), 1, feed)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("Delete() error = %v, want conflict", err)
	}
	if api.loadCount() != 1 {
		t.Errorf("loads = %d, want no refetch after failure", api.loadCount())
	}
	if len(feed.Items()) != 1 {
		t.Error("item removed after failed delete")
	}
}

func TestEditor_ValidationKeepsFormOpen(t *testing.T) {
	api := &fakeAPI{}
	e := NewEditor(api)

	_, err := e.Submit(context.Background(), model.BlogInput{Title: "t", Description: "d", Body: "b"}, nil)
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("Submit() error = %v, want validation error", err)
	}
	if !e.Open() || e.Err() == nil {
		t.Error("form closed or error not kept after validation failure")
	}
	if api.callCount() != 0 {
		t.Error("backend called with invalid input")
	}
}

func TestEditor_FailureKeepsFormOpen(t *testing.T) {
	api := &fakeAPI{err: apperr.Conflict(404, "Category not found")}
	e := NewEditor(api)

	in := model.BlogInput{Title: "t", Description: "d", Body: "b", CategoryID: 1}
	if _, err := e.Submit(context.Background(), in, nil); err == nil {
		t.Fatal("Submit() error = nil")
	}
	if !e.Open() {
		t.Error("Open() = false after failure")
	}
	if !errors.Is(e.Err(), apperr.ErrConflict) {
		t.Errorf("Err() = %v, want the backend error", e.Err())
	}
}

func TestEditor_SuccessClosesAndRefetches(t *testing.T) {
	api := &fakeAPI{}
	feed := NewFeed(api.load)
	e := EditBlog(api, model.Blog{ID: 4, Title: "old", Description: "d", Body: "b", Category: model.Category{ID: 2}})

	in := e.Input()
	if in.Title != "old" || in.CategoryID != 2 {
		t.Fatalf("Input() = %+v", in)
	}
	in.Title = "  new  "

	saved, err := e.Submit(context.Background(), in, feed)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if saved.ID != 4 || saved.Title != "new" {
		t.Errorf("Submit() = %+v", saved)
	}
	if e.Open() {
		t.Error("Open() = true after success")
	}
	if api.loadCount() != 1 {
		t.Errorf("loads = %d, want 1", api.loadCount())
	}
	if api.calls[0] != "update" {
		t.Errorf("call = %q, want update", api.calls[0])
	}
}

func TestLikedList_UnlikeFailureRestoresPosition(t *testing.T) {
	api := &fakeAPI{blogs: []model.Blog{
		blogAt(1, "a", "x", 0),
		blogAt(2, "b", "x", 1),
		blogAt(3, "c", "x", 2),
	}}
	l := NewLikedList(api, api.load)
	if err := l.Refetch(context.Background()); err != nil {
		t.Fatalf("Refetch() error = %v", err)
	}

	api.err = apperr.Network("request failed", nil)
	if err := l.Unlike(context.Background(), 2); err == nil {
		t.Fatal("Unlike() error = nil")
	}

	items := l.Items()
	if len(items) != 3 || items[1].ID != 2 {
		t.Errorf("Items() = %+v, want blog 2 back at index 1", items)
	}
}

func TestLikedList_UnlikeSuccessRemoves(t *testing.T) {
	api := &fakeAPI{blogs: []model.Blog{blogAt(1, "a", "x", 0), blogAt(2, "b", "x", 1)}}
	l := NewLikedList(api, api.load)
	if err := l.Refetch(context.Background()); err != nil {
		t.Fatalf("Refetch() error = %v", err)
	}

	if err := l.Unlike(context.Background(), 1); err != nil {
		t.Fatalf("Unlike() error = %v", err)
	}
	if items := l.Items(); len(items) != 1 || items[0].ID != 2 {
		t.Errorf("Items() = %+v", items)
	}
	if api.calls[0] != "interact:like" {
		t.Errorf("call = %q, want interact:like", api.calls[0])
	}

	if err := l.Unlike(context.Background(), 1); !errors.Is(err, ErrNotListed) {
		t.Errorf("Unlike() missing error = %v, want ErrNotListed", err)
	}
}
