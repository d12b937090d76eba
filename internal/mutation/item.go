package mutation

import (
	"context"
	"strconv"
	"sync"

	"github.com/blognest/blognest-go/internal/apperr"
	"github.com/blognest/blognest-go/internal/model"
)

// Interactor sends a like or dislike toggle to the backend.
type Interactor interface {
	Interact(ctx context.Context, id int64, kind model.Interaction) error
}

// ItemView is the detail view of one blog. Reactions are shown immediately
// and undone if the backend refuses them.
type ItemView struct {
	View

	api  Interactor
	gate Gate

	mu        sync.Mutex
	blog      model.Blog
	counters  Counters
	committed bool
}

// NewItemView opens blog with the user's current reaction mine. Pass
// InteractionNone when it is not known.
func NewItemView(api Interactor, blog model.Blog, mine model.Interaction) *ItemView {
	return &ItemView{
		api:      api,
		blog:     blog,
		counters: CountersOf(blog, mine),
	}
}

// Blog returns the blog with the locally held counters.
func (v *ItemView) Blog() model.Blog {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.counters.Apply(v.blog)
}

func (v *ItemView) Counters() Counters {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.counters
}

// Committed reports whether any reaction was accepted by the backend, in
// which case the owning list should refetch when this view closes.
func (v *ItemView) Committed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.committed
}

// Toggle applies kind optimistically and sends it. While one toggle is in
// flight a second returns ErrInFlight without touching any state. On failure
// the optimistic change is undone, unless the view has been closed, and the
// backend's error is returned.
func (v *ItemView) Toggle(ctx context.Context, kind model.Interaction) error {
	if !kind.Valid() {
		return apperr.Validation("unknown interaction " + strconv.Quote(string(kind)))
	}

	release, err := v.gate.Acquire(v.blog.ID)
	if err != nil {
		return err
	}
	defer release()

	v.mu.Lock()
	pending, next := Begin(v.blog.ID, v.counters, kind)
	v.counters = next
	v.mu.Unlock()

	if err := v.api.Interact(ctx, pending.BlogID, pending.Kind); err != nil {
		if v.Live() {
			v.mu.Lock()
			v.counters = pending.Rollback(v.counters)
			v.mu.Unlock()
		}
		return err
	}

	v.mu.Lock()
	v.committed = true
	v.mu.Unlock()
	return nil
}

// InFlight reports whether a toggle is waiting on the backend.
func (v *ItemView) InFlight() bool {
	return v.gate.Busy(v.blog.ID)
}
