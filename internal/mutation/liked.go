package mutation

import (
	"context"
	"errors"

	"github.com/blognest/blognest-go/internal/model"
)

var ErrNotListed = errors.New("blog is not in the list")

// LikedList is the user's liked blogs. Unliking removes the entry at once
// and puts it back if the backend refuses.
type LikedList struct {
	*Feed

	api  Interactor
	gate Gate
}

func NewLikedList(api Interactor, load Loader) *LikedList {
	return &LikedList{Feed: NewFeed(load), api: api}
}

// Unlike removes id and sends a like toggle, which the backend treats as
// removing the like.
func (l *LikedList) Unlike(ctx context.Context, id int64) error {
	release, err := l.gate.Acquire(id)
	if err != nil {
		return err
	}
	defer release()

	blog, at, ok := l.remove(id)
	if !ok {
		return ErrNotListed
	}

	if err := l.api.Interact(ctx, id, model.Like); err != nil {
		if l.Live() {
			l.restore(at, blog)
		}
		return err
	}
	return nil
}
