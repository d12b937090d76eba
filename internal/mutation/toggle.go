// Package mutation applies user actions on blogs to locally held state before
// the backend confirms them, and reconciles that state with the outcome.
package mutation

import "github.com/blognest/blognest-go/internal/model"

// Counters is one blog's reaction state as seen by the current user.
type Counters struct {
	Likes    int
	Dislikes int
	Mine     model.Interaction
}

// CountersOf reads the counters of b with the user's reaction mine.
func CountersOf(b model.Blog, mine model.Interaction) Counters {
	return Counters{Likes: b.Likes, Dislikes: b.Dislikes, Mine: mine}
}

// Apply writes the counters back onto b.
func (c Counters) Apply(b model.Blog) model.Blog {
	b.Likes = c.Likes
	b.Dislikes = c.Dislikes
	return b
}

func (c *Counters) add(kind model.Interaction, delta int) {
	switch kind {
	case model.Like:
		c.Likes += delta
	case model.Dislike:
		c.Dislikes += delta
	}
}

// Toggle applies a like or dislike to s the way the backend does: the same
// reaction twice removes it, the other reaction replaces it. It returns the
// new state and the reaction whose Toggle turns the new state back into s.
// An invalid kind leaves s unchanged and returns InteractionNone.
func Toggle(s Counters, kind model.Interaction) (Counters, model.Interaction) {
	if !kind.Valid() {
		return s, model.InteractionNone
	}

	next := s
	switch s.Mine {
	case kind:
		next.add(kind, -1)
		next.Mine = model.InteractionNone
	case model.InteractionNone:
		next.add(kind, 1)
		next.Mine = kind
	default:
		next.add(s.Mine, -1)
		next.add(kind, 1)
		next.Mine = kind
	}

	inverse := kind
	if s.Mine != model.InteractionNone {
		inverse = s.Mine
	}
	return next, inverse
}

// Pending is one optimistic toggle awaiting the backend's answer.
type Pending struct {
	BlogID   int64
	Kind     model.Interaction
	Snapshot Counters
	Inverse  model.Interaction
}

// Begin snapshots s, applies kind and returns the optimistic state.
func Begin(blogID int64, s Counters, kind model.Interaction) (Pending, Counters) {
	next, inverse := Toggle(s, kind)
	return Pending{BlogID: blogID, Kind: kind, Snapshot: s, Inverse: inverse}, next
}

// Rollback undoes the pending toggle on current.
func (p Pending) Rollback(current Counters) Counters {
	reverted, _ := Toggle(current, p.Inverse)
	return reverted
}
