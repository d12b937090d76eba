package mutation

import (
	"errors"
	"sync"
)

var ErrInFlight = errors.New("a change to this blog is still in progress")

// Gate admits at most one in-flight mutation per blog. The zero value is
// ready to use.
type Gate struct {
	mu   sync.Mutex
	busy map[int64]struct{}
}

// Acquire claims id. It fails with ErrInFlight while another claim on id is
// held. The returned func releases the claim and is safe to call twice.
func (g *Gate) Acquire(id int64) (release func(), err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.busy == nil {
		g.busy = make(map[int64]struct{})
	}
	if _, ok := g.busy[id]; ok {
		return nil, ErrInFlight
	}
	g.busy[id] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			defer g.mu.Unlock()
			delete(g.busy, id)
		})
	}, nil
}

// Busy reports whether a mutation on id is in flight.
func (g *Gate) Busy(id int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.busy[id]
	return ok
}
