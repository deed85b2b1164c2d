package gate

import "sync"

// Gate is a boolean state cell with last-value broadcast semantics.
// Subscribers receive the current value immediately on subscription and
// every subsequent change, in subscription order. Intermediate values are
// never buffered for late subscribers.
//
// All methods are safe for concurrent use. Notifications are delivered
// synchronously from the goroutine that called Set, outside the internal
// lock, so subscriber callbacks may call back into the Gate.
type Gate struct {
	mu    sync.Mutex
	value bool
	subs  []*subscription
	next  int
}

type subscription struct {
	id int
	fn func(bool)
}

// New creates a Gate holding the given initial value.
func New(initial bool) *Gate {
	return &Gate{value: initial}
}

// Value returns the current value without side effects.
func (g *Gate) Value() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.value
}

// Set stores v and, if the value changed, notifies all current subscribers
// with the new value in subscription order. Setting the same value twice is
// a no-op and produces no notifications.
func (g *Gate) Set(v bool) {
	g.mu.Lock()
	if g.value == v {
		g.mu.Unlock()
		return
	}
	g.value = v

	// Snapshot under the lock so callbacks can subscribe or unsubscribe
	// without deadlocking. A subscriber added during notification only
	// sees the value via its own replay, not this round.
	subs := make([]*subscription, len(g.subs))
	copy(subs, g.subs)
	g.mu.Unlock()

	for _, s := range subs {
		s.fn(v)
	}
}

// Subscribe registers fn and synchronously delivers the current value before
// returning (replay-latest). The returned function removes the subscription;
// it is idempotent and safe to call concurrently with Set.
func (g *Gate) Subscribe(fn func(bool)) (unsubscribe func()) {
	g.mu.Lock()
	s := &subscription{id: g.next, fn: fn}
	g.next++
	g.subs = append(g.subs, s)
	current := g.value
	g.mu.Unlock()

	fn(current)

	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		for i, sub := range g.subs {
			if sub.id == s.id {
				g.subs = append(g.subs[:i], g.subs[i+1:]...)
				return
			}
		}
	}
}
