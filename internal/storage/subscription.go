package storage

import (
	"sync"

	"github.com/eventorias/eventorias/internal/event"
)

// Delivery is one push from a live query: either the full current event list
// or a subscription-level failure. Deliveries are never diffs.
type Delivery struct {
	Events []event.Event
	Err    error
}

// Subscription is a cancellable live query handle. Deliveries arrive on C in
// arrival order; Cancel detaches the backend listener and closes C, after
// which no further delivery is made.
type Subscription struct {
	C <-chan Delivery

	once   sync.Once
	cancel func()
}

// NewSubscription wires a delivery channel to a detach function. Backends
// call detach exactly once, from Cancel.
func NewSubscription(c <-chan Delivery, detach func()) *Subscription {
	return &Subscription{C: c, cancel: detach}
}

func (s *Subscription) Cancel() {
	s.once.Do(s.cancel)
}
