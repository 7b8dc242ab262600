package memorystorage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/eventorias/eventorias/internal/event"
	"github.com/eventorias/eventorias/internal/storage"
	"github.com/google/uuid"
)

// Storage keeps encoded documents in memory. It is the reference backend for
// tests and single-process runs: live queries are served by per-subscription
// goroutines that re-read the collection on every mutation.
type Storage struct {
	mu        sync.RWMutex
	docs      map[string]map[string]any
	listeners map[int]*listener
	listenSeq int
}

type listener struct {
	opt    event.SortOption
	notify chan struct{} // capacity 1, coalesces pending change signals
	done   chan struct{}
}

func New() *Storage {
	return &Storage{
		docs:      make(map[string]map[string]any),
		listeners: make(map[int]*listener),
	}
}

func (s *Storage) Connect(_ context.Context) error {
	return nil
}

func (s *Storage) Close(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, l := range s.listeners {
		close(l.done)
		delete(s.listeners, id)
	}
	return nil
}

func (s *Storage) Subscribe(_ context.Context, opt event.SortOption) (*storage.Subscription, error) {
	l := &listener{
		opt:    opt,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	l.notify <- struct{}{} // initial snapshot

	s.mu.Lock()
	s.listenSeq++
	id := s.listenSeq
	s.listeners[id] = l
	s.mu.Unlock()

	out := make(chan storage.Delivery)
	go s.deliver(l, out)

	return storage.NewSubscription(out, func() {
		s.mu.Lock()
		if _, ok := s.listeners[id]; ok {
			close(l.done)
			delete(s.listeners, id)
		}
		s.mu.Unlock()
	}), nil
}

// deliver pushes a fresh snapshot for every coalesced change signal until the
// listener is detached, then closes out.
func (s *Storage) deliver(l *listener, out chan<- storage.Delivery) {
	defer close(out)
	for {
		select {
		case <-l.done:
			return
		case <-l.notify:
			d := storage.Delivery{Events: s.snapshot(l.opt)}
			select {
			case out <- d:
			case <-l.done:
				return
			}
		}
	}
}

func (s *Storage) AddEvent(_ context.Context, e *event.Event) (string, error) {
	s.mu.Lock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if _, ok := s.docs[e.ID]; ok {
		s.mu.Unlock()
		return "", fmt.Errorf("duplicate ID %q: %w", e.ID, storage.ErrDuplicateEventID)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	s.docs[e.ID] = event.Encode(*e)
	s.mu.Unlock()

	s.notifyAll()
	return e.ID, nil
}

func (s *Storage) GetEvent(_ context.Context, id string) (event.Event, error) {
	s.mu.RLock()
	doc, ok := s.docs[id]
	s.mu.RUnlock()
	if !ok {
		return event.Event{}, fmt.Errorf("failed to get event with id %q: %w", id, storage.ErrNotFoundEvent)
	}
	e, ok := event.Decode(doc)
	if !ok {
		return event.Event{}, fmt.Errorf("failed to decode event with id %q: %w", id, storage.ErrNotFoundEvent)
	}
	return e, nil
}

func (s *Storage) UpdateEvent(_ context.Context, id string, e event.Event) error {
	s.mu.Lock()
	prev, ok := s.docs[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("failed to update event with id %q: %w", id, storage.ErrNotFoundEvent)
	}
	e.ID = id
	if e.CreatedAt.IsZero() {
		if existing, ok := event.Decode(prev); ok {
			e.CreatedAt = existing.CreatedAt
		}
	}
	s.docs[id] = event.Encode(e)
	s.mu.Unlock()

	s.notifyAll()
	return nil
}

func (s *Storage) RemoveEvent(_ context.Context, id string) error {
	s.mu.Lock()
	if _, ok := s.docs[id]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("failed to remove event with id %q: %w", id, storage.ErrNotFoundEvent)
	}
	delete(s.docs, id)
	s.mu.Unlock()

	s.notifyAll()
	return nil
}

func (s *Storage) ListEvents(_ context.Context, opt event.SortOption) ([]event.Event, error) {
	return s.snapshot(opt), nil
}

// snapshot decodes the whole collection, dropping undecodable documents.
func (s *Storage) snapshot(opt event.SortOption) []event.Event {
	s.mu.RLock()
	events := make([]event.Event, 0, len(s.docs))
	for _, doc := range s.docs {
		if e, ok := event.Decode(doc); ok {
			events = append(events, e)
		}
	}
	s.mu.RUnlock()

	event.Sort(events, opt)
	return events
}

func (s *Storage) notifyAll() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.listeners {
		select {
		case l.notify <- struct{}{}:
		default: // a change signal is already pending
		}
	}
}
