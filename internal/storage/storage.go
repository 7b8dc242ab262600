package storage

import (
	"context"
	"errors"

	"github.com/eventorias/eventorias/internal/event"
)

var (
	ErrDuplicateEventID = errors.New("event with same ID exists")
	ErrNotFoundEvent    = errors.New("event not found")
	ErrConnectionFailed = errors.New("failed to connect")
)

// Storage is a subscription-capable document collection of events. Documents
// are encoded and decoded with the event codec; a document that fails to
// decode is dropped from results, never surfaced partially.
type Storage interface {
	Connect(ctx context.Context) error
	Close(ctx context.Context) error

	// Subscribe opens a live query: the full current result set, ordered per
	// opt, is delivered on every change of the underlying collection.
	Subscribe(ctx context.Context, opt event.SortOption) (*Subscription, error)

	// AddEvent persists e as a new document and returns its ID. An empty ID
	// gets a fresh UUID; a zero CreatedAt is resolved to the backend's write
	// time.
	AddEvent(ctx context.Context, e *event.Event) (string, error)

	GetEvent(ctx context.Context, id string) (event.Event, error)
	UpdateEvent(ctx context.Context, id string, e event.Event) error
	RemoveEvent(ctx context.Context, id string) error

	// ListEvents is the single-shot counterpart of Subscribe.
	ListEvents(ctx context.Context, opt event.SortOption) ([]event.Event, error)
}
