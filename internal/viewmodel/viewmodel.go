package viewmodel

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/eventorias/eventorias/internal/event"
	"github.com/eventorias/eventorias/internal/storage"
)

// User-facing error messages. "Event not found" and transport failures stay
// distinguishable by text.
const (
	errFetchEvents      = "An error occurred,\nplease try again later"
	errFetchSorted      = "Error fetching events"
	errEventNotFound    = "Event not found"
	errFetchEventPrefix = "Error fetching event: "
	errAddEventPrefix   = "Failed to add event: "
	errUpdatePrefix     = "Failed to update event: "
	errDeletePrefix     = "Failed to delete event: "
	errNoEventID        = "Event ID not set"
)

// EventViewModel is the single source of truth for the visible event list,
// the selected single event and the last error. It owns at most one active
// list subscription at a time: every Fetch* call cancels the previous one
// before opening the next.
type EventViewModel struct {
	store storage.Storage

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	events  []event.Event
	current *event.Event
	errMsg  string
	loading bool
	listSub *storage.Subscription
	listGen int

	updates chan struct{}
}

func New(store storage.Storage) *EventViewModel {
	ctx, cancel := context.WithCancel(context.Background())
	return &EventViewModel{
		store:   store,
		ctx:     ctx,
		cancel:  cancel,
		updates: make(chan struct{}, 1),
	}
}

// Updates signals, coalesced, whenever published state changed.
func (vm *EventViewModel) Updates() <-chan struct{} {
	return vm.updates
}

// Events returns a snapshot copy of the current list.
func (vm *EventViewModel) Events() []event.Event {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	out := make([]event.Event, len(vm.events))
	copy(out, vm.events)
	return out
}

// Event returns the selected single event, if one is loaded.
func (vm *EventViewModel) Event() (event.Event, bool) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.current == nil {
		return event.Event{}, false
	}
	return *vm.current, true
}

func (vm *EventViewModel) Err() string {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.errMsg
}

func (vm *EventViewModel) Loading() bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.loading
}

// FetchEvents opens the unsorted live subscription. Each delivery replaces
// the list verbatim.
func (vm *EventViewModel) FetchEvents() {
	vm.resubscribe(event.SortNone, errFetchEvents)
}

// FetchEventsBySortOption opens the subscription matching the given option.
// Unrecognized options fall back to the unsorted subscription.
func (vm *EventViewModel) FetchEventsBySortOption(sortOption string) {
	opt := event.ParseSortOption(sortOption)
	if opt == event.SortNone {
		vm.FetchEvents()
		return
	}
	vm.resubscribe(opt, errFetchSorted)
}

func (vm *EventViewModel) resubscribe(opt event.SortOption, failMsg string) {
	vm.mu.Lock()
	if vm.listSub != nil {
		vm.listSub.Cancel()
		vm.listSub = nil
	}
	vm.listGen++
	gen := vm.listGen
	vm.loading = true
	vm.mu.Unlock()
	vm.notify()

	sub, err := vm.store.Subscribe(vm.ctx, opt)
	if err != nil {
		vm.mu.Lock()
		if gen == vm.listGen {
			vm.errMsg = failMsg
			vm.loading = false
		}
		vm.mu.Unlock()
		vm.notify()
		return
	}

	vm.mu.Lock()
	if gen != vm.listGen {
		// A newer fetch raced this one; its subscription wins.
		vm.mu.Unlock()
		sub.Cancel()
		return
	}
	vm.listSub = sub
	vm.mu.Unlock()

	vm.wg.Add(1)
	go vm.collect(sub, gen, failMsg)
}

// collect applies deliveries in arrival order until the subscription is
// cancelled. Deliveries from a superseded subscription never touch state.
func (vm *EventViewModel) collect(sub *storage.Subscription, gen int, failMsg string) {
	defer vm.wg.Done()
	for d := range sub.C {
		vm.mu.Lock()
		if gen != vm.listGen {
			vm.mu.Unlock()
			return
		}
		if d.Err != nil {
			vm.errMsg = failMsg
		} else {
			vm.events = d.Events
			vm.errMsg = ""
		}
		vm.loading = false
		vm.mu.Unlock()
		vm.notify()
	}
}

// GetEventByID clears the single-event slot, then loads the event. A stale
// detail view is never shown while the fetch is in flight.
func (vm *EventViewModel) GetEventByID(ctx context.Context, id string) {
	vm.mu.Lock()
	vm.current = nil
	vm.mu.Unlock()
	vm.notify()

	e, err := vm.store.GetEvent(ctx, id)

	vm.mu.Lock()
	switch {
	case errors.Is(err, storage.ErrNotFoundEvent):
		vm.errMsg = errEventNotFound
	case err != nil:
		vm.errMsg = errFetchEventPrefix + err.Error()
	default:
		vm.current = &e
		vm.errMsg = ""
	}
	vm.mu.Unlock()
	vm.notify()
}

// AddEvent persists a new event. On success only the ID of the in-progress
// single event is patched; the list updates through its own subscription.
func (vm *EventViewModel) AddEvent(ctx context.Context, e event.Event) {
	id, err := vm.store.AddEvent(ctx, &e)

	vm.mu.Lock()
	if err != nil {
		vm.errMsg = errAddEventPrefix + err.Error()
	} else if vm.current != nil {
		vm.current.ID = id
	}
	vm.mu.Unlock()
	vm.notify()
}

// UpdateEvent writes e over the loaded event. Without a loaded ID it fails
// locally and issues no storage call.
func (vm *EventViewModel) UpdateEvent(ctx context.Context, e event.Event) {
	vm.mu.Lock()
	if vm.current == nil || vm.current.ID == "" {
		vm.errMsg = errNoEventID
		vm.mu.Unlock()
		vm.notify()
		return
	}
	id := vm.current.ID
	vm.mu.Unlock()

	err := vm.store.UpdateEvent(ctx, id, e)

	vm.mu.Lock()
	if err != nil {
		vm.errMsg = errUpdatePrefix + err.Error()
	} else {
		e.ID = id
		vm.current = &e
	}
	vm.mu.Unlock()
	vm.notify()
}

// DeleteEvent removes the loaded event and clears the slot.
func (vm *EventViewModel) DeleteEvent(ctx context.Context) {
	vm.mu.Lock()
	if vm.current == nil || vm.current.ID == "" {
		vm.errMsg = errNoEventID
		vm.mu.Unlock()
		vm.notify()
		return
	}
	id := vm.current.ID
	vm.mu.Unlock()

	err := vm.store.RemoveEvent(ctx, id)

	vm.mu.Lock()
	if err != nil {
		vm.errMsg = errDeletePrefix + err.Error()
	} else {
		vm.current = nil
	}
	vm.mu.Unlock()
	vm.notify()
}

// Field mutators: local copy-with-change for in-progress edit forms, no
// storage call.

func (vm *EventViewModel) UpdateEventTitle(title string) {
	vm.mutate(func(e *event.Event) { e.Title = title })
}

func (vm *EventViewModel) UpdateEventDescription(description string) {
	vm.mutate(func(e *event.Event) { e.Description = description })
}

func (vm *EventViewModel) UpdateEventDate(date time.Time) {
	vm.mutate(func(e *event.Event) { e.Date = event.DateOf(date) })
}

func (vm *EventViewModel) UpdateEventTime(t time.Time) {
	vm.mutate(func(e *event.Event) { e.Time = event.TimeOf(t) })
}

// SetEvent seeds the single-event slot, e.g. when a create form opens.
func (vm *EventViewModel) SetEvent(e event.Event) {
	vm.mu.Lock()
	vm.current = &e
	vm.mu.Unlock()
	vm.notify()
}

func (vm *EventViewModel) mutate(change func(*event.Event)) {
	vm.mu.Lock()
	if vm.current != nil {
		copied := *vm.current
		change(&copied)
		vm.current = &copied
	}
	vm.mu.Unlock()
	vm.notify()
}

// SortEventsByDate re-sorts the loaded list by combined date and time,
// ascending. Client-side only.
func (vm *EventViewModel) SortEventsByDate() {
	vm.mu.Lock()
	events := vm.events
	sortStable(events, func(a, b event.Event) bool {
		return a.StartsAt().Before(b.StartsAt())
	})
	vm.mu.Unlock()
	vm.notify()
}

// SortEventsByCategory re-sorts the loaded list by category, ascending.
func (vm *EventViewModel) SortEventsByCategory() {
	vm.mu.Lock()
	events := vm.events
	sortStable(events, func(a, b event.Event) bool {
		return a.Category < b.Category
	})
	vm.mu.Unlock()
	vm.notify()
}

// Close cancels the list subscription and the view-model scope. No callback
// mutates state afterwards.
func (vm *EventViewModel) Close() {
	vm.mu.Lock()
	vm.listGen++
	if vm.listSub != nil {
		vm.listSub.Cancel()
		vm.listSub = nil
	}
	vm.mu.Unlock()

	vm.cancel()
	vm.wg.Wait()
}

func (vm *EventViewModel) notify() {
	select {
	case vm.updates <- struct{}{}:
	default:
	}
}

func sortStable(events []event.Event, less func(a, b event.Event) bool) {
	sort.SliceStable(events, func(i, j int) bool {
		return less(events[i], events[j])
	})
}
