// Package presentation holds the UI-facing list contract: the client-side
// search filter applied on top of the already-sorted list, and the mapping
// from view-model flags to a single render state.
package presentation

import (
	"regexp"
	"strings"
	"time"

	"github.com/eventorias/eventorias/internal/event"
)

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Filter narrows events by a search query. A query shaped like a calendar
// date (YYYY-MM-DD) matches events on exactly that date; anything else is a
// case-insensitive substring match over title, description and category. An
// empty query matches everything.
func Filter(events []event.Event, query string) []event.Event {
	if query == "" {
		out := make([]event.Event, len(events))
		copy(out, events)
		return out
	}

	out := make([]event.Event, 0, len(events))
	if datePattern.MatchString(query) {
		queryDate, err := time.Parse(event.DateLayout, query)
		if err == nil {
			for _, e := range events {
				if e.Date.Equal(queryDate) {
					out = append(out, e)
				}
			}
			return out
		}
	}

	q := strings.ToLower(query)
	for _, e := range events {
		if strings.Contains(strings.ToLower(e.Title), q) ||
			strings.Contains(strings.ToLower(e.Description), q) ||
			strings.Contains(strings.ToLower(e.Category), q) {
			out = append(out, e)
		}
	}
	return out
}

// RenderState is the single, mutually exclusive state the list screen is in.
type RenderState int

const (
	StateLoading RenderState = iota
	StateError
	StatePopulated
)

// Resolve maps the view-model's published flags to a render state. Priority:
// error, then empty-list-as-loading, then populated.
func Resolve(errMsg string, loading bool, events []event.Event) RenderState {
	switch {
	case errMsg != "":
		return StateError
	case loading || len(events) == 0:
		return StateLoading
	default:
		return StatePopulated
	}
}
