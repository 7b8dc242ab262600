package event

import (
	"sort"
	"time"
)

// Event is one calendar event as stored in the "events" collection.
// Date carries the calendar date (midnight UTC), Time the time of day on the
// zero date; StartsAt combines them into a single instant.
type Event struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Date           time.Time `json:"date"`
	Time           time.Time `json:"time"`
	CreatedAt      time.Time `json:"createdAt"`
	Location       string    `json:"location"`
	Category       string    `json:"category"`
	PhotoURL       string    `json:"photoUrl"`
	UserProfileURL string    `json:"userProfileUrl"`
}

// Userdata is an authenticated identity delivered by the auth collaborator.
// It is never persisted by this service.
type Userdata struct {
	UserID            string `json:"userId"`
	Username          string `json:"username"`
	Email             string `json:"email"`
	ProfilePictureURL string `json:"profilePictureUrl"`
	PhotoURL          string `json:"photoUrl"`
}

// SortOption selects which ordering a live query or list request uses.
type SortOption string

const (
	SortNone       SortOption = ""
	SortByDate     SortOption = "date"     // event date, newest first
	SortByCategory SortOption = "category" // category, A to Z
	SortByCreation SortOption = "creation" // creation time, newest first
)

// ParseSortOption maps a client-supplied string to a SortOption. Unrecognized
// values fall back to SortNone rather than failing.
func ParseSortOption(s string) SortOption {
	switch SortOption(s) {
	case SortByDate, SortByCategory, SortByCreation:
		return SortOption(s)
	default:
		return SortNone
	}
}

// NewDate builds the calendar-date value for the given day.
func NewDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// NewTimeOfDay builds the time-of-day value for the given wall-clock time.
func NewTimeOfDay(hour, min, sec int) time.Time {
	return time.Date(0, time.January, 1, hour, min, sec, 0, time.UTC)
}

// DateOf truncates an instant to its calendar date.
func DateOf(t time.Time) time.Time {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// TimeOf truncates an instant to its time of day.
func TimeOf(t time.Time) time.Time {
	return NewTimeOfDay(t.Hour(), t.Minute(), t.Second())
}

// StartsAt is the combined (date, time) instant of the event.
func (e Event) StartsAt() time.Time {
	return time.Date(
		e.Date.Year(), e.Date.Month(), e.Date.Day(),
		e.Time.Hour(), e.Time.Minute(), e.Time.Second(), 0, time.UTC,
	)
}

// Sort orders events in place according to opt. SortNone leaves the slice
// untouched.
func Sort(events []Event, opt SortOption) {
	switch opt {
	case SortByDate:
		sort.SliceStable(events, func(i, j int) bool {
			return events[i].StartsAt().After(events[j].StartsAt())
		})
	case SortByCategory:
		sort.SliceStable(events, func(i, j int) bool {
			return events[i].Category < events[j].Category
		})
	case SortByCreation:
		sort.SliceStable(events, func(i, j int) bool {
			return events[i].CreatedAt.After(events[j].CreatedAt)
		})
	}
}
