package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	t.Run("full document", func(t *testing.T) {
		created := time.Date(2025, time.January, 2, 10, 30, 0, 0, time.UTC)
		e, ok := Decode(map[string]any{
			"id":             "ev-1",
			"title":          "Sample Event",
			"description":    "A very sample event",
			"date":           "2025-02-14",
			"time":           "18:00:00",
			"createdAt":      created,
			"location":       "12 Main St",
			"category":       "Tech",
			"photoUrl":       "https://img.test/ev-1.jpg",
			"userProfileUrl": "https://img.test/user.jpg",
		})
		require.True(t, ok)
		require.Equal(t, "ev-1", e.ID)
		require.Equal(t, "Sample Event", e.Title)
		require.Equal(t, NewDate(2025, time.February, 14), e.Date)
		require.Equal(t, NewTimeOfDay(18, 0, 0), e.Time)
		require.Equal(t, created, e.CreatedAt)
		require.Equal(t, "Tech", e.Category)
		require.Equal(t, "https://img.test/ev-1.jpg", e.PhotoURL)
	})

	t.Run("empty document is absent", func(t *testing.T) {
		_, ok := Decode(nil)
		require.False(t, ok)
		_, ok = Decode(map[string]any{})
		require.False(t, ok)
	})

	t.Run("missing strings default to empty", func(t *testing.T) {
		e, ok := Decode(map[string]any{"id": "ev-2", "title": 42})
		require.True(t, ok)
		require.Equal(t, "ev-2", e.ID)
		require.Empty(t, e.Title)
		require.Empty(t, e.Description)
		require.Empty(t, e.PhotoURL)
	})

	t.Run("short time layout", func(t *testing.T) {
		e, ok := Decode(map[string]any{"id": "ev-3", "time": "00:00"})
		require.True(t, ok)
		require.Equal(t, NewTimeOfDay(0, 0, 0), e.Time)
	})

	t.Run("unparsable date and time default to now", func(t *testing.T) {
		before := time.Now()
		e, ok := Decode(map[string]any{
			"id":   "ev-4",
			"date": "not-a-date",
			"time": "sometime",
		})
		require.True(t, ok)
		require.Equal(t, DateOf(before), e.Date)
		require.WithinDuration(t, TimeOf(before), e.Time, 5*time.Second)
	})

	t.Run("createdAt encodings", func(t *testing.T) {
		created := time.Date(2024, time.December, 24, 8, 15, 30, 0, time.UTC)

		e, _ := Decode(map[string]any{"id": "a", "createdAt": created})
		require.Equal(t, created, e.CreatedAt)

		e, _ = Decode(map[string]any{"id": "b", "createdAt": "2024-12-24T08:15:30.000Z"})
		require.True(t, created.Equal(e.CreatedAt))

		e, _ = Decode(map[string]any{"id": "c", "createdAt": created.UnixMilli()})
		require.True(t, created.Equal(e.CreatedAt))

		e, _ = Decode(map[string]any{"id": "d", "createdAt": float64(created.UnixMilli())})
		require.True(t, created.Equal(e.CreatedAt))

		before := time.Now()
		e, _ = Decode(map[string]any{"id": "e", "createdAt": []string{"nope"}})
		require.WithinDuration(t, before, e.CreatedAt, 5*time.Second)
	})
}

func TestEncode(t *testing.T) {
	t.Run("optional fields serialize as empty strings", func(t *testing.T) {
		doc := Encode(Event{ID: "ev-1", Title: "Meetup"})
		require.Equal(t, "", doc["photoUrl"])
		require.Equal(t, "", doc["userProfileUrl"])
		require.Contains(t, doc, "location")
	})

	t.Run("round trip", func(t *testing.T) {
		orig := Event{
			ID:             "ev-9",
			Title:          "Meetup",
			Description:    "Monthly meetup",
			Date:           NewDate(2025, time.March, 1),
			Time:           NewTimeOfDay(18, 0, 0),
			CreatedAt:      time.Date(2025, time.January, 1, 12, 0, 0, 0, time.UTC),
			Location:       "Somewhere 1",
			Category:       "Tech",
			PhotoURL:       "https://img.test/ev-9.jpg",
			UserProfileURL: "https://img.test/u.jpg",
		}
		got, ok := Decode(Encode(orig))
		require.True(t, ok)
		require.Equal(t, orig, got)
	})
}

func TestParseSortOption(t *testing.T) {
	require.Equal(t, SortByDate, ParseSortOption("date"))
	require.Equal(t, SortByCategory, ParseSortOption("category"))
	require.Equal(t, SortByCreation, ParseSortOption("creation"))
	require.Equal(t, SortNone, ParseSortOption(""))
	require.Equal(t, SortNone, ParseSortOption("bogus"))
}

func TestSort(t *testing.T) {
	events := func() []Event {
		return []Event{
			{ID: "1", Category: "Music", Date: NewDate(2025, time.May, 1),
				CreatedAt: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)},
			{ID: "2", Category: "Art", Date: NewDate(2025, time.May, 3),
				CreatedAt: time.Date(2025, 4, 3, 0, 0, 0, 0, time.UTC)},
			{ID: "3", Category: "Tech", Date: NewDate(2025, time.May, 2),
				CreatedAt: time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC)},
		}
	}

	byDate := events()
	Sort(byDate, SortByDate)
	require.Equal(t, []string{"2", "3", "1"}, ids(byDate))

	byCategory := events()
	Sort(byCategory, SortByCategory)
	require.Equal(t, []string{"2", "1", "3"}, ids(byCategory))

	byCreation := events()
	Sort(byCreation, SortByCreation)
	require.Equal(t, []string{"2", "3", "1"}, ids(byCreation))

	unsorted := events()
	Sort(unsorted, SortNone)
	require.Equal(t, []string{"1", "2", "3"}, ids(unsorted))
}

func ids(events []Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.ID)
	}
	return out
}
