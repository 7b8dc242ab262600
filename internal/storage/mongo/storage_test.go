//go:build mongo
// +build mongo

package mongostorage_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/eventorias/eventorias/internal/event"
	"github.com/eventorias/eventorias/internal/storage"
	mongostorage "github.com/eventorias/eventorias/internal/storage/mongo"
	"github.com/stretchr/testify/require"
)

var (
	uri      = "mongodb://127.0.0.1:27017/?replicaSet=rs0"
	database = "testing"
)

func TestMain(m *testing.M) {
	if env := os.Getenv("MONGO_URI"); env != "" {
		uri = env
	}
	if env := os.Getenv("MONGO_DB"); env != "" {
		database = env
	}
	os.Exit(m.Run())
}

func createStorage(t *testing.T) *mongostorage.Storage {
	t.Helper()
	s := mongostorage.New(mongostorage.Config{URI: uri, Database: database})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	require.NoError(t, s.Connect(ctx))
	t.Cleanup(func() {
		events, err := s.ListEvents(ctx, event.SortNone)
		require.NoError(t, err)
		for _, e := range events {
			s.RemoveEvent(ctx, e.ID)
		}
		s.Close(ctx)
	})
	return s
}

func newEvent(title, category string) event.Event {
	return event.Event{
		Title:    title,
		Category: category,
		Date:     event.NewDate(2025, time.March, 1),
		Time:     event.NewTimeOfDay(18, 0, 0),
		Location: "1 Test Plaza",
	}
}

func TestStorage(t *testing.T) {
	ctx := context.Background()

	t.Run("add and get", func(t *testing.T) {
		s := createStorage(t)
		e := newEvent("Meetup", "Tech")
		id, err := s.AddEvent(ctx, &e)
		require.NoError(t, err)
		require.NotEmpty(t, id)

		got, err := s.GetEvent(ctx, id)
		require.NoError(t, err)
		require.Equal(t, "Meetup", got.Title)
		require.Equal(t, e.Date, got.Date)
		require.Equal(t, e.Time, got.Time)
		require.False(t, got.CreatedAt.IsZero())
	})

	t.Run("duplicate id", func(t *testing.T) {
		s := createStorage(t)
		e := newEvent("Meetup", "Tech")
		_, err := s.AddEvent(ctx, &e)
		require.NoError(t, err)

		dup := newEvent("Other", "Tech")
		dup.ID = e.ID
		_, err = s.AddEvent(ctx, &dup)
		require.ErrorIs(t, err, storage.ErrDuplicateEventID)
	})

	t.Run("update preserves creation time", func(t *testing.T) {
		s := createStorage(t)
		e := newEvent("Meetup", "Tech")
		id, err := s.AddEvent(ctx, &e)
		require.NoError(t, err)

		require.NoError(t, s.UpdateEvent(ctx, id, newEvent("Renamed", "Tech")))
		got, err := s.GetEvent(ctx, id)
		require.NoError(t, err)
		require.Equal(t, "Renamed", got.Title)
		require.True(t, e.CreatedAt.Equal(got.CreatedAt))
	})

	t.Run("missing ids", func(t *testing.T) {
		s := createStorage(t)
		_, err := s.GetEvent(ctx, "nope")
		require.ErrorIs(t, err, storage.ErrNotFoundEvent)
		require.ErrorIs(t, s.UpdateEvent(ctx, "nope", newEvent("x", "y")), storage.ErrNotFoundEvent)
		require.ErrorIs(t, s.RemoveEvent(ctx, "nope"), storage.ErrNotFoundEvent)
	})

	t.Run("change stream delivery", func(t *testing.T) {
		s := createStorage(t)
		sub, err := s.Subscribe(ctx, event.SortNone)
		require.NoError(t, err)
		defer sub.Cancel()

		d := <-sub.C
		require.NoError(t, d.Err)
		require.Empty(t, d.Events)

		e := newEvent("Pushed", "Tech")
		_, err = s.AddEvent(ctx, &e)
		require.NoError(t, err)

		select {
		case d = <-sub.C:
			require.NoError(t, d.Err)
			require.Len(t, d.Events, 1)
			require.Equal(t, "Pushed", d.Events[0].Title)
		case <-time.After(10 * time.Second):
			t.Fatal("no delivery after insert")
		}
	})
}
