//go:build sql
// +build sql

package sqlstorage_test

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/eventorias/eventorias/internal/event"
	"github.com/eventorias/eventorias/internal/storage"
	sqlstorage "github.com/eventorias/eventorias/internal/storage/sql"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

var (
	host     = "127.0.0.1"
	port     = 5532
	database = "testing"
	username = "postgres"
	password = "pas"
)

func TestMain(m *testing.M) {
	pgHost := os.Getenv("POSTGRES_HOST")
	pgPort := os.Getenv("POSTGRES_PORT")
	if pgHost != "" {
		host = pgHost
	}
	if pgPort != "" {
		port, _ = strconv.Atoi(pgPort)
	}

	cleanupDB()
	code := m.Run()
	os.Exit(code)
}

func newEvent(title, category string) event.Event {
	return event.Event{
		Title:       title,
		Description: "description",
		Date:        event.NewDate(2025, time.March, 1),
		Time:        event.NewTimeOfDay(18, 0, 0),
		Location:    "1 Test Plaza",
		Category:    category,
	}
}

func TestStorage(t *testing.T) {
	ctx := context.Background()

	t.Run("add event", func(t *testing.T) {
		s := createStorage(t)
		e := newEvent("test", "Tech")

		id, err := s.AddEvent(ctx, &e)
		require.NoError(t, err)
		require.NotEmpty(t, id)
		require.False(t, e.CreatedAt.IsZero(), "database assigns creation time")

		got, err := s.GetEvent(ctx, id)
		require.NoError(t, err)
		compareEvents(t, e, got)
	})

	t.Run("update event", func(t *testing.T) {
		s := createStorage(t)
		e := newEvent("test", "Tech")
		id, err := s.AddEvent(ctx, &e)
		require.NoError(t, err)

		e.Title = "updated title"
		e.Description = "updated description"
		e.Date = event.NewDate(2025, time.April, 2)
		require.NoError(t, s.UpdateEvent(ctx, id, e))

		got, err := s.GetEvent(ctx, id)
		require.NoError(t, err)
		require.Equal(t, "updated title", got.Title)
		require.Equal(t, e.Date, got.Date)
	})

	t.Run("delete event", func(t *testing.T) {
		s := createStorage(t)
		e := newEvent("test", "Tech")
		id, err := s.AddEvent(ctx, &e)
		require.NoError(t, err)

		require.NoError(t, s.RemoveEvent(ctx, id))
		_, err = s.GetEvent(ctx, id)
		require.ErrorIs(t, err, storage.ErrNotFoundEvent)
	})

	t.Run("list sorted", func(t *testing.T) {
		s := createStorage(t)

		a := newEvent("a", "Music")
		a.Date = event.NewDate(2025, time.March, 3)
		b := newEvent("b", "Art")
		b.Date = event.NewDate(2025, time.March, 1)
		c := newEvent("c", "Tech")
		c.Date = event.NewDate(2025, time.March, 2)
		for _, e := range []*event.Event{&a, &b, &c} {
			e := e
			_, err := s.AddEvent(ctx, e)
			require.NoError(t, err)
		}

		list, err := s.ListEvents(ctx, event.SortByDate)
		require.NoError(t, err)
		require.Equal(t, []string{"a", "c", "b"}, titles(list))

		list, err = s.ListEvents(ctx, event.SortByCategory)
		require.NoError(t, err)
		require.Equal(t, []string{"b", "a", "c"}, titles(list))

		list, err = s.ListEvents(ctx, event.SortByCreation)
		require.NoError(t, err)
		require.Equal(t, []string{"c", "b", "a"}, titles(list))
	})

	t.Run("subscription delivers on change", func(t *testing.T) {
		s := createStorage(t)

		sub, err := s.Subscribe(ctx, event.SortNone)
		require.NoError(t, err)
		defer sub.Cancel()

		d := <-sub.C
		require.NoError(t, d.Err)
		require.Empty(t, d.Events)

		e := newEvent("pushed", "Tech")
		_, err = s.AddEvent(ctx, &e)
		require.NoError(t, err)

		select {
		case d = <-sub.C:
			require.NoError(t, d.Err)
			require.Equal(t, []string{"pushed"}, titles(d.Events))
		case <-time.After(5 * time.Second):
			t.Fatal("no delivery after insert")
		}
	})
}

func TestStorageNegativeCases(t *testing.T) {
	ctx := context.Background()

	t.Run("add event with same id", func(t *testing.T) {
		s := createStorage(t)
		e := newEvent("test", "Tech")
		_, err := s.AddEvent(ctx, &e)
		require.NoError(t, err)

		dup := newEvent("other", "Tech")
		dup.ID = e.ID
		_, err = s.AddEvent(ctx, &dup)
		require.ErrorIs(t, err, storage.ErrDuplicateEventID)
	})

	t.Run("update not exist event", func(t *testing.T) {
		s := createStorage(t)
		require.ErrorIs(t, s.UpdateEvent(ctx, "___not_exists___", newEvent("x", "y")), storage.ErrNotFoundEvent)
	})

	t.Run("delete not exist event", func(t *testing.T) {
		s := createStorage(t)
		require.ErrorIs(t, s.RemoveEvent(ctx, "___not_exists___"), storage.ErrNotFoundEvent)
	})
}

func cleanupDB() error {
	db, err := sqlx.Connect(
		"postgres",
		fmt.Sprintf("sslmode=disable host=%s port=%d dbname=%s user=%s password=%s", host, port, database, username, password),
	)
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.Exec("TRUNCATE TABLE events")
	return err
}

func compareEvents(t *testing.T, expected event.Event, actual event.Event) {
	t.Helper()
	require.True(t, expected.CreatedAt.Equal(actual.CreatedAt),
		"creation time is not equal %q != %q", expected.CreatedAt, actual.CreatedAt)
	expected.CreatedAt = actual.CreatedAt
	require.Equal(t, expected, actual)
}

func titles(events []event.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Title)
	}
	return out
}

func createStorage(t *testing.T) *sqlstorage.Storage {
	t.Helper()
	s := sqlstorage.New(sqlstorage.Config{
		Host: host, Port: port, Database: database, Username: username, Password: password,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	require.NoError(t, s.Connect(ctx))
	t.Cleanup(func() {
		s.Close(ctx)
		require.NoError(t, cleanupDB())
	})
	return s
}
