package sqlstorage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/eventorias/eventorias/internal/event"
	"github.com/eventorias/eventorias/internal/storage"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	log "github.com/sirupsen/logrus"
)

const (
	dbErrUniqueViolation = "23505"
	notifyChannel        = "events_changed"

	selectColumns = "id, title, description, date, time, created_at AS createdAt, location, category, " +
		"photo_url AS photoUrl, user_profile_url AS userProfileUrl"
)

type Config struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
}

// Storage keeps the events collection in Postgres. Live queries are driven
// by LISTEN/NOTIFY: a statement trigger (see migrations) notifies on every
// change and each subscription re-runs its query per notification.
type Storage struct {
	connString string
	db         *sqlx.DB
}

// row mirrors the document field set; date and time stay ISO strings so the
// shared codec applies the same defensive decoding as every other backend.
type row struct {
	ID             string    `db:"id"`
	Title          string    `db:"title"`
	Description    string    `db:"description"`
	Date           string    `db:"date"`
	Time           string    `db:"time"`
	CreatedAt      time.Time `db:"createdAt"`
	Location       string    `db:"location"`
	Category       string    `db:"category"`
	PhotoURL       string    `db:"photoUrl"`
	UserProfileURL string    `db:"userProfileUrl"`
}

func (r row) document() map[string]any {
	return map[string]any{
		"id":             r.ID,
		"title":          r.Title,
		"description":    r.Description,
		"date":           r.Date,
		"time":           r.Time,
		"createdAt":      r.CreatedAt,
		"location":       r.Location,
		"category":       r.Category,
		"photoUrl":       r.PhotoURL,
		"userProfileUrl": r.UserProfileURL,
	}
}

func New(config Config) *Storage {
	return &Storage{
		connString: fmt.Sprintf(
			"sslmode=disable host=%s port=%d dbname=%s user=%s password=%s",
			config.Host, config.Port, config.Database, config.Username, config.Password),
	}
}

func (s *Storage) Connect(ctx context.Context) error {
	db, err := sqlx.ConnectContext(ctx, "postgres", s.connString)
	if err != nil {
		log.Errorf("failed to connect: %v", err)
		return storage.ErrConnectionFailed
	}
	s.db = db
	return nil
}

func (s *Storage) Close(_ context.Context) error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}
	return nil
}

func (s *Storage) AddEvent(ctx context.Context, e *event.Event) (string, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	var err error
	switch {
	case e.CreatedAt.IsZero():
		// The database clock is the creation timestamp, not the caller's.
		err = s.db.GetContext(
			ctx,
			&e.CreatedAt,
			"INSERT INTO events(id, title, description, date, time, created_at, location, category, "+
				"photo_url, user_profile_url) "+
				"VALUES($1, $2, $3, $4, $5, now(), $6, $7, $8, $9) RETURNING created_at",
			e.ID, e.Title, e.Description, e.Date.Format(event.DateLayout), e.Time.Format(event.TimeLayout),
			e.Location, e.Category, e.PhotoURL, e.UserProfileURL)
	default:
		_, err = s.db.ExecContext(
			ctx,
			"INSERT INTO events(id, title, description, date, time, created_at, location, category, "+
				"photo_url, user_profile_url) "+
				"VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)",
			e.ID, e.Title, e.Description, e.Date.Format(event.DateLayout), e.Time.Format(event.TimeLayout),
			e.CreatedAt, e.Location, e.Category, e.PhotoURL, e.UserProfileURL)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == dbErrUniqueViolation {
		return "", fmt.Errorf("duplicate ID %q: %w", e.ID, storage.ErrDuplicateEventID)
	}
	if err != nil {
		return "", err
	}
	return e.ID, nil
}

func (s *Storage) GetEvent(ctx context.Context, id string) (event.Event, error) {
	var r row
	err := s.db.GetContext(ctx, &r, "SELECT "+selectColumns+" FROM events WHERE id=$1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return event.Event{}, fmt.Errorf("failed to get event with id %q: %w", id, storage.ErrNotFoundEvent)
	}
	if err != nil {
		return event.Event{}, err
	}
	e, ok := event.Decode(r.document())
	if !ok {
		return event.Event{}, fmt.Errorf("failed to decode event with id %q: %w", id, storage.ErrNotFoundEvent)
	}
	return e, nil
}

func (s *Storage) UpdateEvent(ctx context.Context, id string, e event.Event) error {
	var found bool
	err := s.db.GetContext(
		ctx,
		&found,
		"UPDATE events SET title=$2, description=$3, date=$4, time=$5, location=$6, category=$7, "+
			"photo_url=$8, user_profile_url=$9 WHERE id=$1 RETURNING TRUE",
		id,
		e.Title,
		e.Description,
		e.Date.Format(event.DateLayout),
		e.Time.Format(event.TimeLayout),
		e.Location,
		e.Category,
		e.PhotoURL,
		e.UserProfileURL,
	)

	if !found {
		return fmt.Errorf("failed to update event with id %q: %w", id, storage.ErrNotFoundEvent)
	}
	return err
}

func (s *Storage) RemoveEvent(ctx context.Context, id string) error {
	var found bool
	err := s.db.GetContext(ctx, &found, "DELETE FROM events WHERE id=$1 RETURNING TRUE", id)

	if !found {
		return fmt.Errorf("failed to remove event with id %q: %w", id, storage.ErrNotFoundEvent)
	}
	return err
}

func (s *Storage) ListEvents(ctx context.Context, opt event.SortOption) ([]event.Event, error) {
	var rows []row
	err := s.db.SelectContext(ctx, &rows, "SELECT "+selectColumns+" FROM events"+orderClause(opt))
	if err != nil {
		return nil, err
	}

	events := make([]event.Event, 0, len(rows))
	for _, r := range rows {
		if e, ok := event.Decode(r.document()); ok {
			events = append(events, e)
		}
	}
	return events, nil
}

func (s *Storage) Subscribe(ctx context.Context, opt event.SortOption) (*storage.Subscription, error) {
	listener := pq.NewListener(s.connString, 10*time.Second, time.Minute, nil)
	if err := listener.Listen(notifyChannel); err != nil {
		listener.Close()
		return nil, fmt.Errorf("failed to listen on %q: %w", notifyChannel, err)
	}

	done := make(chan struct{})
	out := make(chan storage.Delivery)

	go func() {
		defer close(out)
		defer listener.Close()

		// Initial snapshot, then one re-query per notification. A nil
		// notification means the listener reconnected and data may have
		// changed unobserved.
		for {
			d := storage.Delivery{}
			d.Events, d.Err = s.ListEvents(ctx, opt)
			select {
			case out <- d:
			case <-done:
				return
			}

			select {
			case <-done:
				return
			case <-listener.Notify:
			}
		}
	}()

	return storage.NewSubscription(out, func() { close(done) }), nil
}

// orderClause applies the backend ordering for a sort option. Dates are ISO
// strings, so lexicographic order is chronological order.
func orderClause(opt event.SortOption) string {
	switch opt {
	case event.SortByDate:
		return " ORDER BY date DESC, time DESC"
	case event.SortByCategory:
		return " ORDER BY category ASC"
	case event.SortByCreation:
		return " ORDER BY created_at DESC"
	default:
		return ""
	}
}
