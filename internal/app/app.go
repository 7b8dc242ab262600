package app

import (
	"context"
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/eventorias/eventorias/internal/auth"
	"github.com/eventorias/eventorias/internal/blob"
	"github.com/eventorias/eventorias/internal/event"
	"github.com/eventorias/eventorias/internal/geocode"
	"github.com/eventorias/eventorias/internal/storage"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Exported calendar entries have no explicit end in the data model.
const eventDuration = time.Hour

// App is the service facade over the event collection and its collaborators.
// All dependencies are injected; nothing is looked up ambiently.
type App struct {
	Storage    storage.Storage
	Uploader   blob.Uploader
	Auth       auth.Auth
	Geocoder   geocode.Geocoder
	MapsAPIKey string
}

func New(stor storage.Storage, uploader blob.Uploader, authc auth.Auth, geocoder geocode.Geocoder, mapsAPIKey string) *App {
	return &App{
		Storage:    stor,
		Uploader:   uploader,
		Auth:       authc,
		Geocoder:   geocoder,
		MapsAPIKey: mapsAPIKey,
	}
}

// DetailedEvent is an event annotated for the detail view. MapURL is empty
// when the location could not be geocoded.
type DetailedEvent struct {
	event.Event
	MapURL string `json:"mapUrl,omitempty"`
}

// CreateEvent persists a new event. The photo, when present, is uploaded
// under the event's ID before the document write so the stored document
// always references an existing blob. The creator's avatar URL is stamped
// from the auth collaborator.
func (a *App) CreateEvent(ctx context.Context, e event.Event, photo []byte) (string, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	if len(photo) > 0 {
		if a.Uploader == nil {
			return "", fmt.Errorf("no photo storage configured")
		}
		url, err := a.Uploader.Upload(ctx, "events/"+e.ID+".jpg", photo)
		if err != nil {
			return "", fmt.Errorf("failed to upload event photo: %w", err)
		}
		e.PhotoURL = url
	}

	if a.Auth != nil && e.UserProfileURL == "" {
		e.UserProfileURL = a.Auth.CurrentUser().ProfilePictureURL
	}

	return a.Storage.AddEvent(ctx, &e)
}

// GetEvent loads one event and annotates it with a static map image of its
// location. A geocoding miss just means no map.
func (a *App) GetEvent(ctx context.Context, id string) (DetailedEvent, error) {
	e, err := a.Storage.GetEvent(ctx, id)
	if err != nil {
		return DetailedEvent{}, err
	}

	detailed := DetailedEvent{Event: e}
	if a.Geocoder != nil && e.Location != "" {
		if lat, lon, ok := a.Geocoder.Resolve(ctx, e.Location); ok {
			detailed.MapURL = geocode.StaticMapURL(lat, lon, a.MapsAPIKey)
		} else {
			log.Debugf("no coordinates for location %q", e.Location)
		}
	}
	return detailed, nil
}

func (a *App) UpdateEvent(ctx context.Context, id string, e event.Event) error {
	return a.Storage.UpdateEvent(ctx, id, e)
}

func (a *App) RemoveEvent(ctx context.Context, id string) error {
	return a.Storage.RemoveEvent(ctx, id)
}

func (a *App) ListEvents(ctx context.Context, opt event.SortOption) ([]event.Event, error) {
	return a.Storage.ListEvents(ctx, opt)
}

// ExportICS renders the whole collection as an iCalendar feed. Each event
// spans one hour from its start.
func (a *App) ExportICS(ctx context.Context) (string, error) {
	events, err := a.Storage.ListEvents(ctx, event.SortByDate)
	if err != nil {
		return "", fmt.Errorf("failed to list events for export: %w", err)
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//eventorias//events//EN")

	for _, e := range events {
		ve := cal.AddEvent(e.ID)
		ve.SetCreatedTime(e.CreatedAt)
		ve.SetDtStampTime(e.CreatedAt)
		ve.SetStartAt(e.StartsAt())
		ve.SetEndAt(e.StartsAt().Add(eventDuration))
		ve.SetSummary(e.Title)
		if e.Description != "" {
			ve.SetDescription(e.Description)
		}
		if e.Location != "" {
			ve.SetLocation(e.Location)
		}
		if e.Category != "" {
			ve.SetProperty(ical.ComponentProperty("CATEGORIES"), e.Category)
		}
	}
	return cal.Serialize(), nil
}
