package internalhttp

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/eventorias/eventorias/internal/event"
	"github.com/eventorias/eventorias/internal/storage"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	log "github.com/sirupsen/logrus"
)

const (
	errEventNotProvided    = "event is not provided"
	errInternalServerError = "internal server error"
	errEventNotFound       = "event not found"
	errIncorrectDate       = "incorrect date"
	errIncorrectTime       = "incorrect time"
	errUnauthorized        = "unauthorized"
)

// apiEvent is the wire form of an event: date and time travel as the same
// ISO strings the document codec stores.
type apiEvent struct {
	ID             string    `json:"id,omitempty"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	Date           string    `json:"date"`
	Time           string    `json:"time"`
	CreatedAt      time.Time `json:"createdAt,omitempty"`
	Location       string    `json:"location,omitempty"`
	Category       string    `json:"category,omitempty"`
	PhotoURL       string    `json:"photoUrl,omitempty"`
	UserProfileURL string    `json:"userProfileUrl,omitempty"`
	MapURL         string    `json:"mapUrl,omitempty"`

	// Photo is the JPEG payload for the create flow, base64 in JSON.
	Photo []byte `json:"photo,omitempty"`
}

func toEvent(a apiEvent) (event.Event, string) {
	date, err := time.Parse(event.DateLayout, a.Date)
	if err != nil {
		return event.Event{}, errIncorrectDate
	}
	t, err := time.Parse(event.TimeLayout, a.Time)
	if err != nil {
		if t, err = time.Parse("15:04", a.Time); err != nil {
			return event.Event{}, errIncorrectTime
		}
	}
	return event.Event{
		ID:             a.ID,
		Title:          a.Title,
		Description:    a.Description,
		Date:           date,
		Time:           t,
		CreatedAt:      a.CreatedAt,
		Location:       a.Location,
		Category:       a.Category,
		PhotoURL:       a.PhotoURL,
		UserProfileURL: a.UserProfileURL,
	}, ""
}

func toAPIEvent(e event.Event) apiEvent {
	return apiEvent{
		ID:             e.ID,
		Title:          e.Title,
		Description:    e.Description,
		Date:           e.Date.Format(event.DateLayout),
		Time:           e.Time.Format(event.TimeLayout),
		CreatedAt:      e.CreatedAt,
		Location:       e.Location,
		Category:       e.Category,
		PhotoURL:       e.PhotoURL,
		UserProfileURL: e.UserProfileURL,
	}
}

// authenticated wraps a handler with bearer-token verification.
func (s *Server) authenticated(
	h func(w http.ResponseWriter, r *http.Request, pathParams map[string]string, user event.Userdata),
) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
		header := r.Header.Get("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			writeError(w, http.StatusUnauthorized, errUnauthorized)
			return
		}
		user, err := s.verifier.Verify(parts[1])
		if err != nil {
			writeError(w, http.StatusUnauthorized, errUnauthorized)
			return
		}
		h(w, r, pathParams, user)
	}
}

func (s *Server) createEvent(w http.ResponseWriter, r *http.Request, _ map[string]string, user event.Userdata) {
	var a apiEvent
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		writeError(w, http.StatusBadRequest, errEventNotProvided)
		return
	}

	e, errMsg := toEvent(a)
	if errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}
	e.UserProfileURL = user.ProfilePictureURL

	id, err := s.app.CreateEvent(r.Context(), e, a.Photo)
	if err != nil {
		log.Errorf("failed to create event: %v", err)
		writeError(w, http.StatusInternalServerError, errInternalServerError)
		return
	}

	created, err := s.app.Storage.GetEvent(r.Context(), id)
	if err != nil {
		log.Errorf("failed to read back event %q: %v", id, err)
		writeError(w, http.StatusInternalServerError, errInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "event": toAPIEvent(created)})
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	opt := event.ParseSortOption(r.URL.Query().Get("sort"))
	events, err := s.app.ListEvents(r.Context(), opt)
	if err != nil {
		log.Errorf("failed to list events: %v", err)
		writeError(w, http.StatusInternalServerError, errInternalServerError)
		return
	}

	out := make([]apiEvent, 0, len(events))
	for _, e := range events {
		out = append(out, toAPIEvent(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": out})
}

func (s *Server) getEvent(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	detailed, err := s.app.GetEvent(r.Context(), pathParams["id"])
	if errors.Is(err, storage.ErrNotFoundEvent) {
		writeError(w, http.StatusNotFound, errEventNotFound)
		return
	}
	if err != nil {
		log.Errorf("failed to get event: %v", err)
		writeError(w, http.StatusInternalServerError, errInternalServerError)
		return
	}

	a := toAPIEvent(detailed.Event)
	a.MapURL = detailed.MapURL
	writeJSON(w, http.StatusOK, map[string]any{"event": a})
}

func (s *Server) updateEvent(w http.ResponseWriter, r *http.Request, pathParams map[string]string, _ event.Userdata) {
	var a apiEvent
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		writeError(w, http.StatusBadRequest, errEventNotProvided)
		return
	}
	e, errMsg := toEvent(a)
	if errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	err := s.app.UpdateEvent(r.Context(), pathParams["id"], e)
	if errors.Is(err, storage.ErrNotFoundEvent) {
		writeError(w, http.StatusNotFound, errEventNotFound)
		return
	}
	if err != nil {
		log.Errorf("failed to update event: %v", err)
		writeError(w, http.StatusInternalServerError, errInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{})
}

func (s *Server) removeEvent(w http.ResponseWriter, r *http.Request, pathParams map[string]string, _ event.Userdata) {
	err := s.app.RemoveEvent(r.Context(), pathParams["id"])
	if errors.Is(err, storage.ErrNotFoundEvent) {
		writeError(w, http.StatusNotFound, errEventNotFound)
		return
	}
	if err != nil {
		log.Errorf("failed to remove event: %v", err)
		writeError(w, http.StatusInternalServerError, errInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{})
}

func (s *Server) exportICS(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	feed, err := s.app.ExportICS(r.Context())
	if err != nil {
		log.Errorf("failed to export events: %v", err)
		writeError(w, http.StatusInternalServerError, errInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	io.WriteString(w, feed)
}

func (s *Server) currentUser(w http.ResponseWriter, _ *http.Request, _ map[string]string, user event.Userdata) {
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (s *Server) setNotifications(w http.ResponseWriter, r *http.Request, _ map[string]string, user event.Userdata) {
	var body struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "body is not provided")
		return
	}
	if err := s.prefs.SetNotificationsEnabled(user.UserID, body.Enabled); err != nil {
		log.Errorf("failed to store preference: %v", err)
		writeError(w, http.StatusInternalServerError, errInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"enabled": body.Enabled})
}

func (s *Server) serveMedia(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	rel := filepath.Clean(filepath.FromSlash(pathParams["path"]))
	if rel == "." || strings.HasPrefix(rel, "..") {
		writeError(w, http.StatusBadRequest, "invalid media path")
		return
	}
	http.ServeFile(w, r, filepath.Join(s.mediaRoot, rel))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Errorf("failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
