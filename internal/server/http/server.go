package internalhttp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/eventorias/eventorias/internal/app"
	"github.com/eventorias/eventorias/internal/auth"
	"github.com/eventorias/eventorias/internal/prefs"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	Host      string
	Port      int
	MediaRoot string
}

type Server struct {
	srv       *http.Server
	addr      string
	app       *app.App
	verifier  *auth.TokenVerifier
	prefs     prefs.Store
	mediaRoot string
}

func NewServer(config Config, application *app.App, verifier *auth.TokenVerifier, prefStore prefs.Store) *Server {
	addr := net.JoinHostPort(config.Host, strconv.Itoa(config.Port))
	return &Server{
		addr:      addr,
		srv:       &http.Server{Addr: addr},
		app:       application,
		verifier:  verifier,
		prefs:     prefStore,
		mediaRoot: config.MediaRoot,
	}
}

// Handler builds the route table. Exposed for tests.
func (s *Server) Handler() (http.Handler, error) {
	mux := runtime.NewServeMux()

	routes := []struct {
		method  string
		pattern string
		handler runtime.HandlerFunc
	}{
		{"POST", "/events", s.authenticated(s.createEvent)},
		{"GET", "/events", s.listEvents},
		{"GET", "/events/export.ics", s.exportICS},
		{"GET", "/events/{id}", s.getEvent},
		{"PUT", "/events/{id}", s.authenticated(s.updateEvent)},
		{"DELETE", "/events/{id}", s.authenticated(s.removeEvent)},
		{"GET", "/users/me", s.authenticated(s.currentUser)},
		{"PUT", "/users/me/notifications", s.authenticated(s.setNotifications)},
	}
	if s.mediaRoot != "" {
		routes = append(routes, struct {
			method  string
			pattern string
			handler runtime.HandlerFunc
		}{"GET", "/media/{path=**}", s.serveMedia})
	}

	for _, r := range routes {
		if err := mux.HandlePath(r.method, r.pattern, r.handler); err != nil {
			return nil, fmt.Errorf("failed to register route %s %s: %w", r.method, r.pattern, err)
		}
	}
	return loggingMiddleware(mux), nil
}

func (s *Server) Start(_ context.Context) error {
	handler, err := s.Handler()
	if err != nil {
		return err
	}
	s.srv.Handler = handler

	log.Printf("starting http server on %s", s.addr)
	err = s.srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func getIP(req *http.Request) (string, error) {
	ip, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return "", fmt.Errorf("userip: %q is not IP:port", req.RemoteAddr)
	}

	if parsed := net.ParseIP(ip); parsed == nil {
		return "", fmt.Errorf("userip: %q is not IP:port", req.RemoteAddr)
	}
	return ip, nil
}
