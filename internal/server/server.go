// Package server provides the HTTP server of the fretwise tracking API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/fretwise/internal/chord"
	"github.com/ayusman/fretwise/internal/server/api"
)

// Config holds the server configuration.
type Config struct {
	StaticDir     string
	Tracking      api.Tracking
	Chords        *chord.Matcher
	Logger        logrus.FieldLogger
	FrameTimeout  time.Duration
	MaxFrameBytes int64
}

// Server is the HTTP front end of the tracking service.
type Server struct {
	config Config
	log    logrus.FieldLogger
	mux    *http.ServeMux
	start  time.Time
	http   *http.Server
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	log := config.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	if config.MaxFrameBytes <= 0 {
		config.MaxFrameBytes = api.DefaultMaxFrameBytes
	}

	s := &Server{
		config: config,
		log:    log.WithField("component", "server"),
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Tracking != nil {
		sessions := api.NewSessionHandler(s.config.Tracking, api.SessionOptions{
			Logger:        s.log,
			FrameTimeout:  s.config.FrameTimeout,
			MaxFrameBytes: s.config.MaxFrameBytes,
		})
		socket := NewFrameSocket(s.config.Tracking, s.log, s.config.FrameTimeout, s.config.MaxFrameBytes)

		// /api/sessions/{id}/ws upgrades; everything else is plain HTTP.
		router := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasSuffix(r.URL.Path, "/ws") {
				socket.ServeHTTP(w, r)
				return
			}
			sessions.ServeHTTP(w, r)
		})
		s.mux.Handle("/api/sessions", router)
		s.mux.Handle("/api/sessions/", router)
	}

	if s.config.Chords != nil {
		chords := api.NewChordHandler(s.config.Chords)
		s.mux.Handle("/api/chords", chords)
		s.mux.Handle("/api/chords/", chords)
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("listening")
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
