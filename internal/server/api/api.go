// Package api provides the HTTP handlers of the fretwise tracking API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"gocv.io/x/gocv"

	"github.com/ayusman/fretwise/internal/app"
	"github.com/ayusman/fretwise/internal/session"
	"github.com/ayusman/fretwise/internal/store"
)

// Tracking is the session service behind the handlers.
type Tracking interface {
	CreateSession(source string) (string, error)
	ProcessFrame(ctx context.Context, id string, frame *gocv.Mat) (app.FrameResult, error)
	StopSession(id string) error
	HasSession(id string) bool
	Events(id string) ([]*store.Event, error)
	Sessions() ([]*store.Session, error)
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// StatusFor maps a service error to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrUnknownSession):
		return http.StatusBadRequest
	case errors.Is(err, ErrBadImage):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, app.ErrNoStore):
		return http.StatusNotImplemented
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
