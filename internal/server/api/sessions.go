package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/fretwise/internal/store"
)

// DefaultMaxFrameBytes caps a single uploaded frame.
const DefaultMaxFrameBytes = 8 << 20

// SessionHandler serves /api/sessions and its sub-resources.
type SessionHandler struct {
	svc          Tracking
	log          logrus.FieldLogger
	frameTimeout time.Duration
	maxBytes     int64
}

// SessionOptions tunes a SessionHandler.
type SessionOptions struct {
	Logger logrus.FieldLogger
	// FrameTimeout bounds one frame's processing. Zero means no bound.
	FrameTimeout  time.Duration
	MaxFrameBytes int64
}

// NewSessionHandler creates a SessionHandler over svc.
func NewSessionHandler(svc Tracking, opts SessionOptions) *SessionHandler {
	h := &SessionHandler{
		svc:          svc,
		log:          opts.Logger,
		frameTimeout: opts.FrameTimeout,
		maxBytes:     opts.MaxFrameBytes,
	}
	if h.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		h.log = l
	}
	if h.maxBytes <= 0 {
		h.maxBytes = DefaultMaxFrameBytes
	}
	return h
}

// ServeHTTP routes:
//
//	GET    /api/sessions
//	POST   /api/sessions
//	DELETE /api/sessions/{id}
//	POST   /api/sessions/{id}/frames
//	GET    /api/sessions/{id}/events
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/sessions")
	path = strings.Trim(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	parts := strings.Split(path, "/")
	id := parts[0]

	switch {
	case len(parts) == 1:
		if r.Method != http.MethodDelete {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.stop(w, r, id)
	case len(parts) == 2 && parts[1] == "frames":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.frame(w, r, id)
	case len(parts) == 2 && parts[1] == "events":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.events(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// Request and response types

type createSessionRequest struct {
	Source string `json:"source"`
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type sessionResponse struct {
	ID        string  `json:"id"`
	Source    string  `json:"source"`
	Frames    int     `json:"frames"`
	Active    bool    `json:"active"`
	CreatedAt string  `json:"created_at"`
	EndedAt   *string `json:"ended_at"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

type eventResponse struct {
	Kind       string  `json:"kind"`
	Frame      int     `json:"frame"`
	DriftError float64 `json:"drift_error"`
	CreatedAt  string  `json:"created_at"`
}

type listEventsResponse struct {
	SessionID string          `json:"session_id"`
	Events    []eventResponse `json:"events"`
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

func toSessionResponse(s *store.Session) sessionResponse {
	resp := sessionResponse{
		ID:        s.ID,
		Source:    s.Source,
		Frames:    s.Frames,
		Active:    s.Active(),
		CreatedAt: s.CreatedAt.Format(timeLayout),
	}
	if s.EndedAt != nil {
		ended := s.EndedAt.Format(timeLayout)
		resp.EndedAt = &ended
	}
	return resp
}

// create handles POST /api/sessions. The body is optional.
func (h *SessionHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
	}
	if req.Source == "" {
		req.Source = "api"
	}

	id, err := h.svc.CreateSession(req.Source)
	if err != nil {
		h.log.WithError(err).Error("failed to create session")
		writeError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}
	writeJSON(w, http.StatusCreated, createSessionResponse{SessionID: id})
}

// list handles GET /api/sessions.
func (h *SessionHandler) list(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.svc.Sessions()
	if err != nil {
		writeError(w, StatusFor(err), "Failed to list sessions")
		return
	}

	resp := listSessionsResponse{Sessions: make([]sessionResponse, 0, len(sessions))}
	for _, s := range sessions {
		resp.Sessions = append(resp.Sessions, toSessionResponse(s))
	}
	writeJSON(w, http.StatusOK, resp)
}

// stop handles DELETE /api/sessions/{id}.
func (h *SessionHandler) stop(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.svc.StopSession(id); err != nil {
		status := StatusFor(err)
		if status == http.StatusBadRequest {
			writeError(w, status, "Invalid session_id")
			return
		}
		h.log.WithError(err).WithField("session_id", id).Error("failed to stop session")
		writeError(w, status, "Failed to stop session")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Session " + id + " stopped."})
}

// frame handles POST /api/sessions/{id}/frames.
func (h *SessionHandler) frame(w http.ResponseWriter, r *http.Request, id string) {
	if !h.svc.HasSession(id) {
		writeError(w, http.StatusBadRequest, "Invalid session_id")
		return
	}

	mat, err := ReadFrame(w, r, h.maxBytes)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to decode image")
		return
	}
	defer mat.Close()

	ctx := r.Context()
	if h.frameTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.frameTimeout)
		defer cancel()
	}

	res, err := h.svc.ProcessFrame(ctx, id, &mat)
	if err != nil {
		status := StatusFor(err)
		if status == http.StatusBadRequest {
			writeError(w, status, "Invalid session_id")
			return
		}
		h.log.WithError(err).WithField("session_id", id).Warn("frame not processed")
		writeError(w, status, "Failed to process frame")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// events handles GET /api/sessions/{id}/events.
func (h *SessionHandler) events(w http.ResponseWriter, r *http.Request, id string) {
	events, err := h.svc.Events(id)
	if err != nil {
		status := StatusFor(err)
		if status == http.StatusNotFound {
			writeError(w, status, "Session not found")
			return
		}
		writeError(w, status, "Failed to list events")
		return
	}

	resp := listEventsResponse{SessionID: id, Events: make([]eventResponse, 0, len(events))}
	for _, e := range events {
		resp.Events = append(resp.Events, eventResponse{
			Kind:       e.Kind,
			Frame:      e.Frame,
			DriftError: e.DriftError,
			CreatedAt:  e.CreatedAt.Format(timeLayout),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
