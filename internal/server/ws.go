package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/ayusman/fretwise/internal/app"
	"github.com/ayusman/fretwise/internal/server/api"
	"github.com/ayusman/fretwise/internal/session"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Message types exchanged over the frame socket.
const (
	MsgConnected = "connection_established"
	MsgFrame     = "frame"
	MsgResult    = "result"
	MsgError     = "error"
	MsgPing      = "ping"
	MsgPong      = "pong"
)

// FrameSocket streams frames of one session over a WebSocket. Clients send
// binary JPEG frames, or text messages {"type":"frame","frame":"<base64>"};
// every frame is answered with a result message.
type FrameSocket struct {
	svc          api.Tracking
	log          logrus.FieldLogger
	frameTimeout time.Duration
	maxBytes     int64
}

// NewFrameSocket creates the handler for /api/sessions/{id}/ws.
func NewFrameSocket(svc api.Tracking, log logrus.FieldLogger, frameTimeout time.Duration, maxBytes int64) *FrameSocket {
	return &FrameSocket{svc: svc, log: log, frameTimeout: frameTimeout, maxBytes: maxBytes}
}

type inbound struct {
	Type  string `json:"type"`
	Frame string `json:"frame"`
}

type outbound struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message,omitempty"`
}

type resultMessage struct {
	Type string `json:"type"`
	app.FrameResult
}

// ServeHTTP upgrades the request and serves frames until the client leaves.
func (h *FrameSocket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := sessionFromPath(r.URL.Path)
	if id == "" {
		http.NotFound(w, r)
		return
	}
	if !h.svc.HasSession(id) {
		http.Error(w, "Invalid session_id", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade error")
		return
	}
	defer conn.Close()

	// Base64 text frames are a third larger than the image.
	conn.SetReadLimit(h.maxBytes * 2)

	log := h.log.WithField("session_id", id)
	if err := conn.WriteJSON(outbound{Type: MsgConnected, SessionID: id}); err != nil {
		return
	}

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Debug("websocket closed")
			}
			return
		}

		switch kind {
		case websocket.BinaryMessage:
		case websocket.TextMessage:
			var msg inbound
			if err := json.Unmarshal(data, &msg); err != nil {
				conn.WriteJSON(outbound{Type: MsgError, Message: "Invalid JSON"})
				continue
			}
			switch msg.Type {
			case MsgPing:
				conn.WriteJSON(outbound{Type: MsgPong})
				continue
			case MsgFrame:
				data, err = decodeDataURL(msg.Frame)
				if err != nil {
					conn.WriteJSON(outbound{Type: MsgError, Message: "No frame data provided"})
					continue
				}
			default:
				conn.WriteJSON(outbound{Type: MsgError, Message: "Unknown message type"})
				continue
			}
		default:
			continue
		}

		if done := h.process(r.Context(), conn, log, id, data); done {
			return
		}
	}
}

// process runs one frame and reports whether the socket should close.
func (h *FrameSocket) process(parent context.Context, conn *websocket.Conn, log logrus.FieldLogger, id string, data []byte) bool {
	mat, err := api.DecodeImage(data)
	if err != nil {
		return conn.WriteJSON(outbound{Type: MsgError, Message: "Failed to decode image"}) != nil
	}
	defer mat.Close()

	ctx := parent
	if h.frameTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, h.frameTimeout)
		defer cancel()
	}

	res, err := h.svc.ProcessFrame(ctx, id, &mat)
	if err != nil {
		if errors.Is(err, session.ErrUnknownSession) {
			conn.WriteJSON(outbound{Type: MsgError, Message: "Session stopped"})
			return true
		}
		log.WithError(err).Warn("frame not processed")
		return conn.WriteJSON(outbound{Type: MsgError, Message: "Failed to process frame"}) != nil
	}
	return conn.WriteJSON(resultMessage{Type: MsgResult, FrameResult: res}) != nil
}

// sessionFromPath extracts {id} from /api/sessions/{id}/ws.
func sessionFromPath(path string) string {
	path = strings.TrimPrefix(path, "/api/sessions/")
	id, rest, ok := strings.Cut(path, "/")
	if !ok || rest != "ws" {
		return ""
	}
	return id
}

// decodeDataURL accepts plain base64 or a data URL.
func decodeDataURL(s string) ([]byte, error) {
	if _, payload, ok := strings.Cut(s, ","); ok {
		s = payload
	}
	if s == "" {
		return nil, errors.New("empty frame")
	}
	return base64.StdEncoding.DecodeString(s)
}
