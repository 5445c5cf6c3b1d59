package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/ayusman/fretwise/internal/app"
	"github.com/ayusman/fretwise/internal/config"
	"github.com/ayusman/fretwise/internal/fretboard"
	"github.com/ayusman/fretwise/internal/fretboard/fretboardtest"
	"github.com/ayusman/fretwise/internal/store"
)

type neckCandidates struct{ neck fretboardtest.Neck }

func (n neckCandidates) Candidates(*gocv.Mat) ([]fretboard.Candidate, error) {
	return n.neck.Candidates(), nil
}

type noTips struct{}

func (noTips) Fingertips(*gocv.Mat) ([]fretboard.Fingertip, error) { return nil, nil }

type testEnv struct {
	ts     *httptest.Server
	svc    *app.Service
	cfg    config.Config
	jpeg   []byte
	client *http.Client
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := config.Default()
	cfg.Tracker.FretCount = 12
	cfg.Tracker.DriftSampleSlack = 4

	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	svc, err := app.New(app.Options{
		Config:     &cfg,
		Store:      st,
		Candidates: neckCandidates{neck: fretboardtest.NewNeck(cfg.Tracker.FretCount)},
		Landmarks:  noTips{},
	})
	require.NoError(t, err)

	srv := New(Config{
		Tracking:     svc,
		Chords:       svc.Chords(),
		FrameTimeout: cfg.FrameTimeout(),
	})
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, svc: svc, cfg: cfg, jpeg: encodeJPEG(t), client: ts.Client()}
}

func encodeJPEG(t *testing.T) []byte {
	t.Helper()
	mat := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	defer mat.Close()

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, mat)
	require.NoError(t, err)
	defer buf.Close()

	return append([]byte(nil), buf.GetBytes()...)
}

func (e *testEnv) createSession(t *testing.T) string {
	t.Helper()
	resp, err := e.client.Post(e.ts.URL+"/api/sessions", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.NotEmpty(t, created.SessionID)
	return created.SessionID
}

// postFrame uploads the test JPEG as multipart field "file".
func (e *testEnv) postFrame(t *testing.T, id string) (*http.Response, map[string]any) {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "frame.jpg")
	require.NoError(t, err)
	_, err = fw.Write(e.jpeg)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := e.client.Post(e.ts.URL+"/api/sessions/"+id+"/frames", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestAPI_TrackingWorkflow(t *testing.T) {
	e := newTestEnv(t)
	id := e.createSession(t)

	// 1. Frames until the gate commits.
	var last map[string]any
	for i := 1; i <= e.cfg.Tracker.StableFrames; i++ {
		resp, out := e.postFrame(t, id)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, float64(i), out["stable_count"])
		last = out
	}
	assert.Equal(t, true, last["detection_done"])
	assert.Contains(t, last, "finger_positions")
	assert.Contains(t, last, "chords")

	// 2. A raw JPEG body works too.
	resp, err := e.client.Post(e.ts.URL+"/api/sessions/"+id+"/frames", "image/jpeg", bytes.NewReader(e.jpeg))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// 3. The anchoring is in the event log.
	resp, err = e.client.Get(e.ts.URL + "/api/sessions/" + id + "/events")
	require.NoError(t, err)
	var events struct {
		Events []struct {
			Kind  string `json:"kind"`
			Frame int    `json:"frame"`
		} `json:"events"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&events))
	resp.Body.Close()
	require.Len(t, events.Events, 1)
	assert.Equal(t, "anchored", events.Events[0].Kind)
	assert.Equal(t, e.cfg.Tracker.StableFrames, events.Events[0].Frame)

	// 4. Stop the session.
	req, _ := http.NewRequest(http.MethodDelete, e.ts.URL+"/api/sessions/"+id, nil)
	resp, err = e.client.Do(req)
	require.NoError(t, err)
	var msg struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&msg))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, msg.Message, id)

	// 5. The stopped session rejects frames but keeps its history.
	resp, out := e.postFrame(t, id)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid session_id", out["error"])

	resp, err = e.client.Get(e.ts.URL + "/api/sessions")
	require.NoError(t, err)
	var listed struct {
		Sessions []struct {
			ID     string `json:"id"`
			Frames int    `json:"frames"`
			Active bool   `json:"active"`
		} `json:"sessions"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listed))
	resp.Body.Close()
	require.Len(t, listed.Sessions, 1)
	assert.Equal(t, e.cfg.Tracker.StableFrames+1, listed.Sessions[0].Frames)
	assert.False(t, listed.Sessions[0].Active)
}

func TestAPI_Errors(t *testing.T) {
	e := newTestEnv(t)

	t.Run("unknown session", func(t *testing.T) {
		resp, out := e.postFrame(t, "missing")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Invalid session_id", out["error"])
	})

	t.Run("undecodable image", func(t *testing.T) {
		id := e.createSession(t)
		resp, err := e.client.Post(e.ts.URL+"/api/sessions/"+id+"/frames", "image/jpeg", strings.NewReader("not an image"))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("stop unknown session", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodDelete, e.ts.URL+"/api/sessions/missing", nil)
		resp, err := e.client.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("events of unknown session", func(t *testing.T) {
		resp, err := e.client.Get(e.ts.URL + "/api/sessions/missing/events")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("websocket for unknown session", func(t *testing.T) {
		url := "ws" + strings.TrimPrefix(e.ts.URL, "http") + "/api/sessions/missing/ws"
		_, resp, err := websocket.DefaultDialer.Dial(url, nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestAPI_Chords(t *testing.T) {
	e := newTestEnv(t)

	resp, err := e.client.Get(e.ts.URL + "/api/chords")
	require.NoError(t, err)
	var listed struct {
		Shapes []struct {
			Name string `json:"name"`
		} `json:"shapes"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listed))
	resp.Body.Close()
	assert.Len(t, listed.Shapes, 7)

	body := `{"name":"E5","frets":[0,0,0,2,2,0],"fingers":[0,0,0,3,2,0]}`
	resp, err = e.client.Post(e.ts.URL+"/api/chords", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Len(t, e.svc.Chords().Shapes(), 8)

	bad := `{"name":"X","frets":[0,0,0,2,2],"fingers":[0,0,0,3,2,0]}`
	resp, err = e.client.Post(e.ts.URL+"/api/chords", "application/json", strings.NewReader(bad))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodDelete, e.ts.URL+"/api/chords/E5", nil)
	resp, err = e.client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = e.client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_WebSocket(t *testing.T) {
	e := newTestEnv(t)
	id := e.createSession(t)

	url := "ws" + strings.TrimPrefix(e.ts.URL, "http") + "/api/sessions/" + id + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var hello map[string]any
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, MsgConnected, hello["type"])
	assert.Equal(t, id, hello["session_id"])

	t.Run("ping", func(t *testing.T) {
		require.NoError(t, conn.WriteJSON(map[string]string{"type": MsgPing}))
		var pong map[string]any
		require.NoError(t, conn.ReadJSON(&pong))
		assert.Equal(t, MsgPong, pong["type"])
	})

	t.Run("frames anchor the session", func(t *testing.T) {
		var res map[string]any
		for i := 1; i <= e.cfg.Tracker.StableFrames; i++ {
			if i%2 == 0 {
				require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, e.jpeg))
			} else {
				frame := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(e.jpeg)
				require.NoError(t, conn.WriteJSON(map[string]string{"type": MsgFrame, "frame": frame}))
			}
			require.NoError(t, conn.ReadJSON(&res))
			assert.Equal(t, MsgResult, res["type"])
			assert.Equal(t, float64(i), res["stable_count"])
		}
		assert.Equal(t, true, res["detection_done"])
	})

	t.Run("bad frames report errors", func(t *testing.T) {
		require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("junk")))
		var msg map[string]any
		require.NoError(t, conn.ReadJSON(&msg))
		assert.Equal(t, MsgError, msg["type"])

		require.NoError(t, conn.WriteJSON(map[string]string{"type": "dance"}))
		require.NoError(t, conn.ReadJSON(&msg))
		assert.Equal(t, MsgError, msg["type"])
	})

	t.Run("stopped session closes the socket", func(t *testing.T) {
		require.NoError(t, e.svc.StopSession(id))
		require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, e.jpeg))

		var msg map[string]any
		require.NoError(t, conn.ReadJSON(&msg))
		assert.Equal(t, MsgError, msg["type"])

		_, _, err := conn.ReadMessage()
		assert.Error(t, err)
	})
}
