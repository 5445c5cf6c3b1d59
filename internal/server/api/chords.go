package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ayusman/fretwise/internal/chord"
	"github.com/ayusman/fretwise/internal/fretboard"
)

// ChordHandler serves the chord shape catalogue at /api/chords.
type ChordHandler struct {
	matcher  *chord.Matcher
	validate *validator.Validate
}

// NewChordHandler creates a ChordHandler over m.
func NewChordHandler(m *chord.Matcher) *ChordHandler {
	return &ChordHandler{matcher: m, validate: validator.New()}
}

// ServeHTTP routes GET and POST /api/chords and DELETE /api/chords/{name}.
func (h *ChordHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/chords"), "/")

	if name == "" {
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

	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.delete(w, r, name)
}

type shapeRequest struct {
	Name    string `json:"name" validate:"required,max=32"`
	Frets   []int  `json:"frets" validate:"len=6,dive,gte=0,lte=24"`
	Fingers []int  `json:"fingers" validate:"len=6,dive,gte=0,lte=5"`
}

type listShapesResponse struct {
	Shapes []*chord.Shape `json:"shapes"`
}

func (h *ChordHandler) list(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, listShapesResponse{Shapes: h.matcher.Shapes()})
}

// create registers a shape, replacing any with the same name.
func (h *ChordHandler) create(w http.ResponseWriter, r *http.Request) {
	var req shapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	shape := &chord.Shape{Name: req.Name}
	for i := 0; i < fretboard.StringCount; i++ {
		shape.Frets[i] = req.Frets[i]
		shape.Fingers[i] = req.Fingers[i]
		if req.Frets[i] > 0 && req.Fingers[i] == 0 {
			writeError(w, http.StatusBadRequest, "Every fretted string needs a finger")
			return
		}
	}

	h.matcher.AddShape(shape)
	writeJSON(w, http.StatusCreated, shape)
}

func (h *ChordHandler) delete(w http.ResponseWriter, r *http.Request, name string) {
	if !h.matcher.RemoveShape(name) {
		writeError(w, http.StatusNotFound, "Chord not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
