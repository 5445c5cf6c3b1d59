// Package chord recognizes chord shapes from mapped finger positions.
package chord

import (
	"sort"
	"sync"

	"github.com/ayusman/fretwise/internal/fretboard"
)

// Thumb is the finger id excluded from matching; it rests behind the neck.
const Thumb = 5

// Shape is a chord fingering. Index 0 of Frets and Fingers is string 1, the
// high E. A fret of 0 is an open string and needs no finger.
type Shape struct {
	Name    string                      `json:"name"`
	Frets   [fretboard.StringCount]int `json:"frets"`
	Fingers [fretboard.StringCount]int `json:"fingers"`
}

// press is one fretted note of a shape.
type press struct {
	str, fret, finger int
}

func (s *Shape) presses() []press {
	var out []press
	for i, f := range s.Frets {
		if f > 0 {
			out = append(out, press{str: i + 1, fret: f, finger: s.Fingers[i]})
		}
	}
	return out
}

// Match is a matching result between finger positions and a shape.
type Match struct {
	Shape *Shape `json:"shape"`
	// Score is hits / (required + extra presses), in [0, 1].
	Score float64 `json:"score"`
	// FingerScore is the share of required presses made with the written
	// finger.
	FingerScore float64 `json:"finger_score"`
}

// Matcher scores finger positions against registered shapes. It is safe for
// concurrent use.
type Matcher struct {
	mu       sync.RWMutex
	shapes   []*Shape
	minScore float64
}

// NewMatcher creates a matcher with the default shapes.
func NewMatcher(minScore float64) *Matcher {
	return &Matcher{minScore: minScore, shapes: DefaultShapes()}
}

// MinScore returns the lowest score Match reports.
func (m *Matcher) MinScore() float64 {
	return m.minScore
}

// AddShape registers a shape, replacing one with the same name.
func (m *Matcher) AddShape(s *Shape) {
	if s == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remove(s.Name)
	m.shapes = append(m.shapes, s)
}

// RemoveShape removes a shape by name and reports whether it existed.
func (m *Matcher) RemoveShape(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.remove(name)
}

func (m *Matcher) remove(name string) bool {
	for i, s := range m.shapes {
		if s.Name == name {
			m.shapes = append(m.shapes[:i:i], m.shapes[i+1:]...)
			return true
		}
	}
	return false
}

// Shapes returns the registered shapes.
func (m *Matcher) Shapes() []*Shape {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*Shape(nil), m.shapes...)
}

// Match returns the shapes scoring at least MinScore(), best first. Fingers
// outside the neck or on the thumb are ignored.
func (m *Matcher) Match(positions map[int]fretboard.FingerPosition) []Match {
	pressed := make(map[[2]int]int) // (string, fret) -> finger
	for id, p := range positions {
		if id == Thumb || p.Fretboard == nil || p.String == nil {
			continue
		}
		pressed[[2]int{*p.String, *p.Fretboard}] = id
	}
	if len(pressed) == 0 {
		return nil
	}

	var matches []Match
	for _, s := range m.Shapes() {
		required := s.presses()
		if len(required) == 0 {
			continue
		}

		hits, fingered := 0, 0
		for _, r := range required {
			finger, ok := pressed[[2]int{r.str, r.fret}]
			if !ok {
				continue
			}
			hits++
			if finger == r.finger {
				fingered++
			}
		}
		extra := len(pressed) - hits

		score := float64(hits) / float64(len(required)+extra)
		if hits == 0 || score < m.minScore {
			continue
		}
		matches = append(matches, Match{
			Shape:       s,
			Score:       score,
			FingerScore: float64(fingered) / float64(len(required)),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}
