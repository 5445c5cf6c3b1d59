// Package fretboard tracks the nut and fret lines of a guitar neck across
// video frames and maps fingertips to (fret, string) positions.
//
// A Tracker starts Unanchored and waits for a run of stable detections
// before committing a geometric baseline. Once Anchored it matches each
// frame's segmentation candidates to fret identities, repairs missing or
// implausible frets from the baseline, and resets when the model drifts
// too far from what the camera sees.
package fretboard

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/ayusman/fretwise/internal/geometry"
)

// Class identifies what a segmentation candidate is.
type Class string

const (
	// ClassNut is the nut at the head end of the neck.
	ClassNut Class = "nut"
	// ClassFret is a single fret wire.
	ClassFret Class = "fret"
)

// Candidate is one segmentation detection for a frame.
type Candidate struct {
	Class Class
	Score float64
	// Extreme holds the (top, bottom) extreme points of the largest mask
	// component, or nil when the mask had no usable contour.
	Extreme *geometry.Segment
	// Box is the bounding box of the same component.
	Box *geometry.Rect
}

// Fingertip is one tracked fingertip of the fretting hand.
type Fingertip struct {
	FingerID int
	Tip      geometry.Point
	// Joint is the next joint down the finger, when known.
	Joint *geometry.Point
}

// CandidateProvider proposes nut and fret candidates for a frame.
type CandidateProvider interface {
	Candidates(frame *gocv.Mat) ([]Candidate, error)
}

// LandmarkProvider locates fingertips of the fretting hand in a frame.
type LandmarkProvider interface {
	Fingertips(frame *gocv.Mat) ([]Fingertip, error)
}

// FrameInput is everything the tracker consumes for one frame.
type FrameInput struct {
	Candidates []Candidate
	Fingertips []Fingertip
}

// FingerPosition is where a fingertip lands on the neck. Nil fields mean the
// point fell outside every fret or string region.
type FingerPosition struct {
	Fretboard *int `json:"fretboard"`
	String    *int `json:"string"`
}

// Result is the per-frame tracker output.
type Result struct {
	DetectionDone   bool                   `json:"detection_done"`
	StableCount     int                    `json:"stable_count"`
	FingerPositions map[int]FingerPosition `json:"finger_positions"`
}

// State is the tracker's anchoring state.
type State int

const (
	// Unanchored means no baseline is committed yet.
	Unanchored State = iota
	// Anchored means a baseline exists and frames are being tracked.
	Anchored
)

func (s State) String() string {
	switch s {
	case Unanchored:
		return "unanchored"
	case Anchored:
		return "anchored"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Corners holds one segment per fret line, index 0 being the nut. A nil
// entry is an absent observation.
type Corners []*geometry.Segment

// NewCorners returns an all-absent corner array for n frets.
func NewCorners(n int) Corners {
	return make(Corners, n+1)
}

// Clone returns a shallow copy. Segments are never mutated in place, so
// sharing them is safe.
func (c Corners) Clone() Corners {
	out := make(Corners, len(c))
	copy(out, c)
	return out
}

// Present reports whether index i holds an observation.
func (c Corners) Present(i int) bool {
	return i >= 0 && i < len(c) && c[i] != nil
}

// LastPresent returns the highest index >= 1 holding an observation, or -1.
func (c Corners) LastPresent() int {
	for i := len(c) - 1; i >= 1; i-- {
		if c[i] != nil {
			return i
		}
	}
	return -1
}

// mustLen panics when a corner array does not match the configured fret
// count. A mismatch means a caller broke the array contract.
func mustLen(c Corners, n int) {
	if len(c) != n+1 {
		panic(fmt.Sprintf("fretboard: corner array has %d slots, want %d", len(c), n+1))
	}
}

func intPtr(v int) *int {
	return &v
}
