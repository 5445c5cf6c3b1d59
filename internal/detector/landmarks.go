// Package detector provides hand landmark detection for the fretting hand.
package detector

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Point3D represents a landmark. X and Y are normalized to [0,1] of the
// frame width and height; Z is relative depth.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks represents the 21 hand landmarks detected by MediaPipe.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// Finger names a fingertip landmark and the joint right below it.
type Finger struct {
	ID    int
	Tip   int
	Joint int
}

// Fingers lists the tracked fingers by guitar fingering number: 1 index,
// 2 middle, 3 ring, 4 pinky and 5 for the thumb.
var Fingers = []Finger{
	{ID: 1, Tip: IndexTip, Joint: IndexDIP},
	{ID: 2, Tip: MiddleTip, Joint: MiddleDIP},
	{ID: 3, Tip: RingTip, Joint: RingDIP},
	{ID: 4, Tip: PinkyTip, Joint: PinkyDIP},
	{ID: 5, Tip: ThumbTip, Joint: ThumbIP},
}

// Pixel returns landmark i scaled to a width x height frame.
func (h *HandLandmarks) Pixel(i, width, height int) (x, y float64) {
	p := h.Points[i]
	return p.X * float64(width), p.Y * float64(height)
}
