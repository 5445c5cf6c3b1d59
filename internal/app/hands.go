package app

import (
	"errors"

	"gocv.io/x/gocv"

	"github.com/ayusman/fretwise/internal/detector"
	"github.com/ayusman/fretwise/internal/fretboard"
	"github.com/ayusman/fretwise/internal/geometry"
)

// AnyHand accepts whichever hand the detector is most confident about.
const AnyHand = "any"

// HandAdapter turns hand landmarks into fretting-hand fingertips in pixel
// coordinates.
type HandAdapter struct {
	det        detector.Detector
	handedness string
}

// NewHandAdapter tracks the hand labelled handedness ("Left", "Right" or
// AnyHand).
func NewHandAdapter(det detector.Detector, handedness string) *HandAdapter {
	if handedness == "" {
		handedness = AnyHand
	}
	return &HandAdapter{det: det, handedness: handedness}
}

// Fingertips implements fretboard.LandmarkProvider. A frame without the
// fretting hand yields no fingertips and no error.
func (h *HandAdapter) Fingertips(frame *gocv.Mat) ([]fretboard.Fingertip, error) {
	if frame == nil || frame.Empty() {
		return nil, errors.New("hand landmarks: empty frame")
	}

	hands, err := h.det.Detect(frame)
	if err != nil {
		return nil, err
	}

	hand := h.pick(hands)
	if hand == nil {
		return nil, nil
	}

	w, ht := frame.Cols(), frame.Rows()
	tips := make([]fretboard.Fingertip, 0, len(detector.Fingers))
	for _, f := range detector.Fingers {
		x, y := hand.Pixel(f.Tip, w, ht)
		jx, jy := hand.Pixel(f.Joint, w, ht)
		joint := geometry.Pt(jx, jy)
		tips = append(tips, fretboard.Fingertip{
			FingerID: f.ID,
			Tip:      geometry.Pt(x, y),
			Joint:    &joint,
		})
	}
	return tips, nil
}

// pick returns the best scoring hand with the wanted label.
func (h *HandAdapter) pick(hands []detector.HandLandmarks) *detector.HandLandmarks {
	var best *detector.HandLandmarks
	for i := range hands {
		hand := &hands[i]
		if h.handedness != AnyHand && hand.Handedness != h.handedness {
			continue
		}
		if best == nil || hand.Score > best.Score {
			best = hand
		}
	}
	return best
}

// Close releases the detector.
func (h *HandAdapter) Close() error {
	return h.det.Close()
}
