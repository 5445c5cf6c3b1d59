package detector

import (
	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	hands []HandLandmarks
	err   error
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.err = err
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// FrettingHandLandmarks returns a preset hand curled over a horizontal neck,
// seen from the front. Fingertips point down onto the strings and the
// thumb wraps behind the neck near the top.
func FrettingHandLandmarks(handedness string) HandLandmarks {
	landmarks := HandLandmarks{
		Handedness: handedness,
		Score:      0.95,
	}

	landmarks.Points[Wrist] = Point3D{X: 0.30, Y: 0.85, Z: 0.0}

	// Thumb rests above the neck.
	landmarks.Points[ThumbCMC] = Point3D{X: 0.30, Y: 0.70, Z: 0.02}
	landmarks.Points[ThumbMCP] = Point3D{X: 0.31, Y: 0.55, Z: 0.03}
	landmarks.Points[ThumbIP] = Point3D{X: 0.32, Y: 0.45, Z: 0.03}
	landmarks.Points[ThumbTip] = Point3D{X: 0.33, Y: 0.38, Z: 0.03}

	// Fingers arch over and press down, tip below the last joint.
	landmarks.Points[IndexMCP] = Point3D{X: 0.36, Y: 0.70, Z: 0.0}
	landmarks.Points[IndexPIP] = Point3D{X: 0.38, Y: 0.58, Z: -0.02}
	landmarks.Points[IndexDIP] = Point3D{X: 0.39, Y: 0.48, Z: -0.03}
	landmarks.Points[IndexTip] = Point3D{X: 0.39, Y: 0.52, Z: -0.04}

	landmarks.Points[MiddleMCP] = Point3D{X: 0.34, Y: 0.70, Z: 0.0}
	landmarks.Points[MiddlePIP] = Point3D{X: 0.42, Y: 0.60, Z: -0.02}
	landmarks.Points[MiddleDIP] = Point3D{X: 0.44, Y: 0.50, Z: -0.03}
	landmarks.Points[MiddleTip] = Point3D{X: 0.44, Y: 0.56, Z: -0.04}

	landmarks.Points[RingMCP] = Point3D{X: 0.32, Y: 0.72, Z: 0.0}
	landmarks.Points[RingPIP] = Point3D{X: 0.46, Y: 0.62, Z: -0.02}
	landmarks.Points[RingDIP] = Point3D{X: 0.48, Y: 0.54, Z: -0.03}
	landmarks.Points[RingTip] = Point3D{X: 0.48, Y: 0.60, Z: -0.04}

	landmarks.Points[PinkyMCP] = Point3D{X: 0.30, Y: 0.74, Z: 0.0}
	landmarks.Points[PinkyPIP] = Point3D{X: 0.50, Y: 0.66, Z: -0.02}
	landmarks.Points[PinkyDIP] = Point3D{X: 0.52, Y: 0.58, Z: -0.03}
	landmarks.Points[PinkyTip] = Point3D{X: 0.52, Y: 0.63, Z: -0.04}

	return landmarks
}
