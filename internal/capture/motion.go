package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Motion detection defaults.
const (
	// DefaultBlurSize is the Gaussian kernel applied before differencing.
	DefaultBlurSize = 21
	// DefaultDiffThreshold is the per-pixel intensity change that counts.
	DefaultDiffThreshold = 25
)

// MotionDetector reports whether consecutive frames differ. It lets the live
// loop drop to an idle rate while nobody is playing.
type MotionDetector struct {
	percent float64
	blur    int
	diff    float32
	prev    gocv.Mat
	hasPrev bool
	mu      sync.Mutex
}

// NewMotionDetector creates a detector that fires when more than percent of
// the pixels changed between frames.
func NewMotionDetector(percent float64) *MotionDetector {
	return &MotionDetector{
		percent: percent,
		blur:    DefaultBlurSize,
		diff:    DefaultDiffThreshold,
		prev:    gocv.NewMat(),
	}
}

// Detect compares frame with the previous one and returns whether motion was
// seen together with the changed share of pixels in percent. The first frame
// only primes the detector.
func (m *MotionDetector) Detect(frame *gocv.Mat) (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Pt(m.blur, m.blur), 0, 0, gocv.BorderDefault)

	// A resolution change restarts the comparison.
	if !m.hasPrev || m.prev.Rows() != blurred.Rows() || m.prev.Cols() != blurred.Cols() {
		blurred.CopyTo(&m.prev)
		m.hasPrev = true
		return false, 0
	}

	delta := gocv.NewMat()
	defer delta.Close()
	gocv.AbsDiff(blurred, m.prev, &delta)

	changed := gocv.NewMat()
	defer changed.Close()
	gocv.Threshold(delta, &changed, m.diff, 255, gocv.ThresholdBinary)

	percent := float64(gocv.CountNonZero(changed)) / float64(changed.Rows()*changed.Cols()) * 100
	blurred.CopyTo(&m.prev)

	return percent > m.percent, percent
}

// Reset forgets the previous frame.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.release()
}

// Close releases the stored frame. The detector stays usable.
func (m *MotionDetector) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.release()
}

func (m *MotionDetector) release() {
	m.prev.Close()
	m.prev = gocv.NewMat()
	m.hasPrev = false
}

// SetThreshold changes the changed-pixel percentage. Values less than or
// equal to 0 are ignored.
func (m *MotionDetector) SetThreshold(percent float64) {
	if percent <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.percent = percent
}
