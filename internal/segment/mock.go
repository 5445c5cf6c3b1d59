package segment

import "gocv.io/x/gocv"

// MockSegmenter returns preset masks. Each call hands out clones so the
// caller may close them.
type MockSegmenter struct {
	masks []Mask
	err   error
	calls int
}

// NewMockSegmenter creates an empty MockSegmenter.
func NewMockSegmenter() *MockSegmenter {
	return &MockSegmenter{}
}

// SetMasks sets the masks returned by Segment. The mock takes ownership.
func (m *MockSegmenter) SetMasks(masks []Mask) {
	closeMasks(m.masks)
	m.masks = masks
}

// SetError sets the error returned by Segment.
func (m *MockSegmenter) SetError(err error) {
	m.err = err
}

// Calls returns how many times Segment ran.
func (m *MockSegmenter) Calls() int {
	return m.calls
}

// Segment returns clones of the preset masks or the preset error.
func (m *MockSegmenter) Segment(frame *gocv.Mat) ([]Mask, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := make([]Mask, len(m.masks))
	for i, mask := range m.masks {
		out[i] = Mask{Class: mask.Class, Score: mask.Score, Mat: mask.Mat.Clone()}
	}
	return out, nil
}

// Close releases the preset masks.
func (m *MockSegmenter) Close() error {
	closeMasks(m.masks)
	m.masks = nil
	return nil
}
