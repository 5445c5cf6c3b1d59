package fretboard

import "github.com/ayusman/fretwise/internal/geometry"

// BaselineEntry is the reference geometry of one fret line relative to the
// nut at anchoring time.
type BaselineEntry struct {
	DistanceFromNut float64
	AngleFromNut    float64
}

// Baseline is the immutable reference geometry committed when the tracker
// anchors.
type Baseline struct {
	entries []*BaselineEntry
	initial Corners
}

// NewBaseline computes per-index distance and angle from the nut. Indices
// absent in corners get no entry. A missing nut yields an empty baseline.
func NewBaseline(corners Corners) *Baseline {
	b := &Baseline{
		entries: make([]*BaselineEntry, len(corners)),
		initial: corners.Clone(),
	}
	if corners[0] == nil {
		return b
	}

	nut := corners[0].Center()
	for i, c := range corners {
		if c == nil {
			continue
		}
		center := c.Center()
		b.entries[i] = &BaselineEntry{
			DistanceFromNut: nut.Distance(center),
			AngleFromNut:    geometry.AngleDegrees(nut, center),
		}
	}
	return b
}

// Entry returns the baseline entry for index i, or nil.
func (b *Baseline) Entry(i int) *BaselineEntry {
	if b == nil || i < 0 || i >= len(b.entries) {
		return nil
	}
	return b.entries[i]
}

// Distance returns the baseline distance of index i from the nut.
func (b *Baseline) Distance(i int) (float64, bool) {
	e := b.Entry(i)
	if e == nil {
		return 0, false
	}
	return e.DistanceFromNut, true
}

// Initial returns a copy of the corners the baseline was built from.
func (b *Baseline) Initial() Corners {
	return b.initial.Clone()
}

// NutCenter returns the nut center at anchoring time.
func (b *Baseline) NutCenter() (geometry.Point, bool) {
	if b == nil || b.initial[0] == nil {
		return geometry.Point{}, false
	}
	return b.initial[0].Center(), true
}

// FarIndex returns the last fret index that was present at anchoring time,
// or -1.
func (b *Baseline) FarIndex() int {
	return b.initial.LastPresent()
}
