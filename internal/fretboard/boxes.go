package fretboard

import "github.com/ayusman/fretwise/internal/geometry"

// refBox remembers the last observed bounding box of a reference object and
// forgets it after too many frames without an observation.
type refBox struct {
	box        *geometry.Rect
	missing    int
	maxMissing int
}

func newRefBox(maxMissing int) *refBox {
	return &refBox{maxMissing: maxMissing}
}

func (r *refBox) observe(b geometry.Rect) {
	r.box = &b
	r.missing = 0
}

func (r *refBox) miss() {
	if r.box == nil {
		return
	}
	r.missing++
	if r.missing > r.maxMissing {
		r.box = nil
		r.missing = 0
	}
}

// rect returns the remembered box or nil.
func (r *refBox) rect() *geometry.Rect {
	return r.box
}
