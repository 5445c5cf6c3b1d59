package fretboard

import "github.com/ayusman/fretwise/internal/geometry"

// Interpolator rebuilds absent fret lines from the nut, a far anchor and the
// baseline distance ratios.
type Interpolator struct {
	MaxScale          float64
	DefaultHalfLength float64
}

// Anchor returns the far anchor used for interpolation: the center of farBox
// at index n when a box is supplied, otherwise the highest present index.
// The index is -1 when no anchor exists.
func Anchor(corners Corners, farBox *geometry.Rect, n int) (geometry.Point, int) {
	if farBox != nil {
		return farBox.Center(), n
	}
	idx := corners.LastPresent()
	if idx < 0 {
		return geometry.Point{}, -1
	}
	return corners[idx].Center(), idx
}

// Fill returns corners with every absent fret reconstructed. lastKnown is
// updated in place with every fret present on entry and every fret rebuilt.
//
// Interpolated frets copy the far segment's length and tilt. Without a far
// segment they get a short vertical default.
func (ip Interpolator) Fill(corners, lastKnown Corners, base *Baseline, farBox *geometry.Rect) Corners {
	n := len(corners) - 1
	mustLen(lastKnown, n)

	out := corners.Clone()
	if out[0] == nil {
		return out
	}
	nut := out[0].Center()

	far, farIdx := Anchor(out, farBox, n)
	if farIdx < 0 {
		return out
	}
	if base.Entry(0) == nil {
		return out
	}
	farInit, ok := base.Distance(farIdx)
	if !ok || farInit < 1e-5 {
		return out
	}

	scale := nut.Distance(far) / farInit
	if scale > ip.MaxScale {
		scale = ip.MaxScale
	}
	total := farInit * scale

	axis, axisOK := far.Sub(nut).Unit()
	farSeg := out[farIdx]

	for i := 1; i <= n; i++ {
		if out[i] != nil {
			lastKnown[i] = out[i]
			continue
		}
		d, ok := base.Distance(i)
		if !ok || !axisOK {
			if lastKnown[i] != nil {
				out[i] = lastKnown[i]
			}
			continue
		}

		center := nut.Add(axis.Scale(total * (d / farInit)))
		if farSeg != nil {
			out[i] = farSeg.CenteredAt(center)
		} else {
			h := geometry.Pt(0, ip.DefaultHalfLength)
			out[i] = geometry.Seg(center.Sub(h), center.Add(h))
		}
		lastKnown[i] = out[i]
	}
	return out
}
