package fretboard

import "github.com/ayusman/fretwise/internal/geometry"

// FretboardPolygons builds the quad between each pair of consecutive fret
// lines. Entry i spans corners i and i+1 and is nil if either is absent.
func FretboardPolygons(corners Corners) []geometry.Polygon {
	n := len(corners) - 1
	polys := make([]geometry.Polygon, n)
	for i := 0; i < n; i++ {
		a, b := corners[i], corners[i+1]
		if a == nil || b == nil {
			continue
		}
		polys[i] = geometry.Polygon{a.Start, b.Start, b.End, a.End}
	}
	return polys
}

// StringPolygons splits the region between the nut box and the far fret box
// into StringCount bands. Band 0 starts at the top of both boxes. It returns
// nil when either box is missing.
func StringPolygons(nutBox, farBox *geometry.Rect) []geometry.Polygon {
	if nutBox == nil || farBox == nil {
		return nil
	}
	nx := nutBox.X + nutBox.Width*0.5
	fx := farBox.X + farBox.Width*0.5

	nutPts := make([]geometry.Point, StringCount+1)
	farPts := make([]geometry.Point, StringCount+1)
	for i := 0; i <= StringCount; i++ {
		r := float64(i) / StringCount
		nutPts[i] = geometry.Pt(nx, nutBox.Y+nutBox.Height*r)
		farPts[i] = geometry.Pt(fx, farBox.Y+farBox.Height*r)
	}

	polys := make([]geometry.Polygon, StringCount)
	for i := 0; i < StringCount; i++ {
		polys[i] = geometry.Polygon{nutPts[i], nutPts[i+1], farPts[i+1], farPts[i]}
	}
	return polys
}

// FretOf returns the fret number (polygon index + 1) of the first fretboard
// polygon containing p.
func FretOf(p geometry.Point, polys []geometry.Polygon) *int {
	for i, poly := range polys {
		if poly != nil && poly.Contains(p) {
			return intPtr(i + 1)
		}
	}
	return nil
}

// StringOf returns the string number of the first band containing p. Band 0
// is string 6, the low E, which sits on top in the camera view.
func StringOf(p geometry.Point, polys []geometry.Polygon) *int {
	for i, poly := range polys {
		if poly != nil && poly.Contains(p) {
			return intPtr(StringCount - i)
		}
	}
	return nil
}

// PressPoint estimates where a finger actually presses. The visible tip is
// extended by ratio of the joint-to-tip vector.
func PressPoint(f Fingertip, ratio float64) geometry.Point {
	if f.Joint == nil || ratio == 0 {
		return f.Tip
	}
	return f.Tip.Add(f.Tip.Sub(*f.Joint).Scale(ratio))
}

// MapFingers resolves every fingertip to a fret and string.
func MapFingers(tips []Fingertip, corners Corners, nutBox, farBox *geometry.Rect, offsetRatio float64) map[int]FingerPosition {
	frets := FretboardPolygons(corners)
	strs := StringPolygons(nutBox, farBox)

	out := make(map[int]FingerPosition, len(tips))
	for _, f := range tips {
		p := PressPoint(f, offsetRatio)
		out[f.FingerID] = FingerPosition{
			Fretboard: FretOf(p, frets),
			String:    StringOf(p, strs),
		}
	}
	return out
}
