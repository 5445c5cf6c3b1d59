// Package segment turns instance segmentation masks into nut and fret
// candidates for the fretboard tracker.
package segment

import (
	"image"

	"gocv.io/x/gocv"

	"github.com/ayusman/fretwise/internal/geometry"
)

// BinaryThreshold is the mask value above which a pixel belongs to the
// object, on a 0-255 scale.
const BinaryThreshold = 127

// Binarize thresholds an 8-bit single channel mask into 0/255, resizing it
// to size first when the dimensions differ. The caller owns the result.
func Binarize(mask gocv.Mat, size image.Point) gocv.Mat {
	src := mask
	if size.X > 0 && size.Y > 0 && (mask.Cols() != size.X || mask.Rows() != size.Y) {
		resized := gocv.NewMat()
		defer resized.Close()
		gocv.Resize(mask, &resized, size, 0, 0, gocv.InterpolationLinear)
		src = resized
	}

	bin := gocv.NewMat()
	gocv.Threshold(src, &bin, BinaryThreshold, 255, gocv.ThresholdBinary)
	return bin
}

// Extremes finds the largest external contour of a binary mask and returns
// its topmost and bottommost points with its bounding box. Ties keep the
// first point in contour order. Both results are nil for an empty mask.
func Extremes(bin gocv.Mat) (*geometry.Segment, *geometry.Rect) {
	if bin.Empty() {
		return nil, nil
	}

	contours := gocv.FindContours(bin, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	if contours.Size() == 0 {
		return nil, nil
	}

	best := -1
	bestArea := -1.0
	for i := 0; i < contours.Size(); i++ {
		area := gocv.ContourArea(contours.At(i))
		if area > bestArea {
			bestArea = area
			best = i
		}
	}

	contour := contours.At(best)
	pts := contour.ToPoints()
	if len(pts) == 0 {
		return nil, nil
	}

	top, bottom := pts[0], pts[0]
	for _, p := range pts[1:] {
		if p.Y < top.Y {
			top = p
		}
		if p.Y > bottom.Y {
			bottom = p
		}
	}

	r := gocv.BoundingRect(contour)
	seg := geometry.Seg(
		geometry.Pt(float64(top.X), float64(top.Y)),
		geometry.Pt(float64(bottom.X), float64(bottom.Y)),
	)
	box := &geometry.Rect{
		X:      float64(r.Min.X),
		Y:      float64(r.Min.Y),
		Width:  float64(r.Dx()),
		Height: float64(r.Dy()),
	}
	return seg, box
}
