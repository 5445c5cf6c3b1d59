// Package fretboardtest builds synthetic guitar necks for exercising the
// fretboard tracker without a segmentation model.
package fretboardtest

import (
	"math"

	"github.com/ayusman/fretwise/internal/fretboard"
	"github.com/ayusman/fretwise/internal/geometry"
)

// Neck is a straight, horizontal neck with equal-tempered fret spacing. Fret
// lines are vertical segments from Top to Bottom.
type Neck struct {
	NutX        float64
	Top         float64
	Bottom      float64
	ScaleLength float64
	Frets       int
	Score       float64
}

// NewNeck returns a neck with n frets, the nut at x=100 and a 1200px scale.
func NewNeck(n int) Neck {
	return Neck{
		NutX:        100,
		Top:         200,
		Bottom:      300,
		ScaleLength: 1200,
		Frets:       n,
		Score:       0.9,
	}
}

// Distance is the distance of fret i from the nut.
func (n Neck) Distance(i int) float64 {
	return n.ScaleLength * (1 - math.Pow(2, -float64(i)/12))
}

// X is the horizontal position of fret line i. Index 0 is the nut.
func (n Neck) X(i int) float64 {
	return n.NutX + n.Distance(i)
}

// MidY is the vertical center of every fret line.
func (n Neck) MidY() float64 {
	return (n.Top + n.Bottom) / 2
}

// Segment is the extreme point pair of fret line i.
func (n Neck) Segment(i int) *geometry.Segment {
	x := n.X(i)
	return geometry.Seg(geometry.Pt(x, n.Top), geometry.Pt(x, n.Bottom))
}

// Box is the bounding box of fret line i.
func (n Neck) Box(i int) *geometry.Rect {
	return &geometry.Rect{X: n.X(i) - 2, Y: n.Top, Width: 4, Height: n.Bottom - n.Top}
}

// Corners returns the full corner array of the neck.
func (n Neck) Corners() fretboard.Corners {
	c := fretboard.NewCorners(n.Frets)
	for i := range c {
		c[i] = n.Segment(i)
	}
	return c
}

// Candidate returns the detection for fret line i.
func (n Neck) Candidate(i int) fretboard.Candidate {
	class := fretboard.ClassFret
	if i == 0 {
		class = fretboard.ClassNut
	}
	return fretboard.Candidate{
		Class:   class,
		Score:   n.Score,
		Extreme: n.Segment(i),
		Box:     n.Box(i),
	}
}

// Candidates returns the nut followed by every fret.
func (n Neck) Candidates() []fretboard.Candidate {
	out := make([]fretboard.Candidate, 0, n.Frets+1)
	for i := 0; i <= n.Frets; i++ {
		out = append(out, n.Candidate(i))
	}
	return out
}

// Frame returns the candidates as tracker input.
func (n Neck) Frame(tips ...fretboard.Fingertip) fretboard.FrameInput {
	return fretboard.FrameInput{Candidates: n.Candidates(), Fingertips: tips}
}

// Shifted returns the neck translated by (dx, dy).
func (n Neck) Shifted(dx, dy float64) Neck {
	n.NutX += dx
	n.Top += dy
	n.Bottom += dy
	return n
}

// Zoomed returns the neck with its scale length multiplied by k.
func (n Neck) Zoomed(k float64) Neck {
	n.ScaleLength *= k
	return n
}

// Between returns a point halfway between fret lines i and i+1 at height y.
func (n Neck) Between(i int, y float64) geometry.Point {
	return geometry.Pt((n.X(i)+n.X(i+1))/2, y)
}
