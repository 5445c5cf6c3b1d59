// Package geometry provides the 2D primitives used by the fretboard tracker.
package geometry

import "math"

// epsilon is the length below which a vector is treated as degenerate.
const epsilon = 1e-5

// Point represents a 2D point in pixel coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Add returns the sum of two points.
func (p Point) Add(other Point) Point {
	return Point{X: p.X + other.X, Y: p.Y + other.Y}
}

// Sub returns the difference of two points.
func (p Point) Sub(other Point) Point {
	return Point{X: p.X - other.X, Y: p.Y - other.Y}
}

// Scale returns the point scaled by a factor.
func (p Point) Scale(factor float64) Point {
	return Point{X: p.X * factor, Y: p.Y * factor}
}

// Dot returns the dot product of p and other treated as vectors.
func (p Point) Dot(other Point) float64 {
	return p.X*other.X + p.Y*other.Y
}

// Norm returns the length of p treated as a vector.
func (p Point) Norm() float64 {
	return math.Hypot(p.X, p.Y)
}

// Distance returns the Euclidean distance to another point.
func (p Point) Distance(other Point) float64 {
	return p.Sub(other).Norm()
}

// Unit returns p normalized to length 1. The second value is false when p is
// too short to have a direction.
func (p Point) Unit() (Point, bool) {
	n := p.Norm()
	if n < epsilon {
		return Point{}, false
	}
	return p.Scale(1 / n), true
}

// Midpoint returns the point halfway between a and b.
func Midpoint(a, b Point) Point {
	return Point{X: (a.X + b.X) * 0.5, Y: (a.Y + b.Y) * 0.5}
}

// AngleDegrees returns the angle of the vector from -> to, in degrees, in the
// range (-180, 180].
func AngleDegrees(from, to Point) float64 {
	d := to.Sub(from)
	return math.Atan2(d.Y, d.X) * 180 / math.Pi
}

// Project returns the signed length of (p - origin) along axis. The axis is
// expected to be a unit vector.
func Project(p, origin, axis Point) float64 {
	return p.Sub(origin).Dot(axis)
}

// Segment is a line segment between two points. For fret lines Start is the
// upper extreme point and End the lower one.
type Segment struct {
	Start Point `json:"start"`
	End   Point `json:"end"`
}

// Seg is shorthand for Segment{Start: a, End: b}.
func Seg(a, b Point) *Segment {
	return &Segment{Start: a, End: b}
}

// Center returns the midpoint of the segment.
func (s Segment) Center() Point {
	return Midpoint(s.Start, s.End)
}

// Length returns the segment length.
func (s Segment) Length() float64 {
	return s.Start.Distance(s.End)
}

// Translate returns the segment moved rigidly by delta.
func (s Segment) Translate(delta Point) *Segment {
	return &Segment{Start: s.Start.Add(delta), End: s.End.Add(delta)}
}

// CenteredAt returns a copy of the segment moved so its center is c, keeping
// its length and orientation.
func (s Segment) CenteredAt(c Point) *Segment {
	return s.Translate(c.Sub(s.Center()))
}

// Rect is an axis-aligned rectangle.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the center point of the rectangle.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width*0.5, Y: r.Y + r.Height*0.5}
}

// Contains returns true if the point is inside the rectangle.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width &&
		p.Y >= r.Y && p.Y <= r.Y+r.Height
}
