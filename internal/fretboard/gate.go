package fretboard

import (
	"sort"

	"github.com/ayusman/fretwise/internal/geometry"
)

// StableGate counts consecutive frames showing exactly one nut and at least
// FretCount frets. Any other frame restarts the count.
type StableGate struct {
	frets       int
	threshold   int
	stableCount int
}

// NewStableGate creates a gate for n frets firing after threshold frames.
func NewStableGate(n, threshold int) *StableGate {
	return &StableGate{frets: n, threshold: threshold}
}

// Observe records one frame and reports whether the gate is open.
func (g *StableGate) Observe(nuts, frets []Candidate) bool {
	if len(nuts) != 1 || len(frets) < g.frets {
		g.stableCount = 0
		return false
	}
	g.stableCount++
	return g.stableCount >= g.threshold
}

// StableCount returns the current run length.
func (g *StableGate) StableCount() int {
	return g.stableCount
}

// Reset clears the run.
func (g *StableGate) Reset() {
	g.stableCount = 0
}

// InitialCorners assigns the nut to index 0 and the n fret candidates closest
// to it, in order of distance, to indices 1..n. The second value is false
// when the nut has no extreme points.
func InitialCorners(nut Candidate, frets []Candidate, n int) (Corners, bool) {
	corners := NewCorners(n)
	if nut.Extreme == nil {
		return corners, false
	}
	corners[0] = nut.Extreme
	nutCenter := nut.Extreme.Center()

	segs := make([]*geometry.Segment, 0, len(frets))
	for _, f := range frets {
		if f.Extreme != nil {
			segs = append(segs, f.Extreme)
		}
	}
	sort.SliceStable(segs, func(i, j int) bool {
		return nutCenter.Distance(segs[i].Center()) < nutCenter.Distance(segs[j].Center())
	})
	if len(segs) > n {
		segs = segs[:n]
	}
	for i, s := range segs {
		corners[i+1] = s
	}
	return corners, true
}
