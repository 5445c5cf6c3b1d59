package fretboard

import (
	"sort"

	"github.com/ayusman/fretwise/internal/geometry"
)

type normCandidate struct {
	norm float64
	seg  *geometry.Segment
}

// MatchCorners assigns this frame's fret candidates to fret indices.
//
// Candidate centers are shifted by the nut's displacement since anchoring
// and expressed as a fraction of the baseline nut-to-far-fret distance.
// Indices are then walked in order with a single forward cursor over the
// candidates sorted by that fraction: the first candidate within tolerance
// of the index's expected fraction is taken, candidates that fall short are
// skipped for good. An index can therefore never receive a candidate lying
// before a lower index's candidate.
//
// The nut is taken as-is into index 0. A nil nut or an unusable baseline
// yields an all-absent array.
func MatchCorners(nut *geometry.Segment, frets []Candidate, base *Baseline, n int, tolerance float64) Corners {
	out := NewCorners(n)
	if nut == nil {
		return out
	}
	baseNut, ok := base.NutCenter()
	if !ok {
		return out
	}
	farIdx := base.FarIndex()
	if farIdx < 0 {
		return out
	}
	farDist := baseNut.Distance(base.initial[farIdx].Center())
	if farDist < 1e-5 {
		return out
	}

	expected := make([]*float64, n+1)
	for i := 1; i <= n; i++ {
		if d, ok := base.Distance(i); ok {
			v := d / farDist
			expected[i] = &v
		}
	}

	shift := nut.Center().Sub(baseNut)
	cands := make([]normCandidate, 0, len(frets))
	for _, f := range frets {
		if f.Extreme == nil {
			continue
		}
		shifted := f.Extreme.Center().Sub(shift)
		cands = append(cands, normCandidate{
			norm: baseNut.Distance(shifted) / farDist,
			seg:  f.Extreme,
		})
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].norm < cands[j].norm })

	out[0] = nut
	cursor := 0
	for i := 1; i <= n; i++ {
		if expected[i] == nil {
			continue
		}
		want := *expected[i]
		for cursor < len(cands) {
			c := cands[cursor]
			if abs(c.norm-want) <= tolerance {
				out[i] = c.seg
				cursor++
				break
			}
			if c.norm >= want {
				break
			}
			cursor++
		}
	}
	return out
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
