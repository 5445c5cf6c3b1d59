package fretboard

import "github.com/ayusman/fretwise/internal/geometry"

// EnforceOrdering keeps fret projections on the nut-to-far axis strictly
// increasing. Whenever fret i does not lie at least minSpacing beyond fret
// i-1 it is pushed forward along the axis until it does. Pairs with an absent
// member are skipped.
func EnforceOrdering(corners Corners, nut, far geometry.Point, minSpacing float64) Corners {
	out := corners.Clone()
	axis, ok := far.Sub(nut).Unit()
	if !ok {
		return out
	}

	proj := make([]*float64, len(out))
	for i, c := range out {
		if c == nil {
			continue
		}
		v := geometry.Project(c.Center(), nut, axis)
		proj[i] = &v
	}

	for i := 1; i < len(out); i++ {
		if proj[i] == nil || proj[i-1] == nil {
			continue
		}
		want := *proj[i-1] + minSpacing
		if *proj[i] <= want {
			out[i] = out[i].Translate(axis.Scale(want - *proj[i]))
			*proj[i] = want
		}
	}
	return out
}
