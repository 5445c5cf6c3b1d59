package fretboard

// FilterShrunk drops every fret whose segment collapsed below shortFactor of
// its last known length. A sudden shrink usually means the fret is occluded
// or the mask is spurious.
func FilterShrunk(corners, lastKnown Corners, shortFactor float64) Corners {
	out := corners.Clone()
	for i := range out {
		if out[i] == nil || i >= len(lastKnown) || lastKnown[i] == nil {
			continue
		}
		prev := lastKnown[i].Length()
		if prev > 1e-5 && out[i].Length() < shortFactor*prev {
			out[i] = nil
		}
	}
	return out
}
