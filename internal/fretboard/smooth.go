package fretboard

// Smooth pulls interior frets that jumped away from their neighbors back
// toward the neighbor average. A fret is moved when its center deviates from
// the average of frets i-1 and i+1 by more than threshold, relative to the
// magnitude of that average; it moves rigidly by ratio of the deviation.
// Frets are processed in order, so fret i sees the already-smoothed i-1.
func Smooth(corners Corners, ratio, threshold float64) Corners {
	out := corners.Clone()
	for i := 1; i < len(out)-1; i++ {
		if out[i] == nil || out[i-1] == nil || out[i+1] == nil {
			continue
		}
		curr := out[i].Center()
		avg := out[i-1].Center().Add(out[i+1].Center()).Scale(0.5)
		ref := avg.Norm()
		if ref < 1e-5 {
			continue
		}
		diff := avg.Sub(curr)
		if diff.Norm()/ref > threshold {
			out[i] = out[i].Translate(diff.Scale(ratio))
		}
	}
	return out
}
