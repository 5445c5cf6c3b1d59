package fretboard

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// DriftError measures how far the current frets have drifted from the
// baseline. For each fret it takes current/baseline distance from the nut
// and returns the mean absolute deviation of those ratios from their mean.
// A uniform zoom gives identical ratios and so zero error.
//
// The metric is 1.0 when the nut is missing or fewer than minSamples ratios
// are available.
func DriftError(corners Corners, base *Baseline, minSamples int) float64 {
	if corners[0] == nil || base.Entry(0) == nil {
		return 1.0
	}
	nut := corners[0].Center()

	ratios := make([]float64, 0, len(corners))
	for i := 1; i < len(corners); i++ {
		initial, ok := base.Distance(i)
		if corners[i] == nil || !ok || initial < 1e-5 {
			continue
		}
		ratios = append(ratios, nut.Distance(corners[i].Center())/initial)
	}
	if len(ratios) == 0 || len(ratios) < minSamples {
		return 1.0
	}

	mean := stat.Mean(ratios, nil)
	dev := make([]float64, len(ratios))
	for i, r := range ratios {
		dev[i] = math.Abs(r - mean)
	}
	return stat.Mean(dev, nil)
}
