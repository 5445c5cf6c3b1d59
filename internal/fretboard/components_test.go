package fretboard_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/fretwise/internal/fretboard"
	"github.com/ayusman/fretwise/internal/fretboard/fretboardtest"
	"github.com/ayusman/fretwise/internal/geometry"
)

const eps = 1e-9

func TestStableGate(t *testing.T) {
	neck := fretboardtest.NewNeck(4)
	nut := []fretboard.Candidate{neck.Candidate(0)}
	frets := neck.Candidates()[1:]

	t.Run("fires after threshold consecutive frames", func(t *testing.T) {
		g := fretboard.NewStableGate(4, 3)
		assert.False(t, g.Observe(nut, frets))
		assert.False(t, g.Observe(nut, frets))
		assert.True(t, g.Observe(nut, frets))
		assert.Equal(t, 3, g.StableCount())
	})

	t.Run("breaking frame restarts the run", func(t *testing.T) {
		tests := []struct {
			name  string
			nuts  []fretboard.Candidate
			frets []fretboard.Candidate
		}{
			{"no nut", nil, frets},
			{"two nuts", append(nut, neck.Candidate(0)), frets},
			{"too few frets", nut, frets[:3]},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				g := fretboard.NewStableGate(4, 5)
				for i := 0; i < 4; i++ {
					g.Observe(nut, frets)
				}
				require.Equal(t, 4, g.StableCount())

				assert.False(t, g.Observe(tt.nuts, tt.frets))
				assert.Equal(t, 0, g.StableCount())
			})
		}
	})

	t.Run("extra frets still qualify", func(t *testing.T) {
		g := fretboard.NewStableGate(2, 1)
		assert.True(t, g.Observe(nut, frets))
	})
}

func TestInitialCorners(t *testing.T) {
	neck := fretboardtest.NewNeck(4)
	cands := neck.Candidates()

	t.Run("sorts frets by distance from nut", func(t *testing.T) {
		shuffled := []fretboard.Candidate{cands[3], cands[1], cands[4], cands[2]}
		corners, ok := fretboard.InitialCorners(cands[0], shuffled, 4)
		require.True(t, ok)
		assert.Empty(t, cmp.Diff(neck.Corners(), corners))
	})

	t.Run("keeps the n closest", func(t *testing.T) {
		corners, ok := fretboard.InitialCorners(cands[0], cands[1:], 2)
		require.True(t, ok)
		require.Len(t, corners, 3)
		assert.Equal(t, neck.Segment(2), corners[2])
	})

	t.Run("nut without extreme points", func(t *testing.T) {
		nut := cands[0]
		nut.Extreme = nil
		_, ok := fretboard.InitialCorners(nut, cands[1:], 4)
		assert.False(t, ok)
	})
}

func TestNewBaseline(t *testing.T) {
	neck := fretboardtest.NewNeck(20)
	base := fretboard.NewBaseline(neck.Corners())

	prev := 0.0
	for i := 1; i <= 20; i++ {
		d, ok := base.Distance(i)
		require.True(t, ok, "fret %d", i)
		assert.InDelta(t, neck.Distance(i), d, 1e-6)
		assert.Greater(t, d, prev, "fret %d", i)
		assert.InDelta(t, 0.0, base.Entry(i).AngleFromNut, eps)
		prev = d
	}
	assert.Equal(t, 20, base.FarIndex())

	t.Run("missing nut yields empty baseline", func(t *testing.T) {
		c := neck.Corners()
		c[0] = nil
		b := fretboard.NewBaseline(c)
		_, ok := b.Distance(3)
		assert.False(t, ok)
		_, ok = b.NutCenter()
		assert.False(t, ok)
	})
}

func TestMatchCorners(t *testing.T) {
	neck := fretboardtest.NewNeck(12)
	base := fretboard.NewBaseline(neck.Corners())

	t.Run("identity frame matches every index", func(t *testing.T) {
		got := fretboard.MatchCorners(neck.Segment(0), neck.Candidates()[1:], base, 12, 0.05)
		assert.Empty(t, cmp.Diff(neck.Corners(), got))
	})

	t.Run("translation follows the nut", func(t *testing.T) {
		moved := neck.Shifted(40, -15)
		got := fretboard.MatchCorners(moved.Segment(0), moved.Candidates()[1:], base, 12, 0.05)
		assert.Empty(t, cmp.Diff(moved.Corners(), got))
	})

	t.Run("missing candidate leaves index absent", func(t *testing.T) {
		cands := neck.Candidates()[1:]
		cands = append(cands[:8:8], cands[9:]...) // drop fret 9
		got := fretboard.MatchCorners(neck.Segment(0), cands, base, 12, 0.05)
		assert.Nil(t, got[9])
		assert.Equal(t, neck.Segment(8), got[8])
		assert.Equal(t, neck.Segment(10), got[10])
	})

	t.Run("out of tolerance candidate is skipped", func(t *testing.T) {
		cands := neck.Candidates()[1:]
		cands[0].Extreme = cands[0].Extreme.Translate(geometry.Pt(-60, 0))
		got := fretboard.MatchCorners(neck.Segment(0), cands, base, 12, 0.05)
		assert.Nil(t, got[1])
		assert.Equal(t, neck.Segment(2), got[2])
	})

	t.Run("assignment preserves order", func(t *testing.T) {
		got := fretboard.MatchCorners(neck.Segment(0), neck.Candidates()[1:], base, 12, 0.5)
		for i := 2; i <= 12; i++ {
			require.NotNil(t, got[i])
			assert.Greater(t, got[i].Center().X, got[i-1].Center().X)
		}
	})

	t.Run("no nut yields all absent", func(t *testing.T) {
		got := fretboard.MatchCorners(nil, neck.Candidates()[1:], base, 12, 0.05)
		assert.Equal(t, fretboard.NewCorners(12), got)
	})
}

func TestFilterShrunk(t *testing.T) {
	neck := fretboardtest.NewNeck(4)
	last := neck.Corners()

	current := neck.Corners()
	c := current[2].Center()
	current[2] = geometry.Seg(c.Sub(geometry.Pt(0, 39)), c.Add(geometry.Pt(0, 39)))
	current[3] = geometry.Seg(c.Sub(geometry.Pt(0, 40)), c.Add(geometry.Pt(0, 40)))

	got := fretboard.FilterShrunk(current, last, 0.8)
	assert.Nil(t, got[2], "78% of last known length is rejected")
	assert.NotNil(t, got[3], "exactly 80% is kept")
	assert.Equal(t, current[1], got[1])
	assert.NotNil(t, current[2], "input is not modified")
}

func TestInterpolator_Fill(t *testing.T) {
	neck := fretboardtest.NewNeck(12)
	base := fretboard.NewBaseline(neck.Corners())
	ip := fretboard.Interpolator{MaxScale: 1.1, DefaultHalfLength: 5}

	t.Run("rebuilds absent frets along the axis", func(t *testing.T) {
		corners := neck.Corners()
		corners[4], corners[7] = nil, nil
		last := fretboard.NewCorners(12)

		got := ip.Fill(corners, last, base, nil)
		for _, i := range []int{4, 7} {
			require.NotNil(t, got[i])
			assert.InDelta(t, neck.X(i), got[i].Center().X, 1e-6)
			assert.InDelta(t, neck.MidY(), got[i].Center().Y, 1e-6)
			assert.InDelta(t, neck.Segment(12).Length(), got[i].Length(), 1e-6)
		}
		for i := 1; i <= 12; i++ {
			assert.Equal(t, got[i], last[i], "last known %d", i)
		}
	})

	t.Run("scale is clamped", func(t *testing.T) {
		stretched := neck.Zoomed(1.5)
		corners := stretched.Corners()
		corners[6] = nil
		got := ip.Fill(corners, fretboard.NewCorners(12), base, nil)
		require.NotNil(t, got[6])
		assert.InDelta(t, neck.NutX+1.1*neck.Distance(6), got[6].Center().X, 1e-6)
	})

	t.Run("far box supplies the anchor", func(t *testing.T) {
		corners := fretboard.NewCorners(12)
		corners[0] = neck.Segment(0)
		got := ip.Fill(corners, fretboard.NewCorners(12), base, neck.Box(12))
		for i := 1; i <= 12; i++ {
			require.NotNil(t, got[i])
			assert.InDelta(t, neck.X(i), got[i].Center().X, 1e-6)
			assert.InDelta(t, 10.0, got[i].Length(), 1e-6, "default vertical segment")
		}
	})

	t.Run("nothing to anchor on", func(t *testing.T) {
		corners := fretboard.NewCorners(12)
		corners[0] = neck.Segment(0)
		got := ip.Fill(corners, fretboard.NewCorners(12), base, nil)
		assert.Equal(t, corners, got)
	})

	t.Run("mismatched last known panics", func(t *testing.T) {
		assert.Panics(t, func() {
			ip.Fill(neck.Corners(), fretboard.NewCorners(3), base, nil)
		})
	})
}

func TestSmooth(t *testing.T) {
	a := geometry.Seg(geometry.Pt(100, 90), geometry.Pt(100, 110))
	c := geometry.Seg(geometry.Pt(200, 90), geometry.Pt(200, 110))

	t.Run("pulls an outlier half way", func(t *testing.T) {
		b := geometry.Seg(geometry.Pt(170, 80), geometry.Pt(190, 140))
		got := fretboard.Smooth(fretboard.Corners{a, b, c}, 0.5, 0.10)

		avg := geometry.Pt(150, 100)
		want := b.Center().Add(avg.Sub(b.Center()).Scale(0.5))
		assert.InDelta(t, want.X, got[1].Center().X, eps)
		assert.InDelta(t, want.Y, got[1].Center().Y, eps)

		// Endpoint offsets from the center survive the move.
		wantOff := b.Start.Sub(b.Center())
		gotOff := got[1].Start.Sub(got[1].Center())
		assert.InDelta(t, wantOff.X, gotOff.X, eps)
		assert.InDelta(t, wantOff.Y, gotOff.Y, eps)
	})

	t.Run("small jitter is kept", func(t *testing.T) {
		b := geometry.Seg(geometry.Pt(155, 90), geometry.Pt(155, 110))
		got := fretboard.Smooth(fretboard.Corners{a, b, c}, 0.5, 0.10)
		assert.Equal(t, b, got[1])
	})

	t.Run("missing neighbor is skipped", func(t *testing.T) {
		b := geometry.Seg(geometry.Pt(400, 90), geometry.Pt(400, 110))
		got := fretboard.Smooth(fretboard.Corners{nil, b, c}, 0.5, 0.10)
		assert.Equal(t, b, got[1])
	})
}

func TestEnforceOrdering(t *testing.T) {
	vert := func(x float64) *geometry.Segment {
		return geometry.Seg(geometry.Pt(x, 0), geometry.Pt(x, 20))
	}
	corners := fretboard.Corners{vert(0), vert(50), vert(52), vert(40), nil, vert(200)}
	nut, far := geometry.Pt(0, 10), geometry.Pt(200, 10)

	got := fretboard.EnforceOrdering(corners, nut, far, 5)

	axis, _ := far.Sub(nut).Unit()
	proj := func(s *geometry.Segment) float64 { return geometry.Project(s.Center(), nut, axis) }

	assert.InDelta(t, 50.0, proj(got[1]), eps)
	assert.InDelta(t, 55.0, proj(got[2]), eps)
	assert.InDelta(t, 60.0, proj(got[3]), eps)
	assert.Nil(t, got[4])
	assert.InDelta(t, 200.0, proj(got[5]), eps)

	for i := 1; i < len(got); i++ {
		if got[i] == nil || got[i-1] == nil {
			continue
		}
		assert.GreaterOrEqual(t, proj(got[i]), proj(got[i-1])+5-eps)
	}
}

func TestDriftError(t *testing.T) {
	neck := fretboardtest.NewNeck(20)
	base := fretboard.NewBaseline(neck.Corners())

	t.Run("uniform scale has zero error", func(t *testing.T) {
		for _, k := range []float64{0.5, 1, 1.07, 3} {
			got := fretboard.DriftError(neck.Zoomed(k).Corners(), base, 12)
			assert.InDelta(t, 0.0, got, 1e-12, "k=%v", k)
		}
	})

	t.Run("mean absolute deviation of ratios", func(t *testing.T) {
		corners := neck.Corners()
		// Ratio 2 on fret 10, ratio 1 everywhere else.
		corners[10] = corners[10].Translate(geometry.Pt(neck.Distance(10), 0))
		mean := 21.0 / 20
		want := ((2 - mean) + 19*(mean-1)) / 20
		assert.InDelta(t, want, fretboard.DriftError(corners, base, 12), 1e-9)
	})

	t.Run("too few samples forces 1.0", func(t *testing.T) {
		corners := neck.Corners()
		for i := 12; i <= 20; i++ {
			corners[i] = nil
		}
		assert.Equal(t, 1.0, fretboard.DriftError(corners, base, 12))
	})

	t.Run("insufficient samples at the default threshold do not reset", func(t *testing.T) {
		cfg := fretboard.DefaultConfig()
		minSamples := cfg.FretCount - cfg.DriftSampleSlack
		corners := neck.Corners()
		for i := minSamples; i <= cfg.FretCount; i++ {
			corners[i] = nil
		}

		got := fretboard.DriftError(corners, base, minSamples)
		assert.Equal(t, 1.0, got)
		assert.LessOrEqual(t, got, cfg.RedetectErrorThreshold)
	})

	t.Run("missing nut forces 1.0", func(t *testing.T) {
		corners := neck.Corners()
		corners[0] = nil
		assert.Equal(t, 1.0, fretboard.DriftError(corners, base, 12))
	})
}

func TestFingerMapping(t *testing.T) {
	neck := fretboardtest.NewNeck(12)
	corners := neck.Corners()
	frets := fretboard.FretboardPolygons(corners)
	strs := fretboard.StringPolygons(neck.Box(0), neck.Box(12))
	require.Len(t, frets, 12)
	require.Len(t, strs, fretboard.StringCount)

	t.Run("centroid of fret polygon and string band", func(t *testing.T) {
		p := geometry.Pt(frets[4].Centroid().X, strs[2].Centroid().Y)
		fret := fretboard.FretOf(p, frets)
		str := fretboard.StringOf(p, strs)
		require.NotNil(t, fret)
		require.NotNil(t, str)
		assert.Equal(t, 5, *fret)
		assert.Equal(t, 4, *str)
	})

	t.Run("reversed banding", func(t *testing.T) {
		top := geometry.Pt(neck.X(3), neck.Top+1)
		bottom := geometry.Pt(neck.X(3), neck.Bottom-1)
		assert.Equal(t, 6, *fretboard.StringOf(top, strs))
		assert.Equal(t, 1, *fretboard.StringOf(bottom, strs))
	})

	t.Run("outside every polygon", func(t *testing.T) {
		got := fretboard.MapFingers([]fretboard.Fingertip{{FingerID: 2, Tip: geometry.Pt(5, 5)}},
			corners, neck.Box(0), neck.Box(12), 0.2)
		assert.Equal(t, map[int]fretboard.FingerPosition{2: {}}, got)
	})

	t.Run("absent corner leaves a hole", func(t *testing.T) {
		c := neck.Corners()
		c[5] = nil
		polys := fretboard.FretboardPolygons(c)
		assert.Nil(t, polys[4])
		assert.Nil(t, polys[5])
		assert.Nil(t, fretboard.FretOf(neck.Between(4, neck.MidY()), polys))
	})

	t.Run("no boxes means no strings", func(t *testing.T) {
		assert.Nil(t, fretboard.StringPolygons(nil, neck.Box(12)))
	})

	t.Run("press point extends past the tip", func(t *testing.T) {
		joint := geometry.Pt(neck.Between(2, 0).X, 340)
		tip := fretboard.Fingertip{FingerID: 1, Tip: geometry.Pt(joint.X, 290), Joint: &joint}
		assert.Equal(t, geometry.Pt(joint.X, 280), fretboard.PressPoint(tip, 0.2))

		got := fretboard.MapFingers([]fretboard.Fingertip{tip}, corners, neck.Box(0), neck.Box(12), 0.2)
		assert.Equal(t, 3, *got[1].Fretboard)
		assert.Equal(t, 2, *got[1].String)
	})
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, fretboard.DefaultConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*fretboard.Config)
	}{
		{"zero frets", func(c *fretboard.Config) { c.FretCount = 0 }},
		{"zero stable frames", func(c *fretboard.Config) { c.StableFrames = 0 }},
		{"smooth ratio above one", func(c *fretboard.Config) { c.SmoothRatio = 1.5 }},
		{"negative spacing", func(c *fretboard.Config) { c.MinSpacing = -1 }},
		{"score above one", func(c *fretboard.Config) { c.MinScoreFret = 2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := fretboard.DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
