package fretboard

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// StringCount is the number of string lanes on a guitar neck.
const StringCount = 6

// Config holds the tuning constants of the tracker. Every field has a
// non-zero default in DefaultConfig.
type Config struct {
	// FretCount is the number of frets tracked beyond the nut (N).
	FretCount int `toml:"fret_count" validate:"gte=2,lte=30"`

	// StableFrames is the number of consecutive qualifying frames required
	// before the gate commits a baseline.
	StableFrames int `toml:"stable_frames" validate:"gte=1"`

	// RedetectErrorThreshold is the drift metric above which the tracker
	// resets and re-anchors.
	RedetectErrorThreshold float64 `toml:"redetect_error_threshold" validate:"gt=0"`

	// DriftSampleSlack lowers the number of ratios the drift metric needs:
	// fewer than FretCount-DriftSampleSlack ratios yields a metric of 1.0.
	DriftSampleSlack int `toml:"drift_sample_slack" validate:"gte=0"`

	// MaxScale caps the nut-to-far-anchor scale used by interpolation.
	MaxScale float64 `toml:"max_scale" validate:"gt=0"`

	// JitterThreshold is the relative deviation from the neighbor average
	// (0.10 = 10%) above which a corner is smoothed.
	JitterThreshold float64 `toml:"jitter_threshold" validate:"gt=0"`

	// SmoothRatio is the fraction of the deviation removed by smoothing.
	SmoothRatio float64 `toml:"smooth_ratio" validate:"gt=0,lte=1"`

	// ShortFactor rejects a fret whose length fell below this fraction of
	// its last known length.
	ShortFactor float64 `toml:"short_factor" validate:"gt=0,lte=1"`

	// MinSpacing is the minimum distance in pixels between consecutive fret
	// projections along the neck axis.
	MinSpacing float64 `toml:"min_spacing" validate:"gte=0"`

	// MatchTolerance is the normalized distance window for matching a
	// candidate to a fret index.
	MatchTolerance float64 `toml:"match_tolerance" validate:"gt=0"`

	// OffsetRatio extends a fingertip beyond the tip along the joint-to-tip
	// vector to estimate the pressing point. Zero disables the adjustment.
	OffsetRatio float64 `toml:"offset_ratio" validate:"gte=0"`

	// DefaultHalfLength is the half length in pixels of an interpolated fret
	// when no far segment is available to copy.
	DefaultHalfLength float64 `toml:"default_half_length" validate:"gt=0"`

	// MinScoreNut and MinScoreFret drop low-confidence candidates.
	MinScoreNut  float64 `toml:"min_score_nut" validate:"gte=0,lte=1"`
	MinScoreFret float64 `toml:"min_score_fret" validate:"gte=0,lte=1"`

	// MaxMissingFrames is how long a reference box survives without being
	// observed.
	MaxMissingFrames int `toml:"max_missing_frames" validate:"gte=0"`
}

// DefaultConfig returns a Config with the standard tracker constants.
func DefaultConfig() Config {
	return Config{
		FretCount:              20,
		StableFrames:           5,
		RedetectErrorThreshold: 1.0,
		DriftSampleSlack:       8,
		MaxScale:               1.1,
		JitterThreshold:        0.10,
		SmoothRatio:            0.5,
		ShortFactor:            0.8,
		MinSpacing:             5,
		MatchTolerance:         0.05,
		OffsetRatio:            0.2,
		DefaultHalfLength:      5,
		MinScoreNut:            0.5,
		MinScoreFret:           0.5,
		MaxMissingFrames:       5,
	}
}

var validate = validator.New()

// Validate checks that every constant is in range.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("tracker config: %w", err)
	}
	return nil
}

// minDriftSamples is the number of ratios below which the drift metric is
// not computed.
func (c Config) minDriftSamples() int {
	return c.FretCount - c.DriftSampleSlack
}
