package config

import (
	"path/filepath"

	"github.com/ayusman/fretwise/internal/fretboard"
	"github.com/ayusman/fretwise/internal/logging"
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: Server{
			Addr:           "127.0.0.1:8000",
			FrameTimeoutMs: 2000,
			MaxFrameBytes:  8 << 20,
		},
		Store: Store{
			Enabled: true,
			Path:    filepath.Join("~", defaultStoreSuffix),
		},
		Tracker: fretboard.DefaultConfig(),
		Segmentation: Segmentation{
			Provider:           "service",
			IdleTimeoutSeconds: 60,
		},
		Hands: Hands{
			Provider:           "mediapipe",
			Handedness:         "Left",
			MaxHands:           2,
			MinConfidence:      0.5,
			MinTrackingConf:    0.5,
			IdleTimeoutSeconds: 30,
		},
		Capture: Capture{
			Width:           640,
			Height:          480,
			ActiveFPS:       15,
			IdleFPS:         5,
			IdleAfterMs:     2000,
			MotionThreshold: 1.0,
		},
		Chords: Chords{
			Enabled:  true,
			MinScore: 0.6,
		},
		Logging: logging.DefaultConfig(),
	}
}
