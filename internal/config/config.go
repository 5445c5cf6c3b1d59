// Package config loads fretwise settings from TOML, .env and the
// environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/ayusman/fretwise/internal/fretboard"
	"github.com/ayusman/fretwise/internal/logging"
)

// Server configures the HTTP API.
type Server struct {
	Addr           string `toml:"addr" validate:"required,hostname_port"`
	FrameTimeoutMs int    `toml:"frame_timeout_ms" validate:"gte=0"`
	MaxFrameBytes  int64  `toml:"max_frame_bytes" validate:"gt=0"`
}

// Store configures the SQLite session log.
type Store struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path" validate:"required_if=Enabled true"`
}

// Segmentation configures the nut and fret segmentation service.
type Segmentation struct {
	// Provider is "service" for the subprocess segmenter or "mock" for an
	// empty stand-in.
	Provider           string `toml:"provider" validate:"oneof=service mock"`
	Python             string `toml:"python"`
	Script             string `toml:"script"`
	// Model is the segmentation weights file handed to the service.
	Model              string `toml:"model"`
	IdleTimeoutSeconds int    `toml:"idle_timeout_seconds" validate:"gte=0"`
}

// Hands configures fingertip detection.
type Hands struct {
	Provider string `toml:"provider" validate:"oneof=mediapipe mock"`
	// Handedness selects the fretting hand: "Left", "Right" or "any".
	Handedness         string  `toml:"handedness" validate:"oneof=Left Right any"`
	MaxHands           int     `toml:"max_hands" validate:"gte=1,lte=4"`
	MinConfidence      float64 `toml:"min_confidence" validate:"gte=0,lte=1"`
	MinTrackingConf    float64 `toml:"min_tracking_confidence" validate:"gte=0,lte=1"`
	Python             string  `toml:"python"`
	Script             string  `toml:"script"`
	IdleTimeoutSeconds int     `toml:"idle_timeout_seconds" validate:"gte=0"`
}

// Capture configures the live tracking loop.
type Capture struct {
	Device int `toml:"device" validate:"gte=0"`
	// Video replays a file instead of the camera when set.
	Video     string `toml:"video"`
	Width     int    `toml:"width" validate:"gt=0"`
	Height    int    `toml:"height" validate:"gt=0"`
	ActiveFPS int    `toml:"active_fps" validate:"gt=0"`
	IdleFPS   int    `toml:"idle_fps" validate:"gt=0"`
	// IdleAfterMs is how long without motion before dropping to IdleFPS.
	IdleAfterMs int `toml:"idle_after_ms" validate:"gte=0"`
	// MotionThreshold is the changed-pixel percentage counted as motion.
	// Zero disables the idle rate.
	MotionThreshold float64 `toml:"motion_threshold" validate:"gte=0,lte=100"`
}

// Chords configures chord recognition.
type Chords struct {
	Enabled  bool    `toml:"enabled"`
	MinScore float64 `toml:"min_score" validate:"gte=0,lte=1"`
}

// Config is the full fretwise configuration.
type Config struct {
	Server       Server           `toml:"server"`
	Store        Store            `toml:"store"`
	Tracker      fretboard.Config `toml:"tracker"`
	Segmentation Segmentation     `toml:"segmentation"`
	Hands        Hands            `toml:"hands"`
	Capture      Capture          `toml:"capture"`
	Chords       Chords           `toml:"chords"`
	Logging      logging.Config   `toml:"logging"`
}

const (
	defaultConfigPath  = "~/.config/fretwise/config.toml"
	projectConfigName  = "fretwise.toml"
	defaultStoreSuffix = ".fretwise/fretwise.db"
)

// DefaultConfigPath returns the absolute default configuration location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load reads the configuration at path, or the default locations when path
// is empty, then applies environment overrides and validates the result. It
// returns the config, the resolved path and whether that file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolved)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolved, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	var err error
	if c.Store.Path, err = expandPath(c.Store.Path); err != nil {
		return fmt.Errorf("store.path: %w", err)
	}
	if c.Logging.File, err = expandPath(c.Logging.File); err != nil {
		return fmt.Errorf("logging.file: %w", err)
	}
	if c.Segmentation.Model, err = expandPath(c.Segmentation.Model); err != nil {
		return fmt.Errorf("segmentation.model: %w", err)
	}
	if c.Capture.Video, err = expandPath(c.Capture.Video); err != nil {
		return fmt.Errorf("capture.video: %w", err)
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	return nil
}

// FrameTimeout is the per-frame processing budget of the HTTP API. Zero means
// no budget.
func (c *Config) FrameTimeout() time.Duration {
	return time.Duration(c.Server.FrameTimeoutMs) * time.Millisecond
}

// IdleAfter is the quiet period before the live loop slows down.
func (c *Config) IdleAfter() time.Duration {
	return time.Duration(c.Capture.IdleAfterMs) * time.Millisecond
}

// Marshal encodes the configuration as TOML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}

// CreateSample writes the default configuration to path. It refuses to
// overwrite an existing file.
func CreateSample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config %s already exists", path)
	}

	cfg := Default()
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func expandPath(value string) (string, error) {
	if value == "" {
		return value, nil
	}
	if strings.HasPrefix(value, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if value == "~" {
			value = home
		} else if len(value) > 1 && (value[1] == '/' || value[1] == '\\') {
			value = filepath.Join(home, value[2:])
		}
	}
	abs, err := filepath.Abs(filepath.Clean(value))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", value, err)
	}
	return abs, nil
}
