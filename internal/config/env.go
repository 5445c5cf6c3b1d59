package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FRETWISE_"

// LoadDotEnv loads KEY=VALUE pairs from the given files, or .env in the
// working directory. Missing files are ignored. Variables already set in the
// environment win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// applyEnv overlays FRETWISE_* variables on the loaded file.
func (c *Config) applyEnv() error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = n
		return nil
	}
	flag := func(key string, dst *bool) error {
		v, ok := lookup(key)
		if !ok {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = b
		return nil
	}

	str("SERVER_ADDR", &c.Server.Addr)
	str("STORE_PATH", &c.Store.Path)
	str("LOG_LEVEL", &c.Logging.Level)
	str("LOG_FILE", &c.Logging.File)
	str("HANDEDNESS", &c.Hands.Handedness)
	str("SEGMENT_PROVIDER", &c.Segmentation.Provider)
	str("HANDS_PROVIDER", &c.Hands.Provider)
	str("CAPTURE_VIDEO", &c.Capture.Video)

	if v, ok := lookup("PYTHON"); ok {
		c.Segmentation.Python = v
		c.Hands.Python = v
	}

	if err := flag("STORE_ENABLED", &c.Store.Enabled); err != nil {
		return err
	}
	return num("CAPTURE_DEVICE", &c.Capture.Device)
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}
