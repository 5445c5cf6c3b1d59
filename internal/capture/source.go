// Package capture reads video frames from cameras and files using GoCV.
package capture

import (
	"errors"
	"io"

	"gocv.io/x/gocv"
)

// Default capture settings.
const (
	DefaultFPS    = 15
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	// ErrNotOpen is returned when reading from a source that is not open.
	ErrNotOpen = errors.New("source is not open")

	// ErrEndOfStream is returned once a finite source has no more frames.
	ErrEndOfStream = io.EOF
)

// Source produces frames. The caller closes every Mat ReadFrame returns.
type Source interface {
	Open() error
	Close() error
	ReadFrame() (*gocv.Mat, error)
	FPS() int
}

// RateSetter is implemented by sources whose capture rate can change.
type RateSetter interface {
	SetFPS(fps int)
}
