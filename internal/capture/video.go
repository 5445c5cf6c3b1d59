package capture

import (
	"fmt"
	"math"
	"os"
	"sync"

	"gocv.io/x/gocv"
)

// VideoFile replays a recorded video. ReadFrame returns ErrEndOfStream after
// the last frame.
type VideoFile struct {
	path    string
	capture *gocv.VideoCapture
	fps     int
	mu      sync.Mutex
}

// NewVideoFile creates a source for the video at path.
func NewVideoFile(path string) *VideoFile {
	return &VideoFile{path: path, fps: DefaultFPS}
}

// Open opens the file and reads its frame rate.
func (v *VideoFile) Open() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.capture != nil {
		return nil
	}
	if _, err := os.Stat(v.path); err != nil {
		return fmt.Errorf("open video: %w", err)
	}

	vc, err := gocv.OpenVideoCapture(v.path)
	if err != nil {
		return fmt.Errorf("open video %s: %w", v.path, err)
	}
	if fps := vc.Get(gocv.VideoCaptureFPS); fps > 0 && !math.IsNaN(fps) {
		v.fps = int(math.Round(fps))
	}
	v.capture = vc
	return nil
}

// Close releases the file.
func (v *VideoFile) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.capture == nil {
		return nil
	}
	err := v.capture.Close()
	v.capture = nil
	return err
}

// ReadFrame decodes the next frame.
func (v *VideoFile) ReadFrame() (*gocv.Mat, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.capture == nil {
		return nil, ErrNotOpen
	}
	return read(v.capture, ErrEndOfStream)
}

// FPS returns the file's frame rate, or DefaultFPS when it is unknown.
func (v *VideoFile) FPS() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.fps
}

// Path returns the video path.
func (v *VideoFile) Path() string {
	return v.path
}
