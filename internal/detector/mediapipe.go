package detector

import (
	"encoding/json"
	"fmt"

	"gocv.io/x/gocv"

	"github.com/ayusman/fretwise/internal/subproc"
)

// ScriptName is the MediaPipe hand service looked up by FindScript.
const ScriptName = "mediapipe_service.py"

// MediaPipeDetector implements Detector using a Python MediaPipe subprocess.
type MediaPipeDetector struct {
	config Config
	proc   *subproc.Process
}

// NewMediaPipeDetector creates a new MediaPipe detector.
// The Python process is started lazily on first detection.
func NewMediaPipeDetector(config Config) (*MediaPipeDetector, error) {
	script := config.Script
	if script == "" {
		script = subproc.FindScript(ScriptName)
	}
	proc, err := subproc.New(subproc.Config{
		Python:      config.Python,
		Script:      script,
		IdleTimeout: config.IdleTimeout,
		Env: []string{
			fmt.Sprintf("FRETWISE_MAX_HANDS=%d", config.MaxHands),
			fmt.Sprintf("FRETWISE_MIN_CONFIDENCE=%g", config.MinConfidence),
			fmt.Sprintf("FRETWISE_MIN_TRACKING_CONFIDENCE=%g", config.MinTrackingConf),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("mediapipe: %w", err)
	}

	return &MediaPipeDetector{
		config: config,
		proc:   proc,
	}, nil
}

// Detect analyzes a frame and returns detected hand landmarks.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	line, err := d.proc.Exchange(buf.GetBytes())
	if err != nil {
		return nil, err
	}
	return parseHands(line, d.config.MaxHands)
}

// Close shuts down the Python process.
func (d *MediaPipeDetector) Close() error {
	return d.proc.Close()
}

func parseHands(line []byte, maxHands int) ([]HandLandmarks, error) {
	var response struct {
		Hands []jsonHand `json:"hands"`
	}
	if err := json.Unmarshal(line, &response); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	hands := response.Hands
	if maxHands > 0 && len(hands) > maxHands {
		hands = hands[:maxHands]
	}

	result := make([]HandLandmarks, len(hands))
	for i, h := range hands {
		result[i] = h.toHandLandmarks()
	}
	return result, nil
}

// jsonHand represents the JSON structure from the Python service.
type jsonHand struct {
	Points     []jsonPoint `json:"points"`
	Handedness string      `json:"handedness"`
	Score      float64     `json:"score"`
}

type jsonPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (h jsonHand) toHandLandmarks() HandLandmarks {
	lm := HandLandmarks{
		Handedness: h.Handedness,
		Score:      h.Score,
	}

	for i := 0; i < NumLandmarks && i < len(h.Points); i++ {
		lm.Points[i] = Point3D{
			X: h.Points[i].X,
			Y: h.Points[i].Y,
			Z: h.Points[i].Z,
		}
	}

	return lm
}
