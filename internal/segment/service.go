package segment

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/fretwise/internal/fretboard"
	"github.com/ayusman/fretwise/internal/subproc"
)

// ScriptName is the segmentation service looked up by FindScript.
const ScriptName = "segment_service.py"

// ServiceConfig configures the segmentation service process.
type ServiceConfig struct {
	Python string
	Script string
	// Model is passed to the service as FRETWISE_SEGMENT_MODEL when set.
	Model       string
	IdleTimeout time.Duration
}

// ServiceSegmenter runs the segmentation model in a helper process. Each
// request is a JPEG frame; each response is a JSON line
// {"masks":[{"class":"nut","score":0.93,"png":"<base64>"}]}.
type ServiceSegmenter struct {
	proc *subproc.Process
}

// NewServiceSegmenter creates a segmenter. The process starts on first use.
func NewServiceSegmenter(cfg ServiceConfig) (*ServiceSegmenter, error) {
	script := cfg.Script
	if script == "" {
		script = subproc.FindScript(ScriptName)
	}
	var env []string
	if cfg.Model != "" {
		env = append(env, "FRETWISE_SEGMENT_MODEL="+cfg.Model)
	}
	proc, err := subproc.New(subproc.Config{
		Python:      cfg.Python,
		Script:      script,
		IdleTimeout: cfg.IdleTimeout,
		Env:         env,
	})
	if err != nil {
		return nil, fmt.Errorf("segmentation service: %w", err)
	}
	return &ServiceSegmenter{proc: proc}, nil
}

type jsonMask struct {
	Class string  `json:"class"`
	Score float64 `json:"score"`
	PNG   string  `json:"png"`
}

// Segment sends frame to the service and decodes the returned masks.
func (s *ServiceSegmenter) Segment(frame *gocv.Mat) ([]Mask, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	line, err := s.proc.Exchange(buf.GetBytes())
	if err != nil {
		return nil, err
	}
	return DecodeMasks(line)
}

// DecodeMasks parses one service response line.
func DecodeMasks(line []byte) ([]Mask, error) {
	var response struct {
		Masks []jsonMask `json:"masks"`
		Error string     `json:"error"`
	}
	if err := json.Unmarshal(line, &response); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if response.Error != "" {
		return nil, fmt.Errorf("segmentation service: %s", response.Error)
	}

	out := make([]Mask, 0, len(response.Masks))
	for _, jm := range response.Masks {
		class := fretboard.Class(jm.Class)
		if class != fretboard.ClassNut && class != fretboard.ClassFret {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(jm.PNG)
		if err != nil {
			closeMasks(out)
			return nil, fmt.Errorf("decode %s mask: %w", jm.Class, err)
		}
		mat, err := gocv.IMDecode(data, gocv.IMReadGrayScale)
		if err != nil {
			closeMasks(out)
			return nil, fmt.Errorf("decode %s mask image: %w", jm.Class, err)
		}
		if mat.Empty() {
			mat.Close()
			closeMasks(out)
			return nil, fmt.Errorf("decode %s mask image", jm.Class)
		}
		out = append(out, Mask{Class: class, Score: jm.Score, Mat: mat})
	}
	return out, nil
}

// Close stops the service process.
func (s *ServiceSegmenter) Close() error {
	return s.proc.Close()
}

func closeMasks(masks []Mask) {
	for i := range masks {
		masks[i].Mat.Close()
	}
}
