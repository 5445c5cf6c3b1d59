package segment

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/ayusman/fretwise/internal/fretboard"
)

// Mask is one instance predicted by a segmentation model. Mat is an 8-bit
// single channel probability mask scaled to 0-255, in model or frame
// resolution.
type Mask struct {
	Class fretboard.Class
	Score float64
	Mat   gocv.Mat
}

// Segmenter runs a segmentation model on a frame. The caller closes the
// returned masks.
type Segmenter interface {
	Segment(frame *gocv.Mat) ([]Mask, error)
	Close() error
}

// Provider adapts a Segmenter to fretboard.CandidateProvider.
type Provider struct {
	seg Segmenter
}

// NewProvider wraps seg.
func NewProvider(seg Segmenter) *Provider {
	return &Provider{seg: seg}
}

// Candidates segments frame and reduces every mask to its extreme points
// and bounding box in frame coordinates.
func (p *Provider) Candidates(frame *gocv.Mat) ([]fretboard.Candidate, error) {
	masks, err := p.seg.Segment(frame)
	if err != nil {
		return nil, fmt.Errorf("segment frame: %w", err)
	}
	defer func() {
		for i := range masks {
			masks[i].Mat.Close()
		}
	}()

	var size image.Point
	if frame != nil && !frame.Empty() {
		size = image.Pt(frame.Cols(), frame.Rows())
	}

	out := make([]fretboard.Candidate, 0, len(masks))
	for _, m := range masks {
		bin := Binarize(m.Mat, size)
		seg, box := Extremes(bin)
		bin.Close()

		out = append(out, fretboard.Candidate{
			Class:   m.Class,
			Score:   m.Score,
			Extreme: seg,
			Box:     box,
		})
	}
	return out, nil
}

// Close releases the underlying model.
func (p *Provider) Close() error {
	return p.seg.Close()
}
