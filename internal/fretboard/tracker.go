package fretboard

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/ayusman/fretwise/internal/geometry"
)

// EventKind names a tracker state transition.
type EventKind string

const (
	// EventAnchored is emitted when the gate commits a baseline.
	EventAnchored EventKind = "anchored"
	// EventDriftReset is emitted when drift exceeds the threshold.
	EventDriftReset EventKind = "drift_reset"
	// EventNutLost is emitted when an anchored frame has no nut.
	EventNutLost EventKind = "nut_lost"
)

// Event describes a state transition of a tracker.
type Event struct {
	Kind       EventKind
	Frame      int
	DriftError float64
}

// Tracker follows one guitar neck through a video stream. It is not safe
// for concurrent use; callers serialize access per instance.
type Tracker struct {
	cfg        Config
	candidates CandidateProvider
	landmarks  LandmarkProvider
	log        logrus.FieldLogger
	observer   func(Event)

	interp Interpolator
	gate   *StableGate
	frame  int

	state     State
	baseline  *Baseline
	corners   Corners
	lastKnown Corners
	nutBox    *refBox
	farBox    *refBox
}

// New creates a Tracker. Providers may be nil when only Process is used.
func New(cfg Config, candidates CandidateProvider, landmarks LandmarkProvider) (*Tracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	t := &Tracker{
		cfg:        cfg,
		candidates: candidates,
		landmarks:  landmarks,
		log:        logger,
		interp: Interpolator{
			MaxScale:          cfg.MaxScale,
			DefaultHalfLength: cfg.DefaultHalfLength,
		},
		gate: NewStableGate(cfg.FretCount, cfg.StableFrames),
	}
	t.Reset()
	return t, nil
}

// SetLogger sets the logger used for state transitions and provider errors.
func (t *Tracker) SetLogger(l logrus.FieldLogger) {
	if l != nil {
		t.log = l
	}
}

// SetObserver registers a callback invoked on every state transition.
func (t *Tracker) SetObserver(fn func(Event)) {
	t.observer = fn
}

// Reset drops all tracking state and returns to Unanchored.
func (t *Tracker) Reset() {
	n := t.cfg.FretCount
	t.state = Unanchored
	t.gate.Reset()
	t.baseline = nil
	t.corners = NewCorners(n)
	t.lastKnown = NewCorners(n)
	t.nutBox = newRefBox(t.cfg.MaxMissingFrames)
	t.farBox = newRefBox(t.cfg.MaxMissingFrames)
}

// State returns the current anchoring state.
func (t *Tracker) State() State {
	return t.state
}

// Corners returns a copy of the current fret lines.
func (t *Tracker) Corners() Corners {
	return t.corners.Clone()
}

// Baseline returns the committed baseline, or nil when unanchored.
func (t *Tracker) Baseline() *Baseline {
	return t.baseline
}

// StableCount returns the gate's current run length.
func (t *Tracker) StableCount() int {
	return t.gate.StableCount()
}

// ProcessFrame runs the providers on frame and advances the tracker. A
// provider failure yields an empty result for this frame and leaves the
// tracking state untouched.
func (t *Tracker) ProcessFrame(frame *gocv.Mat) Result {
	var in FrameInput
	var err error

	if t.candidates != nil {
		in.Candidates, err = t.candidates.Candidates(frame)
		if err != nil {
			t.log.WithError(err).Warn("segmentation failed, skipping frame")
			return t.emptyResult()
		}
	}
	if t.landmarks != nil {
		in.Fingertips, err = t.landmarks.Fingertips(frame)
		if err != nil {
			t.log.WithError(err).Warn("hand landmarks failed, skipping frame")
			return t.emptyResult()
		}
	}
	return t.Process(in)
}

// Process advances the tracker with already extracted inputs.
func (t *Tracker) Process(in FrameInput) Result {
	t.frame++
	nuts, frets := t.split(in.Candidates)

	if t.state == Unanchored {
		return t.processUnanchored(nuts, frets)
	}
	return t.processAnchored(nuts, frets, in.Fingertips)
}

func (t *Tracker) processUnanchored(nuts, frets []Candidate) Result {
	if !t.gate.Observe(nuts, frets) {
		return t.emptyResult()
	}

	corners, ok := InitialCorners(nuts[0], frets, t.cfg.FretCount)
	if !ok {
		// Keep the run; the next frame with extreme points anchors.
		return t.emptyResult()
	}
	t.corners = corners
	t.lastKnown = corners.Clone()
	t.baseline = NewBaseline(corners)
	t.state = Anchored

	t.log.WithFields(logrus.Fields{
		"frame":  t.frame,
		"frets":  countPresent(corners) - 1,
		"stable": t.gate.StableCount(),
	}).Info("fretboard anchored")
	t.emit(Event{Kind: EventAnchored, Frame: t.frame})

	return Result{
		DetectionDone:   true,
		StableCount:     t.gate.StableCount(),
		FingerPositions: map[int]FingerPosition{},
	}
}

func (t *Tracker) processAnchored(nuts, frets []Candidate, tips []Fingertip) Result {
	cfg := t.cfg
	n := cfg.FretCount

	corners := MatchCorners(topmostNut(nuts), frets, t.baseline, n, cfg.MatchTolerance)
	if corners[0] == nil {
		return t.nutLost("no nut matched")
	}

	// A partly hidden nut fails the length check like any fret.
	corners = FilterShrunk(corners, t.lastKnown, cfg.ShortFactor)
	if corners[0] == nil {
		return t.nutLost("nut shrunk")
	}

	corners = t.interp.Fill(corners, t.lastKnown, t.baseline, t.farBox.rect())
	corners = Smooth(corners, cfg.SmoothRatio, cfg.JitterThreshold)
	if far, idx := Anchor(corners, t.farBox.rect(), n); idx >= 0 && corners[0] != nil {
		corners = EnforceOrdering(corners, corners[0].Center(), far, cfg.MinSpacing)
	}

	drift := DriftError(corners, t.baseline, cfg.minDriftSamples())
	if drift > cfg.RedetectErrorThreshold {
		t.log.WithFields(logrus.Fields{
			"frame": t.frame,
			"drift": drift,
		}).Info("drift above threshold, re-detecting")
		t.emit(Event{Kind: EventDriftReset, Frame: t.frame, DriftError: drift})
		t.Reset()
		return t.emptyResult()
	}

	for i, c := range corners {
		if c != nil {
			t.lastKnown[i] = c
		}
	}
	t.corners = corners
	t.updateBoxes(nuts, frets)

	return Result{
		DetectionDone:   true,
		StableCount:     t.gate.StableCount(),
		FingerPositions: MapFingers(tips, corners, t.nutBox.rect(), t.farBox.rect(), cfg.OffsetRatio),
	}
}

// nutLost resets the tracker after an anchored frame without a usable nut.
func (t *Tracker) nutLost(reason string) Result {
	t.log.WithFields(logrus.Fields{
		"frame":  t.frame,
		"reason": reason,
	}).Info("nut lost, re-detecting")
	t.emit(Event{Kind: EventNutLost, Frame: t.frame})
	t.Reset()
	return t.emptyResult()
}

// split drops low-score candidates and separates nuts from frets.
func (t *Tracker) split(cands []Candidate) (nuts, frets []Candidate) {
	for _, c := range cands {
		switch c.Class {
		case ClassNut:
			if c.Score >= t.cfg.MinScoreNut {
				nuts = append(nuts, c)
			}
		case ClassFret:
			if c.Score >= t.cfg.MinScoreFret {
				frets = append(frets, c)
			}
		default:
			panic(fmt.Sprintf("fretboard: unknown candidate class %q", c.Class))
		}
	}
	return nuts, frets
}

// updateBoxes refreshes the reference boxes that bound the string lanes.
func (t *Tracker) updateBoxes(nuts, frets []Candidate) {
	if len(nuts) == 1 && nuts[0].Box != nil {
		t.nutBox.observe(*nuts[0].Box)
	} else {
		t.nutBox.miss()
	}

	nutRect := t.nutBox.rect()
	if nutRect == nil {
		t.farBox.miss()
		return
	}
	origin := nutRect.Center()
	var best *geometry.Rect
	bestDist := -1.0
	for _, f := range frets {
		if f.Box == nil {
			continue
		}
		if d := origin.Distance(f.Box.Center()); d > bestDist {
			bestDist = d
			best = f.Box
		}
	}
	if best != nil {
		t.farBox.observe(*best)
	} else {
		t.farBox.miss()
	}
}

func (t *Tracker) emptyResult() Result {
	return Result{
		DetectionDone:   false,
		StableCount:     t.gate.StableCount(),
		FingerPositions: map[int]FingerPosition{},
	}
}

func (t *Tracker) emit(e Event) {
	if t.observer != nil {
		t.observer(e)
	}
}

// topmostNut picks the nut whose upper extreme point is highest in the
// image.
func topmostNut(nuts []Candidate) *geometry.Segment {
	var best *geometry.Segment
	for _, c := range nuts {
		if c.Extreme == nil {
			continue
		}
		if best == nil || c.Extreme.Start.Y < best.Start.Y {
			best = c.Extreme
		}
	}
	return best
}

func countPresent(c Corners) int {
	n := 0
	for _, s := range c {
		if s != nil {
			n++
		}
	}
	return n
}
