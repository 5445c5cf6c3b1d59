// Package app wires tracking sessions to their providers, the session log
// and chord recognition.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/ayusman/fretwise/internal/chord"
	"github.com/ayusman/fretwise/internal/config"
	"github.com/ayusman/fretwise/internal/detector"
	"github.com/ayusman/fretwise/internal/fretboard"
	"github.com/ayusman/fretwise/internal/logging"
	"github.com/ayusman/fretwise/internal/segment"
	"github.com/ayusman/fretwise/internal/session"
	"github.com/ayusman/fretwise/internal/store"
)

// ErrNoStore is returned by history queries when the session log is off.
var ErrNoStore = errors.New("session log is disabled")

// FrameResult is the tracker result of one frame plus recognized chords.
type FrameResult struct {
	fretboard.Result
	Chords []chord.Match `json:"chords"`
}

// Options configures a Service. Nil providers are built from Config.
type Options struct {
	Config     *config.Config
	Logger     logrus.FieldLogger
	Store      *store.Store
	Candidates fretboard.CandidateProvider
	Landmarks  fretboard.LandmarkProvider
}

// Service owns the live sessions.
type Service struct {
	cfg        *config.Config
	log        logrus.FieldLogger
	store      *store.Store
	candidates fretboard.CandidateProvider
	landmarks  fretboard.LandmarkProvider
	registry   *session.Registry
	chords     *chord.Matcher
	closers    []io.Closer
}

// New creates a Service. When a provider cannot start, the service logs the
// reason and falls back to a stand-in that detects nothing.
func New(opts Options) (*Service, error) {
	cfg := opts.Config
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	if err := cfg.Tracker.Validate(); err != nil {
		return nil, err
	}

	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}

	s := &Service{
		cfg:        cfg,
		log:        logging.Component(log, "app"),
		store:      opts.Store,
		candidates: opts.Candidates,
		landmarks:  opts.Landmarks,
		registry:   session.NewRegistry(),
	}
	if cfg.Chords.Enabled {
		s.chords = chord.NewMatcher(cfg.Chords.MinScore)
	}

	if s.candidates == nil {
		s.candidates = s.buildSegmentation()
	}
	if s.landmarks == nil {
		s.landmarks = s.buildHands()
	}
	return s, nil
}

func (s *Service) buildSegmentation() fretboard.CandidateProvider {
	sc := s.cfg.Segmentation
	var seg segment.Segmenter = segment.NewMockSegmenter()

	if sc.Provider == "service" {
		svc, err := segment.NewServiceSegmenter(segment.ServiceConfig{
			Python:      sc.Python,
			Script:      sc.Script,
			Model:       sc.Model,
			IdleTimeout: time.Duration(sc.IdleTimeoutSeconds) * time.Second,
		})
		if err != nil {
			s.log.WithError(err).Warn("segmentation service not available, nothing will be detected")
		} else {
			s.log.Info("using segmentation service")
			seg = svc
		}
	}

	p := segment.NewProvider(seg)
	s.closers = append(s.closers, p)
	return p
}

func (s *Service) buildHands() fretboard.LandmarkProvider {
	hc := s.cfg.Hands
	var det detector.Detector = detector.NewMockDetector()

	if hc.Provider == "mediapipe" {
		mp, err := detector.NewMediaPipeDetector(detector.Config{
			MaxHands:        hc.MaxHands,
			MinConfidence:   hc.MinConfidence,
			MinTrackingConf: hc.MinTrackingConf,
			Python:          hc.Python,
			Script:          hc.Script,
			IdleTimeout:     time.Duration(hc.IdleTimeoutSeconds) * time.Second,
		})
		if err != nil {
			s.log.WithError(err).Warn("MediaPipe not available, fingers will not be mapped")
		} else {
			s.log.Info("using MediaPipe hand detection")
			det = mp
		}
	}

	h := NewHandAdapter(det, hc.Handedness)
	s.closers = append(s.closers, h)
	return h
}

// CreateSession starts a tracker and returns its id. source labels where
// frames come from in the session log.
func (s *Service) CreateSession(source string) (string, error) {
	tr, err := fretboard.New(s.cfg.Tracker, s.candidates, s.landmarks)
	if err != nil {
		return "", err
	}

	id := s.registry.Create(tr)
	log := s.log.WithField("session_id", id)
	tr.SetLogger(logging.Component(log, "tracker"))
	tr.SetObserver(func(e fretboard.Event) { s.record(id, e) })

	if s.store != nil {
		if err := s.store.Sessions().Create(&store.Session{ID: id, Source: source}); err != nil {
			_ = s.registry.Remove(id)
			return "", fmt.Errorf("record session: %w", err)
		}
	}

	log.WithField("source", source).Info("session created")
	return id, nil
}

// ProcessFrame runs one frame through the session's tracker. A frame whose
// context ends before the tracker is free is skipped and answered with the
// tracker's empty result.
func (s *Service) ProcessFrame(ctx context.Context, id string, frame *gocv.Mat) (FrameResult, error) {
	var (
		res     fretboard.Result
		skipped bool
	)
	err := s.registry.Do(id, func(t *fretboard.Tracker) error {
		if err := ctx.Err(); err != nil {
			s.log.WithError(err).WithField("session_id", id).Debug("frame budget expired, skipping")
			res = fretboard.Result{
				StableCount:     t.StableCount(),
				FingerPositions: map[int]fretboard.FingerPosition{},
			}
			skipped = true
			return nil
		}
		res = t.ProcessFrame(frame)
		return nil
	})
	if err != nil {
		return FrameResult{}, fmt.Errorf("session %s: %w", id, err)
	}
	if skipped {
		return FrameResult{Result: res, Chords: []chord.Match{}}, nil
	}

	if s.store != nil {
		if err := s.store.Sessions().AddFrames(id, 1); err != nil {
			s.log.WithError(err).WithField("session_id", id).Warn("failed to count frame")
		}
	}

	out := FrameResult{Result: res, Chords: []chord.Match{}}
	if res.DetectionDone && s.chords != nil {
		if m := s.chords.Match(res.FingerPositions); m != nil {
			out.Chords = m
		}
	}
	return out, nil
}

// StopSession drops the session and closes its log entry.
func (s *Service) StopSession(id string) error {
	if err := s.registry.Remove(id); err != nil {
		return fmt.Errorf("session %s: %w", id, err)
	}
	if s.store != nil {
		if err := s.store.Sessions().End(id); err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("end session: %w", err)
		}
	}
	s.log.WithField("session_id", id).Info("session stopped")
	return nil
}

// HasSession reports whether id is live.
func (s *Service) HasSession(id string) bool {
	return s.registry.Has(id)
}

// ActiveSessions returns the number of live sessions.
func (s *Service) ActiveSessions() int {
	return s.registry.Len()
}

// Events returns the recorded tracker events of a session, live or ended.
func (s *Service) Events(id string) ([]*store.Event, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	if _, err := s.store.Sessions().GetByID(id); err != nil {
		return nil, err
	}
	return s.store.Events().ListBySession(id)
}

// Sessions lists the logged sessions, newest first.
func (s *Service) Sessions() ([]*store.Session, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	return s.store.Sessions().List()
}

// Chords returns the chord matcher, or nil when recognition is off.
func (s *Service) Chords() *chord.Matcher {
	return s.chords
}

// Close ends every provider the service built.
func (s *Service) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Service) record(id string, e fretboard.Event) {
	if s.store == nil {
		return
	}
	ev := &store.Event{
		SessionID:  id,
		Kind:       string(e.Kind),
		Frame:      e.Frame,
		DriftError: e.DriftError,
	}
	if err := s.store.Events().Record(ev); err != nil {
		s.log.WithError(err).WithField("session_id", id).Warn("failed to record tracker event")
	}
}
