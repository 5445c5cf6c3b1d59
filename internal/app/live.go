package app

import (
	"context"
	"errors"
	"time"

	"github.com/ayusman/fretwise/internal/capture"
)

// Run tracks src in a fresh session until ctx is cancelled or a finite
// source runs out, calling onResult for every frame.
//
// Sources that accept a rate run at the active rate while the scene moves
// and drop to the idle rate after a quiet period. Other sources are paced
// at their own frame rate.
func (s *Service) Run(ctx context.Context, src capture.Source, label string, onResult func(FrameResult)) error {
	if err := src.Open(); err != nil {
		return err
	}
	defer src.Close()

	id, err := s.CreateSession(label)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.StopSession(id); err != nil {
			s.log.WithError(err).Warn("failed to stop live session")
		}
	}()

	cc := s.cfg.Capture
	rate, gated := src.(capture.RateSetter)

	activeFPS := cc.ActiveFPS
	if !gated {
		activeFPS = src.FPS()
	}
	if activeFPS <= 0 {
		activeFPS = capture.DefaultFPS
	}

	var motion *capture.MotionDetector
	if gated && cc.MotionThreshold > 0 {
		motion = capture.NewMotionDetector(cc.MotionThreshold)
		defer motion.Close()
		rate.SetFPS(activeFPS)
	}

	active := true
	lastMotion := time.Now()
	ticker := time.NewTicker(time.Second / time.Duration(activeFPS))
	defer ticker.Stop()

	log := s.log.WithField("session_id", id)
	log.WithField("fps", activeFPS).Info("live tracking started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		frame, err := src.ReadFrame()
		if errors.Is(err, capture.ErrEndOfStream) {
			log.Info("end of stream")
			return nil
		}
		if err != nil {
			log.WithError(err).Warn("error reading frame")
			continue
		}

		if motion != nil {
			if moved, _ := motion.Detect(frame); moved {
				lastMotion = time.Now()
				if !active {
					active = true
					rate.SetFPS(cc.ActiveFPS)
					ticker.Reset(time.Second / time.Duration(cc.ActiveFPS))
					log.Debug("switched to active rate")
				}
			} else if active && time.Since(lastMotion) > s.cfg.IdleAfter() {
				active = false
				rate.SetFPS(cc.IdleFPS)
				ticker.Reset(time.Second / time.Duration(cc.IdleFPS))
				log.Debug("switched to idle rate")
			}
		}

		res, err := s.ProcessFrame(ctx, id, frame)
		frame.Close()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if onResult != nil {
			onResult(res)
		}
	}
}
