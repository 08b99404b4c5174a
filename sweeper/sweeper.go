// Package sweeper drives the asynchronous timeout path: at a fixed
// interval it enumerates every live session and lets the orchestrator
// arbitrate each one. It holds no state of its own, so it can race the
// interactive path safely.
package sweeper

import (
	"context"
	"time"

	"github.com/golan-guy/hangman/logger"
	"github.com/golan-guy/hangman/services"
)

// Arbitrator is the one orchestrator entry point the sweep needs.
type Arbitrator interface {
	SweepSession(ctx context.Context, sessionID string) error
}

// Recorder receives sweep metrics. A nil recorder is valid.
type Recorder interface {
	SetActiveMatches(count int)
	ObserveSweepDuration(d time.Duration)
}

type Sweeper struct {
	matches    *services.MatchService
	arbitrator Arbitrator
	interval   time.Duration
	recorder   Recorder
	closeChan  chan struct{}
}

func New(matches *services.MatchService, arbitrator Arbitrator, interval time.Duration, recorder Recorder) *Sweeper {
	return &Sweeper{
		matches:    matches,
		arbitrator: arbitrator,
		interval:   interval,
		recorder:   recorder,
		closeChan:  make(chan struct{}),
	}
}

// Start runs the sweep loop until Stop is called.
func (s *Sweeper) Start() {
	go s.loop()
}

func (s *Sweeper) Stop() {
	close(s.closeChan)
}

func (s *Sweeper) loop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.SweepOnce(context.Background())
		case <-s.closeChan:
			return
		}
	}
}

// SweepOnce arbitrates every live session one time. A failing session
// is logged and skipped; the rest of the sweep continues, since each
// session is an independent unit of work.
func (s *Sweeper) SweepOnce(ctx context.Context) {
	started := time.Now()

	sessions, err := s.matches.ActiveSessions(ctx)
	if err != nil {
		logger.Log.Errorw("sweep enumeration failed", "error", err)
		return
	}

	for _, sessionID := range sessions {
		if err := s.arbitrator.SweepSession(ctx, sessionID); err != nil {
			logger.Log.Errorw("sweep failed for session",
				"session", sessionID, "error", err)
		}
	}

	if s.recorder != nil {
		s.recorder.SetActiveMatches(len(sessions))
		s.recorder.ObserveSweepDuration(time.Since(started))
	}
}
