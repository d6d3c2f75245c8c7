// Package scheduler runs periodic maintenance jobs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	sweepTimeout = 30 * time.Second
	stopTimeout  = 30 * time.Second
)

// Sweeper reconciles persisted player status with derived liveness.
type Sweeper interface {
	SweepOffline(ctx context.Context) (int64, error)
}

// LivenessSweep calls Sweeper on schedule.  Runs never overlap; a run that is
// still busy when the next tick fires causes that tick to be skipped.
type LivenessSweep struct {
	sweeper  Sweeper
	schedule string
	cron     *cron.Cron
	log      *zap.Logger

	mu      sync.Mutex
	running bool
}

func NewLivenessSweep(sweeper Sweeper, schedule string, log *zap.Logger) *LivenessSweep {
	if log == nil {
		log = zap.NewNop()
	}
	return &LivenessSweep{
		sweeper:  sweeper,
		schedule: schedule,
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		log:      log,
	}
}

// Start validates the schedule and starts the cron loop.
func (s *LivenessSweep) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	if _, err := s.cron.AddFunc(s.schedule, s.RunOnce); err != nil {
		return fmt.Errorf("liveness sweep schedule %q: %w", s.schedule, err)
	}
	s.cron.Start()
	s.running = true
	s.log.Info("liveness sweep started", zap.String("schedule", s.schedule))
	return nil
}

// RunOnce performs a single sweep.
func (s *LivenessSweep) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()
	if _, err := s.sweeper.SweepOffline(ctx); err != nil {
		s.log.Error("liveness sweep failed", zap.Error(err))
	}
}

// Stop waits for an in-flight run, up to ctx or a fixed timeout.
func (s *LivenessSweep) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	done := s.cron.Stop().Done()
	select {
	case <-done:
		s.log.Info("liveness sweep stopped")
	case <-ctx.Done():
		s.log.Warn("liveness sweep stop interrupted", zap.Error(ctx.Err()))
	case <-time.After(stopTimeout):
		s.log.Warn("liveness sweep stop timed out")
	}
	s.running = false
}
