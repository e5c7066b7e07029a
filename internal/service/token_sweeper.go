package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// DefaultSweepSchedule removes expired first-time tokens once an hour.
const DefaultSweepSchedule = "@every 1h"

const sweepTimeout = 30 * time.Second

// TokenSweeper periodically deletes expired first-time login tokens.
type TokenSweeper struct {
	cron   *cron.Cron
	tokens TokenService
	log    logrus.FieldLogger
}

// NewTokenSweeper schedules the sweep. It fails on an unparsable schedule.
func NewTokenSweeper(tokens TokenService, schedule string, log logrus.FieldLogger) (*TokenSweeper, error) {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}

	s := &TokenSweeper{
		cron:   cron.New(),
		tokens: tokens,
		log:    log,
	}
	if _, err := s.cron.AddFunc(schedule, s.Sweep); err != nil {
		return nil, fmt.Errorf("schedule token sweep %q: %w", schedule, err)
	}
	return s, nil
}

// Start runs the scheduler in its own goroutine.
func (s *TokenSweeper) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for a running sweep, bounded by ctx.
func (s *TokenSweeper) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("token sweep still running at shutdown")
	}
}

// Sweep deletes expired tokens once.
func (s *TokenSweeper) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	removed, err := s.tokens.RevokeExpiredTokens(ctx)
	if err != nil {
		s.log.WithError(err).Error("expired token sweep failed")
		return
	}
	if removed > 0 {
		s.log.WithField("removed", removed).Info("expired first-time tokens removed")
	}
}
