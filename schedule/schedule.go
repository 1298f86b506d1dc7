// Package schedule drives polling on a fixed cadence anchored to the wall
// clock minute.
package schedule

import (
	"context"
	"time"

	"golang.org/x/exp/slog"
)

type Tracker interface {
	Tick(ctx context.Context) error
}

// Next returns the first instant after now that lies offset plus a whole
// number of intervals past a minute boundary. With an interval of 20s and
// an offset of 5s that is :05, :25 or :45 of some minute. interval must
// divide a minute.
func Next(now time.Time, interval, offset time.Duration) time.Time {
	since := now.Sub(now.Truncate(time.Minute))
	wait := (offset - since) % interval
	if wait <= 0 {
		wait += interval
	}

	return now.Add(wait)
}

// Scheduler runs one tick of every tracker, in order, then sleeps until the
// next aligned instant. The next tick is only planned after the previous
// one has finished, so ticks never overlap and never drift.
type Scheduler struct {
	trackers []Tracker
	interval time.Duration
	offset   time.Duration
	logger   *slog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func New(trackers []Tracker, interval, offset time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		trackers: trackers,
		interval: interval,
		offset:   offset,
		logger:   logger,
		now:      time.Now,
		sleep:    timeSleep,
	}
}

// RunOnce ticks every tracker once. The first error stops the round.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	s.logger.Debug("checking for new uploads")
	for _, t := range s.trackers {
		if err := t.Tick(ctx); err != nil {
			return err
		}
	}

	return nil
}

// Run ticks until a tracker fails or ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("started polling",
		slog.Int("channels", len(s.trackers)),
		slog.Duration("interval", s.interval),
		slog.Duration("offset", s.offset),
	)
	for {
		if err := s.RunOnce(ctx); err != nil {
			return err
		}

		now := s.now()
		next := Next(now, s.interval, s.offset)
		s.logger.Debug("waiting for next check", slog.Time("next", next))
		if err := s.sleep(ctx, next.Sub(now)); err != nil {
			return err
		}
	}
}

func timeSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
