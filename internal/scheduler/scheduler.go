package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"goldwatcher/internal/config"
)

// RunFunc is invoked on every tick that falls inside the active window.
type RunFunc func(ctx context.Context) error

// Options tune scheduler behaviour.
type Options struct {
	Enabled      bool
	Interval     time.Duration
	StartTime    config.ClockTime
	EndTime      config.ClockTime
	Location     *time.Location
	StartupDelay time.Duration
}

// Scheduler drives the recurring pipeline trigger. Ticks fire at a fixed
// interval but only invoke the run function while the wall clock in the
// configured zone is inside [StartTime, EndTime). Runs execute to completion
// before the next tick is considered, so at most one run is ever in flight.
type Scheduler struct {
	opts     Options
	logger   zerolog.Logger
	now      func() time.Time
	lastTick time.Time
}

// New constructs a Scheduler instance.
func New(opts Options, logger zerolog.Logger) *Scheduler {
	if opts.Interval <= 0 {
		panic("scheduler interval must be positive")
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Scheduler{
		opts:   opts,
		logger: logger.With().Str("component", "scheduler").Logger(),
		now:    time.Now,
	}
}

// Run blocks, evaluating the window at each interval until ctx is cancelled.
// Run errors are logged and never terminate the loop.
func (s *Scheduler) Run(ctx context.Context, run RunFunc) error {
	if !s.opts.Enabled {
		s.logger.Warn().Msg("scheduler disabled by configuration; not starting")
		return nil
	}

	if s.opts.StartupDelay > 0 {
		timer := time.NewTimer(s.opts.StartupDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	s.logger.Info().
		Dur("interval", s.opts.Interval).
		Str("window_start", s.opts.StartTime.String()).
		Str("window_end", s.opts.EndTime.String()).
		Str("timezone", s.opts.Location.String()).
		Msg("scheduler started")

	next := s.now().Add(s.opts.Interval)
	for {
		delay := time.Until(next)
		if delay < 0 {
			next = s.now().Add(s.opts.Interval)
			delay = time.Until(next)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			timer.Stop()
		}

		// The window is evaluated against the tick start, not against
		// when the previous run finished.
		tick := s.now()
		s.lastTick = tick

		if !s.withinWindow(tick) {
			s.logger.Debug().
				Time("tick", tick).
				Msg("tick outside active window; skipping")
			next = next.Add(s.opts.Interval)
			continue
		}

		s.logger.Info().Time("tick", tick).Msg("executing scheduled run")
		if err := run(ctx); err != nil {
			s.logger.Error().Err(err).Time("tick", tick).Msg("run failed")
		}

		next = next.Add(s.opts.Interval)
	}
}

// LastTick reports when the scheduler last evaluated the window. Process
// local; lost on restart.
func (s *Scheduler) LastTick() time.Time {
	return s.lastTick
}

// withinWindow reports whether t (in the configured zone) falls inside
// [StartTime, EndTime). Start is inclusive, end exclusive.
func (s *Scheduler) withinWindow(t time.Time) bool {
	local := t.In(s.opts.Location)
	minute := local.Hour()*60 + local.Minute()
	return minute >= s.opts.StartTime.MinuteOfDay() && minute < s.opts.EndTime.MinuteOfDay()
}
