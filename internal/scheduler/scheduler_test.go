package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goldwatcher/internal/config"
)

func TestWithinWindowBoundaries(t *testing.T) {
	tehran := time.FixedZone("IRST", 3*3600+1800)
	s := New(Options{
		Enabled:   true,
		Interval:  time.Minute,
		StartTime: clock(t, "11:00"),
		EndTime:   clock(t, "20:30"),
		Location:  tehran,
	}, zerolog.Nop())

	cases := []struct {
		hour, minute int
		want         bool
	}{
		{10, 59, false},
		{11, 0, true}, // start is inclusive
		{15, 30, true},
		{20, 29, true},
		{20, 30, false}, // end is exclusive
		{23, 0, false},
	}
	for _, tc := range cases {
		tick := time.Date(2024, 5, 10, tc.hour, tc.minute, 0, 0, tehran)
		assert.Equal(t, tc.want, s.withinWindow(tick), "at %02d:%02d", tc.hour, tc.minute)
	}
}

func TestWithinWindowConvertsZones(t *testing.T) {
	tehran := time.FixedZone("IRST", 3*3600+1800)
	s := New(Options{
		Enabled:   true,
		Interval:  time.Minute,
		StartTime: clock(t, "11:00"),
		EndTime:   clock(t, "20:30"),
		Location:  tehran,
	}, zerolog.Nop())

	// 07:30 UTC is 11:00 in Tehran
	assert.True(t, s.withinWindow(time.Date(2024, 5, 10, 7, 30, 0, 0, time.UTC)))
	// 07:29 UTC is 10:59 in Tehran
	assert.False(t, s.withinWindow(time.Date(2024, 5, 10, 7, 29, 0, 0, time.UTC)))
}

func TestRunDisabledReturnsImmediately(t *testing.T) {
	s := New(Options{
		Enabled:   false,
		Interval:  time.Minute,
		StartTime: clock(t, "11:00"),
		EndTime:   clock(t, "20:30"),
	}, zerolog.Nop())

	err := s.Run(context.Background(), func(ctx context.Context) error {
		t.Fatal("run must not be invoked when disabled")
		return nil
	})
	require.NoError(t, err)
}

func TestRunTicksInsideWindow(t *testing.T) {
	s := newWindowedScheduler(t, 12) // local noon, inside 11:00-20:30

	var runs atomic.Int64
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := s.Run(ctx, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.GreaterOrEqual(t, runs.Load(), int64(1))
	assert.False(t, s.LastTick().IsZero())
}

func TestRunSkipsOutsideWindow(t *testing.T) {
	s := newWindowedScheduler(t, 5) // local 05:xx, outside 11:00-20:30

	var runs atomic.Int64
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	err := s.Run(ctx, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Zero(t, runs.Load())
	assert.False(t, s.LastTick().IsZero(), "ticks still fire outside the window")
}

func TestRunErrorsDoNotStopLoop(t *testing.T) {
	s := newWindowedScheduler(t, 12)

	var runs atomic.Int64
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_ = s.Run(ctx, func(ctx context.Context) error {
		runs.Add(1)
		return errors.New("boom")
	})
	assert.GreaterOrEqual(t, runs.Load(), int64(2), "failing runs must not stop the scheduler")
}

func TestNewPanicsOnNonPositiveInterval(t *testing.T) {
	require.Panics(t, func() {
		New(Options{Enabled: true, Interval: 0}, zerolog.Nop())
	})
}

// newWindowedScheduler builds a fast scheduler whose fixed zone places the
// current wall clock at the given local hour, so window membership is
// deterministic regardless of when the test runs.
func newWindowedScheduler(t *testing.T, localHour int) *Scheduler {
	t.Helper()
	offset := (localHour - time.Now().UTC().Hour()) * 3600
	return New(Options{
		Enabled:   true,
		Interval:  5 * time.Millisecond,
		StartTime: clock(t, "11:00"),
		EndTime:   clock(t, "20:30"),
		Location:  time.FixedZone("test", offset),
	}, zerolog.Nop())
}

func clock(t *testing.T, value string) config.ClockTime {
	t.Helper()
	ct, err := config.ParseClockTime(value)
	require.NoError(t, err)
	return ct
}
