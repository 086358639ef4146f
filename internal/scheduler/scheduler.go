package scheduler

import (
	"context"
	"time"

	"sigrank/internal/logger"
)

// AlignedScheduler runs a task on wall-clock boundaries of Interval, Offset after each boundary,
// so every instance polls the snapshot source at the same moments.
type AlignedScheduler struct {
	Interval       time.Duration
	Offset         time.Duration
	RunImmediately bool

	ctx   context.Context
	nowFn func() time.Time
}

func NewAlignedScheduler(ctx context.Context, interval, offset time.Duration) *AlignedScheduler {
	if ctx == nil {
		ctx = context.Background()
	}
	return &AlignedScheduler{
		Interval: interval,
		Offset:   offset,
		ctx:      ctx,
		nowFn:    time.Now,
	}
}

// Start blocks until the context is done. Task runs are sequential: a slow run delays the
// next one instead of overlapping it.
func (s *AlignedScheduler) Start(task func(ctx context.Context)) {
	if s == nil {
		return
	}
	if task == nil {
		logger.Warnf("AlignedScheduler: task is nil, exit")
		return
	}
	if s.Interval <= 0 {
		logger.Warnf("AlignedScheduler: invalid interval=%s, exit", s.Interval)
		return
	}
	if s.Offset < 0 {
		logger.Warnf("AlignedScheduler: negative offset=%s, clamp to 0", s.Offset)
		s.Offset = 0
	}
	if s.ctx == nil {
		s.ctx = context.Background()
	}
	if s.nowFn == nil {
		s.nowFn = time.Now
	}

	startAt := s.nowFn().UTC()
	logger.Infof("AlignedScheduler: started interval=%s offset=%s run_immediately=%v at=%s",
		s.Interval, s.Offset, s.RunImmediately, startAt.Format(time.RFC3339))

	if s.RunImmediately {
		if s.ctx.Err() != nil {
			return
		}
		task(s.ctx)
	}

	for {
		now := s.nowFn().UTC()
		boundary, wakeAt, wait := s.nextTimes(now)
		logger.Debugf("AlignedScheduler: next boundary=%s run_at=%s in=%s uptime=%s",
			boundary.Format(time.RFC3339),
			wakeAt.Format(time.RFC3339),
			wait.Truncate(time.Second),
			now.Sub(startAt).Truncate(time.Second),
		)

		timer := time.NewTimer(wait)
		select {
		case <-s.ctx.Done():
			timer.Stop()
			logger.Infof("AlignedScheduler: ctx done, exit")
			return
		case <-timer.C:
		}
		task(s.ctx)
	}
}

func (s *AlignedScheduler) nextTimes(now time.Time) (boundary, wakeAt time.Time, wait time.Duration) {
	now = now.UTC()
	boundary = now.Truncate(s.Interval)
	wakeAt = boundary.Add(s.Offset)
	if !wakeAt.After(now) {
		boundary = boundary.Add(s.Interval)
		wakeAt = boundary.Add(s.Offset)
	}
	return boundary, wakeAt, wakeAt.Sub(now)
}
