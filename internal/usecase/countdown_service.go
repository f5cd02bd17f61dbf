package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/vitos/funding_radar/internal/domain"
	"go.uber.org/zap"
)

// CountdownService tracks the time remaining until the next hourly funding
// reset (the top of each UTC hour). It recomputes from absolute wall-clock
// time on every tick, so a slow or delayed tick never accumulates drift.
type CountdownService struct {
	interval  time.Duration
	logger    *zap.Logger
	timeNow   func() time.Time
	mu        sync.Mutex
	current   domain.CountdownState
	listeners []func(domain.CountdownState)
}

func NewCountdownService(tickInterval time.Duration, logger *zap.Logger) *CountdownService {
	if tickInterval <= 0 {
		tickInterval = time.Second
	}
	s := &CountdownService{
		interval: tickInterval,
		logger:   logger,
		timeNow:  time.Now,
	}
	s.current = ComputeRemaining(s.timeNow())
	return s
}

// ComputeRemaining returns the countdown to the next UTC top-of-hour
// strictly after now. At an exact boundary the next boundary is the
// following hour; a full-hour remainder is capped at 59:59 because the
// display only has minute and second digits. A non-positive remainder
// clamps to zero.
func ComputeRemaining(now time.Time) domain.CountdownState {
	now = now.UTC()

	next := now.Truncate(time.Hour).Add(time.Hour)
	if !next.After(now) {
		next = next.Add(time.Hour)
	}

	secs := int(next.Sub(now) / time.Second)
	switch {
	case secs <= 0:
		return domain.CountdownState{}
	case secs >= 3600:
		return domain.CountdownState{Minutes: 59, Seconds: 59}
	default:
		return domain.CountdownState{Minutes: secs / 60, Seconds: secs % 60}
	}
}

// OnTick registers a callback invoked with each recomputed state. Register
// before Run; the listener list is not safe to grow mid-run.
func (s *CountdownService) OnTick(fn func(domain.CountdownState)) {
	s.listeners = append(s.listeners, fn)
}

func (s *CountdownService) State() domain.CountdownState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Run ticks until the context is cancelled.
func (s *CountdownService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Debug("Countdown loop started", zap.Duration("interval", s.interval))

	for {
		select {
		case <-ticker.C:
			state := ComputeRemaining(s.timeNow())
			s.mu.Lock()
			s.current = state
			s.mu.Unlock()
			for _, fn := range s.listeners {
				fn(state)
			}
		case <-ctx.Done():
			s.logger.Debug("Countdown loop stopped")
			return
		}
	}
}
