package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	start time.Time
	count int
}

// Memory is an in-process fixed-window Limiter.
type Memory struct {
	mu      sync.Mutex
	windows map[string]*window
	max     int
	period  time.Duration
	now     func() time.Time
}

// NewMemory creates an in-process limiter allowing max requests per period.
func NewMemory(max int, period time.Duration) *Memory {
	return &Memory{
		windows: make(map[string]*window),
		max:     max,
		period:  period,
		now:     time.Now,
	}
}

// WithClock overrides the limiter clock for deterministic tests.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

// Allow implements Limiter.
func (m *Memory) Allow(_ context.Context, key string) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	w, ok := m.windows[key]
	if !ok || !now.Before(w.start.Add(m.period)) {
		w = &window{start: now, count: 1}
		m.windows[key] = w
	} else {
		w.count++
	}

	resetAt := w.start.Add(m.period)
	remaining := m.max - w.count
	if remaining < 0 {
		remaining = 0
	}
	if w.count > m.max {
		return Result{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: resetAt.Sub(now),
			ResetAt:    resetAt,
		}, nil
	}
	return Result{Allowed: true, Remaining: remaining, ResetAt: resetAt}, nil
}
