package services

import (
	"sync"
	"time"
)

// SlidingWindow is an in-process per-key event limiter: at most limit
// events per key within the trailing window. It backs the void rate limit,
// which is best-effort abuse prevention, so no shared state across
// processes is needed.
type SlidingWindow struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	events map[string][]time.Time
}

// NewSlidingWindow constructs a limiter allowing limit events per window.
func NewSlidingWindow(limit int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{
		limit:  limit,
		window: window,
		events: make(map[string][]time.Time),
	}
}

// Allow records an event for key at the given instant and reports whether
// it stays within the limit. Rejected events are not recorded.
func (l *SlidingWindow) Allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-l.window)
	recent := l.events[key][:0]
	for _, t := range l.events[key] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= l.limit {
		l.events[key] = recent
		return false
	}

	l.events[key] = append(recent, now)
	return true
}
