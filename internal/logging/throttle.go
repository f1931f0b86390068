package logging

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttle suppresses repeated actions keyed by message so that each distinct
// key fires at most once per window. An explicit instance is passed to call
// sites instead of process-wide state.
type Throttle struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	window   time.Duration
}

// NewThrottle builds a throttle with the given suppression window.
func NewThrottle(window time.Duration) *Throttle {
	return &Throttle{
		limiters: make(map[string]*rate.Limiter),
		window:   window,
	}
}

// Allow reports whether the action for key may run now. The first call for a
// key always passes; subsequent calls pass once per window.
func (t *Throttle) Allow(key string) bool {
	t.mu.Lock()
	lim, ok := t.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Every(t.window), 1)
		t.limiters[key] = lim
	}
	t.mu.Unlock()

	return lim.Allow()
}
