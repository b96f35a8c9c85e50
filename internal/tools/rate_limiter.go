package tools

import (
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter caps tool executions per tool name. A runaway loop that
// keeps re-invoking the same tool hits the limiter before it burns the
// whole iteration budget on one tool.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewRateLimiter creates a limiter allowing perSecond executions per
// tool with the given burst. Returns nil (disabled) for perSecond <= 0.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if perSecond <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(perSecond),
		burst:    burst,
	}
}

// Allow checks whether one more execution of the named tool is allowed.
func (rl *RateLimiter) Allow(name string) error {
	rl.mu.Lock()
	lim, ok := rl.limiters[name]
	if !ok {
		lim = rate.NewLimiter(rl.limit, rl.burst)
		rl.limiters[name] = lim
	}
	rl.mu.Unlock()

	if !lim.Allow() {
		return fmt.Errorf("tool rate limit exceeded for %s", name)
	}
	return nil
}
