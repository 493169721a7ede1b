package ingest

import (
	"sync"

	"golang.org/x/time/rate"
)

// DeviceLimiter keeps one token bucket per device so a single runaway sender
// cannot monopolize the ingestion edge.
type DeviceLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

// NewDeviceLimiter returns a limiter allowing r events/second with the given
// burst per device.
func NewDeviceLimiter(r float64, burst int) *DeviceLimiter {
	return &DeviceLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(r),
		burst:    burst,
	}
}

// Allow reports whether the device may submit another reading now.
func (l *DeviceLimiter) Allow(deviceID string) bool {
	l.mu.Lock()
	limiter, ok := l.limiters[deviceID]
	if !ok {
		limiter = rate.NewLimiter(l.rate, l.burst)
		l.limiters[deviceID] = limiter
	}
	l.mu.Unlock()
	return limiter.Allow()
}
