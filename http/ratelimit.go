package http

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Backoff bounds applied after a throttled response.
const (
	DefaultInitialBackoff = 1 * time.Second
	DefaultMaxBackoff     = 60 * time.Second
)

// RateLimiterConfig defines per-host request rates.
type RateLimiterConfig struct {
	// RPS is the request rate for hosts without an entry in HostRPS.
	// Zero or less disables limiting.
	RPS float64
	// HostRPS overrides RPS for specific hosts. A value of zero or less
	// disables limiting for that host.
	HostRPS map[string]float64
	// InitialBackoff is the pause imposed on a host after its first throttled response.
	InitialBackoff time.Duration
	// MaxBackoff caps the doubling backoff.
	MaxBackoff time.Duration
}

// DefaultRateLimiterConfig returns conservative rates for YouTube hosts.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		RPS: 2.0,
		HostRPS: map[string]float64{
			"www.googleapis.com":     5.0,
			"youtube.googleapis.com": 5.0,
		},
		InitialBackoff: DefaultInitialBackoff,
		MaxBackoff:     DefaultMaxBackoff,
	}
}

type hostBackoff struct {
	until   time.Time
	current time.Duration
}

// RateLimiter throttles requests per host with a token bucket and pauses a
// host entirely after the server throttles it.
type RateLimiter struct {
	mu       sync.Mutex
	config   RateLimiterConfig
	limiters map[string]*rate.Limiter
	backoff  map[string]*hostBackoff
	now      func() time.Time
}

// NewRateLimiter creates a rate limiter with the given configuration.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = DefaultInitialBackoff
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = DefaultMaxBackoff
	}
	return &RateLimiter{
		config:   cfg,
		limiters: make(map[string]*rate.Limiter),
		backoff:  make(map[string]*hostBackoff),
		now:      time.Now,
	}
}

// Wait blocks until a request to host may be sent: first until any backoff
// on the host expires, then until the token bucket allows it.
func (rl *RateLimiter) Wait(ctx context.Context, host string) error {
	if rl == nil {
		return nil
	}
	if d := rl.Backoff(host); d > 0 {
		timer := time.NewTimer(d)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
	limiter := rl.limiter(host)
	if limiter == nil {
		return nil
	}
	return limiter.Wait(ctx)
}

func (rl *RateLimiter) limiter(host string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if l, ok := rl.limiters[host]; ok {
		return l
	}
	rps := rl.config.RPS
	if v, ok := rl.config.HostRPS[host]; ok {
		rps = v
	}
	if rps <= 0 {
		rl.limiters[host] = nil
		return nil
	}
	l := rate.NewLimiter(rate.Limit(rps), 1)
	rl.limiters[host] = l
	return l
}

// RecordThrottle registers a throttled response from host and returns the
// pause now in effect. The pause doubles on consecutive throttles up to
// MaxBackoff; a longer server Retry-After wins.
func (rl *RateLimiter) RecordThrottle(host string, retryAfter time.Duration) time.Duration {
	if rl == nil {
		return retryAfter
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.backoff[host]
	if !ok {
		b = &hostBackoff{current: rl.config.InitialBackoff}
		rl.backoff[host] = b
	} else {
		b.current *= 2
		if b.current > rl.config.MaxBackoff {
			b.current = rl.config.MaxBackoff
		}
	}
	wait := b.current
	if retryAfter > wait {
		wait = retryAfter
	}
	b.until = rl.now().Add(wait)
	return wait
}

// RecordSuccess clears the backoff state of host.
func (rl *RateLimiter) RecordSuccess(host string) {
	if rl == nil {
		return
	}
	rl.mu.Lock()
	delete(rl.backoff, host)
	rl.mu.Unlock()
}

// Backoff returns how long requests to host must still wait, or 0.
func (rl *RateLimiter) Backoff(host string) time.Duration {
	if rl == nil {
		return 0
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.backoff[host]
	if !ok {
		return 0
	}
	if d := b.until.Sub(rl.now()); d > 0 {
		return d
	}
	return 0
}
