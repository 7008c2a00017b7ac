package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// API represents the different external APIs we interact with
type API string

const (
	// APIWorldTrading represents the World Trading Data stock API
	APIWorldTrading API = "worldtrading"
)

// Limiter manages rate limits for different APIs.
// APIs without a configured limit are not limited.
type Limiter struct {
	limiters map[API]*rate.Limiter
	mu       sync.RWMutex
}

// New creates a Limiter with no limits configured
func New() *Limiter {
	return &Limiter{
		limiters: make(map[API]*rate.Limiter),
	}
}

// Set limits api to rps requests per second with the given burst.
// A non-positive rps removes the limit.
func (l *Limiter) Set(api API, rps float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if rps <= 0 {
		delete(l.limiters, api)
		return
	}
	if burst < 1 {
		burst = 1
	}
	l.limiters[api] = rate.NewLimiter(rate.Limit(rps), burst)
}

// Wait blocks until the rate limiter permits an event for the given API
// It returns an error if the context is canceled before the event can proceed
func (l *Limiter) Wait(ctx context.Context, api API) error {
	if l == nil {
		return nil
	}

	l.mu.RLock()
	limiter, exists := l.limiters[api]
	l.mu.RUnlock()

	if !exists {
		// If no limiter exists for this API, allow the request without limiting
		return nil
	}

	return limiter.Wait(ctx)
}
