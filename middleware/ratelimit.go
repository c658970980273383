package middleware

import (
	"net"
	"sync"

	"go.uber.org/ratelimit"

	"github.com/dmitrymomot/conduit/core/pipeline"
)

// RateLimitConfig configures the request throttling middleware.
type RateLimitConfig struct {
	// Skip defines a function to skip middleware execution for specific requests
	Skip func(ctx *pipeline.Context) bool
	// RPS is the sustained request rate allowed per client key (default: 100)
	RPS int
	// KeyFunc derives the throttling key from the request
	// (default: client IP without port)
	KeyFunc func(ctx *pipeline.Context) string
}

// RateLimit creates a request throttling middleware with default
// configuration. It smooths each client to the configured rate using a
// leaky bucket: excess requests are delayed, not rejected.
func RateLimit(rps int) pipeline.Handler {
	return RateLimitWithConfig(RateLimitConfig{RPS: rps})
}

// RateLimitWithConfig creates a request throttling middleware with custom
// configuration.
func RateLimitWithConfig(cfg RateLimitConfig) pipeline.Handler {
	if cfg.RPS <= 0 {
		cfg.RPS = 100
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = clientIP
	}

	var (
		limiters sync.Map // map[string]ratelimit.Limiter
		mu       sync.Mutex
	)

	limiterFor := func(key string) ratelimit.Limiter {
		if l, ok := limiters.Load(key); ok {
			return l.(ratelimit.Limiter)
		}
		mu.Lock()
		defer mu.Unlock()
		if l, ok := limiters.Load(key); ok {
			return l.(ratelimit.Limiter)
		}
		l := ratelimit.New(cfg.RPS)
		limiters.Store(key, l)
		return l
	}

	return pipeline.HandlerFunc(func(ctx *pipeline.Context, next pipeline.Next) {
		if cfg.Skip != nil && cfg.Skip(ctx) {
			next(nil)
			return
		}

		limiterFor(cfg.KeyFunc(ctx)).Take()
		next(nil)
	})
}

func clientIP(ctx *pipeline.Context) string {
	host, _, err := net.SplitHostPort(ctx.Request().RemoteAddr)
	if err != nil {
		return ctx.Request().RemoteAddr
	}
	return host
}
