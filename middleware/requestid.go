package middleware

import (
	"github.com/google/uuid"

	"github.com/dmitrymomot/conduit/core/pipeline"
)

// requestIDContextKey is used as a key for storing the request ID in the
// request context.
type requestIDContextKey struct{}

// RequestIDConfig configures the request ID middleware.
type RequestIDConfig struct {
	// Skip defines a function to skip middleware execution for specific requests
	Skip func(ctx *pipeline.Context) bool
	// Generator creates new request IDs (default: UUID v4)
	Generator func() string
	// HeaderName specifies the header name for the request ID (default: "X-Request-ID")
	HeaderName string
	// UseExisting determines whether to trust an incoming request ID header
	UseExisting bool
}

// RequestID creates a request ID middleware with default configuration.
// It generates a new UUID for each request and exposes it in both the
// context and the response headers.
func RequestID() pipeline.Handler {
	return RequestIDWithConfig(RequestIDConfig{})
}

// RequestIDWithConfig creates a request ID middleware with custom
// configuration.
func RequestIDWithConfig(cfg RequestIDConfig) pipeline.Handler {
	if cfg.HeaderName == "" {
		cfg.HeaderName = "X-Request-ID"
	}
	if cfg.Generator == nil {
		cfg.Generator = func() string {
			return uuid.New().String()
		}
	}

	return pipeline.HandlerFunc(func(ctx *pipeline.Context, next pipeline.Next) {
		if cfg.Skip != nil && cfg.Skip(ctx) {
			next(nil)
			return
		}

		var requestID string
		if cfg.UseExisting {
			requestID = ctx.Request().Header.Get(cfg.HeaderName)
		}
		if requestID == "" {
			requestID = cfg.Generator()
		}

		ctx.SetValue(requestIDContextKey{}, requestID)
		ctx.Response().Header().Set(cfg.HeaderName, requestID)

		next(nil)
	})
}

// GetRequestID retrieves the request ID from the request context.
// Returns the ID and a boolean indicating whether it was found.
func GetRequestID(ctx *pipeline.Context) (string, bool) {
	id, ok := ctx.Value(requestIDContextKey{}).(string)
	return id, ok
}
