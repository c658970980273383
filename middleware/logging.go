package middleware

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/conduit/core/pipeline"
)

// LoggingConfig configures the request logging middleware.
type LoggingConfig struct {
	// Skip defines a function to skip middleware execution for specific requests
	Skip func(ctx *pipeline.Context) bool
	// Logger is the slog logger to use (default: slog.Default())
	Logger *slog.Logger
	// LogLevel for request logging (default: slog.LevelInfo)
	LogLevel slog.Level
	// SlowRequestThreshold logs slow requests at warning level (default: 5s)
	SlowRequestThreshold time.Duration
}

// Logging creates a request logging middleware with default configuration.
// It logs one line per completed request with method, path, status, size,
// and duration.
func Logging() pipeline.Handler {
	return LoggingWithConfig(LoggingConfig{})
}

// LoggingWithLogger creates a logging middleware with a custom logger.
func LoggingWithLogger(log *slog.Logger) pipeline.Handler {
	return LoggingWithConfig(LoggingConfig{Logger: log})
}

// LoggingWithConfig creates a request logging middleware with custom
// configuration.
func LoggingWithConfig(cfg LoggingConfig) pipeline.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.SlowRequestThreshold <= 0 {
		cfg.SlowRequestThreshold = 5 * time.Second
	}

	return pipeline.HandlerFunc(func(ctx *pipeline.Context, next pipeline.Next) {
		if cfg.Skip != nil && cfg.Skip(ctx) {
			next(nil)
			return
		}

		start := time.Now()
		next(nil)
		elapsed := time.Since(start)

		attrs := []slog.Attr{
			slog.String("method", ctx.Request().Method),
			slog.String("path", ctx.Request().URL.Path),
			slog.Int("status", ctx.Response().Status()),
			slog.Int64("bytes", ctx.Response().BytesWritten()),
			slog.Duration("duration", elapsed),
		}
		if id, ok := GetRequestID(ctx); ok {
			attrs = append(attrs, slog.String("request_id", id))
		}

		level := cfg.LogLevel
		if elapsed >= cfg.SlowRequestThreshold {
			level = slog.LevelWarn
			attrs = append(attrs, slog.Bool("slow", true))
		}

		cfg.Logger.LogAttrs(ctx, level, "request completed", attrs...)
	})
}
