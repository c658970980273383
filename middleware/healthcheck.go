package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/conduit/core/pipeline"
)

// HealthcheckConfig configures the health probe middleware.
type HealthcheckConfig struct {
	// Path answered by the probe (default: "/healthz")
	Path string
	// Logger reports failed readiness checks (default: slog.Default())
	Logger *slog.Logger
	// Checks are the readiness dependencies. With no checks the probe is a
	// plain liveness endpoint.
	Checks []func(ctx context.Context) error
}

// Healthcheck creates a liveness probe middleware answering on /healthz.
// Requests to any other path pass through untouched.
func Healthcheck() pipeline.Handler {
	return HealthcheckWithConfig(HealthcheckConfig{})
}

// HealthcheckWithConfig creates a health probe middleware with custom
// configuration. With dependency checks configured it acts as a readiness
// probe: all checks must pass or the probe answers 503.
func HealthcheckWithConfig(cfg HealthcheckConfig) pipeline.Handler {
	if cfg.Path == "" {
		cfg.Path = "/healthz"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return pipeline.HandlerFunc(func(ctx *pipeline.Context, next pipeline.Next) {
		if ctx.Request().URL.Path != cfg.Path {
			next(nil)
			return
		}

		w := ctx.Response()
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		if len(cfg.Checks) == 0 {
			_, _ = w.Write([]byte("ALIVE"))
			return
		}

		for _, check := range cfg.Checks {
			if err := check(ctx); err != nil {
				cfg.Logger.ErrorContext(ctx, "readiness check failed",
					slog.String("error", err.Error()))
				http.Error(w, http.StatusText(http.StatusServiceUnavailable),
					http.StatusServiceUnavailable)
				return
			}
		}
		_, _ = w.Write([]byte("READY"))
	})
}
