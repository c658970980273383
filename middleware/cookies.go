package middleware

import (
	"io"
	"log/slog"

	"github.com/dmitrymomot/conduit/core/cookie"
	"github.com/dmitrymomot/conduit/core/pipeline"
)

// cookiesContextKey is used as a key for storing decoded cookies in the
// request context.
type cookiesContextKey struct{}

// CookiesConfig configures the cookie decoding middleware.
type CookiesConfig struct {
	// Skip defines a function to skip middleware execution for specific requests
	Skip func(ctx *pipeline.Context) bool
	// Logger reports malformed Cookie headers (default: discard)
	Logger *slog.Logger
}

// Cookies creates a cookie decoding middleware with default configuration.
// It parses the Cookie header once per request and attaches the name→value
// map to the context for downstream units.
func Cookies() pipeline.Handler {
	return CookiesWithConfig(CookiesConfig{})
}

// CookiesWithConfig creates a cookie decoding middleware with custom
// configuration. A malformed Cookie header is logged and replaced with an
// empty map; the chain continues rather than failing the request.
func CookiesWithConfig(cfg CookiesConfig) pipeline.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return pipeline.HandlerFunc(func(ctx *pipeline.Context, next pipeline.Next) {
		if cfg.Skip != nil && cfg.Skip(ctx) {
			next(nil)
			return
		}

		cookies, err := cookie.Parse(ctx.Request().Header.Get("Cookie"))
		if err != nil {
			cfg.Logger.WarnContext(ctx, "malformed cookie header",
				slog.String("error", err.Error()))
			cookies = map[string]string{}
		}

		ctx.SetValue(cookiesContextKey{}, cookies)
		next(nil)
	})
}

// CookiesFromContext retrieves the decoded cookie map attached by the
// Cookies middleware. The second return is false when the middleware did
// not run for this request.
func CookiesFromContext(ctx *pipeline.Context) (map[string]string, bool) {
	cookies, ok := ctx.Value(cookiesContextKey{}).(map[string]string)
	return cookies, ok
}
