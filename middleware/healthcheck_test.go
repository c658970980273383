package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/conduit/core/pipeline"
	"github.com/dmitrymomot/conduit/middleware"
)

func TestHealthcheck(t *testing.T) {
	app := pipeline.HandlerFunc(func(ctx *pipeline.Context, next pipeline.Next) {
		_, _ = ctx.Response().Write([]byte("app"))
	})

	t.Run("liveness", func(t *testing.T) {
		p := pipeline.New(pipeline.WithHandlers(middleware.Healthcheck(), app))

		w := httptest.NewRecorder()
		p.ServeHTTP(w, httptest.NewRequest("GET", "/healthz", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ALIVE", w.Body.String())
	})

	t.Run("other paths pass through", func(t *testing.T) {
		p := pipeline.New(pipeline.WithHandlers(middleware.Healthcheck(), app))

		w := httptest.NewRecorder()
		p.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
		assert.Equal(t, "app", w.Body.String())
	})

	t.Run("readiness all checks pass", func(t *testing.T) {
		p := pipeline.New(pipeline.WithHandlers(
			middleware.HealthcheckWithConfig(middleware.HealthcheckConfig{
				Checks: []func(context.Context) error{
					func(context.Context) error { return nil },
					func(context.Context) error { return nil },
				},
				Logger: discardLogger(),
			}),
			app,
		))

		w := httptest.NewRecorder()
		p.ServeHTTP(w, httptest.NewRequest("GET", "/healthz", nil))
		assert.Equal(t, "READY", w.Body.String())
	})

	t.Run("readiness failing check answers 503", func(t *testing.T) {
		p := pipeline.New(pipeline.WithHandlers(
			middleware.HealthcheckWithConfig(middleware.HealthcheckConfig{
				Checks: []func(context.Context) error{
					func(context.Context) error { return errors.New("db down") },
				},
				Logger: discardLogger(),
			}),
			app,
		))

		w := httptest.NewRecorder()
		p.ServeHTTP(w, httptest.NewRequest("GET", "/healthz", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}
