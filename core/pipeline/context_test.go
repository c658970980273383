package pipeline_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/conduit/core/pipeline"
)

type ctxKey struct{}

func TestContextValues(t *testing.T) {
	t.Parallel()

	p := pipeline.New()
	p.UseFunc(func(ctx *pipeline.Context, next pipeline.Next) {
		ctx.SetValue(ctxKey{}, "attached")
		next(nil)
	})
	p.UseFunc(func(ctx *pipeline.Context, next pipeline.Next) {
		assert.Equal(t, "attached", ctx.Value(ctxKey{}))
		ctx.Response().WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestContextFallsBackToRequestContext(t *testing.T) {
	t.Parallel()

	type reqKey struct{}

	p := pipeline.New()
	p.UseFunc(func(ctx *pipeline.Context, next pipeline.Next) {
		assert.Equal(t, "from-request", ctx.Value(reqKey{}))
		assert.Nil(t, ctx.Value(ctxKey{}))
		ctx.Response().WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), reqKey{}, "from-request"))
	p.ServeHTTP(httptest.NewRecorder(), req)
}

func TestContextCancellation(t *testing.T) {
	t.Parallel()

	reqCtx, cancel := context.WithCancel(context.Background())

	p := pipeline.New()
	p.UseFunc(func(ctx *pipeline.Context, next pipeline.Next) {
		cancel()
		<-ctx.Done()
		assert.ErrorIs(t, ctx.Err(), context.Canceled)
		ctx.Response().WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(reqCtx)
	p.ServeHTTP(httptest.NewRecorder(), req)
}

func TestSetRequest(t *testing.T) {
	t.Parallel()

	p := pipeline.New()
	p.UseFunc(func(ctx *pipeline.Context, next pipeline.Next) {
		r2 := ctx.Request().Clone(ctx.Request().Context())
		r2.URL.Path = "/rewritten"
		ctx.SetRequest(r2)
		next(nil)
	})
	p.UseFunc(func(ctx *pipeline.Context, next pipeline.Next) {
		assert.Equal(t, "/rewritten", ctx.Request().URL.Path)
		ctx.Response().WriteHeader(http.StatusOK)
	})

	p.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/original", nil))
}
