package pipeline_test

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/conduit/core/pipeline"
)

func serve(t *testing.T, p *pipeline.Pipeline) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	p.ServeHTTP(rec, req)
	return rec
}

func TestDispatchOrder(t *testing.T) {
	t.Parallel()

	var order []string
	p := pipeline.New()
	for _, name := range []string{"first", "second", "third"} {
		p.UseFunc(func(ctx *pipeline.Context, next pipeline.Next) {
			order = append(order, name)
			next(nil)
		})
	}
	p.UseFunc(func(ctx *pipeline.Context, next pipeline.Next) {
		order = append(order, "last")
		ctx.Response().WriteHeader(http.StatusNoContent)
	})

	rec := serve(t, p)

	require.Equal(t, []string{"first", "second", "third", "last"}, order)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestTerminationHaltsChain(t *testing.T) {
	t.Parallel()

	var reached bool
	p := pipeline.New()
	p.UseFunc(func(ctx *pipeline.Context, next pipeline.Next) {
		fmt.Fprint(ctx.ResponseWriter(), "done")
	})
	p.UseFunc(func(ctx *pipeline.Context, next pipeline.Next) {
		reached = true
		next(nil)
	})

	rec := serve(t, p)

	assert.False(t, reached, "units after a terminating middleware must not run")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "done", rec.Body.String())
}

func TestErrorRouting(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")

	var (
		skippedNormal bool
		gotErr        error
	)
	p := pipeline.New()
	p.UseFunc(func(ctx *pipeline.Context, next pipeline.Next) {
		next(boom)
	})
	p.UseFunc(func(ctx *pipeline.Context, next pipeline.Next) {
		skippedNormal = true
		next(nil)
	})
	p.UseErrorFunc(func(err error, ctx *pipeline.Context, next pipeline.Next) {
		gotErr = err
		http.Error(ctx.ResponseWriter(), err.Error(), http.StatusBadGateway)
	})

	rec := serve(t, p)

	assert.False(t, skippedNormal, "normal units after the error point must be skipped")
	require.ErrorIs(t, gotErr, boom)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestErrorHandlerSkippedInNormalMode(t *testing.T) {
	t.Parallel()

	var entered bool
	p := pipeline.New()
	p.UseErrorFunc(func(err error, ctx *pipeline.Context, next pipeline.Next) {
		entered = true
		next(err)
	})
	p.UseFunc(func(ctx *pipeline.Context, next pipeline.Next) {
		ctx.Response().WriteHeader(http.StatusOK)
	})

	serve(t, p)

	assert.False(t, entered)
}

func TestErrorHandlerCanResumeNormalMode(t *testing.T) {
	t.Parallel()

	var resumed bool
	p := pipeline.New()
	p.UseFunc(func(ctx *pipeline.Context, next pipeline.Next) {
		next(errors.New("recoverable"))
	})
	p.UseErrorFunc(func(err error, ctx *pipeline.Context, next pipeline.Next) {
		next(nil) // swallow
	})
	p.UseFunc(func(ctx *pipeline.Context, next pipeline.Next) {
		resumed = true
		ctx.Response().WriteHeader(http.StatusOK)
	})

	rec := serve(t, p)

	assert.True(t, resumed)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnhandledErrorAnswers500(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	p := pipeline.New(pipeline.WithLogger(logger))
	p.UseFunc(func(ctx *pipeline.Context, next pipeline.Next) {
		next(errors.New("nobody catches this"))
	})

	rec := serve(t, p)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, buf.String(), "nobody catches this")
}

func TestDefaultNotFound(t *testing.T) {
	t.Parallel()

	p := pipeline.New()
	p.UseFunc(func(ctx *pipeline.Context, next pipeline.Next) {
		next(nil)
	})

	rec := serve(t, p)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNotFoundHook(t *testing.T) {
	t.Parallel()

	p := pipeline.New(pipeline.WithNotFound(func(ctx *pipeline.Context) {
		http.Error(ctx.ResponseWriter(), "teapot", http.StatusTeapot)
	}))

	rec := serve(t, p)

	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestDoubleNextIsNoOp(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	calls := 0
	p := pipeline.New(pipeline.WithLogger(logger))
	p.UseFunc(func(ctx *pipeline.Context, next pipeline.Next) {
		next(nil)
		next(nil) // programming error: reported, not fatal
	})
	p.UseFunc(func(ctx *pipeline.Context, next pipeline.Next) {
		calls++
		ctx.Response().WriteHeader(http.StatusOK)
	})

	rec := serve(t, p)

	assert.Equal(t, 1, calls, "downstream must run exactly once")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, buf.String(), "more than once")
}

func TestStalledMiddleware(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	p := pipeline.New(pipeline.WithLogger(logger))
	p.UseFunc(func(ctx *pipeline.Context, next pipeline.Next) {
		// never calls next, never writes
	})

	rec := serve(t, p)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, buf.String(), "stalled")
}

func TestPanicRoutedToErrorHandler(t *testing.T) {
	t.Parallel()

	var gotErr error
	p := pipeline.New()
	p.UseFunc(func(ctx *pipeline.Context, next pipeline.Next) {
		panic("kaboom")
	})
	p.UseErrorFunc(func(err error, ctx *pipeline.Context, next pipeline.Next) {
		gotErr = err
		http.Error(ctx.ResponseWriter(), "caught", http.StatusInternalServerError)
	})

	rec := serve(t, p)

	require.Error(t, gotErr)
	var pe pipeline.PanicError
	require.ErrorAs(t, gotErr, &pe)
	assert.Equal(t, "kaboom", pe.Value())
	assert.NotEmpty(t, pe.Stack())
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "caught\n", rec.Body.String())
}

func TestPanicWithoutErrorHandler(t *testing.T) {
	t.Parallel()

	p := pipeline.New()
	p.UseFunc(func(ctx *pipeline.Context, next pipeline.Next) {
		panic(errors.New("unprotected"))
	})

	rec := serve(t, p)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestPanicErrorUnwrap(t *testing.T) {
	t.Parallel()

	underlying := errors.New("root cause")

	var gotErr error
	p := pipeline.New()
	p.UseFunc(func(ctx *pipeline.Context, next pipeline.Next) {
		panic(underlying)
	})
	p.UseErrorFunc(func(err error, ctx *pipeline.Context, next pipeline.Next) {
		gotErr = err
		ctx.Response().WriteHeader(http.StatusOK)
	})

	serve(t, p)

	require.ErrorIs(t, gotErr, underlying)
}

func TestUseAfterServingPanics(t *testing.T) {
	t.Parallel()

	p := pipeline.New()
	p.UseFunc(func(ctx *pipeline.Context, next pipeline.Next) {
		ctx.Response().WriteHeader(http.StatusOK)
	})
	serve(t, p)

	assert.Panics(t, func() {
		p.UseFunc(func(ctx *pipeline.Context, next pipeline.Next) { next(nil) })
	})
}

func TestRequestTimeoutSetsDeadline(t *testing.T) {
	t.Parallel()

	var hasDeadline bool
	p := pipeline.New(pipeline.WithRequestTimeout(50 * time.Millisecond))
	p.UseFunc(func(ctx *pipeline.Context, next pipeline.Next) {
		_, hasDeadline = ctx.Deadline()
		ctx.Response().WriteHeader(http.StatusOK)
	})

	serve(t, p)

	assert.True(t, hasDeadline)
}

func TestConcurrentRequestsAreIndependent(t *testing.T) {
	t.Parallel()

	p := pipeline.New()
	p.UseFunc(func(ctx *pipeline.Context, next pipeline.Next) {
		ctx.SetValue("marker", ctx.Request().URL.Path)
		next(nil)
	})
	p.UseFunc(func(ctx *pipeline.Context, next pipeline.Next) {
		fmt.Fprint(ctx.ResponseWriter(), ctx.Value("marker"))
	})

	const n = 32
	var wg sync.WaitGroup
	results := make([]string, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/req/%d", i), nil)
			p.ServeHTTP(rec, req)
			results[i] = rec.Body.String()
		}()
	}
	wg.Wait()

	for i := range n {
		assert.Equal(t, fmt.Sprintf("/req/%d", i), results[i])
	}
}

func TestWithHandlersOption(t *testing.T) {
	t.Parallel()

	p := pipeline.New(pipeline.WithHandlers(
		pipeline.HandlerFunc(func(ctx *pipeline.Context, next pipeline.Next) { next(nil) }),
		pipeline.HandlerFunc(func(ctx *pipeline.Context, next pipeline.Next) {
			ctx.Response().WriteHeader(http.StatusAccepted)
		}),
	))

	require.Equal(t, 2, p.Len())
	rec := serve(t, p)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}
