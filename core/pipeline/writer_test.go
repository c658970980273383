package pipeline_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/conduit/core/pipeline"
)

// writerProbe captures the pipeline's tracking writer for inspection.
func writerProbe(t *testing.T, fn func(w *pipeline.ResponseWriter)) *httptest.ResponseRecorder {
	t.Helper()
	p := pipeline.New()
	p.UseFunc(func(ctx *pipeline.Context, next pipeline.Next) {
		fn(ctx.Response())
	})
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	return rec
}

func TestResponseWriterTracksStatus(t *testing.T) {
	t.Parallel()

	writerProbe(t, func(w *pipeline.ResponseWriter) {
		assert.False(t, w.Written())
		assert.Zero(t, w.Status())

		w.WriteHeader(http.StatusCreated)

		assert.True(t, w.Written())
		assert.Equal(t, http.StatusCreated, w.Status())
	})
}

func TestResponseWriterImplicitOK(t *testing.T) {
	t.Parallel()

	writerProbe(t, func(w *pipeline.ResponseWriter) {
		n, err := w.Write([]byte("hello"))
		require.NoError(t, err)
		assert.Equal(t, 5, n)
		assert.Equal(t, http.StatusOK, w.Status())
		assert.Equal(t, int64(5), w.BytesWritten())
	})
}

func TestResponseWriterIgnoresSecondWriteHeader(t *testing.T) {
	t.Parallel()

	rec := writerProbe(t, func(w *pipeline.ResponseWriter) {
		w.WriteHeader(http.StatusAccepted)
		w.WriteHeader(http.StatusTeapot)
		assert.Equal(t, http.StatusAccepted, w.Status())
	})

	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestBeforeWriteHeaderHooks(t *testing.T) {
	t.Parallel()

	rec := writerProbe(t, func(w *pipeline.ResponseWriter) {
		w.OnBeforeWriteHeader(func() {
			w.Header().Set("X-First", "1")
		})
		w.OnBeforeWriteHeader(func() {
			w.Header().Set("X-Second", "2")
		})
		_, _ = w.Write([]byte("body"))
	})

	assert.Equal(t, "1", rec.Header().Get("X-First"))
	assert.Equal(t, "2", rec.Header().Get("X-Second"))
}

func TestBeforeWriteHeaderHookRunsOnce(t *testing.T) {
	t.Parallel()

	runs := 0
	writerProbe(t, func(w *pipeline.ResponseWriter) {
		w.OnBeforeWriteHeader(func() { runs++ })
		w.WriteHeader(http.StatusOK)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("x"))
	})

	assert.Equal(t, 1, runs)
}

func TestHookRegisteredAfterWriteIsDropped(t *testing.T) {
	t.Parallel()

	runs := 0
	writerProbe(t, func(w *pipeline.ResponseWriter) {
		w.WriteHeader(http.StatusOK)
		w.OnBeforeWriteHeader(func() { runs++ })
		_, _ = w.Write([]byte("x"))
	})

	assert.Zero(t, runs)
}

func TestHookWritingHeadersDoesNotRecurse(t *testing.T) {
	t.Parallel()

	rec := writerProbe(t, func(w *pipeline.ResponseWriter) {
		w.OnBeforeWriteHeader(func() {
			// A misbehaving hook that writes must not loop forever.
			w.Header().Set("X-Hook", "ran")
		})
		w.WriteHeader(http.StatusResetContent)
	})

	assert.Equal(t, "ran", rec.Header().Get("X-Hook"))
	assert.Equal(t, http.StatusResetContent, rec.Code)
}
