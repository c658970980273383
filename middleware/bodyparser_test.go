package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/conduit/core/pipeline"
	"github.com/dmitrymomot/conduit/middleware"
)

func bodyPipeline(t *testing.T, cfg middleware.BodyParserConfig, inspect func(ctx *pipeline.Context)) *pipeline.Pipeline {
	t.Helper()
	p := pipeline.New(pipeline.WithHandlers(
		middleware.BodyParserWithConfig(cfg),
		pipeline.HandlerFunc(func(ctx *pipeline.Context, next pipeline.Next) {
			inspect(ctx)
			ctx.Response().WriteHeader(http.StatusOK)
		}),
	))
	p.UseError(middleware.ErrorHandlerWithConfig(middleware.ErrorHandlerConfig{Logger: discardLogger()}))
	return p
}

func TestBodyParser_JSON(t *testing.T) {
	var body map[string]any
	p := bodyPipeline(t, middleware.BodyParserConfig{}, func(ctx *pipeline.Context) {
		body, _ = middleware.GetBody(ctx)
	})

	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"alice","age":30}`))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	p.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", body["name"])
	assert.Equal(t, float64(30), body["age"])
}

func TestBodyParser_Form(t *testing.T) {
	var body map[string]any
	p := bodyPipeline(t, middleware.BodyParserConfig{}, func(ctx *pipeline.Context) {
		body, _ = middleware.GetBody(ctx)
	})

	r := httptest.NewRequest("POST", "/", strings.NewReader("name=alice&tag=a&tag=b"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	p.ServeHTTP(httptest.NewRecorder(), r)

	assert.Equal(t, "alice", body["name"])
	assert.Equal(t, []string{"a", "b"}, body["tag"])
}

func TestBodyParser_InvalidJSON(t *testing.T) {
	p := bodyPipeline(t, middleware.BodyParserConfig{}, func(ctx *pipeline.Context) {
		t.Fatal("handler must not run for a malformed body")
	})

	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"broken`))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	p.ServeHTTP(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBodyParser_BodyTooLarge(t *testing.T) {
	p := bodyPipeline(t, middleware.BodyParserConfig{MaxBodySize: 8}, func(ctx *pipeline.Context) {
		t.Fatal("handler must not run for an oversized body")
	})

	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"key":"a long enough value"}`))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	p.ServeHTTP(w, r)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestBodyParser_OtherContentTypesPassThrough(t *testing.T) {
	p := bodyPipeline(t, middleware.BodyParserConfig{}, func(ctx *pipeline.Context) {
		_, ok := middleware.GetBody(ctx)
		assert.False(t, ok)

		// The raw body remains readable downstream.
		var dest struct {
			Name string `json:"name"`
		}
		require.NoError(t, middleware.DecodeBody(ctx, &dest))
		assert.Equal(t, "alice", dest.Name)
	})

	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"alice"}`))
	r.Header.Set("Content-Type", "application/octet-stream")
	w := httptest.NewRecorder()
	p.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBodyParser_RereadableAfterParse(t *testing.T) {
	p := bodyPipeline(t, middleware.BodyParserConfig{}, func(ctx *pipeline.Context) {
		var dest struct {
			Name string `json:"name"`
		}
		require.NoError(t, middleware.DecodeBody(ctx, &dest))
		assert.Equal(t, "alice", dest.Name)
	})

	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"alice"}`))
	r.Header.Set("Content-Type", "application/json")
	p.ServeHTTP(httptest.NewRecorder(), r)
}
