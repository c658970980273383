package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/dmitrymomot/conduit/core/pipeline"
)

// bodyContextKey is used as a key for storing the decoded request body in
// the request context.
type bodyContextKey struct{}

// ErrBodyTooLarge is raised when the request body exceeds the configured
// limit. It renders as 413.
var ErrBodyTooLarge = &httpError{status: http.StatusRequestEntityTooLarge, msg: "request body too large"}

// httpError is an error with an attached HTTP status.
type httpError struct {
	status int
	msg    string
}

func (e *httpError) Error() string   { return e.msg }
func (e *httpError) StatusCode() int { return e.status }

// BodyParserConfig configures the body parsing middleware.
type BodyParserConfig struct {
	// Skip defines a function to skip middleware execution for specific requests
	Skip func(ctx *pipeline.Context) bool
	// MaxBodySize limits how many bytes are read (default: 1MB)
	MaxBodySize int64
}

// BodyParser creates a body parsing middleware with default configuration.
// It decodes JSON and urlencoded form bodies once and attaches the result
// to the context; other content types pass through untouched.
func BodyParser() pipeline.Handler {
	return BodyParserWithConfig(BodyParserConfig{})
}

// BodyParserWithConfig creates a body parsing middleware with custom
// configuration. A malformed body raises a 400 into the error chain.
func BodyParserWithConfig(cfg BodyParserConfig) pipeline.Handler {
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = 1 << 20
	}

	return pipeline.HandlerFunc(func(ctx *pipeline.Context, next pipeline.Next) {
		if cfg.Skip != nil && cfg.Skip(ctx) {
			next(nil)
			return
		}

		r := ctx.Request()
		if r.Body == nil || r.ContentLength == 0 {
			next(nil)
			return
		}

		mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil {
			next(nil)
			return
		}

		switch mediaType {
		case "application/json":
			raw, err := readBody(r, cfg.MaxBodySize)
			if err != nil {
				next(err)
				return
			}
			var body map[string]any
			if err := json.Unmarshal(raw, &body); err != nil {
				next(&httpError{status: http.StatusBadRequest, msg: fmt.Sprintf("invalid json body: %v", err)})
				return
			}
			ctx.SetValue(bodyContextKey{}, body)

		case "application/x-www-form-urlencoded":
			raw, err := readBody(r, cfg.MaxBodySize)
			if err != nil {
				next(err)
				return
			}
			values, err := url.ParseQuery(string(raw))
			if err != nil {
				next(&httpError{status: http.StatusBadRequest, msg: "invalid form body"})
				return
			}
			body := make(map[string]any, len(values))
			for k, v := range values {
				if len(v) == 1 {
					body[k] = v[0]
				} else {
					body[k] = v
				}
			}
			ctx.SetValue(bodyContextKey{}, body)
		}

		next(nil)
	})
}

// readBody drains the request body up to limit bytes and replaces it with
// an already-read stub so downstream units are not surprised by an empty
// reader.
func readBody(r *http.Request, limit int64) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return nil, err
	}
	_ = r.Body.Close()
	if int64(len(raw)) > limit {
		return nil, ErrBodyTooLarge
	}
	r.Body = io.NopCloser(strings.NewReader(string(raw)))
	return raw, nil
}

// GetBody retrieves the decoded request body attached by the BodyParser
// middleware.
func GetBody(ctx *pipeline.Context) (map[string]any, bool) {
	body, ok := ctx.Value(bodyContextKey{}).(map[string]any)
	return body, ok
}

// DecodeBody re-decodes a JSON request body into a typed destination.
// Unlike GetBody it does not require the BodyParser middleware.
func DecodeBody(ctx *pipeline.Context, dest any) error {
	r := ctx.Request()
	if r.Body == nil {
		return errors.New("middleware: empty request body")
	}
	return json.NewDecoder(r.Body).Decode(dest)
}
