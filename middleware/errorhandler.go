package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dmitrymomot/conduit/core/pipeline"
)

// ErrorHandlerConfig configures the error rendering middleware.
type ErrorHandlerConfig struct {
	// Logger receives every handled error (default: slog.Default())
	Logger *slog.Logger
	// DumpExceptions logs the error with its stack trace when available
	// (default: true)
	DumpExceptions *bool
	// ShowStack includes the error message and stack trace in the response
	// body. Leave false in production to avoid leaking internals.
	ShowStack bool
}

// statusCoder lets errors carry their own HTTP status.
type statusCoder interface {
	StatusCode() int
}

// ErrorHandler creates an error rendering middleware with default
// configuration. Mount it at the end of the pipeline, after the units
// whose errors it should absorb.
func ErrorHandler() pipeline.ErrorHandler {
	return ErrorHandlerWithConfig(ErrorHandlerConfig{})
}

// ErrorHandlerWithConfig creates an error rendering middleware with custom
// configuration. It terminates the error chain: the response format is
// negotiated from the Accept header (HTML, JSON, or plain text) and the
// status comes from the error when it implements StatusCode, defaulting to
// 500. If the response has already started, only logging happens.
func ErrorHandlerWithConfig(cfg ErrorHandlerConfig) pipeline.ErrorHandler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	dump := cfg.DumpExceptions == nil || *cfg.DumpExceptions

	return pipeline.ErrorHandlerFunc(func(err error, ctx *pipeline.Context, next pipeline.Next) {
		var stack string
		var pe pipeline.PanicError
		if errors.As(err, &pe) {
			stack = string(pe.Stack())
		}

		if dump {
			attrs := []any{
				slog.String("method", ctx.Request().Method),
				slog.String("path", ctx.Request().URL.Path),
				slog.String("error", err.Error()),
			}
			if stack != "" {
				attrs = append(attrs, slog.String("stack", stack))
			}
			cfg.Logger.ErrorContext(ctx, "request failed", attrs...)
		}

		w := ctx.Response()
		if w.Written() {
			return
		}

		status := http.StatusInternalServerError
		var sc statusCoder
		if errors.As(err, &sc) {
			status = sc.StatusCode()
		}

		detail := ""
		if cfg.ShowStack {
			detail = err.Error()
			if stack != "" {
				detail += "\n" + stack
			}
		}

		accept := ctx.Request().Header.Get("Accept")
		switch {
		case strings.Contains(accept, "text/html"):
			renderHTML(w, status, detail)
		case strings.Contains(accept, "application/json"):
			renderJSON(w, status, detail)
		default:
			renderText(w, status, detail)
		}
	})
}

func renderHTML(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	body := fmt.Sprintf("<html><head><title>%d %s</title></head><body><h1>%s</h1>",
		status, http.StatusText(status), http.StatusText(status))
	if detail != "" {
		body += "<pre>" + html.EscapeString(detail) + "</pre>"
	}
	body += "</body></html>"
	_, _ = w.Write([]byte(body))
}

func renderJSON(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	payload := map[string]string{"error": http.StatusText(status)}
	if detail != "" {
		payload["detail"] = detail
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func renderText(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	body := http.StatusText(status)
	if detail != "" {
		body += "\n" + detail
	}
	_, _ = w.Write([]byte(body))
}
