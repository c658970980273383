package pipeline

import (
	"net/http"
	"time"
)

// Context is the mutable bag associated with one in-flight HTTP exchange.
// It implements context.Context by delegating to the request's context and
// carries request-scoped values attached by middleware (cookies, session,
// decoded body). A Context is owned by the dispatcher for the duration of
// the exchange and must not be retained or shared across exchanges.
type Context struct {
	w      *ResponseWriter
	r      *http.Request
	values map[any]any
}

func newContext(w *ResponseWriter, r *http.Request) *Context {
	return &Context{
		w: w,
		r: r,
		// values map is lazily initialized in SetValue
	}
}

// Deadline returns the deadline of the underlying request context.
func (c *Context) Deadline() (deadline time.Time, ok bool) {
	return c.r.Context().Deadline()
}

// Done returns the done channel of the underlying request context. It is
// closed when the client disconnects or the request deadline passes.
func (c *Context) Done() <-chan struct{} {
	return c.r.Context().Done()
}

// Err returns a non-nil error once Done is closed.
func (c *Context) Err() error {
	return c.r.Context().Err()
}

// Value returns a value attached via SetValue, falling back to the
// request's context for unknown keys.
func (c *Context) Value(key any) any {
	if val, ok := c.values[key]; ok {
		return val
	}
	return c.r.Context().Value(key)
}

// SetValue attaches a request-scoped value to the exchange.
func (c *Context) SetValue(key, val any) {
	if c.values == nil {
		c.values = make(map[any]any)
	}
	c.values[key] = val
}

// Request returns the HTTP request for this exchange.
func (c *Context) Request() *http.Request {
	return c.r
}

// SetRequest replaces the request, e.g. after deriving a new context.
func (c *Context) SetRequest(r *http.Request) {
	if r != nil {
		c.r = r
	}
}

// ResponseWriter returns the response writer as the standard interface.
func (c *Context) ResponseWriter() http.ResponseWriter {
	return c.w
}

// Response returns the pipeline's tracking writer, exposing Written,
// Status and the before-write-header hooks.
func (c *Context) Response() *ResponseWriter {
	return c.w
}
