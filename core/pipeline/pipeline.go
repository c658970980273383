package pipeline

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"sync/atomic"
	"time"
)

// unit is one entry in the ordered stack. Exactly one of h and eh is set:
// the capability is fixed by construction, never inferred at dispatch time.
type unit struct {
	h  Handler
	eh ErrorHandler
}

// Pipeline executes an ordered middleware stack per request with
// short-circuit and error-routing semantics. It implements http.Handler:
// wire it to a server and every inbound exchange is dispatched through the
// stack independently.
type Pipeline struct {
	stack    []unit
	logger   *slog.Logger
	notFound func(*Context)
	timeout  time.Duration
	serving  atomic.Bool
}

// New creates an empty pipeline. Add units with Use and UseError in the
// order they should run; the order is never rearranged.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // No-op logger by default
		notFound: func(ctx *Context) {
			http.NotFound(ctx.ResponseWriter(), ctx.Request())
		},
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Use appends a normal unit to the stack.
// It panics once the pipeline has started serving.
func (p *Pipeline) Use(h Handler) *Pipeline {
	if p.serving.Load() {
		panic(ErrFrozen)
	}
	p.stack = append(p.stack, unit{h: h})
	return p
}

// UseFunc appends a normal unit given as a function.
func (p *Pipeline) UseFunc(fn func(ctx *Context, next Next)) *Pipeline {
	return p.Use(HandlerFunc(fn))
}

// UseError appends an error-handling unit to the stack. Error handlers are
// entered only once an error is in flight; their position in the stack
// decides which errors they see.
func (p *Pipeline) UseError(h ErrorHandler) *Pipeline {
	if p.serving.Load() {
		panic(ErrFrozen)
	}
	p.stack = append(p.stack, unit{eh: h})
	return p
}

// UseErrorFunc appends an error-handling unit given as a function.
func (p *Pipeline) UseErrorFunc(fn func(err error, ctx *Context, next Next)) *Pipeline {
	return p.UseError(ErrorHandlerFunc(fn))
}

// Len returns the number of units in the stack.
func (p *Pipeline) Len() int {
	return len(p.stack)
}

// ServeHTTP dispatches one exchange through the stack.
func (p *Pipeline) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.serving.Store(true)

	if p.timeout > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), p.timeout)
		defer cancel()
		r = r.WithContext(ctx)
	}

	ww := newResponseWriter(w)
	ctx := newContext(ww, r)

	// Backstop for panics escaping the dispatch itself (finalizers,
	// before-write hooks). Unit panics are recovered per unit and routed
	// into the error chain.
	defer func() {
		if v := recover(); v != nil {
			pe := &panicError{value: v, stack: debug.Stack()}
			if ww.Written() {
				p.logger.Error("panic after response written",
					"error", pe.Error(),
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(pe.stack),
				)
				return
			}
			p.fail(ctx, pe)
		}
	}()

	p.dispatch(ctx, 0, nil)
}

// dispatch walks the stack starting at idx. inErr == nil means normal
// traversal (error handlers are skipped); non-nil means error mode (normal
// units are skipped). Within one exchange the walk is strictly sequential:
// unit n+1 starts only when unit n invokes next.
func (p *Pipeline) dispatch(ctx *Context, idx int, inErr error) {
	for i := idx; i < len(p.stack); i++ {
		u := p.stack[i]
		if inErr == nil && u.h == nil {
			continue
		}
		if inErr != nil && u.eh == nil {
			continue
		}

		var called atomic.Bool
		next := Next(func(err error) {
			if !called.CompareAndSwap(false, true) {
				p.logger.Error("next invoked more than once by the same middleware",
					"method", ctx.Request().Method,
					"path", ctx.Request().URL.Path,
				)
				return
			}
			p.dispatch(ctx, i+1, err)
		})

		p.invoke(u, inErr, ctx, next, &called, i)

		// The unit neither continued the chain nor produced a response:
		// nothing downstream will ever run, so answer the request instead
		// of hanging it.
		if !called.Load() && !ctx.Response().Written() {
			p.logger.Error("pipeline stalled",
				"unit", i,
				"method", ctx.Request().Method,
				"path", ctx.Request().URL.Path,
			)
			p.fail(ctx, ErrStalled)
		}
		return
	}

	// Stack exhausted.
	if inErr != nil {
		p.fail(ctx, inErr)
		return
	}
	if !ctx.Response().Written() {
		p.notFound(ctx)
	}
}

// invoke runs a single unit, converting a panic into an error diverted to
// the remaining error handlers. The deferred recover of the innermost
// frame fires first, so the error chain is entered right after the unit
// that panicked.
func (p *Pipeline) invoke(u unit, inErr error, ctx *Context, next Next, called *atomic.Bool, i int) {
	defer func() {
		v := recover()
		if v == nil {
			return
		}
		pe := &panicError{value: v, stack: debug.Stack()}
		if called.CompareAndSwap(false, true) {
			p.dispatch(ctx, i+1, pe)
			return
		}
		p.logger.Error("panic after next was already invoked",
			"error", pe.Error(),
			"stack", string(pe.stack),
		)
	}()

	if inErr != nil {
		u.eh.ServeError(inErr, ctx, next)
		return
	}
	u.h.Serve(ctx, next)
}

// fail reports an error that ran past the last error handler and, when the
// response is still open, answers with a generic failure. The listening
// process keeps serving subsequent requests.
func (p *Pipeline) fail(ctx *Context, err error) {
	p.logger.Error("unhandled pipeline error",
		"error", err,
		"method", ctx.Request().Method,
		"path", ctx.Request().URL.Path,
	)

	if ctx.Response().Written() {
		return
	}
	http.Error(ctx.ResponseWriter(), http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
