package pipeline

import (
	"log/slog"
	"time"
)

// Option configures a Pipeline during creation.
type Option func(*Pipeline)

// WithLogger sets the logger used for unhandled errors, double-next
// reports and stalled-chain diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithNotFound sets the terminal handler invoked when the stack completes
// in normal mode without any unit writing a response. This is where a
// router plugs in; the default answers 404.
func WithNotFound(fn func(ctx *Context)) Option {
	return func(p *Pipeline) {
		if fn != nil {
			p.notFound = fn
		}
	}
}

// WithRequestTimeout bounds each exchange with a deadline on its context.
// It is a backstop against middleware that suspends forever on I/O; zero
// disables it.
func WithRequestTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithHandlers appends normal units in the given order.
func WithHandlers(handlers ...Handler) Option {
	return func(p *Pipeline) {
		for _, h := range handlers {
			p.stack = append(p.stack, unit{h: h})
		}
	}
}
