package pipeline

// Next resumes the pipeline after the current unit. Calling it with a nil
// error continues normal traversal; calling it with a non-nil error diverts
// execution to the nearest subsequent error-handling unit. A unit may also
// terminate the exchange by writing the response and never calling Next.
//
// Next must be called at most once per invocation of a unit; a second call
// is reported through the pipeline logger and ignored.
type Next func(err error)

// Handler is a normal pipeline unit. It inspects or mutates the exchange
// and either continues the chain via next, raises an error via next(err),
// or terminates the response itself.
type Handler interface {
	Serve(ctx *Context, next Next)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx *Context, next Next)

// Serve implements Handler.
func (f HandlerFunc) Serve(ctx *Context, next Next) { f(ctx, next) }

// ErrorHandler is an error-handling pipeline unit. It is skipped during
// normal traversal and invoked only once an error is in flight. It may
// render a failure response, or pass the error on via next(err), or
// swallow it and resume normal traversal via next(nil).
type ErrorHandler interface {
	ServeError(err error, ctx *Context, next Next)
}

// ErrorHandlerFunc adapts a function to the ErrorHandler interface.
type ErrorHandlerFunc func(err error, ctx *Context, next Next)

// ServeError implements ErrorHandler.
func (f ErrorHandlerFunc) ServeError(err error, ctx *Context, next Next) { f(err, ctx, next) }
