// Package pipeline implements an ordered middleware dispatcher for HTTP
// servers. Applications are composed from a stack of units that run in
// sequence over each request/response exchange; every unit decides whether
// to continue the chain, terminate the response, or escalate an error.
//
// # Units
//
// There are two unit shapes, fixed at construction:
//
//	// normal traversal
//	p.UseFunc(func(ctx *pipeline.Context, next pipeline.Next) {
//		// inspect or mutate the exchange, then either:
//		next(nil)           // continue
//		next(err)           // divert to the nearest error handler below
//		// ...or write the response and return without calling next
//	})
//
//	// entered only while an error is in flight
//	p.UseErrorFunc(func(err error, ctx *pipeline.Context, next pipeline.Next) {
//		http.Error(ctx.ResponseWriter(), err.Error(), 500)
//	})
//
// During normal traversal error handlers are skipped; once a unit raises
// an error, only subsequent error handlers are considered and normal units
// after that point never run. An error that survives the whole stack is
// logged and answered with a generic 500, and the process keeps serving.
//
// # Exchange lifetime
//
// Each request gets its own Context, owned by the dispatcher. Concurrent
// requests interleave freely, but within one exchange the chain is
// strictly sequential: unit n+1 starts only when unit n calls next.
// Calling next twice is reported and ignored; a unit that returns without
// calling next and without writing anything is answered with a 500 instead
// of hanging the client.
//
// Panics inside a unit are recovered, wrapped in a PanicError carrying the
// stack trace, and routed into the error chain after the panicking unit.
//
// # Serving
//
// Pipeline implements http.Handler. The stack is immutable once the first
// request arrives:
//
//	p := pipeline.New(pipeline.WithLogger(logger))
//	p.Use(middleware.Cookies())
//	p.Use(middleware.Session[Data](store))
//	p.UseError(middleware.ErrorHandler())
//	http.ListenAndServe(":8080", p)
package pipeline
