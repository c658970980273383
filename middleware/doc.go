// Package middleware provides ready-made pipeline units for common HTTP
// concerns: cookie decoding, session management, error rendering, request
// logging, request IDs, body parsing, Prometheus metrics, and rate
// limiting.
//
// Every middleware follows the same pattern: a zero-configuration
// constructor plus a WithConfig variant, where each Config carries an
// optional Skip predicate.
//
// # Typical Stack
//
//	store := session.NewMemoryStore[AppData]()
//
//	p := pipeline.New(
//		pipeline.WithHandlers(
//			middleware.RequestID(),
//			middleware.Logging(),
//			middleware.Cookies(),
//			middleware.Session[AppData](store),
//			appRoutes,
//		),
//	)
//	p.UseError(middleware.ErrorHandler())
//
// Handlers read and mutate the session through the package helpers:
//
//	sess, err := middleware.GetSession[AppData](ctx)
//	sess.Data.Visits++
//	middleware.SetSessionData(ctx, sess.Data)
//
// Mutations are persisted automatically when the response completes. Call
// RegenerateSession after login to defeat session fixation, and
// DestroySession on logout.
package middleware
