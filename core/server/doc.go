// Package server provides a graceful HTTP server shell for mounting a
// middleware pipeline.
//
// # Basic Usage
//
//	p := pipeline.New(pipeline.WithHandlers(
//		middleware.Logging(),
//		appRoutes,
//	))
//
//	srv := server.New(":8080", server.WithLogger(logger))
//	if err := srv.Start(ctx, p); err != nil {
//		log.Fatal(err)
//	}
//
// # Coordinated Lifecycle
//
// Run returns an errgroup-compatible closure so the server shuts down
// together with the session store's reaper:
//
//	g, ctx := errgroup.WithContext(ctx)
//	g.Go(srv.Run(ctx, p))
//	g.Go(func() error { return store.Start(ctx) })
//	if err := g.Wait(); err != nil {
//		log.Fatal(err)
//	}
package server
