// Package httpserver runs an http.Handler with sane timeouts and graceful
// shutdown, plus liveness and readiness handlers for orchestrators.
//
// Run binds the listener first, so address errors are returned
// synchronously, then serves until the context is cancelled, SIGINT or
// SIGTERM arrives, or Shutdown is called:
//
//	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, router); err != nil {
//	    return err
//	}
//
// ReadinessHandler runs named checks concurrently and reports each result:
//
//	r.Get("/readyz", httpserver.ReadinessHandler(log, 3*time.Second, map[string]httpserver.Check{
//	    "store": store.Ping,
//	    "redis": redis.Healthcheck(client),
//	}))
package httpserver
