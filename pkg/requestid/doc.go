// Package requestid tags each HTTP request with an id that flows through the
// request context into logs and error responses.
//
//	r.Use(requestid.Middleware)
//	log := logger.New(logger.WithContextExtractors(requestid.LogExtractor()))
package requestid
