package subscriptions

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/agentcoach/billing/handler"
	"github.com/agentcoach/billing/pkg/httpserver"
	"github.com/agentcoach/billing/pkg/metrics"
	"github.com/agentcoach/billing/pkg/requestid"
)

type Mountable interface {
	Handle() http.Handler
}

// RouterOptions configures the service router. Only API is required.
type RouterOptions struct {
	API            Mountable
	Logger         *slog.Logger
	Metrics        *metrics.Collector
	Readiness      map[string]httpserver.Check
	HealthTimeout  time.Duration
	AllowedOrigins []string
}

// Router mounts the billing API at the root next to /healthz, /readyz and,
// when a collector is given, /metrics.
//
//	r := subscriptions.Router(subscriptions.RouterOptions{
//	    API:       subscriptions.NewHandlers(svc, cfg, log),
//	    Metrics:   collector,
//	    Readiness: map[string]httpserver.Check{"store": store.Ping},
//	})
func Router(opts RouterOptions) chi.Router {
	if opts.API == nil {
		panic("subscriptions: API handler is required")
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	errs := handler.JSONErrorHandler(log, classify)

	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(middleware.Recoverer)
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", requestid.Header},
		ExposedHeaders:   []string{requestid.Header},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		errs(w, r, handler.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		errs(w, r, handler.ErrMethodNotAllowed)
	})

	r.Get("/healthz", httpserver.LivenessHandler())
	r.Get("/readyz", httpserver.ReadinessHandler(log, opts.HealthTimeout, opts.Readiness))
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	r.Mount("/", opts.API.Handle())
	return r
}
