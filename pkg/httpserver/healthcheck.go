package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agentcoach/billing/pkg/logger"
)

// Check reports whether a dependency is usable.
type Check func(context.Context) error

type probeResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LivenessHandler always answers 200 {"status":"ok"}.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeProbe(w, http.StatusOK, probeResponse{Status: "ok"})
	}
}

// ReadinessHandler runs every check concurrently, each bounded by timeout.
// It answers 200 when all pass and 503 otherwise, listing the result of
// every named check.
func ReadinessHandler(log *slog.Logger, timeout time.Duration, checks map[string]Check) http.HandlerFunc {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		var (
			mu      sync.Mutex
			results = make(map[string]string, len(names))
			failed  bool
			g       errgroup.Group
		)
		for _, name := range names {
			check := checks[name]
			g.Go(func() error {
				status := "ok"
				if err := check(ctx); err != nil {
					log.WarnContext(ctx, "readiness check failed", slog.String("check", name), logger.Error(err))
					status = err.Error()
				}
				mu.Lock()
				results[name] = status
				if status != "ok" {
					failed = true
				}
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()

		if failed {
			writeProbe(w, http.StatusServiceUnavailable, probeResponse{Status: "not_ready", Checks: results})
			return
		}
		writeProbe(w, http.StatusOK, probeResponse{Status: "ready", Checks: results})
	}
}

func writeProbe(w http.ResponseWriter, code int, body probeResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
