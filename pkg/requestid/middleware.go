package requestid

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"
)

const (
	Header            = "X-Request-ID"
	CorrelationHeader = "X-Correlation-ID"

	maxIDLength = 128
)

var validID = regexp.MustCompile(`^[a-zA-Z0-9_.:-]+$`)

// Middleware propagates the caller's X-Request-ID (or X-Correlation-ID) when
// it is well formed and generates a UUID otherwise. The id is echoed in the
// response header.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := incoming(r)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(Header, id)
		next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), id)))
	})
}

func incoming(r *http.Request) string {
	for _, h := range []string{Header, CorrelationHeader} {
		if id := r.Header.Get(h); valid(id) {
			return id
		}
	}
	return ""
}

func valid(id string) bool {
	return id != "" && len(id) <= maxIDLength && validID.MatchString(id)
}
