package router

import (
	"net/http"
	"strconv"

	"github.com/shandysiswandi/irnotify/internal/pkg/config"
)

// middlewareMaintenance answers 503 for routes listed in
// app.maintenance.endpoints, for example to pause manual dispatch while a
// provider is being rotated. Clients get Retry-After when one is configured.
func middlewareMaintenance(cfg config.Config) Middleware {
	blocked := make(map[string]struct{})
	var retryAfter string
	if cfg != nil {
		for _, route := range cfg.GetArray("app.maintenance.endpoints") {
			blocked[route] = struct{}{}
		}
		if secs := cfg.GetInt("app.maintenance.retry_after_seconds"); secs > 0 {
			retryAfter = strconv.Itoa(secs)
		}
	}

	return func(next http.Handler) http.Handler {
		if len(blocked) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := blocked[matchedRoutePath(r)]; !ok {
				next.ServeHTTP(w, r)
				return
			}

			if retryAfter != "" {
				w.Header().Set("Retry-After", retryAfter)
			}
			writeJSON(w, errorResponse{Message: "service is under maintenance"}, http.StatusServiceUnavailable)
		})
	}
}
