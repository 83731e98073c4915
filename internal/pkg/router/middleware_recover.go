package router

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/shandysiswandi/irnotify/internal/pkg/stacktrace"
)

func middlewareRecoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}
			//nolint:err113,errorlint // sentinel must be re-raised as is
			if rvr == http.ErrAbortHandler {
				panic(rvr)
			}

			raw := debug.Stack()
			var stack any = string(raw)
			if paths := stacktrace.InternalPaths(raw); len(paths) > 0 {
				stack = paths
			}
			slog.ErrorContext(r.Context(), "panic recovered", "panic", rvr, "route", matchedRoutePath(r), "stack", stack)

			// An event stream has already sent its headers; the client reconnects.
			if strings.HasPrefix(w.Header().Get("Content-Type"), "text/event-stream") {
				return
			}
			writeJSON(w, errorResponse{Message: "Internal server error"}, http.StatusInternalServerError)
		}()

		next.ServeHTTP(w, r)
	})
}
