package router

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/casbin/casbin/v3"
	"github.com/shandysiswandi/irnotify/internal/pkg/jwt"
)

type endpointSet map[string]map[string]struct{}

func (s endpointSet) has(method, path string) bool {
	paths, ok := s[method]
	if !ok {
		return false
	}
	_, ok = paths[path]
	return ok
}

// bearerToken reads the Authorization header. Browser EventSource clients
// cannot set headers, so event-stream GETs may pass access_token instead.
func bearerToken(r *http.Request) string {
	p := strings.Fields(r.Header.Get("Authorization"))
	if len(p) == 2 && strings.EqualFold(p[0], "Bearer") {
		return p[1]
	}

	if r.Method == http.MethodGet && strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		return strings.TrimSpace(r.URL.Query().Get("access_token"))
	}

	return ""
}

func middlewareAuthentication(verifier jwt.JWT, public endpointSet) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if public.has(r.Method, matchedRoutePath(r)) {
				next.ServeHTTP(w, r)
				return
			}

			token := bearerToken(r)
			if token == "" {
				writeJSON(w, errorResponse{Message: "Authentication required"}, http.StatusUnauthorized)
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				writeJSON(w, errorResponse{Message: "Invalid or expired token"}, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(jwt.SetAuth(r.Context(), claims)))
		})
	}
}

// middlewareAuthorization checks the caller role against the policy using the
// matched route pattern as object and the HTTP method as action. A nil
// enforcer disables the check.
func middlewareAuthorization(enforcer *casbin.Enforcer, public endpointSet) Middleware {
	return func(next http.Handler) http.Handler {
		if enforcer == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := matchedRoutePath(r)
			if public.has(r.Method, route) {
				next.ServeHTTP(w, r)
				return
			}

			clm := jwt.GetAuth(r.Context())
			if clm == nil {
				writeJSON(w, errorResponse{Message: "Authentication required"}, http.StatusUnauthorized)
				return
			}

			ok, err := enforcer.Enforce(clm.RoleOrDefault(), route, r.Method)
			if err != nil {
				slog.ErrorContext(r.Context(), "failed to enforce policy", "role", clm.RoleOrDefault(), "route", route, "error", err)
				writeJSON(w, errorResponse{Message: "Internal server error"}, http.StatusInternalServerError)
				return
			}
			if !ok {
				writeJSON(w, errorResponse{Message: "Access denied"}, http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
