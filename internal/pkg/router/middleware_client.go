package router

import (
	"net"
	"net/http"
	"strings"

	"github.com/shandysiswandi/irnotify/internal/pkg/instrument"
	"github.com/shandysiswandi/irnotify/internal/pkg/uid"
)

const (
	// HeaderCorrelationID is echoed on every response and carried in logs.
	HeaderCorrelationID = "X-Correlation-ID"
	// HeaderRequestID is accepted from proxies that do not set HeaderCorrelationID.
	HeaderRequestID = "X-Request-ID"

	maxCorrelationIDLen = 128
)

// clientIPHeaders are checked in order before falling back to RemoteAddr.
var clientIPHeaders = []string{"True-Client-IP", "X-Real-IP", "X-Forwarded-For"}

// middlewareClient resolves who is calling: the real client address behind
// proxies and a correlation id shared by logs, traces and the response.
func middlewareClient(gen uid.StringID) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ip := realIP(r); ip != "" {
				r.RemoteAddr = ip
			}

			if cid := correlationID(r, gen); cid != "" {
				w.Header().Set(HeaderCorrelationID, cid)
				r = r.WithContext(instrument.SetCorrelationID(r.Context(), cid))
			}

			next.ServeHTTP(w, r)
		})
	}
}

func correlationID(r *http.Request, gen uid.StringID) string {
	for _, header := range []string{HeaderCorrelationID, HeaderRequestID} {
		v := r.Header.Get(header)
		if v == "" || strings.ContainsAny(v, "\r\n") {
			continue
		}
		if v = strings.TrimSpace(v); v != "" {
			if len(v) > maxCorrelationIDLen {
				v = v[:maxCorrelationIDLen]
			}
			return v
		}
	}

	if gen == nil {
		return ""
	}
	return gen.Generate()
}

func realIP(r *http.Request) string {
	for _, header := range clientIPHeaders {
		v := r.Header.Get(header)
		if v == "" {
			continue
		}
		// X-Forwarded-For lists the originating client first.
		v, _, _ = strings.Cut(v, ",")
		if ip := strings.TrimSpace(v); net.ParseIP(ip) != nil {
			return ip
		}
		break
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || net.ParseIP(host) == nil {
		return ""
	}
	return host
}
