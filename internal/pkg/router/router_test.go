package router

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shandysiswandi/irnotify/internal/pkg/config"
	"github.com/shandysiswandi/irnotify/internal/pkg/goerror"
	"github.com/shandysiswandi/irnotify/internal/pkg/instrument"
	"github.com/shandysiswandi/irnotify/internal/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJWT map[string]jwt.Claims

func (f fakeJWT) Generate(jwt.Subject) (string, error) { return "", nil }

func (f fakeJWT) Verify(token string) (jwt.Claims, error) {
	clm, ok := f[token]
	if !ok {
		return jwt.Claims{}, jwt.ErrInvalidToken
	}
	return clm, nil
}

type staticUUID string

func (s staticUUID) Generate() string { return string(s) }

func newTestRouter(t *testing.T) *Router {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(`
app:
  maintenance:
    endpoints: ["/api/v1/maintenance"]
    retry_after_seconds: 120
instrument:
  log_mask_fields: ["phone"]
`))
	require.NoError(t, err)

	enforcer, err := NewEnforcer([]string{
		"admin, *, *",
		"investor, /api/v1/me, GET",
		"investor, /api/v1/boom, GET",
		"investor, /api/v1/maintenance, GET",
	})
	require.NoError(t, err)

	r := NewRouter(Config{
		Config:     cfg,
		UUID:       staticUUID("cid-generated"),
		Instrument: instrument.NewNoop(),
		Enforcer:   enforcer,
		JWT: fakeJWT{
			"investor-token": {UserID: 7},
			"admin-token":    {UserID: 1, Role: "admin"},
		},
	})

	r.GET("/health", func(*Request) (any, error) { return map[string]string{"status": "ok"}, nil })
	r.GET("/api/v1/me", func(req *Request) (any, error) {
		return map[string]int64{"user_id": jwt.GetAuth(req.Context()).UserID}, nil
	})
	r.POST("/api/v1/dispatch", func(*Request) (any, error) { return nil, nil })
	r.GET("/api/v1/boom", func(*Request) (any, error) { panic("boom") })
	r.GET("/api/v1/maintenance", func(*Request) (any, error) { return nil, nil })
	r.GET("/api/v1/invalid", func(*Request) (any, error) {
		return nil, goerror.NewInvalidInput(nil, "channel", "unknown channel")
	})
	r.GET("/api/v1/raw-error", func(*Request) (any, error) { return nil, errors.New("db down") })

	return r
}

func do(t *testing.T, r http.Handler, method, path, token string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var body map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestRouter_PublicAndAuth(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)

	rec, body := do(t, r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cid-generated", rec.Header().Get(HeaderCorrelationID))
	assert.Equal(t, map[string]any{"status": "ok"}, body["data"])

	rec, body = do(t, r, http.MethodGet, "/api/v1/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Authentication required", body["message"])

	rec, _ = do(t, r, http.MethodGet, "/api/v1/me", "bogus")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, body = do(t, r, http.MethodGet, "/api/v1/me", "investor-token")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"user_id": float64(7)}, body["data"])
}

func TestRouter_Authorization(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)

	rec, body := do(t, r, http.MethodPost, "/api/v1/dispatch", "investor-token")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Access denied", body["message"])

	rec, _ = do(t, r, http.MethodPost, "/api/v1/dispatch", "admin-token")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRouter_Errors(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)

	rec, body := do(t, r, http.MethodGet, "/api/v1/invalid", "admin-token")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, map[string]any{"channel": "unknown channel"}, body["error"])

	rec, body = do(t, r, http.MethodGet, "/api/v1/raw-error", "admin-token")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", body["message"])

	rec, _ = do(t, r, http.MethodGet, "/api/v1/boom", "investor-token")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec, _ = do(t, r, http.MethodGet, "/api/v1/maintenance", "investor-token")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "120", rec.Header().Get("Retry-After"))

	rec, _ = do(t, r, http.MethodGet, "/nowhere", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNewEnforcer_InvalidPolicy(t *testing.T) {
	t.Parallel()

	_, err := NewEnforcer([]string{"admin, *"})
	require.ErrorIs(t, err, ErrInvalidPolicy)
}

func TestRealIP(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", realIP(req))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "not-an-ip")
	assert.Equal(t, "192.0.2.1", realIP(req))
}

func TestRealIP_HeaderPrecedence(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	req.Header.Set("X-Real-IP", " 198.51.100.4 ")
	assert.Equal(t, "198.51.100.4", realIP(req))

	req.Header.Set("True-Client-IP", "2001:db8::1")
	assert.Equal(t, "2001:db8::1", realIP(req))
}

func TestCorrelationID(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "generated", correlationID(req, staticUUID("generated")))
	assert.Empty(t, correlationID(req, nil))

	req.Header.Set(HeaderRequestID, " from-proxy ")
	assert.Equal(t, "from-proxy", correlationID(req, nil))

	req.Header.Set(HeaderCorrelationID, strings.Repeat("c", 200))
	assert.Len(t, correlationID(req, nil), maxCorrelationIDLen)

	req.Header.Set(HeaderCorrelationID, "bad\r\nvalue")
	assert.Equal(t, "from-proxy", correlationID(req, nil))
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notification/stream?access_token=query-token", nil)
	assert.Empty(t, bearerToken(req))

	req.Header.Set("Accept", "text/event-stream")
	assert.Equal(t, "query-token", bearerToken(req))

	req.Header.Set("Authorization", "bearer header-token")
	assert.Equal(t, "header-token", bearerToken(req))

	req = httptest.NewRequest(http.MethodPost, "/api/v1/dispatch?access_token=query-token", nil)
	req.Header.Set("Accept", "text/event-stream")
	assert.Empty(t, bearerToken(req))
}

func TestRouter_QueryTokenForEventStream(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me?access_token=investor-token", nil)
	req.Header.Set("Accept", "text/event-stream")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, r, http.MethodGet, "/api/v1/me?access_token=investor-token", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMaskURI(t *testing.T) {
	t.Parallel()

	keys := map[string]struct{}{"access_token": {}}

	req := httptest.NewRequest(http.MethodGet, "/stream?access_token=secret&x=1", nil)
	got := maskURI(req, keys)
	assert.NotContains(t, got, "secret")
	assert.Contains(t, got, "x=1")

	req = httptest.NewRequest(http.MethodGet, "/stream?x=1", nil)
	assert.Equal(t, "/stream?x=1", maskURI(req, keys))
	assert.Equal(t, "/stream?x=1", maskURI(req, nil))
}

func TestResponseLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.LevelInfo, responseLevel(http.StatusOK))
	assert.Equal(t, slog.LevelInfo, responseLevel(http.StatusNoContent))
	assert.Equal(t, slog.LevelWarn, responseLevel(http.StatusNotFound))
	assert.Equal(t, slog.LevelError, responseLevel(http.StatusServiceUnavailable))
}
