package inbound

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/shandysiswandi/irnotify/internal/pkg/jwt"
)

const pingInterval = 25 * time.Second

// StreamNotifications delivers desktop notifications to an open browser tab using SSE.
// @Summary Stream desktop notifications
// @Tags Notification
// @Security BearerAuth
// @Produce text/event-stream
// @Success 200 {string} string "SSE stream"
// @Failure 401 {string} string "Unauthorized"
// @Failure 500 {string} string "streaming unsupported"
// @Router /api/v1/notification/stream [get]
func (h *HTTPEndpoint) StreamNotifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims := jwt.GetAuth(ctx)
	if claims == nil {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil {
		slog.ErrorContext(ctx, "failed to send response connected", "error", err)
		return
	}
	flusher.Flush()

	stream := h.uc.StreamNotifications(ctx, claims.UserID)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		// keeps proxies from dropping idle connections
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()

		case n, ok := <-stream:
			if !ok {
				return
			}
			payload, err := json.Marshal(n)
			if err != nil {
				slog.ErrorContext(ctx, "failed to marshal data", "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %s\nevent: notification\ndata: %s\n\n", n.ID, payload); err != nil {
				slog.ErrorContext(ctx, "failed to send response data", "error", err)
				return
			}
			flusher.Flush()
		}
	}
}
