package inbound

import (
	"net/http"

	"github.com/shandysiswandi/irnotify/internal/pkg/router"
)

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	r.GET("/api/v1/notification/preferences", end.ListPreferences)
	r.PUT("/api/v1/notification/preferences", end.UpdatePreferences)

	r.GET("/api/v1/notification/attempts", end.ListAttempts)
	r.GET("/api/v1/notification/attempts/events/:id", end.EventAttempts)

	r.POST("/api/v1/notification/dispatch", end.DispatchNow)
	r.GET("/api/v1/notification/cycles", end.ListCycleReports)

	r.POST("/api/v1/notification/device", end.DeviceRegister)
	r.DELETE("/api/v1/notification/device", end.DeviceRemove)

	r.PUT("/api/v1/notification/desktop/permission", end.UpdateDesktopPermission)
	r.GETRaw("/api/v1/notification/stream", http.HandlerFunc(end.StreamNotifications))
}
