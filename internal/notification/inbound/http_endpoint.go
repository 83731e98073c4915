package inbound

import (
	"github.com/samber/lo"
	"github.com/shandysiswandi/irnotify/internal/notification/entity"
	"github.com/shandysiswandi/irnotify/internal/notification/usecase"
	"github.com/shandysiswandi/irnotify/internal/pkg/router"
)

type HTTPEndpoint struct {
	uc uc
}

// ListPreferences returns the caller's notification preferences, one per channel.
// @Summary List notification preferences
// @Tags Notification
// @Security BearerAuth
// @Produce json
// @Success 200 {object} router.successResponse{data=PreferencesResponse} "Preference list"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/notification/preferences [get]
func (h *HTTPEndpoint) ListPreferences(r *router.Request) (any, error) {
	items, err := h.uc.ListPreferences(r.Context())
	if err != nil {
		return nil, err
	}

	resp := make([]PreferenceResponse, 0, len(items))
	for _, item := range items {
		sectors := item.Sectors
		if sectors == nil {
			sectors = []string{}
		}

		resp = append(resp, PreferenceResponse{
			Channel:       item.Channel.String(),
			Enabled:       item.Enabled,
			LookaheadDays: item.LookaheadDays,
			Companies: lo.Map(item.Companies, func(c entity.Company, _ int) CompanyResponse {
				return CompanyResponse{ID: c.ID, Name: c.Name}
			}),
			Sectors:   sectors,
			UpdatedAt: item.UpdatedAt,
		})
	}

	return PreferencesResponse{Preferences: resp}, nil
}

// UpdatePreferences upserts one preference per channel for the caller.
// @Summary Update notification preferences
// @Tags Notification
// @Security BearerAuth
// @Accept json
// @Param request body PreferencesUpdateRequest true "Preferences payload"
// @Success 204 "No Content"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/notification/preferences [put]
func (h *HTTPEndpoint) UpdatePreferences(r *router.Request) (any, error) {
	var req PreferencesUpdateRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	inputs := lo.Map(req.Preferences, func(p PreferenceRequest, _ int) usecase.PreferenceInput {
		return usecase.PreferenceInput{
			Channel:       p.Channel,
			Enabled:       p.Enabled,
			LookaheadDays: p.LookaheadDays,
			CompanyIDs:    p.CompanyIDs,
			Sectors:       p.Sectors,
		}
	})

	return nil, h.uc.UpdatePreferences(r.Context(), usecase.UpdatePreferencesInput{Preferences: inputs})
}

// ListAttempts returns the caller's notification log for one channel.
// @Summary List notification attempts
// @Tags Notification
// @Security BearerAuth
// @Produce json
// @Param channel query string true "email, sms, desktop or mobile"
// @Param since query string false "RFC 3339 lower bound, defaults to 30 days ago"
// @Success 200 {object} router.successResponse{data=AttemptsResponse} "Attempt list"
// @Failure 400 {object} router.errorResponse "Invalid query parameters"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Router /api/v1/notification/attempts [get]
func (h *HTTPEndpoint) ListAttempts(r *router.Request) (any, error) {
	since, err := r.GetQueryTime("since")
	if err != nil {
		return nil, err
	}

	items, err := h.uc.ListAttempts(r.Context(), usecase.ListAttemptsInput{
		Channel: r.GetQuery("channel"),
		Since:   since,
	})
	if err != nil {
		return nil, err
	}

	return AttemptsResponse{Attempts: toAttemptResponses(items)}, nil
}

// EventAttempts reports whether an event was notified to the caller.
// @Summary Attempts for one event
// @Tags Notification
// @Security BearerAuth
// @Produce json
// @Param id path int true "Event ID"
// @Success 200 {object} router.successResponse{data=EventAttemptsResponse} "Attempt list"
// @Failure 400 {object} router.errorResponse "Invalid param"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Router /api/v1/notification/attempts/events/{id} [get]
func (h *HTTPEndpoint) EventAttempts(r *router.Request) (any, error) {
	id, err := r.GetParamInt64("id")
	if err != nil {
		return nil, err
	}

	items, err := h.uc.EventAttempts(r.Context(), usecase.EventAttemptsInput{EventID: id})
	if err != nil {
		return nil, err
	}

	return EventAttemptsResponse{
		EventID: id,
		Notified: lo.ContainsBy(items, func(a entity.Attempt) bool {
			return a.Status == entity.AttemptStatusSent
		}),
		Attempts: toAttemptResponses(items),
	}, nil
}

// DispatchNow runs one dispatch cycle immediately.
// @Summary Send now
// @Tags Notification
// @Security BearerAuth
// @Produce json
// @Success 200 {object} router.successResponse{data=DispatchResponse} "Cycle report"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 403 {object} router.errorResponse "Forbidden"
// @Failure 409 {object} router.errorResponse "A cycle is already running"
// @Failure 503 {object} router.errorResponse "Preference store unavailable"
// @Router /api/v1/notification/dispatch [post]
func (h *HTTPEndpoint) DispatchNow(r *router.Request) (any, error) {
	report, err := h.uc.DispatchNow(r.Context())
	if err != nil {
		return nil, err
	}

	return DispatchResponse{CycleReportResponse: toCycleReportResponse(*report)}, nil
}

// ListCycleReports returns archived cycle reports for one day.
// @Summary List cycle reports
// @Tags Notification
// @Security BearerAuth
// @Produce json
// @Param date query string true "UTC day, YYYY-MM-DD"
// @Param limit query int false "Maximum reports, default 20"
// @Success 200 {object} router.successResponse{data=CycleReportsResponse} "Report list"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Router /api/v1/notification/cycles [get]
func (h *HTTPEndpoint) ListCycleReports(r *router.Request) (any, error) {
	limit, err := r.GetQueryInt("limit", 20)
	if err != nil {
		return nil, err
	}

	items, err := h.uc.ListCycleReports(r.Context(), usecase.ListCycleReportsInput{
		Date:  r.GetQuery("date"),
		Limit: limit,
	})
	if err != nil {
		return nil, err
	}

	return CycleReportsResponse{Cycles: lo.Map(items, func(c entity.CycleReport, _ int) CycleReportResponse {
		return toCycleReportResponse(c)
	})}, nil
}

// DeviceRegister registers a device for push notifications.
// @Summary Register device
// @Tags Notification
// @Security BearerAuth
// @Accept json
// @Param request body RegisterDeviceRequest true "Device registration payload"
// @Success 204 "No Content"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Router /api/v1/notification/device [post]
func (h *HTTPEndpoint) DeviceRegister(r *router.Request) (any, error) {
	var req RegisterDeviceRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	return nil, h.uc.DeviceRegister(r.Context(), usecase.DeviceRegisterInput{
		DeviceToken: req.DeviceToken,
		Platform:    req.Platform,
	})
}

// DeviceRemove removes a device from push notifications.
// @Summary Remove device
// @Tags Notification
// @Security BearerAuth
// @Accept json
// @Param request body RemoveDeviceRequest true "Device removal payload"
// @Success 204 "No Content"
// @Failure 404 {object} router.errorResponse "Device not found"
// @Router /api/v1/notification/device [delete]
func (h *HTTPEndpoint) DeviceRemove(r *router.Request) (any, error) {
	var req RemoveDeviceRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	return nil, h.uc.DeviceRemove(r.Context(), usecase.DeviceRemoveInput{DeviceToken: req.DeviceToken})
}

// UpdateDesktopPermission stores the browser notification grant.
// @Summary Update desktop permission
// @Tags Notification
// @Security BearerAuth
// @Accept json
// @Param request body DesktopPermissionRequest true "granted, denied or default"
// @Success 204 "No Content"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Router /api/v1/notification/desktop/permission [put]
func (h *HTTPEndpoint) UpdateDesktopPermission(r *router.Request) (any, error) {
	var req DesktopPermissionRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	return nil, h.uc.UpdateDesktopPermission(r.Context(), usecase.DesktopPermissionInput{Permission: req.Permission})
}

func toAttemptResponses(items []entity.Attempt) []AttemptResponse {
	return lo.Map(items, func(a entity.Attempt, _ int) AttemptResponse {
		return AttemptResponse{
			ID:        a.ID,
			Channel:   a.Channel.String(),
			EventID:   a.EventID,
			Status:    a.Status.String(),
			MessageID: a.MessageID,
			Error:     a.Error,
			CreatedAt: a.CreatedAt,
		}
	})
}

func toCycleReportResponse(c entity.CycleReport) CycleReportResponse {
	return CycleReportResponse{
		ID:                c.ID,
		Trigger:           c.Trigger.String(),
		StartedAt:         c.StartedAt,
		FinishedAt:        c.FinishedAt,
		Pairs:             c.Pairs,
		Sent:              c.Sent,
		Failed:            c.Failed,
		SkippedTransport:  c.SkippedTransport,
		SkippedEmpty:      c.SkippedEmpty,
		SkippedDedup:      c.SkippedDedup,
		SkippedPermission: c.SkippedPermission,
		Abandoned:         c.Abandoned,
		LogFailures:       c.LogFailures,
		LoggedAttempts:    c.LoggedAttempts,
	}
}
