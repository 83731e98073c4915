package inbound

import (
	"context"

	"github.com/shandysiswandi/irnotify/internal/notification/entity"
	"github.com/shandysiswandi/irnotify/internal/notification/usecase"
)

type ucConsumer interface {
	ConsumeDispatchRequested(ctx context.Context, in usecase.ConsumeDispatchRequestedInput) error
}

type ucScheduler interface {
	RunScheduledCycle(ctx context.Context) error
}

type ucStream interface {
	StreamNotifications(ctx context.Context, userID int64) <-chan entity.DesktopNotification
}

type uc interface {
	ucConsumer
	ucScheduler
	ucStream

	ListPreferences(ctx context.Context) ([]entity.Preference, error)
	UpdatePreferences(ctx context.Context, in usecase.UpdatePreferencesInput) error
	ListAttempts(ctx context.Context, in usecase.ListAttemptsInput) ([]entity.Attempt, error)
	EventAttempts(ctx context.Context, in usecase.EventAttemptsInput) ([]entity.Attempt, error)
	DispatchNow(ctx context.Context) (*entity.CycleReport, error)
	ListCycleReports(ctx context.Context, in usecase.ListCycleReportsInput) ([]entity.CycleReport, error)
	DeviceRegister(ctx context.Context, in usecase.DeviceRegisterInput) error
	DeviceRemove(ctx context.Context, in usecase.DeviceRemoveInput) error
	UpdateDesktopPermission(ctx context.Context, in usecase.DesktopPermissionInput) error
}
