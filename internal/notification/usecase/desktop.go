package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/irnotify/internal/notification/entity"
	"github.com/shandysiswandi/irnotify/internal/pkg/goerror"
)

type (
	DesktopPermissionInput struct {
		Permission string `validate:"required,oneof=granted denied default"`
	}
)

// UpdateDesktopPermission stores the browser notification grant reported by the client.
func (s *Usecase) UpdateDesktopPermission(ctx context.Context, in DesktopPermissionInput) error {
	ctx, span := s.startSpan(ctx, "UpdateDesktopPermission")
	defer span.End()

	in.Permission = strings.ToLower(strings.TrimSpace(in.Permission))

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	clm, err := s.requireAuth(ctx)
	if err != nil {
		return err
	}

	perm := entity.DesktopPermissionFromString(in.Permission)
	if err := s.repoDB.UpdateDesktopPermission(ctx, clm.UserID, perm); err != nil {
		slog.ErrorContext(ctx, "failed to repo update desktop permission", "user_id", clm.UserID, "error", err)
		return goerror.NewServer(err)
	}

	return nil
}

// StreamNotifications subscribes the caller's browser session to desktop
// notifications until ctx is done.
func (s *Usecase) StreamNotifications(ctx context.Context, userID int64) <-chan entity.DesktopNotification {
	return s.hub.Subscribe(ctx, userID)
}
