package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/irnotify/internal/pkg/goerror"
)

type (
	DeviceRemoveInput struct {
		DeviceToken string `validate:"required"`
	}
)

func (s *Usecase) DeviceRemove(ctx context.Context, in DeviceRemoveInput) error {
	ctx, span := s.startSpan(ctx, "DeviceRemove")
	defer span.End()

	in.DeviceToken = strings.TrimSpace(in.DeviceToken)

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	clm, err := s.requireAuth(ctx)
	if err != nil {
		return err
	}

	err = s.repoDB.RemoveUserDevice(ctx, clm.UserID, in.DeviceToken)
	if errors.Is(err, goerror.ErrNotFound) {
		return goerror.NewBusiness("Device not found", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo remove device token", "user_id", clm.UserID, "error", err)
		return goerror.NewServer(err)
	}

	return nil
}
