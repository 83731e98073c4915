package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/shandysiswandi/irnotify/internal/notification/entity"
	"github.com/shandysiswandi/irnotify/internal/pkg/goerror"
)

const defaultAttemptWindow = 30 * 24 * time.Hour

type (
	ListAttemptsInput struct {
		Channel string `validate:"required,channel"`
		Since   time.Time
	}

	EventAttemptsInput struct {
		EventID int64 `validate:"gt=0"`
	}
)

// ListAttempts queries the caller's notification log for one channel. A zero
// Since means the last thirty days.
func (s *Usecase) ListAttempts(ctx context.Context, in ListAttemptsInput) ([]entity.Attempt, error) {
	ctx, span := s.startSpan(ctx, "ListAttempts")
	defer span.End()

	in.Channel = strings.ToLower(strings.TrimSpace(in.Channel))
	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	clm, err := s.requireAuth(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if in.Since.IsZero() {
		in.Since = now.Add(-defaultAttemptWindow)
	}
	if in.Since.After(now) {
		return nil, goerror.NewInvalidInput(nil, "since", "Since must not be in the future")
	}

	ch := entity.ChannelFromString(in.Channel)
	items, err := s.repoDB.QueryAttempts(ctx, clm.UserID, ch, in.Since)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo query attempts", "user_id", clm.UserID, "channel", ch.String(), "error", err)
		return nil, goerror.NewServer(err)
	}

	return items, nil
}

// EventAttempts answers whether a specific event was ever notified to the caller.
func (s *Usecase) EventAttempts(ctx context.Context, in EventAttemptsInput) ([]entity.Attempt, error) {
	ctx, span := s.startSpan(ctx, "EventAttempts")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	clm, err := s.requireAuth(ctx)
	if err != nil {
		return nil, err
	}

	items, err := s.repoDB.ListEventAttempts(ctx, clm.UserID, in.EventID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list event attempts", "user_id", clm.UserID, "event_id", in.EventID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return items, nil
}
