package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/irnotify/internal/notification/entity"
	"github.com/shandysiswandi/irnotify/internal/pkg/goerror"
)

// DispatchedEvent is published after a batch outcome has been logged.
type DispatchedEvent struct {
	UserID    int64
	Channel   entity.Channel
	EventIDs  []int64
	Status    entity.AttemptStatus
	MessageID string
	Error     string
	At        time.Time
}

func (s *Usecase) publishDispatched(ctx context.Context, in entity.RecordAttempt) {
	if s.repoMQ == nil {
		return
	}

	err := s.repoMQ.PublishDispatched(ctx, DispatchedEvent{
		UserID:    in.UserID,
		Channel:   in.Channel,
		EventIDs:  in.EventIDs,
		Status:    in.Status,
		MessageID: in.MessageID,
		Error:     in.Error,
		At:        s.clock.Now(),
	})
	if err != nil {
		slog.WarnContext(ctx, "failed to repo publish dispatched event", "user_id", in.UserID, "channel", in.Channel.String(), "error", err)
	}
}

func (s *Usecase) archiveReport(ctx context.Context, report entity.CycleReport) {
	if s.repoArchive == nil {
		return
	}

	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.logTimeout)
	defer cancel()

	if err := s.repoArchive.SaveReport(actx, report); err != nil {
		slog.WarnContext(ctx, "failed to repo archive cycle report", "cycle_id", report.ID, "error", err)
	}
}

type ListCycleReportsInput struct {
	Date  string `validate:"required,datetime=2006-01-02"`
	Limit int    `validate:"min=1,max=100"`
}

// ListCycleReports reads archived cycle reports for one UTC day.
func (s *Usecase) ListCycleReports(ctx context.Context, in ListCycleReportsInput) ([]entity.CycleReport, error) {
	ctx, span := s.startSpan(ctx, "ListCycleReports")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	if _, err := s.requireAuth(ctx); err != nil {
		return nil, err
	}

	if s.repoArchive == nil {
		return nil, goerror.NewBusiness("Cycle report archive is not configured", goerror.CodeNotFound)
	}

	day, err := time.Parse(time.DateOnly, in.Date)
	if err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	reports, err := s.repoArchive.ListReports(ctx, day, in.Limit)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list cycle reports", "date", in.Date, "error", err)
		return nil, goerror.NewServer(err)
	}

	return reports, nil
}
