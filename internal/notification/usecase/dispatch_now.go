package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/irnotify/internal/notification/entity"
	"github.com/shandysiswandi/irnotify/internal/pkg/goerror"
)

// DispatchNow is the manual "send now" trigger.
func (s *Usecase) DispatchNow(ctx context.Context) (*entity.CycleReport, error) {
	ctx, span := s.startSpan(ctx, "DispatchNow")
	defer span.End()

	clm, err := s.requireAuth(ctx)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "manual dispatch cycle requested", "user_id", clm.UserID)

	cycleCtx, cancel := s.detach(ctx)
	defer cancel()

	return s.RunCycle(cycleCtx, entity.TriggerManual)
}

// detach keeps ctx values but drops its cancellation, so a caller that hangs
// up does not abandon other users' pairs. The result is still cancelled when
// the process lifetime ends.
func (s *Usecase) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithoutCancel(ctx)
	if s.lifetime == nil {
		return ctx, func() {}
	}

	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.lifetime, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

type ConsumeDispatchRequestedInput struct {
	RequestedBy int64
	Reason      string
}

// ConsumeDispatchRequested runs a cycle for a queued request. A request that
// arrives while another cycle holds the lock is dropped.
func (s *Usecase) ConsumeDispatchRequested(ctx context.Context, in ConsumeDispatchRequestedInput) error {
	ctx, span := s.startSpan(ctx, "ConsumeDispatchRequested")
	defer span.End()

	report, err := s.RunCycle(ctx, entity.TriggerQueue)
	if goerror.HasCode(err, goerror.CodeConflict) {
		slog.InfoContext(ctx, "dispatch request dropped, cycle already running", "requested_by", in.RequestedBy)
		return nil
	}
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "queued dispatch request handled", "requested_by", in.RequestedBy, "reason", in.Reason, "cycle_id", report.ID)
	return nil
}

// RunScheduledCycle is invoked by the periodic scheduler.
func (s *Usecase) RunScheduledCycle(ctx context.Context) error {
	_, err := s.RunCycle(ctx, entity.TriggerSchedule)
	if goerror.HasCode(err, goerror.CodeConflict) {
		return nil
	}
	return err
}
