package inbound

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shandysiswandi/irnotify/internal/pkg/config"
	"github.com/shandysiswandi/irnotify/internal/pkg/goroutine"
	"github.com/shandysiswandi/irnotify/internal/pkg/instrument"
	"github.com/shandysiswandi/irnotify/internal/pkg/uid"
)

const schedulerJobName = "notification_dispatch_scheduler"

// Scheduler triggers dispatch cycles on a cron spec. Ticks that fire while the
// previous cycle is still running are skipped.
type Scheduler struct {
	spec     string
	schedule cron.Schedule
	cron     *cron.Cron
	uc       ucScheduler
	uuid     uid.StringID
}

func newScheduler(spec string, loc *time.Location, uc ucScheduler, uuid uid.StringID) (*Scheduler, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}

	return &Scheduler{
		spec:     spec,
		schedule: schedule,
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLocation(loc),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		uc:   uc,
		uuid: uuid,
	}, nil
}

// Next reports when the schedule fires after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t)
}

func (s *Scheduler) runCycle(ctx context.Context) {
	ctx = instrument.SetCorrelationID(ctx, s.uuid.Generate())

	slog.InfoContext(ctx, "scheduled dispatch cycle starting", "cron", s.spec)
	if err := s.uc.RunScheduledCycle(ctx); err != nil {
		slog.ErrorContext(ctx, "scheduled dispatch cycle failed", "error", err)
	}
}

// Run blocks until ctx is done, then waits for a running cycle to return.
func (s *Scheduler) Run(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.runCycle(ctx) }); err != nil {
		return err
	}

	s.cron.Start()
	slog.InfoContext(ctx, "dispatch scheduler started", "cron", s.spec, "next", s.Next(time.Now()))

	<-ctx.Done()
	<-s.cron.Stop().Done()
	return nil
}

// RegisterScheduler starts the periodic trigger. An empty
// modules.notification.cron leaves only the manual triggers.
func RegisterScheduler(
	ctx context.Context,
	cfg config.Config,
	routine *goroutine.Manager,
	uuid uid.StringID,
	uc ucScheduler,
	loc *time.Location,
) error {
	spec := strings.TrimSpace(cfg.GetString("modules.notification.cron"))
	if spec == "" {
		slog.InfoContext(ctx, "dispatch scheduler disabled, modules.notification.cron is empty")
		return nil
	}

	s, err := newScheduler(spec, loc, uc, uuid)
	if err != nil {
		return err
	}

	routine.Go(ctx, schedulerJobName, s.Run)
	return nil
}
