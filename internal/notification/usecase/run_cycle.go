package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"
	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/irnotify/internal/notification/entity"
	"github.com/shandysiswandi/irnotify/internal/pkg/config"
	"github.com/shandysiswandi/irnotify/internal/pkg/goerror"
	"github.com/shandysiswandi/irnotify/internal/pkg/runlock"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
)

const cycleLockKey = "notification:dispatch-cycle"

type cycleOptions struct {
	workers      int
	fetchTimeout time.Duration
	queryTimeout time.Duration
	sendTimeout  time.Duration
	logTimeout   time.Duration
	lockTTL      time.Duration
	fetchRetries uint64
	retryBase    time.Duration
}

func newCycleOptions(cfg config.Config) cycleOptions {
	opts := cycleOptions{
		workers:      5,
		fetchTimeout: 10 * time.Second,
		queryTimeout: 5 * time.Second,
		sendTimeout:  30 * time.Second,
		logTimeout:   5 * time.Second,
		lockTTL:      10 * time.Minute,
		fetchRetries: 2,
		retryBase:    200 * time.Millisecond,
	}
	if cfg == nil {
		return opts
	}

	if v := cfg.GetInt("modules.notification.workers"); v > 0 {
		opts.workers = v
	}
	if v := cfg.GetSecond("modules.notification.fetch_timeout_seconds"); v > 0 {
		opts.fetchTimeout = v
	}
	if v := cfg.GetSecond("modules.notification.dedup_timeout_seconds"); v > 0 {
		opts.queryTimeout = v
	}
	if v := cfg.GetSecond("modules.notification.send_timeout_seconds"); v > 0 {
		opts.sendTimeout = v
	}
	if v := cfg.GetSecond("modules.notification.log_timeout_seconds"); v > 0 {
		opts.logTimeout = v
	}
	if v := cfg.GetSecond("modules.notification.lock_ttl_seconds"); v > 0 {
		opts.lockTTL = v
	}
	if v := cfg.GetInt("modules.notification.fetch_retries"); v > 0 {
		opts.fetchRetries = uint64(v)
	}

	return opts
}

type pairResult string

const (
	resultSent       pairResult = "sent"
	resultFailed     pairResult = "failed"
	resultTransport  pairResult = "skipped_transport"
	resultEmpty      pairResult = "skipped_empty"
	resultDedup      pairResult = "skipped_dedup"
	resultPermission pairResult = "skipped_permission"
	resultAbandoned  pairResult = "abandoned"
)

type cycleTally struct {
	sent        atomic.Int64
	failed      atomic.Int64
	transport   atomic.Int64
	empty       atomic.Int64
	dedup       atomic.Int64
	permission  atomic.Int64
	abandoned   atomic.Int64
	logFailures atomic.Int64
	logged      atomic.Int64
}

func (t *cycleTally) add(r pairResult, n int64) {
	switch r {
	case resultSent:
		t.sent.Add(n)
	case resultFailed:
		t.failed.Add(n)
	case resultTransport:
		t.transport.Add(n)
	case resultEmpty:
		t.empty.Add(n)
	case resultDedup:
		t.dedup.Add(n)
	case resultPermission:
		t.permission.Add(n)
	case resultAbandoned:
		t.abandoned.Add(n)
	}
}

func (t *cycleTally) fill(r *entity.CycleReport) {
	r.Sent = t.sent.Load()
	r.Failed = t.failed.Load()
	r.SkippedTransport = t.transport.Load()
	r.SkippedEmpty = t.empty.Load()
	r.SkippedDedup = t.dedup.Load()
	r.SkippedPermission = t.permission.Load()
	r.Abandoned = t.abandoned.Load()
	r.LogFailures = t.logFailures.Load()
	r.LoggedAttempts = t.logged.Load()
}

// RunCycle runs one dispatch pass over every enabled preference.
//
// Pairs run on a bounded pool and never abort the cycle. Once ctx is done,
// pairs that have not started are abandoned while started ones finish the step
// they are in; a completed send is always logged.
func (s *Usecase) RunCycle(ctx context.Context, trigger entity.Trigger) (*entity.CycleReport, error) {
	ctx, span := s.startSpan(ctx, "RunCycle")
	defer span.End()

	release, err := s.acquireCycleLock(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	report := entity.CycleReport{
		ID:        s.uid.Generate(),
		Trigger:   trigger,
		StartedAt: s.clock.Now(),
	}

	prefs, err := s.listEnabledPreferences(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list enabled preferences", "cycle_id", report.ID, "error", err)
		return nil, goerror.NewUnavailable("Preference store is unavailable", err)
	}
	report.Pairs = int64(len(prefs))

	var tally cycleTally
	var g errgroup.Group
	g.SetLimit(s.opts.workers)

	for i, pref := range prefs {
		if ctx.Err() != nil {
			tally.add(resultAbandoned, int64(len(prefs)-i))
			break
		}

		g.Go(func() error {
			result := s.processPair(ctx, report.ID, pref, &tally)
			tally.add(result, 1)
			s.addCounter(ctx, s.pairs, attribute.String("result", string(result)))
			return nil
		})
	}
	_ = g.Wait()

	tally.fill(&report)
	report.FinishedAt = s.clock.Now()

	slog.InfoContext(ctx, "dispatch cycle finished",
		"cycle_id", report.ID,
		"trigger", trigger.String(),
		"pairs", report.Pairs,
		"sent", report.Sent,
		"failed", report.Failed,
		"skipped_dedup", report.SkippedDedup,
		"abandoned", report.Abandoned,
	)

	s.archiveReport(ctx, report)

	return &report, nil
}

func (s *Usecase) acquireCycleLock(ctx context.Context) (func(), error) {
	noop := func() {}
	if s.locker == nil {
		return noop, nil
	}

	unlock, err := s.locker.Acquire(ctx, cycleLockKey, s.opts.lockTTL)
	if errors.Is(err, runlock.ErrHeld) {
		slog.InfoContext(ctx, "dispatch cycle already running")
		return nil, goerror.NewBusiness("Dispatch cycle is already running", goerror.CodeConflict)
	}
	if err != nil {
		slog.WarnContext(ctx, "failed to acquire dispatch cycle lock, running without it", "error", err)
		return noop, nil
	}

	return func() {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.queryTimeout)
		defer cancel()

		if err := unlock(rctx); err != nil {
			slog.WarnContext(ctx, "failed to release dispatch cycle lock", "error", err)
		}
	}, nil
}

func (s *Usecase) listEnabledPreferences(ctx context.Context) ([]entity.Preference, error) {
	var prefs []entity.Preference
	err := s.withRetry(ctx, s.opts.fetchTimeout, func(ctx context.Context) error {
		var err error
		prefs, err = s.repoDB.ListEnabledPreferences(ctx)
		return err
	})
	return prefs, err
}

func (s *Usecase) processPair(ctx context.Context, cycleID int64, pref entity.Preference, t *cycleTally) pairResult {
	if ctx.Err() != nil {
		return resultAbandoned
	}

	ctx, span := s.startSpan(ctx, "processPair")
	defer span.End()

	attrs := []any{"cycle_id", cycleID, "user_id", pref.UserID, "channel", pref.Channel.String()}

	var events []entity.Event
	err := s.withRetry(ctx, s.opts.fetchTimeout, func(ctx context.Context) error {
		var err error
		events, err = s.repoDB.FetchUpcoming(ctx, pref.LookaheadDays)
		return err
	})
	if err != nil {
		slog.WarnContext(ctx, "skip pair, event source unavailable", append(attrs, "error", err)...)
		return resultTransport
	}

	relevant := FilterRelevant(events, pref)
	if len(relevant) == 0 {
		return resultEmpty
	}

	if ctx.Err() != nil {
		return resultAbandoned
	}

	qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.queryTimeout)
	recent, err := s.RecentlyNotified(qctx, pref.UserID, pref.Channel, pref.LookaheadDays)
	cancel()
	if err != nil {
		slog.WarnContext(ctx, "skip pair, notification log unavailable", append(attrs, "error", err)...)
		return resultTransport
	}
	if recent {
		return resultDedup
	}

	if ctx.Err() != nil {
		return resultAbandoned
	}

	outcome, err := s.dispatch(ctx, pref, relevant)
	if err != nil {
		slog.WarnContext(ctx, "skip pair, recipient directory unavailable", append(attrs, "error", err)...)
		return resultTransport
	}
	if outcome.Soft {
		slog.DebugContext(ctx, "notification not delivered", append(attrs, "reason", outcome.Error)...)
		return resultPermission
	}

	s.addCounter(ctx, s.deliveries,
		attribute.String("channel", pref.Channel.String()),
		attribute.String("status", outcome.Status().String()),
	)
	if !outcome.Success {
		slog.WarnContext(ctx, "notification delivery failed", append(attrs, "error", outcome.Error)...)
	}

	s.recordOutcome(ctx, pref, relevant, outcome, t)

	if outcome.Success {
		return resultSent
	}
	return resultFailed
}

// dispatch renders and sends one batch. The error is set only when the
// recipient directory could not be reached, which skips the pair unlogged.
func (s *Usecase) dispatch(ctx context.Context, pref entity.Preference, events []entity.Event) (entity.Outcome, error) {
	d, ok := s.dispatchers[pref.Channel]
	if !ok {
		return entity.Failed(fmt.Errorf("%w: no dispatcher for channel %s", entity.ErrConfiguration, pref.Channel)), nil
	}

	qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.queryTimeout)
	rcp, err := s.repoDB.GetRecipient(qctx, pref.UserID)
	cancel()
	if errors.Is(err, goerror.ErrNotFound) {
		return entity.Failed(fmt.Errorf("%w: recipient %d not found", entity.ErrConfiguration, pref.UserID)), nil
	}
	if err != nil {
		return entity.Outcome{}, fmt.Errorf("%w: %w", entity.ErrTransport, err)
	}

	payload, err := d.Render(events, *rcp)
	if err != nil {
		slog.ErrorContext(ctx, "failed to render notification payload", "user_id", pref.UserID, "channel", pref.Channel.String(), "error", err)
		return entity.Failed(fmt.Errorf("render %s payload: %w", pref.Channel, err)), nil
	}

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.sendTimeout)
	defer cancel()

	return d.Send(sctx, payload), nil
}

func (s *Usecase) recordOutcome(ctx context.Context, pref entity.Preference, events []entity.Event, outcome entity.Outcome, t *cycleTally) {
	in := entity.RecordAttempt{
		UserID:    pref.UserID,
		Channel:   pref.Channel,
		EventIDs:  lo.Map(events, func(e entity.Event, _ int) int64 { return e.ID }),
		Status:    outcome.Status(),
		MessageID: outcome.MessageID,
		Error:     outcome.Error,
	}

	lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.logTimeout)
	defer cancel()

	if err := s.repoDB.RecordAttempts(lctx, in); err != nil {
		t.logFailures.Inc()
		slog.ErrorContext(ctx, "failed to repo record notification attempts",
			"user_id", in.UserID,
			"channel", in.Channel.String(),
			"event_ids", in.EventIDs,
			"status", in.Status.String(),
			"error", err,
		)
		return
	}
	t.logged.Add(int64(len(in.EventIDs)))

	s.publishDispatched(lctx, in)
}

func (s *Usecase) withRetry(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	b := retry.WithMaxRetries(s.opts.fetchRetries, retry.NewExponential(s.opts.retryBase))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

func (s *Usecase) addCounter(ctx context.Context, c metric.Int64Counter, attrs ...attribute.KeyValue) {
	if c == nil {
		return
	}
	c.Add(ctx, 1, metric.WithAttributes(attrs...))
}
