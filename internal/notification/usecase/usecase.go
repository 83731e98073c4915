package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/irnotify/internal/notification/entity"
	"github.com/shandysiswandi/irnotify/internal/pkg/clock"
	"github.com/shandysiswandi/irnotify/internal/pkg/config"
	"github.com/shandysiswandi/irnotify/internal/pkg/instrument"
	"github.com/shandysiswandi/irnotify/internal/pkg/uid"
	"github.com/shandysiswandi/irnotify/internal/pkg/validator"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type eventSource interface {
	FetchUpcoming(ctx context.Context, daysAhead int) ([]entity.Event, error)
}

type preferenceStore interface {
	ListEnabledPreferences(ctx context.Context) ([]entity.Preference, error)
	ListUserPreferences(ctx context.Context, userID int64) ([]entity.Preference, error)
	UpsertPreferences(ctx context.Context, prefs []entity.UpsertPreference) error
}

type notificationLog interface {
	RecordAttempts(ctx context.Context, in entity.RecordAttempt) error
	QueryAttempts(ctx context.Context, userID int64, ch entity.Channel, since time.Time) ([]entity.Attempt, error)
	ListEventAttempts(ctx context.Context, userID, eventID int64) ([]entity.Attempt, error)
	HasSentSince(ctx context.Context, userID int64, ch entity.Channel, since time.Time) (bool, error)
}

type recipientDirectory interface {
	GetRecipient(ctx context.Context, userID int64) (*entity.Recipient, error)
	RegisterUserDevice(ctx context.Context, userID int64, deviceToken, platform string) error
	RemoveUserDevice(ctx context.Context, userID int64, deviceToken string) error
	UpdateDesktopPermission(ctx context.Context, userID int64, perm entity.DesktopPermission) error
}

type repoDB interface {
	eventSource
	preferenceStore
	notificationLog
	recipientDirectory
}

// Dispatcher renders and delivers notifications for one channel. Send never
// returns delivery failures as errors; they are carried by the Outcome.
type Dispatcher interface {
	Channel() entity.Channel
	Render(events []entity.Event, rcp entity.Recipient) (entity.Payload, error)
	Send(ctx context.Context, p entity.Payload) entity.Outcome
}

type runLocker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error)
}

type repoMQ interface {
	PublishDispatched(ctx context.Context, msg DispatchedEvent) error
}

type repoArchive interface {
	SaveReport(ctx context.Context, report entity.CycleReport) error
	ListReports(ctx context.Context, day time.Time, limit int) ([]entity.CycleReport, error)
}

type streamHub interface {
	Subscribe(ctx context.Context, userID int64) <-chan entity.DesktopNotification
}

type Usecase struct {
	repoDB      repoDB
	repoMQ      repoMQ
	repoArchive repoArchive
	hub         streamHub
	locker      runLocker
	dispatchers map[entity.Channel]Dispatcher
	cfg         config.Config
	uid         uid.NumberID
	clock       clock.Clocker
	validator   validator.Validator
	ins         instrument.Instrumentation
	opts        cycleOptions
	lifetime    context.Context
	deliveries  metric.Int64Counter
	pairs       metric.Int64Counter
}

type Dependency struct {
	RepoDB      repoDB
	RepoMQ      repoMQ
	RepoArchive repoArchive
	Hub         streamHub
	Locker      runLocker
	Dispatchers []Dispatcher
	Config      config.Config
	UID         uid.NumberID
	Clock       clock.Clocker
	Validator   validator.Validator
	Instrument  instrument.Instrumentation
	// Lifetime ends with the process. Manual cycles outlive the request that
	// started them but stop when it is done.
	Lifetime context.Context
}

func NewNotification(dep Dependency) *Usecase {
	dispatchers := make(map[entity.Channel]Dispatcher, len(dep.Dispatchers))
	for _, d := range dep.Dispatchers {
		dispatchers[d.Channel()] = d
	}

	meter := dep.Instrument.Meter("notification.usecase")
	deliveries, err := meter.Int64Counter("notification.delivery",
		metric.WithDescription("Notification batches delivered or failed, by channel and status"))
	if err != nil {
		slog.Warn("failed to create delivery counter", "error", err)
	}
	pairs, err := meter.Int64Counter("notification.cycle.pairs",
		metric.WithDescription("User preference pairs processed by dispatch cycles, by result"))
	if err != nil {
		slog.Warn("failed to create cycle pair counter", "error", err)
	}

	return &Usecase{
		repoDB:      dep.RepoDB,
		repoMQ:      dep.RepoMQ,
		repoArchive: dep.RepoArchive,
		hub:         dep.Hub,
		locker:      dep.Locker,
		dispatchers: dispatchers,
		cfg:         dep.Config,
		uid:         dep.UID,
		clock:       dep.Clock,
		validator:   dep.Validator,
		ins:         dep.Instrument,
		opts:        newCycleOptions(dep.Config),
		lifetime:    dep.Lifetime,
		deliveries:  deliveries,
		pairs:       pairs,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("notification.usecase").Start(ctx, name)
}
