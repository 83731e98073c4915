package notification

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shandysiswandi/irnotify/internal/notification/inbound"
	"github.com/shandysiswandi/irnotify/internal/notification/outbound/archive"
	"github.com/shandysiswandi/irnotify/internal/notification/outbound/channel"
	"github.com/shandysiswandi/irnotify/internal/notification/outbound/db"
	"github.com/shandysiswandi/irnotify/internal/notification/outbound/mq"
	"github.com/shandysiswandi/irnotify/internal/notification/outbound/stream"
	"github.com/shandysiswandi/irnotify/internal/notification/usecase"
	"github.com/shandysiswandi/irnotify/internal/pkg/clock"
	"github.com/shandysiswandi/irnotify/internal/pkg/config"
	"github.com/shandysiswandi/irnotify/internal/pkg/goroutine"
	"github.com/shandysiswandi/irnotify/internal/pkg/instrument"
	"github.com/shandysiswandi/irnotify/internal/pkg/mail"
	"github.com/shandysiswandi/irnotify/internal/pkg/messaging"
	"github.com/shandysiswandi/irnotify/internal/pkg/router"
	"github.com/shandysiswandi/irnotify/internal/pkg/runlock"
	"github.com/shandysiswandi/irnotify/internal/pkg/storage"
	"github.com/shandysiswandi/irnotify/internal/pkg/uid"
	"github.com/shandysiswandi/irnotify/internal/pkg/validator"
)

var errMissingDependency = errors.New("notification: database, router and clock are required")

type Dependency struct {
	Ctx        context.Context
	DBConn     *pgxpool.Pool
	Messaging  messaging.Messaging
	Storage    storage.Storage
	Locker     runlock.Locker
	Config     config.Config
	Instrument instrument.Instrumentation
	UID        uid.NumberID
	UUID       uid.StringID
	Clock      clock.Clocker
	Goroutine  *goroutine.Manager
	Validator  validator.Validator
	Router     *router.Router
	Mail       mail.Mail
	// Location is the timezone the cron spec is evaluated in.
	Location *time.Location
}

func New(dep Dependency) error {
	if dep.DBConn == nil || dep.Router == nil || dep.Clock == nil {
		return errMissingDependency
	}

	cfg := dep.Config
	hub := stream.NewHub()
	httpClient := &http.Client{Timeout: cfg.GetSecond("modules.notification.send_timeout_seconds")}

	emailDispatcher, err := channel.NewEmail(dep.Mail, dep.UUID, dep.Instrument, channel.EmailConfig{
		SenderName:      cfg.GetString("modules.notification.email.from_name"),
		MessageIDDomain: cfg.GetString("modules.notification.email.message_id_domain"),
		RatePerSecond:   cfg.GetFloat64("modules.notification.rate_per_second.email"),
	})
	if err != nil {
		return err
	}

	smsDispatcher, err := channel.NewSMS(httpClient, dep.Instrument, channel.SMSConfig{
		BaseURL:       cfg.GetString("modules.notification.sms.base_url"),
		APIKey:        cfg.GetString("modules.notification.sms.api_key"),
		SenderID:      cfg.GetString("modules.notification.sms.sender_id"),
		RatePerSecond: cfg.GetFloat64("modules.notification.rate_per_second.sms"),
		MaxLength:     cfg.GetInt("modules.notification.sms.max_length"),
	})
	if err != nil {
		return err
	}

	mobileDispatcher := channel.NewMobile(httpClient, dep.Instrument, channel.PushConfig{
		BaseURL:       cfg.GetString("modules.notification.push.base_url"),
		ServerKey:     cfg.GetString("modules.notification.push.server_key"),
		RatePerSecond: cfg.GetFloat64("modules.notification.rate_per_second.mobile"),
	})

	ucDep := usecase.Dependency{
		RepoDB: db.NewDB(dep.DBConn, dep.UID, dep.Clock, dep.Instrument),
		Hub:    hub,
		Dispatchers: []usecase.Dispatcher{
			emailDispatcher,
			smsDispatcher,
			mobileDispatcher,
			channel.NewDesktop(hub, dep.UUID, dep.Clock, dep.Instrument),
		},
		Config:     cfg,
		UID:        dep.UID,
		Clock:      dep.Clock,
		Validator:  dep.Validator,
		Instrument: dep.Instrument,
		Lifetime:   dep.Ctx,
	}

	// interface fields stay nil unless the backing client exists
	if dep.Messaging != nil {
		ucDep.RepoMQ = mq.NewMessaging(dep.Messaging, dep.Instrument)
	}
	if bucket := strings.TrimSpace(cfg.GetString("modules.notification.archive.bucket")); dep.Storage != nil && bucket != "" {
		ucDep.RepoArchive = archive.New(dep.Storage, bucket, dep.Instrument)
	}
	if dep.Locker != nil {
		ucDep.Locker = dep.Locker
	}

	uc := usecase.NewNotification(ucDep)

	inbound.RegisterHTTPEndpoint(dep.Router, uc)
	if dep.Ctx == nil {
		return nil
	}

	if dep.Messaging != nil {
		inbound.RegisterMQConsumer(dep.Ctx, cfg, dep.Goroutine, dep.Messaging, dep.UUID, uc, dep.Instrument)
	}

	loc := dep.Location
	if loc == nil {
		loc = time.Local
	}

	return inbound.RegisterScheduler(dep.Ctx, cfg, dep.Goroutine, dep.UUID, uc, loc)
}
