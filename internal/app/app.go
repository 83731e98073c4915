package app

import (
	"context"
	"net/http"
	"time"

	"github.com/casbin/casbin/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/irnotify/internal/pkg/clock"
	"github.com/shandysiswandi/irnotify/internal/pkg/config"
	"github.com/shandysiswandi/irnotify/internal/pkg/goroutine"
	"github.com/shandysiswandi/irnotify/internal/pkg/instrument"
	"github.com/shandysiswandi/irnotify/internal/pkg/jwt"
	"github.com/shandysiswandi/irnotify/internal/pkg/mail"
	"github.com/shandysiswandi/irnotify/internal/pkg/messaging"
	"github.com/shandysiswandi/irnotify/internal/pkg/router"
	"github.com/shandysiswandi/irnotify/internal/pkg/runlock"
	"github.com/shandysiswandi/irnotify/internal/pkg/storage"
	"github.com/shandysiswandi/irnotify/internal/pkg/uid"
	"github.com/shandysiswandi/irnotify/internal/pkg/validator"
)

// App wires dependencies and manages service lifecycle.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	// configuration
	config   config.Config
	ins      instrument.Instrumentation
	location *time.Location

	// libraries
	goroutine *goroutine.Manager
	validator validator.Validator
	clock     clock.Clocker
	uid       uid.NumberID
	uuid      uid.StringID
	jwt       jwt.JWT

	// resources
	dbConn    *pgxpool.Pool
	cacheConn *redis.Client
	locker    runlock.Locker
	mail      mail.Mail
	messaging messaging.Messaging
	storage   storage.Storage
	casbin    *casbin.Enforcer

	// server
	router     *router.Router
	httpServer *http.Server
	sseServer  *http.Server

	// released in order by Stop
	closers []closer
}

type closer struct {
	name string
	fn   func(context.Context) error
}

// New initializes the application with default wiring and returns an App instance.
func New() *App {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		ctx:    ctx,
		cancel: cancel,
	}

	app.initConfig()
	app.initInstrument()
	app.initLibraries()
	app.initJWT()
	app.initDatabase()
	app.initCache()
	app.initMail()
	app.initStorage()
	app.initMessaging()
	app.initCasbin()
	app.initHTTPServer()
	app.initModules()
	app.initClosers()

	return app
}
