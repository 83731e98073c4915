package app

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/segmentio/kafka-go"
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
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

// configDefaults keeps a bare config file runnable.
var configDefaults = map[string]any{
	"app.tz":                       "UTC",
	"app.server.http.address":      ":8080",
	"app.server.sse.address":       ":8081",
	"app.server.max_goroutine":     50,
	"uid.node":                     1,
	"jwt.ttl_minutes":              60,
	"modules.notification.enabled": true,
	"modules.notification.workers": 5,
	"modules.notification.cron":    "0 8 * * *",
}

func (a *App) initConfig() {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "/config/config.yaml"
		if os.Getenv("LOCAL") == "true" {
			path = "./config/config.yaml"
		}
	}

	cfg, err := config.NewViper(path, config.WithDefaults(configDefaults), config.WithEnvPrefix("IRNOTIFY"))
	if err != nil {
		slog.Error("failed to init config", "error", err)
		os.Exit(1)
	}

	loc, err := time.LoadLocation(cfg.GetString("app.tz"))
	if err != nil {
		slog.Error("failed to load app.tz location", "tz", cfg.GetString("app.tz"), "error", err)
		os.Exit(1)
	}

	a.config = cfg
	a.location = loc
}

func (a *App) initInstrument() {
	ins, err := instrument.New(context.Background(), &instrument.Config{
		Enabled:          a.config.GetBool("instrument.enabled"),
		ServiceName:      a.config.GetString("instrument.service_name"),
		ServiceVersion:   a.config.GetString("instrument.service_version"),
		Environment:      a.config.GetString("instrument.env"),
		OTLPEndpoint:     a.config.GetString("instrument.otlp_endpoint"),
		OTLPSecure:       a.config.GetBool("instrument.otlp_secure"),
		TraceSampleRatio: a.config.GetFloat64("instrument.trace_sample_ratio"),
		MetricsInterval:  a.config.GetSecond("instrument.metric_interval_seconds"),
		MaskFields:       a.config.GetArray("instrument.log_mask_fields"),
	})
	if err != nil {
		slog.Error("failed to init instrumentation", "error", err)
		os.Exit(1)
	}
	a.ins = ins
}

func (a *App) initLibraries() {
	a.clock = clock.NewIn(a.location)
	a.uuid = uid.NewUUID()
	a.goroutine = goroutine.NewManager(a.config.GetInt("app.server.max_goroutine"))

	validator, err := validator.NewV10Validator()
	if err != nil {
		slog.Error("failed to init validation v10 validator", "error", err)
		os.Exit(1)
	}
	a.validator = validator

	snow, err := uid.NewSnowflake(a.config.GetInt64("uid.node"))
	if err != nil {
		slog.Error("failed to init uid number snowflake", "error", err)
		os.Exit(1)
	}
	a.uid = snow
}

func (a *App) initJWT() {
	defaultJWT, err := jwt.NewHS512(jwt.Config{
		Secret:    []byte(a.config.GetString("jwt.secret")),
		Issuer:    a.config.GetString("jwt.issuer"),
		Audiences: a.config.GetArray("jwt.audiences"),
		TTL:       a.config.GetMinute("jwt.ttl_minutes"),
		Leeway:    a.config.GetSecond("jwt.leeway_seconds"),
		Clock:     a.clock,
		UUID:      a.uuid,
	})
	if err != nil {
		slog.Error("failed to init jwt token", "error", err)
		os.Exit(1)
	}
	a.jwt = defaultJWT
}

func (a *App) initDatabase() {
	config, err := pgxpool.ParseConfig(a.config.GetString("database.url"))
	if err != nil {
		slog.Error("failed to parse DB connection string.", "error", err)
		os.Exit(1)
	}

	config.MaxConns = a.config.GetInt32("database.pool.max_conns")
	config.MinConns = a.config.GetInt32("database.pool.min_conns")
	config.MaxConnLifetime = a.config.GetSecond("database.pool.max_conn_lifetime_seconds")
	config.MaxConnIdleTime = a.config.GetSecond("database.pool.max_conn_idle_seconds")
	config.HealthCheckPeriod = a.config.GetSecond("database.pool.health_check_period_seconds")

	pool, err := pgxpool.NewWithConfig(a.ctx, config)
	if err != nil {
		slog.Error("failed to create DB connection pool", "error", err)
		os.Exit(1)
	}

	a.mustPing("database", pool.Ping)
	a.dbConn = pool
}

// mustPing exits when a required backend is unreachable at startup.
func (a *App) mustPing(name string, ping func(context.Context) error) {
	ctx, cancel := context.WithTimeout(a.ctx, 5*time.Second)
	defer cancel()

	if err := ping(ctx); err != nil {
		slog.Error("failed to ping "+name, "error", err)
		os.Exit(1)
	}
}

func (a *App) initCache() {
	opt, err := redis.ParseURL(a.config.GetString("redis.url"))
	if err != nil {
		slog.Error("failed to parse redis url", "error", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(opt)
	a.mustPing("redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() })

	a.cacheConn = rdb
	a.locker = runlock.New(a.cacheConn, a.uuid)
}

func (a *App) initMail() {
	mail, err := mail.NewSMTP(mail.SMTPConfig{
		Host:     a.config.GetString("mail.host"),
		Port:     a.config.GetInt("mail.port"),
		Username: a.config.GetString("mail.username"),
		Password: a.config.GetString("mail.password"),
		From:     a.config.GetString("mail.from"),
	})
	if err != nil {
		slog.Error("failed to init mail", "error", err)
		os.Exit(1)
	}

	a.mail = mail
}

// initStorage leaves a.storage nil when storage.driver is empty; cycle
// reports are then not archived.
func (a *App) initStorage() {
	driver := strings.TrimSpace(a.config.GetString("storage.driver"))
	if driver == "" {
		slog.Info("storage disabled, storage.driver is empty")
		return
	}

	var gcsClient *gcs.Client
	if driver == storage.DriverGCS {
		if opts := a.googleClientOptions("storage.gcs", gcs.ScopeReadWrite); len(opts) > 0 {
			client, err := gcs.NewClient(a.ctx, opts...)
			if err != nil {
				slog.Error("failed to init gcs client", "error", err)
				os.Exit(1)
			}
			gcsClient = client
		}
	}

	stg, err := storage.NewFromDriver(a.ctx, driver, storage.FactoryOptions{
		S3: storage.S3Options{
			Region:       strings.TrimSpace(a.config.GetString("storage.s3.region")),
			Endpoint:     strings.TrimSpace(a.config.GetString("storage.s3.endpoint")),
			AccessKey:    strings.TrimSpace(a.config.GetString("storage.s3.access_key")),
			SecretKey:    strings.TrimSpace(a.config.GetString("storage.s3.secret_key")),
			SessionToken: strings.TrimSpace(a.config.GetString("storage.s3.session_token")),
			UsePathStyle: a.config.GetBool("storage.s3.use_path_style"),
		},
		GCS: storage.GCSOptions{
			Client: gcsClient,
		},
		MinIO: storage.MinIOOptions{
			Region:       strings.TrimSpace(a.config.GetString("storage.minio.region")),
			Endpoint:     strings.TrimSpace(a.config.GetString("storage.minio.endpoint")),
			AccessKey:    strings.TrimSpace(a.config.GetString("storage.minio.access_key")),
			SecretKey:    strings.TrimSpace(a.config.GetString("storage.minio.secret_key")),
			SessionToken: strings.TrimSpace(a.config.GetString("storage.minio.session_token")),
			UseSSL:       a.config.GetBool("storage.minio.use_ssl"),
		},
	})
	if err != nil {
		slog.Error("failed to init storage", "error", err)
		os.Exit(1)
	}

	a.storage = stg
}

// pubsubScope is the OAuth scope for Pub/Sub publish and subscribe.
const pubsubScope = "https://www.googleapis.com/auth/pubsub"

// googleClientOptions reads credentials for a Google client from
// <prefix>.credentials_json or <prefix>.credentials_file. With no options the
// client falls back to application default credentials.
func (a *App) googleClientOptions(prefix, scope string) []option.ClientOption {
	var opts []option.ClientOption
	if a.config.GetBool(prefix + ".without_auth") {
		opts = append(opts, option.WithoutAuthentication())
	}

	credsJSON := a.config.GetBinary(prefix + ".credentials_json")
	if path := strings.TrimSpace(a.config.GetString(prefix + ".credentials_file")); path != "" && len(credsJSON) == 0 {
		// #nosec G304 -- path is from trusted config file.
		data, err := os.ReadFile(path)
		if err != nil {
			slog.Error("failed to read google credentials file", "config", prefix, "error", err)
			os.Exit(1)
		}
		credsJSON = data
	}
	if len(credsJSON) > 0 {
		creds, err := google.CredentialsFromJSON(a.ctx, credsJSON, scope)
		if err != nil {
			slog.Error("failed to parse google credentials", "config", prefix, "error", err)
			os.Exit(1)
		}
		opts = append(opts, option.WithCredentials(creds))
	}

	if endpoint := strings.TrimSpace(a.config.GetString(prefix + ".endpoint")); endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	return opts
}

// initMessaging leaves a.messaging nil when messaging.driver is empty; the
// queue trigger and dispatched events are then disabled.
func (a *App) initMessaging() {
	driver := strings.TrimSpace(a.config.GetString("messaging.driver"))
	if driver == "" {
		slog.Info("messaging disabled, messaging.driver is empty")
		return
	}

	var pubsubOptions []option.ClientOption
	if strings.EqualFold(driver, messaging.DriverPubSub) {
		pubsubOptions = a.googleClientOptions("messaging.pubsub", pubsubScope)
	}

	client, err := messaging.NewFromDriver(a.ctx, driver, messaging.FactoryOptions{
		NSQ: messaging.NSQConfig{
			ProducerAddr: a.config.GetString("messaging.nsq.producer_addr"),
			NSQDAddrs:    a.config.GetArray("messaging.nsq.consumer_nsqd_addrs"),
			LookupdAddrs: a.config.GetArray("messaging.nsq.consumer_lookupd_addrs"),
		},
		NATS: messaging.NATSConfig{
			URL: a.config.GetString("messaging.nats.url"),
			Options: []nats.Option{
				nats.Name(a.config.GetString("messaging.nats.name")),
				nats.MaxReconnects(a.config.GetInt("messaging.nats.max_reconnects")),
				nats.Timeout(a.config.GetSecond("messaging.nats.timeout_seconds")),
				nats.ReconnectWait(a.config.GetSecond("messaging.nats.reconnect_wait_seconds")),
				nats.RetryOnFailedConnect(a.config.GetBool("messaging.nats.retry_on_failed_connect")),
			},
		},
		Kafka: messaging.KafkaConfig{
			Brokers: a.config.GetArray("messaging.kafka.brokers"),
			Dialer: &kafka.Dialer{
				ClientID:  a.config.GetString("messaging.kafka.client_id"),
				Timeout:   a.config.GetSecond("messaging.kafka.dial_timeout_seconds"),
				DualStack: true,
			},
		},
		PubSub: messaging.PubSubConfig{
			ProjectID:     a.config.GetString("messaging.pubsub.project_id"),
			ClientOptions: pubsubOptions,
		},
	})
	if err != nil {
		slog.Error("failed to init messaging", "error", err, "driver", driver)
		os.Exit(1)
	}

	a.messaging = client
}

func (a *App) initCasbin() {
	e, err := router.NewEnforcer(a.config.GetArray("authz.policies"))
	if err != nil {
		slog.Error("failed to init casbin", "error", err)
		os.Exit(1)
	}

	a.casbin = e
}

func (a *App) initHTTPServer() {
	a.router = router.NewRouter(router.Config{
		Config:     a.config,
		UUID:       a.uuid,
		JWT:        a.jwt,
		Instrument: a.ins,
		Enforcer:   a.casbin,
	})
	a.router.GET("/health", a.health)

	handler := cors.New(cors.Options{
		AllowedOrigins:   a.config.GetArray("app.server.cors"),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Accept", "Last-Event-ID", router.HeaderCorrelationID},
		ExposedHeaders:   []string{router.HeaderCorrelationID, "Retry-After"},
		AllowCredentials: true,
	}).Handler(a.router)

	a.httpServer = &http.Server{
		Addr:              a.config.GetString("app.server.http.address"),
		Handler:           handler,
		ReadTimeout:       a.config.GetSecond("app.server.http.read_timeout_seconds"),
		ReadHeaderTimeout: a.config.GetSecond("app.server.http.read_header_timeout_seconds"),
		WriteTimeout:      a.config.GetSecond("app.server.http.write_timeout_seconds"),
		IdleTimeout:       a.config.GetSecond("app.server.http.idle_timeout_seconds"),
	}

	// no write timeout: desktop streams stay open until the app context ends
	a.sseServer = &http.Server{
		Addr:              a.config.GetString("app.server.sse.address"),
		Handler:           handler,
		ReadHeaderTimeout: a.config.GetSecond("app.server.sse.read_header_timeout_seconds"),
		BaseContext:       func(net.Listener) context.Context { return a.ctx },
	}
}

// initClosers registers resources in release order. Optional clients are
// only added when they were configured.
func (a *App) initClosers() {
	a.closers = append(a.closers, closer{name: "Instrument", fn: a.ins.Shutdown})

	if a.messaging != nil {
		a.closers = append(a.closers, closer{name: "Messaging", fn: func(context.Context) error { return a.messaging.Close() }})
	}

	a.closers = append(a.closers,
		closer{name: "Mail", fn: func(context.Context) error { return a.mail.Close() }},
		closer{name: "Redis", fn: func(context.Context) error { return a.cacheConn.Close() }},
		closer{name: "Database", fn: func(context.Context) error {
			a.dbConn.Close()
			return nil
		}},
	)

	if a.storage != nil {
		a.closers = append(a.closers, closer{name: "Storage", fn: func(context.Context) error { return a.storage.Close() }})
	}

	a.closers = append(a.closers, closer{name: "Config", fn: func(context.Context) error { return a.config.Close() }})
}
