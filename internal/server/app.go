// Package server is the composition root of the auth core. It opens the
// database, builds the flag registry, metrics store, auth logger, migration
// engine and session provider once, and runs the HTTP API, the gRPC health
// endpoint and the snapshot scheduler until shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/chapterhub/internal/cryptox"
	"github.com/dmitrijs2005/chapterhub/internal/logging"
	"github.com/dmitrijs2005/chapterhub/internal/server/authlog"
	"github.com/dmitrijs2005/chapterhub/internal/server/config"
	"github.com/dmitrijs2005/chapterhub/internal/server/featureflags"
	"github.com/dmitrijs2005/chapterhub/internal/server/httpapi"
	"github.com/dmitrijs2005/chapterhub/internal/server/metrics"
	"github.com/dmitrijs2005/chapterhub/internal/server/migration"
	"github.com/dmitrijs2005/chapterhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/chapterhub/internal/server/services"
	"github.com/dmitrijs2005/chapterhub/internal/server/session"

	gs "github.com/dmitrijs2005/chapterhub/internal/server/grpc"
)

type App struct {
	config    *config.Config
	logger    logging.Logger
	db        *sql.DB
	flags     *featureflags.Registry
	store     *metrics.Store
	events    *authlog.Logger
	auth      *services.AuthService
	http      *httpapi.Server
	grpc      *gs.GRPCServer
	scheduler *metrics.Scheduler
}

var openDB = func(dsn string) (*sql.DB, error) { return sql.Open("pgx", dsn) }

// NewApp connects to PostgreSQL, applies migrations and wires the server.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, "info")

	db, err := openDB(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	repos := repomanager.NewPostgresRepositoryManager()
	if err := repos.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	app, err := newApp(ctx, c, db, repos, logger, nil)
	if err != nil {
		db.Close()
		return nil, err
	}
	return app, nil
}

// newApp builds every component over an open database. Auth records go to
// recordOut, or to stdout/stderr when it is nil.
func newApp(ctx context.Context, c *config.Config, db *sql.DB, repos repomanager.RepositoryManager, logger logging.Logger, recordOut io.Writer) (*App, error) {
	flags := featureflags.New(c.FeatureFlags)
	if v := flags.Validate(); !v.OK {
		for _, w := range v.Warnings {
			logger.Warn(ctx, "feature flag configuration", "warning", w)
		}
	}

	store := metrics.NewStore()
	events := authlog.New([]authlog.Subscriber{
		authlog.NewLogSink(recordOut, recordOut, recordOut),
		authlog.NewMetricSink(store),
	}, authlog.WithOperationalLogger(logger))

	hasher := cryptox.NewHasher(c.HashConcurrency, cryptox.DefaultParams)

	engine := migration.NewEngine(db, repos, flags, hasher, events, logger)
	provider := session.NewProvider(db, repos, hasher, events, session.Config{
		SecretKey:    []byte(c.SecretKey),
		Validity:     c.SessionValidity,
		CookieName:   c.CookieName,
		CookieSecure: c.CookieSecure,
	})
	auth := services.NewAuthService(engine, provider, flags, store, events, logger, services.BreakerSettings{})

	var archiver metrics.Archiver
	if c.S3Bucket != "" {
		a, err := metrics.NewS3Archiver(ctx, metrics.S3Config{
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			User:         c.S3User,
			Password:     c.S3Password,
			BaseEndpoint: c.S3BaseEndpoint,
			Prefix:       c.S3Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("snapshot archive: %w", err)
		}
		archiver = a
	}

	registry := prometheus.NewRegistry()
	if err := registry.Register(metrics.NewCollector(store)); err != nil {
		return nil, fmt.Errorf("register collector: %w", err)
	}

	handler := httpapi.NewHandler(auth, flags, provider.CookieName(), logger)
	router := httpapi.NewRouter(handler, httpapi.RateLimit{
		Requests: c.RateLimitRequests,
		Window:   c.RateLimitWindow,
	}, registry)

	return &App{
		config:    c,
		logger:    logger,
		db:        db,
		flags:     flags,
		store:     store,
		events:    events,
		auth:      auth,
		http:      httpapi.NewServer(c.HTTPAddr, router, logger),
		grpc:      gs.NewGRPCServer(c.GRPCAddr, logger, flags),
		scheduler: metrics.NewScheduler(store, c.CaptureSchedule, engine, archiver, logger),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until ctx is cancelled, a termination signal arrives or one of
// the servers fails. The database is closed on the way out.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "flags", app.flags.Snapshot())

	app.initSignalHandler(cancelFunc)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return app.http.Run(ctx) })
	g.Go(func() error { return app.grpc.Run(ctx) })
	g.Go(func() error { return app.scheduler.Run(ctx) })

	err := g.Wait()
	if cerr := app.db.Close(); cerr != nil {
		app.logger.Warn(ctx, "db close error", "error", cerr)
	}
	app.logger.Info(ctx, "App stopped")
	return err
}
