package app

import (
	"context"
	"fmt"
	"net"
	"os"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/oni-coach-backend/internal/data/db"
	apphttp "github.com/yungbote/oni-coach-backend/internal/http"
	"github.com/yungbote/oni-coach-backend/internal/observability"
	"github.com/yungbote/oni-coach-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Server   *apphttp.Server
	Cfg      Config
	Repos    Repos
	Clients  Clients
	Services Services

	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	ctx, cancel := context.WithCancel(context.Background())
	fail := func(err error) (*App, error) {
		cancel()
		log.Sync()
		return nil, err
	}

	shutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "oni-coach",
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})

	theDB, err := openDB(log, cfg)
	if err != nil {
		return fail(err)
	}
	if err := db.AutoMigrateAll(theDB); err != nil {
		return fail(fmt.Errorf("automigrate: %w", err))
	}
	sqlDB, err := theDB.DB()
	if err != nil {
		return fail(fmt.Errorf("sql handle: %w", err))
	}

	reposet := wireRepos(theDB, log)
	clientset, err := wireClients(log)
	if err != nil {
		return fail(err)
	}
	serviceset, err := wireServices(ctx, theDB, log, cfg, reposet, clientset)
	if err != nil {
		return fail(err)
	}
	handlerset := wireHandlers(log, sqlDB, clientset, serviceset)

	var metrics *observability.Metrics
	if observability.Enabled() {
		metrics = observability.Init(log)
	}
	server := apphttp.NewServer(routerConfig(log, cfg, metrics, handlerset))

	return &App{
		Log:          log,
		DB:           theDB,
		Server:       server,
		Cfg:          cfg,
		Repos:        reposet,
		Clients:      clientset,
		Services:     serviceset,
		otelShutdown: shutdown,
		cancel:       cancel,
	}, nil
}

func openDB(log *logger.Logger, cfg Config) (*gorm.DB, error) {
	switch cfg.DBDriver {
	case "sqlite":
		s, err := db.NewSQLiteService(log, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("init sqlite: %w", err)
		}
		return s.DB(), nil
	case "postgres", "":
		pg, err := db.NewPostgresService(log)
		if err != nil {
			return nil, fmt.Errorf("init postgres: %w", err)
		}
		return pg.DB(), nil
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
	}
}

func routerConfig(log *logger.Logger, cfg Config, metrics *observability.Metrics, h Handlers) apphttp.RouterConfig {
	return apphttp.RouterConfig{
		Log:               log,
		InternalSecret:    cfg.InternalSecret,
		Metrics:           metrics,
		HealthHandler:     h.Health,
		ScheduleHandler:   h.Schedule,
		CommitmentHandler: h.Commitment,
		ConfigHandler:     h.Config,
		DeviceHandler:     h.Device,
		WorkerHandler:     h.Worker,
	}
}

// Run serves HTTP and, unless WORKER_ENABLED=false, runs the schedule worker
// until ctx is done or either fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.Server.Run(ctx, net.JoinHostPort("", a.Cfg.Port))
	})
	if a.Cfg.RunWorker {
		g.Go(func() error { return a.Services.Worker.Start(ctx) })
	} else {
		a.Log.Info("schedule worker disabled")
	}
	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Clients.ConfigBus != nil {
		if err := a.Clients.ConfigBus.Close(); err != nil {
			a.Log.Warn("config bus close failed", "error", err)
		}
	}
	if a.otelShutdown != nil {
		if err := a.otelShutdown(context.Background()); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
