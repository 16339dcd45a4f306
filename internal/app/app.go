package app

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/dreamworld-backend/internal/data/db"
	"github.com/yungbote/dreamworld-backend/internal/data/repos"
	"github.com/yungbote/dreamworld-backend/internal/http"
	"github.com/yungbote/dreamworld-backend/internal/observability"
	"github.com/yungbote/dreamworld-backend/internal/platform/envutil"
	"github.com/yungbote/dreamworld-backend/internal/platform/logger"
	"github.com/yungbote/dreamworld-backend/internal/realtime"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Repos    repos.Set
	Clients  Clients
	Services Services
	Hub      *realtime.Hub
	Metrics  *observability.Metrics

	dbService    *db.Service
	shutdownOTel func(context.Context) error
}

// New loads configuration, connects storage and wires every component. Nothing
// runs until Run is called.
func New(ctx context.Context) (*App, error) {
	applied, overlayErr := envutil.LoadOverlay(envutil.String("CONFIG_FILE", ""))
	cfg := LoadConfig()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	if overlayErr != nil {
		log.Sync()
		return nil, overlayErr
	}
	if len(applied) > 0 {
		log.Info("config overlay applied", "keys", applied)
	}

	shutdownOTel := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})
	metrics := observability.Init(log)

	dbService, err := db.NewService(log, cfg.DB)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	theDB := dbService.DB()
	if err := db.AutoMigrateAll(theDB); err != nil {
		_ = dbService.Close()
		log.Sync()
		return nil, fmt.Errorf("automigrate: %w", err)
	}

	hub := realtime.NewHub(log)
	clients, err := wireClients(log, cfg, hub)
	if err != nil {
		_ = dbService.Close()
		log.Sync()
		return nil, err
	}

	reposet := repos.NewSet(theDB, log)
	serviceset, err := wireServices(theDB, log, cfg, reposet, clients)
	if err != nil {
		clients.Close(ctx)
		_ = dbService.Close()
		log.Sync()
		return nil, err
	}

	handlerset := wireHandlers(theDB, log, serviceset, hub)
	router := wireRouter(log, cfg, metrics, handlerset)

	return &App{
		Log:          log,
		DB:           theDB,
		Router:       router,
		Cfg:          cfg,
		Repos:        reposet,
		Clients:      clients,
		Services:     serviceset,
		Hub:          hub,
		Metrics:      metrics,
		dbService:    dbService,
		shutdownOTel: shutdownOTel,
	}, nil
}

// Run serves HTTP and, unless RUN_WORKERS=false, drives the job worker and the
// pending sweeper until ctx is cancelled or a component fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)

	if a.Clients.Redis {
		if err := a.Clients.Bus.StartForwarder(gctx, a.Hub.Broadcast); err != nil {
			return fmt.Errorf("start event forwarder: %w", err)
		}
	}
	if a.Metrics != nil {
		a.Metrics.StartJobQueueCollector(gctx, a.Log, a.DB, a.Cfg.QueueSampleInterval)
	}

	if a.Cfg.RunWorkers {
		if err := a.Services.Sweeper.Start(gctx); err != nil {
			return fmt.Errorf("start sweeper: %w", err)
		}
		a.Services.Worker.Start(gctx)
		g.Go(func() error {
			a.Services.Worker.Wait()
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			a.Services.Sweeper.Stop()
			return nil
		})
	}

	srv := &http.Server{Engine: a.Router, ShutdownTimeout: a.Cfg.ShutdownGracePeriod}
	g.Go(func() error {
		addr := net.JoinHostPort("", a.Cfg.Port)
		a.Log.Info("http server listening", "addr", addr)
		if err := srv.Run(gctx, addr); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		a.Log.Info("http server stopped")
		return nil
	})

	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a.Clients.Close(ctx)
	if a.shutdownOTel != nil {
		if err := a.shutdownOTel(ctx); err != nil && a.Log != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	if a.dbService != nil {
		_ = a.dbService.Close()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
