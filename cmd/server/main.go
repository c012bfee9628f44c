package main

import (
	"context"
	"log"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/fastygo/tikshop/api/handler"
	"github.com/fastygo/tikshop/domain"
	"github.com/fastygo/tikshop/internal/config"
	"github.com/fastygo/tikshop/internal/infrastructure/eventlog"
	"github.com/fastygo/tikshop/internal/infrastructure/monitor"
	pgInfra "github.com/fastygo/tikshop/internal/infrastructure/postgres"
	redisInfra "github.com/fastygo/tikshop/internal/infrastructure/redis"
	"github.com/fastygo/tikshop/internal/middleware"
	"github.com/fastygo/tikshop/internal/router"
	"github.com/fastygo/tikshop/internal/services"
	"github.com/fastygo/tikshop/internal/services/feed"
	"github.com/fastygo/tikshop/internal/services/lifecycle"
	"github.com/fastygo/tikshop/pkg/httpcontext"
	"github.com/fastygo/tikshop/pkg/imagecodec"
	"github.com/fastygo/tikshop/pkg/logger"
	"github.com/fastygo/tikshop/repository/postgres"
	redisRepo "github.com/fastygo/tikshop/repository/redis"
	"github.com/fastygo/tikshop/usecase"
	analyticsUC "github.com/fastygo/tikshop/usecase/analytics"
	catalogUC "github.com/fastygo/tikshop/usecase/catalog"
	dashboardUC "github.com/fastygo/tikshop/usecase/dashboard"
	productUC "github.com/fastygo/tikshop/usecase/product"
	sessionUC "github.com/fastygo/tikshop/usecase/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:       cfg.Logger.Level,
		Encoding:    cfg.Logger.Encoding,
		Service:     cfg.AppName,
		Development: cfg.Environment == "development",
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	loc, _ := cfg.Location()
	clock := clockwork.NewRealClock()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
		zapLogger.Fatal("migrations failed", zap.Error(err))
	}

	pool, err := pgInfra.NewPool(appCtx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("postgres connection failed", zap.Error(err))
	}
	manager.Register("postgres", func(ctx context.Context) error {
		pgInfra.Close(pool, zapLogger)
		return nil
	})

	redisClient, err := redisInfra.NewClient(appCtx, cfg.Redis, zapLogger)
	if err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	manager.RegisterCloser("redis", redisClient)

	eventStore, err := eventlog.Open(cfg.EventLog.Path)
	if err != nil {
		zapLogger.Fatal("failed to open event log", zap.Error(err))
	}
	manager.RegisterCloser("event_log", eventStore)

	mon := monitor.New(pool, redisClient, eventStore, 10*time.Second, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	productRepo := postgres.NewProductRepository(pool)
	sessionRepo := redisRepo.NewSessionRepository(redisClient)

	feedLogger := logger.Named(zapLogger, "feed")
	hub := feed.NewHub(postgres.NewProductFeed(pool, productRepo, feedLogger), 0, feedLogger)
	manager.Go(appCtx, "catalog_feed", hub.Run)

	aggregator := analyticsUC.New(eventStore, analyticsUC.Config{
		Capacity:  cfg.EventLog.Capacity,
		Retention: cfg.EventLog.Retention,
		Location:  loc,
	}, clock, logger.Named(zapLogger, "analytics"))

	guard := sessionUC.NewGuard(sessionRepo, sessionUC.Config{
		PasswordHash: cfg.Admin.PasswordHash,
		Timeout:      cfg.Admin.SessionTimeout,
		JWTSecret:    cfg.JWT.Secret,
		Issuer:       cfg.JWT.Issuer,
	}, clock, logger.Named(zapLogger, "session"))

	catalogService := catalogUC.NewService(productRepo, hub, aggregator, catalogUC.ServiceConfig{
		WhatsAppNumber: cfg.Shop.WhatsAppNumber,
		Currency:       cfg.Shop.Currency,
	}, logger.Named(zapLogger, "catalog"))

	// the dashboard reads counters from its own unfiltered live mirror
	dashboardMirror := catalogService.NewSynchronizer(domain.DefaultFilter())
	if err := dashboardMirror.Start(appCtx); err != nil {
		zapLogger.Warn("dashboard catalog mirror unavailable", zap.Error(err))
	}
	manager.Register("dashboard_mirror", func(ctx context.Context) error {
		dashboardMirror.Close()
		return nil
	})
	dashboardService := dashboardUC.New(dashboardMirror, aggregator, clock, zapLogger)

	codec := imagecodec.New(imagecodec.Options{
		MaxInputBytes: cfg.Images.MaxImageBytes,
		MaxImages:     cfg.Images.MaxImages,
	}, zapLogger)
	productUseCase := productUC.New(productRepo, codec, usecase.NewDispatcher(zapLogger), productUC.Config{
		MaxDocumentSize: cfg.Images.MaxDocumentSize,
	}, zapLogger)

	scheduler, err := services.NewScheduler(dashboardService, aggregator, zapLogger, services.SchedulerConfig{
		RefreshInterval: cfg.Analytics.RefreshInterval,
		RetentionSpec:   cfg.Analytics.RetentionCron,
	})
	if err != nil {
		zapLogger.Fatal("scheduler setup failed", zap.Error(err))
	}
	scheduler.Start()
	manager.Register("scheduler", func(ctx context.Context) error {
		scheduler.Stop(ctx)
		return nil
	})

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Catalog:     apiHandler.NewCatalogHandler(catalogService, ctxAdapter, zapLogger),
		Preferences: apiHandler.NewPreferencesHandler(eventStore, ctxAdapter, zapLogger),
		Session:     apiHandler.NewSessionHandler(guard, cfg.Admin.EntryPoint, ctxAdapter, zapLogger),
		Admin:       apiHandler.NewAdminHandler(productUseCase, codec, dashboardService, aggregator, ctxAdapter, zapLogger),
		Health:      apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}

	adminMiddleware := middleware.AdminSession(guard, cfg.Admin.EntryPoint, cfg.Context.RequestTimeout, zapLogger)
	r := router.New(handlers, adminMiddleware)

	server := &fasthttp.Server{
		Handler:            r.Handler,
		ReadTimeout:        cfg.HTTP.ReadTimeout,
		WriteTimeout:       cfg.HTTP.WriteTimeout,
		IdleTimeout:        cfg.HTTP.IdleTimeout,
		HeaderReceived:     apiHandler.StreamRequestConfig(cfg.HTTP.StreamTimeout, router.StreamPaths()...),
		Concurrency:        cfg.HTTP.MaxConn,
		MaxRequestBodySize: cfg.HTTP.MaxBodySize,
		Name:               cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
