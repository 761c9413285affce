package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/Tous-India/server-kb-crm-sub000/docs"
	"github.com/Tous-India/server-kb-crm-sub000/internal/application/fulfillment"
	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/shared"
	"github.com/Tous-India/server-kb-crm-sub000/internal/domain/shared/valueobject"
	"github.com/Tous-India/server-kb-crm-sub000/internal/infrastructure/cache"
	"github.com/Tous-India/server-kb-crm-sub000/internal/infrastructure/config"
	"github.com/Tous-India/server-kb-crm-sub000/internal/infrastructure/event"
	"github.com/Tous-India/server-kb-crm-sub000/internal/infrastructure/lock"
	"github.com/Tous-India/server-kb-crm-sub000/internal/infrastructure/logger"
	"github.com/Tous-India/server-kb-crm-sub000/internal/infrastructure/persistence"
	"github.com/Tous-India/server-kb-crm-sub000/internal/infrastructure/telemetry"
	"github.com/Tous-India/server-kb-crm-sub000/internal/interfaces/http/handler"
	"github.com/Tous-India/server-kb-crm-sub000/internal/interfaces/http/middleware"
	"github.com/Tous-India/server-kb-crm-sub000/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

//	@title			Aviation Parts Fulfillment API
//	@version		1.0
//	@description	Identifier allocation, dispatch reconciliation, payment ledgers and document conversion for aviation parts orders.

//	@contact.name	Fulfillment API Support

//	@host		localhost:8080
//	@BasePath	/api/v1

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	baseLog, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()
	serviceName := cfg.Telemetry.ServiceName
	if serviceName == "" {
		serviceName = cfg.App.Name
	}

	// OTLP logs go out through a bridge core on top of the console/json logger
	logProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       serviceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize OTEL logs", zap.Error(err))
	}
	log := logProvider.Bridge(baseLog, logger.ParseLevel(cfg.Log.Level))
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting fulfillment service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       serviceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       serviceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	meter := meterProvider.Meter(serviceName)

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.PyroscopeEndpoint,
		ApplicationName: serviceName,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() {
		if err := tracerProvider.EnableSpanProfiles(); err != nil {
			log.Warn("Failed to link spans to profiles", zap.Error(err))
		}
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
	db, err := persistence.Open(&cfg.Database, persistence.WithGormLogger(gormLog))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connected successfully")

	if cfg.Telemetry.DBTraceEnabled {
		plugin := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:         true,
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		}, log)
		if err := plugin.Register(db.DB); err != nil {
			log.Fatal("Failed to register database tracing", zap.Error(err))
		}
	}
	if meterProvider.IsEnabled() {
		sqlDB, err := db.DB.DB()
		if err != nil {
			log.Fatal("Failed to get sql.DB", zap.Error(err))
		}
		dbMetrics, err := telemetry.NewDBMetrics(meter, sqlDB, cfg.Telemetry.DBSlowQueryThresh, log)
		if err != nil {
			log.Fatal("Failed to create database metrics", zap.Error(err))
		}
		if err := dbMetrics.Register(db.DB); err != nil {
			log.Fatal("Failed to register database metrics", zap.Error(err))
		}
	}

	healthChecks := map[string]handler.Pinger{
		"database": db,
	}

	// Redis backs the cross-instance document lock and handler idempotency
	var (
		redisClient      *redis.Client
		locker           fulfillment.DocumentLocker = fulfillment.NoopLocker{}
		idempotencyStore shared.IdempotencyStore
	)
	if cfg.Fulfillment.DocumentLock == config.DocumentLockRedis {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to redis", zap.Error(err))
		}
		opts := lock.DefaultOptions()
		if cfg.Fulfillment.LockExpiry > 0 {
			opts.Expiry = cfg.Fulfillment.LockExpiry
		}
		locker = lock.NewRedisDocumentLocker(redisClient, opts, log)
		idempotencyStore = cache.NewRedisIdempotencyStore(redisClient, "avp:event:")
		healthChecks["redis"] = cache.NewPinger(redisClient)
		log.Info("Redis document lock enabled", zap.String("addr", cfg.Redis.Addr()))
	} else {
		idempotencyStore = cache.NewInMemoryIdempotencyStore(time.Minute)
	}

	rates, err := rateTable(cfg.Currency)
	if err != nil {
		log.Fatal("Invalid currency configuration", zap.Error(err))
	}

	repos := persistence.NewFulfillmentRepositories(db.DB)
	allocator := fulfillment.NewIdentifierAllocator(repos.Counters)
	serviceCfg := fulfillment.ServiceConfig{
		TxScope:   persistence.NewGormTransactionScope(db.DB),
		Repos:     repos,
		Allocator: allocator,
		Logger:    log,
	}
	documentService := fulfillment.NewDocumentService(serviceCfg)
	documentService.SetPricingDefaults(fulfillment.PricingDefaults{
		TaxRate: decimal.NewFromFloat(cfg.Fulfillment.DefaultTaxRate),
		Rates:   rates,
	})
	reconciliationService := fulfillment.NewReconciliationService(serviceCfg)
	ledgerService := fulfillment.NewLedgerService(serviceCfg)
	paymentRecordService := fulfillment.NewPaymentRecordService(serviceCfg)
	conversionService := fulfillment.NewConversionService(serviceCfg, reconciliationService)

	fulfillmentMetrics, err := telemetry.NewFulfillmentMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create fulfillment metrics", zap.Error(err))
	}

	eventBus := event.NewInMemoryEventBus(log)
	journal := event.NewGormJournalRepository(db.DB)
	eventBus.Subscribe(event.NewAuditHandler(journal, event.NewFulfillmentSerializer(), log))
	eventBus.Subscribe(event.NewIdempotentHandler(
		fulfillment.NewDispatchDeliveredHandler(reconciliationService, repos.Dispatches, log),
		idempotencyStore,
		log,
		event.WithHandlerName("dispatch_delivered"),
	))
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	retry := fulfillment.RetryConfig{
		MaxAttempts: cfg.Fulfillment.MaxConflictRetries,
		BaseDelay:   cfg.Fulfillment.RetryBaseDelay,
	}
	for _, svc := range []interface {
		SetEventPublisher(shared.EventPublisher)
		SetMetrics(fulfillment.MetricsRecorder)
		SetLocker(fulfillment.DocumentLocker)
		SetRetryConfig(fulfillment.RetryConfig)
	}{documentService, reconciliationService, ledgerService, paymentRecordService, conversionService} {
		svc.SetEventPublisher(eventBus)
		svc.SetMetrics(fulfillmentMetrics)
		svc.SetLocker(locker)
		svc.SetRetryConfig(retry)
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	httpMetrics, err := middleware.HTTPMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create HTTP metrics", zap.Error(err))
	}

	// Order matters: the span must exist before the request logger reads it,
	// and recovery must wrap everything after it.
	engine.Use(middleware.Tracing(serviceName))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.SpanEnricher())
	engine.Use(middleware.Secure())
	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	engine.Use(httpMetrics)
	engine.Use(middleware.Profiling(middleware.ProfilingConfig{
		Enabled:   profiler.IsEnabled(),
		SkipPaths: middleware.DefaultProfilingConfig().SkipPaths,
	}))

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	router.Mount(r, router.Handlers{
		Sequences:      handler.NewSequenceHandler(allocator),
		Documents:      handler.NewDocumentHandler(documentService),
		Conversions:    handler.NewConversionHandler(conversionService),
		Dispatches:     handler.NewDispatchHandler(reconciliationService),
		Ledger:         handler.NewLedgerHandler(ledgerService),
		PaymentRecords: handler.NewPaymentRecordHandler(paymentRecordService),
		Events:         handler.NewEventHandler(journal),
		Health:         handler.NewHealthHandler(telemetry.ServiceVersion, healthChecks),
		Docs:           ginSwagger.WrapHandler(swaggerFiles.Handler),
	})
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	// release in reverse order of construction
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	if err := idempotencyStore.Close(); err != nil {
		log.Error("Error closing idempotency store", zap.Error(err))
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("Error closing redis client", zap.Error(err))
		}
	}
	if err := db.Close(); err != nil {
		log.Error("Error closing database", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Error("Error stopping profiler", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
	log.Info("Server exited gracefully")
	if err := logProvider.Shutdown(shutdownCtx); err != nil {
		baseLog.Error("Error shutting down logger provider", zap.Error(err))
	}
}

func rateTable(cfg config.CurrencyConfig) (*valueobject.RateTable, error) {
	base := valueobject.DefaultCurrency
	if cfg.Base != "" {
		parsed, err := valueobject.ParseCurrency(cfg.Base)
		if err != nil {
			return nil, err
		}
		base = parsed
	}
	return valueobject.NewRateTable(base, cfg.Rates)
}
