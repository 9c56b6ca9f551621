package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/salespipe/backend/internal/application/syncengine"
	domainchannel "github.com/salespipe/backend/internal/domain/channel"
	"github.com/salespipe/backend/internal/domain/warehouse"
	infrachannel "github.com/salespipe/backend/internal/infrastructure/channel"
	"github.com/salespipe/backend/internal/infrastructure/config"
	"github.com/salespipe/backend/internal/infrastructure/logger"
	"github.com/salespipe/backend/internal/infrastructure/persistence"
	"github.com/salespipe/backend/internal/infrastructure/runlock"
	"github.com/salespipe/backend/internal/infrastructure/scheduler"
	"github.com/salespipe/backend/internal/infrastructure/telemetry"
	"github.com/salespipe/backend/internal/interfaces/http/handler"
	"github.com/salespipe/backend/internal/interfaces/http/middleware"
	"github.com/salespipe/backend/internal/interfaces/http/router"
)

// maxUploadBytes bounds the cost table upload body
const maxUploadBytes = 4 << 20

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting sales ETL backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Initialize telemetry
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = tracerProvider.Shutdown(shutdownCtx)
	}()

	// Initialize database connection with a GORM logger backed by zap
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		if err := db.EnableTracing(); err != nil {
			log.Fatal("Failed to enable database tracing", zap.Error(err))
		}
	}
	log.Info("Database connected successfully")

	// Warehouse sink
	sink := persistence.NewGormWarehouseStore(db.DB)

	// Channel adapters. A channel with missing credentials stays
	// addressable so sync runs report the misconfiguration.
	registry := buildRegistry(cfg, log)

	// Run lock: distributed when Redis is enabled, in-process otherwise
	var lock runlock.RunLock
	if cfg.Redis.Enabled {
		redisLock, err := runlock.NewRedisRunLock(runlock.RedisLockConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, cfg.Sync.LockTTL)
		if err != nil {
			log.Fatal("Failed to connect run lock to Redis", zap.Error(err))
		}
		lock = redisLock
		log.Info("Using Redis run lock")
	} else {
		lock = runlock.NewMemoryRunLock(cfg.Sync.LockTTL)
	}

	// Application services
	salesSync := syncengine.NewSalesSyncService(sink, registry, syncengine.SyncOptions{
		DefaultWindowDays: cfg.Sync.DefaultWindowDays,
		SortAfterAppend:   cfg.Sync.SortAfterAppend,
	})
	profitability := syncengine.NewProfitabilityService(sink)
	inventory := syncengine.NewInventoryService(sink, inventoryProviders(registry), syncengine.InventoryOptions{
		VelocityLookbackDays: cfg.Inventory.VelocityLookbackDays,
		LeadTimeDays:         cfg.Inventory.LeadTimeDays,
	})
	costs := syncengine.NewCostService(sink)

	// Periodic scheduler
	schedulerCfg := scheduler.DefaultSyncSchedulerConfig()
	schedulerCfg.Enabled = cfg.Scheduler.Enabled
	if cfg.Scheduler.Interval > 0 {
		schedulerCfg.Interval = cfg.Scheduler.Interval
	}
	if !cfg.Scheduler.Jitter {
		schedulerCfg.Jitter = 0
	}
	schedulerCfg.RunTimeout = cfg.Sync.RunTimeout
	syncScheduler := scheduler.NewSyncScheduler(schedulerCfg, salesSync, lock, log)
	syncScheduler.Start()
	defer syncScheduler.Stop()

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Failed to set trusted proxies", zap.Error(err))
	}

	// Middleware stack, outermost first
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.SecurityHeaders())
	engine.Use(middleware.BodyLimit(maxUploadBytes))
	if cfg.Telemetry.Enabled {
		engine.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	}
	engine.Use(middleware.SyncTokenAuth(cfg.HTTP.SyncToken))

	r := router.NewRouter(engine)
	r.Register(handler.NewSystemHandler(db))
	r.Register(handler.NewSyncHandler(salesSync, profitability, inventory, costs, lock, cfg.Sync.RunTimeout))
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
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// buildRegistry constructs the adapter registry from channel credentials
func buildRegistry(cfg *config.Config, log *zap.Logger) *domainchannel.Registry {
	var adapters []domainchannel.Adapter

	shopifyCfg := infrachannel.NewShopifyConfig(cfg.Shopify.ShopDomain, cfg.Shopify.AccessToken)
	if cfg.Shopify.APIVersion != "" {
		shopifyCfg.APIVersion = cfg.Shopify.APIVersion
	}
	if cfg.Shopify.PageSize > 0 {
		shopifyCfg.PageSize = cfg.Shopify.PageSize
	}
	shopifyCfg.FeeRate = decimal.NewFromFloat(cfg.Shopify.FeeRate)
	shopifyCfg.FeeFixed = decimal.NewFromFloat(cfg.Shopify.FeeFixed)

	if shopify, err := infrachannel.NewShopifyAdapter(shopifyCfg); err == nil {
		adapters = append(adapters, shopify)
		log.Info("Shopify adapter configured", zap.String("shop", cfg.Shopify.ShopDomain))
	} else {
		adapters = append(adapters, &domainchannel.UnconfiguredAdapter{
			Source: warehouse.ChannelShopify, Reason: err})
		log.Warn("Shopify adapter not configured", zap.Error(err))
	}

	amazonCfg := infrachannel.NewAmazonConfig(
		cfg.Amazon.RefreshToken, cfg.Amazon.ClientID, cfg.Amazon.ClientSecret, cfg.Amazon.MarketplaceID)
	if cfg.Amazon.Endpoint != "" {
		amazonCfg.Endpoint = cfg.Amazon.Endpoint
	}
	if cfg.Amazon.TokenURL != "" {
		amazonCfg.TokenURL = cfg.Amazon.TokenURL
	}
	if cfg.Amazon.Region != "" {
		amazonCfg.Region = cfg.Amazon.Region
	}
	if cfg.Amazon.PageDelay > 0 {
		amazonCfg.PageDelay = cfg.Amazon.PageDelay
	}
	if cfg.Amazon.PageSize > 0 {
		amazonCfg.PageSize = cfg.Amazon.PageSize
	}
	if cfg.Amazon.ItemConcurrency > 0 {
		amazonCfg.ItemConcurrency = cfg.Amazon.ItemConcurrency
	}
	amazonCfg.AccessKeyID = cfg.Amazon.AccessKeyID
	amazonCfg.SecretAccessKey = cfg.Amazon.SecretAccessKey

	if amazon, err := infrachannel.NewAmazonAdapter(amazonCfg); err == nil {
		adapters = append(adapters, amazon)
		log.Info("Amazon adapter configured", zap.String("marketplace", cfg.Amazon.MarketplaceID))
	} else {
		adapters = append(adapters, &domainchannel.UnconfiguredAdapter{
			Source: warehouse.ChannelAmazon, Reason: err})
		log.Warn("Amazon adapter not configured", zap.Error(err))
	}

	return domainchannel.NewRegistry(adapters...)
}

// inventoryProviders collects the adapters that expose inventory levels
func inventoryProviders(registry *domainchannel.Registry) []domainchannel.InventoryProvider {
	var providers []domainchannel.InventoryProvider
	for _, ch := range registry.Channels() {
		adapter, err := registry.Get(ch)
		if err != nil {
			continue
		}
		if provider, ok := adapter.(domainchannel.InventoryProvider); ok {
			providers = append(providers, provider)
		}
	}
	return providers
}
