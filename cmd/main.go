package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/ahmtersoy23-ui/databridge/internal/clients"
	"github.com/ahmtersoy23-ui/databridge/internal/clients/amazon"
	"github.com/ahmtersoy23-ui/databridge/internal/config"
	"github.com/ahmtersoy23-ui/databridge/internal/database"
	"github.com/ahmtersoy23-ui/databridge/internal/events"
	"github.com/ahmtersoy23-ui/databridge/internal/handlers"
	"github.com/ahmtersoy23-ui/databridge/internal/jobs"
	"github.com/ahmtersoy23-ui/databridge/internal/middleware"
	"github.com/ahmtersoy23-ui/databridge/internal/repository"
	"github.com/ahmtersoy23-ui/databridge/internal/secrets"
	"github.com/ahmtersoy23-ui/databridge/internal/services"
)

const syncLockKey = "databridge:sync:lock"

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg := config.Load()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Operational database
	db, err := database.Connect(cfg.DatabaseURL, cfg.Environment, cfg.DBPool)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer database.Close(db, "operational")
	logger.Info("Connected to operational database")

	if err := database.RunMigrations(db, logger); err != nil {
		logger.WithError(err).Fatal("Failed to run database migrations")
	}

	// Shared database (product master and projections)
	sharedDB, err := database.Connect(cfg.SharedDatabaseURL, cfg.Environment, cfg.SharedDBPool)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to shared database")
	}
	defer database.Close(sharedDB, "shared")
	logger.Info("Connected to shared database")

	// GCP Secret Manager
	var secretSource amazon.SecretSource
	if cfg.GCPProjectID != "" {
		sm, err := secrets.NewGCPSecretManager(context.Background(), cfg.GCPProjectID)
		if err != nil {
			logger.WithError(err).Warn("Failed to initialize GCP Secret Manager")
		} else {
			defer sm.Close()
			secretSource = sm
			logger.Info("GCP Secret Manager initialized")
		}
	}

	// Event publisher
	publisher, err := events.NewPublisher(cfg.NATSURL, logger)
	if err != nil {
		logger.WithError(err).Warn("NATS unavailable, sync events disabled")
		publisher, _ = events.NewPublisher("", logger)
	}
	defer publisher.Close()

	// Cross-replica sync lock
	var lock services.DistributedLock
	if cfg.RedisURL != "" {
		redisLock, err := services.NewRedisLockFromURL(context.Background(), cfg.RedisURL, syncLockKey, cfg.SyncLockTTL)
		if err != nil {
			logger.WithError(err).Warn("Redis unavailable, sync lock is process-local")
		} else {
			defer redisLock.Close()
			lock = redisLock
			logger.Info("Redis sync lock enabled")
		}
	}

	// Repositories
	marketplaceRepo := repository.NewMarketplaceRepository(db)
	credentialRepo := repository.NewCredentialRepository(db)
	syncRepo := repository.NewSyncRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db)
	statsRepo := repository.NewStatsRepository(db)
	skuRepo := repository.NewSkuRepository(sharedDB)
	projectionRepo := repository.NewProjectionRepository(sharedDB)

	// SP-API
	clientCache := amazon.NewClientCache(credentialRepo, secretSource, cfg.ClientCacheTTL, logger,
		amazon.WithRateLimit(cfg.SPAPIRequestsPerSecond),
		amazon.WithRetrier(clients.NewRetrier(clients.DefaultRetryPolicy())),
	)
	pollPolicy := amazon.DefaultPollPolicy()
	if cfg.ReportPollMaxAttempts > 0 {
		pollPolicy.MaxAttempts = cfg.ReportPollMaxAttempts
	}
	fetcher := amazon.NewFetcher(clientCache, logger, amazon.WithPollPolicy(pollPolicy))

	// Services
	resolver := services.NewSkuResolver(skuRepo, cfg.SkuCacheTTL, logger)
	tracker := services.NewJobTracker(syncRepo, publisher, logger)
	projectionService := services.NewProjectionService(orderRepo, inventoryRepo, projectionRepo, publisher, logger)
	syncService := services.NewSyncService(services.SyncDeps{
		Marketplaces: marketplaceRepo,
		Fetcher:      fetcher,
		Resolver:     resolver,
		Inventory:    inventoryRepo,
		Orders:       orderRepo,
		Projections:  projectionService,
		Tracker:      tracker,
		Guard:        services.NewSyncGuard(lock, logger),
	}, logger,
		services.WithPacing(services.PacingPolicy{
			InventoryGroupDelay: cfg.InventoryGroupDelay,
			SalesGroupDelay:     cfg.SalesGroupDelay,
			BackfillMonthDelay:  cfg.BackfillMonthDelay,
		}),
		services.WithSalesOverlapDays(cfg.SalesOverlapDays),
		services.WithBackfillDefaultMonths(cfg.BackfillDefaultMonths),
	)

	// Scheduler
	scheduler := jobs.NewScheduler(syncService, cfg.InventoryCron, cfg.SalesCron, logger)
	if err := scheduler.Start(); err != nil {
		logger.WithError(err).Fatal("Failed to start scheduler")
	}

	// Handlers
	healthHandler := handlers.NewHealthHandler(map[string]handlers.ReadinessCheck{
		"database":        pingCheck(db),
		"shared_database": pingCheck(sharedDB),
	})
	syncHandler := handlers.NewSyncHandler(syncService, projectionService, marketplaceRepo, tracker, logger)
	statusHandler := handlers.NewStatusHandler(handlers.StatusSources{
		Jobs:         tracker,
		Marketplaces: marketplaceRepo,
		Credentials:  credentialRepo,
		Stats:        statsRepo,
	})
	credentialHandler := handlers.NewCredentialHandler(credentialRepo, clientCache, logger)
	browseHandler := handlers.NewBrowseHandler(orderRepo, inventoryRepo, logger)
	stockPulseHandler := handlers.NewStockPulseHandler(projectionService, inventoryRepo, logger)

	router := setupRouter(cfg, logger, routes{
		health:     healthHandler,
		sync:       syncHandler,
		status:     statusHandler,
		credential: credentialHandler,
		browse:     browseHandler,
		stockPulse: stockPulseHandler,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithFields(logrus.Fields{"port": cfg.Port, "env": cfg.Environment}).Info("DataBridge starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}
	logger.Info("Server exited")
}

type routes struct {
	health     *handlers.HealthHandler
	sync       *handlers.SyncHandler
	status     *handlers.StatusHandler
	credential *handlers.CredentialHandler
	browse     *handlers.BrowseHandler
	stockPulse *handlers.StockPulseHandler
}

// setupRouter configures the HTTP router
func setupRouter(cfg *config.Config, logger *logrus.Logger, h routes) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS(cfg.AllowedOrigins))

	router.GET("/health", h.health.Health)
	router.GET("/ready", h.health.Ready)

	limiter := middleware.NewIPRateLimiter(cfg.RateLimitWindow, cfg.RateLimitRequests)
	auth := middleware.RequireAuth(middleware.NewSSOVerifier(cfg.SSOVerifyURL, cfg.SSOAppCode, logger))

	// /api is kept as an alias of /api/v1
	for _, prefix := range []string{"/api/v1", "/api"} {
		api := router.Group(prefix)
		api.Use(middleware.RateLimit(limiter))

		api.GET("/status", h.status.Status)

		// StockPulse-compatible
		api.GET("/amazonsales/:channel", h.stockPulse.AmazonSales)
		api.GET("/amazonfba/:warehouse", h.stockPulse.AmazonFBA)

		// Browse
		api.GET("/orders", h.browse.ListOrders)
		api.GET("/orders/channels", h.browse.OrderChannels)
		api.GET("/inventory-detail", h.browse.ListInventory)
		api.GET("/inventory-detail/warehouses", h.browse.InventoryWarehouses)

		// Sync
		sync := api.Group("/sync", auth)
		{
			sync.POST("/trigger", h.sync.Trigger)
			sync.GET("/jobs", h.sync.ListJobs)
			sync.GET("/jobs/last", h.sync.LastJobs)
		}

		// Credentials
		creds := api.Group("/credentials", auth)
		{
			creds.GET("", h.credential.List)
			creds.POST("", h.credential.Create)
			creds.PUT("/:id", h.credential.Update)
			creds.PATCH("/:id/toggle", h.credential.Toggle)
			creds.DELETE("/:id", h.credential.Deactivate)
		}
	}

	return router
}

func pingCheck(db *gorm.DB) handlers.ReadinessCheck {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}
