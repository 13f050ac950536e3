// Package main provides the entry point for the docflow document and financial workflow engine
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amirphl/docflow/app/handlers"
	"github.com/amirphl/docflow/app/middleware"
	"github.com/amirphl/docflow/app/router"
	"github.com/amirphl/docflow/app/scheduler"
	"github.com/amirphl/docflow/app/services"
	businessflow "github.com/amirphl/docflow/business_flow"
	"github.com/amirphl/docflow/config"
	"github.com/amirphl/docflow/repository"
	"github.com/amirphl/docflow/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.Config
	server    *fiber.App
	stopFuncs []func()
}

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// runServer starts the HTTP server and blocks until SIGINT or SIGTERM
func runServer(cfg *config.Config, logWriter io.Writer) error {
	log.Println("Starting docflow application...")

	app, err := initializeApplication(cfg, logWriter)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	app.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server starting on %s", address)
		errChan <- app.server.Listen(address)
	}()

	select {
	case <-sigChan:
		log.Println("Shutting down gracefully...")
	case err := <-errChan:
		app.stop()
		return fmt.Errorf("server stopped: %w", err)
	}

	app.stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
	return nil
}

func (a *Application) stop() {
	// last started, first stopped
	for i := len(a.stopFuncs) - 1; i >= 0; i-- {
		a.stopFuncs[i]()
	}
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), repository.GormConfig(logger.New(log.Default(), logger.Config{
		SlowThreshold:             cfg.SlowQueryTime,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
	})))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	if cfg.AutoMigrate {
		if err := repository.Migrate(db); err != nil {
			return nil, err
		}
		log.Println("Database schema migrated")
	}

	return db, nil
}

// initializeCache initializes the Redis client and verifies connectivity. A nil client means caching is off.
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled || cfg.Provider != "redis" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established (db=%d)", cfg.RedisDB)
	return rc, nil
}

// startCacheHealthMonitor periodically pings Redis. The returned function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(monitorCtx, 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Printf("Redis healthcheck failed: %v", err)
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeNotificationService picks the email provider used for signer and owner messages
func initializeNotificationService(cfg *config.Config) services.DocumentNotifier {
	var emailProvider services.EmailProvider

	switch cfg.Email.Provider {
	case "smtp":
		emailProvider = services.NewSMTPEmailProvider(cfg.Email.Host, cfg.Email.Port, cfg.Email.Username, cfg.Email.Password, cfg.Email.FromEmail)
	default:
		emailProvider = services.NewMockEmailProvider()
	}

	return services.NewNotificationService(emailProvider, cfg.App.OwnerEmail)
}

func initializeTokenService(cfg config.JWTConfig) (services.TokenService, error) {
	tokenService, err := services.NewTokenService(
		cfg.AccessTokenTTL,
		cfg.RefreshTokenTTL,
		cfg.Issuer,
		cfg.Audience,
		cfg.UseRSAKeys,
		cfg.PrivateKey,
		cfg.PublicKey,
		cfg.SecretKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}
	return tokenService, nil
}

// flows bundles the business flows shared by the server and the CLI commands
type flows struct {
	documents  businessflow.DocumentFlow
	tracking   businessflow.TrackingFlow
	signatures businessflow.SignatureFlow
	reminders  businessflow.ReminderFlow
	reports    businessflow.ReportFlow
}

func initializeFlows(cfg *config.Config, db *gorm.DB, rc *redis.Client, clock utils.Clock) flows {
	documentRepo := repository.NewDocumentRepository(db)
	clientRepo := repository.NewClientRepository(db)
	sequenceRepo := repository.NewSequenceCounterRepository(db)
	trackingRepo := repository.NewDocumentTrackingRepository(db)
	viewRepo := repository.NewDocumentViewRepository(db)
	signatureRepo := repository.NewSignatureRequestRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	leadRepo := repository.NewLeadRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	notifier := initializeNotificationService(cfg)

	return flows{
		documents:  businessflow.NewDocumentFlow(documentRepo, clientRepo, sequenceRepo, auditRepo, clock, db),
		tracking:   businessflow.NewTrackingFlow(trackingRepo, viewRepo, documentRepo, auditRepo, notifier, clock, cfg.App.PublicBaseURL, cfg.App.RecentViewsLimit),
		signatures: businessflow.NewSignatureFlow(signatureRepo, documentRepo, auditRepo, notifier, clock, cfg.App.SignatureTTL, cfg.App.PublicBaseURL, db),
		reminders:  businessflow.NewReminderFlow(taskRepo, documentRepo, leadRepo, clientRepo, clock),
		reports:    businessflow.NewReportFlow(documentRepo, clientRepo, taskRepo, leadRepo, rc, cfg.Cache.RedisPrefix, cfg.Cache.KPITTL, clock),
	}
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.Config, logWriter io.Writer) (*Application, error) {
	var stopFuncs []func()

	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	healthChecks := map[string]router.HealthCheck{
		"database": sqlDB.PingContext,
	}

	if rc != nil {
		stopFuncs = append(stopFuncs, startCacheHealthMonitor(context.Background(), rc, cfg.Cache.CleanupInterval))
		stopFuncs = append(stopFuncs, func() {
			if err := rc.Close(); err != nil {
				log.Printf("Error closing redis: %v", err)
			}
		})
		healthChecks["cache"] = func(ctx context.Context) error {
			return rc.Ping(ctx).Err()
		}
	}

	tokenService, err := initializeTokenService(cfg.JWT)
	if err != nil {
		return nil, err
	}

	f := initializeFlows(cfg, db, rc, utils.SystemClock{})

	h := router.Handlers{
		Documents:  handlers.NewDocumentHandler(f.documents, f.reports),
		Tracking:   handlers.NewTrackingHandler(f.tracking, cfg.App.RecentViewsLimit),
		Signatures: handlers.NewSignatureHandler(f.signatures, f.reports),
		Reminders:  handlers.NewReminderHandler(f.reminders),
		Reports:    handlers.NewReportHandler(f.reports),
	}

	var accessLog io.Writer
	if cfg.Logging.EnableAccessLog {
		accessLog = logWriter
	}

	fiberRouter := router.NewFiberRouter(cfg, h, middleware.NewAuthMiddleware(tokenService), healthChecks, accessLog)

	if cfg.Scheduler.Enabled {
		reminderScheduler := scheduler.NewReminderScheduler(f.reminders, logWriter, cfg.Scheduler.ReminderInterval)
		stopFuncs = append(stopFuncs, reminderScheduler.Start(context.Background()))
		log.Printf("Reminder scheduler started (interval=%s)", cfg.Scheduler.ReminderInterval)
	}

	return &Application{
		router:    fiberRouter,
		config:    cfg,
		server:    fiberRouter.GetApp(),
		stopFuncs: stopFuncs,
	}, nil
}
