package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/smetaworks/estimate-api/internal/auth"
	"github.com/smetaworks/estimate-api/internal/config"
	"github.com/smetaworks/estimate-api/internal/database"
	"github.com/smetaworks/estimate-api/internal/datawarehouse"
	"github.com/smetaworks/estimate-api/internal/http/handler"
	"github.com/smetaworks/estimate-api/internal/http/middleware"
	"github.com/smetaworks/estimate-api/internal/http/router"
	"github.com/smetaworks/estimate-api/internal/ingest"
	"github.com/smetaworks/estimate-api/internal/jobs"
	"github.com/smetaworks/estimate-api/internal/logger"
	"github.com/smetaworks/estimate-api/internal/repository"
	"github.com/smetaworks/estimate-api/internal/service"
	"github.com/smetaworks/estimate-api/internal/storage"
	"go.uber.org/zap"
)

// @title Smetaworks Estimate API
// @version 1.0
// @description Construction cost estimate ingestion, calculation and versioning API

// @contact.name API Support
// @contact.email support@smetaworks.io

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name x-api-key
// @description API Key for system operations

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load basic configuration first (for logging setup)
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	// Load full configuration with secrets
	// In development: uses environment variables
	// In staging/production: fetches from Azure Key Vault
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if cfg.App.Environment == "development" || cfg.App.Environment == "local" {
		if err := database.AutoMigrate(db); err != nil {
			return fmt.Errorf("failed to auto-migrate database: %w", err)
		}
	}

	blobStore, err := storage.NewStore(&cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	log.Info("Storage initialized", zap.String("mode", cfg.Storage.Mode))

	// Reporting warehouse is optional; the app continues without it
	warehouse, err := datawarehouse.NewClient(&cfg.Reporting, log)
	if err != nil {
		log.Warn("Reporting warehouse connection failed, continuing without it", zap.Error(err))
		warehouse = nil
	}

	// Repositories
	docRepo := repository.NewDocumentRepository(db)
	sectionRepo := repository.NewSectionRepository(db)
	itemRepo := repository.NewItemRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)
	auditRepo := repository.NewImportAuditRepository(db)

	// Services
	calcService := service.NewCalculationService(docRepo, sectionRepo, itemRepo, log)
	numberingService := service.NewNumberingService(sectionRepo, itemRepo, log)
	documentService := service.NewDocumentService(docRepo, sectionRepo, itemRepo, calcService, numberingService, log)
	registry := ingest.NewDefaultRegistry(log)
	importService := service.NewImportService(registry, docRepo, sectionRepo, itemRepo, auditRepo, calcService, numberingService, blobStore, log)
	versionService := service.NewVersionService(docRepo, sectionRepo, itemRepo, snapshotRepo, calcService, log)
	diffService := service.NewDiffService(snapshotRepo, log)
	simulationService := service.NewSimulationService(docRepo, sectionRepo, itemRepo, log)

	// Middleware
	authMiddleware := auth.NewMiddleware(cfg, log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	// Handlers
	documentHandler := handler.NewDocumentHandler(documentService, log)
	importHandler := handler.NewImportHandler(importService, &cfg.Import, log)
	versionHandler := handler.NewVersionHandler(versionService, diffService, simulationService, log)

	rt := router.NewRouter(
		cfg,
		log,
		db,
		warehouse,
		authMiddleware,
		rateLimiter,
		documentHandler,
		importHandler,
		versionHandler,
	)

	// Background jobs
	scheduler := jobs.NewScheduler(log)
	recalcJob := jobs.NewRecalcJob(docRepo, calcService, log)
	if err := scheduler.AddJob("recalc-sweep", cfg.Jobs.RecalcSchedule, recalcJob.Run); err != nil {
		log.Error("Failed to register recalc sweep job", zap.Error(err))
	}
	if warehouse != nil {
		reportingJob := jobs.NewReportingJob(docRepo, warehouse, log)
		if err := scheduler.AddJob("reporting-push", cfg.Jobs.ReportingSchedule, reportingJob.Run); err != nil {
			log.Error("Failed to register reporting push job", zap.Error(err))
		}
	}
	scheduler.Start()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		schedCtx := scheduler.Stop()
		<-schedCtx.Done()
		log.Info("Scheduler stopped")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		if warehouse != nil {
			if err := warehouse.Close(); err != nil {
				log.Warn("Error closing reporting warehouse connection", zap.Error(err))
			}
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}
