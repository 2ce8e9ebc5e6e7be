package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/smetaworks/estimate-api/internal/auth"
	"github.com/smetaworks/estimate-api/internal/config"
	"github.com/smetaworks/estimate-api/internal/database"
	"github.com/smetaworks/estimate-api/internal/datawarehouse"
	"github.com/smetaworks/estimate-api/internal/http/handler"
	"github.com/smetaworks/estimate-api/internal/http/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Router struct {
	cfg             *config.Config
	logger          *zap.Logger
	db              *gorm.DB
	warehouse       *datawarehouse.Client
	authMiddleware  *auth.Middleware
	rateLimiter     *middleware.RateLimiter
	documentHandler *handler.DocumentHandler
	importHandler   *handler.ImportHandler
	versionHandler  *handler.VersionHandler
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	warehouse *datawarehouse.Client,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	documentHandler *handler.DocumentHandler,
	importHandler *handler.ImportHandler,
	versionHandler *handler.VersionHandler,
) *Router {
	return &Router{
		cfg:             cfg,
		logger:          logger,
		db:              db,
		warehouse:       warehouse,
		authMiddleware:  authMiddleware,
		rateLimiter:     rateLimiter,
		documentHandler: documentHandler,
		importHandler:   importHandler,
		versionHandler:  versionHandler,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.rateLimiter.Limit)

	// Health check (basic liveness probe)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Database health check (readiness probe with detailed stats)
	r.Get("/health/db", func(w http.ResponseWriter, r *http.Request) {
		stats, err := database.HealthCheckWithStats(rt.db)
		if err != nil {
			rt.logger.Error("Database health check failed", zap.Error(err))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"status":  "unhealthy",
				"error":   err.Error(),
				"service": "database",
			})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "healthy",
			"service": "database",
			"stats": map[string]interface{}{
				"max_open_connections": stats.MaxOpenConnections,
				"open_connections":     stats.OpenConnections,
				"in_use":               stats.InUse,
				"idle":                 stats.Idle,
				"wait_count":           stats.WaitCount,
				"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
			},
		})
	})

	// Combined readiness check
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		checks := make(map[string]interface{})
		allHealthy := true

		if err := database.HealthCheck(rt.db); err != nil {
			rt.logger.Error("Database health check failed", zap.Error(err))
			checks["database"] = map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
			}
			allHealthy = false
		} else {
			checks["database"] = map[string]interface{}{
				"status": "healthy",
			}
		}

		// the reporting warehouse is optional and never fails readiness
		if rt.warehouse != nil {
			if err := rt.warehouse.Ping(r.Context()); err != nil {
				checks["reporting"] = map[string]interface{}{
					"status": "unhealthy",
					"error":  err.Error(),
				}
			} else {
				checks["reporting"] = map[string]interface{}{
					"status": "healthy",
				}
			}
		}

		w.Header().Set("Content-Type", "application/json")
		status := "healthy"
		if !allHealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			status = "unhealthy"
		} else {
			w.WriteHeader(http.StatusOK)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status": status,
			"checks": checks,
		})
	})

	// Swagger documentation
	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(rt.authMiddleware.Authenticate)

			// Documents
			r.Route("/documents", func(r chi.Router) {
				r.Get("/", rt.documentHandler.List)
				r.Post("/", rt.documentHandler.Create)
				r.Get("/{id}", rt.documentHandler.Get)
				r.Put("/{id}", rt.documentHandler.Update)
				r.Delete("/{id}", rt.documentHandler.Delete)
				r.Get("/{id}/tree", rt.documentHandler.GetTree)
				r.Put("/{id}/rates", rt.documentHandler.UpdateRates)
				r.Put("/{id}/numbering-policy", rt.documentHandler.UpdateNumberingPolicy)
				r.Post("/{id}/approve", rt.documentHandler.Approve)
				r.Post("/{id}/recalculate", rt.documentHandler.Recalculate)

				// Sections
				r.Post("/{id}/sections", rt.documentHandler.CreateSection)
				r.Delete("/{id}/sections/{sectionId}", rt.documentHandler.DeleteSection)

				// Items
				r.Post("/{id}/items", rt.documentHandler.CreateItem)
				r.Post("/{id}/items/reorder", rt.documentHandler.ReorderItems)
				r.Put("/{id}/items/{itemId}", rt.documentHandler.UpdateItem)
				r.Delete("/{id}/items/{itemId}", rt.documentHandler.DeleteItem)
				r.Post("/{id}/items/{itemId}/move", rt.documentHandler.MoveItem)

				// Versions, diff & simulation
				r.Get("/{id}/versions", rt.versionHandler.List)
				r.Post("/{id}/versions", rt.versionHandler.Create)
				r.Get("/{id}/versions/{version}", rt.versionHandler.Get)
				r.Get("/{id}/diff", rt.versionHandler.Diff)
				r.Post("/{id}/simulate", rt.versionHandler.Simulate)

				// Export & import audit trail
				r.Get("/{id}/export", rt.importHandler.Export)
				r.Get("/{id}/imports", rt.importHandler.ListAudits)
			})

			// Import
			r.Post("/import", rt.importHandler.Import)
			r.Post("/import/preview", rt.importHandler.Preview)
		})
	})

	return r
}
