package routes

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/dperrym/ipsentry/internal/api/handlers"
	"github.com/dperrym/ipsentry/internal/api/middleware"
	"github.com/dperrym/ipsentry/internal/metrics"
	"github.com/dperrym/ipsentry/internal/models"
	"github.com/dperrym/ipsentry/internal/services"
)

// Deps carries the shared components the routes compose around. The same
// service instances drive the gate middleware, the admin surface and the
// scheduled jobs.
type Deps struct {
	Blocklist *services.BlockListService
	Logs      *services.RequestLogService
	Findings  *services.SuspiciousService
	Detection *services.DetectionService
	Retention *services.RetentionService

	// GateFailOpen lets the gate allow requests when the denylist store is
	// unreachable. Default is fail-closed.
	GateFailOpen bool
}

// Register applies migrations, installs the gate/recorder pipeline around
// every route and wires up the admin review surface.
func Register(router *gin.Engine, db *gorm.DB, deps Deps) error {
	if err := db.AutoMigrate(
		&models.RequestLog{},
		&models.BlockedIP{},
		&models.SuspiciousIP{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	// Every request passes the gate before any handler and the recorder after.
	router.Use(
		middleware.IPGate(deps.Blocklist, deps.GateFailOpen),
		middleware.RequestRecorder(deps.Logs),
	)

	registry := prometheus.NewRegistry()
	metrics.Register(registry)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	router.GET("/api/v1/health", handlers.HealthHandler)

	api := router.Group("/api/v1")

	blockedHandler := handlers.NewBlockedIPHandler(deps.Blocklist)
	api.POST("/blocked-ips", blockedHandler.Create)
	api.GET("/blocked-ips", blockedHandler.List)
	api.PATCH("/blocked-ips/:id", blockedHandler.SetActive)

	logsHandler := handlers.NewRequestLogHandler(deps.Logs)
	api.GET("/request-logs", logsHandler.List)

	suspiciousHandler := handlers.NewSuspiciousIPHandler(deps.Findings)
	api.GET("/suspicious-ips", suspiciousHandler.List)
	api.POST("/suspicious-ips/resolve", suspiciousHandler.Resolve)

	taskHandler := handlers.NewTaskHandler(deps.Detection, deps.Retention)
	api.POST("/tasks/detection", taskHandler.RunDetection)
	api.POST("/tasks/cleanup", taskHandler.RunCleanup)

	return nil
}
