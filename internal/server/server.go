package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/dperrym/ipsentry/internal/api/routes"
	"github.com/dperrym/ipsentry/internal/cache"
	"github.com/dperrym/ipsentry/internal/config"
	"github.com/dperrym/ipsentry/internal/geo"
	"github.com/dperrym/ipsentry/internal/logger"
	"github.com/dperrym/ipsentry/internal/notify"
	"github.com/dperrym/ipsentry/internal/services"
)

// Server wraps the HTTP engine and shared dependencies for easier testing.
// Detection and Retention are exposed so the scheduler in cmd/api can invoke
// the same job instances the task endpoints use.
type Server struct {
	Engine    *gin.Engine
	Detection *services.DetectionService
	Retention *services.RetentionService

	cfg      config.Config
	resolver *geo.Resolver
}

// New wires the services over the shared store and cache and registers the
// request pipeline and routes.
func New(db *gorm.DB, c cache.Cache, cfg config.Config) (*Server, error) {
	gin.SetMode(gin.ReleaseMode)
	if cfg.Environment == "development" {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("set trusted proxies: %w", err)
	}

	resolver := geo.NewResolver(c, geo.Options{
		ProviderURL:   cfg.GeoProviderURL,
		Timeout:       cfg.GeoTimeout,
		CacheTTL:      cfg.GeoCacheTTL,
		GeoLiteDBPath: cfg.GeoLiteDBPath,
	})

	blocklist := services.NewBlockListService(db, c, cfg.BlockCacheTTL)
	logs := services.NewRequestLogService(db, resolver)
	findings := services.NewSuspiciousService(db)
	notifier := notify.NewNotifier(cfg.NotifyURLs)
	detection := services.NewDetectionService(db, findings, notifier, cfg.DetectionWindow, cfg.SensitivePaths)
	retention := services.NewRetentionService(db, cfg.LogRetention, cfg.SuspiciousRetention)

	if err := routes.Register(router, db, routes.Deps{
		Blocklist:    blocklist,
		Logs:         logs,
		Findings:     findings,
		Detection:    detection,
		Retention:    retention,
		GateFailOpen: cfg.GateFailOpen,
	}); err != nil {
		return nil, fmt.Errorf("register routes: %w", err)
	}

	return &Server{
		Engine:    router,
		Detection: detection,
		Retention: retention,
		cfg:       cfg,
		resolver:  resolver,
	}, nil
}

// Run starts the HTTP server with proper shutdown semantics.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", s.cfg.HTTPPort),
		Handler: s.Engine,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		if err := s.resolver.Close(); err != nil {
			logger.WithFields(map[string]interface{}{"error": err.Error()}).
				Warn("closing geolocation resolver")
		}
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
