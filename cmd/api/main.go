package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/robfig/cron/v3"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dperrym/ipsentry/internal/cache"
	"github.com/dperrym/ipsentry/internal/config"
	"github.com/dperrym/ipsentry/internal/database"
	"github.com/dperrym/ipsentry/internal/logger"
	"github.com/dperrym/ipsentry/internal/server"
	"github.com/dperrym/ipsentry/internal/version"
)

func main() {
	// Setup logging with rotation
	logDir := "/app/data/logs"
	if err := os.MkdirAll(logDir, 0755); err != nil {
		// Fallback to local directory if /app/data fails (e.g. local dev)
		logDir = filepath.Join("data", "logs")
		_ = os.MkdirAll(logDir, 0755)
	}

	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "ipsentry.log"),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}

	// Log to both stdout and file
	mw := io.MultiWriter(os.Stdout, rotator)
	log.SetOutput(mw)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(cfg.Environment == "development", mw)
	log.Printf("starting %s version %s", version.Name, version.Full())

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}

	var store cache.Cache
	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedisCache(context.Background(), cfg.RedisURL)
		if err != nil {
			log.Fatalf("connect redis cache: %v", err)
		}
		defer redisCache.Close()
		store = redisCache
		log.Printf("using redis cache backend")
	} else {
		store = cache.NewMemoryCache()
		log.Printf("using in-memory cache backend")
	}

	srv, err := server.New(db, store, cfg)
	if err != nil {
		log.Fatalf("build server: %v", err)
	}

	// An overrunning job is skipped rather than run concurrently with itself.
	scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := scheduler.AddFunc(cfg.DetectionCron, func() {
		if err := srv.Detection.Run(); err != nil {
			logger.WithFields(map[string]interface{}{"error": err.Error()}).
				Error("suspicious IP detection run failed")
		}
	}); err != nil {
		log.Fatalf("schedule detection job: %v", err)
	}
	if _, err := scheduler.AddFunc(cfg.CleanupCron, func() {
		if err := srv.Retention.Run(); err != nil {
			logger.WithFields(map[string]interface{}{"error": err.Error()}).
				Error("log cleanup run failed")
		}
	}); err != nil {
		log.Fatalf("schedule cleanup job: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("listening on :%s", cfg.HTTPPort)
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
