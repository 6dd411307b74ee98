package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/liquidation-pipeline/internal/api"
	"github.com/ignite/liquidation-pipeline/internal/config"
	"github.com/ignite/liquidation-pipeline/internal/fees"
	"github.com/ignite/liquidation-pipeline/internal/ingest"
	"github.com/ignite/liquidation-pipeline/internal/pkg/distlock"
	"github.com/ignite/liquidation-pipeline/internal/pkg/logger"
	"github.com/ignite/liquidation-pipeline/internal/progress"
	"github.com/ignite/liquidation-pipeline/internal/store"
	"github.com/ignite/liquidation-pipeline/internal/watch"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if os.Getenv("DATABASE_URL") != "" {
		log.Println("[config] DATABASE_URL env override active")
	}

	pg, err := store.Open(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pg.Close()
	pg.EnsureSchema(context.Background())

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	broker := progress.NewBroker(rdb)

	schedule := fees.NewSchedule()
	if cfg.Fees.ReloadOnStart {
		if err := schedule.LoadFrom(context.Background(), pg); err != nil {
			logger.Warn("fee schedule load failed, using built-in defaults", "error", err)
		}
	}
	go refreshFees(schedule, pg, cfg.Fees.RefreshInterval())

	orch := ingest.New(pg, schedule, ingest.Limits{
		MaxFileBytes: cfg.Ingest.MaxFileBytes,
		MaxRows:      cfg.Ingest.MaxRows,
	})
	runOpts := ingest.Options{
		BatchSize: cfg.Ingest.BatchSize,
		StrictIDs: cfg.Ingest.StrictIDs,
	}

	if cfg.Watch.Enabled {
		watcher, err := watch.New(context.Background(), watch.Config{
			Region:     cfg.Watch.S3Region,
			AWSProfile: cfg.Watch.AWSProfile,
			Bucket:     cfg.Watch.S3Bucket,
			Prefix:     cfg.Watch.S3Prefix,
			Interval:   cfg.Watch.Interval(),
		}, orch, runOpts)
		if err != nil {
			log.Fatalf("Failed to start drop folder watcher: %v", err)
		}
		watcher.UseLock(distlock.NewLock(rdb, pg.DB(), "drop-folder-scan", 10*time.Minute))
		watcher.Start()
		defer watcher.Stop()
		logger.Info("drop folder watcher started",
			"bucket", cfg.Watch.S3Bucket, "interval", cfg.Watch.Interval())
	}

	handlers := api.NewHandlers(pg, orch, broker, runOpts)
	router := api.SetupRoutes(handlers, cfg.Server.AllowedOrigins)

	addr := fmt.Sprintf("%s:%d", cfg.Server.GetHost(), cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("ingestion service listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-done
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}

// refreshFees reloads the fee schedule on a fixed cadence so schedule
// edits land without a restart.
func refreshFees(schedule *fees.Schedule, src fees.Source, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		if err := schedule.LoadFrom(context.Background(), src); err != nil {
			logger.Warn("fee schedule refresh failed", "error", err)
		}
	}
}
