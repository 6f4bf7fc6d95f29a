package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/catalog-harvester/internal/common/config"
	"github.com/catalog-harvester/internal/common/db"
	"github.com/catalog-harvester/internal/common/discord"
	"github.com/catalog-harvester/internal/common/logger"
	"github.com/catalog-harvester/internal/common/maintenance"
	"github.com/catalog-harvester/internal/common/metrics"
)

func main() {
	// Load .env file if it exists
	envErr := godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	loggerConfig := logger.DefaultLoggerConfig()
	loggerConfig.Level = logger.ParseLogLevel(cfg.Logging.Level)
	loggerConfig.FilePath = cfg.Logging.FilePath
	log := logger.NewFromConfig(loggerConfig)

	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		log.Warn("Failed to load .env file", "error", envErr)
	}

	log.Info("Catalog harvester starting",
		"version", "1.0.0",
		"log_level", cfg.Logging.Level,
		"sources", len(cfg.Sources),
		"concurrency", cfg.Harvest.Concurrency,
		"dry_run", cfg.Harvest.DryRun,
	)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var database *db.DB
	if !cfg.Harvest.DryRun {
		database, err = db.New(cfg.Database.ConnectionString(), log)
		if err != nil {
			log.Fatal("Failed to connect to database", "error", err)
		}
		defer database.Close()

		if err := database.Migrate(); err != nil {
			log.Fatal("Failed to apply migrations", "error", err)
		}
	}

	stores, err := newStores(ctx, database, log)
	if err != nil {
		log.Fatal("Failed to prepare stores", "error", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.New(registry)

	var notifier *discord.Client
	if cfg.Discord.WebhookURL != "" {
		notifier = discord.NewClient(cfg.Discord.WebhookURL)
	}

	runner, err := newRunner(cfg, stores, recorder, notifier, log)
	if err != nil {
		log.Fatal("Failed to prepare sources", "error", err)
	}

	pruner := maintenance.New(stores.jobs, log)
	schedulerCfg := maintenance.DefaultSchedulerConfig()
	schedulerCfg.KeepJobs = cfg.Harvest.KeepJobs

	var scheduler *maintenance.Scheduler
	health := stores.health
	if cfg.Harvest.Interval > 0 {
		schedulerCfg.HarvestInterval = cfg.Harvest.Interval
		scheduler = maintenance.NewScheduler(pruner, log, schedulerCfg, cfg.SourceIDs(), runner.RunAll)
		health = schedulerHealth(scheduler, stores.health)
	}

	var metricsServer *metrics.Server
	if cfg.Metrics.Addr != "" {
		metricsServer = metrics.NewServer(cfg.Metrics.Addr, registry, health, log)
		metricsServer.Start()
	}

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var wg sync.WaitGroup

	if scheduler != nil {
		if err := scheduler.Start(ctx); err != nil {
			log.Fatal("Failed to start scheduler", "error", err)
		}

		<-sigChan
		log.Info("Shutdown signal received", "scheduler", scheduler.GetStatus())
		cancel()
		scheduler.Stop()
	} else {
		done := make(chan struct{})
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer close(done)
			if err := runner.RunAll(ctx); err != nil {
				log.Error("Harvest finished with errors", "error", err)
			}
			if _, err := pruner.PruneJobs(ctx, cfg.SourceIDs(), cfg.Harvest.KeepJobs); err != nil {
				log.Error("Job pruning failed", "error", err)
			}
		}()

		select {
		case <-sigChan:
			log.Info("Shutdown signal received")
			cancel()
		case <-done:
		}
		wg.Wait()
	}

	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("Failed to stop metrics server", "error", err)
		}
	}

	log.Info("Catalog harvester stopped")
}
