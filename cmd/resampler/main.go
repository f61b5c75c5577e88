package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aevon-lab/resampler/internal/aggregation"
	"github.com/aevon-lab/resampler/internal/cache"
	"github.com/aevon-lab/resampler/internal/catalogtree"
	corecfg "github.com/aevon-lab/resampler/internal/core/config"
	"github.com/aevon-lab/resampler/internal/core/storage/postgres"
	"github.com/aevon-lab/resampler/internal/migrations"
	"github.com/aevon-lab/resampler/internal/readpath"
	"github.com/aevon-lab/resampler/internal/server"
	"github.com/aevon-lab/resampler/internal/source"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file (defaults and RESAMPLER_* env when empty)")
	flag.Parse()

	// 0. Initialize Logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 1. Load Configuration
	cfg, err := corecfg.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	slog.Info("Loaded config",
		"setups", len(cfg.Setups.GetSetups()),
		"database", cfg.Database.Enabled,
		"cache", cfg.Cache.Enabled,
		"aggregation", cfg.Aggregation.Enabled,
	)

	dirs := []string{cfg.Aggregation.DataDir}
	if cfg.Cache.Enabled {
		dirs = append(dirs, cfg.Cache.Dir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			slog.Error("Failed to create data directory", "dir", dir, "error", err)
			os.Exit(1)
		}
	}

	srv := server.New(fmtAddr(cfg.Server.Host, cfg.Server.Port), cfg.Server.Mode)
	srv.AddHealthCheck("data_dir", func(context.Context) error {
		_, err := os.Stat(cfg.Aggregation.DataDir)
		return err
	})

	// 2. Initialize Run Ledger (PostgreSQL or in-memory)
	var runs aggregation.RunStore
	if cfg.Database.Enabled {
		db, err := postgres.Open(cfg.Database.DSN, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
		if err != nil {
			slog.Error("Failed to initialize database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := migrations.RunMigrations(db, cfg.Database.AutoMigrate); err != nil {
			slog.Error("Failed to run database migrations", "error", err)
			os.Exit(1)
		}

		adapter, err := postgres.NewRunAdapter(db)
		if err != nil {
			slog.Error("Failed to initialize run ledger", "error", err)
			os.Exit(1)
		}
		defer adapter.Close()

		runs = adapter
		srv.AddHealthCheck("database", db.PingContext)
	} else {
		slog.Info("Database disabled, keeping run ledger in memory")
		runs = aggregation.NewMemoryRunStore()
	}

	// 3. Initialize Sources and Catalog
	backend := source.NewDemoSource()
	sources := source.NewRegistry(backend, aggregation.NewFileSource(cfg.Aggregation.DataDir))
	catalogs := catalogtree.NewCache(aggregation.NewCatalogProvider(backend, cfg.Setups))

	var dataCache *cache.Cache
	if cfg.Cache.Enabled {
		dataCache = cache.New(cache.NewDirStore(cfg.Cache.Dir))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 4. Initialize Aggregation
	aggService := aggregation.NewService(catalogs, sources, runs, aggregation.Options{
		DataDir:          cfg.Aggregation.DataDir,
		ScopePath:        cfg.Aggregation.ScopePath,
		WorkerCount:      cfg.Aggregation.WorkerCount,
		ChunkBytes:       cfg.Aggregation.ChunkBytes,
		ChannelCapacity:  cfg.Aggregation.ChannelBufferSize,
		QualityThreshold: &cfg.Aggregation.QualityThreshold,
		CommitRetries:    cfg.Aggregation.CommitRetries,
		CommitRetryDelay: cfg.Aggregation.CommitRetryDelay,
	})
	scheduler := aggregation.NewScheduler(cfg.Aggregation.CronInterval, cfg.Setups, runs, aggService)

	slog.Info("Aggregation initialized",
		"interval", cfg.Aggregation.CronInterval,
		"enabled", cfg.Aggregation.Enabled,
		"worker_count", cfg.Aggregation.WorkerCount,
		"data_dir", cfg.Aggregation.DataDir,
	)

	// 5. Initialize Read Path
	readService := readpath.NewService(catalogs, sources, dataCache, cfg.Aggregation.ScopePath)

	// 6. Register Routes
	aggregation.NewHandler(ctx, aggService, cfg.Setups, runs).RegisterRoutes(srv.Engine)
	readService.RegisterRoutes(srv.Engine)

	// 7. Start Services
	if cfg.Aggregation.Enabled {
		go func() {
			if err := scheduler.Start(ctx); err != nil {
				slog.Error("Scheduler stopped with error", "error", err)
			}
		}()
	} else {
		slog.Info("Aggregation scheduler disabled by config")
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, shutting down...")
		cancel()
	}()

	// HTTP server blocks until ctx is cancelled.
	if err := srv.Run(ctx); err != nil {
		slog.Error("Server stopped with error", "error", err)
	}

	slog.Info("Shutdown complete")
}

func fmtAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
