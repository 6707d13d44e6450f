package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/storefront-lab/orders/internal/aggregation"
	corecfg "github.com/storefront-lab/orders/internal/core/config"
	"github.com/storefront-lab/orders/internal/core/storage"
	"github.com/storefront-lab/orders/internal/core/storage/amqp"
	"github.com/storefront-lab/orders/internal/core/storage/postgres"
	"github.com/storefront-lab/orders/internal/core/storage/redis"
	"github.com/storefront-lab/orders/internal/ingestion"
	"github.com/storefront-lab/orders/internal/migrations"
	"github.com/storefront-lab/orders/internal/projection"
	"github.com/storefront-lab/orders/internal/server"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "orders.yaml", "Path to configuration file")
	envFile := flag.String("env-file", ".env", "Optional dotenv file loaded before configuration")
	flag.Parse()

	// 0. Initialize Logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 1. Load Configuration
	if err := corecfg.LoadDotEnv(*envFile); err != nil {
		slog.Error("Failed to load dotenv file", "error", err)
		os.Exit(1)
	}
	cfg, err := corecfg.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	slog.Info("Loaded config",
		"addr", cfg.Server.Addr(),
		"queue_backend", cfg.Queue.Backend,
		"cache_backend", cfg.Cache.Backend,
		"partitions", cfg.Pipeline.Partitions,
	)

	// 2. Initialize Storage (PostgreSQL)
	dbAdapter, err := postgres.NewAdapter(postgresOptions(cfg.Database))
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer dbAdapter.Close()

	// 2.1. Run Database Migrations
	if err := migrations.RunMigrations(dbAdapter.DB(), cfg.Database.AutoMigrate); err != nil {
		slog.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}
	if err := dbAdapter.ValidateSchema(context.Background()); err != nil {
		slog.Error("Database schema is incomplete", "error", err)
		os.Exit(1)
	}

	orderStore := postgres.NewOrdersAdapter(dbAdapter)
	statisticsStore := postgres.NewStatisticsAdapter()
	checks := map[string]server.HealthChecker{"database": dbAdapter}

	// 3. Initialize Intake Queue
	var queue storage.OrderQueue
	switch cfg.Queue.Backend {
	case corecfg.BackendAMQP:
		q, err := amqp.NewQueue(amqp.Options{
			URL:         cfg.Queue.AMQP.URL,
			QueuePrefix: cfg.Queue.AMQP.QueuePrefix,
			Partitions:  cfg.Pipeline.Partitions,
		})
		if err != nil {
			slog.Error("Failed to initialize AMQP queue", "error", err)
			os.Exit(1)
		}
		defer q.Close()
		queue = q
		checks["queue"] = q
	default:
		pgQueue := postgres.NewQueueAdapter(dbAdapter)
		stranded, err := pgQueue.CountStranded(context.Background(), cfg.Pipeline.Partitions)
		if err != nil {
			slog.Error("Failed to inspect intake queue", "error", err)
			os.Exit(1)
		}
		if stranded > 0 {
			slog.Warn("Queued orders sit on partitions no worker consumes; restore the previous pipeline.partitions to drain them",
				"orders", stranded,
				"partitions", cfg.Pipeline.Partitions,
			)
		}
		queue = pgQueue
	}

	// 4. Initialize Statistics Cache
	var cache storage.StatisticsCache
	switch cfg.Cache.Backend {
	case corecfg.BackendRedis:
		c, err := redis.NewCache(redis.Options{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			Key:      cfg.Cache.Redis.Key,
		})
		if err != nil {
			slog.Error("Failed to initialize Redis cache", "error", err)
			os.Exit(1)
		}
		defer c.Close()
		cache = c
		checks["cache"] = c
	default:
		cache = postgres.NewCacheAdapter(dbAdapter)
	}

	// 5. Initialize Ingestion Workers (one per partition)
	repo := aggregation.NewRepository(orderStore, statisticsStore)
	workerOpts := aggregation.WorkerOptions{
		PollInterval:   cfg.Pipeline.PollInterval,
		ProcessTimeout: cfg.Pipeline.ProcessTimeout,
	}
	reconciler := aggregation.NewReconciler(dbAdapter, repo, cache, cfg.Pipeline.ReconcileInterval)
	workers := make([]*aggregation.Worker, 0, cfg.Pipeline.Partitions)
	for p := 0; p < cfg.Pipeline.Partitions; p++ {
		workers = append(workers, aggregation.NewWorker(p, workerOpts, dbAdapter, queue, repo, cache))
	}

	// 6. Initialize Ingestion and Projection APIs
	ingestionSvc := ingestion.NewService(queue, orderStore, cfg.Pipeline.Partitions, cfg.Server.MaxBodySizeMB)
	projectionSvc := projection.NewService(cache)

	// 7. Initialize Server
	srv := server.New(cfg.Server.Addr(), cfg.Server.Mode, checks)
	ingestionSvc.RegisterRoutes(srv.Engine)
	projectionSvc.RegisterRoutes(srv.Engine)

	// 8. Start Services
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Pipeline.Enabled {
		for _, w := range workers {
			g.Go(func() error {
				return w.Start(gctx)
			})
		}
		g.Go(func() error {
			return reconciler.Start(gctx)
		})
	} else {
		slog.Info("Ingestion workers disabled by config")
	}

	g.Go(func() error {
		return srv.Run(gctx)
	})

	// Signal handler: SIGHUP reloads configuration, anything else shuts down.
	go func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
		defer signal.Stop(sigs)

		for {
			select {
			case <-gctx.Done():
				return
			case sig := <-sigs:
				if sig == syscall.SIGHUP {
					reload(*configPath, cfg, dbAdapter)
					continue
				}
				slog.Info("Signal received, shutting down...", "signal", sig)
				cancel()
				return
			}
		}
	}()

	if err := g.Wait(); err != nil {
		slog.Error("Service stopped with error", "error", err)
	}

	slog.Info("Shutdown complete")
}

// reload re-reads configuration and rebinds the database pool.
// Topology settings only take effect on restart.
func reload(configPath string, current *corecfg.Config, dbAdapter *postgres.Adapter) {
	next, err := corecfg.Load(configPath)
	if err != nil {
		slog.Error("Config reload failed, keeping current configuration", "error", err)
		return
	}

	if err := dbAdapter.Reconfigure(postgresOptions(next.Database)); err != nil {
		slog.Error("Database reconfigure failed, keeping current pool", "error", err)
		return
	}

	if next.Queue.Backend != current.Queue.Backend ||
		next.Cache.Backend != current.Cache.Backend ||
		next.Pipeline.Partitions != current.Pipeline.Partitions ||
		next.Server.Addr() != current.Server.Addr() {
		slog.Warn("Config reload: topology changes require a restart")
	}

	slog.Info("Configuration reloaded")
}

func postgresOptions(db corecfg.DatabaseConfig) postgres.Options {
	return postgres.Options{
		DSN:             db.DSN,
		MaxOpenConns:    db.MaxOpenConns,
		MaxIdleConns:    db.MaxIdleConns,
		ConnMaxLifetime: db.ConnMaxLifetime,
	}
}
