package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/OldStager01/fleet-autoscaler/api"
	"github.com/OldStager01/fleet-autoscaler/internal/collector"
	"github.com/OldStager01/fleet-autoscaler/internal/cooldown"
	"github.com/OldStager01/fleet-autoscaler/internal/decision"
	"github.com/OldStager01/fleet-autoscaler/internal/driver"
	"github.com/OldStager01/fleet-autoscaler/internal/events"
	"github.com/OldStager01/fleet-autoscaler/internal/ledger"
	"github.com/OldStager01/fleet-autoscaler/internal/logger"
	"github.com/OldStager01/fleet-autoscaler/internal/metrics"
	"github.com/OldStager01/fleet-autoscaler/internal/orchestration"
	"github.com/OldStager01/fleet-autoscaler/internal/reconciler"
	"github.com/OldStager01/fleet-autoscaler/internal/resilience"
	"github.com/OldStager01/fleet-autoscaler/internal/thresholds"
	"github.com/OldStager01/fleet-autoscaler/pkg/config"
	"github.com/OldStager01/fleet-autoscaler/pkg/database"
	"github.com/OldStager01/fleet-autoscaler/pkg/database/queries"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	migrate := flag.Bool("migrate", false, "run database migrations and exit")
	simulate := flag.Bool("simulate", false, "use the in-memory orchestrator backend")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger.Setup(cfg.App.LogLevel, cfg.App.Mode)
	logger.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Mode)

	var (
		db        *database.DB
		eventRepo *queries.ScalingEventRepository
	)
	if cfg.Database.Enabled {
		db, err = database.New(database.Config{
			DSN:             cfg.Database.DSN(),
			MaxConnections:  cfg.Database.MaxConnections,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			PingTimeout:     cfg.Database.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		logger.Info("Database connection established")

		if *migrate {
			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()

			logger.Info("Running database migrations")
			migrator := database.NewMigrator(db)
			if err := migrator.Run(ctx); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			logger.Info("Migrations completed successfully")
			return nil
		}

		eventRepo = queries.NewScalingEventRepository(db.DB)
	} else if *migrate {
		return fmt.Errorf("cannot migrate: database is disabled")
	}

	// Metric sources
	host := collector.NewGopsutilSource()

	var storage collector.StorageSource
	if len(cfg.Database.Shards) > 0 {
		storage, err = collector.NewPostgresShardSource(cfg.Database.Shards)
		if err != nil {
			return fmt.Errorf("failed to open shard connections: %w", err)
		}
	} else {
		storage = collector.NewMockStorageSource()
		logger.Warn("No database shards configured, using mock connection counts")
	}

	var cache collector.SampleSource
	if cfg.Cache.Addr != "" {
		cache = collector.NewRedisSampleSource(cfg.Cache)
	} else {
		cache = collector.NewMockSampleSource()
		logger.Warn("No cache configured, using mock latency samples")
	}

	coll := collector.New(host, storage, cache, collector.Config{
		Timeout:         cfg.Collector.Timeout,
		ResponseTimeKey: cfg.Cache.ResponseTimeKey,
		ErrorRateKey:    cfg.Cache.ErrorRateKey,
		QueueLengthKey:  cfg.Cache.QueueLengthKey,
	})
	defer coll.Close()

	// Orchestration backend
	var backend orchestration.Client
	if *simulate || cfg.Orchestrator.Type == "simulator" {
		sim := orchestration.NewSimulator(orchestration.SimulatorConfig{})
		for _, service := range cfg.Scaling.Services {
			sim.Seed(service, "registry.local/"+service+":latest", cfg.Scaling.MinInstances)
		}
		backend = sim
		logger.Info("Using in-memory orchestrator backend")
	} else {
		backend, err = orchestration.NewDockerClient(orchestration.DockerConfig{
			Endpoint:      cfg.Orchestrator.Endpoint,
			ServiceLabel:  cfg.Orchestrator.ServiceLabel,
			Timeout:       cfg.Orchestrator.RequestTimeout,
			StopGrace:     cfg.Orchestrator.StopGrace,
			RetryAttempts: cfg.Orchestrator.RetryAttempts,
		})
		if err != nil {
			return fmt.Errorf("failed to create orchestrator client: %w", err)
		}
	}
	defer backend.Close()

	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:          "orchestrator",
		MaxFailures:   cfg.Orchestrator.CircuitBreaker.MaxFailures,
		Timeout:       cfg.Orchestrator.CircuitBreaker.Timeout,
		OnStateChange: orchestration.LogStateChange,
	})
	client := orchestration.WithBreaker(backend, breaker)

	// Core state
	store, err := thresholds.NewStore(cfg.Scaling.Thresholds())
	if err != nil {
		return fmt.Errorf("invalid scaling thresholds: %w", err)
	}

	gate := cooldown.NewGate(cfg.Scaling.Thresholds().CooldownDuration())
	led := ledger.New(cfg.Events.LedgerSize, repoOrNil(eventRepo))

	bus := events.NewEventBus(cfg.Events.BufferSize)
	defer bus.Close()
	publisher := events.NewPublisher(bus)

	eventLogger := events.NewEventLogger(bus.SubscribeAll())
	eventLogger.Start()
	defer eventLogger.Stop()

	engine := decision.NewEngine(cfg.Scaling.Services)
	rec := reconciler.New(client, gate, led, store, publisher)

	registry := prometheus.NewRegistry()
	instruments := metrics.New(registry)

	loop := driver.NewDriver(driver.Config{
		TickInterval:   cfg.Scaling.TickInterval,
		ExecuteTimeout: cfg.Scaling.ExecuteTimeout,
		Collector:      coll,
		Engine:         engine,
		Reconciler:     rec,
		Thresholds:     store,
		EventPublisher: publisher,
		Metrics:        instruments,
		Breaker:        breaker,
	})
	if err := loop.Start(); err != nil {
		return fmt.Errorf("failed to start control loop: %w", err)
	}
	defer loop.Stop()

	server := api.NewServer(*cfg, api.Deps{
		Loop:       loop,
		Collector:  coll,
		Reconciler: rec,
		Gate:       gate,
		Thresholds: store,
		Ledger:     led,
		Breaker:    breaker,
		EventBus:   bus,
		DB:         db,
		EventRepo:  eventRepo,
		Registry:   registry,
		Services:   cfg.Scaling.Services,
	})

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		logger.Infof("API server listening on port %d", cfg.API.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdownChan:
		logger.Infof("Received signal %v, shutting down", sig)
	}

	shutdownTimeout := cfg.App.ShutdownTimeout
	if shutdownTimeout == 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	logger.Info("Server stopped gracefully")
	return nil
}

// repoOrNil keeps a typed nil pointer out of the ledger's interface field.
func repoOrNil(repo *queries.ScalingEventRepository) ledger.Repository {
	if repo == nil {
		return nil
	}
	return repo
}
