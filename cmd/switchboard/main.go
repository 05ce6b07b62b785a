package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"switchboard/internal/adapter/archive"
	"switchboard/internal/adapter/oracle"
	"switchboard/internal/adapter/provider"
	"switchboard/internal/domain"
	"switchboard/internal/infra/config"
	"switchboard/internal/infra/logger"
	"switchboard/internal/infra/tracer"
	"switchboard/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "./config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	log, closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			log.Warn("tracer shutdown failed", "error", err)
		}
	}()

	// Capability providers.
	pool := usecase.NewPool()
	var mcpProviders []*provider.MCPProvider
	for _, srv := range cfg.Providers {
		p, err := provider.NewMCPProvider(ctx, srv, log)
		if err != nil {
			log.Warn("mcp provider unavailable, skipping", "name", srv.Name, "error", err)
			continue
		}
		pool.AddConfigured(p)
		mcpProviders = append(mcpProviders, p)
	}
	defer func() {
		for _, p := range mcpProviders {
			if err := p.Close(); err != nil {
				log.Warn("mcp provider close failed", "name", p.Name(), "error", err)
			}
		}
	}()

	// Persona catalog and workers.
	catalog := usecase.NewCatalog()
	for _, p := range usecase.DefaultPersonas() {
		catalog.RegisterPersona(p)
	}
	monitor := usecase.NewMonitor(cfg.Health.Thresholds(), log)
	for _, w := range cfg.Workers {
		ref, err := workerRef(w)
		if err != nil {
			return err
		}
		if err := catalog.RegisterWorker(ref); err != nil {
			return err
		}
		monitor.Track(ref.ID())
	}

	// Classification oracle, behind a circuit breaker when enabled.
	var classifier domain.ClassificationOracle
	if cfg.Oracle.Enabled {
		bedrock, err := oracle.NewBedrockOracle(cfg.Oracle, log)
		if err != nil {
			return err
		}
		classifier = oracle.NewCircuitBreakerOracle(bedrock, cfg.Oracle.Breaker, log)
	}

	engine := usecase.NewEngine(catalog, monitor, classifier, usecase.EngineOptions{
		MinOracleConfidence: cfg.Routing.MinOracleConfidence,
		FallbackFloor:       cfg.Routing.FallbackFloor,
		DefaultPersona:      cfg.Routing.DefaultPersona,
		DefaultMode:         cfg.Routing.DefaultMode,
	}, log)

	// Run store with optional eviction archive.
	var archiver usecase.Archiver
	if cfg.Runs.ArchivePath != "" {
		sqlArchive, err := archive.NewSQLiteArchive(cfg.Runs.ArchivePath)
		if err != nil {
			log.Warn("run archive unavailable, evicted runs will be dropped", "error", err)
		} else {
			defer sqlArchive.Close()
			archiver = sqlArchive
		}
	}
	store := usecase.NewRunStore(cfg.Runs.MaxCompleted, archiver, log)

	plane := usecase.NewControlPlane(engine, store, monitor, catalog, pool, log)

	// Periodic health report while the daemon runs.
	go func() {
		ticker := time.NewTicker(cfg.Health.Staleness)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for id, state := range plane.WorkerHealthAll() {
					if state != domain.HealthHealthy {
						log.Warn("worker unhealthy", "worker_id", id, "state", string(state))
					}
				}
			}
		}
	}()

	if cfg.Pruner.Enabled {
		pruner := usecase.NewPruner(catalog, monitor, cfg.Pruner.Schedule, log)
		if err := pruner.Start(); err != nil {
			return err
		}
		defer pruner.Stop()
	}

	log.Info("switchboard started",
		"personas", len(catalog.Personas()),
		"workers", len(catalog.Workers()),
		"providers", len(pool.Providers()),
		"oracle", cfg.Oracle.Enabled)

	<-ctx.Done()
	log.Info("shutting down")
	return nil
}

func workerRef(w config.WorkerConfig) (domain.WorkerRef, error) {
	switch w.Kind {
	case "builtin":
		return domain.BuiltinWorker(w.ID, w.Persona), nil
	case "process":
		return domain.ProcessWorker(w.ID, w.Persona, w.Command, w.Args...), nil
	case "remote":
		return domain.RemoteWorker(w.ID, w.Persona, w.Endpoint), nil
	default:
		return domain.WorkerRef{}, fmt.Errorf("worker %q: unknown kind %q", w.ID, w.Kind)
	}
}
