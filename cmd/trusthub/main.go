// TrustHub - Trust scoring and scam detection for online marketplaces.
// Copyright (c) 2025 globaltrusthub
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/globaltrusthub/trusthub/internal/alerts"
	"github.com/globaltrusthub/trusthub/internal/api"
	"github.com/globaltrusthub/trusthub/internal/bus"
	"github.com/globaltrusthub/trusthub/internal/cache"
	"github.com/globaltrusthub/trusthub/internal/decay"
	"github.com/globaltrusthub/trusthub/internal/decision"
	"github.com/globaltrusthub/trusthub/internal/domain"
	"github.com/globaltrusthub/trusthub/internal/fraud"
	"github.com/globaltrusthub/trusthub/internal/patterns"
	"github.com/globaltrusthub/trusthub/internal/ratelimit"
	"github.com/globaltrusthub/trusthub/internal/repository"
	"github.com/globaltrusthub/trusthub/internal/rules"
	"github.com/globaltrusthub/trusthub/internal/trust"
	"github.com/globaltrusthub/trusthub/internal/velocity"
	"github.com/globaltrusthub/trusthub/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("TRUSTHUB_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("starting trusthub",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg := domain.DefaultConfig()

	// Check for Pro tier via environment
	if os.Getenv("TRUSTHUB_TIER") == "pro" {
		cfg = domain.ProConfig()
		slog.Info("running in Pro tier mode")
	}

	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize Velocity Service
	velocitySvc := velocity.NewService(repo, cacheImpl)
	slog.Info("velocity service initialized")

	// Initialize Rule Engine with velocity getter
	engine, err := rules.NewEngine(velocitySvc.GetVelocityGetter(), 100)
	if err != nil {
		slog.Error("failed to initialize rule engine", "error", err)
		os.Exit(1)
	}

	// Load rules from the database, falling back to the built-in set
	if err := loadRulesFromDatabase(ctx, repo, engine); err != nil {
		slog.Error("failed to load rules", "error", err)
		os.Exit(1)
	}
	slog.Info("rule engine initialized", "rules_count", engine.RulesCount())

	// Initialize Risk Profile Engine
	profileEngine := rules.NewProfileEngine()
	loadProfilesFromDatabase(ctx, repo, profileEngine)
	slog.Info("profile engine initialized", "profiles_count", profileEngine.ProfileCount())

	// Core engines
	calculator := trust.NewCalculator()
	decayEngine := decay.NewEngine(decay.DefaultConfig())
	analyzer := patterns.NewAnalyzer(nil)
	scorer := decision.NewConfidenceScorer()
	pipeline := fraud.NewPipeline(engine, profileEngine)

	// Alert registry with persistence and bus fan-out
	alertRegistry := alerts.NewRegistry(logger)
	alertRegistry.AddSink(&alerts.RepositorySink{Repo: repo, Logger: logger})
	alertRegistry.AddSink(&alerts.BusSink{Bus: busImpl, Logger: logger})
	slog.Info("alert registry initialized")

	// Rate limiter: local sliding window for Community, cache-backed
	// counters for Pro multi-node deployments
	var limiter ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		period := time.Duration(cfg.RateLimit.PeriodSeconds) * time.Second
		if cfg.Tier == domain.TierPro {
			limiter = ratelimit.NewCounterLimiter(cacheImpl, "_ratelimit", cfg.RateLimit.RequestsPerPeriod, period)
		} else {
			limiter = ratelimit.NewSlidingWindow(cfg.RateLimit.RequestsPerPeriod, period)
		}
		slog.Info("rate limiter initialized",
			"limit", cfg.RateLimit.RequestsPerPeriod,
			"period_seconds", cfg.RateLimit.PeriodSeconds,
		)
	}

	// Initialize async Worker (Pro tier)
	var asyncWorker *worker.Worker
	if cfg.Tier == domain.TierPro || os.Getenv("TRUSTHUB_ASYNC_WORKER") == "true" {
		asyncWorker = worker.NewWorker(busImpl, repo, cacheImpl, calculator, pipeline)

		tenantIDs := []string{}
		if envTenants := os.Getenv("TRUSTHUB_TENANTS"); envTenants != "" {
			for _, t := range strings.Split(envTenants, ",") {
				if t = strings.TrimSpace(t); t != "" {
					tenantIDs = append(tenantIDs, t)
				}
			}
		}

		workerCfg := worker.Config{
			TenantIDs:   tenantIDs,
			WorkerCount: 5,
		}

		if err := asyncWorker.Start(workerCfg); err != nil {
			slog.Error("failed to start async worker", "error", err)
		} else {
			slog.Info("async worker started", "tenant_count", len(tenantIDs))
		}
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, api.Dependencies{
		Repo:       repo,
		Cache:      cacheImpl,
		Bus:        busImpl,
		Engine:     engine,
		Profiles:   profileEngine,
		Calculator: calculator,
		Decay:      decayEngine,
		Analyzer:   analyzer,
		Scorer:     scorer,
		Pipeline:   pipeline,
		Alerts:     alertRegistry,
		Limiter:    limiter,
		Version:    Version,
	})

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("trusthub is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop async worker first
	if asyncWorker != nil {
		if err := asyncWorker.Stop(); err != nil {
			slog.Error("failed to stop async worker", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("trusthub shutdown complete")
}

// GlobalTenantID is used for rules and profiles that apply to all tenants.
const GlobalTenantID = "*"

// loadRulesFromDatabase loads rules from the database into the engine.
// An empty database gets the built-in rule set so scoring works out of
// the box; rules added via POST /rules take over after a reload.
func loadRulesFromDatabase(ctx context.Context, repo domain.Repository, engine *rules.Engine) error {
	dbRules, err := repo.ListRuleConfigs(ctx, GlobalTenantID)
	if err != nil {
		slog.Warn("failed to list rules from database", "error", err)
		dbRules = nil
	}

	if len(dbRules) > 0 {
		slog.Info("loading rules from database", "count", len(dbRules))
		return engine.LoadRules(dbRules)
	}

	slog.Info("no rules in database - loading built-in rule set")
	return engine.LoadRules(rules.DefaultRules())
}

// loadProfilesFromDatabase loads risk profiles from the database, with
// the built-in profiles as the empty-database fallback.
func loadProfilesFromDatabase(ctx context.Context, repo domain.Repository, engine *rules.ProfileEngine) {
	dbProfiles, err := repo.ListProfiles(ctx, GlobalTenantID)
	if err != nil {
		slog.Warn("failed to list profiles from database", "error", err)
		dbProfiles = nil
	}

	if len(dbProfiles) > 0 {
		slog.Info("loading profiles from database", "count", len(dbProfiles))
		engine.LoadProfiles(dbProfiles)
		return
	}

	slog.Info("no profiles in database - loading built-in profiles")
	engine.LoadProfiles(rules.DefaultProfiles())
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║              🛡  TRUSTHUB                  ║")
	fmt.Println("  ║      Trust Scoring & Scam Detection       ║")
	fmt.Println("  ║       Know who you're dealing with.       ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /score                 - Compute a trust score")
	fmt.Println("    GET  /scores/{id}           - Get score evaluation by ID")
	fmt.Println("    GET  /subjects/{id}/score   - Latest score for a subject")
	fmt.Println("    POST /score/decay           - Apply score decay")
	fmt.Println("    POST /score/recovery        - Apply score recovery")
	fmt.Println("    GET  /score/forecast        - Project decay over weeks")
	fmt.Println("    POST /messages/analyze      - Scam-check one message")
	fmt.Println("    POST /conversations/analyze - Scam-check a conversation")
	fmt.Println("    POST /verification/decide   - Document verification decision")
	fmt.Println("    POST /fraud/evaluate        - Full fraud evaluation")
	fmt.Println("    GET  /rules                 - List all rules")
	fmt.Println("    POST /rules                 - Create a new rule")
	fmt.Println("    POST /rules/reload          - Hot-reload rules from database")
	fmt.Println("    GET  /profiles              - List risk profiles")
	fmt.Println("    POST /profiles              - Create a risk profile")
	fmt.Println("    GET  /alerts                - List pending alerts")
	fmt.Println("    POST /alerts/{id}/resolve   - Resolve an alert")
	fmt.Println("    GET  /health                - Health check")
	fmt.Println()
}
