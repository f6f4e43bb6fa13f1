package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"harmonia/internal/clock"
	"harmonia/internal/config"
	"harmonia/internal/currency"
	"harmonia/internal/database"
	"harmonia/internal/deathpenalty"
	"harmonia/internal/events"
	"harmonia/internal/handlers"
	"harmonia/internal/repository"
	"harmonia/internal/scheduler"
	"harmonia/internal/security"
	"harmonia/internal/service"
	"harmonia/internal/world"
)

func main() {
	// Load configuration
	cfg := config.Load()

	tuning, err := config.LoadTuning(cfg.TuningPath)
	if err != nil {
		log.Fatalf("Failed to load tuning: %v", err)
	}

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

	// Run migrations
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Migrations completed successfully")

	// Initialize repositories
	playerRepo := repository.NewPlayerRepository(db)
	metricsRepo := repository.NewMetricsRepository(db)
	walletRepo := repository.NewWalletRepository(db)
	stateRepo := repository.NewDeathStateRepository(db)
	echoRepo := repository.NewEchoRepository(db)

	// Shared game state
	clk := clock.Real{}
	bus := events.NewBus()
	registry := world.NewRegistry()

	// Initialize services
	authService := service.NewAuthService(playerRepo, security.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL), cfg.IsAdmin)
	currencyService := service.NewCurrencyService(currency.NewBank(), walletRepo)
	difficultyService := service.NewDifficultyService(tuning.Difficulty, clk, metricsRepo, bus)

	engine := deathpenalty.NewEngine(tuning.DeathPenalty, deathpenalty.Options{
		Clock:     clk,
		Scheduler: scheduler.New(),
		Ledgers:   currencyService,
		Hostiles:  registry,
		Buffs:     registry,
		Events:    bus,
	})
	deathService := service.NewDeathPenaltyService(engine, currencyService, stateRepo, echoRepo)
	bus.Subscribe(deathService.HandleEvent)

	if err := deathService.Restore(); err != nil {
		log.Fatalf("Failed to restore death penalty state: %v", err)
	}

	backupService := service.NewBackupService(db)

	limiter := security.NewRateLimiter(5, time.Minute)
	defer limiter.Stop()

	handler := handlers.NewRouter(handlers.Dependencies{
		Auth:       authService,
		Difficulty: difficultyService,
		Death:      deathService,
		Currency:   currencyService,
		Backup:     backupService,
		World:      registry,
		Bus:        bus,
		Limiter:    limiter,
	})

	// Start server
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// no WriteTimeout: event streams are long lived and set their own write deadlines
		IdleTimeout: 60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	simulation := service.NewSimulation(clk, cfg.TickInterval(), difficultyService, deathService)
	simDone := make(chan struct{})
	go func() {
		defer close(simDone)
		if err := simulation.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Simulation stopped: %v", err)
		}
	}()

	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	<-ctx.Done()
	log.Println("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Warning: graceful shutdown failed: %v", err)
	}

	<-simDone
	// final tick saves any metrics changed since the last one
	simulation.Tick()
	log.Println("Server stopped")
}
