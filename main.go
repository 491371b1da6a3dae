package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sjsage522/stockwatcher/config"
	"sjsage522/stockwatcher/helpers"
	"sjsage522/stockwatcher/internal/extract"
	"sjsage522/stockwatcher/internal/monitor"
	"sjsage522/stockwatcher/internal/server"
	"sjsage522/stockwatcher/internal/store"
	"sjsage522/stockwatcher/logger"
	"sjsage522/stockwatcher/services/cache"
	"sjsage522/stockwatcher/services/lock"
	"sjsage522/stockwatcher/services/publisher"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("database", cfg.DatabasePath).
		Str("http_addr", cfg.HTTPAddr).
		Msg("Starting application")

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Initialize services
	services, err := initializeServices(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer services.Cleanup()

	if cfg.SeedOnStart {
		if err := store.Seed(ctx, services.Store); err != nil {
			log.Fatal().Err(err).Msg("Failed to seed database")
		}
		log.Info().Msg("Seeded sample catalog")
	}

	// Wire the monitoring core
	fetcher := helpers.NewFetcher(cfg.FetchTimeout)
	engine := extract.NewEngine(fetcher.Fetch, extract.DefaultProfiles(), services.Cache, cfg.FetchBlockTime)
	detector := monitor.NewDetector(services.Store, services.Publisher, nil)
	orchestrator := monitor.NewOrchestrator(services.Store, engine, detector, services.Publisher, services.Lock, nil, cfg.WorkerCount)

	srv := server.New(services.Store, orchestrator, detector)
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: srv.Router(),
	}

	serverDone := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP server listening")
		serverDone <- httpServer.ListenAndServe()
	}()

	// Optional internal scheduler; most deployments trigger runs via cron
	if cfg.MonitorInterval > 0 {
		go runScheduler(ctx, orchestrator, cfg.MonitorInterval)
	}

	// Wait for shutdown signal or server error
	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case err := <-serverDone:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server exited with error")
		}
	}

	// Graceful shutdown
	log.Info().Msg("Shutting down gracefully...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("HTTP server shutdown error")
	}
}

func runScheduler(ctx context.Context, orchestrator *monitor.Orchestrator, interval time.Duration) {
	log := logger.ForOrchestrator()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := orchestrator.Run(ctx, "scheduler"); err != nil && !errors.Is(err, monitor.ErrRunInProgress) {
				log.Error().Err(err).Msg("Scheduled run failed")
			}
		}
	}
}

// Services holds all the initialized services
type Services struct {
	Store     store.Store
	Cache     cache.CacheService
	Publisher publisher.Publisher
	Lock      lock.RunLock
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.Publisher != nil {
		s.Publisher.Close()
	}
	if s.Lock != nil {
		s.Lock.Close()
	}
	if s.Store != nil {
		s.Store.Close()
	}
}

// initializeServices initializes all required services
func initializeServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	services := &Services{}

	sqliteStore, err := store.OpenSQLite(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	services.Store = sqliteStore
	logger.Info("Opened database at %s", cfg.DatabasePath)

	// Block-window cache; falls back to in-process when memcache is not configured
	if cfg.MemcacheAddr != "" {
		services.Cache = cache.NewMemcacheService(cfg.MemcacheAddr)
		logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)
	} else {
		services.Cache = cache.NewMemoryService()
	}

	services.Publisher = publisher.NewRedisPublisher(
		ctx,
		cfg.RedisAddr,
		cfg.RedisDB,
		cfg.RedisStream,
		cfg.RedisStreamMaxLength,
	)
	logger.Info("Connected to Redis at %s (DB: %d, Stream: %s)",
		cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)

	services.Lock = lock.NewRedisLock(cfg.RedisAddr, cfg.RedisDB, "stockwatcher:run_lock", cfg.RunLockTTL)

	return services, nil
}
