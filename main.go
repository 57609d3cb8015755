package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"pointsboard/internal/config"
	"pointsboard/internal/handler"
	"pointsboard/internal/middleware"
	"pointsboard/internal/repository"
	"pointsboard/internal/service"
	"pointsboard/pkg/database"
	"pointsboard/pkg/logger"
	"pointsboard/pkg/redis"
)

// Resources holds all resources that need cleanup
type Resources struct {
	db               *database.PostgresDB
	redisClient      *redis.Client
	reconcileService *service.ReconcileService
	server           *http.Server
	log              *logger.Logger
	mu               sync.Mutex
	closed           bool
}

// Cleanup gracefully closes all resources
func (r *Resources) Cleanup(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var errors []error

	r.log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server first to stop accepting new requests
	if r.server != nil {
		r.log.Info("Shutting down HTTP server...")
		if err := r.server.Shutdown(ctx); err != nil {
			r.log.WithError(err).Error("Failed to shutdown HTTP server")
			errors = append(errors, fmt.Errorf("HTTP server shutdown: %w", err))
		} else {
			r.log.Info("HTTP server shutdown complete")
		}
	}

	// Stop the reconcile sweeper
	if r.reconcileService != nil {
		r.log.Info("Stopping reconcile service...")
		if err := r.reconcileService.Stop(ctx); err != nil {
			r.log.WithError(err).Error("Failed to stop reconcile service")
			errors = append(errors, fmt.Errorf("reconcile service shutdown: %w", err))
		} else {
			r.log.Info("Reconcile service stopped successfully")
		}
	}

	// Close Redis connection
	if r.redisClient != nil {
		r.log.Info("Closing Redis connection...")
		if err := r.redisClient.Close(); err != nil {
			r.log.WithError(err).Error("Failed to close Redis connection")
			errors = append(errors, fmt.Errorf("Redis close: %w", err))
		} else {
			r.log.Info("Redis connection closed successfully")
		}
	}

	// Close database connection pool
	if r.db != nil {
		r.log.Info("Closing database connection pool...")
		r.db.Close()
		r.log.Info("Database connection pool closed successfully")
	}

	if len(errors) > 0 {
		r.log.WithField("error_count", len(errors)).Error("Cleanup completed with errors")
		return fmt.Errorf("cleanup completed with %d errors: %v", len(errors), errors)
	}

	r.log.Info("Graceful shutdown completed successfully")
	return nil
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.WithFields(map[string]interface{}{
		"port":        cfg.Port,
		"log_level":   cfg.LogLevel,
		"environment": cfg.Environment,
	}).Info("Starting pointsboard server")

	// Initialize database connection
	ctx := context.Background()
	db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}

	// Initialize Redis connection
	redisClient, err := redis.NewClient(cfg.RedisURL, cfg.Environment, log.Logger)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to Redis")
	}

	// Initialize repositories
	ledgerRepo := repository.NewClaimRepository(db)
	participantRepo := repository.NewParticipantRepository(db)

	// Initialize services
	cacheService := service.NewCacheService(redisClient, log.Logger)
	claimService := service.NewClaimService(ledgerRepo, participantRepo, cacheService, service.NewRandomPointSource(), log.Logger)
	rankingService := service.NewRankingService(participantRepo, ledgerRepo, cacheService, log.Logger)
	positionService := service.NewPositionService(participantRepo, cacheService, log.Logger)
	reconcileService := service.NewReconcileService(ledgerRepo, participantRepo, cacheService, log.Logger, cfg.ReconcileInterval)

	// Start the background reconcile sweeper
	if err := reconcileService.Start(ctx); err != nil {
		log.WithError(err).Fatal("Failed to start reconcile service")
	}

	// Setup router
	router := setupRouter(cfg, log, db, redisClient, claimService, rankingService, positionService, reconcileService)

	// Create HTTP server
	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   60 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB max header size
	}

	// Create resources manager for cleanup
	resources := &Resources{
		db:               db,
		redisClient:      redisClient,
		reconcileService: reconcileService,
		server:           server,
		log:              log,
	}

	// Setup graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)

	// Cleanup runs regardless of how the program exits
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := resources.Cleanup(cleanupCtx); err != nil {
			log.WithError(err).Error("Cleanup completed with errors")
		}
	}()

	// Start server in a goroutine
	serverErrChan := make(chan error, 1)
	go func() {
		log.Info("Server starting on port " + cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("Server error occurred")
			serverErrChan <- err
		}
	}()

	// Wait for interrupt signal or server error
	select {
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("Received shutdown signal")
	case err := <-serverErrChan:
		log.WithError(err).Error("Server failed, initiating shutdown")
	}

	log.Info("Initiating graceful shutdown...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()

	if err := resources.Cleanup(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown completed with errors")
		os.Exit(1)
	}

	log.Info("Application shutdown complete")
}

// setupRouter configures and returns the HTTP router
func setupRouter(
	cfg *config.Config,
	log *logger.Logger,
	db *database.PostgresDB,
	redisClient *redis.Client,
	claimService *service.ClaimService,
	rankingService *service.RankingService,
	positionService *service.PositionService,
	reconcileService *service.ReconcileService,
) *chi.Mux {
	r := chi.NewRouter()

	// Setup CORS middleware
	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowedOrigins = cfg.AllowedOrigins

	// Setup middlewares
	r.Use(middleware.CORS(corsConfig, log))
	r.Use(middleware.RequestID(log))
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Compress(5))
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	// Create handlers
	healthHandler := handler.NewHealthHandler(db, redisClient, log)
	claimHandler := handler.NewClaimHandler(claimService)
	leaderboardHandler := handler.NewLeaderboardHandler(rankingService, positionService)
	adminHandler := handler.NewAdminHandler(reconcileService)

	// Health check
	r.Get("/health", healthHandler.Check)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/v1", func(r chi.Router) {
			r.Route("/claims", func(r chi.Router) {
				r.Post("/", claimHandler.SubmitClaim)
				r.Get("/{claimId}", claimHandler.GetClaim)
				r.Post("/{claimId}/revoke", claimHandler.RevokeClaim)
			})

			r.Route("/participants", func(r chi.Router) {
				r.Get("/{participantId}/claims", claimHandler.GetHistory)
				r.Get("/{participantId}/position", leaderboardHandler.GetPosition)
			})

			r.Route("/leaderboard", func(r chi.Router) {
				r.Get("/", leaderboardHandler.GetGlobalLeaderboard)
				r.Get("/{period}", leaderboardHandler.GetWindowedLeaderboard)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/reconcile", adminHandler.ReconcileAll)
			r.Post("/reconcile/{participantId}", adminHandler.ReconcileParticipant)
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"type":"not_found","message":"Endpoint not found"}}`))
	})

	log.Info("Router configured successfully")
	return r
}
