// Package main is the entry point for the Recon backend server.
// It provides a REST API for dealership vehicle reconditioning:
// vehicle and checklist CRUD, team notes, a technician registry,
// and completion analytics.
//
// Architecture:
//   - Vehicles, notes and users live as Postgres rows
//   - Inspection ratings roll up into derived section statuses
//   - Every rating change is recorded as an immutable completion event
//   - Daily/per-user rollups persist as one versioned blob (Postgres or
//     Redis) written through compare-and-swap
//   - Mutations broadcast a data-changed notification over Redis pub/sub
//     so other instances and live dashboards can refresh
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/reconhq/recon-server/internal/analytics"
	"github.com/reconhq/recon-server/internal/config"
	"github.com/reconhq/recon-server/internal/database"
	"github.com/reconhq/recon-server/internal/handlers"
	"github.com/reconhq/recon-server/internal/middleware"
	"github.com/reconhq/recon-server/internal/notify"
	"github.com/reconhq/recon-server/internal/services"
	"github.com/reconhq/recon-server/internal/store"
)

func main() {
	// Initialize structured logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	sugar := logger.Sugar()

	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		sugar.Fatalf("Failed to load config: %v", err)
	}

	sugar.Infow("Starting Recon Server",
		"port", cfg.Port,
		"env", cfg.Environment,
		"analytics_store", cfg.AnalyticsStore,
	)

	// Initialize database connection pool
	db, err := database.NewPool(cfg.DatabaseURL)
	if err != nil {
		sugar.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(context.Background(), db); err != nil {
		sugar.Fatalf("Failed to migrate schema: %v", err)
	}

	// Optional Redis: change-notification broadcast, and the analytics
	// store when configured that way
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			sugar.Fatalf("Invalid REDIS_URL: %v", err)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
	}

	var kv store.KV = store.NewPostgres(db)
	if cfg.AnalyticsStore == "redis" {
		kv = store.NewRedis(redisClient)
	}

	var notifier notify.Notifier = notify.NewLog(sugar)
	if redisClient != nil {
		notifier = notify.NewRedis(redisClient, sugar)
	}

	// Initialize engines and services
	engine := analytics.NewEngine(kv, notifier, sugar)
	vehicleSvc := services.NewVehicleService(db, engine, sugar)
	noteSvc := services.NewTeamNoteService(db, sugar)
	userSvc := services.NewUserService(db, sugar)
	retentionWorker := services.NewRetentionWorker(engine, cfg.RetentionDays, sugar)

	// Start background retention worker (prunes old analytics buckets)
	go retentionWorker.Start(context.Background(), 6*time.Hour)

	// Initialize handlers
	vehicleHandler := handlers.NewVehicleHandler(vehicleSvc, noteSvc, sugar)
	analyticsHandler := handlers.NewAnalyticsHandler(engine, sugar)
	userHandler := handlers.NewUserHandler(userSvc, sugar)
	healthHandler := handlers.NewHealthHandler(db, sugar)

	// Build router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.StructuredLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.SecureHeaders())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Rate limiting
	r.Use(middleware.RateLimit(cfg.RateLimitRPM))

	// API Routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check
		r.Get("/health", healthHandler.Check)
		r.Get("/health/ready", healthHandler.Ready)

		// Vehicle endpoints
		r.Route("/vehicles", func(r chi.Router) {
			r.Post("/", vehicleHandler.Create)
			r.Get("/", vehicleHandler.List)
			r.Get("/{id}", vehicleHandler.Get)
			r.Put("/{id}", vehicleHandler.Update)
			r.Delete("/{id}", vehicleHandler.Delete)
			r.Post("/{id}/ratings", vehicleHandler.Rate)
			r.Get("/{id}/notes", vehicleHandler.ListNotes)
			r.Post("/{id}/notes", vehicleHandler.AddNote)
			r.Delete("/{id}/notes/{noteID}", vehicleHandler.DeleteNote)
		})

		// Technician registry (admin)
		r.Route("/users", func(r chi.Router) {
			r.Get("/", userHandler.List)
			r.Post("/{initials}/verify", userHandler.VerifyPIN)
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth(cfg.JWTSecret))
				r.Post("/", userHandler.Create)
				r.Delete("/{id}", userHandler.Delete)
			})
		})

		// Analytics endpoints (dashboards, leaderboards)
		r.Route("/analytics", func(r chi.Router) {
			r.Use(middleware.RequireAuth(cfg.JWTSecret))
			r.Get("/users", analyticsHandler.Users)
			r.Get("/users/{initials}/daily", analyticsHandler.UserDaily)
			r.Get("/users/{initials}/week", analyticsHandler.UserWeek)
			r.Get("/users/{initials}/month", analyticsHandler.UserMonth)
			r.Get("/leaderboard", analyticsHandler.Leaderboard)
		})
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sugar.Infof("Server listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	sugar.Info("Shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		sugar.Fatalf("Forced shutdown: %v", err)
	}

	sugar.Info("Server stopped")
}
