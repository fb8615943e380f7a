// cmd/api/main.go
// Main entry point for the matching service
// Bootstraps all components, background schedulers and the HTTP server

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quartet-app/quartet-backend/internal/common/database"
	"github.com/quartet-app/quartet-backend/internal/config"
	"github.com/quartet-app/quartet-backend/internal/linenotify"
	"github.com/quartet-app/quartet-backend/internal/matching"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	// 1. Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found (%v), using environment variables", err)
	}

	// 2. Load and validate configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal("Configuration validation failed: ", err)
	}

	// 3. Connect to PostgreSQL
	db, err := database.NewPostgresDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL: ", err)
	}
	defer db.Close()
	log.Println("Connected to PostgreSQL")

	// 4. Run database migrations
	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to run migrations: ", err)
	}
	log.Println("Database migrations completed")

	// 5. Connect to Redis (optional, run-overlap lock only)
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedisClientFromURL(cfg.RedisURL)
		if err != nil {
			log.Printf("Redis unavailable (%v), continuing without the run lock", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
			log.Println("Connected to Redis")
		}
	}

	// 6. Notification module
	notifyRepo := linenotify.NewPostgresRepository(db)

	var pushClient linenotify.PushClient
	if cfg.LineChannelToken != "" {
		pushClient = linenotify.NewLineClient(cfg.LinePushURL, cfg.LineChannelToken, cfg.LinePushTimeout)
		log.Println("LINE push client initialized")
	} else {
		pushClient = linenotify.NewMockPushClient()
		log.Println("Using mock push client (no LINE channel token configured)")
	}

	notifyService := linenotify.NewService(notifyRepo, pushClient, cfg.DispatchBatchSize, cfg.NotifyMaxAttempts)

	// 7. Matching module
	matchRepo := matching.NewPostgresRepository(db)
	locker := matching.NewRedisRunLocker(redisClient)

	matchService := matching.NewService(matchRepo, notifyService, locker, matching.Options{
		ScoreThreshold:   cfg.MatchScoreThreshold,
		BaseURL:          cfg.BaseURL,
		Location:         cfg.Location(),
		DispatchAfterRun: true,
	})

	matchHandler := matching.NewHandler(matchService, cfg.Location())

	// 8. Background schedulers
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dispatchScheduler := linenotify.NewDispatchScheduler(notifyService, cfg.DispatchInterval)
	go dispatchScheduler.Start(ctx)

	if cfg.MatchRunEnabled {
		matchScheduler := matching.NewScheduler(matchService, cfg.MatchRunHour, cfg.Location())
		go matchScheduler.Start(ctx)
	}

	// 9. Routes
	router := mux.NewRouter()
	router.HandleFunc("/health", healthCheck).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	matching.RegisterRoutes(router, matchHandler)

	// 10. HTTP server with graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (%s)", cfg.Port, cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server: ", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutdown signal received")
	cancel()
	dispatchScheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}

	log.Println("Server exited gracefully")
}

// healthCheck returns server health status
func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}
