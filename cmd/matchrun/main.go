// cmd/matchrun/main.go
// One-shot daily matching run, intended for cron invocation.
// Prints the per-slot result summary as JSON on stdout.

package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	"github.com/quartet-app/quartet-backend/internal/common/database"
	"github.com/quartet-app/quartet-backend/internal/config"
	"github.com/quartet-app/quartet-backend/internal/linenotify"
	"github.com/quartet-app/quartet-backend/internal/matching"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime)

	var dateFlag string
	var dispatch bool
	flag.StringVar(&dateFlag, "date", "", "target date (YYYY-MM-DD), defaults to tomorrow")
	flag.BoolVar(&dispatch, "dispatch", true, "run a dispatcher pass after matching")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found (%v), using environment variables", err)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal("Configuration validation failed: ", err)
	}

	loc := cfg.Location()
	target := time.Now().In(loc).AddDate(0, 0, 1)
	if dateFlag != "" {
		parsed, err := time.ParseInLocation("2006-01-02", dateFlag, loc)
		if err != nil {
			log.Fatalf("Invalid -date %q: %v", dateFlag, err)
		}
		target = parsed
	}

	db, err := database.NewPostgresDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL: ", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to run migrations: ", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedisClientFromURL(cfg.RedisURL)
		if err != nil {
			log.Printf("Redis unavailable (%v), continuing without the run lock", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	notifyRepo := linenotify.NewPostgresRepository(db)

	var pushClient linenotify.PushClient
	if cfg.LineChannelToken != "" {
		pushClient = linenotify.NewLineClient(cfg.LinePushURL, cfg.LineChannelToken, cfg.LinePushTimeout)
	} else {
		pushClient = linenotify.NewMockPushClient()
		log.Println("Using mock push client (no LINE channel token configured)")
	}

	notifyService := linenotify.NewService(notifyRepo, pushClient, cfg.DispatchBatchSize, cfg.NotifyMaxAttempts)

	matchRepo := matching.NewPostgresRepository(db)
	matchService := matching.NewService(matchRepo, notifyService, matching.NewRedisRunLocker(redisClient), matching.Options{
		ScoreThreshold:   cfg.MatchScoreThreshold,
		BaseURL:          cfg.BaseURL,
		Location:         loc,
		DispatchAfterRun: dispatch,
	})

	summary, err := matchService.RunDaily(context.Background(), target)
	if err != nil {
		log.Fatal("Match run failed: ", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		log.Fatal("Failed to encode summary: ", err)
	}

	for _, slot := range summary.Slots {
		if slot.Error != "" {
			os.Exit(1)
		}
	}
}
