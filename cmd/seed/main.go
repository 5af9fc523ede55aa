// Package main provides a tool to seed the database with sample work data.
//
// It records a run of work sessions for one user through the stats engine, so
// streaks, rolling totals, achievements and feed activities come out exactly as
// they would from the API, then prints an access token for that user.
//
// Usage:
//
//	METADATA_PATH=~/.ippi go run ./cmd/seed -user alice -days 45
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	"github.com/ippiapp/ippi-server/internal/auth"
	"github.com/ippiapp/ippi-server/internal/cache"
	"github.com/ippiapp/ippi-server/internal/clock"
	"github.com/ippiapp/ippi-server/internal/config"
	"github.com/ippiapp/ippi-server/internal/domain"
	"github.com/ippiapp/ippi-server/internal/keylock"
	"github.com/ippiapp/ippi-server/internal/metrics"
	"github.com/ippiapp/ippi-server/internal/service"
	"github.com/ippiapp/ippi-server/internal/store/sqlite"
)

var (
	userID    = flag.String("user", "demo", "User ID to seed")
	days      = flag.Int("days", 30, "Number of days of history to create, ending today")
	skipRatio = flag.Float64("skip", 0.2, "Fraction of days left without work")
	follow    = flag.String("follow", "", "Optional user ID the seeded user should follow")
)

func main() {
	flag.Parse()

	if *days <= 0 {
		log.Fatalf("-days must be positive, got %d", *days)
	}

	cfg, err := config.Load(nil)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	dbPath := cfg.Metadata.DatabasePath()
	fmt.Printf("Opening database at: %s\n", dbPath)

	st, err := sqlite.Open(dbPath, logger)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	loc, err := cfg.Stats.Location()
	if err != nil {
		log.Fatalf("Invalid time zone: %v", err)
	}

	ctx := context.Background()
	clk := clock.System{}
	rec := metrics.Noop{}

	activities := service.NewActivityService(st, st, clk, rec, logger)
	achievements := service.NewAchievementService(st, activities, clk, rec, logger)
	inserted, err := achievements.SeedCatalog(ctx)
	if err != nil {
		log.Fatalf("Failed to seed achievement catalog: %v", err)
	}
	fmt.Printf("Achievement catalog: %d new rules\n", inserted)

	engine := service.NewStatsEngine(
		st, achievements, activities,
		keylock.New(), cache.Noop{}, rec, clk,
		service.StatsEngineConfig{Location: loc, MaxRetries: cfg.Stats.MaxRetries, RetryBackoff: cfg.Stats.RetryBackoff},
		logger,
	)

	today := domain.Date(time.Now().In(loc))
	sessions := 0
	var totalSeconds int64
	for offset := *days - 1; offset >= 0; offset-- {
		if offset > 0 && rand.Float64() < *skipRatio {
			continue
		}
		day := today.AddDate(0, 0, -offset)

		// One or two sessions a day of 10 to 90 minutes each.
		for range 1 + rand.IntN(2) {
			seconds := int64(10+rand.IntN(81)) * 60
			if _, err := engine.RecordWorkSession(ctx, *userID, domain.FormatDate(day), seconds); err != nil {
				log.Fatalf("Failed to record session for %s: %v", domain.FormatDate(day), err)
			}
			sessions++
			totalSeconds += seconds
		}
	}

	for range 1 + rand.IntN(5) {
		if _, err := engine.RecordTodoCompleted(ctx, *userID); err != nil {
			log.Fatalf("Failed to record todo: %v", err)
		}
	}
	if _, err := engine.IncrementDailyCounter(ctx, *userID); err != nil {
		log.Fatalf("Failed to increment counter: %v", err)
	}

	if *follow != "" {
		follows := service.NewFollowService(st, activities, clk, logger)
		if err := follows.Follow(ctx, *userID, *follow); err != nil {
			fmt.Printf("Follow %s: %v\n", *follow, err)
		}
	}

	stats, err := engine.GetStats(ctx, *userID)
	if err != nil {
		log.Fatalf("Failed to read stats: %v", err)
	}

	fmt.Printf("Recorded %d sessions (%d minutes) for %s\n", sessions, totalSeconds/60, *userID)
	fmt.Printf("Current streak: %d, longest: %d, work days: %d\n",
		stats.CurrentStreak, stats.LongestStreak, stats.TotalWorkDays)

	key := cfg.Auth.AccessTokenKey
	if key == "" {
		key, err = auth.LoadOrGenerateKey(cfg.Metadata.BasePath)
		if err != nil {
			log.Fatalf("Failed to load auth key: %v", err)
		}
	}
	tokens, err := auth.NewTokenService(key, cfg.Auth.AccessTokenDuration)
	if err != nil {
		log.Fatalf("Failed to create token service: %v", err)
	}
	token, err := tokens.GenerateAccessToken(*userID)
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}

	fmt.Println()
	fmt.Printf("Access token for %s (valid %s):\n%s\n", *userID, cfg.Auth.AccessTokenDuration, token)
}
