// Package main prints one user's stored aggregate, awards, recent work and feed.
//
// Usage:
//
//	METADATA_PATH=~/.ippi go run ./cmd/dbinspect -user alice
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ippiapp/ippi-server/internal/config"
	"github.com/ippiapp/ippi-server/internal/domain"
	"github.com/ippiapp/ippi-server/internal/store/sqlite"
)

var (
	userID     = flag.String("user", "demo", "User ID to inspect")
	recentDays = flag.Int("days", 14, "Days of work sessions to list")
	feedLimit  = flag.Int("activities", 10, "Number of recent activities to list")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(nil)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	st, err := sqlite.Open(cfg.Metadata.DatabasePath(), logger)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer st.Close()

	ctx := context.Background()

	fmt.Println("=== Database Inspection ===")
	fmt.Printf("Database: %s\nUser:     %s\n\n", cfg.Metadata.DatabasePath(), *userID)

	stats, err := st.GetUserStats(ctx, *userID)
	if err != nil {
		log.Fatalf("Failed to load aggregate: %v", err)
	}
	fmt.Println("--- Aggregate (as stored) ---")
	if stats == nil {
		fmt.Println("  no aggregate stored")
	} else {
		fmt.Printf("  Streak:           current %d, longest %d\n", stats.CurrentStreak, stats.LongestStreak)
		fmt.Printf("  Work days:        %d (last %s)\n", stats.TotalWorkDays, orNull(stats.LastWorkDate))
		fmt.Printf("  Total:            %s\n", time.Duration(stats.TotalWorkSeconds)*time.Second)
		fmt.Printf("  Weekly:           %s (anchor %s)\n",
			time.Duration(stats.WeeklyWorkSeconds)*time.Second, orNull(stats.WeeklyPeriodAnchor))
		fmt.Printf("  Monthly:          %s (anchor %s)\n",
			time.Duration(stats.MonthlyWorkSeconds)*time.Second, orNull(stats.MonthlyPeriodAnchor))
		fmt.Printf("  Daily counter:    %d on %s\n", stats.DailyCounterValue, orNull(stats.DailyCounterDate))
		fmt.Printf("  Todos completed:  %d\n", stats.CompletedTodoCount)
		fmt.Printf("  Timer sessions:   %d\n", stats.TotalTimerSessions)
		fmt.Printf("  Updated:          %s\n", stats.UpdatedAt.Format(time.RFC3339))
	}
	fmt.Println()

	rules, err := st.ListAchievementRules(ctx)
	if err != nil {
		log.Fatalf("Failed to load rules: %v", err)
	}
	names := make(map[string]string, len(rules))
	for _, r := range rules {
		names[r.ID] = r.Name
	}
	awards, err := st.ListUserAchievements(ctx, *userID)
	if err != nil {
		log.Fatalf("Failed to load awards: %v", err)
	}
	fmt.Printf("--- Achievements (%d of %d) ---\n", len(awards), len(rules))
	for _, a := range awards {
		fmt.Printf("  %s  %s\n", a.AwardedAt.Format(time.RFC3339), names[a.RuleID])
	}
	fmt.Println()

	since := domain.Date(time.Now().UTC()).AddDate(0, 0, -(*recentDays - 1))
	sessions, err := st.ListWorkSessionsSince(ctx, *userID, since)
	if err != nil {
		log.Fatalf("Failed to load work sessions: %v", err)
	}
	fmt.Printf("--- Work sessions since %s ---\n", domain.FormatDate(since))
	for _, ws := range sessions {
		minutes := ws.AccumulatedSeconds / 60
		bar := strings.Repeat("#", int(min(minutes/5, 40)))
		fmt.Printf("  %s  %4dm  %s\n", domain.FormatDate(ws.WorkDate), minutes, bar)
	}
	fmt.Println()

	activities, err := st.GetUserActivities(ctx, *userID, *feedLimit)
	if err != nil {
		log.Fatalf("Failed to load activities: %v", err)
	}
	fmt.Printf("--- Recent activities (%d) ---\n", len(activities))
	for _, a := range activities {
		fmt.Printf("  %s  %-22s %s\n", a.CreatedAt.Format(time.RFC3339), a.Type, a.Message)
	}
}

func orNull(t time.Time) string {
	if t.IsZero() {
		return "null"
	}
	return domain.FormatDate(t)
}
