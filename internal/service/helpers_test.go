package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ippiapp/ippi-server/internal/cache"
	"github.com/ippiapp/ippi-server/internal/clock"
	"github.com/ippiapp/ippi-server/internal/keylock"
	"github.com/ippiapp/ippi-server/internal/metrics"
	"github.com/ippiapp/ippi-server/internal/store/sqlite"
)

// testEnv wires the services against a temp-dir SQLite database and a manual clock.
type testEnv struct {
	store        *sqlite.Store
	clock        *clock.Manual
	activities   *ActivityService
	achievements *AchievementService
	follows      *FollowService
	reactions    *ReactionService
	engine       *StatsEngine
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// at returns noon UTC on the given date.
func at(t *testing.T, date string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", date)
	require.NoError(t, err)
	return d.Add(12 * time.Hour)
}

func setupTestEnv(t *testing.T, now time.Time) *testEnv {
	t.Helper()

	logger := newTestLogger()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	clk := clock.NewManual(now)
	rec := metrics.Noop{}

	activities := NewActivityService(s, s, clk, rec, logger)
	achievements := NewAchievementService(s, activities, clk, rec, logger)
	_, err = achievements.SeedCatalog(context.Background())
	require.NoError(t, err)

	engine := NewStatsEngine(
		s, achievements, activities,
		keylock.New(), cache.New(1, 60, logger), rec, clk,
		StatsEngineConfig{Location: time.UTC, MaxRetries: 3, RetryBackoff: time.Millisecond},
		logger,
	)

	return &testEnv{
		store:        s,
		clock:        clk,
		activities:   activities,
		achievements: achievements,
		follows:      NewFollowService(s, activities, clk, logger),
		reactions:    NewReactionService(s, s, clk, logger),
		engine:       engine,
	}
}
