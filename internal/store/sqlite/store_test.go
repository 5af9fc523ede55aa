package sqlite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ippiapp/ippi-server/internal/domain"
	"github.com/ippiapp/ippi-server/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := domain.ParseDate(s)
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	return d
}

func TestOpen(t *testing.T) {
	s := newTestStore(t)

	// Verify WAL mode is set.
	var journalMode string
	err := s.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode)
	if err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("expected wal, got %s", journalMode)
	}

	// Verify foreign keys are enabled.
	var fk int
	err = s.db.QueryRow("PRAGMA foreign_keys").Scan(&fk)
	if err != nil {
		t.Fatalf("query foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("expected foreign_keys=1, got %d", fk)
	}

	var busyTimeout int
	if err := s.db.QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout); err != nil {
		t.Fatalf("query busy_timeout: %v", err)
	}
	if busyTimeout != 5000 {
		t.Errorf("expected busy_timeout=5000, got %d", busyTimeout)
	}

	// Verify tables exist.
	tables := []string{
		"work_sessions", "user_stats", "achievement_rules",
		"user_achievements", "activities", "follows",
	}
	for _, table := range tables {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestOpenClose(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	s, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	// Re-open should work (schema is idempotent).
	s2, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("re-open store: %v", err)
	}
	defer s2.Close()
}

func TestWithStatsTx_RollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()
	boom := errors.New("boom")

	err := s.WithStatsTx(ctx, func(tx store.StatsTx) error {
		if _, err := tx.UpsertWorkSession(ctx, "user-1", mustDate(t, "2024-06-01"), 60, now); err != nil {
			return err
		}
		stats := domain.NewUserStats("user-1", now)
		stats.AddWork(60)
		if err := tx.SaveUserStats(ctx, stats); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	ws, err := s.GetWorkSession(ctx, "user-1", mustDate(t, "2024-06-01"))
	if err != nil {
		t.Fatalf("get work session: %v", err)
	}
	if ws != nil {
		t.Errorf("expected no work session after rollback, got %+v", ws)
	}

	stats, err := s.GetUserStats(ctx, "user-1")
	if err != nil {
		t.Fatalf("get user stats: %v", err)
	}
	if stats != nil {
		t.Errorf("expected no stats after rollback, got %+v", stats)
	}
}

func TestWithStatsTx_ConcurrentWritersAllCommit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	day := mustDate(t, "2024-06-01")

	const writers = 16
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := range writers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			userID := fmt.Sprintf("user-%d", i%4)
			errs <- s.WithStatsTx(ctx, func(tx store.StatsTx) error {
				_, err := tx.UpsertWorkSession(ctx, userID, day, 10, time.Now())
				return err
			})
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("stats tx: %v", err)
		}
	}

	for i := range 4 {
		ws, err := s.GetWorkSession(ctx, fmt.Sprintf("user-%d", i), day)
		if err != nil {
			t.Fatalf("get work session: %v", err)
		}
		if ws == nil || ws.AccumulatedSeconds != 40 {
			t.Errorf("user-%d: expected 40 seconds, got %+v", i, ws)
		}
	}
}

func TestFormatTime_SortsLexically(t *testing.T) {
	a := time.Date(2024, 6, 1, 12, 0, 5, 100_000_000, time.UTC)
	b := time.Date(2024, 6, 1, 12, 0, 5, 120_000_000, time.UTC)
	if formatTime(a) >= formatTime(b) {
		t.Errorf("expected %s < %s", formatTime(a), formatTime(b))
	}

	parsed, err := parseTime(formatTime(b))
	if err != nil {
		t.Fatalf("parse time: %v", err)
	}
	if !parsed.Equal(b) {
		t.Errorf("round trip: got %v, want %v", parsed, b)
	}
}
