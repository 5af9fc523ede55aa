package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ippiapp/ippi-server/internal/cache"
	"github.com/ippiapp/ippi-server/internal/clock"
	"github.com/ippiapp/ippi-server/internal/domain"
	domainerrors "github.com/ippiapp/ippi-server/internal/errors"
	"github.com/ippiapp/ippi-server/internal/keylock"
	"github.com/ippiapp/ippi-server/internal/metrics"
	"github.com/ippiapp/ippi-server/internal/store"
)

// Operation names used for metrics and logs.
const (
	opRecordWorkSession = "record_work_session"
	opIncrementCounter  = "increment_daily_counter"
	opTodoCompleted     = "todo_completed"
	opTodoUncompleted   = "todo_uncompleted"
	opCheckStreakDecay  = "check_streak_decay"
)

const (
	defaultActivityDays  = 365
	maxActivityDays      = 366 * 5
	defaultRetryAttempts = 3
)

// StatsEngineConfig tunes the stats engine.
type StatsEngineConfig struct {
	// Location defines the calendar day used as "today". Defaults to UTC.
	Location *time.Location
	// MaxRetries bounds retries of a unit of work after database contention.
	MaxRetries int
	// RetryBackoff is multiplied by the attempt number between retries.
	RetryBackoff time.Duration
}

// StatsEngine maintains the per-user aggregate: work sessions, streaks, rolling
// totals, the daily counter and todo counts.
//
// Every mutation of one user's aggregate runs under that user's key in locks and
// inside one store transaction, so the work-session upsert and the aggregate
// update commit or roll back together. Achievement evaluation follows the commit
// while the lock is still held.
type StatsEngine struct {
	store     store.StatsStore
	evaluator Evaluator
	publisher Publisher
	locks     *keylock.KeyedMutex
	cache     cache.StatsCache
	metrics   metrics.Recorder
	clock     clock.Clock
	cfg       StatsEngineConfig
	logger    *slog.Logger
}

// NewStatsEngine creates a new stats engine.
func NewStatsEngine(
	statsStore store.StatsStore,
	evaluator Evaluator,
	publisher Publisher,
	locks *keylock.KeyedMutex,
	statsCache cache.StatsCache,
	rec metrics.Recorder,
	clk clock.Clock,
	cfg StatsEngineConfig,
	logger *slog.Logger,
) *StatsEngine {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = defaultRetryAttempts
	}
	return &StatsEngine{
		store:     statsStore,
		evaluator: evaluator,
		publisher: publisher,
		locks:     locks,
		cache:     statsCache,
		metrics:   rec,
		clock:     clk,
		cfg:       cfg,
		logger:    logger,
	}
}

// today returns the current calendar date in the configured location.
func (e *StatsEngine) today() time.Time {
	return domain.Date(e.clock.Now().In(e.cfg.Location))
}

// RecordWorkSession books seconds of work on workDate (YYYY-MM-DD) and returns the updated aggregate.
func (e *StatsEngine) RecordWorkSession(ctx context.Context, userID, workDate string, seconds int64) (*domain.UserStats, error) {
	if userID == "" {
		return nil, domainerrors.Validation("user ID is required")
	}
	if seconds <= 0 {
		return nil, domainerrors.Validationf("seconds must be positive, got %d", seconds)
	}
	if seconds > domain.MaxWorkSessionSeconds {
		return nil, domainerrors.Validationf("seconds must be at most %d, got %d", domain.MaxWorkSessionSeconds, seconds)
	}
	date, err := domain.ParseDate(workDate)
	if err != nil {
		return nil, domainerrors.Validation(err.Error())
	}

	unlock, err := e.locks.Lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	today := e.today()
	var (
		committed  *domain.UserStats
		transition domain.StreakTransition
		session    *domain.WorkSession
	)

	err = e.runTx(ctx, opRecordWorkSession, func(tx store.StatsTx) error {
		now := e.clock.Now()

		ws, err := tx.UpsertWorkSession(ctx, userID, date, seconds, now)
		if errors.Is(err, store.ErrOverflow) {
			return domainerrors.Validation("work time for this date is out of range").WithCause(err)
		}
		if err != nil {
			return err
		}

		stats, err := e.loadForUpdate(ctx, tx, userID, now)
		if err != nil {
			return err
		}
		if !stats.CanAddWork(seconds) {
			return domainerrors.Validation("total work time is out of range")
		}

		// NOTE: rolling windows reset against today's anchors, not workDate's.
		// A session for yesterday submitted after midnight lands in today's week
		// and month while its streak effect uses workDate.
		stats.ResetPeriods(today)
		t := stats.ApplyWorkDate(date)
		stats.AddWork(seconds)
		stats.UpdatedAt = now

		if err := tx.SaveUserStats(ctx, stats); err != nil {
			return err
		}

		committed, transition, session = stats, t, ws
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.cache.Invalidate(userID)

	e.logger.InfoContext(ctx, "work session recorded",
		"user_id", userID,
		"work_date", workDate,
		"seconds", seconds,
		"day_total_seconds", session.AccumulatedSeconds,
		"streak_transition", transition,
		"current_streak", committed.CurrentStreak,
	)

	e.evaluate(ctx, userID, committed)

	if seconds >= domain.MinWorkCompletedSeconds {
		payload := domain.WorkCompletedPayload{Minutes: seconds / 60}
		if err := e.publisher.Publish(ctx, userID, domain.ActivityWorkCompleted, payload); err != nil {
			e.logger.WarnContext(ctx, "failed to publish work activity", "user_id", userID, "error", err)
		}
	}

	return committed.ViewAt(today), nil
}

// IncrementDailyCounter adds one to today's counter, starting from zero on a new day.
func (e *StatsEngine) IncrementDailyCounter(ctx context.Context, userID string) (*domain.UserStats, error) {
	return e.mutate(ctx, opIncrementCounter, userID, false, func(stats *domain.UserStats, today time.Time) bool {
		stats.IncrementDailyCounter(today)
		return true
	})
}

// RecordTodoCompleted counts a completed todo and re-evaluates achievements.
func (e *StatsEngine) RecordTodoCompleted(ctx context.Context, userID string) (*domain.UserStats, error) {
	return e.mutate(ctx, opTodoCompleted, userID, true, func(stats *domain.UserStats, _ time.Time) bool {
		stats.CompleteTodo()
		return true
	})
}

// RecordTodoUncompleted reverts a completed todo. The count never goes below zero.
func (e *StatsEngine) RecordTodoUncompleted(ctx context.Context, userID string) (*domain.UserStats, error) {
	return e.mutate(ctx, opTodoUncompleted, userID, false, func(stats *domain.UserStats, _ time.Time) bool {
		return stats.UncompleteTodo()
	})
}

// CheckStreakDecay zeroes the current streak when the user skipped more than one day.
// It is not part of the work-event path and must be invoked explicitly.
func (e *StatsEngine) CheckStreakDecay(ctx context.Context, userID string) (*domain.UserStats, error) {
	var decayed bool
	stats, err := e.mutate(ctx, opCheckStreakDecay, userID, false, func(stats *domain.UserStats, today time.Time) bool {
		decayed = stats.DecayStreak(today)
		return decayed
	})
	if err != nil {
		return nil, err
	}
	if decayed {
		e.metrics.AddStreaksDecayed(1)
		e.logger.InfoContext(ctx, "streak decayed",
			"user_id", userID,
			"last_work_date", domain.FormatDate(stats.LastWorkDate),
			"longest_streak", stats.LongestStreak,
		)
	}
	return stats, nil
}

// DecayStreaks runs CheckStreakDecay for every user whose live streak has lapsed.
// Returns how many streaks were reset.
func (e *StatsEngine) DecayStreaks(ctx context.Context) (int, error) {
	yesterday := e.today().AddDate(0, 0, -1)
	userIDs, err := e.store.ListStaleStreakUsers(ctx, yesterday)
	if err != nil {
		return 0, domainerrors.Internal(err, "failed to list lapsed streaks")
	}

	decayed := 0
	for _, userID := range userIDs {
		if err := ctx.Err(); err != nil {
			return decayed, err
		}
		stats, err := e.CheckStreakDecay(ctx, userID)
		if err != nil {
			e.logger.WarnContext(ctx, "streak decay check failed", "user_id", userID, "error", err)
			continue
		}
		if stats.CurrentStreak == 0 {
			decayed++
		}
	}
	return decayed, nil
}

// GetStats returns the aggregate as observed today without writing.
// Stale weekly/monthly totals and a stale daily counter read as zero.
// A user with no recorded activity gets the zero aggregate.
func (e *StatsEngine) GetStats(ctx context.Context, userID string) (*domain.UserStats, error) {
	if userID == "" {
		return nil, domainerrors.Validation("user ID is required")
	}
	today := e.today()

	if stats, ok := e.cache.Get(userID); ok {
		e.metrics.IncCacheHits()
		return stats.ViewAt(today), nil
	}
	e.metrics.IncCacheMisses()

	// Fill the cache under the user lock so a concurrent writer cannot
	// invalidate before a stale read is cached.
	unlock, err := e.locks.Lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if stats, ok := e.cache.Get(userID); ok {
		return stats.ViewAt(today), nil
	}

	stats, err := e.store.GetUserStats(ctx, userID)
	if err != nil {
		return nil, domainerrors.Internal(err, "failed to load stats")
	}
	if stats == nil {
		return domain.NewUserStats(userID, e.clock.Now()).ViewAt(today), nil
	}

	e.cache.Set(userID, stats)
	return stats.ViewAt(today), nil
}

// GetDailyActivity returns minutes worked per date over the last days days, oldest first.
// Dates without work are omitted.
func (e *StatsEngine) GetDailyActivity(ctx context.Context, userID string, days int) ([]domain.DailyActivity, error) {
	if days <= 0 {
		days = defaultActivityDays
	}
	if days > maxActivityDays {
		return nil, domainerrors.Validationf("days must be at most %d", maxActivityDays)
	}

	since := e.today().AddDate(0, 0, -(days - 1))
	sessions, err := e.store.ListWorkSessionsSince(ctx, userID, since)
	if err != nil {
		return nil, domainerrors.Internal(err, "failed to load daily activity")
	}

	activity := make([]domain.DailyActivity, 0, len(sessions))
	for _, ws := range sessions {
		activity = append(activity, domain.DailyActivity{
			Date:    ws.WorkDate,
			Minutes: ws.AccumulatedSeconds / 60,
		})
	}
	return activity, nil
}

// mutate runs one locked read-modify-write of the aggregate.
// apply reports whether it changed anything; unchanged aggregates are not written.
func (e *StatsEngine) mutate(
	ctx context.Context,
	op, userID string,
	reevaluate bool,
	apply func(stats *domain.UserStats, today time.Time) bool,
) (*domain.UserStats, error) {
	if userID == "" {
		return nil, domainerrors.Validation("user ID is required")
	}

	unlock, err := e.locks.Lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	today := e.today()
	var (
		result  *domain.UserStats
		changed bool
	)

	err = e.runTx(ctx, op, func(tx store.StatsTx) error {
		now := e.clock.Now()
		stats, err := e.loadForUpdate(ctx, tx, userID, now)
		if err != nil {
			return err
		}

		changed = apply(stats, today)
		result = stats
		if !changed {
			return nil
		}

		stats.UpdatedAt = now
		return tx.SaveUserStats(ctx, stats)
	})
	if err != nil {
		return nil, err
	}

	if changed {
		e.cache.Invalidate(userID)
		if reevaluate {
			e.evaluate(ctx, userID, result)
		}
	}
	return result.ViewAt(today), nil
}

// loadForUpdate returns the user's aggregate, or a fresh one if none is stored.
func (e *StatsEngine) loadForUpdate(ctx context.Context, tx store.StatsTx, userID string, now time.Time) (*domain.UserStats, error) {
	stats, err := tx.GetUserStats(ctx, userID)
	if err != nil {
		return nil, err
	}
	if stats == nil {
		stats = domain.NewUserStats(userID, now)
	}
	return stats, nil
}

// runTx runs fn in a stats transaction, retrying the whole unit on database contention.
// Exhausted retries surface as a conflict; any other failure as an internal error.
func (e *StatsEngine) runTx(ctx context.Context, op string, fn func(tx store.StatsTx) error) error {
	for attempt := 0; ; attempt++ {
		err := e.store.WithStatsTx(ctx, fn)
		if err == nil {
			e.metrics.IncStatsUpdates(op)
			return nil
		}

		if domainerrors.IsValidation(err) {
			return err
		}
		if !store.IsBusy(err) {
			return domainerrors.Internal(err, "failed to update stats")
		}

		if attempt >= e.cfg.MaxRetries {
			e.metrics.IncStatsConflicts(op)
			e.logger.WarnContext(ctx, "stats update retries exhausted", "op", op, "attempts", attempt+1, "error", err)
			return domainerrors.Conflict("stats update contention, retries exhausted").WithCause(err)
		}

		e.metrics.IncStatsRetries(op)
		e.logger.DebugContext(ctx, "retrying stats update after contention", "op", op, "attempt", attempt+1)

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", op, ctx.Err())
		case <-time.After(e.cfg.RetryBackoff * time.Duration(attempt+1)):
		}
	}
}

// evaluate hands a committed snapshot to the evaluator. Failures never undo the commit.
func (e *StatsEngine) evaluate(ctx context.Context, userID string, snapshot *domain.UserStats) {
	if _, err := e.evaluator.Evaluate(ctx, userID, snapshot.Clone()); err != nil {
		e.metrics.IncAwardFailures()
		e.logger.WarnContext(ctx, "achievement evaluation failed", "user_id", userID, "error", err)
	}
}
