package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ippiapp/ippi-server/internal/domain"
)

const userStatsColumns = `user_id, current_streak, longest_streak, total_work_days, last_work_date,
	total_work_seconds, weekly_work_seconds, monthly_work_seconds,
	weekly_period_anchor, monthly_period_anchor,
	completed_todo_count, total_timer_sessions,
	daily_counter_value, daily_counter_date,
	created_at, updated_at`

// scanUserStats scans a single row into a domain.UserStats.
func scanUserStats(scanner interface{ Scan(dest ...any) error }) (*domain.UserStats, error) {
	var (
		s                    domain.UserStats
		lastWorkDate         sql.NullString
		weeklyAnchor         sql.NullString
		monthlyAnchor        sql.NullString
		dailyCounterDate     sql.NullString
		createdAt, updatedAt string
	)

	err := scanner.Scan(
		&s.UserID, &s.CurrentStreak, &s.LongestStreak, &s.TotalWorkDays, &lastWorkDate,
		&s.TotalWorkSeconds, &s.WeeklyWorkSeconds, &s.MonthlyWorkSeconds,
		&weeklyAnchor, &monthlyAnchor,
		&s.CompletedTodoCount, &s.TotalTimerSessions,
		&s.DailyCounterValue, &dailyCounterDate,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if s.LastWorkDate, err = parseDate(lastWorkDate); err != nil {
		return nil, fmt.Errorf("parse last_work_date: %w", err)
	}
	if s.WeeklyPeriodAnchor, err = parseDate(weeklyAnchor); err != nil {
		return nil, fmt.Errorf("parse weekly_period_anchor: %w", err)
	}
	if s.MonthlyPeriodAnchor, err = parseDate(monthlyAnchor); err != nil {
		return nil, fmt.Errorf("parse monthly_period_anchor: %w", err)
	}
	if s.DailyCounterDate, err = parseDate(dailyCounterDate); err != nil {
		return nil, fmt.Errorf("parse daily_counter_date: %w", err)
	}
	if s.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if s.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &s, nil
}

func getUserStats(ctx context.Context, q querier, userID string) (*domain.UserStats, error) {
	s, err := scanUserStats(q.QueryRowContext(ctx,
		`SELECT `+userStatsColumns+` FROM user_stats WHERE user_id = ?`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user stats: %w", err)
	}
	return s, nil
}

func saveUserStats(ctx context.Context, q querier, s *domain.UserStats) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO user_stats (`+userStatsColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			current_streak = excluded.current_streak,
			longest_streak = excluded.longest_streak,
			total_work_days = excluded.total_work_days,
			last_work_date = excluded.last_work_date,
			total_work_seconds = excluded.total_work_seconds,
			weekly_work_seconds = excluded.weekly_work_seconds,
			monthly_work_seconds = excluded.monthly_work_seconds,
			weekly_period_anchor = excluded.weekly_period_anchor,
			monthly_period_anchor = excluded.monthly_period_anchor,
			completed_todo_count = excluded.completed_todo_count,
			total_timer_sessions = excluded.total_timer_sessions,
			daily_counter_value = excluded.daily_counter_value,
			daily_counter_date = excluded.daily_counter_date,
			updated_at = excluded.updated_at`,
		s.UserID, s.CurrentStreak, s.LongestStreak, s.TotalWorkDays, formatDate(s.LastWorkDate),
		s.TotalWorkSeconds, s.WeeklyWorkSeconds, s.MonthlyWorkSeconds,
		formatDate(s.WeeklyPeriodAnchor), formatDate(s.MonthlyPeriodAnchor),
		s.CompletedTodoCount, s.TotalTimerSessions,
		s.DailyCounterValue, formatDate(s.DailyCounterDate),
		formatTime(s.CreatedAt), formatTime(s.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save user stats: %w", err)
	}
	return nil
}

// GetUserStats implements store.StatsTx.
func (t *statsTx) GetUserStats(ctx context.Context, userID string) (*domain.UserStats, error) {
	return getUserStats(ctx, t.q, userID)
}

// SaveUserStats implements store.StatsTx.
func (t *statsTx) SaveUserStats(ctx context.Context, s *domain.UserStats) error {
	return saveUserStats(ctx, t.q, s)
}

// GetUserStats returns the committed aggregate for a user, or nil if none exists.
func (s *Store) GetUserStats(ctx context.Context, userID string) (*domain.UserStats, error) {
	return getUserStats(ctx, s.db, userID)
}

// ListStaleStreakUsers returns users with a live streak whose last work date is before the given date.
func (s *Store) ListStaleStreakUsers(ctx context.Context, lastWorkedBefore time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id FROM user_stats
		WHERE current_streak > 0 AND last_work_date IS NOT NULL AND last_work_date < ?
		ORDER BY user_id`,
		domain.FormatDate(lastWorkedBefore),
	)
	if err != nil {
		return nil, fmt.Errorf("list stale streak users: %w", err)
	}
	defer rows.Close()

	var userIDs []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		userIDs = append(userIDs, userID)
	}
	return userIDs, rows.Err()
}
