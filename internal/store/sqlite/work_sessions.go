package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ippiapp/ippi-server/internal/domain"
	"github.com/ippiapp/ippi-server/internal/store"
)

const workSessionColumns = `user_id, work_date, accumulated_seconds, updated_at`

// scanWorkSession scans a single row into a domain.WorkSession.
func scanWorkSession(scanner interface{ Scan(dest ...any) error }) (*domain.WorkSession, error) {
	var (
		ws        domain.WorkSession
		workDate  string
		updatedAt string
	)

	if err := scanner.Scan(&ws.UserID, &workDate, &ws.AccumulatedSeconds, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if ws.WorkDate, err = domain.ParseDate(workDate); err != nil {
		return nil, fmt.Errorf("parse work_date: %w", err)
	}
	if ws.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &ws, nil
}

// upsertWorkSession adds seconds to the (userID, workDate) bucket in a single statement.
// SQLite turns an overflowing integer sum into a REAL, so an addition that would pass
// int64 is refused by the WHERE guard and reported as store.ErrOverflow.
func upsertWorkSession(ctx context.Context, q querier, userID string, workDate time.Time, seconds int64, now time.Time) (*domain.WorkSession, error) {
	if seconds < 0 {
		return nil, fmt.Errorf("upsert work session: negative seconds %d", seconds)
	}
	row := q.QueryRowContext(ctx, `
		INSERT INTO work_sessions (user_id, work_date, accumulated_seconds, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, work_date) DO UPDATE SET
			accumulated_seconds = work_sessions.accumulated_seconds + excluded.accumulated_seconds,
			updated_at = excluded.updated_at
		WHERE work_sessions.accumulated_seconds <= ? - excluded.accumulated_seconds
		RETURNING `+workSessionColumns,
		userID, domain.FormatDate(workDate), seconds, formatTime(now), int64(math.MaxInt64),
	)

	ws, err := scanWorkSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrOverflow.WithCause(fmt.Errorf("work session %s for %s", domain.FormatDate(workDate), userID))
	}
	if err != nil {
		return nil, fmt.Errorf("upsert work session: %w", err)
	}
	return ws, nil
}

// UpsertWorkSession implements store.StatsTx.
func (t *statsTx) UpsertWorkSession(ctx context.Context, userID string, workDate time.Time, seconds int64, now time.Time) (*domain.WorkSession, error) {
	return upsertWorkSession(ctx, t.q, userID, workDate, seconds, now)
}

// GetWorkSession returns the bucket for one date, or nil if the user did not work that day.
func (s *Store) GetWorkSession(ctx context.Context, userID string, workDate time.Time) (*domain.WorkSession, error) {
	ws, err := scanWorkSession(s.db.QueryRowContext(ctx,
		`SELECT `+workSessionColumns+` FROM work_sessions WHERE user_id = ? AND work_date = ?`,
		userID, domain.FormatDate(workDate),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get work session: %w", err)
	}
	return ws, nil
}

// ListWorkSessionsSince returns the user's buckets dated on or after since, oldest first.
func (s *Store) ListWorkSessionsSince(ctx context.Context, userID string, since time.Time) ([]*domain.WorkSession, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+workSessionColumns+` FROM work_sessions
		WHERE user_id = ? AND work_date >= ?
		ORDER BY work_date ASC`,
		userID, domain.FormatDate(since),
	)
	if err != nil {
		return nil, fmt.Errorf("list work sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*domain.WorkSession
	for rows.Next() {
		ws, err := scanWorkSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan work session: %w", err)
		}
		sessions = append(sessions, ws)
	}
	return sessions, rows.Err()
}
