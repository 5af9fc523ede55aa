package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ippiapp/ippi-server/internal/domain"
	"github.com/ippiapp/ippi-server/internal/store"
)

// activityColumns is the ordered list of columns selected in activity queries.
// Must match the scan order in scanActivity.
const activityColumns = `id, user_id, type, message, related_data, created_at`

// scanActivity scans a sql.Row (or sql.Rows via its Scan method) into a domain.Activity.
func scanActivity(scanner interface{ Scan(dest ...any) error }) (*domain.Activity, error) {
	var (
		a            domain.Activity
		activityType string
		relatedData  sql.NullString
		createdAt    string
	)

	if err := scanner.Scan(&a.ID, &a.UserID, &activityType, &a.Message, &relatedData, &createdAt); err != nil {
		return nil, err
	}

	a.Type = domain.ActivityType(activityType)
	if relatedData.Valid {
		a.RelatedData = []byte(relatedData.String)
	}

	var err error
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	return &a, nil
}

// CreateActivity inserts a new activity record.
func (s *Store) CreateActivity(ctx context.Context, a *domain.Activity) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activities (`+activityColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, string(a.Type), a.Message, nullString(string(a.RelatedData)), formatTime(a.CreatedAt),
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists.WithCause(err)
	}
	if err != nil {
		return mapError(fmt.Errorf("insert activity: %w", err))
	}
	return nil
}

// GetActivity returns the activity with the given ID.
// Returns store.ErrNotFound if it does not exist.
func (s *Store) GetActivity(ctx context.Context, id string) (*domain.Activity, error) {
	a, err := scanActivity(s.db.QueryRowContext(ctx,
		`SELECT `+activityColumns+` FROM activities WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get activity: %w", err)
	}
	return a, nil
}

// GetUserActivities returns a user's most recent activities, newest first.
func (s *Store) GetUserActivities(ctx context.Context, userID string, limit int) ([]*domain.Activity, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+activityColumns+` FROM activities
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query user activities: %w", err)
	}
	return collectActivities(rows)
}

// GetFeedActivities returns activities of the given users, newest first, skipping the excluded types.
// A non-zero before paginates: only activities ordered strictly after the cursor are returned.
func (s *Store) GetFeedActivities(ctx context.Context, userIDs []string, exclude []domain.ActivityType, before domain.ActivityCursor, limit int) ([]*domain.Activity, error) {
	if len(userIDs) == 0 {
		return []*domain.Activity{}, nil
	}

	var (
		where []string
		args  []any
	)

	where = append(where, "user_id IN ("+placeholders(len(userIDs))+")")
	for _, id := range userIDs {
		args = append(args, id)
	}

	if len(exclude) > 0 {
		where = append(where, "type NOT IN ("+placeholders(len(exclude))+")")
		for _, t := range exclude {
			args = append(args, string(t))
		}
	}

	if !before.IsZero() {
		where = append(where, "(created_at < ? OR (created_at = ? AND id < ?))")
		ts := formatTime(before.CreatedAt)
		args = append(args, ts, ts, before.ID)
	}

	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+activityColumns+` FROM activities
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY created_at DESC, id DESC
		LIMIT ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query feed activities: %w", err)
	}
	return collectActivities(rows)
}

func collectActivities(rows *sql.Rows) ([]*domain.Activity, error) {
	defer rows.Close()

	activities := []*domain.Activity{}
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

// placeholders returns "?, ?, ..." with n entries.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
