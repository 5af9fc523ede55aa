package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ippiapp/ippi-server/internal/domain"
	"github.com/ippiapp/ippi-server/internal/store"
)

// LikeActivity records userID's like on an activity. Repeated likes are ignored.
func (s *Store) LikeActivity(ctx context.Context, activityID, userID string, now time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activity_likes (activity_id, user_id, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (activity_id, user_id) DO NOTHING`,
		activityID, userID, formatTime(now),
	)
	if err != nil {
		return mapError(fmt.Errorf("insert like: %w", err))
	}
	return nil
}

// UnlikeActivity removes userID's like, if any.
func (s *Store) UnlikeActivity(ctx context.Context, activityID, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM activity_likes WHERE activity_id = ? AND user_id = ?`,
		activityID, userID,
	)
	if err != nil {
		return mapError(fmt.Errorf("delete like: %w", err))
	}
	return nil
}

// CountLikes returns the number of likes on an activity.
func (s *Store) CountLikes(ctx context.Context, activityID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM activity_likes WHERE activity_id = ?`, activityID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count likes: %w", err)
	}
	return n, nil
}

// commentColumns must match the scan order in scanComment.
const commentColumns = `id, activity_id, user_id, text, created_at`

func scanComment(scanner interface{ Scan(dest ...any) error }) (*domain.Comment, error) {
	var (
		c         domain.Comment
		createdAt string
	)
	if err := scanner.Scan(&c.ID, &c.ActivityID, &c.UserID, &c.Text, &createdAt); err != nil {
		return nil, err
	}

	var err error
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	return &c, nil
}

// CreateComment inserts a comment.
func (s *Store) CreateComment(ctx context.Context, c *domain.Comment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activity_comments (`+commentColumns+`)
		VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.ActivityID, c.UserID, c.Text, formatTime(c.CreatedAt),
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists.WithCause(err)
	}
	if err != nil {
		return mapError(fmt.Errorf("insert comment: %w", err))
	}
	return nil
}

// GetComment returns a comment by ID.
// Returns store.ErrNotFound if it does not exist.
func (s *Store) GetComment(ctx context.Context, id string) (*domain.Comment, error) {
	c, err := scanComment(s.db.QueryRowContext(ctx,
		`SELECT `+commentColumns+` FROM activity_comments WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get comment: %w", err)
	}
	return c, nil
}

// DeleteComment removes a comment.
// Returns store.ErrNotFound if it does not exist.
func (s *Store) DeleteComment(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM activity_comments WHERE id = ?`, id)
	if err != nil {
		return mapError(fmt.Errorf("delete comment: %w", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ListComments returns an activity's comments, oldest first.
func (s *Store) ListComments(ctx context.Context, activityID string, limit int) ([]*domain.Comment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+commentColumns+` FROM activity_comments
		WHERE activity_id = ?
		ORDER BY created_at ASC, id ASC
		LIMIT ?`,
		activityID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	comments := []*domain.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// GetReactions returns like and comment counts for the given activities,
// and whether viewerID liked each one.
func (s *Store) GetReactions(ctx context.Context, activityIDs []string, viewerID string) (map[string]domain.Reactions, error) {
	reactions := make(map[string]domain.Reactions, len(activityIDs))
	if len(activityIDs) == 0 {
		return reactions, nil
	}

	in := placeholders(len(activityIDs))
	args := make([]any, 0, 2*len(activityIDs)+1)
	args = append(args, viewerID)
	for _, id := range activityIDs {
		args = append(args, id)
	}
	for _, id := range activityIDs {
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT activity_id, SUM(likes), MAX(liked), SUM(comments) FROM (
			SELECT activity_id, 1 AS likes, user_id = ? AS liked, 0 AS comments
			FROM activity_likes WHERE activity_id IN (`+in+`)
			UNION ALL
			SELECT activity_id, 0, 0, 1
			FROM activity_comments WHERE activity_id IN (`+in+`)
		)
		GROUP BY activity_id`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query reactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id string
			r  domain.Reactions
		)
		if err := rows.Scan(&id, &r.LikeCount, &r.Liked, &r.CommentCount); err != nil {
			return nil, fmt.Errorf("scan reactions: %w", err)
		}
		reactions[id] = r
	}
	return reactions, rows.Err()
}
