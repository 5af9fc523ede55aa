package sqlite

import (
	"context"
	"fmt"

	"github.com/ippiapp/ippi-server/internal/domain"
	"github.com/ippiapp/ippi-server/internal/store"
)

// CreateFollow records a follow edge.
// Returns store.ErrAlreadyExists if the follower already follows the followee.
func (s *Store) CreateFollow(ctx context.Context, f *domain.Follow) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO follows (follower_id, followee_id, created_at)
		VALUES (?, ?, ?)`,
		f.FollowerID, f.FolloweeID, formatTime(f.CreatedAt),
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists.WithCause(err)
	}
	if err != nil {
		return mapError(fmt.Errorf("insert follow: %w", err))
	}
	return nil
}

// DeleteFollow removes a follow edge.
// Returns store.ErrNotFound if no such edge exists.
func (s *Store) DeleteFollow(ctx context.Context, followerID, followeeID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM follows WHERE follower_id = ? AND followee_id = ?`,
		followerID, followeeID,
	)
	if err != nil {
		return mapError(fmt.Errorf("delete follow: %w", err))
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

// ListFollowing returns the IDs of users followerID follows, oldest follow first.
func (s *Store) ListFollowing(ctx context.Context, followerID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT followee_id FROM follows
		WHERE follower_id = ?
		ORDER BY created_at ASC, followee_id ASC`,
		followerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list following: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan followee id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListFollowers returns the IDs of users following followeeID, oldest follow first.
func (s *Store) ListFollowers(ctx context.Context, followeeID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT follower_id FROM follows
		WHERE followee_id = ?
		ORDER BY created_at ASC, follower_id ASC`,
		followeeID,
	)
	if err != nil {
		return nil, fmt.Errorf("list followers: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan follower id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// IsFollowing reports whether followerID follows followeeID.
func (s *Store) IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM follows WHERE follower_id = ? AND followee_id = ?)`,
		followerID, followeeID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check follow: %w", err)
	}
	return exists, nil
}

// FollowingAmong returns which of userIDs followerID follows.
func (s *Store) FollowingAmong(ctx context.Context, followerID string, userIDs []string) (map[string]bool, error) {
	followed := make(map[string]bool)
	if len(userIDs) == 0 {
		return followed, nil
	}

	args := make([]any, 0, len(userIDs)+1)
	args = append(args, followerID)
	for _, id := range userIDs {
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT followee_id FROM follows
		WHERE follower_id = ? AND followee_id IN (`+placeholders(len(userIDs))+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query following among: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan followee id: %w", err)
		}
		followed[id] = true
	}
	return followed, rows.Err()
}

// CountFollows returns how many users userID follows and how many follow them.
func (s *Store) CountFollows(ctx context.Context, userID string) (domain.FollowCounts, error) {
	var counts domain.FollowCounts
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM follows WHERE follower_id = ?),
			(SELECT COUNT(*) FROM follows WHERE followee_id = ?)`,
		userID, userID,
	).Scan(&counts.Following, &counts.Followers)
	if err != nil {
		return counts, fmt.Errorf("count follows: %w", err)
	}
	return counts, nil
}
