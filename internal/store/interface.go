// Package store defines the persistence contracts for the ippi server.
package store

import (
	"context"
	"time"

	"github.com/ippiapp/ippi-server/internal/domain"
)

// StatsTx is the transactional view of the stats tables.
// Everything done through one StatsTx commits or rolls back together.
type StatsTx interface {
	// UpsertWorkSession adds seconds to the (userID, workDate) bucket, creating it if needed,
	// and returns the bucket after the update.
	UpsertWorkSession(ctx context.Context, userID string, workDate time.Time, seconds int64, now time.Time) (*domain.WorkSession, error)

	// GetUserStats returns the aggregate, or nil if the user has none yet.
	GetUserStats(ctx context.Context, userID string) (*domain.UserStats, error)

	// SaveUserStats inserts or fully replaces the aggregate row.
	SaveUserStats(ctx context.Context, stats *domain.UserStats) error
}

// StatsStore is the persistence surface used by the stats engine.
type StatsStore interface {
	// WithStatsTx runs fn inside one database transaction.
	WithStatsTx(ctx context.Context, fn func(tx StatsTx) error) error

	GetUserStats(ctx context.Context, userID string) (*domain.UserStats, error)
	GetWorkSession(ctx context.Context, userID string, workDate time.Time) (*domain.WorkSession, error)
	ListWorkSessionsSince(ctx context.Context, userID string, since time.Time) ([]*domain.WorkSession, error)
	ListStaleStreakUsers(ctx context.Context, lastWorkedBefore time.Time) ([]string, error)
}

// AchievementStore is the persistence surface used by the achievement evaluator.
type AchievementStore interface {
	SeedAchievementRules(ctx context.Context, rules []domain.AchievementRule, now time.Time) (int, error)
	ListAchievementRules(ctx context.Context) ([]*domain.AchievementRule, error)
	HasUserAchievement(ctx context.Context, userID, ruleID string) (bool, error)
	// CreateUserAchievement returns ErrAlreadyExists if the user already holds the rule.
	CreateUserAchievement(ctx context.Context, award *domain.AchievementAward) error
	ListUserAchievements(ctx context.Context, userID string) ([]*domain.AchievementAward, error)
}

// ActivityStore persists feed activities.
type ActivityStore interface {
	CreateActivity(ctx context.Context, activity *domain.Activity) error
	// GetActivity returns ErrNotFound if no activity has the ID.
	GetActivity(ctx context.Context, id string) (*domain.Activity, error)
	GetUserActivities(ctx context.Context, userID string, limit int) ([]*domain.Activity, error)
	GetFeedActivities(ctx context.Context, userIDs []string, exclude []domain.ActivityType, before domain.ActivityCursor, limit int) ([]*domain.Activity, error)
}

// FollowStore persists the follow graph.
type FollowStore interface {
	CreateFollow(ctx context.Context, follow *domain.Follow) error
	DeleteFollow(ctx context.Context, followerID, followeeID string) error
	ListFollowing(ctx context.Context, followerID string) ([]string, error)
	ListFollowers(ctx context.Context, followeeID string) ([]string, error)
	IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error)
	// FollowingAmong returns the subset of userIDs that followerID follows.
	FollowingAmong(ctx context.Context, followerID string, userIDs []string) (map[string]bool, error)
	CountFollows(ctx context.Context, userID string) (domain.FollowCounts, error)
}

// ReactionStore persists likes and comments on activities.
type ReactionStore interface {
	// LikeActivity records a like. Liking twice is a no-op.
	LikeActivity(ctx context.Context, activityID, userID string, now time.Time) error
	// UnlikeActivity removes a like. Removing a missing like is a no-op.
	UnlikeActivity(ctx context.Context, activityID, userID string) error
	CountLikes(ctx context.Context, activityID string) (int, error)

	CreateComment(ctx context.Context, comment *domain.Comment) error
	// GetComment returns ErrNotFound if no comment has the ID.
	GetComment(ctx context.Context, id string) (*domain.Comment, error)
	DeleteComment(ctx context.Context, id string) error
	ListComments(ctx context.Context, activityID string, limit int) ([]*domain.Comment, error)

	// GetReactions summarizes each activity for viewerID. Activities without
	// likes or comments are absent from the map.
	GetReactions(ctx context.Context, activityIDs []string, viewerID string) (map[string]domain.Reactions, error)
}
