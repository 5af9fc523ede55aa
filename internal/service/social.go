package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ippiapp/ippi-server/internal/clock"
	"github.com/ippiapp/ippi-server/internal/domain"
	domainerrors "github.com/ippiapp/ippi-server/internal/errors"
	"github.com/ippiapp/ippi-server/internal/store"
)

// FollowService manages the follow graph that drives the following feed.
type FollowService struct {
	store     store.FollowStore
	publisher Publisher
	clock     clock.Clock
	logger    *slog.Logger
}

// NewFollowService creates a new follow service.
func NewFollowService(store store.FollowStore, publisher Publisher, clk clock.Clock, logger *slog.Logger) *FollowService {
	return &FollowService{
		store:     store,
		publisher: publisher,
		clock:     clk,
		logger:    logger,
	}
}

// Follow makes followerID follow targetID and tells the target through their feed.
func (s *FollowService) Follow(ctx context.Context, followerID, targetID string) error {
	if targetID == "" {
		return domainerrors.Validation("target user is required")
	}
	if followerID == targetID {
		return domainerrors.Validation("cannot follow yourself")
	}

	follow := &domain.Follow{
		FollowerID: followerID,
		FolloweeID: targetID,
		CreatedAt:  s.clock.Now(),
	}
	if err := s.store.CreateFollow(ctx, follow); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domainerrors.Conflict("already following this user")
		}
		return domainerrors.Internal(err, "failed to follow user")
	}

	s.logger.InfoContext(ctx, "user followed", "follower_id", followerID, "followee_id", targetID)

	// The follow stands even if the notification cannot be stored.
	if err := s.publisher.Publish(ctx, targetID, domain.ActivityFollowed, domain.FollowedPayload{FollowerID: followerID}); err != nil {
		s.logger.WarnContext(ctx, "failed to publish follow activity",
			"follower_id", followerID,
			"followee_id", targetID,
			"error", err,
		)
	}
	return nil
}

// Unfollow removes the follow edge.
func (s *FollowService) Unfollow(ctx context.Context, followerID, targetID string) error {
	if err := s.store.DeleteFollow(ctx, followerID, targetID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFound("not following this user")
		}
		return domainerrors.Internal(err, "failed to unfollow user")
	}
	s.logger.InfoContext(ctx, "user unfollowed", "follower_id", followerID, "followee_id", targetID)
	return nil
}

// ListFollowing returns the IDs of users followerID follows.
func (s *FollowService) ListFollowing(ctx context.Context, followerID string) ([]string, error) {
	ids, err := s.store.ListFollowing(ctx, followerID)
	if err != nil {
		return nil, fmt.Errorf("list following: %w", err)
	}
	return ids, nil
}

// ListFollowers returns the IDs of users following userID.
func (s *FollowService) ListFollowers(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.store.ListFollowers(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list followers: %w", err)
	}
	return ids, nil
}

// IsFollowing reports whether followerID follows targetID.
func (s *FollowService) IsFollowing(ctx context.Context, followerID, targetID string) (bool, error) {
	ok, err := s.store.IsFollowing(ctx, followerID, targetID)
	if err != nil {
		return false, fmt.Errorf("check follow: %w", err)
	}
	return ok, nil
}

// FollowingAmong returns which of userIDs viewerID follows.
func (s *FollowService) FollowingAmong(ctx context.Context, viewerID string, userIDs []string) (map[string]bool, error) {
	followed, err := s.store.FollowingAmong(ctx, viewerID, userIDs)
	if err != nil {
		return nil, fmt.Errorf("check follows: %w", err)
	}
	return followed, nil
}

// Counts returns the follow graph summary for a user.
func (s *FollowService) Counts(ctx context.Context, userID string) (domain.FollowCounts, error) {
	counts, err := s.store.CountFollows(ctx, userID)
	if err != nil {
		return counts, fmt.Errorf("count follows: %w", err)
	}
	return counts, nil
}
