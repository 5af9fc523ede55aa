package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/ippiapp/ippi-server/internal/clock"
	"github.com/ippiapp/ippi-server/internal/domain"
	domainerrors "github.com/ippiapp/ippi-server/internal/errors"
	"github.com/ippiapp/ippi-server/internal/id"
	"github.com/ippiapp/ippi-server/internal/store"
)

// ReactionService manages likes and comments on feed activities.
type ReactionService struct {
	activities store.ActivityStore
	reactions  store.ReactionStore
	clock      clock.Clock
	logger     *slog.Logger
}

// NewReactionService creates a new reaction service.
func NewReactionService(
	activities store.ActivityStore,
	reactions store.ReactionStore,
	clk clock.Clock,
	logger *slog.Logger,
) *ReactionService {
	return &ReactionService{
		activities: activities,
		reactions:  reactions,
		clock:      clk,
		logger:     logger,
	}
}

// Like adds userID's like to an activity and returns the new like count.
// Liking an already liked activity changes nothing.
func (s *ReactionService) Like(ctx context.Context, userID, activityID string) (int, error) {
	if err := s.requireActivity(ctx, activityID); err != nil {
		return 0, err
	}
	if err := s.reactions.LikeActivity(ctx, activityID, userID, s.clock.Now()); err != nil {
		return 0, domainerrors.Internal(err, "failed to like activity")
	}
	return s.likeCount(ctx, activityID)
}

// Unlike removes userID's like and returns the new like count.
func (s *ReactionService) Unlike(ctx context.Context, userID, activityID string) (int, error) {
	if err := s.requireActivity(ctx, activityID); err != nil {
		return 0, err
	}
	if err := s.reactions.UnlikeActivity(ctx, activityID, userID); err != nil {
		return 0, domainerrors.Internal(err, "failed to unlike activity")
	}
	return s.likeCount(ctx, activityID)
}

// AddComment stores a comment on an activity. Surrounding whitespace is trimmed
// and the remaining text must hold 1 to domain.MaxCommentLength characters.
func (s *ReactionService) AddComment(ctx context.Context, userID, activityID, text string) (*domain.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domainerrors.Validation("comment text is required")
	}
	if n := utf8.RuneCountInString(text); n > domain.MaxCommentLength {
		return nil, domainerrors.Validationf("comment must be at most %d characters, got %d", domain.MaxCommentLength, n)
	}
	if err := s.requireActivity(ctx, activityID); err != nil {
		return nil, err
	}

	commentID, err := id.Generate(id.PrefixComment)
	if err != nil {
		return nil, fmt.Errorf("generate comment ID: %w", err)
	}
	comment := &domain.Comment{
		ID:         commentID,
		ActivityID: activityID,
		UserID:     userID,
		Text:       text,
		CreatedAt:  s.clock.Now(),
	}
	if err := s.reactions.CreateComment(ctx, comment); err != nil {
		return nil, domainerrors.Internal(err, "failed to add comment")
	}

	s.logger.InfoContext(ctx, "comment added",
		"activity_id", activityID,
		"comment_id", comment.ID,
		"user_id", userID,
	)
	return comment, nil
}

// DeleteComment removes a comment. Only its author may delete it.
func (s *ReactionService) DeleteComment(ctx context.Context, userID, activityID, commentID string) error {
	comment, err := s.reactions.GetComment(ctx, commentID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && comment.ActivityID != activityID) {
		return domainerrors.NotFound("comment not found")
	}
	if err != nil {
		return domainerrors.Internal(err, "failed to load comment")
	}
	if comment.UserID != userID {
		return domainerrors.Forbidden("only the author can delete this comment")
	}

	if err := s.reactions.DeleteComment(ctx, commentID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFound("comment not found")
		}
		return domainerrors.Internal(err, "failed to delete comment")
	}
	s.logger.InfoContext(ctx, "comment deleted", "activity_id", activityID, "comment_id", commentID)
	return nil
}

// ListComments returns an activity's comments, oldest first.
func (s *ReactionService) ListComments(ctx context.Context, activityID string, limit int) ([]*domain.Comment, error) {
	if err := s.requireActivity(ctx, activityID); err != nil {
		return nil, err
	}
	comments, err := s.reactions.ListComments(ctx, activityID, clampLimit(limit))
	if err != nil {
		return nil, domainerrors.Internal(err, "failed to load comments")
	}
	return comments, nil
}

// Summaries returns the reactions on each activity as viewerID sees them.
// Activities nobody reacted to map to the zero Reactions.
func (s *ReactionService) Summaries(ctx context.Context, viewerID string, activities []*domain.Activity) (map[string]domain.Reactions, error) {
	ids := make([]string, len(activities))
	for i, a := range activities {
		ids[i] = a.ID
	}
	reactions, err := s.reactions.GetReactions(ctx, ids, viewerID)
	if err != nil {
		return nil, domainerrors.Internal(err, "failed to load reactions")
	}
	return reactions, nil
}

func (s *ReactionService) requireActivity(ctx context.Context, activityID string) error {
	if _, err := s.activities.GetActivity(ctx, activityID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFound("activity not found")
		}
		return domainerrors.Internal(err, "failed to load activity")
	}
	return nil
}

func (s *ReactionService) likeCount(ctx context.Context, activityID string) (int, error) {
	n, err := s.reactions.CountLikes(ctx, activityID)
	if err != nil {
		return 0, domainerrors.Internal(err, "failed to count likes")
	}
	return n, nil
}
