package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/goccy/go-json"

	"github.com/ippiapp/ippi-server/internal/clock"
	"github.com/ippiapp/ippi-server/internal/domain"
	domainerrors "github.com/ippiapp/ippi-server/internal/errors"
	"github.com/ippiapp/ippi-server/internal/id"
	"github.com/ippiapp/ippi-server/internal/metrics"
	"github.com/ippiapp/ippi-server/internal/store"
)

// Publisher posts events to a user's feed.
type Publisher interface {
	Publish(ctx context.Context, userID string, activityType domain.ActivityType, payload any) error
}

// Feed listing limits.
const (
	defaultActivityLimit = 20
	maxActivityLimit     = 100
)

// FeedPage is one page of the following feed.
type FeedPage struct {
	Activities []*domain.Activity `json:"activities"`
	NextCursor string             `json:"next_cursor,omitempty"`
}

// ActivityService records feed activities and serves the personal and following feeds.
type ActivityService struct {
	activities store.ActivityStore
	follows    store.FollowStore
	clock      clock.Clock
	metrics    metrics.Recorder
	logger     *slog.Logger
}

var _ Publisher = (*ActivityService)(nil)

// NewActivityService creates a new activity service.
func NewActivityService(
	activities store.ActivityStore,
	follows store.FollowStore,
	clk clock.Clock,
	rec metrics.Recorder,
	logger *slog.Logger,
) *ActivityService {
	return &ActivityService{
		activities: activities,
		follows:    follows,
		clock:      clk,
		metrics:    rec,
		logger:     logger,
	}
}

// Publish stores an activity on userID's feed.
// The payload is JSON-encoded into RelatedData; if it implements domain.Messager
// its rendered text becomes the activity message.
func (s *ActivityService) Publish(ctx context.Context, userID string, activityType domain.ActivityType, payload any) error {
	if !activityType.Valid() {
		return domainerrors.Validationf("unknown activity type %q", activityType)
	}

	activityID, err := id.Generate(id.PrefixActivity)
	if err != nil {
		return fmt.Errorf("generate activity ID: %w", err)
	}

	var related []byte
	if payload != nil {
		related, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode activity payload: %w", err)
		}
	}

	var message string
	if m, ok := payload.(domain.Messager); ok {
		message = m.Message()
	}

	activity := &domain.Activity{
		ID:          activityID,
		UserID:      userID,
		Type:        activityType,
		Message:     message,
		RelatedData: related,
		CreatedAt:   s.clock.Now(),
	}

	if err := s.activities.CreateActivity(ctx, activity); err != nil {
		s.metrics.IncActivityPublishFailures()
		return fmt.Errorf("create activity: %w", err)
	}

	s.metrics.IncActivitiesPublished(string(activityType))
	s.logger.InfoContext(ctx, "activity recorded",
		"type", activity.Type,
		"user_id", userID,
		"activity_id", activity.ID,
	)
	return nil
}

// GetUserActivities returns a user's own activities, newest first.
func (s *ActivityService) GetUserActivities(ctx context.Context, userID string, limit int) ([]*domain.Activity, error) {
	activities, err := s.activities.GetUserActivities(ctx, userID, clampLimit(limit))
	if err != nil {
		return nil, domainerrors.Internal(err, "failed to load activities")
	}
	return activities, nil
}

// GetProfileActivities returns ownerID's activities as viewerID may see them, newest first.
// Other viewers see what a follower's feed would show, so achievement unlocks are left out.
func (s *ActivityService) GetProfileActivities(ctx context.Context, viewerID, ownerID string, limit int) ([]*domain.Activity, error) {
	if viewerID == ownerID {
		return s.GetUserActivities(ctx, ownerID, limit)
	}
	activities, err := s.activities.GetFeedActivities(ctx, []string{ownerID},
		[]domain.ActivityType{domain.ActivityAchievementUnlocked}, domain.ActivityCursor{}, clampLimit(limit))
	if err != nil {
		return nil, domainerrors.Internal(err, "failed to load activities")
	}
	return activities, nil
}

// GetFeed returns activities of the users viewerID follows, newest first.
// Achievement unlocks stay on the owner's own feed and are not fanned out.
func (s *ActivityService) GetFeed(ctx context.Context, viewerID, cursor string, limit int) (*FeedPage, error) {
	before, err := domain.ParseActivityCursor(cursor)
	if err != nil {
		return nil, domainerrors.Validation(err.Error())
	}
	limit = clampLimit(limit)

	following, err := s.follows.ListFollowing(ctx, viewerID)
	if err != nil {
		return nil, domainerrors.Internal(err, "failed to load following")
	}
	if len(following) == 0 {
		return &FeedPage{Activities: []*domain.Activity{}}, nil
	}

	// Fetch one extra row to learn whether another page exists.
	activities, err := s.activities.GetFeedActivities(ctx, following,
		[]domain.ActivityType{domain.ActivityAchievementUnlocked}, before, limit+1)
	if err != nil {
		return nil, domainerrors.Internal(err, "failed to load feed")
	}

	page := &FeedPage{Activities: activities}
	if len(activities) > limit {
		page.Activities = activities[:limit]
		page.NextCursor = domain.CursorAfter(page.Activities[limit-1]).Encode()
	}
	return page, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultActivityLimit
	}
	return min(limit, maxActivityLimit)
}
