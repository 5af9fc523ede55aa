package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ippiapp/ippi-server/internal/domain"
	domainerrors "github.com/ippiapp/ippi-server/internal/errors"
)

func TestPublish_EncodesPayloadAndMessage(t *testing.T) {
	env := setupTestEnv(t, at(t, "2024-06-01"))
	ctx := context.Background()

	payload := domain.AchievementUnlockedPayload{
		RuleID:          "rule-1",
		AchievementName: "7-Day Streak",
		Description:     "Kept working for 7 days in a row",
	}
	require.NoError(t, env.activities.Publish(ctx, "user-1", domain.ActivityAchievementUnlocked, payload))

	activities, err := env.activities.GetUserActivities(ctx, "user-1", 0)
	require.NoError(t, err)
	require.Len(t, activities, 1)

	a := activities[0]
	assert.Equal(t, domain.ActivityAchievementUnlocked, a.Type)
	assert.Equal(t, `Unlocked "7-Day Streak"!`, a.Message)
	assert.JSONEq(t, `{"rule_id":"rule-1","achievement_name":"7-Day Streak","description":"Kept working for 7 days in a row"}`, string(a.RelatedData))
	assert.Contains(t, a.ID, "act-")
	assert.True(t, a.CreatedAt.Equal(at(t, "2024-06-01")))
}

func TestPublish_RejectsUnknownType(t *testing.T) {
	env := setupTestEnv(t, at(t, "2024-06-01"))

	err := env.activities.Publish(context.Background(), "user-1", domain.ActivityType("bogus"), nil)
	assert.True(t, domainerrors.IsValidation(err))
}

func TestGetFeed_FollowedUsersWithoutAchievements(t *testing.T) {
	env := setupTestEnv(t, at(t, "2024-06-01"))
	ctx := context.Background()

	require.NoError(t, env.follows.Follow(ctx, "viewer", "bob"))
	require.NoError(t, env.follows.Follow(ctx, "viewer", "carol"))

	publish := func(userID string, typ domain.ActivityType, payload any) {
		env.clock.Advance(time.Minute)
		require.NoError(t, env.activities.Publish(ctx, userID, typ, payload))
	}
	publish("bob", domain.ActivityWorkCompleted, domain.WorkCompletedPayload{Minutes: 25})
	publish("carol", domain.ActivityWorkCompleted, domain.WorkCompletedPayload{Minutes: 40})
	publish("bob", domain.ActivityAchievementUnlocked, domain.AchievementUnlockedPayload{AchievementName: "1 Hour Achieved"})
	publish("mallory", domain.ActivityWorkCompleted, domain.WorkCompletedPayload{Minutes: 90})
	publish("carol", domain.ActivityWorkCompleted, domain.WorkCompletedPayload{Minutes: 60})

	page, err := env.activities.GetFeed(ctx, "viewer", "", 2)
	require.NoError(t, err)
	require.Len(t, page.Activities, 2)
	assert.Equal(t, "Completed 1h 0m of focused work", page.Activities[0].Message)
	assert.Equal(t, "Completed 0h 40m of focused work", page.Activities[1].Message)
	require.NotEmpty(t, page.NextCursor)

	// The rest: bob's session, then the two follow notifications from setup.
	next, err := env.activities.GetFeed(ctx, "viewer", page.NextCursor, 10)
	require.NoError(t, err)
	require.Len(t, next.Activities, 3)
	assert.Equal(t, "bob", next.Activities[0].UserID)
	assert.Equal(t, domain.ActivityWorkCompleted, next.Activities[0].Type)
	assert.Equal(t, domain.ActivityFollowed, next.Activities[1].Type)
	assert.Equal(t, domain.ActivityFollowed, next.Activities[2].Type)
	assert.Empty(t, next.NextCursor)
}

func TestGetFeed_NoFollowing(t *testing.T) {
	env := setupTestEnv(t, at(t, "2024-06-01"))

	page, err := env.activities.GetFeed(context.Background(), "loner", "", 10)
	require.NoError(t, err)
	assert.Empty(t, page.Activities)
	assert.Empty(t, page.NextCursor)
}

func TestGetFeed_BadCursor(t *testing.T) {
	env := setupTestEnv(t, at(t, "2024-06-01"))

	_, err := env.activities.GetFeed(context.Background(), "viewer", "%%%", 10)
	assert.True(t, domainerrors.IsValidation(err))
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, defaultActivityLimit, clampLimit(0))
	assert.Equal(t, 5, clampLimit(5))
	assert.Equal(t, maxActivityLimit, clampLimit(10_000))
}

func TestGetProfileActivities_HidesUnlocksFromOthers(t *testing.T) {
	env := setupTestEnv(t, at(t, "2024-06-01"))
	ctx := context.Background()

	require.NoError(t, env.activities.Publish(ctx, "bob", domain.ActivityWorkCompleted, domain.WorkCompletedPayload{Minutes: 25}))
	env.clock.Advance(time.Minute)
	require.NoError(t, env.activities.Publish(ctx, "bob", domain.ActivityAchievementUnlocked, domain.AchievementUnlockedPayload{AchievementName: "1 Hour Achieved"}))

	own, err := env.activities.GetProfileActivities(ctx, "bob", "bob", 0)
	require.NoError(t, err)
	assert.Len(t, own, 2)

	seen, err := env.activities.GetProfileActivities(ctx, "alice", "bob", 0)
	require.NoError(t, err)
	require.Len(t, seen, 1)
	assert.Equal(t, domain.ActivityWorkCompleted, seen[0].Type)
}
