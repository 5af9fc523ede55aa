package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ippiapp/ippi-server/internal/domain"
	domainerrors "github.com/ippiapp/ippi-server/internal/errors"
)

func TestFollow_PublishesOnTargetFeed(t *testing.T) {
	env := setupTestEnv(t, at(t, "2024-06-01"))
	ctx := context.Background()

	require.NoError(t, env.follows.Follow(ctx, "alice", "bob"))

	activities, err := env.activities.GetUserActivities(ctx, "bob", 10)
	require.NoError(t, err)
	require.Len(t, activities, 1)
	assert.Equal(t, domain.ActivityFollowed, activities[0].Type)
	assert.Equal(t, "alice started following you", activities[0].Message)
	assert.JSONEq(t, `{"follower_id":"alice"}`, string(activities[0].RelatedData))

	following, err := env.follows.ListFollowing(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, following)

	counts, err := env.follows.Counts(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, domain.FollowCounts{Following: 0, Followers: 1}, counts)
}

func TestFollow_Errors(t *testing.T) {
	env := setupTestEnv(t, at(t, "2024-06-01"))
	ctx := context.Background()

	assert.True(t, domainerrors.IsValidation(env.follows.Follow(ctx, "alice", "alice")))
	assert.True(t, domainerrors.IsValidation(env.follows.Follow(ctx, "alice", "")))

	require.NoError(t, env.follows.Follow(ctx, "alice", "bob"))
	err := env.follows.Follow(ctx, "alice", "bob")
	assert.True(t, errors.Is(err, domainerrors.ErrConflict))
}

func TestUnfollow(t *testing.T) {
	env := setupTestEnv(t, at(t, "2024-06-01"))
	ctx := context.Background()

	require.NoError(t, env.follows.Follow(ctx, "alice", "bob"))
	require.NoError(t, env.follows.Unfollow(ctx, "alice", "bob"))

	err := env.follows.Unfollow(ctx, "alice", "bob")
	assert.True(t, errors.Is(err, domainerrors.ErrNotFound))

	following, err := env.follows.ListFollowing(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, following)
}

func TestFollowers_AndFollowingChecks(t *testing.T) {
	env := setupTestEnv(t, at(t, "2024-06-01"))
	ctx := context.Background()

	require.NoError(t, env.follows.Follow(ctx, "alice", "carol"))
	env.clock.Advance(time.Minute)
	require.NoError(t, env.follows.Follow(ctx, "bob", "carol"))
	require.NoError(t, env.follows.Follow(ctx, "alice", "bob"))

	followers, err := env.follows.ListFollowers(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, followers)

	ok, err := env.follows.IsFollowing(ctx, "alice", "carol")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = env.follows.IsFollowing(ctx, "carol", "alice")
	require.NoError(t, err)
	assert.False(t, ok)

	among, err := env.follows.FollowingAmong(ctx, "alice", followers)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"bob": true}, among)
}
