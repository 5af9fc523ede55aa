package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// registerUserRoutes exposes read-only views of any user's profile.
func (s *Server) registerUserRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getUserStats",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/{userID}/stats",
		Summary:     "Get a user's statistics",
		Description: "Returns another user's statistics as observed today. Users with no activity get zeros.",
		Tags:        []string{"Users"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetUserStats)

	huma.Register(s.api, huma.Operation{
		OperationID: "getUserDailyActivity",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/{userID}/stats/daily",
		Summary:     "Get a user's daily activity",
		Tags:        []string{"Users"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetUserDailyActivity)

	huma.Register(s.api, huma.Operation{
		OperationID: "listUserAchievements",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/{userID}/achievements",
		Summary:     "List a user's achievements",
		Tags:        []string{"Users"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListUserAchievements)

	huma.Register(s.api, huma.Operation{
		OperationID: "listUserActivities",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/{userID}/activities",
		Summary:     "List a user's activities",
		Description: "Returns what a follower's feed would show of the user, newest first",
		Tags:        []string{"Users"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListUserActivities)

	huma.Register(s.api, huma.Operation{
		OperationID: "listFollowers",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/{userID}/followers",
		Summary:     "List a user's followers",
		Tags:        []string{"Users"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListFollowers)

	huma.Register(s.api, huma.Operation{
		OperationID: "listUserFollowing",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/{userID}/following",
		Summary:     "List who a user follows",
		Tags:        []string{"Users"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListUserFollowing)
}

// === DTOs ===

// UserPathInput identifies the profile being read.
type UserPathInput struct {
	UserID string `path:"userID" maxLength:"128" doc:"User ID"`
}

// UserDailyActivityInput contains parameters for another user's calendar.
type UserDailyActivityInput struct {
	UserID string `path:"userID" maxLength:"128" doc:"User ID"`
	Days   int    `query:"days" doc:"Number of days to include (default 365)"`
}

// UserActivitiesInput contains parameters for another user's activities.
type UserActivitiesInput struct {
	UserID string `path:"userID" maxLength:"128" doc:"User ID"`
	Limit  int    `query:"limit" doc:"Max activities (default 20, max 100)"`
}

// FollowUserResponse is one entry of a followers or following list.
type FollowUserResponse struct {
	UserID      string `json:"user_id" doc:"User ID"`
	IsFollowing bool   `json:"is_following" doc:"Whether the current user follows them"`
}

// FollowUsersResponse is a followers or following list.
type FollowUsersResponse struct {
	Users []FollowUserResponse `json:"users" doc:"Users, oldest follow first"`
}

// FollowUsersOutput wraps the list for Huma.
type FollowUsersOutput struct {
	Body FollowUsersResponse
}

// === Handlers ===

func (s *Server) handleGetUserStats(ctx context.Context, input *UserPathInput) (*StatsOutput, error) {
	if _, err := GetUserID(ctx); err != nil {
		return nil, err
	}
	return s.statsFor(ctx, input.UserID)
}

func (s *Server) handleGetUserDailyActivity(ctx context.Context, input *UserDailyActivityInput) (*DailyActivityOutput, error) {
	if _, err := GetUserID(ctx); err != nil {
		return nil, err
	}
	return s.dailyActivityFor(ctx, input.UserID, input.Days)
}

func (s *Server) handleListUserAchievements(ctx context.Context, input *UserPathInput) (*AchievementsOutput, error) {
	if _, err := GetUserID(ctx); err != nil {
		return nil, err
	}
	return s.achievementsFor(ctx, input.UserID)
}

func (s *Server) handleListUserActivities(ctx context.Context, input *UserActivitiesInput) (*ActivitiesOutput, error) {
	viewerID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	activities, err := s.services.Activity.GetProfileActivities(ctx, viewerID, input.UserID, input.Limit)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return s.activitiesOutput(ctx, viewerID, activities, "")
}

func (s *Server) handleListFollowers(ctx context.Context, input *UserPathInput) (*FollowUsersOutput, error) {
	return s.followUsers(ctx, input.UserID, s.services.Follow.ListFollowers)
}

func (s *Server) handleListUserFollowing(ctx context.Context, input *UserPathInput) (*FollowUsersOutput, error) {
	return s.followUsers(ctx, input.UserID, s.services.Follow.ListFollowing)
}

// followUsers lists one side of userID's follow graph, flagging who the viewer follows.
func (s *Server) followUsers(
	ctx context.Context,
	userID string,
	list func(ctx context.Context, userID string) ([]string, error),
) (*FollowUsersOutput, error) {
	viewerID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	ids, err := list(ctx, userID)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	followed, err := s.services.Follow.FollowingAmong(ctx, viewerID, ids)
	if err != nil {
		return nil, s.fail(ctx, err)
	}

	users := make([]FollowUserResponse, len(ids))
	for i, id := range ids {
		users[i] = FollowUserResponse{UserID: id, IsFollowing: followed[id]}
	}
	return &FollowUsersOutput{Body: FollowUsersResponse{Users: users}}, nil
}
