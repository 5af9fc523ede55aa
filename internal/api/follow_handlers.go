package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerFollowRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "followUser",
		Method:        http.MethodPost,
		Path:          "/api/v1/follows/{userID}",
		Summary:       "Follow a user",
		Description:   "Follows a user so their activities appear in the feed",
		Tags:          []string{"Social"},
		DefaultStatus: http.StatusCreated,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleFollow)

	huma.Register(s.api, huma.Operation{
		OperationID:   "unfollowUser",
		Method:        http.MethodDelete,
		Path:          "/api/v1/follows/{userID}",
		Summary:       "Unfollow a user",
		Tags:          []string{"Social"},
		DefaultStatus: http.StatusNoContent,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleUnfollow)

	huma.Register(s.api, huma.Operation{
		OperationID: "listFollowing",
		Method:      http.MethodGet,
		Path:        "/api/v1/follows",
		Summary:     "List followed users",
		Description: "Returns the users the current user follows and follower counts",
		Tags:        []string{"Social"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListFollowing)

	huma.Register(s.api, huma.Operation{
		OperationID: "getFollowStatus",
		Method:      http.MethodGet,
		Path:        "/api/v1/follows/{userID}",
		Summary:     "Check follow status",
		Description: "Reports whether the current user follows a user, with that user's follow counts",
		Tags:        []string{"Social"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleFollowStatus)
}

// === DTOs ===

// FollowInput identifies the user to follow or unfollow.
type FollowInput struct {
	UserID string `path:"userID" maxLength:"128" doc:"User to follow"`
}

// FollowResponse confirms a follow.
type FollowResponse struct {
	FolloweeID string `json:"followee_id" doc:"Followed user"`
}

// FollowOutput wraps the follow response for Huma.
type FollowOutput struct {
	Body FollowResponse
}

// FollowingResponse lists followed users with counts.
type FollowingResponse struct {
	Following      []string `json:"following" doc:"IDs of followed users"`
	FollowingCount int      `json:"following_count" doc:"Number of followed users"`
	FollowerCount  int      `json:"follower_count" doc:"Number of followers"`
}

// FollowingOutput wraps the following response for Huma.
type FollowingOutput struct {
	Body FollowingResponse
}

// FollowStatusResponse describes the viewer's relation to a user.
type FollowStatusResponse struct {
	UserID         string `json:"user_id" doc:"User checked"`
	IsFollowing    bool   `json:"is_following" doc:"Whether the current user follows them"`
	FollowingCount int    `json:"following_count" doc:"Number of users they follow"`
	FollowerCount  int    `json:"follower_count" doc:"Number of their followers"`
}

// FollowStatusOutput wraps the follow status for Huma.
type FollowStatusOutput struct {
	Body FollowStatusResponse
}

// === Handlers ===

func (s *Server) handleFollow(ctx context.Context, input *FollowInput) (*FollowOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Follow.Follow(ctx, userID, input.UserID); err != nil {
		return nil, s.fail(ctx, err)
	}
	return &FollowOutput{Body: FollowResponse{FolloweeID: input.UserID}}, nil
}

func (s *Server) handleUnfollow(ctx context.Context, input *FollowInput) (*struct{}, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Follow.Unfollow(ctx, userID, input.UserID); err != nil {
		return nil, s.fail(ctx, err)
	}
	return nil, nil
}

func (s *Server) handleListFollowing(ctx context.Context, _ *struct{}) (*FollowingOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	following, err := s.services.Follow.ListFollowing(ctx, userID)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	counts, err := s.services.Follow.Counts(ctx, userID)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	if following == nil {
		following = []string{}
	}

	return &FollowingOutput{
		Body: FollowingResponse{
			Following:      following,
			FollowingCount: counts.Following,
			FollowerCount:  counts.Followers,
		},
	}, nil
}

func (s *Server) handleFollowStatus(ctx context.Context, input *FollowInput) (*FollowStatusOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	following, err := s.services.Follow.IsFollowing(ctx, userID, input.UserID)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	counts, err := s.services.Follow.Counts(ctx, input.UserID)
	if err != nil {
		return nil, s.fail(ctx, err)
	}

	return &FollowStatusOutput{
		Body: FollowStatusResponse{
			UserID:         input.UserID,
			IsFollowing:    following,
			FollowingCount: counts.Following,
			FollowerCount:  counts.Followers,
		},
	}, nil
}
