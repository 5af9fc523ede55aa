package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ippiapp/ippi-server/internal/domain"
)

func (s *Server) registerActivityRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listActivities",
		Method:      http.MethodGet,
		Path:        "/api/v1/activities",
		Summary:     "List own activities",
		Description: "Returns the current user's activities, newest first",
		Tags:        []string{"Activity"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListActivities)

	huma.Register(s.api, huma.Operation{
		OperationID: "getFeed",
		Method:      http.MethodGet,
		Path:        "/api/v1/feed",
		Summary:     "Get following feed",
		Description: "Returns activities of followed users, newest first, with cursor pagination",
		Tags:        []string{"Activity"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetFeed)
}

// === DTOs ===

// ListActivitiesInput contains parameters for listing own activities.
type ListActivitiesInput struct {
	Limit int `query:"limit" doc:"Max activities (default 20, max 100)"`
}

// FeedInput contains parameters for the following feed.
type FeedInput struct {
	Before string `query:"before" doc:"Cursor from a previous page's next_cursor"`
	Limit  int    `query:"limit" doc:"Max activities (default 20, max 100)"`
}

// ActivityResponse is one feed entry.
type ActivityResponse struct {
	ID          string          `json:"id" doc:"Activity ID"`
	UserID      string          `json:"user_id" doc:"Owner of the activity"`
	Type        string          `json:"type" doc:"work_completed, achievement_unlocked or followed"`
	Message     string          `json:"message" doc:"Rendered feed text"`
	RelatedData json.RawMessage `json:"related_data,omitempty" doc:"Event payload"`
	CreatedAt   time.Time       `json:"created_at" doc:"When it happened"`

	LikeCount    int  `json:"like_count" doc:"Number of likes"`
	Liked        bool `json:"liked" doc:"Whether the current user liked it"`
	CommentCount int  `json:"comment_count" doc:"Number of comments"`
}

// ActivitiesResponse is a page of activities.
type ActivitiesResponse struct {
	Activities []ActivityResponse `json:"activities" doc:"Activities, newest first"`
	NextCursor string             `json:"next_cursor,omitempty" doc:"Pass as before to get the next page"`
}

// ActivitiesOutput wraps the activities response for Huma.
type ActivitiesOutput struct {
	Body ActivitiesResponse
}

// === Handlers ===

func (s *Server) handleListActivities(ctx context.Context, input *ListActivitiesInput) (*ActivitiesOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	activities, err := s.services.Activity.GetUserActivities(ctx, userID, input.Limit)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return s.activitiesOutput(ctx, userID, activities, "")
}

func (s *Server) handleGetFeed(ctx context.Context, input *FeedInput) (*ActivitiesOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	page, err := s.services.Activity.GetFeed(ctx, userID, input.Before, input.Limit)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return s.activitiesOutput(ctx, userID, page.Activities, page.NextCursor)
}

// activitiesOutput decorates activities with the reactions viewerID sees.
func (s *Server) activitiesOutput(ctx context.Context, viewerID string, activities []*domain.Activity, next string) (*ActivitiesOutput, error) {
	reactions, err := s.services.Reaction.Summaries(ctx, viewerID, activities)
	if err != nil {
		return nil, s.fail(ctx, err)
	}

	out := make([]ActivityResponse, len(activities))
	for i, a := range activities {
		r := reactions[a.ID]
		out[i] = ActivityResponse{
			ID:           a.ID,
			UserID:       a.UserID,
			Type:         string(a.Type),
			Message:      a.Message,
			RelatedData:  json.RawMessage(a.RelatedData),
			CreatedAt:    a.CreatedAt,
			LikeCount:    r.LikeCount,
			Liked:        r.Liked,
			CommentCount: r.CommentCount,
		}
	}
	return &ActivitiesOutput{Body: ActivitiesResponse{Activities: out, NextCursor: next}}, nil
}
