package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ippiapp/ippi-server/internal/domain"
)

func (s *Server) registerReactionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "likeActivity",
		Method:      http.MethodPost,
		Path:        "/api/v1/activities/{activityID}/like",
		Summary:     "Like an activity",
		Description: "Adds the current user's like. Liking twice has no further effect.",
		Tags:        []string{"Social"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleLikeActivity)

	huma.Register(s.api, huma.Operation{
		OperationID: "unlikeActivity",
		Method:      http.MethodDelete,
		Path:        "/api/v1/activities/{activityID}/like",
		Summary:     "Remove a like",
		Tags:        []string{"Social"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUnlikeActivity)

	huma.Register(s.api, huma.Operation{
		OperationID: "listComments",
		Method:      http.MethodGet,
		Path:        "/api/v1/activities/{activityID}/comments",
		Summary:     "List comments",
		Description: "Returns an activity's comments, oldest first",
		Tags:        []string{"Social"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListComments)

	huma.Register(s.api, huma.Operation{
		OperationID:   "addComment",
		Method:        http.MethodPost,
		Path:          "/api/v1/activities/{activityID}/comments",
		Summary:       "Comment on an activity",
		Tags:          []string{"Social"},
		DefaultStatus: http.StatusCreated,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleAddComment)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteComment",
		Method:        http.MethodDelete,
		Path:          "/api/v1/activities/{activityID}/comments/{commentID}",
		Summary:       "Delete a comment",
		Description:   "Only the comment's author may delete it",
		Tags:          []string{"Social"},
		DefaultStatus: http.StatusNoContent,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteComment)
}

// === DTOs ===

// ActivityPathInput identifies an activity.
type ActivityPathInput struct {
	ActivityID string `path:"activityID" maxLength:"64" doc:"Activity ID"`
}

// LikeResponse reports the like state after a change.
type LikeResponse struct {
	ActivityID string `json:"activity_id" doc:"Activity ID"`
	LikeCount  int    `json:"like_count" doc:"Number of likes"`
	Liked      bool   `json:"liked" doc:"Whether the current user now likes it"`
}

// LikeOutput wraps the like response for Huma.
type LikeOutput struct {
	Body LikeResponse
}

// ListCommentsInput contains parameters for listing comments.
type ListCommentsInput struct {
	ActivityID string `path:"activityID" maxLength:"64" doc:"Activity ID"`
	Limit      int    `query:"limit" doc:"Max comments (default 20, max 100)"`
}

// CommentRequest is the body of a new comment.
type CommentRequest struct {
	Text string `json:"text" validate:"required" doc:"Comment text, at most 500 characters after trimming"`
}

// AddCommentInput wraps the comment request for Huma.
type AddCommentInput struct {
	ActivityID string `path:"activityID" maxLength:"64" doc:"Activity ID"`
	Body       CommentRequest
}

// DeleteCommentInput identifies a comment on an activity.
type DeleteCommentInput struct {
	ActivityID string `path:"activityID" maxLength:"64" doc:"Activity ID"`
	CommentID  string `path:"commentID" maxLength:"64" doc:"Comment ID"`
}

// CommentResponse is one comment.
type CommentResponse struct {
	ID         string    `json:"id" doc:"Comment ID"`
	ActivityID string    `json:"activity_id" doc:"Activity commented on"`
	UserID     string    `json:"user_id" doc:"Author"`
	Text       string    `json:"text" doc:"Comment text"`
	CreatedAt  time.Time `json:"created_at" doc:"When it was written"`
}

// CommentOutput wraps a single comment for Huma.
type CommentOutput struct {
	Body CommentResponse
}

// CommentsResponse lists an activity's comments.
type CommentsResponse struct {
	Comments []CommentResponse `json:"comments" doc:"Comments, oldest first"`
}

// CommentsOutput wraps the comments response for Huma.
type CommentsOutput struct {
	Body CommentsResponse
}

// === Handlers ===

func (s *Server) handleLikeActivity(ctx context.Context, input *ActivityPathInput) (*LikeOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	count, err := s.services.Reaction.Like(ctx, userID, input.ActivityID)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return &LikeOutput{Body: LikeResponse{ActivityID: input.ActivityID, LikeCount: count, Liked: true}}, nil
}

func (s *Server) handleUnlikeActivity(ctx context.Context, input *ActivityPathInput) (*LikeOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	count, err := s.services.Reaction.Unlike(ctx, userID, input.ActivityID)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return &LikeOutput{Body: LikeResponse{ActivityID: input.ActivityID, LikeCount: count}}, nil
}

func (s *Server) handleListComments(ctx context.Context, input *ListCommentsInput) (*CommentsOutput, error) {
	if _, err := GetUserID(ctx); err != nil {
		return nil, err
	}

	comments, err := s.services.Reaction.ListComments(ctx, input.ActivityID, input.Limit)
	if err != nil {
		return nil, s.fail(ctx, err)
	}

	out := make([]CommentResponse, len(comments))
	for i, c := range comments {
		out[i] = mapComment(c)
	}
	return &CommentsOutput{Body: CommentsResponse{Comments: out}}, nil
}

func (s *Server) handleAddComment(ctx context.Context, input *AddCommentInput) (*CommentOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, s.fail(ctx, err)
	}

	c, err := s.services.Reaction.AddComment(ctx, userID, input.ActivityID, input.Body.Text)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return &CommentOutput{Body: mapComment(c)}, nil
}

func (s *Server) handleDeleteComment(ctx context.Context, input *DeleteCommentInput) (*struct{}, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Reaction.DeleteComment(ctx, userID, input.ActivityID, input.CommentID); err != nil {
		return nil, s.fail(ctx, err)
	}
	return nil, nil
}

func mapComment(c *domain.Comment) CommentResponse {
	return CommentResponse{
		ID:         c.ID,
		ActivityID: c.ActivityID,
		UserID:     c.UserID,
		Text:       c.Text,
		CreatedAt:  c.CreatedAt,
	}
}
