package api

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordWorkCompleted logs a 25 minute session for the caller and returns the
// ID of the work_completed activity it produced.
func recordWorkCompleted(t *testing.T, ts *testServer, userID string) string {
	t.Helper()
	auth := ts.authHeader(t, userID)

	resp := ts.api.Post("/api/v1/work-sessions", auth, map[string]any{"work_date": "2024-03-06", "seconds": 1500})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = ts.api.Get("/api/v1/activities", auth)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	for _, a := range decodeEnvelope[ActivitiesResponse](t, resp).Data.Activities {
		if a.Type == "work_completed" {
			return a.ID
		}
	}
	t.Fatal("no work_completed activity recorded")
	return ""
}

func TestLikes(t *testing.T) {
	ts := setupTestServer(t, testOptions(), nil)
	alice := ts.authHeader(t, "alice")
	carol := ts.authHeader(t, "carol")
	activityID := recordWorkCompleted(t, ts, "bob")
	path := "/api/v1/activities/" + activityID + "/like"

	resp := ts.api.Post(path, alice)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, LikeResponse{ActivityID: activityID, LikeCount: 1, Liked: true}, decodeEnvelope[LikeResponse](t, resp).Data)

	resp = ts.api.Post(path, alice)
	assert.Equal(t, 1, decodeEnvelope[LikeResponse](t, resp).Data.LikeCount)

	resp = ts.api.Post(path, carol)
	assert.Equal(t, 2, decodeEnvelope[LikeResponse](t, resp).Data.LikeCount)

	// Feed entries carry the counts and the viewer's own like.
	require.Equal(t, http.StatusCreated, ts.api.Post("/api/v1/follows/bob", alice).Code)
	resp = ts.api.Get("/api/v1/feed", alice)
	require.Equal(t, http.StatusOK, resp.Code)
	var found bool
	for _, a := range decodeEnvelope[ActivitiesResponse](t, resp).Data.Activities {
		if a.ID == activityID {
			found = true
			assert.Equal(t, 2, a.LikeCount)
			assert.True(t, a.Liked)
		}
	}
	assert.True(t, found, "liked activity missing from feed")

	resp = ts.api.Delete(path, alice)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, LikeResponse{ActivityID: activityID, LikeCount: 1}, decodeEnvelope[LikeResponse](t, resp).Data)

	resp = ts.api.Post("/api/v1/activities/act-missing/like", alice)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "NOT_FOUND", decodeEnvelope[any](t, resp).Error)
}

func TestComments(t *testing.T) {
	ts := setupTestServer(t, testOptions(), nil)
	alice := ts.authHeader(t, "alice")
	bob := ts.authHeader(t, "bob")
	activityID := recordWorkCompleted(t, ts, "bob")
	path := "/api/v1/activities/" + activityID + "/comments"

	resp := ts.api.Post(path, alice, map[string]any{"text": "  keep going  "})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	comment := decodeEnvelope[CommentResponse](t, resp).Data
	assert.Equal(t, "keep going", comment.Text)
	assert.Equal(t, "alice", comment.UserID)
	assert.Equal(t, activityID, comment.ActivityID)

	for name, text := range map[string]string{
		"empty":    "",
		"blank":    "   ",
		"too long": strings.Repeat("x", 501),
	} {
		t.Run(name, func(t *testing.T) {
			resp := ts.api.Post(path, alice, map[string]any{"text": text})
			assert.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
		})
	}

	resp = ts.api.Get(path, bob)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	comments := decodeEnvelope[CommentsResponse](t, resp).Data.Comments
	require.Len(t, comments, 1)
	assert.Equal(t, comment.ID, comments[0].ID)

	resp = ts.api.Get("/api/v1/activities", bob)
	for _, a := range decodeEnvelope[ActivitiesResponse](t, resp).Data.Activities {
		if a.ID == activityID {
			assert.Equal(t, 1, a.CommentCount)
		}
	}

	// Only the author can delete.
	resp = ts.api.Delete(path+"/"+comment.ID, bob)
	require.Equal(t, http.StatusForbidden, resp.Code, resp.Body.String())
	assert.Equal(t, "FORBIDDEN", decodeEnvelope[any](t, resp).Error)

	resp = ts.api.Delete(path+"/"+comment.ID, alice)
	require.Equal(t, http.StatusNoContent, resp.Code, resp.Body.String())

	resp = ts.api.Delete(path+"/"+comment.ID, alice)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = ts.api.Get("/api/v1/activities/act-missing/comments", bob)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}
