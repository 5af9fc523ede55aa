package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueDevToken(t *testing.T) {
	ts := setupTestServer(t, testOptions(), nil)

	resp := ts.api.Post("/api/v1/auth/token", map[string]any{"user_id": "alice"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	envelope := decodeEnvelope[TokenResponse](t, resp)
	assert.True(t, envelope.Success)
	assert.Equal(t, "Bearer", envelope.Data.TokenType)

	claims, err := ts.tokens.VerifyAccessToken(envelope.Data.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.UserID)

	// The issued token authenticates API calls.
	resp = ts.api.Get("/api/v1/stats", "Authorization: Bearer "+envelope.Data.AccessToken)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "alice", decodeEnvelope[StatsResponse](t, resp).Data.UserID)
}

func TestIssueDevToken_Validation(t *testing.T) {
	ts := setupTestServer(t, testOptions(), nil)

	resp := ts.api.Post("/api/v1/auth/token", map[string]any{"user_id": ""})
	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
	assert.Equal(t, "VALIDATION", decodeEnvelope[any](t, resp).Error)
}

func TestIssueDevToken_RateLimited(t *testing.T) {
	opts := testOptions()
	opts.AuthRequestsPerMinute = 2
	ts := setupTestServer(t, opts, nil)

	body := map[string]any{"user_id": "alice"}
	require.Equal(t, http.StatusOK, ts.api.Post("/api/v1/auth/token", body).Code)
	require.Equal(t, http.StatusOK, ts.api.Post("/api/v1/auth/token", body).Code)

	resp := ts.api.Post("/api/v1/auth/token", body)
	require.Equal(t, http.StatusTooManyRequests, resp.Code, resp.Body.String())
	assert.Equal(t, "RATE_LIMITED", decodeEnvelope[any](t, resp).Error)

	// Other endpoints use the general limit.
	assert.Equal(t, http.StatusOK, ts.api.Get("/health").Code)
}

func TestIssueDevToken_DisabledInProduction(t *testing.T) {
	opts := testOptions()
	opts.AllowDevTokens = false
	ts := setupTestServer(t, opts, nil)

	resp := ts.api.Post("/api/v1/auth/token", map[string]any{"user_id": "alice"})
	assert.Equal(t, http.StatusNotFound, resp.Code)
}
