package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/require"

	"github.com/ippiapp/ippi-server/internal/auth"
	"github.com/ippiapp/ippi-server/internal/cache"
	"github.com/ippiapp/ippi-server/internal/clock"
	"github.com/ippiapp/ippi-server/internal/keylock"
	"github.com/ippiapp/ippi-server/internal/metrics"
	"github.com/ippiapp/ippi-server/internal/service"
	"github.com/ippiapp/ippi-server/internal/store/sqlite"
)

// testEnvelope mirrors the response envelope with a typed data field.
type testEnvelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// testServer wraps the API server with the pieces tests poke at directly.
type testServer struct {
	*Server
	api    humatest.TestAPI
	clock  *clock.Manual
	tokens *auth.TokenService
	store  *sqlite.Store
}

// testOptions are permissive defaults so tests don't trip the limiter by accident.
func testOptions() Options {
	return Options{
		AllowDevTokens:        true,
		RequestsPerMinute:     10_000,
		AuthRequestsPerMinute: 10_000,
	}
}

// setupTestServer creates a test server backed by a temp-dir SQLite database.
// The clock starts at noon UTC on 2024-03-06, a Wednesday.
func setupTestServer(t *testing.T, opts Options, rec metrics.Recorder) *testServer {
	t.Helper()

	tmpDir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := sqlite.Open(filepath.Join(tmpDir, "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	authKey, err := auth.LoadOrGenerateKey(tmpDir)
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(authKey, 15*time.Minute)
	require.NoError(t, err)

	if rec == nil {
		rec = metrics.Noop{}
	}
	clk := clock.NewManual(time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC))

	activities := service.NewActivityService(st, st, clk, rec, logger)
	achievements := service.NewAchievementService(st, activities, clk, rec, logger)
	_, err = achievements.SeedCatalog(context.Background())
	require.NoError(t, err)

	engine := service.NewStatsEngine(
		st, achievements, activities,
		keylock.New(), cache.New(1, 60, logger), rec, clk,
		service.StatsEngineConfig{Location: time.UTC, MaxRetries: 3, RetryBackoff: time.Millisecond},
		logger,
	)

	services := &Services{
		Stats:       engine,
		Achievement: achievements,
		Activity:    activities,
		Follow:      service.NewFollowService(st, activities, clk, logger),
		Reaction:    service.NewReactionService(st, st, clk, logger),
		Tokens:      tokens,
	}

	s := NewServer(services, st, rec, opts, logger)
	t.Cleanup(s.Stop)

	return &testServer{
		Server: s,
		api:    humatest.Wrap(t, s.API()),
		clock:  clk,
		tokens: tokens,
		store:  st,
	}
}

// authHeader returns a humatest header argument authenticating as userID.
func (ts *testServer) authHeader(t *testing.T, userID string) string {
	t.Helper()
	token, err := ts.tokens.GenerateAccessToken(userID)
	require.NoError(t, err)
	return "Authorization: Bearer " + token
}

// decodeEnvelope unmarshals a recorded response into a typed envelope.
func decodeEnvelope[T any](t *testing.T, resp *httptest.ResponseRecorder) testEnvelope[T] {
	t.Helper()
	var envelope testEnvelope[T]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope), "body: %s", resp.Body.String())
	return envelope
}
