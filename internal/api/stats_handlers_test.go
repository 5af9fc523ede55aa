package api

import (
	"math"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordWorkSession(t *testing.T) {
	ts := setupTestServer(t, testOptions(), nil)
	auth := ts.authHeader(t, "alice")

	resp := ts.api.Post("/api/v1/work-sessions", auth, map[string]any{
		"work_date": "2024-03-06",
		"seconds":   3600,
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	envelope := decodeEnvelope[StatsResponse](t, resp)
	require.True(t, envelope.Success)
	stats := envelope.Data
	assert.Equal(t, "alice", stats.UserID)
	assert.Equal(t, 1, stats.CurrentStreak)
	assert.Equal(t, 1, stats.LongestStreak)
	assert.Equal(t, 1, stats.TotalWorkDays)
	assert.Equal(t, "2024-03-06", stats.LastWorkDate)
	assert.Equal(t, int64(3600), stats.TotalWorkSeconds)
	assert.Equal(t, int64(3600), stats.WeeklyWorkSeconds)
	assert.Equal(t, int64(3600), stats.MonthlyWorkSeconds)
	assert.InDelta(t, 1.0, stats.TotalWorkHours, 1e-9)
	assert.InDelta(t, 60.0, stats.AverageWorkMinutesPerDay, 1e-9)

	// Reads see the same aggregate.
	resp = ts.api.Get("/api/v1/stats", auth)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, stats.TotalWorkSeconds, decodeEnvelope[StatsResponse](t, resp).Data.TotalWorkSeconds)

	// One hour of work unlocks the first work-time and first streak achievements.
	resp = ts.api.Get("/api/v1/achievements", auth)
	require.Equal(t, http.StatusOK, resp.Code)
	achievements := decodeEnvelope[AchievementsResponse](t, resp).Data
	assert.Equal(t, 12, achievements.TotalCount)
	assert.Equal(t, 2, achievements.AchievedCount)
	for _, a := range achievements.Achievements {
		if a.Achieved {
			assert.NotNil(t, a.AchievedAt, a.Name)
			assert.Contains(t, []string{"work_time", "streak"}, a.Category)
		}
	}

	// work_completed plus one activity per unlock.
	resp = ts.api.Get("/api/v1/activities", auth)
	require.Equal(t, http.StatusOK, resp.Code)
	activities := decodeEnvelope[ActivitiesResponse](t, resp).Data.Activities
	require.Len(t, activities, 3)

	types := map[string]int{}
	for _, a := range activities {
		types[a.Type]++
	}
	assert.Equal(t, 1, types["work_completed"])
	assert.Equal(t, 2, types["achievement_unlocked"])
}

func TestRecordWorkSession_Validation(t *testing.T) {
	ts := setupTestServer(t, testOptions(), nil)
	auth := ts.authHeader(t, "alice")

	tests := []struct {
		name      string
		body      map[string]any
		wantField string
	}{
		{"zero seconds", map[string]any{"work_date": "2024-03-06", "seconds": 0}, "seconds"},
		{"negative seconds", map[string]any{"work_date": "2024-03-06", "seconds": -5}, "seconds"},
		{"longer than a day", map[string]any{"work_date": "2024-03-06", "seconds": 86401}, "seconds"},
		{"int64 max", map[string]any{"work_date": "2024-03-06", "seconds": int64(math.MaxInt64)}, "seconds"},
		{"bad month", map[string]any{"work_date": "2024-13-01", "seconds": 60}, "work_date"},
		{"wrong format", map[string]any{"work_date": "06/03/2024", "seconds": 60}, "work_date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.api.Post("/api/v1/work-sessions", auth, tt.body)
			require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())

			envelope := decodeEnvelope[map[string]string](t, resp)
			assert.False(t, envelope.Success)
			assert.Equal(t, "VALIDATION", envelope.Error)
			assert.Contains(t, envelope.Data, tt.wantField)
		})
	}

	// Nothing was recorded.
	resp := ts.api.Get("/api/v1/stats", auth)
	assert.Equal(t, int64(0), decodeEnvelope[StatsResponse](t, resp).Data.TotalWorkSeconds)
}

func TestGetStats_NewUser(t *testing.T) {
	ts := setupTestServer(t, testOptions(), nil)

	resp := ts.api.Get("/api/v1/stats", ts.authHeader(t, "newcomer"))
	require.Equal(t, http.StatusOK, resp.Code)

	stats := decodeEnvelope[StatsResponse](t, resp).Data
	assert.Equal(t, "newcomer", stats.UserID)
	assert.Zero(t, stats.CurrentStreak)
	assert.Zero(t, stats.TotalWorkSeconds)
	assert.Empty(t, stats.LastWorkDate)
}

func TestGetStats_StalePeriodsReadAsZero(t *testing.T) {
	ts := setupTestServer(t, testOptions(), nil)
	auth := ts.authHeader(t, "alice")

	resp := ts.api.Post("/api/v1/work-sessions", auth, map[string]any{"work_date": "2024-03-06", "seconds": 600})
	require.Equal(t, http.StatusOK, resp.Code)

	// The following Monday starts a new week; March is unchanged.
	ts.clock.Set(time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC))

	stats := decodeEnvelope[StatsResponse](t, ts.api.Get("/api/v1/stats", auth)).Data
	assert.Equal(t, int64(0), stats.WeeklyWorkSeconds)
	assert.Equal(t, int64(600), stats.MonthlyWorkSeconds)
	assert.Equal(t, int64(600), stats.TotalWorkSeconds)
}

func TestGetDailyActivity(t *testing.T) {
	ts := setupTestServer(t, testOptions(), nil)
	auth := ts.authHeader(t, "alice")

	for _, body := range []map[string]any{
		{"work_date": "2024-03-05", "seconds": 1800},
		{"work_date": "2024-02-01", "seconds": 600},
		{"work_date": "2024-03-06", "seconds": 120},
		{"work_date": "2024-03-06", "seconds": 60},
	} {
		require.Equal(t, http.StatusOK, ts.api.Post("/api/v1/work-sessions", auth, body).Code)
	}

	resp := ts.api.Get("/api/v1/stats/daily?days=7", auth)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	days := decodeEnvelope[DailyActivityResponse](t, resp).Data.Days
	assert.Equal(t, []DailyActivityEntry{
		{Date: "2024-03-05", Minutes: 30},
		{Date: "2024-03-06", Minutes: 3},
	}, days)

	// Default window covers the older session too.
	resp = ts.api.Get("/api/v1/stats/daily", auth)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, decodeEnvelope[DailyActivityResponse](t, resp).Data.Days, 3)

	resp = ts.api.Get("/api/v1/stats/daily?days=100000", auth)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestDailyCounterAndTodos(t *testing.T) {
	ts := setupTestServer(t, testOptions(), nil)
	auth := ts.authHeader(t, "alice")

	resp := ts.api.Post("/api/v1/stats/daily-counter", auth)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	resp = ts.api.Post("/api/v1/stats/daily-counter", auth)
	stats := decodeEnvelope[StatsResponse](t, resp).Data
	assert.Equal(t, 2, stats.DailyCounter)
	assert.Equal(t, 2, stats.TotalTimerSessions)

	// A new day resets the counter but not the lifetime total.
	ts.clock.AddDays(1)
	stats = decodeEnvelope[StatsResponse](t, ts.api.Get("/api/v1/stats", auth)).Data
	assert.Equal(t, 0, stats.DailyCounter)
	assert.Equal(t, 2, stats.TotalTimerSessions)

	resp = ts.api.Post("/api/v1/todos/completed", auth)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 1, decodeEnvelope[StatsResponse](t, resp).Data.CompletedTodoCount)

	resp = ts.api.Post("/api/v1/todos/uncompleted", auth)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 0, decodeEnvelope[StatsResponse](t, resp).Data.CompletedTodoCount)

	// Never below zero.
	resp = ts.api.Post("/api/v1/todos/uncompleted", auth)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 0, decodeEnvelope[StatsResponse](t, resp).Data.CompletedTodoCount)
}

func TestStreakCheck(t *testing.T) {
	ts := setupTestServer(t, testOptions(), nil)
	auth := ts.authHeader(t, "alice")

	for _, date := range []string{"2024-03-04", "2024-03-05"} {
		resp := ts.api.Post("/api/v1/work-sessions", auth, map[string]any{"work_date": date, "seconds": 60})
		require.Equal(t, http.StatusOK, resp.Code)
	}

	// Yesterday's work keeps the streak alive.
	resp := ts.api.Post("/api/v1/stats/streak-check", auth)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, 2, decodeEnvelope[StatsResponse](t, resp).Data.CurrentStreak)

	// Two days later it is broken; the record stays.
	ts.clock.AddDays(2)
	resp = ts.api.Post("/api/v1/stats/streak-check", auth)
	require.Equal(t, http.StatusOK, resp.Code)
	stats := decodeEnvelope[StatsResponse](t, resp).Data
	assert.Equal(t, 0, stats.CurrentStreak)
	assert.Equal(t, 2, stats.LongestStreak)
}
