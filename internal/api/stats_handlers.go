package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ippiapp/ippi-server/internal/domain"
)

func (s *Server) registerStatsRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "recordWorkSession",
		Method:      http.MethodPost,
		Path:        "/api/v1/work-sessions",
		Summary:     "Record a work session",
		Description: "Adds seconds of focused work to a calendar date and returns the updated statistics",
		Tags:        []string{"Stats"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRecordWorkSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "getStats",
		Method:      http.MethodGet,
		Path:        "/api/v1/stats",
		Summary:     "Get statistics",
		Description: "Returns streaks, rolling work totals and counters for the current user",
		Tags:        []string{"Stats"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetStats)

	huma.Register(s.api, huma.Operation{
		OperationID: "getDailyActivity",
		Method:      http.MethodGet,
		Path:        "/api/v1/stats/daily",
		Summary:     "Get daily activity",
		Description: "Returns minutes worked per date over the last N days, oldest first",
		Tags:        []string{"Stats"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetDailyActivity)

	huma.Register(s.api, huma.Operation{
		OperationID: "incrementDailyCounter",
		Method:      http.MethodPost,
		Path:        "/api/v1/stats/daily-counter",
		Summary:     "Increment daily counter",
		Description: "Counts one finished timer session for today",
		Tags:        []string{"Stats"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleIncrementDailyCounter)

	huma.Register(s.api, huma.Operation{
		OperationID: "checkStreak",
		Method:      http.MethodPost,
		Path:        "/api/v1/stats/streak-check",
		Summary:     "Check streak decay",
		Description: "Breaks the current streak if the last work date is older than yesterday",
		Tags:        []string{"Stats"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCheckStreak)

	huma.Register(s.api, huma.Operation{
		OperationID: "todoCompleted",
		Method:      http.MethodPost,
		Path:        "/api/v1/todos/completed",
		Summary:     "Record a completed todo",
		Tags:        []string{"Stats"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleTodoCompleted)

	huma.Register(s.api, huma.Operation{
		OperationID: "todoUncompleted",
		Method:      http.MethodPost,
		Path:        "/api/v1/todos/uncompleted",
		Summary:     "Record an uncompleted todo",
		Tags:        []string{"Stats"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleTodoUncompleted)
}

// === DTOs ===

// WorkSessionRequest is the request body for recording work.
type WorkSessionRequest struct {
	WorkDate string `json:"work_date" validate:"required,isodate" doc:"Calendar date of the work (YYYY-MM-DD)"`
	Seconds  int64  `json:"seconds" validate:"gt=0,lte=86400" doc:"Seconds of focused work, at most one day"`
}

// WorkSessionInput wraps the work session request for Huma.
type WorkSessionInput struct {
	Body WorkSessionRequest
}

// StatsResponse is the API view of a user's statistics.
type StatsResponse struct {
	UserID string `json:"user_id" doc:"User ID"`

	CurrentStreak int    `json:"current_streak" doc:"Consecutive days worked, ending at the last work date"`
	LongestStreak int    `json:"longest_streak" doc:"Best streak ever reached"`
	TotalWorkDays int    `json:"total_work_days" doc:"Distinct days with work"`
	LastWorkDate  string `json:"last_work_date,omitempty" doc:"Most recent work date (YYYY-MM-DD)"`

	TotalWorkSeconds   int64 `json:"total_work_seconds" doc:"Lifetime seconds worked"`
	WeeklyWorkSeconds  int64 `json:"weekly_work_seconds" doc:"Seconds worked this week (Monday start)"`
	MonthlyWorkSeconds int64 `json:"monthly_work_seconds" doc:"Seconds worked this month"`

	TotalWorkHours           float64 `json:"total_work_hours" doc:"Lifetime hours worked"`
	WeeklyWorkHours          float64 `json:"weekly_work_hours" doc:"Hours worked this week"`
	MonthlyWorkHours         float64 `json:"monthly_work_hours" doc:"Hours worked this month"`
	AverageWorkMinutesPerDay float64 `json:"average_work_minutes_per_day" doc:"Lifetime minutes per day with work"`

	CompletedTodoCount int `json:"completed_todo_count" doc:"Todos currently counted as completed"`
	TotalTimerSessions int `json:"total_timer_sessions" doc:"Lifetime timer sessions"`
	DailyCounter       int `json:"daily_counter" doc:"Timer sessions today"`

	UpdatedAt time.Time `json:"updated_at" doc:"Last change to the statistics"`
}

// StatsOutput wraps the stats response for Huma.
type StatsOutput struct {
	Body StatsResponse
}

// DailyActivityInput contains parameters for the daily activity calendar.
type DailyActivityInput struct {
	Days int `query:"days" doc:"Number of days to include (default 365)"`
}

// DailyActivityEntry is minutes worked on one date.
type DailyActivityEntry struct {
	Date    string `json:"date" doc:"Calendar date (YYYY-MM-DD)"`
	Minutes int64  `json:"minutes" doc:"Minutes worked"`
}

// DailyActivityResponse lists worked dates in ascending order.
type DailyActivityResponse struct {
	Days []DailyActivityEntry `json:"days" doc:"Dates with work, oldest first"`
}

// DailyActivityOutput wraps the daily activity response for Huma.
type DailyActivityOutput struct {
	Body DailyActivityResponse
}

// === Handlers ===

func (s *Server) handleRecordWorkSession(ctx context.Context, input *WorkSessionInput) (*StatsOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, s.fail(ctx, err)
	}

	stats, err := s.services.Stats.RecordWorkSession(ctx, userID, input.Body.WorkDate, input.Body.Seconds)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return &StatsOutput{Body: mapStats(stats)}, nil
}

func (s *Server) handleGetStats(ctx context.Context, _ *struct{}) (*StatsOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	return s.statsFor(ctx, userID)
}

func (s *Server) statsFor(ctx context.Context, userID string) (*StatsOutput, error) {
	stats, err := s.services.Stats.GetStats(ctx, userID)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return &StatsOutput{Body: mapStats(stats)}, nil
}

func (s *Server) handleGetDailyActivity(ctx context.Context, input *DailyActivityInput) (*DailyActivityOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	return s.dailyActivityFor(ctx, userID, input.Days)
}

func (s *Server) dailyActivityFor(ctx context.Context, userID string, days int) (*DailyActivityOutput, error) {
	activity, err := s.services.Stats.GetDailyActivity(ctx, userID, days)
	if err != nil {
		return nil, s.fail(ctx, err)
	}

	entries := make([]DailyActivityEntry, len(activity))
	for i, a := range activity {
		entries[i] = DailyActivityEntry{
			Date:    domain.FormatDate(a.Date),
			Minutes: a.Minutes,
		}
	}
	return &DailyActivityOutput{Body: DailyActivityResponse{Days: entries}}, nil
}

func (s *Server) handleIncrementDailyCounter(ctx context.Context, _ *struct{}) (*StatsOutput, error) {
	return s.statsMutation(ctx, s.services.Stats.IncrementDailyCounter)
}

func (s *Server) handleCheckStreak(ctx context.Context, _ *struct{}) (*StatsOutput, error) {
	return s.statsMutation(ctx, s.services.Stats.CheckStreakDecay)
}

func (s *Server) handleTodoCompleted(ctx context.Context, _ *struct{}) (*StatsOutput, error) {
	return s.statsMutation(ctx, s.services.Stats.RecordTodoCompleted)
}

func (s *Server) handleTodoUncompleted(ctx context.Context, _ *struct{}) (*StatsOutput, error) {
	return s.statsMutation(ctx, s.services.Stats.RecordTodoUncompleted)
}

// statsMutation runs a body-less engine operation for the authenticated user.
func (s *Server) statsMutation(
	ctx context.Context,
	op func(ctx context.Context, userID string) (*domain.UserStats, error),
) (*StatsOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	stats, err := op(ctx, userID)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return &StatsOutput{Body: mapStats(stats)}, nil
}

func mapStats(st *domain.UserStats) StatsResponse {
	return StatsResponse{
		UserID:                   st.UserID,
		CurrentStreak:            st.CurrentStreak,
		LongestStreak:            st.LongestStreak,
		TotalWorkDays:            st.TotalWorkDays,
		LastWorkDate:             domain.FormatDate(st.LastWorkDate),
		TotalWorkSeconds:         st.TotalWorkSeconds,
		WeeklyWorkSeconds:        st.WeeklyWorkSeconds,
		MonthlyWorkSeconds:       st.MonthlyWorkSeconds,
		TotalWorkHours:           domain.Hours(st.TotalWorkSeconds),
		WeeklyWorkHours:          domain.Hours(st.WeeklyWorkSeconds),
		MonthlyWorkHours:         domain.Hours(st.MonthlyWorkSeconds),
		AverageWorkMinutesPerDay: st.AverageWorkMinutesPerDay(),
		CompletedTodoCount:       st.CompletedTodoCount,
		TotalTimerSessions:       st.TotalTimerSessions,
		DailyCounter:             st.DailyCounterValue,
		UpdatedAt:                st.UpdatedAt,
	}
}
