package domain

import (
	"math"
	"time"
)

// WorkSession is the day-bucketed record of seconds a user worked on one calendar date.
// There is at most one per (UserID, WorkDate); later sessions on the same date add to it.
type WorkSession struct {
	UserID             string    `json:"user_id"`
	WorkDate           time.Time `json:"work_date"`
	AccumulatedSeconds int64     `json:"accumulated_seconds"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// UserStats is the single mutable per-user rollup.
// It is the unit of locking and of atomic update.
//
// Zero-valued dates mean "not set": LastWorkDate is zero until the first work event.
type UserStats struct {
	UserID string `json:"user_id"`

	CurrentStreak int       `json:"current_streak"`
	LongestStreak int       `json:"longest_streak"`
	TotalWorkDays int       `json:"total_work_days"`
	LastWorkDate  time.Time `json:"last_work_date"`

	TotalWorkSeconds    int64     `json:"total_work_seconds"`
	WeeklyWorkSeconds   int64     `json:"weekly_work_seconds"`
	MonthlyWorkSeconds  int64     `json:"monthly_work_seconds"`
	WeeklyPeriodAnchor  time.Time `json:"weekly_period_anchor"`
	MonthlyPeriodAnchor time.Time `json:"monthly_period_anchor"`

	CompletedTodoCount int `json:"completed_todo_count"`
	TotalTimerSessions int `json:"total_timer_sessions"`

	DailyCounterValue int       `json:"daily_counter_value"`
	DailyCounterDate  time.Time `json:"daily_counter_date"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUserStats returns the zero aggregate for a user who has no stats yet.
func NewUserStats(userID string, now time.Time) *UserStats {
	return &UserStats{
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a copy safe to hand to another goroutine.
func (s *UserStats) Clone() *UserStats {
	c := *s
	return &c
}

// ResetPeriods zeroes the weekly/monthly counters whose stored anchor differs
// from the anchors of today, and moves the anchors forward.
// Returns true if anything was reset.
func (s *UserStats) ResetPeriods(today time.Time) bool {
	changed := false

	week := WeekAnchor(today)
	if !s.WeeklyPeriodAnchor.Equal(week) {
		s.WeeklyWorkSeconds = 0
		s.WeeklyPeriodAnchor = week
		changed = true
	}

	month := MonthAnchor(today)
	if !s.MonthlyPeriodAnchor.Equal(month) {
		s.MonthlyWorkSeconds = 0
		s.MonthlyPeriodAnchor = month
		changed = true
	}

	return changed
}

// MaxWorkSessionSeconds caps a single recorded session at one day of work.
const MaxWorkSessionSeconds int64 = 24 * 60 * 60

// CanAddWork reports whether AddWork(seconds) keeps every work total within int64.
func (s *UserStats) CanAddWork(seconds int64) bool {
	limit := int64(math.MaxInt64) - seconds
	return s.TotalWorkSeconds <= limit && s.WeeklyWorkSeconds <= limit && s.MonthlyWorkSeconds <= limit
}

// AddWork accumulates seconds into the lifetime and rolling totals
// and counts one timer session.
func (s *UserStats) AddWork(seconds int64) {
	s.TotalWorkSeconds += seconds
	s.WeeklyWorkSeconds += seconds
	s.MonthlyWorkSeconds += seconds
	s.TotalTimerSessions++
}

// ResetDailyCounter starts a fresh counter when the stored date is not today.
func (s *UserStats) ResetDailyCounter(today time.Time) {
	if !s.DailyCounterDate.Equal(today) {
		s.DailyCounterValue = 0
		s.DailyCounterDate = today
	}
}

// IncrementDailyCounter resets the counter if it belongs to another day, then adds one.
func (s *UserStats) IncrementDailyCounter(today time.Time) {
	s.ResetDailyCounter(today)
	s.DailyCounterValue++
}

// DailyCounterOn returns the counter value as observed on today.
// A counter stored for any other date reads as zero.
func (s *UserStats) DailyCounterOn(today time.Time) int {
	if !s.DailyCounterDate.Equal(today) {
		return 0
	}
	return s.DailyCounterValue
}

// CompleteTodo counts one completed todo.
func (s *UserStats) CompleteTodo() {
	s.CompletedTodoCount++
}

// UncompleteTodo reverts one completed todo, never going below zero.
func (s *UserStats) UncompleteTodo() bool {
	if s.CompletedTodoCount <= 0 {
		return false
	}
	s.CompletedTodoCount--
	return true
}

// ViewAt returns the aggregate as a reader on today should observe it,
// applying period and daily-counter rollover to a copy without touching s.
func (s *UserStats) ViewAt(today time.Time) *UserStats {
	v := s.Clone()
	v.ResetPeriods(today)
	v.DailyCounterValue = s.DailyCounterOn(today)
	v.DailyCounterDate = today
	return v
}

// Hours converts seconds to fractional hours.
func Hours(seconds int64) float64 {
	return float64(seconds) / 3600.0
}

// AverageWorkMinutesPerDay is lifetime minutes divided by days with work.
func (s *UserStats) AverageWorkMinutesPerDay() float64 {
	if s.TotalWorkDays == 0 {
		return 0
	}
	return (float64(s.TotalWorkSeconds) / 60.0) / float64(s.TotalWorkDays)
}

// DailyActivity is minutes worked on one calendar date.
type DailyActivity struct {
	Date    time.Time `json:"date"`
	Minutes int64     `json:"minutes"`
}
