package domain

import (
	"fmt"
	"time"
)

// AchievementCategory selects the aggregate metric a rule is evaluated against.
type AchievementCategory string

// Achievement categories.
const (
	CategoryWorkTime   AchievementCategory = "work_time"   // threshold in seconds
	CategoryStreak     AchievementCategory = "streak"      // threshold in days
	CategoryTimerCount AchievementCategory = "timer_count" // threshold in sessions
	CategoryTodoCount  AchievementCategory = "todo_count"  // threshold in todos
)

// Valid returns true if the category is a recognized value.
func (c AchievementCategory) Valid() bool {
	switch c {
	case CategoryWorkTime, CategoryStreak, CategoryTimerCount, CategoryTodoCount:
		return true
	default:
		return false
	}
}

// Metric returns the value of the category's metric in the given aggregate.
func (c AchievementCategory) Metric(s *UserStats) int64 {
	switch c {
	case CategoryWorkTime:
		return s.TotalWorkSeconds
	case CategoryStreak:
		return int64(s.CurrentStreak)
	case CategoryTimerCount:
		return int64(s.TotalTimerSessions)
	case CategoryTodoCount:
		return int64(s.CompletedTodoCount)
	default:
		return 0
	}
}

// AchievementRule is a static threshold condition on one metric.
// Rules are seeded once and read-only afterwards.
type AchievementRule struct {
	ID           string              `json:"id"`
	Category     AchievementCategory `json:"category"`
	Name         string              `json:"name"`
	Description  string              `json:"description"`
	Threshold    int64               `json:"threshold"`
	DisplayOrder int                 `json:"display_order"`
}

// SatisfiedBy reports whether the aggregate meets the rule's threshold.
func (r *AchievementRule) SatisfiedBy(s *UserStats) bool {
	return r.Category.Metric(s) >= r.Threshold
}

// AchievementAward records that a user satisfied a rule. At most one exists per (UserID, RuleID).
type AchievementAward struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	RuleID    string    `json:"rule_id"`
	AwardedAt time.Time `json:"awarded_at"`
}

// AchievementStatus pairs a rule with one user's progress on it.
type AchievementStatus struct {
	Rule       *AchievementRule `json:"rule"`
	Achieved   bool             `json:"achieved"`
	AchievedAt *time.Time       `json:"achieved_at,omitempty"`
}

// DefaultAchievementRules returns the built-in catalog, without IDs.
// Seeding is keyed on (Category, Threshold), so the list may only grow.
func DefaultAchievementRules() []AchievementRule {
	hours := func(h int64) AchievementRule {
		return AchievementRule{
			Category:    CategoryWorkTime,
			Name:        fmt.Sprintf("%d Hours Achieved", h),
			Description: fmt.Sprintf("Worked a cumulative total of %d hours", h),
			Threshold:   h * 3600,
		}
	}
	streak := func(days int64) AchievementRule {
		return AchievementRule{
			Category:    CategoryStreak,
			Name:        fmt.Sprintf("%d-Day Streak", days),
			Description: fmt.Sprintf("Kept working for %d days in a row", days),
			Threshold:   days,
		}
	}
	todos := func(n int64) AchievementRule {
		return AchievementRule{
			Category:    CategoryTodoCount,
			Name:        fmt.Sprintf("%d Todos Completed", n),
			Description: fmt.Sprintf("Completed %d todos", n),
			Threshold:   n,
		}
	}

	firstHour := hours(1)
	firstHour.Name = "1 Hour Achieved"
	firstHour.Description = "Worked a cumulative total of 1 hour"

	rules := []AchievementRule{
		firstHour,
		hours(10),
		hours(100),
		streak(1),
		streak(7),
		streak(30),
		streak(100),
		streak(365),
		{
			Category:    CategoryTimerCount,
			Name:        "10 Timers Completed",
			Description: "Completed the timer 10 times",
			Threshold:   10,
		},
		todos(10),
		todos(100),
		todos(1000),
	}

	for i := range rules {
		rules[i].DisplayOrder = i + 1
	}
	return rules
}
